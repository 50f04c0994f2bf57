package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TrackingStatus string

const (
	TrackingStatusEnRoute   TrackingStatus = "en_route"
	TrackingStatusArrived   TrackingStatus = "arrived"
	TrackingStatusWorking   TrackingStatus = "working"
	TrackingStatusCompleted TrackingStatus = "completed"
)

func IsValidTrackingStatus(s TrackingStatus) bool {
	switch s {
	case TrackingStatusEnRoute, TrackingStatusArrived, TrackingStatusWorking, TrackingStatusCompleted:
		return true
	}
	return false
}

// LocationPing is one entry of a tracking session's history.
type LocationPing struct {
	Location  GeoPoint  `bson:"location" json:"location"`
	Address   string    `bson:"address,omitempty" json:"address,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Tracking is a worker dispatch session for one service request. At most one
// live session may exist per request; ended sessions are kept as history.
// LocationHistory is append-only, seeded with the worker's position at start.
type Tracking struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ServiceRequestID primitive.ObjectID `bson:"service_request_id" json:"service_request_id"`
	WorkerID         primitive.ObjectID `bson:"worker_id" json:"worker_id"`

	CurrentLocation LocationPing   `bson:"current_location" json:"current_location"`
	LocationHistory []LocationPing `bson:"location_history" json:"location_history"`

	// Destination is copied from the service request at creation and never
	// changes afterwards.
	Destination        GeoPoint `bson:"destination" json:"destination"`
	DestinationAddress string   `bson:"destination_address,omitempty" json:"destination_address,omitempty"`

	Status TrackingStatus `bson:"status" json:"status"`
	IsLive bool           `bson:"is_live" json:"is_live"`

	StartedAt time.Time  `bson:"started_at" json:"started_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// TrackingLocationInput carries one ping. Like WorkerLocationInput, the axes
// have no required tags so a zero on either one still binds.
type TrackingLocationInput struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Address   string  `json:"address"`
}

type TrackingStatusInput struct {
	Status TrackingStatus `json:"status" binding:"required"`
}

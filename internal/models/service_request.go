package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusAccepted   RequestStatus = "accepted"
	RequestStatusRejected   RequestStatus = "rejected"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

type ServiceType string

const (
	ServicePlumber     ServiceType = "plumber"
	ServiceElectrician ServiceType = "electrician"
	ServiceCarpenter   ServiceType = "carpenter"
	ServicePainter     ServiceType = "painter"
	ServiceCleaner     ServiceType = "cleaner"
	ServiceDriver      ServiceType = "driver"
	ServiceMechanic    ServiceType = "mechanic"
	ServiceAppliance   ServiceType = "appliance"
	ServicePestControl ServiceType = "pest_control"
	ServiceOther       ServiceType = "other"
)

func ServiceTypes() []ServiceType {
	return []ServiceType{
		ServicePlumber, ServiceElectrician, ServiceCarpenter, ServicePainter,
		ServiceCleaner, ServiceDriver, ServiceMechanic, ServiceAppliance,
		ServicePestControl, ServiceOther,
	}
}

func IsValidServiceType(t ServiceType) bool {
	for _, s := range ServiceTypes() {
		if s == t {
			return true
		}
	}
	return false
}

// ServiceRequest is a customer's job posting and the single source of truth
// for its lifecycle. Status only ever moves along
// pending -> accepted -> in_progress -> completed, with rejected/cancelled
// branches out of pending and accepted. Terminal requests are kept, never deleted.
type ServiceRequest struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CustomerID  string              `bson:"customer_id" json:"customer_id"`
	WorkerID    *primitive.ObjectID `bson:"worker_id,omitempty" json:"worker_id,omitempty"`
	ServiceType ServiceType         `bson:"service_type" json:"service_type"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Location    GeoPoint            `bson:"location" json:"location"`
	Address     string              `bson:"address,omitempty" json:"address,omitempty"`
	Status      RequestStatus       `bson:"status" json:"status"`

	ScheduledFor  *time.Time `bson:"scheduled_for,omitempty" json:"scheduled_for,omitempty"`
	EstimatedCost *float64   `bson:"estimated_cost,omitempty" json:"estimated_cost,omitempty"`
	ActualCost    *float64   `bson:"actual_cost,omitempty" json:"actual_cost,omitempty"`
	CancelReason  string     `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`

	// Each timestamp is set exactly once, on its own transition.
	AcceptedAt  *time.Time `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	StartedAt   *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`

	// Write-once ratings, one per direction.
	CustomerRating *int   `bson:"customer_rating,omitempty" json:"customer_rating,omitempty"`
	CustomerReview string `bson:"customer_review,omitempty" json:"customer_review,omitempty"`
	WorkerRating   *int   `bson:"worker_rating,omitempty" json:"worker_rating,omitempty"`
	WorkerReview   string `bson:"worker_review,omitempty" json:"worker_review,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (r *ServiceRequest) Validate() error {
	if r.CustomerID == "" || r.Title == "" {
		return errors.New("missing required request fields")
	}
	if !IsValidServiceType(r.ServiceType) {
		return errors.New("unknown service type")
	}
	return nil
}

// CreateRequestInput is the request body for creating a service request.
type CreateRequestInput struct {
	ServiceType   ServiceType `json:"service_type" binding:"required"`
	Title         string      `json:"title" binding:"required"`
	Description   string      `json:"description"`
	Longitude     float64     `json:"longitude"`
	Latitude      float64     `json:"latitude"`
	Address       string      `json:"address"`
	ScheduledFor  *time.Time  `json:"scheduled_for"`
	EstimatedCost *float64    `json:"estimated_cost"`
}

type RateRequestInput struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Review string `json:"review"`
}

// NearbyRequest is a pending request decorated with the caller's distance to it.
type NearbyRequest struct {
	ServiceRequest
	DistanceKm *float64 `json:"distance_km,omitempty"`
	ETAMinutes *int     `json:"eta_minutes,omitempty"`
}

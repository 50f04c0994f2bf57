package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Worker is a worker's professional profile, one per user identity.
// Its location is written both by explicit profile updates and, during an
// active tracking session, mirrored from the latest tracking ping.
type Worker struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Profession ServiceType        `bson:"profession" json:"profession"`

	Location GeoPoint `bson:"location" json:"location"`
	Address  string   `bson:"address,omitempty" json:"address,omitempty"`
	City     string   `bson:"city,omitempty" json:"city,omitempty"`

	// ServiceAreaKm caps how far away a pending request may be for this
	// worker to see it in nearby listings.
	ServiceAreaKm float64 `bson:"service_area_km" json:"service_area_km"`

	IsAvailable bool `bson:"is_available" json:"is_available"`
	IsVerified  bool `bson:"is_verified" json:"is_verified"`

	// CompletedJobs counts accepted assignments, not completions. Historical
	// behavior that downstream consumers rely on.
	CompletedJobs int     `bson:"completed_jobs" json:"completed_jobs"`
	Rating        float64 `bson:"rating" json:"rating"`
	TotalReviews  int     `bson:"total_reviews" json:"total_reviews"`

	LastLocationUpdate *time.Time `bson:"last_location_update,omitempty" json:"last_location_update,omitempty"`
	CreatedAt          time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `bson:"updated_at" json:"updated_at"`
}

func (w *Worker) Validate() error {
	if w.UserID == "" {
		return errors.New("missing worker user id")
	}
	if !IsValidServiceType(w.Profession) {
		return errors.New("unknown profession")
	}
	if w.ServiceAreaKm < 0 {
		return errors.New("service area must not be negative")
	}
	return nil
}

type RegisterWorkerInput struct {
	Profession    ServiceType `json:"profession" binding:"required"`
	Longitude     float64     `json:"longitude"`
	Latitude      float64     `json:"latitude"`
	Address       string      `json:"address"`
	City          string      `json:"city"`
	ServiceAreaKm float64     `json:"service_area_km"`
}

type UpdateWorkerInput struct {
	Profession    *ServiceType `json:"profession"`
	Address       *string      `json:"address"`
	City          *string      `json:"city"`
	ServiceAreaKm *float64     `json:"service_area_km"`
}

// WorkerLocationInput carries a coordinate update. No required tags on the
// axes: zero is a legal value for either one, bounds are checked in the
// service instead.
type WorkerLocationInput struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Address   string  `json:"address"`
}

// NearbyWorker is a worker listing entry decorated with distance and ETA
// relative to the search origin.
type NearbyWorker struct {
	Worker
	DistanceKm *float64 `json:"distance_km,omitempty"`
	ETAMinutes *int     `json:"eta_minutes,omitempty"`
}

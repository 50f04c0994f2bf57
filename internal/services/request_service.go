package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fixly-app/marketplace-service/internal/config"
	"fixly-app/marketplace-service/internal/models"
	"fixly-app/marketplace-service/internal/repository"
	"fixly-app/marketplace-service/internal/utils"
)

// nearbyAverageSpeedKmh is the assumed travel speed for ETA estimates.
const nearbyAverageSpeedKmh = 30.0

// RequestService is the lifecycle coordinator: every service-request state
// transition and its cross-entity side effects (worker counters, tracking
// sessions) go through here.
type RequestService interface {
	CreateRequest(ctx context.Context, customerID string, input models.CreateRequestInput) (*models.ServiceRequest, error)
	GetForActor(ctx context.Context, requestID, callerID string) (*models.ServiceRequest, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.ServiceRequest, error)
	ListByWorker(ctx context.Context, workerUserID string) ([]models.ServiceRequest, error)
	ListNearbyPending(ctx context.Context, workerUserID string) ([]models.NearbyRequest, error)
	Accept(ctx context.Context, requestID, workerUserID string) (*models.ServiceRequest, error)
	Terminate(ctx context.Context, requestID, callerID, reason string) (*models.ServiceRequest, error)
	Start(ctx context.Context, requestID, workerUserID string) (*models.ServiceRequest, *models.Tracking, error)
	Complete(ctx context.Context, requestID, workerUserID string, actualCost *float64) (*models.ServiceRequest, error)
	Rate(ctx context.Context, requestID, callerID string, input models.RateRequestInput) (*models.ServiceRequest, error)
}

type requestService struct {
	repo      repository.RequestRepository
	workers   repository.WorkerRepository
	trackings repository.TrackingRepository
	redis     *redis.Client
	cfg       *config.Config
	reviews   *utils.ReviewClient
}

func NewRequestService(repo repository.RequestRepository, workers repository.WorkerRepository, trackings repository.TrackingRepository, rdb *redis.Client, cfg *config.Config, reviews *utils.ReviewClient) RequestService {
	return &requestService{repo: repo, workers: workers, trackings: trackings, redis: rdb, cfg: cfg, reviews: reviews}
}

func (s *requestService) CreateRequest(ctx context.Context, customerID string, input models.CreateRequestInput) (*models.ServiceRequest, error) {
	if !utils.IsLocationValid(input.Latitude, input.Longitude) {
		return nil, fmt.Errorf("%w: invalid location coordinates", models.ErrValidation)
	}

	request := &models.ServiceRequest{
		CustomerID:  customerID,
		ServiceType: input.ServiceType,
		Title:       input.Title,
		Description: input.Description,
		Location: models.GeoPoint{
			Longitude: input.Longitude,
			Latitude:  input.Latitude,
		},
		Address:       input.Address,
		ScheduledFor:  input.ScheduledFor,
		EstimatedCost: input.EstimatedCost,
	}
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, err
	}

	s.invalidateCustomerCache(ctx, customerID)
	s.notify(ctx, customerID, "customer", "Request created",
		"Your service request has been created and is waiting for a worker.", "request_created")

	return request, nil
}

func (s *requestService) GetForActor(ctx context.Context, requestID, callerID string) (*models.ServiceRequest, error) {
	id, err := parseObjectID(requestID)
	if err != nil {
		return nil, err
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.CustomerID == callerID {
		return request, nil
	}
	worker, err := s.workers.GetByUserID(ctx, callerID)
	if err != nil || request.WorkerID == nil || *request.WorkerID != worker.ID {
		return nil, models.ErrForbidden
	}
	return request, nil
}

func (s *requestService) ListByCustomer(ctx context.Context, customerID string) ([]models.ServiceRequest, error) {
	cacheKey := utils.CustomerRequestsKey(customerID)

	var cached []models.ServiceRequest
	if val, err := utils.GetFromCache(ctx, s.redis, cacheKey); err == nil {
		if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
			return cached, nil
		}
	}

	requests, err := s.repo.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(requests); err == nil {
		_ = utils.SetToCache(ctx, s.redis, cacheKey, string(data), utils.CustomerRequestsTTL)
	}
	return requests, nil
}

// ListByWorker returns the requests assigned to the calling worker, newest
// first, across every status.
func (s *requestService) ListByWorker(ctx context.Context, workerUserID string) ([]models.ServiceRequest, error) {
	worker, err := s.workers.GetByUserID(ctx, workerUserID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByWorker(ctx, worker.ID)
}

// ListNearbyPending returns pending requests of the worker's profession
// within the worker's own service area. Requests whose location was never
// set are always included, so they do not silently disappear from every
// worker's feed.
func (s *requestService) ListNearbyPending(ctx context.Context, workerUserID string) ([]models.NearbyRequest, error) {
	worker, err := s.workers.GetByUserID(ctx, workerUserID)
	if err != nil {
		return nil, err
	}

	requests, err := s.repo.FindPendingByType(ctx, worker.Profession)
	if err != nil {
		return nil, err
	}

	nearby := make([]models.NearbyRequest, 0, len(requests))
	for _, request := range requests {
		entry := models.NearbyRequest{ServiceRequest: request}
		if worker.Location.IsUnset() {
			// worker never reported a position, show everything in category
			nearby = append(nearby, entry)
			continue
		}
		if !utils.WithinRadius(worker.Location, request.Location, worker.ServiceAreaKm) {
			continue
		}
		if !request.Location.IsUnset() {
			distance := utils.HaversineDistance(worker.Location, request.Location)
			eta := int(utils.CalculateETA(worker.Location, request.Location, nearbyAverageSpeedKmh).Minutes())
			entry.DistanceKm = &distance
			entry.ETAMinutes = &eta
		}
		nearby = append(nearby, entry)
	}
	return nearby, nil
}

// Accept atomically assigns the calling worker to a pending request. Exactly
// one of any number of concurrent accepts can win; the rest see the request
// already out of pending.
func (s *requestService) Accept(ctx context.Context, requestID, workerUserID string) (*models.ServiceRequest, error) {
	id, err := parseObjectID(requestID)
	if err != nil {
		return nil, err
	}
	worker, err := s.workers.GetByUserID(ctx, workerUserID)
	if err != nil {
		return nil, err
	}

	request, err := s.repo.AcceptPending(ctx, id, worker.ID, time.Now())
	if errors.Is(err, models.ErrNotFound) {
		return nil, s.explainMissedTransition(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	// counts acceptances, not completions; kept for compatibility
	if err := s.workers.IncrementCompletedJobs(ctx, worker.ID); err != nil {
		log.Printf("failed to bump job counter for worker %s: %v", worker.ID.Hex(), err)
	}

	s.invalidateCustomerCache(ctx, request.CustomerID)
	s.notify(ctx, request.CustomerID, "customer", "Request accepted",
		"A worker has accepted your service request.", "request_accepted")

	return request, nil
}

// Terminate is the reject/cancel branch. The assigned worker rejects, the
// owning customer cancels, anyone else is refused. Legal only while the
// request is still pending or accepted.
func (s *requestService) Terminate(ctx context.Context, requestID, callerID, reason string) (*models.ServiceRequest, error) {
	id, err := parseObjectID(requestID)
	if err != nil {
		return nil, err
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var target models.RequestStatus
	switch {
	case request.CustomerID == callerID:
		target = models.RequestStatusCancelled
	case s.isAssignedWorker(ctx, request, callerID):
		target = models.RequestStatusRejected
	default:
		return nil, models.ErrForbidden
	}

	updated, err := s.repo.Terminate(ctx, id, target, reason, time.Now())
	if errors.Is(err, models.ErrNotFound) {
		// the request moved on between the read and the conditional write
		return nil, fmt.Errorf("%w: request is no longer pending or accepted", models.ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateCustomerCache(ctx, updated.CustomerID)
	s.notify(ctx, updated.CustomerID, "customer", "Request closed",
		fmt.Sprintf("Your service request was %s.", target), "request_"+string(target))

	return updated, nil
}

// Start flips accepted -> in_progress and opens the tracking session seeded
// with the worker's current position and the request location as
// destination. If the session insert fails after the flip, the request stays
// in_progress and tracking can be opened explicitly through the tracking API.
func (s *requestService) Start(ctx context.Context, requestID, workerUserID string) (*models.ServiceRequest, *models.Tracking, error) {
	id, err := parseObjectID(requestID)
	if err != nil {
		return nil, nil, err
	}
	worker, err := s.workers.GetByUserID(ctx, workerUserID)
	if err != nil {
		return nil, nil, err
	}

	request, err := s.repo.StartAccepted(ctx, id, worker.ID, time.Now())
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, s.explainMissedStart(ctx, id, worker.ID)
	}
	if err != nil {
		return nil, nil, err
	}

	tracking := NewTrackingSession(request, worker)
	if err := s.trackings.CreateLive(ctx, tracking); err != nil {
		if errors.Is(err, models.ErrInvalidState) {
			// a live session already exists, reuse it
			if existing, getErr := s.trackings.GetLiveByRequest(ctx, id); getErr == nil {
				tracking = existing
			}
		} else {
			log.Printf("failed to open tracking for request %s: %v", id.Hex(), err)
			tracking = nil
		}
	}

	s.invalidateCustomerCache(ctx, request.CustomerID)
	s.notify(ctx, request.CustomerID, "customer", "Work started",
		"Your worker is on the way. Live tracking is available.", "request_started")

	return request, tracking, nil
}

func (s *requestService) Complete(ctx context.Context, requestID, workerUserID string, actualCost *float64) (*models.ServiceRequest, error) {
	id, err := parseObjectID(requestID)
	if err != nil {
		return nil, err
	}
	worker, err := s.workers.GetByUserID(ctx, workerUserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	request, err := s.repo.CompleteInProgress(ctx, id, worker.ID, now, actualCost)
	if errors.Is(err, models.ErrNotFound) {
		return nil, s.explainMissedComplete(ctx, id, worker.ID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.trackings.EndLiveByRequest(ctx, id, now); err != nil {
		log.Printf("failed to end tracking for request %s: %v", id.Hex(), err)
	}

	s.invalidateCustomerCache(ctx, request.CustomerID)
	s.notify(ctx, request.CustomerID, "customer", "Work completed",
		"Your service request is complete. Please rate your worker.", "request_completed")

	return request, nil
}

// Rate records a write-once rating in the caller's direction and reports it
// to the external review aggregator. Customer rates the worker, the assigned
// worker rates the customer; the two directions are independent.
func (s *requestService) Rate(ctx context.Context, requestID, callerID string, input models.RateRequestInput) (*models.ServiceRequest, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", models.ErrValidation)
	}
	id, err := parseObjectID(requestID)
	if err != nil {
		return nil, err
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var direction string
	switch {
	case request.CustomerID == callerID:
		direction = repository.RatingByCustomer
	case s.isAssignedWorker(ctx, request, callerID):
		direction = repository.RatingByWorker
	default:
		return nil, models.ErrForbidden
	}

	updated, err := s.repo.SetRating(ctx, id, direction, input.Rating, input.Review)
	if errors.Is(err, models.ErrNotFound) {
		if request.Status != models.RequestStatusCompleted {
			return nil, fmt.Errorf("%w: only completed requests can be rated", models.ErrInvalidState)
		}
		return nil, models.ErrAlreadyRated
	}
	if err != nil {
		return nil, err
	}

	s.reportRating(ctx, updated, direction, input)
	s.invalidateCustomerCache(ctx, updated.CustomerID)

	return updated, nil
}

// reportRating forwards the rating to the aggregator and keeps the worker
// document's mirrored average up to date for customer -> worker ratings.
func (s *requestService) reportRating(ctx context.Context, request *models.ServiceRequest, direction string, input models.RateRequestInput) {
	targetKind := "customer"
	targetID := request.CustomerID
	if direction == repository.RatingByCustomer && request.WorkerID != nil {
		targetKind = "worker"
		targetID = request.WorkerID.Hex()
	}
	if err := s.reviews.SubmitRating(ctx, targetID, targetKind, input.Rating, input.Review); err != nil {
		log.Printf("failed to report rating for request %s: %v", request.ID.Hex(), err)
	}

	if direction != repository.RatingByCustomer || request.WorkerID == nil {
		return
	}
	worker, err := s.workers.GetByID(ctx, *request.WorkerID)
	if err != nil {
		log.Printf("failed to load worker for rating mirror: %v", err)
		return
	}
	total := worker.TotalReviews + 1
	average := (worker.Rating*float64(worker.TotalReviews) + float64(input.Rating)) / float64(total)
	if err := s.workers.ApplyRating(ctx, worker.ID, average, total); err != nil {
		log.Printf("failed to mirror rating onto worker %s: %v", worker.ID.Hex(), err)
	}
}

func (s *requestService) isAssignedWorker(ctx context.Context, request *models.ServiceRequest, callerID string) bool {
	if request.WorkerID == nil {
		return false
	}
	worker, err := s.workers.GetByUserID(ctx, callerID)
	return err == nil && worker.ID == *request.WorkerID
}

// explainMissedTransition turns a failed conditional accept into the right
// caller-facing error: missing request vs. lost race.
func (s *requestService) explainMissedTransition(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.repo.GetByID(ctx, id); errors.Is(err, models.ErrNotFound) {
		return models.ErrNotFound
	}
	return fmt.Errorf("%w: request is no longer pending", models.ErrInvalidState)
}

func (s *requestService) explainMissedStart(ctx context.Context, id, workerID primitive.ObjectID) error {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if request.WorkerID == nil || *request.WorkerID != workerID {
		return models.ErrForbidden
	}
	return fmt.Errorf("%w: request is not in accepted status", models.ErrInvalidState)
}

func (s *requestService) explainMissedComplete(ctx context.Context, id, workerID primitive.ObjectID) error {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if request.WorkerID == nil || *request.WorkerID != workerID {
		return models.ErrForbidden
	}
	return fmt.Errorf("%w: request is not in progress", models.ErrInvalidState)
}

func (s *requestService) invalidateCustomerCache(ctx context.Context, customerID string) {
	key := utils.CustomerRequestsKey(customerID)
	if err := utils.DeleteFromCache(ctx, s.redis, key); err != nil {
		log.Printf("failed to invalidate cache %s: %v", key, err)
	}
}

func (s *requestService) notify(ctx context.Context, userID, role, title, message, notifType string) {
	err := utils.SendNotification(ctx, s.cfg, utils.NotificationRequest{
		UserID:       userID,
		Role:         role,
		Title:        title,
		Message:      message,
		Type:         notifType,
		DeliveryType: "push",
	})
	if err != nil {
		log.Printf("failed to send %s notification: %v", notifType, err)
	}
}

// NewTrackingSession builds the live session opened when work starts: seeded
// with the worker's last known position and the request location as the
// immutable destination.
func NewTrackingSession(request *models.ServiceRequest, worker *models.Worker) *models.Tracking {
	seed := models.LocationPing{
		Location:  worker.Location,
		Address:   worker.Address,
		Timestamp: time.Now(),
	}
	return &models.Tracking{
		ServiceRequestID:   request.ID,
		WorkerID:           worker.ID,
		CurrentLocation:    seed,
		LocationHistory:    []models.LocationPing{seed},
		Destination:        request.Location,
		DestinationAddress: request.Address,
		Status:             models.TrackingStatusEnRoute,
	}
}

func parseObjectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, models.ErrInvalidID
	}
	return id, nil
}

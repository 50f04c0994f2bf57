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

	"fixly-app/marketplace-service/internal/models"
	"fixly-app/marketplace-service/internal/repository"
	"fixly-app/marketplace-service/internal/utils"
)

// TrackingService manages dispatch tracking sessions: one live session per
// request, an append-only location trail, and the status mirror back onto
// the parent service request.
type TrackingService interface {
	Open(ctx context.Context, workerUserID, requestID string) (*models.Tracking, error)
	UpdateLocation(ctx context.Context, trackingID, workerUserID string, input models.TrackingLocationInput) (*models.Tracking, error)
	UpdateStatus(ctx context.Context, trackingID, workerUserID string, status models.TrackingStatus) (*models.Tracking, error)
	End(ctx context.Context, trackingID, workerUserID string) (*models.Tracking, error)
	GetByRequest(ctx context.Context, requestID, callerID string) (*models.Tracking, error)
	History(ctx context.Context, requestID, callerID string) ([]models.Tracking, error)
	ListLive(ctx context.Context) ([]models.Tracking, error)
}

type trackingService struct {
	repo     repository.TrackingRepository
	requests repository.RequestRepository
	workers  repository.WorkerRepository
	redis    *redis.Client
}

func NewTrackingService(repo repository.TrackingRepository, requests repository.RequestRepository, workers repository.WorkerRepository, rdb *redis.Client) TrackingService {
	return &trackingService{repo: repo, requests: requests, workers: workers, redis: rdb}
}

// Open explicitly starts a tracking session for an assigned request. The
// normal path opens one implicitly on request start; this exists for
// recovery when that insert failed, and is guarded by the same partial
// unique index, so a second live session can never appear.
func (s *trackingService) Open(ctx context.Context, workerUserID, requestID string) (*models.Tracking, error) {
	id, err := parseObjectID(requestID)
	if err != nil {
		return nil, err
	}
	worker, err := s.workers.GetByUserID(ctx, workerUserID)
	if err != nil {
		return nil, err
	}
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.WorkerID == nil || *request.WorkerID != worker.ID {
		return nil, models.ErrForbidden
	}
	if request.Status != models.RequestStatusAccepted && request.Status != models.RequestStatusInProgress {
		return nil, fmt.Errorf("%w: request is not active", models.ErrInvalidState)
	}

	tracking := NewTrackingSession(request, worker)
	if err := s.repo.CreateLive(ctx, tracking); err != nil {
		if errors.Is(err, models.ErrInvalidState) {
			return nil, fmt.Errorf("%w: a live tracking session already exists", models.ErrInvalidState)
		}
		return nil, err
	}

	s.invalidateLiveCache(ctx)
	return tracking, nil
}

// UpdateLocation appends a ping to the session trail and mirrors the new
// position into the worker's own profile. The mirror is best effort: a
// failed profile write is logged, the tracking write stands.
func (s *trackingService) UpdateLocation(ctx context.Context, trackingID, workerUserID string, input models.TrackingLocationInput) (*models.Tracking, error) {
	if !utils.IsLocationValid(input.Latitude, input.Longitude) {
		return nil, fmt.Errorf("%w: invalid location coordinates", models.ErrValidation)
	}
	id, err := parseObjectID(trackingID)
	if err != nil {
		return nil, err
	}
	worker, err := s.workers.GetByUserID(ctx, workerUserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ping := models.LocationPing{
		Location:  models.GeoPoint{Longitude: input.Longitude, Latitude: input.Latitude},
		Address:   input.Address,
		Timestamp: now,
	}
	tracking, err := s.repo.AppendLocation(ctx, id, worker.ID, ping)
	if errors.Is(err, models.ErrNotFound) {
		return nil, s.explainMissedUpdate(ctx, id, worker.ID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.workers.UpdateLocation(ctx, worker.ID, ping.Location, ping.Address, now); err != nil {
		log.Printf("failed to mirror location onto worker %s: %v", worker.ID.Hex(), err)
	}

	s.invalidateLiveCache(ctx)
	return tracking, nil
}

// UpdateStatus moves the session through en_route/arrived/working/completed.
// Membership in that set is all that is checked; ordering is not enforced.
// arrived mirrors the parent request to in_progress, completed closes the
// session.
func (s *trackingService) UpdateStatus(ctx context.Context, trackingID, workerUserID string, status models.TrackingStatus) (*models.Tracking, error) {
	if !models.IsValidTrackingStatus(status) {
		return nil, fmt.Errorf("%w: unknown tracking status %q", models.ErrValidation, status)
	}
	id, err := parseObjectID(trackingID)
	if err != nil {
		return nil, err
	}
	worker, err := s.workers.GetByUserID(ctx, workerUserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tracking, err := s.repo.UpdateStatus(ctx, id, worker.ID, status, now)
	if errors.Is(err, models.ErrNotFound) {
		return nil, s.explainMissedUpdate(ctx, id, worker.ID)
	}
	if err != nil {
		return nil, err
	}

	if status == models.TrackingStatusArrived {
		// a no-match here just means the request already moved past accepted
		if _, err := s.requests.StartAccepted(ctx, tracking.ServiceRequestID, worker.ID, now); err != nil && !errors.Is(err, models.ErrNotFound) {
			log.Printf("failed to mirror arrival onto request %s: %v", tracking.ServiceRequestID.Hex(), err)
		}
	}

	s.invalidateLiveCache(ctx)
	return tracking, nil
}

func (s *trackingService) End(ctx context.Context, trackingID, workerUserID string) (*models.Tracking, error) {
	id, err := parseObjectID(trackingID)
	if err != nil {
		return nil, err
	}
	worker, err := s.workers.GetByUserID(ctx, workerUserID)
	if err != nil {
		return nil, err
	}

	tracking, err := s.repo.End(ctx, id, worker.ID, time.Now())
	if errors.Is(err, models.ErrNotFound) {
		return nil, s.explainMissedUpdate(ctx, id, worker.ID)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateLiveCache(ctx)
	return tracking, nil
}

// GetByRequest returns the live session for a request, falling back to the
// most recent ended one. Visible to the requesting customer and the
// session's worker only.
func (s *trackingService) GetByRequest(ctx context.Context, requestID, callerID string) (*models.Tracking, error) {
	id, err := s.authorizeRequestAccess(ctx, requestID, callerID)
	if err != nil {
		return nil, err
	}

	tracking, err := s.repo.GetLiveByRequest(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		sessions, listErr := s.repo.ListByRequest(ctx, id)
		if listErr != nil {
			return nil, listErr
		}
		if len(sessions) == 0 {
			return nil, models.ErrNotFound
		}
		return &sessions[0], nil
	}
	return tracking, err
}

func (s *trackingService) History(ctx context.Context, requestID, callerID string) ([]models.Tracking, error) {
	id, err := s.authorizeRequestAccess(ctx, requestID, callerID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByRequest(ctx, id)
}

func (s *trackingService) ListLive(ctx context.Context) ([]models.Tracking, error) {
	var cached []models.Tracking
	if val, err := utils.GetFromCache(ctx, s.redis, utils.LiveSessionsKey); err == nil {
		if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
			return cached, nil
		}
	}

	sessions, err := s.repo.ListLive(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(sessions); err == nil {
		_ = utils.SetToCache(ctx, s.redis, utils.LiveSessionsKey, string(data), utils.LiveSessionsTTL)
	}
	return sessions, nil
}

func (s *trackingService) authorizeRequestAccess(ctx context.Context, requestID, callerID string) (primitive.ObjectID, error) {
	id, err := parseObjectID(requestID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if request.CustomerID == callerID {
		return id, nil
	}
	worker, err := s.workers.GetByUserID(ctx, callerID)
	if err != nil || request.WorkerID == nil || *request.WorkerID != worker.ID {
		return primitive.NilObjectID, models.ErrForbidden
	}
	return id, nil
}

func (s *trackingService) explainMissedUpdate(ctx context.Context, id, workerID primitive.ObjectID) error {
	tracking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tracking.WorkerID != workerID {
		return models.ErrForbidden
	}
	return fmt.Errorf("%w: tracking session is no longer live", models.ErrInvalidState)
}

func (s *trackingService) invalidateLiveCache(ctx context.Context) {
	if err := utils.DeleteFromCache(ctx, s.redis, utils.LiveSessionsKey); err != nil {
		log.Printf("failed to invalidate cache %s: %v", utils.LiveSessionsKey, err)
	}
}

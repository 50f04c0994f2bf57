package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fixly-app/marketplace-service/internal/models"
)

// In-memory repositories with the same conditional-update semantics as the
// Mongo implementations, so the services' race handling can be exercised
// without a database.

type fakeRequestRepo struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*models.ServiceRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{docs: map[primitive.ObjectID]*models.ServiceRequest{}}
}

func (r *fakeRequestRepo) Create(_ context.Context, request *models.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request.ID = primitive.NewObjectID()
	request.Status = models.RequestStatusPending
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	stored := *request
	r.docs[request.ID] = &stored
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeRequestRepo) GetByCustomer(_ context.Context, customerID string) ([]models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ServiceRequest
	for _, doc := range r.docs {
		if doc.CustomerID == customerID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) GetByWorker(_ context.Context, workerID primitive.ObjectID) ([]models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ServiceRequest
	for _, doc := range r.docs {
		if doc.WorkerID != nil && *doc.WorkerID == workerID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) FindPendingByType(_ context.Context, serviceType models.ServiceType) ([]models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ServiceRequest
	for _, doc := range r.docs {
		if doc.ServiceType == serviceType && doc.Status == models.RequestStatusPending {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) AcceptPending(_ context.Context, id, workerID primitive.ObjectID, at time.Time) (*models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.Status != models.RequestStatusPending {
		return nil, models.ErrNotFound
	}
	doc.Status = models.RequestStatusAccepted
	doc.WorkerID = &workerID
	doc.AcceptedAt = &at
	doc.UpdatedAt = at
	copied := *doc
	return &copied, nil
}

func (r *fakeRequestRepo) StartAccepted(_ context.Context, id, workerID primitive.ObjectID, at time.Time) (*models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.Status != models.RequestStatusAccepted || doc.WorkerID == nil || *doc.WorkerID != workerID {
		return nil, models.ErrNotFound
	}
	doc.Status = models.RequestStatusInProgress
	doc.StartedAt = &at
	doc.UpdatedAt = at
	copied := *doc
	return &copied, nil
}

func (r *fakeRequestRepo) CompleteInProgress(_ context.Context, id, workerID primitive.ObjectID, at time.Time, actualCost *float64) (*models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.Status != models.RequestStatusInProgress || doc.WorkerID == nil || *doc.WorkerID != workerID {
		return nil, models.ErrNotFound
	}
	doc.Status = models.RequestStatusCompleted
	doc.CompletedAt = &at
	doc.UpdatedAt = at
	if actualCost != nil {
		doc.ActualCost = actualCost
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeRequestRepo) Terminate(_ context.Context, id primitive.ObjectID, to models.RequestStatus, reason string, at time.Time) (*models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || (doc.Status != models.RequestStatusPending && doc.Status != models.RequestStatusAccepted) {
		return nil, models.ErrNotFound
	}
	doc.Status = to
	doc.CancelReason = reason
	doc.CancelledAt = &at
	doc.UpdatedAt = at
	copied := *doc
	return &copied, nil
}

func (r *fakeRequestRepo) SetRating(_ context.Context, id primitive.ObjectID, direction string, rating int, review string) (*models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.Status != models.RequestStatusCompleted {
		return nil, models.ErrNotFound
	}
	if direction == "worker" {
		if doc.WorkerRating != nil {
			return nil, models.ErrNotFound
		}
		doc.WorkerRating = &rating
		doc.WorkerReview = review
	} else {
		if doc.CustomerRating != nil {
			return nil, models.ErrNotFound
		}
		doc.CustomerRating = &rating
		doc.CustomerReview = review
	}
	copied := *doc
	return &copied, nil
}

type fakeWorkerRepo struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*models.Worker
}

func newFakeWorkerRepo() *fakeWorkerRepo {
	return &fakeWorkerRepo{docs: map[primitive.ObjectID]*models.Worker{}}
}

func (r *fakeWorkerRepo) Create(_ context.Context, worker *models.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.UserID == worker.UserID {
			return models.ErrDuplicate
		}
	}
	worker.ID = primitive.NewObjectID()
	worker.CreatedAt = time.Now()
	worker.UpdatedAt = worker.CreatedAt
	stored := *worker
	r.docs[worker.ID] = &stored
	return nil
}

func (r *fakeWorkerRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeWorkerRepo) GetByUserID(_ context.Context, userID string) (*models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.UserID == userID {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeWorkerRepo) Update(_ context.Context, worker *models.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[worker.ID]; !ok {
		return models.ErrNotFound
	}
	worker.UpdatedAt = time.Now()
	stored := *worker
	r.docs[worker.ID] = &stored
	return nil
}

func (r *fakeWorkerRepo) UpdateLocation(_ context.Context, id primitive.ObjectID, point models.GeoPoint, address string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	doc.Location = point
	if address != "" {
		doc.Address = address
	}
	doc.LastLocationUpdate = &at
	doc.UpdatedAt = at
	return nil
}

func (r *fakeWorkerRepo) SetAvailability(_ context.Context, id primitive.ObjectID, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	doc.IsAvailable = available
	return nil
}

func (r *fakeWorkerRepo) IncrementCompletedJobs(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	doc.CompletedJobs++
	return nil
}

func (r *fakeWorkerRepo) ApplyRating(_ context.Context, id primitive.ObjectID, rating float64, totalReviews int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	doc.Rating = rating
	doc.TotalReviews = totalReviews
	return nil
}

func (r *fakeWorkerRepo) FindVerifiedAvailable(_ context.Context, profession models.ServiceType) ([]models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Worker
	for _, doc := range r.docs {
		if !doc.IsVerified || !doc.IsAvailable {
			continue
		}
		if profession != "" && doc.Profession != profession {
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}

type fakeTrackingRepo struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*models.Tracking
}

func newFakeTrackingRepo() *fakeTrackingRepo {
	return &fakeTrackingRepo{docs: map[primitive.ObjectID]*models.Tracking{}}
}

func (r *fakeTrackingRepo) CreateLive(_ context.Context, tracking *models.Tracking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.ServiceRequestID == tracking.ServiceRequestID && doc.IsLive {
			return models.ErrInvalidState
		}
	}
	tracking.ID = primitive.NewObjectID()
	tracking.IsLive = true
	tracking.StartedAt = time.Now()
	tracking.UpdatedAt = tracking.StartedAt
	stored := *tracking
	stored.LocationHistory = append([]models.LocationPing(nil), tracking.LocationHistory...)
	r.docs[tracking.ID] = &stored
	return nil
}

func (r *fakeTrackingRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Tracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := r.copy(doc)
	return &copied, nil
}

func (r *fakeTrackingRepo) GetLiveByRequest(_ context.Context, requestID primitive.ObjectID) (*models.Tracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.ServiceRequestID == requestID && doc.IsLive {
			copied := r.copy(doc)
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeTrackingRepo) ListLive(_ context.Context) ([]models.Tracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Tracking
	for _, doc := range r.docs {
		if doc.IsLive {
			out = append(out, r.copy(doc))
		}
	}
	return out, nil
}

func (r *fakeTrackingRepo) ListByRequest(_ context.Context, requestID primitive.ObjectID) ([]models.Tracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Tracking
	for _, doc := range r.docs {
		if doc.ServiceRequestID == requestID {
			out = append(out, r.copy(doc))
		}
	}
	return out, nil
}

func (r *fakeTrackingRepo) AppendLocation(_ context.Context, id, workerID primitive.ObjectID, ping models.LocationPing) (*models.Tracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.WorkerID != workerID || !doc.IsLive {
		return nil, models.ErrNotFound
	}
	doc.LocationHistory = append(doc.LocationHistory, ping)
	doc.CurrentLocation = ping
	doc.UpdatedAt = ping.Timestamp
	copied := r.copy(doc)
	return &copied, nil
}

func (r *fakeTrackingRepo) UpdateStatus(_ context.Context, id, workerID primitive.ObjectID, status models.TrackingStatus, at time.Time) (*models.Tracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.WorkerID != workerID || !doc.IsLive {
		return nil, models.ErrNotFound
	}
	doc.Status = status
	doc.UpdatedAt = at
	if status == models.TrackingStatusCompleted {
		doc.IsLive = false
		doc.EndedAt = &at
	}
	copied := r.copy(doc)
	return &copied, nil
}

func (r *fakeTrackingRepo) End(_ context.Context, id, workerID primitive.ObjectID, at time.Time) (*models.Tracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.WorkerID != workerID {
		return nil, models.ErrNotFound
	}
	doc.Status = models.TrackingStatusCompleted
	doc.IsLive = false
	doc.EndedAt = &at
	doc.UpdatedAt = at
	copied := r.copy(doc)
	return &copied, nil
}

func (r *fakeTrackingRepo) EndLiveByRequest(_ context.Context, requestID primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.ServiceRequestID == requestID && doc.IsLive {
			doc.Status = models.TrackingStatusCompleted
			doc.IsLive = false
			doc.EndedAt = &at
			doc.UpdatedAt = at
		}
	}
	return nil
}

func (r *fakeTrackingRepo) copy(doc *models.Tracking) models.Tracking {
	copied := *doc
	copied.LocationHistory = append([]models.LocationPing(nil), doc.LocationHistory...)
	return copied
}

// newTestRedis returns a client pointed at a closed port; every call fails
// fast and the services fall through to their uncached paths.
func newTestRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 10 * time.Millisecond,
	})
}

package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fixly-app/marketplace-service/internal/models"
)

// RequestRepository persists service requests. Every state transition is a
// single conditional update with the expected current status in the filter,
// so two racing callers can never both win.
type RequestRepository interface {
	Create(ctx context.Context, request *models.ServiceRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.ServiceRequest, error)
	GetByCustomer(ctx context.Context, customerID string) ([]models.ServiceRequest, error)
	GetByWorker(ctx context.Context, workerID primitive.ObjectID) ([]models.ServiceRequest, error)
	FindPendingByType(ctx context.Context, serviceType models.ServiceType) ([]models.ServiceRequest, error)
	AcceptPending(ctx context.Context, id, workerID primitive.ObjectID, at time.Time) (*models.ServiceRequest, error)
	StartAccepted(ctx context.Context, id, workerID primitive.ObjectID, at time.Time) (*models.ServiceRequest, error)
	CompleteInProgress(ctx context.Context, id, workerID primitive.ObjectID, at time.Time, actualCost *float64) (*models.ServiceRequest, error)
	Terminate(ctx context.Context, id primitive.ObjectID, to models.RequestStatus, reason string, at time.Time) (*models.ServiceRequest, error)
	SetRating(ctx context.Context, id primitive.ObjectID, direction string, rating int, review string) (*models.ServiceRequest, error)
}

// Rating directions over a completed request.
const (
	RatingByCustomer = "customer"
	RatingByWorker   = "worker"
)

type requestRepository struct {
	collection *mongo.Collection
}

func NewRequestRepository(db *mongo.Database) RequestRepository {
	return &requestRepository{collection: db.Collection("service_requests")}
}

func (r *requestRepository) Create(ctx context.Context, request *models.ServiceRequest) error {
	request.ID = primitive.NewObjectID()
	request.Status = models.RequestStatusPending
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	_, err := r.collection.InsertOne(ctx, request)
	return err
}

func (r *requestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	return &request, err
}

func (r *requestRepository) GetByCustomer(ctx context.Context, customerID string) ([]models.ServiceRequest, error) {
	return r.find(ctx, bson.M{"customer_id": customerID})
}

func (r *requestRepository) GetByWorker(ctx context.Context, workerID primitive.ObjectID) ([]models.ServiceRequest, error) {
	return r.find(ctx, bson.M{"worker_id": workerID})
}

func (r *requestRepository) FindPendingByType(ctx context.Context, serviceType models.ServiceType) ([]models.ServiceRequest, error) {
	return r.find(ctx, bson.M{"service_type": serviceType, "status": models.RequestStatusPending})
}

func (r *requestRepository) find(ctx context.Context, filter bson.M) ([]models.ServiceRequest, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	var requests []models.ServiceRequest
	err = cursor.All(ctx, &requests)
	return requests, err
}

// AcceptPending atomically moves pending -> accepted and assigns the worker.
// Returns ErrNotFound when no document matched; the caller decides whether
// the request is missing or simply no longer pending.
func (r *requestRepository) AcceptPending(ctx context.Context, id, workerID primitive.ObjectID, at time.Time) (*models.ServiceRequest, error) {
	return r.conditionalUpdate(ctx,
		bson.M{"_id": id, "status": models.RequestStatusPending},
		bson.M{"$set": bson.M{
			"status":      models.RequestStatusAccepted,
			"worker_id":   workerID,
			"accepted_at": at,
			"updated_at":  at,
		}},
	)
}

func (r *requestRepository) StartAccepted(ctx context.Context, id, workerID primitive.ObjectID, at time.Time) (*models.ServiceRequest, error) {
	return r.conditionalUpdate(ctx,
		bson.M{"_id": id, "status": models.RequestStatusAccepted, "worker_id": workerID},
		bson.M{"$set": bson.M{
			"status":     models.RequestStatusInProgress,
			"started_at": at,
			"updated_at": at,
		}},
	)
}

func (r *requestRepository) CompleteInProgress(ctx context.Context, id, workerID primitive.ObjectID, at time.Time, actualCost *float64) (*models.ServiceRequest, error) {
	set := bson.M{
		"status":       models.RequestStatusCompleted,
		"completed_at": at,
		"updated_at":   at,
	}
	if actualCost != nil {
		set["actual_cost"] = *actualCost
	}
	return r.conditionalUpdate(ctx,
		bson.M{"_id": id, "status": models.RequestStatusInProgress, "worker_id": workerID},
		bson.M{"$set": set},
	)
}

// Terminate moves a request to rejected or cancelled. Only legal out of
// pending or accepted; in_progress and terminal requests never match.
func (r *requestRepository) Terminate(ctx context.Context, id primitive.ObjectID, to models.RequestStatus, reason string, at time.Time) (*models.ServiceRequest, error) {
	return r.conditionalUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []models.RequestStatus{
			models.RequestStatusPending,
			models.RequestStatusAccepted,
		}}},
		bson.M{"$set": bson.M{
			"status":        to,
			"cancel_reason": reason,
			"cancelled_at":  at,
			"updated_at":    at,
		}},
	)
}

// SetRating writes one direction's rating, guarded on the request being
// completed and that direction still unset.
func (r *requestRepository) SetRating(ctx context.Context, id primitive.ObjectID, direction string, rating int, review string) (*models.ServiceRequest, error) {
	ratingField := "customer_rating"
	reviewField := "customer_review"
	if direction == RatingByWorker {
		ratingField = "worker_rating"
		reviewField = "worker_review"
	}
	return r.conditionalUpdate(ctx,
		bson.M{
			"_id":       id,
			"status":    models.RequestStatusCompleted,
			ratingField: bson.M{"$exists": false},
		},
		bson.M{"$set": bson.M{
			ratingField: rating,
			reviewField: review,
			"updated_at": time.Now(),
		}},
	)
}

func (r *requestRepository) conditionalUpdate(ctx context.Context, filter, update bson.M) (*models.ServiceRequest, error) {
	res := r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	var request models.ServiceRequest
	if err := res.Decode(&request); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

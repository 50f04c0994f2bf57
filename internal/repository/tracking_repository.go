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

// TrackingRepository persists dispatch tracking sessions. The one-live-
// session-per-request invariant is enforced by a partial unique index on
// service_request_id over documents with is_live=true (see EnsureIndexes),
// not by a check-then-create in application code.
type TrackingRepository interface {
	CreateLive(ctx context.Context, tracking *models.Tracking) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Tracking, error)
	GetLiveByRequest(ctx context.Context, requestID primitive.ObjectID) (*models.Tracking, error)
	ListLive(ctx context.Context) ([]models.Tracking, error)
	ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]models.Tracking, error)
	AppendLocation(ctx context.Context, id, workerID primitive.ObjectID, ping models.LocationPing) (*models.Tracking, error)
	UpdateStatus(ctx context.Context, id, workerID primitive.ObjectID, status models.TrackingStatus, at time.Time) (*models.Tracking, error)
	End(ctx context.Context, id, workerID primitive.ObjectID, at time.Time) (*models.Tracking, error)
	EndLiveByRequest(ctx context.Context, requestID primitive.ObjectID, at time.Time) error
}

type trackingRepository struct {
	collection *mongo.Collection
}

func NewTrackingRepository(db *mongo.Database) TrackingRepository {
	return &trackingRepository{collection: db.Collection("trackings")}
}

func (r *trackingRepository) CreateLive(ctx context.Context, tracking *models.Tracking) error {
	tracking.ID = primitive.NewObjectID()
	tracking.IsLive = true
	tracking.StartedAt = time.Now()
	tracking.UpdatedAt = tracking.StartedAt
	_, err := r.collection.InsertOne(ctx, tracking)
	if mongo.IsDuplicateKeyError(err) {
		// another live session already exists for this request
		return models.ErrInvalidState
	}
	return err
}

func (r *trackingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Tracking, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *trackingRepository) GetLiveByRequest(ctx context.Context, requestID primitive.ObjectID) (*models.Tracking, error) {
	return r.findOne(ctx, bson.M{"service_request_id": requestID, "is_live": true})
}

func (r *trackingRepository) findOne(ctx context.Context, filter bson.M) (*models.Tracking, error) {
	var tracking models.Tracking
	err := r.collection.FindOne(ctx, filter).Decode(&tracking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tracking, nil
}

func (r *trackingRepository) ListLive(ctx context.Context) ([]models.Tracking, error) {
	return r.find(ctx, bson.M{"is_live": true})
}

func (r *trackingRepository) ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]models.Tracking, error) {
	return r.find(ctx, bson.M{"service_request_id": requestID})
}

func (r *trackingRepository) find(ctx context.Context, filter bson.M) ([]models.Tracking, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"started_at": -1}))
	if err != nil {
		return nil, err
	}
	var trackings []models.Tracking
	err = cursor.All(ctx, &trackings)
	return trackings, err
}

// AppendLocation pushes one ping onto the history and overwrites the current
// location in the same update, so the two can never diverge.
func (r *trackingRepository) AppendLocation(ctx context.Context, id, workerID primitive.ObjectID, ping models.LocationPing) (*models.Tracking, error) {
	return r.conditionalUpdate(ctx,
		bson.M{"_id": id, "worker_id": workerID, "is_live": true},
		bson.M{
			"$push": bson.M{"location_history": ping},
			"$set": bson.M{
				"current_location": ping,
				"updated_at":       ping.Timestamp,
			},
		},
	)
}

func (r *trackingRepository) UpdateStatus(ctx context.Context, id, workerID primitive.ObjectID, status models.TrackingStatus, at time.Time) (*models.Tracking, error) {
	set := bson.M{"status": status, "updated_at": at}
	if status == models.TrackingStatusCompleted {
		set["is_live"] = false
		set["ended_at"] = at
	}
	return r.conditionalUpdate(ctx,
		bson.M{"_id": id, "worker_id": workerID, "is_live": true},
		bson.M{"$set": set},
	)
}

// End force-closes a session regardless of its current status.
func (r *trackingRepository) End(ctx context.Context, id, workerID primitive.ObjectID, at time.Time) (*models.Tracking, error) {
	return r.conditionalUpdate(ctx,
		bson.M{"_id": id, "worker_id": workerID},
		bson.M{"$set": bson.M{
			"status":     models.TrackingStatusCompleted,
			"is_live":    false,
			"ended_at":   at,
			"updated_at": at,
		}},
	)
}

// EndLiveByRequest closes whatever live session a request still has.
// Used when a request completes; a missing session is not an error.
func (r *trackingRepository) EndLiveByRequest(ctx context.Context, requestID primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"service_request_id": requestID, "is_live": true},
		bson.M{"$set": bson.M{
			"status":     models.TrackingStatusCompleted,
			"is_live":    false,
			"ended_at":   at,
			"updated_at": at,
		}},
	)
	return err
}

func (r *trackingRepository) conditionalUpdate(ctx context.Context, filter, update bson.M) (*models.Tracking, error) {
	res := r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	var tracking models.Tracking
	if err := res.Decode(&tracking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &tracking, nil
}

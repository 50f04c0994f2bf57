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

type WorkerRepository interface {
	Create(ctx context.Context, worker *models.Worker) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Worker, error)
	GetByUserID(ctx context.Context, userID string) (*models.Worker, error)
	Update(ctx context.Context, worker *models.Worker) error
	UpdateLocation(ctx context.Context, id primitive.ObjectID, point models.GeoPoint, address string, at time.Time) error
	SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error
	IncrementCompletedJobs(ctx context.Context, id primitive.ObjectID) error
	ApplyRating(ctx context.Context, id primitive.ObjectID, rating float64, totalReviews int) error
	FindVerifiedAvailable(ctx context.Context, profession models.ServiceType) ([]models.Worker, error)
}

type workerRepository struct {
	collection *mongo.Collection
}

func NewWorkerRepository(db *mongo.Database) WorkerRepository {
	return &workerRepository{collection: db.Collection("workers")}
}

func (r *workerRepository) Create(ctx context.Context, worker *models.Worker) error {
	worker.ID = primitive.NewObjectID()
	worker.CreatedAt = time.Now()
	worker.UpdatedAt = worker.CreatedAt
	_, err := r.collection.InsertOne(ctx, worker)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicate
	}
	return err
}

func (r *workerRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Worker, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *workerRepository) GetByUserID(ctx context.Context, userID string) (*models.Worker, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *workerRepository) findOne(ctx context.Context, filter bson.M) (*models.Worker, error) {
	var worker models.Worker
	err := r.collection.FindOne(ctx, filter).Decode(&worker)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *workerRepository) Update(ctx context.Context, worker *models.Worker) error {
	worker.UpdatedAt = time.Now()
	_, err := r.collection.UpdateByID(ctx, worker.ID, bson.M{"$set": worker})
	return err
}

func (r *workerRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, point models.GeoPoint, address string, at time.Time) error {
	set := bson.M{
		"location":             point,
		"last_location_update": at,
		"updated_at":           at,
	}
	if address != "" {
		set["address"] = address
	}
	_, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": set})
	return err
}

func (r *workerRepository) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"is_available": available,
		"updated_at":   time.Now(),
	}})
	return err
}

func (r *workerRepository) IncrementCompletedJobs(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"completed_jobs": 1},
		"$set": bson.M{"updated_at": time.Now()},
	})
	return err
}

func (r *workerRepository) ApplyRating(ctx context.Context, id primitive.ObjectID, rating float64, totalReviews int) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"rating":        rating,
		"total_reviews": totalReviews,
		"updated_at":    time.Now(),
	}})
	return err
}

// FindVerifiedAvailable returns the workers eligible for public listings.
// An empty profession matches every category.
func (r *workerRepository) FindVerifiedAvailable(ctx context.Context, profession models.ServiceType) ([]models.Worker, error) {
	filter := bson.M{"is_verified": true, "is_available": true}
	if profession != "" {
		filter["profession"] = profession
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"rating": -1}))
	if err != nil {
		return nil, err
	}
	var workers []models.Worker
	err = cursor.All(ctx, &workers)
	return workers, err
}

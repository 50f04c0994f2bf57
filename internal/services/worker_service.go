package services

import (
	"context"
	"fmt"
	"time"

	"fixly-app/marketplace-service/internal/models"
	"fixly-app/marketplace-service/internal/repository"
	"fixly-app/marketplace-service/internal/utils"
)

// WorkerService is the worker directory: profiles, availability, explicit
// location updates and proximity search over verified available workers.
type WorkerService interface {
	Register(ctx context.Context, userID string, input models.RegisterWorkerInput) (*models.Worker, error)
	Get(ctx context.Context, workerID string) (*models.Worker, error)
	GetByUser(ctx context.Context, userID string) (*models.Worker, error)
	UpdateProfile(ctx context.Context, userID string, input models.UpdateWorkerInput) (*models.Worker, error)
	UpdateLocation(ctx context.Context, userID string, input models.WorkerLocationInput) (*models.Worker, error)
	SetAvailability(ctx context.Context, userID string, available bool) (*models.Worker, error)
	SearchNearby(ctx context.Context, origin models.GeoPoint, radiusKm float64, profession models.ServiceType) ([]models.NearbyWorker, error)
}

type workerService struct {
	repo repository.WorkerRepository
}

func NewWorkerService(repo repository.WorkerRepository) WorkerService {
	return &workerService{repo: repo}
}

const defaultServiceAreaKm = 10.0

func (s *workerService) Register(ctx context.Context, userID string, input models.RegisterWorkerInput) (*models.Worker, error) {
	if !utils.IsLocationValid(input.Latitude, input.Longitude) {
		return nil, fmt.Errorf("%w: invalid location coordinates", models.ErrValidation)
	}

	area := input.ServiceAreaKm
	if area == 0 {
		area = defaultServiceAreaKm
	}
	worker := &models.Worker{
		UserID:     userID,
		Profession: input.Profession,
		Location: models.GeoPoint{
			Longitude: input.Longitude,
			Latitude:  input.Latitude,
		},
		Address:       input.Address,
		City:          input.City,
		ServiceAreaKm: area,
	}
	if err := worker.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	if err := s.repo.Create(ctx, worker); err != nil {
		return nil, err
	}
	return worker, nil
}

func (s *workerService) Get(ctx context.Context, workerID string) (*models.Worker, error) {
	id, err := parseObjectID(workerID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *workerService) GetByUser(ctx context.Context, userID string) (*models.Worker, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *workerService) UpdateProfile(ctx context.Context, userID string, input models.UpdateWorkerInput) (*models.Worker, error) {
	worker, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Profession != nil {
		worker.Profession = *input.Profession
	}
	if input.Address != nil {
		worker.Address = *input.Address
	}
	if input.City != nil {
		worker.City = *input.City
	}
	if input.ServiceAreaKm != nil {
		worker.ServiceAreaKm = *input.ServiceAreaKm
	}
	if err := worker.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	if err := s.repo.Update(ctx, worker); err != nil {
		return nil, err
	}
	return worker, nil
}

func (s *workerService) UpdateLocation(ctx context.Context, userID string, input models.WorkerLocationInput) (*models.Worker, error) {
	if !utils.IsLocationValid(input.Latitude, input.Longitude) {
		return nil, fmt.Errorf("%w: invalid location coordinates", models.ErrValidation)
	}
	worker, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	point := models.GeoPoint{Longitude: input.Longitude, Latitude: input.Latitude}
	if err := s.repo.UpdateLocation(ctx, worker.ID, point, input.Address, now); err != nil {
		return nil, err
	}

	worker.Location = point
	if input.Address != "" {
		worker.Address = input.Address
	}
	worker.LastLocationUpdate = &now
	return worker, nil
}

func (s *workerService) SetAvailability(ctx context.Context, userID string, available bool) (*models.Worker, error) {
	worker, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAvailability(ctx, worker.ID, available); err != nil {
		return nil, err
	}
	worker.IsAvailable = available
	return worker, nil
}

// SearchNearby lists verified, available workers within radiusKm of origin.
// A worker who never reported a location matches every search.
func (s *workerService) SearchNearby(ctx context.Context, origin models.GeoPoint, radiusKm float64, profession models.ServiceType) ([]models.NearbyWorker, error) {
	if profession != "" && !models.IsValidServiceType(profession) {
		return nil, fmt.Errorf("%w: unknown profession", models.ErrValidation)
	}
	if radiusKm <= 0 {
		radiusKm = defaultServiceAreaKm
	}

	workers, err := s.repo.FindVerifiedAvailable(ctx, profession)
	if err != nil {
		return nil, err
	}

	nearby := make([]models.NearbyWorker, 0, len(workers))
	for _, worker := range workers {
		if !utils.WithinRadius(origin, worker.Location, radiusKm) {
			continue
		}
		entry := models.NearbyWorker{Worker: worker}
		if !worker.Location.IsUnset() {
			distance := utils.HaversineDistance(origin, worker.Location)
			eta := int(utils.CalculateETA(worker.Location, origin, nearbyAverageSpeedKmh).Minutes())
			entry.DistanceKm = &distance
			entry.ETAMinutes = &eta
		}
		nearby = append(nearby, entry)
	}
	return nearby, nil
}

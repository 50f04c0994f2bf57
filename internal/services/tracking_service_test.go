package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixly-app/marketplace-service/internal/config"
	"fixly-app/marketplace-service/internal/models"
	"fixly-app/marketplace-service/internal/utils"
)

type trackingFixture struct {
	svc       TrackingService
	reqSvc    RequestService
	requests  *fakeRequestRepo
	workers   *fakeWorkerRepo
	trackings *fakeTrackingRepo
}

func newTrackingFixture() *trackingFixture {
	requests := newFakeRequestRepo()
	workers := newFakeWorkerRepo()
	trackings := newFakeTrackingRepo()
	return &trackingFixture{
		svc:       NewTrackingService(trackings, requests, workers, newTestRedis()),
		reqSvc:    NewRequestService(requests, workers, trackings, newTestRedis(), &config.Config{}, utils.NewReviewClient("")),
		requests:  requests,
		workers:   workers,
		trackings: trackings,
	}
}

// acceptedRequest seeds a worker and a request already assigned to them.
func (f *trackingFixture) acceptedRequest(t *testing.T, workerUser string) *models.ServiceRequest {
	t.Helper()
	ctx := context.Background()
	worker := &models.Worker{
		UserID:        workerUser,
		Profession:    models.ServicePlumber,
		Location:      models.GeoPoint{Longitude: 77.60, Latitude: 12.98},
		ServiceAreaKm: 10,
		IsAvailable:   true,
		IsVerified:    true,
	}
	if _, err := f.workers.GetByUserID(ctx, workerUser); err != nil {
		require.NoError(t, f.workers.Create(ctx, worker))
	}
	request, err := f.reqSvc.CreateRequest(ctx, "customer-1", models.CreateRequestInput{
		ServiceType: models.ServicePlumber,
		Title:       "Leaking kitchen sink",
		Longitude:   77.59,
		Latitude:    12.97,
	})
	require.NoError(t, err)
	accepted, err := f.reqSvc.Accept(ctx, request.ID.Hex(), workerUser)
	require.NoError(t, err)
	return accepted
}

func TestTrackingOpen(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	request := f.acceptedRequest(t, "worker-1")

	t.Run("opens for the assigned worker", func(t *testing.T) {
		tracking, err := f.svc.Open(ctx, "worker-1", request.ID.Hex())
		require.NoError(t, err)
		assert.True(t, tracking.IsLive)
		assert.Equal(t, request.ID, tracking.ServiceRequestID)
		assert.Equal(t, models.TrackingStatusEnRoute, tracking.Status)
		assert.Equal(t, request.Location, tracking.Destination)
	})

	t.Run("second live session is refused", func(t *testing.T) {
		_, err := f.svc.Open(ctx, "worker-1", request.ID.Hex())
		assert.ErrorIs(t, err, models.ErrInvalidState)
	})

	t.Run("unassigned worker is refused", func(t *testing.T) {
		other := &models.Worker{UserID: "worker-2", Profession: models.ServicePlumber, ServiceAreaKm: 10}
		require.NoError(t, f.workers.Create(ctx, other))

		fresh := f.acceptedRequest(t, "worker-1")
		_, err := f.svc.Open(ctx, "worker-2", fresh.ID.Hex())
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("pending request is not active", func(t *testing.T) {
		pending, err := f.reqSvc.CreateRequest(ctx, "customer-1", models.CreateRequestInput{
			ServiceType: models.ServicePlumber,
			Title:       "Not assigned yet",
		})
		require.NoError(t, err)
		_, err = f.svc.Open(ctx, "worker-1", pending.ID.Hex())
		assert.Error(t, err)
	})
}

func TestTrackingUpdateLocation(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	request := f.acceptedRequest(t, "worker-1")
	tracking, err := f.svc.Open(ctx, "worker-1", request.ID.Hex())
	require.NoError(t, err)

	pings := []models.TrackingLocationInput{
		{Longitude: 77.595, Latitude: 12.975, Address: "Residency Road"},
		{Longitude: 77.592, Latitude: 12.972},
	}
	for _, ping := range pings {
		tracking, err = f.svc.UpdateLocation(ctx, tracking.ID.Hex(), "worker-1", ping)
		require.NoError(t, err)
	}

	// seed ping plus one per update
	assert.Len(t, tracking.LocationHistory, len(pings)+1)
	assert.Equal(t, 77.592, tracking.CurrentLocation.Location.Longitude)

	t.Run("mirrors onto worker profile", func(t *testing.T) {
		worker, err := f.workers.GetByUserID(ctx, "worker-1")
		require.NoError(t, err)
		assert.Equal(t, 12.972, worker.Location.Latitude)
		assert.NotNil(t, worker.LastLocationUpdate)
	})

	t.Run("foreign worker is refused", func(t *testing.T) {
		other := &models.Worker{UserID: "worker-2", Profession: models.ServicePlumber, ServiceAreaKm: 10}
		require.NoError(t, f.workers.Create(ctx, other))
		_, err := f.svc.UpdateLocation(ctx, tracking.ID.Hex(), "worker-2", pings[0])
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		_, err := f.svc.UpdateLocation(ctx, tracking.ID.Hex(), "worker-1", models.TrackingLocationInput{Latitude: 95, Longitude: 10})
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestTrackingUpdateStatus(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	request := f.acceptedRequest(t, "worker-1")
	tracking, err := f.svc.Open(ctx, "worker-1", request.ID.Hex())
	require.NoError(t, err)

	t.Run("unknown status", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, tracking.ID.Hex(), "worker-1", "teleporting")
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("arrived mirrors the request to in_progress", func(t *testing.T) {
		updated, err := f.svc.UpdateStatus(ctx, tracking.ID.Hex(), "worker-1", models.TrackingStatusArrived)
		require.NoError(t, err)
		assert.Equal(t, models.TrackingStatusArrived, updated.Status)

		mirrored, err := f.requests.GetByID(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusInProgress, mirrored.Status)
	})

	t.Run("arrived again leaves the request alone", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, tracking.ID.Hex(), "worker-1", models.TrackingStatusArrived)
		require.NoError(t, err)
	})

	t.Run("completed closes the session", func(t *testing.T) {
		updated, err := f.svc.UpdateStatus(ctx, tracking.ID.Hex(), "worker-1", models.TrackingStatusCompleted)
		require.NoError(t, err)
		assert.False(t, updated.IsLive)
		assert.NotNil(t, updated.EndedAt)
	})

	t.Run("dead session is a state conflict", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, tracking.ID.Hex(), "worker-1", models.TrackingStatusWorking)
		assert.ErrorIs(t, err, models.ErrInvalidState)
	})
}

func TestTrackingEnd(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	request := f.acceptedRequest(t, "worker-1")
	tracking, err := f.svc.Open(ctx, "worker-1", request.ID.Hex())
	require.NoError(t, err)

	ended, err := f.svc.End(ctx, tracking.ID.Hex(), "worker-1")
	require.NoError(t, err)
	assert.False(t, ended.IsLive)
	assert.Equal(t, models.TrackingStatusCompleted, ended.Status)
	assert.NotNil(t, ended.EndedAt)
}

func TestTrackingGetByRequestAndHistory(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	request := f.acceptedRequest(t, "worker-1")
	tracking, err := f.svc.Open(ctx, "worker-1", request.ID.Hex())
	require.NoError(t, err)

	t.Run("customer sees the live session", func(t *testing.T) {
		got, err := f.svc.GetByRequest(ctx, request.ID.Hex(), "customer-1")
		require.NoError(t, err)
		assert.Equal(t, tracking.ID, got.ID)
	})

	t.Run("assigned worker sees it too", func(t *testing.T) {
		_, err := f.svc.GetByRequest(ctx, request.ID.Hex(), "worker-1")
		assert.NoError(t, err)
	})

	t.Run("stranger is refused", func(t *testing.T) {
		_, err := f.svc.GetByRequest(ctx, request.ID.Hex(), "somebody-else")
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("falls back to ended sessions", func(t *testing.T) {
		_, err := f.svc.End(ctx, tracking.ID.Hex(), "worker-1")
		require.NoError(t, err)

		got, err := f.svc.GetByRequest(ctx, request.ID.Hex(), "customer-1")
		require.NoError(t, err)
		assert.False(t, got.IsLive)
	})

	t.Run("history lists every session", func(t *testing.T) {
		sessions, err := f.svc.History(ctx, request.ID.Hex(), "customer-1")
		require.NoError(t, err)
		assert.Len(t, sessions, 1)
	})
}

func TestTrackingListLive(t *testing.T) {
	f := newTrackingFixture()
	ctx := context.Background()

	first := f.acceptedRequest(t, "worker-1")
	second := f.acceptedRequest(t, "worker-1")

	_, err := f.svc.Open(ctx, "worker-1", first.ID.Hex())
	require.NoError(t, err)
	opened, err := f.svc.Open(ctx, "worker-1", second.ID.Hex())
	require.NoError(t, err)

	live, err := f.svc.ListLive(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 2)

	_, err = f.svc.End(ctx, opened.ID.Hex(), "worker-1")
	require.NoError(t, err)

	live, err = f.svc.ListLive(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

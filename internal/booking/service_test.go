package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gridee/internal/apiclient"
	"gridee/internal/config"
	"gridee/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := zerolog.Nop()
	client := apiclient.New(config.BackendConfig{
		BaseURL:         server.URL,
		RequestTimeout:  5,
		ResourceTimeout: 10,
	}, &logger)
	return NewService(client, &logger)
}

func TestCreateEchoesServerRecord(t *testing.T) {
	var gotBody map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/bookings/u1/create", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Booking{
			ID: "b1", UserID: "u1", LotID: "lot1", SpotID: "sp1",
			Status: models.StatusPending, Amount: 40,
		})
	})
	svc := newTestService(t, handler)

	start := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	booking, err := svc.Create(context.Background(), CreateRequest{
		UserID: "u1", LotID: "lot1", SpotID: "sp1",
		StartTime: start, EndTime: start.Add(2 * time.Hour),
		VehicleNumber: "KA01AB1234",
	})
	require.NoError(t, err)

	// The server record is authoritative; nothing is rewritten locally.
	assert.Equal(t, "b1", booking.ID)
	assert.True(t, booking.IsPending())

	// The backend reads the window from checkInTime/checkOutTime.
	assert.Equal(t, "2026-08-28T10:00:00Z", gotBody["checkInTime"])
	assert.Equal(t, "2026-08-28T12:00:00Z", gotBody["checkOutTime"])
	assert.Equal(t, "KA01AB1234", gotBody["vehicleNumber"])
	assert.NotContains(t, gotBody, "startTime")
	assert.NotContains(t, gotBody, "endTime")
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t, http.NotFoundHandler())
	start := time.Now()

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"missing user", CreateRequest{LotID: "l", SpotID: "s", StartTime: start, EndTime: start.Add(time.Hour)}},
		{"missing lot", CreateRequest{UserID: "u", SpotID: "s", StartTime: start, EndTime: start.Add(time.Hour)}},
		{"missing spot", CreateRequest{UserID: "u", LotID: "l", StartTime: start, EndTime: start.Add(time.Hour)}},
		{"zero times", CreateRequest{UserID: "u", LotID: "l", SpotID: "s"}},
		{"inverted window", CreateRequest{UserID: "u", LotID: "l", SpotID: "s", StartTime: start.Add(time.Hour), EndTime: start}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			assert.Error(t, err)
		})
	}
}

func TestAvailableSpotsPostsWindowInBody(t *testing.T) {
	var gotBody map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/parking-spots/available", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode([]models.ParkingSpot{
			{ID: "sp1", LotID: "lot1", ZoneName: "A", Capacity: 10, Available: 3, Status: "AVAILABLE"},
		})
	})
	svc := newTestService(t, handler)

	start := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	spots, err := svc.AvailableSpots(context.Background(), "lot1", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, spots, 1)
	assert.True(t, spots[0].IsAvailable())
	assert.Equal(t, "lot1", gotBody["lotId"])
	assert.Equal(t, "2026-08-28T10:00:00Z", gotBody["startTime"])
}

func TestLotsByNamesEncodesQuery(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/parking-lots/list/by-names", r.URL.Path)
		assert.Equal(t, "MG Road,Airport T2", r.URL.Query().Get("names"))
		assert.Empty(t, r.Header.Get("Authorization")) // public endpoint
		json.NewEncoder(w).Encode([]models.ParkingLot{{ID: "lot1", Name: "MG Road"}})
	})
	svc := newTestService(t, handler)

	lots, err := svc.LotsByNames(context.Background(), []string{"MG Road", "Airport T2"})
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "MG Road", lots[0].Name)
}

func TestGateTransitions(t *testing.T) {
	var gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		status := models.StatusActive
		if r.URL.Path[len(r.URL.Path)-8:] == "checkout" {
			status = models.StatusCompleted
		}
		json.NewEncoder(w).Encode(models.Booking{ID: "b1", Status: status})
	})
	svc := newTestService(t, handler)
	ctx := context.Background()

	booking, err := svc.CheckIn(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, "/users/u1/bookings/b1/checkin", gotPath)
	assert.True(t, booking.IsActive())

	booking, err = svc.CheckOut(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, "/users/u1/bookings/b1/checkout", gotPath)
	assert.True(t, booking.IsCompleted())

	t.Run("missing ids", func(t *testing.T) {
		_, err := svc.CheckIn(ctx, "", "b1")
		assert.Error(t, err)
		_, err = svc.CheckOut(ctx, "u1", "")
		assert.Error(t, err)
	})
}

func TestValidateCheckInSurfacesPenalty(t *testing.T) {
	penalty := 15.0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/u1/bookings/b1/validate-checkin", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(models.QRValidationResult{
			Valid: true, Message: "Late arrival penalty applies", Penalty: &penalty,
		})
	})
	svc := newTestService(t, handler)

	result, err := svc.ValidateCheckIn(context.Background(), "u1", "b1")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.NotNil(t, result.Penalty)
	assert.Equal(t, 15.0, *result.Penalty)
}

func TestCancelAndExtend(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(models.Booking{ID: "b1", Status: models.StatusCancelled})
	})
	svc := newTestService(t, handler)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, "/bookings/u1/b1/cancel", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)

	end := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	_, err = svc.Extend(ctx, "u1", "b1", end)
	require.NoError(t, err)
	assert.Equal(t, "/bookings/u1/b1/extend", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "2026-08-28T14:00:00Z", gotBody["newCheckOutTime"])

	t.Run("missing ids", func(t *testing.T) {
		_, err := svc.Cancel(ctx, "", "b1")
		assert.Error(t, err)
		_, err = svc.Extend(ctx, "u1", "", end)
		assert.Error(t, err)
	})
}

func TestGetScopesToOwner(t *testing.T) {
	var gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(models.Booking{ID: "b1", Status: models.StatusPending})
	})
	svc := newTestService(t, handler)

	_, err := svc.Get(context.Background(), "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, "/bookings/u1/b1", gotPath)

	_, err = svc.Get(context.Background(), "", "b1")
	assert.Error(t, err)
}

func TestListAndHistoryPaths(t *testing.T) {
	var gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode([]models.Booking{{ID: "b1"}})
	})
	svc := newTestService(t, handler)
	ctx := context.Background()

	_, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "/bookings/u1/all", gotPath)

	_, err = svc.History(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "/bookings/u1/all/history", gotPath)
}

func TestNotFoundMapsToServerError(t *testing.T) {
	svc := newTestService(t, http.NotFoundHandler())

	_, err := svc.Get(context.Background(), "u1", "missing")
	require.Error(t, err)
	assert.Equal(t, apiclient.KindServer, apiclient.KindOf(err))
	assert.Equal(t, http.StatusNotFound, apiclient.StatusOf(err))
}

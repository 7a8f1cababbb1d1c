// Package booking wraps the parking booking endpoints. The service is
// a thin typed layer over the API client: it validates inputs, shapes
// payloads and returns decoded models, but holds no state of its own.
package booking

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gridee/internal/apiclient"
	"gridee/internal/models"

	"github.com/rs/zerolog"
)

type Service struct {
	client *apiclient.Client
	logger *zerolog.Logger
}

func NewService(client *apiclient.Client, logger *zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// CreateRequest is the new-booking payload. Times go out as RFC 3339.
type CreateRequest struct {
	UserID        string
	LotID         string
	SpotID        string
	StartTime     time.Time
	EndTime       time.Time
	VehicleNumber string
}

func (r CreateRequest) validate() error {
	switch {
	case r.UserID == "":
		return fmt.Errorf("user id is required")
	case r.LotID == "":
		return fmt.Errorf("lot id is required")
	case r.SpotID == "":
		return fmt.Errorf("spot id is required")
	case r.StartTime.IsZero() || r.EndTime.IsZero():
		return fmt.Errorf("start and end time are required")
	case !r.EndTime.After(r.StartTime):
		return fmt.Errorf("end time must be after start time")
	}
	return nil
}

// Create books a spot. The server-assigned record comes back as-is;
// status is whatever the backend says, normally PENDING.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Booking, error) {
	if err := req.validate(); err != nil {
		return models.Booking{}, err
	}
	body := map[string]string{
		"lotId":         req.LotID,
		"spotId":        req.SpotID,
		"checkInTime":   req.StartTime.Format(time.RFC3339),
		"checkOutTime":  req.EndTime.Format(time.RFC3339),
		"vehicleNumber": req.VehicleNumber,
	}
	booking, err := apiclient.DoJSON[models.Booking](ctx, s.client, http.MethodPost, "/bookings/"+req.UserID+"/create", body)
	if err != nil {
		return models.Booking{}, err
	}
	s.logger.Info().Str("booking_id", booking.ID).Str("status", booking.Status).Msg("booking created")
	return booking, nil
}

// Get fetches a single booking. The record is scoped to its owner on
// the backend, so both ids are required.
func (s *Service) Get(ctx context.Context, userID, bookingID string) (models.Booking, error) {
	if userID == "" || bookingID == "" {
		return models.Booking{}, fmt.Errorf("user id and booking id are required")
	}
	return apiclient.DoJSON[models.Booking](ctx, s.client, http.MethodGet, "/bookings/"+userID+"/"+bookingID, nil)
}

// List returns a user's current bookings.
func (s *Service) List(ctx context.Context, userID string) ([]models.Booking, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return apiclient.DoJSON[[]models.Booking](ctx, s.client, http.MethodGet, "/bookings/"+userID+"/all", nil)
}

// History returns a user's past bookings, newest first per the backend.
func (s *Service) History(ctx context.Context, userID string) ([]models.Booking, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return apiclient.DoJSON[[]models.Booking](ctx, s.client, http.MethodGet, "/bookings/"+userID+"/all/history", nil)
}

// Cancel marks a booking cancelled server-side.
func (s *Service) Cancel(ctx context.Context, userID, bookingID string) (models.Booking, error) {
	if userID == "" || bookingID == "" {
		return models.Booking{}, fmt.Errorf("user id and booking id are required")
	}
	return apiclient.DoJSON[models.Booking](ctx, s.client, http.MethodPost, "/bookings/"+userID+"/"+bookingID+"/cancel", nil)
}

// Extend moves the booking checkout time forward.
func (s *Service) Extend(ctx context.Context, userID, bookingID string, newCheckOutTime time.Time) (models.Booking, error) {
	if userID == "" || bookingID == "" {
		return models.Booking{}, fmt.Errorf("user id and booking id are required")
	}
	if newCheckOutTime.IsZero() {
		return models.Booking{}, fmt.Errorf("new checkout time is required")
	}
	body := map[string]string{"newCheckOutTime": newCheckOutTime.Format(time.RFC3339)}
	return apiclient.DoJSON[models.Booking](ctx, s.client, http.MethodPut, "/bookings/"+userID+"/"+bookingID+"/extend", body)
}

// Confirm acknowledges a pending booking after payment settles.
func (s *Service) Confirm(ctx context.Context, id string) (models.Booking, error) {
	if id == "" {
		return models.Booking{}, fmt.Errorf("booking id is required")
	}
	return apiclient.DoJSON[models.Booking](ctx, s.client, http.MethodPost, "/bookings/"+id+"/confirm", nil)
}

// Delete removes a booking record entirely.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("booking id is required")
	}
	_, err := s.client.Do(ctx, http.MethodDelete, "/bookings/"+id, nil)
	return err
}

// UpdateStatus is the operator-side status override.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (models.Booking, error) {
	if id == "" {
		return models.Booking{}, fmt.Errorf("booking id is required")
	}
	if status == "" {
		return models.Booking{}, fmt.Errorf("status is required")
	}
	body := map[string]string{"status": strings.ToUpper(status)}
	return apiclient.DoJSON[models.Booking](ctx, s.client, http.MethodPut, "/bookings/"+id+"/status", body)
}

// PenaltyInfo reports late check-in/check-out charges for a booking.
func (s *Service) PenaltyInfo(ctx context.Context, id string) (models.QRValidationResult, error) {
	if id == "" {
		return models.QRValidationResult{}, fmt.Errorf("booking id is required")
	}
	return apiclient.DoJSON[models.QRValidationResult](ctx, s.client, http.MethodGet, "/bookings/"+id+"/penalty", nil)
}

// AvailableSpots queries free spots in a lot for a time window. The
// backend expects the window in the POST body, not the query string.
func (s *Service) AvailableSpots(ctx context.Context, lotID string, start, end time.Time) ([]models.ParkingSpot, error) {
	if lotID == "" {
		return nil, fmt.Errorf("lot id is required")
	}
	body := map[string]string{
		"lotId":     lotID,
		"startTime": start.Format(time.RFC3339),
		"endTime":   end.Format(time.RFC3339),
	}
	return apiclient.DoJSON[[]models.ParkingSpot](ctx, s.client, http.MethodPost, "/parking-spots/available", body)
}

// Spots lists parking spots regardless of availability, optionally
// filtered to one lot.
func (s *Service) Spots(ctx context.Context, lotID string) ([]models.ParkingSpot, error) {
	endpoint := "/parking-spots"
	if lotID != "" {
		endpoint += "?lotId=" + url.QueryEscape(lotID)
	}
	return apiclient.DoJSON[[]models.ParkingSpot](ctx, s.client, http.MethodGet, endpoint, nil)
}

// Lots lists every parking lot. Public, works signed out.
func (s *Service) Lots(ctx context.Context) ([]models.ParkingLot, error) {
	return apiclient.DoJSON[[]models.ParkingLot](ctx, s.client, http.MethodGet, "/parking-lots", nil)
}

// LotsByNames resolves lot names to records. Public, used on the
// registration screen before any session exists.
func (s *Service) LotsByNames(ctx context.Context, names []string) ([]models.ParkingLot, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one lot name is required")
	}
	endpoint := "/parking-lots/list/by-names?names=" + url.QueryEscape(strings.Join(names, ","))
	return apiclient.DoJSON[[]models.ParkingLot](ctx, s.client, http.MethodGet, endpoint, nil)
}

// ValidateCheckIn asks the backend whether a check-in would be
// accepted right now, including any early-arrival penalty.
func (s *Service) ValidateCheckIn(ctx context.Context, userID, bookingID string) (models.QRValidationResult, error) {
	return s.validate(ctx, userID, bookingID, "validate-checkin")
}

// ValidateCheckOut mirrors ValidateCheckIn for the exit gate.
func (s *Service) ValidateCheckOut(ctx context.Context, userID, bookingID string) (models.QRValidationResult, error) {
	return s.validate(ctx, userID, bookingID, "validate-checkout")
}

func (s *Service) validate(ctx context.Context, userID, bookingID, action string) (models.QRValidationResult, error) {
	if userID == "" || bookingID == "" {
		return models.QRValidationResult{}, fmt.Errorf("user id and booking id are required")
	}
	endpoint := "/users/" + userID + "/bookings/" + bookingID + "/" + action
	return apiclient.DoJSON[models.QRValidationResult](ctx, s.client, http.MethodGet, endpoint, nil)
}

// CheckIn activates a pending booking at the gate.
func (s *Service) CheckIn(ctx context.Context, userID, bookingID string) (models.Booking, error) {
	return s.transition(ctx, userID, bookingID, "checkin")
}

// CheckOut completes an active booking at the exit.
func (s *Service) CheckOut(ctx context.Context, userID, bookingID string) (models.Booking, error) {
	return s.transition(ctx, userID, bookingID, "checkout")
}

func (s *Service) transition(ctx context.Context, userID, bookingID, action string) (models.Booking, error) {
	if userID == "" || bookingID == "" {
		return models.Booking{}, fmt.Errorf("user id and booking id are required")
	}
	endpoint := "/users/" + userID + "/bookings/" + bookingID + "/" + action
	booking, err := apiclient.DoJSON[models.Booking](ctx, s.client, http.MethodPost, endpoint, nil)
	if err != nil {
		return models.Booking{}, err
	}
	s.logger.Info().Str("booking_id", bookingID).Str("action", action).Str("status", booking.Status).Msg("gate transition")
	return booking, nil
}

// Package qrscan turns raw scanner frames into gate actions. The
// orchestrator owns the debounce window and the local state guards;
// the backend still has the final say through the booking service.
package qrscan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gridee/internal/metrics"
	"gridee/internal/models"

	"github.com/rs/zerolog"
)

// State is the scan lifecycle position. Every scan ends back at Idle.
type State int

const (
	Idle State = iota
	Scanned
	Determining
	CheckInReady
	CheckOutReady
	Failed
)

func (s State) String() string {
	switch s {
	case Scanned:
		return "scanned"
	case Determining:
		return "determining"
	case CheckInReady:
		return "check_in_ready"
	case CheckOutReady:
		return "check_out_ready"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Action is what the gate should do for a scanned booking.
type Action string

const (
	ActionCheckIn  Action = "check-in"
	ActionCheckOut Action = "check-out"
)

// Result is the outcome of one accepted scan.
type Result struct {
	Action  Action
	Booking models.Booking
}

// BookingLookup fetches the booking a QR payload points at, scoped to
// the scanning user. Satisfied by *booking.Service.
type BookingLookup interface {
	Get(ctx context.Context, userID, bookingID string) (models.Booking, error)
}

// Gate performs the actual transition. Satisfied by *booking.Service.
type Gate interface {
	CheckIn(ctx context.Context, userID, bookingID string) (models.Booking, error)
	CheckOut(ctx context.Context, userID, bookingID string) (models.Booking, error)
}

// Orchestrator serializes scans and suppresses rapid duplicates.
// Scanner hardware emits the same frame many times per second; only
// the first frame inside the debounce window is acted on.
type Orchestrator struct {
	lookup BookingLookup
	gate   Gate
	logger *zerolog.Logger
	now    func() time.Time

	mu           sync.Mutex
	state        State
	lastPayload  string
	lastScanTime time.Time
}

func NewOrchestrator(lookup BookingLookup, gate Gate, logger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		lookup: lookup,
		gate:   gate,
		logger: logger,
		now:    time.Now,
	}
}

// State returns the current scan lifecycle position.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Reset returns the orchestrator to Idle and clears the debounce
// window, so the next identical frame is treated as a fresh scan.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Idle
	o.lastPayload = ""
	o.lastScanTime = time.Time{}
}

// ErrDuplicateScan marks a frame suppressed by the debounce window.
var ErrDuplicateScan = fmt.Errorf("duplicate scan ignored")

// accept applies the debounce check and claims the scan slot.
func (o *Orchestrator) accept(raw string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	if raw == o.lastPayload && now.Sub(o.lastScanTime) < models.ScanDebounceWindow {
		return ErrDuplicateScan
	}
	if o.state == Determining {
		return fmt.Errorf("scan already in progress")
	}
	o.lastPayload = raw
	o.lastScanTime = now
	o.state = Scanned
	return nil
}

func (o *Orchestrator) finish(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// HandleScan processes one raw scanner frame for the signed-in user.
// A PENDING booking checks in, an ACTIVE one checks out; anything
// else is refused locally without touching the gate endpoint.
func (o *Orchestrator) HandleScan(ctx context.Context, userID, raw string) (Result, error) {
	if err := o.accept(raw); err != nil {
		return Result{}, err
	}

	payload, err := models.DecodeQRPayload(raw)
	if err != nil {
		o.finish(Failed)
		metrics.IncScanDecision("rejected")
		o.logger.Warn().Err(err).Msg("unrecognized qr payload")
		return Result{}, err
	}

	o.finish(Determining)

	booking, err := o.lookup.Get(ctx, userID, payload.BookingID)
	if err != nil {
		o.finish(Failed)
		metrics.IncScanDecision("lookup_failed")
		return Result{}, err
	}

	// qrCodeScanned flips on the first gate pass, so it decides the
	// direction: unscanned means entry, scanned means exit.
	if !booking.QRCodeScanned {
		return o.checkIn(ctx, userID, booking)
	}
	return o.checkOut(ctx, userID, booking)
}

func (o *Orchestrator) checkIn(ctx context.Context, userID string, booking models.Booking) (Result, error) {
	if !booking.IsPending() {
		o.finish(Failed)
		metrics.IncScanDecision("rejected")
		return Result{}, fmt.Errorf("booking %s is %s, only a pending booking can check in", booking.ID, booking.Status)
	}
	o.finish(CheckInReady)

	updated, err := o.gate.CheckIn(ctx, userID, booking.ID)
	if err != nil {
		o.finish(Failed)
		metrics.IncScanDecision("check_in_failed")
		return Result{}, err
	}
	o.finish(Idle)
	metrics.IncScanDecision("check_in")
	o.logger.Info().Str("booking_id", booking.ID).Msg("checked in")
	return Result{Action: ActionCheckIn, Booking: updated}, nil
}

func (o *Orchestrator) checkOut(ctx context.Context, userID string, booking models.Booking) (Result, error) {
	if !booking.IsActive() {
		o.finish(Failed)
		metrics.IncScanDecision("rejected")
		return Result{}, fmt.Errorf("booking %s is %s, only an active booking can check out", booking.ID, booking.Status)
	}
	o.finish(CheckOutReady)

	updated, err := o.gate.CheckOut(ctx, userID, booking.ID)
	if err != nil {
		o.finish(Failed)
		metrics.IncScanDecision("check_out_failed")
		return Result{}, err
	}
	o.finish(Idle)
	metrics.IncScanDecision("check_out")
	o.logger.Info().Str("booking_id", booking.ID).Msg("checked out")
	return Result{Action: ActionCheckOut, Booking: updated}, nil
}

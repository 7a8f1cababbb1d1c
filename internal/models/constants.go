package models

import "time"

const (
	StatusPending   = "PENDING"
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// QRPayloadType is the marker field identifying a scannable
// parking-session code.
const QRPayloadType = "gridee_parking"

const (
	// ScanDebounceWindow is how long an identical scanned payload is
	// ignored after the previous one. A code held in front of the
	// camera fires the detector continuously; without this a single
	// physical scan would trigger several determinations.
	ScanDebounceWindow = 3 * time.Second

	// DefaultRequestTimeout bounds a single request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultResourceTimeout bounds the full transfer including body.
	DefaultResourceTimeout = 60 * time.Second
)

const (
	// MinTopUpAmount and MaxTopUpAmount bound a wallet top-up in
	// display currency units. Enforced by the caller before the
	// payment flow starts; the wallet endpoint itself trusts its input.
	MinTopUpAmount = 10
	MaxTopUpAmount = 100000
)

// Persisted credential-store keys.
const (
	KeyAuthenticated = "authenticated"
	KeyToken         = "token"
	KeyRole          = "role"
	KeyProfile       = "profile"
	KeyUserID        = "user_id"
)

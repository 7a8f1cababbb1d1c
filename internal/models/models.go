package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of backend roles. Unknown strings are an
// error rather than a silent USER default, so contract drift on the
// backend side is caught at login time.
type Role string

const (
	RoleUser     Role = "USER"
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
)

// ParseRole normalizes and validates a backend role string.
// An empty string means the backend omitted the field and maps to USER.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "USER":
		return RoleUser, nil
	case "ADMIN":
		return RoleAdmin, nil
	case "OPERATOR":
		return RoleOperator, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// User mirrors the backend user object.
type User struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	VehicleNumbers []string `json:"vehicleNumbers"`
	WalletCoins    float64  `json:"walletCoins"`
	Role           string   `json:"role"`
	ParkingLotID   string   `json:"parkingLotId"`
	ParkingLotName string   `json:"parkingLotName"`
	Active         bool     `json:"active"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	UpdatedAt      string   `json:"updatedAt,omitempty"`
}

// Session is the client-held record of the authenticated user. Token
// and role are the only values whose authoritative copy lives on the
// client; everything else is a display cache.
type Session struct {
	UserID         string   `json:"userId"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Role           Role     `json:"role"`
	Token          string   `json:"token"`
	ParkingLotID   string   `json:"parkingLotId"`
	ParkingLotName string   `json:"parkingLotName"`
	VehicleNumbers []string `json:"vehicleNumbers"`
}

// HasVehicle reports whether number is already registered, case-sensitive.
func (s *Session) HasVehicle(number string) bool {
	for _, v := range s.VehicleNumbers {
		if v == number {
			return true
		}
	}
	return false
}

// LoginResponse is the body of POST /auth/login and the OAuth variant.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Booking lifecycle is owned by the backend; the client only reflects
// the returned object and never computes a status transition locally.
type Booking struct {
	ID                string  `json:"id"`
	UserID            string  `json:"userId"`
	LotID             string  `json:"lotId"`
	SpotID            string  `json:"spotId"`
	Status            string  `json:"status"`
	Amount            float64 `json:"amount"`
	QRCode            string  `json:"qrCode,omitempty"`
	CheckInTime       string  `json:"checkInTime,omitempty"`
	CheckOutTime      string  `json:"checkOutTime,omitempty"`
	CreatedAt         string  `json:"createdAt,omitempty"`
	VehicleNumber     string  `json:"vehicleNumber,omitempty"`
	QRCodeScanned     bool    `json:"qrCodeScanned"`
	ActualCheckInTime string  `json:"actualCheckInTime,omitempty"`
	AutoCompleted     bool    `json:"autoCompleted,omitempty"`
}

func (b Booking) IsPending() bool   { return strings.EqualFold(b.Status, StatusPending) }
func (b Booking) IsActive() bool    { return strings.EqualFold(b.Status, StatusActive) }
func (b Booking) IsCompleted() bool { return strings.EqualFold(b.Status, StatusCompleted) }
func (b Booking) IsCancelled() bool { return strings.EqualFold(b.Status, StatusCancelled) }

// TotalHours derives the booked window length for display. Returns 1
// when either bound is missing or malformed, matching how the backend
// bills a minimum of one hour.
func (b Booking) TotalHours() float64 {
	in, err := time.Parse(time.RFC3339, b.CheckInTime)
	if err != nil {
		return 1
	}
	out, err := time.Parse(time.RFC3339, b.CheckOutTime)
	if err != nil {
		return 1
	}
	h := out.Sub(in).Hours()
	if h <= 0 {
		return 1
	}
	return h
}

// ParkingSpot describes a zone within a lot.
type ParkingSpot struct {
	ID                  string  `json:"id"`
	LotID               string  `json:"lotId"`
	ZoneName            string  `json:"zoneName"`
	Capacity            int     `json:"capacity"`
	Available           int     `json:"available"`
	Status              string  `json:"status"`
	BookingRate         float64 `json:"bookingRate"`
	CheckInPenaltyRate  float64 `json:"checkInPenaltyRate"`
	CheckOutPenaltyRate float64 `json:"checkOutPenaltyRate"`
	Description         string  `json:"description,omitempty"`
}

// IsAvailable reports whether at least one space is free.
func (p ParkingSpot) IsAvailable() bool { return p.Available > 0 }

// ParkingLot is the public lot listing entry.
type ParkingLot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Wallet balance is refreshed by re-fetch only, never adjusted locally.
type Wallet struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Balance     float64 `json:"balance"`
	LastUpdated string  `json:"lastUpdated,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

// Transaction amount is signed: positive credits, negative debits.
type Transaction struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Status      string  `json:"status"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
	Timestamp   string  `json:"timestamp"`
}

// QRPayload is the JSON carried by a scannable parking-session code.
// Type must equal QRPayloadType or the payload is not ours.
type QRPayload struct {
	BookingID string `json:"bookingId"`
	Type      string `json:"type"`
}

// DecodeQRPayload parses a scanned string and rejects anything that is
// not a Gridee parking code.
func DecodeQRPayload(raw string) (QRPayload, error) {
	var p QRPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return QRPayload{}, fmt.Errorf("qr payload is not valid JSON: %w", err)
	}
	if p.Type != QRPayloadType {
		return QRPayload{}, fmt.Errorf("qr payload type %q is not a parking code", p.Type)
	}
	if p.BookingID == "" {
		return QRPayload{}, fmt.Errorf("qr payload missing bookingId")
	}
	return p, nil
}

// QRValidationResult is produced per scan and never persisted.
type QRValidationResult struct {
	Valid   bool     `json:"valid"`
	Message string   `json:"message,omitempty"`
	Penalty *float64 `json:"penalty,omitempty"`
}

// Package credstore persists the session (token, role, cached profile)
// across process restarts. Backends: plain file, redis, or failover.
//
// Values are stored unencrypted, matching the deployment this client
// talks to. Anything with access to the store path or redis instance
// can read the bearer token.
package credstore

import (
	"context"
	"encoding/json"

	"gridee/internal/models"
)

// Store is the durable credential store. Load returns (nil, nil) when
// no session is persisted; Clear is idempotent.
type Store interface {
	Save(ctx context.Context, session *models.Session) error
	Load(ctx context.Context) (*models.Session, error)
	Clear(ctx context.Context) error
}

// record is the persisted shape. Profile is kept as a raw JSON string
// written independently of the discrete fields, so a corrupt profile
// still loads as a signed-in session with token but empty profile.
type record struct {
	Authenticated bool   `json:"authenticated"`
	Token         string `json:"token"`
	Role          string `json:"role"`
	UserID        string `json:"user_id"`
	Profile       string `json:"profile"`
}

func recordFromSession(s *models.Session) record {
	profile, _ := json.Marshal(models.User{
		ID:             s.UserID,
		Name:           s.Name,
		Email:          s.Email,
		Phone:          s.Phone,
		VehicleNumbers: s.VehicleNumbers,
		Role:           string(s.Role),
		ParkingLotID:   s.ParkingLotID,
		ParkingLotName: s.ParkingLotName,
	})
	return record{
		Authenticated: true,
		Token:         s.Token,
		Role:          string(s.Role),
		UserID:        s.UserID,
		Profile:       string(profile),
	}
}

// session reconstructs a Session from a record. Returns nil when the
// record does not describe a signed-in session.
func (r record) session() *models.Session {
	if !r.Authenticated || r.Token == "" {
		return nil
	}

	role, err := models.ParseRole(r.Role)
	if err != nil {
		// Corrupt store degrades to the least-privileged role.
		role = models.RoleUser
	}

	s := &models.Session{
		UserID: r.UserID,
		Role:   role,
		Token:  r.Token,
	}

	var profile models.User
	if err := json.Unmarshal([]byte(r.Profile), &profile); err == nil {
		s.Name = profile.Name
		s.Email = profile.Email
		s.Phone = profile.Phone
		s.ParkingLotID = profile.ParkingLotID
		s.ParkingLotName = profile.ParkingLotName
		s.VehicleNumbers = profile.VehicleNumbers
		if s.UserID == "" {
			s.UserID = profile.ID
		}
	}

	return s
}

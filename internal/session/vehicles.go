package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"gridee/internal/apiclient"
)

// AddVehicle records a plate number locally and persists the session.
// The backend copy is not updated; use AddVehiclesSynced for that.
func (m *Manager) AddVehicle(ctx context.Context, number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return fmt.Errorf("vehicle number is required")
	}

	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return fmt.Errorf("not signed in")
	}
	if m.session.HasVehicle(number) {
		m.mu.Unlock()
		return nil
	}
	m.session.VehicleNumbers = append(m.session.VehicleNumbers, number)
	snapshot := *m.session
	m.mu.Unlock()

	return m.store.Save(ctx, &snapshot)
}

// RemoveVehicle drops a plate number from the local session.
func (m *Manager) RemoveVehicle(ctx context.Context, number string) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return fmt.Errorf("not signed in")
	}
	kept := m.session.VehicleNumbers[:0]
	for _, v := range m.session.VehicleNumbers {
		if v != number {
			kept = append(kept, v)
		}
	}
	m.session.VehicleNumbers = kept
	snapshot := *m.session
	m.mu.Unlock()

	return m.store.Save(ctx, &snapshot)
}

// AddVehiclesSynced pushes plate numbers to the backend and commits
// them locally only after the server accepts.
func (m *Manager) AddVehiclesSynced(ctx context.Context, numbers []string) error {
	cleaned := make([]string, 0, len(numbers))
	for _, n := range numbers {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		return fmt.Errorf("at least one vehicle number is required")
	}

	current, ok := m.Current()
	if !ok {
		return fmt.Errorf("not signed in")
	}
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	endpoint := "/users/" + current.UserID + "/add-vehicles"
	user, err := apiclient.DoJSON[struct {
		VehicleNumbers []string `json:"vehicleNumbers"`
	}](ctx, m.client, http.MethodPut, endpoint, map[string][]string{
		"vehicleNumbers": cleaned,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.generation != gen || m.session == nil {
		m.mu.Unlock()
		return nil
	}
	m.session.VehicleNumbers = user.VehicleNumbers
	snapshot := *m.session
	m.mu.Unlock()

	if err := m.store.Save(ctx, &snapshot); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist synced vehicles")
	}
	return nil
}

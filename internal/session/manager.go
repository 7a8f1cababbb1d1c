// Package session owns the authentication state machine and the
// client-held session record. All mutation goes through the Manager,
// which is safe for concurrent use; the original single-threaded
// client relied on its UI loop for that.
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"gridee/internal/apiclient"
	"gridee/internal/credstore"
	"gridee/internal/models"

	"github.com/rs/zerolog"
)

// State is the authentication lifecycle position.
type State int

const (
	SignedOut State = iota
	Authenticating
	SignedIn
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case SignedIn:
		return "signed_in"
	default:
		return "signed_out"
	}
}

// AuthError carries the user-facing message for a failed auth call.
// Raw backend bodies never appear here.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

// User-facing auth failure texts. The wrong-credentials text is load
// bearing: callers display it verbatim.
const (
	msgWrongCredentials = "Wrong email or password"
	msgTimeout          = "Request timed out. Please try again."
	msgServerError      = "Server error. Please try again later."
	msgNetwork          = "Please check your internet connection"
	msgGeneric          = "Something went wrong. Please try again."
	msgSuperseded       = "Sign-in was superseded. Please try again."
)

// Manager orchestrates login, logout, registration and session
// persistence. The generation counter invalidates in-flight results
// once a logout (or a newer login) lands, closing the stale-response
// window the original client left open.
type Manager struct {
	client *apiclient.Client
	store  credstore.Store
	logger *zerolog.Logger

	mu         sync.Mutex
	state      State
	session    *models.Session
	generation uint64
}

func NewManager(client *apiclient.Client, store credstore.Store, logger *zerolog.Logger) *Manager {
	m := &Manager{
		client: client,
		store:  store,
		logger: logger,
	}
	// The client pulls the token on every request, so dropping the
	// session here makes all dependents unauthenticated synchronously.
	client.SetTokenSource(m.Token)
	return m
}

// Token returns the current bearer token, empty when signed out.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.Token
}

// State returns the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns a copy of the active session, or false when signed out.
func (m *Manager) Current() (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return models.Session{}, false
	}
	s := *m.session
	s.VehicleNumbers = append([]string(nil), m.session.VehicleNumbers...)
	return s, true
}

// Restore loads a persisted session at startup. No session on disk is
// not an error.
func (m *Manager) Restore(ctx context.Context) error {
	session, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if session == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	m.state = SignedIn
	m.logger.Info().Str("user_id", session.UserID).Str("role", string(session.Role)).Msg("session restored")
	return nil
}

// beginAuth flips to Authenticating and returns the generation an
// in-flight attempt must match to commit.
func (m *Manager) beginAuth() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Authenticating
	return m.generation
}

// commit installs the session if no logout or newer attempt superseded
// the caller, then persists it.
func (m *Manager) commit(ctx context.Context, gen uint64, session *models.Session) error {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return &AuthError{Message: msgSuperseded}
	}
	m.generation++
	m.session = session
	m.state = SignedIn
	m.mu.Unlock()

	if err := m.store.Save(ctx, session); err != nil {
		// The in-memory session stands; persistence is best effort.
		m.logger.Error().Err(err).Msg("failed to persist session")
	}
	return nil
}

func (m *Manager) failAuth(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation == gen && m.state == Authenticating {
		m.state = SignedOut
	}
}

// sessionFromLogin validates the role and builds the session record.
func sessionFromLogin(resp models.LoginResponse) (*models.Session, error) {
	role, err := models.ParseRole(resp.User.Role)
	if err != nil {
		return nil, fmt.Errorf("backend sent %w", err)
	}
	return &models.Session{
		UserID:         resp.User.ID,
		Name:           resp.User.Name,
		Email:          resp.User.Email,
		Phone:          resp.User.Phone,
		Role:           role,
		Token:          resp.Token,
		ParkingLotID:   resp.User.ParkingLotID,
		ParkingLotName: resp.User.ParkingLotName,
		VehicleNumbers: resp.User.VehicleNumbers,
	}, nil
}

// mapAuthFailure folds a request error into the fixed user-facing set.
func mapAuthFailure(err error) *AuthError {
	if apiclient.IsNetwork(err) {
		return &AuthError{Message: msgNetwork, Err: err}
	}
	switch status := apiclient.StatusOf(err); {
	case status == http.StatusBadRequest,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusNotFound:
		return &AuthError{Message: msgWrongCredentials, Err: err}
	case status == http.StatusRequestTimeout:
		return &AuthError{Message: msgTimeout, Err: err}
	case status >= 500 && status <= 599:
		return &AuthError{Message: msgServerError, Err: err}
	default:
		return &AuthError{Message: msgGeneric, Err: err}
	}
}

func (m *Manager) authenticate(ctx context.Context, endpoint string, body any) (models.Session, error) {
	gen := m.beginAuth()

	resp, err := apiclient.DoJSON[models.LoginResponse](ctx, m.client, http.MethodPost, endpoint, body)
	if err != nil {
		m.failAuth(gen)
		return models.Session{}, mapAuthFailure(err)
	}

	session, err := sessionFromLogin(resp)
	if err != nil {
		m.failAuth(gen)
		m.logger.Error().Err(err).Msg("login response rejected")
		return models.Session{}, &AuthError{Message: msgGeneric, Err: err}
	}

	if err := m.commit(ctx, gen, session); err != nil {
		return models.Session{}, err
	}

	m.logger.Info().Str("user_id", session.UserID).Str("role", string(session.Role)).Msg("signed in")
	return *session, nil
}

// Login signs in with email (or phone) and password.
func (m *Manager) Login(ctx context.Context, identifier, password string) (models.Session, error) {
	if strings.TrimSpace(identifier) == "" || password == "" {
		return models.Session{}, &AuthError{Message: msgWrongCredentials}
	}
	return m.authenticate(ctx, "/auth/login", map[string]string{
		"email":    identifier,
		"password": password,
	})
}

// LoginWithGoogle forwards Google tokens to the backend, which owns
// the actual verification.
func (m *Manager) LoginWithGoogle(ctx context.Context, idToken, accessToken string) (models.Session, error) {
	if idToken == "" {
		return models.Session{}, &AuthError{Message: msgGeneric}
	}
	return m.authenticate(ctx, "/oauth2/google/authenticate", map[string]string{
		"idToken":     idToken,
		"accessToken": accessToken,
	})
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Password       string `json:"password"`
	ParkingLotName string `json:"parkingLotName,omitempty"`
}

// Register creates an account and signs in with the returned token.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (models.Session, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return models.Session{}, &AuthError{Message: "Name, email and password are required"}
	}
	return m.authenticate(ctx, "/auth/register", req)
}

// GenerateOTP asks the backend to send a one-time code to the given
// phone or email. Some deployments echo the code in the body for
// testing; it is returned when present.
func (m *Manager) GenerateOTP(ctx context.Context, phoneOrEmail string) (string, error) {
	if strings.TrimSpace(phoneOrEmail) == "" {
		return "", fmt.Errorf("phone or email is required")
	}
	endpoint := "/otp/generate?key=" + url.QueryEscape(phoneOrEmail)
	data, err := m.client.Do(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ValidateOTP checks a one-time code. A 2xx means the code matched.
func (m *Manager) ValidateOTP(ctx context.Context, phoneOrEmail, otp string) (bool, error) {
	if phoneOrEmail == "" || otp == "" {
		return false, fmt.Errorf("key and otp are required")
	}
	endpoint := "/otp/validate?key=" + url.QueryEscape(phoneOrEmail) + "&otp=" + url.QueryEscape(otp)
	if _, err := m.client.Do(ctx, http.MethodPost, endpoint, nil); err != nil {
		if apiclient.KindOf(err) == apiclient.KindServer || apiclient.IsAuthRequired(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Logout clears the in-memory session, the persisted copy and, via
// the shared token source, every dependent's credentials before
// returning. Safe to call repeatedly.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.session = nil
	m.state = SignedOut
	m.generation++
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credential store: %w", err)
	}
	m.logger.Info().Msg("signed out")
	return nil
}

// RefreshProfile re-fetches the user object and updates the cached
// profile. The result is dropped if the session changed mid-flight.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	current, ok := m.Current()
	if !ok {
		return fmt.Errorf("not signed in")
	}
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	user, err := apiclient.DoJSON[models.User](ctx, m.client, http.MethodGet, "/users/"+current.UserID, nil)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.generation != gen || m.session == nil {
		m.mu.Unlock()
		return nil // superseded, discard
	}
	m.session.Name = user.Name
	m.session.Email = user.Email
	m.session.Phone = user.Phone
	m.session.ParkingLotID = user.ParkingLotID
	m.session.ParkingLotName = user.ParkingLotName
	m.session.VehicleNumbers = user.VehicleNumbers
	snapshot := *m.session
	m.mu.Unlock()

	if err := m.store.Save(ctx, &snapshot); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist refreshed profile")
	}
	return nil
}

// Package apiclient is the single choke point for outbound backend
// requests: it resolves the authentication header, executes the call
// and classifies every failure into a typed Error. There are no
// retries; a failed request is terminal until the user acts again.
package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gridee/internal/config"
	"gridee/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TokenSource yields the current bearer token, empty when signed out.
// The session manager owns the value; detaching it on logout makes
// every subsequent request unauthenticated synchronously.
type TokenSource func() string

// publicEndpoints never carry an Authorization header.
var publicEndpoints = []string{
	"/auth/register",
	"/auth/login",
	"/parking-lots",
	"/parking-lots/list/by-names",
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zerolog.Logger

	requestTimeout time.Duration
	tokenSource    TokenSource
	basicAuth      config.BasicAuthConfig
	limiter        *rate.Limiter
}

// New builds the client from backend config. Strict TLS verification
// unless insecure_skip_verify opted the deployment out.
func New(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		logger.Warn().Msg("TLS certificate verification disabled for backend requests")
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: transport,
			// Resource timeout bounds the whole exchange incl. body.
			Timeout: time.Duration(cfg.ResourceTimeout) * time.Second,
		},
		logger:         logger,
		requestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		basicAuth:      cfg.BasicAuthFallback,
		limiter:        limiter,
	}
}

// SetTokenSource attaches the session manager's token. Safe to call
// once during wiring, before concurrent use.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokenSource = ts
}

type requestOptions struct {
	public bool
}

type Option func(*requestOptions)

// Public marks a request as unauthenticated regardless of endpoint.
func Public() Option {
	return func(o *requestOptions) { o.public = true }
}

func isPublicEndpoint(endpoint string) bool {
	path := endpoint
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, p := range publicEndpoints {
		if path == p {
			return true
		}
	}
	return false
}

// authorize resolves the Authorization header: none for public
// endpoints, bearer when a token exists, basic fallback only when the
// deployment enabled it. Otherwise the request goes out bare and the
// server's 401 is surfaced to the caller.
func (c *Client) authorize(req *http.Request, endpoint string, opts requestOptions) {
	if opts.public || isPublicEndpoint(endpoint) {
		return
	}

	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			return
		}
	}

	if c.basicAuth.Enabled {
		creds := c.basicAuth.Username + ":" + c.basicAuth.Password
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
	}
}

// Do executes one request and returns the raw 2xx body. body is JSON
// encoded when non-nil. Endpoint is the path below the base URL,
// query string included.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any, opts ...Option) ([]byte, error) {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindNetwork, Endpoint: endpoint, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindInvalid, Endpoint: endpoint, Err: fmt.Errorf("encode body: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req, endpoint, o)

	requestID := uuid.NewString()
	started := time.Now()
	log := c.logger.With().Str("request_id", requestID).Str("method", method).Str("endpoint", endpoint).Logger()

	resp, err := c.http.Do(req)
	if err != nil {
		elapsed := time.Since(started)
		metrics.ObserveRequest(endpoint, KindNetwork.String(), elapsed)
		log.Warn().Err(err).Dur("elapsed", elapsed).Msg("backend request failed")
		return nil, &Error{Kind: KindNetwork, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	elapsed := time.Since(started)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		metrics.ObserveRequest(endpoint, KindAuthRequired.String(), elapsed)
		log.Warn().Int("status", resp.StatusCode).Msg("backend rejected credentials")
		return nil, &Error{Kind: KindAuthRequired, Status: resp.StatusCode, Endpoint: endpoint}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.ObserveRequest(endpoint, KindServer.String(), elapsed)
		// The raw body is logged for diagnosis but never surfaced to
		// callers, so backend internals cannot leak into the UI.
		log.Warn().Int("status", resp.StatusCode).Bytes("body", truncate(data, 512)).Msg("backend returned error status")
		return nil, &Error{Kind: KindServer, Status: resp.StatusCode, Endpoint: endpoint}
	case readErr != nil:
		metrics.ObserveRequest(endpoint, KindNetwork.String(), elapsed)
		return nil, &Error{Kind: KindNetwork, Endpoint: endpoint, Err: readErr}
	}

	metrics.ObserveRequest(endpoint, "ok", elapsed)
	log.Debug().Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("backend request ok")
	return data, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// DoJSON executes a request and decodes the 2xx body into T. An empty
// body where content was expected is KindNoData; a body that does not
// decode is KindDecode.
func DoJSON[T any](ctx context.Context, c *Client, method, endpoint string, body any, opts ...Option) (T, error) {
	var out T

	data, err := c.Do(ctx, method, endpoint, body, opts...)
	if err != nil {
		return out, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, &Error{Kind: KindNoData, Endpoint: endpoint}
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, &Error{Kind: KindDecode, Endpoint: endpoint, Err: err}
	}
	return out, nil
}

package credstore

import (
	"context"
	"sync/atomic"
	"time"

	"gridee/internal/models"

	"github.com/rs/zerolog"
)

// recoveryProbeInterval is how long the failover store waits before
// retrying a primary that has been marked down.
const recoveryProbeInterval = time.Minute

// FailoverStore prefers the primary store and falls back to the
// secondary when the primary errors. Writes during an outage land in
// the fallback only; the primary is probed again after a cool-down.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos of the last failed primary call
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FailoverStore) markDown(err error) {
	f.logger.Error().Err(err).Msg("primary credential store failed, using fallback")
	f.isDown.Store(true)
	f.lastCheck.Store(time.Now().UnixNano())
}

func (f *FailoverStore) shouldProbe() bool {
	return time.Since(time.Unix(0, f.lastCheck.Load())) > recoveryProbeInterval
}

func (f *FailoverStore) Save(ctx context.Context, session *models.Session) error {
	if !f.isDown.Load() || f.shouldProbe() {
		if err := f.primary.Save(ctx, session); err == nil {
			f.isDown.Store(false)
			// Mirror into the fallback so a later outage still loads
			// the freshest session.
			_ = f.fallback.Save(ctx, session)
			return nil
		} else {
			f.markDown(err)
		}
	}
	return f.fallback.Save(ctx, session)
}

func (f *FailoverStore) Load(ctx context.Context) (*models.Session, error) {
	if !f.isDown.Load() || f.shouldProbe() {
		if session, err := f.primary.Load(ctx); err == nil {
			f.isDown.Store(false)
			return session, nil
		} else {
			f.markDown(err)
		}
	}
	return f.fallback.Load(ctx)
}

func (f *FailoverStore) Clear(ctx context.Context) error {
	// Clear must reach both stores; a fallback copy outliving logout
	// would resurrect the session.
	var primaryErr error
	if err := f.primary.Clear(ctx); err != nil {
		f.markDown(err)
		primaryErr = err
	} else {
		f.isDown.Store(false)
	}
	if err := f.fallback.Clear(ctx); err != nil {
		return err
	}
	return primaryErr
}

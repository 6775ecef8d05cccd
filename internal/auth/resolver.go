// Package auth resolves the authenticated principal of a session.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/musicclub/apiserver/internal/metrics"
	"github.com/musicclub/apiserver/internal/session"
	"github.com/musicclub/apiserver/internal/store"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

// ErrUnauthenticated means the session carries no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// UserLookup reads the credential store.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// SessionSaver persists changes made to a session during resolution.
type SessionSaver interface {
	Save(ctx context.Context, sess session.Session) error
	CacheIdentity(ctx context.Context, sess session.Session) error
}

// Resolver turns a session into an Identity, caching the snapshot on the session.
type Resolver struct {
	users    UserLookup
	sessions SessionSaver
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewResolver(users UserLookup, sessions SessionSaver, logger *zap.Logger, m *metrics.Metrics) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		users:    users,
		sessions: sessions,
		logger:   logger,
		metrics:  m,
	}
}

// Resolve returns the session's identity. It fails with ErrUnauthenticated when
// the session is anonymous or its user no longer exists; any other error is an
// internal failure of the credential store.
func (r *Resolver) Resolve(ctx context.Context, sess *session.Session) (types.Identity, error) {
	if sess == nil || sess.UserID <= 0 {
		r.metrics.ObserveSession(metrics.SourceAnonymous)
		return types.Identity{}, ErrUnauthenticated
	}

	if sess.Identity != nil && sess.Identity.ID == sess.UserID {
		r.metrics.ObserveSession(metrics.SourceCache)
		return *sess.Identity, nil
	}

	user, err := r.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sess.ClearIdentity()
			if err := r.sessions.Save(ctx, *sess); err != nil {
				r.logger.Warn("failed to clear orphaned session", zap.String("session_id", sess.ID), zap.Error(err))
			}
			r.metrics.ObserveSession(metrics.SourceAnonymous)
			return types.Identity{}, ErrUnauthenticated
		}
		r.metrics.ObserveSession(metrics.SourceError)
		return types.Identity{}, fmt.Errorf("load session user: %w", err)
	}

	// Skipped when the user's identities were cleared after the session was loaded.
	identity := user.Identity()
	sess.Identity = &identity
	switch err := r.sessions.CacheIdentity(ctx, *sess); {
	case errors.Is(err, session.ErrStale):
		r.logger.Debug("skipped stale identity write-back", zap.String("session_id", sess.ID))
	case err != nil:
		r.logger.Warn("failed to cache session identity", zap.String("session_id", sess.ID), zap.Error(err))
	}
	r.metrics.ObserveSession(metrics.SourceStore)
	return identity, nil
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/musicclub/apiserver/internal/auth"
	"github.com/musicclub/apiserver/internal/authz"
	"github.com/musicclub/apiserver/internal/metrics"
	"github.com/musicclub/apiserver/internal/session"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

// SessionLoader finds the session behind a request cookie.
type SessionLoader interface {
	Load(r *http.Request) (session.Session, error)
}

// IdentityResolver turns a session into the current identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, sess *session.Session) (types.Identity, error)
}

// Gate is the authorization middleware. Every protected route is
// Authenticate followed by Permit with a role predicate.
type Gate struct {
	sessions SessionLoader
	resolver IdentityResolver
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewGate(sessions SessionLoader, resolver IdentityResolver, logger *zap.Logger, m *metrics.Metrics) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		sessions: sessions,
		resolver: resolver,
		logger:   logger,
		metrics:  m,
	}
}

// Authenticate resolves the request's identity and attaches it to the context.
// Requests without a usable session get 401; resolution failures get a
// generic 500 and never reach the next handler.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := g.resolve(r)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) || errors.Is(err, auth.ErrUnauthenticated) {
				g.metrics.ObserveAuthz(metrics.OutcomeUnauthenticated)
				writeError(w, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
				return
			}
			g.metrics.ObserveAuthz(metrics.OutcomeError)
			g.logger.Error("failed to resolve session",
				zap.String("path", r.URL.Path),
				zap.String("request_id", requestID(r.Context())),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, CodeInternal, internalErrorMessage)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

func (g *Gate) resolve(r *http.Request) (types.Identity, error) {
	sess, err := g.sessions.Load(r)
	if err != nil {
		return types.Identity{}, err
	}
	return g.resolver.Resolve(r.Context(), &sess)
}

// Permit admits requests whose identity satisfies allow. It must run after
// Authenticate; a missing identity is treated as unauthenticated.
func (g *Gate) Permit(allow authz.Predicate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				g.metrics.ObserveAuthz(metrics.OutcomeUnauthenticated)
				writeError(w, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
				return
			}
			if allow == nil || !allow(identity.Role) {
				g.metrics.ObserveAuthz(metrics.OutcomeForbidden)
				writeError(w, http.StatusForbidden, CodeForbidden, "insufficient permission")
				return
			}
			g.metrics.ObserveAuthz(metrics.OutcomeAllowed)
			next.ServeHTTP(w, r)
		})
	}
}

// Require composes Authenticate and Permit(allow).
func (g *Gate) Require(allow authz.Predicate) func(http.Handler) http.Handler {
	permit := g.Permit(allow)
	return func(next http.Handler) http.Handler {
		return g.Authenticate(permit(next))
	}
}

func (g *Gate) RequireAuth() func(http.Handler) http.Handler {
	return g.Require(authz.Authenticated)
}

func (g *Gate) RequireAdmin() func(http.Handler) http.Handler {
	return g.Require(authz.IsAdmin)
}

func (g *Gate) RequireAdminOrCommittee() func(http.Handler) http.Handler {
	return g.Require(authz.IsAdminOrCommittee)
}

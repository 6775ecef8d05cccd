package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

const (
	defaultCookieName = "mc.sid"
	defaultTTL        = 24 * time.Hour
)

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	// CrossSite issues SameSite=None; Secure cookies for a separately hosted frontend.
	CrossSite bool
	Logger    *zap.Logger
}

// Manager binds sessions in a Store to HTTP cookies.
// A session lives for a fixed TTL from login.
type Manager struct {
	store      Store
	codec      *TokenCodec
	cookieName string
	ttl        time.Duration
	crossSite  bool
	logger     *zap.Logger
	now        func() time.Time
}

func NewManager(store Store, secret string, opts Options) *Manager {
	name := opts.CookieName
	if name == "" {
		name = defaultCookieName
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:      store,
		codec:      NewTokenCodec(secret),
		cookieName: name,
		ttl:        ttl,
		crossSite:  opts.CrossSite,
		logger:     logger,
		now:        time.Now,
	}
}

// Start creates a session bound to identity and sets the cookie.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, identity types.Identity) (Session, error) {
	now := m.now()
	cached := identity
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    identity.ID,
		Identity:  &cached,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	token, err := m.codec.Encode(sess.ID, now)
	if err != nil {
		return Session{}, err
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return Session{}, err
	}

	http.SetCookie(w, m.cookie(token, sess.ExpiresAt))
	return sess, nil
}

// Load returns the live session referenced by the request cookie.
// ErrNotFound covers a missing, forged, unknown, or expired cookie.
func (m *Manager) Load(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, ErrNotFound
	}
	id, err := m.codec.Decode(cookie.Value)
	if err != nil {
		return Session{}, ErrNotFound
	}

	sess, err := m.store.Get(r.Context(), id)
	if err != nil {
		return Session{}, err
	}
	if sess.Expired(m.now()) {
		if err := m.store.Delete(r.Context(), sess.ID); err != nil {
			m.logger.Warn("failed to delete expired session", zap.String("session_id", sess.ID), zap.Error(err))
		}
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Save writes the session back without changing its lifetime.
func (m *Manager) Save(ctx context.Context, sess Session) error {
	return m.store.Save(ctx, sess)
}

// CacheIdentity stores the session's identity snapshot unless the user's
// identities were cleared since the session was loaded.
func (m *Manager) CacheIdentity(ctx context.Context, sess Session) error {
	return m.store.CacheIdentity(ctx, sess)
}

// Destroy removes the request's session, if any, and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess, err := m.Load(r)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil {
		if err := m.store.Delete(r.Context(), sess.ID); err != nil {
			return err
		}
	}

	expired := m.cookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	return nil
}

// ClearIdentities forces the listed users' sessions to re-read their role.
func (m *Manager) ClearIdentities(ctx context.Context, userIDs []int) error {
	return m.store.ClearIdentities(ctx, userIDs)
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) cookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if m.crossSite {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Secure = true
	}
	return cookie
}

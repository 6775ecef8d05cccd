// Package session keeps server-side login sessions and the signed cookie that
// points at them.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/musicclub/apiserver/types"
)

var (
	// ErrNotFound is returned when no live session matches the request.
	ErrNotFound = errors.New("session not found")
	// ErrStale is returned by CacheIdentity when the session's identity was
	// cleared after the session was loaded.
	ErrStale = errors.New("session identity invalidated")
)

// Session is the server-side record behind a session cookie.
type Session struct {
	ID     string `json:"id"`
	UserID int    `json:"user_id,omitempty"`

	// Identity caches the user as of the last credential lookup.
	// It is only trusted while Identity.ID equals UserID.
	Identity *types.Identity `json:"identity,omitempty"`
	// Generation counts identity invalidations.
	Generation int64 `json:"generation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session lifetime has elapsed at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ClearIdentity drops the user binding and the cached snapshot.
func (s *Session) ClearIdentity() {
	s.UserID = 0
	s.Identity = nil
}

// Store persists sessions.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, sess Session) error
	Delete(ctx context.Context, id string) error
	// CacheIdentity stores sess.Identity only while the stored session is
	// still bound to sess.UserID at sess.Generation. Otherwise it returns ErrStale.
	CacheIdentity(ctx context.Context, sess Session) error
	// ClearIdentities drops cached identity snapshots for the given users and
	// bumps their sessions' generation so their next request re-reads the
	// credential store.
	ClearIdentities(ctx context.Context, userIDs []int) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

package handlers

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/musicclub/apiserver/internal/auth"
	"github.com/musicclub/apiserver/internal/session"
	"github.com/musicclub/apiserver/internal/store"
	"github.com/musicclub/apiserver/types"
)

const testCookie = "mc.sid"

// cookieSessions treats the cookie value as the user id of the session.
type cookieSessions struct{}

func (cookieSessions) Load(r *http.Request) (session.Session, error) {
	c, err := r.Cookie(testCookie)
	if err != nil {
		return session.Session{}, session.ErrNotFound
	}
	id, err := strconv.Atoi(c.Value)
	if err != nil {
		return session.Session{}, session.ErrNotFound
	}
	return session.Session{ID: "sess-" + c.Value, UserID: id}, nil
}

// tableResolver resolves identities from the users fake, like the real
// resolver does against the credential store.
type tableResolver struct {
	users *fakeUsers
	err   error
}

func (t tableResolver) Resolve(_ context.Context, sess *session.Session) (types.Identity, error) {
	if t.err != nil {
		return types.Identity{}, t.err
	}
	user, ok := t.users.byID(sess.UserID)
	if !ok {
		return types.Identity{}, auth.ErrUnauthenticated
	}
	return user.Identity(), nil
}

func withUser(r *http.Request, id int) *http.Request {
	r.AddCookie(&http.Cookie{Name: testCookie, Value: strconv.Itoa(id)})
	return r
}

// fakeUsers is both the credential store behind services.UserService and the
// role transaction store behind services.RoleService.
type fakeUsers struct {
	mu    sync.Mutex
	users map[int]types.User
	txs   int
}

func newFakeUsers(users ...types.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int]types.User, len(users))}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) byID(id int) (types.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	return u, ok
}

func (f *fakeUsers) role(id int) types.Role {
	u, _ := f.byID(id)
	return u.Role
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (types.User, error) {
	if u, ok := f.byID(id); ok {
		return u, nil
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return types.User{}, store.ErrAlreadyExists
		}
	}
	user.ID = len(f.users) + 100
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUsers) List(_ context.Context, filter types.UserFilter) ([]types.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.User, 0, len(f.users))
	for _, u := range f.users {
		if filter.Role == "" || u.Role == filter.Role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if filter.Limit > 0 {
		if filter.Offset >= len(out) {
			out = out[:0]
		} else {
			out = out[filter.Offset:]
			if len(out) > filter.Limit {
				out = out[:filter.Limit]
			}
		}
	}
	return out, total, nil
}

func (f *fakeUsers) WithRoleTx(_ context.Context, fn func(tx store.RoleTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs++

	staged := make(map[int]types.User, len(f.users))
	for id, u := range f.users {
		staged[id] = u
	}
	if err := fn(&fakeRoleTx{users: staged}); err != nil {
		return err
	}
	f.users = staged
	return nil
}

type fakeRoleTx struct {
	users map[int]types.User
}

func (t *fakeRoleTx) CountAdmins(context.Context) (int, error) {
	n := 0
	for _, u := range t.users {
		if u.Role == types.RoleAdmin {
			n++
		}
	}
	return n, nil
}

func (t *fakeRoleTx) LockRole(_ context.Context, id int) (types.Role, error) {
	u, ok := t.users[id]
	if !ok {
		return "", store.ErrNotFound
	}
	return u.Role, nil
}

func (t *fakeRoleTx) SetRole(_ context.Context, id int, role types.Role) error {
	u, ok := t.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Role = role
	t.users[id] = u
	return nil
}

package services

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/musicclub/apiserver/internal/store"
	"github.com/musicclub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRoles is a serializable in-memory RoleRepository. Each transaction
// works on a copy that replaces the committed state only when fn succeeds.
type memoryRoles struct {
	mu        sync.Mutex
	roles     map[int]types.Role
	failSetOn int
	setCalls  []int
}

func newMemoryRoles(roles map[int]types.Role) *memoryRoles {
	return &memoryRoles{roles: roles}
}

func (m *memoryRoles) WithRoleTx(ctx context.Context, fn func(tx store.RoleTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[int]types.Role, len(m.roles))
	for id, role := range m.roles {
		staged[id] = role
	}
	if err := fn(&memoryTx{repo: m, roles: staged}); err != nil {
		return err
	}
	m.roles = staged
	return nil
}

func (m *memoryRoles) snapshot() map[int]types.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]types.Role, len(m.roles))
	for id, role := range m.roles {
		out[id] = role
	}
	return out
}

func (m *memoryRoles) admins() int {
	count := 0
	for _, role := range m.snapshot() {
		if role == types.RoleAdmin {
			count++
		}
	}
	return count
}

type memoryTx struct {
	repo  *memoryRoles
	roles map[int]types.Role
}

func (t *memoryTx) CountAdmins(context.Context) (int, error) {
	count := 0
	for _, role := range t.roles {
		if role == types.RoleAdmin {
			count++
		}
	}
	return count, nil
}

func (t *memoryTx) LockRole(_ context.Context, userID int) (types.Role, error) {
	role, ok := t.roles[userID]
	if !ok {
		return "", store.ErrNotFound
	}
	return role, nil
}

func (t *memoryTx) SetRole(_ context.Context, userID int, role types.Role) error {
	t.repo.setCalls = append(t.repo.setCalls, userID)
	if t.repo.failSetOn == userID {
		return errors.New("write failed")
	}
	if _, ok := t.roles[userID]; !ok {
		return store.ErrNotFound
	}
	t.roles[userID] = role
	return nil
}

type recordingInvalidator struct {
	calls [][]int
	err   error
}

func (r *recordingInvalidator) ClearIdentities(_ context.Context, userIDs []int) error {
	r.calls = append(r.calls, append([]int(nil), userIDs...))
	return r.err
}

type recordingPublisher struct {
	events []types.RoleChangeEvent
	err    error
}

func (r *recordingPublisher) PublishRoleChanges(_ context.Context, events []types.RoleChangeEvent) error {
	r.events = append(r.events, events...)
	return r.err
}

// clubRoles seeds one Admin (1), two Committee (2, 3) and five Members (4..8).
func clubRoles() map[int]types.Role {
	return map[int]types.Role{
		1: types.RoleAdmin,
		2: types.RoleCommittee,
		3: types.RoleCommittee,
		4: types.RoleMember,
		5: types.RoleMember,
		6: types.RoleMember,
		7: types.RoleMember,
		8: types.RoleMember,
	}
}

func TestChangeRoleSoleAdminCannotDemoteSelf(t *testing.T) {
	repo := newMemoryRoles(clubRoles())
	svc := NewRoleService(repo)

	_, err := svc.ChangeRole(context.Background(), 1, 1, "committee")
	assert.ErrorIs(t, err, ErrSelfDemotionForbidden)
	assert.Equal(t, clubRoles(), repo.snapshot())
}

func TestChangeRoleDemoteOtherThenSelf(t *testing.T) {
	repo := newMemoryRoles(map[int]types.Role{1: types.RoleAdmin, 2: types.RoleAdmin})
	invalidator := &recordingInvalidator{}
	publisher := &recordingPublisher{}
	svc := NewRoleService(repo, WithIdentityInvalidator(invalidator), WithRoleEvents(publisher))

	event, err := svc.ChangeRole(context.Background(), 1, 2, "Member")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, event.OldRole)
	assert.Equal(t, types.RoleMember, event.NewRole)
	assert.Equal(t, 1, event.ChangedBy)
	assert.Equal(t, 1, repo.admins())
	assert.Equal(t, [][]int{{2}}, invalidator.calls)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, 2, publisher.events[0].UserID)

	_, err = svc.ChangeRole(context.Background(), 1, 1, "committee")
	assert.ErrorIs(t, err, ErrSelfDemotionForbidden)
	assert.Equal(t, 1, repo.admins())
}

func TestChangeRoleSelfDemotionWithOtherAdmins(t *testing.T) {
	repo := newMemoryRoles(map[int]types.Role{1: types.RoleAdmin, 2: types.RoleAdmin, 3: types.RoleAdmin})
	svc := NewRoleService(repo)

	for _, role := range []string{"committee", "member"} {
		_, err := svc.ChangeRole(context.Background(), 2, 2, role)
		assert.ErrorIs(t, err, ErrSelfDemotionForbidden)
	}
	assert.Equal(t, 3, repo.admins())
}

func TestChangeRoleLastAdminProtected(t *testing.T) {
	// A stale Committee caller that still passed the gate cannot strip the only Admin.
	repo := newMemoryRoles(map[int]types.Role{1: types.RoleAdmin, 2: types.RoleCommittee})
	svc := NewRoleService(repo)

	_, err := svc.ChangeRole(context.Background(), 2, 1, "member")
	assert.ErrorIs(t, err, ErrLastAdminProtected)
	assert.Equal(t, 1, repo.admins())
}

func TestChangeRoleValidation(t *testing.T) {
	repo := newMemoryRoles(clubRoles())
	svc := NewRoleService(repo)

	_, err := svc.ChangeRole(context.Background(), 1, 4, "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.ChangeRole(context.Background(), 1, 4, "")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.ChangeRole(context.Background(), 1, 404, "member")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Invalid role wins over a missing target.
	_, err = svc.ChangeRole(context.Background(), 1, 404, "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.Empty(t, repo.setCalls)
}

func TestChangeRoleNormalizesInput(t *testing.T) {
	repo := newMemoryRoles(clubRoles())
	svc := NewRoleService(repo)

	event, err := svc.ChangeRole(context.Background(), 1, 4, "  Committee ")
	require.NoError(t, err)
	assert.Equal(t, types.RoleCommittee, event.NewRole)
	assert.Equal(t, types.RoleCommittee, repo.snapshot()[4])
}

func TestChangeRoleNoOp(t *testing.T) {
	repo := newMemoryRoles(clubRoles())
	invalidator := &recordingInvalidator{}
	publisher := &recordingPublisher{}
	svc := NewRoleService(repo, WithIdentityInvalidator(invalidator), WithRoleEvents(publisher))

	event, err := svc.ChangeRole(context.Background(), 1, 1, "admin")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, event.NewRole)
	assert.Equal(t, 1, repo.admins())
	assert.Empty(t, invalidator.calls)
	assert.Empty(t, publisher.events)
}

func TestChangeRoleSideEffectFailuresDoNotFail(t *testing.T) {
	repo := newMemoryRoles(clubRoles())
	svc := NewRoleService(repo,
		WithIdentityInvalidator(&recordingInvalidator{err: errors.New("redis down")}),
		WithRoleEvents(&recordingPublisher{err: errors.New("broker down")}),
	)

	_, err := svc.ChangeRole(context.Background(), 1, 5, "committee")
	require.NoError(t, err)
	assert.Equal(t, types.RoleCommittee, repo.snapshot()[5])
}

func TestChangeRolesBulkRejectsDemotingEveryAdmin(t *testing.T) {
	initial := map[int]types.Role{1: types.RoleAdmin, 2: types.RoleAdmin, 3: types.RoleAdmin, 4: types.RoleMember}
	repo := newMemoryRoles(initial)
	svc := NewRoleService(repo)

	count, err := svc.ChangeRolesBulk(context.Background(), 1, []types.RoleChange{
		{UserID: 1, Role: "member"},
		{UserID: 2, Role: "member"},
		{UserID: 3, Role: "member"},
	})
	assert.ErrorIs(t, err, ErrLastAdminProtected)
	assert.Zero(t, count)
	assert.Equal(t, 3, repo.admins())
	assert.Empty(t, repo.setCalls)
}

func TestChangeRolesBulkSwapKeepsAdminCount(t *testing.T) {
	repo := newMemoryRoles(map[int]types.Role{1: types.RoleAdmin, 2: types.RoleAdmin, 3: types.RoleCommittee})
	invalidator := &recordingInvalidator{}
	svc := NewRoleService(repo, WithIdentityInvalidator(invalidator))

	count, err := svc.ChangeRolesBulk(context.Background(), 1, []types.RoleChange{
		{UserID: 1, Role: "member"},
		{UserID: 3, Role: "admin"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, map[int]types.Role{1: types.RoleMember, 2: types.RoleAdmin, 3: types.RoleAdmin}, repo.snapshot())
	assert.Equal(t, [][]int{{1, 3}}, invalidator.calls)
}

func TestChangeRolesBulkAppliesInOrder(t *testing.T) {
	repo := newMemoryRoles(map[int]types.Role{1: types.RoleAdmin, 5: types.RoleMember, 2: types.RoleMember})
	publisher := &recordingPublisher{}
	svc := NewRoleService(repo, WithRoleEvents(publisher))

	count, err := svc.ChangeRolesBulk(context.Background(), 1, []types.RoleChange{
		{UserID: 5, Role: "committee"},
		{UserID: 2, Role: "committee"},
		{UserID: 5, Role: "admin"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []int{5, 2, 5}, repo.setCalls)
	assert.Equal(t, types.RoleAdmin, repo.snapshot()[5])

	require.Len(t, publisher.events, 3)
	assert.Equal(t, types.RoleMember, publisher.events[0].OldRole)
	assert.Equal(t, types.RoleCommittee, publisher.events[2].OldRole)
	assert.Equal(t, types.RoleAdmin, publisher.events[2].NewRole)
}

func TestChangeRolesBulkRepeatedTargetCountedOnce(t *testing.T) {
	repo := newMemoryRoles(map[int]types.Role{1: types.RoleAdmin, 2: types.RoleAdmin})
	svc := NewRoleService(repo)

	// Demoting the same Admin twice removes one Admin, not two.
	count, err := svc.ChangeRolesBulk(context.Background(), 1, []types.RoleChange{
		{UserID: 2, Role: "committee"},
		{UserID: 2, Role: "member"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, repo.admins())

	// Promote then demote within one batch nets to zero and still trips the guard.
	_, err = svc.ChangeRolesBulk(context.Background(), 1, []types.RoleChange{
		{UserID: 2, Role: "admin"},
		{UserID: 1, Role: "member"},
		{UserID: 2, Role: "member"},
	})
	assert.ErrorIs(t, err, ErrLastAdminProtected)
	assert.Equal(t, types.RoleAdmin, repo.snapshot()[1])
}

func TestChangeRolesBulkValidation(t *testing.T) {
	repo := newMemoryRoles(clubRoles())
	svc := NewRoleService(repo)
	ctx := context.Background()

	_, err := svc.ChangeRolesBulk(ctx, 1, nil)
	assert.ErrorIs(t, err, ErrNoChanges)

	_, err = svc.ChangeRolesBulk(ctx, 1, []types.RoleChange{{UserID: 4, Role: "committee"}, {UserID: 5, Role: "boss"}})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.ChangeRolesBulk(ctx, 1, []types.RoleChange{{UserID: 4, Role: "committee"}, {UserID: 0, Role: "member"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ChangeRolesBulk(ctx, 1, []types.RoleChange{{UserID: 4, Role: "committee"}, {UserID: 404, Role: "member"}})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, clubRoles(), repo.snapshot())
	assert.Empty(t, repo.setCalls)
}

func TestChangeRolesBulkRollsBackOnWriteFailure(t *testing.T) {
	repo := newMemoryRoles(clubRoles())
	repo.failSetOn = 6
	svc := NewRoleService(repo)

	_, err := svc.ChangeRolesBulk(context.Background(), 1, []types.RoleChange{
		{UserID: 4, Role: "committee"},
		{UserID: 5, Role: "committee"},
		{UserID: 6, Role: "committee"},
	})
	require.Error(t, err)
	assert.Equal(t, clubRoles(), repo.snapshot())
}

func TestRoleMutationsNeverRemoveLastAdmin(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	roles := []string{"admin", "committee", "member"}

	for round := 0; round < 50; round++ {
		initial := map[int]types.Role{1: types.RoleAdmin}
		for id := 2; id <= 6; id++ {
			initial[id] = types.Role(roles[rng.Intn(len(roles))])
		}
		repo := newMemoryRoles(initial)
		svc := NewRoleService(repo)

		for step := 0; step < 40; step++ {
			caller := 1 + rng.Intn(6)
			if rng.Intn(2) == 0 {
				_, _ = svc.ChangeRole(context.Background(), caller, 1+rng.Intn(7), roles[rng.Intn(len(roles))])
			} else {
				n := 1 + rng.Intn(4)
				batch := make([]types.RoleChange, n)
				for i := range batch {
					batch[i] = types.RoleChange{UserID: 1 + rng.Intn(6), Role: types.Role(roles[rng.Intn(len(roles))])}
				}
				_, _ = svc.ChangeRolesBulk(context.Background(), caller, batch)
			}
			require.GreaterOrEqual(t, repo.admins(), 1, "round %d step %d", round, step)
		}
	}
}

func TestConcurrentDemotionsKeepOneAdmin(t *testing.T) {
	initial := map[int]types.Role{}
	for id := 1; id <= 8; id++ {
		initial[id] = types.RoleAdmin
	}
	repo := newMemoryRoles(initial)
	svc := NewRoleService(repo)

	var wg sync.WaitGroup
	results := make(chan error, 16)
	for i := 1; i <= 8; i++ {
		caller := i
		target := i%8 + 1
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.ChangeRole(context.Background(), caller, target, "member")
			results <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.ChangeRolesBulk(context.Background(), caller, []types.RoleChange{{UserID: target, Role: "committee"}})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			assert.True(t, errors.Is(err, ErrLastAdminProtected) || errors.Is(err, ErrSelfDemotionForbidden), "unexpected error %v", err)
		}
	}
	assert.Equal(t, 1, repo.admins())

	remaining := []int{}
	for id, role := range repo.snapshot() {
		if role == types.RoleAdmin {
			remaining = append(remaining, id)
		}
	}
	sort.Ints(remaining)
	assert.Len(t, remaining, 1)
}

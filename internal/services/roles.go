package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/musicclub/apiserver/internal/authz"
	"github.com/musicclub/apiserver/internal/metrics"
	"github.com/musicclub/apiserver/internal/store"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

const (
	mutationSingle = "single"
	mutationBulk   = "bulk"
)

// RoleRepository runs role reads and writes under row locks.
type RoleRepository interface {
	WithRoleTx(ctx context.Context, fn func(tx store.RoleTx) error) error
}

// IdentityInvalidator drops cached session identities of users whose role changed.
type IdentityInvalidator interface {
	ClearIdentities(ctx context.Context, userIDs []int) error
}

// RoleEventPublisher announces committed role changes.
type RoleEventPublisher interface {
	PublishRoleChanges(ctx context.Context, events []types.RoleChangeEvent) error
}

// RoleService is the only writer of user roles. Every mutation keeps at least
// one Admin in the system.
type RoleService struct {
	repo     RoleRepository
	sessions IdentityInvalidator
	events   RoleEventPublisher
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type RoleServiceOption func(*RoleService)

func WithIdentityInvalidator(sessions IdentityInvalidator) RoleServiceOption {
	return func(s *RoleService) { s.sessions = sessions }
}

func WithRoleEvents(events RoleEventPublisher) RoleServiceOption {
	return func(s *RoleService) { s.events = events }
}

func WithRoleLogger(logger *zap.Logger) RoleServiceOption {
	return func(s *RoleService) { s.logger = logger }
}

func WithRoleMetrics(m *metrics.Metrics) RoleServiceOption {
	return func(s *RoleService) { s.metrics = m }
}

func NewRoleService(repo RoleRepository, opts ...RoleServiceOption) *RoleService {
	s := &RoleService{
		repo:   repo,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChangeRole assigns rawRole to targetID on behalf of callerID.
//
// Checks run in this order: role validity, target existence, self-demotion,
// last Admin. A sole Admin demoting themself gets ErrSelfDemotionForbidden.
// The returned event carries the role the target held before.
func (s *RoleService) ChangeRole(ctx context.Context, callerID, targetID int, rawRole string) (types.RoleChangeEvent, error) {
	newRole, ok := authz.ParseRole(rawRole)
	if !ok {
		s.metrics.ObserveRoleMutation(mutationSingle, outcomeFor(ErrInvalidRole), 0)
		return types.RoleChangeEvent{}, ErrInvalidRole
	}

	var event types.RoleChangeEvent
	err := s.repo.WithRoleTx(ctx, func(tx store.RoleTx) error {
		admins, err := tx.CountAdmins(ctx)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}

		stored, err := tx.LockRole(ctx, targetID)
		if err != nil {
			return err
		}
		current := normalizeStored(stored)

		if current == types.RoleAdmin && newRole != types.RoleAdmin {
			if targetID == callerID {
				return ErrSelfDemotionForbidden
			}
			if admins <= 1 {
				return ErrLastAdminProtected
			}
		}

		if err := tx.SetRole(ctx, targetID, newRole); err != nil {
			return fmt.Errorf("set role: %w", err)
		}

		event = types.RoleChangeEvent{
			UserID:    targetID,
			OldRole:   current,
			NewRole:   newRole,
			ChangedBy: callerID,
			ChangedAt: s.now(),
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveRoleMutation(mutationSingle, outcomeFor(err), 0)
		return types.RoleChangeEvent{}, err
	}

	s.metrics.ObserveRoleMutation(mutationSingle, "applied", 1)
	s.afterCommit(ctx, []types.RoleChangeEvent{event})
	return event, nil
}

// ChangeRolesBulk applies changes atomically and in order. The batch is
// rejected as a whole when the Admin count after all changes would be zero.
// It returns the number of applied changes.
func (s *RoleService) ChangeRolesBulk(ctx context.Context, callerID int, changes []types.RoleChange) (int, error) {
	if len(changes) == 0 {
		s.metrics.ObserveRoleMutation(mutationBulk, outcomeFor(ErrNoChanges), 0)
		return 0, ErrNoChanges
	}

	requested := make([]types.RoleChange, len(changes))
	targets := make(map[int]struct{}, len(changes))
	for i, change := range changes {
		if change.UserID <= 0 {
			err := invalidInput("change %d: invalid user id", i)
			s.metrics.ObserveRoleMutation(mutationBulk, outcomeFor(err), 0)
			return 0, err
		}
		role, ok := authz.ParseRole(string(change.Role))
		if !ok {
			s.metrics.ObserveRoleMutation(mutationBulk, outcomeFor(ErrInvalidRole), 0)
			return 0, fmt.Errorf("change %d: %w", i, ErrInvalidRole)
		}
		requested[i] = types.RoleChange{UserID: change.UserID, Role: role}
		targets[change.UserID] = struct{}{}
	}

	// Lock targets in id order so concurrent batches cannot deadlock.
	lockOrder := make([]int, 0, len(targets))
	for id := range targets {
		lockOrder = append(lockOrder, id)
	}
	sort.Ints(lockOrder)

	var events []types.RoleChangeEvent
	err := s.repo.WithRoleTx(ctx, func(tx store.RoleTx) error {
		adminsBefore, err := tx.CountAdmins(ctx)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}

		state := make(map[int]types.Role, len(lockOrder))
		for _, id := range lockOrder {
			stored, err := tx.LockRole(ctx, id)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					// Bulk reports unknown targets as a bad batch, not a missing resource.
					return fmt.Errorf("%w: user %d: %w", ErrInvalidInput, id, store.ErrNotFound)
				}
				return err
			}
			state[id] = normalizeStored(stored)
		}

		// Replay the batch against the locked snapshot so repeated targets
		// are counted once, by their final role.
		delta := 0
		replay := make(map[int]types.Role, len(state))
		for id, role := range state {
			replay[id] = role
		}
		for _, change := range requested {
			wasAdmin := replay[change.UserID] == types.RoleAdmin
			isAdmin := change.Role == types.RoleAdmin
			switch {
			case wasAdmin && !isAdmin:
				delta--
			case !wasAdmin && isAdmin:
				delta++
			}
			replay[change.UserID] = change.Role
		}
		if adminsBefore+delta <= 0 {
			return ErrLastAdminProtected
		}

		now := s.now()
		events = make([]types.RoleChangeEvent, 0, len(requested))
		for _, change := range requested {
			if err := tx.SetRole(ctx, change.UserID, change.Role); err != nil {
				return fmt.Errorf("set role for user %d: %w", change.UserID, err)
			}
			events = append(events, types.RoleChangeEvent{
				UserID:    change.UserID,
				OldRole:   state[change.UserID],
				NewRole:   change.Role,
				ChangedBy: callerID,
				ChangedAt: now,
			})
			state[change.UserID] = change.Role
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveRoleMutation(mutationBulk, outcomeFor(err), 0)
		return 0, err
	}

	s.metrics.ObserveRoleMutation(mutationBulk, "applied", len(events))
	s.afterCommit(ctx, events)
	return len(events), nil
}

// afterCommit invalidates cached identities and publishes events. Failures are
// logged only; the role change is already durable.
func (s *RoleService) afterCommit(ctx context.Context, events []types.RoleChangeEvent) {
	changed := make([]types.RoleChangeEvent, 0, len(events))
	seen := make(map[int]struct{}, len(events))
	userIDs := make([]int, 0, len(events))
	for _, event := range events {
		if event.OldRole == event.NewRole {
			continue
		}
		changed = append(changed, event)
		if _, ok := seen[event.UserID]; !ok {
			seen[event.UserID] = struct{}{}
			userIDs = append(userIDs, event.UserID)
		}
	}
	if len(changed) == 0 {
		return
	}

	if s.sessions != nil {
		if err := s.sessions.ClearIdentities(ctx, userIDs); err != nil {
			s.logger.Error("failed to invalidate cached identities", zap.Ints("user_ids", userIDs), zap.Error(err))
		}
	}
	if s.events != nil {
		if err := s.events.PublishRoleChanges(ctx, changed); err != nil {
			s.logger.Warn("failed to publish role change events", zap.Int("count", len(changed)), zap.Error(err))
		}
	}
	for _, event := range changed {
		s.logger.Info("role changed",
			zap.Int("user_id", event.UserID),
			zap.String("old_role", string(event.OldRole)),
			zap.String("new_role", string(event.NewRole)),
			zap.Int("changed_by", event.ChangedBy),
		)
	}
}

// normalizeStored reads a stored role; unrecognized values count as no role.
func normalizeStored(stored types.Role) types.Role {
	role, ok := authz.ParseRole(string(stored))
	if !ok {
		return ""
	}
	return role
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrLastAdminProtected),
		errors.Is(err, ErrSelfDemotionForbidden),
		errors.Is(err, ErrNoChanges),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, store.ErrNotFound):
		return "rejected"
	default:
		return "error"
	}
}

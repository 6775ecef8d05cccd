package services

import (
	"context"
	"time"

	"github.com/musicclub/apiserver/types"
)

// MemberRepository defines persistence operations for the roster.
type MemberRepository interface {
	List(ctx context.Context) ([]types.Member, error)
	Get(ctx context.Context, id int) (types.Member, error)
	ListNonMembers(ctx context.Context) ([]types.NonMember, error)
	Create(ctx context.Context, userID int, joinDate string, status types.MemberStatus) (types.Member, error)
	UpdateStatus(ctx context.Context, id int, status types.MemberStatus) error
	UserID(ctx context.Context, id int) (int, error)
	Delete(ctx context.Context, id int) error
}

// UserLookup finds accounts by id.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// RoleChanger is the single-role mutation used by roster role edits.
type RoleChanger interface {
	ChangeRole(ctx context.Context, callerID, targetID int, rawRole string) (types.RoleChangeEvent, error)
}

// MemberService manages the club roster.
type MemberService struct {
	repo  MemberRepository
	users UserLookup
	roles RoleChanger
	now   func() time.Time
}

func NewMemberService(repo MemberRepository, users UserLookup, roles RoleChanger) *MemberService {
	return &MemberService{repo: repo, users: users, roles: roles, now: time.Now}
}

func (s *MemberService) List(ctx context.Context) ([]types.Member, error) {
	return s.repo.List(ctx)
}

func (s *MemberService) Get(ctx context.Context, id int) (types.Member, error) {
	return s.repo.Get(ctx, id)
}

func (s *MemberService) ListNonMembers(ctx context.Context) ([]types.NonMember, error) {
	return s.repo.ListNonMembers(ctx)
}

// Create enrolls an existing user. joinDate defaults to today and status to active.
func (s *MemberService) Create(ctx context.Context, userID int, joinDate string, status types.MemberStatus) (types.Member, error) {
	if userID <= 0 {
		return types.Member{}, invalidInput("user_id is required")
	}
	if joinDate == "" {
		joinDate = s.now().Format(dateLayout)
	} else if _, err := checkDate("join_date", joinDate); err != nil {
		return types.Member{}, err
	}
	if status == "" {
		status = types.MemberActive
	}
	if !status.Valid() {
		return types.Member{}, invalidInput("status must be active or inactive")
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return types.Member{}, err
	}
	return s.repo.Create(ctx, userID, joinDate, status)
}

func (s *MemberService) UpdateStatus(ctx context.Context, id int, status types.MemberStatus) error {
	if !status.Valid() {
		return invalidInput("status must be active or inactive")
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// ChangeRole changes the account role of the member's user through the role service.
func (s *MemberService) ChangeRole(ctx context.Context, callerID, memberID int, rawRole string) (types.RoleChangeEvent, error) {
	userID, err := s.repo.UserID(ctx, memberID)
	if err != nil {
		return types.RoleChangeEvent{}, err
	}
	return s.roles.ChangeRole(ctx, callerID, userID, rawRole)
}

func (s *MemberService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

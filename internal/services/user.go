package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/musicclub/apiserver/internal/auth"
	"github.com/musicclub/apiserver/internal/authz"
	"github.com/musicclub/apiserver/internal/store"
	"github.com/musicclub/apiserver/types"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

const minPasswordLength = 6

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	List(ctx context.Context, filter types.UserFilter) ([]types.User, int, error)
}

// Registration is the self-service sign-up payload.
type Registration struct {
	Prefix    string
	FirstName string
	LastName  string
	Email     string
	Password  string
	Faculty   string
}

// UserService encapsulates account use-cases. Roles are never set here; see RoleService.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(email))
}

// List returns users newest first. An unknown role filter is rejected.
func (s *UserService) List(ctx context.Context, filter types.UserFilter) ([]types.User, int, error) {
	if filter.Role != "" {
		role, ok := authz.ParseRole(string(filter.Role))
		if !ok {
			return nil, 0, ErrInvalidRole
		}
		filter.Role = role
	}
	return s.repo.List(ctx, filter)
}

// Register creates a Member account. Every self-registered account starts as Member.
func (s *UserService) Register(ctx context.Context, reg Registration) (types.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)

	if reg.FirstName == "" || reg.LastName == "" {
		return types.User{}, invalidInput("first and last name are required")
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return types.User{}, invalidInput("email %q is not valid", reg.Email)
	}
	if len(reg.Password) < minPasswordLength {
		return types.User{}, invalidInput("password must be at least %d characters", minPasswordLength)
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(ctx, types.User{
		Email:        reg.Email,
		Role:         types.RoleMember,
		Prefix:       strings.TrimSpace(reg.Prefix),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Faculty:      strings.TrimSpace(reg.Faculty),
		PasswordHash: hash,
	})
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/internal/session"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

// SessionIssuer starts and ends login sessions.
type SessionIssuer interface {
	Start(ctx context.Context, w http.ResponseWriter, identity types.Identity) (session.Session, error)
	Destroy(w http.ResponseWriter, r *http.Request) error
}

// AuthHandler provides cookie-session authentication endpoints.
type AuthHandler struct {
	userService *services.UserService
	roleService *services.RoleService
	sessions    SessionIssuer
	logger      *zap.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, roleService *services.RoleService, sessions SessionIssuer, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		userService: userService,
		roleService: roleService,
		sessions:    sessions,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(
	r chi.Router,
	userService *services.UserService,
	roleService *services.RoleService,
	sessions SessionIssuer,
	gate *Gate,
	logger *zap.Logger,
) {
	handler := NewAuthHandler(userService, roleService, sessions, logger)

	r.Post("/login", handler.Login)
	r.Post("/register", handler.Register)
	r.Post("/logout", handler.Logout)
	r.With(gate.RequireAuth()).Get("/me", handler.Me)
	r.With(gate.RequireAuth()).Get("/getUser", handler.GetUser)
	r.With(gate.RequireAdmin()).Get("/getAllUsers", handler.GetAllUsers)
	r.With(gate.RequireAdmin()).Put("/updateRole/{userID}", handler.UpdateRole)
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if _, err := h.sessions.Start(r.Context(), w, user.Identity()); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user logged in", zap.Int("user_id", user.ID), zap.String("role", user.Role.String()))
	writeJSON(w, http.StatusOK, LoginResponse{Message: "logged in", User: user.Identity()})
}

// Register creates a Member account. It does not log the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), services.Registration{
		Prefix:    req.Prefix,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Faculty:   req.Faculty,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, LoginResponse{Message: "registered", User: user.Identity()})
}

// Logout destroys the session and expires the cookie. It succeeds without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "logged out")
}

// Me returns the authenticated identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, MeResponse{User: identity})
}

// GetUser returns the authenticated identity as a flat profile.
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, UserProfile{
		ID:      identity.ID,
		Email:   identity.Email,
		Name:    displayName(identity.Prefix, identity.FirstName, identity.LastName),
		Role:    identity.Role,
		Faculty: identity.Faculty,
	})
}

// GetAllUsers lists every account, newest first.
func (h *AuthHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	users, total, err := h.userService.List(r.Context(), types.UserFilter{})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	profiles := make([]UserProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, profileOf(u))
	}
	writeJSON(w, http.StatusOK, UserListResponse{Users: profiles, Total: total})
}

// UpdateRole is the legacy single role change endpoint.
func (h *AuthHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	targetID, err := parseID(r, "userID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req RoleRequest
	if !bind(w, r, &req) {
		return
	}

	caller, _ := IdentityFromContext(r.Context())
	event, err := h.roleService.ChangeRole(r.Context(), caller.ID, targetID, req.Role)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LegacyRoleResponse{Message: "role updated", UpdatedRole: event.NewRole})
}

func displayName(prefix, first, last string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{prefix, first, last} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func profileOf(u types.User) UserProfile {
	created := u.CreatedAt
	return UserProfile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      displayName(u.Prefix, u.FirstName, u.LastName),
		Role:      u.Role,
		Faculty:   u.Faculty,
		CreatedAt: &created,
	}
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the self-service sign-up payload. Any role field is ignored.
type RegisterRequest struct {
	Prefix    string `json:"prefix"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Faculty   string `json:"faculty"`
}

// RoleRequest carries a requested role.
type RoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// LoginResponse is returned by login and register.
type LoginResponse struct {
	Message string         `json:"message"`
	User    types.Identity `json:"user"`
}

// MeResponse wraps the current identity.
type MeResponse struct {
	User types.Identity `json:"user"`
}

// UserProfile is the flattened user view.
type UserProfile struct {
	ID        int        `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      types.Role `json:"role"`
	Faculty   string     `json:"faculty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// UserListResponse lists user profiles.
type UserListResponse struct {
	Users []UserProfile `json:"users"`
	Total int           `json:"total"`
}

// LegacyRoleResponse is the body of /updateRole.
type LegacyRoleResponse struct {
	Message     string     `json:"message"`
	UpdatedRole types.Role `json:"updatedRole"`
}

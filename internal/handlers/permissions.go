package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

// PermissionsHandler exposes role administration.
type PermissionsHandler struct {
	userService *services.UserService
	roleService *services.RoleService
	logger      *zap.Logger
}

func NewPermissionsHandler(userService *services.UserService, roleService *services.RoleService, logger *zap.Logger) *PermissionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionsHandler{
		userService: userService,
		roleService: roleService,
		logger:      logger,
	}
}

// PermissionsRouter registers role administration routes.
func PermissionsRouter(
	r chi.Router,
	userService *services.UserService,
	roleService *services.RoleService,
	gate *Gate,
	logger *zap.Logger,
) {
	handler := NewPermissionsHandler(userService, roleService, logger)

	r.With(gate.RequireAuth()).Get("/roles", handler.ListRoles)
	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAdmin())
		r.Get("/users", handler.ListUsers)
		r.Post("/users/bulk", handler.BulkUpdateRoles)
		r.Get("/users/{userID}", handler.GetUser)
		r.Put("/users/{userID}/role", handler.UpdateRole)
	})
}

func (h *PermissionsHandler) ListRoles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RolesResponse{Roles: types.Roles})
}

// ListUsers lists accounts, optionally filtered by ?role=.
func (h *PermissionsHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	filter := types.UserFilter{
		Role:   types.Role(strings.TrimSpace(r.URL.Query().Get("role"))),
		Offset: offset,
		Limit:  limit,
	}
	users, total, err := h.userService.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	profiles := make([]UserProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, profileOf(u))
	}
	writeJSON(w, http.StatusOK, PagedUsersResponse{
		Users: profiles,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *PermissionsHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		badRequest(w, err)
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

// UpdateRole changes one user's role.
func (h *PermissionsHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, RoleChangeResponse{
		Message: "role updated",
		ID:      targetID,
		Role:    event.NewRole,
	})
}

// BulkUpdateRoles applies a batch of role changes atomically.
func (h *PermissionsHandler) BulkUpdateRoles(w http.ResponseWriter, r *http.Request) {
	var req BulkRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	changes := make([]types.RoleChange, 0, len(req.Changes))
	for _, c := range req.Changes {
		changes = append(changes, types.RoleChange{UserID: int(c.ID), Role: types.Role(c.Role)})
	}

	caller, _ := IdentityFromContext(r.Context())
	count, err := h.roleService.ChangeRolesBulk(r.Context(), caller.ID, changes)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, BulkRoleResponse{Message: "roles updated", Count: count})
}

// flexibleID accepts a user id as a JSON number or a numeric string.
type flexibleID int

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return errors.New("id must be an integer")
	}
	*f = flexibleID(n)
	return nil
}

// BulkRoleRequest is the bulk role change payload.
type BulkRoleRequest struct {
	Changes []BulkRoleChange `json:"changes"`
}

type BulkRoleChange struct {
	ID   flexibleID `json:"id"`
	Role string     `json:"role"`
}

type RolesResponse struct {
	Roles []types.Role `json:"roles"`
}

type PagedUsersResponse struct {
	Users []UserProfile `json:"users"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int           `json:"total"`
}

type UserResponse struct {
	User types.User `json:"user"`
}

type RoleChangeResponse struct {
	Message string     `json:"message"`
	ID      int        `json:"id"`
	Role    types.Role `json:"role"`
}

type BulkRoleResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

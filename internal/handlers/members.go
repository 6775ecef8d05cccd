package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

// MemberHandler serves the club roster.
type MemberHandler struct {
	memberService *services.MemberService
	logger        *zap.Logger
}

func NewMemberHandler(memberService *services.MemberService, logger *zap.Logger) *MemberHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemberHandler{memberService: memberService, logger: logger}
}

// MemberRouter registers roster routes, including the legacy action paths.
func MemberRouter(r chi.Router, memberService *services.MemberService, gate *Gate, logger *zap.Logger) {
	handler := NewMemberHandler(memberService, logger)

	staff := gate.RequireAdminOrCommittee()
	admin := gate.RequireAdmin()

	r.With(staff).Get("/non-members", handler.ListNonMembers)
	r.With(staff).Get("/getNonMembers", handler.ListNonMembers)

	r.With(gate.RequireAuth()).Get("/", handler.ListMembers)
	r.With(staff).Post("/", handler.CreateMember)

	r.With(staff).Put("/updateMemberStatus/{memberID}", handler.UpdateStatus)
	r.With(admin).Put("/updateMemberRole/{memberID}", handler.UpdateRole)
	r.With(admin).Delete("/deleteMember/{memberID}", handler.DeleteMember)

	r.Route("/{memberID}", func(r chi.Router) {
		r.With(gate.RequireAuth()).Get("/", handler.GetMember)
		r.With(staff).Put("/status", handler.UpdateStatus)
		r.With(admin).Put("/role", handler.UpdateRole)
		r.With(admin).Delete("/", handler.DeleteMember)
	})
}

// NonMembersRouter registers the /api/users alias for the non-member listing.
func NonMembersRouter(r chi.Router, memberService *services.MemberService, gate *Gate, logger *zap.Logger) {
	handler := NewMemberHandler(memberService, logger)
	r.With(gate.RequireAdminOrCommittee()).Get("/non-members", handler.ListNonMembers)
}

func (h *MemberHandler) ListNonMembers(w http.ResponseWriter, r *http.Request) {
	users, err := h.memberService.ListNonMembers(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.memberService.List(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "memberID")
	if err != nil {
		badRequest(w, err)
		return
	}

	member, err := h.memberService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if !bind(w, r, &req) {
		return
	}

	member, err := h.memberService.Create(r.Context(), req.UserID, req.JoinDate, req.Status)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, MemberResponse{Message: "member added", Member: member})
}

func (h *MemberHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "memberID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req MemberStatusRequest
	if !bind(w, r, &req) {
		return
	}

	if err := h.memberService.UpdateStatus(r.Context(), id, req.Status); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "member status updated")
}

// UpdateRole changes the account role of the member's user.
func (h *MemberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "memberID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req RoleRequest
	if !bind(w, r, &req) {
		return
	}

	caller, _ := IdentityFromContext(r.Context())
	event, err := h.memberService.ChangeRole(r.Context(), caller.ID, id, req.Role)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MemberRoleResponse{
		Message: "role updated",
		Member: MemberRole{
			ID:     id,
			UserID: event.UserID,
			Role:   event.NewRole,
		},
	})
}

func (h *MemberHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "memberID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.memberService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "member deleted")
}

// CreateMemberRequest enrolls an existing user.
type CreateMemberRequest struct {
	UserID   int                `json:"user_id" validate:"required,gt=0"`
	JoinDate string             `json:"join_date"`
	Status   types.MemberStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

type MemberStatusRequest struct {
	Status types.MemberStatus `json:"status" validate:"required,oneof=active inactive"`
}

type MemberResponse struct {
	Message string       `json:"message"`
	Member  types.Member `json:"member"`
}

type MemberRole struct {
	ID     int        `json:"id"`
	UserID int        `json:"user_id"`
	Role   types.Role `json:"role"`
}

type MemberRoleResponse struct {
	Message string     `json:"message"`
	Member  MemberRole `json:"member"`
}

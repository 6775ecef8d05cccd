package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

type BandHandler struct {
	bandService *services.BandService
	logger      *zap.Logger
}

func NewBandHandler(bandService *services.BandService, logger *zap.Logger) *BandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BandHandler{bandService: bandService, logger: logger}
}

// BandRouter registers band routes, including the legacy action paths.
func BandRouter(r chi.Router, bandService *services.BandService, gate *Gate, logger *zap.Logger) {
	handler := NewBandHandler(bandService, logger)

	authed := gate.RequireAuth()
	staff := gate.RequireAdminOrCommittee()
	admin := gate.RequireAdmin()

	r.With(authed).Get("/", handler.ListBands)
	r.With(authed).Get("/getAllBands", handler.ListBands)
	r.With(staff).Post("/", handler.CreateBand)
	r.With(authed).Get("/getBand/{bandID}", handler.GetBand)
	r.With(staff).Put("/updateBand/{bandID}", handler.UpdateBand)
	r.With(admin).Delete("/deleteBand/{bandID}", handler.DeleteBand)

	r.Route("/{bandID}", func(r chi.Router) {
		r.With(authed).Get("/", handler.GetBand)
		r.With(staff).Put("/", handler.UpdateBand)
		r.With(admin).Delete("/", handler.DeleteBand)

		r.With(staff).Post("/members", handler.AddMember)
		r.With(staff).Put("/members", handler.ReplaceMembers)
		r.With(staff).Delete("/members/{memberID}", handler.RemoveMember)
	})
}

func (h *BandHandler) ListBands(w http.ResponseWriter, r *http.Request) {
	bands, err := h.bandService.List(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bands)
}

func (h *BandHandler) GetBand(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "bandID")
	if err != nil {
		badRequest(w, err)
		return
	}

	band, err := h.bandService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, band)
}

// CreateBand creates a band and its optional initial lineup in one transaction.
func (h *BandHandler) CreateBand(w http.ResponseWriter, r *http.Request) {
	var req BandRequest
	if !bind(w, r, &req) {
		return
	}

	band, err := h.bandService.Create(r.Context(), req.input())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, BandResponse{Message: "band created", Band: band})
}

func (h *BandHandler) UpdateBand(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "bandID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req BandRequest
	if !bind(w, r, &req) {
		return
	}

	band, err := h.bandService.Update(r.Context(), id, req.input())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, band)
}

// DeleteBand removes a band. Bands with schedules are refused.
func (h *BandHandler) DeleteBand(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "bandID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.bandService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "band deleted")
}

func (h *BandHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "bandID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req types.BandMemberInput
	if !bind(w, r, &req) {
		return
	}

	if err := h.bandService.AddMember(r.Context(), id, req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "band member added")
}

// ReplaceMembers swaps the whole lineup.
func (h *BandHandler) ReplaceMembers(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "bandID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req BandLineupRequest
	if !bind(w, r, &req) {
		return
	}

	if err := h.bandService.ReplaceMembers(r.Context(), id, req.Members); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "band members updated")
}

func (h *BandHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	bandID, err := parseID(r, "bandID")
	if err != nil {
		badRequest(w, err)
		return
	}
	memberID, err := parseID(r, "memberID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.bandService.RemoveMember(r.Context(), bandID, memberID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "band member removed")
}

// BandRequest creates or edits a band. Members is only used on create.
type BandRequest struct {
	Name        string                  `json:"name" validate:"required"`
	Year        int                     `json:"year" validate:"required"`
	Description *string                 `json:"description"`
	Members     []types.BandMemberInput `json:"members" validate:"dive"`
}

func (req BandRequest) input() services.BandInput {
	return services.BandInput{
		Name:        req.Name,
		Year:        req.Year,
		Description: req.Description,
		Members:     req.Members,
	}
}

type BandLineupRequest struct {
	Members []types.BandMemberInput `json:"members" validate:"dive"`
}

type BandResponse struct {
	Message string     `json:"message"`
	Band    types.Band `json:"band"`
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

type SiteHandler struct {
	siteService *services.SiteService
	logger      *zap.Logger
}

func NewSiteHandler(siteService *services.SiteService, logger *zap.Logger) *SiteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SiteHandler{siteService: siteService, logger: logger}
}

// SiteRouter registers the landing page content routes. Reads are public.
func SiteRouter(r chi.Router, siteService *services.SiteService, gate *Gate, logger *zap.Logger) {
	handler := NewSiteHandler(siteService, logger)

	r.Get("/home", handler.GetHome)
	r.With(gate.RequireAdmin()).Put("/home", handler.UpdateHome)
}

func (h *SiteHandler) GetHome(w http.ResponseWriter, r *http.Request) {
	home, err := h.siteService.Home(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SiteHomeResponse{Home: home})
}

// UpdateHome merges the posted keys over the stored content.
func (h *SiteHandler) UpdateHome(w http.ResponseWriter, r *http.Request) {
	patch := types.SiteHome{}
	if err := decodeJSON(r, &patch); err != nil {
		badRequest(w, err)
		return
	}

	home, err := h.siteService.UpdateHome(r.Context(), patch)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SiteHomeResponse{Message: "saved", Home: home})
}

type SiteHomeResponse struct {
	Message string         `json:"message,omitempty"`
	Home    types.SiteHome `json:"home"`
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

type EquipmentHandler struct {
	equipmentService *services.EquipmentService
	logger           *zap.Logger
}

func NewEquipmentHandler(equipmentService *services.EquipmentService, logger *zap.Logger) *EquipmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentHandler{equipmentService: equipmentService, logger: logger}
}

func EquipmentRouter(r chi.Router, equipmentService *services.EquipmentService, gate *Gate, logger *zap.Logger) {
	handler := NewEquipmentHandler(equipmentService, logger)

	authed := gate.RequireAuth()
	staff := gate.RequireAdminOrCommittee()

	r.With(authed).Get("/", handler.ListEquipment)
	r.With(staff).Post("/", handler.CreateEquipment)
	r.Route("/{equipmentID}", func(r chi.Router) {
		r.With(authed).Get("/", handler.GetEquipment)
		r.With(staff).Put("/", handler.UpdateEquipment)
		r.With(staff).Delete("/", handler.DeleteEquipment)
	})
}

func (h *EquipmentHandler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := h.equipmentService.List(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *EquipmentHandler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "equipmentID")
	if err != nil {
		badRequest(w, err)
		return
	}

	item, err := h.equipmentService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *EquipmentHandler) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req EquipmentRequest
	if !bind(w, r, &req) {
		return
	}

	item, err := h.equipmentService.Create(r.Context(), req.equipment())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *EquipmentHandler) UpdateEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "equipmentID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req EquipmentRequest
	if !bind(w, r, &req) {
		return
	}

	item, err := h.equipmentService.Update(r.Context(), id, req.equipment())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *EquipmentHandler) DeleteEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "equipmentID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.equipmentService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "equipment deleted")
}

type EquipmentRequest struct {
	Name   string `json:"name" validate:"required"`
	Code   string `json:"code" validate:"required"`
	Status string `json:"status" validate:"required"`
}

func (req EquipmentRequest) equipment() types.Equipment {
	return types.Equipment{Name: req.Name, Code: req.Code, Status: req.Status}
}

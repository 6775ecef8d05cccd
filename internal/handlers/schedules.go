package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

type ScheduleHandler struct {
	scheduleService *services.ScheduleService
	logger          *zap.Logger
}

func NewScheduleHandler(scheduleService *services.ScheduleService, logger *zap.Logger) *ScheduleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleHandler{scheduleService: scheduleService, logger: logger}
}

// ScheduleRouter registers schedule routes, including the legacy action paths.
func ScheduleRouter(r chi.Router, scheduleService *services.ScheduleService, gate *Gate, logger *zap.Logger) {
	handler := NewScheduleHandler(scheduleService, logger)

	authed := gate.RequireAuth()
	staff := gate.RequireAdminOrCommittee()

	r.With(authed).Get("/", handler.ListSchedules)
	r.With(staff).Post("/", handler.CreateSchedule)
	r.With(staff).Post("/add", handler.CreateSchedule)
	r.With(authed).Get("/get/{scheduleID}", handler.GetSchedule)
	r.With(staff).Put("/update/{scheduleID}", handler.UpdateSchedule)
	r.With(staff).Delete("/delete/{scheduleID}", handler.DeleteSchedule)

	r.Route("/{scheduleID}", func(r chi.Router) {
		r.With(authed).Get("/", handler.GetSchedule)
		r.With(staff).Put("/", handler.UpdateSchedule)
		r.With(staff).Delete("/", handler.DeleteSchedule)
	})
}

// ListSchedules supports band_id, activity, date_from and date_to filters.
func (h *ScheduleHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	filter, err := parseScheduleFilter(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	schedules, err := h.scheduleService.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "scheduleID")
	if err != nil {
		badRequest(w, err)
		return
	}

	schedule, err := h.scheduleService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if !bind(w, r, &req) {
		return
	}

	schedule, err := h.scheduleService.Create(r.Context(), req.schedule())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ScheduleResponse{Message: "schedule added", Schedule: schedule})
}

func (h *ScheduleHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "scheduleID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req ScheduleRequest
	if !bind(w, r, &req) {
		return
	}

	schedule, err := h.scheduleService.Update(r.Context(), id, req.schedule())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{Message: "schedule updated", Schedule: schedule})
}

func (h *ScheduleHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "scheduleID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.scheduleService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "schedule deleted")
}

func parseScheduleFilter(r *http.Request) (types.ScheduleFilter, error) {
	q := r.URL.Query()
	filter := types.ScheduleFilter{
		Activity: types.Activity(strings.TrimSpace(q.Get("activity"))),
		DateFrom: strings.TrimSpace(q.Get("date_from")),
		DateTo:   strings.TrimSpace(q.Get("date_to")),
	}
	if raw := strings.TrimSpace(q.Get("band_id")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			return types.ScheduleFilter{}, errors.New("invalid band_id")
		}
		filter.BandID = id
	}
	return filter, nil
}

// ScheduleRequest books a band slot.
type ScheduleRequest struct {
	BandID   int            `json:"band_id" validate:"required,gt=0"`
	Activity types.Activity `json:"activity" validate:"required,oneof=rehearsal performance"`
	Date     string         `json:"date" validate:"required"`
	Time     string         `json:"time" validate:"required"`
	Location string         `json:"location" validate:"required"`
}

func (req ScheduleRequest) schedule() types.Schedule {
	return types.Schedule{
		BandID:   req.BandID,
		Activity: req.Activity,
		Date:     req.Date,
		Time:     req.Time,
		Location: req.Location,
	}
}

type ScheduleResponse struct {
	Message  string         `json:"message"`
	Schedule types.Schedule `json:"schedule"`
}

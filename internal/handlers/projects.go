package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	logger         *zap.Logger
}

func NewProjectHandler(projectService *services.ProjectService, logger *zap.Logger) *ProjectHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectHandler{projectService: projectService, logger: logger}
}

func ProjectRouter(r chi.Router, projectService *services.ProjectService, gate *Gate, logger *zap.Logger) {
	handler := NewProjectHandler(projectService, logger)

	authed := gate.RequireAuth()
	staff := gate.RequireAdminOrCommittee()

	r.With(authed).Get("/", handler.ListProjects)
	r.With(staff).Post("/", handler.CreateProject)
	r.Route("/{projectID}", func(r chi.Router) {
		r.With(authed).Get("/", handler.GetProject)
		r.With(staff).Put("/", handler.UpdateProject)
		r.With(staff).Delete("/", handler.DeleteProject)
	})
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.List(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "projectID")
	if err != nil {
		badRequest(w, err)
		return
	}

	project, err := h.projectService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if !bind(w, r, &req) {
		return
	}

	project, err := h.projectService.Create(r.Context(), req.project())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "projectID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req ProjectRequest
	if !bind(w, r, &req) {
		return
	}

	project, err := h.projectService.Update(r.Context(), id, req.project())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "projectID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.projectService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "project deleted")
}

// ProjectRequest creates or replaces a project. Status defaults to pending.
type ProjectRequest struct {
	Name        string              `json:"name" validate:"required"`
	Description *string             `json:"description"`
	Budget      decimal.Decimal     `json:"budget"`
	StartDate   string              `json:"start_date" validate:"required"`
	EndDate     string              `json:"end_date" validate:"required"`
	Status      types.ProjectStatus `json:"status"`
}

func (req ProjectRequest) project() types.Project {
	return types.Project{
		Name:        req.Name,
		Description: req.Description,
		Budget:      req.Budget,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
	}
}

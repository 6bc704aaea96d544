package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/keepstone/keepstone/internal/api/shared"
	"github.com/keepstone/keepstone/internal/service"
	"github.com/keepstone/keepstone/internal/settings"
)

// ProjectHandler serves the project endpoints and per-project settings.
type ProjectHandler struct {
	projects service.ProjectService
	settings *settings.ProjectResolver
}

// NewProjectHandler creates a ProjectHandler.
func NewProjectHandler(projects service.ProjectService, resolver *settings.ProjectResolver) *ProjectHandler {
	return &ProjectHandler{projects: projects, settings: resolver}
}

// Routes mounts the handler under /api/projects.
func (h *ProjectHandler) Routes(r chi.Router) {
	r.Post("/", h.CreateProject)
	r.Get("/", h.ListProjects)
	r.Route("/{projectID}", func(r chi.Router) {
		r.Get("/", h.GetProject)
		r.Delete("/", h.DeleteProject)
		r.Get("/settings", h.GetProjectSettings)
		r.Put("/settings", h.UpdateProjectSettings)
		r.Get("/settings/view", h.GetProjectSettingsView)
	})
}

// CreateProject handles POST /api/projects.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	project, err := h.projects.CreateProject(r.Context(), req.Name, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create project")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, projectToResponse(project))
}

// ListProjects handles GET /api/projects.
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.ListProjects(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list projects")
		return
	}
	out := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectToResponse(p))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// GetProject handles GET /api/projects/{projectID}.
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "projectID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	project, err := h.projects.GetProject(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load project")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, projectToResponse(project))
}

// DeleteProject handles DELETE /api/projects/{projectID}.
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "projectID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.projects.DeleteProject(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProjectSettings handles GET /api/projects/{projectID}/settings.
func (h *ProjectHandler) GetProjectSettings(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "projectID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	tree, err := h.settings.Resolve(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load project settings")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tree)
}

// GetProjectSettingsView handles GET /api/projects/{projectID}/settings/view.
func (h *ProjectHandler) GetProjectSettingsView(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "projectID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	sections, err := h.settings.View(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load project settings")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sections)
}

// UpdateProjectSettings handles PUT /api/projects/{projectID}/settings.
func (h *ProjectHandler) UpdateProjectSettings(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "projectID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if _, err := h.projects.GetProject(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to load project")
		return
	}

	var req UpdateSettingsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.settings.SetMany(r.Context(), id, req.Values))
}

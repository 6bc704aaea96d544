package api

import (
	"time"

	"github.com/keepstone/keepstone/internal/domain"
)

// UpdateSettingsRequest is the body of PUT /api/settings and
// PUT /api/projects/{projectID}/settings.
type UpdateSettingsRequest struct {
	Values map[string]any `json:"values" validate:"required,min=1"`
}

// SettingResponse is a single resolved key.
type SettingResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// ProjectResponse is the API representation of a project.
type ProjectResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

func projectToResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		IsDefault:   p.IsDefault,
		CreatedAt:   p.CreatedAt,
	}
}

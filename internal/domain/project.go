package domain

import (
	"strings"
	"time"
)

// Validation errors for Project
var (
	ErrEmptyProjectName   = validationError("project name cannot be empty")
	ErrProjectNameTooLong = validationError("project name cannot exceed 100 characters")
)

// maxProjectNameLength mirrors the projects.name column width.
const maxProjectNameLength = 100

// Project groups artifacts and owns an independent copy of the
// project-scoped settings.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewProject creates a validated project. The ID is assigned by the store.
func NewProject(name, description string) (*Project, error) {
	p := &Project{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks if the Project has valid data.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyProjectName
	}
	if len(p.Name) > maxProjectNameLength {
		return ErrProjectNameTooLong
	}
	return nil
}

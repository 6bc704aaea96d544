package domain

import (
	"strings"
	"time"
)

// Validation errors for configuration overrides.
var (
	ErrEmptyConfigKey       = validationError("config key cannot be empty")
	ErrInvalidConfigKey     = validationError("config key has an empty path segment")
	ErrEmptyOverrideProject = validationError("project override requires a project ID")
)

// ConfigOverride is a persisted global value that supersedes a default.
// Value holds JSON for lists and maps and the plain string form otherwise.
type ConfigOverride struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the override's key.
func (o *ConfigOverride) Validate() error {
	return validateConfigKey(o.Key)
}

// ProjectConfigOverride is a persisted per-project value for a
// project-scoped key.
type ProjectConfigOverride struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the override's project and key.
func (o *ProjectConfigOverride) Validate() error {
	if o.ProjectID <= 0 {
		return ErrEmptyOverrideProject
	}
	return validateConfigKey(o.Key)
}

func validateConfigKey(key string) error {
	if key == "" {
		return ErrEmptyConfigKey
	}
	for _, part := range strings.Split(key, ".") {
		if part == "" {
			return ErrInvalidConfigKey
		}
	}
	return nil
}

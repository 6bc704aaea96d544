package domain

import "time"

// ArtifactTypeToken is the artifact type whose expiry triggers notifications.
const ArtifactTypeToken = "Token"

// Validation errors for Artifact
var (
	ErrEmptyArtifactName    = validationError("artifact name cannot be empty")
	ErrEmptyArtifactType    = validationError("artifact type cannot be empty")
	ErrEmptyArtifactProject = validationError("artifact requires a project ID")
)

// Artifact is a tracked item such as a token or credential. ExpiryDate is
// nil for artifacts that never expire.
type Artifact struct {
	ID         int64      `json:"id"`
	ProjectID  int64      `json:"project_id"`
	Name       string     `json:"name"`
	UsedFor    string     `json:"used_for"`
	Type       string     `json:"type"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Validate checks if the Artifact has valid data.
func (a *Artifact) Validate() error {
	if a.ProjectID <= 0 {
		return ErrEmptyArtifactProject
	}
	if a.Name == "" {
		return ErrEmptyArtifactName
	}
	if a.Type == "" {
		return ErrEmptyArtifactType
	}
	return nil
}

// DaysUntilExpiry returns the number of whole days between the start of
// today and the expiry date. ok is false when the artifact has no expiry.
func (a *Artifact) DaysUntilExpiry(today time.Time) (days int, ok bool) {
	if a.ExpiryDate == nil {
		return 0, false
	}
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	ey, em, ed := a.ExpiryDate.In(today.Location()).Date()
	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, today.Location())
	return int(expiry.Sub(start).Hours() / 24), true
}

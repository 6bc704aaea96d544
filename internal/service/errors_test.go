package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectServiceError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProjectServiceError
		expected string
	}{
		{
			name:     "with underlying error",
			err:      NewProjectServiceError("create", "failed to seed project settings", errors.New("db down")),
			expected: "project service create failed: failed to seed project settings: db down",
		},
		{
			name:     "without underlying error",
			err:      NewProjectServiceError("delete", "nothing to do", nil),
			expected: "project service delete failed: nothing to do",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestProjectServiceError_Unwrap(t *testing.T) {
	base := errors.New("database connection lost")
	err := error(NewProjectServiceError("create", "insert failed", base))

	assert.True(t, errors.Is(err, base))

	var target *ProjectServiceError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "create", target.Operation)
	assert.Nil(t, NewProjectServiceError("get", "x", nil).Unwrap())
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/settings"
	"github.com/keepstone/keepstone/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{fmt.Errorf("project 4: %w", store.ErrProjectNotFound), http.StatusNotFound, "Project not found"},
		{store.NewStoreError("project", "create", "insert failed", store.ErrProjectNameExists), http.StatusConflict, "Project name already exists"},
		{&settings.KeyError{Key: "storage.path", Op: "write", Err: settings.ErrNotEditable}, http.StatusForbidden, "Setting is not editable"},
		{settings.ErrInvalidValue, http.StatusBadRequest, "Value does not match the setting's type"},
		{settings.ErrKeyConflict, http.StatusBadRequest, "Setting key conflicts with another key"},
		{fmt.Errorf("%w: line 3", settings.ErrInvalidDefaults), http.StatusUnprocessableEntity, "Defaults document is invalid"},
		{domain.ErrProjectNameTooLong, http.StatusBadRequest, "Project name is too long"},
		{fmt.Errorf("%w: projectID \"x\"", ErrInvalidID), http.StatusBadRequest, "Invalid ID"},
		{fmt.Errorf("%w: list overrides: dial tcp 10.0.0.1:5432", settings.ErrPersistence), http.StatusInternalServerError, "An unexpected error occurred"},
		{errors.New("boom"), http.StatusInternalServerError, "An unexpected error occurred"},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.status, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.msg, GetSafeErrorMessage(tc.err))
		})
	}

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

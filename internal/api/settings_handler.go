package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/keepstone/keepstone/internal/api/shared"
	"github.com/keepstone/keepstone/internal/platform/logger"
	"github.com/keepstone/keepstone/internal/settings"
)

// SettingsHandler serves the global settings endpoints.
type SettingsHandler struct {
	resolver *settings.Resolver
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(resolver *settings.Resolver) *SettingsHandler {
	return &SettingsHandler{resolver: resolver}
}

// Routes mounts the handler under /api/settings.
func (h *SettingsHandler) Routes(r chi.Router) {
	r.Get("/", h.GetSettings)
	r.Put("/", h.UpdateSettings)
	r.Get("/view", h.GetView)
	r.Get("/keys/*", h.GetSetting)
	r.Post("/reset", h.ResetSettings)
	r.Post("/reload", h.ReloadDefaults)
}

// GetSettings handles GET /api/settings. It always answers with a tree; when
// the override store fails the defaults are served.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.resolver.Load(r.Context()))
}

// GetView handles GET /api/settings/view.
func (h *SettingsHandler) GetView(w http.ResponseWriter, r *http.Request) {
	sections, err := h.resolver.View(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load settings")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sections)
}

// GetSetting handles GET /api/settings/keys/{key}, where key is the dotted path.
func (h *SettingsHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := strings.Trim(chi.URLParam(r, "*"), "/")
	if key == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Setting key is required")
		return
	}

	value, err := h.resolver.Lookup(r.Context(), key)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load setting")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SettingResponse{Key: key, Value: value})
}

// UpdateSettings handles PUT /api/settings. Keys are applied independently;
// the response lists the applied and rejected keys.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result := h.resolver.SetMany(r.Context(), req.Values)
	logger.FromContext(r.Context()).Info("settings updated",
		slog.Int("applied", len(result.Applied)),
		slog.Int("rejected", len(result.Rejected)))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ResetSettings handles POST /api/settings/reset.
func (h *SettingsHandler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.Reset(r.Context()); err != nil {
		HandleAPIError(w, r, err, "Failed to reset settings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReloadDefaults handles POST /api/settings/reload.
func (h *SettingsHandler) ReloadDefaults(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.ReloadDefaults(); err != nil {
		HandleAPIError(w, r, err, "Failed to reload defaults")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

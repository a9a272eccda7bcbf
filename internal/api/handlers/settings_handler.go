package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"arbot/internal/service"
)

// SettingsHandler отвечает за управление глобальными настройками бота
//
// Endpoints:
// - GET /api/v1/settings - текущие настройки
// - PATCH /api/v1/settings - частичное обновление
type SettingsHandler struct {
	settingsService service.SettingsServiceInterface
}

// NewSettingsHandler создает новый SettingsHandler с внедрением зависимости
func NewSettingsHandler(settingsService service.SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetSettings возвращает текущие глобальные настройки
// GET /api/v1/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.GetSettings()
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to get settings: "+err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, settings)
}

// UpdateSettings обновляет глобальные настройки
// PATCH /api/v1/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	settings, err := h.settingsService.UpdateSettings(&req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidMaxConcurrentTrades) {
			h.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update settings: "+err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

func (h *SettingsHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

package httpapi

import (
	"net/http"

	"hotelhub-linencount/internal/domain"
	"hotelhub-linencount/internal/hub"
	"hotelhub-linencount/internal/service"

	"go.uber.org/zap"
)

// LocationLister 提供宿主应用的位置列表
type LocationLister interface {
	ListLocations() ([]hub.Location, error)
}

// SettingsHandler 位置配置 Handler
type SettingsHandler struct {
	settings  *service.SettingsService
	locations LocationLister
	logger    *zap.Logger
}

// NewSettingsHandler 创建位置配置 Handler
func NewSettingsHandler(settings *service.SettingsService, locations LocationLister, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, locations: locations, logger: logger}
}

// GetSettings 读取位置配置
// GET /linen/api/v1/settings?location_id=
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	locationID := parseInt64(r.URL.Query().Get("location_id"), 0)

	settings, err := h.settings.GetSettings(r.Context(), locationID, actor)
	if err != nil {
		h.logger.Warn("GetSettings failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(settings))
}

type saveSettingsBody struct {
	LocationID int64              `json:"location_id"`
	Enabled    bool               `json:"enabled"`
	LinenItems []domain.LinenItem `json:"linen_items"`
}

// SaveSettings 保存位置配置
// PUT /linen/api/v1/settings
func (h *SettingsHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	var body saveSettingsBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	saved, err := h.settings.SaveSettings(r.Context(), domain.LocationSettings{
		LocationID: body.LocationID,
		Enabled:    body.Enabled,
		LinenItems: body.LinenItems,
	}, actor)
	if err != nil {
		h.logger.Warn("SaveSettings failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(saved))
}

// ListLocations 代理宿主应用的位置列表
// GET /linen/api/v1/locations
func (h *SettingsHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFromReq(w, r); !ok {
		return
	}
	locations, err := h.locations.ListLocations()
	if err != nil {
		h.logger.Warn("ListLocations failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("hub unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(locations))
}

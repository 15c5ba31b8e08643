package repository

import (
	"context"

	"github.com/google/uuid"

	"hotelhub-linencount/internal/domain"
)

// SettingsRepository 位置级模块配置存储接口
// A location without a stored row is reported as enabled with no items;
// callers never see "missing" as an error.
type SettingsRepository interface {
	// GetSettings returns the settings for a location, defaulting to
	// enabled with an empty catalog when none are stored.
	GetSettings(ctx context.Context, locationID int64) (*domain.LocationSettings, error)

	// SaveSettings upserts the settings row for a location. Items failing
	// domain.LinenItem.Valid are dropped; new items without an id get one
	// assigned; pack_qty is raised to >= 1 and target_stock_qty to >= 0.
	SaveSettings(ctx context.Context, settings *domain.LocationSettings) error
}

// sanitizeItems applies the save-time item rules shared by both
// implementations.
func sanitizeItems(items []domain.LinenItem) []domain.LinenItem {
	kept := make([]domain.LinenItem, 0, len(items))
	for _, item := range items {
		if !item.Valid() {
			continue
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.PackQty < 1 {
			item.PackQty = 1
		}
		if item.TargetStockQty < 0 {
			item.TargetStockQty = 0
		}
		kept = append(kept, item)
	}
	return kept
}

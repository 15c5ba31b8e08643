package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hotelhub-linencount/internal/domain"
)

// PostgresSettingsRepository 位置配置 Repository 实现
type PostgresSettingsRepository struct {
	db *sql.DB
}

// NewPostgresSettingsRepository 创建位置配置 Repository
func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

var _ SettingsRepository = (*PostgresSettingsRepository)(nil)

// GetSettings 查询位置配置；无记录时返回默认值（enabled=true，空目录）
func (r *PostgresSettingsRepository) GetSettings(ctx context.Context, locationID int64) (*domain.LocationSettings, error) {
	if locationID == 0 {
		return nil, fmt.Errorf("location_id is required")
	}

	var settings domain.LocationSettings
	var itemsRaw []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT location_id, enabled, linen_items, updated_at
		FROM linen_location_settings
		WHERE location_id = $1
	`, locationID).Scan(&settings.LocationID, &settings.Enabled, &itemsRaw, &settings.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return &domain.LocationSettings{
				LocationID: locationID,
				Enabled:    true,
				LinenItems: []domain.LinenItem{},
			}, nil
		}
		return nil, fmt.Errorf("failed to get location settings: %w", err)
	}

	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &settings.LinenItems); err != nil {
			return nil, fmt.Errorf("failed to unmarshal linen items: %w", err)
		}
	}
	if settings.LinenItems == nil {
		settings.LinenItems = []domain.LinenItem{}
	}
	return &settings, nil
}

// SaveSettings 保存位置配置
func (r *PostgresSettingsRepository) SaveSettings(ctx context.Context, settings *domain.LocationSettings) error {
	if settings == nil || settings.LocationID == 0 {
		return fmt.Errorf("location_id is required")
	}

	items := sanitizeItems(settings.LinenItems)
	itemsRaw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal linen items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO linen_location_settings (location_id, enabled, linen_items, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (location_id)
		DO UPDATE SET enabled = EXCLUDED.enabled,
		              linen_items = EXCLUDED.linen_items,
		              updated_at = EXCLUDED.updated_at
	`, settings.LocationID, settings.Enabled, itemsRaw, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save location settings: %w", err)
	}
	return nil
}

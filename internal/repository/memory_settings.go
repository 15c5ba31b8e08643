package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hotelhub-linencount/internal/domain"
)

// MemorySettingsRepository: DB 未就绪时的位置配置存储
type MemorySettingsRepository struct {
	mu       sync.RWMutex
	settings map[int64]*domain.LocationSettings
}

func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{settings: map[int64]*domain.LocationSettings{}}
}

var _ SettingsRepository = (*MemorySettingsRepository)(nil)

// GetSettings 查询位置配置；无记录时返回默认值
func (r *MemorySettingsRepository) GetSettings(_ context.Context, locationID int64) (*domain.LocationSettings, error) {
	if locationID == 0 {
		return nil, fmt.Errorf("location_id is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.settings[locationID]
	if !ok {
		return &domain.LocationSettings{
			LocationID: locationID,
			Enabled:    true,
			LinenItems: []domain.LinenItem{},
		}, nil
	}

	copied := *stored
	copied.LinenItems = append([]domain.LinenItem{}, stored.LinenItems...)
	return &copied, nil
}

// SaveSettings 保存位置配置
func (r *MemorySettingsRepository) SaveSettings(_ context.Context, settings *domain.LocationSettings) error {
	if settings == nil || settings.LocationID == 0 {
		return fmt.Errorf("location_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings[settings.LocationID] = &domain.LocationSettings{
		LocationID: settings.LocationID,
		Enabled:    settings.Enabled,
		LinenItems: sanitizeItems(settings.LinenItems),
		UpdatedAt:  time.Now(),
	}
	return nil
}

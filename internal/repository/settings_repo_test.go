package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelhub-linencount/internal/domain"
)

func TestMemorySettings_DefaultIsEnabledEmptyCatalog(t *testing.T) {
	repo := NewMemorySettingsRepository()

	settings, err := repo.GetSettings(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
	assert.Empty(t, settings.LinenItems)
}

func TestMemorySettings_SaveSanitizesItems(t *testing.T) {
	repo := NewMemorySettingsRepository()
	ctx := context.Background()

	err := repo.SaveSettings(ctx, &domain.LocationSettings{
		LocationID: 7,
		Enabled:    true,
		LinenItems: []domain.LinenItem{
			{ID: "bath-towel", Name: "Bath Towel", PackQty: 0, TargetStockQty: -5},
			{ID: "ghost"}, // no name, no shortcode: dropped
			{ID: "pc", Shortcode: "PC", PackQty: 20, TargetStockQty: 80},
		},
	})
	require.NoError(t, err)

	settings, err := repo.GetSettings(ctx, 7)
	require.NoError(t, err)
	require.Len(t, settings.LinenItems, 2)
	assert.Equal(t, 1, settings.LinenItems[0].PackQty)
	assert.Equal(t, 0, settings.LinenItems[0].TargetStockQty)
	assert.Equal(t, "PC", settings.LinenItems[1].Shortcode)
}

func TestMemorySettings_AssignsMissingItemIDs(t *testing.T) {
	repo := NewMemorySettingsRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveSettings(ctx, &domain.LocationSettings{
		LocationID: 7,
		Enabled:    true,
		LinenItems: []domain.LinenItem{{Name: "Bath Sheet", PackQty: 5}},
	}))

	settings, err := repo.GetSettings(ctx, 7)
	require.NoError(t, err)
	require.Len(t, settings.LinenItems, 1)
	assert.NotEmpty(t, settings.LinenItems[0].ID)
}

func TestMemorySettings_ItemOrderPreserved(t *testing.T) {
	repo := NewMemorySettingsRepository()
	ctx := context.Background()

	items := []domain.LinenItem{
		{ID: "c", Name: "C", PackQty: 1},
		{ID: "a", Name: "A", PackQty: 1},
		{ID: "b", Name: "B", PackQty: 1},
	}
	require.NoError(t, repo.SaveSettings(ctx, &domain.LocationSettings{
		LocationID: 7, Enabled: true, LinenItems: items,
	}))

	settings, err := repo.GetSettings(ctx, 7)
	require.NoError(t, err)
	got := make([]string, 0, len(settings.LinenItems))
	for _, item := range settings.LinenItems {
		got = append(got, item.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestMemorySettings_DisableLocation(t *testing.T) {
	repo := NewMemorySettingsRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveSettings(ctx, &domain.LocationSettings{LocationID: 7, Enabled: false}))

	settings, err := repo.GetSettings(ctx, 7)
	require.NoError(t, err)
	assert.False(t, settings.Enabled)
}

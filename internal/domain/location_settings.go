package domain

import "time"

// LinenItem 布草条目配置（per-location catalog entry）
// Items are ordered; the UI renders them in slice order.
type LinenItem struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Shortcode      string `json:"shortcode"` // e.g. "PC" for Pillow Case
	Size           string `json:"size,omitempty"`
	PackQty        int    `json:"pack_qty"`         // >= 1
	TargetStockQty int    `json:"target_stock_qty"` // >= 0
}

// Valid reports whether the item should be kept: entries with neither a name
// nor a shortcode are dropped on save.
func (i LinenItem) Valid() bool {
	return i.Name != "" || i.Shortcode != ""
}

// LocationSettings 位置级模块配置（对应 linen_location_settings 表）
// A location with no stored settings row is treated as enabled with an empty
// item catalog.
type LocationSettings struct {
	LocationID int64       `json:"location_id" db:"location_id"`
	Enabled    bool        `json:"enabled" db:"enabled"`
	LinenItems []LinenItem `json:"linen_items" db:"linen_items"` // JSONB
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// FindItem returns the catalog entry for id, or nil.
func (s *LocationSettings) FindItem(id string) *LinenItem {
	for i := range s.LinenItems {
		if s.LinenItems[i].ID == id {
			return &s.LinenItems[i]
		}
	}
	return nil
}

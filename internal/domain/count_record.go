package domain

import (
	"database/sql"
	"time"
)

// RecordStatus 计数记录状态
// The is_locked column stores this as a boolean; the domain surfaces it as an
// explicit two-state field so callers never infer meaning from a raw flag.
type RecordStatus string

const (
	StatusDraft     RecordStatus = "draft"     // editable without special permission
	StatusSubmitted RecordStatus = "submitted" // finalized for the room/date, edit requires capability
)

// StatusFromLocked maps the stored boolean onto the domain status.
func StatusFromLocked(locked bool) RecordStatus {
	if locked {
		return StatusSubmitted
	}
	return StatusDraft
}

// Locked reports whether the status corresponds to is_locked = true.
func (s RecordStatus) Locked() bool { return s == StatusSubmitted }

// CountRecord 污损布草计数记录（对应 linen_counts 表）
// Unique per (location_id, room_id, linen_item_id, service_date).
type CountRecord struct {
	ID          int64  `db:"id"`
	LocationID  int64  `db:"location_id"`
	RoomID      string `db:"room_id"`
	LinenItemID string `db:"linen_item_id"`

	// Count is clamped to >= 0 on every write path.
	Count int `db:"count"`

	// SubmittedBy/SubmittedAt always reflect the first-ever write for the
	// key; re-submissions only advance LastUpdatedBy/LastUpdatedAt.
	SubmittedBy string    `db:"submitted_by"`
	SubmittedAt time.Time `db:"submitted_at"`

	ServiceDate string         `db:"service_date"` // YYYY-MM-DD
	BookingRef  sql.NullString `db:"booking_ref"`  // informational only

	Status RecordStatus `db:"is_locked"`

	LastUpdatedBy sql.NullString `db:"last_updated_by"`
	LastUpdatedAt sql.NullTime   `db:"last_updated_at"`

	// ChangeSeq is a strictly monotonic per-write sequence number, used as
	// the change-feed cursor instead of wall-clock timestamps.
	ChangeSeq int64 `db:"change_seq"`
}

package repository

import (
	"context"
	"errors"
	"time"

	"hotelhub-linencount/internal/domain"
)

// ErrLockedRows is returned by Submit when the room/date already holds a
// locked submission and the caller did not allow overwriting it. The
// transaction is rolled back; no rows are touched.
var ErrLockedRows = errors.New("room/date already has a locked submission")

// DraftWrite 单条草稿写入参数
type DraftWrite struct {
	LocationID int64
	RoomID     string
	ItemID     string
	Date       string // YYYY-MM-DD
	Count      int    // already clamped >= 0 by the service
	ActorID    string
	BookingRef string
	Now        time.Time
}

// SubmitWrite 整房提交写入参数
type SubmitWrite struct {
	LocationID int64
	RoomID     string
	Date       string
	Counts     map[string]int // item_id -> count, clamped by the service
	ActorID    string
	BookingRef string
	Now        time.Time
	// AllowLocked permits overwriting an existing locked submission. The
	// check runs inside the transaction so a concurrent first submission
	// cannot slip past it.
	AllowLocked bool
}

// DateItemTotal 按日期与条目聚合的合计行
type DateItemTotal struct {
	Date   string
	ItemID string
	Total  int
}

// DaySummary 日历视图的单日汇总
type DaySummary struct {
	Date       string
	RoomCount  int
	ItemTypes  int
	TotalItems int
	StaffCount int
}

// CountsRepository 计数账本存储接口
type CountsRepository interface {
	// GetRoomCounts returns all item rows for (location, room, date).
	// An empty slice means no data yet.
	GetRoomCounts(ctx context.Context, locationID int64, roomID, date string) ([]*domain.CountRecord, error)

	// GetRecord returns one row for the full key, or nil when absent.
	GetRecord(ctx context.Context, locationID int64, roomID, itemID, date string) (*domain.CountRecord, error)

	// SaveDraft inserts or updates a single item row. A new row is stored
	// as a draft; an existing row keeps its lock state (amending a locked
	// row updates count and edit-audit fields only, not booking_ref).
	// A unique-constraint violation on insert is retried once as an
	// update before the error is surfaced. Returns the stored row.
	SaveDraft(ctx context.Context, w DraftWrite) (*domain.CountRecord, error)

	// Submit upserts every entry of w.Counts as locked, atomically in one
	// transaction. submitted_by/submitted_at of pre-existing rows are
	// preserved; re-submissions advance last_updated_by/last_updated_at.
	// Returns whether an existing locked submission was overwritten.
	Submit(ctx context.Context, w SubmitWrite) (isUpdate bool, err error)

	// Unlock clears the lock on every row of (location, room, date)
	// without touching counts or audit fields. Returns rows affected.
	Unlock(ctx context.Context, locationID int64, roomID, date string) (int64, error)

	// LockAllDrafts locks every draft row of (location, date) in one
	// statement. Returns rows affected.
	LockAllDrafts(ctx context.Context, locationID int64, date, actorID string, now time.Time) (int64, error)

	// ListByDate returns all rows for (location, date), every room.
	ListByDate(ctx context.Context, locationID int64, date string) ([]*domain.CountRecord, error)

	// ChangesSince returns rows for (location, date) with change_seq >
	// cursor, optionally narrowed to one room, ordered by change_seq
	// ascending.
	ChangesSince(ctx context.Context, locationID int64, date string, cursor int64, roomID string) ([]*domain.CountRecord, error)

	// DayTotals returns item_id -> SUM(count) for (location, date).
	DayTotals(ctx context.Context, locationID int64, date string) (map[string]int, error)

	// RangeTotals returns SUM(count) grouped by (service_date, item) over
	// [from, to], ordered by date ascending.
	RangeTotals(ctx context.Context, locationID int64, from, to string) ([]DateItemTotal, error)

	// CalendarSummary returns per-day rollups over [from, to].
	CalendarSummary(ctx context.Context, locationID int64, from, to string) ([]DaySummary, error)

	// ExportRows returns full rows over [from, to], ordered by date, room,
	// item, for report export.
	ExportRows(ctx context.Context, locationID int64, from, to string) ([]*domain.CountRecord, error)
}

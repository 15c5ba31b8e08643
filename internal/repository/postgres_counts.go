package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotelhub-linencount/internal/domain"

	"github.com/lib/pq"
)

// PostgresCountsRepository 计数账本 Repository 实现
type PostgresCountsRepository struct {
	db *sql.DB
}

// NewPostgresCountsRepository 创建计数账本 Repository
func NewPostgresCountsRepository(db *sql.DB) *PostgresCountsRepository {
	return &PostgresCountsRepository{db: db}
}

// 确保实现了接口
var _ CountsRepository = (*PostgresCountsRepository)(nil)

const countColumns = `
	id,
	location_id,
	room_id,
	linen_item_id,
	count,
	submitted_by,
	submitted_at,
	to_char(service_date, 'YYYY-MM-DD'),
	booking_ref,
	is_locked,
	last_updated_by,
	last_updated_at,
	change_seq
`

func scanCountRecord(scan func(...any) error) (*domain.CountRecord, error) {
	var rec domain.CountRecord
	var locked bool

	if err := scan(
		&rec.ID,
		&rec.LocationID,
		&rec.RoomID,
		&rec.LinenItemID,
		&rec.Count,
		&rec.SubmittedBy,
		&rec.SubmittedAt,
		&rec.ServiceDate,
		&rec.BookingRef,
		&locked,
		&rec.LastUpdatedBy,
		&rec.LastUpdatedAt,
		&rec.ChangeSeq,
	); err != nil {
		return nil, err
	}

	rec.Status = domain.StatusFromLocked(locked)
	return &rec, nil
}

func collectCountRecords(rows *sql.Rows) ([]*domain.CountRecord, error) {
	defer rows.Close()

	records := []*domain.CountRecord{}
	for rows.Next() {
		rec, err := scanCountRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan count record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate count records: %w", err)
	}
	return records, nil
}

// GetRoomCounts 查询一个房间/日期的全部条目行
func (r *PostgresCountsRepository) GetRoomCounts(ctx context.Context, locationID int64, roomID, date string) ([]*domain.CountRecord, error) {
	if locationID == 0 || roomID == "" || date == "" {
		return []*domain.CountRecord{}, nil
	}

	query := `
		SELECT ` + countColumns + `
		FROM linen_counts
		WHERE location_id = $1 AND room_id = $2 AND service_date = $3
		ORDER BY linen_item_id
	`

	rows, err := r.db.QueryContext(ctx, query, locationID, roomID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get room counts: %w", err)
	}
	return collectCountRecords(rows)
}

// GetRecord 查询单条记录，不存在时返回 nil
func (r *PostgresCountsRepository) GetRecord(ctx context.Context, locationID int64, roomID, itemID, date string) (*domain.CountRecord, error) {
	query := `
		SELECT ` + countColumns + `
		FROM linen_counts
		WHERE location_id = $1 AND room_id = $2 AND linen_item_id = $3 AND service_date = $4
	`

	rec, err := scanCountRecord(func(dest ...any) error {
		return r.db.QueryRowContext(ctx, query, locationID, roomID, itemID, date).Scan(dest...)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get count record: %w", err)
	}
	return rec, nil
}

// SaveDraft 保存单条草稿（自动保存路径）
func (r *PostgresCountsRepository) SaveDraft(ctx context.Context, w DraftWrite) (*domain.CountRecord, error) {
	if w.LocationID == 0 || w.RoomID == "" || w.ItemID == "" || w.Date == "" {
		return nil, fmt.Errorf("location_id, room_id, item_id and date are required")
	}

	existing, err := r.GetRecord(ctx, w.LocationID, w.RoomID, w.ItemID, w.Date)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		err = r.insertDraft(ctx, w)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// Someone else inserted the row concurrently; retry once as
			// an update.
			existing, err = r.GetRecord(ctx, w.LocationID, w.RoomID, w.ItemID, w.Date)
			if err == nil && existing != nil {
				err = r.updateDraft(ctx, w, existing)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save draft: %w", err)
		}
	} else {
		if err := r.updateDraft(ctx, w, existing); err != nil {
			return nil, fmt.Errorf("failed to save draft: %w", err)
		}
	}

	rec, err := r.GetRecord(ctx, w.LocationID, w.RoomID, w.ItemID, w.Date)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("draft row missing after save")
	}
	return rec, nil
}

func (r *PostgresCountsRepository) insertDraft(ctx context.Context, w DraftWrite) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO linen_counts
			(location_id, room_id, linen_item_id, count, submitted_by, submitted_at,
			 service_date, booking_ref, is_locked, last_updated_by, last_updated_at, change_seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), FALSE, $5, $6, nextval('linen_counts_change_seq'))
	`, w.LocationID, w.RoomID, w.ItemID, w.Count, w.ActorID, w.Now, w.Date, w.BookingRef)
	return err
}

func (r *PostgresCountsRepository) updateDraft(ctx context.Context, w DraftWrite, existing *domain.CountRecord) error {
	if existing.Status.Locked() {
		// Amend a submitted row in place: count and edit audit only, the
		// lock and booking_ref stay as submitted.
		_, err := r.db.ExecContext(ctx, `
			UPDATE linen_counts
			SET count = $1,
			    last_updated_by = $2,
			    last_updated_at = $3,
			    change_seq = nextval('linen_counts_change_seq')
			WHERE id = $4
		`, w.Count, w.ActorID, w.Now, existing.ID)
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE linen_counts
		SET count = $1,
		    last_updated_by = $2,
		    last_updated_at = $3,
		    booking_ref = NULLIF($4, ''),
		    change_seq = nextval('linen_counts_change_seq')
		WHERE id = $5
	`, w.Count, w.ActorID, w.Now, w.BookingRef, existing.ID)
	return err
}

// Submit 整房提交：单事务内对每个条目做 upsert
func (r *PostgresCountsRepository) Submit(ctx context.Context, w SubmitWrite) (bool, error) {
	if w.LocationID == 0 || w.RoomID == "" || w.Date == "" || len(w.Counts) == 0 {
		return false, fmt.Errorf("location_id, room_id, date and counts are required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin submit transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedRows int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM linen_counts
		WHERE location_id = $1 AND room_id = $2 AND service_date = $3 AND is_locked = TRUE
	`, w.LocationID, w.RoomID, w.Date).Scan(&lockedRows)
	if err != nil {
		return false, fmt.Errorf("failed to check existing submission: %w", err)
	}

	isUpdate := lockedRows > 0
	if isUpdate && !w.AllowLocked {
		return false, ErrLockedRows
	}

	// A first submission stamps submitted_by/submitted_at with the
	// submitter, even on rows that started life as a draft. Re-submissions
	// preserve the original submission audit and advance last_updated_*.
	upsert := `
		INSERT INTO linen_counts
			(location_id, room_id, linen_item_id, count, submitted_by, submitted_at,
			 service_date, booking_ref, is_locked, last_updated_by, last_updated_at, change_seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), TRUE, NULL, NULL, nextval('linen_counts_change_seq'))
		ON CONFLICT (location_id, room_id, linen_item_id, service_date)
		DO UPDATE SET
			count = EXCLUDED.count,
			booking_ref = EXCLUDED.booking_ref,
			is_locked = TRUE,
			submitted_by = $5,
			submitted_at = $6,
			last_updated_by = NULL,
			last_updated_at = NULL,
			change_seq = nextval('linen_counts_change_seq')
	`
	if isUpdate {
		upsert = `
			INSERT INTO linen_counts
				(location_id, room_id, linen_item_id, count, submitted_by, submitted_at,
				 service_date, booking_ref, is_locked, last_updated_by, last_updated_at, change_seq)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), TRUE, NULL, NULL, nextval('linen_counts_change_seq'))
			ON CONFLICT (location_id, room_id, linen_item_id, service_date)
			DO UPDATE SET
				count = EXCLUDED.count,
				booking_ref = EXCLUDED.booking_ref,
				is_locked = TRUE,
				last_updated_by = $5,
				last_updated_at = $6,
				change_seq = nextval('linen_counts_change_seq')
		`
	}

	for itemID, count := range w.Counts {
		_, err := tx.ExecContext(ctx, upsert,
			w.LocationID, w.RoomID, itemID, count, w.ActorID, w.Now, w.Date, w.BookingRef)
		if err != nil {
			return false, fmt.Errorf("failed to upsert count for item %s: %w", itemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit submit transaction: %w", err)
	}
	return isUpdate, nil
}

// Unlock 解锁整个房间/日期的全部条目行
func (r *PostgresCountsRepository) Unlock(ctx context.Context, locationID int64, roomID, date string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE linen_counts
		SET is_locked = FALSE
		WHERE location_id = $1 AND room_id = $2 AND service_date = $3
	`, locationID, roomID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to unlock counts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read unlock result: %w", err)
	}
	return affected, nil
}

// LockAllDrafts 锁定某位置/日期下的全部草稿行
func (r *PostgresCountsRepository) LockAllDrafts(ctx context.Context, locationID int64, date, actorID string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE linen_counts
		SET is_locked = TRUE,
		    last_updated_by = $1,
		    last_updated_at = $2,
		    change_seq = nextval('linen_counts_change_seq')
		WHERE location_id = $3 AND service_date = $4 AND is_locked = FALSE
	`, actorID, now, locationID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to lock drafts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read lock result: %w", err)
	}
	return affected, nil
}

// ListByDate 查询某位置/日期的全部记录
func (r *PostgresCountsRepository) ListByDate(ctx context.Context, locationID int64, date string) ([]*domain.CountRecord, error) {
	query := `
		SELECT ` + countColumns + `
		FROM linen_counts
		WHERE location_id = $1 AND service_date = $2
		ORDER BY room_id, linen_item_id
	`

	rows, err := r.db.QueryContext(ctx, query, locationID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list counts by date: %w", err)
	}
	return collectCountRecords(rows)
}

// ChangesSince 变更订阅查询：change_seq 严格大于 cursor 的行
func (r *PostgresCountsRepository) ChangesSince(ctx context.Context, locationID int64, date string, cursor int64, roomID string) ([]*domain.CountRecord, error) {
	query := `
		SELECT ` + countColumns + `
		FROM linen_counts
		WHERE location_id = $1 AND service_date = $2 AND change_seq > $3
	`
	args := []any{locationID, date, cursor}

	if roomID != "" {
		query += ` AND room_id = $4`
		args = append(args, roomID)
	}
	query += ` ORDER BY change_seq ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	return collectCountRecords(rows)
}

// DayTotals 单日按条目合计
func (r *PostgresCountsRepository) DayTotals(ctx context.Context, locationID int64, date string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT linen_item_id, COALESCE(SUM(count), 0)
		FROM linen_counts
		WHERE location_id = $1 AND service_date = $2
		GROUP BY linen_item_id
	`, locationID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query day totals: %w", err)
	}
	defer rows.Close()

	totals := map[string]int{}
	for rows.Next() {
		var itemID string
		var total int
		if err := rows.Scan(&itemID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan day total: %w", err)
		}
		totals[itemID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate day totals: %w", err)
	}
	return totals, nil
}

// RangeTotals 日期区间内按（日期，条目）合计
func (r *PostgresCountsRepository) RangeTotals(ctx context.Context, locationID int64, from, to string) ([]DateItemTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(service_date, 'YYYY-MM-DD'), linen_item_id, COALESCE(SUM(count), 0)
		FROM linen_counts
		WHERE location_id = $1 AND service_date BETWEEN $2 AND $3
		GROUP BY service_date, linen_item_id
		ORDER BY service_date ASC
	`, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query range totals: %w", err)
	}
	defer rows.Close()

	totals := []DateItemTotal{}
	for rows.Next() {
		var t DateItemTotal
		if err := rows.Scan(&t.Date, &t.ItemID, &t.Total); err != nil {
			return nil, fmt.Errorf("failed to scan range total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate range totals: %w", err)
	}
	return totals, nil
}

// CalendarSummary 日历视图按日汇总
func (r *PostgresCountsRepository) CalendarSummary(ctx context.Context, locationID int64, from, to string) ([]DaySummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			to_char(service_date, 'YYYY-MM-DD'),
			COUNT(DISTINCT room_id),
			COUNT(DISTINCT linen_item_id),
			COALESCE(SUM(count), 0),
			COUNT(DISTINCT submitted_by)
		FROM linen_counts
		WHERE location_id = $1 AND service_date BETWEEN $2 AND $3
		GROUP BY service_date
		ORDER BY service_date ASC
	`, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar summary: %w", err)
	}
	defer rows.Close()

	summaries := []DaySummary{}
	for rows.Next() {
		var s DaySummary
		if err := rows.Scan(&s.Date, &s.RoomCount, &s.ItemTypes, &s.TotalItems, &s.StaffCount); err != nil {
			return nil, fmt.Errorf("failed to scan day summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calendar summary: %w", err)
	}
	return summaries, nil
}

// ExportRows 导出用整行查询
func (r *PostgresCountsRepository) ExportRows(ctx context.Context, locationID int64, from, to string) ([]*domain.CountRecord, error) {
	query := `
		SELECT ` + countColumns + `
		FROM linen_counts
		WHERE location_id = $1 AND service_date BETWEEN $2 AND $3
		ORDER BY service_date, room_id, linen_item_id
	`

	rows, err := r.db.QueryContext(ctx, query, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query export rows: %w", err)
	}
	return collectCountRecords(rows)
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"hotelhub-linencount/internal/domain"
)

// MemoryCountsRepository: 用于 DB 未就绪时的联测与单元测试
// - 与 PostgresCountsRepository 保持相同语义（含 change_seq 单调递增）
// - 不做持久化，进程重启后数据丢失
type MemoryCountsRepository struct {
	mu      sync.RWMutex
	nextID  int64
	nextSeq int64
	rows    map[string]*domain.CountRecord // key: location|room|item|date
}

func NewMemoryCountsRepository() *MemoryCountsRepository {
	return &MemoryCountsRepository{rows: map[string]*domain.CountRecord{}}
}

var _ CountsRepository = (*MemoryCountsRepository)(nil)

func countKey(locationID int64, roomID, itemID, date string) string {
	return fmt.Sprintf("%d|%s|%s|%s", locationID, roomID, itemID, date)
}

func (r *MemoryCountsRepository) bumpSeq() int64 {
	r.nextSeq++
	return r.nextSeq
}

func cloneRecord(rec *domain.CountRecord) *domain.CountRecord {
	c := *rec
	return &c
}

// GetRoomCounts 查询一个房间/日期的全部条目行
func (r *MemoryCountsRepository) GetRoomCounts(_ context.Context, locationID int64, roomID, date string) ([]*domain.CountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := []*domain.CountRecord{}
	for _, rec := range r.rows {
		if rec.LocationID == locationID && rec.RoomID == roomID && rec.ServiceDate == date {
			records = append(records, cloneRecord(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].LinenItemID < records[j].LinenItemID })
	return records, nil
}

// GetRecord 查询单条记录，不存在时返回 nil
func (r *MemoryCountsRepository) GetRecord(_ context.Context, locationID int64, roomID, itemID, date string) (*domain.CountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rows[countKey(locationID, roomID, itemID, date)]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

// SaveDraft 保存单条草稿
func (r *MemoryCountsRepository) SaveDraft(_ context.Context, w DraftWrite) (*domain.CountRecord, error) {
	if w.LocationID == 0 || w.RoomID == "" || w.ItemID == "" || w.Date == "" {
		return nil, fmt.Errorf("location_id, room_id, item_id and date are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := countKey(w.LocationID, w.RoomID, w.ItemID, w.Date)
	if existing, ok := r.rows[key]; ok {
		existing.Count = w.Count
		existing.LastUpdatedBy = sql.NullString{String: w.ActorID, Valid: true}
		existing.LastUpdatedAt = sql.NullTime{Time: w.Now, Valid: true}
		if !existing.Status.Locked() {
			existing.BookingRef = nullString(w.BookingRef)
		}
		existing.ChangeSeq = r.bumpSeq()
		return cloneRecord(existing), nil
	}

	r.nextID++
	rec := &domain.CountRecord{
		ID:            r.nextID,
		LocationID:    w.LocationID,
		RoomID:        w.RoomID,
		LinenItemID:   w.ItemID,
		Count:         w.Count,
		SubmittedBy:   w.ActorID,
		SubmittedAt:   w.Now,
		ServiceDate:   w.Date,
		BookingRef:    nullString(w.BookingRef),
		Status:        domain.StatusDraft,
		LastUpdatedBy: sql.NullString{String: w.ActorID, Valid: true},
		LastUpdatedAt: sql.NullTime{Time: w.Now, Valid: true},
		ChangeSeq:     r.bumpSeq(),
	}
	r.rows[key] = rec
	return cloneRecord(rec), nil
}

// Submit 整房提交（全部成功或全部失败）
func (r *MemoryCountsRepository) Submit(_ context.Context, w SubmitWrite) (bool, error) {
	if w.LocationID == 0 || w.RoomID == "" || w.Date == "" || len(w.Counts) == 0 {
		return false, fmt.Errorf("location_id, room_id, date and counts are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	isUpdate := false
	for _, rec := range r.rows {
		if rec.LocationID == w.LocationID && rec.RoomID == w.RoomID &&
			rec.ServiceDate == w.Date && rec.Status.Locked() {
			isUpdate = true
			break
		}
	}
	if isUpdate && !w.AllowLocked {
		return false, ErrLockedRows
	}

	for itemID, count := range w.Counts {
		key := countKey(w.LocationID, w.RoomID, itemID, w.Date)
		if existing, ok := r.rows[key]; ok {
			existing.Count = count
			existing.BookingRef = nullString(w.BookingRef)
			existing.Status = domain.StatusSubmitted
			if isUpdate {
				existing.LastUpdatedBy = sql.NullString{String: w.ActorID, Valid: true}
				existing.LastUpdatedAt = sql.NullTime{Time: w.Now, Valid: true}
			} else {
				existing.SubmittedBy = w.ActorID
				existing.SubmittedAt = w.Now
				existing.LastUpdatedBy = sql.NullString{}
				existing.LastUpdatedAt = sql.NullTime{}
			}
			existing.ChangeSeq = r.bumpSeq()
			continue
		}

		r.nextID++
		r.rows[key] = &domain.CountRecord{
			ID:          r.nextID,
			LocationID:  w.LocationID,
			RoomID:      w.RoomID,
			LinenItemID: itemID,
			Count:       count,
			SubmittedBy: w.ActorID,
			SubmittedAt: w.Now,
			ServiceDate: w.Date,
			BookingRef:  nullString(w.BookingRef),
			Status:      domain.StatusSubmitted,
			ChangeSeq:   r.bumpSeq(),
		}
	}
	return isUpdate, nil
}

// Unlock 解锁整个房间/日期
func (r *MemoryCountsRepository) Unlock(_ context.Context, locationID int64, roomID, date string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for _, rec := range r.rows {
		if rec.LocationID == locationID && rec.RoomID == roomID && rec.ServiceDate == date {
			rec.Status = domain.StatusDraft
			affected++
		}
	}
	return affected, nil
}

// LockAllDrafts 锁定位置/日期下全部草稿
func (r *MemoryCountsRepository) LockAllDrafts(_ context.Context, locationID int64, date, actorID string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for _, rec := range r.rows {
		if rec.LocationID == locationID && rec.ServiceDate == date && !rec.Status.Locked() {
			rec.Status = domain.StatusSubmitted
			rec.LastUpdatedBy = sql.NullString{String: actorID, Valid: true}
			rec.LastUpdatedAt = sql.NullTime{Time: now, Valid: true}
			rec.ChangeSeq = r.bumpSeq()
			affected++
		}
	}
	return affected, nil
}

// ListByDate 查询位置/日期的全部记录
func (r *MemoryCountsRepository) ListByDate(_ context.Context, locationID int64, date string) ([]*domain.CountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := []*domain.CountRecord{}
	for _, rec := range r.rows {
		if rec.LocationID == locationID && rec.ServiceDate == date {
			records = append(records, cloneRecord(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].RoomID != records[j].RoomID {
			return records[i].RoomID < records[j].RoomID
		}
		return records[i].LinenItemID < records[j].LinenItemID
	})
	return records, nil
}

// ChangesSince 变更订阅查询
func (r *MemoryCountsRepository) ChangesSince(_ context.Context, locationID int64, date string, cursor int64, roomID string) ([]*domain.CountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := []*domain.CountRecord{}
	for _, rec := range r.rows {
		if rec.LocationID != locationID || rec.ServiceDate != date || rec.ChangeSeq <= cursor {
			continue
		}
		if roomID != "" && rec.RoomID != roomID {
			continue
		}
		records = append(records, cloneRecord(rec))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ChangeSeq < records[j].ChangeSeq })
	return records, nil
}

// DayTotals 单日按条目合计
func (r *MemoryCountsRepository) DayTotals(_ context.Context, locationID int64, date string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := map[string]int{}
	for _, rec := range r.rows {
		if rec.LocationID == locationID && rec.ServiceDate == date {
			totals[rec.LinenItemID] += rec.Count
		}
	}
	return totals, nil
}

// RangeTotals 日期区间内按（日期，条目）合计
func (r *MemoryCountsRepository) RangeTotals(_ context.Context, locationID int64, from, to string) ([]DateItemTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byKey := map[string]*DateItemTotal{}
	for _, rec := range r.rows {
		if rec.LocationID != locationID || rec.ServiceDate < from || rec.ServiceDate > to {
			continue
		}
		key := rec.ServiceDate + "|" + rec.LinenItemID
		if t, ok := byKey[key]; ok {
			t.Total += rec.Count
		} else {
			byKey[key] = &DateItemTotal{Date: rec.ServiceDate, ItemID: rec.LinenItemID, Total: rec.Count}
		}
	}

	totals := []DateItemTotal{}
	for _, t := range byKey {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Date != totals[j].Date {
			return totals[i].Date < totals[j].Date
		}
		return totals[i].ItemID < totals[j].ItemID
	})
	return totals, nil
}

// CalendarSummary 日历视图按日汇总
func (r *MemoryCountsRepository) CalendarSummary(_ context.Context, locationID int64, from, to string) ([]DaySummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type daySets struct {
		rooms map[string]bool
		items map[string]bool
		staff map[string]bool
		total int
	}
	byDate := map[string]*daySets{}
	for _, rec := range r.rows {
		if rec.LocationID != locationID || rec.ServiceDate < from || rec.ServiceDate > to {
			continue
		}
		d, ok := byDate[rec.ServiceDate]
		if !ok {
			d = &daySets{rooms: map[string]bool{}, items: map[string]bool{}, staff: map[string]bool{}}
			byDate[rec.ServiceDate] = d
		}
		d.rooms[rec.RoomID] = true
		d.items[rec.LinenItemID] = true
		d.staff[rec.SubmittedBy] = true
		d.total += rec.Count
	}

	summaries := []DaySummary{}
	for date, d := range byDate {
		summaries = append(summaries, DaySummary{
			Date:       date,
			RoomCount:  len(d.rooms),
			ItemTypes:  len(d.items),
			TotalItems: d.total,
			StaffCount: len(d.staff),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Date < summaries[j].Date })
	return summaries, nil
}

// ExportRows 导出用整行查询
func (r *MemoryCountsRepository) ExportRows(_ context.Context, locationID int64, from, to string) ([]*domain.CountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := []*domain.CountRecord{}
	for _, rec := range r.rows {
		if rec.LocationID == locationID && rec.ServiceDate >= from && rec.ServiceDate <= to {
			records = append(records, cloneRecord(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].ServiceDate != records[j].ServiceDate {
			return records[i].ServiceDate < records[j].ServiceDate
		}
		if records[i].RoomID != records[j].RoomID {
			return records[i].RoomID < records[j].RoomID
		}
		return records[i].LinenItemID < records[j].LinenItemID
	})
	return records, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

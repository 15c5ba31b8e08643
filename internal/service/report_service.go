package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"time"

	"hotelhub-linencount/internal/domain"
	"hotelhub-linencount/internal/hub"
	"hotelhub-linencount/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// RoomLister 提供某位置/日期的当日房间列表（宿主应用提供）
type RoomLister interface {
	ListRooms(locationID int64, date string) ([]hub.Room, error)
}

// ReportService 报表服务
type ReportService struct {
	counts     repository.CountsRepository
	settings   repository.SettingsRepository
	rooms      RoomLister
	authorizer Authorizer
	names      NameResolver
	logger     *zap.Logger
}

// NewReportService 创建报表服务
func NewReportService(counts repository.CountsRepository, settings repository.SettingsRepository, rooms RoomLister, authorizer Authorizer, names NameResolver, logger *zap.Logger) *ReportService {
	return &ReportService{
		counts:     counts,
		settings:   settings,
		rooms:      rooms,
		authorizer: authorizer,
		names:      names,
		logger:     logger,
	}
}

// Room submission status for the today board.
const (
	RoomStatusNone        = "none"
	RoomStatusUnsubmitted = "unsubmitted"
	RoomStatusSubmitted   = "submitted"
)

// itemCatalog 返回位置配置的布草条目；数据中出现但未配置的条目追加在尾部
func (s *ReportService) itemCatalog(ctx context.Context, locationID int64, seen []string) ([]domain.LinenItem, error) {
	settings, err := s.settings.GetSettings(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	items := make([]domain.LinenItem, 0, len(settings.LinenItems))
	known := make(map[string]bool, len(settings.LinenItems))
	for _, item := range settings.LinenItems {
		items = append(items, item)
		known[item.ID] = true
	}
	for _, id := range seen {
		if !known[id] {
			items = append(items, domain.LinenItem{ID: id, Name: id})
			known[id] = true
		}
	}
	return items, nil
}

// TodayBoardRequest 当日看板请求
type TodayBoardRequest struct {
	LocationID int64
	Date       string
	Actor      domain.Actor
}

// RoomStatusRow 当日看板中的房间行
type RoomStatusRow struct {
	RoomID          string `json:"room_id"`
	Status          string `json:"status"`
	TotalItems      int    `json:"total_items"`
	SubmittedByName string `json:"submitted_by_name,omitempty"`
	SubmittedAt     string `json:"submitted_at,omitempty"`
}

// TodayBoardResponse 当日看板响应
type TodayBoardResponse struct {
	Rooms []RoomStatusRow `json:"rooms"`
}

// TodayBoard 当日看板：每个房间的提交状态
// The room list comes from the hub's daily cleaning list; when the hub is
// unreachable the board falls back to rooms that already have counts, so
// supervisors still see what was recorded. A room with any locked row shows
// as submitted even if drafts were added after.
func (s *ReportService) TodayBoard(ctx context.Context, req TodayBoardRequest) (*TodayBoardResponse, error) {
	if req.LocationID == 0 || !validDate(req.Date) {
		return nil, ErrInvalidInput
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapViewReports) {
		return nil, ErrForbidden
	}

	records, err := s.counts.ListByDate(ctx, req.LocationID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	type roomAgg struct {
		total       int
		hasLocked   bool
		submittedBy string
		submittedAt time.Time
	}
	byRoom := make(map[string]*roomAgg)
	for _, rec := range records {
		agg := byRoom[rec.RoomID]
		if agg == nil {
			agg = &roomAgg{}
			byRoom[rec.RoomID] = agg
		}
		agg.total += rec.Count
		if rec.Status.Locked() {
			agg.hasLocked = true
			if agg.submittedBy == "" || rec.SubmittedAt.After(agg.submittedAt) {
				agg.submittedBy = rec.SubmittedBy
				agg.submittedAt = rec.SubmittedAt
			}
		}
	}

	roomIDs := make([]string, 0, len(byRoom))
	if hubRooms, err := s.rooms.ListRooms(req.LocationID, req.Date); err == nil {
		for _, room := range hubRooms {
			roomIDs = append(roomIDs, room.RoomID)
		}
		// keep rooms that have data but dropped off the hub list
		listed := make(map[string]bool, len(roomIDs))
		for _, id := range roomIDs {
			listed[id] = true
		}
		for _, id := range sortedRoomIDs(byRoom) {
			if !listed[id] {
				roomIDs = append(roomIDs, id)
			}
		}
	} else {
		s.logger.Warn("Hub room list unavailable, falling back to recorded rooms",
			zap.Int64("location_id", req.LocationID), zap.Error(err))
		roomIDs = sortedRoomIDs(byRoom)
	}

	rows := make([]RoomStatusRow, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		row := RoomStatusRow{RoomID: roomID, Status: RoomStatusNone}
		if agg, ok := byRoom[roomID]; ok {
			row.TotalItems = agg.total
			if agg.hasLocked {
				row.Status = RoomStatusSubmitted
				row.SubmittedByName = s.names.UserName(agg.submittedBy)
				row.SubmittedAt = agg.submittedAt.Format(timeOfDayFormat)
			} else {
				row.Status = RoomStatusUnsubmitted
			}
		}
		rows = append(rows, row)
	}
	return &TodayBoardResponse{Rooms: rows}, nil
}

// TodayTotalsRequest 当日合计请求
type TodayTotalsRequest struct {
	LocationID int64
	Date       string
	Actor      domain.Actor
}

// ItemTotal 单条目合计
type ItemTotal struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Shortcode string `json:"shortcode,omitempty"`
	Total     int    `json:"total"`
}

// TodayTotalsResponse 当日合计响应
type TodayTotalsResponse struct {
	Items      []ItemTotal `json:"items"`
	GrandTotal int         `json:"grand_total"`
}

// TodayTotals 当日按条目合计，目录中无数据的条目补零
func (s *ReportService) TodayTotals(ctx context.Context, req TodayTotalsRequest) (*TodayTotalsResponse, error) {
	if req.LocationID == 0 || !validDate(req.Date) {
		return nil, ErrInvalidInput
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapViewReports) {
		return nil, ErrForbidden
	}

	totals, err := s.counts.DayTotals(ctx, req.LocationID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	seen := make([]string, 0, len(totals))
	for id := range totals {
		seen = append(seen, id)
	}
	catalog, err := s.itemCatalog(ctx, req.LocationID, seen)
	if err != nil {
		return nil, err
	}

	resp := &TodayTotalsResponse{Items: make([]ItemTotal, 0, len(catalog))}
	for _, item := range catalog {
		total := totals[item.ID]
		resp.Items = append(resp.Items, ItemTotal{
			ItemID:    item.ID,
			Name:      item.Name,
			Shortcode: item.Shortcode,
			Total:     total,
		})
		resp.GrandTotal += total
	}
	return resp, nil
}

// RangeReportRequest 日期区间报表请求
type RangeReportRequest struct {
	LocationID int64
	From       string
	To         string
	Actor      domain.Actor
}

// RangeReportResponse 日期区间报表响应
// Grid maps date -> item_id -> total; every date in [From, To] and every
// catalog item is present, zero-filled.
type RangeReportResponse struct {
	Dates      []string                  `json:"dates"`
	Items      []ItemTotal               `json:"items"`
	Grid       map[string]map[string]int `json:"grid"`
	GrandTotal int                       `json:"grand_total"`
}

func rangeDates(from, to string) ([]string, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, err
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("range end %s before start %s", to, from)
	}
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}

// RangeReport 日期区间按日/条目汇总
func (s *ReportService) RangeReport(ctx context.Context, req RangeReportRequest) (*RangeReportResponse, error) {
	if req.LocationID == 0 {
		return nil, ErrInvalidInput
	}
	dates, err := rangeDates(req.From, req.To)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapViewReports) {
		return nil, ErrForbidden
	}

	totals, err := s.counts.RangeTotals(ctx, req.LocationID, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	seen := make([]string, 0, len(totals))
	seenSet := make(map[string]bool)
	for _, t := range totals {
		if !seenSet[t.ItemID] {
			seenSet[t.ItemID] = true
			seen = append(seen, t.ItemID)
		}
	}
	catalog, err := s.itemCatalog(ctx, req.LocationID, seen)
	if err != nil {
		return nil, err
	}

	grid := make(map[string]map[string]int, len(dates))
	for _, date := range dates {
		row := make(map[string]int, len(catalog))
		for _, item := range catalog {
			row[item.ID] = 0
		}
		grid[date] = row
	}
	itemTotals := make(map[string]int, len(catalog))
	grand := 0
	for _, t := range totals {
		if row, ok := grid[t.Date]; ok {
			row[t.ItemID] += t.Total
		}
		itemTotals[t.ItemID] += t.Total
		grand += t.Total
	}

	items := make([]ItemTotal, 0, len(catalog))
	for _, item := range catalog {
		items = append(items, ItemTotal{
			ItemID:    item.ID,
			Name:      item.Name,
			Shortcode: item.Shortcode,
			Total:     itemTotals[item.ID],
		})
	}

	return &RangeReportResponse{Dates: dates, Items: items, Grid: grid, GrandTotal: grand}, nil
}

// CalendarRequest 日历汇总请求
type CalendarRequest struct {
	LocationID int64
	From       string
	To         string
	Actor      domain.Actor
}

// CalendarDay 日历单日汇总
type CalendarDay struct {
	Date       string `json:"date"`
	RoomCount  int    `json:"room_count"`
	ItemTypes  int    `json:"item_types"`
	TotalItems int    `json:"total_items"`
	StaffCount int    `json:"staff_count"`
}

// CalendarResponse 日历汇总响应
type CalendarResponse struct {
	Days []CalendarDay `json:"days"`
}

// Calendar 日历视图：区间内每个有数据日期的汇总
func (s *ReportService) Calendar(ctx context.Context, req CalendarRequest) (*CalendarResponse, error) {
	if req.LocationID == 0 || !validDate(req.From) || !validDate(req.To) {
		return nil, ErrInvalidInput
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapViewReports) {
		return nil, ErrForbidden
	}

	summaries, err := s.counts.CalendarSummary(ctx, req.LocationID, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	days := make([]CalendarDay, 0, len(summaries))
	for _, sum := range summaries {
		days = append(days, CalendarDay{
			Date:       sum.Date,
			RoomCount:  sum.RoomCount,
			ItemTypes:  sum.ItemTypes,
			TotalItems: sum.TotalItems,
			StaffCount: sum.StaffCount,
		})
	}
	return &CalendarResponse{Days: days}, nil
}

// ExportRequest 导出请求
type ExportRequest struct {
	LocationID int64
	From       string
	To         string
	Format     string // "csv" or "xlsx"
	Actor      domain.Actor
}

// ExportResult 导出结果
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

var exportHeader = []string{
	"Date", "Room", "Linen Item", "Count",
	"Submitted By", "Submitted At", "Updated By", "Updated At", "Booking Ref",
}

func (s *ReportService) exportRows(ctx context.Context, req ExportRequest) ([][]string, error) {
	records, err := s.counts.ExportRows(ctx, req.LocationID, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	settings, err := s.settings.GetSettings(ctx, req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	itemNames := make(map[string]string, len(settings.LinenItems))
	for _, item := range settings.LinenItems {
		itemNames[item.ID] = item.Name
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		itemName := itemNames[rec.LinenItemID]
		if itemName == "" {
			itemName = rec.LinenItemID
		}
		updatedBy, updatedAt, bookingRef := "", "", ""
		if rec.LastUpdatedBy.Valid {
			updatedBy = s.names.UserName(rec.LastUpdatedBy.String)
		}
		if rec.LastUpdatedAt.Valid {
			updatedAt = rec.LastUpdatedAt.Time.Format("2006-01-02 15:04")
		}
		if rec.BookingRef.Valid {
			bookingRef = rec.BookingRef.String
		}
		rows = append(rows, []string{
			rec.ServiceDate,
			rec.RoomID,
			itemName,
			fmt.Sprintf("%d", rec.Count),
			s.names.UserName(rec.SubmittedBy),
			rec.SubmittedAt.Format("2006-01-02 15:04"),
			updatedBy,
			updatedAt,
			bookingRef,
		})
	}
	return rows, nil
}

// Export 导出区间内全部计数行（CSV 或 XLSX）
func (s *ReportService) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if req.LocationID == 0 || !validDate(req.From) || !validDate(req.To) {
		return nil, ErrInvalidInput
	}
	if req.Format != "csv" && req.Format != "xlsx" {
		return nil, ErrInvalidInput
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapViewReports) {
		return nil, ErrForbidden
	}

	rows, err := s.exportRows(ctx, req)
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("linen-counts-%s-to-%s", req.From, req.To)
	if req.Format == "xlsx" {
		data, err := buildXLSX(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		return &ExportResult{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &ExportResult{
		Filename:    base + ".csv",
		ContentType: "text/csv",
		Data:        buf.Bytes(),
	}, nil
}

func sortedRoomIDs[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func buildXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Linen Counts"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, title)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for i, row := range rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, value)
		}
	}
	f.SetColWidth(sheet, "A", "I", 16)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

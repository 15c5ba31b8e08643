package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hotelhub-linencount/internal/domain"
	"hotelhub-linencount/internal/hub"
	"hotelhub-linencount/internal/repository"
)

// fakeRoomLister 固定房间列表；err 非空时模拟宿主不可达
type fakeRoomLister struct {
	rooms []hub.Room
	err   error
}

func (f fakeRoomLister) ListRooms(int64, string) ([]hub.Room, error) {
	return f.rooms, f.err
}

type reportFixture struct {
	reports *ReportService
	counts  *CountService
}

func newReportFixture(t *testing.T, rooms RoomLister, items []domain.LinenItem) reportFixture {
	t.Helper()
	countsRepo := repository.NewMemoryCountsRepository()
	settingsRepo := repository.NewMemorySettingsRepository()
	if items != nil {
		require.NoError(t, settingsRepo.SaveSettings(context.Background(), &domain.LocationSettings{
			LocationID: 7,
			Enabled:    true,
			LinenItems: items,
		}))
	}
	auth := supervisorAuth()
	return reportFixture{
		reports: NewReportService(countsRepo, settingsRepo, rooms, auth, IdentityResolver{}, zap.NewNop()),
		counts:  NewCountService(countsRepo, settingsRepo, auth, IdentityResolver{}, zap.NewNop()),
	}
}

var testItems = []domain.LinenItem{
	{ID: "bath-towel", Name: "Bath Towel", Shortcode: "BT", PackQty: 10, TargetStockQty: 50},
	{ID: "pillow-case", Name: "Pillow Case", Shortcode: "PC", PackQty: 20, TargetStockQty: 80},
}

func TestTodayBoard_RoomStatuses(t *testing.T) {
	rooms := fakeRoomLister{rooms: []hub.Room{{RoomID: "101"}, {RoomID: "102"}, {RoomID: "103"}}}
	f := newReportFixture(t, rooms, testItems)
	ctx := context.Background()

	// 101 submitted, 102 draft only, 103 untouched
	_, err := f.counts.Submit(ctx, SubmitRequest{
		LocationID: 7, RoomID: "101", Date: "2026-08-31",
		Counts: map[string]int{"bath-towel": 4, "pillow-case": 2}, Actor: maria,
	})
	require.NoError(t, err)
	_, err = f.counts.DraftSave(ctx, DraftSaveRequest{
		LocationID: 7, RoomID: "102", Date: "2026-08-31",
		ItemID: "bath-towel", Count: 3, Actor: maria,
	})
	require.NoError(t, err)

	resp, err := f.reports.TodayBoard(ctx, TodayBoardRequest{LocationID: 7, Date: "2026-08-31", Actor: frank})
	require.NoError(t, err)
	require.Len(t, resp.Rooms, 3)

	byRoom := map[string]RoomStatusRow{}
	for _, row := range resp.Rooms {
		byRoom[row.RoomID] = row
	}
	assert.Equal(t, RoomStatusSubmitted, byRoom["101"].Status)
	assert.Equal(t, 6, byRoom["101"].TotalItems)
	assert.Equal(t, "u12", byRoom["101"].SubmittedByName)
	assert.Equal(t, RoomStatusUnsubmitted, byRoom["102"].Status)
	assert.Equal(t, RoomStatusNone, byRoom["103"].Status)
}

func TestTodayBoard_FallsBackWhenHubUnavailable(t *testing.T) {
	f := newReportFixture(t, fakeRoomLister{err: assert.AnError}, testItems)
	ctx := context.Background()

	_, err := f.counts.DraftSave(ctx, DraftSaveRequest{
		LocationID: 7, RoomID: "205", Date: "2026-08-31",
		ItemID: "bath-towel", Count: 1, Actor: maria,
	})
	require.NoError(t, err)

	resp, err := f.reports.TodayBoard(ctx, TodayBoardRequest{LocationID: 7, Date: "2026-08-31", Actor: frank})
	require.NoError(t, err)
	require.Len(t, resp.Rooms, 1)
	assert.Equal(t, "205", resp.Rooms[0].RoomID)
}

func TestTodayTotals_ZeroFillsCatalog(t *testing.T) {
	f := newReportFixture(t, fakeRoomLister{}, testItems)
	ctx := context.Background()

	_, err := f.counts.Submit(ctx, SubmitRequest{
		LocationID: 7, RoomID: "101", Date: "2026-08-31",
		Counts: map[string]int{"bath-towel": 4}, Actor: maria,
	})
	require.NoError(t, err)

	resp, err := f.reports.TodayTotals(ctx, TodayTotalsRequest{LocationID: 7, Date: "2026-08-31", Actor: frank})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "bath-towel", resp.Items[0].ItemID)
	assert.Equal(t, 4, resp.Items[0].Total)
	assert.Equal(t, "pillow-case", resp.Items[1].ItemID)
	assert.Equal(t, 0, resp.Items[1].Total)
	assert.Equal(t, 4, resp.GrandTotal)
}

func TestRangeReport_ZeroFillsDatesAndItems(t *testing.T) {
	f := newReportFixture(t, fakeRoomLister{}, testItems)
	ctx := context.Background()

	_, err := f.counts.Submit(ctx, SubmitRequest{
		LocationID: 7, RoomID: "101", Date: "2026-08-30",
		Counts: map[string]int{"bath-towel": 4}, Actor: maria,
	})
	require.NoError(t, err)
	_, err = f.counts.Submit(ctx, SubmitRequest{
		LocationID: 7, RoomID: "102", Date: "2026-09-01",
		Counts: map[string]int{"pillow-case": 3}, Actor: maria,
	})
	require.NoError(t, err)

	resp, err := f.reports.RangeReport(ctx, RangeReportRequest{
		LocationID: 7, From: "2026-08-30", To: "2026-09-01", Actor: frank,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"2026-08-30", "2026-08-31", "2026-09-01"}, resp.Dates)
	assert.Equal(t, 4, resp.Grid["2026-08-30"]["bath-towel"])
	assert.Equal(t, 0, resp.Grid["2026-08-31"]["bath-towel"])
	assert.Equal(t, 3, resp.Grid["2026-09-01"]["pillow-case"])
	assert.Equal(t, 7, resp.GrandTotal)
}

func TestRangeReport_RejectsInvertedRange(t *testing.T) {
	f := newReportFixture(t, fakeRoomLister{}, testItems)

	_, err := f.reports.RangeReport(context.Background(), RangeReportRequest{
		LocationID: 7, From: "2026-09-01", To: "2026-08-30", Actor: frank,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCalendar_SummarizesPerDay(t *testing.T) {
	f := newReportFixture(t, fakeRoomLister{}, testItems)
	ctx := context.Background()

	_, err := f.counts.Submit(ctx, SubmitRequest{
		LocationID: 7, RoomID: "101", Date: "2026-08-31",
		Counts: map[string]int{"bath-towel": 4, "pillow-case": 2}, Actor: maria,
	})
	require.NoError(t, err)
	_, err = f.counts.Submit(ctx, SubmitRequest{
		LocationID: 7, RoomID: "102", Date: "2026-08-31",
		Counts: map[string]int{"bath-towel": 1}, Actor: frank,
	})
	require.NoError(t, err)

	resp, err := f.reports.Calendar(ctx, CalendarRequest{
		LocationID: 7, From: "2026-08-01", To: "2026-08-31", Actor: frank,
	})
	require.NoError(t, err)
	require.Len(t, resp.Days, 1)
	assert.Equal(t, "2026-08-31", resp.Days[0].Date)
	assert.Equal(t, 2, resp.Days[0].RoomCount)
	assert.Equal(t, 2, resp.Days[0].ItemTypes)
	assert.Equal(t, 7, resp.Days[0].TotalItems)
	assert.Equal(t, 2, resp.Days[0].StaffCount)
}

func TestExport_CSVHasHeaderAndRows(t *testing.T) {
	f := newReportFixture(t, fakeRoomLister{}, testItems)
	ctx := context.Background()

	_, err := f.counts.Submit(ctx, SubmitRequest{
		LocationID: 7, RoomID: "101", Date: "2026-08-31",
		Counts: map[string]int{"bath-towel": 4}, BookingRef: "BK-9", Actor: maria,
	})
	require.NoError(t, err)

	result, err := f.reports.Export(ctx, ExportRequest{
		LocationID: 7, From: "2026-08-31", To: "2026-08-31", Format: "csv", Actor: frank,
	})
	require.NoError(t, err)
	assert.Equal(t, "linen-counts-2026-08-31-to-2026-08-31.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	rows, err := csv.NewReader(bytes.NewReader(result.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, "2026-08-31", rows[1][0])
	assert.Equal(t, "101", rows[1][1])
	assert.Equal(t, "Bath Towel", rows[1][2])
	assert.Equal(t, "4", rows[1][3])
	assert.Equal(t, "BK-9", rows[1][8])
}

func TestExport_XLSXProducesWorkbook(t *testing.T) {
	f := newReportFixture(t, fakeRoomLister{}, testItems)
	ctx := context.Background()

	_, err := f.counts.Submit(ctx, SubmitRequest{
		LocationID: 7, RoomID: "101", Date: "2026-08-31",
		Counts: map[string]int{"bath-towel": 4}, Actor: maria,
	})
	require.NoError(t, err)

	result, err := f.reports.Export(ctx, ExportRequest{
		LocationID: 7, From: "2026-08-31", To: "2026-08-31", Format: "xlsx", Actor: frank,
	})
	require.NoError(t, err)
	assert.Equal(t, "linen-counts-2026-08-31-to-2026-08-31.xlsx", result.Filename)
	assert.NotEmpty(t, result.Data)
	// xlsx is a zip container
	assert.Equal(t, []byte{'P', 'K'}, result.Data[:2])
}

func TestExport_RejectsUnknownFormat(t *testing.T) {
	f := newReportFixture(t, fakeRoomLister{}, testItems)

	_, err := f.reports.Export(context.Background(), ExportRequest{
		LocationID: 7, From: "2026-08-31", To: "2026-08-31", Format: "pdf", Actor: frank,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReports_RequireViewCapability(t *testing.T) {
	f := newReportFixture(t, fakeRoomLister{}, testItems)

	_, err := f.reports.TodayTotals(context.Background(), TodayTotalsRequest{
		LocationID: 7, Date: "2026-08-31", Actor: maria,
	})
	assert.NoError(t, err) // supervisorAuth grants everything

	restricted := NewReportService(
		repository.NewMemoryCountsRepository(),
		repository.NewMemorySettingsRepository(),
		fakeRoomLister{}, housekeeperAuth(), IdentityResolver{}, zap.NewNop())
	_, err = restricted.TodayTotals(context.Background(), TodayTotalsRequest{
		LocationID: 7, Date: "2026-08-31", Actor: maria,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

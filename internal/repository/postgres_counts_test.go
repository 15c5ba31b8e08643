package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelhub-linencount/internal/domain"
)

func setupMockCountsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresCountsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresCountsRepository(db)
	return db, mock, repo
}

var countTestColumns = []string{
	"id", "location_id", "room_id", "linen_item_id", "count",
	"submitted_by", "submitted_at", "service_date", "booking_ref",
	"is_locked", "last_updated_by", "last_updated_at", "change_seq",
}

func TestGetRoomCounts_Success(t *testing.T) {
	db, mock, repo := setupMockCountsDB(t)
	defer db.Close()

	submittedAt := time.Now()
	rows := sqlmock.NewRows(countTestColumns).
		AddRow(1, 7, "101", "bath-towel", 4, "u12", submittedAt, "2026-08-31", nil, false, nil, nil, 41).
		AddRow(2, 7, "101", "pillow-case", 2, "u12", submittedAt, "2026-08-31", "BK-9", true, "u3", submittedAt, 57)

	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(7), "101", "2026-08-31").
		WillReturnRows(rows)

	records, err := repo.GetRoomCounts(context.Background(), 7, "101", "2026-08-31")

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.StatusDraft, records[0].Status)
	assert.Equal(t, domain.StatusSubmitted, records[1].Status)
	assert.Equal(t, "BK-9", records[1].BookingRef.String)
	assert.Equal(t, int64(57), records[1].ChangeSeq)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecord_NotFound(t *testing.T) {
	db, mock, repo := setupMockCountsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(7), "101", "bath-towel", "2026-08-31").
		WillReturnError(sql.ErrNoRows)

	rec, err := repo.GetRecord(context.Background(), 7, "101", "bath-towel", "2026-08-31")

	require.NoError(t, err)
	assert.Nil(t, rec)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDraft_InsertsNewRow(t *testing.T) {
	db, mock, repo := setupMockCountsDB(t)
	defer db.Close()

	now := time.Now()

	// no existing row
	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(7), "101", "bath-towel", "2026-08-31").
		WillReturnError(sql.ErrNoRows)

	mock.ExpectExec(`INSERT INTO linen_counts`).
		WithArgs(int64(7), "101", "bath-towel", 4, "u12", now, "2026-08-31", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	// re-read of the stored row
	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(7), "101", "bath-towel", "2026-08-31").
		WillReturnRows(sqlmock.NewRows(countTestColumns).
			AddRow(1, 7, "101", "bath-towel", 4, "u12", now, "2026-08-31", nil, false, "u12", now, 42))

	rec, err := repo.SaveDraft(context.Background(), DraftWrite{
		LocationID: 7,
		RoomID:     "101",
		ItemID:     "bath-towel",
		Date:       "2026-08-31",
		Count:      4,
		ActorID:    "u12",
		Now:        now,
	})

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.StatusDraft, rec.Status)
	assert.Equal(t, int64(42), rec.ChangeSeq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDraft_ConcurrentInsertRetriesAsUpdate(t *testing.T) {
	db, mock, repo := setupMockCountsDB(t)
	defer db.Close()

	now := time.Now()

	// no existing row at first read
	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(7), "101", "bath-towel", "2026-08-31").
		WillReturnError(sql.ErrNoRows)

	// another writer won the insert race
	mock.ExpectExec(`INSERT INTO linen_counts`).
		WithArgs(int64(7), "101", "bath-towel", 4, "u12", now, "2026-08-31", "").
		WillReturnError(&pq.Error{Code: "23505"})

	// second read finds the concurrently inserted row
	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(7), "101", "bath-towel", "2026-08-31").
		WillReturnRows(sqlmock.NewRows(countTestColumns).
			AddRow(5, 7, "101", "bath-towel", 1, "u9", now, "2026-08-31", nil, false, "u9", now, 42))

	// retried once as an update against that row
	mock.ExpectExec(`UPDATE linen_counts`).
		WithArgs(4, "u12", now, "", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(7), "101", "bath-towel", "2026-08-31").
		WillReturnRows(sqlmock.NewRows(countTestColumns).
			AddRow(5, 7, "101", "bath-towel", 4, "u9", now, "2026-08-31", nil, false, "u12", now, 43))

	rec, err := repo.SaveDraft(context.Background(), DraftWrite{
		LocationID: 7,
		RoomID:     "101",
		ItemID:     "bath-towel",
		Date:       "2026-08-31",
		Count:      4,
		ActorID:    "u12",
		Now:        now,
	})

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 4, rec.Count)
	assert.Equal(t, "u9", rec.SubmittedBy)
	assert.Equal(t, "u12", rec.LastUpdatedBy.String)
	assert.Equal(t, int64(43), rec.ChangeSeq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDraft_LockedRowKeepsBookingRef(t *testing.T) {
	db, mock, repo := setupMockCountsDB(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(7), "101", "bath-towel", "2026-08-31").
		WillReturnRows(sqlmock.NewRows(countTestColumns).
			AddRow(9, 7, "101", "bath-towel", 4, "u12", now, "2026-08-31", "BK-9", true, nil, nil, 42))

	// the locked-row update carries count + edit audit only
	mock.ExpectExec(`UPDATE linen_counts`).
		WithArgs(6, "u3", now, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(7), "101", "bath-towel", "2026-08-31").
		WillReturnRows(sqlmock.NewRows(countTestColumns).
			AddRow(9, 7, "101", "bath-towel", 6, "u12", now, "2026-08-31", "BK-9", true, "u3", now, 43))

	rec, err := repo.SaveDraft(context.Background(), DraftWrite{
		LocationID: 7,
		RoomID:     "101",
		ItemID:     "bath-towel",
		Date:       "2026-08-31",
		Count:      6,
		ActorID:    "u3",
		BookingRef: "SHOULD-BE-IGNORED",
		Now:        now,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, rec.Status)
	assert.Equal(t, "BK-9", rec.BookingRef.String)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_RejectsLockedRoomWithoutOverride(t *testing.T) {
	db, mock, repo := setupMockCountsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(int64(7), "101", "2026-08-31").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	_, err := repo.Submit(context.Background(), SubmitWrite{
		LocationID:  7,
		RoomID:      "101",
		Date:        "2026-08-31",
		Counts:      map[string]int{"bath-towel": 4},
		ActorID:     "u12",
		Now:         time.Now(),
		AllowLocked: false,
	})

	assert.True(t, errors.Is(err, ErrLockedRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_CommitsAllItems(t *testing.T) {
	db, mock, repo := setupMockCountsDB(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(int64(7), "101", "2026-08-31").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO linen_counts`).
		WithArgs(int64(7), "101", "bath-towel", 4, "u12", now, "2026-08-31", "BK-9").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	isUpdate, err := repo.Submit(context.Background(), SubmitWrite{
		LocationID: 7,
		RoomID:     "101",
		Date:       "2026-08-31",
		Counts:     map[string]int{"bath-towel": 4},
		ActorID:    "u12",
		BookingRef: "BK-9",
		Now:        now,
	})

	require.NoError(t, err)
	assert.False(t, isUpdate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_RollsBackOnFailure(t *testing.T) {
	db, mock, repo := setupMockCountsDB(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(int64(7), "101", "2026-08-31").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO linen_counts`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Submit(context.Background(), SubmitWrite{
		LocationID: 7,
		RoomID:     "101",
		Date:       "2026-08-31",
		Counts:     map[string]int{"bath-towel": 4},
		ActorID:    "u12",
		Now:        now,
	})

	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlock_ClearsLockOnly(t *testing.T) {
	db, mock, repo := setupMockCountsDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE linen_counts`).
		WithArgs(int64(7), "101", "2026-08-31").
		WillReturnResult(sqlmock.NewResult(0, 5))

	affected, err := repo.Unlock(context.Background(), 7, "101", "2026-08-31")

	require.NoError(t, err)
	assert.Equal(t, int64(5), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangesSince_FiltersByCursor(t *testing.T) {
	db, mock, repo := setupMockCountsDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(7), "2026-08-31", int64(40)).
		WillReturnRows(sqlmock.NewRows(countTestColumns).
			AddRow(1, 7, "101", "bath-towel", 4, "u12", now, "2026-08-31", nil, false, nil, nil, 41).
			AddRow(2, 7, "102", "pillow-case", 2, "u12", now, "2026-08-31", nil, true, nil, nil, 44))

	records, err := repo.ChangesSince(context.Background(), 7, "2026-08-31", 40, "")

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(41), records[0].ChangeSeq)
	assert.Equal(t, int64(44), records[1].ChangeSeq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDayTotals_GroupsByItem(t *testing.T) {
	db, mock, repo := setupMockCountsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT linen_item_id`).
		WithArgs(int64(7), "2026-08-31").
		WillReturnRows(sqlmock.NewRows([]string{"linen_item_id", "sum"}).
			AddRow("bath-towel", 12).
			AddRow("pillow-case", 7))

	totals, err := repo.DayTotals(context.Background(), 7, "2026-08-31")

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"bath-towel": 12, "pillow-case": 7}, totals)
	require.NoError(t, mock.ExpectationsWereMet())
}

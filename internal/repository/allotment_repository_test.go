package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hall-adp-api/internal/models"
)

func TestAllotmentRepositoryCreate(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewAllotmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO room_allotments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	allotment := &models.RoomAllotment{StudentID: "stu-1", StudentNumber: "2021331001", RequestedBlock: "A", RequestedRoomNo: 101, RequestedBedNo: 2}
	require.NoError(t, repo.Create(context.Background(), allotment))
	assert.NotEmpty(t, allotment.ID)
	assert.Equal(t, models.AllotmentStatusPending, allotment.Status)
	assert.True(t, allotment.IsActive)
	assert.False(t, allotment.RequestDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllotmentRepositoryCreatePendingExists(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewAllotmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO room_allotments")).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: constraintPendingAllotment})

	err := repo.Create(context.Background(), &models.RoomAllotment{StudentID: "stu-1"})
	assert.ErrorIs(t, err, ErrPendingAllotmentExists)
}

func TestAllotmentRepositoryGetByID(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewAllotmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(allotmentRowColumns).
		AddRow("al-1", "stu-1", "2021331001", "A", 101, 2, nil, nil, nil, "PENDING", false, true,
			"near window", nil, nil, nil, now, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_allotments WHERE id = $1")).
		WithArgs("al-1").
		WillReturnRows(rows)

	allotment, err := repo.GetByID(context.Background(), "al-1")
	require.NoError(t, err)
	assert.True(t, allotment.IsPending())
	assert.Equal(t, models.BedRef{Block: "A", RoomNo: 101, BedNo: 2}, allotment.Requested())
	assert.Nil(t, allotment.Allocated())
}

func TestAllotmentRepositoryListBuildsFilters(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewAllotmentRepository(db)

	change := true
	filter := models.AllotmentFilter{
		Status:       []models.AllotmentStatus{models.AllotmentStatusPending},
		Block:        "B",
		IsRoomChange: &change,
		Page:         2,
		PageSize:     10,
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM room_allotments WHERE status IN ($1) AND requested_block = $2 AND is_room_change = $3 ORDER BY request_date DESC LIMIT 10 OFFSET 10")).
		WithArgs(models.AllotmentStatusPending, "B", true).
		WillReturnRows(sqlmock.NewRows(allotmentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM room_allotments WHERE status IN ($1)")).
		WithArgs(models.AllotmentStatusPending, "B", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	items, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllotmentRepositoryRejectRequiresPending(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewAllotmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'REJECTED'")).
		WithArgs("al-1", "room reserved for staff", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reject(context.Background(), "al-1", "admin-1", "room reserved for staff", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAllotmentRepositoryCancel(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewAllotmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'CANCELLED', is_active = FALSE")).
		WithArgs("al-1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Cancel(context.Background(), "al-1", "  ", time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllotmentRepositoryUpdateRequest(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewAllotmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET requested_block = $2, requested_room_no = $3, requested_bed_no = $4, student_notes = $5")).
		WithArgs("al-1", "B", 210, 3, "quiet room").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateRequest(context.Background(), "al-1", models.BedRef{Block: "B", RoomNo: 210, BedNo: 3}, "quiet room")
	require.NoError(t, err)
}

package repository

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var studentRowColumns = []string{"id", "student_number", "full_name", "email", "department", "session", "block", "room_no", "bed_no", "allocation_date", "created_at", "updated_at"}

var occupantRowColumns = []string{"block", "room_no", "bed_no", "id", "student_number", "full_name", "department"}

var allotmentRowColumns = []string{"id", "student_id", "student_number", "requested_block", "requested_room_no", "requested_bed_no",
	"allocated_block", "allocated_room_no", "allocated_bed_no", "status", "is_room_change", "is_active",
	"student_notes", "admin_notes", "approved_by_admin_id", "admin_action_date", "request_date",
	"check_in_date", "check_out_date", "cancellation_reason"}

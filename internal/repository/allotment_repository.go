package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hall-adp-api/internal/models"
)

const allotmentColumns = `id, student_id, student_number, requested_block, requested_room_no, requested_bed_no,
       allocated_block, allocated_room_no, allocated_bed_no, status, is_room_change, is_active,
       student_notes, admin_notes, approved_by_admin_id, admin_action_date, request_date,
       check_in_date, check_out_date, cancellation_reason`

// AllotmentRepository persists room allotment requests. Transitions out of PENDING are
// single conditional statements; approval lives in AllocationRepository.
type AllotmentRepository struct {
	db *sqlx.DB
}

// NewAllotmentRepository constructs the repository.
func NewAllotmentRepository(db *sqlx.DB) *AllotmentRepository {
	return &AllotmentRepository{db: db}
}

// Create inserts a PENDING allotment. ErrPendingAllotmentExists is returned when the
// student already has one.
func (r *AllotmentRepository) Create(ctx context.Context, allotment *models.RoomAllotment) error {
	if allotment.ID == "" {
		allotment.ID = uuid.NewString()
	}
	if allotment.RequestDate.IsZero() {
		allotment.RequestDate = time.Now().UTC()
	}
	allotment.Status = models.AllotmentStatusPending
	allotment.IsActive = true
	const query = `INSERT INTO room_allotments
	(id, student_id, student_number, requested_block, requested_room_no, requested_bed_no, status,
	 is_room_change, is_active, student_notes, request_date)
	VALUES (:id, :student_id, :student_number, :requested_block, :requested_room_no, :requested_bed_no, :status,
	 :is_room_change, :is_active, :student_notes, :request_date)`
	if _, err := r.db.NamedExecContext(ctx, query, allotment); err != nil {
		if isUniqueViolation(err, constraintPendingAllotment) {
			return ErrPendingAllotmentExists
		}
		return fmt.Errorf("create allotment: %w", err)
	}
	return nil
}

// GetByID fetches an allotment by identifier.
func (r *AllotmentRepository) GetByID(ctx context.Context, id string) (*models.RoomAllotment, error) {
	query := fmt.Sprintf(`SELECT %s FROM room_allotments WHERE id = $1`, allotmentColumns)
	var allotment models.RoomAllotment
	if err := r.db.GetContext(ctx, &allotment, query, id); err != nil {
		return nil, err
	}
	return &allotment, nil
}

// FindPendingByStudent returns the student's pending allotment or sql.ErrNoRows.
func (r *AllotmentRepository) FindPendingByStudent(ctx context.Context, studentID string) (*models.RoomAllotment, error) {
	query := fmt.Sprintf(`SELECT %s FROM room_allotments WHERE student_id = $1 AND status = $2 LIMIT 1`, allotmentColumns)
	var allotment models.RoomAllotment
	if err := r.db.GetContext(ctx, &allotment, query, studentID, models.AllotmentStatusPending); err != nil {
		return nil, err
	}
	return &allotment, nil
}

// ListByStudent returns the student's full request history, newest first.
func (r *AllotmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.RoomAllotment, error) {
	query := fmt.Sprintf(`SELECT %s FROM room_allotments WHERE student_id = $1 ORDER BY request_date DESC`, allotmentColumns)
	allotments := make([]models.RoomAllotment, 0)
	if err := r.db.SelectContext(ctx, &allotments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student allotments: %w", err)
	}
	return allotments, nil
}

// List returns allotments matching the filter together with the total count.
func (r *AllotmentRepository) List(ctx context.Context, filter models.AllotmentFilter) ([]models.RoomAllotment, int, error) {
	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 5)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Block != "" {
		args = append(args, filter.Block)
		conditions = append(conditions, fmt.Sprintf("requested_block = $%d", len(args)))
	}
	if filter.IsRoomChange != nil {
		args = append(args, *filter.IsRoomChange)
		conditions = append(conditions, fmt.Sprintf("is_room_change = $%d", len(args)))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	baseQuery := "FROM room_allotments"
	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY request_date DESC LIMIT %d OFFSET %d", allotmentColumns, baseQuery, pageSize, offset)
	allotments := make([]models.RoomAllotment, 0)
	if err := r.db.SelectContext(ctx, &allotments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list allotments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count allotments: %w", err)
	}
	return allotments, total, nil
}

// UpdateRequest overwrites the requested bed and notes of a pending allotment.
func (r *AllotmentRepository) UpdateRequest(ctx context.Context, id string, bed models.BedRef, notes string) error {
	const query = `UPDATE room_allotments
	SET requested_block = $2, requested_room_no = $3, requested_bed_no = $4, student_notes = $5
	WHERE id = $1 AND status = 'PENDING'`
	return r.execPending(ctx, "update allotment request", query, id, bed.Block, bed.RoomNo, bed.BedNo, notes)
}

// Reject closes a pending allotment without touching the student.
func (r *AllotmentRepository) Reject(ctx context.Context, id, adminID, adminNotes string, at time.Time) error {
	const query = `UPDATE room_allotments
	SET status = 'REJECTED', is_active = FALSE, admin_notes = $2, approved_by_admin_id = $3, admin_action_date = $4
	WHERE id = $1 AND status = 'PENDING'`
	return r.execPending(ctx, "reject allotment", query, id, nullableString(adminNotes), adminID, at)
}

// Cancel withdraws a pending allotment on behalf of its owner.
func (r *AllotmentRepository) Cancel(ctx context.Context, id, reason string, at time.Time) error {
	const query = `UPDATE room_allotments
	SET status = 'CANCELLED', is_active = FALSE, cancellation_reason = $2, admin_action_date = $3
	WHERE id = $1 AND status = 'PENDING'`
	return r.execPending(ctx, "cancel allotment", query, id, nullableString(reason), at)
}

func (r *AllotmentRepository) execPending(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullableString(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

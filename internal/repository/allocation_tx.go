package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hall-adp-api/internal/models"
)

// DefaultAllocationAttempts bounds how often a serialization failure is retried.
const DefaultAllocationAttempts = 3

type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ApproveParams describes the decision written onto a pending allotment.
type ApproveParams struct {
	AllotmentID string
	AdminID     string
	AdminNotes  string
	Bed         models.BedRef
	At          time.Time
}

// AllocationUnit is the set of reads and writes available inside one allocation transaction.
type AllocationUnit interface {
	LockAllotment(ctx context.Context, id string) (*models.RoomAllotment, error)
	LockStudent(ctx context.Context, id string) (*models.Student, error)
	LockBed(ctx context.Context, bed models.BedRef) error
	BedOccupant(ctx context.Context, bed models.BedRef) (*models.BedOccupant, error)
	RoomOccupantCount(ctx context.Context, block string, roomNo int, excludeStudentID string) (int, error)
	EnsureRoom(ctx context.Context, room models.Room) error
	AssignBed(ctx context.Context, studentID string, bed models.BedRef, at time.Time) error
	ClearBed(ctx context.Context, studentID string, at time.Time) (bool, error)
	ApproveAllotment(ctx context.Context, params ApproveParams) error
	SupersedeActiveAllotments(ctx context.Context, studentID, exceptID, note string, at time.Time) (int64, error)
}

// AllocationRepository runs allocation-changing work in serializable transactions.
type AllocationRepository struct {
	db          txBeginner
	maxAttempts int
	onRetry     func(attempt int, err error)
}

// NewAllocationRepository constructs the repository. maxAttempts <= 0 falls back to DefaultAllocationAttempts.
func NewAllocationRepository(db txBeginner, maxAttempts int) *AllocationRepository {
	if maxAttempts <= 0 {
		maxAttempts = DefaultAllocationAttempts
	}
	return &AllocationRepository{db: db, maxAttempts: maxAttempts}
}

// OnRetry registers a callback fired before each retried attempt.
func (r *AllocationRepository) OnRetry(fn func(attempt int, err error)) {
	r.onRetry = fn
}

// InTx runs fn inside a serializable transaction. Serialization failures and deadlocks
// restart fn from scratch; any other error rolls back and is returned as is.
func (r *AllocationRepository) InTx(ctx context.Context, fn func(AllocationUnit) error) error {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = r.runOnce(ctx, fn)
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		if attempt < r.maxAttempts && r.onRetry != nil {
			r.onRetry(attempt, err)
		}
	}
	return err
}

func (r *AllocationRepository) runOnce(ctx context.Context, fn func(AllocationUnit) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin allocation tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&allocationTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit allocation tx: %w", err)
	}
	return nil
}

type allocationTx struct {
	tx *sqlx.Tx
}

func (t *allocationTx) LockAllotment(ctx context.Context, id string) (*models.RoomAllotment, error) {
	query := fmt.Sprintf(`SELECT %s FROM room_allotments WHERE id = $1 FOR UPDATE`, allotmentColumns)
	var allotment models.RoomAllotment
	if err := t.tx.GetContext(ctx, &allotment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock allotment: %w", err)
	}
	return &allotment, nil
}

func (t *allocationTx) LockStudent(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1 FOR UPDATE`, studentColumns)
	var student models.Student
	if err := t.tx.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock student: %w", err)
	}
	return &student, nil
}

// LockBed takes a transaction-scoped advisory lock on the bed triple so concurrent
// allocations of the same bed queue behind each other even before a row exists.
func (t *allocationTx) LockBed(ctx context.Context, bed models.BedRef) error {
	key := fmt.Sprintf("bed:%s:%d:%d", bed.Block, bed.RoomNo, bed.BedNo)
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock bed %s: %w", key, err)
	}
	return nil
}

func (t *allocationTx) BedOccupant(ctx context.Context, bed models.BedRef) (*models.BedOccupant, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE block = $1 AND room_no = $2 AND bed_no = $3 LIMIT 1`, occupantColumns)
	var occupant models.BedOccupant
	if err := t.tx.GetContext(ctx, &occupant, query, bed.Block, bed.RoomNo, bed.BedNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read bed occupant: %w", err)
	}
	return &occupant, nil
}

func (t *allocationTx) RoomOccupantCount(ctx context.Context, block string, roomNo int, excludeStudentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE block = $1 AND room_no = $2 AND id <> $3`
	var count int
	if err := t.tx.GetContext(ctx, &count, query, block, roomNo, excludeStudentID); err != nil {
		return 0, fmt.Errorf("count room occupants: %w", err)
	}
	return count, nil
}

// EnsureRoom registers the directory entry the students.(block, room_no) foreign key points at.
func (t *allocationTx) EnsureRoom(ctx context.Context, room models.Room) error {
	query := fmt.Sprintf(`INSERT INTO rooms (%s) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (block, room_no) DO NOTHING`, roomColumns)
	if _, err := t.tx.ExecContext(ctx, query, room.Block, room.RoomNo, room.Floor, room.Capacity, time.Now().UTC()); err != nil {
		return fmt.Errorf("ensure room %s: %w", room.Label(), err)
	}
	return nil
}

func (t *allocationTx) AssignBed(ctx context.Context, studentID string, bed models.BedRef, at time.Time) error {
	const query = `UPDATE students SET block = $2, room_no = $3, bed_no = $4, allocation_date = $5, updated_at = $5 WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, studentID, bed.Block, bed.RoomNo, bed.BedNo, at)
	if err != nil {
		if isUniqueViolation(err, constraintStudentBed) {
			return ErrBedTaken
		}
		return fmt.Errorf("assign bed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check assign bed rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (t *allocationTx) ClearBed(ctx context.Context, studentID string, at time.Time) (bool, error) {
	const query = `UPDATE students SET block = NULL, room_no = NULL, bed_no = NULL, allocation_date = NULL, updated_at = $2
	WHERE id = $1 AND block IS NOT NULL`
	result, err := t.tx.ExecContext(ctx, query, studentID, at)
	if err != nil {
		return false, fmt.Errorf("clear bed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check clear bed rows: %w", err)
	}
	return rows > 0, nil
}

func (t *allocationTx) ApproveAllotment(ctx context.Context, p ApproveParams) error {
	const query = `UPDATE room_allotments
	SET status = 'APPROVED', is_active = TRUE,
	    allocated_block = $2, allocated_room_no = $3, allocated_bed_no = $4,
	    approved_by_admin_id = $5, admin_action_date = $6, check_in_date = $6,
	    admin_notes = COALESCE($7, admin_notes)
	WHERE id = $1 AND status = 'PENDING'`
	result, err := t.tx.ExecContext(ctx, query, p.AllotmentID, p.Bed.Block, p.Bed.RoomNo, p.Bed.BedNo,
		p.AdminID, p.At, nullableString(p.AdminNotes))
	if err != nil {
		return fmt.Errorf("approve allotment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check approve rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SupersedeActiveAllotments deactivates the student's approved allotments other than exceptID,
// recording the note as cancellation reason and appending it to the admin notes.
func (t *allocationTx) SupersedeActiveAllotments(ctx context.Context, studentID, exceptID, note string, at time.Time) (int64, error) {
	const query = `UPDATE room_allotments
	SET is_active = FALSE, check_out_date = $3, cancellation_reason = $4,
	    admin_notes = CASE WHEN admin_notes IS NULL OR admin_notes = '' THEN $4 ELSE admin_notes || E'\n' || $4 END
	WHERE student_id = $1 AND id <> $2 AND is_active = TRUE AND status = 'APPROVED'`
	result, err := t.tx.ExecContext(ctx, query, studentID, exceptID, at, note)
	if err != nil {
		return 0, fmt.Errorf("supersede allotments: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check supersede rows: %w", err)
	}
	return rows, nil
}

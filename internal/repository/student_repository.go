package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/hall-adp-api/internal/models"
)

const studentColumns = `id, student_number, full_name, email, department, session, block, room_no, bed_no,
       allocation_date, created_at, updated_at`

const occupantColumns = `block, room_no, bed_no, id, student_number, full_name, department`

// StudentRepository reads student records. Bed assignments are written only through AllocationRepository.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return findStudent(ctx, r.db, "id = $1", id)
}

// FindByStudentNumber returns a student by the display student number.
func (r *StudentRepository) FindByStudentNumber(ctx context.Context, number string) (*models.Student, error) {
	return findStudent(ctx, r.db, "student_number = $1", number)
}

// ListOccupants returns the students assigned to any of the given rooms of a block,
// ordered by room and bed. This is the single source of truth for occupancy.
func (r *StudentRepository) ListOccupants(ctx context.Context, block string, roomNos []int) ([]models.BedOccupant, error) {
	if len(roomNos) == 0 {
		return []models.BedOccupant{}, nil
	}
	return listOccupants(ctx, r.db, block, roomNos)
}

func findStudent(ctx context.Context, q sqlx.QueryerContext, where string, args ...interface{}) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE %s LIMIT 1", studentColumns, where)
	var student models.Student
	if err := sqlx.GetContext(ctx, q, &student, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

func listOccupants(ctx context.Context, q sqlx.QueryerContext, block string, roomNos []int) ([]models.BedOccupant, error) {
	query := fmt.Sprintf(`SELECT %s FROM students
	WHERE block = $1 AND room_no = ANY($2) AND bed_no IS NOT NULL
	ORDER BY room_no, bed_no`, occupantColumns)
	rooms := make([]int64, len(roomNos))
	for i, n := range roomNos {
		rooms[i] = int64(n)
	}
	occupants := make([]models.BedOccupant, 0)
	if err := sqlx.SelectContext(ctx, q, &occupants, query, block, pq.Array(rooms)); err != nil {
		return nil, fmt.Errorf("list room occupants: %w", err)
	}
	return occupants, nil
}

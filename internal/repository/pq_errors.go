package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres error codes inspected by the repositories.
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// Constraint names declared in migrations/0001_init.up.sql.
const (
	constraintStudentBed       = "students_bed_unique"
	constraintPendingAllotment = "room_allotments_one_pending"
)

var (
	// ErrBedTaken signals the bed uniqueness index rejected an assignment.
	ErrBedTaken = errors.New("bed already assigned")
	// ErrPendingAllotmentExists signals the student already has a pending allotment.
	ErrPendingAllotmentExists = errors.New("pending allotment already exists")
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsRetryable reports whether a transaction failed because of a serialization conflict or deadlock.
func IsRetryable(err error) bool {
	switch pqCode(err) {
	case pqSerializationFailure, pqDeadlockDetected:
		return true
	default:
		return false
	}
}

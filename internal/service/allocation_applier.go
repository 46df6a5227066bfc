package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/hall-adp-api/internal/models"
	"github.com/noah-isme/hall-adp-api/internal/repository"
	appErrors "github.com/noah-isme/hall-adp-api/pkg/errors"
)

// AllocationApplier writes a bed assignment inside the caller's transaction after
// re-checking the bed and the room against committed state.
type AllocationApplier struct {
	layout *HallLayout
	now    func() time.Time
}

// NewAllocationApplier constructs an applier for the given layout.
func NewAllocationApplier(layout *HallLayout) *AllocationApplier {
	if layout == nil {
		layout = DefaultHallLayout()
	}
	return &AllocationApplier{layout: layout, now: func() time.Time { return time.Now().UTC() }}
}

// Apply assigns bed to the student and returns the student as it was before the write.
// Conflicts surface as BED_OCCUPIED or ROOM_FULL; a student already holding the bed is a no-op.
func (a *AllocationApplier) Apply(ctx context.Context, unit repository.AllocationUnit, studentID string, bed models.BedRef) (*models.Student, error) {
	if err := unit.LockBed(ctx, bed); err != nil {
		return nil, err
	}
	student, err := unit.LockStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, err
	}
	before := *student

	occupant, err := unit.BedOccupant(ctx, bed)
	if err != nil {
		return nil, err
	}
	if occupant != nil {
		if occupant.StudentID == studentID {
			return &before, nil
		}
		return nil, appErrors.Clone(appErrors.ErrBedOccupied,
			fmt.Sprintf("bed %d in room %s is already occupied", bed.BedNo, models.RoomLabel(bed.Block, bed.RoomNo)))
	}

	count, err := unit.RoomOccupantCount(ctx, bed.Block, bed.RoomNo, studentID)
	if err != nil {
		return nil, err
	}
	if count >= a.layout.Capacity() {
		return nil, appErrors.Clone(appErrors.ErrRoomFull,
			fmt.Sprintf("room %s is full", models.RoomLabel(bed.Block, bed.RoomNo)))
	}

	if err := unit.EnsureRoom(ctx, a.layout.Room(bed.Block, bed.RoomNo)); err != nil {
		return nil, err
	}
	if err := unit.AssignBed(ctx, studentID, bed, a.now()); err != nil {
		if errors.Is(err, repository.ErrBedTaken) {
			return nil, appErrors.Clone(appErrors.ErrBedOccupied,
				fmt.Sprintf("bed %d in room %s is already occupied", bed.BedNo, models.RoomLabel(bed.Block, bed.RoomNo)))
		}
		return nil, err
	}
	return &before, nil
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/hall-adp-api/internal/models"
	"github.com/noah-isme/hall-adp-api/internal/repository"
)

// memHall is an in-memory stand-in for the students, rooms and room_allotments tables.
// InTx holds the mutex for the whole transaction and only publishes the working copy on success.
type memHall struct {
	mu    sync.Mutex
	state hallState
	seq   int

	txCalls int
	audits  []models.AuditLog
}

type hallState struct {
	students   map[string]models.Student
	allotments map[string]models.RoomAllotment
	rooms      map[string]models.Room
}

func newMemHall() *memHall {
	return &memHall{state: hallState{
		students:   make(map[string]models.Student),
		allotments: make(map[string]models.RoomAllotment),
		rooms:      make(map[string]models.Room),
	}}
}

func (s hallState) clone() hallState {
	out := hallState{
		students:   make(map[string]models.Student, len(s.students)),
		allotments: make(map[string]models.RoomAllotment, len(s.allotments)),
		rooms:      make(map[string]models.Room, len(s.rooms)),
	}
	for k, v := range s.students {
		out.students[k] = v
	}
	for k, v := range s.allotments {
		out.allotments[k] = v
	}
	for k, v := range s.rooms {
		out.rooms[k] = v
	}
	return out
}

func intPtr(v int) *int              { return &v }
func strPtr(v string) *string        { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func (h *memHall) addStudent(id string, bed *models.BedRef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := models.Student{ID: id, StudentNumber: "SN-" + id, FullName: "Student " + id, Department: "CSE"}
	if bed != nil {
		st.Block, st.RoomNo, st.BedNo = strPtr(bed.Block), intPtr(bed.RoomNo), intPtr(bed.BedNo)
		st.AllocationDate = timePtr(time.Now().UTC())
	}
	h.state.students[id] = st
}

func (h *memHall) addAllotment(a models.RoomAllotment) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	if a.RequestDate.IsZero() {
		a.RequestDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(h.seq) * time.Minute)
	}
	h.state.allotments[a.ID] = a
}

func (h *memHall) student(id string) *models.Student {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.state.students[id]
	return &st
}

func (h *memHall) allotment(id string) models.RoomAllotment {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.allotments[id]
}

func (h *memHall) activeAllotments(studentID string) []models.RoomAllotment {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.RoomAllotment
	for _, a := range h.state.allotments {
		if a.StudentID == studentID && a.IsActive {
			out = append(out, a)
		}
	}
	return out
}

// occupantsOf counts students per bed triple so tests can assert uniqueness.
func (h *memHall) occupantsOf(bed models.BedRef) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, st := range h.state.students {
		if ref := st.Assignment(); ref != nil && ref.Same(bed) {
			n++
		}
	}
	return n
}

// studentReader / occupantReader

func (h *memHall) FindByID(ctx context.Context, id string) (*models.Student, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.state.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (h *memHall) ListOccupants(ctx context.Context, block string, roomNos []int) ([]models.BedOccupant, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	wanted := make(map[int]bool, len(roomNos))
	for _, n := range roomNos {
		wanted[n] = true
	}
	var out []models.BedOccupant
	for _, st := range h.state.students {
		ref := st.Assignment()
		if ref == nil || ref.Block != block || !wanted[ref.RoomNo] {
			continue
		}
		out = append(out, models.BedOccupant{Block: ref.Block, RoomNo: ref.RoomNo, BedNumber: ref.BedNo, StudentID: st.ID, StudentNumber: st.StudentNumber, FullName: st.FullName, Department: st.Department})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoomNo != out[j].RoomNo {
			return out[i].RoomNo < out[j].RoomNo
		}
		return out[i].BedNumber < out[j].BedNumber
	})
	return out, nil
}

// roomStore

func (h *memHall) EnsureRooms(ctx context.Context, rooms []models.Room) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range rooms {
		if _, ok := h.state.rooms[r.Label()]; !ok {
			h.state.rooms[r.Label()] = r
		}
	}
	return nil
}

func (h *memHall) GetRoom(ctx context.Context, block string, roomNo int) (*models.Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.state.rooms[models.RoomLabel(block, roomNo)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

// allotmentStore

func (h *memHall) Create(ctx context.Context, a *models.RoomAllotment) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, existing := range h.state.allotments {
		if existing.StudentID == a.StudentID && existing.Status == models.AllotmentStatusPending {
			return repository.ErrPendingAllotmentExists
		}
	}
	h.seq++
	if a.ID == "" {
		a.ID = fmt.Sprintf("al-%d", h.seq)
	}
	a.Status = models.AllotmentStatusPending
	a.IsActive = true
	h.state.allotments[a.ID] = *a
	return nil
}

func (h *memHall) GetByID(ctx context.Context, id string) (*models.RoomAllotment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.state.allotments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (h *memHall) FindPendingByStudent(ctx context.Context, studentID string) (*models.RoomAllotment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range h.state.allotments {
		if a.StudentID == studentID && a.Status == models.AllotmentStatusPending {
			return &a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (h *memHall) ListByStudent(ctx context.Context, studentID string) ([]models.RoomAllotment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.RoomAllotment, 0)
	for _, a := range h.state.allotments {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestDate.After(out[j].RequestDate) })
	return out, nil
}

func (h *memHall) List(ctx context.Context, filter models.AllotmentFilter) ([]models.RoomAllotment, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.RoomAllotment, 0)
	for _, a := range h.state.allotments {
		if filter.Block != "" && a.RequestedBlock != filter.Block {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (h *memHall) UpdateRequest(ctx context.Context, id string, bed models.BedRef, notes string) error {
	return h.updatePending(id, func(a *models.RoomAllotment) {
		a.RequestedBlock, a.RequestedRoomNo, a.RequestedBedNo, a.StudentNotes = bed.Block, bed.RoomNo, bed.BedNo, notes
	})
}

func (h *memHall) Reject(ctx context.Context, id, adminID, adminNotes string, at time.Time) error {
	return h.updatePending(id, func(a *models.RoomAllotment) {
		a.Status, a.IsActive = models.AllotmentStatusRejected, false
		a.ApprovedByAdminID, a.AdminActionDate = &adminID, &at
		if adminNotes != "" {
			a.AdminNotes = &adminNotes
		}
	})
}

func (h *memHall) Cancel(ctx context.Context, id, reason string, at time.Time) error {
	return h.updatePending(id, func(a *models.RoomAllotment) {
		a.Status, a.IsActive = models.AllotmentStatusCancelled, false
		a.CancellationReason, a.AdminActionDate = &reason, &at
	})
}

func (h *memHall) updatePending(id string, mutate func(*models.RoomAllotment)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.state.allotments[id]
	if !ok || a.Status != models.AllotmentStatusPending {
		return sql.ErrNoRows
	}
	mutate(&a)
	h.state.allotments[id] = a
	return nil
}

// audit

func (h *memHall) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.audits = append(h.audits, *log)
	return nil
}

func (h *memHall) auditActions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.audits))
	for i, a := range h.audits {
		out[i] = a.Action
	}
	return out
}

// allocationStore

func (h *memHall) InTx(ctx context.Context, fn func(repository.AllocationUnit) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.txCalls++
	work := h.state.clone()
	if err := fn(&memTx{state: work}); err != nil {
		return err
	}
	h.state = work
	return nil
}

type memTx struct {
	state hallState
}

func (t *memTx) LockAllotment(ctx context.Context, id string) (*models.RoomAllotment, error) {
	a, ok := t.state.allotments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (t *memTx) LockStudent(ctx context.Context, id string) (*models.Student, error) {
	st, ok := t.state.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (t *memTx) LockBed(ctx context.Context, bed models.BedRef) error { return nil }

func (t *memTx) BedOccupant(ctx context.Context, bed models.BedRef) (*models.BedOccupant, error) {
	for _, st := range t.state.students {
		if ref := st.Assignment(); ref != nil && ref.Same(bed) {
			return &models.BedOccupant{Block: bed.Block, RoomNo: bed.RoomNo, BedNumber: bed.BedNo, StudentID: st.ID}, nil
		}
	}
	return nil, nil
}

func (t *memTx) RoomOccupantCount(ctx context.Context, block string, roomNo int, exclude string) (int, error) {
	n := 0
	for _, st := range t.state.students {
		if ref := st.Assignment(); ref != nil && ref.Block == block && ref.RoomNo == roomNo && st.ID != exclude {
			n++
		}
	}
	return n, nil
}

func (t *memTx) EnsureRoom(ctx context.Context, room models.Room) error {
	if _, ok := t.state.rooms[room.Label()]; !ok {
		t.state.rooms[room.Label()] = room
	}
	return nil
}

func (t *memTx) AssignBed(ctx context.Context, studentID string, bed models.BedRef, at time.Time) error {
	st, ok := t.state.students[studentID]
	if !ok {
		return sql.ErrNoRows
	}
	for id, other := range t.state.students {
		if ref := other.Assignment(); id != studentID && ref != nil && ref.Same(bed) {
			return repository.ErrBedTaken
		}
	}
	st.Block, st.RoomNo, st.BedNo, st.AllocationDate = strPtr(bed.Block), intPtr(bed.RoomNo), intPtr(bed.BedNo), timePtr(at)
	t.state.students[studentID] = st
	return nil
}

func (t *memTx) ClearBed(ctx context.Context, studentID string, at time.Time) (bool, error) {
	st, ok := t.state.students[studentID]
	if !ok || !st.IsRoomAllocated() {
		return false, nil
	}
	st.Block, st.RoomNo, st.BedNo, st.AllocationDate = nil, nil, nil, nil
	st.UpdatedAt = at
	t.state.students[studentID] = st
	return true, nil
}

func (t *memTx) ApproveAllotment(ctx context.Context, p repository.ApproveParams) error {
	a, ok := t.state.allotments[p.AllotmentID]
	if !ok || a.Status != models.AllotmentStatusPending {
		return sql.ErrNoRows
	}
	bed := p.Bed
	a.Status, a.IsActive = models.AllotmentStatusApproved, true
	a.AllocatedBlock, a.AllocatedRoomNo, a.AllocatedBedNo = &bed.Block, &bed.RoomNo, &bed.BedNo
	a.ApprovedByAdminID, a.AdminActionDate, a.CheckInDate = &p.AdminID, timePtr(p.At), timePtr(p.At)
	if p.AdminNotes != "" {
		a.AdminNotes = &p.AdminNotes
	}
	t.state.allotments[a.ID] = a
	return nil
}

func (t *memTx) SupersedeActiveAllotments(ctx context.Context, studentID, exceptID, note string, at time.Time) (int64, error) {
	var n int64
	for id, a := range t.state.allotments {
		if a.StudentID != studentID || id == exceptID || !a.IsActive || a.Status != models.AllotmentStatusApproved {
			continue
		}
		a.IsActive = false
		a.CheckOutDate = timePtr(at)
		a.CancellationReason = strPtr(note)
		t.state.allotments[id] = a
		n++
	}
	return n, nil
}

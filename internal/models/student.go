package models

import "time"

// Student is a hall resident. Block, RoomNo and BedNo are either all set (allocated) or all nil.
type Student struct {
	ID             string     `db:"id" json:"id"`
	StudentNumber  string     `db:"student_number" json:"student_number"`
	FullName       string     `db:"full_name" json:"full_name"`
	Email          string     `db:"email" json:"email"`
	Department     string     `db:"department" json:"department"`
	Session        string     `db:"session" json:"session"`
	Block          *string    `db:"block" json:"block,omitempty"`
	RoomNo         *int       `db:"room_no" json:"room_no,omitempty"`
	BedNo          *int       `db:"bed_no" json:"bed_no,omitempty"`
	AllocationDate *time.Time `db:"allocation_date" json:"allocation_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsRoomAllocated reports whether the student currently holds a bed.
func (s *Student) IsRoomAllocated() bool {
	return s != nil && s.Block != nil && s.RoomNo != nil && s.BedNo != nil
}

// Assignment returns the student's current bed, or nil when unallocated.
func (s *Student) Assignment() *BedRef {
	if !s.IsRoomAllocated() {
		return nil
	}
	return &BedRef{Block: *s.Block, RoomNo: *s.RoomNo, BedNo: *s.BedNo}
}

// BedRef identifies a single bed.
type BedRef struct {
	Block  string `json:"block"`
	RoomNo int    `json:"room_no"`
	BedNo  int    `json:"bed_no"`
}

// Same reports whether both refs point to the same bed.
func (b BedRef) Same(other BedRef) bool {
	return b.Block == other.Block && b.RoomNo == other.RoomNo && b.BedNo == other.BedNo
}

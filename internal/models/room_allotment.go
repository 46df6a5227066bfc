package models

import "time"

// AllotmentStatus captures workflow states for room requests.
type AllotmentStatus string

const (
	AllotmentStatusPending   AllotmentStatus = "PENDING"
	AllotmentStatusApproved  AllotmentStatus = "APPROVED"
	AllotmentStatusRejected  AllotmentStatus = "REJECTED"
	AllotmentStatusCancelled AllotmentStatus = "CANCELLED"
)

// RoomAllotment is a student's request for a bed and, once decided, its history record.
// Requested* is what the student asked for; Allocated* is what an admin actually assigned.
type RoomAllotment struct {
	ID                 string          `db:"id" json:"id"`
	StudentID          string          `db:"student_id" json:"student_id"`
	StudentNumber      string          `db:"student_number" json:"student_number"`
	RequestedBlock     string          `db:"requested_block" json:"requested_block"`
	RequestedRoomNo    int             `db:"requested_room_no" json:"requested_room_no"`
	RequestedBedNo     int             `db:"requested_bed_no" json:"requested_bed_no"`
	AllocatedBlock     *string         `db:"allocated_block" json:"allocated_block,omitempty"`
	AllocatedRoomNo    *int            `db:"allocated_room_no" json:"allocated_room_no,omitempty"`
	AllocatedBedNo     *int            `db:"allocated_bed_no" json:"allocated_bed_no,omitempty"`
	Status             AllotmentStatus `db:"status" json:"status"`
	IsRoomChange       bool            `db:"is_room_change" json:"is_room_change"`
	IsActive           bool            `db:"is_active" json:"is_active"`
	StudentNotes       string          `db:"student_notes" json:"student_notes"`
	AdminNotes         *string         `db:"admin_notes" json:"admin_notes,omitempty"`
	ApprovedByAdminID  *string         `db:"approved_by_admin_id" json:"approved_by_admin_id,omitempty"`
	AdminActionDate    *time.Time      `db:"admin_action_date" json:"admin_action_date,omitempty"`
	RequestDate        time.Time       `db:"request_date" json:"request_date"`
	CheckInDate        *time.Time      `db:"check_in_date" json:"check_in_date,omitempty"`
	CheckOutDate       *time.Time      `db:"check_out_date" json:"check_out_date,omitempty"`
	CancellationReason *string         `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
}

// Requested returns the bed the student asked for.
func (a *RoomAllotment) Requested() BedRef {
	return BedRef{Block: a.RequestedBlock, RoomNo: a.RequestedRoomNo, BedNo: a.RequestedBedNo}
}

// Allocated returns the bed actually assigned, or nil when not approved.
func (a *RoomAllotment) Allocated() *BedRef {
	if a.AllocatedBlock == nil || a.AllocatedRoomNo == nil || a.AllocatedBedNo == nil {
		return nil
	}
	return &BedRef{Block: *a.AllocatedBlock, RoomNo: *a.AllocatedRoomNo, BedNo: *a.AllocatedBedNo}
}

// IsPending reports whether the allotment still awaits a decision.
func (a *RoomAllotment) IsPending() bool {
	return a != nil && a.Status == AllotmentStatusPending
}

// AllotmentFilter constrains listing queries.
type AllotmentFilter struct {
	Status       []AllotmentStatus
	StudentID    string
	Block        string
	IsRoomChange *bool
	ActiveOnly   bool
	Page         int
	PageSize     int
}

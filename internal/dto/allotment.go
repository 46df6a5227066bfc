package dto

import "github.com/noah-isme/hall-adp-api/internal/models"

// RoomRequest is the body of /apply, /change and /edit-request/{id}.
type RoomRequest struct {
	Block  string `json:"block" validate:"required,max=4"`
	RoomNo int    `json:"roomNo" validate:"required,min=1"`
	BedNo  int    `json:"bedNo" validate:"required,min=1"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// Bed converts the request into a bed reference.
func (r RoomRequest) Bed() models.BedRef {
	return models.BedRef{Block: r.Block, RoomNo: r.RoomNo, BedNo: r.BedNo}
}

// AdminAction values accepted by /admin-action/{id}.
const (
	AdminActionApprove = "approve"
	AdminActionReject  = "reject"
)

// AdminActionRequest captures an admin decision on a pending request.
type AdminActionRequest struct {
	Action     string `json:"action" validate:"required"`
	AdminNotes string `json:"adminNotes" validate:"max=1000"`
}

// AdminAllocateRequest lets an admin allocate a bed other than the one requested.
type AdminAllocateRequest struct {
	Block      string `json:"block" validate:"required,max=4"`
	RoomNo     int    `json:"roomNo" validate:"required,min=1"`
	BedNo      int    `json:"bedNo" validate:"required,min=1"`
	AdminNotes string `json:"adminNotes" validate:"max=1000"`
}

// Bed converts the request into a bed reference.
func (r AdminAllocateRequest) Bed() models.BedRef {
	return models.BedRef{Block: r.Block, RoomNo: r.RoomNo, BedNo: r.BedNo}
}

// CancelRequest is the optional body of /cancel-request/{id}.
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// DeallocateRequest is the optional body of /admin/deallocate/{studentId}.
type DeallocateRequest struct {
	AdminNotes string `json:"adminNotes" validate:"max=1000"`
}

// BulkDeallocateRequest lists the students to release.
type BulkDeallocateRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,max=500,dive,required"`
	AdminNotes string   `json:"adminNotes" validate:"max=1000"`
}

// FailedStudent reports why a single student could not be deallocated.
type FailedStudent struct {
	StudentID string `json:"studentId"`
	Reason    string `json:"reason"`
}

// BulkDeallocateResult itemises a bulk deallocation.
type BulkDeallocateResult struct {
	DeallocatedCount    int             `json:"deallocatedCount"`
	DeallocatedStudents []string        `json:"deallocatedStudents"`
	FailedStudents      []FailedStudent `json:"failedStudents"`
}

// AllotmentQuery mirrors supported admin listing filters.
type AllotmentQuery struct {
	Status       []models.AllotmentStatus
	Block        string
	IsRoomChange *bool
	Page         int
	PageSize     int
}

// StudentStatus summarises the caller's allocation and requests.
type StudentStatus struct {
	Student           *models.Student        `json:"student"`
	IsRoomAllocated   bool                   `json:"isRoomAllocated"`
	CurrentAllocation *models.BedRef         `json:"currentAllocation,omitempty"`
	CurrentAllotment  *models.RoomAllotment  `json:"currentAllotment,omitempty"`
	PendingRequest    *models.RoomAllotment  `json:"pendingRequest,omitempty"`
	LatestRejected    *models.RoomAllotment  `json:"latestRejected,omitempty"`
	LatestCancelled   *models.RoomAllotment  `json:"latestCancelled,omitempty"`
	History           []models.RoomAllotment `json:"history"`
}

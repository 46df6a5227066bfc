package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hall-adp-api/internal/dto"
	"github.com/noah-isme/hall-adp-api/internal/models"
	"github.com/noah-isme/hall-adp-api/internal/repository"
	appErrors "github.com/noah-isme/hall-adp-api/pkg/errors"
)

const allotmentResource = "room_allotment"

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type allotmentStore interface {
	Create(ctx context.Context, allotment *models.RoomAllotment) error
	GetByID(ctx context.Context, id string) (*models.RoomAllotment, error)
	FindPendingByStudent(ctx context.Context, studentID string) (*models.RoomAllotment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.RoomAllotment, error)
	List(ctx context.Context, filter models.AllotmentFilter) ([]models.RoomAllotment, int, error)
	UpdateRequest(ctx context.Context, id string, bed models.BedRef, notes string) error
	Reject(ctx context.Context, id, adminID, adminNotes string, at time.Time) error
	Cancel(ctx context.Context, id, reason string, at time.Time) error
}

type allocationStore interface {
	InTx(ctx context.Context, fn func(repository.AllocationUnit) error) error
}

type availabilityRefresher interface {
	Refresh(ctx context.Context, beds ...models.BedRef)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AllotmentService runs the bed request workflow: submission, edits, cancellation,
// admin decisions and deallocation.
type AllotmentService struct {
	students    studentReader
	allotments  allotmentStore
	allocations allocationStore
	applier     *AllocationApplier
	rooms       availabilityRefresher
	layout      *HallLayout
	audit       auditLogger
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// AllotmentServiceOption configures the service.
type AllotmentServiceOption func(*AllotmentService)

// WithAllotmentAudit sets the audit sink.
func WithAllotmentAudit(audit auditLogger) AllotmentServiceOption {
	return func(s *AllotmentService) { s.audit = audit }
}

// WithAllotmentMetrics sets the metrics recorder.
func WithAllotmentMetrics(metrics *MetricsService) AllotmentServiceOption {
	return func(s *AllotmentService) { s.metrics = metrics }
}

// WithAllotmentRooms sets the room service refreshed after committed allocation changes.
func WithAllotmentRooms(rooms availabilityRefresher) AllotmentServiceOption {
	return func(s *AllotmentService) { s.rooms = rooms }
}

// WithAllotmentClock overrides the time source.
func WithAllotmentClock(now func() time.Time) AllotmentServiceOption {
	return func(s *AllotmentService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAllotmentService constructs the service with defaults.
func NewAllotmentService(students studentReader, allotments allotmentStore, allocations allocationStore, layout *HallLayout, logger *zap.Logger, opts ...AllotmentServiceOption) *AllotmentService {
	if layout == nil {
		layout = DefaultHallLayout()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AllotmentService{
		students:    students,
		allotments:  allotments,
		allocations: allocations,
		applier:     NewAllocationApplier(layout),
		layout:      layout,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	svc.applier.now = svc.now
	return svc
}

// Apply submits a bed request. Students already holding a bed get a room change request.
func (s *AllotmentService) Apply(ctx context.Context, actor *models.JWTClaims, req dto.RoomRequest) (*models.RoomAllotment, error) {
	return s.submit(ctx, actor, req, false)
}

// Change submits a room change request. The student must currently hold a bed.
func (s *AllotmentService) Change(ctx context.Context, actor *models.JWTClaims, req dto.RoomRequest) (*models.RoomAllotment, error) {
	return s.submit(ctx, actor, req, true)
}

func (s *AllotmentService) submit(ctx context.Context, actor *models.JWTClaims, req dto.RoomRequest, changeOnly bool) (*models.RoomAllotment, error) {
	if err := requireStudent(actor); err != nil {
		return nil, err
	}
	bed, err := s.layout.NormaliseBed(req.Bed())
	if err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if changeOnly {
		current := student.Assignment()
		if current == nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "no current allocation to change")
		}
		if current.Same(bed) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "requested bed is the one already allocated")
		}
	}

	pending, err := s.allotments.FindPendingByStudent(ctx, student.ID)
	switch {
	case err == nil && pending != nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pending request already exists")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}

	allotment := &models.RoomAllotment{
		StudentID:       student.ID,
		StudentNumber:   student.StudentNumber,
		RequestedBlock:  bed.Block,
		RequestedRoomNo: bed.RoomNo,
		RequestedBedNo:  bed.BedNo,
		IsRoomChange:    student.IsRoomAllocated(),
		StudentNotes:    strings.TrimSpace(req.Notes),
		RequestDate:     s.now(),
	}
	if err := s.allotments.Create(ctx, allotment); err != nil {
		if errors.Is(err, repository.ErrPendingAllotmentExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a pending request already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.metrics.RecordDecision("submit", OutcomeSuccess)
	s.emitAudit(ctx, actor.UserID, models.AuditActionAllotmentSubmit, allotment.ID, nil, allotment)
	return allotment, nil
}

// EditRequest replaces the requested bed and notes of the caller's pending request.
func (s *AllotmentService) EditRequest(ctx context.Context, actor *models.JWTClaims, id string, req dto.RoomRequest) (*models.RoomAllotment, error) {
	if err := requireStudent(actor); err != nil {
		return nil, err
	}
	bed, err := s.layout.NormaliseBed(req.Bed())
	if err != nil {
		return nil, err
	}
	allotment, err := s.ownedPending(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	before := *allotment
	notes := strings.TrimSpace(req.Notes)
	if err := s.allotments.UpdateRequest(ctx, id, bed, notes); err != nil {
		return nil, s.pendingWriteError(err, "failed to update request")
	}
	allotment.RequestedBlock = bed.Block
	allotment.RequestedRoomNo = bed.RoomNo
	allotment.RequestedBedNo = bed.BedNo
	allotment.StudentNotes = notes

	s.emitAudit(ctx, actor.UserID, models.AuditActionAllotmentEdit, id, before, allotment)
	return allotment, nil
}

// CancelRequest withdraws the caller's pending request.
func (s *AllotmentService) CancelRequest(ctx context.Context, actor *models.JWTClaims, id, reason string) (*models.RoomAllotment, error) {
	if err := requireStudent(actor); err != nil {
		return nil, err
	}
	allotment, err := s.ownedPending(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Cancelled by student"
	}
	now := s.now()
	if err := s.allotments.Cancel(ctx, id, reason, now); err != nil {
		return nil, s.pendingWriteError(err, "failed to cancel request")
	}
	allotment.Status = models.AllotmentStatusCancelled
	allotment.IsActive = false
	allotment.CancellationReason = &reason
	allotment.AdminActionDate = &now

	s.metrics.RecordDecision("cancel", OutcomeSuccess)
	s.emitAudit(ctx, actor.UserID, models.AuditActionAllotmentCancel, id, nil, allotment)
	return allotment, nil
}

// AdminAction approves or rejects a pending request.
func (s *AllotmentService) AdminAction(ctx context.Context, actor *models.JWTClaims, id string, req dto.AdminActionRequest) (*models.RoomAllotment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case dto.AdminActionApprove:
		return s.approve(ctx, actor, id, nil, req.AdminNotes)
	case dto.AdminActionReject:
		return s.reject(ctx, actor, id, req.AdminNotes)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be approve or reject")
	}
}

// AllocateByAdmin approves a pending request onto a bed chosen by the admin.
func (s *AllotmentService) AllocateByAdmin(ctx context.Context, actor *models.JWTClaims, id string, req dto.AdminAllocateRequest) (*models.RoomAllotment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	bed, err := s.layout.NormaliseBed(req.Bed())
	if err != nil {
		return nil, err
	}
	return s.approve(ctx, actor, id, &bed, req.AdminNotes)
}

func (s *AllotmentService) reject(ctx context.Context, actor *models.JWTClaims, id, notes string) (*models.RoomAllotment, error) {
	allotment, err := s.loadAllotment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !allotment.IsPending() {
		s.metrics.RecordDecision("reject", OutcomeRejected)
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("request is %s, only pending requests can be rejected", allotment.Status))
	}
	notes = strings.TrimSpace(notes)
	now := s.now()
	if err := s.allotments.Reject(ctx, id, actor.UserID, notes, now); err != nil {
		return nil, s.pendingWriteError(err, "failed to reject request")
	}
	allotment.Status = models.AllotmentStatusRejected
	allotment.IsActive = false
	allotment.ApprovedByAdminID = &actor.UserID
	allotment.AdminActionDate = &now
	if notes != "" {
		allotment.AdminNotes = &notes
	}

	s.metrics.RecordDecision("reject", OutcomeSuccess)
	s.emitAudit(ctx, actor.UserID, models.AuditActionAllotmentReject, id, nil, allotment)
	return allotment, nil
}

// approve runs the decision in one serializable transaction: lock the request, re-check and
// write the bed, mark the request approved and supersede the student's older allocations.
func (s *AllotmentService) approve(ctx context.Context, actor *models.JWTClaims, id string, override *models.BedRef, notes string) (*models.RoomAllotment, error) {
	action, auditAction := "approve", models.AuditActionAllotmentApprove
	if override != nil {
		action, auditAction = "override", models.AuditActionAllotmentOverride
	}
	notes = strings.TrimSpace(notes)

	var (
		approved *models.RoomAllotment
		before   *models.Student
		target   models.BedRef
	)
	start := time.Now()
	err := s.allocations.InTx(ctx, func(unit repository.AllocationUnit) error {
		allotment, err := unit.LockAllotment(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "request not found")
			}
			return err
		}
		if !allotment.IsPending() {
			return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("request is %s, only pending requests can be approved", allotment.Status))
		}
		target = allotment.Requested()
		if override != nil {
			target = *override
		} else if target, err = s.layout.NormaliseBed(target); err != nil {
			return err
		}

		now := s.now()
		if before, err = s.applier.Apply(ctx, unit, allotment.StudentID, target); err != nil {
			return err
		}
		if err := unit.ApproveAllotment(ctx, repository.ApproveParams{
			AllotmentID: allotment.ID,
			AdminID:     actor.UserID,
			AdminNotes:  notes,
			Bed:         target,
			At:          now,
		}); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrInvalidState, "request is no longer pending")
			}
			return err
		}
		note := fmt.Sprintf("Superseded by allocation to %s bed %d on %s", models.RoomLabel(target.Block, target.RoomNo), target.BedNo, now.Format("2006-01-02"))
		if _, err := unit.SupersedeActiveAllotments(ctx, allotment.StudentID, allotment.ID, note, now); err != nil {
			return err
		}

		bed := target
		allotment.Status = models.AllotmentStatusApproved
		allotment.IsActive = true
		allotment.AllocatedBlock = &bed.Block
		allotment.AllocatedRoomNo = &bed.RoomNo
		allotment.AllocatedBedNo = &bed.BedNo
		allotment.ApprovedByAdminID = &actor.UserID
		allotment.AdminActionDate = &now
		allotment.CheckInDate = &now
		if notes != "" {
			allotment.AdminNotes = &notes
		}
		approved = allotment
		return nil
	})
	s.metrics.ObserveAllocationTx(time.Since(start))
	if err != nil {
		err = s.translateTxError(err, "failed to approve request")
		s.metrics.RecordDecision(action, outcomeOf(err))
		if appErrors.IsConflict(err) {
			s.logger.Info("allocation conflict", zap.String("allotment_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordDecision(action, OutcomeSuccess)
	s.emitAudit(ctx, actor.UserID, auditAction, approved.ID, before, approved)
	s.refresh(ctx, before.Assignment(), &target)
	return approved, nil
}

// Deallocate releases the student's bed and closes their active allocations. Releasing an
// unallocated student succeeds without changes.
func (s *AllotmentService) Deallocate(ctx context.Context, actor *models.JWTClaims, studentID, notes string) (*models.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.deallocate(ctx, actor, studentID, notes)
}

// BulkDeallocate releases each student independently and reports per-student failures.
func (s *AllotmentService) BulkDeallocate(ctx context.Context, actor *models.JWTClaims, req dto.BulkDeallocateRequest) (*dto.BulkDeallocateResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	result := &dto.BulkDeallocateResult{
		DeallocatedStudents: make([]string, 0, len(req.StudentIDs)),
		FailedStudents:      make([]dto.FailedStudent, 0),
	}
	seen := make(map[string]struct{}, len(req.StudentIDs))
	for _, raw := range req.StudentIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.deallocate(ctx, actor, id, req.AdminNotes); err != nil {
			result.FailedStudents = append(result.FailedStudents, dto.FailedStudent{
				StudentID: id,
				Reason:    appErrors.FromError(err).Message,
			})
			continue
		}
		result.DeallocatedStudents = append(result.DeallocatedStudents, id)
	}
	result.DeallocatedCount = len(result.DeallocatedStudents)
	return result, nil
}

func (s *AllotmentService) deallocate(ctx context.Context, actor *models.JWTClaims, studentID, notes string) (*models.Student, error) {
	var (
		before  *models.Student
		after   *models.Student
		cleared bool
	)
	start := time.Now()
	err := s.allocations.InTx(ctx, func(unit repository.AllocationUnit) error {
		student, err := unit.LockStudent(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return err
		}
		snapshot := *student
		before = &snapshot

		now := s.now()
		if cleared, err = unit.ClearBed(ctx, studentID, now); err != nil {
			return err
		}
		note := fmt.Sprintf("Deallocated by admin on %s", now.Format("2006-01-02"))
		if trimmed := strings.TrimSpace(notes); trimmed != "" {
			note += ": " + trimmed
		}
		if _, err := unit.SupersedeActiveAllotments(ctx, studentID, "", note, now); err != nil {
			return err
		}

		student.Block, student.RoomNo, student.BedNo, student.AllocationDate = nil, nil, nil, nil
		if cleared {
			student.UpdatedAt = now
		}
		after = student
		return nil
	})
	s.metrics.ObserveAllocationTx(time.Since(start))
	if err != nil {
		err = s.translateTxError(err, "failed to deallocate student")
		s.metrics.RecordDecision("deallocate", outcomeOf(err))
		return nil, err
	}

	s.metrics.RecordDecision("deallocate", OutcomeSuccess)
	if cleared {
		s.emitAudit(ctx, actor.UserID, models.AuditActionDeallocate, studentID, before, after)
		s.refresh(ctx, before.Assignment())
	}
	return after, nil
}

// StudentStatus summarises the caller's allocation and request history.
func (s *AllotmentService) StudentStatus(ctx context.Context, actor *models.JWTClaims) (*dto.StudentStatus, error) {
	if err := requireStudent(actor); err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	history, err := s.allotments.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request history")
	}

	status := &dto.StudentStatus{
		Student:           student,
		IsRoomAllocated:   student.IsRoomAllocated(),
		CurrentAllocation: student.Assignment(),
		History:           history,
	}
	// history is newest first, so the first match of each kind is the latest.
	for i := range history {
		item := &history[i]
		switch item.Status {
		case models.AllotmentStatusPending:
			if status.PendingRequest == nil {
				status.PendingRequest = item
			}
		case models.AllotmentStatusApproved:
			if status.CurrentAllotment == nil && item.IsActive {
				status.CurrentAllotment = item
			}
		case models.AllotmentStatusRejected:
			if status.LatestRejected == nil {
				status.LatestRejected = item
			}
		case models.AllotmentStatusCancelled:
			if status.LatestCancelled == nil {
				status.LatestCancelled = item
			}
		}
	}
	return status, nil
}

// List returns requests for the admin dashboard.
func (s *AllotmentService) List(ctx context.Context, query dto.AllotmentQuery) ([]models.RoomAllotment, *models.Pagination, error) {
	filter := models.AllotmentFilter{
		Status:       query.Status,
		IsRoomChange: query.IsRoomChange,
		Page:         query.Page,
		PageSize:     query.PageSize,
	}
	if strings.TrimSpace(query.Block) != "" {
		block, err := s.layout.NormaliseBlock(query.Block)
		if err != nil {
			return nil, nil, err
		}
		filter.Block = block
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.allotments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a single request.
func (s *AllotmentService) Get(ctx context.Context, id string) (*models.RoomAllotment, error) {
	return s.loadAllotment(ctx, id)
}

func (s *AllotmentService) ownedPending(ctx context.Context, actor *models.JWTClaims, id string) (*models.RoomAllotment, error) {
	allotment, err := s.loadAllotment(ctx, id)
	if err != nil {
		return nil, err
	}
	if allotment.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another student")
	}
	if !allotment.IsPending() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("request is %s, only pending requests can be changed", allotment.Status))
	}
	return allotment, nil
}

func (s *AllotmentService) loadAllotment(ctx context.Context, id string) (*models.RoomAllotment, error) {
	allotment, err := s.allotments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return allotment, nil
}

func (s *AllotmentService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// pendingWriteError maps a conditional update that matched no PENDING row.
func (s *AllotmentService) pendingWriteError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrInvalidState, "request is no longer pending")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *AllotmentService) translateTxError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if repository.IsRetryable(err) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "allocation is contended, please retry")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *AllotmentService) refresh(ctx context.Context, beds ...*models.BedRef) {
	if s.rooms == nil {
		return
	}
	refs := make([]models.BedRef, 0, len(beds))
	for _, bed := range beds {
		if bed != nil {
			refs = append(refs, *bed)
		}
	}
	s.rooms.Refresh(ctx, refs...)
}

func (s *AllotmentService) emitAudit(ctx context.Context, userID, action, resourceID string, before, after interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   allotmentResource,
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "allotment-service",
	}
	if action == models.AuditActionDeallocate {
		entry.Resource = "student"
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func requireStudent(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrForbidden, "only students can manage their own requests")
	}
	return nil
}

func requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case appErrors.IsConflict(err):
		return OutcomeConflict
	}
	if appErr := appErrors.FromError(err); appErr.Status < 500 {
		return OutcomeRejected
	}
	return OutcomeError
}

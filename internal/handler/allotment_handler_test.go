package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hall-adp-api/internal/dto"
	"github.com/noah-isme/hall-adp-api/internal/models"
	appErrors "github.com/noah-isme/hall-adp-api/pkg/errors"
)

type fakeAllotmentService struct {
	allotment *models.RoomAllotment
	student   *models.Student
	status    *dto.StudentStatus
	bulk      *dto.BulkDeallocateResult
	items     []models.RoomAllotment
	err       error

	calls      []string
	lastActor  *models.JWTClaims
	lastID     string
	lastReq    dto.RoomRequest
	lastAction dto.AdminActionRequest
	lastAlloc  dto.AdminAllocateRequest
	lastNotes  string
	lastQuery  dto.AllotmentQuery
	lastBulk   dto.BulkDeallocateRequest
}

func (f *fakeAllotmentService) record(name string, actor *models.JWTClaims) {
	f.calls = append(f.calls, name)
	f.lastActor = actor
}

func (f *fakeAllotmentService) Apply(_ context.Context, actor *models.JWTClaims, req dto.RoomRequest) (*models.RoomAllotment, error) {
	f.record("apply", actor)
	f.lastReq = req
	return f.allotment, f.err
}

func (f *fakeAllotmentService) Change(_ context.Context, actor *models.JWTClaims, req dto.RoomRequest) (*models.RoomAllotment, error) {
	f.record("change", actor)
	f.lastReq = req
	return f.allotment, f.err
}

func (f *fakeAllotmentService) EditRequest(_ context.Context, actor *models.JWTClaims, id string, req dto.RoomRequest) (*models.RoomAllotment, error) {
	f.record("edit", actor)
	f.lastID, f.lastReq = id, req
	return f.allotment, f.err
}

func (f *fakeAllotmentService) CancelRequest(_ context.Context, actor *models.JWTClaims, id, reason string) (*models.RoomAllotment, error) {
	f.record("cancel", actor)
	f.lastID, f.lastNotes = id, reason
	return f.allotment, f.err
}

func (f *fakeAllotmentService) StudentStatus(_ context.Context, actor *models.JWTClaims) (*dto.StudentStatus, error) {
	f.record("status", actor)
	return f.status, f.err
}

func (f *fakeAllotmentService) AdminAction(_ context.Context, actor *models.JWTClaims, id string, req dto.AdminActionRequest) (*models.RoomAllotment, error) {
	f.record("admin-action", actor)
	f.lastID, f.lastAction = id, req
	return f.allotment, f.err
}

func (f *fakeAllotmentService) AllocateByAdmin(_ context.Context, actor *models.JWTClaims, id string, req dto.AdminAllocateRequest) (*models.RoomAllotment, error) {
	f.record("allocate", actor)
	f.lastID, f.lastAlloc = id, req
	return f.allotment, f.err
}

func (f *fakeAllotmentService) Deallocate(_ context.Context, actor *models.JWTClaims, studentID, notes string) (*models.Student, error) {
	f.record("deallocate", actor)
	f.lastID, f.lastNotes = studentID, notes
	return f.student, f.err
}

func (f *fakeAllotmentService) BulkDeallocate(_ context.Context, actor *models.JWTClaims, req dto.BulkDeallocateRequest) (*dto.BulkDeallocateResult, error) {
	f.record("bulk", actor)
	f.lastBulk = req
	return f.bulk, f.err
}

func (f *fakeAllotmentService) List(_ context.Context, query dto.AllotmentQuery) ([]models.RoomAllotment, *models.Pagination, error) {
	f.record("list", nil)
	f.lastQuery = query
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.items, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(f.items)}, nil
}

func (f *fakeAllotmentService) Get(_ context.Context, id string) (*models.RoomAllotment, error) {
	f.record("get", nil)
	f.lastID = id
	return f.allotment, f.err
}

func pendingAllotment() *models.RoomAllotment {
	return &models.RoomAllotment{ID: "req-1", StudentID: "stu-1", RequestedBlock: "A", RequestedRoomNo: 101, RequestedBedNo: 2, Status: models.AllotmentStatusPending}
}

func TestAllotmentHandlerApplyCreatesRequest(t *testing.T) {
	svc := &fakeAllotmentService{allotment: pendingAllotment()}
	handler := NewAllotmentHandler(svc)

	c, w := newGinContext(http.MethodPost, "/apply", []byte(`{"block":"a","roomNo":101,"bedNo":2,"notes":"near stairs"}`))
	withClaims(c, "stu-1", models.RoleStudent)
	handler.Apply(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"apply"}, svc.calls)
	assert.Equal(t, dto.RoomRequest{Block: "a", RoomNo: 101, BedNo: 2, Notes: "near stairs"}, svc.lastReq)
	assert.Equal(t, "stu-1", svc.lastActor.UserID)

	var got models.RoomAllotment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	assert.Equal(t, "req-1", got.ID)
}

func TestAllotmentHandlerApplyValidatesPayload(t *testing.T) {
	svc := &fakeAllotmentService{}
	handler := NewAllotmentHandler(svc)

	for _, body := range []string{`{"block":"A","roomNo":101}`, `{"block":"A","roomNo":"x","bedNo":1}`, `not json`, ``} {
		c, w := newGinContext(http.MethodPost, "/apply", []byte(body))
		withClaims(c, "stu-1", models.RoleStudent)
		handler.Apply(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, svc.calls)
}

func TestAllotmentHandlerRequiresPrincipal(t *testing.T) {
	svc := &fakeAllotmentService{}
	handler := NewAllotmentHandler(svc)

	c, w := newGinContext(http.MethodPost, "/change", []byte(`{"block":"A","roomNo":101,"bedNo":1}`))
	handler.Change(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.calls)
}

func TestAllotmentHandlerMapsConflicts(t *testing.T) {
	svc := &fakeAllotmentService{err: appErrors.Clone(appErrors.ErrBedOccupied, "bed A-101 bed 2 is already occupied")}
	handler := NewAllotmentHandler(svc)

	c, w := newGinContext(http.MethodPost, "/admin-action/req-1", []byte(`{"action":"approve"}`))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	withClaims(c, "admin-1", models.RoleAdmin)
	handler.AdminAction(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "BED_OCCUPIED", decodeEnvelope(t, w).Error.Code)
	assert.Equal(t, "req-1", svc.lastID)
	assert.Equal(t, dto.AdminActionRequest{Action: "approve"}, svc.lastAction)
}

func TestAllotmentHandlerEditAndCancel(t *testing.T) {
	svc := &fakeAllotmentService{allotment: pendingAllotment()}
	handler := NewAllotmentHandler(svc)

	c, w := newGinContext(http.MethodPost, "/edit-request/req-1", []byte(`{"block":"B","roomNo":305,"bedNo":4}`))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	withClaims(c, "stu-1", models.RoleStudent)
	handler.EditRequest(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 305, svc.lastReq.RoomNo)

	c, w = newGinContext(http.MethodPost, "/cancel-request/req-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	withClaims(c, "stu-1", models.RoleStudent)
	handler.CancelRequest(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", svc.lastNotes)

	c, w = newGinContext(http.MethodPost, "/cancel-request/req-1", []byte(`{"reason":"found off-campus housing"}`))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	withClaims(c, "stu-1", models.RoleStudent)
	handler.CancelRequest(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "found off-campus housing", svc.lastNotes)
	assert.Equal(t, []string{"edit", "cancel", "cancel"}, svc.calls)
}

func TestAllotmentHandlerAllocateByAdmin(t *testing.T) {
	svc := &fakeAllotmentService{allotment: pendingAllotment()}
	handler := NewAllotmentHandler(svc)

	c, w := newGinContext(http.MethodPost, "/allocate-by-admin/req-1", []byte(`{"block":"A","roomNo":102,"bedNo":1,"adminNotes":"moved for accessibility"}`))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	withClaims(c, "admin-1", models.RoleAdmin)
	handler.AllocateByAdmin(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.AdminAllocateRequest{Block: "A", RoomNo: 102, BedNo: 1, AdminNotes: "moved for accessibility"}, svc.lastAlloc)
}

func TestAllotmentHandlerDeallocation(t *testing.T) {
	svc := &fakeAllotmentService{
		student: &models.Student{ID: "stu-1"},
		bulk:    &dto.BulkDeallocateResult{DeallocatedCount: 1, DeallocatedStudents: []string{"stu-1"}, FailedStudents: []dto.FailedStudent{{StudentID: "ghost", Reason: "student not found"}}},
	}
	handler := NewAllotmentHandler(svc)

	c, w := newGinContext(http.MethodPost, "/admin/deallocate/stu-1", nil)
	c.Params = gin.Params{{Key: "studentId", Value: "stu-1"}}
	withClaims(c, "admin-1", models.RoleAdmin)
	handler.Deallocate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", svc.lastID)

	c, w = newGinContext(http.MethodPost, "/admin/bulk-deallocate", []byte(`{"studentIds":[]}`))
	withClaims(c, "admin-1", models.RoleAdmin)
	handler.BulkDeallocate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/admin/bulk-deallocate", []byte(`{"studentIds":["stu-1","ghost"],"adminNotes":"term ended"}`))
	withClaims(c, "admin-1", models.RoleAdmin)
	handler.BulkDeallocate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"stu-1", "ghost"}, svc.lastBulk.StudentIDs)

	var result dto.BulkDeallocateResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	assert.Equal(t, 1, result.DeallocatedCount)
	require.Len(t, result.FailedStudents, 1)
	assert.Equal(t, "ghost", result.FailedStudents[0].StudentID)
	assert.Equal(t, []string{"deallocate", "bulk"}, svc.calls)
}

func TestAllotmentHandlerListParsesFilters(t *testing.T) {
	svc := &fakeAllotmentService{items: []models.RoomAllotment{*pendingAllotment()}}
	handler := NewAllotmentHandler(svc)

	c, w := newGinContext(http.MethodGet, "/admin/requests?status=pending,approved&block=a&isRoomChange=true&page=2&pageSize=5", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	isChange := true
	assert.Equal(t, dto.AllotmentQuery{
		Status:       []models.AllotmentStatus{models.AllotmentStatusPending, models.AllotmentStatusApproved},
		Block:        "a",
		IsRoomChange: &isChange,
		Page:         2,
		PageSize:     5,
	}, svc.lastQuery)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestAllotmentHandlerListRejectsBadFilters(t *testing.T) {
	for _, target := range []string{"/admin/requests?status=waiting", "/admin/requests?isRoomChange=maybe", "/admin/requests?page=0"} {
		svc := &fakeAllotmentService{}
		c, w := newGinContext(http.MethodGet, target, nil)
		NewAllotmentHandler(svc).List(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Empty(t, svc.calls, target)
	}
}

func TestAllotmentHandlerGetAndStatus(t *testing.T) {
	svc := &fakeAllotmentService{err: appErrors.Clone(appErrors.ErrNotFound, "request not found")}
	handler := NewAllotmentHandler(svc)

	c, w := newGinContext(http.MethodGet, "/admin/requests/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.err = nil
	svc.status = &dto.StudentStatus{Student: &models.Student{ID: "stu-1"}, History: []models.RoomAllotment{}}
	c, w = newGinContext(http.MethodGet, "/student-status", nil)
	withClaims(c, "stu-1", models.RoleStudent)
	handler.StudentStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", svc.lastActor.UserID)
}

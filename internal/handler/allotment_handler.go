package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hall-adp-api/internal/dto"
	"github.com/noah-isme/hall-adp-api/internal/models"
	appErrors "github.com/noah-isme/hall-adp-api/pkg/errors"
	"github.com/noah-isme/hall-adp-api/pkg/response"
)

type allotmentService interface {
	Apply(ctx context.Context, actor *models.JWTClaims, req dto.RoomRequest) (*models.RoomAllotment, error)
	Change(ctx context.Context, actor *models.JWTClaims, req dto.RoomRequest) (*models.RoomAllotment, error)
	EditRequest(ctx context.Context, actor *models.JWTClaims, id string, req dto.RoomRequest) (*models.RoomAllotment, error)
	CancelRequest(ctx context.Context, actor *models.JWTClaims, id, reason string) (*models.RoomAllotment, error)
	StudentStatus(ctx context.Context, actor *models.JWTClaims) (*dto.StudentStatus, error)
	AdminAction(ctx context.Context, actor *models.JWTClaims, id string, req dto.AdminActionRequest) (*models.RoomAllotment, error)
	AllocateByAdmin(ctx context.Context, actor *models.JWTClaims, id string, req dto.AdminAllocateRequest) (*models.RoomAllotment, error)
	Deallocate(ctx context.Context, actor *models.JWTClaims, studentID, notes string) (*models.Student, error)
	BulkDeallocate(ctx context.Context, actor *models.JWTClaims, req dto.BulkDeallocateRequest) (*dto.BulkDeallocateResult, error)
	List(ctx context.Context, query dto.AllotmentQuery) ([]models.RoomAllotment, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.RoomAllotment, error)
}

// AllotmentHandler exposes the request workflow to students and admins.
type AllotmentHandler struct {
	service allotmentService
}

// NewAllotmentHandler constructs the handler.
func NewAllotmentHandler(service allotmentService) *AllotmentHandler {
	return &AllotmentHandler{service: service}
}

// Apply godoc
// @Summary Request a bed
// @Tags Allotments
// @Accept json
// @Produce json
// @Param payload body dto.RoomRequest true "Requested bed"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /apply [post]
func (h *AllotmentHandler) Apply(c *gin.Context) {
	h.submit(c, h.service.Apply)
}

// Change godoc
// @Summary Request a room change
// @Tags Allotments
// @Accept json
// @Produce json
// @Param payload body dto.RoomRequest true "Requested bed"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /change [post]
func (h *AllotmentHandler) Change(c *gin.Context) {
	h.submit(c, h.service.Change)
}

func (h *AllotmentHandler) submit(c *gin.Context, fn func(context.Context, *models.JWTClaims, dto.RoomRequest) (*models.RoomAllotment, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RoomRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Error(c, err)
		return
	}
	allotment, err := fn(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, allotment)
}

// EditRequest godoc
// @Summary Edit a pending request
// @Tags Allotments
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RoomRequest true "New bed"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /edit-request/{id} [post]
func (h *AllotmentHandler) EditRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RoomRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Error(c, err)
		return
	}
	allotment, err := h.service.EditRequest(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allotment, nil)
}

// CancelRequest godoc
// @Summary Cancel a pending request
// @Tags Allotments
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.CancelRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cancel-request/{id} [post]
func (h *AllotmentHandler) CancelRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CancelRequest
	if err := bindJSON(c, &req, true); err != nil {
		response.Error(c, err)
		return
	}
	allotment, err := h.service.CancelRequest(c.Request.Context(), claims, c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allotment, nil)
}

// StudentStatus godoc
// @Summary Caller allocation status and request history
// @Tags Allotments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student-status [get]
func (h *AllotmentHandler) StudentStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.service.StudentStatus(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// List godoc
// @Summary List requests
// @Tags Admin
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param block query string false "Requested block"
// @Param isRoomChange query bool false "Room change requests only"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/requests [get]
func (h *AllotmentHandler) List(c *gin.Context) {
	query, err := parseAllotmentQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a request
// @Tags Admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/requests/{id} [get]
func (h *AllotmentHandler) Get(c *gin.Context) {
	allotment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allotment, nil)
}

// AdminAction godoc
// @Summary Approve or reject a pending request
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AdminActionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin-action/{id} [post]
func (h *AllotmentHandler) AdminAction(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AdminActionRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Error(c, err)
		return
	}
	allotment, err := h.service.AdminAction(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allotment, nil)
}

// AllocateByAdmin godoc
// @Summary Approve a pending request onto another bed
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AdminAllocateRequest true "Bed to allocate"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /allocate-by-admin/{id} [post]
func (h *AllotmentHandler) AllocateByAdmin(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AdminAllocateRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Error(c, err)
		return
	}
	allotment, err := h.service.AllocateByAdmin(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allotment, nil)
}

// Deallocate godoc
// @Summary Release a student's bed
// @Tags Admin
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.DeallocateRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/deallocate/{studentId} [post]
func (h *AllotmentHandler) Deallocate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DeallocateRequest
	if err := bindJSON(c, &req, true); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.Deallocate(c.Request.Context(), claims, c.Param("studentId"), req.AdminNotes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// BulkDeallocate godoc
// @Summary Release the beds of many students
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.BulkDeallocateRequest true "Students"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/bulk-deallocate [post]
func (h *AllotmentHandler) BulkDeallocate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.BulkDeallocateRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.BulkDeallocate(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func parseAllotmentQuery(c *gin.Context) (dto.AllotmentQuery, error) {
	query := dto.AllotmentQuery{Block: strings.TrimSpace(c.Query("block"))}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := models.AllotmentStatus(strings.ToUpper(strings.TrimSpace(part)))
			switch status {
			case models.AllotmentStatusPending, models.AllotmentStatusApproved, models.AllotmentStatusRejected, models.AllotmentStatusCancelled:
				query.Status = append(query.Status, status)
			case "":
			default:
				return query, appErrors.Clone(appErrors.ErrValidation, "invalid status "+part)
			}
		}
	}
	if raw := strings.TrimSpace(c.Query("isRoomChange")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrValidation, "isRoomChange must be a boolean")
		}
		query.IsRoomChange = &value
	}
	for name, dst := range map[string]*int{"page": &query.Page, "pageSize": &query.PageSize} {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return query, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer")
		}
		*dst = value
	}
	return query, nil
}

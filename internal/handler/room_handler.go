package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hall-adp-api/internal/dto"
	"github.com/noah-isme/hall-adp-api/internal/middleware"
	"github.com/noah-isme/hall-adp-api/pkg/response"
)

type roomService interface {
	Availability(ctx context.Context, floor int, block string) (dto.RoomAvailabilityGrid, bool, error)
	RoomLayout(ctx context.Context, block string, roomNo int) (*dto.RoomLayout, error)
}

// RoomHandler serves the read-only occupancy views.
type RoomHandler struct {
	service roomService
}

// NewRoomHandler constructs the handler.
func NewRoomHandler(service roomService) *RoomHandler {
	return &RoomHandler{service: service}
}

// Availability godoc
// @Summary Room availability for one floor of a block
// @Description Map of room number to capacity, occupied beds and available bed numbers
// @Tags Rooms
// @Produce json
// @Param floor path int true "Floor number"
// @Param block path string true "Block"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /room-availability/{floor}/{block} [get]
func (h *RoomHandler) Availability(c *gin.Context) {
	floor, err := intParam(c, "floor")
	if err != nil {
		response.Error(c, err)
		return
	}
	grid, hit, err := h.service.Availability(c.Request.Context(), floor, strings.TrimSpace(c.Param("block")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, grid, nil, middleware.ExtractMeta(c))
}

// Layout godoc
// @Summary Room layout
// @Description Capacity, occupants per bed and available beds for one room
// @Tags Rooms
// @Produce json
// @Param block path string true "Block"
// @Param roomNo path int true "Room number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /room-layout/{block}/{roomNo} [get]
func (h *RoomHandler) Layout(c *gin.Context) {
	roomNo, err := intParam(c, "roomNo")
	if err != nil {
		response.Error(c, err)
		return
	}
	layout, err := h.service.RoomLayout(c.Request.Context(), strings.TrimSpace(c.Param("block")), roomNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, layout, nil)
}

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
	"github.com/noah-isme/hall-adp-api/internal/middleware"
	"github.com/noah-isme/hall-adp-api/internal/models"
	appErrors "github.com/noah-isme/hall-adp-api/pkg/errors"
)

type fakeRoomService struct {
	grid      dto.RoomAvailabilityGrid
	hit       bool
	layout    *dto.RoomLayout
	err       error
	lastFloor int
	lastBlock string
	lastRoom  int
}

func (f *fakeRoomService) Availability(_ context.Context, floor int, block string) (dto.RoomAvailabilityGrid, bool, error) {
	f.lastFloor, f.lastBlock = floor, block
	return f.grid, f.hit, f.err
}

func (f *fakeRoomService) RoomLayout(_ context.Context, block string, roomNo int) (*dto.RoomLayout, error) {
	f.lastBlock, f.lastRoom = block, roomNo
	return f.layout, f.err
}

func TestRoomHandlerAvailability(t *testing.T) {
	svc := &fakeRoomService{
		grid: dto.RoomAvailabilityGrid{101: {Label: "A-101", Capacity: 4, OccupiedBeds: 1, AvailableBeds: 3, AvailableBedNumbers: []int{2, 3, 4}}},
		hit:  true,
	}
	handler := NewRoomHandler(svc)

	c, w := newGinContext(http.MethodGet, "/room-availability/1/A", nil)
	c.Set("response_meta", map[string]interface{}{})
	c.Params = gin.Params{{Key: "floor", Value: "1"}, {Key: "block", Value: "A"}}
	handler.Availability(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.lastFloor)
	assert.Equal(t, "A", svc.lastBlock)

	env := decodeEnvelope(t, w)
	var grid map[string]models.RoomAvailability
	require.NoError(t, json.Unmarshal(env.Data, &grid))
	assert.Equal(t, []int{2, 3, 4}, grid["101"].AvailableBedNumbers)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, true, middleware.ExtractMeta(c)["cache_hit"])
}

func TestRoomHandlerAvailabilityRejectsBadFloor(t *testing.T) {
	svc := &fakeRoomService{}
	handler := NewRoomHandler(svc)

	c, w := newGinContext(http.MethodGet, "/room-availability/first/A", nil)
	c.Params = gin.Params{{Key: "floor", Value: "first"}, {Key: "block", Value: "A"}}
	handler.Availability(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, svc.lastFloor)
}

func TestRoomHandlerLayout(t *testing.T) {
	svc := &fakeRoomService{layout: &dto.RoomLayout{Room: models.Room{Block: "B", RoomNo: 204, Floor: 2, Capacity: 4}}}
	handler := NewRoomHandler(svc)

	c, w := newGinContext(http.MethodGet, "/room-layout/B/204", nil)
	c.Params = gin.Params{{Key: "block", Value: "B"}, {Key: "roomNo", Value: "204"}}
	handler.Layout(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 204, svc.lastRoom)
}

func TestRoomHandlerLayoutValidationError(t *testing.T) {
	svc := &fakeRoomService{err: appErrors.Clone(appErrors.ErrValidation, "invalid room number 199")}
	handler := NewRoomHandler(svc)

	c, w := newGinContext(http.MethodGet, "/room-layout/A/199", nil)
	c.Params = gin.Params{{Key: "block", Value: "A"}, {Key: "roomNo", Value: "199"}}
	handler.Layout(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/hall-adp-api/internal/models"
	appErrors "github.com/noah-isme/hall-adp-api/pkg/errors"
)

type occupantReader interface {
	ListOccupants(ctx context.Context, block string, roomNos []int) ([]models.BedOccupant, error)
}

// OccupancyService derives room occupancy from the students table. It never writes.
type OccupancyService struct {
	students occupantReader
	layout   *HallLayout
	logger   *zap.Logger
}

// NewOccupancyService constructs the service.
func NewOccupancyService(students occupantReader, layout *HallLayout, logger *zap.Logger) *OccupancyService {
	if layout == nil {
		layout = DefaultHallLayout()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccupancyService{students: students, layout: layout, logger: logger}
}

// GetOccupancy returns the occupancy of one room.
func (s *OccupancyService) GetOccupancy(ctx context.Context, block string, roomNo int) (*models.RoomOccupancy, error) {
	b, err := s.layout.NormaliseBlock(block)
	if err != nil {
		return nil, err
	}
	if err := s.layout.ValidateRoom(roomNo); err != nil {
		return nil, err
	}
	rooms, err := s.FloorOccupancy(ctx, b, []int{roomNo})
	if err != nil {
		return nil, err
	}
	occupancy := rooms[roomNo]
	return &occupancy, nil
}

// FloorOccupancy computes occupancy for several rooms of one block with a single query.
// Block and room numbers are expected to be validated by the caller.
func (s *OccupancyService) FloorOccupancy(ctx context.Context, block string, roomNos []int) (map[int]models.RoomOccupancy, error) {
	occupants, err := s.students.ListOccupants(ctx, block, roomNos)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room occupants")
	}
	byRoom := make(map[int][]models.BedOccupant, len(roomNos))
	for _, occ := range occupants {
		byRoom[occ.RoomNo] = append(byRoom[occ.RoomNo], occ)
	}
	result := make(map[int]models.RoomOccupancy, len(roomNos))
	for _, roomNo := range roomNos {
		result[roomNo] = models.NewRoomOccupancy(s.layout.Room(block, roomNo), byRoom[roomNo])
	}
	return result, nil
}

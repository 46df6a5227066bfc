package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/hall-adp-api/internal/models"
	"github.com/noah-isme/hall-adp-api/pkg/config"
	appErrors "github.com/noah-isme/hall-adp-api/pkg/errors"
)

// HallLayout knows which blocks, floors, rooms and beds exist. Room numbers follow
// floor*100+1 .. floor*100+RoomsPerFloor.
type HallLayout struct {
	blocks        map[string]struct{}
	blockOrder    []string
	floors        int
	roomsPerFloor int
	capacity      int
}

// NewHallLayout builds a layout from configuration, falling back to the standard
// two blocks, three floors, fifteen rooms per floor and four beds per room.
func NewHallLayout(cfg config.HallConfig) *HallLayout {
	blocks := cfg.Blocks
	if len(blocks) == 0 {
		blocks = []string{models.BlockA, models.BlockB}
	}
	l := &HallLayout{
		blocks:        make(map[string]struct{}, len(blocks)),
		floors:        cfg.Floors,
		roomsPerFloor: cfg.RoomsPerFloor,
		capacity:      cfg.RoomCapacity,
	}
	for _, b := range blocks {
		b = strings.ToUpper(strings.TrimSpace(b))
		if _, dup := l.blocks[b]; dup || b == "" {
			continue
		}
		l.blocks[b] = struct{}{}
		l.blockOrder = append(l.blockOrder, b)
	}
	if l.floors <= 0 {
		l.floors = 3
	}
	if l.roomsPerFloor <= 0 || l.roomsPerFloor > 99 {
		l.roomsPerFloor = 15
	}
	if l.capacity <= 0 {
		l.capacity = models.DefaultRoomCapacity
	}
	return l
}

// DefaultHallLayout is the layout used when no configuration is supplied.
func DefaultHallLayout() *HallLayout {
	return NewHallLayout(config.HallConfig{})
}

// Capacity is the number of beds per room.
func (l *HallLayout) Capacity() int { return l.capacity }

// Blocks lists the configured blocks in order.
func (l *HallLayout) Blocks() []string { return append([]string(nil), l.blockOrder...) }

// Floors lists valid floor numbers.
func (l *HallLayout) Floors() []int {
	floors := make([]int, l.floors)
	for i := range floors {
		floors[i] = i + 1
	}
	return floors
}

// NormaliseBlock upper-cases and validates a block name.
func (l *HallLayout) NormaliseBlock(block string) (string, error) {
	b := strings.ToUpper(strings.TrimSpace(block))
	if _, ok := l.blocks[b]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid block %q: must be one of %s", block, strings.Join(l.blockOrder, ", ")))
	}
	return b, nil
}

// ValidateFloor rejects floors outside 1..floors.
func (l *HallLayout) ValidateFloor(floor int) error {
	if floor < 1 || floor > l.floors {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid floor %d: must be between 1 and %d", floor, l.floors))
	}
	return nil
}

// ValidateRoom rejects room numbers that do not follow the numbering convention.
func (l *HallLayout) ValidateRoom(roomNo int) error {
	floor := models.FloorOf(roomNo)
	idx := roomNo % 100
	if floor < 1 || floor > l.floors || idx < 1 || idx > l.roomsPerFloor {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid room number %d", roomNo))
	}
	return nil
}

// ValidateBed rejects bed numbers outside 1..capacity.
func (l *HallLayout) ValidateBed(bedNo int) error {
	if bedNo < 1 || bedNo > l.capacity {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid bed number %d: must be between 1 and %d", bedNo, l.capacity))
	}
	return nil
}

// NormaliseBed validates every part of a bed reference and returns it with a canonical block.
func (l *HallLayout) NormaliseBed(bed models.BedRef) (models.BedRef, error) {
	block, err := l.NormaliseBlock(bed.Block)
	if err != nil {
		return models.BedRef{}, err
	}
	if err := l.ValidateRoom(bed.RoomNo); err != nil {
		return models.BedRef{}, err
	}
	if err := l.ValidateBed(bed.BedNo); err != nil {
		return models.BedRef{}, err
	}
	return models.BedRef{Block: block, RoomNo: bed.RoomNo, BedNo: bed.BedNo}, nil
}

// RoomNumbers returns the room numbers on a floor.
func (l *HallLayout) RoomNumbers(floor int) []int {
	rooms := make([]int, l.roomsPerFloor)
	for i := range rooms {
		rooms[i] = floor*100 + i + 1
	}
	return rooms
}

// Room builds the directory entry for a validated block and room number.
func (l *HallLayout) Room(block string, roomNo int) models.Room {
	return models.Room{Block: block, RoomNo: roomNo, Floor: models.FloorOf(roomNo), Capacity: l.capacity}
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRoomOccupancyDerivesMetrics(t *testing.T) {
	room := Room{Block: BlockA, RoomNo: 101, Capacity: 4}
	occ := NewRoomOccupancy(room, []BedOccupant{
		{BedNumber: 2, StudentID: "s-1"},
		{BedNumber: 4, StudentID: "s-2"},
	})

	assert.Equal(t, "A-101", occ.Label)
	assert.Equal(t, 1, occ.Floor)
	assert.Equal(t, 2, occ.AvailableCount)
	assert.Equal(t, []int{1, 3}, occ.AvailableBedNumbers)
	assert.False(t, occ.IsFull)
	assert.False(t, occ.BedAvailable(2))
	assert.True(t, occ.BedAvailable(3))
}

func TestNewRoomOccupancyFullAndEmpty(t *testing.T) {
	full := NewRoomOccupancy(Room{Block: BlockB, RoomNo: 315}, []BedOccupant{
		{BedNumber: 1}, {BedNumber: 2}, {BedNumber: 3}, {BedNumber: 4},
	})
	assert.True(t, full.IsFull)
	assert.Equal(t, 0, full.AvailableCount)
	assert.Empty(t, full.AvailableBedNumbers)
	assert.Equal(t, DefaultRoomCapacity, full.Capacity)

	empty := NewRoomOccupancy(Room{Block: BlockB, RoomNo: 201, Capacity: 4}, nil)
	assert.NotNil(t, empty.OccupiedBeds)
	assert.Equal(t, 4, empty.AvailableCount)
}

func TestStudentIsRoomAllocated(t *testing.T) {
	block, room, bed := "A", 101, 2
	s := &Student{Block: &block, RoomNo: &room}
	assert.False(t, s.IsRoomAllocated())
	assert.Nil(t, s.Assignment())

	s.BedNo = &bed
	assert.True(t, s.IsRoomAllocated())
	assert.True(t, s.Assignment().Same(BedRef{Block: "A", RoomNo: 101, BedNo: 2}))
}

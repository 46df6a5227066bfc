package models

import (
	"fmt"
	"time"
)

// Blocks of the hall.
const (
	BlockA = "A"
	BlockB = "B"
)

// DefaultRoomCapacity is the number of beds in every room.
const DefaultRoomCapacity = 4

// Room is a directory entry. Occupancy is never stored here; see RoomOccupancy.
type Room struct {
	Block     string    `db:"block" json:"block"`
	RoomNo    int       `db:"room_no" json:"room_no"`
	Floor     int       `db:"floor" json:"floor"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Label renders the display name of the room, e.g. A-101.
func (r Room) Label() string {
	return RoomLabel(r.Block, r.RoomNo)
}

// RoomLabel renders the display name for a block and room number.
func RoomLabel(block string, roomNo int) string {
	return fmt.Sprintf("%s-%d", block, roomNo)
}

// FloorOf derives the floor from the room numbering convention (first digit).
func FloorOf(roomNo int) int {
	return roomNo / 100
}

// BedOccupant is one occupied bed inside a room.
type BedOccupant struct {
	Block         string `db:"block" json:"-"`
	RoomNo        int    `db:"room_no" json:"-"`
	BedNumber     int    `db:"bed_no" json:"bed_number"`
	StudentID     string `db:"id" json:"student_id"`
	StudentNumber string `db:"student_number" json:"student_number"`
	FullName      string `db:"full_name" json:"full_name"`
	Department    string `db:"department" json:"department,omitempty"`
}

// RoomOccupancy is derived from the student set on every read.
type RoomOccupancy struct {
	Block               string        `json:"block"`
	RoomNo              int           `json:"room_no"`
	Floor               int           `json:"floor"`
	Label               string        `json:"label"`
	Capacity            int           `json:"capacity"`
	OccupiedBeds        []BedOccupant `json:"occupied_beds"`
	AvailableCount      int           `json:"available_count"`
	AvailableBedNumbers []int         `json:"available_bed_numbers"`
	IsFull              bool          `json:"is_full"`
}

// NewRoomOccupancy derives availability metrics for a room from its occupants.
func NewRoomOccupancy(room Room, occupants []BedOccupant) RoomOccupancy {
	capacity := room.Capacity
	if capacity <= 0 {
		capacity = DefaultRoomCapacity
	}
	taken := make(map[int]struct{}, len(occupants))
	for _, occ := range occupants {
		taken[occ.BedNumber] = struct{}{}
	}
	available := make([]int, 0, capacity)
	for bed := 1; bed <= capacity; bed++ {
		if _, ok := taken[bed]; !ok {
			available = append(available, bed)
		}
	}
	if occupants == nil {
		occupants = []BedOccupant{}
	}
	availableCount := capacity - len(occupants)
	if availableCount < 0 {
		availableCount = 0
	}
	return RoomOccupancy{
		Block:               room.Block,
		RoomNo:              room.RoomNo,
		Floor:               FloorOf(room.RoomNo),
		Label:               RoomLabel(room.Block, room.RoomNo),
		Capacity:            capacity,
		OccupiedBeds:        occupants,
		AvailableCount:      availableCount,
		AvailableBedNumbers: available,
		IsFull:              len(occupants) >= capacity,
	}
}

// BedAvailable reports whether bed is free in this snapshot.
func (o RoomOccupancy) BedAvailable(bed int) bool {
	for _, occ := range o.OccupiedBeds {
		if occ.BedNumber == bed {
			return false
		}
	}
	return true
}

// RoomAvailability is the compact per-room view served by the availability grid.
type RoomAvailability struct {
	Label               string `json:"label"`
	Capacity            int    `json:"capacity"`
	OccupiedBeds        int    `json:"occupied_beds"`
	AvailableBeds       int    `json:"available_beds"`
	AvailableBedNumbers []int  `json:"available_bed_numbers"`
	IsFull              bool   `json:"is_full"`
}

package dto

import "github.com/noah-isme/hall-adp-api/internal/models"

// RoomAvailabilityGrid maps room number to its availability for one floor of a block.
type RoomAvailabilityGrid map[int]models.RoomAvailability

// RoomLayout is the detail view of a single room.
type RoomLayout struct {
	Room      models.Room          `json:"room"`
	Occupancy models.RoomOccupancy `json:"occupancy"`
}

// OccupancyReportQuery selects the occupancy export.
type OccupancyReportQuery struct {
	Block  string
	Format string
}

// ReportFile is a rendered export ready to be streamed.
type ReportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hall-adp-api/internal/dto"
	appErrors "github.com/noah-isme/hall-adp-api/pkg/errors"
	"github.com/noah-isme/hall-adp-api/pkg/export"
)

// Report formats accepted by the occupancy export.
const (
	ReportFormatCSV = "csv"
	ReportFormatPDF = "pdf"
)

var occupancyReportHeaders = []string{"Block", "Floor", "Room", "Bed", "Status", "Student Number", "Student Name", "Department"}

type datasetRenderer interface {
	ContentType() string
	Render(data export.Dataset, title string) ([]byte, error)
}

// ReportService renders bed-level occupancy exports for administrators.
type ReportService struct {
	occupancy *OccupancyService
	layout    *HallLayout
	renderers map[string]datasetRenderer
	enabled   bool
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService constructs the service with CSV and PDF renderers.
func NewReportService(occupancy *OccupancyService, layout *HallLayout, enabled bool, logger *zap.Logger) *ReportService {
	if layout == nil {
		layout = DefaultHallLayout()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		occupancy: occupancy,
		layout:    layout,
		renderers: map[string]datasetRenderer{
			ReportFormatCSV: export.NewCSVExporter(),
			ReportFormatPDF: export.NewPDFExporter(),
		},
		enabled: enabled,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// OccupancyReport lists every bed of the selected block (or all blocks) with its occupant.
func (s *ReportService) OccupancyReport(ctx context.Context, query dto.OccupancyReportQuery) (*dto.ReportFile, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "reports are disabled")
	}
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = ReportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	blocks := s.layout.Blocks()
	if strings.TrimSpace(query.Block) != "" {
		block, err := s.layout.NormaliseBlock(query.Block)
		if err != nil {
			return nil, err
		}
		blocks = []string{block}
	}

	dataset, err := s.buildDataset(ctx, blocks)
	if err != nil {
		return nil, err
	}

	scope := "all-blocks"
	if len(blocks) == 1 {
		scope = "block-" + blocks[0]
	}
	generated := s.now()
	title := fmt.Sprintf("Hall Occupancy (%s) %s", strings.Join(blocks, ", "), generated.Format("2006-01-02"))
	payload, err := renderer.Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	s.logger.Info("occupancy report generated", zap.String("format", format), zap.String("scope", scope), zap.Int("rows", len(dataset.Rows)))
	return &dto.ReportFile{
		Filename:    fmt.Sprintf("occupancy-%s-%s.%s", strings.ToLower(scope), generated.Format("20060102"), format),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

func (s *ReportService) buildDataset(ctx context.Context, blocks []string) (export.Dataset, error) {
	dataset := export.Dataset{Headers: occupancyReportHeaders}
	for _, block := range blocks {
		for _, floor := range s.layout.Floors() {
			roomNos := s.layout.RoomNumbers(floor)
			rooms, err := s.occupancy.FloorOccupancy(ctx, block, roomNos)
			if err != nil {
				return export.Dataset{}, err
			}
			for _, roomNo := range roomNos {
				room := rooms[roomNo]
				occupants := make(map[int]int, len(room.OccupiedBeds))
				for i, occ := range room.OccupiedBeds {
					occupants[occ.BedNumber] = i
				}
				for bed := 1; bed <= room.Capacity; bed++ {
					row := map[string]string{
						"Block":  block,
						"Floor":  strconv.Itoa(floor),
						"Room":   room.Label,
						"Bed":    strconv.Itoa(bed),
						"Status": "Vacant",
					}
					if idx, taken := occupants[bed]; taken {
						occ := room.OccupiedBeds[idx]
						row["Status"] = "Occupied"
						row["Student Number"] = occ.StudentNumber
						row["Student Name"] = occ.FullName
						row["Department"] = occ.Department
					}
					dataset.Rows = append(dataset.Rows, row)
				}
			}
		}
	}
	return dataset, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hall-adp-api/internal/dto"
	"github.com/noah-isme/hall-adp-api/internal/models"
	appErrors "github.com/noah-isme/hall-adp-api/pkg/errors"
	"github.com/noah-isme/hall-adp-api/pkg/jobs"
)

// JobTypeAvailabilityWarm rebuilds one cached availability grid.
const JobTypeAvailabilityWarm = "availability.warm"

type roomStore interface {
	EnsureRooms(ctx context.Context, rooms []models.Room) error
	GetRoom(ctx context.Context, block string, roomNo int) (*models.Room, error)
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// AvailabilityKey identifies one floor of one block.
type AvailabilityKey struct {
	Block string
	Floor int
}

func (k AvailabilityKey) cacheKey() string {
	return fmt.Sprintf("availability:%s:%d", k.Block, k.Floor)
}

// RoomService serves the room directory and availability views.
type RoomService struct {
	rooms     roomStore
	occupancy *OccupancyService
	layout    *HallLayout
	cache     *CacheService
	ttl       time.Duration
	warmer    jobEnqueuer
	logger    *zap.Logger

	genMu sync.Mutex
	gens  map[string]uint64
}

// NewRoomService constructs the service. cache may be nil.
func NewRoomService(rooms roomStore, occupancy *OccupancyService, layout *HallLayout, cache *CacheService, ttl time.Duration, logger *zap.Logger) *RoomService {
	if layout == nil {
		layout = DefaultHallLayout()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{rooms: rooms, occupancy: occupancy, layout: layout, cache: cache, ttl: ttl, logger: logger, gens: make(map[string]uint64)}
}

// SetWarmer attaches the queue used to rebuild availability grids after invalidation.
func (s *RoomService) SetWarmer(q jobEnqueuer) {
	s.warmer = q
}

// Layout returns the hall layout served by this service.
func (s *RoomService) Layout() *HallLayout {
	return s.layout
}

// EnsureRoomExists validates the room and creates its directory entry when missing.
func (s *RoomService) EnsureRoomExists(ctx context.Context, block string, roomNo int) (*models.Room, error) {
	b, err := s.layout.NormaliseBlock(block)
	if err != nil {
		return nil, err
	}
	if err := s.layout.ValidateRoom(roomNo); err != nil {
		return nil, err
	}
	if err := s.rooms.EnsureRooms(ctx, []models.Room{s.layout.Room(b, roomNo)}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ensure room")
	}
	room, err := s.rooms.GetRoom(ctx, b, roomNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// EnsureFloor creates every missing directory entry of a floor in one statement.
func (s *RoomService) EnsureFloor(ctx context.Context, block string, floor int) ([]models.Room, error) {
	rooms := make([]models.Room, 0)
	for _, roomNo := range s.layout.RoomNumbers(floor) {
		rooms = append(rooms, s.layout.Room(block, roomNo))
	}
	if err := s.rooms.EnsureRooms(ctx, rooms); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ensure rooms")
	}
	return rooms, nil
}

// Availability returns the grid of rooms on one floor of a block. The boolean reports a cache hit.
func (s *RoomService) Availability(ctx context.Context, floor int, block string) (dto.RoomAvailabilityGrid, bool, error) {
	b, err := s.layout.NormaliseBlock(block)
	if err != nil {
		return nil, false, err
	}
	if err := s.layout.ValidateFloor(floor); err != nil {
		return nil, false, err
	}
	key := AvailabilityKey{Block: b, Floor: floor}

	var cached dto.RoomAvailabilityGrid
	if hit, _ := s.cache.Get(ctx, key.cacheKey(), &cached); hit {
		return cached, true, nil
	}

	gen := s.generation(key.cacheKey())
	grid, err := s.buildAvailability(ctx, key)
	if err != nil {
		return nil, false, err
	}
	_ = s.storeAvailability(ctx, key.cacheKey(), gen, grid)
	return grid, false, nil
}

func (s *RoomService) buildAvailability(ctx context.Context, key AvailabilityKey) (dto.RoomAvailabilityGrid, error) {
	rooms, err := s.EnsureFloor(ctx, key.Block, key.Floor)
	if err != nil {
		return nil, err
	}
	roomNos := make([]int, len(rooms))
	for i, room := range rooms {
		roomNos[i] = room.RoomNo
	}
	occupancy, err := s.occupancy.FloorOccupancy(ctx, key.Block, roomNos)
	if err != nil {
		return nil, err
	}
	grid := make(dto.RoomAvailabilityGrid, len(roomNos))
	for _, roomNo := range roomNos {
		occ := occupancy[roomNo]
		grid[roomNo] = models.RoomAvailability{
			Label:               occ.Label,
			Capacity:            occ.Capacity,
			OccupiedBeds:        len(occ.OccupiedBeds),
			AvailableBeds:       occ.AvailableCount,
			AvailableBedNumbers: occ.AvailableBedNumbers,
			IsFull:              occ.IsFull,
		}
	}
	return grid, nil
}

// RoomLayout returns a single room with its current occupants.
func (s *RoomService) RoomLayout(ctx context.Context, block string, roomNo int) (*dto.RoomLayout, error) {
	room, err := s.EnsureRoomExists(ctx, block, roomNo)
	if err != nil {
		return nil, err
	}
	occupancy, err := s.occupancy.GetOccupancy(ctx, room.Block, room.RoomNo)
	if err != nil {
		return nil, err
	}
	return &dto.RoomLayout{Room: *room, Occupancy: *occupancy}, nil
}

// Refresh drops cached availability for the floors touched by a committed allocation
// change and schedules a rebuild. It never fails the caller.
func (s *RoomService) Refresh(ctx context.Context, beds ...models.BedRef) {
	seen := make(map[AvailabilityKey]struct{}, len(beds))
	keys := make([]string, 0, len(beds))
	for _, bed := range beds {
		k := AvailabilityKey{Block: bed.Block, Floor: models.FloorOf(bed.RoomNo)}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k.cacheKey())
	}
	if len(keys) == 0 || !s.cache.Enabled() {
		return
	}
	s.bumpGeneration(keys...)
	if err := s.cache.Evict(ctx, keys...); err != nil {
		s.logger.Warn("availability cache eviction failed", zap.Strings("keys", keys), zap.Error(err))
	}
	if s.warmer == nil {
		return
	}
	for k := range seen {
		job := jobs.Job{ID: uuid.NewString(), Type: JobTypeAvailabilityWarm, Payload: k}
		if err := s.warmer.TryEnqueue(job); err != nil {
			s.logger.Debug("availability warm skipped", zap.String("key", k.cacheKey()), zap.Error(err))
		}
	}
}

// HandleWarmJob rebuilds a cached availability grid. It is the handler of the warm queue.
func (s *RoomService) HandleWarmJob(ctx context.Context, job jobs.Job) error {
	key, ok := job.Payload.(AvailabilityKey)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	gen := s.generation(key.cacheKey())
	grid, err := s.buildAvailability(ctx, key)
	if err != nil {
		return err
	}
	return s.storeAvailability(ctx, key.cacheKey(), gen, grid)
}

// storeAvailability caches a grid built while the key was at generation gen. A grid
// whose key was invalidated during the build is dropped.
func (s *RoomService) storeAvailability(ctx context.Context, key string, gen uint64, grid dto.RoomAvailabilityGrid) error {
	if s.generation(key) != gen {
		return nil
	}
	if err := s.cache.Set(ctx, key, grid, s.ttl); err != nil {
		return err
	}
	if s.generation(key) != gen {
		return s.cache.Evict(ctx, key)
	}
	return nil
}

func (s *RoomService) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[key]
}

func (s *RoomService) bumpGeneration(keys ...string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	for _, k := range keys {
		s.gens[k]++
	}
}

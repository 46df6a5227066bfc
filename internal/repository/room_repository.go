package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hall-adp-api/internal/models"
)

const roomColumns = `block, room_no, floor, capacity, created_at`

// RoomRepository persists the room directory. Rooms are created explicitly and never carry occupancy.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// EnsureRooms inserts any missing directory entries. Existing rows are left untouched.
func (r *RoomRepository) EnsureRooms(ctx context.Context, rooms []models.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	now := time.Now().UTC()
	values := make([]string, 0, len(rooms))
	args := make([]interface{}, 0, len(rooms)*5)
	for _, room := range rooms {
		base := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5))
		args = append(args, room.Block, room.RoomNo, room.Floor, room.Capacity, now)
	}
	query := fmt.Sprintf(`INSERT INTO rooms (%s) VALUES %s ON CONFLICT (block, room_no) DO NOTHING`,
		roomColumns, strings.Join(values, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure rooms: %w", err)
	}
	return nil
}

// GetRoom returns a directory entry. sql.ErrNoRows is returned untouched.
func (r *RoomRepository) GetRoom(ctx context.Context, block string, roomNo int) (*models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE block = $1 AND room_no = $2`, roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, block, roomNo); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListByBlock returns every room of a block ordered by room number.
func (r *RoomRepository) ListByBlock(ctx context.Context, block string) ([]models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE block = $1 ORDER BY room_no`, roomColumns)
	rooms := make([]models.Room, 0)
	if err := r.db.SelectContext(ctx, &rooms, query, block); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

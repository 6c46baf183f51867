package meeting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const findMeetingSQL = `
SELECT id, title, COALESCE(description, ''), status, COALESCE(room_id, ''), scheduled_at, duration_minutes
FROM meetings
WHERE id = $1`

// PGDirectory reads meetings from PostgreSQL.
type PGDirectory struct {
	pool *pgxpool.Pool
}

// NewPGDirectory wraps an open pool.
func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	return &PGDirectory{pool: pool}
}

// Find implements Directory.
func (d *PGDirectory) Find(ctx context.Context, meetingID string) (Meeting, error) {
	var (
		m      Meeting
		status string
	)

	err := d.pool.QueryRow(ctx, findMeetingSQL, meetingID).Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&status,
		&m.RoomID,
		&m.ScheduledAt,
		&m.Duration,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Meeting{}, ErrNotFound
	}
	if err != nil {
		return Meeting{}, fmt.Errorf("find meeting %s: %w", meetingID, err)
	}

	m.Status = Status(status)
	return m, nil
}

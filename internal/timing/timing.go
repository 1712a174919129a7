// Package timing records how long pipeline phases take per processed item.
package timing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Recorder stores phase durations in the phase_timings table.
type Recorder struct {
	db DB
}

func NewRecorder(db DB) *Recorder {
	return &Recorder{db: db}
}

// Record stores that phase of paperID handled amount items in d.
func (r *Recorder) Record(ctx context.Context, paperID string, phase, amount int, d time.Duration) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO phase_timings (paper_id, phase, amount, duration_ms)
VALUES ($1, $2, $3, $4)`,
		paperID, int32(phase), int32(amount), d.Milliseconds(),
	)
	return err
}

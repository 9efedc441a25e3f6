package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/gork/internal/ratelimit"
)

// windowLayout keeps a fixed width so window_start sorts as text.
const windowLayout = "2006-01-02T15:04:05.000000000Z"

// RateStateStore implements ratelimit.StateStore on the user_rate_state table.
type RateStateStore struct {
	db *DB
}

// NewRateStateStore creates a store using the given database.
func NewRateStateStore(db *DB) *RateStateStore {
	return &RateStateStore{db: db}
}

func (s *RateStateStore) Get(ctx context.Context, userID string) (ratelimit.State, bool, error) {
	var (
		st          ratelimit.State
		windowStart string
	)
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT message_count, window_start FROM user_rate_state WHERE user_id = ?`, userID,
	).Scan(&st.Count, &windowStart)
	if errors.Is(err, sql.ErrNoRows) {
		return ratelimit.State{}, false, nil
	}
	if err != nil {
		return ratelimit.State{}, false, fmt.Errorf("query rate state: %w", err)
	}

	st.WindowStart, err = time.Parse(windowLayout, windowStart)
	if err != nil {
		return ratelimit.State{}, false, fmt.Errorf("parse window start %q: %w", windowStart, err)
	}
	return st, true, nil
}

func (s *RateStateStore) Put(ctx context.Context, userID string, st ratelimit.State) error {
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO user_rate_state (user_id, message_count, window_start, updated_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(user_id) DO UPDATE SET
			message_count = excluded.message_count,
			window_start  = excluded.window_start,
			updated_at    = excluded.updated_at`,
		userID, st.Count, st.WindowStart.UTC().Format(windowLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert rate state: %w", err)
	}
	return nil
}

func (s *RateStateStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.sql.ExecContext(ctx, `DELETE FROM user_rate_state WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete rate state: %w", err)
	}
	return nil
}

// Prune removes windows that started before cutoff. Expired windows would
// be reset on the next message anyway.
func (s *RateStateStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.sql.ExecContext(ctx,
		`DELETE FROM user_rate_state WHERE window_start < ?`, cutoff.UTC().Format(windowLayout))
	if err != nil {
		return 0, fmt.Errorf("prune rate state: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.db.log.Debug().Int64("rows", n).Msg("pruned expired rate windows")
	}
	return n, nil
}

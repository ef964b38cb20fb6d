package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// StateStart is the resting state a user returns to between flows. An
// absent row is equivalent to this state with an empty draft.
const StateStart = "start"

type pgUserStates struct {
	db *sqlx.DB
}

// NewPGUserStates returns the Postgres-backed user state store.
func NewPGUserStates(db *sqlx.DB) UserStates {
	return &pgUserStates{db: db}
}

// Get returns the stored state for a user, lazily creating and
// persisting a default start row on first contact.
func (s *pgUserStates) Get(ctx context.Context, userID int64) (UserState, error) {
	var us UserState
	err := s.db.GetContext(ctx, &us,
		`SELECT user_id, state, data, updated_at FROM tg_user_state WHERE user_id = $1`, userID)
	if err == nil {
		return us, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return UserState{}, fmt.Errorf("get user state: %w", err)
	}

	us = UserState{UserID: userID, State: StateStart, Data: Draft{}}
	if err := s.Set(ctx, userID, us.State, &us.Data); err != nil {
		return UserState{}, err
	}
	return us, nil
}

// Set upserts the state row. When data is nil the previously stored
// draft is preserved; otherwise it is fully replaced.
func (s *pgUserStates) Set(ctx context.Context, userID int64, state string, data *Draft) error {
	var err error
	if data == nil {
		_, err = s.db.ExecContext(ctx, `
INSERT INTO tg_user_state (user_id, state, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
			userID, state)
	} else {
		_, err = s.db.ExecContext(ctx, `
INSERT INTO tg_user_state (user_id, state, data, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (user_id) DO UPDATE SET state = EXCLUDED.state, data = EXCLUDED.data, updated_at = now()`,
			userID, state, *data)
	}
	if err != nil {
		return fmt.Errorf("set user state: %w", err)
	}
	return nil
}

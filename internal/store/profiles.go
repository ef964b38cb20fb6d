package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type pgProfiles struct {
	db *sqlx.DB
}

// NewPGProfiles returns the Postgres-backed profile store.
func NewPGProfiles(db *sqlx.DB) Profiles {
	return &pgProfiles{db: db}
}

const profileColumns = `user_id, role, saved_address, city, schedule_days, schedule_time,
notification_filter, eco_points, average_rating, rating_count, updated_at`

// Get fetches a profile by user id.
func (s *pgProfiles) Get(ctx context.Context, userID int64) (Profile, error) {
	var p Profile
	err := s.db.GetContext(ctx, &p,
		`SELECT `+profileColumns+` FROM tg_user_profile WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// upsertField writes a single column without touching the rest of the row.
func (s *pgProfiles) upsertField(ctx context.Context, userID int64, column string, value any) error {
	q := fmt.Sprintf(`
INSERT INTO tg_user_profile (user_id, %s, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE SET %s = EXCLUDED.%s, updated_at = now()`,
		column, column, column)
	if _, err := s.db.ExecContext(ctx, q, userID, value); err != nil {
		return fmt.Errorf("upsert profile %s: %w", column, err)
	}
	return nil
}

// SetRole records the user's chosen role.
func (s *pgProfiles) SetRole(ctx context.Context, userID int64, role Role) error {
	return s.upsertField(ctx, userID, "role", string(role))
}

// SetSavedAddress stores the customer's reusable address.
func (s *pgProfiles) SetSavedAddress(ctx context.Context, userID int64, address string) error {
	return s.upsertField(ctx, userID, "saved_address", address)
}

// SetCity stores the performer's matching city.
func (s *pgProfiles) SetCity(ctx context.Context, userID int64, city string) error {
	return s.upsertField(ctx, userID, "city", city)
}

// SetSchedule stores the performer's working schedule and alert filter.
func (s *pgProfiles) SetSchedule(ctx context.Context, userID int64, days, timeRange string, filter NotificationFilter) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tg_user_profile (user_id, schedule_days, schedule_time, notification_filter, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (user_id) DO UPDATE SET
  schedule_days = EXCLUDED.schedule_days,
  schedule_time = EXCLUDED.schedule_time,
  notification_filter = EXCLUDED.notification_filter,
  updated_at = now()`,
		userID, nullIfEmpty(days), nullIfEmpty(timeRange), string(filter))
	if err != nil {
		return fmt.Errorf("upsert profile schedule: %w", err)
	}
	return nil
}

// AddEcoPoints increments the balance in a single statement, so two
// concurrent completions cannot lose an update.
func (s *pgProfiles) AddEcoPoints(ctx context.Context, userID int64, amount decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tg_user_profile (user_id, eco_points, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE SET
  eco_points = tg_user_profile.eco_points + EXCLUDED.eco_points,
  updated_at = now()`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("add eco points: %w", err)
	}
	return nil
}

// ApplyRating folds a new rating into the running average in one
// statement, rounded to two decimal places.
func (s *pgProfiles) ApplyRating(ctx context.Context, userID int64, rating int) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tg_user_profile (user_id, average_rating, rating_count, updated_at)
VALUES ($1, $2, 1, now())
ON CONFLICT (user_id) DO UPDATE SET
  average_rating = round(
    (tg_user_profile.average_rating * tg_user_profile.rating_count + $2)
      / (tg_user_profile.rating_count + 1), 2),
  rating_count = tg_user_profile.rating_count + 1,
  updated_at = now()`,
		userID, rating)
	if err != nil {
		return fmt.Errorf("apply rating: %w", err)
	}
	return nil
}

// ListPerformers returns all performer profiles with a city set.
func (s *pgProfiles) ListPerformers(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	err := s.db.SelectContext(ctx, &profiles,
		`SELECT `+profileColumns+` FROM tg_user_profile
WHERE role = $1 AND city IS NOT NULL`, RolePerformer)
	if err != nil {
		return nil, fmt.Errorf("list performers: %w", err)
	}
	return profiles, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

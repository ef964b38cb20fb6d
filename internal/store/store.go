// Package store persists conversation state, orders, and user profiles.
// The Postgres implementations are the production backend; in-memory
// equivalents back unit tests and local development.
package store

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// UserStates persists one conversation state row per user.
//
// Set upserts atomically: a nil data pointer preserves the previously
// stored draft, a non-nil pointer fully replaces it. All read-modify-write
// merging happens in the engine before Set is called.
type UserStates interface {
	Get(ctx context.Context, userID int64) (UserState, error)
	Set(ctx context.Context, userID int64, state string, data *Draft) error
}

// Orders persists pickup orders.
type Orders interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	ListNew(ctx context.Context, limit int) ([]Order, error)
	ListByPerformer(ctx context.Context, performerID int64, status OrderStatus, limit int) ([]Order, error)

	// Claim assigns the order to the performer only if it is still new at
	// update time. It reports whether the compare-and-swap won.
	Claim(ctx context.Context, id string, performerID int64) (bool, error)

	// Complete marks the order completed, scoped on the calling performer
	// still owning an in-progress claim. Returns ErrNotFound otherwise.
	Complete(ctx context.Context, id string, performerID int64) (Order, error)

	SetPhotoDoor(ctx context.Context, id, ref string) error
	SetPhotoBin(ctx context.Context, id, ref string) error
	SetComment(ctx context.Context, id, comment string) error
	SetRating(ctx context.Context, id string, rating int) error
}

// Profiles persists per-user attributes. Each setter upserts only its own
// fields and must not clear unrelated ones already stored.
type Profiles interface {
	Get(ctx context.Context, userID int64) (Profile, error)
	SetRole(ctx context.Context, userID int64, role Role) error
	SetSavedAddress(ctx context.Context, userID int64, address string) error
	SetCity(ctx context.Context, userID int64, city string) error
	SetSchedule(ctx context.Context, userID int64, days, timeRange string, filter NotificationFilter) error

	// AddEcoPoints atomically increments the performer's balance.
	AddEcoPoints(ctx context.Context, userID int64, amount decimal.Decimal) error

	// ApplyRating folds a new rating into the running average:
	// new_avg = round((avg*count + r) / (count+1), 2), count+1.
	ApplyRating(ctx context.Context, userID int64, rating int) error

	// ListPerformers returns all profiles with role=performer and a city set.
	ListPerformers(ctx context.Context) ([]Profile, error)
}

// Settings is a small key/value table for bot-level settings.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// AdminChatKey is the settings key holding the admin notification target.
const AdminChatKey = "admin_chat_id"

// Stores bundles all Postgres-backed stores over one connection pool.
type Stores struct {
	UserStates UserStates
	Orders     Orders
	Profiles   Profiles
	Settings   Settings
}

// New wires Postgres implementations over the given pool.
func New(db *sqlx.DB) *Stores {
	return &Stores{
		UserStates: NewPGUserStates(db),
		Orders:     NewPGOrders(db),
		Profiles:   NewPGProfiles(db),
		Settings:   NewPGSettings(db),
	}
}

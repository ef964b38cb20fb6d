package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type pgOrders struct {
	db *sqlx.DB
}

// NewPGOrders returns the Postgres-backed order store.
func NewPGOrders(db *sqlx.DB) Orders {
	return &pgOrders{db: db}
}

const orderColumns = `id, user_id, username, first_name, last_name, address, size_option, bags,
time_option, custom_time, amount, status, performer_id, photo_door, photo_bin, rating, comment,
created_at, updated_at`

// Create inserts a new order, generating its id, and returns the stored row.
func (s *pgOrders) Create(ctx context.Context, o Order) (Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusNew
	}

	var created Order
	err := s.db.GetContext(ctx, &created, `
INSERT INTO orders (id, user_id, username, first_name, last_name, address, size_option, bags,
                    time_option, custom_time, amount, status, comment)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING `+orderColumns,
		o.ID, o.UserID, o.Username, o.FirstName, o.LastName, o.Address, o.SizeOption, o.Bags,
		o.TimeOption, o.CustomTime, o.Amount, o.Status, o.Comment)
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	return created, nil
}

// Get fetches an order by id.
func (s *pgOrders) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := s.db.GetContext(ctx, &o,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListNew returns up to limit unclaimed orders, oldest first.
func (s *pgOrders) ListNew(ctx context.Context, limit int) ([]Order, error) {
	var orders []Order
	err := s.db.SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		StatusNew, limit)
	if err != nil {
		return nil, fmt.Errorf("list new orders: %w", err)
	}
	return orders, nil
}

// ListByPerformer returns the performer's orders in the given status, newest first.
func (s *pgOrders) ListByPerformer(ctx context.Context, performerID int64, status OrderStatus, limit int) ([]Order, error) {
	var orders []Order
	err := s.db.SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders
WHERE performer_id = $1 AND status = $2 ORDER BY updated_at DESC LIMIT $3`,
		performerID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list performer orders: %w", err)
	}
	return orders, nil
}

// Claim performs the compare-and-swap take: the update succeeds only if
// the order is still new at update time, so two racing performers can
// never both win.
func (s *pgOrders) Claim(ctx context.Context, id string, performerID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE orders SET status = $1, performer_id = $2, updated_at = now()
WHERE id = $3 AND status = $4`,
		StatusInProgress, performerID, id, StatusNew)
	if err != nil {
		return false, fmt.Errorf("claim order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim order: rows affected: %w", err)
	}
	return n == 1, nil
}

// Complete transitions the order to completed, scoped on the caller still
// being the assigned performer of an in-progress claim.
func (s *pgOrders) Complete(ctx context.Context, id string, performerID int64) (Order, error) {
	var o Order
	err := s.db.GetContext(ctx, &o, `
UPDATE orders SET status = $1, updated_at = now()
WHERE id = $2 AND performer_id = $3 AND status = $4
RETURNING `+orderColumns,
		StatusCompleted, id, performerID, StatusInProgress)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("complete order: %w", err)
	}
	return o, nil
}

func (s *pgOrders) updateField(ctx context.Context, id, column string, value any) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE orders SET %s = $1, updated_at = now() WHERE id = $2`, column),
		value, id)
	if err != nil {
		return fmt.Errorf("update order %s: %w", column, err)
	}
	return nil
}

// SetPhotoDoor stores the at-door photo reference.
func (s *pgOrders) SetPhotoDoor(ctx context.Context, id, ref string) error {
	return s.updateField(ctx, id, "photo_door", ref)
}

// SetPhotoBin stores the at-bin photo reference.
func (s *pgOrders) SetPhotoBin(ctx context.Context, id, ref string) error {
	return s.updateField(ctx, id, "photo_bin", ref)
}

// SetComment stores the customer's courier comment.
func (s *pgOrders) SetComment(ctx context.Context, id, comment string) error {
	return s.updateField(ctx, id, "comment", comment)
}

// SetRating stores the customer's 1-5 rating.
func (s *pgOrders) SetRating(ctx context.Context, id string, rating int) error {
	return s.updateField(ctx, id, "rating", rating)
}

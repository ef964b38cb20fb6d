package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle status of an order.
type OrderStatus string

const (
	StatusNew        OrderStatus = "new"
	StatusInProgress OrderStatus = "in_progress"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// SizeOption is the derived order volume, computed from the bag count.
type SizeOption string

const (
	SizeOneBag    SizeOption = "one_bag"
	SizeTwoBags   SizeOption = "two_bags"
	SizeThreeBags SizeOption = "three_bags"
)

// TimeOption distinguishes urgent pickups from scheduled ones.
type TimeOption string

const (
	TimeWithinHour TimeOption = "within_hour"
	TimeCustom     TimeOption = "custom"
)

// Bag size tags collected during the bag-selection flow.
const (
	BagSmall  = "small"
	BagMedium = "medium"
	BagLarge  = "large"
)

// Role of a profile.
type Role string

const (
	RoleCustomer  Role = "customer"
	RolePerformer Role = "performer"
)

// NotificationFilter controls which new-order alerts a performer receives.
type NotificationFilter string

const (
	FilterAll    NotificationFilter = "all"
	FilterUrgent NotificationFilter = "urgent"
	FilterLarge  NotificationFilter = "large"
	FilterNone   NotificationFilter = "none"
)

// Bags is an ordered sequence of bag size tags, stored as JSONB.
type Bags []string

// Value implements driver.Valuer.
func (b Bags) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner.
func (b *Bags) Scan(src any) error {
	if src == nil {
		*b = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("bags: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, b)
}

// Draft accumulates partial input collected across conversation turns
// before an order or profile change is committed. It replaces the
// untyped per-user key/value blob with one explicit shape shared by all
// flows; unset fields are omitted from the stored JSON.
type Draft struct {
	City              string   `json:"city,omitempty"`
	Address           string   `json:"address,omitempty"`
	SavedAddress      string   `json:"saved_address,omitempty"`
	Time              string   `json:"time,omitempty"`
	TimeText          string   `json:"time_text,omitempty"`
	Bags              []string `json:"bags,omitempty"`
	BagCount          int      `json:"bag_count,omitempty"`
	Amount            int64    `json:"amount,omitempty"`
	OrderID           string   `json:"order_id,omitempty"`
	CurrentOrderID    string   `json:"current_order_id,omitempty"`
	SupportOrderID    string   `json:"support_order_id,omitempty"`
	ScheduleDays      string   `json:"schedule_days,omitempty"`
	ScheduleTime      string   `json:"schedule_time,omitempty"`
	ScheduleTimeStart string   `json:"schedule_time_start,omitempty"`
}

// Value implements driver.Valuer.
func (d Draft) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *Draft) Scan(src any) error {
	if src == nil {
		*d = Draft{}
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("draft: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, d)
}

// UserState is one row of conversation state per Telegram user.
type UserState struct {
	UserID    int64     `db:"user_id"`
	State     string    `db:"state"`
	Data      Draft     `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Order is a pickup request with its lifecycle fields. Customer identity
// is snapshotted at creation time and never re-fetched.
type Order struct {
	ID          string      `db:"id"`
	UserID      int64       `db:"user_id"`
	Username    *string     `db:"username"`
	FirstName   string      `db:"first_name"`
	LastName    *string     `db:"last_name"`
	Address     string      `db:"address"`
	SizeOption  SizeOption  `db:"size_option"`
	Bags        Bags        `db:"bags"`
	TimeOption  TimeOption  `db:"time_option"`
	CustomTime  *string     `db:"custom_time"`
	Amount      int64       `db:"amount"` // kopecks; floor of 100 rubles enforced before storage
	Status      OrderStatus `db:"status"`
	PerformerID *int64      `db:"performer_id"`
	PhotoDoor   *string     `db:"photo_door"`
	PhotoBin    *string     `db:"photo_bin"`
	Rating      *int        `db:"rating"`
	Comment     *string     `db:"comment"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

// BagCount returns the number of bags on the order, defaulting to one
// for legacy orders without an explicit bag list.
func (o Order) BagCount() int {
	if len(o.Bags) > 0 {
		return len(o.Bags)
	}
	return 1
}

// AmountRub returns the order amount in whole currency units.
func (o Order) AmountRub() decimal.Decimal {
	return decimal.NewFromInt(o.Amount).Div(decimal.NewFromInt(100))
}

// Profile holds per-user role, address, performer matching keys, and
// running balance/rating. Every field is independently upsertable.
type Profile struct {
	UserID             int64           `db:"user_id"`
	Role               *Role           `db:"role"`
	SavedAddress       *string         `db:"saved_address"`
	City               *string         `db:"city"`
	ScheduleDays       *string         `db:"schedule_days"`
	ScheduleTime       *string         `db:"schedule_time"`
	NotificationFilter *string         `db:"notification_filter"`
	EcoPoints          decimal.Decimal `db:"eco_points"`
	AverageRating      decimal.Decimal `db:"average_rating"`
	RatingCount        int             `db:"rating_count"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

// Filter returns the profile's notification filter, defaulting to all.
func (p Profile) Filter() NotificationFilter {
	if p.NotificationFilter == nil || *p.NotificationFilter == "" {
		return FilterAll
	}
	return NotificationFilter(*p.NotificationFilter)
}

// SizeOptionFor maps a bag count to the derived size option.
func SizeOptionFor(count int) SizeOption {
	switch {
	case count <= 1:
		return SizeOneBag
	case count == 2:
		return SizeTwoBags
	default:
		return SizeThreeBags
	}
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory store implementations with the same semantics as the
// Postgres ones, used by unit tests and local development.

type memUserStates struct {
	mu   sync.RWMutex
	rows map[int64]UserState
}

// NewMemoryUserStates constructs an in-memory UserStates implementation.
func NewMemoryUserStates() UserStates {
	return &memUserStates{rows: make(map[int64]UserState)}
}

func (m *memUserStates) Get(_ context.Context, userID int64) (UserState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if us, ok := m.rows[userID]; ok {
		return us, nil
	}
	us := UserState{UserID: userID, State: StateStart, Data: Draft{}, UpdatedAt: time.Now()}
	m.rows[userID] = us
	return us, nil
}

func (m *memUserStates) Set(_ context.Context, userID int64, state string, data *Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	us := m.rows[userID]
	us.UserID = userID
	us.State = state
	if data != nil {
		us.Data = *data
	}
	us.UpdatedAt = time.Now()
	m.rows[userID] = us
	return nil
}

type memOrders struct {
	mu   sync.Mutex
	rows map[string]Order
}

// NewMemoryOrders constructs an in-memory Orders implementation.
func NewMemoryOrders() Orders {
	return &memOrders{rows: make(map[string]Order)}
}

func (m *memOrders) Create(_ context.Context, o Order) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusNew
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	m.rows[o.ID] = o
	return o, nil
}

func (m *memOrders) Get(_ context.Context, id string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (m *memOrders) ListNew(_ context.Context, limit int) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.rows {
		if o.Status == StatusNew {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrders) ListByPerformer(_ context.Context, performerID int64, status OrderStatus, limit int) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.rows {
		if o.Status == status && o.PerformerID != nil && *o.PerformerID == performerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrders) Claim(_ context.Context, id string, performerID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok || o.Status != StatusNew {
		return false, nil
	}
	o.Status = StatusInProgress
	o.PerformerID = &performerID
	o.UpdatedAt = time.Now()
	m.rows[id] = o
	return true, nil
}

func (m *memOrders) Complete(_ context.Context, id string, performerID int64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok || o.Status != StatusInProgress || o.PerformerID == nil || *o.PerformerID != performerID {
		return Order{}, ErrNotFound
	}
	o.Status = StatusCompleted
	o.UpdatedAt = time.Now()
	m.rows[id] = o
	return o, nil
}

func (m *memOrders) update(id string, fn func(*Order)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	fn(&o)
	o.UpdatedAt = time.Now()
	m.rows[id] = o
	return nil
}

func (m *memOrders) SetPhotoDoor(_ context.Context, id, ref string) error {
	return m.update(id, func(o *Order) { o.PhotoDoor = &ref })
}

func (m *memOrders) SetPhotoBin(_ context.Context, id, ref string) error {
	return m.update(id, func(o *Order) { o.PhotoBin = &ref })
}

func (m *memOrders) SetComment(_ context.Context, id, comment string) error {
	return m.update(id, func(o *Order) { o.Comment = &comment })
}

func (m *memOrders) SetRating(_ context.Context, id string, rating int) error {
	return m.update(id, func(o *Order) { o.Rating = &rating })
}

type memProfiles struct {
	mu   sync.Mutex
	rows map[int64]Profile
}

// NewMemoryProfiles constructs an in-memory Profiles implementation.
func NewMemoryProfiles() Profiles {
	return &memProfiles{rows: make(map[int64]Profile)}
}

func (m *memProfiles) Get(_ context.Context, userID int64) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) upsert(userID int64, fn func(*Profile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok {
		p = Profile{UserID: userID}
	}
	fn(&p)
	p.UpdatedAt = time.Now()
	m.rows[userID] = p
	return nil
}

func (m *memProfiles) SetRole(_ context.Context, userID int64, role Role) error {
	return m.upsert(userID, func(p *Profile) { p.Role = &role })
}

func (m *memProfiles) SetSavedAddress(_ context.Context, userID int64, address string) error {
	return m.upsert(userID, func(p *Profile) { p.SavedAddress = &address })
}

func (m *memProfiles) SetCity(_ context.Context, userID int64, city string) error {
	return m.upsert(userID, func(p *Profile) { p.City = &city })
}

func (m *memProfiles) SetSchedule(_ context.Context, userID int64, days, timeRange string, filter NotificationFilter) error {
	return m.upsert(userID, func(p *Profile) {
		if days != "" {
			p.ScheduleDays = &days
		} else {
			p.ScheduleDays = nil
		}
		if timeRange != "" {
			p.ScheduleTime = &timeRange
		} else {
			p.ScheduleTime = nil
		}
		f := string(filter)
		p.NotificationFilter = &f
	})
}

func (m *memProfiles) AddEcoPoints(_ context.Context, userID int64, amount decimal.Decimal) error {
	return m.upsert(userID, func(p *Profile) { p.EcoPoints = p.EcoPoints.Add(amount) })
}

func (m *memProfiles) ApplyRating(_ context.Context, userID int64, rating int) error {
	return m.upsert(userID, func(p *Profile) {
		count := decimal.NewFromInt(int64(p.RatingCount))
		sum := p.AverageRating.Mul(count).Add(decimal.NewFromInt(int64(rating)))
		p.RatingCount++
		p.AverageRating = sum.Div(decimal.NewFromInt(int64(p.RatingCount))).Round(2)
	})
}

func (m *memProfiles) ListPerformers(_ context.Context) ([]Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Profile
	for _, p := range m.rows {
		if p.Role != nil && *p.Role == RolePerformer && p.City != nil && *p.City != "" {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type memSettings struct {
	mu   sync.RWMutex
	rows map[string]string
}

// NewMemorySettings constructs an in-memory Settings implementation.
func NewMemorySettings() Settings {
	return &memSettings{rows: make(map[string]string)}
}

func (m *memSettings) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.rows[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memSettings) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key] = value
	return nil
}

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStatesDefaultRow(t *testing.T) {
	s := NewMemoryUserStates()
	us, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StateStart, us.State)
	assert.Equal(t, Draft{}, us.Data)
}

func TestUserStatesNilDataPreservesDraft(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStates()

	require.NoError(t, s.Set(ctx, 1, "awaiting_address", &Draft{City: "Москва"}))
	require.NoError(t, s.Set(ctx, 1, "ask_save_address", nil))

	us, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ask_save_address", us.State)
	assert.Equal(t, "Москва", us.Data.City)

	require.NoError(t, s.Set(ctx, 1, "awaiting_city", &Draft{}))
	us, err = s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Draft{}, us.Data)
}

func TestClaimConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders()
	o, err := orders.Create(ctx, Order{UserID: 1, FirstName: "C", Address: "a", Amount: 10000})
	require.NoError(t, err)

	const performers = 8
	wins := make([]bool, performers)
	var wg sync.WaitGroup
	for i := 0; i < performers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			won, err := orders.Claim(ctx, o.ID, int64(100+i))
			assert.NoError(t, err)
			wins[i] = won
		}(i)
	}
	wg.Wait()

	var winners int
	for _, w := range wins {
		if w {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	claimed, err := orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, claimed.Status)
	require.NotNil(t, claimed.PerformerID)
}

func TestClaimRechecksCurrentStatus(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders()
	o, err := orders.Create(ctx, Order{UserID: 1, FirstName: "C", Address: "a", Amount: 10000})
	require.NoError(t, err)

	won, err := orders.Claim(ctx, o.ID, 100)
	require.NoError(t, err)
	require.True(t, won)

	// An already-claimed order cannot be claimed again, even by the owner.
	won, err = orders.Claim(ctx, o.ID, 100)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestCompleteScopedByPerformer(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders()
	o, err := orders.Create(ctx, Order{UserID: 1, FirstName: "C", Address: "a", Amount: 10000})
	require.NoError(t, err)

	_, err = orders.Complete(ctx, o.ID, 100)
	assert.ErrorIs(t, err, ErrNotFound, "completing an unclaimed order")

	won, err := orders.Claim(ctx, o.ID, 100)
	require.NoError(t, err)
	require.True(t, won)

	_, err = orders.Complete(ctx, o.ID, 200)
	assert.ErrorIs(t, err, ErrNotFound, "completing another performer's claim")

	done, err := orders.Complete(ctx, o.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
}

func TestProfilePartialUpsertKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	profiles := NewMemoryProfiles()

	require.NoError(t, profiles.SetRole(ctx, 1, RolePerformer))
	require.NoError(t, profiles.SetCity(ctx, 1, "Москва"))
	require.NoError(t, profiles.SetSavedAddress(ctx, 1, "ул. Ленина, 1"))

	p, err := profiles.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p.Role)
	require.NotNil(t, p.City)
	require.NotNil(t, p.SavedAddress)
	assert.Equal(t, RolePerformer, *p.Role)
	assert.Equal(t, "Москва", *p.City)
}

func TestApplyRatingRunningAverage(t *testing.T) {
	ctx := context.Background()
	profiles := NewMemoryProfiles()

	require.NoError(t, profiles.ApplyRating(ctx, 1, 4))
	p, err := profiles.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "4.00", p.AverageRating.StringFixed(2))
	assert.Equal(t, 1, p.RatingCount)

	require.NoError(t, profiles.ApplyRating(ctx, 1, 5))
	p, err = profiles.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "4.50", p.AverageRating.StringFixed(2))
	assert.Equal(t, 2, p.RatingCount)
}

func TestSizeOptionFor(t *testing.T) {
	assert.Equal(t, SizeOneBag, SizeOptionFor(0))
	assert.Equal(t, SizeOneBag, SizeOptionFor(1))
	assert.Equal(t, SizeTwoBags, SizeOptionFor(2))
	assert.Equal(t, SizeThreeBags, SizeOptionFor(3))
}

func TestProfileFilterDefaultsToAll(t *testing.T) {
	assert.Equal(t, FilterAll, Profile{}.Filter())
	f := string(FilterUrgent)
	assert.Equal(t, FilterUrgent, Profile{NotificationFilter: &f}.Filter())
}

func TestListNewOldestFirst(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders()
	first, err := orders.Create(ctx, Order{UserID: 1, FirstName: "C", Address: "a", Amount: 10000})
	require.NoError(t, err)
	_, err = orders.Create(ctx, Order{UserID: 2, FirstName: "C", Address: "b", Amount: 10000})
	require.NoError(t, err)

	list, err := orders.ListNew(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)

	list, err = orders.ListNew(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

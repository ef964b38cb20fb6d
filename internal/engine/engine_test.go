package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/trashbot/internal/fanout"
	"github.com/m3rciful/trashbot/internal/menu"
	"github.com/m3rciful/trashbot/internal/metrics"
	"github.com/m3rciful/trashbot/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Stores) {
	t.Helper()
	stores := &store.Stores{
		UserStates: store.NewMemoryUserStates(),
		Orders:     store.NewMemoryOrders(),
		Profiles:   store.NewMemoryProfiles(),
		Settings:   store.NewMemorySettings(),
	}
	return New(stores, fanout.New(stores.Profiles), metrics.Registry("test")), stores
}

func btn(userID int64, token string) Event {
	return Event{UserID: userID, ChatID: userID, Kind: KindButton, Token: token,
		From: Identity{FirstName: "Test"}}
}

func txt(userID int64, text string) Event {
	return Event{UserID: userID, ChatID: userID, Kind: KindText, Text: text,
		From: Identity{FirstName: "Test"}}
}

func photo(userID int64, ref string) Event {
	return Event{UserID: userID, ChatID: userID, Kind: KindPhoto, PhotoRef: ref,
		From: Identity{FirstName: "Test"}}
}

func mustHandle(t *testing.T, e *Engine, ev Event) []Action {
	t.Helper()
	acts, err := e.Handle(context.Background(), ev)
	require.NoError(t, err)
	return acts
}

func userState(t *testing.T, s *store.Stores, userID int64) store.UserState {
	t.Helper()
	us, err := s.UserStates.Get(context.Background(), userID)
	require.NoError(t, err)
	return us
}

// walkToBags drives a fresh customer up to the bag-selection prompt.
func walkToBags(t *testing.T, e *Engine, userID int64) {
	t.Helper()
	mustHandle(t, e, txt(userID, "/start"))
	mustHandle(t, e, btn(userID, menu.TokenRoleCustomer))
	mustHandle(t, e, btn(userID, menu.TokenStartOrderYes))
	mustHandle(t, e, txt(userID, "Москва"))
	mustHandle(t, e, txt(userID, "ул. Ленина, д. 5, кв. 1"))
	mustHandle(t, e, btn(userID, menu.TokenSaveAddressNo))
	mustHandle(t, e, btn(userID, menu.TokenTimeChoiceUrgent))
}

func TestCustomerOrderFlowTwoBags(t *testing.T) {
	e, stores := newTestEngine(t)
	ctx := context.Background()

	walkToBags(t, e, 1)
	mustHandle(t, e, btn(1, menu.TokenBag2))
	assert.Equal(t, StateAwaitingMultiBag, userState(t, stores, 1).State)

	mustHandle(t, e, btn(1, menu.TokenBagSizeSmall))
	assert.Equal(t, StateAwaitingMultiBag, userState(t, stores, 1).State)
	mustHandle(t, e, btn(1, menu.TokenBagSizeLarge))
	assert.Equal(t, StateAwaitingPayment, userState(t, stores, 1).State)

	mustHandle(t, e, btn(1, menu.TokenPaymentCustom))
	mustHandle(t, e, txt(1, "150 руб"))
	mustHandle(t, e, btn(1, menu.TokenPayNow))

	orders, err := stores.Orders.ListNew(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, store.Bags{store.BagSmall, store.BagLarge}, o.Bags)
	assert.Equal(t, store.SizeTwoBags, o.SizeOption)
	assert.Equal(t, int64(15000), o.Amount)
	assert.Equal(t, store.TimeWithinHour, o.TimeOption)
	assert.Contains(t, o.Address, "Москва")
	assert.Equal(t, StateAwaitingCommentOpt, userState(t, stores, 1).State)
}

func TestThreeBagsRequireThreeSizes(t *testing.T) {
	e, stores := newTestEngine(t)

	walkToBags(t, e, 1)
	mustHandle(t, e, btn(1, menu.TokenBag3))
	mustHandle(t, e, btn(1, menu.TokenBagSizeSmall))
	mustHandle(t, e, btn(1, menu.TokenBagSizeMedium))
	assert.Equal(t, StateAwaitingMultiBag, userState(t, stores, 1).State)

	mustHandle(t, e, btn(1, menu.TokenBagSizeLarge))
	us := userState(t, stores, 1)
	assert.Equal(t, StateAwaitingPayment, us.State)
	assert.Equal(t, []string{store.BagSmall, store.BagMedium, store.BagLarge}, us.Data.Bags)
}

func TestCustomAmountValidation(t *testing.T) {
	e, stores := newTestEngine(t)

	walkToBags(t, e, 1)
	mustHandle(t, e, btn(1, menu.TokenBag1Small))
	mustHandle(t, e, btn(1, menu.TokenPaymentCustom))
	require.Equal(t, StateAwaitingAmount, userState(t, stores, 1).State)

	mustHandle(t, e, txt(1, "abc"))
	assert.Equal(t, StateAwaitingAmount, userState(t, stores, 1).State)

	mustHandle(t, e, txt(1, "50"))
	assert.Equal(t, StateAwaitingAmount, userState(t, stores, 1).State)

	mustHandle(t, e, txt(1, "150 руб"))
	us := userState(t, stores, 1)
	assert.Equal(t, StateAwaitingPayment, us.State)
	assert.Equal(t, int64(150), us.Data.Amount)
}

func TestPayBelowMinimumDoesNotCreateOrder(t *testing.T) {
	e, stores := newTestEngine(t)

	walkToBags(t, e, 1)
	mustHandle(t, e, btn(1, menu.TokenBag1Small))
	mustHandle(t, e, btn(1, menu.TokenPayNow))

	orders, err := stores.Orders.ListNew(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func createOrder(t *testing.T, s *store.Stores, customerID, amount int64) store.Order {
	t.Helper()
	o, err := s.Orders.Create(context.Background(), store.Order{
		UserID:     customerID,
		FirstName:  "Customer",
		Address:    "Москва, ул. Ленина, 1",
		SizeOption: store.SizeOneBag,
		Bags:       store.Bags{store.BagSmall},
		TimeOption: store.TimeWithinHour,
		Amount:     amount,
	})
	require.NoError(t, err)
	return o
}

func TestClaimRaceHasOneWinner(t *testing.T) {
	e, stores := newTestEngine(t)
	o := createOrder(t, stores, 1, 10000)

	mustHandle(t, e, btn(100, menu.PrefixTake+o.ID))
	acts := mustHandle(t, e, btn(200, menu.PrefixTake+o.ID))

	toast, ok := acts[0].(Toast)
	require.True(t, ok)
	assert.Equal(t, textOrderTaken, toast.Text)

	claimed, err := stores.Orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusInProgress, claimed.Status)
	require.NotNil(t, claimed.PerformerID)
	assert.Equal(t, int64(100), *claimed.PerformerID)
}

func TestCompletionPayout(t *testing.T) {
	e, stores := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		amount   int64
		earnings string
	}{
		{20000, "170.00"}, // commission 30.00
		{10000, "80.00"},  // commission floored at 20.00
	}
	for i, tc := range cases {
		performerID := int64(100 + i)
		o := createOrder(t, stores, 1, tc.amount)
		mustHandle(t, e, btn(performerID, menu.PrefixTake+o.ID))
		mustHandle(t, e, btn(performerID, menu.PrefixFinalConfirm+o.ID))

		p, err := stores.Profiles.Get(ctx, performerID)
		require.NoError(t, err)
		assert.Equal(t, tc.earnings, p.EcoPoints.StringFixed(2))

		done, err := stores.Orders.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, store.StatusCompleted, done.Status)
	}
}

func TestCompletionScopedToClaimingPerformer(t *testing.T) {
	e, stores := newTestEngine(t)
	o := createOrder(t, stores, 1, 10000)

	mustHandle(t, e, btn(100, menu.PrefixTake+o.ID))
	acts := mustHandle(t, e, btn(200, menu.PrefixFinalConfirm+o.ID))

	toast, ok := acts[0].(Toast)
	require.True(t, ok)
	assert.Equal(t, textOrderUnavailable, toast.Text)

	current, err := stores.Orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusInProgress, current.Status)
}

func TestRatingUpdatesRunningAverage(t *testing.T) {
	e, stores := newTestEngine(t)
	ctx := context.Background()
	performerID := int64(100)

	for i, rating := range []int{4, 5} {
		o := createOrder(t, stores, 1, 10000)
		mustHandle(t, e, btn(performerID, menu.PrefixTake+o.ID))
		mustHandle(t, e, btn(performerID, menu.PrefixFinalConfirm+o.ID))
		mustHandle(t, e, btn(1, fmt.Sprintf("%s%s_%d", menu.PrefixRate, o.ID, rating)))

		p, err := stores.Profiles.Get(ctx, performerID)
		require.NoError(t, err)
		assert.Equal(t, i+1, p.RatingCount)
	}

	p, err := stores.Profiles.Get(ctx, performerID)
	require.NoError(t, err)
	assert.Equal(t, "4.50", p.AverageRating.StringFixed(2))
}

func TestHandoverAdvancesPerformerState(t *testing.T) {
	e, stores := newTestEngine(t)
	customerID, performerID := int64(1), int64(100)
	o := createOrder(t, stores, customerID, 10000)

	mustHandle(t, e, btn(performerID, menu.PrefixTake+o.ID))
	acts := mustHandle(t, e, btn(performerID, menu.PrefixHandedOver+o.ID))

	var toCustomer bool
	for _, a := range acts {
		if st, ok := a.(SendText); ok && st.ChatID == customerID && st.Markup != nil {
			toCustomer = true
		}
	}
	assert.True(t, toCustomer, "customer should receive a confirmation request")
	assert.Equal(t, StateAwaitingHandover, userState(t, stores, performerID).State)

	mustHandle(t, e, btn(customerID, menu.PrefixConfirmHandover+o.ID))
	assert.Equal(t, StateAwaitingPhotoBin, userState(t, stores, performerID).State)

	mustHandle(t, e, photo(performerID, "photo-ref-1"))
	assert.Equal(t, StateReadyToComplete, userState(t, stores, performerID).State)

	stored, err := stores.Orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PhotoBin)
	assert.Equal(t, "photo-ref-1", *stored.PhotoBin)
	assert.Nil(t, stored.PhotoDoor)
}

func TestPhotoPathStoresBothReferences(t *testing.T) {
	e, stores := newTestEngine(t)
	performerID := int64(100)
	o := createOrder(t, stores, 1, 10000)

	mustHandle(t, e, btn(performerID, menu.PrefixTake+o.ID))
	mustHandle(t, e, btn(performerID, menu.PrefixPhotoAtDoor+o.ID))
	mustHandle(t, e, photo(performerID, "door-ref"))
	assert.Equal(t, StateAwaitingPhotoBin, userState(t, stores, performerID).State)

	mustHandle(t, e, photo(performerID, "bin-ref"))
	assert.Equal(t, StateReadyToComplete, userState(t, stores, performerID).State)

	stored, err := stores.Orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PhotoDoor)
	require.NotNil(t, stored.PhotoBin)
	assert.Equal(t, "door-ref", *stored.PhotoDoor)
	assert.Equal(t, "bin-ref", *stored.PhotoBin)
}

func TestBackFromTimeSlotReturnsToTimeChoice(t *testing.T) {
	e, stores := newTestEngine(t)

	mustHandle(t, e, txt(1, "/start"))
	mustHandle(t, e, btn(1, menu.TokenRoleCustomer))
	mustHandle(t, e, btn(1, menu.TokenStartOrderYes))
	mustHandle(t, e, txt(1, "Москва"))
	mustHandle(t, e, txt(1, "ул. Ленина, д. 5, кв. 1"))
	mustHandle(t, e, btn(1, menu.TokenSaveAddressNo))
	mustHandle(t, e, btn(1, menu.TokenTimeChoiceSelect))
	require.Equal(t, StateAwaitingTimeSlot, userState(t, stores, 1).State)

	mustHandle(t, e, btn(1, menu.TokenGoBack))
	assert.Equal(t, StateAwaitingTimeChoice, userState(t, stores, 1).State)
}

func TestBackNavigationAlwaysTerminates(t *testing.T) {
	for state := range backTable {
		steps := 0
		current := state
		for current != StateAwaitingRole {
			current = backTarget(current)
			steps++
			require.LessOrEqual(t, steps, len(backTable)+1,
				"back chain from %s did not terminate", state)
		}
	}
	assert.Equal(t, StateAwaitingRole, backTarget("some_unknown_state"))
}

func TestBackIntoBagSelectionDropsCollectedSizes(t *testing.T) {
	e, stores := newTestEngine(t)

	walkToBags(t, e, 1)
	mustHandle(t, e, btn(1, menu.TokenBag3))
	mustHandle(t, e, btn(1, menu.TokenBagSizeSmall))
	mustHandle(t, e, btn(1, menu.TokenGoBack))

	us := userState(t, stores, 1)
	assert.Equal(t, StateAwaitingBags, us.State)
	assert.Empty(t, us.Data.Bags)
	assert.Zero(t, us.Data.BagCount)
}

func TestGoHomeResetsDraft(t *testing.T) {
	e, stores := newTestEngine(t)

	walkToBags(t, e, 1)
	mustHandle(t, e, btn(1, menu.TokenBag1Large))
	mustHandle(t, e, btn(1, menu.TokenGoHome))

	us := userState(t, stores, 1)
	assert.Equal(t, StateAwaitingRole, us.State)
	assert.Equal(t, store.Draft{}, us.Data)
}

func TestSavedAddressShortcut(t *testing.T) {
	e, stores := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, stores.Profiles.SetSavedAddress(ctx, 1, "Москва, ул. Ленина, 1"))

	mustHandle(t, e, txt(1, "/start"))
	mustHandle(t, e, btn(1, menu.TokenRoleCustomer))
	mustHandle(t, e, btn(1, menu.TokenStartOrderYes))
	require.Equal(t, StateChooseAddressOption, userState(t, stores, 1).State)

	mustHandle(t, e, btn(1, menu.TokenUseSavedAddress))
	us := userState(t, stores, 1)
	assert.Equal(t, StateAwaitingTimeChoice, us.State)
	assert.Equal(t, "Москва, ул. Ленина, 1", us.Data.Address)
}

func TestFanoutNotifiesMatchingPerformerOnOrder(t *testing.T) {
	e, stores := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, stores.Profiles.SetRole(ctx, 100, store.RolePerformer))
	require.NoError(t, stores.Profiles.SetCity(ctx, 100, "Москва"))

	walkToBags(t, e, 1)
	mustHandle(t, e, btn(1, menu.TokenBag1Small))
	mustHandle(t, e, btn(1, menu.TokenPaymentMin))
	acts := mustHandle(t, e, btn(1, menu.TokenPayNow))

	var alerted bool
	for _, a := range acts {
		if st, ok := a.(SendText); ok && st.ChatID == 100 {
			alerted = true
		}
	}
	assert.True(t, alerted, "matching performer should be alerted")
}

func TestAdminIDCommandStoresChat(t *testing.T) {
	e, stores := newTestEngine(t)

	mustHandle(t, e, Event{UserID: 7, ChatID: -100500, Kind: KindText, Text: "/adminid"})

	v, err := stores.Settings.Get(context.Background(), store.AdminChatKey)
	require.NoError(t, err)
	assert.Equal(t, "-100500", v)
}

func TestProviderCityRequiredOnFirstEntry(t *testing.T) {
	e, stores := newTestEngine(t)

	mustHandle(t, e, txt(100, "/start"))
	mustHandle(t, e, btn(100, menu.TokenRolePerformer))
	require.Equal(t, StateAwaitingProviderCity, userState(t, stores, 100).State)

	mustHandle(t, e, txt(100, "Казань"))
	assert.Equal(t, StateStart, userState(t, stores, 100).State)

	p, err := stores.Profiles.Get(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, p.City)
	assert.Equal(t, "Казань", *p.City)

	// Second entry goes straight to the menu.
	mustHandle(t, e, btn(100, menu.TokenRolePerformer))
	assert.Equal(t, StateStart, userState(t, stores, 100).State)
}

func TestScheduleWizardPersistsProfile(t *testing.T) {
	e, stores := newTestEngine(t)

	mustHandle(t, e, btn(100, menu.TokenRolePerformer))
	mustHandle(t, e, txt(100, "Казань"))
	mustHandle(t, e, btn(100, menu.TokenProviderSchedule))
	mustHandle(t, e, btn(100, menu.TokenScheduleCustom))
	mustHandle(t, e, btn(100, menu.TokenDaysWeekdays))
	mustHandle(t, e, btn(100, menu.TokenTime918))
	mustHandle(t, e, btn(100, menu.TokenFilterUrgent))

	p, err := stores.Profiles.Get(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, p.ScheduleDays)
	require.NotNil(t, p.ScheduleTime)
	assert.Equal(t, "Будни (пн–пт)", *p.ScheduleDays)
	assert.Equal(t, "09:00–18:00", *p.ScheduleTime)
	assert.Equal(t, store.FilterUrgent, p.Filter())
}

func TestSupportMessageRelayedToAdmin(t *testing.T) {
	e, stores := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, stores.Settings.Set(ctx, store.AdminChatKey, "-42"))

	o := createOrder(t, stores, 1, 10000)
	mustHandle(t, e, btn(1, menu.PrefixSupport+o.ID))
	require.Equal(t, StateAwaitingSupportMsg, userState(t, stores, 1).State)

	acts := mustHandle(t, e, txt(1, "не забрали мусор"))
	var relayed bool
	for _, a := range acts {
		if st, ok := a.(SendText); ok && st.ChatID == -42 {
			relayed = true
			assert.Contains(t, st.Text, "не забрали мусор")
			assert.Contains(t, st.Text, o.ID)
		}
	}
	assert.True(t, relayed, "support message should reach the admin chat")
	assert.Equal(t, StateStart, userState(t, stores, 1).State)
}

func TestOrderLifecycleCounters(t *testing.T) {
	e, stores := newTestEngine(t)
	m := metrics.Registry("test")

	created := testutil.ToFloat64(m.OrdersCreated)
	claimed := testutil.ToFloat64(m.OrdersClaimed)
	completed := testutil.ToFloat64(m.OrdersCompleted)

	walkToBags(t, e, 1)
	mustHandle(t, e, btn(1, menu.TokenBag1Small))
	mustHandle(t, e, btn(1, menu.TokenPaymentMin))
	mustHandle(t, e, btn(1, menu.TokenPayNow))
	assert.Equal(t, created+1, testutil.ToFloat64(m.OrdersCreated))

	orders, err := stores.Orders.ListNew(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	orderID := orders[0].ID

	mustHandle(t, e, btn(100, menu.PrefixTake+orderID))
	assert.Equal(t, claimed+1, testutil.ToFloat64(m.OrdersClaimed))

	// A losing claim attempt must not count.
	mustHandle(t, e, btn(200, menu.PrefixTake+orderID))
	assert.Equal(t, claimed+1, testutil.ToFloat64(m.OrdersClaimed))

	mustHandle(t, e, btn(100, menu.PrefixFinalConfirm+orderID))
	assert.Equal(t, completed+1, testutil.ToFloat64(m.OrdersCompleted))
}

func TestSeedAdminChat(t *testing.T) {
	ctx := context.Background()
	settings := store.NewMemorySettings()

	require.NoError(t, SeedAdminChat(ctx, settings, 0))
	_, err := settings.Get(ctx, store.AdminChatKey)
	assert.ErrorIs(t, err, store.ErrNotFound, "zero id must not seed")

	require.NoError(t, SeedAdminChat(ctx, settings, -42))
	v, err := settings.Get(ctx, store.AdminChatKey)
	require.NoError(t, err)
	assert.Equal(t, "-42", v)

	// An already-configured target is kept.
	require.NoError(t, SeedAdminChat(ctx, settings, -99))
	v, err = settings.Get(ctx, store.AdminChatKey)
	require.NoError(t, err)
	assert.Equal(t, "-42", v)
}

func TestCheckOrderOffersRatingOnce(t *testing.T) {
	e, stores := newTestEngine(t)
	performerID := int64(100)
	o := createOrder(t, stores, 1, 10000)
	mustHandle(t, e, btn(performerID, menu.PrefixTake+o.ID))
	mustHandle(t, e, btn(performerID, menu.PrefixPhotoAtDoor+o.ID))
	mustHandle(t, e, photo(performerID, "door-ref"))
	mustHandle(t, e, photo(performerID, "bin-ref"))
	mustHandle(t, e, btn(performerID, menu.PrefixFinalConfirm+o.ID))

	acts := mustHandle(t, e, btn(1, menu.PrefixCheckOrder+o.ID))
	var photos int
	var ratingOffered bool
	for _, a := range acts {
		switch v := a.(type) {
		case SendPhoto:
			photos++
		case SendText:
			if v.Markup != nil && len(v.Markup.Rows) == 5 {
				ratingOffered = true
			}
		}
	}
	assert.Equal(t, 2, photos)
	assert.True(t, ratingOffered, "unrated order should offer rating stars")

	mustHandle(t, e, btn(1, fmt.Sprintf("%s%s_%d", menu.PrefixRate, o.ID, 5)))
	acts = mustHandle(t, e, btn(1, menu.PrefixCheckOrder+o.ID))
	ratingOffered = false
	for _, a := range acts {
		if v, ok := a.(SendText); ok && v.Markup != nil && len(v.Markup.Rows) == 5 {
			ratingOffered = true
		}
	}
	assert.False(t, ratingOffered, "rated order should not offer stars again")
}

package fanout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/trashbot/internal/store"
)

func newPerformer(t *testing.T, profiles store.Profiles, userID int64, city string, filter store.NotificationFilter) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, profiles.SetRole(ctx, userID, store.RolePerformer))
	require.NoError(t, profiles.SetCity(ctx, userID, city))
	require.NoError(t, profiles.SetSchedule(ctx, userID, "", "", filter))
}

func TestAlertsCityAndUrgencyFilter(t *testing.T) {
	ctx := context.Background()
	profiles := store.NewMemoryProfiles()
	newPerformer(t, profiles, 10, "Москва", store.FilterUrgent)

	f := New(profiles)

	urgent := store.Order{
		ID:         "o1",
		Address:    "г. Москва, ул. Ленина",
		TimeOption: store.TimeWithinHour,
		Bags:       store.Bags{store.BagSmall},
		Amount:     10000,
	}
	alerts, err := f.Alerts(ctx, urgent)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, int64(10), alerts[0].UserID)
	assert.Contains(t, alerts[0].Text, "г. Москва, ул. Ленина")

	slot := "Завтра 10:00–12:00"
	scheduled := urgent
	scheduled.ID = "o2"
	scheduled.TimeOption = store.TimeCustom
	scheduled.CustomTime = &slot
	alerts, err = f.Alerts(ctx, scheduled)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAlertsCityMismatchSkipped(t *testing.T) {
	ctx := context.Background()
	profiles := store.NewMemoryProfiles()
	newPerformer(t, profiles, 10, "Казань", store.FilterAll)

	f := New(profiles)
	alerts, err := f.Alerts(ctx, store.Order{
		ID:         "o1",
		Address:    "г. Москва, ул. Ленина",
		TimeOption: store.TimeWithinHour,
		Amount:     10000,
	})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAlertsLargeFilterRequiresTwoBags(t *testing.T) {
	ctx := context.Background()
	profiles := store.NewMemoryProfiles()
	newPerformer(t, profiles, 10, "Москва", store.FilterLarge)

	f := New(profiles)

	small := store.Order{
		ID:         "o1",
		Address:    "Москва, Тверская 1",
		TimeOption: store.TimeWithinHour,
		Bags:       store.Bags{store.BagLarge},
		Amount:     10000,
	}
	alerts, err := f.Alerts(ctx, small)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	big := small
	big.ID = "o2"
	big.Bags = store.Bags{store.BagSmall, store.BagMedium}
	alerts, err = f.Alerts(ctx, big)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
}

func TestAlertsNoneFilterAlwaysSkipped(t *testing.T) {
	ctx := context.Background()
	profiles := store.NewMemoryProfiles()
	newPerformer(t, profiles, 10, "Москва", store.FilterNone)

	f := New(profiles)
	alerts, err := f.Alerts(ctx, store.Order{
		ID:         "o1",
		Address:    "Москва, Тверская 1",
		TimeOption: store.TimeWithinHour,
		Bags:       store.Bags{store.BagSmall, store.BagMedium, store.BagLarge},
		Amount:     30000,
	})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

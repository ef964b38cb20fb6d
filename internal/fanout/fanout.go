// Package fanout selects the performers eligible for a new-order alert
// and renders the alert for each. It does not send anything itself; the
// engine turns the returned alerts into outbound actions.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/trashbot/internal/logger"
	"github.com/m3rciful/trashbot/internal/menu"
	"github.com/m3rciful/trashbot/internal/store"
)

// Alert is one rendered notification addressed to a performer.
type Alert struct {
	UserID int64
	Text   string
	Markup *menu.Markup
}

// Fanout matches new orders against performer profiles.
type Fanout struct {
	profiles store.Profiles
	log      *slog.Logger
}

// New constructs a Fanout over the given profile store.
func New(profiles store.Profiles) *Fanout {
	return &Fanout{profiles: profiles, log: logger.FAN}
}

// Alerts returns one alert per eligible performer for the order.
//
// Eligibility: the profile's city must appear in the order address as a
// case-insensitive substring, and the profile's notification filter must
// admit the order (none never matches, urgent requires an urgent pickup,
// large requires at least two bags). Schedule windows are not checked yet.
// TODO: filter by schedule_days/schedule_time once both are normalized.
func (f *Fanout) Alerts(ctx context.Context, o store.Order) ([]Alert, error) {
	performers, err := f.profiles.ListPerformers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fanout: list performers: %w", err)
	}

	address := strings.ToLower(o.Address)
	text := alertText(o)

	var alerts []Alert
	for _, p := range performers {
		if p.City == nil || *p.City == "" {
			continue
		}
		if !strings.Contains(address, strings.ToLower(*p.City)) {
			continue
		}
		if !filterAdmits(p.Filter(), o) {
			continue
		}
		alerts = append(alerts, Alert{
			UserID: p.UserID,
			Text:   text,
			Markup: menu.NewOrderAlert(),
		})
	}

	f.log.Debug("matched performers for order",
		slog.String("order_id", o.ID),
		slog.Int("candidates", len(performers)),
		slog.Int("matched", len(alerts)))
	return alerts, nil
}

func filterAdmits(filter store.NotificationFilter, o store.Order) bool {
	switch filter {
	case store.FilterNone:
		return false
	case store.FilterUrgent:
		return o.TimeOption == store.TimeWithinHour
	case store.FilterLarge:
		return o.BagCount() >= 2
	default:
		return true
	}
}

func alertText(o store.Order) string {
	when := "Срочно (в течение часа)"
	if o.TimeOption == store.TimeCustom && o.CustomTime != nil {
		when = *o.CustomTime
	}
	return fmt.Sprintf(
		"🆕 Новый заказ!\n\n📍 Адрес: %s\n🗑 Пакетов: %d\n⏰ Время: %s\n💰 Оплата: %s ₽",
		o.Address, o.BagCount(), when, o.AmountRub().StringFixed(2))
}

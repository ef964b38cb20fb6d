package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/trashbot/internal/menu"
	"github.com/m3rciful/trashbot/internal/store"
)

const newOrdersLimit = 10

var commissionRate = decimal.RequireFromString("0.15")
var commissionFloor = decimal.NewFromInt(20)

// commissionFor computes the service commission on an order amount in
// whole currency units: 15 percent with a floor of 20.
func commissionFor(rub decimal.Decimal) decimal.Decimal {
	c := rub.Mul(commissionRate).Round(2)
	if c.LessThan(commissionFloor) {
		return commissionFloor
	}
	return c
}

// providerToken handles performer-flow tokens.
func (e *Engine) providerToken(ctx context.Context, ev Event, us store.UserState) ([]Action, bool, error) {
	draft := us.Data

	switch ev.Token {
	case menu.TokenRolePerformer:
		acts, err := e.becomePerformer(ctx, ev)
		return acts, true, err

	case menu.TokenProviderMainMenu:
		if err := e.states.Set(ctx, ev.UserID, StateStart, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textProviderMenu, menu.ProviderMain())}, true, nil

	case menu.TokenProviderNewOrders:
		acts, err := e.listNewOrders(ctx, ev)
		return acts, true, err

	case menu.TokenProviderMyOrders:
		return []Action{Toast{}, e.reply(ev, textProviderMenu, menu.MyOrders())}, true, nil

	case menu.TokenProviderCurrentOrders:
		acts, err := e.listCurrentOrders(ctx, ev)
		return acts, true, err

	case menu.TokenProviderCompletedOrders:
		acts, err := e.listCompletedOrders(ctx, ev)
		return acts, true, err

	case menu.TokenProviderWallet:
		acts, err := e.showWallet(ctx, ev)
		return acts, true, err

	case menu.TokenProviderWithdraw:
		return []Action{Toast{}, e.reply(ev, textWithdraw, menu.BackTo(menu.TokenProviderMainMenu))}, true, nil

	case menu.TokenProviderSettings:
		return []Action{Toast{}, e.reply(ev, textSettingsMenu, menu.ProviderSettings())}, true, nil

	case menu.TokenProviderChangeCity:
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingProviderCity, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskProviderCity, menu.BackHomeOnly())}, true, nil

	case menu.TokenProviderSchedule:
		return []Action{Toast{}, e.reply(ev, textScheduleMenu, menu.Schedule())}, true, nil

	case menu.TokenScheduleAlways:
		draft.ScheduleDays = "Каждый день"
		draft.ScheduleTime = "Круглосуточно"
		if err := e.states.Set(ctx, ev.UserID, us.State, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskFilter, menu.NotificationFilters(false))}, true, nil

	case menu.TokenScheduleCustom:
		return []Action{Toast{}, e.reply(ev, textScheduleDays, menu.ScheduleDays())}, true, nil

	case menu.TokenDaysEveryday, menu.TokenDaysWeekdays, menu.TokenDaysWeekend:
		draft.ScheduleDays = map[string]string{
			menu.TokenDaysEveryday: "Каждый день",
			menu.TokenDaysWeekdays: "Будни (пн–пт)",
			menu.TokenDaysWeekend:  "Выходные (сб–вс)",
		}[ev.Token]
		if err := e.states.Set(ctx, ev.UserID, us.State, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textScheduleTime, menu.ScheduleTime())}, true, nil

	case menu.TokenDaysManual:
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingManualDays, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textManualDays, menu.BackHomeOnly())}, true, nil

	case menu.TokenTime918, menu.TokenTime1020:
		draft.ScheduleTime = map[string]string{
			menu.TokenTime918:  "09:00–18:00",
			menu.TokenTime1020: "10:00–20:00",
		}[ev.Token]
		if err := e.states.Set(ctx, ev.UserID, us.State, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskFilter, menu.NotificationFilters(true))}, true, nil

	case menu.TokenTimeCustomInput:
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingTimeStart, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textTimeStart, menu.BackHomeOnly())}, true, nil

	case menu.TokenFilterAll, menu.TokenFilterUrgent, menu.TokenFilterLarge, menu.TokenFilterNone:
		acts, err := e.saveSchedule(ctx, ev, draft)
		return acts, true, err
	}

	if id, ok := strings.CutPrefix(ev.Token, menu.PrefixTake); ok {
		acts, err := e.claimOrder(ctx, ev, id)
		return acts, true, err
	}
	if id, ok := strings.CutPrefix(ev.Token, menu.PrefixRequestPhotos); ok {
		return []Action{Toast{}, e.reply(ev, textCompleteConfirm, menu.PostClaim(id))}, true, nil
	}
	if id, ok := strings.CutPrefix(ev.Token, menu.PrefixPhotoAtDoor); ok {
		draft.CurrentOrderID = id
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingPhotoDoor, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskPhotoDoor, nil)}, true, nil
	}
	if id, ok := strings.CutPrefix(ev.Token, menu.PrefixHandedOver); ok {
		acts, err := e.startHandover(ctx, ev, id)
		return acts, true, err
	}
	if id, ok := strings.CutPrefix(ev.Token, menu.PrefixConfirmHandover); ok {
		acts, err := e.confirmHandover(ctx, ev, id)
		return acts, true, err
	}
	if id, ok := strings.CutPrefix(ev.Token, menu.PrefixDenyHandover); ok {
		acts, err := e.denyHandover(ctx, ev, id)
		return acts, true, err
	}
	if id, ok := strings.CutPrefix(ev.Token, menu.PrefixComplete); ok {
		return []Action{Toast{}, e.reply(ev, textCompleteConfirm, menu.CompleteConfirm(id))}, true, nil
	}
	if id, ok := strings.CutPrefix(ev.Token, menu.PrefixFinalConfirm); ok {
		acts, err := e.completeOrder(ctx, ev, id)
		return acts, true, err
	}

	return nil, false, nil
}

// becomePerformer records the role and asks for a city on first entry.
func (e *Engine) becomePerformer(ctx context.Context, ev Event) ([]Action, error) {
	if err := e.profiles.SetRole(ctx, ev.UserID, store.RolePerformer); err != nil {
		return nil, fmt.Errorf("engine: set role: %w", err)
	}

	profile, err := e.profiles.Get(ctx, ev.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("engine: load profile: %w", err)
	}
	if profile.City == nil || *profile.City == "" {
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingProviderCity, &store.Draft{}); err != nil {
			return nil, err
		}
		return []Action{Toast{}, e.reply(ev, textAskProviderCity, menu.BackHomeOnly())}, nil
	}

	if err := e.states.Set(ctx, ev.UserID, StateStart, &store.Draft{}); err != nil {
		return nil, err
	}
	return []Action{Toast{}, e.reply(ev, textProviderMenu, menu.ProviderMain())}, nil
}

func orderSummary(i int, o store.Order) string {
	when := "Срочно (в течение часа)"
	if o.TimeOption == store.TimeCustom && o.CustomTime != nil {
		when = *o.CustomTime
	}
	s := fmt.Sprintf("📦 Заказ #%d\n📍 %s\n🗑 Пакетов: %d\n⏰ %s\n💰 %s ₽",
		i, o.Address, o.BagCount(), when, o.AmountRub().StringFixed(2))
	if o.Comment != nil && *o.Comment != "" {
		s += "\n💬 " + *o.Comment
	}
	return s
}

func (e *Engine) listNewOrders(ctx context.Context, ev Event) ([]Action, error) {
	orders, err := e.orders.ListNew(ctx, newOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("engine: list new orders: %w", err)
	}
	if len(orders) == 0 {
		return []Action{Toast{}, e.reply(ev, textNoNewOrders, menu.BackTo(menu.TokenProviderMainMenu))}, nil
	}

	var parts []string
	ids := make([]string, 0, len(orders))
	for i, o := range orders {
		parts = append(parts, orderSummary(i+1, o))
		ids = append(ids, o.ID)
	}
	return []Action{Toast{}, e.reply(ev, strings.Join(parts, "\n\n"), menu.TakeOrders(ids))}, nil
}

// claimOrder performs the compare-and-swap take. The loser of a race gets
// a plain "already taken" and the order stays untouched for them.
func (e *Engine) claimOrder(ctx context.Context, ev Event, orderID string) ([]Action, error) {
	won, err := e.orders.Claim(ctx, orderID, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("engine: claim: %w", err)
	}
	if !won {
		return []Action{Toast{Text: textOrderTaken}, e.reply(ev, textProviderMenu, menu.ProviderMain())}, nil
	}
	if e.metrics != nil {
		e.metrics.OrdersClaimed.Inc()
	}

	o, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("engine: load claimed order: %w", err)
	}

	draft := store.Draft{CurrentOrderID: orderID}
	if err := e.states.Set(ctx, ev.UserID, StateProviderWorking, &draft); err != nil {
		return nil, err
	}

	return []Action{
		Toast{},
		e.reply(ev, fmt.Sprintf(textOrderClaimed, orderSummary(1, o)), menu.PostClaim(orderID)),
		SendText{ChatID: o.UserID, Text: textCustomerClaimed},
	}, nil
}

func (e *Engine) listCurrentOrders(ctx context.Context, ev Event) ([]Action, error) {
	orders, err := e.orders.ListByPerformer(ctx, ev.UserID, store.StatusInProgress, newOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("engine: list current orders: %w", err)
	}
	if len(orders) == 0 {
		return []Action{Toast{}, e.reply(ev, textNoCurrentOrders, menu.BackTo(menu.TokenProviderMyOrders))}, nil
	}

	var parts []string
	ids := make([]string, 0, len(orders))
	for i, o := range orders {
		parts = append(parts, orderSummary(i+1, o))
		ids = append(ids, o.ID)
	}
	return []Action{Toast{}, e.reply(ev, strings.Join(parts, "\n\n"), menu.CurrentOrders(ids))}, nil
}

func (e *Engine) listCompletedOrders(ctx context.Context, ev Event) ([]Action, error) {
	orders, err := e.orders.ListByPerformer(ctx, ev.UserID, store.StatusCompleted, newOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("engine: list completed orders: %w", err)
	}
	if len(orders) == 0 {
		return []Action{Toast{}, e.reply(ev, textNoCompletedYet, menu.BackTo(menu.TokenProviderMyOrders))}, nil
	}

	total := decimal.Zero
	var parts []string
	for i, o := range orders {
		rub := o.AmountRub()
		earnings := rub.Sub(commissionFor(rub))
		total = total.Add(earnings)
		parts = append(parts, fmt.Sprintf("✅ Заказ #%d\n📍 %s\n💰 Заработок: %s ₽",
			i+1, o.Address, earnings.StringFixed(2)))
	}
	parts = append(parts, fmt.Sprintf("Итого заработано: %s ₽", total.StringFixed(2)))
	return []Action{Toast{}, e.reply(ev, strings.Join(parts, "\n\n"), menu.BackTo(menu.TokenProviderMyOrders))}, nil
}

// startHandover asks the customer to confirm an in-person handover. The
// performer waits: their state advances only when the customer's button
// press is processed.
func (e *Engine) startHandover(ctx context.Context, ev Event, orderID string) ([]Action, error) {
	o, err := e.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return []Action{Toast{Text: textOrderUnavailable}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: load order: %w", err)
	}

	draft := store.Draft{CurrentOrderID: orderID}
	if err := e.states.Set(ctx, ev.UserID, StateAwaitingHandover, &draft); err != nil {
		return nil, err
	}
	return []Action{
		Toast{},
		e.reply(ev, textHandoverWaiting, nil),
		SendText{ChatID: o.UserID, Text: textHandoverAsk, Markup: menu.HandoverConfirm(orderID)},
	}, nil
}

// confirmHandover is pressed by the customer. It advances the waiting
// performer's stored state directly to the bin-photo step.
func (e *Engine) confirmHandover(ctx context.Context, ev Event, orderID string) ([]Action, error) {
	o, err := e.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return []Action{Toast{Text: textOrderUnavailable}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: load order: %w", err)
	}
	if o.PerformerID == nil {
		return []Action{Toast{Text: textOrderUnavailable}}, nil
	}

	draft := store.Draft{CurrentOrderID: orderID}
	if err := e.states.Set(ctx, *o.PerformerID, StateAwaitingPhotoBin, &draft); err != nil {
		return nil, err
	}
	return []Action{
		Toast{},
		e.reply(ev, textHandoverOK, nil),
		SendText{ChatID: *o.PerformerID, Text: textHandoverToProv},
	}, nil
}

// denyHandover is pressed by the customer; the performer is offered the
// photo path instead.
func (e *Engine) denyHandover(ctx context.Context, ev Event, orderID string) ([]Action, error) {
	o, err := e.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return []Action{Toast{Text: textOrderUnavailable}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: load order: %w", err)
	}
	if o.PerformerID == nil {
		return []Action{Toast{Text: textOrderUnavailable}}, nil
	}

	draft := store.Draft{CurrentOrderID: orderID}
	if err := e.states.Set(ctx, *o.PerformerID, StateProviderWorking, &draft); err != nil {
		return nil, err
	}
	return []Action{
		Toast{},
		e.reply(ev, textHandoverDeniedOK, nil),
		SendText{ChatID: *o.PerformerID, Text: textHandoverDenied, Markup: menu.HandoverDenied(orderID)},
	}, nil
}

// completeOrder finishes the claim: a scoped update guards against
// completing someone else's order, then the payout is committed and both
// sides are notified.
func (e *Engine) completeOrder(ctx context.Context, ev Event, orderID string) ([]Action, error) {
	o, err := e.orders.Complete(ctx, orderID, ev.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return []Action{Toast{Text: textOrderUnavailable}, e.reply(ev, textProviderMenu, menu.ProviderMain())}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: complete order: %w", err)
	}
	if e.metrics != nil {
		e.metrics.OrdersCompleted.Inc()
	}

	rub := o.AmountRub()
	commission := commissionFor(rub)
	earnings := rub.Sub(commission)
	if err := e.profiles.AddEcoPoints(ctx, ev.UserID, earnings); err != nil {
		return nil, fmt.Errorf("engine: credit earnings: %w", err)
	}

	if err := e.states.Set(ctx, ev.UserID, StateStart, &store.Draft{}); err != nil {
		return nil, err
	}

	return []Action{
		Toast{},
		e.reply(ev, fmt.Sprintf(textOrderCompleted,
			rub.StringFixed(2), commission.StringFixed(2), earnings.StringFixed(2)),
			menu.ProviderMain()),
		SendText{ChatID: o.UserID, Text: textCustomerCheck, Markup: menu.CheckOrder(orderID)},
	}, nil
}

func (e *Engine) showWallet(ctx context.Context, ev Event) ([]Action, error) {
	profile, err := e.profiles.Get(ctx, ev.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("engine: load profile: %w", err)
	}
	text := fmt.Sprintf(textWallet,
		profile.EcoPoints.StringFixed(2),
		profile.AverageRating.StringFixed(2),
		profile.RatingCount)
	return []Action{Toast{}, e.reply(ev, text, menu.Wallet())}, nil
}

func (e *Engine) saveSchedule(ctx context.Context, ev Event, draft store.Draft) ([]Action, error) {
	filter := map[string]store.NotificationFilter{
		menu.TokenFilterAll:    store.FilterAll,
		menu.TokenFilterUrgent: store.FilterUrgent,
		menu.TokenFilterLarge:  store.FilterLarge,
		menu.TokenFilterNone:   store.FilterNone,
	}[ev.Token]

	if err := e.profiles.SetSchedule(ctx, ev.UserID, draft.ScheduleDays, draft.ScheduleTime, filter); err != nil {
		return nil, fmt.Errorf("engine: save schedule: %w", err)
	}
	if err := e.states.Set(ctx, ev.UserID, StateStart, &store.Draft{}); err != nil {
		return nil, err
	}
	return []Action{Toast{}, e.reply(ev, textScheduleSaved, menu.ProviderMain())}, nil
}

// providerText handles free-text input for performer states.
func (e *Engine) providerText(ctx context.Context, ev Event, us store.UserState) ([]Action, bool, error) {
	draft := us.Data
	text := strings.TrimSpace(ev.Text)

	switch us.State {
	case StateAwaitingProviderCity:
		if len([]rune(text)) < 2 {
			return []Action{e.reply(ev, textCityTooShort, menu.BackHomeOnly())}, true, nil
		}
		if err := e.profiles.SetCity(ctx, ev.UserID, text); err != nil {
			return nil, true, fmt.Errorf("engine: set city: %w", err)
		}
		if err := e.states.Set(ctx, ev.UserID, StateStart, nil); err != nil {
			return nil, true, err
		}
		return []Action{
			e.reply(ev, fmt.Sprintf(textProviderCitySet, text), nil),
			e.reply(ev, textProviderMenu, menu.ProviderMain()),
		}, true, nil

	case StateAwaitingManualDays:
		draft.ScheduleDays = text
		if err := e.states.Set(ctx, ev.UserID, StateStart, &draft); err != nil {
			return nil, true, err
		}
		return []Action{e.reply(ev, textScheduleTime, menu.ScheduleTime())}, true, nil

	case StateAwaitingTimeStart:
		draft.ScheduleTimeStart = text
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingTimeEnd, &draft); err != nil {
			return nil, true, err
		}
		return []Action{e.reply(ev, textTimeEnd, menu.BackHomeOnly())}, true, nil

	case StateAwaitingTimeEnd:
		draft.ScheduleTime = draft.ScheduleTimeStart + "–" + text
		draft.ScheduleTimeStart = ""
		if err := e.states.Set(ctx, ev.UserID, StateStart, &draft); err != nil {
			return nil, true, err
		}
		return []Action{e.reply(ev, textAskFilter, menu.NotificationFilters(true))}, true, nil
	}

	return nil, false, nil
}

// handlePhoto routes a photo attachment by state.
func (e *Engine) handlePhoto(ctx context.Context, ev Event, us store.UserState) ([]Action, error) {
	draft := us.Data

	switch us.State {
	case StateAwaitingPhotoDoor:
		if err := e.orders.SetPhotoDoor(ctx, draft.CurrentOrderID, ev.PhotoRef); err != nil {
			return nil, fmt.Errorf("engine: save door photo: %w", err)
		}
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingPhotoBin, nil); err != nil {
			return nil, err
		}
		return []Action{e.reply(ev, textPhotoDoorSaved, nil)}, nil

	case StateAwaitingPhotoBin:
		if err := e.orders.SetPhotoBin(ctx, draft.CurrentOrderID, ev.PhotoRef); err != nil {
			return nil, fmt.Errorf("engine: save bin photo: %w", err)
		}
		if err := e.states.Set(ctx, ev.UserID, StateReadyToComplete, nil); err != nil {
			return nil, err
		}
		return []Action{e.reply(ev, textPhotoBinSaved, menu.ReadyToComplete(draft.CurrentOrderID))}, nil
	}

	return []Action{e.reply(ev, textPhotoNotExpected, nil)}, nil
}

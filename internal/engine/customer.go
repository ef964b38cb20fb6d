package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/trashbot/internal/menu"
	"github.com/m3rciful/trashbot/internal/store"
)

// minAmountRub is the order floor in whole currency units.
const minAmountRub = 100

// customerToken handles ordering-flow tokens. The bool result reports
// whether the token belonged to this flow.
func (e *Engine) customerToken(ctx context.Context, ev Event, us store.UserState) ([]Action, bool, error) {
	draft := us.Data

	switch ev.Token {
	case menu.TokenRoleCustomer:
		if err := e.profiles.SetRole(ctx, ev.UserID, store.RoleCustomer); err != nil {
			return nil, true, fmt.Errorf("engine: set role: %w", err)
		}
		if err := e.states.Set(ctx, ev.UserID, StateCustomerGreeting, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textCustomerGreeting, menu.StartOrder())}, true, nil

	case menu.TokenNewOrder, menu.TokenStartOrderYes:
		acts, err := e.beginOrder(ctx, ev)
		return acts, true, err

	case menu.TokenStartOrderNo:
		if err := e.states.Set(ctx, ev.UserID, StateStart, &store.Draft{}); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textOrderLater, menu.Main())}, true, nil

	case menu.TokenHelp:
		return []Action{Toast{}, e.reply(ev, textHelp, menu.Main())}, true, nil

	case menu.TokenContactOperator:
		draft.SupportOrderID = ""
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingSupportMsg, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskSupportMsg, menu.BackHomeOnly())}, true, nil

	case menu.TokenUseSavedAddress:
		draft.Address = draft.SavedAddress
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingTimeChoice, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskTime, menu.TimeChoice())}, true, nil

	case menu.TokenEnterNewAddress:
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingCity, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskCity, menu.BackHomeOnly())}, true, nil

	case menu.TokenSaveAddressYes:
		if err := e.profiles.SetSavedAddress(ctx, ev.UserID, draft.Address); err != nil {
			return nil, true, fmt.Errorf("engine: save address: %w", err)
		}
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingTimeChoice, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{Text: textAddressSaved}, e.reply(ev, textAskTime, menu.TimeChoice())}, true, nil

	case menu.TokenSaveAddressNo:
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingTimeChoice, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskTime, menu.TimeChoice())}, true, nil

	case menu.TokenTimeChoiceUrgent:
		draft.Time = string(store.TimeWithinHour)
		draft.TimeText = ""
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingBags, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskBags, menu.BagCount())}, true, nil

	case menu.TokenTimeChoiceSelect:
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingTimeSlot, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskTimeSlot, menu.TimeSlots())}, true, nil

	case menu.TokenSlot1h, menu.TokenSlotTodayEvening, menu.TokenSlotTomorrowMorning:
		draft.Time = string(store.TimeCustom)
		draft.TimeText = menu.SlotText[ev.Token]
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingBags, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskBags, menu.BagCount())}, true, nil

	case menu.TokenTimeEnterCustom:
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingCustomTime, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskCustomTime, menu.BackHomeOnly())}, true, nil

	case menu.TokenBag1Small, menu.TokenBag1Medium, menu.TokenBag1Large:
		size := map[string]string{
			menu.TokenBag1Small:  store.BagSmall,
			menu.TokenBag1Medium: store.BagMedium,
			menu.TokenBag1Large:  store.BagLarge,
		}[ev.Token]
		draft.Bags = []string{size}
		draft.BagCount = 1
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingPayment, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskPayment, menu.Payment(false))}, true, nil

	case menu.TokenBag2, menu.TokenBag3:
		draft.Bags = nil
		draft.BagCount = 2
		if ev.Token == menu.TokenBag3 {
			draft.BagCount = 3
		}
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingMultiBag, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, fmt.Sprintf(textAskBagSize, 1), menu.BagSize(1))}, true, nil

	case menu.TokenBagSizeSmall, menu.TokenBagSizeMedium, menu.TokenBagSizeLarge:
		acts, err := e.collectBagSize(ctx, ev, draft)
		return acts, true, err

	case menu.TokenPaymentMin:
		draft.Amount = minAmountRub
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingPayment, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, fmt.Sprintf(textAmountSet, draft.Amount), menu.Payment(true))}, true, nil

	case menu.TokenPaymentCustom:
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingAmount, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskAmount, menu.BackHomeOnly())}, true, nil

	case menu.TokenPayNow:
		acts, err := e.createOrder(ctx, ev, draft)
		return acts, true, err

	case menu.TokenCommentYes:
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingCommentText, nil); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskComment, menu.BackHomeOnly())}, true, nil

	case menu.TokenCommentNo:
		if err := e.states.Set(ctx, ev.UserID, StateStart, &store.Draft{}); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textOrderDone, menu.Main())}, true, nil
	}

	if id, ok := strings.CutPrefix(ev.Token, menu.PrefixCheckOrder); ok {
		acts, err := e.checkOrder(ctx, ev, id)
		return acts, true, err
	}
	if rest, ok := strings.CutPrefix(ev.Token, menu.PrefixRate); ok {
		acts, err := e.rateOrder(ctx, ev, rest)
		return acts, true, err
	}
	if id, ok := strings.CutPrefix(ev.Token, menu.PrefixSupport); ok {
		draft.SupportOrderID = id
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingSupportMsg, &draft); err != nil {
			return nil, true, err
		}
		return []Action{Toast{}, e.reply(ev, textAskSupportMsg, menu.BackHomeOnly())}, true, nil
	}

	return nil, false, nil
}

// beginOrder starts the ordering flow, offering the saved address first
// when the profile has one.
func (e *Engine) beginOrder(ctx context.Context, ev Event) ([]Action, error) {
	profile, err := e.profiles.Get(ctx, ev.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("engine: load profile: %w", err)
	}

	if profile.SavedAddress != nil && *profile.SavedAddress != "" {
		draft := store.Draft{SavedAddress: *profile.SavedAddress}
		if err := e.states.Set(ctx, ev.UserID, StateChooseAddressOption, &draft); err != nil {
			return nil, err
		}
		return []Action{
			Toast{},
			e.reply(ev, fmt.Sprintf(textSavedAddress, *profile.SavedAddress), menu.SavedAddressChoice()),
		}, nil
	}

	if err := e.states.Set(ctx, ev.UserID, StateAwaitingCity, &store.Draft{}); err != nil {
		return nil, err
	}
	return []Action{Toast{}, e.reply(ev, textAskCity, menu.BackHomeOnly())}, nil
}

// collectBagSize appends one size to the multi-bag loop and either asks
// for the next bag or moves on to payment once all sizes are collected.
func (e *Engine) collectBagSize(ctx context.Context, ev Event, draft store.Draft) ([]Action, error) {
	size := map[string]string{
		menu.TokenBagSizeSmall:  store.BagSmall,
		menu.TokenBagSizeMedium: store.BagMedium,
		menu.TokenBagSizeLarge:  store.BagLarge,
	}[ev.Token]
	draft.Bags = append(draft.Bags, size)

	if len(draft.Bags) < draft.BagCount {
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingMultiBag, &draft); err != nil {
			return nil, err
		}
		next := len(draft.Bags) + 1
		return []Action{Toast{}, e.reply(ev, fmt.Sprintf(textAskBagSize, next), menu.BagSize(next))}, nil
	}

	if err := e.states.Set(ctx, ev.UserID, StateAwaitingPayment, &draft); err != nil {
		return nil, err
	}
	return []Action{Toast{}, e.reply(ev, textAskPayment, menu.Payment(false))}, nil
}

// createOrder commits the draft as a new order, notifies the admin chat,
// and fans alerts out to matching performers.
func (e *Engine) createOrder(ctx context.Context, ev Event, draft store.Draft) ([]Action, error) {
	if draft.Amount < minAmountRub {
		return []Action{Toast{}, e.reply(ev, textAskPayment, menu.Payment(false))}, nil
	}

	timeOption := store.TimeWithinHour
	var customTime *string
	if draft.Time == string(store.TimeCustom) {
		timeOption = store.TimeCustom
		text := draft.TimeText
		customTime = &text
	}

	o := store.Order{
		UserID:     ev.UserID,
		FirstName:  ev.From.FirstName,
		Address:    draft.Address,
		SizeOption: store.SizeOptionFor(len(draft.Bags)),
		Bags:       draft.Bags,
		TimeOption: timeOption,
		CustomTime: customTime,
		Amount:     draft.Amount * 100,
	}
	if ev.From.Username != "" {
		u := ev.From.Username
		o.Username = &u
	}
	if ev.From.LastName != "" {
		l := ev.From.LastName
		o.LastName = &l
	}

	created, err := e.orders.Create(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("engine: create order: %w", err)
	}
	if e.metrics != nil {
		e.metrics.OrdersCreated.Inc()
	}

	draft.OrderID = created.ID
	if err := e.states.Set(ctx, ev.UserID, StateAwaitingCommentOpt, &draft); err != nil {
		return nil, err
	}

	acts := []Action{
		Toast{},
		e.reply(ev, fmt.Sprintf(textOrderCreated,
			created.Address, timeDescription(draft), created.BagCount(),
			created.AmountRub().StringFixed(2)), menu.CommentChoice()),
	}
	acts = append(acts, e.adminActions(ctx, fmt.Sprintf(
		"🆕 Новый заказ от %s\n📍 %s\n⏰ %s\n💰 %s ₽",
		displayName(ev.From), created.Address, timeDescription(draft),
		created.AmountRub().StringFixed(2)))...)

	alerts, err := e.notifier.Alerts(ctx, created)
	if err != nil {
		// Best effort: a failed fan-out must not break order creation.
		e.log.Error("fan-out failed", slog.String("order_id", created.ID), slog.Any("error", err))
		if e.metrics != nil {
			e.metrics.Errors.WithLabelValues("fanout").Inc()
		}
	}
	for _, a := range alerts {
		acts = append(acts, SendText{ChatID: a.UserID, Text: a.Text, Markup: a.Markup})
	}
	return acts, nil
}

func timeDescription(draft store.Draft) string {
	if draft.Time == string(store.TimeCustom) && draft.TimeText != "" {
		return draft.TimeText
	}
	return "Срочно (в течение часа)"
}

// customerText handles free-text input for the ordering and support states.
func (e *Engine) customerText(ctx context.Context, ev Event, us store.UserState) ([]Action, bool, error) {
	draft := us.Data
	text := strings.TrimSpace(ev.Text)

	switch us.State {
	case StateAwaitingCity:
		if len([]rune(text)) < 2 {
			return []Action{e.reply(ev, textCityTooShort, menu.BackHomeOnly())}, true, nil
		}
		draft.City = text
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingAddress, &draft); err != nil {
			return nil, true, err
		}
		return []Action{e.reply(ev, textAskAddress, menu.BackHomeOnly())}, true, nil

	case StateAwaitingAddress:
		if len([]rune(text)) < 5 {
			return []Action{e.reply(ev, textAddressTooShort, menu.BackHomeOnly())}, true, nil
		}
		// Full address carries the city so performer matching can use
		// a plain substring check.
		draft.Address = draft.City + ", " + text
		if err := e.states.Set(ctx, ev.UserID, StateAskSaveAddress, &draft); err != nil {
			return nil, true, err
		}
		return []Action{e.reply(ev, textAskSaveAddress, menu.SaveAddress())}, true, nil

	case StateAwaitingCustomTime:
		draft.Time = string(store.TimeCustom)
		draft.TimeText = text
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingBags, &draft); err != nil {
			return nil, true, err
		}
		return []Action{e.reply(ev, textAskBags, menu.BagCount())}, true, nil

	case StateAwaitingAmount:
		amount, ok := parseAmount(text)
		if !ok {
			return []Action{e.reply(ev, textAmountInvalid, menu.BackHomeOnly())}, true, nil
		}
		if amount < minAmountRub {
			return []Action{e.reply(ev, textAmountTooLow, menu.BackHomeOnly())}, true, nil
		}
		draft.Amount = amount
		if err := e.states.Set(ctx, ev.UserID, StateAwaitingPayment, &draft); err != nil {
			return nil, true, err
		}
		return []Action{e.reply(ev, fmt.Sprintf(textAmountSet, amount), menu.Payment(true))}, true, nil

	case StateAwaitingCommentText:
		if draft.OrderID != "" {
			if err := e.orders.SetComment(ctx, draft.OrderID, text); err != nil {
				return nil, true, fmt.Errorf("engine: save comment: %w", err)
			}
		}
		if err := e.states.Set(ctx, ev.UserID, StateStart, &store.Draft{}); err != nil {
			return nil, true, err
		}
		return []Action{e.reply(ev, textCommentSaved, menu.Main())}, true, nil

	case StateAwaitingSupportMsg:
		acts, err := e.relaySupport(ctx, ev, draft, text)
		return acts, true, err
	}

	return nil, false, nil
}

// relaySupport forwards a support message to the admin chat with order
// context and returns the user to their role's menu.
func (e *Engine) relaySupport(ctx context.Context, ev Event, draft store.Draft, text string) ([]Action, error) {
	msg := fmt.Sprintf("📞 Обращение в поддержку от %s", displayName(ev.From))
	if draft.SupportOrderID != "" {
		msg += "\n📦 Заказ: " + draft.SupportOrderID
	}
	msg += "\n\n" + text

	acts := e.adminActions(ctx, msg)
	if err := e.states.Set(ctx, ev.UserID, StateStart, &store.Draft{}); err != nil {
		return nil, err
	}

	markup := menu.Main()
	if profile, err := e.profiles.Get(ctx, ev.UserID); err == nil &&
		profile.Role != nil && *profile.Role == store.RolePerformer {
		markup = menu.ProviderMain()
	}
	return append(acts, e.reply(ev, textSupportSent, markup)), nil
}

// parseAmount extracts the digits of a free-text amount. "150 руб"
// parses as 150; text without digits is rejected.
func parseAmount(s string) (int64, bool) {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// checkOrder shows the customer the photo evidence for a completed order
// and offers a rating if none is recorded yet.
func (e *Engine) checkOrder(ctx context.Context, ev Event, orderID string) ([]Action, error) {
	o, err := e.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return []Action{Toast{Text: textOrderUnavailable}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: load order: %w", err)
	}

	acts := []Action{Toast{}}
	if o.PhotoDoor != nil {
		acts = append(acts, SendPhoto{ChatID: ev.ChatID, PhotoRef: *o.PhotoDoor, Caption: "📸 Пакет у двери"})
	}
	if o.PhotoBin != nil {
		acts = append(acts, SendPhoto{ChatID: ev.ChatID, PhotoRef: *o.PhotoBin, Caption: "📸 Пакет у бака"})
	}
	if o.PhotoDoor == nil && o.PhotoBin == nil {
		acts = append(acts, e.reply(ev, textNoPhotos, nil))
	}

	if o.Rating == nil {
		acts = append(acts, e.reply(ev, textAskRating, menu.RatingStars(o.ID)))
	} else {
		acts = append(acts, e.reply(ev, textRatingThanks, menu.Support(o.ID)))
	}
	return acts, nil
}

// rateOrder records a 1-5 rating and folds it into the performer's
// running average.
//
// TODO: repeated presses of the same rating button recompute the average
// with a fresh count each time, double counting the order. Guard on
// o.Rating == nil before applying once product confirms the fix.
func (e *Engine) rateOrder(ctx context.Context, ev Event, rest string) ([]Action, error) {
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 {
		return []Action{Toast{}}, nil
	}
	orderID := rest[:idx]
	value, err := strconv.Atoi(rest[idx+1:])
	if err != nil || value < 1 || value > 5 {
		return []Action{Toast{}}, nil
	}

	o, err := e.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return []Action{Toast{Text: textOrderUnavailable}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: load order: %w", err)
	}

	if err := e.orders.SetRating(ctx, orderID, value); err != nil {
		return nil, fmt.Errorf("engine: set rating: %w", err)
	}
	if o.PerformerID != nil {
		if err := e.profiles.ApplyRating(ctx, *o.PerformerID, value); err != nil {
			return nil, fmt.Errorf("engine: apply rating: %w", err)
		}
	}
	return []Action{Toast{}, e.reply(ev, textRatingThanks, menu.Support(orderID))}, nil
}

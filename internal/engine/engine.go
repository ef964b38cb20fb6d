// Package engine is the conversation core: it resolves one inbound event
// against the user's persisted state and produces the next state plus a
// list of outbound actions. It never talks to the chat platform itself.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/trashbot/internal/fanout"
	"github.com/m3rciful/trashbot/internal/logger"
	"github.com/m3rciful/trashbot/internal/menu"
	"github.com/m3rciful/trashbot/internal/metrics"
	"github.com/m3rciful/trashbot/internal/store"
)

// Notifier selects performers eligible for a new-order alert.
type Notifier interface {
	Alerts(ctx context.Context, o store.Order) ([]fanout.Alert, error)
}

// Engine drives the per-user conversation state machine.
type Engine struct {
	states   store.UserStates
	orders   store.Orders
	profiles store.Profiles
	settings store.Settings
	notifier Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// New constructs the engine over its stores and the fan-out matcher.
func New(s *store.Stores, notifier Notifier, m *metrics.Metrics) *Engine {
	return &Engine{
		states:   s.UserStates,
		orders:   s.Orders,
		profiles: s.Profiles,
		settings: s.Settings,
		notifier: notifier,
		metrics:  m,
		log:      logger.ENG,
	}
}

// Handle processes one inbound event to completion and returns the
// outbound actions it produced. Validation failures re-prompt in place;
// referential failures return the user to a safe menu. Only storage
// errors propagate.
func (e *Engine) Handle(ctx context.Context, ev Event) ([]Action, error) {
	us, err := e.states.Get(ctx, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("engine: load state: %w", err)
	}

	e.log.Debug("event",
		slog.Int64("user_id", ev.UserID),
		slog.String("kind", string(ev.Kind)),
		slog.String("state", us.State),
		slog.String("token", ev.Token))

	switch ev.Kind {
	case KindButton:
		return e.handleToken(ctx, ev, us)
	case KindPhoto:
		return e.handlePhoto(ctx, ev, us)
	default:
		if strings.HasPrefix(ev.Text, "/") {
			return e.handleCommand(ctx, ev)
		}
		return e.handleText(ctx, ev, us)
	}
}

func (e *Engine) handleCommand(ctx context.Context, ev Event) ([]Action, error) {
	cmd := strings.Fields(ev.Text)[0]
	switch cmd {
	case "/start":
		return e.goHome(ctx, ev)
	case "/help":
		return []Action{e.reply(ev, textHelp, nil)}, nil
	case "/adminid":
		if err := e.settings.Set(ctx, store.AdminChatKey, strconv.FormatInt(ev.ChatID, 10)); err != nil {
			return nil, fmt.Errorf("engine: set admin chat: %w", err)
		}
		return []Action{e.reply(ev, textAdminSet, nil)}, nil
	default:
		return []Action{e.reply(ev, textUnknown, nil)}, nil
	}
}

func (e *Engine) handleToken(ctx context.Context, ev Event, us store.UserState) ([]Action, error) {
	switch ev.Token {
	case menu.TokenGoHome:
		acts, err := e.goHome(ctx, ev)
		return append([]Action{Toast{}}, acts...), err
	case menu.TokenGoBack:
		return e.goBack(ctx, ev, us)
	}

	if acts, handled, err := e.customerToken(ctx, ev, us); handled {
		return acts, err
	}
	if acts, handled, err := e.providerToken(ctx, ev, us); handled {
		return acts, err
	}

	e.log.Warn("unhandled token", slog.String("token", ev.Token), slog.Int64("user_id", ev.UserID))
	return []Action{Toast{}, e.reply(ev, textUnknown, nil)}, nil
}

// goHome resets the conversation to the role prompt with a cleared draft.
func (e *Engine) goHome(ctx context.Context, ev Event) ([]Action, error) {
	if err := e.states.Set(ctx, ev.UserID, StateAwaitingRole, &store.Draft{}); err != nil {
		return nil, fmt.Errorf("engine: reset state: %w", err)
	}
	return []Action{e.reply(ev, textRolePrompt, menu.Role())}, nil
}

// goBack re-enters the prompt of the current state's fixed predecessor.
func (e *Engine) goBack(ctx context.Context, ev Event, us store.UserState) ([]Action, error) {
	target := backTarget(us.State)
	draft := us.Data
	if target == StateAwaitingBags {
		// Restarting bag selection drops sizes collected so far.
		draft.Bags = nil
		draft.BagCount = 0
	}
	if err := e.states.Set(ctx, ev.UserID, target, &draft); err != nil {
		return nil, fmt.Errorf("engine: back transition: %w", err)
	}
	return append([]Action{Toast{}}, e.prompt(ev, target, draft)...), nil
}

// prompt renders the inbound prompt belonging to a state.
func (e *Engine) prompt(ev Event, state string, draft store.Draft) []Action {
	switch state {
	case StateCustomerGreeting:
		return []Action{e.reply(ev, textCustomerGreeting, menu.StartOrder())}
	case StateChooseAddressOption:
		return []Action{e.reply(ev, fmt.Sprintf(textSavedAddress, draft.SavedAddress), menu.SavedAddressChoice())}
	case StateAwaitingCity:
		return []Action{e.reply(ev, textAskCity, menu.BackHomeOnly())}
	case StateAwaitingAddress:
		return []Action{e.reply(ev, textAskAddress, menu.BackHomeOnly())}
	case StateAskSaveAddress:
		return []Action{e.reply(ev, textAskSaveAddress, menu.SaveAddress())}
	case StateAwaitingTimeChoice:
		return []Action{e.reply(ev, textAskTime, menu.TimeChoice())}
	case StateAwaitingTimeSlot:
		return []Action{e.reply(ev, textAskTimeSlot, menu.TimeSlots())}
	case StateAwaitingBags:
		return []Action{e.reply(ev, textAskBags, menu.BagCount())}
	case StateAwaitingPayment:
		if draft.Amount >= minAmountRub {
			return []Action{e.reply(ev, fmt.Sprintf(textAmountSet, draft.Amount), menu.Payment(true))}
		}
		return []Action{e.reply(ev, textAskPayment, menu.Payment(false))}
	case StateAwaitingCommentOpt:
		return []Action{e.reply(ev, textAskComment, menu.CommentChoice())}
	default:
		return []Action{e.reply(ev, textRolePrompt, menu.Role())}
	}
}

func (e *Engine) reply(ev Event, text string, markup *menu.Markup) Action {
	return SendText{ChatID: ev.ChatID, Text: text, Markup: markup}
}

func (e *Engine) handleText(ctx context.Context, ev Event, us store.UserState) ([]Action, error) {
	if acts, handled, err := e.customerText(ctx, ev, us); handled {
		return acts, err
	}
	if acts, handled, err := e.providerText(ctx, ev, us); handled {
		return acts, err
	}
	return []Action{e.reply(ev, textUnknown, nil)}, nil
}

// SeedAdminChat stores chatID as the admin notification target unless
// one is already configured, so a configured admin id works before the
// first /adminid command.
func SeedAdminChat(ctx context.Context, settings store.Settings, chatID int64) error {
	if chatID == 0 {
		return nil
	}
	_, err := settings.Get(ctx, store.AdminChatKey)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("engine: read admin chat: %w", err)
	}
	return settings.Set(ctx, store.AdminChatKey, strconv.FormatInt(chatID, 10))
}

// adminActions renders a notification to the configured admin chat, if any.
func (e *Engine) adminActions(ctx context.Context, text string) []Action {
	raw, err := e.settings.Get(ctx, store.AdminChatKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.log.Error("load admin chat id", slog.Any("error", err))
		}
		return nil
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		e.log.Error("malformed admin chat id", slog.String("value", raw))
		return nil
	}
	return []Action{SendText{ChatID: chatID, Text: text}}
}

// displayName renders the identity snapshot for admin-facing messages.
func displayName(id Identity) string {
	name := strings.TrimSpace(id.FirstName + " " + id.LastName)
	if id.Username != "" {
		name += " (@" + id.Username + ")"
	}
	return name
}

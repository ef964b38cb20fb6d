// Package telegram adapts Telegram updates to engine events and engine
// actions back to Bot API calls.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/trashbot/internal/config"
	"github.com/m3rciful/trashbot/internal/engine"
	"github.com/m3rciful/trashbot/internal/logger"
	"github.com/m3rciful/trashbot/internal/menu"
	"github.com/m3rciful/trashbot/internal/metrics"
)

const errText = "😔 Что-то пошло не так. Попробуйте ещё раз или нажмите /start."

// Bot binds a telebot instance to the conversation engine.
type Bot struct {
	bot        *tele.Bot
	engine     *engine.Engine
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// Run builds the bot and blocks until the context is cancelled.
func Run(ctx context.Context, cfg *config.Config, eng *engine.Engine, m *metrics.Metrics) error {
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: buildPoller(cfg),
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	dispatcher := NewDispatcher(SenderOptions{
		QueueSize: cfg.Sender.QueueSize,
		Workers:   cfg.Sender.Workers,
	}, m)
	defer dispatcher.Close()

	a := &Bot{
		bot:        b,
		engine:     eng,
		dispatcher: dispatcher,
		metrics:    m,
		log:        logger.TG,
	}

	b.Use(recoverMiddleware, loggingMiddleware)
	b.Handle(tele.OnText, a.onText)
	b.Handle(tele.OnPhoto, a.onPhoto)
	b.Handle(tele.OnCallback, a.onCallback)

	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	a.log.Info("bot starting",
		slog.String("mode", cfg.Telegram.RunMode))
	b.Start()
	return nil
}

func (a *Bot) onText(c tele.Context) error {
	ev := a.eventFrom(c, engine.KindText)
	ev.Text = c.Text()
	return a.process(c, ev)
}

func (a *Bot) onPhoto(c tele.Context) error {
	ev := a.eventFrom(c, engine.KindPhoto)
	if p := c.Message().Photo; p != nil {
		ev.PhotoRef = p.FileID
	}
	return a.process(c, ev)
}

func (a *Bot) onCallback(c tele.Context) error {
	ev := a.eventFrom(c, engine.KindButton)
	ev.Token = callbackToken(c.Callback().Data)
	return a.process(c, ev)
}

// callbackToken normalizes raw callback data. Telebot prefixes unique
// callbacks with \f and separates a payload with |; our buttons carry
// plain tokens, so both decorations are stripped defensively.
func callbackToken(data string) string {
	data = strings.TrimPrefix(data, "\f")
	if i := strings.IndexByte(data, '|'); i >= 0 {
		data = data[:i]
	}
	return strings.TrimSpace(data)
}

// process runs one event through the engine and executes its actions.
func (a *Bot) process(c tele.Context, ev engine.Event) error {
	ctx := context.Background()
	start := time.Now()
	a.metrics.IncomingEvents.WithLabelValues(string(ev.Kind)).Inc()

	acts, err := a.engine.Handle(ctx, ev)
	a.metrics.EngineLatency.WithLabelValues(string(ev.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		a.metrics.Errors.WithLabelValues("engine").Inc()
		a.log.Error("engine error",
			slog.Int64("user_id", ev.UserID),
			slog.Any("error", err))
		if ev.Kind == engine.KindButton {
			_ = c.Respond(&tele.CallbackResponse{Text: errText})
			return nil
		}
		return c.Send(errText)
	}

	answered := false
	for _, act := range acts {
		switch v := act.(type) {
		case engine.Toast:
			if ev.Kind == engine.KindButton && !answered {
				_ = c.Respond(&tele.CallbackResponse{Text: v.Text})
				answered = true
			}
		case engine.SendText:
			a.sendText(v)
		case engine.SendPhoto:
			a.sendPhoto(v)
		}
	}
	if ev.Kind == engine.KindButton && !answered {
		_ = c.Respond(&tele.CallbackResponse{})
	}
	return nil
}

func (a *Bot) sendText(v engine.SendText) {
	recipient := tele.ChatID(v.ChatID)
	markup := toReplyMarkup(v.Markup)
	a.dispatcher.Enqueue("text", func() error {
		if markup != nil {
			_, err := a.bot.Send(recipient, v.Text, markup)
			return err
		}
		_, err := a.bot.Send(recipient, v.Text)
		return err
	})
}

func (a *Bot) sendPhoto(v engine.SendPhoto) {
	recipient := tele.ChatID(v.ChatID)
	photo := &tele.Photo{File: tele.File{FileID: v.PhotoRef}, Caption: v.Caption}
	a.dispatcher.Enqueue("photo", func() error {
		_, err := a.bot.Send(recipient, photo)
		return err
	})
}

// toReplyMarkup converts the engine's platform-neutral markup to an
// inline keyboard.
func toReplyMarkup(m *menu.Markup) *tele.ReplyMarkup {
	if m == nil || len(m.Rows) == 0 {
		return nil
	}
	keyboard := make([][]tele.InlineButton, 0, len(m.Rows))
	for _, row := range m.Rows {
		btns := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tele.InlineButton{Text: b.Label, Data: b.Token})
		}
		keyboard = append(keyboard, btns)
	}
	return &tele.ReplyMarkup{InlineKeyboard: keyboard}
}

func (a *Bot) eventFrom(c tele.Context, kind engine.EventKind) engine.Event {
	ev := engine.Event{Kind: kind}
	if s := c.Sender(); s != nil {
		ev.UserID = s.ID
		ev.From = engine.Identity{
			Username:  s.Username,
			FirstName: s.FirstName,
			LastName:  s.LastName,
		}
	}
	if ch := c.Chat(); ch != nil {
		ev.ChatID = ch.ID
	}
	return ev
}

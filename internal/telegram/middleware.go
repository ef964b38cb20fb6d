package telegram

import (
	"log/slog"
	"runtime/debug"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/trashbot/internal/logger"
)

// recoverMiddleware catches panics in handlers so one bad update cannot
// crash the bot.
func recoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				logger.TG.Error("panic recovered",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())))
			}
		}()
		return next(c)
	}
}

// loggingMiddleware logs one receipt line per update with its handling time.
func loggingMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		err := next(c)

		var userID int64
		if s := c.Sender(); s != nil {
			userID = s.ID
		}
		attrs := []any{
			slog.Int("update_id", c.Update().ID),
			slog.Int64("user_id", userID),
			slog.Duration("took", logger.RoundMS(time.Since(start))),
		}
		if err != nil {
			logger.TG.Error("update failed", append(attrs, slog.Any("error", err))...)
		} else {
			logger.TG.Debug("update handled", attrs...)
		}
		return err
	}
}

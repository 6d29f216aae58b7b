package middleware

import (
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Logger middleware for logging all incoming msgs. Free text may hold a
// password or an OTP, so only commands are logged verbatim.
func Logger(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()

			var userID int64
			var username string
			if user := c.Sender(); user != nil {
				userID = user.ID
				username = user.Username
			}

			fields := []zap.Field{
				zap.Int64("user_id", userID),
				zap.String("username", username),
			}

			switch {
			case c.Callback() != nil:
				fields = append(fields,
					zap.String("type", "callback"),
					zap.String("unique", c.Callback().Unique),
					zap.String("data", strings.TrimPrefix(c.Callback().Data, "\f")),
				)
			case c.Message() != nil:
				msg := c.Message()
				fields = append(fields, zap.String("type", messageType(msg)))
				if strings.HasPrefix(msg.Text, "/") {
					fields = append(fields, zap.String("text", msg.Text))
				} else {
					fields = append(fields, zap.Int("text_len", len(msg.Text)))
				}
			}

			err := next(c)

			fields = append(fields, zap.Duration("duration", time.Since(start)))

			if err != nil {
				fields = append(fields, zap.Error(err))
				logger.Error("handler error", fields...)
			} else {
				logger.Info("request handled", fields...)
			}

			return err
		}
	}
}

func messageType(msg *tele.Message) string {
	switch {
	case msg.Document != nil:
		return "document"
	case msg.Photo != nil:
		return "photo"
	case strings.HasPrefix(msg.Text, "/"):
		return "command"
	default:
		return "message"
	}
}

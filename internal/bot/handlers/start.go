package handlers

import (
	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/models"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// /start command
func HandleStart(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		userID := sender.ID

		ctx.Logger.Info("user started bot",
			zap.Int64("user_id", userID),
			zap.String("username", sender.Username),
		)

		opCtx, cancel := opContext()
		defer cancel()

		user, err := ctx.user(opCtx, c)
		if err != nil {
			ctx.Logger.Error("get user failed", zap.Int64("user_id", userID), zap.Error(err))
			return c.Send("😔 Something went wrong. Please try again later.")
		}

		if syncTelegramMeta(user, sender) {
			if err := ctx.Store.UpdateUser(opCtx, user); err != nil {
				ctx.Logger.Warn("failed to update user meta", zap.Int64("user_id", userID), zap.Error(err))
			}
		}

		// a stale conversation would swallow the next message
		resetFlows(opCtx, ctx, userID)

		linked := ctx.session(userID).Authenticated(opCtx)
		role := user.Role()
		if !linked {
			role = ""
		}

		return c.Send(
			utils.FormatWelcomeMessage(sender.FirstName, linked),
			utils.MainMenuKeyboard(role),
			tele.ModeMarkdownV2,
		)
	}
}

// syncTelegramMeta copies the sender's current names into user and reports
// whether anything changed.
func syncTelegramMeta(user *models.User, sender *tele.User) bool {
	changed := false
	sync := func(field **string, value string) {
		if (*field == nil && value != "") || (*field != nil && **field != value) {
			*field = stringPtr(value)
			changed = true
		}
	}
	sync(&user.Username, sender.Username)
	sync(&user.FirstName, sender.FirstName)
	sync(&user.LastName, sender.LastName)
	return changed
}

// /help
func HandleHelp(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Send(
			utils.FormatHelpMessage(),
			mainMenu(ctx, c.Sender().ID),
			tele.ModeMarkdownV2,
		)
	}
}

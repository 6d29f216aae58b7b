package handlers

import (
	"fmt"
	"slices"

	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/models"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Notification intervals offered in the settings keyboard, in minutes.
var notifyIntervals = []int{15, 30, 60, 120, 360, 720}

// /settings command
func HandleSettings(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		opCtx, cancel := opContext()
		defer cancel()

		user, err := ctx.user(opCtx, c)
		if err != nil {
			ctx.Logger.Error("failed to get user",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			return c.Send("😔 Could not load your settings.")
		}

		return showSettings(ctx, c, user, "")
	}
}

func showSettings(ctx *Context, c tele.Context, user *models.User, notice string) error {
	opCtx, cancel := opContext()
	defer cancel()

	text := notice + utils.FormatSettingsMessage(user)

	stats, err := ctx.Store.GetUserStats(opCtx, user.ID)
	if err != nil {
		ctx.Logger.Warn("failed to get user stats", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		text += fmt.Sprintf("\n*Saved views:* %d\n*Listings notified:* %d\n", stats.SavedViews, stats.SeenListings)
	}

	return show(c, text, utils.SettingsKeyboard(user.NotifyEnabled))
}

// handleNotifyToggle switches notifications on or off. They need a saved
// jobs or internships view to know what to look for.
func handleNotifyToggle(ctx *Context, c tele.Context, cb utils.Callback) error {
	userID := c.Sender().ID
	enable := cb.Arg(0) == "on"

	opCtx, cancel := opContext()
	defer cancel()

	user, err := ctx.user(opCtx, c)
	if err != nil {
		ctx.Logger.Error("failed to get user", zap.Int64("user_id", userID), zap.Error(err))
		return respond(c, "😔 Something went wrong")
	}

	if enable {
		if !ctx.requireLogin(opCtx, c, userID) {
			return nil
		}
		views, err := ctx.Store.GetUserViews(opCtx, userID)
		if err != nil {
			ctx.Logger.Error("failed to check saved views", zap.Int64("user_id", userID), zap.Error(err))
			return respond(c, "😔 Something went wrong")
		}
		if !slices.ContainsFunc(views, func(v models.SavedView) bool {
			return v.Page == models.PageJobs || v.Page == models.PageInternships
		}) {
			return c.Respond(&tele.CallbackResponse{
				Text:      "Open /jobs or /internships, set your filters and tap 💾 Save view first.",
				ShowAlert: true,
			})
		}
	}

	if err := ctx.Store.SetNotifyEnabled(opCtx, userID, enable); err != nil {
		ctx.Logger.Error("failed to toggle notifications",
			zap.Int64("user_id", userID),
			zap.Bool("enabled", enable),
			zap.Error(err),
		)
		return respond(c, "😔 Could not change notifications")
	}
	user.NotifyEnabled = enable

	notice := "🔕 Notifications off\\.\n\n"
	if enable {
		notice = "✅ Notifications on\\!\n\n"
	}
	_ = respond(c, "")
	return showSettings(ctx, c, user, notice)
}

func handleInterval(ctx *Context, c tele.Context, cb utils.Callback) error {
	userID := c.Sender().ID

	minutes, ok := cb.IntArg(0)
	if !ok || !slices.Contains(notifyIntervals, minutes) {
		return respond(c, "❌ Invalid interval")
	}

	opCtx, cancel := opContext()
	defer cancel()

	user, err := ctx.user(opCtx, c)
	if err != nil {
		ctx.Logger.Error("failed to get user", zap.Int64("user_id", userID), zap.Error(err))
		return respond(c, "😔 Something went wrong")
	}

	if err := ctx.Store.SetNotifyInterval(opCtx, userID, minutes); err != nil {
		ctx.Logger.Error("failed to set interval",
			zap.Int64("user_id", userID),
			zap.Int("interval", minutes),
			zap.Error(err),
		)
		return respond(c, "😔 Could not change the interval")
	}
	user.NotifyInterval = minutes

	_ = respond(c, "Every "+utils.FormatInterval(minutes))
	return showSettings(ctx, c, user, "")
}

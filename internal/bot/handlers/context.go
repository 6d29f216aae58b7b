package handlers

import (
	"context"
	"errors"
	"time"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/config"
	"jobportal-bot/internal/models"
	"jobportal-bot/internal/storage/postgres"
	"jobportal-bot/internal/storage/redis"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const requestTimeout = 15 * time.Second

// Context contains deps for all handlers
type Context struct {
	Store  *postgres.Store
	Cache  *redis.Cache
	Portal *portal.Client
	Config *config.Config
	Logger *zap.Logger

	// Now is replaced in tests.
	Now func() time.Time
}

func (ctx *Context) now() time.Time {
	if ctx.Now != nil {
		return ctx.Now()
	}
	return time.Now()
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// session binds the portal tokens of a Telegram user.
func (ctx *Context) session(userID int64) *portal.Session {
	return portal.NewSession(ctx.Cache.TokenStore(userID), ctx.Portal, ctx.Logger)
}

// client returns a portal client acting as the Telegram user.
func (ctx *Context) client(userID int64) *portal.Client {
	return ctx.Portal.WithSession(ctx.session(userID))
}

// user loads the sender's record, creating it on first contact.
func (ctx *Context) user(opCtx context.Context, c tele.Context) (*models.User, error) {
	sender := c.Sender()
	return ctx.Store.GetOrCreateUser(opCtx, &models.User{
		ID:             sender.ID,
		Username:       stringPtr(sender.Username),
		FirstName:      stringPtr(sender.FirstName),
		LastName:       stringPtr(sender.LastName),
		NotifyEnabled:  false, // default OFF
		NotifyInterval: 60,    // 1h
	})
}

func (ctx *Context) role(opCtx context.Context, userID int64) models.Role {
	user, err := ctx.Store.GetUser(opCtx, userID)
	if err != nil || user == nil {
		return ""
	}
	return user.Role()
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// respond answers a pending callback query with a toast.
func respond(c tele.Context, text string) error {
	if c.Callback() == nil {
		return nil
	}
	if text == "" {
		return c.Respond()
	}
	return c.Respond(&tele.CallbackResponse{Text: text})
}

// show edits the message the callback came from, or sends a new one for
// commands and text input.
func show(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if c.Callback() != nil {
		err := c.Edit(text, markup, tele.ModeMarkdownV2)
		if err == nil || errors.Is(err, tele.ErrSameMessageContent) || errors.Is(err, tele.ErrMessageNotModified) {
			return nil
		}
		// the message may be too old to edit
	}
	return c.Send(text, markup, tele.ModeMarkdownV2)
}

// handleSessionExpired unlinks the account after the portal rejected the
// refresh token. The user has to log in again.
func (ctx *Context) handleSessionExpired(c tele.Context, userID int64) error {
	opCtx, cancel := opContext()
	defer cancel()

	if err := ctx.Store.UnlinkPortalAccount(opCtx, userID); err != nil {
		ctx.Logger.Warn("failed to unlink expired account", zap.Int64("user_id", userID), zap.Error(err))
	}
	if err := ctx.Cache.DeleteConversation(opCtx, userID); err != nil {
		ctx.Logger.Warn("failed to clear user state", zap.Int64("user_id", userID), zap.Error(err))
	}

	ctx.Logger.Info("portal session expired", zap.Int64("user_id", userID))

	_ = respond(c, "Session expired")
	return c.Send("🔒 "+portal.Describe(portal.ErrSessionExpired), utils.MainMenuKeyboard(""))
}

// fail reports a portal error to the user. Expired sessions get the
// global treatment; everything else is described in place.
func (ctx *Context) fail(c tele.Context, userID int64, op string, err error) error {
	if errors.Is(err, portal.ErrSessionExpired) {
		return ctx.handleSessionExpired(c, userID)
	}

	ctx.Logger.Error(op+" failed", zap.Int64("user_id", userID), zap.Error(err))

	msg := portal.Describe(err)
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: utils.TruncateString(msg, 190), ShowAlert: true})
	}
	return c.Send("😔 " + msg)
}

// requireLogin replies with a login hint when the user has no portal
// session. It reports whether the handler may continue.
func (ctx *Context) requireLogin(opCtx context.Context, c tele.Context, userID int64) bool {
	if ctx.session(userID).Authenticated(opCtx) {
		return true
	}
	_ = respond(c, "Please log in first")
	_ = c.Send("🔐 This needs a portal account\\. Use /login or /register\\.", tele.ModeMarkdownV2)
	return false
}

// requireRole is requireLogin plus a role check against the linked account.
func (ctx *Context) requireRole(opCtx context.Context, c tele.Context, userID int64, role models.Role) bool {
	if !ctx.requireLogin(opCtx, c, userID) {
		return false
	}
	if role == "" || ctx.role(opCtx, userID) == role {
		return true
	}
	_ = respond(c, "Not available for your account")
	_ = c.Send("⛔ This section is only available to " + string(role) + " accounts.")
	return false
}

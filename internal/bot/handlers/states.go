package handlers

import (
	"context"
	"strings"

	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/models"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// User states for conversation flow
const (
	StateIdle = ""

	StateRegEmail     = "reg:email"
	StateRegFirstName = "reg:first_name"
	StateRegLastName  = "reg:last_name"
	StateRegPassword  = "reg:password"
	StateRegOTP       = "reg:otp"

	StateLoginEmail    = "login:email"
	StateLoginPassword = "login:password"

	StateEmpCompany     = "emp:company_name"
	StateEmpWebsite     = "emp:website"
	StateEmpIndustry    = "emp:industry"
	StateEmpDescription = "emp:description"
	StateEmpLogo        = "emp:logo"

	StateProfileBio       = "pf:bio"
	StateProfileSkills    = "pf:skills"
	StateProfileLocations = "pf:locations"

	StateDocUpload = "doc:upload"

	stateFilterPrefix = "filter|"
)

// Wizard names used as Redis keys.
const (
	wizardRegister = "register"
	wizardEmployer = "employer"
)

const tempLoginEmail = "login_email"

func filterState(page, key string) string {
	return stateFilterPrefix + page + "|" + key
}

func parseFilterState(state string) (page, key string, ok bool) {
	rest, found := strings.CutPrefix(state, stateFilterPrefix)
	if !found {
		return "", "", false
	}
	page, key, ok = strings.Cut(rest, "|")
	return page, key, ok && page != "" && key != ""
}

func setConversation(ctx *Context, userID int64, state string) error {
	opCtx, cancel := opContext()
	defer cancel()
	return ctx.Cache.SetConversation(opCtx, userID, state)
}

func getConversation(ctx *Context, userID int64) (string, error) {
	opCtx, cancel := opContext()
	defer cancel()
	return ctx.Cache.GetConversation(opCtx, userID)
}

func clearConversation(ctx *Context, userID int64) {
	opCtx, cancel := opContext()
	defer cancel()
	if err := ctx.Cache.DeleteConversation(opCtx, userID); err != nil {
		ctx.Logger.Warn("failed to clear user state", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// resetFlows drops every conversation and wizard in progress.
func resetFlows(opCtx context.Context, ctx *Context, userID int64) {
	for _, wizard := range []string{wizardRegister, wizardEmployer} {
		if err := ctx.Cache.DeleteWizard(opCtx, userID, wizard); err != nil {
			ctx.Logger.Warn("failed to delete wizard", zap.String("wizard", wizard), zap.Error(err))
		}
	}
	if err := ctx.Cache.DeleteTempData(opCtx, userID, tempLoginEmail); err != nil {
		ctx.Logger.Warn("failed to delete temp data", zap.Error(err))
	}
	if err := ctx.Cache.DeleteConversation(opCtx, userID); err != nil {
		ctx.Logger.Warn("failed to clear user state", zap.Error(err))
	}
}

// HandleCancel aborts whatever the user was doing.
func HandleCancel(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		opCtx, cancel := opContext()
		defer cancel()

		resetFlows(opCtx, ctx, userID)
		_ = respond(c, "Cancelled")

		return c.Send("❌ Cancelled", utils.MainMenuKeyboard(ctx.role(opCtx, userID)))
	}
}

func mainMenu(ctx *Context, userID int64) *tele.ReplyMarkup {
	opCtx, cancel := opContext()
	defer cancel()
	return utils.MainMenuKeyboard(ctx.role(opCtx, userID))
}

// roleOr returns role when valid, otherwise fallback.
func roleOr(role, fallback models.Role) models.Role {
	if role.Valid() {
		return role
	}
	return fallback
}

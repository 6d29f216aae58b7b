package handlers

import (
	"strings"

	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/models"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// HandleCallback processes all callback queries from inline buttons
func HandleCallback(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		query := c.Callback()
		if query == nil {
			ctx.Logger.Warn("callback is nil")
			return nil
		}

		data := query.Data
		if query.Unique != "" {
			// telebot already split off the unique of a registered button
			data = query.Unique + "|" + data
		}
		cb := utils.ParseCallback(data)

		ctx.Logger.Debug("received callback",
			zap.Int64("user_id", c.Sender().ID),
			zap.String("unique", cb.Unique),
			zap.Strings("args", cb.Args),
		)

		switch cb.Unique {
		case utils.CbPage:
			return handlePageCallback(ctx, c, cb)
		case utils.CbFilters:
			return handleFilterMenu(ctx, c, cb)
		case utils.CbFilterSet:
			return handleFilterSet(ctx, c, cb)
		case utils.CbFilterOpt:
			return handleFilterOption(ctx, c, cb)
		case utils.CbFilterClr:
			return handleFilterClear(ctx, c, cb)
		case utils.CbSort:
			return handleSortMenu(ctx, c, cb)
		case utils.CbSortSet:
			return handleSortSet(ctx, c, cb)
		case utils.CbSaveView:
			return handleSaveView(ctx, c, cb)
		case utils.CbLoadView:
			return handleLoadView(ctx, c, cb)
		case utils.CbDropView:
			return handleDropView(ctx, c, cb)
		case utils.CbDetail:
			return handleDetail(ctx, c, cb)
		case utils.CbApply:
			return handleApply(ctx, c, cb)
		case utils.CbStatus:
			return handleStatus(ctx, c, cb)
		case utils.CbRole:
			return handleRoleChosen(ctx, c, cb)
		case utils.CbOTPResend:
			return handleOTPResend(ctx, c)
		case utils.CbOTPBack:
			return handleOTPBack(ctx, c)
		case utils.CbLogoSkip:
			return handleLogoSkip(ctx, c)
		case utils.CbNotify:
			return handleNotifyToggle(ctx, c, cb)
		case utils.CbInterval:
			return handleInterval(ctx, c, cb)
		case utils.CbProfile:
			return handleProfileCallback(ctx, c, cb)
		case utils.CbManage:
			return handleManage(ctx, c, cb)
		case utils.CbCancel:
			return HandleCancel(ctx)(c)
		case utils.CbNoop:
			return respond(c, "")
		default:
			ctx.Logger.Warn("unknown callback action",
				zap.String("unique", cb.Unique),
				zap.String("data", query.Data),
			)
			return respond(c, "❓ Unknown action")
		}
	}
}

// HandleText routes plain messages: an active conversation step first,
// then the reply keyboard buttons.
func HandleText(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID
		text := strings.TrimSpace(c.Text())

		if text == utils.BtnCancel {
			return HandleCancel(ctx)(c)
		}

		if handler := menuButtons(ctx)[text]; handler != nil {
			// a menu button ends whatever input was pending
			clearConversation(ctx, userID)
			return handler(c)
		}

		state, err := getConversation(ctx, userID)
		if err != nil {
			ctx.Logger.Warn("failed to get user state", zap.Int64("user_id", userID), zap.Error(err))
		}

		switch {
		case state == StateIdle:
			return c.Send("🤔 I did not get that. Use the menu below or /help.", mainMenu(ctx, userID))
		case strings.HasPrefix(state, "reg:"):
			return handleRegistrationInput(ctx, c, state)
		case strings.HasPrefix(state, "login:"):
			return handleLoginInput(ctx, c, state)
		case strings.HasPrefix(state, "emp:"):
			return handleCompanyInput(ctx, c, state)
		case strings.HasPrefix(state, "pf:"):
			return handleProfileInput(ctx, c, state)
		case state == StateDocUpload:
			return c.Send("📄 Send the resume as a file, or /cancel.")
		}

		if name, key, ok := parseFilterState(state); ok {
			return handleFilterInput(ctx, c, name, key)
		}

		ctx.Logger.Warn("unknown user state", zap.Int64("user_id", userID), zap.String("state", state))
		clearConversation(ctx, userID)
		return c.Send("🤔 I lost track of what we were doing. Please start again.", mainMenu(ctx, userID))
	}
}

func menuButtons(ctx *Context) map[string]tele.HandlerFunc {
	return map[string]tele.HandlerFunc{
		utils.BtnJobs:         HandlePage(ctx, models.PageJobs),
		utils.BtnInternships:  HandlePage(ctx, models.PageInternships),
		utils.BtnApplications: HandlePage(ctx, models.PageApplications),
		utils.BtnCourses:      HandlePage(ctx, models.PageCourses),
		utils.BtnDashboard:    HandleDashboard(ctx),
		utils.BtnProfile:      HandleProfile(ctx),
		utils.BtnSettings:     HandleSettings(ctx),
		utils.BtnHelp:         HandleHelp(ctx),
	}
}

package handlers

import (
	"net/url"
	"strconv"

	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/models"

	tele "gopkg.in/telebot.v3"
)

const dashboardPreview = 5

// /dashboard command
func HandleDashboard(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		opCtx, cancel := opContext()
		defer cancel()

		if !ctx.requireRole(opCtx, c, userID, models.RoleEmployer) {
			return nil
		}

		params := url.Values{}
		params.Set("page_size", strconv.Itoa(dashboardPreview))
		params.Set("ordering", "-created_at")

		dash, err := ctx.client(userID).Dashboard(opCtx, params)
		if err != nil {
			return ctx.fail(c, userID, "load dashboard", err)
		}

		return c.Send(utils.FormatDashboard(dash), utils.ManageKeyboard(), tele.ModeMarkdownV2)
	}
}

// handleManage opens one of the employer tables from the dashboard.
func handleManage(ctx *Context, c tele.Context, cb utils.Callback) error {
	switch name := cb.Arg(0); name {
	case models.PageEmployerJobs, models.PageEmployerInternships:
		return openPage(ctx, c, name)
	default:
		return respond(c, "❓ Unknown page")
	}
}

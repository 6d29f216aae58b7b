package handlers

import (
	"errors"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/models"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

func parseItemRef(cb utils.Callback) (models.ListingKind, int64, bool) {
	kind := models.ListingKind(cb.Arg(0))
	id, ok := cb.Int64Arg(1)
	return kind, id, ok && kind.Valid() && id > 0
}

// handleDetail shows one job or internship: det|kind|id|page.
func handleDetail(ctx *Context, c tele.Context, cb utils.Callback) error {
	kind, id, ok := parseItemRef(cb)
	if !ok {
		return respond(c, "❌ Invalid item")
	}
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	l, err := ctx.client(userID).GetListing(opCtx, kind, id)
	if errors.Is(err, portal.ErrNotFound) {
		return respond(c, "This listing is no longer available")
	}
	if err != nil {
		return ctx.fail(c, userID, "get listing", err)
	}

	if err := showDetail(ctx, c, *l, cb.Arg(2)); err != nil {
		return err
	}
	return respond(c, "")
}

func showDetail(ctx *Context, c tele.Context, l models.Listing, page string) error {
	opCtx, cancel := opContext()
	defer cancel()

	mode := utils.DetailApply
	switch {
	case page == models.PageEmployerJobs || page == models.PageEmployerInternships:
		mode = utils.DetailManage
	case ctx.role(opCtx, c.Sender().ID) == models.RoleEmployer:
		// employers only manage their own listings, from the tables
		mode = utils.DetailView
	}

	return show(c, utils.FormatListingDetail(l), utils.DetailKeyboard(l, mode, page))
}

// handleApply submits an application once the candidate profile has
// everything the portal requires.
func handleApply(ctx *Context, c tele.Context, cb utils.Callback) error {
	kind, id, ok := parseItemRef(cb)
	if !ok {
		return respond(c, "❌ Invalid item")
	}
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	if !ctx.requireRole(opCtx, c, userID, models.RoleCandidate) {
		return nil
	}

	client := ctx.client(userID)
	profile, err := client.CandidateProfile(opCtx)
	if err != nil {
		return ctx.fail(c, userID, "get candidate profile", err)
	}
	if missing := profile.Missing(); len(missing) > 0 {
		_ = respond(c, "Complete your profile first")
		return c.Send(utils.FormatMissingProfile(missing), utils.ProfileKeyboard(), tele.ModeMarkdownV2)
	}

	if _, err := client.Apply(opCtx, kind, id, models.ApplyRequest{}); err != nil {
		var apiErr *portal.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 && !errors.Is(err, portal.ErrNotFound) {
			// already applied, closed listing and similar
			return c.Respond(&tele.CallbackResponse{
				Text:      utils.TruncateString(apiErr.Message(), 190),
				ShowAlert: true,
			})
		}
		return ctx.fail(c, userID, "apply", err)
	}

	ctx.Logger.Info("applied",
		zap.Int64("user_id", userID),
		zap.String("kind", string(kind)),
		zap.Int64("listing_id", id),
	)

	return c.Respond(&tele.CallbackResponse{Text: "✅ Application sent", ShowAlert: true})
}

// handleStatus changes the status of an employer's listing:
// stat|kind|id|status|page.
func handleStatus(ctx *Context, c tele.Context, cb utils.Callback) error {
	kind, id, ok := parseItemRef(cb)
	status := cb.Arg(2)
	if !ok || !models.IsValidListingStatus(status) {
		return respond(c, "❌ Invalid item")
	}
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	if !ctx.requireRole(opCtx, c, userID, models.RoleEmployer) {
		return nil
	}

	l, err := ctx.client(userID).UpdateListingStatus(opCtx, kind, id, status)
	if err != nil {
		return ctx.fail(c, userID, "update listing status", err)
	}
	if l.Kind == "" {
		l.Kind = kind
	}
	if l.ID == 0 {
		l.ID = id
	}

	ctx.Logger.Info("listing status changed",
		zap.Int64("user_id", userID),
		zap.Int64("listing_id", id),
		zap.String("status", status),
	)

	_ = respond(c, "Status: "+models.GetListingStatusDisplayName(status))
	return showDetail(ctx, c, *l, cb.Arg(3))
}

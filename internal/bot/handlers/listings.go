package handlers

import (
	"errors"
	"fmt"
	"strings"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/listing"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// HandlePage opens a listing page from a command or menu button.
func HandlePage(ctx *Context, name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return openPage(ctx, c, name)
	}
}

// openPage renders name with changes folded into one batch. Callbacks edit
// their message in place; commands and text input send a new one.
func openPage(ctx *Context, c tele.Context, name string, changes ...listing.Change) error {
	p, ok := lookupPage(name)
	if !ok {
		return respond(c, "❓ Unknown page")
	}

	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	if _, err := ctx.user(opCtx, c); err != nil {
		ctx.Logger.Error("get user failed", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send("😔 Something went wrong. Please try again later.")
	}

	if !p.Public() && !ctx.requireRole(opCtx, c, userID, p.Role()) {
		return nil
	}

	out, err := p.Render(opCtx, ctx, userID, changes...)
	switch {
	case errors.Is(err, listing.ErrStale):
		// a newer request for this page is in flight and will answer
		return respond(c, "")
	case errors.Is(err, portal.ErrSessionExpired):
		return ctx.handleSessionExpired(c, userID)
	case err != nil:
		ctx.Logger.Warn("view change rejected",
			zap.Int64("user_id", userID),
			zap.String("page", name),
			zap.Error(err),
		)
		if c.Callback() != nil {
			return respond(c, "⚠️ That option is not available here")
		}
		return c.Send("⚠️ That option is not available here.")
	}

	if out.Unchanged {
		if c.Callback() != nil {
			return respond(c, "Nothing to change")
		}
		return c.Send("ℹ️ Nothing changed.")
	}

	if err := show(c, out.Text, out.Markup); err != nil {
		ctx.Logger.Error("failed to show page", zap.String("page", name), zap.Error(err))
		return err
	}
	return respond(c, "")
}

func handlePageCallback(ctx *Context, c tele.Context, cb utils.Callback) error {
	name := cb.Arg(0)

	switch cb.Arg(1) {
	case utils.PageShow, utils.PageRetry, "":
		return openPage(ctx, c, name)
	case utils.PageNext:
		return openPage(ctx, c, name, listing.NextPage())
	case utils.PagePrev:
		return openPage(ctx, c, name, listing.PrevPage())
	case utils.PageGoTo:
		n, ok := cb.IntArg(2)
		if !ok {
			return respond(c, "❌ Invalid page")
		}
		return openPage(ctx, c, name, listing.GoToPage(n))
	case utils.PageClear:
		clearConversation(ctx, c.Sender().ID)
		return openPage(ctx, c, name, listing.ClearFilters())
	default:
		ctx.Logger.Warn("unknown page action", zap.String("action", cb.Arg(1)))
		return respond(c, "❓ Unknown action")
	}
}

// handleFilterMenu lists the page's filters with their current values.
func handleFilterMenu(ctx *Context, c tele.Context, cb utils.Callback) error {
	p, ok := lookupPage(cb.Arg(0))
	if !ok {
		return respond(c, "❓ Unknown page")
	}
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	clearConversation(ctx, userID)

	filters := listing.FilterState{}
	state, err := ctx.loadViewState(opCtx, userID, p.Name())
	if err != nil {
		ctx.Logger.Warn("failed to load view state", zap.Error(err))
	}
	if state != nil {
		filters = state.Filters
	}

	text := fmt.Sprintf("🔧 *Filters · %s*\n\n", utils.EscapeMarkdown(p.Title()))
	if active := utils.FormatActiveFilters(p.Fields(), filters); active != "" {
		text += "Active: " + active + "\n\n"
	} else {
		text += "_No filters set_\n\n"
	}
	text += "Pick a filter to change it\\."

	if err := show(c, text, utils.FilterMenuKeyboard(p.Name(), p.Fields(), filters)); err != nil {
		return err
	}
	return respond(c, "")
}

// handleFilterSet starts editing one filter: flags toggle at once, enums
// show their options, text and ranges wait for a message.
func handleFilterSet(ctx *Context, c tele.Context, cb utils.Callback) error {
	p, ok := lookupPage(cb.Arg(0))
	if !ok {
		return respond(c, "❓ Unknown page")
	}
	field, ok := fieldByKey(p, cb.Arg(1))
	if !ok {
		return respond(c, "❓ Unknown filter")
	}
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	var current listing.Value
	if state, _ := ctx.loadViewState(opCtx, userID, p.Name()); state != nil {
		current = state.Filters[field.Key]
	}

	switch field.Kind {
	case listing.KindBool:
		return openPage(ctx, c, p.Name(), listing.SetFilter(field.Key, listing.Flag(!current.FlagValue())))

	case listing.KindExact:
		text := fmt.Sprintf("🔧 *%s*\n\nChoose a value:", utils.EscapeMarkdown(field.Label))
		if err := show(c, text, utils.FilterOptionsKeyboard(p.Name(), field, current.TextValue())); err != nil {
			return err
		}
		return respond(c, "")

	default:
		if err := setConversation(ctx, userID, filterState(p.Name(), field.Key)); err != nil {
			ctx.Logger.Error("failed to set user state", zap.Error(err))
			return respond(c, "😔 Something went wrong")
		}

		prompt := fmt.Sprintf("🔍 Send the *%s* to search for\\.", utils.EscapeMarkdown(strings.ToLower(field.Label)))
		if field.Kind == listing.KindRange {
			prompt = fmt.Sprintf("💰 Send a *%s* range, for example `1000-5000`, `1000-` or `-5000`\\.",
				utils.EscapeMarkdown(strings.ToLower(field.Label)))
		}
		if !current.IsUnset() {
			prompt += fmt.Sprintf("\n\nCurrent: %s", utils.EscapeMarkdown(utils.FormatFilterValue(field, current)))
		}

		if err := show(c, prompt, utils.FilterInputKeyboard(p.Name(), field.Key)); err != nil {
			return err
		}
		return respond(c, "")
	}
}

func handleFilterOption(ctx *Context, c tele.Context, cb utils.Callback) error {
	return openPage(ctx, c, cb.Arg(0), listing.SetFilter(cb.Arg(1), listing.Text(cb.Arg(2))))
}

func handleFilterClear(ctx *Context, c tele.Context, cb utils.Callback) error {
	clearConversation(ctx, c.Sender().ID)
	return openPage(ctx, c, cb.Arg(0), listing.ClearFilter(cb.Arg(1)))
}

// handleFilterInput applies a typed filter value.
func handleFilterInput(ctx *Context, c tele.Context, name, key string) error {
	p, ok := lookupPage(name)
	if !ok {
		clearConversation(ctx, c.Sender().ID)
		return c.Send("❓ Unknown page")
	}
	field, ok := fieldByKey(p, key)
	if !ok {
		clearConversation(ctx, c.Sender().ID)
		return c.Send("❓ Unknown filter")
	}

	text := strings.TrimSpace(c.Text())
	var value listing.Value

	switch field.Kind {
	case listing.KindRange:
		v, err := listing.ParseRange(text)
		if err != nil {
			return c.Send("❌ Use a range like 1000-5000, 1000- or -5000.")
		}
		if lo, hi := v.Bounds(); lo != nil && hi != nil && *lo > *hi {
			return c.Send("❌ The lower bound is greater than the upper one.")
		}
		value = v
	default:
		if len(text) > 100 {
			return c.Send("❌ That is too long. Keep it under 100 characters.")
		}
		value = listing.Text(text)
	}

	clearConversation(ctx, c.Sender().ID)
	return openPage(ctx, c, name, listing.SetFilter(key, value))
}

func handleSortMenu(ctx *Context, c tele.Context, cb utils.Callback) error {
	p, ok := lookupPage(cb.Arg(0))
	if !ok {
		return respond(c, "❓ Unknown page")
	}

	opCtx, cancel := opContext()
	defer cancel()

	var st listing.SortState
	if state, _ := ctx.loadViewState(opCtx, c.Sender().ID, p.Name()); state != nil {
		st = state.Sort
	} else if sorts := p.Sorts(); len(sorts) > 0 {
		st = listing.SortState{Key: sorts[0].Key, Direction: listing.Desc}
	}

	text := fmt.Sprintf("↕️ *Sort · %s*\n\nTap the active key again to reverse the order\\.", utils.EscapeMarkdown(p.Title()))
	if err := show(c, text, utils.SortMenuKeyboard(p.Name(), p.Sorts(), st)); err != nil {
		return err
	}
	return respond(c, "")
}

func handleSortSet(ctx *Context, c tele.Context, cb utils.Callback) error {
	return openPage(ctx, c, cb.Arg(0), listing.ToggleSort(cb.Arg(1)))
}

// handleSaveView persists the current filters and sort of a page. The
// saved view is restored when the live state expires and drives
// notifications.
func handleSaveView(ctx *Context, c tele.Context, cb utils.Callback) error {
	p, ok := lookupPage(cb.Arg(0))
	if !ok {
		return respond(c, "❓ Unknown page")
	}
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	state, err := ctx.Cache.GetViewState(opCtx, userID, p.Name())
	if err != nil || state == nil {
		return respond(c, "Open the list first, then save it")
	}

	// page position is not part of a saved view
	saved := *state
	saved.Page.Reset()

	if err := ctx.Store.SaveView(opCtx, userID, p.Name(), saved); err != nil {
		ctx.Logger.Error("failed to save view", zap.Int64("user_id", userID), zap.Error(err))
		return respond(c, "😔 Could not save the view")
	}

	ctx.Logger.Info("view saved", zap.Int64("user_id", userID), zap.String("page", p.Name()))
	return respond(c, "💾 View saved")
}

func handleLoadView(ctx *Context, c tele.Context, cb utils.Callback) error {
	p, ok := lookupPage(cb.Arg(0))
	if !ok {
		return respond(c, "❓ Unknown page")
	}
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	saved, err := ctx.Store.GetView(opCtx, userID, p.Name())
	if err != nil {
		ctx.Logger.Error("failed to load saved view", zap.Int64("user_id", userID), zap.Error(err))
		return respond(c, "😔 Could not load the view")
	}
	if saved == nil {
		return respond(c, "No saved view for this list")
	}

	if err := ctx.Cache.SetViewState(opCtx, userID, p.Name(), *saved); err != nil {
		ctx.Logger.Error("failed to restore view", zap.Int64("user_id", userID), zap.Error(err))
		return respond(c, "😔 Could not load the view")
	}

	return openPage(ctx, c, p.Name())
}

// handleDropView deletes the saved view of a page. The live state is kept.
func handleDropView(ctx *Context, c tele.Context, cb utils.Callback) error {
	p, ok := lookupPage(cb.Arg(0))
	if !ok {
		return respond(c, "❓ Unknown page")
	}
	userID := c.Sender().ID

	opCtx, cancel := opContext()
	defer cancel()

	if err := ctx.Store.DeleteView(opCtx, userID, p.Name()); err != nil {
		ctx.Logger.Error("failed to delete saved view", zap.Int64("user_id", userID), zap.Error(err))
		return respond(c, "😔 Could not forget the view")
	}

	return respond(c, "🧹 Saved view forgotten")
}

package utils

import (
	"strconv"

	tele "gopkg.in/telebot.v3"

	"jobportal-bot/internal/listing"
	"jobportal-bot/internal/models"
)

// Reply keyboard labels, matched by the text router.
const (
	BtnJobs         = "💼 Jobs"
	BtnInternships  = "🎓 Internships"
	BtnApplications = "📨 Applications"
	BtnCourses      = "📚 Courses"
	BtnDashboard    = "📊 Dashboard"
	BtnProfile      = "👤 Profile"
	BtnSettings     = "⚙️ Settings"
	BtnHelp         = "❓ Help"
	BtnCancel       = "❌ Cancel"
)

func MainMenuKeyboard(role models.Role) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}

	second := menu.Row(menu.Text(BtnApplications), menu.Text(BtnCourses))
	if role == models.RoleEmployer {
		second = menu.Row(menu.Text(BtnDashboard))
	}

	menu.Reply(
		menu.Row(menu.Text(BtnJobs), menu.Text(BtnInternships)),
		second,
		menu.Row(menu.Text(BtnProfile), menu.Text(BtnSettings)),
		menu.Row(menu.Text(BtnHelp)),
	)

	return menu
}

func CancelKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(menu.Row(menu.Text(BtnCancel)))
	return menu
}

// ListStatus selects the extra buttons under a listing page.
type ListStatus int

const (
	ListReady ListStatus = iota
	ListEmpty
	ListError
)

// ItemRef points a numbered button at a listing detail.
type ItemRef struct {
	Kind models.ListingKind
	ID   int64
}

const itemsPerRow = 5

func ListKeyboard(page string, p listing.PageState, status ListStatus, items []ItemRef, hasFilters bool) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	var rows []tele.Row

	if status == ListReady && len(items) > 0 {
		var row tele.Row
		for i, item := range items {
			row = append(row, menu.Data(strconv.Itoa(i+1), CbDetail, string(item.Kind), strconv.FormatInt(item.ID, 10), page))
			if len(row) == itemsPerRow {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	if pager := PaginationRow(menu, page, p); pager != nil {
		rows = append(rows, pager)
	}

	switch status {
	case ListError:
		rows = append(rows, menu.Row(menu.Data("🔁 Try again", CbPage, page, PageRetry)))
	case ListEmpty:
		if hasFilters {
			rows = append(rows, menu.Row(menu.Data("🗑 Clear filters", CbPage, page, PageClear)))
		}
	}

	rows = append(rows, menu.Row(
		menu.Data("🔧 Filters", CbFilters, page),
		menu.Data("↕️ Sort", CbSort, page),
		menu.Data("🔄 Refresh", CbPage, page, PageShow),
	))

	menu.Inline(rows...)
	return menu
}

// PaginationRow returns nil when there is at most one page.
func PaginationRow(menu *tele.ReplyMarkup, page string, p listing.PageState) tele.Row {
	if p.TotalPages <= 1 {
		return nil
	}

	var buttons []tele.Btn
	if p.HasPrev() {
		buttons = append(buttons, menu.Data("⬅️ Prev", CbPage, page, PagePrev))
	}

	// 1-based current page like "2/7"
	buttons = append(buttons, menu.Data(strconv.Itoa(p.CurrentPage)+"/"+strconv.Itoa(p.TotalPages), CbNoop))

	if p.HasNext() {
		buttons = append(buttons, menu.Data("Next ➡️", CbPage, page, PageNext))
	}

	return menu.Row(buttons...)
}

func FilterMenuKeyboard(page string, fields []FieldInfo, state listing.FilterState) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	var rows []tele.Row

	for _, f := range fields {
		v, set := state[f.Key]
		set = set && !v.IsUnset()

		label := f.Label
		switch {
		case f.Kind == listing.KindBool && set:
			label = "✅ " + label
		case f.Kind == listing.KindBool:
			label = "⬜ " + label
		case set:
			label = "✏️ " + label + ": " + TruncateString(FormatFilterValue(f, v), 24)
		}
		rows = append(rows, menu.Row(menu.Data(label, CbFilterSet, page, f.Key)))
	}

	rows = append(rows,
		menu.Row(menu.Data("🗑 Clear all", CbPage, page, PageClear)),
		menu.Row(
			menu.Data("💾 Save view", CbSaveView, page),
			menu.Data("📂 Saved view", CbLoadView, page),
		),
		menu.Row(menu.Data("🧹 Forget saved view", CbDropView, page)),
		menu.Row(menu.Data("◀️ Back", CbPage, page, PageShow)),
	)

	menu.Inline(rows...)
	return menu
}

func FilterOptionsKeyboard(page string, f FieldInfo, current string) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	var rows []tele.Row

	for _, opt := range f.Options {
		label := models.DisplayName(f.Key, opt)
		if opt == current {
			label = "• " + label
		}
		rows = append(rows, menu.Row(menu.Data(label, CbFilterOpt, page, f.Key, opt)))
	}

	anyLabel := "Any"
	if current == "" {
		anyLabel = "• Any"
	}
	rows = append(rows,
		menu.Row(menu.Data(anyLabel, CbFilterClr, page, f.Key)),
		menu.Row(menu.Data("◀️ Back", CbFilters, page)),
	)

	menu.Inline(rows...)
	return menu
}

// FilterInputKeyboard sits under the prompt for a typed filter value.
func FilterInputKeyboard(page, key string) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("🗑 Clear this filter", CbFilterClr, page, key)),
		menu.Row(menu.Data("◀️ Back", CbFilters, page)),
	)
	return menu
}

func SortMenuKeyboard(page string, sorts []SortInfo, st listing.SortState) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	var rows []tele.Row

	for _, s := range sorts {
		label := s.Label
		if s.Key == st.Key {
			label = "• " + label + " " + DirectionArrow(st.Direction)
		}
		rows = append(rows, menu.Row(menu.Data(label, CbSortSet, page, s.Key)))
	}
	rows = append(rows, menu.Row(menu.Data("◀️ Back", CbPage, page, PageShow)))

	menu.Inline(rows...)
	return menu
}

// DetailMode picks the actions under a listing detail.
type DetailMode int

const (
	DetailView DetailMode = iota
	DetailApply
	DetailManage
)

// DetailKeyboard offers apply to candidates and status changes to the
// owning employer.
func DetailKeyboard(l models.Listing, mode DetailMode, page string) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	var rows []tele.Row

	id := strconv.FormatInt(l.ID, 10)
	switch mode {
	case DetailManage:
		var row tele.Row
		for _, status := range models.ListingStatusOptions() {
			if status == l.Status {
				continue
			}
			row = append(row, menu.Data("→ "+models.GetListingStatusDisplayName(status), CbStatus, string(l.Kind), id, status, page))
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	case DetailApply:
		rows = append(rows, menu.Row(menu.Data("✅ Apply", CbApply, string(l.Kind), id)))
	}

	if page != "" {
		rows = append(rows, menu.Row(menu.Data("◀️ Back to list", CbPage, page, PageShow)))
	}

	menu.Inline(rows...)
	return menu
}

func RoleKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(
			menu.Data("🧑‍💻 Candidate", CbRole, string(models.RoleCandidate)),
			menu.Data("🏢 Employer", CbRole, string(models.RoleEmployer)),
		),
		menu.Row(menu.Data("❌ Cancel", CbCancel)),
	)
	return menu
}

// OTPKeyboard shows the resend cooldown in the button label.
func OTPKeyboard(remainingSeconds int) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}

	resend := "🔁 Resend code"
	if remainingSeconds > 0 {
		resend = "⏳ Resend in " + strconv.Itoa(remainingSeconds) + "s"
	}

	menu.Inline(
		menu.Row(menu.Data(resend, CbOTPResend)),
		menu.Row(
			menu.Data("◀️ Change details", CbOTPBack),
			menu.Data("❌ Cancel", CbCancel),
		),
	)
	return menu
}

func LogoKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(
		menu.Data("⏭ Skip", CbLogoSkip),
		menu.Data("❌ Cancel", CbCancel),
	))
	return menu
}

func SettingsKeyboard(notifyEnabled bool) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}

	toggle := menu.Data("🔔 Turn on", CbNotify, "on")
	if notifyEnabled {
		toggle = menu.Data("🔕 Turn off", CbNotify, "off")
	}

	menu.Inline(
		menu.Row(toggle),
		menu.Row(
			menu.Data("15 min", CbInterval, "15"),
			menu.Data("30 min", CbInterval, "30"),
			menu.Data("1 h", CbInterval, "60"),
		),
		menu.Row(
			menu.Data("2 h", CbInterval, "120"),
			menu.Data("6 h", CbInterval, "360"),
			menu.Data("12 h", CbInterval, "720"),
		),
	)
	return menu
}

// Candidate profile sections editable from the bot.
const (
	ProfileBio       = "bio"
	ProfileSkills    = "skills"
	ProfileWorkMode  = "work_mode"
	ProfileLocations = "locations"
)

func ProfileKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(
			menu.Data("✏️ Bio", CbProfile, ProfileBio),
			menu.Data("🛠 Skills", CbProfile, ProfileSkills),
		),
		menu.Row(
			menu.Data("🏠 Work mode", CbProfile, ProfileWorkMode),
			menu.Data("📍 Locations", CbProfile, ProfileLocations),
		),
	)
	return menu
}

func WorkModeKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	var row tele.Row
	for _, mode := range models.WorkModeOptions() {
		row = append(row, menu.Data(models.GetWorkModeDisplayName(mode), CbProfile, ProfileWorkMode, mode))
	}
	menu.Inline(row, menu.Row(menu.Data("❌ Cancel", CbCancel)))
	return menu
}

// ManageKeyboard links the employer dashboard to the management tables.
func ManageKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(
		menu.Data("💼 Manage jobs", CbManage, models.PageEmployerJobs),
		menu.Data("🎓 Manage internships", CbManage, models.PageEmployerInternships),
	))
	return menu
}

// ListingLinkKeyboard opens a notified listing in the detail view.
func ListingLinkKeyboard(l models.Listing, page string) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(
		menu.Data("🔎 Details", CbDetail, string(l.Kind), strconv.FormatInt(l.ID, 10), page),
	))
	return menu
}

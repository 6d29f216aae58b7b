package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"jobportal-bot/internal/listing"
	"jobportal-bot/internal/models"
)

// FieldInfo is the type-independent part of a filter field, enough to
// build menus and summaries.
type FieldInfo struct {
	Key     string
	Label   string
	Kind    listing.FieldKind
	Options []string
}

type SortInfo struct {
	Key   string
	Label string
}

func FieldInfos[T any](schema *listing.Schema[T]) []FieldInfo {
	out := make([]FieldInfo, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		out = append(out, FieldInfo{Key: f.Key, Label: f.Label, Kind: f.Kind, Options: f.Options})
	}
	return out
}

func SortInfos[T any](schema *listing.Schema[T]) []SortInfo {
	out := make([]SortInfo, 0, len(schema.Sorts))
	for _, k := range schema.Sorts {
		out = append(out, SortInfo{Key: k.Key, Label: k.Label})
	}
	return out
}

func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func FormatSalaryRange(min, max *float64, currency string) string {
	suffix := ""
	if currency != "" {
		suffix = " " + currency
	}

	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("%s - %s%s", FormatAmount(*min), FormatAmount(*max), suffix)
	case min != nil:
		return fmt.Sprintf("from %s%s", FormatAmount(*min), suffix)
	case max != nil:
		return fmt.Sprintf("up to %s%s", FormatAmount(*max), suffix)
	}
	return "not specified"
}

// FormatFilterValue renders a filter value for humans, unescaped.
func FormatFilterValue(f FieldInfo, v listing.Value) string {
	switch f.Kind {
	case listing.KindExact:
		return models.DisplayName(f.Key, v.TextValue())
	case listing.KindBool:
		if v.FlagValue() {
			return "yes"
		}
		return "no"
	case listing.KindRange:
		lo, hi := v.Bounds()
		switch {
		case lo != nil && hi != nil:
			return FormatAmount(*lo) + " - " + FormatAmount(*hi)
		case lo != nil:
			return "from " + FormatAmount(*lo)
		case hi != nil:
			return "up to " + FormatAmount(*hi)
		}
		return ""
	default:
		return v.TextValue()
	}
}

// FormatActiveFilters lists the set filters in schema order, escaped.
// It returns an empty string when nothing is set.
func FormatActiveFilters(fields []FieldInfo, state listing.FilterState) string {
	var parts []string
	for _, f := range fields {
		v, ok := state[f.Key]
		if !ok || v.IsUnset() {
			continue
		}
		if f.Kind == listing.KindBool {
			parts = append(parts, EscapeMarkdown(f.Label))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", EscapeMarkdown(f.Label), EscapeMarkdown(FormatFilterValue(f, v))))
	}
	return strings.Join(parts, " · ")
}

func FormatSort(sorts []SortInfo, st listing.SortState) string {
	for _, s := range sorts {
		if s.Key == st.Key {
			return s.Label + " " + DirectionArrow(st.Direction)
		}
	}
	return ""
}

func DirectionArrow(d listing.Direction) string {
	if d == listing.Asc {
		return "↑"
	}
	return "↓"
}

// FormatPageStatus is the "Page x of y" line. It needs no MarkdownV2 escaping.
func FormatPageStatus(p listing.PageState, count int) string {
	if count == 0 || !p.HasPages() {
		return "No results"
	}
	results := "results"
	if count == 1 {
		results = "result"
	}
	return fmt.Sprintf("Page %d of %d · %d %s", p.CurrentPage, p.TotalPages, count, results)
}

func formatDate(t time.Time) string {
	return t.Format("02 Jan 2006")
}

func FormatListingItem(n int, l models.Listing) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("*%d\\. %s*\n", n, EscapeMarkdown(l.Title)))
	if l.Company.Name != "" {
		sb.WriteString(fmt.Sprintf("   🏢 %s\n", EscapeMarkdown(l.Company.Name)))
	}

	if l.Kind == models.KindInternship {
		if l.IsPaid {
			sb.WriteString(fmt.Sprintf("   💰 %s\n", EscapeMarkdown(FormatSalaryRange(l.SalaryMin, l.SalaryMax, l.Currency))))
		} else {
			sb.WriteString("   💰 Unpaid\n")
		}
	} else if l.SalaryMin != nil || l.SalaryMax != nil {
		sb.WriteString(fmt.Sprintf("   💰 %s\n", EscapeMarkdown(FormatSalaryRange(l.SalaryMin, l.SalaryMax, l.Currency))))
	}

	var meta []string
	if l.Location != "" {
		meta = append(meta, "📍 "+EscapeMarkdown(l.Location))
	}
	if l.WorkMode != "" {
		meta = append(meta, EscapeMarkdown(models.GetWorkModeDisplayName(l.WorkMode)))
	}
	if l.DurationMonths != nil {
		meta = append(meta, EscapeMarkdown(fmt.Sprintf("%d mo", *l.DurationMonths)))
	}
	if len(meta) > 0 {
		sb.WriteString("   " + strings.Join(meta, " · ") + "\n")
	}

	return sb.String()
}

func FormatListingDetail(l models.Listing) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("*%s*\n\n", EscapeMarkdown(l.Title)))

	if l.Company.Name != "" {
		sb.WriteString(fmt.Sprintf("🏢 *Company:* %s\n", EscapeMarkdown(l.Company.Name)))
	}

	if l.Kind == models.KindInternship && !l.IsPaid {
		sb.WriteString("💰 *Stipend:* unpaid\n")
	} else {
		label := "Salary"
		if l.Kind == models.KindInternship {
			label = "Stipend"
		}
		sb.WriteString(fmt.Sprintf("💰 *%s:* %s\n", label, EscapeMarkdown(FormatSalaryRange(l.SalaryMin, l.SalaryMax, l.Currency))))
	}

	if l.Location != "" {
		sb.WriteString(fmt.Sprintf("📍 *Location:* %s\n", EscapeMarkdown(l.Location)))
	}
	if l.WorkMode != "" {
		sb.WriteString(fmt.Sprintf("🏠 *Work mode:* %s\n", EscapeMarkdown(models.GetWorkModeDisplayName(l.WorkMode))))
	}
	if l.JobType != "" {
		sb.WriteString(fmt.Sprintf("📋 *Type:* %s\n", EscapeMarkdown(models.GetJobTypeDisplayName(l.JobType))))
	}
	if l.DurationMonths != nil {
		sb.WriteString(fmt.Sprintf("⏳ *Duration:* %d months\n", *l.DurationMonths))
	}
	if len(l.Skills) > 0 {
		sb.WriteString(fmt.Sprintf("🛠 *Skills:* %s\n", EscapeMarkdown(strings.Join(l.Skills, ", "))))
	}
	if l.Status != "" {
		sb.WriteString(fmt.Sprintf("📌 *Status:* %s\n", EscapeMarkdown(models.GetListingStatusDisplayName(l.Status))))
	}
	if l.CreatedAt != nil {
		sb.WriteString(fmt.Sprintf("📅 *Posted:* %s\n", EscapeMarkdown(formatDate(*l.CreatedAt))))
	}
	if l.Description != "" {
		sb.WriteString("\n" + EscapeMarkdown(TruncateString(l.Description, 1500)) + "\n")
	}

	return sb.String()
}

func FormatEmployerItem(n int, l models.Listing) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%d\\. %s*\n", n, EscapeMarkdown(l.Title)))

	meta := []string{"📌 " + EscapeMarkdown(models.GetListingStatusDisplayName(l.Status))}
	if l.CreatedAt != nil {
		meta = append(meta, "📅 "+EscapeMarkdown(formatDate(*l.CreatedAt)))
	}
	if l.Location != "" {
		meta = append(meta, "📍 "+EscapeMarkdown(l.Location))
	}
	sb.WriteString("   " + strings.Join(meta, " · ") + "\n")
	return sb.String()
}

var applicationStatusIcons = map[models.ApplicationStatus]string{
	models.ApplicationApplied:     "📨",
	models.ApplicationUnderReview: "👀",
	models.ApplicationShortlisted: "⭐",
	models.ApplicationRejected:    "❌",
	models.ApplicationAccepted:    "✅",
}

func FormatApplicationItem(n int, a models.Application) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%d\\. %s*\n", n, EscapeMarkdown(a.ListingTitle)))
	if a.CompanyName != "" {
		sb.WriteString(fmt.Sprintf("   🏢 %s\n", EscapeMarkdown(a.CompanyName)))
	}

	icon := applicationStatusIcons[a.Status]
	if icon == "" {
		icon = "•"
	}
	line := fmt.Sprintf("   %s %s", icon, EscapeMarkdown(models.GetApplicationStatusDisplayName(a.Status)))
	if a.AppliedAt != nil {
		line += " · " + EscapeMarkdown(formatDate(*a.AppliedAt))
	}
	sb.WriteString(line + "\n")
	return sb.String()
}

func FormatCourseItem(n int, c models.Course) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%d\\. %s*\n", n, EscapeMarkdown(c.Title)))
	if c.Provider != "" {
		sb.WriteString(fmt.Sprintf("   🏫 %s\n", EscapeMarkdown(c.Provider)))
	}
	if c.Completed {
		sb.WriteString("   ✅ Completed\n")
	} else {
		sb.WriteString(fmt.Sprintf("   📈 %s\n", EscapeMarkdown(ProgressBar(c.Progress))))
	}
	return sb.String()
}

// ProgressBar draws a ten-cell bar for a 0-100 percentage.
func ProgressBar(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 10)
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled) + fmt.Sprintf(" %d%%", int(percent))
}

func FormatWelcomeMessage(firstName string, linked bool) string {
	name := firstName
	if name == "" {
		name = "there"
	}

	next := "Create an account with /register or sign in with /login\\."
	if linked {
		next = "You are signed in\\. Open /jobs or /internships to start browsing\\."
	}

	return fmt.Sprintf(`👋 Hi, *%s*\!

I help you browse jobs and internships on the job portal\.

*What I can do:*
• Search jobs and internships with filters and sorting
• Track your applications and courses
• Notify you about new listings matching your saved view

%s`, EscapeMarkdown(name), next)
}

func FormatHelpMessage() string {
	return `*📖 Help*

*Browsing:*
/jobs \- job listings
/internships \- internship listings
/applications \- your applications
/courses \- your courses

*Employers:*
/dashboard \- your postings at a glance
/myjobs \- manage your jobs
/myinternships \- manage your internships
/company \- company profile and logo

*Account:*
/register \- create an account
/login \- sign in
/logout \- sign out
/profile \- your candidate profile
/documents \- upload your resume
/settings \- notifications
/cancel \- abort the current step

Use the 🔧 *Filters* and ↕️ *Sort* buttons under a list to narrow it down\. *Save view* remembers them for next time and for notifications\.`
}

func FormatSettingsMessage(user *models.User) string {
	var sb strings.Builder

	sb.WriteString("*⚙️ Notification settings*\n\n")

	status := "❌ Off"
	if user.NotifyEnabled {
		status = "✅ On"
	}
	sb.WriteString(fmt.Sprintf("*Status:* %s\n", status))
	sb.WriteString(fmt.Sprintf("*Interval:* every %s\n", EscapeMarkdown(FormatInterval(user.NotifyInterval))))

	if user.PortalEmail != nil {
		sb.WriteString(fmt.Sprintf("*Account:* %s\n", EscapeMarkdown(*user.PortalEmail)))
	} else {
		sb.WriteString("*Account:* not linked, use /login\n")
	}

	return sb.String()
}

func FormatInterval(minutes int) string {
	if minutes >= 60 && minutes%60 == 0 {
		hours := minutes / 60
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func FormatDashboard(d *models.Dashboard) string {
	var sb strings.Builder
	sb.WriteString("*📊 Dashboard*\n\n")

	section := func(title string, items []models.Listing, count int) {
		sb.WriteString(fmt.Sprintf("*%s* \\(%d\\)\n", EscapeMarkdown(title), count))
		if len(items) == 0 {
			sb.WriteString("_Nothing posted yet_\n\n")
			return
		}
		for i, l := range items {
			if i == 5 {
				sb.WriteString(fmt.Sprintf("   _and %d more_\n", count-5))
				break
			}
			sb.WriteString(fmt.Sprintf("• %s \\- %s\n",
				EscapeMarkdown(l.Title),
				EscapeMarkdown(models.GetListingStatusDisplayName(l.Status)),
			))
		}
		sb.WriteString("\n")
	}

	section("Jobs", d.Jobs, d.JobsCount)
	section("Internships", d.Internships, d.InternshipsCount)
	return sb.String()
}

func FormatCandidateProfile(p *models.CandidateProfile) string {
	var sb strings.Builder
	sb.WriteString("*👤 Your profile*\n\n")

	value := func(s string) string {
		if s == "" {
			return "_not set_"
		}
		return EscapeMarkdown(s)
	}

	sb.WriteString(fmt.Sprintf("*Name:* %s\n", value(p.FullName)))
	sb.WriteString(fmt.Sprintf("*Bio:* %s\n", value(TruncateString(p.Bio, 300))))
	sb.WriteString(fmt.Sprintf("*Skills:* %s\n", value(strings.Join(p.Skills, ", "))))

	var prefs []string
	for _, jt := range p.Preferences.JobTypes {
		prefs = append(prefs, models.GetJobTypeDisplayName(jt))
	}
	if p.Preferences.WorkMode != "" {
		prefs = append(prefs, models.GetWorkModeDisplayName(p.Preferences.WorkMode))
	}
	prefs = append(prefs, p.Preferences.Locations...)
	sb.WriteString(fmt.Sprintf("*Preferences:* %s\n", value(strings.Join(prefs, ", "))))

	if p.ResumeURL != "" {
		sb.WriteString("*Resume:* uploaded\n")
	} else {
		sb.WriteString("*Resume:* _not uploaded_, see /documents\n")
	}

	if missing := p.Missing(); len(missing) > 0 {
		sb.WriteString("\n" + FormatMissingProfile(missing))
	}
	return sb.String()
}

// FormatMissingProfile explains what blocks an application.
func FormatMissingProfile(missing []string) string {
	return fmt.Sprintf("⚠️ Complete your profile before applying\\. Missing: *%s*\\.",
		EscapeMarkdown(strings.Join(missing, ", ")))
}

func FormatEmployerProfile(p *models.EmployerProfile) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*🏢 %s*\n\n", EscapeMarkdown(p.CompanyName)))
	if p.Industry != "" {
		sb.WriteString(fmt.Sprintf("*Industry:* %s\n", EscapeMarkdown(p.Industry)))
	}
	if p.Website != "" {
		sb.WriteString(fmt.Sprintf("*Website:* %s\n", EscapeMarkdown(p.Website)))
	}
	if p.Description != "" {
		sb.WriteString("\n" + EscapeMarkdown(TruncateString(p.Description, 500)) + "\n")
	}
	if p.LogoURL != "" {
		sb.WriteString("\n🖼 Logo uploaded\n")
	}
	return sb.String()
}

// EscapeMarkdown escapes special characters for Telegram MarkdownV2
func EscapeMarkdown(text string) string {
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	return markdownEscaper.Replace(text)
}

var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// TruncateString cuts s to at most maxLen runes.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

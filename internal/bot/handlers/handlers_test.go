package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/listing"
	"jobportal-bot/internal/models"
)

func TestFilterStateRoundTrip(t *testing.T) {
	page, key, ok := parseFilterState(filterState(models.PageJobs, models.FieldSalary))
	require.True(t, ok)
	require.Equal(t, models.PageJobs, page)
	require.Equal(t, models.FieldSalary, key)

	for _, state := range []string{"", StateRegEmail, "filter|", "filter|jobs", "filter||salary"} {
		_, _, ok := parseFilterState(state)
		require.False(t, ok, state)
	}
}

func TestRoleOr(t *testing.T) {
	require.Equal(t, models.RoleEmployer, roleOr(models.RoleEmployer, models.RoleCandidate))
	require.Equal(t, models.RoleCandidate, roleOr("", models.RoleCandidate))
	require.Equal(t, models.RoleCandidate, roleOr("admin", models.RoleCandidate))
}

func TestPageRegistry(t *testing.T) {
	for name, p := range pageRegistry {
		require.Equal(t, name, p.Name())
		require.NotEmpty(t, p.Title(), name)
		require.NotEmpty(t, p.Fields(), name)
		require.NotEmpty(t, p.Sorts(), name)

		if p.Public() {
			require.Empty(t, p.Role(), name)
		} else {
			require.True(t, p.Role().Valid(), name)
		}

		// callback data is capped at 64 bytes by Telegram
		for _, f := range p.Fields() {
			require.LessOrEqual(t, len(utils.CbFilterSet+"|"+name+"|"+f.Key), 64)
			for _, opt := range f.Options {
				require.LessOrEqual(t, len(utils.CbFilterOpt+"|"+name+"|"+f.Key+"|"+opt), 64)
			}
		}
	}

	_, ok := lookupPage("vacancies")
	require.False(t, ok)

	p, _ := lookupPage(models.PageInternships)
	f, ok := fieldByKey(p, models.FieldPaid)
	require.True(t, ok)
	require.Equal(t, models.FieldPaid, f.Key)
}

func TestMenuButtonsCoverMainMenu(t *testing.T) {
	buttons := menuButtons(&Context{})
	for _, role := range []models.Role{"", models.RoleCandidate, models.RoleEmployer} {
		for _, row := range utils.MainMenuKeyboard(role).ReplyKeyboard {
			for _, b := range row {
				require.Contains(t, buttons, b.Text, "role %q", role)
			}
		}
	}
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"Go", "SQL", "Docker"}, splitList(" Go, SQL ,,Docker "))
	require.Nil(t, splitList(" , "))
}

func TestSyncTelegramMeta(t *testing.T) {
	user := &models.User{ID: 1, Username: stringPtr("old")}

	changed := syncTelegramMeta(user, &tele.User{ID: 1, Username: "new", FirstName: "Ann"})
	require.True(t, changed)
	require.Equal(t, "new", *user.Username)
	require.Equal(t, "Ann", *user.FirstName)
	require.Nil(t, user.LastName)

	require.False(t, syncTelegramMeta(user, &tele.User{ID: 1, Username: "new", FirstName: "Ann"}))

	require.True(t, syncTelegramMeta(user, &tele.User{ID: 1, FirstName: "Ann"}))
	require.Nil(t, user.Username)
}

func TestParseItemRef(t *testing.T) {
	kind, id, ok := parseItemRef(utils.ParseCallback("\fdet|internship|42|internships"))
	require.True(t, ok)
	require.Equal(t, models.KindInternship, kind)
	require.Equal(t, int64(42), id)

	for _, data := range []string{"det", "det|job", "det|job|x", "det|course|1", "det|job|0"} {
		_, _, ok := parseItemRef(utils.ParseCallback(data))
		require.False(t, ok, data)
	}
}

func callbackData(m *tele.ReplyMarkup) []string {
	var out []string
	for _, row := range m.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.Unique+"|"+b.Data)
		}
	}
	return out
}

func TestListPageRender(t *testing.T) {
	jobs := pageRegistry[models.PageJobs].(*listPage[models.Listing])
	schema := jobs.schema(10)

	pageOf := func(count int) listing.PageState {
		p := listing.NewPageState(10)
		p.SetCount(count)
		return p
	}

	cases := []struct {
		name   string
		snap   listing.Snapshot[models.Listing]
		text   string
		has    []string
		hasNot []string
	}{
		{
			name: "fetch error offers a retry",
			snap: listing.Snapshot[models.Listing]{
				Phase: listing.PhaseError,
				State: listing.State{Page: pageOf(0)},
				Err:   "Portal unreachable",
			},
			text:   "⚠️ Portal unreachable",
			has:    []string{"pg|jobs|retry"},
			hasNot: []string{"pg|jobs|clear", "det|job|7|jobs"},
		},
		{
			name: "local filters hide a non-empty server page",
			snap: listing.Snapshot[models.Listing]{
				Phase: listing.PhaseSuccess,
				State: listing.State{
					Filters: listing.FilterState{models.FieldSkill: listing.Text("rust")},
					Page:    pageOf(25),
				},
				Count: 25,
			},
			text:   "Nothing on this page matches your filters",
			has:    []string{"pg|jobs|clear", "pg|jobs|next"},
			hasNot: []string{"pg|jobs|retry", "det|job|7|jobs"},
		},
		{
			name: "server returned nothing",
			snap: listing.Snapshot[models.Listing]{
				Phase: listing.PhaseSuccess,
				State: listing.State{Page: pageOf(0)},
			},
			text:   "😔 No jobs found\\.",
			hasNot: []string{"pg|jobs|clear", "pg|jobs|next", "pg|jobs|retry"},
		},
		{
			name: "results link to their details",
			snap: listing.Snapshot[models.Listing]{
				Phase: listing.PhaseSuccess,
				State: listing.State{Page: pageOf(1)},
				Items: []models.Listing{{ID: 7, Kind: models.KindJob, Title: "Go developer"}},
				Count: 1,
			},
			text:   "Go developer",
			has:    []string{"det|job|7|jobs"},
			hasNot: []string{"pg|jobs|retry", "pg|jobs|clear", "pg|jobs|next"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := jobs.render(schema, tc.snap)
			require.Contains(t, out.Text, tc.text)

			data := callbackData(out.Markup)
			require.Contains(t, data, "flt|jobs")
			for _, want := range tc.has {
				require.Contains(t, data, want)
			}
			for _, unwanted := range tc.hasNot {
				require.NotContains(t, data, unwanted)
			}
		})
	}
}

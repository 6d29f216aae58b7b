package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jobportal-bot/internal/listing"
)

func ptr[T any](v T) *T { return &v }

func TestJobsSchemaSearch(t *testing.T) {
	schema := JobsSchema(10)
	jobs := []Listing{
		{ID: 1, Title: "React Developer", Company: Company{Name: "Acme"}, Skills: []string{"typescript"}},
		{ID: 2, Title: "Backend Engineer", Company: Company{Name: "Globex"}, Skills: []string{"go", "postgres"}},
	}

	got := listing.Filter(jobs, listing.BuildPredicate(schema, listing.FilterState{FieldSearch: listing.Text("react")}))
	require.Len(t, got, 1)
	require.Equal(t, "React Developer", got[0].Title)

	got = listing.Filter(jobs, listing.BuildPredicate(schema, listing.FilterState{FieldSkill: listing.Text("Postgres")}))
	require.Len(t, got, 1)
	require.Equal(t, int64(2), got[0].ID)
}

func TestSalaryRange(t *testing.T) {
	schema := JobsSchema(10)
	jobs := []Listing{
		{ID: 1, SalaryMin: ptr(50000.0)},
		{ID: 2, SalaryMax: ptr(90000.0)},
		{ID: 3},
	}

	got := listing.Filter(jobs, listing.BuildPredicate(schema, listing.FilterState{
		FieldSalary: listing.Range(ptr(60000.0), nil),
	}))
	require.Len(t, got, 1)
	require.Equal(t, int64(2), got[0].ID)

	params := schema.Params(listing.Query{
		Filters: listing.FilterState{FieldSalary: listing.Range(ptr(60000.0), ptr(100000.0))},
		Sort:    schema.DefaultSort,
		Page:    1,
	})
	require.Equal(t, "60000", params.Get("salary_min"))
	require.Equal(t, "100000", params.Get("salary_max"))
	require.Equal(t, "-created_at", params.Get("ordering"))
}

func TestSchemasAreConsistent(t *testing.T) {
	check := func(name string, sortKey string, err error) {
		require.NoError(t, err, name)
		require.NotEmpty(t, sortKey, name)
	}

	js := JobsSchema(10)
	check(js.Name, js.DefaultSort.Key, js.CheckSort(js.DefaultSort))
	is := InternshipsSchema(10)
	check(is.Name, is.DefaultSort.Key, is.CheckSort(is.DefaultSort))
	as := ApplicationsSchema(10)
	check(as.Name, as.DefaultSort.Key, as.CheckSort(as.DefaultSort))
	cs := CoursesSchema(10)
	check(cs.Name, cs.DefaultSort.Key, cs.CheckSort(cs.DefaultSort))
	es := EmployerSchema(KindInternship, 10)
	check(es.Name, es.DefaultSort.Key, es.CheckSort(es.DefaultSort))
	require.Equal(t, PageEmployerInternships, es.Name)
}

func TestApplicationsSortByDate(t *testing.T) {
	schema := ApplicationsSchema(10)
	t1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	apps := []Application{
		{ID: 1, AppliedAt: &t1},
		{ID: 2, AppliedAt: &t2},
		{ID: 3},
	}

	sorted := listing.SortRecords(schema, schema.DefaultSort, apps)
	require.Equal(t, []int64{2, 1, 3}, []int64{sorted[0].ID, sorted[1].ID, sorted[2].ID})
}

func TestCandidateProfileMissing(t *testing.T) {
	p := CandidateProfile{FullName: "Sam"}
	require.Equal(t, []string{"bio", "skills", "preferences"}, p.Missing())
	require.False(t, p.Complete())

	p.Bio = "Gopher"
	p.Skills = []string{"go"}
	p.Preferences.WorkMode = "remote"
	require.True(t, p.Complete())
}

func TestDisplayName(t *testing.T) {
	require.Equal(t, "Remote", DisplayName(FieldWorkMode, "remote"))
	require.Equal(t, "Under review", DisplayName(FieldStatus, "UNDER_REVIEW"))
	require.Equal(t, "Closed", DisplayName(FieldStatus, "closed"))
	require.Equal(t, "whatever", DisplayName(FieldSearch, "whatever"))
}

func TestNewCachedListing(t *testing.T) {
	l := Listing{ID: 7, Kind: KindJob, Title: "Go Dev", Skills: []string{"go"}, Currency: "USD"}
	c, err := NewCachedListing(l)
	require.NoError(t, err)
	require.Equal(t, int64(7), c.ID)
	require.Equal(t, "USD", *c.Currency)
	require.Contains(t, string(c.RawData), `"title":"Go Dev"`)
}

package listing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type post struct {
	Title   string
	Company string
	Status  string
	Remote  bool
	Salary  *float64
	Created *time.Time
}

func num(f float64) *float64 { return &f }

func day(d int) *time.Time {
	t := time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testSchema() *Schema[post] {
	return &Schema[post]{
		Name: "posts",
		Fields: []Field[post]{
			{
				Key:  "search",
				Kind: KindText,
				Strings: []func(post) string{
					func(p post) string { return p.Title },
					func(p post) string { return p.Company },
					func(p post) string { return p.Status },
				},
			},
			{Key: "status", Kind: KindExact, Exact: func(p post) string { return p.Status }},
			{Key: "remote", Kind: KindBool, Bool: func(p post) bool { return p.Remote }, Param: "is_remote"},
			{
				Key:  "salary",
				Kind: KindRange,
				Number: func(p post) (float64, bool) {
					if p.Salary == nil {
						return 0, false
					}
					return *p.Salary, true
				},
				Param: "salary",
			},
		},
		Sorts: []SortKey[post]{
			{Key: "created", Value: func(p post) any { return p.Created }, Param: "created_at"},
			{Key: "title", Value: func(p post) any { return p.Title }},
			{Key: "salary", Value: func(p post) any { return p.Salary }},
		},
		DefaultSort: SortState{Key: "created", Direction: Desc},
		PageSize:    2,
	}
}

func samplePosts() []post {
	return []post{
		{Title: "React Developer", Company: "Acme", Status: "active", Remote: true, Salary: num(90), Created: day(3)},
		{Title: "Backend Engineer", Company: "Globex", Status: "closed", Salary: num(120), Created: day(1)},
		{Title: "Data Intern", Company: "Initech", Status: "active", Created: day(2)},
	}
}

func titles(ps []post) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Title)
	}
	return out
}

func TestBuildPredicate(t *testing.T) {
	schema := testSchema()
	posts := samplePosts()

	t.Run("all unset accepts everything", func(t *testing.T) {
		state := FilterState{
			"search": Text(""),
			"status": Text("  "),
			"remote": Flag(false),
			"salary": Range(nil, nil),
		}
		got := Filter(posts, BuildPredicate(schema, state))
		require.Len(t, got, len(posts))
	})

	t.Run("text is case-insensitive substring", func(t *testing.T) {
		got := Filter([]post{{Title: "React Developer"}, {Title: "Backend Engineer"}},
			BuildPredicate(schema, FilterState{"search": Text("react")}))
		require.Equal(t, []string{"React Developer"}, titles(got))
	})

	t.Run("text matches any configured field", func(t *testing.T) {
		got := Filter(posts, BuildPredicate(schema, FilterState{"search": Text("GLOBEX")}))
		require.Equal(t, []string{"Backend Engineer"}, titles(got))
	})

	t.Run("exact match", func(t *testing.T) {
		got := Filter(posts, BuildPredicate(schema, FilterState{"status": Text("active")}))
		require.Equal(t, []string{"React Developer", "Data Intern"}, titles(got))
	})

	t.Run("false flag imposes nothing", func(t *testing.T) {
		got := Filter(posts, BuildPredicate(schema, FilterState{"remote": Flag(false)}))
		require.Len(t, got, 3)

		got = Filter(posts, BuildPredicate(schema, FilterState{"remote": Flag(true)}))
		require.Equal(t, []string{"React Developer"}, titles(got))
	})

	t.Run("open range bounds", func(t *testing.T) {
		got := Filter(posts, BuildPredicate(schema, FilterState{"salary": Range(num(100), nil)}))
		require.Equal(t, []string{"Backend Engineer"}, titles(got))

		got = Filter(posts, BuildPredicate(schema, FilterState{"salary": Range(nil, num(100))}))
		require.Equal(t, []string{"React Developer"}, titles(got))
	})

	t.Run("inverted range matches nothing", func(t *testing.T) {
		require.NotPanics(t, func() {
			got := Filter(posts, BuildPredicate(schema, FilterState{"salary": Range(num(200), num(10))}))
			require.Empty(t, got)
		})
	})

	t.Run("filters are ANDed", func(t *testing.T) {
		got := Filter(posts, BuildPredicate(schema, FilterState{
			"status": Text("active"),
			"salary": Range(num(50), nil),
		}))
		require.Equal(t, []string{"React Developer"}, titles(got))
	})
}

func TestSortRecords(t *testing.T) {
	schema := testSchema()
	posts := samplePosts()

	asc := SortRecords(schema, SortState{Key: "created", Direction: Asc}, posts)
	require.Equal(t, []string{"Backend Engineer", "Data Intern", "React Developer"}, titles(asc))

	desc := SortRecords(schema, SortState{Key: "created", Direction: Desc}, posts)
	reversed := make([]post, len(asc))
	for i := range asc {
		reversed[len(asc)-1-i] = asc[i]
	}
	require.Equal(t, titles(reversed), titles(desc))

	byTitle := SortRecords(schema, SortState{Key: "title", Direction: Asc}, posts)
	require.Equal(t, []string{"Backend Engineer", "Data Intern", "React Developer"}, titles(byTitle))

	// missing salary sorts as zero
	bySalary := SortRecords(schema, SortState{Key: "salary", Direction: Asc}, posts)
	require.Equal(t, "Data Intern", bySalary[0].Title)

	unsorted := SortRecords(schema, SortState{}, posts)
	require.Equal(t, titles(posts), titles(unsorted))
	require.Equal(t, "React Developer", posts[0].Title, "input must not be reordered")
}

func TestCompare(t *testing.T) {
	var nilTime *time.Time
	require.Equal(t, -1, Compare(nilTime, day(1)))
	require.Equal(t, 0, Compare(time.Time{}, nilTime))
	require.Equal(t, -1, Compare("a", "b"))
	require.Equal(t, 1, Compare(int64(5), 3))
	require.Equal(t, -1, Compare(false, true))
	require.Equal(t, 0, Compare("a", 1))
}

func TestTotalPages(t *testing.T) {
	cases := []struct{ count, per, want int }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 10, 10},
		{5, 0, 0},
	}
	for _, c := range cases {
		require.Equal(t, c.want, TotalPages(c.count, c.per), "count=%d per=%d", c.count, c.per)
	}
}

func TestPageState(t *testing.T) {
	p := NewPageState(10)
	p.SetCount(0)
	require.False(t, p.HasPages())
	require.Equal(t, 1, p.CurrentPage)
	require.False(t, p.Prev())
	require.False(t, p.Next())

	p.SetCount(25)
	require.Equal(t, 3, p.TotalPages)
	require.True(t, p.Next())
	require.True(t, p.Next())
	require.False(t, p.Next(), "next is a no-op on the last page")
	require.Equal(t, 3, p.CurrentPage)

	p.SetCount(12)
	require.Equal(t, 2, p.CurrentPage, "current page is clamped")
	require.False(t, p.GoTo(5), "already on the last page")
	require.True(t, p.GoTo(1))
	require.False(t, p.Prev())

	require.True(t, p.GoTo(99))
	require.Equal(t, 2, p.CurrentPage, "jumps past the end land on the last page")
	require.True(t, p.GoTo(-3))
	require.Equal(t, 1, p.CurrentPage)

	fresh := NewPageState(10)
	require.False(t, fresh.GoTo(4), "no jump before the total is known")
	require.Equal(t, 1, fresh.CurrentPage)
}

func TestParseRange(t *testing.T) {
	v, err := ParseRange("1000-5000")
	require.NoError(t, err)
	lo, hi := v.Bounds()
	require.Equal(t, 1000.0, *lo)
	require.Equal(t, 5000.0, *hi)

	v, err = ParseRange("-5000")
	require.NoError(t, err)
	lo, hi = v.Bounds()
	require.Nil(t, lo)
	require.Equal(t, 5000.0, *hi)

	v, err = ParseRange("30 000")
	require.NoError(t, err)
	lo, _ = v.Bounds()
	require.Equal(t, 30000.0, *lo)

	v, err = ParseRange("")
	require.NoError(t, err)
	require.True(t, v.IsUnset())

	_, err = ParseRange("lots")
	require.Error(t, err)
}

func TestSchemaParams(t *testing.T) {
	schema := testSchema()
	params := schema.Params(Query{
		Filters: FilterState{
			"search": Text("go"),
			"remote": Flag(true),
			"salary": Range(num(10), nil),
		},
		Sort:     SortState{Key: "created", Direction: Desc},
		Page:     3,
		PageSize: 20,
	})

	require.Equal(t, "", params.Get("search"), "client-only fields stay local")
	require.Equal(t, "true", params.Get("is_remote"))
	require.Equal(t, "10", params.Get("salary_min"))
	require.False(t, params.Has("salary_max"))
	require.Equal(t, "-created_at", params.Get("ordering"))
	require.Equal(t, "3", params.Get("page"))
	require.Equal(t, "20", params.Get("page_size"))
}

type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[int]Page[post]
	err     error
	queries []Query
}

func (f *fakeFetcher) Fetch(_ context.Context, q Query) (Page[post], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return Page[post]{}, f.err
	}
	return f.pages[q.Page], nil
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func pagedFetcher() *fakeFetcher {
	posts := samplePosts()
	return &fakeFetcher{pages: map[int]Page[post]{
		1: {Results: posts[:2], Count: 3},
		2: {Results: posts[2:], Count: 3},
	}}
}

func TestViewLoadAndPaging(t *testing.T) {
	ctx := context.Background()
	f := pagedFetcher()
	v := New(testSchema(), f, nil, Options{})

	snap, err := v.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, PhaseSuccess, snap.Phase)
	require.Equal(t, 2, snap.State.Page.TotalPages)
	require.Equal(t, []string{"React Developer", "Backend Engineer"}, titles(snap.Items))

	t.Run("prev on page one fires nothing", func(t *testing.T) {
		before := f.calls()
		snap, err := v.Apply(ctx, PrevPage())
		require.NoError(t, err)
		require.Equal(t, 1, snap.State.Page.CurrentPage)
		require.Equal(t, before, f.calls())
	})

	t.Run("next fetches the following page", func(t *testing.T) {
		snap, err := v.Apply(ctx, NextPage())
		require.NoError(t, err)
		require.Equal(t, 2, snap.State.Page.CurrentPage)
		require.Equal(t, []string{"Data Intern"}, titles(snap.Items))

		before := f.calls()
		_, err = v.Apply(ctx, NextPage())
		require.NoError(t, err)
		require.Equal(t, before, f.calls(), "next on last page is a no-op")
	})

	t.Run("jump past the end fetches the last page", func(t *testing.T) {
		_, err := v.Apply(ctx, GoToPage(1))
		require.NoError(t, err)

		before := f.calls()
		snap, err := v.Apply(ctx, GoToPage(99))
		require.NoError(t, err)
		require.Equal(t, 2, snap.State.Page.CurrentPage)
		require.Equal(t, before+1, f.calls())
		require.Equal(t, 2, f.queries[len(f.queries)-1].Page)
	})

	t.Run("filter change resets to page one", func(t *testing.T) {
		snap, err := v.Apply(ctx, SetFilter("remote", Flag(true)))
		require.NoError(t, err)
		require.Equal(t, 1, snap.State.Page.CurrentPage)
		last := f.queries[len(f.queries)-1]
		require.Equal(t, 1, last.Page)
		require.True(t, last.Filters["remote"].FlagValue())
	})
}

func TestViewClientSideFilterSkipsFetch(t *testing.T) {
	ctx := context.Background()
	f := pagedFetcher()
	v := New(testSchema(), f, nil, Options{})

	_, err := v.Load(ctx)
	require.NoError(t, err)
	before := f.calls()

	snap, err := v.Apply(ctx, SetFilter("search", Text("react")))
	require.NoError(t, err)
	require.Equal(t, before, f.calls())
	require.Equal(t, []string{"React Developer"}, titles(snap.Items))

	// leaving server-side ordering needs a fresh page
	snap, err = v.Apply(ctx, SetSort(SortState{Key: "title", Direction: Asc}), ClearFilter("search"))
	require.NoError(t, err)
	require.Equal(t, before+1, f.calls())
	require.Equal(t, []string{"Backend Engineer", "React Developer"}, titles(snap.Items))

	snap, err = v.Apply(ctx, ToggleSort("title"))
	require.NoError(t, err)
	require.Equal(t, before+1, f.calls())
	require.Equal(t, SortState{Key: "title", Direction: Desc}, snap.State.Sort)
	require.Equal(t, []string{"React Developer", "Backend Engineer"}, titles(snap.Items))
}

func TestViewBatchFiresOneFetch(t *testing.T) {
	ctx := context.Background()
	f := pagedFetcher()
	v := New(testSchema(), f, nil, Options{})

	_, err := v.Load(ctx)
	require.NoError(t, err)
	before := f.calls()

	snap, err := v.Apply(ctx,
		NextPage(),
		SetFilter("salary", Range(num(10), nil)),
		SetSort(SortState{Key: "created", Direction: Asc}),
	)
	require.NoError(t, err)
	require.Equal(t, before+1, f.calls())
	require.Equal(t, 1, snap.State.Page.CurrentPage, "filter change wins over page change")
}

func TestViewRejectsUnknownKeys(t *testing.T) {
	ctx := context.Background()
	f := pagedFetcher()
	v := New(testSchema(), f, nil, Options{})

	_, err := v.Apply(ctx, SetFilter("colour", Text("red")))
	require.ErrorIs(t, err, ErrUnknownFilter)

	_, err = v.Apply(ctx, SetFilter("remote", Text("yes")))
	require.ErrorIs(t, err, ErrFilterKind)

	_, err = v.Apply(ctx, SetSort(SortState{Key: "colour", Direction: Asc}))
	require.ErrorIs(t, err, ErrUnknownSort)
	require.Zero(t, f.calls())
}

func TestViewEmptyAndError(t *testing.T) {
	ctx := context.Background()

	t.Run("empty result", func(t *testing.T) {
		f := &fakeFetcher{pages: map[int]Page[post]{1: {Results: []post{}, Count: 0}}}
		v := New(testSchema(), f, nil, Options{})
		snap, err := v.Load(ctx)
		require.NoError(t, err)
		require.True(t, snap.Empty())
		require.Equal(t, 0, snap.State.Page.TotalPages)
		require.False(t, snap.State.Page.HasPages())
	})

	t.Run("error discards data and retry recovers", func(t *testing.T) {
		f := pagedFetcher()
		v := New(testSchema(), f, nil, Options{Describe: func(error) string { return "backend unavailable" }})
		_, err := v.Load(ctx)
		require.NoError(t, err)

		f.err = errors.New("boom")
		snap, err := v.Apply(ctx, NextPage())
		require.Error(t, err)
		require.Equal(t, PhaseError, snap.Phase)
		require.Equal(t, "backend unavailable", snap.Err)
		require.Empty(t, snap.Items)

		f.err = nil
		snap, err = v.Retry(ctx)
		require.NoError(t, err)
		require.Equal(t, PhaseSuccess, snap.Phase)
		require.Equal(t, 2, snap.State.Page.CurrentPage)
	})

	t.Run("global errors are not installed", func(t *testing.T) {
		expired := errors.New("session expired")
		f := &fakeFetcher{err: expired}
		v := New(testSchema(), f, nil, Options{Global: func(err error) bool { return errors.Is(err, expired) }})
		snap, err := v.Load(ctx)
		require.ErrorIs(t, err, expired)
		require.Equal(t, PhaseIdle, snap.Phase)
		require.Empty(t, snap.Err)
	})

	t.Run("clear filters restores defaults", func(t *testing.T) {
		f := &fakeFetcher{pages: map[int]Page[post]{1: {Count: 0}}}
		v := New(testSchema(), f, nil, Options{})
		_, err := v.Apply(ctx, SetFilter("remote", Flag(true)))
		require.NoError(t, err)

		snap, err := v.Apply(ctx, ClearFilters())
		require.NoError(t, err)
		require.Empty(t, snap.State.Filters.Active())
		require.Equal(t, 2, f.calls())
	})
}

type gatedFetcher struct {
	release map[int]chan struct{}
	started chan int
}

func (g *gatedFetcher) Fetch(_ context.Context, q Query) (Page[post], error) {
	g.started <- q.Page
	<-g.release[q.Page]
	return Page[post]{Results: []post{{Title: "page"}}, Count: 10}, nil
}

func TestViewDiscardsStaleResponses(t *testing.T) {
	ctx := context.Background()
	g := &gatedFetcher{
		release: map[int]chan struct{}{1: make(chan struct{}), 2: make(chan struct{})},
		started: make(chan int, 2),
	}
	state := State{Page: PageState{CurrentPage: 1, ItemsPerPage: 2, TotalPages: 5}}
	v := New(testSchema(), g, &state, Options{})

	firstErr := make(chan error, 1)
	go func() {
		_, err := v.Load(ctx)
		firstErr <- err
	}()
	require.Equal(t, 1, <-g.started)

	secondErr := make(chan error, 1)
	go func() {
		_, err := v.Apply(ctx, NextPage())
		secondErr <- err
	}()
	require.Equal(t, 2, <-g.started)

	close(g.release[2])
	require.NoError(t, <-secondErr)

	close(g.release[1])
	require.ErrorIs(t, <-firstErr, ErrStale)

	require.Equal(t, 2, v.State().Page.CurrentPage)
}

func TestViewRestoresState(t *testing.T) {
	bad := State{Filters: FilterState{"colour": Text("red")}}
	v := New(testSchema(), pagedFetcher(), &bad, Options{})
	require.Equal(t, SortState{Key: "created", Direction: Desc}, v.State().Sort)
	require.Empty(t, v.State().Filters)

	good := State{
		Filters: FilterState{"remote": Flag(true)},
		Sort:    SortState{Key: "title", Direction: Asc},
		Page:    PageState{CurrentPage: 2, ItemsPerPage: 2, TotalPages: 2},
	}
	v = New(testSchema(), pagedFetcher(), &good, Options{})
	require.Equal(t, good.Sort, v.State().Sort)
	require.Equal(t, 2, v.State().Page.CurrentPage)
}

package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"jobportal-bot/internal/listing"
	"jobportal-bot/internal/models"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestJobsCommand(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []url.Values
		auth    []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/jobs/", r.URL.Path)
		mu.Lock()
		queries = append(queries, r.URL.Query())
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count": 1,
			"results": []map[string]any{
				{"id": 7, "title": "Go developer", "company": map[string]any{"name": "Acme"}, "location": "Berlin"},
			},
		})
	}))
	defer srv.Close()

	out, err := runCLI(t,
		"--base-url", srv.URL,
		"--token", "tok",
		"jobs",
		"--search", "golang",
		"--filter", "salary=1000-",
		"--sort", "salary:asc",
	)
	require.NoError(t, err)

	require.Contains(t, out, "Go developer")
	require.Contains(t, out, "Acme")
	require.Contains(t, out, "Page 1 of 1 · 1 result")

	// the whole batch is one fetch
	require.Len(t, queries, 1)
	q := queries[0]
	require.Equal(t, "golang", q.Get("search"))
	require.Equal(t, "1000", q.Get("salary_min"))
	require.Empty(t, q.Get("salary_max"))
	require.Equal(t, "salary_min", q.Get("ordering"))
	require.Equal(t, "Bearer tok", auth[0])
}

func TestJobsCommandClampsPage(t *testing.T) {
	var (
		mu    sync.Mutex
		pages []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pages = append(pages, r.URL.Query().Get("page"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count":   25,
			"results": []map[string]any{{"id": 1, "title": "Go developer"}},
		})
	}))
	defer srv.Close()

	out, err := runCLI(t, "--base-url", srv.URL, "jobs", "--page", "99", "--page-size", "10")
	require.NoError(t, err)

	require.Equal(t, []string{"1", "3"}, pages)
	require.Contains(t, out, "page 99 is out of range, showing page 3")
	require.Contains(t, out, "Page 3 of 3 · 25 results")
}

func TestJobsCommandRejectsUnknownFilter(t *testing.T) {
	_, err := runCLI(t, "--base-url", "http://127.0.0.1:1", "jobs", "--filter", "colour=red")
	require.ErrorContains(t, err, "unknown key")
}

func TestParseSort(t *testing.T) {
	st, err := parseSort("salary")
	require.NoError(t, err)
	require.Equal(t, listing.SortState{Key: "salary", Direction: listing.Desc}, st)

	st, err = parseSort("title:ASC")
	require.NoError(t, err)
	require.Equal(t, listing.Asc, st.Direction)

	_, err = parseSort("title:up")
	require.Error(t, err)
}

func TestParseFilter(t *testing.T) {
	schema := models.InternshipsSchema(10)

	_, err := parseFilter(schema, "paid=yes")
	require.Error(t, err)

	_, err = parseFilter(schema, "paid=true")
	require.NoError(t, err)

	_, err = parseFilter(schema, "stipend=abc")
	require.Error(t, err)

	_, err = parseFilter(schema, "novalue")
	require.Error(t, err)
}

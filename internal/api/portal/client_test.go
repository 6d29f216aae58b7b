package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"jobportal-bot/internal/listing"
	"jobportal-bot/internal/models"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, 0, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListListings(t *testing.T) {
	var gotQuery url.Values
	var gotRequestID string

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/jobs/", r.URL.Path)
		gotQuery = r.URL.Query()
		gotRequestID = r.Header.Get(RequestIDHeader)
		writeJSON(w, http.StatusOK, map[string]any{
			"count": 11,
			"results": []map[string]any{
				{"id": 1, "title": "React Developer", "company": map[string]any{"id": 3, "name": "Acme"}},
			},
		})
	}))

	schema := models.JobsSchema(10)
	fetcher := c.ListingFetcher(models.KindJob, schema)
	page, err := fetcher.Fetch(context.Background(), listing.Query{
		Filters:  listing.FilterState{models.FieldWorkMode: listing.Text("remote"), models.FieldSkill: listing.Text("go")},
		Sort:     schema.DefaultSort,
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 11, page.Count)
	require.Len(t, page.Results, 1)
	require.Equal(t, models.KindJob, page.Results[0].Kind)
	require.Equal(t, "Acme", page.Results[0].Company.Name)

	require.Equal(t, "remote", gotQuery.Get("work_mode"))
	require.False(t, gotQuery.Has("skill"))
	require.Equal(t, "2", gotQuery.Get("page"))
	require.Equal(t, "10", gotQuery.Get("page_size"))
	require.Equal(t, "-created_at", gotQuery.Get("ordering"))
	require.NotEmpty(t, gotRequestID)
}

func TestEmptyPage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 0, "results": []any{}})
	}))

	page, err := c.ListApplications(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, page.Count)
	require.NotNil(t, page.Results)
	require.Empty(t, page.Results)
}

func TestRefreshAndReplay(t *testing.T) {
	var listCalls, refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/applications/", func(w http.ResponseWriter, r *http.Request) {
		listCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": 1, "results": []map[string]any{{"id": 9, "status": "APPLIED"}}})
	})
	mux.HandleFunc("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		require.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "r1", body["refresh"])
		writeJSON(w, http.StatusOK, map[string]string{"access": "fresh"})
	})

	base := newTestClient(t, mux)
	store := &MemoryTokenStore{}
	require.NoError(t, store.SaveTokens(context.Background(), models.Tokens{Access: "stale", Refresh: "r1"}))
	c := base.WithSession(NewSession(store, base, zap.NewNop()))

	page, err := c.ListApplications(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	require.Equal(t, int32(2), listCalls.Load())
	require.Equal(t, int32(1), refreshCalls.Load())

	saved, err := store.LoadTokens(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.Tokens{Access: "fresh", Refresh: "r1"}, saved)
}

func TestRefreshFailureExpiresSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/courses/my/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
	})
	mux.HandleFunc("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is blacklisted"})
	})

	base := newTestClient(t, mux)
	store := &MemoryTokenStore{}
	require.NoError(t, store.SaveTokens(context.Background(), models.Tokens{Access: "a", Refresh: "r"}))
	session := NewSession(store, base, zap.NewNop())
	c := base.WithSession(session)

	_, err := c.ListCourses(context.Background(), nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.False(t, session.Authenticated(context.Background()))

	_, err = store.LoadTokens(context.Background())
	require.ErrorIs(t, err, ErrNoTokens)
}

// brokenStore fails writes once configured to.
type brokenStore struct {
	MemoryTokenStore
	saveErr  error
	clearErr error
}

func (b *brokenStore) SaveTokens(ctx context.Context, tokens models.Tokens) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	return b.MemoryTokenStore.SaveTokens(ctx, tokens)
}

func (b *brokenStore) ClearTokens(ctx context.Context) error {
	if b.clearErr != nil {
		return b.clearErr
	}
	return b.MemoryTokenStore.ClearTokens(ctx)
}

type refresherFunc func(ctx context.Context, refresh string) (models.Tokens, error)

func (f refresherFunc) RefreshTokens(ctx context.Context, refresh string) (models.Tokens, error) {
	return f(ctx, refresh)
}

func TestRefreshKeepsRotatedTokensWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)

	store := &brokenStore{}
	require.NoError(t, store.SaveTokens(ctx, models.Tokens{Access: "old", Refresh: "r-old"}))
	store.saveErr = errors.New("redis down")

	rotate := refresherFunc(func(_ context.Context, refresh string) (models.Tokens, error) {
		require.Equal(t, "r-old", refresh)
		return models.Tokens{Access: "new", Refresh: "r-new"}, nil
	})
	session := NewSession(store, rotate, zap.New(core))

	require.Equal(t, Refreshed, session.Refresh(ctx))

	token, err := session.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", token)
	require.Equal(t, 1, logs.FilterMessage("failed to persist refreshed tokens").Len())

	// a second refresh uses the rotated refresh token
	rotate = func(_ context.Context, refresh string) (models.Tokens, error) {
		require.Equal(t, "r-new", refresh)
		return models.Tokens{Access: "newer"}, nil
	}
	session.refresher = rotate
	require.Equal(t, Refreshed, session.Refresh(ctx))
}

func TestRefreshFailureLogsClearError(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)

	store := &brokenStore{}
	require.NoError(t, store.SaveTokens(ctx, models.Tokens{Access: "a", Refresh: "r"}))
	store.clearErr = errors.New("redis down")

	reject := refresherFunc(func(context.Context, string) (models.Tokens, error) {
		return models.Tokens{}, &APIError{Status: http.StatusUnauthorized}
	})
	session := NewSession(store, reject, zap.New(core))

	require.Equal(t, RefreshFailed, session.Refresh(ctx))
	require.False(t, session.Authenticated(ctx))
	require.Equal(t, 1, logs.FilterMessage("failed to clear expired tokens").Len())
}

func TestRefreshNetworkFailureKeepsTokens(t *testing.T) {
	ctx := context.Background()

	store := &MemoryTokenStore{}
	require.NoError(t, store.SaveTokens(ctx, models.Tokens{Access: "a", Refresh: "r"}))

	offline := refresherFunc(func(context.Context, string) (models.Tokens, error) {
		return models.Tokens{}, ErrNetwork
	})
	session := NewSession(store, offline, zap.NewNop())

	require.Equal(t, RefreshUnavailable, session.Refresh(ctx))
	token, err := session.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", token)
}

func TestValidationError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"email":    []string{"user with this email already exists."},
			"password": []string{"This password is too short."},
		})
	}))

	err := c.Register(context.Background(), models.Registration{Email: "a@b.co"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "user with this email already exists.", apiErr.FieldError("email"))
	require.Equal(t,
		"email: user with this email already exists.; password: This password is too short.",
		Describe(err),
	)
}

func TestVerifyOTPMessageVerbatim(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid or expired OTP."})
	}))

	_, err := c.VerifyOTP(context.Background(), "a@b.co", "123456")
	require.Error(t, err)
	require.Equal(t, "Invalid or expired OTP.", Describe(err))
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	}))

	_, err := c.GetListing(context.Background(), models.KindInternship, 4)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL, time.Second, 0, zap.NewNop())
	_, err := c.ListListings(context.Background(), models.KindJob, nil)
	require.ErrorIs(t, err, ErrNetwork)
	require.Contains(t, Describe(err), "Could not reach")
}

func TestDashboardFailsAsWhole(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/employer/jobs/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 1, "results": []map[string]any{{"id": 1}}})
	})
	mux.HandleFunc("/api/employer/internships/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})

	c := newTestClient(t, mux)
	dash, err := c.Dashboard(context.Background(), nil)
	require.Error(t, err)
	require.Nil(t, dash)

	mux2 := http.NewServeMux()
	mux2.HandleFunc("/api/employer/jobs/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 2, "results": []map[string]any{{"id": 1}, {"id": 2}}})
	})
	mux2.HandleFunc("/api/employer/internships/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 0, "results": []any{}})
	})

	c = newTestClient(t, mux2)
	dash, err = c.Dashboard(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, dash.JobsCount)
	require.Len(t, dash.Jobs, 2)
	require.Equal(t, models.KindJob, dash.Jobs[0].Kind)
	require.Zero(t, dash.InternshipsCount)
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestValidateLogo(t *testing.T) {
	require.NoError(t, ValidateLogo(Upload{Name: "logo.png", Data: pngHeader}))
	require.ErrorIs(t, ValidateLogo(Upload{Name: "logo.png"}), ErrFileEmpty)
	require.ErrorIs(t, ValidateLogo(Upload{Name: "logo.txt", Data: []byte("hello world")}), ErrFileType)

	big := append(bytes.Clone(pngHeader), make([]byte, MaxLogoSize)...)
	require.ErrorIs(t, ValidateLogo(Upload{Name: "big.png", Data: big}), ErrFileTooLarge)

	require.NoError(t, ValidateDocument(Upload{Name: "cv.pdf", Data: []byte("%PDF-1.4\n")}))
}

func TestSaveEmployerProfileMultipart(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(MaxLogoSize))
		require.Equal(t, "Acme", r.FormValue("company_name"))
		f, hdr, err := r.FormFile("logo")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "logo.png", hdr.Filename)
		writeJSON(w, http.StatusOK, map[string]string{"company_name": "Acme", "logo_url": "/media/logo.png"})
	}))

	saved, err := c.SaveEmployerProfile(context.Background(),
		models.EmployerProfile{CompanyName: "Acme"},
		&Upload{Name: "logo.png", Data: pngHeader},
	)
	require.NoError(t, err)
	require.Equal(t, "/media/logo.png", saved.LogoURL)
}

func TestDescribe(t *testing.T) {
	require.Empty(t, Describe(nil))
	require.Contains(t, Describe(ErrSessionExpired), "/login")
	require.Equal(t, "Something went wrong. Please try again.", Describe(errors.New("x")))
	require.Equal(t, "request failed with status 500", Describe(&APIError{Status: 500}))
}

func TestLoginReportsRole(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login/", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"tokens": map[string]string{"access": "a", "refresh": "r"},
			"user":   map[string]string{"role": "employer"},
		})
	}))

	tokens, role, err := c.Login(context.Background(), "a@b.co", "secret123")
	require.NoError(t, err)
	require.Equal(t, models.Tokens{Access: "a", Refresh: "r"}, tokens)
	require.Equal(t, models.RoleEmployer, role)
}

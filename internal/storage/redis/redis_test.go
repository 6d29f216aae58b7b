package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/listing"
	"jobportal-bot/internal/models"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client, zap.NewNop()), mr
}

func TestViewState(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	got, err := c.GetViewState(ctx, 1, models.PageJobs)
	require.NoError(t, err)
	require.Nil(t, got)

	lo := 1000.0
	state := listing.State{
		Filters: listing.FilterState{
			models.FieldSearch: listing.Text("react"),
			models.FieldSalary: listing.Range(&lo, nil),
		},
		Sort: listing.SortState{Key: models.SortCreated, Direction: listing.Desc},
		Page: listing.PageState{CurrentPage: 2, ItemsPerPage: 10, TotalPages: 4},
	}
	require.NoError(t, c.SetViewState(ctx, 1, models.PageJobs, state))

	got, err = c.GetViewState(ctx, 1, models.PageJobs)
	require.NoError(t, err)
	require.Equal(t, state.Sort, got.Sort)
	require.Equal(t, state.Page, got.Page)
	require.True(t, state.Filters.Equal(got.Filters))

	mr.FastForward(ViewStateTTL + time.Second)
	got, err = c.GetViewState(ctx, 1, models.PageJobs)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestConversation(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	state, err := c.GetConversation(ctx, 5)
	require.NoError(t, err)
	require.Empty(t, state)

	require.NoError(t, c.SetConversation(ctx, 5, "awaiting_filter:jobs:search"))
	state, err = c.GetConversation(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, "awaiting_filter:jobs:search", state)

	require.NoError(t, c.DeleteConversation(ctx, 5))
	state, err = c.GetConversation(ctx, 5)
	require.NoError(t, err)
	require.Empty(t, state)
}

func TestTokenStore(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	store := c.TokenStore(9)

	_, err := store.LoadTokens(ctx)
	require.ErrorIs(t, err, portal.ErrNoTokens)

	require.NoError(t, store.SaveTokens(ctx, models.Tokens{Access: "a", Refresh: "r"}))
	tokens, err := store.LoadTokens(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", tokens.Access)

	// other users do not see them
	_, err = c.TokenStore(10).LoadTokens(ctx)
	require.ErrorIs(t, err, portal.ErrNoTokens)

	require.NoError(t, store.ClearTokens(ctx))
	_, err = store.LoadTokens(ctx)
	require.ErrorIs(t, err, portal.ErrNoTokens)
}

func TestSequencer(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	a := c.Sequencer(1, models.PageJobs)
	b := c.Sequencer(1, models.PageJobs)

	latest, err := a.Latest(ctx)
	require.NoError(t, err)
	require.Zero(t, latest)

	first, err := a.Next(ctx)
	require.NoError(t, err)
	second, err := b.Next(ctx)
	require.NoError(t, err)
	require.Greater(t, second, first)

	latest, err = a.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, second, latest)

	other, err := c.Sequencer(1, models.PageInternships).Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), other)
}

func TestOTPCooldown(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	left, err := c.StartOTPCooldown(ctx, "a@b.co", time.Minute)
	require.NoError(t, err)
	require.Zero(t, left)

	mr.FastForward(20 * time.Second)
	left, err = c.StartOTPCooldown(ctx, "a@b.co", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 40*time.Second, left)

	mr.FastForward(41 * time.Second)
	left, err = c.StartOTPCooldown(ctx, "a@b.co", time.Minute)
	require.NoError(t, err)
	require.Zero(t, left)
}

type wizardState struct {
	Step  string `json:"step"`
	Email string `json:"email"`
}

func TestWizardState(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	var w wizardState
	ok, err := c.GetWizard(ctx, 3, "register", &w)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.SetWizard(ctx, 3, "register", wizardState{Step: "otp", Email: "a@b.co"}))
	ok, err = c.GetWizard(ctx, 3, "register", &w)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "otp", w.Step)
}

func TestRateLimitCounter(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	for i := 1; i <= 3; i++ {
		n, err := c.IncrementUserRateLimit(ctx, 4)
		require.NoError(t, err)
		require.Equal(t, int64(i), n)
	}

	mr.FastForward(RateLimitWindowTTL + time.Second)
	n, err := c.IncrementUserRateLimit(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

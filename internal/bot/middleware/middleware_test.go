package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

func TestLocalLimiterBurst(t *testing.T) {
	l := newLocalLimiter()

	for i := 0; i < MaxRequestsPerMinute; i++ {
		require.True(t, l.Allow(1), "request %d", i+1)
	}
	require.False(t, l.Allow(1))

	// users are limited independently
	require.True(t, l.Allow(2))
}

func TestLocalLimiterEvictsIdleUsers(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newLocalLimiter()
	l.now = func() time.Time { return now }

	for id := int64(1); id <= 100; id++ {
		require.True(t, l.Allow(id))
	}
	require.Len(t, l.limiters, 100)

	now = now.Add(localIdleTTL / 2)
	require.True(t, l.Allow(1))

	now = now.Add(localIdleTTL / 2)
	require.True(t, l.Allow(101))
	require.Len(t, l.limiters, 2, "only users seen within the idle window stay")
	require.Contains(t, l.limiters, int64(1))
	require.Contains(t, l.limiters, int64(101))
}

func TestMessageType(t *testing.T) {
	require.Equal(t, "command", messageType(&tele.Message{Text: "/jobs"}))
	require.Equal(t, "message", messageType(&tele.Message{Text: "hunter2"}))
	require.Equal(t, "document", messageType(&tele.Message{Document: &tele.Document{}}))
	require.Equal(t, "photo", messageType(&tele.Message{Photo: &tele.Photo{}}))
}

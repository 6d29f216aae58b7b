package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jobportal-bot/internal/storage/redis"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"
)

const (
	MaxRequestsPerMinute = 50
)

// counter counts requests per user in a fixed window.
type counter interface {
	IncrementUserRateLimit(ctx context.Context, userID int64) (int64, error)
}

// localIdleTTL is how long an unused per-user limiter is kept. A limiter
// idle for a full minute is back to its burst, so dropping it is lossless.
const localIdleTTL = 10 * time.Minute

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter takes over while Redis is unreachable, so a Redis outage
// does not lift the limit.
type localLimiter struct {
	mu        sync.Mutex
	limiters  map[int64]*localEntry
	lastSweep time.Time
	now       func() time.Time
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{limiters: make(map[int64]*localEntry), now: time.Now}
}

func (l *localLimiter) Allow(userID int64) bool {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= localIdleTTL {
		l.sweep(now)
	}
	e, ok := l.limiters[userID]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(rate.Every(time.Minute/MaxRequestsPerMinute), MaxRequestsPerMinute)}
		l.limiters[userID] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

func (l *localLimiter) sweep(now time.Time) {
	for id, e := range l.limiters {
		if now.Sub(e.lastSeen) >= localIdleTTL {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

func RateLimit(cache *redis.Cache, logger *zap.Logger) tele.MiddlewareFunc {
	return rateLimit(cache, newLocalLimiter(), logger)
}

func rateLimit(cache counter, local *localLimiter, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			allowed := true
			count, err := cache.IncrementUserRateLimit(ctx, user.ID)
			if err != nil {
				logger.Error("failed to check rate limit",
					zap.Int64("user_id", user.ID),
					zap.Error(err),
				)
				allowed = local.Allow(user.ID)
			} else if count > MaxRequestsPerMinute {
				allowed = false
			}

			if allowed {
				return next(c)
			}

			logger.Warn("rate limit exceeded",
				zap.Int64("user_id", user.ID),
				zap.Int64("count", count),
			)

			if c.Callback() != nil {
				return c.Respond(&tele.CallbackResponse{Text: "⚠️ Too many requests, wait a minute"})
			}
			return c.Reply(fmt.Sprintf(
				"⚠️ Too many requests. Please wait a minute.\n"+
					"Limit: %d requests per minute.",
				MaxRequestsPerMinute,
			))
		}
	}
}

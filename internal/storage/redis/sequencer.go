package redis

import (
	"context"

	"jobportal-bot/internal/listing"
)

// Sequencer hands out request tickets for one user's page. Concurrent
// updates of the same chat share the counter, so only the latest fetch
// is rendered.
type Sequencer struct {
	cache *Cache
	key   string
}

func (c *Cache) Sequencer(userID int64, page string) *Sequencer {
	return &Sequencer{cache: c, key: SequenceKey(userID, page)}
}

func (s *Sequencer) Next(ctx context.Context) (uint64, error) {
	n, err := s.cache.IncrementWithExpiry(ctx, s.key, SequenceTTL)
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func (s *Sequencer) Latest(ctx context.Context) (uint64, error) {
	n, err := s.cache.GetInt(ctx, s.key)
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

var _ listing.Sequencer = (*Sequencer)(nil)

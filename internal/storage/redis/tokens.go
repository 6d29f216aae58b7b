package redis

import (
	"context"
	"errors"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/models"
)

// TokenStore persists one user's portal tokens; it implements
// portal.TokenStore.
type TokenStore struct {
	cache  *Cache
	userID int64
}

func (c *Cache) TokenStore(userID int64) *TokenStore {
	return &TokenStore{cache: c, userID: userID}
}

func (s *TokenStore) LoadTokens(ctx context.Context) (models.Tokens, error) {
	var tokens models.Tokens
	err := s.cache.Get(ctx, TokensKey(s.userID), &tokens)
	if errors.Is(err, ErrNotFound) {
		return models.Tokens{}, portal.ErrNoTokens
	}
	return tokens, err
}

func (s *TokenStore) SaveTokens(ctx context.Context, tokens models.Tokens) error {
	return s.cache.Set(ctx, TokensKey(s.userID), tokens, TokensTTL)
}

func (s *TokenStore) ClearTokens(ctx context.Context) error {
	return s.cache.Delete(ctx, TokensKey(s.userID))
}

var _ portal.TokenStore = (*TokenStore)(nil)

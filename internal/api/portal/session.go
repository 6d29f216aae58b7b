package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"jobportal-bot/internal/models"
)

// TokenStore persists the token pair of one session.
type TokenStore interface {
	LoadTokens(ctx context.Context) (models.Tokens, error)
	SaveTokens(ctx context.Context, tokens models.Tokens) error
	ClearTokens(ctx context.Context) error
}

// MemoryTokenStore keeps tokens in process memory.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens *models.Tokens
}

func (m *MemoryTokenStore) LoadTokens(context.Context) (models.Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return models.Tokens{}, ErrNoTokens
	}
	return *m.tokens, nil
}

func (m *MemoryTokenStore) SaveTokens(_ context.Context, tokens models.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = &tokens
	return nil
}

func (m *MemoryTokenStore) ClearTokens(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = nil
	return nil
}

// Refresher exchanges a refresh token for a new pair.
type Refresher interface {
	RefreshTokens(ctx context.Context, refresh string) (models.Tokens, error)
}

type RefreshResult int

const (
	Refreshed RefreshResult = iota
	// RefreshFailed means the refresh token was rejected or missing; the
	// session has been cleared.
	RefreshFailed
	// RefreshUnavailable means the refresh call never reached the portal;
	// tokens are kept.
	RefreshUnavailable
)

func (r RefreshResult) String() string {
	switch r {
	case Refreshed:
		return "refreshed"
	case RefreshFailed:
		return "failed"
	case RefreshUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Session owns the tokens of one portal account. Reads take the read
// lock; login, refresh and logout are the only writers.
type Session struct {
	store     TokenStore
	refresher Refresher
	logger    *zap.Logger

	mu     sync.RWMutex
	loaded bool
	tokens models.Tokens
}

func NewSession(store TokenStore, refresher Refresher, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{store: store, refresher: refresher, logger: logger}
}

func (s *Session) load(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	tokens, err := s.store.LoadTokens(ctx)
	if err != nil && !errors.Is(err, ErrNoTokens) {
		return fmt.Errorf("load tokens: %w", err)
	}
	s.tokens = tokens
	s.loaded = true
	return nil
}

// AccessToken returns the current bearer token, empty when logged out.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	if err := s.load(ctx); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access, nil
}

func (s *Session) Authenticated(ctx context.Context) bool {
	token, err := s.AccessToken(ctx)
	return err == nil && token != ""
}

// Set installs a freshly issued pair, e.g. after login or OTP verification.
func (s *Session) Set(ctx context.Context, tokens models.Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveTokens(ctx, tokens); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	s.tokens = tokens
	s.loaded = true
	return nil
}

func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

func (s *Session) clearLocked(ctx context.Context) error {
	s.tokens = models.Tokens{}
	s.loaded = true
	if err := s.store.ClearTokens(ctx); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// Refresh exchanges the refresh token for a new pair.
func (s *Session) Refresh(ctx context.Context) RefreshResult {
	return s.refreshFrom(ctx, "")
}

// refreshFrom refreshes unless the access token already moved on from
// stale, in which case a concurrent caller refreshed first.
func (s *Session) refreshFrom(ctx context.Context, stale string) RefreshResult {
	if err := s.load(ctx); err != nil {
		s.logger.Warn("failed to load tokens for refresh", zap.Error(err))
		return RefreshUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stale != "" && s.tokens.Access != "" && s.tokens.Access != stale {
		return Refreshed
	}

	if s.tokens.Refresh == "" || s.refresher == nil {
		s.expireLocked(ctx)
		return RefreshFailed
	}

	tokens, err := s.refresher.RefreshTokens(ctx, s.tokens.Refresh)
	if err != nil {
		if errors.Is(err, ErrNetwork) {
			return RefreshUnavailable
		}
		s.logger.Info("token refresh rejected", zap.Error(err))
		s.expireLocked(ctx)
		return RefreshFailed
	}

	// the portal may not rotate refresh tokens
	if tokens.Refresh == "" {
		tokens.Refresh = s.tokens.Refresh
	}
	// the portal already revoked the old pair, so the new one is used
	// even when it cannot be persisted
	s.tokens = tokens
	if err := s.store.SaveTokens(ctx, tokens); err != nil {
		s.logger.Error("failed to persist refreshed tokens", zap.Error(err))
	}
	return Refreshed
}

// expireLocked drops the tokens after a failed refresh. The in-memory
// session is cleared even when the store is not.
func (s *Session) expireLocked(ctx context.Context) {
	if err := s.clearLocked(ctx); err != nil {
		s.logger.Error("failed to clear expired tokens", zap.Error(err))
	}
}

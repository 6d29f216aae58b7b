package redis

import (
	"context"
	"errors"
	"time"

	"jobportal-bot/internal/listing"
)

// GetViewState returns nil, nil when no state is stored for the page.
func (c *Cache) GetViewState(ctx context.Context, userID int64, page string) (*listing.State, error) {
	var state listing.State
	err := c.Get(ctx, ViewStateKey(userID, page), &state)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Cache) SetViewState(ctx context.Context, userID int64, page string, state listing.State) error {
	return c.Set(ctx, ViewStateKey(userID, page), state, ViewStateTTL)
}

// SetConversation records which input the bot is waiting for.
func (c *Cache) SetConversation(ctx context.Context, userID int64, state string) error {
	return c.SetString(ctx, ConversationKey(userID), state, ConversationTTL)
}

// GetConversation returns "" when the user is not in a conversation.
func (c *Cache) GetConversation(ctx context.Context, userID int64) (string, error) {
	state, err := c.GetString(ctx, ConversationKey(userID))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return state, err
}

func (c *Cache) DeleteConversation(ctx context.Context, userID int64) error {
	return c.Delete(ctx, ConversationKey(userID))
}

// SetWizard stores a wizard snapshot; dest types are owned by the caller.
func (c *Cache) SetWizard(ctx context.Context, userID int64, wizard string, snapshot interface{}) error {
	return c.Set(ctx, WizardKey(userID, wizard), snapshot, WizardStateTTL)
}

// GetWizard reports false when no wizard of that name is in progress.
func (c *Cache) GetWizard(ctx context.Context, userID int64, wizard string, dest interface{}) (bool, error) {
	err := c.Get(ctx, WizardKey(userID, wizard), dest)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) DeleteWizard(ctx context.Context, userID int64, wizard string) error {
	return c.Delete(ctx, WizardKey(userID, wizard))
}

// StartOTPCooldown claims the resend slot for email. It returns the time
// left when a cooldown is already running.
func (c *Cache) StartOTPCooldown(ctx context.Context, email string, d time.Duration) (time.Duration, error) {
	key := OTPCooldownKey(email)
	ok, err := c.SetNX(ctx, key, "1", d)
	if err != nil {
		return 0, err
	}
	if ok {
		return 0, nil
	}
	left, err := c.TTL(ctx, key)
	if err != nil {
		return 0, err
	}
	if left == 0 {
		// expired between the two calls
		left = time.Second
	}
	return left, nil
}

func (c *Cache) IncrementUserRateLimit(ctx context.Context, userID int64) (int64, error) {
	return c.IncrementWithExpiry(ctx, RateLimitKey(userID), RateLimitWindowTTL)
}

func (c *Cache) SetTempData(ctx context.Context, userID int64, key string, value interface{}, ttl time.Duration) error {
	return c.Set(ctx, tempKey(userID, key), value, ttl)
}

func (c *Cache) GetTempData(ctx context.Context, userID int64, key string, dest interface{}) error {
	return c.Get(ctx, tempKey(userID, key), dest)
}

func (c *Cache) DeleteTempData(ctx context.Context, userID int64, key string) error {
	return c.Delete(ctx, tempKey(userID, key))
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gocraft/dbr/v2"
	"go.uber.org/zap"

	"jobportal-bot/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.sess.
		InsertInto("users").
		Columns("id", "username", "first_name", "last_name", "created_at", "notify_enabled", "notify_interval").
		Values(user.ID, user.Username, user.FirstName, user.LastName, time.Now(), user.NotifyEnabled, user.NotifyInterval).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to create user",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created",
		zap.Int64("user_id", user.ID),
		zap.Stringp("username", user.Username),
	)

	return nil
}

// GetUser returns nil, nil when the chat is unknown.
func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User

	err := s.sess.
		Select("*").
		From("users").
		Where("id = ?", userID).
		LoadOneContext(ctx, &user)

	if errors.Is(err, dbr.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		s.logger.Error("failed to get user",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (s *Store) GetOrCreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	existing, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return existing, nil
	}

	if err := s.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	_, err := s.sess.
		Update("users").
		Set("username", user.Username).
		Set("first_name", user.FirstName).
		Set("last_name", user.LastName).
		Set("notify_enabled", user.NotifyEnabled).
		Set("notify_interval", user.NotifyInterval).
		Where("id = ?", user.ID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to update user",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

// LinkPortalAccount records which portal account the chat is logged in as.
func (s *Store) LinkPortalAccount(ctx context.Context, userID int64, email string, role models.Role) error {
	_, err := s.sess.
		Update("users").
		Set("portal_email", email).
		Set("portal_role", string(role)).
		Where("id = ?", userID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to link portal account",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("link portal account: %w", err)
	}

	s.logger.Info("portal account linked",
		zap.Int64("user_id", userID),
		zap.String("role", string(role)),
	)

	return nil
}

func (s *Store) UnlinkPortalAccount(ctx context.Context, userID int64) error {
	_, err := s.sess.
		Update("users").
		Set("portal_email", nil).
		Set("portal_role", nil).
		Set("notify_enabled", false).
		Where("id = ?", userID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to unlink portal account",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("unlink portal account: %w", err)
	}

	return nil
}

func (s *Store) UpdateLastCheck(ctx context.Context, userID int64) error {
	_, err := s.sess.
		Update("users").
		Set("last_check", time.Now()).
		Where("id = ?", userID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to update last check",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("update last check: %w", err)
	}

	return nil
}

func (s *Store) SetNotifyEnabled(ctx context.Context, userID int64, enabled bool) error {
	_, err := s.sess.
		Update("users").
		Set("notify_enabled", enabled).
		Where("id = ?", userID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to set notify enabled",
			zap.Int64("user_id", userID),
			zap.Bool("enabled", enabled),
			zap.Error(err),
		)
		return fmt.Errorf("set notify enabled: %w", err)
	}

	s.logger.Info("notifications toggled",
		zap.Int64("user_id", userID),
		zap.Bool("enabled", enabled),
	)

	return nil
}

func (s *Store) SetNotifyInterval(ctx context.Context, userID int64, intervalMinutes int) error {
	_, err := s.sess.
		Update("users").
		Set("notify_interval", intervalMinutes).
		Where("id = ?", userID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to set notify interval",
			zap.Int64("user_id", userID),
			zap.Int("interval", intervalMinutes),
			zap.Error(err),
		)
		return fmt.Errorf("set notify interval: %w", err)
	}

	return nil
}

// GetUsersToCheck returns linked users with notifications on whose
// interval has elapsed.
func (s *Store) GetUsersToCheck(ctx context.Context) ([]models.User, error) {
	var users []models.User

	query := `
		SELECT * FROM users
		WHERE notify_enabled = true
		AND portal_email IS NOT NULL
		AND (
			last_check IS NULL
			OR NOW() - last_check >= make_interval(mins => notify_interval)
		)
	`

	_, err := s.sess.
		SelectBySql(query).
		LoadContext(ctx, &users)

	if err != nil {
		s.logger.Error("failed to get users to check", zap.Error(err))
		return nil, fmt.Errorf("get users to check: %w", err)
	}

	s.logger.Debug("users to check",
		zap.Int("count", len(users)),
	)

	return users, nil
}

type UserStats struct {
	SavedViews   int
	SeenListings int
}

func (s *Store) GetUserStats(ctx context.Context, userID int64) (*UserStats, error) {
	var stats UserStats

	err := s.sess.
		Select("COUNT(*)").
		From("saved_views").
		Where("user_id = ?", userID).
		LoadOneContext(ctx, &stats.SavedViews)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get saved view count: %w", err)
	}

	err = s.sess.
		Select("COUNT(*)").
		From("user_seen_listings").
		Where("user_id = ?", userID).
		LoadOneContext(ctx, &stats.SeenListings)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get seen count: %w", err)
	}

	return &stats, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gocraft/dbr/v2"
	"go.uber.org/zap"

	"jobportal-bot/internal/listing"
	"jobportal-bot/internal/models"
)

// SaveView upserts the filter/sort state a user saved for a page.
func (s *Store) SaveView(ctx context.Context, userID int64, page string, state listing.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal view state: %w", err)
	}

	query := `
		INSERT INTO saved_views (user_id, page, state, created_at, updated_at)
		VALUES (?, ?, ?, NOW(), NOW())
		ON CONFLICT (user_id, page)
		DO UPDATE SET
			state      = EXCLUDED.state,
			updated_at = NOW()
	`

	_, err = s.sess.
		InsertBySql(query, userID, page, models.RawJSON(data)).
		ExecContext(ctx)
	if err != nil {
		s.logger.Error("failed to save view",
			zap.Int64("user_id", userID),
			zap.String("page", page),
			zap.Error(err),
		)
		return fmt.Errorf("save view: %w", err)
	}

	s.logger.Info("view saved",
		zap.Int64("user_id", userID),
		zap.String("page", page),
		zap.Strings("filters", state.Filters.Active()),
	)

	return nil
}

// GetView returns nil, nil when nothing is saved for the page.
func (s *Store) GetView(ctx context.Context, userID int64, page string) (*listing.State, error) {
	var view models.SavedView

	err := s.sess.
		Select("*").
		From("saved_views").
		Where("user_id = ? AND page = ?", userID, page).
		LoadOneContext(ctx, &view)

	if errors.Is(err, dbr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("failed to get view",
			zap.Int64("user_id", userID),
			zap.String("page", page),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get view: %w", err)
	}

	var state listing.State
	if err := json.Unmarshal(view.State, &state); err != nil {
		return nil, fmt.Errorf("decode view state: %w", err)
	}

	return &state, nil
}

func (s *Store) GetUserViews(ctx context.Context, userID int64) ([]models.SavedView, error) {
	var views []models.SavedView

	_, err := s.sess.
		Select("*").
		From("saved_views").
		Where("user_id = ?", userID).
		OrderBy("page").
		LoadContext(ctx, &views)

	if err != nil {
		s.logger.Error("failed to get user views",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get user views: %w", err)
	}

	return views, nil
}

func (s *Store) DeleteView(ctx context.Context, userID int64, page string) error {
	_, err := s.sess.
		DeleteFrom("saved_views").
		Where("user_id = ? AND page = ?", userID, page).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to delete view",
			zap.Int64("user_id", userID),
			zap.String("page", page),
			zap.Error(err),
		)
		return fmt.Errorf("delete view: %w", err)
	}

	return nil
}

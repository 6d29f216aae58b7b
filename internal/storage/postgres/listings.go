package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"jobportal-bot/internal/models"
)

// CacheListing upserts a listing snapshot for the notifier.
func (s *Store) CacheListing(ctx context.Context, l *models.CachedListing) error {
	query := `
		INSERT INTO listings_cache (
			id, kind, title, company_name, salary_min, salary_max,
			currency, location, skills, created_at, raw_data, cached_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			title        = EXCLUDED.title,
			company_name = EXCLUDED.company_name,
			salary_min   = EXCLUDED.salary_min,
			salary_max   = EXCLUDED.salary_max,
			currency     = EXCLUDED.currency,
			location     = EXCLUDED.location,
			skills       = EXCLUDED.skills,
			created_at   = EXCLUDED.created_at,
			raw_data     = EXCLUDED.raw_data,
			cached_at    = EXCLUDED.cached_at
	`

	_, err := s.sess.
		InsertBySql(query,
			l.ID,
			l.Kind,
			l.Title,
			l.CompanyName,
			l.SalaryMin,
			l.SalaryMax,
			l.Currency,
			l.Location,
			l.Skills,
			l.CreatedAt,
			l.RawData,
			time.Now(),
		).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to cache listing",
			zap.Int64("listing_id", l.ID),
			zap.String("kind", l.Kind),
			zap.Error(err),
		)
		return fmt.Errorf("cache listing: %w", err)
	}

	return nil
}

func (s *Store) MarkListingsSeen(ctx context.Context, userID int64, kind models.ListingKind, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		INSERT INTO user_seen_listings (user_id, kind, listing_id, seen_at)
		SELECT ?, ?, unnest(?::bigint[]), NOW()
		ON CONFLICT (user_id, kind, listing_id) DO NOTHING
	`

	_, err := s.sess.
		InsertBySql(query, userID, string(kind), pq.Array(ids)).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to mark listings as seen",
			zap.Int64("user_id", userID),
			zap.Int("count", len(ids)),
			zap.Error(err),
		)
		return fmt.Errorf("mark listings as seen: %w", err)
	}

	return nil
}

// GetUnseenListings returns the subset of ids the user has not been
// notified about.
func (s *Store) GetUnseenListings(ctx context.Context, userID int64, kind models.ListingKind, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}

	query := `
		SELECT unnest(?::bigint[]) AS id
		EXCEPT
		SELECT listing_id FROM user_seen_listings WHERE user_id = ? AND kind = ?
	`

	var unseen []int64

	_, err := s.sess.
		SelectBySql(query, pq.Array(ids), userID, string(kind)).
		LoadContext(ctx, &unseen)

	if err != nil {
		s.logger.Error("failed to get unseen listings",
			zap.Int64("user_id", userID),
			zap.Int("total", len(ids)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get unseen listings: %w", err)
	}

	s.logger.Debug("unseen listings",
		zap.Int64("user_id", userID),
		zap.Int("total", len(ids)),
		zap.Int("unseen", len(unseen)),
	)

	return unseen, nil
}

func (s *Store) CleanOldListingsCache(ctx context.Context, daysOld int) (int64, error) {
	result, err := s.sess.
		DeleteFrom("listings_cache").
		Where("cached_at < NOW() - make_interval(days => ?)", daysOld).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to clean old listings cache",
			zap.Int("days_old", daysOld),
			zap.Error(err),
		)
		return 0, fmt.Errorf("clean old listings cache: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()

	s.logger.Info("old cached listings cleaned",
		zap.Int("days_old", daysOld),
		zap.Int64("count", rowsAffected),
	)

	return rowsAffected, nil
}

func (s *Store) CleanOldSeenListings(ctx context.Context, daysOld int) (int64, error) {
	result, err := s.sess.
		DeleteFrom("user_seen_listings").
		Where("seen_at < NOW() - make_interval(days => ?)", daysOld).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to clean old seen listings",
			zap.Int("days_old", daysOld),
			zap.Error(err),
		)
		return 0, fmt.Errorf("clean old seen listings: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()

	s.logger.Info("old seen listings cleaned",
		zap.Int("days_old", daysOld),
		zap.Int64("count", rowsAffected),
	)

	return rowsAffected, nil
}

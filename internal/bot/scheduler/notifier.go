package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/bot/utils"
	"jobportal-bot/internal/config"
	"jobportal-bot/internal/listing"
	"jobportal-bot/internal/models"
	"jobportal-bot/internal/storage/postgres"
	"jobportal-bot/internal/storage/redis"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v3"
)

const (
	startDelay      = 30 * time.Second
	cleanupInterval = 24 * time.Hour
	// users checked at once; the portal client rate-limits requests itself
	checkConcurrency = 4

	listingsCacheDays = 30
	seenListingsDays  = 90
)

// feed is a listing page whose saved view drives notifications.
type feed struct {
	page   string
	kind   models.ListingKind
	schema func(pageSize int) *listing.Schema[models.Listing]
}

var feeds = []feed{
	{page: models.PageJobs, kind: models.KindJob, schema: models.JobsSchema},
	{page: models.PageInternships, kind: models.KindInternship, schema: models.InternshipsSchema},
}

// Sender delivers Telegram messages; *tele.Bot satisfies it.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// ListingNotifier periodically runs every user's saved views against the
// portal and sends the listings they have not seen yet.
type ListingNotifier struct {
	sender Sender
	store  *postgres.Store
	cache  *redis.Cache
	portal *portal.Client
	config *config.Config
	logger *zap.Logger
}

func New(
	sender Sender,
	store *postgres.Store,
	cache *redis.Cache,
	portalClient *portal.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *ListingNotifier {
	return &ListingNotifier{
		sender: sender,
		store:  store,
		cache:  cache,
		portal: portalClient,
		config: cfg,
		logger: logger.Named("notifier"),
	}
}

func (n *ListingNotifier) Start(ctx context.Context) {
	ticker := time.NewTicker(n.config.CheckInterval)
	defer ticker.Stop()

	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	n.logger.Info("listing notifier started",
		zap.Duration("interval", n.config.CheckInterval),
	)

	select {
	case <-ctx.Done():
		return
	case <-time.After(startDelay):
	}
	n.checkAll(ctx)

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("listing notifier stopped")
			return
		case <-ticker.C:
			n.checkAll(ctx)
		case <-cleanup.C:
			n.cleanup(ctx)
		}
	}
}

func (n *ListingNotifier) checkAll(ctx context.Context) {
	n.logger.Info("starting listing check for all users")

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	users, err := n.store.GetUsersToCheck(runCtx)
	if err != nil {
		n.logger.Error("failed to get users to check", zap.Error(err))
		return
	}

	if len(users) == 0 {
		n.logger.Debug("no users to check")
		return
	}

	n.logger.Info("checking listings for users", zap.Int("count", len(users)))

	var g errgroup.Group
	g.SetLimit(checkConcurrency)

	for _, user := range users {
		user := user
		g.Go(func() error {
			if err := n.checkUser(runCtx, user); err != nil {
				n.logger.Error("failed to check listings for user",
					zap.Int64("user_id", user.ID),
					zap.Error(err),
				)
				return nil
			}

			if err := n.store.UpdateLastCheck(runCtx, user.ID); err != nil {
				n.logger.Error("failed to update last check",
					zap.Int64("user_id", user.ID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	n.logger.Info("finished listing check for all users")
}

func (n *ListingNotifier) checkUser(ctx context.Context, user models.User) error {
	n.logger.Debug("checking listings for user", zap.Int64("user_id", user.ID))

	client := n.portal.WithSession(portal.NewSession(n.cache.TokenStore(user.ID), n.portal, n.logger))

	for _, f := range feeds {
		saved, err := n.store.GetView(ctx, user.ID, f.page)
		if err != nil {
			return fmt.Errorf("get saved view %s: %w", f.page, err)
		}
		if saved == nil {
			continue
		}

		fresh, err := n.fetchNew(ctx, client, user.ID, f, *saved)
		if errors.Is(err, portal.ErrSessionExpired) {
			n.sessionExpired(ctx, user.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("check %s: %w", f.page, err)
		}
		if len(fresh) == 0 {
			continue
		}

		if err := n.notify(ctx, user.ID, f.page, fresh); err != nil {
			return fmt.Errorf("send notifications: %w", err)
		}

		ids := make([]int64, len(fresh))
		for i, l := range fresh {
			ids[i] = l.ID
		}
		if err := n.store.MarkListingsSeen(ctx, user.ID, f.kind, ids); err != nil {
			return fmt.Errorf("mark seen: %w", err)
		}

		go n.cacheListings(fresh)

		n.logger.Info("sent new listings to user",
			zap.Int64("user_id", user.ID),
			zap.String("page", f.page),
			zap.Int("count", len(fresh)),
		)
	}

	return nil
}

// fetchNew loads the newest listings matching a saved view and drops the
// ones the user was already told about.
func (n *ListingNotifier) fetchNew(ctx context.Context, client *portal.Client, userID int64, f feed, saved listing.State) ([]models.Listing, error) {
	schema := f.schema(n.config.MaxListingsPerCheck)

	state := saved
	state.Sort = listing.SortState{Key: models.SortCreated, Direction: listing.Desc}
	state.Page = listing.NewPageState(n.config.MaxListingsPerCheck)

	view := listing.New(schema, client.ListingFetcher(f.kind, schema), &state, listing.Options{
		Logger:   n.logger.With(zap.Int64("user_id", userID)),
		Describe: portal.Describe,
		Global:   func(err error) bool { return errors.Is(err, portal.ErrSessionExpired) },
	})

	snap, err := view.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(snap.Items) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(snap.Items))
	for i, l := range snap.Items {
		ids[i] = l.ID
	}

	unseen, err := n.store.GetUnseenListings(ctx, userID, f.kind, ids)
	if err != nil {
		return nil, fmt.Errorf("get unseen listings: %w", err)
	}

	isNew := make(map[int64]bool, len(unseen))
	for _, id := range unseen {
		isNew[id] = true
	}

	var fresh []models.Listing
	for _, l := range snap.Items {
		if isNew[l.ID] {
			fresh = append(fresh, l)
		}
	}
	return fresh, nil
}

func (n *ListingNotifier) notify(ctx context.Context, userID int64, page string, items []models.Listing) error {
	recipient := &tele.User{ID: userID}

	what := "jobs"
	if page == models.PageInternships {
		what = "internships"
	}
	summary := fmt.Sprintf("🔔 *New %s\\!*\n\n%d new matching your saved view\\.", what, len(items))

	if _, err := n.sender.Send(recipient, summary, tele.ModeMarkdownV2); err != nil {
		if errors.Is(err, tele.ErrBlockedByUser) || errors.Is(err, tele.ErrUserIsDeactivated) {
			n.disable(ctx, userID)
		}
		return fmt.Errorf("send summary: %w", err)
	}

	for i, l := range items {
		if _, err := n.sender.Send(recipient, utils.FormatListingItem(i+1, l), utils.ListingLinkKeyboard(l, page), tele.ModeMarkdownV2); err != nil {
			n.logger.Error("failed to send listing notification",
				zap.Int64("user_id", userID),
				zap.Int64("listing_id", l.ID),
				zap.Error(err),
			)
			continue
		}

		if i < len(items)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}
	}

	return nil
}

// sessionExpired stops notifications for a user whose portal login
// lapsed and tells them how to resume.
func (n *ListingNotifier) sessionExpired(ctx context.Context, userID int64) {
	n.logger.Info("portal session expired, disabling notifications", zap.Int64("user_id", userID))

	n.disable(ctx, userID)
	if err := n.store.UnlinkPortalAccount(ctx, userID); err != nil {
		n.logger.Warn("failed to unlink account", zap.Int64("user_id", userID), zap.Error(err))
	}

	msg := "🔒 Your portal session expired, so notifications are paused. Log in again with /login and turn them back on in /settings."
	if _, err := n.sender.Send(&tele.User{ID: userID}, msg); err != nil {
		n.logger.Warn("failed to send session notice", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (n *ListingNotifier) disable(ctx context.Context, userID int64) {
	if err := n.store.SetNotifyEnabled(ctx, userID, false); err != nil {
		n.logger.Error("failed to disable notifications", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (n *ListingNotifier) cacheListings(items []models.Listing) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, l := range items {
		cached, err := models.NewCachedListing(l)
		if err != nil {
			n.logger.Error("failed to encode listing", zap.Int64("listing_id", l.ID), zap.Error(err))
			continue
		}
		if err := n.store.CacheListing(ctx, &cached); err != nil {
			n.logger.Error("failed to cache listing",
				zap.Int64("listing_id", l.ID),
				zap.Error(err),
			)
		}
	}
}

func (n *ListingNotifier) cleanup(ctx context.Context) {
	cleanCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if _, err := n.store.CleanOldListingsCache(cleanCtx, listingsCacheDays); err != nil {
		n.logger.Error("failed to clean listings cache", zap.Error(err))
	}
	if _, err := n.store.CleanOldSeenListings(cleanCtx, seenListingsDays); err != nil {
		n.logger.Error("failed to clean seen listings", zap.Error(err))
	}
}

package bot

import (
	"context"
	"fmt"
	"time"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/bot/handlers"
	"jobportal-bot/internal/bot/middleware"
	"jobportal-bot/internal/config"
	"jobportal-bot/internal/models"
	"jobportal-bot/internal/storage/postgres"
	"jobportal-bot/internal/storage/redis"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Bot represents Telegram bot
type Bot struct {
	bot    *tele.Bot
	store  *postgres.Store
	cache  *redis.Cache
	portal *portal.Client
	config *config.Config
	logger *zap.Logger
}

func New(
	cfg *config.Config,
	store *postgres.Store,
	cache *redis.Cache,
	portalClient *portal.Client,
	logger *zap.Logger,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.TelegramToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error("telegram error", zap.Error(err))
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot := &Bot{
		bot:    b,
		store:  store,
		cache:  cache,
		portal: portalClient,
		config: cfg,
		logger: logger,
	}

	bot.setupMiddleware()

	bot.registerHandlers()

	if err := bot.setCommands(); err != nil {
		logger.Warn("failed to set bot commands", zap.Error(err))
	}

	logger.Info("bot initialized successfully")

	return bot, nil
}

func (b *Bot) setupMiddleware() {
	b.bot.Use(middleware.Recovery(b.logger))

	b.bot.Use(middleware.Logger(b.logger))

	b.bot.Use(middleware.RateLimit(b.cache, b.logger))
}

func (b *Bot) registerHandlers() {
	ctx := &handlers.Context{
		Store:  b.store,
		Cache:  b.cache,
		Portal: b.portal,
		Config: b.config,
		Logger: b.logger,
	}

	b.bot.Handle("/start", handlers.HandleStart(ctx))
	b.bot.Handle("/help", handlers.HandleHelp(ctx))
	b.bot.Handle("/cancel", handlers.HandleCancel(ctx))

	b.bot.Handle("/jobs", handlers.HandlePage(ctx, models.PageJobs))
	b.bot.Handle("/internships", handlers.HandlePage(ctx, models.PageInternships))
	b.bot.Handle("/applications", handlers.HandlePage(ctx, models.PageApplications))
	b.bot.Handle("/courses", handlers.HandlePage(ctx, models.PageCourses))
	b.bot.Handle("/myjobs", handlers.HandlePage(ctx, models.PageEmployerJobs))
	b.bot.Handle("/myinternships", handlers.HandlePage(ctx, models.PageEmployerInternships))
	b.bot.Handle("/dashboard", handlers.HandleDashboard(ctx))

	b.bot.Handle("/register", handlers.HandleRegister(ctx))
	b.bot.Handle("/login", handlers.HandleLogin(ctx))
	b.bot.Handle("/logout", handlers.HandleLogout(ctx))

	b.bot.Handle("/profile", handlers.HandleProfile(ctx))
	b.bot.Handle("/company", handlers.HandleCompany(ctx))
	b.bot.Handle("/documents", handlers.HandleDocuments(ctx))
	b.bot.Handle("/settings", handlers.HandleSettings(ctx))

	b.bot.Handle(tele.OnText, handlers.HandleText(ctx))
	b.bot.Handle(tele.OnPhoto, handlers.HandleMedia(ctx))
	b.bot.Handle(tele.OnDocument, handlers.HandleMedia(ctx))

	b.bot.Handle(tele.OnCallback, handlers.HandleCallback(ctx))

	b.logger.Info("handlers registered")
}

// setCommands publishes the command menu shown by Telegram clients.
func (b *Bot) setCommands() error {
	return b.bot.SetCommands([]tele.Command{
		{Text: "jobs", Description: "Browse jobs"},
		{Text: "internships", Description: "Browse internships"},
		{Text: "applications", Description: "My applications"},
		{Text: "courses", Description: "My courses"},
		{Text: "dashboard", Description: "Employer dashboard"},
		{Text: "profile", Description: "My profile"},
		{Text: "login", Description: "Sign in"},
		{Text: "register", Description: "Create an account"},
		{Text: "settings", Description: "Notifications"},
		{Text: "help", Description: "Help"},
	})
}

func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting bot...")

	go b.bot.Start()

	<-ctx.Done()

	b.logger.Info("stopping bot...")
	b.bot.Stop()

	return nil
}

func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}

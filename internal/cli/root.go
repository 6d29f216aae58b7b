package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/config"
	"jobportal-bot/internal/logger"
	"jobportal-bot/internal/models"
)

var (
	flagBaseURL  string
	flagToken    string
	flagRefresh  string
	flagLogLevel string

	log    *zap.Logger
	client *portal.Client
)

func defaultBaseURL() string {
	api, err := config.LoadAPI()
	if err != nil {
		return "http://localhost:8000"
	}
	return api.BaseURL
}

// NewRootCmd creates the root cobra command for the portalctl CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Browse the job portal from the terminal",
		Long:  "portalctl lists jobs, internships, applications and courses with the same filters and sort keys as the bot.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			log, err = logger.New(flagLogLevel)
			if err != nil {
				return err
			}

			api, err := config.LoadAPI()
			if err != nil {
				return err
			}

			base := portal.New(flagBaseURL, api.Timeout, api.RPS, log)
			store := &portal.MemoryTokenStore{}
			if flagToken != "" {
				if err := store.SaveTokens(context.Background(), models.Tokens{Access: flagToken, Refresh: flagRefresh}); err != nil {
					return err
				}
			}
			client = base.WithSession(portal.NewSession(store, base, log))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagBaseURL, "base-url", defaultBaseURL(), "Portal API base URL (or PORTAL_API_BASE_URL env)")
	root.PersistentFlags().StringVar(&flagToken, "token", os.Getenv("PORTAL_ACCESS_TOKEN"), "Access token (or PORTAL_ACCESS_TOKEN env)")
	root.PersistentFlags().StringVar(&flagRefresh, "refresh-token", os.Getenv("PORTAL_REFRESH_TOKEN"), "Refresh token used when the access token expires")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "error", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newLoginCmd(),
		newJobsCmd(),
		newInternshipsCmd(),
		newApplicationsCmd(),
		newCoursesCmd(),
	)

	return root
}

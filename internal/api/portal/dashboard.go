package portal

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"jobportal-bot/internal/models"
)

// Dashboard loads the employer's jobs and internships concurrently. If
// either request fails the whole dashboard fails.
func (c *Client) Dashboard(ctx context.Context, params url.Values) (*models.Dashboard, error) {
	var dash models.Dashboard

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		page, err := c.ListEmployerListings(gctx, models.KindJob, params)
		if err != nil {
			return err
		}
		dash.Jobs, dash.JobsCount = page.Results, page.Count
		return nil
	})

	g.Go(func() error {
		page, err := c.ListEmployerListings(gctx, models.KindInternship, params)
		if err != nil {
			return err
		}
		dash.Internships, dash.InternshipsCount = page.Results, page.Count
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	return &dash, nil
}

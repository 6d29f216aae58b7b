package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"jobportal-bot/internal/listing"
	"jobportal-bot/internal/models"
)

func listPage[T any](ctx context.Context, c *Client, path string, params url.Values) (listing.Page[T], error) {
	var page listing.Page[T]
	if err := c.get(ctx, path, params, &page); err != nil {
		return listing.Page[T]{}, fmt.Errorf("list %s: %w", path, err)
	}
	if page.Results == nil {
		page.Results = []T{}
	}

	c.logger.Debug("page fetched",
		zap.String("path", path),
		zap.String("page", params.Get("page")),
		zap.Int("count", page.Count),
		zap.Int("returned", len(page.Results)),
	)

	return page, nil
}

func (c *Client) ListListings(ctx context.Context, kind models.ListingKind, params url.Values) (listing.Page[models.Listing], error) {
	page, err := listPage[models.Listing](ctx, c, "/api/"+kind.Path()+"/", params)
	if err != nil {
		return page, err
	}
	for i := range page.Results {
		if page.Results[i].Kind == "" {
			page.Results[i].Kind = kind
		}
	}
	return page, nil
}

func (c *Client) ListApplications(ctx context.Context, params url.Values) (listing.Page[models.Application], error) {
	return listPage[models.Application](ctx, c, "/api/applications/", params)
}

func (c *Client) ListCourses(ctx context.Context, params url.Values) (listing.Page[models.Course], error) {
	return listPage[models.Course](ctx, c, "/api/courses/my/", params)
}

func (c *Client) ListEmployerListings(ctx context.Context, kind models.ListingKind, params url.Values) (listing.Page[models.Listing], error) {
	page, err := listPage[models.Listing](ctx, c, "/api/employer/"+kind.Path()+"/", params)
	if err != nil {
		return page, err
	}
	for i := range page.Results {
		page.Results[i].Kind = kind
	}
	return page, nil
}

func (c *Client) GetListing(ctx context.Context, kind models.ListingKind, id int64) (*models.Listing, error) {
	var l models.Listing
	if err := c.get(ctx, fmt.Sprintf("/api/%s/%d/", kind.Path(), id), nil, &l); err != nil {
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	if l.Kind == "" {
		l.Kind = kind
	}
	return &l, nil
}

func (c *Client) Apply(ctx context.Context, kind models.ListingKind, id int64, req models.ApplyRequest) (*models.Application, error) {
	var app models.Application
	path := fmt.Sprintf("/api/%s/%d/apply/", kind.Path(), id)
	if err := c.sendJSON(ctx, http.MethodPost, path, req, &app); err != nil {
		return nil, fmt.Errorf("apply to %s %d: %w", kind, id, err)
	}

	c.logger.Info("application submitted",
		zap.String("kind", string(kind)),
		zap.Int64("listing_id", id),
	)

	return &app, nil
}

func (c *Client) UpdateListingStatus(ctx context.Context, kind models.ListingKind, id int64, status string) (*models.Listing, error) {
	if !models.IsValidListingStatus(status) {
		return nil, fmt.Errorf("invalid listing status %q", status)
	}

	var l models.Listing
	path := fmt.Sprintf("/api/employer/%s/%d/", kind.Path(), id)
	if err := c.sendJSON(ctx, http.MethodPatch, path, models.ListingStatusPatch{Status: status}, &l); err != nil {
		return nil, fmt.Errorf("update %s %d status: %w", kind, id, err)
	}
	return &l, nil
}

// ListingFetcher adapts a list endpoint to a view fetcher, encoding the
// view query with the page schema.
func (c *Client) ListingFetcher(kind models.ListingKind, schema *listing.Schema[models.Listing]) listing.Fetcher[models.Listing] {
	return listing.FetchFunc[models.Listing](func(ctx context.Context, q listing.Query) (listing.Page[models.Listing], error) {
		return c.ListListings(ctx, kind, schema.Params(q))
	})
}

func (c *Client) EmployerFetcher(kind models.ListingKind, schema *listing.Schema[models.Listing]) listing.Fetcher[models.Listing] {
	return listing.FetchFunc[models.Listing](func(ctx context.Context, q listing.Query) (listing.Page[models.Listing], error) {
		return c.ListEmployerListings(ctx, kind, schema.Params(q))
	})
}

func (c *Client) ApplicationFetcher(schema *listing.Schema[models.Application]) listing.Fetcher[models.Application] {
	return listing.FetchFunc[models.Application](func(ctx context.Context, q listing.Query) (listing.Page[models.Application], error) {
		return c.ListApplications(ctx, schema.Params(q))
	})
}

func (c *Client) CourseFetcher(schema *listing.Schema[models.Course]) listing.Fetcher[models.Course] {
	return listing.FetchFunc[models.Course](func(ctx context.Context, q listing.Query) (listing.Page[models.Course], error) {
		return c.ListCourses(ctx, schema.Params(q))
	})
}

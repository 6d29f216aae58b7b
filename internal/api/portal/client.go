package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const RequestIDHeader = "X-Request-ID"

// Client for requests to the job portal REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	userAgent  string
	session    *Session
}

// New creates a client. rps limits outbound requests; zero or less
// disables the limiter.
func New(baseURL string, timeout time.Duration, rps float64, logger *zap.Logger) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		userAgent: "JobPortal-Bot/1.0",
	}
}

// WithSession returns a client that authenticates as session. The
// transport and limiter are shared with c.
func (c *Client) WithSession(s *Session) *Client {
	cp := *c
	cp.session = s
	return &cp
}

type request struct {
	method      string
	path        string
	params      url.Values
	body        []byte
	contentType string
	// anonymous requests never carry a bearer token nor trigger a refresh
	anonymous bool
}

func jsonRequest(method, path string, payload any) (request, error) {
	r := request{method: method, path: path}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return r, fmt.Errorf("marshal request: %w", err)
		}
		r.body = data
		r.contentType = "application/json"
	}
	return r, nil
}

// doRequest sends r. A 401 on an authenticated request triggers one
// token refresh and one replay.
func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	replayed := false
	for {
		body, status, token, err := c.send(ctx, r)
		if err != nil {
			return nil, err
		}

		if status >= 200 && status < 300 {
			return body, nil
		}

		if status == http.StatusUnauthorized && !r.anonymous && c.session != nil {
			if replayed {
				return nil, c.expire(ctx)
			}
			switch res := c.session.refreshFrom(ctx, token); res {
			case Refreshed:
				c.logger.Debug("access token refreshed, replaying request",
					zap.String("path", r.path),
				)
				replayed = true
				continue
			case RefreshUnavailable:
				return nil, fmt.Errorf("refresh token: %w", ErrNetwork)
			default:
				c.logger.Info("session expired", zap.String("path", r.path))
				return nil, ErrSessionExpired
			}
		}

		apiErr := parseAPIError(status, body)
		c.logger.Error("API error",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Int("status", status),
			zap.String("detail", apiErr.Message()),
		)
		return nil, apiErr
	}
}

func (c *Client) expire(ctx context.Context) error {
	if err := c.session.Clear(ctx); err != nil {
		c.logger.Error("failed to clear session", zap.Error(err))
	}
	return ErrSessionExpired
}

func (c *Client) send(ctx context.Context, r request) (body []byte, status int, token string, err error) {
	fullURL := c.baseURL + r.path
	if len(r.params) > 0 {
		fullURL += "?" + r.params.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, "", fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if r.body != nil {
		reader = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, fullURL, reader)
	if err != nil {
		return nil, 0, "", fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	if !r.anonymous && c.session != nil {
		token, err = c.session.AccessToken(ctx)
		if err != nil {
			return nil, 0, "", err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("url", fullURL),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		if errors.Is(err, context.Canceled) {
			return nil, 0, token, err
		}
		return nil, 0, token, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, token, fmt.Errorf("%w: read response body: %w", ErrNetwork, err)
	}

	c.logger.Debug("request done",
		zap.String("method", r.method),
		zap.String("url", fullURL),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
	)

	return body, resp.StatusCode, token, nil
}

func (c *Client) do(ctx context.Context, r request, dest any) error {
	data, err := c.doRequest(ctx, r)
	if err != nil {
		return err
	}
	if dest == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return c.parseResponse(data, dest)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, params: params}, dest)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload, dest any) error {
	r, err := jsonRequest(method, path, payload)
	if err != nil {
		return err
	}
	return c.do(ctx, r, dest)
}

func (c *Client) parseResponse(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

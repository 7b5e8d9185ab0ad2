package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const endpoint = "wp-json/wp/v2"

// ErrRetriesExhausted marks a fetch that failed on every attempt at the
// connection level. Callers treat it as "no more data" but can still tell
// it apart from a genuinely empty page.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Config holds WordPress API client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	After       string
}

// Client fetches paginated post resources from a WordPress REST API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	after       string
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// New creates a new WordPress API client.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		after:       cfg.After,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      logger.With("source", "wordpress"),
	}
}

// FetchPosts requests successive pages starting at startPage. The page
// counter increments every iteration. With fetchAll=false exactly one page
// is requested; otherwise pages accumulate until the first empty one. A
// fetch failure ends pagination and is returned alongside the posts
// accumulated so far.
func (c *Client) FetchPosts(ctx context.Context, resource string, startPage, perPage int, fetchAll bool) ([]RawPost, error) {
	var all []RawPost

	page := startPage
	for {
		pageURL := c.makeURL(resource, page, perPage)
		page++

		posts, err := c.FetchPage(ctx, pageURL)
		if err != nil {
			return all, fmt.Errorf("fetch page %d: %w", page-1, err)
		}

		all = append(all, posts...)

		c.logger.Debug("fetched page",
			"page", page-1,
			"posts", len(posts),
			"total", len(all),
		)

		if !fetchAll || len(posts) == 0 {
			return all, nil
		}
	}
}

// FetchPage issues one GET for a single page. Connection-level failures are
// retried with a fixed delay up to MaxAttempts total attempts; any other
// failure (bad status, malformed body) is not retried. An empty body or
// empty JSON array yields an empty slice.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]RawPost, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(c.retryDelay),
			uint64(c.maxAttempts-1),
		),
		ctx,
	)

	attempt := 0
	posts, err := backoff.RetryWithData(func() ([]RawPost, error) {
		attempt++
		posts, err := c.doRequest(ctx, pageURL)
		if err == nil {
			return posts, nil
		}
		if !isTransient(err) {
			return nil, backoff.Permanent(err)
		}
		c.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"delay", c.retryDelay,
			"error", err,
		)
		return nil, err
	}, policy)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isTransient(err) {
			return nil, fmt.Errorf("%w: after %d attempts: %v", ErrRetriesExhausted, c.maxAttempts, err)
		}
		return nil, err
	}

	return posts, nil
}

func (c *Client) doRequest(ctx context.Context, pageURL string) ([]RawPost, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "WPImporter/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var posts []RawPost
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return posts, nil
}

func (c *Client) makeURL(resource string, page, perPage int) string {
	return fmt.Sprintf(
		"%s/%s/%s?_embed=true&order=desc&orderby=modified&page=%d&per_page=%d&after=%s",
		c.baseURL, endpoint, resource, page, perPage, c.after,
	)
}

// isTransient reports whether err is a connection-level failure worth
// retrying. http.Client transport errors surface as *url.Error; anything
// else (status, decode) is permanent.
func isTransient(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

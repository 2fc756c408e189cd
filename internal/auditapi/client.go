package auditapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"auditchat/internal/platform/metrics"
	"auditchat/pkg/domain"
	"auditchat/pkg/platform/sentinel"
)

// Client is the HTTP-backed implementation of the remote audit search and
// user directory capabilities. All calls honor context cancellation and
// retry transient failures with exponential backoff.
type Client struct {
	baseURL string
	token   string
	orgID   string

	httpc       *http.Client
	logger      *slog.Logger
	metrics     *metrics.Metrics
	maxAttempts int
	baseDelay   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With("component", "auditapi")
	}
}

// WithMetrics injects the shared metrics handle.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithHTTPClient overrides the underlying HTTP client (tests, custom
// transports).
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// WithRetryPolicy bounds the retry loop. Attempt n (n >= 1) sleeps
// baseDelay * 2^(n-1) before retrying.
func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
	}
}

// New constructs a Client for one organization's audit log.
func New(baseURL, token, orgID string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("audit API base URL is required")
	}
	if orgID == "" {
		return nil, fmt.Errorf("organization ID is required")
	}

	c := &Client{
		baseURL:     baseURL,
		token:       token,
		orgID:       orgID,
		httpc:       &http.Client{Timeout: 15 * time.Second},
		logger:      slog.Default(),
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	// A non-positive attempt budget would skip the request loop entirely.
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	return c, nil
}

// OrgID returns the organization this client is bound to.
func (c *Client) OrgID() string {
	return c.orgID
}

// SearchAuditEvents fetches one page of audit events. It satisfies
// SearchFunc so FetchAll can walk it.
func (c *Client) SearchAuditEvents(ctx context.Context, orgID string, params SearchParams) (*SearchPage, error) {
	q := url.Values{}
	if !params.From.IsZero() {
		q.Set("from", params.From.UTC().Format(time.RFC3339))
	}
	if !params.To.IsZero() {
		q.Set("to", params.To.UTC().Format(time.RFC3339))
	}
	for _, et := range params.EventTypes {
		q.Add("event_type", et)
	}
	for _, uid := range params.UserIDs {
		q.Add("user_id", uid)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Cursor != "" {
		q.Set(cursorParam, params.Cursor)
	}

	endpoint := fmt.Sprintf("%s/orgs/%s/audit_events?%s", c.baseURL, url.PathEscape(orgID), q.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data  []PageItem `json:"data"`
		Links struct {
			Next string `json:"next"`
		} `json:"links"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode audit events page: %w", err)
	}

	c.metrics.ObservePage()
	return &SearchPage{Items: payload.Data, NextLink: payload.Links.Next}, nil
}

// FetchEvents walks the full paginated window [from, to) for the client's
// organization and returns normalized events.
func (c *Client) FetchEvents(ctx context.Context, from, to time.Time) ([]domain.AuditEvent, error) {
	return FetchAll(ctx, c.SearchAuditEvents, c.orgID, SearchParams{From: from, To: to})
}

// GetUser resolves one identity from the remote user directory.
func (c *Client) GetUser(ctx context.Context, id string) (domain.UserInfo, error) {
	endpoint := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(id))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return domain.UserInfo{}, err
	}

	var payload struct {
		Data userItem `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.UserInfo{}, fmt.Errorf("decode user: %w", err)
	}
	info := payload.Data.normalize()
	if info.ID == "" {
		info.ID = id
	}
	return info, nil
}

// ListOrgUsers fetches the full organization roster, walking the same cursor
// pagination scheme as the event search with the same page cap.
func (c *Client) ListOrgUsers(ctx context.Context, orgID string) ([]domain.UserInfo, error) {
	var users []domain.UserInfo

	cursor := ""
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		if cursor != "" {
			q.Set(cursorParam, cursor)
		}
		endpoint := fmt.Sprintf("%s/orgs/%s/users", c.baseURL, url.PathEscape(orgID))
		if encoded := q.Encode(); encoded != "" {
			endpoint += "?" + encoded
		}

		body, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("fetch roster page %d: %w", page+1, err)
		}

		var payload struct {
			Data  []userItem `json:"data"`
			Links struct {
				Next string `json:"next"`
			} `json:"links"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode roster page: %w", err)
		}

		for _, item := range payload.Data {
			users = append(users, item.normalize())
		}

		if payload.Links.Next == "" {
			return users, nil
		}
		cursor = nextCursor(payload.Links.Next)
		if cursor == "" {
			return users, nil
		}
	}

	return users, nil
}

// get performs one GET with bounded retries. Transient failures (transport
// errors, 408, 429, 5xx) are retried up to maxAttempts with exponential
// backoff; the backoff sleep observes ctx so caller timeouts abort the loop
// instead of being silently outlived by it.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			c.metrics.ObserveRetry()
			delay := c.baseDelay * (1 << (attempt - 1))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("audit API request: %v: %w", err, sentinel.ErrUnavailable)
			c.metrics.ObserveRemoteRequest("network_error")
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			if readErr != nil {
				return nil, fmt.Errorf("read response body: %w", readErr)
			}
			c.metrics.ObserveRemoteRequest("ok")
			return body, nil
		}

		classified := classifyStatus(resp.StatusCode)
		if !retriableStatus(resp.StatusCode) {
			c.metrics.ObserveRemoteRequest("error")
			return nil, classified
		}

		c.metrics.ObserveRemoteRequest("transient_error")
		c.logger.WarnContext(ctx, "transient audit API failure",
			"status", resp.StatusCode,
			"attempt", attempt+1,
			"max_attempts", c.maxAttempts,
		)
		lastErr = classified
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

func retriableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= 500
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("audit API status %d: %w", status, sentinel.ErrUnauthorized)
	case status == http.StatusForbidden:
		return fmt.Errorf("audit API status %d: %w", status, sentinel.ErrForbidden)
	case status == http.StatusNotFound:
		return fmt.Errorf("audit API status %d: %w", status, sentinel.ErrNotFound)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("audit API status %d: %w", status, sentinel.ErrRateLimited)
	case status == http.StatusRequestTimeout, status >= 500:
		return fmt.Errorf("audit API status %d: %w", status, sentinel.ErrUnavailable)
	default:
		return fmt.Errorf("audit API returned unexpected status %d", status)
	}
}

package fibusync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client is a rate-limited client for the Fibu bookkeeping REST API. The API
// is append-only from the importer's point of view: mutations are fetched by
// date range and cursor, never written back.
type Client struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
	limiter   <-chan time.Time
}

func NewClient(apiKey string) (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("FIBU_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.fibu.example.com"
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("FIBU_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("fibu api key is empty")
	}
	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("FIBU_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   time.Tick(interval),
	}, nil
}

// NewClientForBaseURL is used by tests to point the client at an httptest server.
func NewClientForBaseURL(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: "X-API-Key",
		http:      &http.Client{Timeout: 5 * time.Second},
		limiter:   time.Tick(time.Millisecond),
	}
}

// APIError carries the HTTP status so callers can distinguish transient
// failures (timeouts, 5xx, 429) from permanent ones (other 4xx).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fibu api error %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsTransportError reports whether err looks like a network-level failure
// (timeout, refused connection) rather than an API rejection.
func IsTransportError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

type listResponse struct {
	Data       []json.RawMessage `json:"data"`
	Items      []json.RawMessage `json:"items"`
	NextCursor string            `json:"next_cursor"`
	HasMore    *bool             `json:"has_more"`
}

func (c *Client) getList(ctx context.Context, path string, params url.Values) (listResponse, error) {
	select {
	case <-ctx.Done():
		return listResponse{}, ctx.Err()
	case <-c.limiter:
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return listResponse{}, err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return listResponse{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return listResponse{}, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return listResponse{}, err
	}
	return parsed, nil
}

// ListMutations fetches one page of mutations for a date range. Dates use the
// API's YYYY-MM-DD convention; cursor comes from the previous page.
func (c *Client) ListMutations(ctx context.Context, dateFrom string, dateTo string, cursor string) ([]json.RawMessage, string, bool, error) {
	params := url.Values{}
	params.Set("date_from", dateFrom)
	params.Set("date_to", dateTo)
	params.Set("limit", "200")
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	resp, err := c.getList(ctx, "/v1/mutations", params)
	if err != nil {
		return nil, cursor, false, err
	}

	items := resp.Data
	if len(items) == 0 {
		items = resp.Items
	}
	hasMore := resp.NextCursor != ""
	if resp.HasMore != nil {
		hasMore = *resp.HasMore
	}
	return items, resp.NextCursor, hasMore, nil
}

package sierra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"suggestbot/internal/catalog"
	"suggestbot/internal/services"
)

// SourceName labels Sierra results inside CandidateSets.
const SourceName = "sierra_catalog"

const (
	defaultTokenLifetime = time.Hour
	tokenRefreshMargin   = 60 * time.Second
)

var errUnauthorized = errors.New("sierra rejected bearer token")

// Observer receives the duration of every catalog API call.
type Observer func(operation string, elapsed time.Duration, err error)

// Client talks to the Sierra REST API (v6). It owns its OAuth2 access token.
type Client struct {
	baseURL      string
	clientKey    string
	clientSecret string
	httpClient   *http.Client
	now          func() time.Time
	observe      Observer

	mu        sync.Mutex
	token     string
	refreshAt time.Time
	refresh   singleflight.Group
}

var _ catalog.Source = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithObserver registers a callback for call latency.
func WithObserver(observe Observer) Option {
	return func(c *Client) {
		c.observe = observe
	}
}

// WithClock overrides the clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Sierra client.
func New(baseURL, clientKey, clientSecret string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "sierra", "new client", "sierra api_base required", nil)
	}
	clientKey = strings.TrimSpace(clientKey)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientKey == "" || clientSecret == "" {
		return nil, services.Wrap(services.ErrConfiguration, "sierra", "new client", "sierra client_key and client_secret required", nil)
	}
	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientKey:    clientKey,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name implements catalog.Source.
func (c *Client) Name() string { return SourceName }

// SearchByIdentifier looks up bibs by ISBN.
func (c *Client) SearchByIdentifier(ctx context.Context, isbn string, limit int) (catalog.SearchPage, error) {
	params := url.Values{}
	params.Set("isbn", strings.ReplaceAll(strings.TrimSpace(isbn), "-", ""))
	params.Set("limit", strconv.Itoa(limit))
	return c.searchBibs(ctx, "search_isbn", params)
}

// SearchByText runs a title and/or author keyword search. An empty query
// returns an empty page without calling Sierra.
func (c *Client) SearchByText(ctx context.Context, title, author string, limit int) (catalog.SearchPage, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" && author == "" {
		return catalog.SearchPage{}, nil
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if title != "" {
		params.Set("title", title)
	}
	if author != "" {
		params.Set("author", author)
	}
	return c.searchBibs(ctx, "search_text", params)
}

// Availability lists items attached to bibIDs.
func (c *Client) Availability(ctx context.Context, bibIDs []string, limit int) (catalog.ItemPage, error) {
	if len(bibIDs) == 0 {
		return catalog.ItemPage{}, nil
	}
	params := url.Values{}
	params.Set("bibIds", strings.Join(bibIDs, ","))
	params.Set("limit", strconv.Itoa(limit))

	var payload itemsResponse
	if err := c.get(ctx, "availability", "/v6/items", params, &payload); err != nil {
		return catalog.ItemPage{}, err
	}
	page := catalog.ItemPage{Total: payload.Total, Entries: make([]catalog.Item, 0, len(payload.Entries))}
	for _, entry := range payload.Entries {
		page.Entries = append(page.Entries, entry.toItem())
	}
	return page, nil
}

func (c *Client) searchBibs(ctx context.Context, operation string, params url.Values) (catalog.SearchPage, error) {
	var payload bibsResponse
	if err := c.get(ctx, operation, "/v6/bibs", params, &payload); err != nil {
		return catalog.SearchPage{}, err
	}
	page := catalog.SearchPage{Total: payload.Total, Entries: make([]catalog.Bib, 0, len(payload.Entries))}
	for _, entry := range payload.Entries {
		page.Entries = append(page.Entries, entry.toBib())
	}
	return page, nil
}

// get performs an authenticated GET. A 401 drops the cached token and the
// request is retried once with a fresh one.
func (c *Client) get(ctx context.Context, operation, path string, params url.Values, out any) (err error) {
	start := c.now()
	defer func() {
		if c.observe != nil {
			c.observe(operation, c.now().Sub(start), err)
		}
	}()

	for attempt := 0; attempt < 2; attempt++ {
		token, tokenErr := c.accessToken(ctx)
		if tokenErr != nil {
			return tokenErr
		}
		err = c.doGet(ctx, token, path, params, out)
		if !errors.Is(err, errUnauthorized) {
			return err
		}
		c.invalidate(token)
	}
	return services.Wrap(services.ErrExternalTool, "sierra", operation, "token rejected after refresh", err)
}

func (c *Client) doGet(ctx context.Context, token, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build sierra request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "sierra", path, fmt.Sprintf("request failed (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return errUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		// Sierra answers 404 for searches with no hits.
		return nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.ErrExternalTool, "sierra", path,
			fmt.Sprintf("status %d (latency=%v): %s", resp.StatusCode, latency, strings.TrimSpace(string(body))), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalTool, "sierra", path, "decode response", err)
	}
	return nil
}

// Authenticate obtains an access token, confirming the credentials work.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.accessToken(ctx)
	return err
}

// accessToken returns a cached token, refreshing it shortly before expiry.
// Concurrent refreshes share one token request.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && c.now().Before(c.refreshAt) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	value, err, _ := c.refresh.Do("token", func() (any, error) {
		return c.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v6/token", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientKey, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "sierra", "token", "token request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrConfiguration, "sierra", "token",
			fmt.Sprintf("token endpoint returned %d; check sierra.client_key and sierra.client_secret", resp.StatusCode), nil)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "sierra", "token", "decode token response", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", services.Wrap(services.ErrExternalTool, "sierra", "token", "token response missing access_token", nil)
	}
	lifetime := defaultTokenLifetime
	if payload.ExpiresIn > 0 {
		lifetime = time.Duration(payload.ExpiresIn) * time.Second
	}

	c.mu.Lock()
	c.token = payload.AccessToken
	c.refreshAt = c.now().Add(lifetime - refreshMargin(lifetime))
	c.mu.Unlock()
	return payload.AccessToken, nil
}

// refreshMargin is how early a token is replaced: 60s, or half the lifetime
// for short-lived tokens.
func refreshMargin(lifetime time.Duration) time.Duration {
	return min(tokenRefreshMargin, lifetime/2)
}

func (c *Client) invalidate(token string) {
	c.mu.Lock()
	if c.token == token {
		c.token = ""
		c.refreshAt = time.Time{}
	}
	c.mu.Unlock()
}

package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"suggestbot/internal/services"
)

const (
	DefaultBaseURL       = "https://openlibrary.org"
	DefaultCoversBaseURL = "https://covers.openlibrary.org"

	searchFields       = "key,title,author_name,first_publish_year,isbn,edition_count"
	maxISBNsPerResult  = 5
	defaultSearchLimit = 5
)

// Source is the secondary metadata service used for enrichment.
type Source interface {
	LookupISBN(ctx context.Context, isbn string) (*Edition, error)
	LookupWork(ctx context.Context, key string) (*Work, error)
	Search(ctx context.Context, title, author string) ([]SearchResult, error)
	AuthorName(ctx context.Context, key string) (string, error)
	CoverURL(isbn string, coverID int, size string) string
}

// Observer receives the duration of every API call.
type Observer func(operation string, elapsed time.Duration, err error)

// Client talks to the Open Library JSON API. Not-found responses are reported
// as a nil result with a nil error.
type Client struct {
	baseURL       string
	coversBaseURL string
	userAgent     string
	maxResults    int
	httpClient    *http.Client
	cache         Cache
	observe       Observer
	inflight      singleflight.Group
}

var _ Source = (*Client)(nil)

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

// WithBaseURLs points the client at alternative API and cover hosts.
func WithBaseURLs(api, covers string) Option {
	return func(c *Client) {
		if api = strings.TrimSpace(api); api != "" {
			c.baseURL = strings.TrimRight(api, "/")
		}
		if covers = strings.TrimSpace(covers); covers != "" {
			c.coversBaseURL = strings.TrimRight(covers, "/")
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithMaxResults caps search results.
func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithUserAgent sets the User-Agent header Open Library asks clients to send.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// WithCache enables response caching.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithObserver registers a callback for call latency.
func WithObserver(observe Observer) Option {
	return func(c *Client) {
		c.observe = observe
	}
}

// New creates an Open Library client.
func New(opts ...Option) *Client {
	client := &Client{
		baseURL:       DefaultBaseURL,
		coversBaseURL: DefaultCoversBaseURL,
		userAgent:     "suggestbot/1.0",
		maxResults:    defaultSearchLimit,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// LookupISBN fetches the edition for an ISBN-10 or ISBN-13.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (*Edition, error) {
	clean := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
	if clean == "" {
		return nil, services.Wrap(services.ErrValidation, "openlibrary", "lookup isbn", "isbn must not be empty", nil)
	}
	var payload editionPayload
	found, err := c.getJSON(ctx, "lookup_isbn", c.baseURL+"/isbn/"+url.PathEscape(clean)+".json", &payload)
	if err != nil || !found {
		return nil, err
	}
	return payload.toEdition(), nil
}

// LookupWork fetches a work by key ("/works/OL1W" or "OL1W").
func (c *Client) LookupWork(ctx context.Context, key string) (*Work, error) {
	key = normalizeKey(key, "/works/")
	var payload workPayload
	found, err := c.getJSON(ctx, "lookup_work", c.baseURL+key+".json", &payload)
	if err != nil || !found {
		return nil, err
	}
	return payload.toWork(), nil
}

// Search runs a title and/or author query. An empty query returns nil.
func (c *Client) Search(ctx context.Context, title, author string) ([]SearchResult, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" && author == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("q", SearchQuery(title, author))
	params.Set("limit", strconv.Itoa(c.maxResults))
	params.Set("fields", searchFields)

	var payload searchPayload
	if _, err := c.getJSON(ctx, "search", c.baseURL+"/search.json?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	docs := payload.Docs
	if len(docs) > c.maxResults {
		docs = docs[:c.maxResults]
	}
	results := make([]SearchResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, doc.toResult())
	}
	return results, nil
}

// AuthorName resolves an author key to its display name. Missing authors
// yield an empty name.
func (c *Client) AuthorName(ctx context.Context, key string) (string, error) {
	key = normalizeKey(key, "/authors/")
	var payload struct {
		Name string `json:"name"`
	}
	found, err := c.getJSON(ctx, "author_name", c.baseURL+key+".json", &payload)
	if err != nil || !found {
		return "", err
	}
	return payload.Name, nil
}

// CoverURL builds a cover image URL from a cover id or an ISBN. Size is one of
// S, M, or L and defaults to M.
func (c *Client) CoverURL(isbn string, coverID int, size string) string {
	if size == "" {
		size = "M"
	}
	if coverID > 0 {
		return fmt.Sprintf("%s/b/id/%d-%s.jpg", c.coversBaseURL, coverID, size)
	}
	clean := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
	if clean == "" {
		return ""
	}
	return fmt.Sprintf("%s/b/isbn/%s-%s.jpg", c.coversBaseURL, clean, size)
}

// SearchQuery renders the Open Library q parameter for a title/author pair.
func SearchQuery(title, author string) string {
	var parts []string
	if title != "" {
		parts = append(parts, "title:"+title)
	}
	if author != "" {
		parts = append(parts, "author:"+author)
	}
	return strings.Join(parts, " ")
}

func normalizeKey(key, prefix string) string {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, prefix) {
		return key
	}
	return prefix + strings.TrimPrefix(key, "/")
}

var errNotFound = errors.New("not found")

// getJSON fetches endpoint and decodes it into out. found is false on 404.
// Identical concurrent requests share one round trip.
func (c *Client) getJSON(ctx context.Context, operation, endpoint string, out any) (found bool, err error) {
	start := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(operation, time.Since(start), err)
		}
	}()

	key := cacheKey(endpoint)
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, key); ok {
			if err := json.Unmarshal(body, out); err == nil {
				return true, nil
			}
		}
	}

	value, err, _ := c.inflight.Do(key, func() (any, error) {
		return c.fetch(ctx, endpoint)
	})
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	body := value.([]byte)
	if err := json.Unmarshal(body, out); err != nil {
		return false, services.Wrap(services.ErrExternalTool, "openlibrary", operation, "decode response", err)
	}
	if c.cache != nil {
		c.cache.Set(ctx, key, body)
	}
	return true, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build openlibrary request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "openlibrary", "get", fmt.Sprintf("request failed (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errNotFound
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, services.Wrap(services.ErrExternalTool, "openlibrary", "get",
			fmt.Sprintf("status %d (latency=%v)", resp.StatusCode, latency), nil)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "openlibrary", "get", "read response", err)
	}
	return body, nil
}

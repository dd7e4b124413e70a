// SPDX-License-Identifier: MPL-2.0

// Package github is a minimal GitHub REST client covering exactly what
// version resolution needs: listing a repository's tag and branch names.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// defaultPerPage is the number of names requested per API page.
	defaultPerPage = 100

	// defaultMaxPages is the upper bound on pagination per listing to
	// avoid runaway requests against busy repositories.
	defaultMaxPages = 4

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	// Prevents unbounded memory consumption from malicious or malformed responses.
	maxJSONResponseBytes = 10 << 20
)

type (
	// RateLimitError is returned when the GitHub API rate limit is exceeded.
	RateLimitError struct {
		Limit     int
		Remaining int
		ResetAt   time.Time
	}

	// StatusError is returned when the API answers with an unexpected HTTP status.
	StatusError struct {
		StatusCode int
		URL        string
	}

	// ref is the JSON wire shape shared by the tag and branch listing
	// endpoints; only the name matters here.
	ref struct {
		Name string `json:"name"`
	}

	// Client queries the GitHub REST API for repository tag and branch names.
	Client struct {
		httpClient *http.Client
		baseURL    string // API base URL (default: "https://api.github.com", overridable for tests)
		token      string // Optional token for authenticated requests
		userAgent  string // User-Agent header value
		maxPages   int    // Pagination bound per listing
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

// Error reports the status and the redacted request URL.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *Client) {
		g.httpClient = c
	}
}

// WithBaseURL overrides the GitHub API base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(g *Client) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets a GitHub personal access token for authenticated requests.
// Authenticated requests have a higher rate limit (5000/hour vs 60/hour).
func WithToken(token string) ClientOption {
	return func(g *Client) {
		g.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(g *Client) {
		g.userAgent = ua
	}
}

// WithMaxPages overrides the pagination bound per listing.
func WithMaxPages(n int) ClientOption {
	return func(g *Client) {
		if n > 0 {
			g.maxPages = n
		}
	}
}

// NewClient creates a Client with sensible defaults.
// Defaults: baseURL="https://api.github.com", userAgent="imagewright",
// httpClient=http.DefaultClient, maxPages=4.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    "https://api.github.com",
		userAgent:  "imagewright",
		maxPages:   defaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTags fetches the repository's tag names, following pagination up to
// the configured page bound. GitHub returns tags newest first, but callers
// must not rely on ordering.
func (c *Client) ListTags(ctx context.Context, owner, repo string) ([]string, error) {
	return c.listNames(ctx, fmt.Sprintf("%s/repos/%s/%s/tags?per_page=%d",
		c.baseURL, owner, repo, defaultPerPage))
}

// ListBranches fetches the repository's branch names, following pagination
// up to the configured page bound.
func (c *Client) ListBranches(ctx context.Context, owner, repo string) ([]string, error) {
	return c.listNames(ctx, fmt.Sprintf("%s/repos/%s/%s/branches?per_page=%d",
		c.baseURL, owner, repo, defaultPerPage))
}

func (c *Client) listNames(ctx context.Context, pageURL string) ([]string, error) {
	var all []string

	for page := 0; page < c.maxPages && pageURL != ""; page++ {
		resp, reqErr := c.doRequest(ctx, pageURL)
		if reqErr != nil {
			return nil, fmt.Errorf("listing refs: %w", reqErr)
		}

		if rlErr := checkRateLimit(resp); rlErr != nil {
			resp.Body.Close()
			return nil, rlErr
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, &StatusError{StatusCode: resp.StatusCode, URL: redactURL(pageURL)}
		}

		names, parseErr := parseNames(io.LimitReader(resp.Body, maxJSONResponseBytes))
		resp.Body.Close()
		if parseErr != nil {
			return nil, fmt.Errorf("listing refs: %w", parseErr)
		}

		all = append(all, names...)
		pageURL = parseLinkHeader(resp.Header.Get("Link"))
	}

	return all, nil
}

// doRequest creates and executes a GET request with common GitHub API headers.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	// Only attach the auth token when the request targets the configured
	// API host. This prevents token leakage should a Link header ever
	// point somewhere else.
	if c.token != "" && sameHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

// checkRateLimit inspects the X-RateLimit-* response headers and returns a
// RateLimitError when the remaining quota is zero. It does not inspect the
// HTTP status code — only the header values are examined.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		// No rate limit headers present; nothing to check.
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil {
		// Malformed header value; skip rate limit check.
		return nil
	}

	if rem > 0 {
		return nil
	}

	// Parse companion headers for a richer error message. Malformed or
	// missing values default to zero, which is acceptable for diagnostics.
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	resetAt := time.Unix(resetUnix, 0)

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   resetAt,
	}
}

// parseNames decodes a JSON array of tag or branch objects and returns
// their names.
func parseNames(body io.Reader) ([]string, error) {
	var refs []ref
	if err := json.NewDecoder(body).Decode(&refs); err != nil {
		return nil, fmt.Errorf("decoding refs: %w", err)
	}

	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return names, nil
}

// parseLinkHeader extracts the URL for the "next" page from a GitHub API Link header.
// Returns an empty string if no next page exists.
//
// Example header: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkHeader(header string) string {
	if header == "" {
		return ""
	}

	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}

		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}

	return ""
}

// sameHost reports whether reqURL targets the configured API host, so the
// auth token can be safely attached.
func sameHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(reqURL.Host, base.Host)
}

// redactURL strips query parameters and fragments from a URL for safe inclusion
// in error messages, preventing accidental exposure of tokens or sensitive data.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

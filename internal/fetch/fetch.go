// Package fetch downloads a URL and extracts its title and readable text.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	retry "github.com/sethvargo/go-retry"
	"golang.org/x/net/html/charset"
)

// Page is the extracted content of a fetched URL.
type Page struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	ContentType string `json:"content_type"`
	FetchedAt   int64  `json:"fetched_at"`
}

// Fetcher retrieves pages.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// Config configures the HTTP fetcher.
type Config struct {
	UserAgent string
	// MaxBytes caps how much of the body is read. Longer bodies are cut.
	MaxBytes int64
	// Client defaults to a client without a timeout; callers bound each
	// fetch with the context instead.
	Client *http.Client

	// Retries is how many times a transient failure (network error, 429,
	// 5xx) is retried with Fibonacci backoff starting at RetryBackoff.
	Retries      int
	RetryBackoff time.Duration
}

// Client fetches over HTTP(S).
type Client struct {
	http         *http.Client
	userAgent    string
	maxBytes     int64
	retries      int
	retryBackoff time.Duration
	now          func() time.Time
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// New creates an HTTP fetcher.
func New(cfg Config) *Client {
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{}
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Client{
		http:         hc,
		userAgent:    cfg.UserAgent,
		maxBytes:     maxBytes,
		retries:      max(cfg.Retries, 0),
		retryBackoff: backoff,
		now:          time.Now,
	}
}

// Fetch GETs rawURL and extracts HTML, markdown, or plain text.
// Non-2xx responses and other content types are errors.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	var page *Page
	b := retry.WithMaxRetries(uint64(c.retries), retry.NewFibonacci(c.retryBackoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		p, err := c.fetchOnce(ctx, rawURL)
		if err != nil {
			if transient(ctx, err) {
				return retry.RetryableError(err)
			}
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// transient reports whether another attempt might succeed.
func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/markdown,text/plain;q=0.9,*/*;q=0.1")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	kind, err := classify(contentType, resp.Request.URL)
	if err != nil {
		return nil, err
	}

	page := &Page{
		URL:         rawURL,
		ContentType: kind,
		FetchedAt:   c.now().Unix(),
	}

	switch kind {
	case kindHTML:
		r, err := charset.NewReader(bytes.NewReader(body), contentType)
		if err != nil {
			return nil, fmt.Errorf("decode charset: %w", err)
		}
		page.Title, page.Text, err = extractHTML(r)
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
	case kindMarkdown:
		page.Title, page.Text = extractMarkdown(body)
	default:
		page.Text = cleanText(string(body))
	}

	if page.Title == "" {
		page.Title = rawURL
	}
	return page, nil
}

const (
	kindHTML     = "text/html"
	kindMarkdown = "text/markdown"
	kindPlain    = "text/plain"
)

// classify maps a Content-Type header to one of the supported kinds.
func classify(contentType string, u *url.URL) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return kindHTML, nil
	case "text/markdown", "text/x-markdown":
		return kindMarkdown, nil
	case "text/plain":
		if u != nil && (strings.HasSuffix(u.Path, ".md") || strings.HasSuffix(u.Path, ".markdown")) {
			return kindMarkdown, nil
		}
		return kindPlain, nil
	default:
		return "", fmt.Errorf("unsupported content type %q", mediaType)
	}
}

// cleanText trims every line, collapses runs of spaces, and keeps at most
// one blank line between paragraphs.
func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

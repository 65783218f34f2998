// Package fetcher downloads web pages for URL ingestion.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/logger"
)

// Ensure HTTPFetcher implements the interface.
var _ driven.Fetcher = (*HTTPFetcher)(nil)

const (
	// DefaultTimeout bounds one fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes caps the downloaded body.
	DefaultMaxBytes = 20 << 20

	// UserAgent identifies the fetcher to web servers.
	UserAgent = "bpa-ingest/1.0"
)

// HTTPFetcher fetches http and https URLs.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithMaxBytes sets the body size limit.
func WithMaxBytes(n int64) Option {
	return func(f *HTTPFetcher) { f.maxBytes = n }
}

// New creates a fetcher.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:   &http.Client{Timeout: DefaultTimeout},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL. Non-2xx responses are ErrGateway errors; bodies
// larger than the limit are ErrInvalidInput.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*domain.RawDocument, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: not an http(s) URL: %q", domain.ErrInvalidInput, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", domain.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain,application/pdf;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", domain.ErrGateway, u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: fetching %s: status %d", domain.ErrGateway, rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrGateway, rawURL, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, rawURL, f.maxBytes)
	}

	mimeType := contentType(resp.Header.Get("Content-Type"), body)
	logger.Debug("Fetched %s (%s, %d bytes)", rawURL, mimeType, len(body))

	return &domain.RawDocument{
		URI:      rawURL,
		MIMEType: mimeType,
		Content:  body,
	}, nil
}

// contentType returns the media type from the header, sniffing the body
// when the header is missing or unparsable.
func contentType(header string, body []byte) string {
	if header != "" {
		if mediaType, _, err := mime.ParseMediaType(header); err == nil {
			return mediaType
		}
	}
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(body))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}

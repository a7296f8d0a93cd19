package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"finqa/internal/logging"
)

// ErrNoContent is returned when the page has no element matching the content selector.
var ErrNoContent = errors.New("no article content found")

// ErrTooShort is returned when the extracted text is below the minimum length.
var ErrTooShort = errors.New("article too short")

// Config configures the article fetcher.
type Config struct {
	ContentSelector string
	UserAgent       string
	Referer         string
	Timeout         time.Duration
	MaxRetries      int
	MinLength       int
	// RetryDelay is the base backoff between transport retries. Zero uses 200ms.
	RetryDelay time.Duration
}

// Fetcher downloads an article page and extracts its paragraph text.
type Fetcher struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

// New creates a fetcher. A nil client gets a fresh one with cfg.Timeout.
func New(cfg Config, client *http.Client, log *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{cfg: cfg, client: client, log: logging.OrNop(log).Named("fetcher")}
}

// Fetch returns the cleaned article text, or "" when the article is not
// available for any reason. The cause is logged.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) string {
	text, err := f.FetchDetailed(ctx, rawURL)
	if err != nil {
		f.log.Warn("article unavailable", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	return text
}

// FetchDetailed is Fetch with the failure cause returned.
func (f *Fetcher) FetchDetailed(ctx context.Context, rawURL string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("unexpected error processing article: %v", r)
		}
	}()

	body, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	text, err = f.extract(body)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(text) < f.cfg.MinLength {
		return "", ErrTooShort
	}
	return text, nil
}

// get issues the GET request, retrying only transport failures.
func (f *Fetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.retryDelay(attempt - 1)):
			}
			f.log.Debug("retrying fetch", zap.String("url", rawURL), zap.Int("attempt", attempt))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)
		if f.cfg.Referer != "" {
			req.Header.Set("Referer", f.cfg.Referer)
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, resp.Status)
		}
		return resp.Body, nil
	}
	return nil, lastErr
}

// extract finds the content container and returns its paragraph text.
func (f *Fetcher) extract(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	article := doc.Find(f.cfg.ContentSelector).First()
	if article.Length() == 0 {
		return "", ErrNoContent
	}

	article.Find("script, style, iframe, figure, div").Remove()

	paragraphs := article.Find("p")
	if paragraphs.Length() == 0 {
		return strings.TrimSpace(article.Text()), nil
	}

	parts := make([]string, 0, paragraphs.Length())
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		if t := strings.TrimSpace(p.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

func (f *Fetcher) retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// exponential backoff capped at 5s
	d := f.cfg.RetryDelay << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

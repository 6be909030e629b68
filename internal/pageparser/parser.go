package pageparser

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
	"golang.org/x/time/rate"
)

const (
	maxBodyBytes      = 2 << 20
	maxTitleLen       = 200
	maxDescriptionLen = 500
)

// PageMeta is the preview data read from a campaign landing page.
type PageMeta struct {
	URL         string    `json:"url"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type Parser struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
	maxRetries int
	backoff    time.Duration

	// allowPrivate lifts the public-address check for local test servers.
	allowPrivate bool
}

// NewParser builds a parser allowing rps fetches per second across all
// callers. Only public addresses are ever dialed.
func NewParser(timeoutMS, maxRetries int, rps float64, log *zap.Logger) *Parser {
	if rps <= 0 {
		rps = 1
	}
	p := &Parser{
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		log:        log,
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
	}
	p.httpClient = p.newHTTPClient(time.Duration(timeoutMS) * time.Millisecond)
	return p
}

func (p *Parser) FetchAndParse(ctx context.Context, pageURL string) (*PageMeta, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}
	if err := checkURL(base); err != nil {
		return nil, err
	}

	var doc *goquery.Document
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * p.backoff):
			}
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		doc, lastErr = p.fetch(ctx, pageURL)
		if lastErr == nil {
			break
		}
		p.log.Debug("page fetch failed", zap.String("url", pageURL), zap.Int("attempt", attempt), zap.Error(lastErr))
		if isPermanent(lastErr) {
			break
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return Parse(doc, base), nil
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.code, e.url)
}

// 4xx other than 429 will not change on retry, nor will a refused
// destination.
func isPermanent(err error) bool {
	if errors.Is(err, errBlockedAddress) || errors.Is(err, errTooManyRedirects) || errors.Is(err, errUnsupportedURL) {
		return true
	}
	var se *statusError
	return errors.As(err, &se) && se.code >= 400 && se.code < 500 && se.code != http.StatusTooManyRequests
}

func (p *Parser) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "SparkFundBot/1.0 (+https://spark.fund)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, url: pageURL}
	}
	return goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
}

// Parse reads OpenGraph and fallback tags. Relative image URLs are resolved
// against base.
func Parse(doc *goquery.Document, base *url.URL) *PageMeta {
	meta := &PageMeta{URL: base.String(), FetchedAt: time.Now()}

	title := firstNonEmpty(
		metaContent(doc, "property", "og:title"),
		metaContent(doc, "name", "twitter:title"),
		doc.Find("head title").First().Text(),
	)
	meta.Title = clip(title, maxTitleLen)

	desc := firstNonEmpty(
		metaContent(doc, "property", "og:description"),
		metaContent(doc, "name", "twitter:description"),
		metaContent(doc, "name", "description"),
	)
	meta.Description = clip(desc, maxDescriptionLen)

	image := firstNonEmpty(
		metaContent(doc, "property", "og:image"),
		metaContent(doc, "name", "twitter:image"),
	)
	if image != "" {
		if ref, err := url.Parse(image); err == nil {
			abs := base.ResolveReference(ref)
			if abs.Scheme == "http" || abs.Scheme == "https" {
				s := abs.String()
				meta.ImageURL = &s
			}
		}
	}

	return meta
}

func metaContent(doc *goquery.Document, attr, key string) string {
	var out string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr(attr)
		if !strings.EqualFold(v, key) {
			return true
		}
		out, _ = s.Attr("content")
		return false
	})
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// clip collapses whitespace and cuts s to n runes. Empty input gives nil.
func clip(s string, n int) *string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return nil
	}
	if utf8.RuneCountInString(s) > n {
		s = string([]rune(s)[:n])
	}
	return &s
}

package pageparser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const ogPage = `<!doctype html>
<html><head>
<title>Fallback title</title>
<meta property="og:title" content="  Solar   Kiosk  ">
<meta property="og:description" content="Community solar kiosk for the market square.">
<meta property="og:image" content="/img/cover.png">
</head><body><h1>Solar Kiosk</h1></body></html>`

const plainPage = `<html><head>
<title>Plain page</title>
<meta name="description" content="Only a description tag.">
<meta name="twitter:image" content="javascript:alert(1)">
</head></html>`

func parseString(t *testing.T, html, base string) *PageMeta {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	u, _ := url.Parse(base)
	return Parse(doc, u)
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestParse_OpenGraph(t *testing.T) {
	meta := parseString(t, ogPage, "https://example.com/campaigns/solar")

	if got := deref(meta.Title); got != "Solar Kiosk" {
		t.Errorf("title = %q, want %q", got, "Solar Kiosk")
	}
	if got := deref(meta.Description); got != "Community solar kiosk for the market square." {
		t.Errorf("description = %q", got)
	}
	if got := deref(meta.ImageURL); got != "https://example.com/img/cover.png" {
		t.Errorf("image = %q, want resolved absolute url", got)
	}
}

func TestParse_Fallbacks(t *testing.T) {
	meta := parseString(t, plainPage, "https://example.com/")

	if got := deref(meta.Title); got != "Plain page" {
		t.Errorf("title = %q, want %q", got, "Plain page")
	}
	if got := deref(meta.Description); got != "Only a description tag." {
		t.Errorf("description = %q", got)
	}
	if meta.ImageURL != nil {
		t.Errorf("image = %q, want nil for non-http scheme", *meta.ImageURL)
	}
}

func TestClip(t *testing.T) {
	if clip("   ", 10) != nil {
		t.Error("blank input should give nil")
	}
	if got := deref(clip("привет мир", 6)); got != "привет" {
		t.Errorf("clip = %q, want %q", got, "привет")
	}
}

func TestFetchAndParse_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(ogPage))
	}))
	defer srv.Close()

	p := NewParser(2000, 2, 100, zap.NewNop())
	p.backoff = time.Millisecond
	p.allowPrivate = true

	meta, err := p.FetchAndParse(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if deref(meta.Title) != "Solar Kiosk" {
		t.Errorf("title = %q", deref(meta.Title))
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestFetchAndParse_NoRetryOnNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := NewParser(2000, 3, 100, zap.NewNop())
	p.backoff = time.Millisecond
	p.allowPrivate = true

	if _, err := p.FetchAndParse(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestFetchAndParse_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewParser(2000, 0, 1, zap.NewNop())
	if _, err := p.FetchAndParse(ctx, "https://example.com"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestFetchAndParse_RefusesLoopback(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(ogPage))
	}))
	defer srv.Close()

	p := NewParser(2000, 3, 100, zap.NewNop())
	p.backoff = time.Millisecond

	_, err := p.FetchAndParse(context.Background(), srv.URL)
	if !errors.Is(err, errBlockedAddress) {
		t.Fatalf("error = %v, want %v", err, errBlockedAddress)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("server reached %d times", got)
	}
}

func TestFetchAndParse_RefusesNonHTTP(t *testing.T) {
	p := NewParser(2000, 0, 100, zap.NewNop())
	for _, u := range []string{"file:///etc/passwd", "gopher://example.com/", "/relative/path"} {
		if _, err := p.FetchAndParse(context.Background(), u); !errors.Is(err, errUnsupportedURL) {
			t.Errorf("%s: error = %v, want %v", u, err, errUnsupportedURL)
		}
	}
}

func TestFetchAndParse_StopsRedirectLoops(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Redirect(w, r, "/again", http.StatusFound)
	}))
	defer srv.Close()

	p := NewParser(2000, 2, 100, zap.NewNop())
	p.backoff = time.Millisecond
	p.allowPrivate = true

	if _, err := p.FetchAndParse(context.Background(), srv.URL); !errors.Is(err, errTooManyRedirects) {
		t.Fatalf("error = %v, want %v", err, errTooManyRedirects)
	}
	if got := atomic.LoadInt32(&calls); got != maxRedirects+1 {
		t.Errorf("calls = %d, want %d", got, maxRedirects+1)
	}
}

func TestIsPublicAddr(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"93.184.216.34", true},
		{"2606:4700::6810:84e5", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"::ffff:127.0.0.1", false},
		{"fd00::1", false},
		{"fe80::1", false},
	}
	for _, tt := range tests {
		if got := isPublicAddr(netip.MustParseAddr(tt.ip)); got != tt.want {
			t.Errorf("isPublicAddr(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

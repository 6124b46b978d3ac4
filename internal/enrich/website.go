// Package enrich supplements fetched records with contact details scraped
// from business websites.
package enrich

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/html"
)

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-']+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

const defaultScanTimeout = 10 * time.Second

// HTTPClient abstracts HTTP requests to simplify testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebsiteScanner fetches a business website and extracts the first contact
// email found in its visible text.
type WebsiteScanner struct {
	client HTTPClient
}

// ScannerOption configures optional scanner dependencies.
type ScannerOption func(*WebsiteScanner)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPClient) ScannerOption {
	return func(s *WebsiteScanner) {
		if client != nil {
			s.client = client
		}
	}
}

// NewWebsiteScanner builds a scanner with a sensible request timeout.
func NewWebsiteScanner(opts ...ScannerOption) *WebsiteScanner {
	s := &WebsiteScanner{
		client: &http.Client{Timeout: defaultScanTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindEmail fetches websiteURL and returns the first email address found in
// the page text, or an empty string when none exists.
func (s *WebsiteScanner) FindEmail(ctx context.Context, websiteURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, websiteURL, nil)
	if err != nil {
		return "", fmt.Errorf("build website request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch website: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("website returned HTTP %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse website html: %w", err)
	}

	return emailPattern.FindString(visibleText(doc)), nil
}

// visibleText flattens the text nodes of an HTML document, skipping script
// and style content.
func visibleText(node *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return sb.String()
}

// NormalizePhone formats a raw provider phone number as E.164 using the
// given default region. Unparseable input is returned trimmed but otherwise
// unchanged.
func NormalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	number, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return raw
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return raw
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

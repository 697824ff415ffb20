package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122 Safari/537.36"

	DefaultArticleTimeout = 15 * time.Second
	MaxArticleTextLength  = 20000

	maxArticleBytes = 5 << 20
)

// Most structured containers first, the whole body last.
var contentSelectors = []string{
	"article",
	"main",
	`div[itemprop="articleBody"]`,
	`div[class*="article"]`,
	"section",
	"body",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// ContentExtractor fetches linked articles and pulls out their visible
// text. The text only feeds the relevance filter; it is never stored.
type ContentExtractor struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewContentExtractor(httpClient *http.Client, userAgent string, timeout time.Duration) *ContentExtractor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = BrowserUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultArticleTimeout
	}
	return &ContentExtractor{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Fetch returns the article text behind link, or "" when the page could
// not be retrieved or parsed.
func (e *ContentExtractor) Fetch(ctx context.Context, link string) string {
	data, err := e.fetchArticle(ctx, link)
	if err != nil {
		slog.Debug("Article fetch failed", "url", link, "error", err)
		return ""
	}

	return e.run(data, link)
}

// Run extracts the longest candidate text block from an HTML document.
func (e *ContentExtractor) Run(data []byte) string {
	return e.run(data, "")
}

func (e *ContentExtractor) run(data []byte, link string) string {
	if len(data) == 0 {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		slog.Debug("Article parse failed", "url", link, "error", err)
		return ""
	}
	doc.Find("script, style, noscript, template").Remove()

	best := readableText(data, link)
	for _, selector := range contentSelectors {
		text := collapseWhitespace(nodesText(doc.Find(selector).Nodes))
		if len(text) > len(best) {
			best = text
		}
	}

	return truncateRunes(best, MaxArticleTextLength)
}

func (e *ContentExtractor) fetchArticle(ctx context.Context, link string) ([]byte, error) {
	if link == "" {
		return nil, fmt.Errorf("item has no link")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// readableText runs the readability algorithm as one more candidate.
func readableText(data []byte, link string) string {
	pageURL, err := url.Parse(link)
	if err != nil || pageURL.Host == "" {
		// Relative links in the document are resolved against this base
		pageURL = &url.URL{Scheme: "http", Host: "localhost", Path: "/"}
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil || article.Content == "" {
		return ""
	}

	return PlainText(article.Content)
}

// PlainText strips markup from an HTML fragment and collapses whitespace.
func PlainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	if !strings.Contains(fragment, "<") && !strings.Contains(fragment, "&") {
		return collapseWhitespace(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseWhitespace(htmlTagRe.ReplaceAllString(fragment, " "))
	}
	doc.Find("script, style").Remove()

	return collapseWhitespace(nodesText(doc.Nodes))
}

// nodesText concatenates text nodes with a separator so that adjacent
// block elements do not run their words together.
func nodesText(nodes []*html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range nodes {
		walk(n)
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ayush/research-brief-generator/internal/models"
)

const (
	// maxContentLength bounds extracted content so downstream prompts stay
	// a manageable size.
	maxContentLength = 8000

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Fetcher retrieves a URL and extracts its main textual content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) models.FetchResult
}

// DocumentFetcher fetches web pages and extracts readable text. It never
// returns an error: failures produce a FetchResult with Success=false and
// a diagnostic content string.
type DocumentFetcher struct {
	client *http.Client
}

func NewDocumentFetcher(timeout time.Duration) *DocumentFetcher {
	return &DocumentFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch retrieves the URL and extracts the primary content region.
func (f *DocumentFetcher) Fetch(ctx context.Context, url string) models.FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetchFailure(url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fetchFailure(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fetchFailure(url, fmt.Errorf("status %d", resp.StatusCode))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return fetchFailure(url, err)
	}

	title := ""
	if n := findNode(doc, matchTag("title")); n != nil {
		title = strings.TrimSpace(nodeText(n))
	}

	// Prefer a dedicated content region; fall back to whole-body text.
	var region *html.Node
	for _, match := range contentMatchers {
		if n := findNode(doc, match); n != nil {
			region = n
			break
		}
	}
	if region == nil {
		region = findNode(doc, matchTag("body"))
	}

	content := ""
	if region != nil {
		content = strings.Join(strings.Fields(nodeText(region)), " ")
	}

	fullLength := len(content)
	if fullLength > maxContentLength {
		content = content[:maxContentLength]
	}

	return models.FetchResult{
		URL:           url,
		Title:         title,
		Content:       content,
		ContentLength: fullLength,
		Success:       true,
	}
}

func fetchFailure(url string, err error) models.FetchResult {
	content := fmt.Sprintf("Content could not be fetched from %s. Error: %v", url, err)
	return models.FetchResult{
		URL:           url,
		Title:         "Content Unavailable",
		Content:       content,
		ContentLength: len(content),
		Success:       false,
	}
}

type nodeMatcher func(*html.Node) bool

// contentMatchers is the priority order for locating the main content region.
var contentMatchers = []nodeMatcher{
	matchTag("main"),
	matchTag("article"),
	matchAttr("role", "main"),
	matchClass("content"),
	matchClass("post-content"),
	matchClass("entry-content"),
	matchClass("article-content"),
	matchClass("main-content"),
}

func matchTag(tag string) nodeMatcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func matchAttr(key, val string) nodeMatcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, a := range n.Attr {
			if a.Key == key && a.Val == val {
				return true
			}
		}
		return false
	}
}

func matchClass(name string) nodeMatcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, a := range n.Attr {
			if a.Key != "class" {
				continue
			}
			for _, c := range strings.Fields(a.Val) {
				if c == name {
					return true
				}
			}
		}
		return false
	}
}

// findNode returns the first node in document order matching match.
func findNode(n *html.Node, match nodeMatcher) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

// nodeText collects the text content of a subtree, skipping script and
// style elements.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

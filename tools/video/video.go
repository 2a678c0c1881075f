// Package video finds educational videos by scraping DuckDuckGo's HTML
// results restricted to youtube.com.
package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/tailored-agentic-units/studyplan/core/protocol"
	"github.com/tailored-agentic-units/studyplan/tools"
)

const (
	// ToolName is the name models use to call the video lookup.
	ToolName = "search_videos"

	DefaultBaseURL    = "https://html.duckduckgo.com/html/"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxResults = 3

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxBody   = 1 << 20
)

// Video is one search hit.
type Video struct {
	Title string
	URL   string
}

// Client scrapes video results.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxResults int
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Tool() protocol.Tool {
	return protocol.Tool{
		Name:        ToolName,
		Description: "Search YouTube for educational videos on a topic. Returns video titles with links.",
		Parameters:  protocol.QueryParameters("The study topic to find videos for."),
	}
}

func (c *Client) Register(r *tools.Registry) error {
	return r.Register(c.Tool(), tools.QueryHandler(c.Search))
}

// Search returns a formatted list of videos for topic.
func (c *Client) Search(ctx context.Context, topic string) tools.Result {
	videos, err := c.Videos(ctx, topic)
	if err != nil {
		return tools.Failure("Error searching videos: %v", err)
	}
	if len(videos) == 0 {
		return tools.Failure("No videos found for: %s", topic)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎬 **Educational Videos for %s**\n", topic)
	for i, v := range videos {
		fmt.Fprintf(&b, "\n%d. **%s**\n   %s\n", i+1, v.Title, v.URL)
	}
	return tools.Result{Content: strings.TrimSpace(b.String())}
}

// Videos runs the search and returns up to the configured number of hits.
func (c *Client) Videos(ctx context.Context, topic string) ([]Video, error) {
	q := url.Values{}
	q.Set("q", topic+" site:youtube.com")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return collect(doc, c.maxResults), nil
}

func collect(doc *html.Node, limit int) []Video {
	var videos []Video
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(videos) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			v := Video{Title: textContent(n), URL: unwrap(attr(n, "href"))}
			if v.Title != "" && isYouTube(v.URL) && !seen[v.URL] {
				seen[v.URL] = true
				videos = append(videos, v)
			}
			return
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)

	return videos
}

// unwrap resolves DuckDuckGo redirect links (//duckduckgo.com/l/?uddg=...)
// to their target.
func unwrap(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if u.Scheme == "" && u.Host != "" {
		u.Scheme = "https"
		return u.String()
	}
	return href
}

func isYouTube(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(u.Host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com" || host == "youtu.be"
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

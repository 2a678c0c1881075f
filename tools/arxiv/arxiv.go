// Package arxiv looks up academic papers through the arXiv Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tailored-agentic-units/studyplan/core/protocol"
	"github.com/tailored-agentic-units/studyplan/tools"
)

const (
	// ToolName is the name models use to call the paper lookup.
	ToolName = "search_arxiv"

	DefaultBaseURL = "https://export.arxiv.org/api/query"
	DefaultTimeout = 10 * time.Second
)

// Paper is one arXiv entry.
type Paper struct {
	Title     string
	Authors   []string
	Summary   string
	PDFURL    string
	Published time.Time
}

// Format renders the paper as the text block handed back to the model.
func (p Paper) Format() string {
	var b strings.Builder
	b.WriteString("📄 **Paper Found on Arxiv**\n\n")
	fmt.Fprintf(&b, "**Title:** %s\n\n", p.Title)
	fmt.Fprintf(&b, "**Authors:** %s\n\n", strings.Join(p.Authors, ", "))
	fmt.Fprintf(&b, "**Abstract:** %s\n\n", p.Summary)
	fmt.Fprintf(&b, "**PDF Link:** %s\n\n", p.PDFURL)
	fmt.Fprintf(&b, "**Published:** %s", p.Published.Format(time.DateOnly))
	return b.String()
}

// Client queries arXiv. The zero value is not usable; call New.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxResults int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another Atom endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client returning the single most relevant paper.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxResults: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tool returns the definition offered to models.
func (c *Client) Tool() protocol.Tool {
	return protocol.Tool{
		Name:        ToolName,
		Description: "Search Arxiv for the most relevant academic paper on a topic. Returns title, authors, abstract, PDF link and publication date.",
		Parameters:  protocol.QueryParameters("The research topic to search for."),
	}
}

// Register adds the lookup to r.
func (c *Client) Register(r *tools.Registry) error {
	return r.Register(c.Tool(), tools.QueryHandler(c.Search))
}

// Search finds the most relevant paper for topic. Errors are reported in
// the Result rather than returned.
func (c *Client) Search(ctx context.Context, topic string) tools.Result {
	papers, err := c.Papers(ctx, topic)
	if err != nil {
		return tools.Failure("Error searching Arxiv: %v", err)
	}
	if len(papers) == 0 {
		return tools.Failure("No papers found for topic: %s", topic)
	}
	return tools.Result{Content: papers[0].Format()}
}

// Papers runs the query and returns the decoded entries, most relevant first.
func (c *Client) Papers(ctx context.Context, topic string) ([]Paper, error) {
	q := url.Values{}
	q.Set("search_query", "all:"+topic)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(c.maxResults))
	q.Set("sortBy", "relevance")
	q.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("arxiv returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return decodeFeed(resp.Body)
}

type feed struct {
	Entries []feedEntry `xml:"entry"`
}

type feedEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []feedAuthor `xml:"author"`
	Links     []feedLink   `xml:"link"`
}

type feedAuthor struct {
	Name string `xml:"name"`
}

type feedLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

func decodeFeed(r io.Reader) ([]Paper, error) {
	var f feed
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode atom feed: %w", err)
	}

	papers := make([]Paper, 0, len(f.Entries))
	for _, e := range f.Entries {
		// arXiv reports an error as a single entry whose id is the API error URL.
		if strings.Contains(e.ID, "/api/errors") {
			return nil, fmt.Errorf("arxiv query error: %s", collapse(e.Summary))
		}

		p := Paper{
			Title:   collapse(e.Title),
			Summary: strings.TrimSpace(e.Summary),
			PDFURL:  pdfURL(e),
		}
		for _, a := range e.Authors {
			p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
		}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
			p.Published = t
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func pdfURL(e feedEntry) string {
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			return l.Href
		}
	}
	return strings.Replace(strings.TrimSpace(e.ID), "/abs/", "/pdf/", 1)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Package websearch queries the DuckDuckGo HTML endpoint and scrapes the
// result list. Search is a best-effort enrichment: every failure mode
// degrades to an empty result set rather than an error.
package websearch

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("researchd.websearch")

const defaultEndpoint = "https://html.duckduckgo.com/html/"

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Config holds web search settings.
type Config struct {
	Endpoint   string        `koanf:"endpoint"`
	MaxResults int           `koanf:"max_results"`
	Timeout    time.Duration `koanf:"timeout"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 6
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// Client scrapes the DuckDuckGo HTML interface.
type Client struct {
	httpClient *http.Client
	endpoint   string
	maxResults int
	logger     *zap.Logger
}

// NewClient creates a web search client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		maxResults: cfg.MaxResults,
		logger:     logger,
	}
}

// Search returns up to MaxResults hits for the query. Network errors,
// non-200 responses, and unparseable pages all return an empty slice so
// that callers keep working from indexed documents alone.
func (c *Client) Search(ctx context.Context, query string) []Result {
	ctx, span := tracer.Start(ctx, "Client.Search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}
	}

	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.Warn("building search request failed", zap.Error(err))
		searchesTotal.WithLabelValues("error").Inc()
		return []Result{}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; researchd/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("web search request failed", zap.String("query", query), zap.Error(err))
		searchesTotal.WithLabelValues("error").Inc()
		return []Result{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("web search returned non-200",
			zap.String("query", query), zap.Int("status", resp.StatusCode))
		searchesTotal.WithLabelValues("error").Inc()
		return []Result{}
	}

	results := c.parseResults(resp)
	span.SetAttributes(attribute.Int("results", len(results)))
	searchesTotal.WithLabelValues("ok").Inc()
	resultsPerSearch.Observe(float64(len(results)))
	return results
}

func (c *Client) parseResults(resp *http.Response) []Result {
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		c.logger.Warn("parsing search page failed", zap.Error(err))
		return []Result{}
	}

	results := make([]Result, 0, c.maxResults)
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())

		if title == "" || href == "" {
			return true
		}
		results = append(results, Result{
			Title:   title,
			Snippet: snippet,
			URL:     cleanURL(href),
		})
		return len(results) < c.maxResults
	})
	return results
}

// cleanURL unwraps DuckDuckGo's redirect links, which carry the real
// destination in the uddg query parameter.
func cleanURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if uddg := u.Query().Get("uddg"); uddg != "" {
		if target, err := url.QueryUnescape(uddg); err == nil {
			return target
		}
	}
	if u.Scheme == "" {
		u.Scheme = "https"
		return u.String()
	}
	return href
}

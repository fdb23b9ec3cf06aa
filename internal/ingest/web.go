package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/hakulabs/haku/internal/security"
)

const (
	userAgent = "haku/1.0 (+https://github.com/hakulabs/haku)"

	defaultCrawlDepth = 2
	defaultCrawlPages = 20
)

// URLPolicy decides which URLs may be fetched and supplies the client used
// to fetch them. security.URL is the production implementation; tests swap
// in a permissive one so they can reach local servers.
type URLPolicy interface {
	Validate(rawURL string) error
	ValidateRedirect(req *http.Request, via []*http.Request) error
	SafeClient(timeout time.Duration) *http.Client
}

// LoadURL fetches one page, extracts its readable text, and ingests it
// through the text pipeline. Chunks carry source=<url>, file_type="html",
// and the page title when one was found.
func (i *Ingestor) LoadURL(ctx context.Context, rawURL string) (*Result, error) {
	if err := i.policy.Validate(rawURL); err != nil {
		return nil, fmt.Errorf("refusing to fetch %s: %w", rawURL, err)
	}

	body, finalURL, err := i.fetchPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	art, err := ExtractArticle(body, finalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}

	i.logger.Debug("page fetched",
		"url", rawURL, "title", art.Title, "bytes", len(body))
	return i.LoadText(ctx, art.Text, pageMetadata(rawURL, art))
}

// fetchPage downloads a page through the policy's client, bounded by
// security.MaxFetchSize. It returns the body and the final URL after
// redirects, which extraction uses to absolutize links.
func (i *Ingestor) fetchPage(ctx context.Context, rawURL string) ([]byte, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetching %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, security.MaxFetchSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if len(body) > security.MaxFetchSize {
		return nil, nil, fmt.Errorf("fetching %s: response exceeds %d bytes", rawURL, security.MaxFetchSize)
	}

	return body, resp.Request.URL, nil
}

// crawlConfig holds crawl bounds.
type crawlConfig struct {
	maxDepth int
	maxPages int
}

// CrawlOption configures LoadSite.
type CrawlOption func(*crawlConfig)

// WithMaxDepth sets how many links deep the crawl may follow. Depth 2 means
// the start page plus the pages it links to. Values <= 0 keep the default.
func WithMaxDepth(depth int) CrawlOption {
	return func(c *crawlConfig) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithMaxPages caps how many pages one crawl may fetch. Values <= 0 keep the
// default.
func WithMaxPages(pages int) CrawlOption {
	return func(c *crawlConfig) {
		if pages > 0 {
			c.maxPages = pages
		}
	}
}

// SiteResult reports the outcome of a site crawl.
type SiteResult struct {
	Pages   []*Result     // one per ingested page
	Skipped []SourceError // pages fetched but not ingested
	Visited int           // pages fetched, including skipped ones
}

// LoadSite crawls startURL and the pages it links to on the same host, and
// ingests each page through the LoadURL pipeline. The crawl is bounded by
// depth and page count, never leaves the start host, and re-validates every
// request and redirect against the URL policy.
func (i *Ingestor) LoadSite(ctx context.Context, startURL string, opts ...CrawlOption) (*SiteResult, error) {
	if err := i.policy.Validate(startURL); err != nil {
		return nil, fmt.Errorf("refusing to crawl %s: %w", startURL, err)
	}
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	cfg := crawlConfig{maxDepth: defaultCrawlDepth, maxPages: defaultCrawlPages}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(start.Hostname()),
		colly.MaxDepth(cfg.maxDepth),
		colly.MaxBodySize(security.MaxFetchSize),
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(i.fetchTimeout)
	if i.client.Transport != nil {
		c.WithTransport(i.client.Transport)
	}
	c.SetRedirectHandler(i.policy.ValidateRedirect)

	res := &SiteResult{}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil || res.Visited >= cfg.maxPages {
			r.Abort()
			return
		}
		if err := i.policy.Validate(r.URL.String()); err != nil {
			i.logger.Warn("crawl blocked URL", "url", r.URL.String(), "error", err)
			r.Abort()
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if link := e.Request.AbsoluteURL(e.Attr("href")); link != "" {
			_ = e.Request.Visit(link)
		}
	})

	c.OnResponse(func(r *colly.Response) {
		res.Visited++
		pageURL := r.Request.URL.String()

		art, err := ExtractArticle(r.Body, r.Request.URL)
		if err != nil {
			res.Skipped = append(res.Skipped, SourceError{Source: pageURL, Err: err})
			return
		}

		page, err := i.LoadText(ctx, art.Text, pageMetadata(pageURL, art))
		if err != nil {
			i.logger.Warn("crawled page not ingested", "url", pageURL, "error", err)
			res.Skipped = append(res.Skipped, SourceError{Source: pageURL, Err: err})
			return
		}
		res.Pages = append(res.Pages, page)
	})

	c.OnError(func(r *colly.Response, err error) {
		res.Skipped = append(res.Skipped, SourceError{Source: r.Request.URL.String(), Err: err})
	})

	if err := c.Visit(startURL); err != nil {
		return nil, fmt.Errorf("crawl %s: %w", startURL, err)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	i.logger.Info("site crawled",
		"start", startURL, "pages", len(res.Pages), "skipped", len(res.Skipped))
	return res, nil
}

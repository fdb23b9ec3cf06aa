package ingest

import (
	"bytes"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// ErrNoContent means a page produced no text worth embedding.
var ErrNoContent = errors.New("no readable text content in page")

// Article is the readable content pulled out of an HTML page.
type Article struct {
	Title       string
	Description string
	Text        string
}

// ExtractArticle pulls the main text out of an HTML page. Readability does
// the heavy lifting; pages it cannot make sense of (index pages, bare
// fragments) fall back to a plain visible-text walk. Title and description
// fall back to the document head when readability leaves them empty.
func ExtractArticle(body []byte, pageURL *url.URL) (*Article, error) {
	art := &Article{}

	if parsed, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
		art.Title = strings.TrimSpace(parsed.Title)
		art.Description = strings.TrimSpace(parsed.Excerpt)
		art.Text = collapseBlankLines(parsed.TextContent)
	}

	if art.Text == "" {
		art.Text = textFromHTML(body)
	}
	if art.Title == "" || art.Description == "" {
		fillFromHead(art, body)
	}

	if art.Text == "" {
		return nil, ErrNoContent
	}
	return art, nil
}

// fillFromHead completes missing title/description from the document head.
func fillFromHead(art *Article, body []byte) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return
	}
	if art.Title == "" {
		art.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if art.Description == "" {
		if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
			art.Description = strings.TrimSpace(desc)
		}
	}
}

// Elements whose text never belongs in extracted content.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"head":     true,
}

// Elements that end a line of extracted text.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"header": true, "footer": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"br": true, "blockquote": true, "pre": true,
}

// textFromHTML extracts the visible text of an HTML document: skipped
// elements contribute nothing, block elements break lines, and inline text
// is joined with single spaces.
func textFromHTML(body []byte) string {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				b.WriteString(t)
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteByte('\n')
		}
	}
	walk(root)

	return collapseBlankLines(b.String())
}

// collapseBlankLines trims trailing space from every line and folds runs of
// blank lines into a single blank line, so extracted pages chunk on the same
// paragraph breaks as plain text documents.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// pageMetadata builds the chunk metadata for a fetched page.
func pageMetadata(pageURL string, art *Article) map[string]any {
	md := map[string]any{
		"source":    pageURL,
		"file_type": "html",
	}
	if art.Title != "" {
		md["title"] = art.Title
	}
	if art.Description != "" {
		md["description"] = art.Description
	}
	return md
}

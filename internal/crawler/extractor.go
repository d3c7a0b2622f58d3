package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
)

var (
	navClassPattern     = regexp.MustCompile(`(?i)pagination|pager|\bnav\b`)
	sidebarClassPattern = regexp.MustCompile(`(?i)sidebar|menu|toc|table-of-contents`)
	navTextPattern      = regexp.MustCompile(`(?i)^\s*(next|previous|forward|back)\b`)
	whitespacePattern   = regexp.MustCompile(`[ \t]+`)
	blankLinePattern    = regexp.MustCompile(`\n{3,}`)
)

// Extractor parses fetched HTML into visible text, markdown, and the set of
// outbound links worth following.
type Extractor struct {
	scope  *Scope
	logger arbor.ILogger
}

// NewExtractor creates an extractor whose link output is pre-filtered by the
// given scope.
func NewExtractor(scope *Scope, logger arbor.ILogger) *Extractor {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Extractor{scope: scope, logger: logger}
}

// Extract parses html fetched from pageURL and returns the page's visible
// text, a markdown rendering, and the deduplicated in-scope outbound links.
func (e *Extractor) Extract(html, pageURL string) (*PageResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	links := e.extractLinks(doc, pageURL)

	// Script and style subtrees contribute nothing to the visible text.
	doc.Find("script, style, noscript").Remove()
	rawText := collapseWhitespace(doc.Text())

	markdown, err := e.toMarkdown(html, pageURL)
	if err != nil {
		e.logger.Warn().Str("url", pageURL).Err(err).Msg("Markdown conversion failed, using plain text")
		markdown = rawText
	}

	return &PageResult{
		URL:      pageURL,
		RawText:  rawText,
		Markdown: markdown,
		Links:    links,
	}, nil
}

// extractLinks collects every anchor href plus the navigation candidates the
// pagination heuristics surface, normalizes them against pageURL, and drops
// anything out of scope.
func (e *Extractor) extractLinks(doc *goquery.Document, pageURL string) []string {
	candidates := make(map[string]struct{})

	add := func(href string) {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		normalized, err := Normalize(href, pageURL)
		if err != nil {
			return
		}
		if !isHTTP(normalized) {
			return
		}
		if !e.scope.InScope(normalized) {
			return
		}
		candidates[normalized] = struct{}{}
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}

		// Primary set: every anchor on the page.
		add(href)

		// Pagination and navigation candidates are unioned in explicitly so
		// paginated listings keep feeding the frontier even when themed
		// markup hides them from casual selectors.
		switch {
		case navTextPattern.MatchString(s.Text()):
			add(href)
		case strings.Contains(href, "?"):
			add(href)
		case selectionInClass(s, navClassPattern), selectionInClass(s, sidebarClassPattern):
			add(href)
		}
	})

	links := make([]string, 0, len(candidates))
	for link := range candidates {
		links = append(links, link)
	}
	sort.Strings(links)
	return links
}

// toMarkdown converts the page HTML to markdown for the cleaning service.
func (e *Extractor) toMarkdown(html, pageURL string) (string, error) {
	domain := ""
	if u, err := url.Parse(pageURL); err == nil {
		domain = u.Scheme + "://" + u.Host
	}
	converter := md.NewConverter(domain, true, nil)
	return converter.ConvertString(html)
}

// selectionInClass walks the anchor and its ancestors looking for a class
// attribute matching pattern.
func selectionInClass(s *goquery.Selection, pattern *regexp.Regexp) bool {
	for node := s; node.Length() > 0; node = node.Parent() {
		if class, ok := node.Attr("class"); ok && pattern.MatchString(class) {
			return true
		}
		if goquery.NodeName(node) == "html" {
			break
		}
	}
	return false
}

func isHTTP(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// collapseWhitespace tidies the raw document text so the cleaner receives
// readable input rather than a wall of indentation.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
	}
	joined := strings.Join(lines, "\n")
	joined = blankLinePattern.ReplaceAllString(joined, "\n\n")
	return strings.TrimSpace(joined)
}

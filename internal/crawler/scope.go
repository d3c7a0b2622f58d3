package crawler

import (
	"net/url"
	"strings"
)

// Scope decides whether a discovered URL belongs to the crawl: same host as
// the seed and not a binary artifact. Pure predicate, no I/O.
type Scope struct {
	seed       *url.URL
	extensions []string
}

// NewScope builds a scope around the seed URL. binaryExtensions are path
// suffixes (".pdf", ".jpg", ...) excluded from the crawl; nil falls back to
// the default set.
func NewScope(seedURL string, binaryExtensions []string) (*Scope, error) {
	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, err
	}
	if len(binaryExtensions) == 0 {
		binaryExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".gif"}
	}
	exts := make([]string, 0, len(binaryExtensions))
	for _, ext := range binaryExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return &Scope{seed: seed, extensions: exts}, nil
}

// InScope reports whether the URL shares the seed's host and is not a binary
// file.
func (s *Scope) InScope(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Host, s.seed.Host) {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range s.extensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}

// InSubtree additionally requires the URL's path to start with the seed's
// path, keeping the recursive traversal inside one documentation subtree.
func (s *Scope) InSubtree(rawURL string) bool {
	if !s.InScope(rawURL) {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != s.seed.Scheme {
		return false
	}
	return strings.HasPrefix(u.Path, s.seed.Path)
}

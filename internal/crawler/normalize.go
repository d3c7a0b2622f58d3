package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize resolves raw against the page URL it was found on and returns the
// canonical form used as the dedup identity: lowercased scheme and host,
// fragment stripped, query parameters re-serialized in sorted key order.
// Two URLs differing only in fragment or query order normalize identically,
// and normalization is idempotent.
func Normalize(raw string, pageURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}

	if pageURL != "" {
		base, err := url.Parse(pageURL)
		if err != nil {
			return "", fmt.Errorf("parse base url %q: %w", pageURL, err)
		}
		u = base.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Values.Encode serializes keys in sorted order, which is exactly the
	// deterministic form the visited set keys on.
	u.RawQuery = u.Query().Encode()

	return u.String(), nil
}

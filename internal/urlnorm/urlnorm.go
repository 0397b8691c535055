// Package urlnorm canonicalizes URLs into the primary dedup key used
// throughout the site graph: lowercased scheme and host, trailing slash and
// fragment stripped, tracking query parameters discarded, everything else
// left alone.
package urlnorm

import (
	"net/url"
	"strings"
)

// trackingParams are discarded from every normalized URL. Order in the
// output follows the input's remaining parameters — this set is not
// re-sorted.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"ref":          {},
	"fbclid":       {},
}

// Normalize canonicalizes raw for use as a dedup key. A parse failure
// returns raw unchanged — it is then treated as an opaque key rather than a
// URL, which still lets exact-match dedup work for malformed-but-repeated
// inputs.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	if u.RawQuery != "" {
		u.RawQuery = stripTracking(u.RawQuery)
	}

	return u.String()
}

// stripTracking removes tracking keys from a raw query string while
// preserving the order of the remaining parameters exactly as supplied.
func stripTracking(rawQuery string) string {
	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if _, dropped := trackingParams[strings.ToLower(key)]; dropped {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

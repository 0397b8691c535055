// Package policy decides which URLs are in scope for exploration and which
// elements are too dangerous to click.
package policy

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// DomainPolicy decides whether a URL is in-scope for the crawl. An in-scope
// URL is one whose host equals the base host or shares its registrable
// domain (eTLD+1, e.g. "example.com" for both "app.example.com" and
// "docs.example.com"); a caller-supplied allow-list, when non-empty,
// overrides that rule entirely.
type DomainPolicy struct {
	baseHost   string
	baseDomain string
	allowList  []string
}

// NewDomainPolicy derives the base host from the first entry point and, via
// publicsuffix, its registrable domain — the "subdomain" half of the
// same-host-or-subdomain rule is really an eTLD+1 comparison, not a suffix
// match, so that "evil-example.com" is never mistaken for a subdomain of
// "example.com". allowList entries are matched as host substrings and, if
// non-empty, take precedence over the domain rule.
func NewDomainPolicy(firstEntryPoint string, allowList []string) *DomainPolicy {
	host := ""
	domain := ""
	if u, err := url.Parse(firstEntryPoint); err == nil {
		host = strings.ToLower(u.Hostname())
		if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			domain = d
		}
	}
	return &DomainPolicy{baseHost: host, baseDomain: domain, allowList: allowList}
}

// InScope reports whether raw is within the crawl's domain policy. Parse
// failures are always out-of-scope.
func (p *DomainPolicy) InScope(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	if len(p.allowList) > 0 {
		for _, allowed := range p.allowList {
			if strings.Contains(host, strings.ToLower(allowed)) {
				return true
			}
		}
		return false
	}

	if p.baseHost == "" {
		return false
	}
	if host == p.baseHost {
		return true
	}
	if p.baseDomain == "" {
		return false
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	return err == nil && domain == p.baseDomain
}

// BaseHost returns the host the policy was constructed against.
func (p *DomainPolicy) BaseHost() string {
	return p.baseHost
}

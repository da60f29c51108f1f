package config

import (
	"sort"
	"strings"
)

// sensitiveDomains groups domains whose visits are never stored, by the
// kind of service they host.
var sensitiveDomains = map[string][]string{
	"banking": {
		"ally.com", "pnc.com", "truist.com", "navyfederal.org", "etrade.com",
		"robinhood.com", "zelle.com", "mint.com",
	},
	"passwords": {"keepersecurity.com", "nordpass.com"},
	"identity":  {"login.live.com", "onelogin.com", "duo.com", "login.gov", "id.me"},
	"health": {
		"mychartsso.com", "kp.org", "healthcare.gov", "medicare.gov",
		"member.cigna.com", "member.aetna.com", "member.uhc.com",
	},
	"government": {"ssa.gov", "hrblock.com"},
	"crypto":     {"coinbase.com", "binance.com", "kraken.com", "gemini.com"},
	"payroll":    {"workday.com", "adp.com", "gusto.com", "paychex.com"},
}

// DefaultDenylistDomains returns the built-in denylist, sorted. It extends
// the exclusion rules the store seeds on first migration and is merged with
// capture.denylist_domains when a store is opened.
func DefaultDenylistDomains() []string {
	var out []string
	for _, domains := range sensitiveDomains {
		out = append(out, domains...)
	}
	sort.Strings(out)
	return out
}

// DenylistCategory reports which built-in category lists domain or one of
// its parent domains.
func DenylistCategory(domain string) (string, bool) {
	domain = strings.ToLower(domain)
	for category, domains := range sensitiveDomains {
		for _, d := range domains {
			if d == domain || strings.HasSuffix(domain, "."+d) {
				return category, true
			}
		}
	}
	return "", false
}

// Denylist returns the effective domain denylist: built-ins plus the
// configured extras, deduplicated and sorted.
func (c *Config) Denylist() []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range append(DefaultDenylistDomains(), c.Capture.DenylistDomains...) {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

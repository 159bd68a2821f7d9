package guard

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

var hostCaser = cases.Lower(language.Und)

// normalizeHost folds a hostname to a canonical comparable form: fullwidth
// ASCII variants are collapsed to their halfwidth equivalents before
// case-folding, so a host spelled with fullwidth characters (e.g. U+FF4D
// "m" for "example．com") can't slip past an allowlist or blocklist match
// that only normalized ASCII case.
func normalizeHost(host string) string {
	return hostCaser.String(width.Fold.String(host))
}

// AllowRule is one entry in the global egress allowlist.
type AllowRule struct {
	// HostPattern is an exact host or a "*.suffix" wildcard covering the
	// base domain and all subdomains.
	HostPattern string
	// Methods restricts which HTTP methods this rule permits beyond GET,
	// which is always implicitly allowed once a rule matches. Empty means
	// any method is allowed.
	Methods []string
}

func (r AllowRule) matchesHost(host string) bool {
	host = normalizeHost(host)
	pattern := normalizeHost(r.HostPattern)
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:] // ".suffix"
		base := pattern[2:]
		return host == base || strings.HasSuffix(host, suffix)
	}
	return host == pattern
}

func (r AllowRule) allowsMethod(method string) bool {
	method = strings.ToUpper(method)
	if method == "GET" {
		return true
	}
	if len(r.Methods) == 0 {
		return false
	}
	for _, m := range r.Methods {
		if strings.ToUpper(m) == method {
			return true
		}
	}
	return false
}

// Allowlist is the global egress allowlist, matched by host pattern.
type Allowlist struct {
	rules []AllowRule
}

// NewAllowlist builds an Allowlist from rules.
func NewAllowlist(rules []AllowRule) *Allowlist {
	return &Allowlist{rules: rules}
}

// Match returns the first rule whose host pattern matches host, and
// whether it was found.
func (a *Allowlist) Match(host string) (AllowRule, bool) {
	for _, r := range a.rules {
		if r.matchesHost(host) {
			return r, true
		}
	}
	return AllowRule{}, false
}

// ToolPolicyMode selects how a tool's per-tool policy restricts hosts on
// top of the global allowlist.
type ToolPolicyMode int

const (
	// ToolPolicyInherit applies only the global allowlist.
	ToolPolicyInherit ToolPolicyMode = iota
	// ToolPolicyAllowlist requires the host to also match the tool's own
	// allow set.
	ToolPolicyAllowlist
	// ToolPolicyBlocklist rejects hosts in the tool's block set even if
	// the global allowlist permits them.
	ToolPolicyBlocklist
)

// ToolPolicy is the per-tool network policy consulted after the global
// allowlist.
type ToolPolicy struct {
	Mode  ToolPolicyMode
	Hosts []string // allow set (ToolPolicyAllowlist) or block set (ToolPolicyBlocklist)
}

func (p ToolPolicy) permits(host string) (bool, string) {
	host = normalizeHost(host)
	switch p.Mode {
	case ToolPolicyAllowlist:
		for _, h := range p.Hosts {
			if strings.EqualFold(h, host) {
				return true, ""
			}
		}
		return false, "host not in tool allowlist"
	case ToolPolicyBlocklist:
		for _, h := range p.Hosts {
			if strings.EqualFold(h, host) {
				return false, "host in tool blocklist"
			}
		}
		return true, ""
	default:
		return true, ""
	}
}

// DefaultBlockedPorts are rejected regardless of allowlist match.
var DefaultBlockedPorts = map[int]bool{
	22:   true, // SSH
	23:   true, // telnet
	25:   true, // SMTP
	3389: true, // RDP
}

// MetadataEndpoints are cloud-metadata hostnames/IPs that are always blocked.
var MetadataEndpoints = map[string]bool{
	"169.254.169.254":          true,
	"100.100.100.200":          true,
	"metadata.google.internal": true,
	"metadata.internal":        true,
}

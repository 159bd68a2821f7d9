// Package guard implements the Network Guard: the sole egress checkpoint
// for every outbound network request the process makes (invariant I2). No
// tool may open a socket independently of Guard.CheckURL.
package guard

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/net/ssrf"
)

// MaxRedirects bounds manual redirect following; exceeding it is a stable
// denial reason rather than an infinite loop.
const MaxRedirects = 10

// CheckResult is the outcome of a CheckURL call.
type CheckResult struct {
	Allowed    bool
	Reason     string
	ResolvedIP string
}

// Guard is the network egress checkpoint. One Guard is shared process-wide;
// its DNS cache and allowlist are the only mutable state in the core shared
// across sessions (§5).
type Guard struct {
	allowlist *Allowlist
	cache     *DNSCache
	resolve   Resolver
}

// New builds a Guard with the given allowlist and DNS cache TTL in seconds
// (default 60s when cacheTTLSeconds<=0).
func New(allowlist *Allowlist, cacheTTLSeconds int) *Guard {
	return &Guard{
		allowlist: allowlist,
		cache:     NewDNSCache(time.Duration(cacheTTLSeconds) * time.Second),
		resolve:   SystemResolver,
	}
}

// WithResolver overrides the DNS resolver, for tests.
func (g *Guard) WithResolver(r Resolver) *Guard {
	g.resolve = r
	return g
}

// CheckURL validates rawURL+method against the global allowlist and the
// optional per-tool policy, following spec §4.4 steps 1-8 in order.
func (g *Guard) CheckURL(rawURL, method string, toolPolicy *ToolPolicy) CheckResult {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return CheckResult{Allowed: false, Reason: "unparseable URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return CheckResult{Allowed: false, Reason: "unsupported scheme"}
	}

	host := u.Hostname()
	if host == "" {
		return CheckResult{Allowed: false, Reason: "unparseable URL"}
	}

	rule, ok := g.allowlist.Match(host)
	if !ok {
		return CheckResult{Allowed: false, Reason: "host not in global allowlist"}
	}
	if !rule.allowsMethod(method) {
		return CheckResult{Allowed: false, Reason: fmt.Sprintf("method %s not permitted for host", strings.ToUpper(method))}
	}

	if toolPolicy != nil {
		if permitted, reason := toolPolicy.permits(host); !permitted {
			return CheckResult{Allowed: false, Reason: reason}
		}
	}

	if port := portOf(u); port != 0 && DefaultBlockedPorts[port] {
		return CheckResult{Allowed: false, Reason: fmt.Sprintf("blocked port %d", port)}
	}

	if ssrf.IsBlockedHostname(host) || MetadataEndpoints[normalizeHost(host)] {
		return CheckResult{Allowed: false, Reason: "blocked hostname"}
	}

	resolvedIP, rebind, err := g.cache.Lookup(g.resolve, host)
	if err != nil {
		// Fail closed: an unresolved host is never allowed through.
		return CheckResult{Allowed: false, Reason: "DNS resolution failed"}
	}
	if rebind {
		return CheckResult{Allowed: false, Reason: "DNS rebinding detected"}
	}

	if ssrf.IsPrivateIPAddress(resolvedIP) {
		return CheckResult{Allowed: false, Reason: "resolves to private/internal IP address"}
	}
	if MetadataEndpoints[resolvedIP] {
		return CheckResult{Allowed: false, Reason: "cloud metadata endpoint blocked"}
	}
	if isBroadcastOrUnspecified(resolvedIP) {
		return CheckResult{Allowed: false, Reason: "resolves to broadcast/unspecified address"}
	}

	return CheckResult{Allowed: true, ResolvedIP: resolvedIP}
}

func portOf(u *url.URL) int {
	p := u.Port()
	if p == "" {
		return 0
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return 0
	}
	return n
}

func isBroadcastOrUnspecified(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	if ip.IsUnspecified() {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 255 && ip4[1] == 255 && ip4[2] == 255 && ip4[3] == 255
	}
	return false
}

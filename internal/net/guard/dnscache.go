package guard

import (
	"net"
	"sync"
	"time"
)

// CacheEntry is one resolved-host record. TTL-bounded; consulted before
// resolution and validated against on re-resolution (rebinding detection).
type CacheEntry struct {
	Host      string
	IP        string
	ExpiresAt time.Time
}

// DNSCache holds resolved hostnames for rebinding detection. All mutation
// happens under an internal lock; the resolver never holds the lock across
// a network call.
type DNSCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewDNSCache creates a cache with the given TTL (default 60s if ttl<=0).
func NewDNSCache(ttl time.Duration) *DNSCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &DNSCache{
		entries: make(map[string]CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Lookup resolves host via Resolver and checks it against any non-expired
// cached entry for rebinding. Returns the resolved IP, whether rebinding
// was detected, and an error only on resolution failure.
func (c *DNSCache) Lookup(resolve Resolver, host string) (resolvedIP string, rebind bool, err error) {
	ips, err := resolve(host)
	if err != nil {
		return "", false, err
	}
	if len(ips) == 0 {
		return "", false, &net.DNSError{Err: "no addresses found", Name: host}
	}
	resolvedIP = ips[0]

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if cached, ok := c.entries[host]; ok && cached.ExpiresAt.After(now) {
		if cached.IP != resolvedIP {
			return resolvedIP, true, nil
		}
		return resolvedIP, false, nil
	}

	c.entries[host] = CacheEntry{Host: host, IP: resolvedIP, ExpiresAt: now.Add(c.ttl)}
	return resolvedIP, false, nil
}

// Prune removes expired entries. Intended to be called periodically (see
// internal/net/guard.Maintenance) to bound cache growth.
func (c *DNSCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for host, entry := range c.entries {
		if !entry.ExpiresAt.After(now) {
			delete(c.entries, host)
			removed++
		}
	}
	return removed
}

// Size returns the current entry count, mostly for tests and metrics.
func (c *DNSCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Resolver resolves a hostname to a list of IP address strings. Production
// code uses net.LookupHost; tests substitute a fake.
type Resolver func(host string) ([]string, error)

// SystemResolver resolves via net.LookupHost.
func SystemResolver(host string) ([]string, error) {
	return net.LookupHost(host)
}

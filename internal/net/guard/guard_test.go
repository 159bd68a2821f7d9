package guard

import "testing"

func fakeResolver(answers map[string][]string) Resolver {
	return func(host string) ([]string, error) {
		if ips, ok := answers[host]; ok {
			return ips, nil
		}
		return nil, &lookupError{host}
	}
}

type lookupError struct{ host string }

func (e *lookupError) Error() string { return "no such host: " + e.host }

func newTestGuard(rules []AllowRule, answers map[string][]string) *Guard {
	g := New(NewAllowlist(rules), 60)
	g.WithResolver(fakeResolver(answers))
	return g
}

func TestCheckURLAllowsMatchingHost(t *testing.T) {
	g := newTestGuard(
		[]AllowRule{{HostPattern: "*.githubusercontent.com"}},
		map[string][]string{"raw.githubusercontent.com": {"185.199.108.133"}},
	)
	result := g.CheckURL("https://raw.githubusercontent.com/x/y/README.md", "GET", nil)
	if !result.Allowed {
		t.Fatalf("expected allowed, got denied: %s", result.Reason)
	}
	if result.ResolvedIP == "" {
		t.Fatal("expected resolved IP")
	}
}

func TestCheckURLDeniesUnlistedHost(t *testing.T) {
	g := newTestGuard(nil, nil)
	result := g.CheckURL("https://evil.example/", "GET", nil)
	if result.Allowed {
		t.Fatal("expected denied for unlisted host")
	}
}

func TestCheckURLBlocksMetadataEndpoint(t *testing.T) {
	g := newTestGuard([]AllowRule{{HostPattern: "169.254.169.254"}}, nil)
	result := g.CheckURL("http://169.254.169.254/latest/meta-data/", "GET", nil)
	if result.Allowed {
		t.Fatal("expected metadata endpoint blocked")
	}
}

func TestCheckURLDetectsRebinding(t *testing.T) {
	answers := map[string][]string{"evil.example": {"93.184.216.34"}}
	g := newTestGuard([]AllowRule{{HostPattern: "evil.example"}}, answers)

	first := g.CheckURL("https://evil.example/", "GET", nil)
	if !first.Allowed {
		t.Fatalf("expected first check allowed: %s", first.Reason)
	}

	answers["evil.example"] = []string{"10.0.0.5"}
	second := g.CheckURL("https://evil.example/", "GET", nil)
	if second.Allowed {
		t.Fatal("expected rebinding to be denied")
	}
	if second.Reason != "DNS rebinding detected" {
		t.Fatalf("unexpected reason: %s", second.Reason)
	}
}

func TestCheckURLBlocksPrivateResolvedIP(t *testing.T) {
	g := newTestGuard(
		[]AllowRule{{HostPattern: "internal.example"}},
		map[string][]string{"internal.example": {"10.0.0.5"}},
	)
	result := g.CheckURL("https://internal.example/", "GET", nil)
	if result.Allowed {
		t.Fatal("expected private resolved IP denied")
	}
}

func TestCheckURLBlocksBlockedPort(t *testing.T) {
	g := newTestGuard(
		[]AllowRule{{HostPattern: "example.com"}},
		map[string][]string{"example.com": {"93.184.216.34"}},
	)
	result := g.CheckURL("https://example.com:22/", "GET", nil)
	if result.Allowed {
		t.Fatal("expected blocked port denied")
	}
}

func TestCheckURLRejectsUnresolvedHostFailClosed(t *testing.T) {
	g := newTestGuard([]AllowRule{{HostPattern: "example.com"}}, nil)
	result := g.CheckURL("https://example.com/", "GET", nil)
	if result.Allowed {
		t.Fatal("expected fail-closed on resolution failure")
	}
}

func TestCheckURLRestrictsNonGETMethods(t *testing.T) {
	g := newTestGuard(
		[]AllowRule{{HostPattern: "example.com"}}, // no Methods listed
		map[string][]string{"example.com": {"93.184.216.34"}},
	)
	if g.CheckURL("https://example.com/", "GET", nil).Allowed != true {
		t.Fatal("expected GET allowed")
	}
	if g.CheckURL("https://example.com/", "POST", nil).Allowed {
		t.Fatal("expected POST denied without explicit method rule")
	}
}

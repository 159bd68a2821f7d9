package flowcontrol

import (
	"testing"
	"time"

	"github.com/haasonsaas/nexus/internal/labels"
)

func label(trust labels.TrustLevel, class labels.DataClass) labels.Label {
	return labels.New(trust, class, "test", "", time.Now())
}

func TestEgressDecisions(t *testing.T) {
	cases := []struct {
		name string
		l    labels.Label
		want Decision
	}{
		{"secret always denied", label(labels.TrustSystem, labels.ClassSecret), Deny},
		{"untrusted sensitive denied", label(labels.TrustUntrusted, labels.ClassSensitive), Deny},
		{"verified sensitive asks", label(labels.TrustVerified, labels.ClassSensitive), Ask},
		{"public allowed", label(labels.TrustUser, labels.ClassPublic), Allow},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Check(c.l, DestinationEgress, ToolChainOptions{}); got != c.want {
				t.Fatalf("got %v want %v", got, c.want)
			}
		})
	}
}

func TestSemanticMemoryDecisions(t *testing.T) {
	if Check(label(labels.TrustUntrusted, labels.ClassPublic), DestinationSemanticMemory, ToolChainOptions{}) != Deny {
		t.Fatal("expected untrusted denied")
	}
	if Check(label(labels.TrustVerified, labels.ClassPublic), DestinationSemanticMemory, ToolChainOptions{}) != Ask {
		t.Fatal("expected verified to ask")
	}
	if Check(label(labels.TrustUser, labels.ClassPublic), DestinationSemanticMemory, ToolChainOptions{}) != Allow {
		t.Fatal("expected user allowed")
	}
}

func TestWorkingMemoryDeniesSecret(t *testing.T) {
	if Check(label(labels.TrustSystem, labels.ClassSecret), DestinationWorkingMemory, ToolChainOptions{}) != Deny {
		t.Fatal("expected secret denied")
	}
}

func TestToolChainDecisions(t *testing.T) {
	secret := label(labels.TrustUser, labels.ClassSecret)
	if Check(secret, DestinationToolChain, ToolChainOptions{SinkSanitizes: false}) != Deny {
		t.Fatal("expected secret to non-sanitizing sink denied")
	}
	if Check(secret, DestinationToolChain, ToolChainOptions{SinkSanitizes: true}) != Allow {
		t.Fatal("expected secret to sanitizing sink allowed")
	}
	untrusted := label(labels.TrustUntrusted, labels.ClassPublic)
	if Check(untrusted, DestinationToolChain, ToolChainOptions{SinkLeaks: true}) != Ask {
		t.Fatal("expected untrusted to leaky sink to ask")
	}
}

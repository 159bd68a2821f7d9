package labels

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCombineMonotonicity(t *testing.T) {
	now := time.Now()
	a := New(TrustUser, ClassInternal, "user", "", now)
	b := New(TrustUntrusted, ClassSensitive, "web_fetch", "req-1", now)

	combined := Combine(a, b)
	if combined.Trust > a.Trust || combined.Trust > b.Trust {
		t.Fatalf("combine trust not min: %v", combined.Trust)
	}
	if combined.DataClass < a.DataClass || combined.DataClass < b.DataClass {
		t.Fatalf("combine data class not max: %v", combined.DataClass)
	}
	if combined.Trust != TrustUntrusted {
		t.Fatalf("expected untrusted, got %v", combined.Trust)
	}
	if combined.DataClass != ClassSensitive {
		t.Fatalf("expected sensitive, got %v", combined.DataClass)
	}
}

func TestElevateNeverLowers(t *testing.T) {
	l := New(TrustUser, ClassSecret, "x", "", time.Now())
	elevated := l.Elevate(ClassInternal)
	if elevated.DataClass != ClassSecret {
		t.Fatalf("elevate lowered class: %v", elevated.DataClass)
	}
}

func TestLabelRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	parent := New(TrustVerified, ClassInternal, "read", "file-1", now)
	l := New(TrustUser, ClassSensitive, "bash", "call-1", now)
	l.InheritedFrom = &parent

	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Label
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Trust != l.Trust || out.DataClass != l.DataClass || out.Origin != l.Origin {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, l)
	}
	if out.InheritedFrom == nil || out.InheritedFrom.Trust != parent.Trust {
		t.Fatalf("inherited label lost in round trip")
	}
}

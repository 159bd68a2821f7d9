package labels

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireLabel is the JSON wire shape for Label: trust and data class are
// serialized as their string names so persisted labels stay readable and
// stable across reorderings of the iota constants.
type wireLabel struct {
	Trust         string     `json:"trust"`
	DataClass     string     `json:"data_class"`
	Origin        string     `json:"origin"`
	OriginID      string     `json:"origin_id,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
	InheritedFrom *wireLabel `json:"inherited_from,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(l))
}

func toWire(l Label) wireLabel {
	w := wireLabel{
		Trust:     l.Trust.String(),
		DataClass: l.DataClass.String(),
		Origin:    l.Origin,
		OriginID:  l.OriginID,
		Timestamp: l.Timestamp,
	}
	if l.InheritedFrom != nil {
		inner := toWire(*l.InheritedFrom)
		w.InheritedFrom = &inner
	}
	return w
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Label) UnmarshalJSON(data []byte) error {
	var w wireLabel
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out, err := fromWire(w)
	if err != nil {
		return err
	}
	*l = out
	return nil
}

func fromWire(w wireLabel) (Label, error) {
	trust, err := parseTrust(w.Trust)
	if err != nil {
		return Label{}, err
	}
	class, err := parseClass(w.DataClass)
	if err != nil {
		return Label{}, err
	}
	out := Label{
		Trust:     trust,
		DataClass: class,
		Origin:    w.Origin,
		OriginID:  w.OriginID,
		Timestamp: w.Timestamp,
	}
	if w.InheritedFrom != nil {
		inner, err := fromWire(*w.InheritedFrom)
		if err != nil {
			return Label{}, err
		}
		out.InheritedFrom = &inner
	}
	return out, nil
}

func parseTrust(s string) (TrustLevel, error) {
	switch s {
	case "untrusted":
		return TrustUntrusted, nil
	case "verified":
		return TrustVerified, nil
	case "user":
		return TrustUser, nil
	case "system":
		return TrustSystem, nil
	default:
		return 0, fmt.Errorf("labels: unknown trust level %q", s)
	}
}

func parseClass(s string) (DataClass, error) {
	switch s {
	case "public":
		return ClassPublic, nil
	case "internal":
		return ClassInternal, nil
	case "sensitive":
		return ClassSensitive, nil
	case "secret":
		return ClassSecret, nil
	default:
		return 0, fmt.Errorf("labels: unknown data class %q", s)
	}
}

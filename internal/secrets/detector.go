package secrets

import (
	"fmt"
	"sort"
	"strings"
)

// Location is a half-open byte range [Start, End) within the scanned text.
type Location struct {
	Start int
	End   int
}

// Finding is one detected secret-shaped span of text.
type Finding struct {
	Confidence Confidence
	Type       string
	Service    string // empty when not provider-specific
	Location   Location
}

// Detector scans text for secret-shaped content. The zero value is ready to
// use; Detector holds no mutable state and is safe for concurrent use.
type Detector struct{}

// New returns a ready-to-use Detector.
func New() *Detector {
	return &Detector{}
}

// Scan returns every finding in text, de-duplicated by location precedence
// (a definite finding at an overlapping span wins over probable, which wins
// over possible) and filtered through the false-positive reducer.
func (d *Detector) Scan(text string) []Finding {
	var all []Finding

	for _, p := range definitePatterns {
		all = append(all, matchesFor(text, p)...)
	}
	for _, p := range probablePatterns {
		all = append(all, matchesFor(text, p)...)
	}
	all = append(all, scanPossible(text)...)

	all = dedupeByLocation(all)
	all = filterFalsePositives(text, all)

	sort.Slice(all, func(i, j int) bool { return all[i].Location.Start < all[j].Location.Start })
	return all
}

func matchesFor(text string, p pattern) []Finding {
	idxs := p.re.FindAllStringIndex(text, -1)
	findings := make([]Finding, 0, len(idxs))
	for _, idx := range idxs {
		findings = append(findings, Finding{
			Confidence: p.confidence,
			Type:       p.typ,
			Service:    p.service,
			Location:   Location{Start: idx[0], End: idx[1]},
		})
	}
	return findings
}

func scanPossible(text string) []Finding {
	var findings []Finding
	findings = append(findings, findAllWithContext(text, possibleBase64Run)...)
	findings = append(findings, findAllWithContext(text, possibleHexRun)...)
	return findings
}

func findAllWithContext(text string, re regexpLike) []Finding {
	idxs := re.FindAllStringIndex(text, -1)
	var findings []Finding
	for _, idx := range idxs {
		start, end := idx[0], idx[1]
		candidate := text[start:end]
		if dataURIPrefix.MatchString(precedingWindow(text, start, len(candidate)+20) + candidate) {
			continue
		}
		windowStart := start - 50
		if windowStart < 0 {
			windowStart = 0
		}
		context := text[windowStart:start]
		if !possibleKeywordContext.MatchString(context) {
			continue
		}
		findings = append(findings, Finding{
			Confidence: Possible,
			Type:       "high_entropy_string",
			Location:   Location{Start: start, End: end},
		})
	}
	return findings
}

// regexpLike is satisfied by *regexp.Regexp; kept as an interface only so
// findAllWithContext reads cleanly for both the base64 and hex patterns.
type regexpLike interface {
	FindAllStringIndex(s string, n int) [][]int
}

func precedingWindow(text string, start, width int) string {
	from := start - width
	if from < 0 {
		from = 0
	}
	if from > start {
		from = start
	}
	return text[from:start]
}

// dedupeByLocation keeps, for each overlapping cluster of findings, the one
// with the highest confidence (definite > probable > possible); ties keep
// the earliest-starting, widest match.
func dedupeByLocation(findings []Finding) []Finding {
	if len(findings) == 0 {
		return findings
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Location.Start != findings[j].Location.Start {
			return findings[i].Location.Start < findings[j].Location.Start
		}
		return findings[i].Confidence > findings[j].Confidence
	})

	var kept []Finding
	for _, f := range findings {
		overlaps := false
		for i := range kept {
			if overlapsRange(kept[i].Location, f.Location) {
				overlaps = true
				if f.Confidence > kept[i].Confidence {
					kept[i] = f
				}
				break
			}
		}
		if !overlaps {
			kept = append(kept, f)
		}
	}
	return kept
}

func overlapsRange(a, b Location) bool {
	return a.Start < b.End && b.Start < a.End
}

// filterFalsePositives drops findings that are clearly placeholder text,
// git-commit-like hashes appearing in git-diff/log context, data-URIs, or
// documentation comments containing the word "example"/"placeholder".
func filterFalsePositives(text string, findings []Finding) []Finding {
	out := findings[:0:0]
	for _, f := range findings {
		span := text[f.Location.Start:f.Location.End]
		windowStart := f.Location.Start - 40
		if windowStart < 0 {
			windowStart = 0
		}
		windowEnd := f.Location.End + 10
		if windowEnd > len(text) {
			windowEnd = len(text)
		}
		context := strings.ToLower(text[windowStart:windowEnd])

		if strings.Contains(context, "example") || strings.Contains(context, "placeholder") ||
			strings.Contains(context, "your_") || strings.Contains(context, "<redacted>") ||
			strings.Contains(span, "xxxxxxxx") {
			continue
		}
		if f.Type == "high_entropy_string" && (strings.Contains(context, "commit ") || strings.Contains(context, "sha256:") || strings.Contains(context, "sha1:")) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Redact rewrites text right-to-left so earlier offsets stay valid,
// replacing every finding at or above minConfidence with a redaction
// marker. Redact(Redact(x)) == Redact(x): a marker string produced by a
// prior pass contains no secret-shaped content, so a second scan finds
// nothing new to replace.
func (d *Detector) Redact(text string, minConfidence Confidence, replacement string) string {
	findings := d.Scan(text)
	out := text
	for i := len(findings) - 1; i >= 0; i-- {
		f := findings[i]
		if f.Confidence < minConfidence {
			continue
		}
		marker := replacement
		if marker == "" {
			marker = defaultMarker(f)
		}
		out = out[:f.Location.Start] + marker + out[f.Location.End:]
	}
	return out
}

func defaultMarker(f Finding) string {
	if f.Service != "" {
		return fmt.Sprintf("[REDACTED:%s:%s]", f.Type, f.Service)
	}
	return fmt.Sprintf("[REDACTED:%s]", f.Type)
}

// Summary is counts-only metadata, safe to attach to audit entries: it
// never carries the matched text itself.
type Summary struct {
	Total        int
	ByConfidence map[string]int
	ByType       map[string]int
}

// Summarize reduces findings to counts-only metadata.
func Summarize(findings []Finding) Summary {
	s := Summary{ByConfidence: map[string]int{}, ByType: map[string]int{}}
	for _, f := range findings {
		s.Total++
		s.ByConfidence[f.Confidence.String()]++
		s.ByType[f.Type]++
	}
	return s
}

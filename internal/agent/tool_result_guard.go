package agent

import (
	"regexp"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/labels"
	"github.com/haasonsaas/nexus/internal/secrets"
	"github.com/haasonsaas/nexus/internal/tools/policy"
	"github.com/haasonsaas/nexus/pkg/models"
)

// DeclaredLabeler is an optional interface a Tool may implement to declare
// the baseline trust level and data class of the content it returns (§4.2
// step 6d: "the tool's declared output trust/data-class"), before any
// Secret Detector elevation. A tool that doesn't implement it gets the
// conservative default baseline (see defaultDeclaredLabel).
type DeclaredLabeler interface {
	DeclaredLabel() (labels.TrustLevel, labels.DataClass)
}

// defaultDeclaredLabel is the baseline assigned when a tool doesn't
// implement DeclaredLabeler: untrusted/internal, the same posture the spec
// gives to content arriving from outside the process boundary.
func defaultDeclaredLabel() (labels.TrustLevel, labels.DataClass) {
	return labels.TrustUntrusted, labels.ClassInternal
}

// computeLabel implements §4.2 step 6d: start from the tool's declared
// output trust/data-class, then elevate the data class by the highest-
// confidence secret finding in content (definite -> secret, probable ->
// at least sensitive). Possible-confidence findings don't elevate on their
// own — they're too noisy to move a label, only to redact.
func computeLabel(tool Tool, content string) labels.Label {
	trust, class := defaultDeclaredLabel()
	if dl, ok := tool.(DeclaredLabeler); ok {
		trust, class = dl.DeclaredLabel()
	}
	l := labels.New(trust, class, "tool:"+toolNameOrUnknown(tool), "", time.Time{})

	findings := resultDetector.Scan(content)
	for _, f := range findings {
		switch f.Confidence {
		case secrets.Definite:
			l = l.Elevate(labels.ClassSecret)
		case secrets.Probable:
			l = l.Elevate(labels.ClassSensitive)
		}
	}
	return l
}

func toolNameOrUnknown(tool Tool) string {
	if tool == nil {
		return "unknown"
	}
	return tool.Name()
}

// resultDetector is the shared Secret Detector instance consulted by every
// ToolResultGuard. It is stateless (§4.6) so one instance serves the whole
// process; sharing it here is what gives I3 ("every string written to
// audit, session store, channel output, or memory has first passed the
// Secret Detector at >= probable confidence") a single choke point instead
// of a config knob a caller could forget to flip on.
var resultDetector = secrets.New()

// DefaultMaxToolResultSize is the default maximum size for tool results (64KB).
// This prevents memory exhaustion and excessive storage costs.
const DefaultMaxToolResultSize = 64 * 1024

// builtinSecretPatterns contains pre-compiled patterns for detecting common secrets.
// These are always applied when SanitizeSecrets is enabled.
var builtinSecretPatterns = []*regexp.Regexp{
	// API keys: api_key=<key>, apiKey: <key>, etc.
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[\w-]{20,}['"]?`),
	// Bearer tokens: Bearer eyJhbGc...
	regexp.MustCompile(`(?i)bearer\s+[\w-\.]+`),
	// AWS keys and secrets
	regexp.MustCompile(`(?i)(aws|amazon).*?(key|secret|token)\s*[:=]\s*['"]?[\w/+=]{20,}['"]?`),
	// Generic secrets: password=<value>, secret=<value>, token=<value>
	regexp.MustCompile(`(?i)(password|passwd|secret|token)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`),
	// Private keys (PEM format)
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
}

// ToolResultGuard controls how tool results are redacted before persistence.
type ToolResultGuard struct {
	Enabled         bool
	MaxChars        int
	Denylist        []string
	RedactPatterns  []string
	RedactionText   string
	TruncateSuffix  string
	SanitizeSecrets bool // When true, applies builtin secret detection patterns
}

func (g ToolResultGuard) active() bool {
	return g.Enabled || g.MaxChars > 0 || len(g.Denylist) > 0 || len(g.RedactPatterns) > 0 || g.RedactionText != "" || g.TruncateSuffix != "" || g.SanitizeSecrets
}

// Apply redacts and caps a tool result before it is persisted to the
// session, forwarded on the channel, or written to audit. The Secret
// Detector pass (I3) always runs, independent of g.active(): redaction
// closure is an invariant, not an opt-in config knob. SanitizeSecrets only
// additionally applies the legacy builtin regexes kept below for coverage
// the Detector's patterns don't reach (loose, non-provider-specific
// phrasing a caller has hand-tuned for their environment).
func (g ToolResultGuard) Apply(toolName string, result models.ToolResult, resolver *policy.Resolver, tool Tool) models.ToolResult {
	originalContent := result.Content
	redaction := strings.TrimSpace(g.RedactionText)
	customMarker := redaction != ""
	if redaction == "" {
		redaction = "[REDACTED]"
	}
	truncateSuffix := strings.TrimSpace(g.TruncateSuffix)
	if truncateSuffix == "" {
		truncateSuffix = "...[truncated]"
	}

	// Check tool denylist first - completely redact if matched
	if len(g.Denylist) > 0 && matchesToolPatterns(g.Denylist, toolName, resolver) {
		result.Content = redaction
		result.Label = computeLabel(tool, originalContent).DataClass.String()
		return result
	}

	content := result.Content

	if content != "" {
		marker := ""
		if customMarker {
			marker = redaction
		}
		content = resultDetector.Redact(content, secrets.Probable, marker)
	}

	// Apply builtin secret patterns when SanitizeSecrets is enabled, for
	// coverage the Detector's patterns don't target.
	if g.SanitizeSecrets && content != "" {
		for _, re := range builtinSecretPatterns {
			content = re.ReplaceAllString(content, redaction)
		}
	}

	if !g.active() {
		result.Content = content
		result.Label = computeLabel(tool, originalContent).DataClass.String()
		return result
	}

	// Apply custom redact patterns
	if len(g.RedactPatterns) > 0 && content != "" {
		for _, pattern := range g.RedactPatterns {
			pattern = strings.TrimSpace(pattern)
			if pattern == "" {
				continue
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				continue
			}
			content = re.ReplaceAllString(content, redaction)
		}
	}

	result.Content = content

	// Truncate if over size limit
	if g.MaxChars > 0 && len(result.Content) > g.MaxChars {
		cutoff := g.MaxChars
		if cutoff < 0 {
			cutoff = 0
		}
		if cutoff > len(result.Content) {
			cutoff = len(result.Content)
		}
		result.Content = result.Content[:cutoff] + truncateSuffix
	}

	result.Label = computeLabel(tool, originalContent).DataClass.String()
	return result
}

// DetectSecrets scans content for potential secrets and returns
// a list of matched pattern descriptions. This is useful for logging
// or alerting on potential secret exposure.
func DetectSecrets(content string) []string {
	if content == "" {
		return nil
	}

	patternNames := []string{
		"api_key",
		"bearer_token",
		"aws_key",
		"generic_secret",
		"private_key",
	}

	var matches []string
	for i, re := range builtinSecretPatterns {
		if re.MatchString(content) {
			matches = append(matches, patternNames[i])
		}
	}
	return matches
}

// SanitizeToolResult applies default security sanitization to a tool result:
// 1. Truncates if over DefaultMaxToolResultSize (64KB)
// 2. Redacts detected secrets with [REDACTED]
//
// This is a convenience function for applying security defaults.
func SanitizeToolResult(result string) string {
	// Truncate if over size limit
	if len(result) > DefaultMaxToolResultSize {
		result = result[:DefaultMaxToolResultSize] + "\n...[truncated]"
	}

	// Redact secrets
	for _, re := range builtinSecretPatterns {
		result = re.ReplaceAllString(result, "[REDACTED]")
	}

	return result
}

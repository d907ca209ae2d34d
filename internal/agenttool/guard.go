package agenttool

import (
	"regexp"
	"strings"

	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// DefaultMaxResultChars is the default maximum size for one tool result's
// text content (64KB).
const DefaultMaxResultChars = 64 * 1024

// builtinSecretPatterns detects common secrets in tool output.
var builtinSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[\w-]{20,}['"]?`),
	regexp.MustCompile(`(?i)bearer\s+[\w-\.]+`),
	regexp.MustCompile(`(?i)(aws|amazon).*?(key|secret|token)\s*[:=]\s*['"]?[\w/+=]{20,}['"]?`),
	regexp.MustCompile(`(?i)(password|passwd|secret|token)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`),
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
}

// ResultGuard redacts and/or truncates a tool result's text content before
// it is appended to the log.
type ResultGuard struct {
	Enabled         bool
	MaxChars        int
	Denylist        []string
	RedactPatterns  []string
	RedactionText   string
	TruncateSuffix  string
	SanitizeSecrets bool
}

// Active reports whether the guard has any effect configured.
func (g ResultGuard) Active() bool {
	return g.Enabled || g.MaxChars > 0 || len(g.Denylist) > 0 ||
		len(g.RedactPatterns) > 0 || g.RedactionText != "" || g.TruncateSuffix != "" || g.SanitizeSecrets
}

// Apply redacts/truncates the text blocks of a tool result in place,
// returning the (possibly modified) result.
func (g ResultGuard) Apply(toolName string, result agentmsg.ToolResultMessage) agentmsg.ToolResultMessage {
	if !g.Active() {
		return result
	}

	redaction := strings.TrimSpace(g.RedactionText)
	if redaction == "" {
		redaction = "[REDACTED]"
	}
	truncateSuffix := strings.TrimSpace(g.TruncateSuffix)
	if truncateSuffix == "" {
		truncateSuffix = "...[truncated]"
	}

	if len(g.Denylist) > 0 && matchesAny(g.Denylist, toolName) {
		result.Content = []agentmsg.Block{agentmsg.TextBlock(redaction)}
		return result
	}

	for i := range result.Content {
		if result.Content[i].Type != agentmsg.BlockText {
			continue
		}
		text := result.Content[i].Text

		if g.SanitizeSecrets && text != "" {
			for _, re := range builtinSecretPatterns {
				text = re.ReplaceAllString(text, redaction)
			}
		}

		for _, pattern := range g.RedactPatterns {
			pattern = strings.TrimSpace(pattern)
			if pattern == "" {
				continue
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				continue
			}
			text = re.ReplaceAllString(text, redaction)
		}

		if g.MaxChars > 0 && len(text) > g.MaxChars {
			text = text[:g.MaxChars] + truncateSuffix
		}

		result.Content[i].Text = text
	}

	return result
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if p == name || p == "*" {
			return true
		}
		if strings.HasSuffix(p, "*") && strings.HasPrefix(name, strings.TrimSuffix(p, "*")) {
			return true
		}
	}
	return false
}

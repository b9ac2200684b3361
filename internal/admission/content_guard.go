package admission

import (
	"regexp"
	"strings"
)

// codeLikePattern matches key/value fragments that look like serialized
// JSON or code objects ("key": {...} / [...] / "..." / true / 1.5).
var codeLikePattern = regexp.MustCompile(`("[\w_]+"\s*:\s*({.*}|\[.*\]|".*"|true|false|[\d.]+))`)

// sqlInjectionPatterns are matched case-insensitively against the input.
var sqlInjectionPatterns = []string{
	"' or '1'='1", "union select", "drop table", "truncate table",
	"exec(", "xp_cmdshell", "information_schema",
}

// commandPatterns cover file path probing and command execution idioms.
var commandPatterns = []string{
	"/etc/passwd", "ls -la", "process.env", "select * from",
	"require(", "import os", "subprocess.run",
}

// IsSuspicious reports whether the text shows signs of an injection
// attempt. It is deterministic and side-effect-free, and deliberately
// biased toward flagging: a false positive only earns the user a
// deflection reply.
func IsSuspicious(text string) bool {
	if text == "" {
		return false
	}

	if codeLikePattern.MatchString(text) {
		return true
	}

	lower := strings.ToLower(text)
	for _, p := range sqlInjectionPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, p := range commandPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}

	// Unbalanced braces and brackets are common in malicious payloads.
	if strings.Count(text, "{") != strings.Count(text, "}") ||
		strings.Count(text, "[") != strings.Count(text, "]") {
		return true
	}

	return false
}

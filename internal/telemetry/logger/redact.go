package logger

import (
	"log/slog"
	"strings"
)

// sensitiveValuePrefixes mark values that must never be logged whole.
// PHC-format password hashes are the one secret-shaped value kvgate
// handles.
var sensitiveValuePrefixes = []string{
	"$argon2id$",
	"$argon2i$",
}

// sensitiveKeyPatterns flag field names whose values get fully redacted.
// "key" is deliberately absent: keyspace keys are routine log fields
// here, not secrets.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"bearer",
}

// redactedValue replaces values caught by key-pattern matching.
const redactedValue = "***REDACTED***"

// redactSensitive rewrites an attribute if it carries sensitive data.
// Installed as the ReplaceAttr hook on every handler New builds.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		// A known secret prefix wins over key matching and keeps a
		// recognizable stub instead of a blanket placeholder.
		if p := secretPrefix(s); p != "" {
			return slog.String(a.Key, maskValue(s, p))
		}
		if s != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		members := a.Value.Group()
		masked := make([]slog.Attr, len(members))
		for i, m := range members {
			masked[i] = redactSensitive(m)
		}
		a.Value = slog.GroupValue(masked...)
	}
	return a
}

// secretPrefix returns the sensitive prefix s starts with, or "".
func secretPrefix(s string) string {
	for _, p := range sensitiveValuePrefixes {
		if strings.HasPrefix(s, p) {
			return p
		}
	}
	return ""
}

// maskValue keeps the prefix plus short hints of the secret body:
// prefix + first 3 chars + "..." + last 3 chars.
func maskValue(value, prefix string) string {
	body := value[len(prefix):]
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

// RedactString masks a known secret-shaped value. Use it when a value
// must be safe before it reaches any logger.
func RedactString(value string) string {
	if p := secretPrefix(value); p != "" {
		return maskValue(value, p)
	}
	return value
}

// IsSensitiveKey reports whether a field name suggests sensitive
// content.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, pat := range sensitiveKeyPatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

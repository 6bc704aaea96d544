// Package redact strips credentials and other sensitive fragments from text
// before it is logged or returned to API clients.
package redact

import (
	"regexp"
	"strings"
)

// Placeholders substituted for redacted fragments.
const (
	Placeholder           = "[REDACTED]"
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	JWTPlaceholder        = "[REDACTED_JWT]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	EmailPlaceholder      = "[REDACTED_EMAIL]"
	PathPlaceholder       = "[REDACTED_PATH]"
)

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// rules run in order; SQL goes first so its literals are not half-redacted
// by the later rules.
var rules = []rule{
	{
		re:          regexp.MustCompile(`\b(?:SELECT\s.+?\sFROM|INSERT\s+INTO|UPDATE\s+\w+\s+SET|DELETE\s+FROM)\b[\s\S]*`),
		replacement: SQLPlaceholder,
	},
	{
		re:          regexp.MustCompile(`(?i)\b(postgres(?:ql)?|smtps?)://[^/\s@]+@`),
		replacement: "${1}://" + CredentialPlaceholder + "@",
	},
	{
		re:          regexp.MustCompile(`eyJ[\w-]+\.eyJ[\w-]+\.[\w-]+`),
		replacement: JWTPlaceholder,
	},
	{
		re:          regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|token|api[_-]?key)(\s*[=:]\s*)("[^"]*"|'[^']*'|[^\s,;&]+)`),
		replacement: "${1}${2}" + Placeholder,
	},
	{
		re:          regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		replacement: EmailPlaceholder,
	},
	{
		re:          regexp.MustCompile(`(?:/[\w.-]+){2,}`),
		replacement: PathPlaceholder,
	},
}

// String returns input with every sensitive fragment replaced.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts err's message. A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

var secretKeyParts = []string{"password", "passwd", "secret", "token", "api_key", "apikey"}

// SettingValue masks the value of a setting whose final key segment names a
// secret, such as email.smtp_password. Other values pass through.
func SettingValue(key string, value any) any {
	leaf := strings.ToLower(key[strings.LastIndex(key, ".")+1:])
	for _, part := range secretKeyParts {
		if strings.Contains(leaf, part) {
			return Placeholder
		}
	}
	return value
}

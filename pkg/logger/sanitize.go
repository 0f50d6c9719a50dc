package logger

import (
	"net/url"
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "a**@*.com")
func SanitizedEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "[invalid-email]"
	}

	local, domain := email[:at], email[at+1:]
	masked := local[:1] + strings.Repeat("*", len(local)-1)

	labels := strings.Split(domain, ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = strings.Repeat("*", len(labels[i]))
	}

	return masked + "@" + strings.Join(labels, ".")
}

// secretPathPrefixes are routes whose next path segment is a bearer secret
var secretPathPrefixes = []string{"/reset-password/"}

// RedactPath hides secrets carried in the URL path, such as reset tokens
func RedactPath(path string) string {
	for _, prefix := range secretPathPrefixes {
		i := strings.Index(path, prefix)
		if i < 0 {
			continue
		}
		start := i + len(prefix)
		end := strings.IndexByte(path[start:], '/')
		if end < 0 {
			end = len(path) - start
		}
		if end > 0 {
			path = path[:start] + "[REDACTED]" + path[start+end:]
		}
	}
	return path
}

var sensitiveParams = []string{"password", "token", "secret", "email", "auth"}

// SanitizeQueryString reports whether any query parameter name looks sensitive
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return true
	}

	for key := range values {
		key = strings.ToLower(key)
		for _, s := range sensitiveParams {
			if strings.Contains(key, s) {
				return true
			}
		}
	}
	return false
}

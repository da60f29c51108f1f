package logging

import (
	"net/url"
	"strings"
)

// Query parameters whose values never reach a log line.
var sensitiveParams = []string{
	"token",
	"access_token",
	"id_token",
	"code",
	"key",
	"api_key",
	"apikey",
	"password",
	"passwd",
	"secret",
	"session",
	"sig",
	"signature",
	"auth",
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "REDACTED"

// IsSensitiveParam checks if a query parameter name is considered sensitive.
func IsSensitiveParam(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range sensitiveParams {
		if lower == p || strings.HasSuffix(lower, "_"+p) {
			return true
		}
	}
	return false
}

// RedactURL masks userinfo and sensitive query values in a visited URL
// before it is logged. Unparseable input becomes RedactedValue.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return RedactedValue
	}
	if u.User != nil {
		u.User = url.User(RedactedValue)
	}
	if u.RawQuery != "" {
		q := u.Query()
		for name := range q {
			if IsSensitiveParam(name) {
				q.Set(name, RedactedValue)
			}
		}
		u.RawQuery = q.Encode()
	}
	u.Fragment = ""
	return u.String()
}

// RedactURLs applies RedactURL to each element.
func RedactURLs(raw []string) []string {
	out := make([]string, len(raw))
	for i, r := range raw {
		out[i] = RedactURL(r)
	}
	return out
}

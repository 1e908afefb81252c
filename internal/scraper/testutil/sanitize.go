package testutil

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveKey matches parameter, header and JSON key names whose values
// must not be committed.
var sensitiveKey = regexp.MustCompile(`(?i)password|passwd|senha|secret|token|session|sess_|auth|jwt|bearer|api_?key|credential|access_key|private_key|username|cpf`)

// sensitiveHeaders are always redacted regardless of sensitiveKey.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"proxy-authorization": true,
	"x-csrf-token":        true,
	"x-xsrf-token":        true,
}

// sensitiveJSONField matches `"key": "value"` and `"key": value` pairs.
var sensitiveJSONField = regexp.MustCompile(`"([^"]*)"\s*:\s*("(?:[^"\\]|\\.)*"|[^",}\]\s]+)`)

// cpfPattern matches Brazilian taxpayer ids, formatted or not.
var cpfPattern = regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`)

// SanitizeHAR returns a copy of har with credentials, session material and
// personal identifiers replaced by [REDACTED].
func SanitizeHAR(har *HARLog) *HARLog {
	out := &HARLog{Entries: make([]HAREntry, len(har.Entries))}
	for i, e := range har.Entries {
		out.Entries[i] = HAREntry{
			Request: HARRequest{
				Method:  e.Request.Method,
				URL:     sanitizeURL(e.Request.URL),
				Headers: sanitizeHeaders(e.Request.Headers),
				Body:    sanitizeBody(e.Request.Body),
			},
			Response: HARResponse{
				Status:  e.Response.Status,
				Headers: sanitizeHeaders(e.Response.Headers),
				Content: HARContent{
					MimeType: e.Response.Content.MimeType,
					Text:     sanitizeContent(e.Response.Content),
					Encoding: e.Response.Content.Encoding,
					Size:     e.Response.Content.Size,
				},
			},
		}
	}
	return out
}

func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	query := u.Query()
	for key := range query {
		if sensitiveKey.MatchString(key) {
			query.Set(key, redacted)
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func sanitizeHeaders(headers []HARHeader) []HARHeader {
	if headers == nil {
		return nil
	}

	out := make([]HARHeader, len(headers))
	for i, h := range headers {
		out[i] = h
		if sensitiveHeaders[strings.ToLower(h.Name)] || sensitiveKey.MatchString(h.Name) {
			out[i].Value = redacted
		}
	}
	return out
}

// sanitizeContent leaves binary bodies alone.
func sanitizeContent(c HARContent) string {
	if c.Encoding == "base64" {
		return c.Text
	}
	return sanitizeBody(c.Text)
}

func sanitizeBody(body string) string {
	trimmed := strings.TrimSpace(body)
	switch {
	case trimmed == "":
		return body
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		body = sanitizeJSON(body)
	case strings.Contains(body, "=") && !strings.Contains(trimmed, "<"):
		body = sanitizeForm(body)
	}
	return cpfPattern.ReplaceAllString(body, redacted)
}

func sanitizeForm(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return body
	}

	for key := range values {
		if sensitiveKey.MatchString(key) {
			values.Set(key, redacted)
		}
	}
	return values.Encode()
}

func sanitizeJSON(body string) string {
	return sensitiveJSONField.ReplaceAllStringFunc(body, func(pair string) string {
		m := sensitiveJSONField.FindStringSubmatch(pair)
		if !sensitiveKey.MatchString(m[1]) {
			return pair
		}
		return `"` + m[1] + `": "` + redacted + `"`
	})
}

package testutil

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// maxRedirects bounds redirect chains followed inside a recording.
const maxRedirects = 10

// Replayer serves recorded responses to a hijacked page.
type Replayer struct {
	exact map[string]*HAREntry
	// byPath ignores the query string; the first recorded entry wins.
	byPath map[string]*HAREntry

	passthrough bool
	logger      *slog.Logger
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithPassthrough lets unmatched requests reach the network instead of
// answering 404.
func WithPassthrough(enabled bool) ReplayerOption {
	return func(r *Replayer) {
		r.passthrough = enabled
	}
}

// WithReplayLogger logs every match and miss at debug level.
func WithReplayLogger(l *slog.Logger) ReplayerOption {
	return func(r *Replayer) {
		r.logger = l
	}
}

// NewReplayer indexes har for lookup.
func NewReplayer(har *HARLog, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		exact:  make(map[string]*HAREntry),
		byPath: make(map[string]*HAREntry),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := range har.Entries {
		entry := &har.Entries[i]
		r.exact[entry.Request.URL] = entry

		if key, ok := pathKey(entry.Request.URL); ok {
			if _, seen := r.byPath[key]; !seen {
				r.byPath[key] = entry
			}
		}
	}
	return r
}

func pathKey(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	return u.Scheme + "://" + u.Host + u.Path, true
}

// Lookup finds the entry answering rawURL, following recorded redirects.
func (r *Replayer) Lookup(rawURL string) (*HAREntry, bool) {
	entry, ok := r.find(rawURL)
	if !ok {
		return nil, false
	}

	for range maxRedirects {
		status := entry.Response.Status
		if status < 300 || status >= 400 {
			break
		}
		location, ok := header(entry.Response.Headers, "Location")
		if !ok || location == "" {
			break
		}
		target, ok := r.find(location)
		if !ok {
			r.logger.Debug("redirect target not recorded", "url", location)
			break
		}
		entry = target
	}
	return entry, true
}

func (r *Replayer) find(rawURL string) (*HAREntry, bool) {
	if e, ok := r.exact[rawURL]; ok {
		return e, true
	}
	if key, ok := pathKey(rawURL); ok {
		e, ok := r.byPath[key]
		return e, ok
	}
	return nil, false
}

// Middleware returns a rod hijack handler serving the recording. Install it
// with browser.WithHijacker.
func (r *Replayer) Middleware() func(*rod.Hijack) {
	return func(h *rod.Hijack) {
		reqURL := h.Request.URL().String()

		entry, ok := r.Lookup(reqURL)
		if !ok {
			r.logger.Debug("no recording for request", "url", reqURL)
			if r.passthrough {
				_ = h.LoadResponse(http.DefaultClient, true)
				return
			}
			serve(h, http.StatusNotFound, []*proto.FetchHeaderEntry{
				{Name: "Content-Type", Value: "application/json"},
			}, []byte(`{"error":"no recording found for URL"}`))
			return
		}

		r.logger.Debug("replaying recorded response", "url", reqURL, "status", entry.Response.Status)
		resp := entry.Response
		serve(h, resp.Status, responseHeaders(resp), decodeBody(resp.Content))
	}
}

func serve(h *rod.Hijack, status int, headers []*proto.FetchHeaderEntry, body []byte) {
	payload := h.Response.Payload()
	payload.ResponseCode = status
	payload.ResponseHeaders = headers
	payload.Body = body
}

// responseHeaders drops headers that no longer describe the replayed body.
func responseHeaders(resp HARResponse) []*proto.FetchHeaderEntry {
	var out []*proto.FetchHeaderEntry
	hasType := false
	for _, h := range resp.Headers {
		switch strings.ToLower(h.Name) {
		case "content-encoding", "content-length", "location":
			continue
		case "content-type":
			hasType = true
		}
		out = append(out, &proto.FetchHeaderEntry{Name: h.Name, Value: h.Value})
	}
	if !hasType && resp.Content.MimeType != "" {
		out = append(out, &proto.FetchHeaderEntry{Name: "Content-Type", Value: resp.Content.MimeType})
	}
	return out
}

func decodeBody(c HARContent) []byte {
	if c.Encoding == "base64" {
		if b, err := base64.StdEncoding.DecodeString(c.Text); err == nil {
			return b
		}
	}
	return []byte(c.Text)
}

// ReplayStats describes the replayer's index.
type ReplayStats struct {
	ExactMatches int
	PathMatches  int
}

func (r *Replayer) Stats() ReplayStats {
	return ReplayStats{ExactMatches: len(r.exact), PathMatches: len(r.byPath)}
}

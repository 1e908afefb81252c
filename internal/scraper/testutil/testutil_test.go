package testutil

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeExport = `{
  "log": {
    "version": "1.2",
    "creator": {"name": "WebInspector", "version": "537.36"},
    "entries": [
      {
        "request": {
          "method": "POST",
          "url": "https://www.livelo.com.br/api/login",
          "headers": [{"name": "Content-Type", "value": "application/json"}],
          "postData": {"mimeType": "application/json", "text": "{\"username\":\"12345678900\",\"password\":\"s3nh@\"}"}
        },
        "response": {
          "status": 302,
          "headers": [{"name": "Location", "value": "https://www.livelo.com.br/extrato"}],
          "content": {"mimeType": "text/html", "text": ""}
        }
      },
      {
        "request": {"method": "GET", "url": "https://www.livelo.com.br/extrato?utm=mail"},
        "response": {
          "status": 200,
          "headers": [{"name": "Content-Encoding", "value": "gzip"}],
          "content": {"mimeType": "text/html", "text": "<strong id=\"balancePoints\">12.345</strong>"}
        }
      }
    ]
  }
}`

func TestParseHAR_ChromeExport(t *testing.T) {
	har, err := ParseHAR([]byte(chromeExport))
	require.NoError(t, err)

	require.Len(t, har.Entries, 2)
	assert.Equal(t, "POST", har.Entries[0].Request.Method)
	assert.Contains(t, har.Entries[0].Request.Body, `"password":"s3nh@"`)
	assert.Equal(t, 302, har.Entries[0].Response.Status)
}

func TestParseHAR_SimplifiedFormat(t *testing.T) {
	har, err := ParseHAR([]byte(`{"entries":[{"request":{"method":"GET","url":"https://www.livelo.com.br/"},"response":{"status":200,"content":{"mimeType":"text/html","text":"ok"}}}]}`))
	require.NoError(t, err)

	require.Len(t, har.Entries, 1)
	assert.Equal(t, "ok", har.Entries[0].Response.Content.Text)
}

func TestParseHAR_Invalid(t *testing.T) {
	_, err := ParseHAR([]byte("not json"))
	assert.Error(t, err)
}

func TestSaveAndLoadHAR(t *testing.T) {
	har, err := ParseHAR([]byte(chromeExport))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "session.har.json")
	require.NoError(t, SaveHAR(path, har))

	loaded := MustLoadHAR(t, path)
	assert.Equal(t, har, loaded)

	_, err = LoadHAR(filepath.Join(t.TempDir(), "missing.har.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReplayer_Lookup(t *testing.T) {
	har, err := ParseHAR([]byte(chromeExport))
	require.NoError(t, err)
	r := NewReplayer(har)

	t.Run("exact match", func(t *testing.T) {
		e, ok := r.Lookup("https://www.livelo.com.br/extrato?utm=mail")
		require.True(t, ok)
		assert.Equal(t, 200, e.Response.Status)
	})

	t.Run("path match ignores query", func(t *testing.T) {
		e, ok := r.Lookup("https://www.livelo.com.br/extrato?page=2")
		require.True(t, ok)
		assert.Contains(t, e.Response.Content.Text, "balancePoints")
	})

	t.Run("follows recorded redirect", func(t *testing.T) {
		e, ok := r.Lookup("https://www.livelo.com.br/api/login")
		require.True(t, ok)
		assert.Equal(t, 200, e.Response.Status)
	})

	t.Run("miss", func(t *testing.T) {
		_, ok := r.Lookup("https://www.livelo.com.br/nao-gravado")
		assert.False(t, ok)
	})

	assert.Equal(t, ReplayStats{ExactMatches: 2, PathMatches: 2}, r.Stats())
}

func TestResponseHeaders(t *testing.T) {
	headers := responseHeaders(HARResponse{
		Headers: []HARHeader{
			{Name: "Content-Encoding", Value: "gzip"},
			{Name: "Content-Length", Value: "10"},
			{Name: "Cache-Control", Value: "no-store"},
		},
		Content: HARContent{MimeType: "text/html"},
	})

	require.Len(t, headers, 2)
	assert.Equal(t, "Cache-Control", headers[0].Name)
	assert.Equal(t, "Content-Type", headers[1].Name)
	assert.Equal(t, "text/html", headers[1].Value)
}

func TestDecodeBody(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})

	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, decodeBody(HARContent{Text: enc, Encoding: "base64"}))
	assert.Equal(t, []byte("plain"), decodeBody(HARContent{Text: "plain"}))
	assert.Equal(t, []byte("%%%"), decodeBody(HARContent{Text: "%%%", Encoding: "base64"}))
}

func TestSanitizeHAR(t *testing.T) {
	har := &HARLog{Entries: []HAREntry{{
		Request: HARRequest{
			Method: "POST",
			URL:    "https://www.livelo.com.br/api/login?token=abc&lang=pt",
			Headers: []HARHeader{
				{Name: "Cookie", Value: "SESSION=xyz"},
				{Name: "X-Auth-Token", Value: "t0k3n"},
				{Name: "Accept", Value: "text/html"},
			},
			Body: `{"username": "12345678900", "password": "s3nh@", "remember": true}`,
		},
		Response: HARResponse{
			Status:  200,
			Headers: []HARHeader{{Name: "Set-Cookie", Value: "SESSION=xyz"}},
			Content: HARContent{MimeType: "text/html", Text: "<span>CPF 123.456.789-00</span>"},
		},
	}}}

	got := SanitizeHAR(har).Entries[0]

	assert.Equal(t, "https://www.livelo.com.br/api/login?lang=pt&token=%5BREDACTED%5D", got.Request.URL)
	assert.Equal(t, redacted, got.Request.Headers[0].Value)
	assert.Equal(t, redacted, got.Request.Headers[1].Value)
	assert.Equal(t, "text/html", got.Request.Headers[2].Value)
	assert.NotContains(t, got.Request.Body, "s3nh@")
	assert.NotContains(t, got.Request.Body, "12345678900")
	assert.Contains(t, got.Request.Body, `"remember": true`)
	assert.Equal(t, redacted, got.Response.Headers[0].Value)
	assert.Equal(t, "<span>CPF [REDACTED]</span>", got.Response.Content.Text)

	// The input is left untouched.
	assert.Equal(t, "SESSION=xyz", har.Entries[0].Request.Headers[0].Value)
}

func TestSanitizeBody_Form(t *testing.T) {
	got := sanitizeBody("username=joao&senha=s3nh@&lang=pt")

	assert.Equal(t, "lang=pt&senha=%5BREDACTED%5D&username=%5BREDACTED%5D", got)
}

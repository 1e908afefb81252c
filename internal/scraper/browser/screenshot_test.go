package browser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenshotName(t *testing.T) {
	at := time.Date(2025, 3, 10, 14, 5, 9, 123_000_000, time.FixedZone("BRT", -3*60*60))

	assert.Equal(t, "error-login-page-2025-03-10T17-05-09-123Z.png", ScreenshotName("error-login-page", at))
}

func TestWriteScreenshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "shots")
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	path, err := writeScreenshot(dir, "error-total-pages", []byte("png"), at)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "error-total-pages-2025-01-02T03-04-05-000Z.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("basic")
	require.NoError(t, err)
	assert.Equal(t, ModeBasic, m)

	m, err = ParseMode("stealth")
	require.NoError(t, err)
	assert.Equal(t, ModeStealth, m)

	_, err = ParseMode("puppeteer")
	assert.Error(t, err)
}

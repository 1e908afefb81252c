package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultScreenshotDir is where diagnostic screenshots land unless the
// driver is told otherwise.
const DefaultScreenshotDir = "uploads/rpa_screenshot"

const isoMillis = "2006-01-02T15:04:05.000Z"

// ScreenshotName builds "{label}-{timestamp}.png" where timestamp is the
// UTC ISO-8601 instant with ':' and '.' replaced by '-'.
func ScreenshotName(label string, at time.Time) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(at.UTC().Format(isoMillis))
	return fmt.Sprintf("%s-%s.png", label, ts)
}

// writeScreenshot stores png under dir and returns the written path.
func writeScreenshot(dir, label string, png []byte, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}

	path := filepath.Join(dir, ScreenshotName(label, at))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}

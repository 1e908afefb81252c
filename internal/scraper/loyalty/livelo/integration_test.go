package livelo

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grez-lucas/livelo-scraper/internal/envelope"
	"github.com/grez-lucas/livelo-scraper/internal/scraper/browser"
	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty"
	"github.com/grez-lucas/livelo-scraper/internal/scraper/testutil"
)

// TestMode selects what the integration tests run against.
type TestMode string

const (
	TestModeFixture TestMode = "fixture" // Static HTML through the fixture driver
	TestModeReplay  TestMode = "replay"  // Real browser, recorded session
	TestModeLive    TestMode = "live"    // Real browser, real portal (dangerous!)
)

func getTestMode() TestMode {
	mode := os.Getenv("RPA_TEST_MODE")
	if mode == "" {
		return TestModeFixture
	}
	return TestMode(mode)
}

// skipUnlessMode skips test if not in specified mode
func skipUnlessMode(t *testing.T, required TestMode) {
	if getTestMode() != required {
		t.Skipf("Skipping: requires RPA_TEST_MODE=%s", required)
	}
}

// testWriter sends log records to the test log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func integrationLogger(t *testing.T) *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestScraper_Run_ReplaySession_Integration(t *testing.T) {
	skipUnlessMode(t, TestModeReplay)

	harPath := filepath.Join("testdata", "recordings", "session.har.json")
	if _, err := os.Stat(harPath); os.IsNotExist(err) {
		t.Skipf("Recording not found: %s\n", harPath)
	}

	har := testutil.MustLoadHAR(t, harPath)
	replayer := testutil.NewReplayer(har, testutil.WithReplayLogger(integrationLogger(t)))
	t.Logf("Loaded HAR with %d entries (%+v)", len(har.Entries), replayer.Stats())

	driver := browser.NewRodDriver(
		browser.WithHijacker(replayer.Middleware()),
		browser.WithScreenshotDir(t.TempDir()),
		browser.WithLogger(integrationLogger(t)),
	)

	timeouts := DefaultTimeouts()
	timeouts.LoginNavigation = 15 * time.Second
	timeouts.LedgerLoad = 15 * time.Second

	codec, err := envelope.New(testMasterSecret)
	require.NoError(t, err)
	s, err := NewScraper(driver, codec,
		WithPacing(NoPacing()),
		WithTimeouts(timeouts),
		WithLogger(integrationLogger(t)),
	)
	require.NoError(t, err)

	// Credentials don't matter in replay mode.
	res, err := s.Run(context.Background(), newRequest(t, codec, 0))
	require.NoError(t, err)

	require.NotNil(t, res.BalancePoints, "login should succeed with the recorded session: %v", res.Log.Messages())
	assert.True(t, res.Log.Contiguous(0))
	t.Logf("balance=%v status=%s transactions=%d", *res.BalancePoints, res.BalanceStatus, len(res.Transactions))
}

func TestScraper_Run_Live_Integration(t *testing.T) {
	skipUnlessMode(t, TestModeLive)

	user, password, secret := os.Getenv("LIVELO_USER"), os.Getenv("LIVELO_PASSWORD"), os.Getenv("ENCRYPTION_KEY")
	if user == "" || password == "" || secret == "" {
		t.Skip("LIVELO_USER, LIVELO_PASSWORD and ENCRYPTION_KEY are required in live mode")
	}

	codec, err := envelope.New(secret)
	require.NoError(t, err)
	env, err := codec.Encrypt(password)
	require.NoError(t, err)

	s, err := NewScraper(
		browser.NewRodDriver(browser.WithScreenshotDir(t.TempDir()), browser.WithLogger(integrationLogger(t))),
		codec,
		WithLogger(integrationLogger(t)),
	)
	require.NoError(t, err)

	res, err := s.Run(context.Background(), loyalty.Request{UserName: user, PasswordEnvelope: env})
	require.NoError(t, err)

	for _, e := range res.Log {
		t.Logf("%03d %s", e.Order, e.Message)
	}
	assert.NotNil(t, res.BalancePoints)
}

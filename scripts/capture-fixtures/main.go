// capture-fixtures opens a visible stealth browser on the Livelo portal and
// saves the pages the pipeline walks through as HTML fixtures, one prompt at
// a time.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/browser"
	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty/livelo"
)

// Pages to capture, in the order the pipeline visits them.
var capturePages = []PageCapture{
	{Name: "home", Instructions: "Wait for the home page with the login button (don't login yet)"},
	{Name: "login", Instructions: "Click 'Entrar' and wait for the username/password form"},
	{Name: "dashboard", Instructions: "Login with VALID credentials, wait for the header with the profile menu"},
	{Name: "ledger_page1", Instructions: "Open the profile menu and follow 'Extrato'; wait for the table"},
	{Name: "ledger_page2", Instructions: "Click the next-page arrow of the ledger (or skip)"},
	{Name: "ledger_empty", Instructions: "Open the ledger of an account with no transactions (or skip)"},
}

type PageCapture struct {
	Name         string
	Instructions string
}

func main() {
	outputDir := flag.String("output", filepath.Join("internal", "scraper", "loyalty", "livelo", "testdata", "fixtures"), "Output directory")
	bin := flag.String("bin", "", "Chromium binary (default: the one rod downloads)")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("LIVELO FIXTURE CAPTURE")
	fmt.Printf("  Output: %s\n\n", *outputDir)

	l := launcher.New().
		Headless(false).
		Set("disable-blink-features", "AutomationControlled").
		Set("exclude-switches", "enable-automation").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("window-size", "1366,768").
		Set("lang", "pt-BR")
	if *bin != "" {
		l = l.Bin(*bin)
	}

	b := rod.New().ControlURL(l.MustLaunch()).MustConnect()
	defer b.MustClose()

	page := stealth.MustPage(b)
	page.MustSetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      browser.DefaultUserAgent,
		AcceptLanguage: "pt-BR,pt;q=0.9",
	})
	page.MustNavigate(livelo.DefaultBaseURL)

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Instructions:")
	fmt.Println("   - A browser window has opened on the portal")
	fmt.Println("   - Press ENTER after completing each step")
	fmt.Println("   - Type 'skip' to skip a page, 'quit' to exit")
	fmt.Println()

	for _, capture := range capturePages {
		fmt.Printf("Capturing %s.html\n", capture.Name)
		fmt.Printf("  %s\n", capture.Instructions)
		fmt.Print("  Press ENTER when ready (or 'skip'/'quit'): ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))
		if input == "quit" {
			break
		}
		if input == "skip" {
			fmt.Printf("  skipped %s\n\n", capture.Name)
			continue
		}

		if err := capturePage(page, *outputDir, capture.Name); err != nil {
			fmt.Printf("  error: %v\n\n", err)
			continue
		}
		fmt.Printf("  url: %s\n\n", page.MustInfo().URL)
	}

	saveMetadata(*outputDir)

	fmt.Println("Capture complete.")
	fmt.Println("IMPORTANT: sanitize personal data before committing:")
	fmt.Println("   go run ./scripts/sanitize-patterns -program=livelo")
}

// capturePage saves a screenshot and the rendered DOM of page. The
// screenshot is taken first; it is only for visual reference.
func capturePage(page *rod.Page, dir, name string) error {
	if err := page.Timeout(10 * time.Second).WaitStable(time.Second); err != nil {
		fmt.Printf("  page did not settle, capturing anyway: %v\n", err)
	}

	if buf, err := page.Screenshot(false, nil); err != nil {
		fmt.Printf("  screenshot failed: %v\n", err)
	} else if err := os.WriteFile(filepath.Join(dir, name+".png"), buf, 0o644); err != nil {
		fmt.Printf("  error saving screenshot: %v\n", err)
	}

	html, err := page.HTML()
	if err != nil {
		return fmt.Errorf("capture HTML: %w", err)
	}

	path := filepath.Join(dir, name+".html")
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("save HTML: %w", err)
	}
	fmt.Printf("  saved %s\n", path)
	return nil
}

func saveMetadata(outDir string) {
	metadata := fmt.Sprintf(`# Fixture Metadata
program: livelo
captured_at: %s
captured_by: %s

## Files
See .html files in this directory.
Screenshots (.png) provided for visual reference.

## Notes
- Fixtures are read by the offline fixture driver; links that navigate
  through JavaScript need a data-fixture-href attribute added by hand
- Sanitize before committing
- Re-capture when the portal changes and tests start failing
`, time.Now().Format(time.RFC3339), os.Getenv("USER"))

	if err := os.WriteFile(filepath.Join(outDir, "README.md"), []byte(metadata), 0o644); err != nil {
		fmt.Printf("Error saving metadata: %v\n", err)
	}
}

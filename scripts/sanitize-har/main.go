// sanitize-har removes credentials, session material and CPFs from a
// recorded portal session before it is committed as a replay fixture.
//
// Usage:
//
//	go run ./scripts/sanitize-har -program=livelo -scenario=session
//	go run ./scripts/sanitize-har -input=recording.har.json -output=sanitized.har.json
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/testutil"
)

// finding is one redacted location inside an entry.
type finding struct {
	entry int
	what  string
}

func main() {
	program := flag.String("program", "", "Program code: livelo")
	scenario := flag.String("scenario", "", "Recording name under testdata/recordings (e.g. session)")
	inputPath := flag.String("input", "", "Input HAR file path")
	outputPath := flag.String("output", "", "Output HAR file path (defaults to input path)")
	dryRun := flag.Bool("dry-run", false, "Show what would be redacted without modifying")
	flag.Parse()

	var inPath, outPath string
	switch {
	case *program != "" && *scenario != "":
		inPath = filepath.Join("internal", "scraper", "loyalty", *program, "testdata", "recordings", *scenario+".har.json")
		outPath = inPath
	case *inputPath != "":
		inPath, outPath = *inputPath, *inputPath
		if *outputPath != "" {
			outPath = *outputPath
		}
	default:
		printUsage()
		os.Exit(1)
	}

	har, err := testutil.LoadHAR(inPath)
	if err != nil {
		fmt.Printf("Error loading HAR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d entries from %s\n", len(har.Entries), inPath)

	sanitized := testutil.SanitizeHAR(har)
	findings := diff(har, sanitized)
	fmt.Printf("Redacted %d sensitive values\n", len(findings))

	if *dryRun {
		last := -1
		for _, f := range findings {
			if f.entry != last {
				e := har.Entries[f.entry].Request
				fmt.Printf("\nEntry %d: %s %s\n", f.entry+1, e.Method, truncateURL(e.URL))
				last = f.entry
			}
			fmt.Printf("  - %s\n", f.what)
		}
		fmt.Println("\n[DRY RUN] No changes written.")
		return
	}

	if err := testutil.SaveHAR(outPath, sanitized); err != nil {
		fmt.Printf("Error saving HAR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sanitized HAR saved to: %s\n", outPath)
}

func printUsage() {
	fmt.Println("sanitize-har - Remove sensitive data from HAR files before committing")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  go run ./scripts/sanitize-har -program=livelo -scenario=session")
	fmt.Println("  go run ./scripts/sanitize-har -input=in.har.json [-output=out.har.json]")
	fmt.Println()
	flag.PrintDefaults()
}

// diff lists what SanitizeHAR changed, entry by entry.
func diff(original, sanitized *testutil.HARLog) []finding {
	var out []finding
	for i, orig := range original.Entries {
		san := sanitized.Entries[i]

		if orig.Request.URL != san.Request.URL {
			out = append(out, finding{i, "URL query parameters"})
		}
		for j, h := range orig.Request.Headers {
			if h.Value != san.Request.Headers[j].Value {
				out = append(out, finding{i, fmt.Sprintf("request header %q", h.Name)})
			}
		}
		if orig.Request.Body != san.Request.Body {
			out = append(out, finding{i, "request body"})
		}
		for j, h := range orig.Response.Headers {
			if h.Value != san.Response.Headers[j].Value {
				out = append(out, finding{i, fmt.Sprintf("response header %q", h.Name)})
			}
		}
		if orig.Response.Content.Text != san.Response.Content.Text {
			out = append(out, finding{i, "response body"})
		}
	}
	return out
}

func truncateURL(url string) string {
	if len(url) > 80 {
		return url[:77] + "..."
	}
	return url
}

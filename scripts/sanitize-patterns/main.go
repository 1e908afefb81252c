// sanitize-patterns scrubs personal data from captured HTML fixtures.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var sanitizePatterns = []struct {
	Pattern     *regexp.Regexp
	Replacement string
	Description string
}{
	// CPF, formatted or bare
	{
		regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b|\b\d{11}\b`),
		`000.000.000-00`,
		"CPF",
	},

	// Greeting in the header: "Olá, Maria Silva"
	{
		regexp.MustCompile(`(Olá),?\s+[A-ZÁÂÃÉÊÍÓÔÕÚÇ][a-záâãéêíóôõúç]+(?:\s+[A-ZÁÂÃÉÊÍÓÔÕÚÇ][a-záâãéêíóôõúç]+)*`),
		"$1, NOME SOBRENOME",
		"Customer name",
	},

	{
		regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		`cliente@example.com`,
		"E-mail",
	},

	{
		regexp.MustCompile(`\(?\d{2}\)?\s?9?\d{4}-?\d{4}\b`),
		`(00) 00000-0000`,
		"Phone",
	},

	// Session tokens / CSRF tokens
	{
		regexp.MustCompile(`(?i)(token|csrf|session)["\s:=]+["']?[a-zA-Z0-9_-]{20,}["']?`),
		`$1="REDACTED"`,
		"Token",
	},

	// Cookies in HTML
	{
		regexp.MustCompile(`(?i)document\.cookie\s*=\s*["'][^"']+["']`),
		`document.cookie="REDACTED"`,
		"Cookie",
	},
}

func main() {
	program := flag.String("program", "livelo", "Program code")
	dryRun := flag.Bool("dry-run", false, "Show what would be changed without modifying files")
	flag.Parse()

	fixturesDir := filepath.Join("internal", "scraper", "loyalty", *program, "testdata", "fixtures")

	files, err := filepath.Glob(filepath.Join(fixturesDir, "*.html"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No HTML files found in %s\n", fixturesDir)
		os.Exit(1)
	}

	fmt.Printf("Sanitizing fixtures in %s\n", fixturesDir)
	if *dryRun {
		fmt.Println("    (DRY RUN - no files will be modified)")
	}

	for _, file := range files {
		if err := sanitizeFile(file, *dryRun); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func sanitizeFile(path string, dryRun bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	sanitized := string(content)
	var changes []string
	for _, p := range sanitizePatterns {
		if n := len(p.Pattern.FindAllStringIndex(sanitized, -1)); n > 0 {
			sanitized = p.Pattern.ReplaceAllString(sanitized, p.Replacement)
			changes = append(changes, fmt.Sprintf("  - %s: %d matched", p.Description, n))
		}
	}

	name := filepath.Base(path)
	if len(changes) == 0 {
		fmt.Printf("%s: no sensitive data found\n", name)
		return nil
	}

	fmt.Printf("%s: found sensitive data\n", name)
	for _, c := range changes {
		fmt.Println(c)
	}
	if dryRun {
		return nil
	}
	if err := os.WriteFile(path, []byte(sanitized), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Println("    sanitized and saved")
	return nil
}

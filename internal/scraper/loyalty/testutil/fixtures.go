// Package testutil loads the HTML fixtures the program scrapers are tested
// against.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// fixturePath resolves <loyalty>/<program>/testdata/fixtures/<name>.html
// relative to this file, so tests can run from any working directory.
func fixturePath(program, name string) string {
	_, filename, _, _ := runtime.Caller(0)
	baseDir := filepath.Dir(filepath.Dir(filename)) // up to loyalty/

	return filepath.Join(baseDir, program, "testdata", "fixtures", name+".html")
}

// LoadFixture reads an HTML fixture file for the given program.
func LoadFixture(t *testing.T, program, name string) string {
	t.Helper()

	data, err := os.ReadFile(fixturePath(program, name))
	if err != nil {
		t.Fatalf("Failed to load fixture %s/%s: %v", program, name, err)
	}

	return string(data)
}

// MustLoadFixture is like LoadFixture but panics on error, for use outside
// of a test function (e.g. while building package-level tables).
func MustLoadFixture(program, name string) string {
	data, err := os.ReadFile(fixturePath(program, name))
	if err != nil {
		panic(err)
	}

	return string(data)
}

// Package loyalty defines the common structs and logic shared by loyalty
// program scrapers: the run result, the ordered event log and the error
// taxonomy.
package loyalty

import "context"

// Scraper runs one full extraction for one program.
type Scraper interface {
	// Run never fails once the request is valid: failures surface as a
	// degraded or fatal RunResult with the reason in its log.
	Run(ctx context.Context, req Request) (*RunResult, error)
}

type ProgramCode string

const (
	ProgramLivelo ProgramCode = "LIVELO"
)

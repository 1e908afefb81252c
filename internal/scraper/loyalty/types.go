package loyalty

import (
	"fmt"
	"log/slog"
)

// Request is what a caller hands to a Scraper. PasswordEnvelope is an
// encrypted envelope; the plaintext never leaves the run.
type Request struct {
	UserName         string
	PasswordEnvelope string
	StartOrder       int

	// RunID correlates the run's structured logs. One is generated when
	// empty.
	RunID string
}

// Validate rejects requests a run cannot start from.
func (r Request) Validate() error {
	switch {
	case r.UserName == "":
		return fmt.Errorf("%w: userName is required", ErrInvalidRequest)
	case r.PasswordEnvelope == "":
		return fmt.Errorf("%w: passwordCrypto is required", ErrInvalidRequest)
	case r.StartOrder < 0:
		return fmt.Errorf("%w: startOrder must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Credential is a decrypted login. It lives only for the duration of a run.
type Credential struct {
	UserName string
	Password string
}

// LogValue keeps the password out of structured logs.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user_name", c.UserName),
		slog.String("password", "[REDACTED]"),
	)
}

// Transaction is one ledger row. JSON keys are the normalized column names.
type Transaction struct {
	Date      string  `json:"data"`
	Operation string  `json:"operacao"`
	Partners  string  `json:"parceiros"`
	Points    float64 `json:"pontos"`
	Notes     string  `json:"observacoes"`
}

// Stage names one step of the pipeline.
type Stage string

const (
	StageResetSession        Stage = "reset_session"
	StageLogin               Stage = "login"
	StageNavigateLedger      Stage = "navigate_ledger"
	StageReadBalance         Stage = "read_balance"
	StageExtractTransactions Stage = "extract_transactions"
)

// Mandatory reports whether a failure of the stage aborts the run.
func (s Stage) Mandatory() bool {
	return s == StageResetSession || s == StageLogin
}

// BalanceStatus tells apart the reasons a balance may be zero or missing.
type BalanceStatus string

const (
	// BalanceRead means the balance was read; it may genuinely be zero.
	BalanceRead BalanceStatus = "read"
	// BalanceUnavailable means the ledger opened but the balance could not
	// be read; BalancePoints is 0.
	BalanceUnavailable BalanceStatus = "unavailable"
	// BalanceSkipped means the ledger never opened; BalancePoints is 0.
	BalanceSkipped BalanceStatus = "skipped"
	// BalanceFatal means a mandatory stage failed; BalancePoints is nil.
	BalanceFatal BalanceStatus = "fatal"
)

// Outcome summarizes a run for metrics and logs.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFatal    Outcome = "fatal"
)

// RunResult is everything a run produced, including partial data.
type RunResult struct {
	BalancePoints *float64      `json:"balancePoints"`
	BalanceStatus BalanceStatus `json:"balanceStatus"`
	Transactions  []Transaction `json:"extrato"`
	Log           Log           `json:"logs"`
	FinalOrder    int           `json:"finalOrder"`

	// FailedStages lists every stage that failed, in pipeline order.
	FailedStages []Stage `json:"failedStages,omitempty"`
}

// Fatal reports whether the run ended in a mandatory-stage failure.
func (r *RunResult) Fatal() bool {
	return r.BalancePoints == nil
}

// Outcome classifies the run: fatal when a mandatory stage failed,
// degraded when any optional stage did.
func (r *RunResult) Outcome() Outcome {
	switch {
	case r.Fatal():
		return OutcomeFatal
	case len(r.FailedStages) > 0:
		return OutcomeDegraded
	default:
		return OutcomeComplete
	}
}

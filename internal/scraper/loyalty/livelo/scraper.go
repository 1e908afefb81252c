// Package livelo drives the Livelo loyalty portal: it logs in, opens the
// points ledger, reads the balance and walks the paginated transaction
// table.
package livelo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/browser"
	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty"
)

// Decrypter opens a password envelope.
type Decrypter interface {
	Decrypt(envelope string) (string, error)
}

// Scraper runs the Livelo pipeline. It is safe for concurrent use; each
// run opens its own browser session.
type Scraper struct {
	driver   browser.Driver
	secrets  Decrypter
	baseURL  string
	pacing   Pacing
	timeouts Timeouts
	logger   *slog.Logger
}

var _ loyalty.Scraper = (*Scraper)(nil)

// Option configures a Scraper.
type Option func(*Scraper)

// WithBaseURL overrides the site root the session is reset to.
func WithBaseURL(url string) Option {
	return func(s *Scraper) {
		s.baseURL = url
	}
}

// WithPacing replaces the interaction pacing.
func WithPacing(p Pacing) Option {
	return func(s *Scraper) {
		s.pacing = p
	}
}

// WithTimeouts replaces the per-operation timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(s *Scraper) {
		s.timeouts = t
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scraper) {
		s.logger = l
	}
}

// NewScraper returns a Scraper opening sessions through driver and
// decrypting passwords with secrets.
func NewScraper(driver browser.Driver, secrets Decrypter, opts ...Option) (*Scraper, error) {
	if driver == nil {
		return nil, errors.New("livelo: nil browser driver")
	}
	if secrets == nil {
		return nil, errors.New("livelo: nil decrypter")
	}

	s := &Scraper{
		driver:   driver,
		secrets:  secrets,
		baseURL:  DefaultBaseURL,
		pacing:   DefaultPacing(),
		timeouts: DefaultTimeouts(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes the whole pipeline for req.
//
// Only an invalid request is returned as an error. Everything else ends in
// a RunResult: a failed reset or login (or an unusable envelope, or a
// browser that would not start) yields a nil balance and an "ERRO CRÍTICO"
// entry; failures after login degrade the result and keep what was
// collected. The browser session is closed exactly once on every path.
func (s *Scraper) Run(ctx context.Context, req loyalty.Request) (*loyalty.RunResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	res := &loyalty.RunResult{
		Transactions: []loyalty.Transaction{},
		Log:          loyalty.Log{},
	}
	r := &run{
		log:      &res.Log,
		logger:   s.logger.With("run_id", runID, "program", loyalty.ProgramLivelo),
		baseURL:  s.baseURL,
		pacing:   s.pacing,
		timeouts: s.timeouts,
	}
	r.logger.Info("run started", "start_order", req.StartOrder)

	password, err := s.secrets.Decrypt(req.PasswordEnvelope)
	if err != nil {
		return r.fatal(res, req.StartOrder, fmt.Errorf("decrypt password: %w", err)), nil
	}
	cred := loyalty.Credential{UserName: req.UserName, Password: password}

	session, err := s.driver.Open(ctx)
	if err != nil {
		return r.fatal(res, req.StartOrder, fmt.Errorf("open browser: %w", err)), nil
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Warn("browser session close failed", "error", err)
		}
	}()
	r.session = session

	return r.execute(ctx, res, cred, req.StartOrder), nil
}

func (r *run) execute(ctx context.Context, res *loyalty.RunResult, cred loyalty.Credential, order int) *loyalty.RunResult {
	r.logger.Debug("credential decrypted", "credential", cred)

	order, err := r.resetSession(ctx, order)
	if err == nil {
		order, err = r.login(ctx, cred, order)
	}
	if err != nil {
		var stepErr *loyalty.StepError
		if !errors.As(err, &stepErr) || failed(res, stepErr.Stage) {
			return r.fatal(res, order, err)
		}
	}

	var balance float64
	res.BalanceStatus = loyalty.BalanceSkipped

	order, navigated := r.navigateToLedger(ctx, order)
	if !navigated {
		failed(res, loyalty.StageNavigateLedger)
	} else {
		var read bool
		balance, read, order = r.readBalance(ctx, order)
		if read {
			res.BalanceStatus = loyalty.BalanceRead
		} else {
			res.BalanceStatus = loyalty.BalanceUnavailable
			failed(res, loyalty.StageReadBalance)
		}

		if balance > 0 {
			var txns []loyalty.Transaction
			txns, order, err = r.extractTransactions(ctx, order)
			res.Transactions = txns
			if err != nil {
				failed(res, loyalty.StageExtractTransactions)
			}
		} else {
			order = r.append(order, loyalty.StageReadBalance, "Saldo zero ou inválido - pulando extração de transações")
		}
	}

	res.BalancePoints = &balance
	res.FinalOrder = order
	r.finished(res)
	return res
}

// failed records a failed stage and reports whether it must end the run.
func failed(res *loyalty.RunResult, stage loyalty.Stage) bool {
	res.FailedStages = append(res.FailedStages, stage)
	return stage.Mandatory()
}

// fatal closes the log with the critical entry and marks the result as
// having no balance at all.
func (r *run) fatal(res *loyalty.RunResult, order int, err error) *loyalty.RunResult {
	order = r.log.Appendf(order, "ERRO CRÍTICO: %v", err)
	r.logger.Error("run aborted", "error", err)

	res.BalancePoints = nil
	res.BalanceStatus = loyalty.BalanceFatal
	res.Transactions = []loyalty.Transaction{}
	res.FinalOrder = order
	r.finished(res)
	return res
}

func (r *run) finished(res *loyalty.RunResult) {
	r.logger.Info("run finished",
		"outcome", res.Outcome(),
		"balance_status", res.BalanceStatus,
		"transactions", len(res.Transactions),
		"final_order", res.FinalOrder,
	)
}

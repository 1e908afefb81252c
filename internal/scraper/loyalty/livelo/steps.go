package livelo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/browser"
	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty"
)

// run is the state of one pipeline execution. Every step takes the current
// log order and returns the next one.
type run struct {
	session  browser.Session
	log      *loyalty.Log
	logger   *slog.Logger
	baseURL  string
	pacing   Pacing
	timeouts Timeouts
}

func (r *run) append(order int, stage loyalty.Stage, message string) int {
	r.logger.Debug(message, "order", order, "stage", stage)
	return r.log.Append(order, message)
}

func (r *run) appendf(order int, stage loyalty.Stage, format string, args ...any) int {
	return r.append(order, stage, fmt.Sprintf(format, args...))
}

func (r *run) screenshot(ctx context.Context, label string) {
	ctx, cancel := bounded(ctx, r.timeouts.Interaction)
	defer cancel()

	if path, ok := r.session.Screenshot(ctx, label); ok {
		r.logger.Info("diagnostic screenshot saved", "label", label, "path", path)
	}
}

func (r *run) stageFailed(stage loyalty.Stage, err error) {
	level := slog.LevelWarn
	if stage.Mandatory() {
		level = slog.LevelError
	}
	r.logger.Log(context.Background(), level, "stage failed", "stage", stage, "error", err)
}

// bounded gives one suspension point its own deadline. Zero keeps the
// parent's.
func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (r *run) query(ctx context.Context, selector string) (browser.Element, error) {
	ctx, cancel := bounded(ctx, r.timeouts.Query)
	defer cancel()
	return r.session.Query(ctx, selector)
}

func (r *run) queryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	ctx, cancel := bounded(ctx, r.timeouts.Query)
	defer cancel()
	return r.session.QueryAll(ctx, selector)
}

func (r *run) text(ctx context.Context, el browser.Element) (string, error) {
	ctx, cancel := bounded(ctx, r.timeouts.Query)
	defer cancel()
	return r.session.Evaluate(ctx, el, browser.EvalText)
}

func stepError(stage loyalty.Stage, err error) error {
	return &loyalty.StepError{Program: loyalty.ProgramLivelo, Stage: stage, Cause: err}
}

// resetSession clears cookies and cache and loads the site root.
func (r *run) resetSession(ctx context.Context, order int) (int, error) {
	const stage = loyalty.StageResetSession

	order = r.append(order, stage, "Acessando página inicial do Livelo")

	resetCtx, cancel := bounded(ctx, r.timeouts.Reset)
	err := r.session.Reset(resetCtx)
	cancel()
	if err == nil {
		err = r.session.Navigate(ctx, r.baseURL, browser.NavigateOptions{
			Until:   browser.WaitNetworkIdle,
			Timeout: r.timeouts.Navigation,
		})
	}
	if err != nil {
		order = r.appendf(order, stage, "Erro ao acessar página inicial: %v", err)
		r.stageFailed(stage, err)
		return order, stepError(stage, err)
	}

	return r.append(order, stage, "Página inicial carregada com sucesso"), nil
}

// login opens the credential form, types the credential at a human pace and
// submits it. A failure leaves a screenshot of the page behind.
func (r *run) login(ctx context.Context, cred loyalty.Credential, order int) (int, error) {
	const stage = loyalty.StageLogin

	order = r.append(order, stage, "Iniciando processo de login")

	if err := r.submitLogin(ctx, cred); err != nil {
		order = r.appendf(order, stage, "Erro ao realizar login: %v", err)
		r.stageFailed(stage, err)
		r.screenshot(ctx, "error-login-page")
		return order, stepError(stage, err)
	}

	return r.append(order, stage, "Login realizado com sucesso"), nil
}

func (r *run) submitLogin(ctx context.Context, cred loyalty.Credential) error {
	entry, err := r.session.WaitFor(ctx, SelectorLoginEntry, browser.WaitOptions{
		Visible: true,
		Timeout: r.timeouts.LoginButton,
	})
	if err != nil {
		return fmt.Errorf("login button: %w", err)
	}
	err = r.session.Click(ctx, entry, browser.ClickOptions{
		Hover:   true,
		Delay:   r.pacing.ClickPress,
		Timeout: r.timeouts.Interaction,
	})
	if err != nil {
		return fmt.Errorf("open login form: %w", err)
	}
	if err := r.pacing.AfterLoginOpen.Sleep(ctx); err != nil {
		return err
	}

	if err := r.fill(ctx, SelectorUserInput, cred.UserName); err != nil {
		return fmt.Errorf("username: %w", err)
	}
	if err := r.pacing.AfterUserName.Sleep(ctx); err != nil {
		return err
	}

	if err := r.fill(ctx, SelectorPasswordInput, cred.Password); err != nil {
		return fmt.Errorf("password: %w", err)
	}
	if err := r.pacing.AfterPassword.Sleep(ctx); err != nil {
		return err
	}

	submit, err := r.session.WaitFor(ctx, SelectorSubmitButton, browser.WaitOptions{
		Visible: true,
		Timeout: r.timeouts.LoginElement,
	})
	if err != nil {
		return fmt.Errorf("submit button: %w", err)
	}

	err = r.session.Click(ctx, submit, browser.ClickOptions{
		Hover:           true,
		Delay:           r.pacing.ClickPress,
		AwaitNavigation: true,
		Timeout:         r.timeouts.LoginNavigation,
	})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

func (r *run) fill(ctx context.Context, selector, text string) error {
	el, err := r.session.WaitFor(ctx, selector, browser.WaitOptions{
		Visible: true,
		Timeout: r.timeouts.LoginElement,
	})
	if err != nil {
		return err
	}

	ctx, cancel := bounded(ctx, r.timeouts.Interaction)
	defer cancel()
	return r.session.Type(ctx, el, text, browser.TypeOptions{Clear: true, Keystroke: r.pacing.Keystroke})
}

// navigateToLedger opens the profile menu and follows the ledger link. It
// reports false instead of failing the run.
func (r *run) navigateToLedger(ctx context.Context, order int) (int, bool) {
	const stage = loyalty.StageNavigateLedger

	order = r.append(order, stage, "Navegando para página de extrato")

	if err := r.openLedger(ctx); err != nil {
		order = r.appendf(order, stage, "Erro ao navegar para o extrato: %v", err)
		r.stageFailed(stage, err)
		r.screenshot(ctx, "error-navigate-extract")
		return order, false
	}

	return r.append(order, stage, "Página de extrato carregada com sucesso"), true
}

func (r *run) openLedger(ctx context.Context) error {
	if err := r.pacing.BeforeLedger.Sleep(ctx); err != nil {
		return err
	}

	profile, err := r.session.WaitFor(ctx, SelectorUserProfile, browser.WaitOptions{
		Visible: true,
		Timeout: r.timeouts.ProfileMenu,
	})
	if err != nil {
		return fmt.Errorf("profile menu: %w", err)
	}
	err = r.session.Click(ctx, profile, browser.ClickOptions{
		Hover:   true,
		Delay:   r.pacing.BeforeMenuClick.Duration(),
		Timeout: r.timeouts.Interaction,
	})
	if err != nil {
		return fmt.Errorf("open profile menu: %w", err)
	}

	link, err := r.session.WaitFor(ctx, SelectorLedgerLink, browser.WaitOptions{
		Visible: true,
		Timeout: r.timeouts.LedgerLink,
	})
	if err != nil {
		return fmt.Errorf("ledger link: %w", err)
	}
	err = r.session.Click(ctx, link, browser.ClickOptions{
		Hover:           true,
		Delay:           r.pacing.ClickPress,
		AwaitNavigation: true,
		Timeout:         r.timeouts.LedgerLoad,
	})
	if err != nil {
		return fmt.Errorf("follow ledger link: %w", err)
	}
	return nil
}

// readBalance reads the points balance of the open ledger. On failure the
// balance is 0 and ok is false.
func (r *run) readBalance(ctx context.Context, order int) (balance float64, ok bool, next int) {
	const stage = loyalty.StageReadBalance

	order = r.append(order, stage, "Coletando saldo da conta")

	balance, err := r.balance(ctx)
	if err != nil {
		order = r.appendf(order, stage, "Erro ao coletar saldo: %v", err)
		r.stageFailed(stage, err)
		return 0, false, order
	}

	return balance, true, r.appendf(order, stage, "Saldo coletado: %s pontos", formatPoints(balance))
}

func (r *run) balance(ctx context.Context) (float64, error) {
	el, err := r.session.WaitFor(ctx, SelectorBalance, browser.WaitOptions{
		Visible: true,
		Timeout: r.timeouts.Balance,
	})
	if err != nil {
		return 0, err
	}

	text, err := r.text(ctx, el)
	if err != nil {
		return 0, err
	}
	if text == "" {
		return 0, loyalty.ErrBalanceUnavailable
	}
	return ParseBalance(text)
}

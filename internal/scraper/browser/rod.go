package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Mode selects how pages are hardened against bot detection.
type Mode string

const (
	// ModeStealth creates pages through go-rod/stealth.
	ModeStealth Mode = "stealth"
	// ModeBasic creates plain pages and only masks navigator.webdriver and
	// a few related properties.
	ModeBasic Mode = "basic"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeStealth, ModeBasic:
		return m, nil
	default:
		return "", fmt.Errorf("unknown browser mode %q", s)
	}
}

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	acceptLanguage = "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"

	viewportWidth  = 1366
	viewportHeight = 768

	// networkIdleWindow is how long the network must stay quiet for
	// WaitNetworkIdle to consider a navigation settled.
	networkIdleWindow = 500 * time.Millisecond
)

// maskAutomationJS runs before any page script in ModeBasic.
const maskAutomationJS = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.navigator.chrome = { runtime: {} };
Object.defineProperty(navigator, 'plugins', {
	get: () => [
		{ name: 'Chrome PDF Plugin' },
		{ name: 'Chrome PDF Viewer' },
		{ name: 'Native Client' }
	]
});
Object.defineProperty(navigator, 'languages', { get: () => ['pt-BR', 'pt', 'en-US', 'en'] });
`

const textContentJS = `() => (this.textContent || '').trim()`

type rodOptions struct {
	mode          Mode
	headless      bool
	bin           string
	screenshotDir string
	userAgent     string
	hijacker      func(*rod.Hijack)
	logger        *slog.Logger
}

// RodOption configures a RodDriver.
type RodOption func(*rodOptions)

// WithMode selects the page hardening strategy.
func WithMode(m Mode) RodOption {
	return func(o *rodOptions) {
		o.mode = m
	}
}

// WithHeadless toggles headless Chromium.
func WithHeadless(enabled bool) RodOption {
	return func(o *rodOptions) {
		o.headless = enabled
	}
}

// WithBin points the launcher at a specific Chromium binary instead of the
// one rod downloads.
func WithBin(path string) RodOption {
	return func(o *rodOptions) {
		o.bin = path
	}
}

// WithScreenshotDir sets where Session.Screenshot writes files.
func WithScreenshotDir(dir string) RodOption {
	return func(o *rodOptions) {
		o.screenshotDir = dir
	}
}

// WithUserAgent overrides the desktop Chrome user agent.
func WithUserAgent(ua string) RodOption {
	return func(o *rodOptions) {
		o.userAgent = ua
	}
}

// WithHijacker routes every request of the page through handler, e.g. a
// recorded-session replayer.
func WithHijacker(handler func(*rod.Hijack)) RodOption {
	return func(o *rodOptions) {
		o.hijacker = handler
	}
}

// WithLogger sets the logger for best-effort failures the driver swallows.
func WithLogger(l *slog.Logger) RodOption {
	return func(o *rodOptions) {
		o.logger = l
	}
}

// RodDriver launches one Chromium process per session.
type RodDriver struct {
	opts rodOptions
}

// NewRodDriver returns a driver defaulting to headless stealth pages.
func NewRodDriver(opts ...RodOption) *RodDriver {
	o := rodOptions{
		mode:          ModeStealth,
		headless:      true,
		screenshotDir: DefaultScreenshotDir,
		userAgent:     DefaultUserAgent,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &RodDriver{opts: o}
}

// Open launches a browser and prepares a page for automation.
func (d *RodDriver) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := launcher.New().
		Headless(d.opts.headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-setuid-sandbox").
		Set("window-size", fmt.Sprintf("%d,%d", viewportWidth, viewportHeight)).
		Set("lang", "pt-BR")
	if d.opts.bin != "" {
		l = l.Bin(d.opts.bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := d.newPage(b)
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, err
	}

	var router *rod.HijackRouter
	if d.opts.hijacker != nil {
		router = page.HijackRequests()
		if err := router.Add("*", "", d.opts.hijacker); err != nil {
			_ = b.Close()
			l.Cleanup()
			return nil, fmt.Errorf("install request hijacker: %w", err)
		}
		go router.Run()
	}

	return &rodSession{
		launcher: l,
		browser:  b,
		page:     page,
		router:   router,
		shotDir:  d.opts.screenshotDir,
		logger:   d.opts.logger,
	}, nil
}

func (d *RodDriver) newPage(b *rod.Browser) (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)

	switch d.opts.mode {
	case ModeBasic:
		page, err = b.Page(proto.TargetCreateTarget{})
		if err != nil {
			return nil, fmt.Errorf("create page: %w", err)
		}
		if _, err := page.EvalOnNewDocument(maskAutomationJS); err != nil {
			return nil, fmt.Errorf("inject automation mask: %w", err)
		}
	default:
		page, err = stealth.Page(b)
		if err != nil {
			return nil, fmt.Errorf("create stealth page: %w", err)
		}
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      d.opts.userAgent,
		AcceptLanguage: acceptLanguage,
	}); err != nil {
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	if _, err := page.SetExtraHeaders([]string{
		"Accept-Language", acceptLanguage,
		"Accept", acceptHeader,
		"sec-ch-ua", `"Chromium";v="124", "Google Chrome";v="124"`,
		"sec-ch-ua-mobile", "?0",
		"sec-ch-ua-platform", `"Windows"`,
	}); err != nil {
		return nil, fmt.Errorf("set extra headers: %w", err)
	}

	return page, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	shotDir  string
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) Reset(ctx context.Context) error {
	p := s.page.Context(ctx)

	if err := (proto.NetworkEnable{}).Call(p); err != nil {
		return classify(ctx, "enable network domain", err)
	}
	if err := (proto.NetworkClearBrowserCookies{}).Call(p); err != nil {
		return classify(ctx, "clear cookies", err)
	}
	if err := (proto.NetworkClearBrowserCache{}).Call(p); err != nil {
		return classify(ctx, "clear cache", err)
	}
	return nil
}

func (s *rodSession) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	tctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	p := s.page.Context(tctx)

	var waitIdle func()
	if opts.Until == WaitNetworkIdle {
		waitIdle = p.WaitRequestIdle(networkIdleWindow, nil, nil, nil)
	}

	if err := p.Navigate(url); err != nil {
		return classify(tctx, "navigate to "+url, err)
	}

	if waitIdle != nil {
		waitIdle()
	} else if err := p.WaitLoad(); err != nil {
		return classify(tctx, "wait load of "+url, err)
	}

	if err := tctx.Err(); err != nil {
		return classify(tctx, "navigate to "+url, err)
	}
	return nil
}

func (s *rodSession) WaitFor(ctx context.Context, selector string, opts WaitOptions) (Element, error) {
	tctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	el, err := s.page.Context(tctx).Element(selector)
	if err != nil {
		return nil, notFound(tctx, selector, err)
	}

	if opts.Visible {
		if err := el.WaitVisible(); err != nil {
			return nil, notFound(tctx, selector, err)
		}
	}

	return el, nil
}

func (s *rodSession) Query(ctx context.Context, selector string) (Element, error) {
	has, el, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, classify(ctx, "query "+selector, err)
	}
	if !has {
		return nil, nil
	}
	return el, nil
}

func (s *rodSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, classify(ctx, "query all "+selector, err)
	}

	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

func (s *rodSession) Click(ctx context.Context, el Element, opts ClickOptions) error {
	e, err := asRod(el)
	if err != nil {
		return err
	}

	tctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	e = e.Context(tctx)

	// The navigation listener must be armed before the click fires.
	var waitNav func()
	if opts.AwaitNavigation {
		waitNav = s.page.Context(tctx).WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	}

	if opts.Hover {
		if err := e.Hover(); err != nil {
			return classify(tctx, "hover", err)
		}
	}
	if err := sleep(tctx, opts.Delay); err != nil {
		return classify(tctx, "click delay", err)
	}
	if err := e.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return classify(tctx, "click", err)
	}

	if waitNav != nil {
		waitNav()
		if err := tctx.Err(); err != nil {
			return classify(tctx, "wait navigation", err)
		}
	}
	return nil
}

func (s *rodSession) Type(ctx context.Context, el Element, text string, opts TypeOptions) error {
	e, err := asRod(el)
	if err != nil {
		return err
	}
	e = e.Context(ctx)

	if opts.Clear {
		if err := clearField(e); err != nil {
			return fmt.Errorf("clear field: %w", err)
		}
	}
	if opts.Keystroke == (Jitter{}) {
		err = TypeFast(e, text)
	} else {
		err = TypeHuman(ctx, e, text, opts.Keystroke)
	}
	if err != nil {
		return fmt.Errorf("type: %w", err)
	}
	return nil
}

func (s *rodSession) Evaluate(ctx context.Context, el Element, fn Evaluation) (string, error) {
	e, err := asRod(el)
	if err != nil {
		return "", err
	}

	switch fn {
	case EvalText:
		res, err := e.Context(ctx).Eval(textContentJS)
		if err != nil {
			return "", classify(ctx, "evaluate text", err)
		}
		return res.Value.Str(), nil
	default:
		return "", fmt.Errorf("unsupported evaluation %d", fn)
	}
}

func (s *rodSession) Screenshot(ctx context.Context, label string) (string, bool) {
	buf, err := s.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		s.logger.Warn("screenshot capture failed", "label", label, "error", err)
		return "", false
	}

	path, err := writeScreenshot(s.shotDir, label, buf, time.Now())
	if err != nil {
		s.logger.Warn("screenshot write failed", "label", label, "error", err)
		return "", false
	}
	return path, true
}

func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.router != nil {
			if err := s.router.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop hijack router: %w", err))
			}
		}
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
			s.launcher.Kill()
		}
		s.launcher.Cleanup()
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func asRod(el Element) (*rod.Element, error) {
	e, ok := el.(*rod.Element)
	if !ok || e == nil {
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedElement, el)
	}
	return e, nil
}

func classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func notFound(ctx context.Context, selector string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return fmt.Errorf("wait for %s: %w", selector, err)
}

// Package fixture implements the browser automation capability over static
// HTML documents. Navigation moves between registered documents; clicking a
// link (href) or an element carrying data-fixture-href loads its target.
// Elements marked with the hidden attribute count as invisible.
//
// Faults can be injected per operation to exercise failure paths without a
// real browser.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/browser"
)

// Op names a Session operation for fault injection.
type Op string

const (
	OpReset      Op = "reset"
	OpNavigate   Op = "navigate"
	OpWaitFor    Op = "wait_for"
	OpQuery      Op = "query"
	OpQueryAll   Op = "query_all"
	OpClick      Op = "click"
	OpType       Op = "type"
	OpEvaluate   Op = "evaluate"
	OpScreenshot Op = "screenshot"
)

// NavigateAttr lets non-link elements (buttons) navigate when clicked.
const NavigateAttr = "data-fixture-href"

// Fault makes an operation fail. Target is the selector (or URL for
// OpNavigate) the operation was called with; for element operations it is
// the selector that produced the element. Empty Target and Page match
// anything.
type Fault struct {
	Op     Op
	Target string
	Page   string
	Err    error

	// Stall blocks the operation until its context (narrowed by the
	// operation's Timeout option, if any) ends, the way a real browser
	// keeps retrying a covered element. It then fails with
	// browser.ErrTimeout. Err is ignored.
	Stall bool
}

// Site is a set of documents keyed by URL. It implements browser.Driver and
// records what sessions did to it.
type Site struct {
	mu     sync.Mutex
	pages  map[string]string
	faults []Fault

	opened      int
	resets      int
	closes      int
	visited     []string
	typed       map[string]string
	screenshots []string
	openErr     error
}

var _ browser.Driver = (*Site)(nil)

// NewSite returns an empty site.
func NewSite() *Site {
	return &Site{
		pages: make(map[string]string),
		typed: make(map[string]string),
	}
}

// Page registers html under url.
func (s *Site) Page(url, html string) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = html
	return s
}

// Fail registers a fault.
func (s *Site) Fail(f Fault) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, f)
	return s
}

// FailOpen makes Open return err.
func (s *Site) FailOpen(err error) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
	return s
}

// Open starts a session on a blank page.
func (s *Site) Open(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened++
	return &session{site: s}, nil
}

// Stats is a snapshot of what sessions did to the site.
type Stats struct {
	Opened      int
	Resets      int
	Closes      int // every Close call, including repeated ones
	Visited     []string
	Typed       map[string]string
	Screenshots []string
}

// Stats returns a copy of the recorded activity.
func (s *Site) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	typed := make(map[string]string, len(s.typed))
	for k, v := range s.typed {
		typed[k] = v
	}
	return Stats{
		Opened:      s.opened,
		Resets:      s.resets,
		Closes:      s.closes,
		Visited:     append([]string(nil), s.visited...),
		Typed:       typed,
		Screenshots: append([]string(nil), s.screenshots...),
	}
}

func (s *Site) fault(op Op, target, page string) *Fault {
	for i := range s.faults {
		f := &s.faults[i]
		if f.Op != op {
			continue
		}
		if f.Target != "" && f.Target != target {
			continue
		}
		if f.Page != "" && f.Page != page {
			continue
		}
		return f
	}
	return nil
}

type element struct {
	sel      *goquery.Selection
	selector string
}

type session struct {
	site   *Site
	url    string
	doc    *goquery.Document
	closed bool
}

func (s *session) check(op Op, target string) error {
	if s.closed {
		return fmt.Errorf("fixture: %s on closed session", op)
	}
	if f := s.site.fault(op, target, s.url); f != nil && !f.Stall {
		return f.Err
	}
	return nil
}

// stall blocks while a Stall fault matches op. It must be called without
// site.mu held.
func (s *session) stall(ctx context.Context, op Op, target string, timeout time.Duration) error {
	s.site.mu.Lock()
	f := s.site.fault(op, target, s.url)
	s.site.mu.Unlock()
	if f == nil || !f.Stall {
		return nil
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	<-ctx.Done()

	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ctx.Err()
	}
	if target == "" {
		return fmt.Errorf("%w: %s", browser.ErrTimeout, op)
	}
	return fmt.Errorf("%w: %s %s", browser.ErrTimeout, op, target)
}

func (s *session) Reset(ctx context.Context) error {
	if err := s.stall(ctx, OpReset, "", 0); err != nil {
		return err
	}

	s.site.mu.Lock()
	defer s.site.mu.Unlock()

	if err := s.check(OpReset, ""); err != nil {
		return err
	}
	s.site.resets++
	return nil
}

func (s *session) Navigate(ctx context.Context, url string, opts browser.NavigateOptions) error {
	if err := s.stall(ctx, OpNavigate, url, opts.Timeout); err != nil {
		return err
	}

	s.site.mu.Lock()
	defer s.site.mu.Unlock()

	if err := s.check(OpNavigate, url); err != nil {
		return err
	}
	return s.load(url)
}

// load must be called with site.mu held.
func (s *session) load(url string) error {
	html, ok := s.site.pages[url]
	if !ok {
		return fmt.Errorf("fixture: no page registered for %s", url)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("fixture: parse %s: %w", url, err)
	}
	s.url = url
	s.doc = doc
	s.site.visited = append(s.site.visited, url)
	return nil
}

func (s *session) find(selector string) *goquery.Selection {
	if s.doc == nil {
		return &goquery.Selection{}
	}
	return s.doc.Find(selector)
}

func (s *session) WaitFor(ctx context.Context, selector string, opts browser.WaitOptions) (browser.Element, error) {
	if err := s.stall(ctx, OpWaitFor, selector, opts.Timeout); err != nil {
		return nil, err
	}

	s.site.mu.Lock()
	defer s.site.mu.Unlock()

	if err := s.check(OpWaitFor, selector); err != nil {
		return nil, err
	}

	matches := s.find(selector)
	if opts.Visible {
		matches = matches.Not("[hidden]")
	}
	if matches.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	return &element{sel: matches.First(), selector: selector}, nil
}

func (s *session) Query(ctx context.Context, selector string) (browser.Element, error) {
	if err := s.stall(ctx, OpQuery, selector, 0); err != nil {
		return nil, err
	}

	s.site.mu.Lock()
	defer s.site.mu.Unlock()

	if err := s.check(OpQuery, selector); err != nil {
		return nil, err
	}

	matches := s.find(selector)
	if matches.Length() == 0 {
		return nil, nil
	}
	return &element{sel: matches.First(), selector: selector}, nil
}

func (s *session) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := s.stall(ctx, OpQueryAll, selector, 0); err != nil {
		return nil, err
	}

	s.site.mu.Lock()
	defer s.site.mu.Unlock()

	if err := s.check(OpQueryAll, selector); err != nil {
		return nil, err
	}

	matches := s.find(selector)
	out := make([]browser.Element, 0, matches.Length())
	matches.Each(func(_ int, m *goquery.Selection) {
		out = append(out, &element{sel: m, selector: selector})
	})
	return out, nil
}

func (s *session) Click(ctx context.Context, el browser.Element, opts browser.ClickOptions) error {
	e, err := asFixture(el)
	if err != nil {
		return err
	}
	if err := s.stall(ctx, OpClick, e.selector, opts.Timeout); err != nil {
		return err
	}

	s.site.mu.Lock()
	defer s.site.mu.Unlock()

	if err := s.check(OpClick, e.selector); err != nil {
		return err
	}

	target, ok := e.sel.Attr(NavigateAttr)
	if !ok {
		target, ok = e.sel.Attr("href")
	}
	if !ok || target == "" {
		return nil
	}
	return s.load(target)
}

func (s *session) Type(ctx context.Context, el browser.Element, text string, _ browser.TypeOptions) error {
	e, err := asFixture(el)
	if err != nil {
		return err
	}
	if err := s.stall(ctx, OpType, e.selector, 0); err != nil {
		return err
	}

	s.site.mu.Lock()
	defer s.site.mu.Unlock()

	if err := s.check(OpType, e.selector); err != nil {
		return err
	}
	s.site.typed[e.selector] = text
	return nil
}

func (s *session) Evaluate(ctx context.Context, el browser.Element, fn browser.Evaluation) (string, error) {
	e, err := asFixture(el)
	if err != nil {
		return "", err
	}
	if err := s.stall(ctx, OpEvaluate, e.selector, 0); err != nil {
		return "", err
	}

	s.site.mu.Lock()
	defer s.site.mu.Unlock()

	if err := s.check(OpEvaluate, e.selector); err != nil {
		return "", err
	}

	switch fn {
	case browser.EvalText:
		return strings.TrimSpace(e.sel.Text()), nil
	default:
		return "", fmt.Errorf("fixture: unsupported evaluation %d", fn)
	}
}

func (s *session) Screenshot(ctx context.Context, label string) (string, bool) {
	s.site.mu.Lock()
	defer s.site.mu.Unlock()

	if err := s.check(OpScreenshot, label); err != nil {
		return "", false
	}
	s.site.screenshots = append(s.site.screenshots, label)
	return label + ".png", true
}

func (s *session) Close() error {
	s.site.mu.Lock()
	defer s.site.mu.Unlock()

	s.site.closes++
	s.closed = true
	return nil
}

func asFixture(el browser.Element) (*element, error) {
	e, ok := el.(*element)
	if !ok || e == nil {
		return nil, fmt.Errorf("%w: got %T", browser.ErrUnsupportedElement, el)
	}
	return e, nil
}

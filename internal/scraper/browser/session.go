// Package browser defines the page automation capability the scrapers drive
// and provides its go-rod implementation.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrElementNotFound is returned when a selector matches nothing within
	// the allowed time.
	ErrElementNotFound = errors.New("element not found")

	// ErrTimeout is returned when an operation outlives its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrUnsupportedElement is returned when an Element produced by another
	// driver is handed to a Session.
	ErrUnsupportedElement = errors.New("element does not belong to this driver")
)

// Element is an opaque handle to a DOM element. Only the Session that
// produced it can use it.
type Element any

// WaitUntil selects when a navigation is considered settled.
type WaitUntil int

const (
	// WaitLoad waits for the load event.
	WaitLoad WaitUntil = iota
	// WaitNetworkIdle waits until the network has been quiet for a moment.
	WaitNetworkIdle
)

// NavigateOptions configures Session.Navigate.
type NavigateOptions struct {
	Until   WaitUntil
	Timeout time.Duration
}

// WaitOptions configures Session.WaitFor.
type WaitOptions struct {
	Visible bool
	Timeout time.Duration
}

// ClickOptions configures Session.Click.
type ClickOptions struct {
	// Hover moves the pointer over the element before pressing.
	Hover bool
	// Delay is the pause between hovering and pressing.
	Delay time.Duration
	// AwaitNavigation blocks until the navigation triggered by the click
	// settles or Timeout elapses.
	AwaitNavigation bool
	Timeout         time.Duration
}

// TypeOptions configures Session.Type.
type TypeOptions struct {
	// Clear empties the field before typing.
	Clear bool
	// Keystroke is the pause between two characters.
	Keystroke Jitter
}

// Evaluation names a read-only computation over an element. The set is
// closed so every driver can implement it without a script engine.
type Evaluation int

const (
	// EvalText yields the element's trimmed text content.
	EvalText Evaluation = iota
)

// Driver opens automation sessions. Each session owns one browser page and
// must be closed exactly once by its caller.
type Driver interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one browser page under automation. Implementations are not
// safe for concurrent use; a run drives its session sequentially.
type Session interface {
	// Reset clears cookies and cache.
	Reset(ctx context.Context) error
	Navigate(ctx context.Context, url string, opts NavigateOptions) error
	// WaitFor blocks until selector matches. It returns ErrElementNotFound
	// when nothing matches before the timeout.
	WaitFor(ctx context.Context, selector string, opts WaitOptions) (Element, error)
	// Query returns the first match without waiting, or nil.
	Query(ctx context.Context, selector string) (Element, error)
	// QueryAll returns every match without waiting.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Click(ctx context.Context, el Element, opts ClickOptions) error
	Type(ctx context.Context, el Element, text string, opts TypeOptions) error
	Evaluate(ctx context.Context, el Element, fn Evaluation) (string, error)
	// Screenshot captures the page under label. It is best effort: the
	// second return value is false when nothing was written.
	Screenshot(ctx context.Context, label string) (string, bool)
	// Close releases the page and the browser behind it. Calls after the
	// first are no-ops returning the first result.
	Close() error
}

// withTimeout derives a deadline for one suspension point. A zero timeout
// keeps the parent deadline.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

package livelo

import (
	"time"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/browser"
)

// Pacing holds the randomized pauses inserted between interactions so the
// session looks like a person driving the site.
type Pacing struct {
	Keystroke      browser.Jitter
	AfterLoginOpen browser.Jitter
	AfterUserName  browser.Jitter
	AfterPassword  browser.Jitter
	BeforeLedger   browser.Jitter
	PageSettle     browser.Jitter

	// ClickPress is the pause between pointing at a control and pressing it.
	ClickPress time.Duration

	// BeforeMenuClick replaces ClickPress for the profile menu, which
	// only opens after a longer hover.
	BeforeMenuClick browser.Jitter
}

// DefaultPacing returns the ranges observed to pass the site's bot checks.
func DefaultPacing() Pacing {
	return Pacing{
		Keystroke:       browser.Jitter{Min: 80 * time.Millisecond, Max: 200 * time.Millisecond},
		AfterLoginOpen:  browser.Jitter{Min: 500 * time.Millisecond, Max: time.Second},
		AfterUserName:   browser.Jitter{Min: 300 * time.Millisecond, Max: 600 * time.Millisecond},
		AfterPassword:   browser.Jitter{Min: 400 * time.Millisecond, Max: 800 * time.Millisecond},
		BeforeLedger:    browser.Jitter{Min: 10200 * time.Millisecond, Max: 11000 * time.Millisecond},
		ClickPress:      60 * time.Millisecond,
		PageSettle:      browser.Jitter{Min: 1200 * time.Millisecond, Max: 2000 * time.Millisecond},
		BeforeMenuClick: browser.Jitter{Min: 100 * time.Millisecond, Max: 600 * time.Millisecond},
	}
}

// NoPacing disables every pause.
func NoPacing() Pacing {
	return Pacing{}
}

// Scale multiplies every range by f. Zero or negative disables pacing.
func (p Pacing) Scale(f float64) Pacing {
	press := time.Duration(float64(p.ClickPress) * f)
	if f <= 0 {
		press = 0
	}
	return Pacing{
		Keystroke:       p.Keystroke.Scale(f),
		AfterLoginOpen:  p.AfterLoginOpen.Scale(f),
		AfterUserName:   p.AfterUserName.Scale(f),
		AfterPassword:   p.AfterPassword.Scale(f),
		BeforeLedger:    p.BeforeLedger.Scale(f),
		ClickPress:      press,
		PageSettle:      p.PageSettle.Scale(f),
		BeforeMenuClick: p.BeforeMenuClick.Scale(f),
	}
}

// Timeouts bounds every suspension point of a run.
type Timeouts struct {
	Reset           time.Duration
	Navigation      time.Duration
	LoginNavigation time.Duration
	LoginElement    time.Duration
	LoginButton     time.Duration
	ProfileMenu     time.Duration
	LedgerLink      time.Duration
	LedgerLoad      time.Duration
	Balance         time.Duration
	Pager           time.Duration
	NextPage        time.Duration

	// Interaction bounds clicks that trigger no navigation, typing and
	// screenshots.
	Interaction time.Duration
	// Query bounds element lookups and text reads.
	Query time.Duration
}

// DefaultTimeouts returns timeouts sized for the production site.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Reset:           30 * time.Second,
		Navigation:      30 * time.Second,
		LoginNavigation: 60 * time.Second,
		LoginElement:    30 * time.Second,
		LoginButton:     60 * time.Second,
		ProfileMenu:     60 * time.Second,
		LedgerLink:      20 * time.Second,
		LedgerLoad:      60 * time.Second,
		Balance:         60 * time.Second,
		Pager:           10 * time.Second,
		NextPage:        30 * time.Second,
		Interaction:     30 * time.Second,
		Query:           10 * time.Second,
	}
}

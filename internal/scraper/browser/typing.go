package browser

import (
	"context"
	"unicode"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
)

// TypeHuman types text into an element one character at a time, pausing
// for a keystroke jitter between characters. ASCII characters go through
// Element.Type so keydown/keyup events fire; anything outside the keyboard
// map is inserted as text.
func TypeHuman(ctx context.Context, el *rod.Element, text string, keystroke Jitter) error {
	for _, char := range text {
		if err := typeRune(el, char); err != nil {
			return err
		}
		if err := keystroke.Sleep(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TypeFast types text without pauses, for sessions whose pacing is
// disabled.
func TypeFast(el *rod.Element, text string) error {
	for _, char := range text {
		if err := typeRune(el, char); err != nil {
			return err
		}
	}
	return nil
}

// clearField selects the current value and deletes it, the way a user
// would with Ctrl+A then Delete.
func clearField(el *rod.Element) error {
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Type(input.Delete)
}

func typeRune(el *rod.Element, char rune) error {
	if char > unicode.MaxASCII || !unicode.IsPrint(char) {
		return el.Input(string(char))
	}
	return el.Type(input.Key(char))
}

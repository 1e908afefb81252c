package loyalty

import "fmt"

// LogEntry is one step of the audit trail returned to the caller.
type LogEntry struct {
	Order   int    `json:"order"`
	Message string `json:"message"`
}

// Log is the append-only audit trail of a run.
//
// Orders are not tracked by the log itself: every step receives the current
// counter, appends with it and hands the next value back. Order therefore
// follows program order at append time, never the completion order of the
// browser operations behind a step.
type Log []LogEntry

// Append records message under order and returns the next counter value.
func (l *Log) Append(order int, message string) int {
	*l = append(*l, LogEntry{Order: order, Message: message})
	return order + 1
}

// Appendf is Append with fmt.Sprintf formatting.
func (l *Log) Appendf(order int, format string, args ...any) int {
	return l.Append(order, fmt.Sprintf(format, args...))
}

// Contiguous reports whether the orders run start, start+1, ... without
// gaps or reordering.
func (l Log) Contiguous(start int) bool {
	for i, e := range l {
		if e.Order != start+i {
			return false
		}
	}
	return true
}

// Messages returns the messages in order, for assertions and summaries.
func (l Log) Messages() []string {
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = e.Message
	}
	return out
}

// Package diag holds the two error tiers of the compiler: recoverable
// diagnostics collected in a Log, and FatalError for contract violations that
// abort the compilation.
package diag

import (
	"fmt"

	"github.com/xplshn/nsc/pkg/token"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	SevWarning Severity = iota
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

type Diagnostic struct {
	Severity Severity
	Span     token.Span
	Message  string
	// Flag names the -W switch that produced a warning, empty for errors.
	Flag string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Span.Start, d.Severity, d.Message)
}

// Log is the ordered list of diagnostics shared by every stage of one compilation.
type Log struct {
	items []Diagnostic
}

func NewLog() *Log { return &Log{} }

func (l *Log) Add(d Diagnostic) { l.items = append(l.items, d) }

func (l *Log) Errorf(span token.Span, format string, args ...interface{}) {
	l.Add(Diagnostic{Severity: SevError, Span: span, Message: fmt.Sprintf(format, args...)})
}

func (l *Log) Warnf(flag string, span token.Span, format string, args ...interface{}) {
	l.Add(Diagnostic{Severity: SevWarning, Span: span, Message: fmt.Sprintf(format, args...), Flag: flag})
}

// Items returns the diagnostics in the order they were reported.
// The returned slice aliases the log.
func (l *Log) Items() []Diagnostic { return l.items }

func (l *Log) Len() int { return len(l.items) }

// ErrorCount counts error-severity diagnostics.
func (l *Log) ErrorCount() int {
	n := 0
	for i := range l.items {
		if l.items[i].Severity == SevError {
			n++
		}
	}
	return n
}

func (l *Log) HasErrors() bool { return l.ErrorCount() > 0 }

// Mark returns a position in the log; ErrorsSince counts errors reported after it.
func (l *Log) Mark() int { return len(l.items) }

func (l *Log) ErrorsSince(mark int) int {
	n := 0
	for i := mark; i < len(l.items); i++ {
		if l.items[i].Severity == SevError {
			n++
		}
	}
	return n
}

package diag

import (
	"fmt"

	"github.com/xplshn/nsc/pkg/token"
)

type FatalKind uint8

const (
	// FatalSyntax is a structural mismatch found by the scanner or parser.
	FatalSyntax FatalKind = iota
	// FatalContract is an internal invariant broken by the compiler itself.
	FatalContract
	// FatalUnsupported is a construct the compiler does not implement.
	FatalUnsupported
)

func (k FatalKind) String() string {
	switch k {
	case FatalSyntax:
		return "syntax error"
	case FatalContract:
		return "internal error"
	case FatalUnsupported:
		return "unsupported"
	}
	return "fatal"
}

// FatalError aborts a compilation. It is never added to a Log.
type FatalError struct {
	Kind    FatalKind
	Span    token.Span
	Message string
}

func (e *FatalError) Error() string {
	if e.Span.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Span.Start, e.Kind, e.Message)
}

func Syntax(span token.Span, format string, args ...interface{}) *FatalError {
	return &FatalError{Kind: FatalSyntax, Span: span, Message: fmt.Sprintf(format, args...)}
}

func Contract(span token.Span, format string, args ...interface{}) *FatalError {
	return &FatalError{Kind: FatalContract, Span: span, Message: fmt.Sprintf(format, args...)}
}

func Unsupported(span token.Span, format string, args ...interface{}) *FatalError {
	return &FatalError{Kind: FatalUnsupported, Span: span, Message: fmt.Sprintf(format, args...)}
}

// Recover turns a *FatalError panic into a returned error. Passes use it with
// defer at their entry point and panic(fe) deep inside recursive walks.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if fe, ok := r.(*FatalError); ok {
		*err = fe
		return
	}
	panic(r)
}

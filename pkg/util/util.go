package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/token"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	caretColor   = color.New(color.FgGreen)
)

// Printer renders diagnostics against the files they refer to.
type Printer struct {
	Out   io.Writer
	Files []SourceFileRecord
}

func NewPrinter(out io.Writer, files []SourceFileRecord) *Printer {
	return &Printer{Out: out, Files: files}
}

func (p *Printer) fileName(fileIndex int) string {
	if fileIndex < 0 || fileIndex >= len(p.Files) {
		return "unknown"
	}
	return p.Files[fileIndex].Name
}

// sourceLine returns the text of the 1-based line in the given file.
func (p *Printer) sourceLine(fileIndex, line int) (string, bool) {
	if fileIndex < 0 || fileIndex >= len(p.Files) || line <= 0 {
		return "", false
	}
	content := p.Files[fileIndex].Content
	lineStart := 0
	for i, r := range content {
		if line <= 1 {
			break
		}
		if r == '\n' {
			line--
			lineStart = i + 1
		}
	}
	if line > 1 {
		return "", false
	}
	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}
	return strings.TrimRight(string(content[lineStart:lineEnd]), "\r"), true
}

// printErrorLine prints the source line and a caret indicating the span.
func (p *Printer) printErrorLine(fileIndex int, span token.Span) {
	text, ok := p.sourceLine(fileIndex, span.Start.Line)
	if !ok {
		return
	}
	fmt.Fprintf(p.Out, "  %s\n", text)

	runes := []rune(text)
	col := min(max(span.Start.Column-1, 0), len(runes))
	pad := runewidth.StringWidth(string(runes[:col]))
	length := 1
	if span.End.Line == span.Start.Line && span.End.Column-span.Start.Column > 1 {
		end := min(span.End.Column-1, len(runes))
		length = max(runewidth.StringWidth(string(runes[col:end])), 1)
	}
	fmt.Fprintf(p.Out, "  %s%s\n", strings.Repeat(" ", pad), caretColor.Sprint("^"+strings.Repeat("~", length-1)))
}

// Diagnostic prints one diagnostic as file:line:col: severity: message.
func (p *Printer) Diagnostic(fileIndex int, d diag.Diagnostic) {
	label := errorColor.Sprint("error:")
	suffix := ""
	if d.Severity == diag.SevWarning {
		label = warningColor.Sprint("warning:")
		if d.Flag != "" {
			suffix = fmt.Sprintf(" [-W%s]", d.Flag)
		}
	}
	fmt.Fprintf(p.Out, "%s:%d:%d: %s %s%s\n", p.fileName(fileIndex), d.Span.Start.Line, d.Span.Start.Column, label, d.Message, suffix)
	p.printErrorLine(fileIndex, d.Span)
}

// Log prints every diagnostic of a compilation in report order.
func (p *Printer) Log(fileIndex int, log *diag.Log) {
	for _, d := range log.Items() {
		p.Diagnostic(fileIndex, d)
	}
}

// Fatal prints an aborting error.
func (p *Printer) Fatal(fileIndex int, fe *diag.FatalError) {
	fmt.Fprintf(p.Out, "%s:%d:%d: %s %s\n", p.fileName(fileIndex), fe.Span.Start.Line, fe.Span.Start.Column,
		errorColor.Sprint(fe.Kind.String()+":"), fe.Message)
	p.printErrorLine(fileIndex, fe.Span)
}

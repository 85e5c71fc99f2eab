// Package compiler chains the passes for one compilation unit.
package compiler

import (
	"bytes"

	"github.com/xplshn/nsc/pkg/ast"
	"github.com/xplshn/nsc/pkg/codegen"
	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/cst"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/ir"
	"github.com/xplshn/nsc/pkg/lexer"
	"github.com/xplshn/nsc/pkg/parser"
	"github.com/xplshn/nsc/pkg/sema"
	"github.com/xplshn/nsc/pkg/symtab"
	"github.com/xplshn/nsc/pkg/token"
)

// Result carries every intermediate form of a compilation. Later fields stay
// nil when an earlier pass failed or the input was empty.
type Result struct {
	OK      bool
	Log     *diag.Log
	Tokens  []token.Token
	CST     *cst.Node
	AST     *ast.Node
	Table   *symtab.Table
	Info    *sema.Info
	Program *ir.Program
}

// Empty reports whether the input held no namespace at all.
func (r *Result) Empty() bool { return r.OK && r.CST == nil }

// Compile runs every pass up to the stack program. User errors leave OK false
// with the reasons in Log; a returned error is a *diag.FatalError.
func Compile(src []rune, fileIndex int, cfg *config.Config) (*Result, error) {
	res := &Result{Log: diag.NewLog()}

	toks, err := lexer.Tokenize(src, fileIndex)
	if err != nil {
		return res, err
	}
	res.Tokens = toks

	res.CST, err = parser.NewParser(toks).Parse()
	if err != nil {
		return res, err
	}
	if res.CST == nil {
		res.OK = true
		return res, nil
	}

	res.AST, err = ast.FromCST(res.CST)
	if err != nil {
		return res, err
	}

	an := sema.NewAnalyzer(cfg, res.Log)
	ok, err := an.Analyze(res.AST)
	res.Table, res.Info = an.Table(), an.Info()
	if err != nil || !ok {
		return res, err
	}

	res.Program, err = codegen.NewContext(cfg, res.Table, res.Info).Generate(res.AST)
	if err != nil {
		return res, err
	}
	res.OK = true
	return res, nil
}

// Emit renders a compiled program with the configured backend. With irOnly
// the backend's textual IR is returned instead of assembled output.
func Emit(prog *ir.Program, cfg *config.Config, irOnly bool) (*bytes.Buffer, error) {
	backend, err := codegen.NewBackend(cfg.BackendName)
	if err != nil {
		return nil, err
	}
	if irOnly {
		text, err := backend.GenerateIR(prog, cfg)
		if err != nil {
			return nil, err
		}
		return bytes.NewBufferString(text), nil
	}
	return backend.Generate(prog, cfg)
}

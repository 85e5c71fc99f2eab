package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes an IR program and a configuration, and produces the target
	// assembly or intermediate language as a byte buffer.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
	// GenerateIR renders the backend's textual IR without assembling it.
	GenerateIR(prog *ir.Program, cfg *config.Config) (string, error)
}

// Backends lists the names NewBackend accepts.
var Backends = []string{"cil", "qbe"}

func NewBackend(name string) (Backend, error) {
	switch name {
	case "cil":
		return NewCILBackend(), nil
	case "qbe":
		return NewQBEBackend(), nil
	}
	return nil, fmt.Errorf("unsupported backend '%s'", name)
}

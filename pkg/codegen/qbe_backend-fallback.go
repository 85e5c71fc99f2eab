//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/ir"
)

// Generate pipes the QBE IL through a system qbe binary; libqbe is not
// available on Windows.
func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	qbePath, err := exec.LookPath("qbe")
	if err != nil {
		return nil, fmt.Errorf("qbe backend needs a 'qbe' binary in PATH on Windows: %w", err)
	}

	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}

	input, err := os.CreateTemp("", "nsc-qbe-*.ssa")
	if err != nil {
		return nil, err
	}
	defer os.Remove(input.Name())
	if _, err := input.WriteString(qbeIR); err != nil {
		input.Close()
		return nil, err
	}
	input.Close()

	var asmBuf, stderr bytes.Buffer
	cmd := exec.Command(qbePath, "-t", cfg.BackendTarget, input.Name())
	cmd.Stdout, cmd.Stderr = &asmBuf, &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("qbe failed for target '%s': %w\n%s--- generated IR ---\n%s", cfg.BackendTarget, err, stderr.String(), qbeIR)
	}
	return &asmBuf, nil
}

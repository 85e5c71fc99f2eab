//go:build !windows

package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/ir"
	"modernc.org/libqbe"
)

// Generate lowers prog to QBE IL and assembles it in-process for
// cfg.BackendTarget.
func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}

	var asmBuf bytes.Buffer
	if err := libqbe.Main(cfg.BackendTarget, prog.Namespace+".ssa", strings.NewReader(qbeIR), &asmBuf, nil); err != nil {
		return nil, fmt.Errorf("qbe failed for target '%s': %w\n--- generated IR ---\n%s", cfg.BackendTarget, err, qbeIR)
	}
	return &asmBuf, nil
}

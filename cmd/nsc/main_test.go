package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xplshn/nsc/pkg/config"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.ns")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompileFileWritesOutput(t *testing.T) {
	input := writeSource(t, "namespace Demo { func main() { let x: int32 = 1; } }")
	out := filepath.Join(t.TempDir(), "prog.il")
	var stdout, stderr bytes.Buffer
	if err := compileFile(input, &options{outFile: out}, config.NewConfig(), &stdout, &stderr); err != nil {
		t.Fatalf("compileFile: %v\n%s", err, stderr.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), ".entrypoint") {
		t.Errorf("output lacks an entry point:\n%s", data)
	}
}

func TestCompileFileExitCodes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code int
		msg  string
	}{
		{"diagnostic", "namespace N { func f() { let b: bool = 1; } }", 1, "Type mismatch in definition of 'b'"},
		{"syntax", "namespace N { func f() { let b: bool = true } }", 2, "expected ';' after variable definition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := writeSource(t, tt.src)
			var stdout, stderr bytes.Buffer
			err := compileFile(input, &options{outFile: "-"}, config.NewConfig(), &stdout, &stderr)
			var ee *exitError
			if !errors.As(err, &ee) || ee.code != tt.code {
				t.Fatalf("got %v, want exit status %d", err, tt.code)
			}
			if !strings.Contains(stderr.String(), tt.msg) {
				t.Errorf("stderr lacks %q:\n%s", tt.msg, stderr.String())
			}
		})
	}
}

func TestCompileFileEmptyInput(t *testing.T) {
	input := writeSource(t, "// empty\n")
	var stdout, stderr bytes.Buffer
	err := compileFile(input, &options{outFile: "-"}, config.NewConfig(), &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "contains no namespace") {
		t.Errorf("got %v", err)
	}
}

func TestCompileFileCache(t *testing.T) {
	input := writeSource(t, "namespace N { func main() { let x: int32 = 1; { let x: int32 = 2; } } }")
	opts := &options{outFile: "-", dumpIR: true, cacheDir: t.TempDir()}
	cfg := config.NewConfig()
	cfg.Verbose = true

	var first, second, stderr1, stderr2 bytes.Buffer
	if err := compileFile(input, opts, cfg, &first, &stderr1); err != nil {
		t.Fatal(err)
	}
	if err := compileFile(input, opts, cfg, &second, &stderr2); err != nil {
		t.Fatal(err)
	}
	if first.String() != second.String() {
		t.Error("cached output differs from the compiled one")
	}
	if strings.Contains(stderr1.String(), "cache hit") || !strings.Contains(stderr2.String(), "cache hit") {
		t.Errorf("unexpected cache behaviour:\n%s\n---\n%s", stderr1.String(), stderr2.String())
	}
	for _, s := range []string{stderr1.String(), stderr2.String()} {
		if !strings.Contains(s, "shadows") || !strings.Contains(s, "[-Wshadow]") {
			t.Errorf("shadow warning not reported:\n%s", s)
		}
	}
}

func TestConfigure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte("[compiler]\nbackend = \"qbe\"\ntarget = \"arm64\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.NewConfig()
	if err := configure(cfg, &options{}, filepath.Join(dir, "prog.ns")); err != nil {
		t.Fatal(err)
	}
	if cfg.BackendName != "qbe" || cfg.BackendTarget != "arm64" {
		t.Errorf("backend %s/%s", cfg.BackendName, cfg.BackendTarget)
	}

	cfg = config.NewConfig()
	if err := configure(cfg, &options{backend: "cil", target: "rv64"}, filepath.Join(dir, "prog.ns")); err != nil {
		t.Fatal(err)
	}
	if cfg.BackendName != "cil" || cfg.BackendTarget != "rv64" {
		t.Errorf("command line did not override the file: %s/%s", cfg.BackendName, cfg.BackendTarget)
	}
}

func TestDefaultOutput(t *testing.T) {
	if got := defaultOutput("dir/prog.ns", "qbe"); got != "prog.s" {
		t.Errorf("qbe: %s", got)
	}
	if got := defaultOutput("prog.ns", "cil"); got != "prog.il" {
		t.Errorf("cil: %s", got)
	}
}

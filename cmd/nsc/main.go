package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/xplshn/nsc/pkg/cache"
	"github.com/xplshn/nsc/pkg/cli"
	"github.com/xplshn/nsc/pkg/compiler"
	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/util"
)

// exitError carries the process status for a failed compilation whose
// diagnostics were already printed.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

type options struct {
	outFile    string
	backend    string
	target     string
	configPath string
	cacheDir   string
	dumpIR     bool
	verbose    bool
}

func main() {
	app := cli.NewApp("nsc")
	app.Synopsis = "[options] <input.ns>"
	app.Description = "A compiler for a small namespace language, emitting stack IL or native code through QBE."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/nsc>"

	var opts options
	fs := app.FlagSet
	fs.String(&opts.outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&opts.backend, "backend", "b", "", "Select the backend (cil, qbe).", "backend")
	fs.String(&opts.target, "target", "t", "", "Set the QBE target ABI.", "target")
	fs.Bool(&opts.dumpIR, "dump-ir", "d", false, "Dump the backend IR to standard output and exit.")
	fs.String(&opts.configPath, "config", "", "", "Read settings from <file> instead of the nearest nsc.toml.", "file")
	fs.String(&opts.cacheDir, "cache-dir", "", "", "Reuse outputs stored in <dir>.", "dir")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Print progress information.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		if len(inputFiles) != 1 {
			return fmt.Errorf("expected exactly one input file, got %d", len(inputFiles))
		}
		if err := configure(cfg, &opts, inputFiles[0]); err != nil {
			return err
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		return compileFile(inputFiles[0], &opts, cfg, os.Stdout, os.Stderr)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "nsc: error: %v\n", err)
		os.Exit(1)
	}
}

// configure layers the configuration file and then the command line over the
// defaults.
func configure(cfg *config.Config, opts *options, input string) error {
	cfg.Verbose = opts.verbose
	path := opts.configPath
	if path == "" {
		found, ok, err := config.FindFile(filepath.Dir(input))
		if err != nil {
			return err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "nsc: info: using configuration '%s'\n", path)
		}
		if err := cfg.ApplyFile(path); err != nil {
			return err
		}
	}
	if opts.backend != "" {
		cfg.BackendName = opts.backend
	}
	if opts.target != "" {
		cfg.SetTarget(runtime.GOOS, runtime.GOARCH, opts.target)
	} else if cfg.BackendTarget == "" {
		cfg.SetTarget(runtime.GOOS, runtime.GOARCH, "")
	}
	return nil
}

func defaultOutput(input, backend string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if backend == "qbe" {
		return base + ".s"
	}
	return base + ".il"
}

// compileFile compiles one source file and writes the result. Errors that were
// already reported to stderr come back as *exitError.
func compileFile(input string, opts *options, cfg *config.Config, stdout, stderr io.Writer) error {
	content, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("could not read file '%s': %w", input, err)
	}
	src := []rune(string(content))
	printer := util.NewPrinter(stderr, []util.SourceFileRecord{{Name: input, Content: src}})

	var store *cache.Cache
	var key string
	if opts.cacheDir != "" {
		if store, err = cache.Open(opts.cacheDir); err != nil {
			return fmt.Errorf("could not open cache: %w", err)
		}
		key = cache.Key(content, fmt.Sprintf("%s;ir=%v", cfg.Fingerprint(), opts.dumpIR))
		entry, ok, err := store.Get(key)
		if err != nil && cfg.Verbose {
			fmt.Fprintf(stderr, "nsc: info: ignoring unreadable cache entry: %v\n", err)
		}
		if ok {
			if cfg.Verbose {
				fmt.Fprintf(stderr, "nsc: info: cache hit for '%s'\n", input)
			}
			printer.Log(0, entry.Replay())
			return writeOutput(input, opts, cfg, stdout, stderr, entry.Output)
		}
	}

	if cfg.Verbose {
		fmt.Fprintf(stderr, "nsc: info: compiling '%s' with the '%s' backend\n", input, cfg.BackendName)
	}
	res, err := compiler.Compile(src, 0, cfg)
	printer.Log(0, res.Log)
	if err != nil {
		var fe *diag.FatalError
		if errors.As(err, &fe) {
			printer.Fatal(0, fe)
			return &exitError{code: 2}
		}
		return err
	}
	if !res.OK {
		fmt.Fprintf(stderr, "nsc: %d error(s) generated\n", res.Log.ErrorCount())
		return &exitError{code: 1}
	}
	if res.Empty() {
		return fmt.Errorf("'%s' contains no namespace", input)
	}

	out, err := compiler.Emit(res.Program, cfg, opts.dumpIR)
	if err != nil {
		return fmt.Errorf("backend '%s' failed: %w", cfg.BackendName, err)
	}
	if store != nil {
		entry := &cache.Entry{Backend: cfg.BackendName, Output: out.Bytes(), Diagnostics: cache.FromLog(res.Log)}
		if err := store.Put(key, entry); err != nil && cfg.Verbose {
			fmt.Fprintf(stderr, "nsc: info: could not store cache entry: %v\n", err)
		}
	}
	return writeOutput(input, opts, cfg, stdout, stderr, out.Bytes())
}

func writeOutput(input string, opts *options, cfg *config.Config, stdout, stderr io.Writer, data []byte) error {
	if opts.dumpIR || opts.outFile == "-" {
		_, err := stdout.Write(data)
		return err
	}
	path := opts.outFile
	if path == "" {
		path = defaultOutput(input, cfg.BackendName)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write '%s': %w", path, err)
	}
	if cfg.Verbose {
		fmt.Fprintf(stderr, "nsc: info: wrote '%s'\n", path)
	}
	return nil
}

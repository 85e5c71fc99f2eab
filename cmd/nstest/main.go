// nstest runs the compiler over a set of source files and compares what it
// prints against golden JSON files recorded next to them.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Golden is the recorded behaviour of the compiler on one file.
type Golden struct {
	Args    []string  `json:"args,omitempty"`
	Hash    string    `json:"hash"`
	Compile Execution `json:"compile"`
}

type FileTestResult struct {
	File    string     `json:"file"`
	Status  string     `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string     `json:"message,omitempty"`
	Diff    string     `json:"diff,omitempty"`
	Golden  *Golden    `json:"golden,omitempty"`
	Target  *Execution `json:"target,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	targetCompiler = flag.String("target-compiler", "./nsc", "Path to the compiler to test.")
	targetArgs     = flag.String("target-args", "", "Extra arguments for the compiler (space-separated).")
	generateGolden = flag.Bool("generate-golden", false, "Record golden files instead of comparing against them.")
	testFiles      = flag.String("test-files", "tests/*.ns", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each compiler invocation.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	results, err := runSuite(context.Background(), files)
	if err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}
	if *generateGolden {
		return
	}
	printSummary(results)
	if hasFailures(writeJSONReport(results)) {
		os.Exit(1)
	}
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

// runSuite tests every file, at most -j at a time. Files whose content
// duplicates an earlier one are skipped.
func runSuite(ctx context.Context, files []string) ([]*FileTestResult, error) {
	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	results := make([]*FileTestResult, len(files))
	seenHashes := make(map[string]string)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(*jobs)

	for i, file := range files {
		if skipList[file] || skipList[filepath.Base(file)] {
			results[i] = &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			results[i] = &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			results[i] = &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file

		i, file := i, file
		g.Go(func() error {
			if *generateGolden {
				return recordGolden(ctx, file, fileHash)
			}
			results[i] = testFile(ctx, file, fileHash)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*FileTestResult
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

func recordGolden(ctx context.Context, file, fileHash string) error {
	args := strings.Fields(*targetArgs)
	res := compile(ctx, *targetCompiler, args, file)
	if res.TimedOut {
		return fmt.Errorf("%s: compiler timed out", file)
	}
	jsonData, err := json.MarshalIndent(&Golden{Args: args, Hash: fileHash, Compile: res}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal golden data for %s: %w", file, err)
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", *jsonDir, err)
		}
	}
	goldenFileName := getJSONPath(file)
	if err := os.WriteFile(goldenFileName, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write golden file %s: %w", goldenFileName, err)
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFileName)
	return nil
}

func testFile(ctx context.Context, file, fileHash string) *FileTestResult {
	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden Golden
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}
	if *verbose && golden.Hash != fileHash {
		log.Printf("[%s] source changed since the golden file was recorded", file)
	}

	target := compile(ctx, *targetCompiler, golden.Args, file)
	return compareResults(file, &golden, &target)
}

func compareResults(file string, golden *Golden, target *Execution) *FileTestResult {
	var diffs strings.Builder
	want := golden.Compile
	if target.TimedOut {
		fmt.Fprintf(&diffs, "Compiler timed out after %s\n", *timeout)
	}
	if want.ExitCode != target.ExitCode {
		fmt.Fprintf(&diffs, "Exit Code mismatch:\n  - Golden: %d\n  - Target: %d\n", want.ExitCode, target.ExitCode)
	}
	if want.Stdout != target.Stdout {
		fmt.Fprintf(&diffs, "STDOUT mismatch:\n%s", cmp.Diff(want.Stdout, target.Stdout))
	}
	if want.Stderr != target.Stderr {
		fmt.Fprintf(&diffs, "STDERR mismatch:\n%s", cmp.Diff(want.Stderr, target.Stderr))
	}
	if diffs.Len() > 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Compiler output or exit code mismatch", Diff: diffs.String(), Golden: golden, Target: target}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Output matches golden file", Golden: golden, Target: target}
}

// compile runs the compiler in IR dump mode so the result lands on stdout.
// Source paths are replaced by their base name to keep goldens portable.
func compile(ctx context.Context, compiler string, args []string, sourceFile string) Execution {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	allArgs := append([]string{"-d"}, args...)
	allArgs = append(allArgs, sourceFile)
	res := executeCommand(ctx, compiler, allArgs...)
	res.Stderr = strings.ReplaceAll(res.Stderr, sourceFile, filepath.Base(sourceFile))
	return res
}

// executeCommand runs a command with a timeout and captures its output
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "NO_COLOR=1")

	err := cmd.Run()
	execResult := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		execResult.TimedOut = true
		execResult.ExitCode = -1
	case errors.As(err, &exitErr):
		execResult.ExitCode = exitErr.ExitCode()
	case err != nil:
		execResult.ExitCode = -2
		execResult.Stderr += "\nExecution error: " + err.Error()
	}
	return execResult
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var total time.Duration
	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
		if result.Target != nil {
			total += result.Target.Duration
			if *verbose {
				fmt.Printf("  compile: %s\n", formatDuration(result.Target.Duration))
			}
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if n := passed + failed; n > 0 {
		fmt.Printf("Average compile time: %s\n", strings.TrimSpace(formatDuration(total/time.Duration(n))))
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}

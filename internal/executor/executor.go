// Package executor implements one execution strategy per guest
// language: an in-process evaluator for lua, interpreter child
// processes for python and javascript, and compile-then-run for cpp
// and java.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/sandbox"
)

// Executor runs one submission. Build is called once per submission
// (a no-op for interpreted languages); Execute once per test case.
type Executor interface {
	Build(ctx context.Context, ws *sandbox.Workspace) (*internal.BuildResult, error)
	Execute(ctx context.Context, ws *sandbox.Workspace, tc internal.TestCase) (*internal.Outcome, error)
}

// New selects the strategy for the submission's language. Compiled
// languages receive the full test-case list up front because their
// generated harness embeds every case and selects one by argv index.
func New(lang langs.Language, subm internal.Submission, cases []internal.TestCase) (Executor, error) {
	switch {
	case lang.InProcess:
		return newLuaExecutor(lang, subm), nil
	case lang.CompileCmd != nil:
		return newCompiledExecutor(lang, subm, cases)
	default:
		return newInterpExecutor(lang, subm), nil
	}
}

// resultMarker prefixes the line on which a generated harness prints
// the submission's return value.
const resultMarker = "RESULT:"

// ExtractResult scans captured stdout for the harness result line and
// returns its payload. Everything the submission itself printed stays
// in the outcome's stdout.
func ExtractResult(stdout string) (string, bool) {
	for _, line := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(line, resultMarker) {
			return strings.TrimSpace(line[len(resultMarker):]), true
		}
	}
	return "", false
}

// outcomeFromRun maps a raw sandbox observation onto an Outcome.
func outcomeFromRun(res *sandbox.RunResult) *internal.Outcome {
	out := &internal.Outcome{
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		WallMillis: res.WallMillis,
	}
	switch {
	case res.TimedOut:
		out.Exit = api.ExitTimeout
	case res.Crashed:
		out.Exit = api.ExitCrash
	case res.ExitCode != 0:
		out.Exit = api.ExitNonZero
	default:
		out.Exit = api.ExitSuccess
	}
	return out
}

// maxDiagnosticLen bounds compiler diagnostics carried into reports.
const maxDiagnosticLen = 4096

func truncDiagnostic(s string) string {
	if len(s) > maxDiagnosticLen {
		return s[:maxDiagnosticLen] + "\n[truncated]"
	}
	return s
}

func buildFailure(res *sandbox.RunResult) *internal.BuildResult {
	diag := res.Stderr
	if diag == "" {
		diag = res.Stdout
	}
	if res.TimedOut {
		diag = fmt.Sprintf("build timed out\n%s", diag)
	}
	return &internal.BuildResult{
		OK:         false,
		Diagnostic: truncDiagnostic(diag),
		WallMillis: res.WallMillis,
	}
}

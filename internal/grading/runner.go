// Package grading contains the job runner that drives a submission
// through build, per-case execution and comparison, and the dispatcher
// that validates requests and bounds concurrency.
package grading

import (
	"context"
	"fmt"
	"strings"

	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal"
	"github.com/praclab/grader/internal/executor"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/sandbox"
	"github.com/praclab/grader/internal/values"
)

// maxVerdictMsg bounds the failure message carried on a verdict.
const maxVerdictMsg = 300

// newExecutor is swapped in tests to observe the build/execute contract.
var newExecutor = executor.New

// runJob grades one submission. It emits progress through gath as it
// goes and returns the terminal report. The only error it returns is an
// infrastructure one (workspace or process-spawn failure); every guest
// misbehavior ends up inside the report instead.
func runJob(ctx context.Context, sb *sandbox.Sandbox, lang langs.Language, subm internal.Submission, cases []internal.TestCase, cmp values.Options, gath internal.ResultGatherer) (*api.Report, error) {
	gath.StartJob(lang.ID, len(cases))

	ws, err := sb.NewWorkspace()
	if err != nil {
		return nil, finishWithFailure(gath, subm.JobUuid, fmt.Errorf("sandbox failure: %w", err))
	}
	defer ws.Close()

	exec, err := newExecutor(lang, subm, cases)
	if err != nil {
		// harness generation rejected the submission's shape; report it
		// the same way a compiler would
		report := &api.Report{
			JobUuid:    subm.JobUuid,
			Status:     api.StatusCompileError,
			Verdicts:   []api.Verdict{},
			Diagnostic: err.Error(),
		}
		gath.FinishJob(report.Status, nil)
		return report, nil
	}

	gath.StartBuild()
	br, err := exec.Build(ctx, ws)
	if err != nil {
		return nil, finishWithFailure(gath, subm.JobUuid, fmt.Errorf("sandbox failure: %w", err))
	}
	gath.FinishBuild(&api.RunData{
		Stderr:     br.Diagnostic,
		ExitStatus: buildExit(br),
		WallMillis: br.WallMillis,
	})
	if !br.OK {
		report := &api.Report{
			JobUuid:    subm.JobUuid,
			Status:     api.StatusCompileError,
			Verdicts:   []api.Verdict{},
			Diagnostic: br.Diagnostic,
		}
		gath.FinishJob(report.Status, nil)
		return report, nil
	}

	verdicts := make([]api.Verdict, 0, len(cases))
	for _, tc := range cases {
		gath.ReachTest(tc.ID)
		out, err := exec.Execute(ctx, ws, tc)
		if err != nil {
			return nil, finishWithFailure(gath, subm.JobUuid, fmt.Errorf("sandbox failure: %w", err))
		}
		v := judge(tc, out, cmp)
		gath.FinishTest(v, &api.RunData{
			Stdout:     out.Stdout,
			Stderr:     out.Stderr,
			ExitStatus: out.Exit,
			WallMillis: out.WallMillis,
		})
		verdicts = append(verdicts, v)
	}

	report := &api.Report{
		JobUuid:  subm.JobUuid,
		Status:   overallStatus(verdicts),
		Verdicts: verdicts,
	}
	gath.FinishJob(report.Status, nil)
	return report, nil
}

func finishWithFailure(gath internal.ResultGatherer, jobUuid string, err error) error {
	msg := err.Error()
	gath.FinishJob(api.StatusInternalError, &msg)
	return err
}

func buildExit(br *internal.BuildResult) api.ExitStatus {
	if br.OK {
		return api.ExitSuccess
	}
	return api.ExitNonZero
}

// judge compares one outcome against its test case.
func judge(tc internal.TestCase, out *internal.Outcome, cmp values.Options) api.Verdict {
	v := api.Verdict{
		TestID:     tc.ID,
		Expected:   tc.Expected.String(),
		ExitStatus: out.Exit,
		WallMillis: out.WallMillis,
	}

	switch out.Exit {
	case api.ExitTimeout:
		v.Message = "time limit exceeded"
		return v
	case api.ExitCrash, api.ExitNonZero:
		v.Message = trimMsg(firstOf(out.Stderr, "runtime error"))
		return v
	}

	actual, msg := actualValue(tc, out)
	if msg != "" {
		v.Message = trimMsg(msg)
		return v
	}
	v.Actual = actual.String()
	ok, diff := values.Equal(tc.Expected, actual, cmp)
	v.Passed = ok
	if !ok {
		v.Message = trimMsg(diff)
	}
	return v
}

// actualValue resolves the submission's return value from the outcome:
// in-process executors hand it over typed, child-process ones leave a
// result line in stdout to parse under the expectation's type hint.
func actualValue(tc internal.TestCase, out *internal.Outcome) (values.Value, string) {
	if out.Result != nil {
		return *out.Result, ""
	}
	payload, ok := executor.ExtractResult(out.Stdout)
	if !ok {
		return values.Value{}, "no result produced"
	}
	actual, err := values.ParseActual(payload, tc.Expected)
	if err != nil {
		return values.Value{}, err.Error()
	}
	return actual, ""
}

// overallStatus folds per-case verdicts into the job status: everything
// green is all_passed, nothing green with at least one abnormal exit is
// runtime_error, anything else is partial.
func overallStatus(verdicts []api.Verdict) api.Status {
	passed, abnormal := 0, 0
	for _, v := range verdicts {
		if v.Passed {
			passed++
		}
		if v.ExitStatus != api.ExitSuccess {
			abnormal++
		}
	}
	switch {
	case passed == len(verdicts):
		return api.StatusAllPassed
	case passed == 0 && abnormal > 0:
		return api.StatusRuntimeError
	default:
		return api.StatusPartial
	}
}

func firstOf(s, fallback string) string {
	if strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return fallback
}

func trimMsg(s string) string {
	if len(s) > maxVerdictMsg {
		return s[:maxVerdictMsg] + "..."
	}
	return s
}

package grading

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal"
	"github.com/praclab/grader/internal/executor"
	"github.com/praclab/grader/internal/gatherer/respbuilder"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/sandbox"
	"github.com/praclab/grader/internal/values"
)

// stubExecutor counts calls so the runner's build/execute contract can
// be observed without any guest toolchain.
type stubExecutor struct {
	buildCalls   int
	executeCalls int
	buildResult  *internal.BuildResult
	buildErr     error
}

func (s *stubExecutor) Build(ctx context.Context, ws *sandbox.Workspace) (*internal.BuildResult, error) {
	s.buildCalls++
	return s.buildResult, s.buildErr
}

func (s *stubExecutor) Execute(ctx context.Context, ws *sandbox.Workspace, tc internal.TestCase) (*internal.Outcome, error) {
	s.executeCalls++
	res := tc.Expected
	return &internal.Outcome{Result: &res, Exit: api.ExitSuccess}, nil
}

func withStubExecutor(t *testing.T, stub *stubExecutor) {
	t.Helper()
	orig := newExecutor
	newExecutor = func(langs.Language, internal.Submission, []internal.TestCase) (executor.Executor, error) {
		return stub, nil
	}
	t.Cleanup(func() { newExecutor = orig })
}

func newTestSandbox(t *testing.T) *sandbox.Sandbox {
	t.Helper()
	root, err := os.MkdirTemp("", "runner_test*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(root) })

	sb, err := sandbox.New(root)
	require.NoError(t, err)
	return sb
}

func threeCases() []internal.TestCase {
	return []internal.TestCase{
		{ID: 1, Expected: values.NewInt(1)},
		{ID: 2, Expected: values.NewInt(2)},
		{ID: 3, Expected: values.NewInt(3)},
	}
}

func TestRunJobBuildsOnceForManyCases(t *testing.T) {
	stub := &stubExecutor{buildResult: &internal.BuildResult{OK: true}}
	withStubExecutor(t, stub)

	lang, err := langs.Get("cpp")
	require.NoError(t, err)
	gath := respbuilder.New("stub-1")
	report, err := runJob(context.Background(), newTestSandbox(t), lang, internal.Submission{JobUuid: "stub-1"}, threeCases(), values.DefaultOptions(), gath)
	require.NoError(t, err)

	assert.Equal(t, 1, stub.buildCalls)
	assert.Equal(t, 3, stub.executeCalls)
	assert.Equal(t, api.StatusAllPassed, report.Status)
	require.Len(t, report.Verdicts, 3)
}

func TestRunJobCompileErrorShortCircuits(t *testing.T) {
	stub := &stubExecutor{buildResult: &internal.BuildResult{OK: false, Diagnostic: "expected ';' before '}'"}}
	withStubExecutor(t, stub)

	lang, err := langs.Get("cpp")
	require.NoError(t, err)
	gath := respbuilder.New("stub-2")
	report, err := runJob(context.Background(), newTestSandbox(t), lang, internal.Submission{JobUuid: "stub-2"}, threeCases(), values.DefaultOptions(), gath)
	require.NoError(t, err)

	assert.Equal(t, api.StatusCompileError, report.Status)
	assert.NotNil(t, report.Verdicts)
	assert.Empty(t, report.Verdicts)
	assert.Contains(t, report.Diagnostic, "expected ';'")
	assert.Equal(t, 0, stub.executeCalls, "no test may run after a failed build")

	assert.Equal(t, api.StatusCompileError, gath.Report().Status)
	assert.Empty(t, gath.Report().Verdicts)
}

func TestRunJobInfrastructureFailure(t *testing.T) {
	stub := &stubExecutor{buildErr: errors.New("fork failed")}
	withStubExecutor(t, stub)

	lang, err := langs.Get("cpp")
	require.NoError(t, err)
	gath := respbuilder.New("stub-3")
	_, err = runJob(context.Background(), newTestSandbox(t), lang, internal.Submission{JobUuid: "stub-3"}, threeCases(), values.DefaultOptions(), gath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sandbox failure")

	rep := gath.Report()
	assert.Equal(t, api.StatusInternalError, rep.Status)
	assert.Contains(t, rep.Diagnostic, "fork failed")
}

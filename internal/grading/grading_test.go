package grading_test

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal/gatherer/respbuilder"
	"github.com/praclab/grader/internal/grading"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/sandbox"
)

func newDispatcher(t *testing.T) *grading.Dispatcher {
	t.Helper()
	root, err := os.MkdirTemp("", "grading_test*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(root) })

	sb, err := sandbox.New(root)
	require.NoError(t, err)
	return grading.NewDispatcher(sb, 2)
}

func luaReq(jobUuid, code, funcName string, tests []api.ReqTest) api.GradeRequest {
	return api.GradeRequest{
		JobUuid:  jobUuid,
		LangID:   "lua",
		Code:     code,
		FuncName: funcName,
		Tests:    tests,
	}
}

func reqTest(id int, args, expected string) api.ReqTest {
	return api.ReqTest{ID: id, Args: json.RawMessage(args), Expected: json.RawMessage(expected)}
}

const addLua = "function add(a, b)\n  return a + b\nend"

func TestGradeAllPassed(t *testing.T) {
	d := newDispatcher(t)

	req := luaReq("job-1", addLua, "add", []api.ReqTest{
		reqTest(1, `[2, 3]`, `5`),
		reqTest(2, `[-1, 1]`, `0`),
	})
	gath := respbuilder.New(req.JobUuid)
	report, err := d.Grade(context.Background(), req, gath)
	require.NoError(t, err)

	assert.Equal(t, api.StatusAllPassed, report.Status)
	require.Len(t, report.Verdicts, 2)
	assert.Equal(t, 1, report.Verdicts[0].TestID)
	assert.Equal(t, 2, report.Verdicts[1].TestID)
	for _, v := range report.Verdicts {
		assert.True(t, v.Passed)
		assert.Equal(t, api.ExitSuccess, v.ExitStatus)
	}

	// the builder gatherer assembles the same report
	assert.Equal(t, report.Status, gath.Report().Status)
	assert.Len(t, gath.Report().Verdicts, 2)
}

func TestGradePartial(t *testing.T) {
	d := newDispatcher(t)

	req := luaReq("job-2", addLua, "add", []api.ReqTest{
		reqTest(1, `[2, 3]`, `5`),
		reqTest(2, `[2, 3]`, `6`),
	})
	report, err := d.Grade(context.Background(), req, respbuilder.New(req.JobUuid))
	require.NoError(t, err)

	assert.Equal(t, api.StatusPartial, report.Status)
	require.Len(t, report.Verdicts, 2)
	assert.True(t, report.Verdicts[0].Passed)
	assert.False(t, report.Verdicts[1].Passed)
	assert.NotEmpty(t, report.Verdicts[1].Message)
}

func TestGradeRuntimeError(t *testing.T) {
	d := newDispatcher(t)

	req := luaReq("job-3", "function boom()\n  error(\"no\")\nend", "boom", []api.ReqTest{
		reqTest(1, `[]`, `1`),
		reqTest(2, `[]`, `2`),
	})
	report, err := d.Grade(context.Background(), req, respbuilder.New(req.JobUuid))
	require.NoError(t, err)

	assert.Equal(t, api.StatusRuntimeError, report.Status)
	require.Len(t, report.Verdicts, 2, "a crashing submission still yields one verdict per test")
	for _, v := range report.Verdicts {
		assert.False(t, v.Passed)
		assert.Equal(t, api.ExitCrash, v.ExitStatus)
	}
}

func TestGradeTypeMismatchFailsCase(t *testing.T) {
	d := newDispatcher(t)

	// returns a string where a number is expected
	req := luaReq("job-4", "function f()\n  return \"five\"\nend", "f", []api.ReqTest{
		reqTest(1, `[]`, `5`),
	})
	report, err := d.Grade(context.Background(), req, respbuilder.New(req.JobUuid))
	require.NoError(t, err)

	assert.Equal(t, api.StatusPartial, report.Status)
	require.Len(t, report.Verdicts, 1)
	assert.False(t, report.Verdicts[0].Passed)
	assert.Contains(t, report.Verdicts[0].Message, "expected int")
}

func TestGradeUnknownLanguage(t *testing.T) {
	d := newDispatcher(t)

	req := api.GradeRequest{JobUuid: "job-5", LangID: "brainfuck", Code: "+", FuncName: "f"}
	_, err := d.Grade(context.Background(), req, respbuilder.New(req.JobUuid))
	require.Error(t, err)
	assert.ErrorIs(t, err, langs.ErrUnsupportedLanguage)
}

func TestGradeMalformedArgs(t *testing.T) {
	d := newDispatcher(t)

	req := luaReq("job-6", addLua, "add", []api.ReqTest{
		reqTest(1, `{"not": "an array"}`, `5`),
	})
	_, err := d.Grade(context.Background(), req, respbuilder.New(req.JobUuid))
	assert.Error(t, err)
}

func TestGradeDuplicateJobRejected(t *testing.T) {
	d := newDispatcher(t)

	// a slow job holds its uuid while a duplicate arrives
	slow := luaReq("job-7", "function wait(n)\n  local s = 0\n  for i = 1, 40000000 do s = s + i end\n  return n\nend", "wait", []api.ReqTest{
		reqTest(1, `[1]`, `1`),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = d.Grade(context.Background(), slow, respbuilder.New(slow.JobUuid))
	}()

	// wait until the slow job registers its uuid
	require.Eventually(t, func() bool { return d.InFlight() > 0 }, 2*time.Second, 5*time.Millisecond)

	_, dupErr := d.Grade(context.Background(), slow, respbuilder.New(slow.JobUuid))
	wg.Wait()
	assert.ErrorIs(t, dupErr, grading.ErrJobInProgress)
}

func TestGradeConcurrentJobsIsolated(t *testing.T) {
	d := newDispatcher(t)

	var wg sync.WaitGroup
	reports := make([]*api.Report, 8)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := luaReq(
				"conc-"+string(rune('a'+i)),
				addLua, "add",
				[]api.ReqTest{reqTest(1, `[2, 3]`, `5`)},
			)
			r, err := d.Grade(context.Background(), req, respbuilder.New(req.JobUuid))
			if err == nil {
				reports[i] = r
			}
		}(i)
	}
	wg.Wait()

	for i, r := range reports {
		require.NotNil(t, r, "job %d", i)
		assert.Equal(t, api.StatusAllPassed, r.Status)
	}
}

func TestGradeCleansUpWorkspaces(t *testing.T) {
	root, err := os.MkdirTemp("", "grading_cleanup*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(root) })

	sb, err := sandbox.New(root)
	require.NoError(t, err)
	d := grading.NewDispatcher(sb, 1)

	req := luaReq("job-clean", addLua, "add", []api.ReqTest{reqTest(1, `[2, 3]`, `5`)})
	_, err = d.Grade(context.Background(), req, respbuilder.New(req.JobUuid))
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "no workspace artifacts may outlive the report")
}

func TestTraceThroughDispatcher(t *testing.T) {
	d := newDispatcher(t)

	req := api.TraceRequest{
		JobUuid:  "trace-1",
		LangID:   "lua",
		Code:     addLua,
		FuncName: "add",
		Args:     json.RawMessage(`[2, 3]`),
	}
	res, err := d.Trace(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "5", res.Return)
	assert.NotEmpty(t, res.Steps)
	assert.Empty(t, res.Error)
}

func TestTraceRejectsNonTracingLanguage(t *testing.T) {
	d := newDispatcher(t)

	req := api.TraceRequest{
		JobUuid:  "trace-2",
		LangID:   "python",
		Code:     "def f(): pass",
		FuncName: "f",
		Args:     json.RawMessage(`[]`),
	}
	_, err := d.Trace(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, langs.ErrUnsupportedLanguage)
}

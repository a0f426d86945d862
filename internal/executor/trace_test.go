package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/values"
)

const fibCode = `function fib(n)
  if n < 2 then
    return n
  end
  local a = 0
  local b = 1
  for i = 2, n do
    local t = a + b
    a = b
    b = t
  end
  return b
end`

func traceFib(t *testing.T, n int64, breakpoints []int, maxSteps int) *api.TraceResult {
	t.Helper()
	subm := internal.Submission{JobUuid: "trace-job", LangID: "lua", Code: fibCode, FuncName: "fib"}
	res, err := Trace(context.Background(), luaLang(t), subm, []values.Value{values.NewInt(n)}, breakpoints, maxSteps)
	require.NoError(t, err)
	return res
}

func TestTraceRecordsSteps(t *testing.T) {
	out := traceFib(t, 5, nil, 0)

	assert.Empty(t, out.Error)
	assert.Equal(t, "5", out.Return)
	assert.False(t, out.Truncated)
	require.NotEmpty(t, out.Steps)

	// every step carries its source line
	for _, s := range out.Steps {
		assert.Greater(t, s.Line, 0)
		assert.NotEmpty(t, s.Code)
	}
}

func TestTraceCapturesLocals(t *testing.T) {
	out := traceFib(t, 5, nil, 0)

	found := false
	for _, s := range out.Steps {
		if v, ok := s.Locals["b"]; ok && v == "1" {
			found = true
			break
		}
	}
	assert.True(t, found, "locals should show b = 1 at some step")
}

func TestTraceBreakpointsFilter(t *testing.T) {
	out := traceFib(t, 5, []int{9}, 0)

	require.NotEmpty(t, out.Steps)
	for _, s := range out.Steps {
		assert.Equal(t, 9, s.Line)
	}
}

func TestTraceTruncatesAtMaxSteps(t *testing.T) {
	out := traceFib(t, 50, nil, 10)

	assert.True(t, out.Truncated)
	assert.Len(t, out.Steps, 10)
	// execution still ran to completion
	assert.Equal(t, "12586269025", out.Return)
}

func TestTraceRuntimeErrorStillYieldsSteps(t *testing.T) {
	subm := internal.Submission{
		JobUuid:  "trace-err",
		LangID:   "lua",
		Code:     "function boom(n)\n  local x = n\n  error(\"bad\")\nend",
		FuncName: "boom",
	}
	res, err := Trace(context.Background(), luaLang(t), subm, []values.Value{values.NewInt(1)}, nil, 0)
	require.NoError(t, err)

	assert.Contains(t, res.Error, "bad")
	assert.NotEmpty(t, res.Steps)
}

func TestTraceRejectsNonTracingLanguage(t *testing.T) {
	subm := internal.Submission{JobUuid: "x", LangID: "python", Code: "def f(): pass", FuncName: "f"}
	lang, err := langs.Get("python")
	require.NoError(t, err)

	_, err = Trace(context.Background(), lang, subm, nil, nil, 0)
	assert.Error(t, err)
}

func TestInstrumentSourceFallsBackOnWeirdLayout(t *testing.T) {
	// second statement starts mid-line of a continued expression; the
	// splice would corrupt it, so instrumentation backs off entirely
	code := "local x = math.max(1,\n2) local y = 3\nfunction f() return 1 end"
	got := instrumentSource(code, []string{"local x = math.max(1,", "2) local y = 3", "function f() return 1 end"})
	assert.Equal(t, code, got)
}

func TestInstrumentSourceSplicesStatements(t *testing.T) {
	code := "local x = 1\nlocal y = 2"
	got := instrumentSource(code, []string{"local x = 1", "local y = 2"})
	assert.Contains(t, got, "__step(1); local x = 1")
	assert.Contains(t, got, "__step(2); local y = 2")
}

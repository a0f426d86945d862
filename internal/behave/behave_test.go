package behave_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal/behave"
)

const scenarioToml = `
[[scenarios]]
description = "lua add passes"

[[scenarios.request]]
lang_id = "lua"
func_name = "add"
code = """
function add(a, b)
  return a + b
end
"""

[[scenarios.request.tests]]
args = '[2, 3]'
expected = '5'

[[scenarios.request.tests]]
args = '[-1, 1]'
expected = '0'

[scenarios.expect]
status = "all_passed"

[[scenarios.expect.test_results]]
passed = true

[[scenarios.expect.test_results]]
passed = true
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenarios.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseScenarios(t *testing.T) {
	cases, err := behave.Parse(writeScenario(t, scenarioToml))
	require.NoError(t, err)
	require.Len(t, cases, 1)

	c := cases[0]
	assert.Equal(t, "lua add passes", c.Name)
	assert.Equal(t, "lua", c.Request.LangID)
	assert.Equal(t, "add", c.Request.FuncName)
	assert.NotEmpty(t, c.Request.JobUuid)
	require.Len(t, c.Request.Tests, 2)
	assert.Equal(t, 1, c.Request.Tests[0].ID)
	assert.Equal(t, `[2, 3]`, string(c.Request.Tests[0].Args))
	assert.Equal(t, "all_passed", c.Expect.Status)
	assert.Len(t, c.Expect.TestResults, 2)
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	bad := `
[[scenarios]]
description = "broken"

[[scenarios.request]]
lang_id = "lua"
func_name = "f"
code = "function f() end"

[[scenarios.request.tests]]
args = 'not json'
expected = '1'
`
	_, err := behave.Parse(writeScenario(t, bad))
	assert.Error(t, err)
}

func TestParseRejectsMissingRequest(t *testing.T) {
	bad := `
[[scenarios]]
description = "empty"
`
	_, err := behave.Parse(writeScenario(t, bad))
	assert.Error(t, err)
}

func TestCheckMatchingReport(t *testing.T) {
	report := &api.Report{
		Status: api.StatusAllPassed,
		Verdicts: []api.Verdict{
			{TestID: 1, Passed: true},
			{TestID: 2, Passed: true},
		},
	}
	expect := behave.SpecExpect{
		Status:      "all_passed",
		TestResults: []behave.SpecTestVerdict{{Passed: true}, {Passed: true}},
	}
	assert.Empty(t, behave.Check(report, expect))
}

func TestCheckReportsMismatches(t *testing.T) {
	report := &api.Report{
		Status: api.StatusPartial,
		Verdicts: []api.Verdict{
			{TestID: 1, Passed: true},
			{TestID: 2, Passed: false},
		},
	}
	expect := behave.SpecExpect{
		Status:      "all_passed",
		TestResults: []behave.SpecTestVerdict{{Passed: true}, {Passed: true}},
	}
	problems := behave.Check(report, expect)
	assert.Len(t, problems, 2)
}

func TestCheckVerdictCountMismatch(t *testing.T) {
	report := &api.Report{Status: api.StatusCompileError}
	expect := behave.SpecExpect{
		Status:      "compile_error",
		TestResults: []behave.SpecTestVerdict{{Passed: false}},
	}
	problems := behave.Check(report, expect)
	assert.Len(t, problems, 1)
}

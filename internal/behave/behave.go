// Package behave reads scenario files describing grading requests and
// the reports they must produce, used by cmd/behave to exercise the
// whole engine against real guest toolchains.
package behave

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/praclab/grader/api"
)

// SpecTest is a single test case in the scenario file. Args and
// Expected hold JSON text.
type SpecTest struct {
	Args     string `toml:"args"`
	Expected string `toml:"expected"`
}

// SpecRequest represents a request block inside a scenario entry
type SpecRequest struct {
	LangID   string     `toml:"lang_id"`
	FuncName string     `toml:"func_name"`
	Code     string     `toml:"code"`
	Tests    []SpecTest `toml:"tests"`
}

// SpecTestVerdict is the expected judgment for one test result
type SpecTestVerdict struct {
	Passed bool `toml:"passed"`
}

// SpecExpect describes the expected overall status and per-test verdicts
type SpecExpect struct {
	Status      string            `toml:"status"`
	TestResults []SpecTestVerdict `toml:"test_results"`
}

// specSuite maps to [[scenarios]] entries. The request is written as an
// array-of-table, so we model it as a slice and use the first element.
type specSuite struct {
	Description string        `toml:"description"`
	RequestAOT  []SpecRequest `toml:"request"`
	Expect      SpecExpect    `toml:"expect"`
}

type specRoot struct {
	Suites []specSuite `toml:"scenarios"`
}

// Case is a runnable scenario converted from TOML
type Case struct {
	Name    string
	Request api.GradeRequest
	Expect  SpecExpect
}

// Parse reads a scenario TOML file and converts it to runnable cases.
func Parse(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var root specRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cases := make([]Case, 0, len(root.Suites))
	for _, suite := range root.Suites {
		if len(suite.RequestAOT) == 0 {
			return nil, fmt.Errorf("scenario %q is missing a request block", suite.Description)
		}
		reqSpec := suite.RequestAOT[0]
		if reqSpec.LangID == "" || reqSpec.FuncName == "" || reqSpec.Code == "" {
			return nil, fmt.Errorf("scenario %q needs lang_id, func_name and code", suite.Description)
		}

		tests := make([]api.ReqTest, 0, len(reqSpec.Tests))
		for i, t := range reqSpec.Tests {
			if !json.Valid([]byte(t.Args)) {
				return nil, fmt.Errorf("scenario %q test %d: args is not valid json", suite.Description, i+1)
			}
			if !json.Valid([]byte(t.Expected)) {
				return nil, fmt.Errorf("scenario %q test %d: expected is not valid json", suite.Description, i+1)
			}
			tests = append(tests, api.ReqTest{
				ID:       i + 1,
				Args:     json.RawMessage(t.Args),
				Expected: json.RawMessage(t.Expected),
			})
		}

		cases = append(cases, Case{
			Name: suite.Description,
			Request: api.GradeRequest{
				JobUuid:  uuid.NewString(),
				LangID:   reqSpec.LangID,
				FuncName: reqSpec.FuncName,
				Code:     reqSpec.Code,
				Tests:    tests,
			},
			Expect: suite.Expect,
		})
	}

	return cases, nil
}

// Check compares a produced report against a scenario's expectations and
// returns one message per mismatch.
func Check(report *api.Report, expect SpecExpect) []string {
	var problems []string
	if expect.Status != "" && string(report.Status) != expect.Status {
		problems = append(problems, fmt.Sprintf("status: want %s, got %s", expect.Status, report.Status))
	}
	if len(expect.TestResults) > 0 {
		if len(report.Verdicts) != len(expect.TestResults) {
			problems = append(problems, fmt.Sprintf("verdict count: want %d, got %d", len(expect.TestResults), len(report.Verdicts)))
			return problems
		}
		for i, want := range expect.TestResults {
			got := report.Verdicts[i]
			if got.Passed != want.Passed {
				problems = append(problems, fmt.Sprintf("test %d: want passed=%v, got passed=%v (%s)", got.TestID, want.Passed, got.Passed, got.Message))
			}
		}
	}
	return problems
}

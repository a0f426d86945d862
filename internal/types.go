package internal

import (
	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal/values"
)

// TestCase is one decoded test case: positional arguments and the
// expected return value, both in the typed value model.
type TestCase struct {
	ID       int
	Args     []values.Value
	Expected values.Value
}

// Outcome is the raw result of running a submission against one test
// case, before comparison.
type Outcome struct {
	Stdout string
	Stderr string

	// Result is the parsed return value, when the run produced one.
	Result *values.Value

	Exit       api.ExitStatus
	WallMillis int64
}

// BuildResult is the outcome of a compile step.
type BuildResult struct {
	OK         bool
	Diagnostic string
	WallMillis int64
}

// Submission is one grading job: source code in a guest language plus
// the name of the function the tests call.
type Submission struct {
	JobUuid  string
	LangID   string
	Code     string
	FuncName string
}

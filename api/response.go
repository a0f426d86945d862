package api

// Status is the overall outcome of grading one submission.
type Status string

const (
	StatusAllPassed    Status = "all_passed"
	StatusPartial      Status = "partial"
	StatusCompileError Status = "compile_error"
	StatusRuntimeError Status = "runtime_error"

	// StatusInternalError marks an infrastructure failure (workspace or
	// process spawn), never a judgment of the submission. It is always
	// accompanied by an error message on the finish-job event.
	StatusInternalError Status = "internal_error"
)

// ExitStatus classifies how a single test-case process (or in-process
// evaluation) ended.
type ExitStatus string

const (
	ExitSuccess ExitStatus = "success"
	ExitNonZero ExitStatus = "non_zero"
	ExitTimeout ExitStatus = "timeout"
	ExitCrash   ExitStatus = "crash"
)

// Verdict is the judgment for one test case.
type Verdict struct {
	TestID int  `json:"test_id"`
	Passed bool `json:"passed"`

	Actual   string `json:"actual"`
	Expected string `json:"expected"`
	Message  string `json:"message,omitempty"`

	ExitStatus ExitStatus `json:"exit_status"`
	WallMillis int64      `json:"wall_ms"`
}

// Report is the terminal artifact of one grading job. Verdicts appear in
// test-case order; the sequence is empty only when Status is
// StatusCompileError.
type Report struct {
	JobUuid    string    `json:"job_uuid"`
	Status     Status    `json:"status"`
	Verdicts   []Verdict `json:"verdicts"`
	Diagnostic string    `json:"diagnostic,omitempty"`
}

// TraceStep is one recorded event of a traced execution.
type TraceStep struct {
	Line   int               `json:"line"`
	Code   string            `json:"code"`
	Locals map[string]string `json:"locals,omitempty"`
}

// TraceResult is the outcome of a TraceRequest.
type TraceResult struct {
	JobUuid   string      `json:"job_uuid"`
	Steps     []TraceStep `json:"steps"`
	Truncated bool        `json:"truncated"`
	Stdout    string      `json:"stdout"`
	Return    string      `json:"return,omitempty"`
	Error     string      `json:"error,omitempty"`
}

package api

import "encoding/json"

// GradeRequest is the single entry-point payload for grading one submission.
type GradeRequest struct {
	JobUuid string `json:"job_uuid"`

	LangID string `json:"lang_id"`
	Code   string `json:"code"`
	// FuncName is the name of the function the submission must define.
	FuncName string `json:"func_name"`

	Tests []ReqTest `json:"tests"`

	// ResSubject is an optional NATS subject to stream progress to.
	ResSubject string `json:"res_subject,omitempty"`
}

// ReqTest carries one test case. Args is a JSON array of positional
// arguments; Expected is the JSON encoding of the expected return value.
type ReqTest struct {
	ID       int             `json:"id"`
	Args     json.RawMessage `json:"args"`
	Expected json.RawMessage `json:"expected"`
}

// TraceRequest asks for a recorded step-by-step execution of a submission
// against a single set of arguments. Only languages whose runtime supports
// tracing accept it.
type TraceRequest struct {
	JobUuid string `json:"job_uuid"`

	LangID   string `json:"lang_id"`
	Code     string `json:"code"`
	FuncName string `json:"func_name"`

	Args json.RawMessage `json:"args"`

	// Breakpoints restricts recorded steps to the given 1-based source
	// lines. Empty means record every step.
	Breakpoints []int `json:"breakpoints,omitempty"`
	MaxSteps    int   `json:"max_steps,omitempty"`
}

package api

import "time"

// MsgType is a message type for streaming progress responses
type MsgType string

// Streaming message type constants
const (
	StartJobMsg    MsgType = "job_start"
	StartBuildMsg  MsgType = "build_start"
	FinishBuildMsg MsgType = "build_finish"
	ReachTestMsg   MsgType = "test_reach"
	FinishTestMsg  MsgType = "test_finish"
	FinishJobMsg   MsgType = "job_finish"
)

// Output size constraints for streaming
const (
	MaxRunDataHeight = 40
	MaxRunDataWidth  = 80
)

// Header is the common header for all streaming progress messages
type Header struct {
	JobUuid string  `json:"job_uuid"`
	MsgType MsgType `json:"msg_type"`
}

// RunData contains captured output of one build or test-case run
// (streaming version, trimmed)
type RunData struct {
	Stdout     string     `json:"out"`
	Stderr     string     `json:"err"`
	ExitStatus ExitStatus `json:"exit_status"`
	WallMillis int64      `json:"wall_ms"`
}

// StartJob message sent when grading begins
type StartJob struct {
	Header
	LangID      string `json:"lang_id"`
	NumTests    int    `json:"num_tests"`
	StartedTime string `json:"started_time"`
}

// StartBuild message sent when a compile step begins
type StartBuild struct {
	Header
}

// FinishBuild message sent when a compile step completes
type FinishBuild struct {
	Header
	RunData *RunData `json:"run_data"`
}

// ReachTest message sent when a test case is reached
type ReachTest struct {
	Header
	TestID int `json:"test_id"`
}

// FinishTest message sent when a test case has been judged
type FinishTest struct {
	Header
	Verdict Verdict  `json:"verdict"`
	RunData *RunData `json:"run_data"`
}

// FinishJob message sent when the whole grading job completes
type FinishJob struct {
	Header
	Status       Status  `json:"status"`
	ErrorMessage *string `json:"error_message"`
}

// Helper function to create a header
func NewHeader(jobUuid string, msgType MsgType) Header {
	return Header{
		JobUuid: jobUuid,
		MsgType: msgType,
	}
}

func NewStartJob(jobUuid, langID string, numTests int) StartJob {
	return StartJob{
		Header:      NewHeader(jobUuid, StartJobMsg),
		LangID:      langID,
		NumTests:    numTests,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewStartBuild(jobUuid string) StartBuild {
	return StartBuild{
		Header: NewHeader(jobUuid, StartBuildMsg),
	}
}

func NewFinishBuild(jobUuid string, runData *RunData) FinishBuild {
	return FinishBuild{
		Header:  NewHeader(jobUuid, FinishBuildMsg),
		RunData: runData,
	}
}

func NewReachTest(jobUuid string, testID int) ReachTest {
	return ReachTest{
		Header: NewHeader(jobUuid, ReachTestMsg),
		TestID: testID,
	}
}

func NewFinishTest(jobUuid string, verdict Verdict, runData *RunData) FinishTest {
	return FinishTest{
		Header:  NewHeader(jobUuid, FinishTestMsg),
		Verdict: verdict,
		RunData: runData,
	}
}

func NewFinishJob(jobUuid string, status Status, errorMessage *string) FinishJob {
	return FinishJob{
		Header:       NewHeader(jobUuid, FinishJobMsg),
		Status:       status,
		ErrorMessage: errorMessage,
	}
}

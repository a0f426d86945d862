// Package respbuilder gathers grading events into a complete api.Report,
// for callers that want the terminal artifact without streaming.
package respbuilder

import (
	"time"

	"github.com/praclab/grader/api"
)

// Builder accumulates progress events and assembles the final report.
type Builder struct {
	jobUuid string

	started  time.Time
	finished *time.Time

	buildData *api.RunData

	verdicts []api.Verdict

	status   api.Status
	errorMsg *string
}

func New(jobUuid string) *Builder {
	return &Builder{
		jobUuid: jobUuid,
		started: time.Now(),
	}
}

// StartJob implements internal.ResultGatherer.
func (b *Builder) StartJob(langID string, numTests int) {
	b.verdicts = make([]api.Verdict, 0, numTests)
}

// StartBuild implements internal.ResultGatherer.
func (b *Builder) StartBuild() {}

// FinishBuild implements internal.ResultGatherer.
func (b *Builder) FinishBuild(data *api.RunData) {
	b.buildData = data
}

// ReachTest implements internal.ResultGatherer.
func (b *Builder) ReachTest(testID int) {}

// FinishTest implements internal.ResultGatherer.
func (b *Builder) FinishTest(verdict api.Verdict, data *api.RunData) {
	b.verdicts = append(b.verdicts, verdict)
}

// FinishJob implements internal.ResultGatherer.
func (b *Builder) FinishJob(status api.Status, errMsg *string) {
	now := time.Now()
	b.finished = &now
	b.status = status
	b.errorMsg = errMsg
}

// Report assembles the terminal report from the gathered events.
func (b *Builder) Report() *api.Report {
	r := &api.Report{
		JobUuid:  b.jobUuid,
		Status:   b.status,
		Verdicts: b.verdicts,
	}
	if r.Status == api.StatusCompileError && b.buildData != nil {
		r.Diagnostic = b.buildData.Stderr
	}
	if b.errorMsg != nil {
		r.Diagnostic = *b.errorMsg
	}
	return r
}

// Elapsed returns how long the job took, or zero if it has not finished.
func (b *Builder) Elapsed() time.Duration {
	if b.finished == nil {
		return 0
	}
	return b.finished.Sub(b.started)
}

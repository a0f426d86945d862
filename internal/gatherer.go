package internal

import "github.com/praclab/grader/api"

// ResultGatherer receives grading progress as it happens. Implementations
// stream it to a queue, print it to a terminal, or drop it.
type ResultGatherer interface {
	StartJob(langID string, numTests int)

	StartBuild()
	FinishBuild(data *api.RunData)

	ReachTest(testID int)
	FinishTest(verdict api.Verdict, data *api.RunData)

	FinishJob(status api.Status, errMsg *string)
}

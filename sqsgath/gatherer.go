// Package sqsgath streams grading progress to an AWS SQS response
// queue, for deployments where the platform consumes results off SQS
// instead of NATS.
package sqsgath

import (
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/praclab/grader/api"
)

type sqsResQueueGatherer struct {
	sqsClient *sqs.Client
	queueUrl  string
	jobUuid   string
}

// StartJob implements internal.ResultGatherer.
func (s *sqsResQueueGatherer) StartJob(langID string, numTests int) {
	s.send(api.NewStartJob(s.jobUuid, langID, numTests))
}

// StartBuild implements internal.ResultGatherer.
func (s *sqsResQueueGatherer) StartBuild() {
	s.send(api.NewStartBuild(s.jobUuid))
}

// FinishBuild implements internal.ResultGatherer.
func (s *sqsResQueueGatherer) FinishBuild(data *api.RunData) {
	s.send(api.NewFinishBuild(s.jobUuid, trimRunData(data, api.MaxRunDataHeight, api.MaxRunDataWidth)))
}

// ReachTest implements internal.ResultGatherer.
func (s *sqsResQueueGatherer) ReachTest(testID int) {
	s.send(api.NewReachTest(s.jobUuid, testID))
}

// FinishTest implements internal.ResultGatherer.
func (s *sqsResQueueGatherer) FinishTest(verdict api.Verdict, data *api.RunData) {
	s.send(api.NewFinishTest(s.jobUuid, verdict, trimRunData(data, api.MaxRunDataHeight, api.MaxRunDataWidth)))
}

// FinishJob implements internal.ResultGatherer.
func (s *sqsResQueueGatherer) FinishJob(status api.Status, errMsg *string) {
	s.send(api.NewFinishJob(s.jobUuid, status, errMsg))
}

package natsgath

import (
	"github.com/nats-io/nats.go"

	"github.com/praclab/grader/api"
)

type natsGatherer struct {
	nc      *nats.Conn
	subject string
	jobUuid string
}

// StartJob implements internal.ResultGatherer.
func (s *natsGatherer) StartJob(langID string, numTests int) {
	s.send(api.NewStartJob(s.jobUuid, langID, numTests))
}

// StartBuild implements internal.ResultGatherer.
func (s *natsGatherer) StartBuild() {
	s.send(api.NewStartBuild(s.jobUuid))
}

// FinishBuild implements internal.ResultGatherer.
func (s *natsGatherer) FinishBuild(data *api.RunData) {
	s.send(api.NewFinishBuild(s.jobUuid, trimRunData(data, api.MaxRunDataHeight, api.MaxRunDataWidth)))
}

// ReachTest implements internal.ResultGatherer.
func (s *natsGatherer) ReachTest(testID int) {
	s.send(api.NewReachTest(s.jobUuid, testID))
}

// FinishTest implements internal.ResultGatherer.
func (s *natsGatherer) FinishTest(verdict api.Verdict, data *api.RunData) {
	s.send(api.NewFinishTest(s.jobUuid, verdict, trimRunData(data, api.MaxRunDataHeight, api.MaxRunDataWidth)))
}

// FinishJob implements internal.ResultGatherer.
func (s *natsGatherer) FinishJob(status api.Status, errMsg *string) {
	s.send(api.NewFinishJob(s.jobUuid, status, errMsg))
}

func trimRunData(data *api.RunData, ioHeight int, ioWidth int) *api.RunData {
	if data == nil {
		return nil
	}
	return &api.RunData{
		Stdout:     trimStrToRect(data.Stdout, ioHeight, ioWidth),
		Stderr:     trimStrToRect(data.Stderr, ioHeight, ioWidth),
		ExitStatus: data.ExitStatus,
		WallMillis: data.WallMillis,
	}
}

package natsgath

import (
	"github.com/nats-io/nats.go"
)

// New creates a NATS gatherer that streams progress messages for one
// job to the given response subject.
func New(nc *nats.Conn, jobUuid string, subject string) *natsGatherer {
	return &natsGatherer{
		nc:      nc,
		subject: subject,
		jobUuid: jobUuid,
	}
}

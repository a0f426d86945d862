package grading

import (
	"context"
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/semaphore"

	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal"
	"github.com/praclab/grader/internal/executor"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/sandbox"
	"github.com/praclab/grader/internal/values"
)

var ErrJobInProgress = errors.New("job uuid already in progress")

// Dispatcher is the single entry point for grading and tracing. It
// validates the language tag before any workspace or process exists,
// bounds how many jobs run at once, and guarantees each accepted job
// yields exactly one terminal report.
type Dispatcher struct {
	sb       *sandbox.Sandbox
	slots    *semaphore.Weighted
	inflight *xsync.MapOf[string, struct{}]
	cmp      values.Options
}

func NewDispatcher(sb *sandbox.Sandbox, maxConcurrent int) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Dispatcher{
		sb:       sb,
		slots:    semaphore.NewWeighted(int64(maxConcurrent)),
		inflight: xsync.NewMapOf[string, struct{}](),
		cmp:      values.DefaultOptions(),
	}
}

// Grade runs one grading job to completion, streaming progress through
// gath. Requests naming an unknown language or malformed test data are
// rejected before anything executes.
func (d *Dispatcher) Grade(ctx context.Context, req api.GradeRequest, gath internal.ResultGatherer) (*api.Report, error) {
	lang, err := langs.Get(req.LangID)
	if err != nil {
		return nil, err
	}
	cases, err := decodeTests(req.Tests)
	if err != nil {
		return nil, err
	}

	if _, loaded := d.inflight.LoadOrStore(req.JobUuid, struct{}{}); loaded {
		return nil, fmt.Errorf("%w: %s", ErrJobInProgress, req.JobUuid)
	}
	defer d.inflight.Delete(req.JobUuid)

	if err := d.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer d.slots.Release(1)

	subm := internal.Submission{
		JobUuid:  req.JobUuid,
		LangID:   req.LangID,
		Code:     req.Code,
		FuncName: req.FuncName,
	}
	return runJob(ctx, d.sb, lang, subm, cases, d.cmp, gath)
}

// Trace records a step-by-step execution for languages that support it.
func (d *Dispatcher) Trace(ctx context.Context, req api.TraceRequest) (*api.TraceResult, error) {
	lang, err := langs.Get(req.LangID)
	if err != nil {
		return nil, err
	}
	if !lang.SupportsTracing {
		return nil, fmt.Errorf("%w: %s does not support tracing", langs.ErrUnsupportedLanguage, req.LangID)
	}
	args, err := decodeArgs(req.Args)
	if err != nil {
		return nil, err
	}

	if err := d.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer d.slots.Release(1)

	subm := internal.Submission{
		JobUuid:  req.JobUuid,
		LangID:   req.LangID,
		Code:     req.Code,
		FuncName: req.FuncName,
	}
	return executor.Trace(ctx, lang, subm, args, req.Breakpoints, req.MaxSteps)
}

// InFlight reports how many jobs are currently being graded.
func (d *Dispatcher) InFlight() int {
	return d.inflight.Size()
}

func decodeTests(tests []api.ReqTest) ([]internal.TestCase, error) {
	cases := make([]internal.TestCase, 0, len(tests))
	for _, t := range tests {
		args, err := decodeArgs(t.Args)
		if err != nil {
			return nil, fmt.Errorf("test %d: %w", t.ID, err)
		}
		expected, err := values.FromJSON(t.Expected)
		if err != nil {
			return nil, fmt.Errorf("test %d: bad expected value: %w", t.ID, err)
		}
		cases = append(cases, internal.TestCase{ID: t.ID, Args: args, Expected: expected})
	}
	return cases, nil
}

func decodeArgs(raw []byte) ([]values.Value, error) {
	v, err := values.FromJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("bad argument list: %w", err)
	}
	if v.Kind() != values.Seq {
		return nil, fmt.Errorf("argument list must be a json array, got %s", v.Kind())
	}
	args := make([]values.Value, v.Len())
	for i := 0; i < v.Len(); i++ {
		args[i] = v.At(i)
	}
	return args, nil
}

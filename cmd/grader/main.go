// Command grader is the grading daemon. It consumes grading and trace
// requests from NATS (and optionally an SQS queue), runs them through
// the dispatcher, and streams progress back to the requester.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/lmittmann/tint"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal"
	"github.com/praclab/grader/internal/environment"
	"github.com/praclab/grader/internal/gatherer/natsgath"
	"github.com/praclab/grader/internal/gatherer/respbuilder"
	"github.com/praclab/grader/internal/grading"
	"github.com/praclab/grader/internal/sandbox"
	"github.com/praclab/grader/sqsgath"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	})))

	cfg := environment.ReadEnvConfig()

	cmd := &cli.Command{
		Name:  "grader",
		Usage: "code execution and grading daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "nats-url", Value: firstNonEmpty(cfg.NatsURL, nats.DefaultURL), Sources: cli.EnvVars("NATS_URL")},
			&cli.StringFlag{Name: "subject", Value: cfg.SubmSubject, Sources: cli.EnvVars("SUBM_SUBJECT")},
			&cli.StringFlag{Name: "workspace-root", Value: cfg.WorkspaceRoot, Sources: cli.EnvVars("WORKSPACE_ROOT")},
			&cli.IntFlag{Name: "max-concurrent", Value: cfg.MaxConcurrent, Sources: cli.EnvVars("MAX_CONCURRENT")},
			&cli.StringFlag{Name: "subm-sqs-url", Value: cfg.SubmSqsURL, Sources: cli.EnvVars("SUBM_SQS_URL")},
			&cli.StringFlag{Name: "response-sqs-url", Value: cfg.ResponseSqsURL, Sources: cli.EnvVars("RESPONSE_SQS_URL")},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("daemon exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sb, err := sandbox.New(cmd.String("workspace-root"))
	if err != nil {
		return err
	}
	d := grading.NewDispatcher(sb, int(cmd.Int("max-concurrent")))

	nc, err := nats.Connect(cmd.String("nats-url"), nats.Name("grader"))
	if err != nil {
		return err
	}
	defer nc.Drain()

	g, ctx := errgroup.WithContext(ctx)

	subj := cmd.String("subject")
	gradeSub, err := nc.QueueSubscribe(subj, "graders", func(msg *nats.Msg) {
		g.Go(func() error {
			handleGradeMsg(ctx, d, nc, msg)
			return nil
		})
	})
	if err != nil {
		return err
	}
	defer gradeSub.Unsubscribe()

	traceSub, err := nc.QueueSubscribe(subj+".trace", "graders", func(msg *nats.Msg) {
		g.Go(func() error {
			handleTraceMsg(ctx, d, msg)
			return nil
		})
	})
	if err != nil {
		return err
	}
	defer traceSub.Unsubscribe()

	slog.Info("listening on nats", "url", cmd.String("nats-url"), "subject", subj)

	if sqsURL := cmd.String("subm-sqs-url"); sqsURL != "" {
		respURL := cmd.String("response-sqs-url")
		g.Go(func() error {
			return pollSqs(ctx, d, sqsURL, respURL)
		})
		slog.Info("polling sqs", "queue", sqsURL)
	}

	<-ctx.Done()
	slog.Info("shutting down")
	return g.Wait()
}

func handleGradeMsg(ctx context.Context, d *grading.Dispatcher, nc *nats.Conn, msg *nats.Msg) {
	var req api.GradeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Error("bad grade request", "err", err)
		return
	}
	log := slog.With("job", req.JobUuid, "lang", req.LangID)
	log.Info("grading started", "tests", len(req.Tests))

	gath := pickGatherer(nc, req)
	report, err := d.Grade(ctx, req, gath)
	if err != nil {
		log.Error("grading failed", "err", err)
		if msg.Reply != "" {
			replyErr(msg, req.JobUuid, err)
		}
		return
	}
	log.Info("grading finished", "status", report.Status)
	if msg.Reply != "" {
		b, _ := json.Marshal(report)
		if err := msg.Respond(b); err != nil {
			log.Error("failed to send reply", "err", err)
		}
	}
}

func handleTraceMsg(ctx context.Context, d *grading.Dispatcher, msg *nats.Msg) {
	var req api.TraceRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Error("bad trace request", "err", err)
		return
	}
	log := slog.With("job", req.JobUuid, "lang", req.LangID)

	res, err := d.Trace(ctx, req)
	if err != nil {
		log.Error("trace failed", "err", err)
		if msg.Reply != "" {
			replyErr(msg, req.JobUuid, err)
		}
		return
	}
	log.Info("trace finished", "steps", len(res.Steps), "truncated", res.Truncated)
	if msg.Reply != "" {
		b, _ := json.Marshal(res)
		if err := msg.Respond(b); err != nil {
			log.Error("failed to send reply", "err", err)
		}
	}
}

// pickGatherer streams to the requested response subject when one is
// given, otherwise gathers quietly into a report builder.
func pickGatherer(nc *nats.Conn, req api.GradeRequest) internal.ResultGatherer {
	if req.ResSubject != "" {
		return natsgath.New(nc, req.JobUuid, req.ResSubject)
	}
	return respbuilder.New(req.JobUuid)
}

func replyErr(msg *nats.Msg, jobUuid string, err error) {
	e := err.Error()
	b, _ := json.Marshal(struct {
		JobUuid string `json:"job_uuid"`
		Error   string `json:"error"`
	}{JobUuid: jobUuid, Error: e})
	_ = msg.Respond(b)
}

// pollSqs consumes grading requests from an SQS queue, streaming each
// job's progress to the response queue.
func pollSqs(ctx context.Context, d *grading.Dispatcher, queueURL, responseURL string) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("eu-central-1"))
	if err != nil {
		return err
	}
	client := sqs.NewFromConfig(awsCfg)

	for {
		if ctx.Err() != nil {
			return nil
		}
		output, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     5,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("failed to receive sqs messages", "err", err)
			time.Sleep(time.Second)
			continue
		}

		for _, message := range output.Messages {
			var req api.GradeRequest
			if err := json.Unmarshal([]byte(*message.Body), &req); err != nil {
				slog.Error("bad sqs grade request", "err", err)
				continue
			}

			gath := sqsgath.NewSqsResponseQueueGatherer(req.JobUuid, responseURL)
			report, err := d.Grade(ctx, req, gath)
			if err != nil {
				slog.Error("grading failed", "job", req.JobUuid, "err", err)
				continue
			}
			slog.Info("grading finished", "job", req.JobUuid, "status", report.Status)

			_, err = client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(queueURL),
				ReceiptHandle: message.ReceiptHandle,
			})
			if err != nil {
				slog.Error("failed to delete sqs message", "err", err)
			}
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

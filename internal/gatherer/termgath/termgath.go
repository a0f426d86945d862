// Package termgath prints grading progress to the terminal, for local
// runs and the behave harness.
package termgath

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/praclab/grader/api"
)

type TerminalGatherer struct {
	StartedAt time.Time
}

func New() *TerminalGatherer { return &TerminalGatherer{StartedAt: time.Now()} }

var (
	passC = color.New(color.FgGreen)
	failC = color.New(color.FgRed)
	dimC  = color.New(color.Faint)
)

func (t *TerminalGatherer) StartJob(langID string, numTests int) {
	fmt.Printf("== Grading started: %s, %d tests ==\n", langID, numTests)
}

func (t *TerminalGatherer) StartBuild() {
	fmt.Println("-- Build started --")
}

func (t *TerminalGatherer) FinishBuild(data *api.RunData) {
	fmt.Println("-- Build finished --")
	if data != nil {
		dimC.Printf("exit=%s wall=%dms\n", data.ExitStatus, data.WallMillis)
		if data.Stderr != "" {
			fmt.Printf("stderr:\n%s\n", data.Stderr)
		}
	}
}

func (t *TerminalGatherer) ReachTest(testID int) {
	fmt.Printf("-> Test %d reached\n", testID)
}

func (t *TerminalGatherer) FinishTest(verdict api.Verdict, data *api.RunData) {
	if verdict.Passed {
		passC.Printf("<- Test %d passed", verdict.TestID)
	} else {
		failC.Printf("<- Test %d failed", verdict.TestID)
	}
	dimC.Printf(" (%s, %dms)\n", verdict.ExitStatus, verdict.WallMillis)
	if !verdict.Passed {
		fmt.Printf("   expected: %s\n", verdict.Expected)
		if verdict.Actual != "" {
			fmt.Printf("   actual:   %s\n", verdict.Actual)
		}
		if verdict.Message != "" {
			fmt.Printf("   %s\n", verdict.Message)
		}
	}
}

func (t *TerminalGatherer) FinishJob(status api.Status, errMsg *string) {
	dur := time.Since(t.StartedAt).Round(time.Millisecond)
	if errMsg != nil {
		failC.Printf("== Grading failed: %s ==\n", *errMsg)
		return
	}
	switch status {
	case api.StatusAllPassed:
		passC.Printf("== %s in %s ==\n", status, dur)
	default:
		failC.Printf("== %s in %s ==\n", status, dur)
	}
}

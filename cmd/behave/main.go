// Command behave runs grading scenarios from a TOML file against the
// real engine and toolchains, checking each produced report against the
// scenario's expectations.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/praclab/grader/internal/behave"
	"github.com/praclab/grader/internal/gatherer/termgath"
	"github.com/praclab/grader/internal/grading"
	"github.com/praclab/grader/internal/sandbox"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <scenarios.toml>\n", os.Args[0])
		os.Exit(2)
	}

	cases, err := behave.Parse(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	sb, err := sandbox.New("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	d := grading.NewDispatcher(sb, 1)

	ctx := context.Background()
	failed := 0
	for _, c := range cases {
		fmt.Printf("\n### %s\n", c.Name)
		report, err := d.Grade(ctx, c.Request, termgath.New())
		if err != nil {
			color.Red("scenario errored: %v", err)
			failed++
			continue
		}
		problems := behave.Check(report, c.Expect)
		if len(problems) == 0 {
			color.Green("scenario ok")
			continue
		}
		failed++
		for _, p := range problems {
			color.Red("mismatch: %s", p)
		}
	}

	fmt.Println()
	if failed > 0 {
		color.Red("%d of %d scenarios failed", failed, len(cases))
		os.Exit(1)
	}
	color.Green("all %d scenarios passed", len(cases))
}

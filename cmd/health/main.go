// Command health checks that every registered guest language can grade
// a trivial submission on this host, which verifies the interpreter and
// compiler toolchains are installed and reachable.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal/gatherer/respbuilder"
	"github.com/praclab/grader/internal/grading"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/sandbox"
)

var helloCode = map[string]string{
	"lua":        "function add(a, b)\n  return a + b\nend",
	"python":     "def add(a, b):\n    return a + b",
	"javascript": "function add(a, b) { return a + b; }",
	"cpp":        "int add(int a, int b) { return a + b; }",
	"java":       "class Solution {\n    int add(int a, int b) { return a + b; }\n}",
}

func main() {
	sb, err := sandbox.New("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	d := grading.NewDispatcher(sb, 1)

	ids := langs.IDs()
	sort.Strings(ids)

	ctx := context.Background()
	broken := 0
	for _, id := range ids {
		code, ok := helloCode[id]
		if !ok {
			color.Yellow("%-12s SKIP  no probe submission", id)
			continue
		}
		req := api.GradeRequest{
			JobUuid:  uuid.NewString(),
			LangID:   id,
			Code:     code,
			FuncName: "add",
			Tests: []api.ReqTest{
				{ID: 1, Args: json.RawMessage(`[2, 3]`), Expected: json.RawMessage(`5`)},
			},
		}
		gath := respbuilder.New(req.JobUuid)
		report, err := d.Grade(ctx, req, gath)
		switch {
		case err != nil:
			color.Red("%-12s ERROR %v", id, err)
			broken++
		case report.Status == api.StatusAllPassed:
			color.Green("%-12s OKAY  %s", id, report.Status)
		default:
			msg := report.Diagnostic
			if msg == "" && len(report.Verdicts) > 0 {
				msg = report.Verdicts[0].Message
			}
			color.Red("%-12s ERROR %s: %s", id, report.Status, msg)
			broken++
		}
	}

	if broken > 0 {
		os.Exit(1)
	}
}

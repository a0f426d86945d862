package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/praclab/grader/internal"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/sandbox"
	"github.com/praclab/grader/internal/values"
)

// interpExecutor runs interpreted guests (python, javascript) as child
// processes. There is no build step; each test case gets the submission
// with a freshly generated harness appended, calling the target
// function with that case's arguments and printing the result line.
type interpExecutor struct {
	lang langs.Language
	subm internal.Submission
}

func newInterpExecutor(lang langs.Language, subm internal.Submission) *interpExecutor {
	return &interpExecutor{lang: lang, subm: subm}
}

func (e *interpExecutor) Build(ctx context.Context, ws *sandbox.Workspace) (*internal.BuildResult, error) {
	return &internal.BuildResult{OK: true}, nil
}

func (e *interpExecutor) Execute(ctx context.Context, ws *sandbox.Workspace, tc internal.TestCase) (*internal.Outcome, error) {
	src, err := renderInterpHarness(e.lang.ID, e.subm.Code, e.subm.FuncName, tc.Args)
	if err != nil {
		return nil, err
	}
	if err := ws.WriteFile(e.lang.SourceFname, []byte(src)); err != nil {
		return nil, err
	}
	argv, err := e.lang.RunArgv()
	if err != nil {
		return nil, err
	}
	res, err := ws.Run(ctx, argv, "", e.lang.RunTimeout)
	if err != nil {
		return nil, err
	}
	return outcomeFromRun(res), nil
}

func renderInterpHarness(langID, code, funcName string, args []values.Value) (string, error) {
	argsJSON, err := argsToJSON(args)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(code)
	b.WriteString("\n\n")
	switch langID {
	case "python":
		b.WriteString("import json as _json\n")
		b.WriteString("_args = _json.loads(" + pyStringLit(argsJSON) + ")\n")
		b.WriteString("_res = " + funcName + "(*_args)\n")
		b.WriteString(`print("RESULT:" + _json.dumps(_res))` + "\n")
	case "javascript":
		b.WriteString("const __args = " + argsJSON + ";\n")
		b.WriteString("const __res = " + funcName + "(...__args);\n")
		b.WriteString(`console.log("RESULT:" + JSON.stringify(__res));` + "\n")
	default:
		return "", fmt.Errorf("no interpreter harness for language %q", langID)
	}
	return b.String(), nil
}

// argsToJSON renders the argument list as one JSON array.
func argsToJSON(args []values.Value) (string, error) {
	anys := make([]any, len(args))
	for i, a := range args {
		anys[i] = a.ToAny()
	}
	b, err := json.Marshal(anys)
	if err != nil {
		return "", fmt.Errorf("failed to encode arguments: %w", err)
	}
	return string(b), nil
}

// pyStringLit quotes s as a python string literal. Go's quoting rules
// (\", \\, \n, \uXXXX) are a subset of python's, so strconv.Quote output
// is reused directly.
func pyStringLit(s string) string {
	return strconv.Quote(s)
}

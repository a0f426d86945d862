package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"

	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/values"
)

const (
	// DefaultMaxTraceSteps bounds a trace when the request does not.
	DefaultMaxTraceSteps = 500

	// maxLocalRepr caps the rendered length of a single local variable.
	maxLocalRepr = 200
)

// Trace evaluates a lua submission with statement-level instrumentation
// and records one step per executed statement line: line number, source
// text, and a snapshot of the local variables in scope. Breakpoints, if
// given, restrict which lines are recorded; execution always runs to
// completion (or deadline) regardless.
func Trace(ctx context.Context, lang langs.Language, subm internal.Submission, args []values.Value, breakpoints []int, maxSteps int) (*api.TraceResult, error) {
	if !lang.SupportsTracing {
		return nil, fmt.Errorf("language %s does not support tracing", lang.ID)
	}
	if maxSteps <= 0 || maxSteps > DefaultMaxTraceSteps {
		maxSteps = DefaultMaxTraceSteps
	}

	srcLines := strings.Split(subm.Code, "\n")
	code := instrumentSource(subm.Code, srcLines)

	rec := &stepRecorder{
		srcLines:    srcLines,
		breakpoints: mapset.NewSet(breakpoints...),
		maxSteps:    maxSteps,
	}

	type evalDone struct {
		result *values.Value
		stdout string
		err    error
	}
	evalCtx, cancel := context.WithTimeout(ctx, lang.RunTimeout)
	defer cancel()

	ch := make(chan evalDone, 1)
	go func() {
		r, out, err := runTracedLua(evalCtx, code, subm.FuncName, args, rec)
		ch <- evalDone{result: r, stdout: out, err: err}
	}()

	res := &api.TraceResult{JobUuid: subm.JobUuid}
	select {
	case d := <-ch:
		res.Stdout = d.stdout
		switch {
		case d.err == nil:
			if d.result != nil {
				res.Return = d.result.String()
			}
		case evalCtx.Err() == context.DeadlineExceeded:
			res.Error = "time limit exceeded"
		default:
			res.Error = d.err.Error()
		}
	case <-time.After(lang.RunTimeout + luaGrace):
		res.Error = "time limit exceeded"
	}
	res.Steps, res.Truncated = rec.snapshot()
	return res, nil
}

func runTracedLua(ctx context.Context, code, funcName string, args []values.Value, rec *stepRecorder) (*values.Value, string, error) {
	L := newGuestState()
	defer L.Close()
	L.SetContext(ctx)

	var stdout strings.Builder
	installPrint(L, &stdout)
	rec.install(L)

	if err := L.DoString(code); err != nil {
		return nil, stdout.String(), err
	}
	fn := L.GetGlobal(funcName)
	if fn == lua.LNil {
		return nil, stdout.String(), fmt.Errorf("function %q is not defined", funcName)
	}
	L.Push(fn)
	for _, a := range args {
		L.Push(toLua(L, a))
	}
	if err := L.PCall(len(args), 1, nil); err != nil {
		return nil, stdout.String(), err
	}
	ret := fromLua(L.Get(-1))
	L.Pop(1)
	return &ret, stdout.String(), nil
}

// stepRecorder collects trace steps from inside the lua vm. The trace
// goroutine may be abandoned on timeout, so all access is locked.
type stepRecorder struct {
	srcLines    []string
	breakpoints mapset.Set[int]
	maxSteps    int

	mu        sync.Mutex
	steps     []api.TraceStep
	truncated bool
}

// install registers the __step callback the instrumented source calls
// at each statement line.
func (r *stepRecorder) install(L *lua.LState) {
	L.SetGlobal("__step", L.NewFunction(func(L *lua.LState) int {
		line := int(L.CheckNumber(1))
		if r.breakpoints.Cardinality() > 0 && !r.breakpoints.Contains(line) {
			return 0
		}

		r.mu.Lock()
		if r.truncated || len(r.steps) >= r.maxSteps {
			r.truncated = true
			r.mu.Unlock()
			return 0
		}
		r.mu.Unlock()

		locals := captureLocals(L)
		codeLine := ""
		if line >= 1 && line <= len(r.srcLines) {
			codeLine = strings.TrimSpace(r.srcLines[line-1])
		}

		r.mu.Lock()
		r.steps = append(r.steps, api.TraceStep{Line: line, Code: codeLine, Locals: locals})
		r.mu.Unlock()
		return 0
	}))
}

func (r *stepRecorder) snapshot() ([]api.TraceStep, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.TraceStep, len(r.steps))
	copy(out, r.steps)
	return out, r.truncated
}

// captureLocals snapshots the named locals of the lua frame that called
// __step. Internal temporaries carry parenthesised names and are skipped.
func captureLocals(L *lua.LState) map[string]string {
	dbg, ok := L.GetStack(1)
	if !ok {
		return nil
	}
	locals := map[string]string{}
	for i := 1; ; i++ {
		name, val := L.GetLocal(dbg, i)
		if name == "" {
			break
		}
		if strings.HasPrefix(name, "(") {
			continue
		}
		locals[name] = truncRepr(val.String())
	}
	if len(locals) == 0 {
		return nil
	}
	return locals
}

func truncRepr(s string) string {
	if len(s) > maxLocalRepr {
		return s[:maxLocalRepr] + "..."
	}
	return s
}

// instrumentSource splices a __step(line) call in front of every source
// line that starts a statement. If the spliced source no longer parses
// (statements beginning mid-line can break the splice), the original
// source is returned and the trace records no steps.
func instrumentSource(code string, srcLines []string) string {
	stmtLines, err := statementLines(code)
	if err != nil {
		return code
	}

	out := make([]string, len(srcLines))
	copy(out, srcLines)
	for i := range out {
		n := i + 1
		if !stmtLines.Contains(n) {
			continue
		}
		trimmed := strings.TrimSpace(out[i])
		if trimmed == "" || startsWithBlockToken(trimmed) {
			continue
		}
		out[i] = fmt.Sprintf("__step(%d); %s", n, out[i])
	}
	instrumented := strings.Join(out, "\n")
	if _, err := parse.Parse(strings.NewReader(instrumented), "solution.lua"); err != nil {
		return code
	}
	return instrumented
}

// startsWithBlockToken reports whether the line begins with a block
// keyword that cannot be preceded by a statement.
func startsWithBlockToken(trimmed string) bool {
	for _, kw := range []string{"else", "elseif", "end", "until", "then", "do"} {
		if trimmed == kw || strings.HasPrefix(trimmed, kw+" ") {
			return true
		}
	}
	return false
}

// statementLines parses the source and collects the starting line of
// every statement, descending into nested blocks and function bodies.
func statementLines(code string) (mapset.Set[int], error) {
	chunk, err := parse.Parse(strings.NewReader(code), "solution.lua")
	if err != nil {
		return nil, err
	}
	set := mapset.NewSet[int]()
	collectStmtLines(chunk, set)
	return set, nil
}

func collectStmtLines(stmts []ast.Stmt, set mapset.Set[int]) {
	for _, st := range stmts {
		set.Add(st.Line())
		switch s := st.(type) {
		case *ast.AssignStmt:
			collectFuncExprLines(s.Rhs, set)
		case *ast.LocalAssignStmt:
			collectFuncExprLines(s.Exprs, set)
		case *ast.DoBlockStmt:
			collectStmtLines(s.Stmts, set)
		case *ast.WhileStmt:
			collectStmtLines(s.Stmts, set)
		case *ast.RepeatStmt:
			collectStmtLines(s.Stmts, set)
		case *ast.IfStmt:
			collectStmtLines(s.Then, set)
			collectStmtLines(s.Else, set)
		case *ast.NumberForStmt:
			collectStmtLines(s.Stmts, set)
		case *ast.GenericForStmt:
			collectStmtLines(s.Stmts, set)
		case *ast.FuncDefStmt:
			collectStmtLines(s.Func.Stmts, set)
		}
	}
}

func collectFuncExprLines(exprs []ast.Expr, set mapset.Set[int]) {
	for _, ex := range exprs {
		if fe, ok := ex.(*ast.FunctionExpr); ok {
			collectStmtLines(fe.Stmts, set)
		}
	}
}

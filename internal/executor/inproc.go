package executor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/praclab/grader/api"
	"github.com/praclab/grader/internal"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/sandbox"
	"github.com/praclab/grader/internal/values"
)

// luaExecutor evaluates submissions inside this process on a fresh,
// single-use lua state per test case. The state gets a whitelisted
// library set (no io, no os) and a context deadline, so a runaway
// submission is interrupted between vm instructions.
type luaExecutor struct {
	lang langs.Language
	subm internal.Submission
}

func newLuaExecutor(lang langs.Language, subm internal.Submission) *luaExecutor {
	return &luaExecutor{lang: lang, subm: subm}
}

func (e *luaExecutor) Build(ctx context.Context, ws *sandbox.Workspace) (*internal.BuildResult, error) {
	return &internal.BuildResult{OK: true}, nil
}

// luaGrace is how long past the vm deadline we wait before abandoning
// the evaluation goroutine. The context interrupt fires between vm
// instructions, so this only triggers if the vm is stuck inside a
// builtin.
const luaGrace = 500 * time.Millisecond

func (e *luaExecutor) Execute(ctx context.Context, ws *sandbox.Workspace, tc internal.TestCase) (*internal.Outcome, error) {
	type evalDone struct {
		result *values.Value
		stdout string
		err    error
	}

	evalCtx, cancel := context.WithTimeout(ctx, e.lang.RunTimeout)
	defer cancel()

	start := time.Now()
	ch := make(chan evalDone, 1)
	go func() {
		r, out, err := runLua(evalCtx, e.subm.Code, e.subm.FuncName, tc.Args)
		ch <- evalDone{result: r, stdout: out, err: err}
	}()

	out := &internal.Outcome{}
	select {
	case d := <-ch:
		out.Stdout = d.stdout
		switch {
		case d.err == nil:
			out.Exit = api.ExitSuccess
			out.Result = d.result
		case evalCtx.Err() == context.DeadlineExceeded:
			out.Exit = api.ExitTimeout
		default:
			out.Exit = api.ExitCrash
			out.Stderr = d.err.Error()
		}
	case <-time.After(e.lang.RunTimeout + luaGrace):
		// the state is abandoned along with its goroutine
		out.Exit = api.ExitTimeout
	}
	out.WallMillis = time.Since(start).Milliseconds()
	return out, nil
}

func runLua(ctx context.Context, code, funcName string, args []values.Value) (*values.Value, string, error) {
	L := newGuestState()
	defer L.Close()
	L.SetContext(ctx)

	var stdout strings.Builder
	installPrint(L, &stdout)

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

// newGuestState builds a lua state with only the safe standard
// libraries loaded. io and os stay out.
func newGuestState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	return L
}

// installPrint redirects the guest's print into a capture buffer.
func installPrint(L *lua.LState, sink *strings.Builder) {
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		for i := 1; i <= top; i++ {
			if i > 1 {
				sink.WriteByte('\t')
			}
			sink.WriteString(L.ToStringMeta(L.Get(i)).String())
		}
		sink.WriteByte('\n')
		return 0
	}))
}

func toLua(L *lua.LState, v values.Value) lua.LValue {
	switch v.Kind() {
	case values.Null:
		return lua.LNil
	case values.Bool:
		return lua.LBool(v.ToAny().(bool))
	case values.Int:
		return lua.LNumber(v.ToAny().(int64))
	case values.Float:
		return lua.LNumber(v.AsFloat())
	case values.Str:
		return lua.LString(v.ToAny().(string))
	case values.Seq:
		tbl := L.NewTable()
		for i := 0; i < v.Len(); i++ {
			tbl.Append(toLua(L, v.At(i)))
		}
		return tbl
	}
	return lua.LNil
}

func fromLua(lv lua.LValue) values.Value {
	switch t := lv.(type) {
	case *lua.LNilType:
		return values.Nil()
	case lua.LBool:
		return values.NewBool(bool(t))
	case lua.LNumber:
		f := float64(t)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return values.NewInt(int64(f))
		}
		return values.NewFloat(f)
	case lua.LString:
		return values.NewStr(string(t))
	case *lua.LTable:
		n := t.Len()
		seq := make([]values.Value, 0, n)
		for i := 1; i <= n; i++ {
			seq = append(seq, fromLua(t.RawGetInt(i)))
		}
		return values.NewSeq(seq)
	default:
		return values.NewStr(lv.String())
	}
}

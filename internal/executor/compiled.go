package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/praclab/grader/internal"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/sandbox"
	"github.com/praclab/grader/internal/values"
)

// compiledExecutor builds the submission once and re-invokes the
// artifact for every test case. The generated harness embeds all cases
// and dispatches on an argv index, so the toolchain cost is paid a
// single time per submission.
type compiledExecutor struct {
	lang    langs.Language
	subm    internal.Submission
	source  string
	caseIdx map[int]int
}

func newCompiledExecutor(lang langs.Language, subm internal.Submission, cases []internal.TestCase) (*compiledExecutor, error) {
	var src string
	var err error
	switch lang.ID {
	case "cpp":
		src, err = renderCppHarness(subm.Code, subm.FuncName, cases)
	case "java":
		src, err = renderJavaHarness(subm.Code, subm.FuncName, cases)
	default:
		err = fmt.Errorf("no compiled harness for language %q", lang.ID)
	}
	if err != nil {
		return nil, err
	}
	idx := make(map[int]int, len(cases))
	for i, tc := range cases {
		idx[tc.ID] = i
	}
	return &compiledExecutor{lang: lang, subm: subm, source: src, caseIdx: idx}, nil
}

func (e *compiledExecutor) Build(ctx context.Context, ws *sandbox.Workspace) (*internal.BuildResult, error) {
	if err := ws.WriteFile(e.lang.SourceFname, []byte(e.source)); err != nil {
		return nil, err
	}
	argv, err := e.lang.CompileArgv()
	if err != nil {
		return nil, err
	}
	res, err := ws.Run(ctx, argv, "", e.lang.BuildTimeout)
	if err != nil {
		return nil, err
	}
	if res.TimedOut || res.Crashed || res.ExitCode != 0 {
		return buildFailure(res), nil
	}
	if e.lang.CompiledFname != nil && !ws.HasFile(*e.lang.CompiledFname) {
		return &internal.BuildResult{
			OK:         false,
			Diagnostic: fmt.Sprintf("compiler exited cleanly but produced no %s", *e.lang.CompiledFname),
			WallMillis: res.WallMillis,
		}, nil
	}
	return &internal.BuildResult{OK: true, WallMillis: res.WallMillis}, nil
}

func (e *compiledExecutor) Execute(ctx context.Context, ws *sandbox.Workspace, tc internal.TestCase) (*internal.Outcome, error) {
	idx, ok := e.caseIdx[tc.ID]
	if !ok {
		return nil, fmt.Errorf("test case %d was not embedded in the harness", tc.ID)
	}
	argv, err := e.lang.RunArgv()
	if err != nil {
		return nil, err
	}
	argv = append(argv, strconv.Itoa(idx))
	res, err := ws.Run(ctx, argv, "", e.lang.RunTimeout)
	if err != nil {
		return nil, err
	}
	return outcomeFromRun(res), nil
}

// --- c++ harness ---

func renderCppHarness(code, funcName string, cases []internal.TestCase) (string, error) {
	var b strings.Builder
	b.WriteString("#include <iostream>\n")
	b.WriteString("#include <string>\n")
	b.WriteString("#include <vector>\n")
	b.WriteString("#include <algorithm>\n")
	b.WriteString("#include <unordered_map>\n")
	b.WriteString("#include <cstdio>\n")
	b.WriteString("#include <cstdlib>\n")
	b.WriteString("using namespace std;\n\n")
	b.WriteString(code)
	b.WriteString("\n\n")

	b.WriteString("template <class T> void __emit(const T& v);\n")
	b.WriteString("void __emit(bool v);\n")
	b.WriteString("void __emit(double v);\n")
	b.WriteString("void __emit(const string& v);\n")
	b.WriteString("template <class T> void __emit(const vector<T>& v);\n\n")
	b.WriteString("template <class T> void __emit(const T& v) { cout << v; }\n")
	b.WriteString("void __emit(bool v) { cout << (v ? \"true\" : \"false\"); }\n")
	b.WriteString("void __emit(double v) { char b[64]; snprintf(b, sizeof b, \"%.10g\", v); cout << b; }\n")
	b.WriteString("void __emit(const string& v) { cout << v; }\n")
	b.WriteString("template <class T> void __emit(const vector<T>& v) {\n")
	b.WriteString("    cout << '[';\n")
	b.WriteString("    for (size_t i = 0; i < v.size(); ++i) { if (i) cout << ','; __emit(v[i]); }\n")
	b.WriteString("    cout << ']';\n")
	b.WriteString("}\n\n")

	b.WriteString("int main(int argc, char** argv) {\n")
	b.WriteString("    int __case = argc > 1 ? atoi(argv[1]) : 0;\n")
	b.WriteString("    switch (__case) {\n")
	for i, tc := range cases {
		fmt.Fprintf(&b, "    case %d: {\n", i)
		names := make([]string, len(tc.Args))
		for j, arg := range tc.Args {
			typ, err := cppType(arg)
			if err != nil {
				return "", fmt.Errorf("case %d argument %d: %w", tc.ID, j, err)
			}
			lit, err := cppLit(arg)
			if err != nil {
				return "", fmt.Errorf("case %d argument %d: %w", tc.ID, j, err)
			}
			names[j] = fmt.Sprintf("__a%d", j)
			fmt.Fprintf(&b, "        %s %s = %s;\n", typ, names[j], lit)
		}
		fmt.Fprintf(&b, "        auto __res = %s(%s);\n", funcName, strings.Join(names, ", "))
		b.WriteString("        cout << \"RESULT:\"; __emit(__res); cout << \"\\n\";\n")
		b.WriteString("        break;\n")
		b.WriteString("    }\n")
	}
	b.WriteString("    default:\n")
	b.WriteString("        cerr << \"unknown case index \" << __case << \"\\n\";\n")
	b.WriteString("        return 2;\n")
	b.WriteString("    }\n")
	b.WriteString("    return 0;\n")
	b.WriteString("}\n")
	return b.String(), nil
}

func cppType(v values.Value) (string, error) {
	switch v.Kind() {
	case values.Int:
		if exceedsInt32(v.ToAny().(int64)) {
			return "long long", nil
		}
		return "int", nil
	case values.Float:
		return "double", nil
	case values.Bool:
		return "bool", nil
	case values.Str:
		return "string", nil
	case values.Seq:
		elem, err := cppType(seqElemProto(v))
		if err != nil {
			return "", err
		}
		return "vector<" + elem + ">", nil
	}
	return "", fmt.Errorf("cannot pass a %s argument to c++", v.Kind())
}

func cppLit(v values.Value) (string, error) {
	switch v.Kind() {
	case values.Int:
		return strconv.FormatInt(v.ToAny().(int64), 10), nil
	case values.Float:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64), nil
	case values.Bool:
		return strconv.FormatBool(v.ToAny().(bool)), nil
	case values.Str:
		return stringLit(v.ToAny().(string)), nil
	case values.Seq:
		elems := make([]string, v.Len())
		for i := 0; i < v.Len(); i++ {
			lit, err := cppLit(v.At(i))
			if err != nil {
				return "", err
			}
			elems[i] = lit
		}
		return "{" + strings.Join(elems, ", ") + "}", nil
	}
	return "", fmt.Errorf("cannot pass a %s argument to c++", v.Kind())
}

// seqElemProto picks a representative element for a sequence's type. An
// empty sequence defaults to int; a mix of ints and floats widens to
// float, and an element past 32 bits widens an int sequence to the
// 64-bit type.
func seqElemProto(v values.Value) values.Value {
	if v.Len() == 0 {
		return values.NewInt(0)
	}
	proto := v.At(0)
	for i := 1; i < v.Len(); i++ {
		e := v.At(i)
		if proto.Kind() != values.Int {
			continue
		}
		switch {
		case e.Kind() == values.Float:
			proto = e
		case e.Kind() == values.Int && exceedsInt32(e.ToAny().(int64)):
			proto = e
		}
	}
	return proto
}

func exceedsInt32(i int64) bool {
	return i > 1<<31-1 || i < -(1<<31)
}

// --- java harness ---

func renderJavaHarness(code, funcName string, cases []internal.TestCase) (string, error) {
	// Only one public class may live in TestRunner.java, so the
	// submission's class loses its modifier.
	code = strings.Replace(code, "public class", "class", 1)

	var b strings.Builder
	b.WriteString("import java.util.*;\n\n")
	b.WriteString(code)
	b.WriteString("\n\n")
	b.WriteString("public class TestRunner {\n")
	b.WriteString("    static String render(Object v) {\n")
	b.WriteString("        if (v == null) return \"null\";\n")
	b.WriteString("        if (v instanceof int[]) return Arrays.toString((int[]) v).replace(\" \", \"\");\n")
	b.WriteString("        if (v instanceof long[]) return Arrays.toString((long[]) v).replace(\" \", \"\");\n")
	b.WriteString("        if (v instanceof double[]) return Arrays.toString((double[]) v).replace(\" \", \"\");\n")
	b.WriteString("        if (v instanceof boolean[]) return Arrays.toString((boolean[]) v).replace(\" \", \"\");\n")
	b.WriteString("        if (v instanceof Object[]) return Arrays.deepToString((Object[]) v).replace(\" \", \"\");\n")
	b.WriteString("        if (v instanceof List) {\n")
	b.WriteString("            StringBuilder sb = new StringBuilder(\"[\");\n")
	b.WriteString("            List<?> xs = (List<?>) v;\n")
	b.WriteString("            for (int i = 0; i < xs.size(); i++) {\n")
	b.WriteString("                if (i > 0) sb.append(\",\");\n")
	b.WriteString("                sb.append(render(xs.get(i)));\n")
	b.WriteString("            }\n")
	b.WriteString("            return sb.append(\"]\").toString();\n")
	b.WriteString("        }\n")
	b.WriteString("        return String.valueOf(v);\n")
	b.WriteString("    }\n\n")
	b.WriteString("    public static void main(String[] args) {\n")
	b.WriteString("        int idx = args.length > 0 ? Integer.parseInt(args[0]) : 0;\n")
	b.WriteString("        Solution sol = new Solution();\n")
	b.WriteString("        Object res;\n")
	b.WriteString("        switch (idx) {\n")
	for i, tc := range cases {
		lits := make([]string, len(tc.Args))
		for j, arg := range tc.Args {
			lit, err := javaLit(arg)
			if err != nil {
				return "", fmt.Errorf("case %d argument %d: %w", tc.ID, j, err)
			}
			lits[j] = lit
		}
		fmt.Fprintf(&b, "        case %d:\n", i)
		fmt.Fprintf(&b, "            res = sol.%s(%s);\n", funcName, strings.Join(lits, ", "))
		b.WriteString("            break;\n")
	}
	b.WriteString("        default:\n")
	b.WriteString("            System.err.println(\"unknown case index \" + idx);\n")
	b.WriteString("            System.exit(2);\n")
	b.WriteString("            return;\n")
	b.WriteString("        }\n")
	b.WriteString("        System.out.println(\"RESULT:\" + render(res));\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")
	return b.String(), nil
}

func javaLit(v values.Value) (string, error) {
	switch v.Kind() {
	case values.Null:
		return "null", nil
	case values.Int:
		i := v.ToAny().(int64)
		if exceedsInt32(i) {
			return strconv.FormatInt(i, 10) + "L", nil
		}
		return strconv.FormatInt(i, 10), nil
	case values.Float:
		lit := strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
		if !strings.ContainsAny(lit, ".eE") {
			lit += ".0"
		}
		return lit, nil
	case values.Bool:
		return strconv.FormatBool(v.ToAny().(bool)), nil
	case values.Str:
		return stringLit(v.ToAny().(string)), nil
	case values.Seq:
		typ, err := javaArrayType(v)
		if err != nil {
			return "", err
		}
		elems := make([]string, v.Len())
		for i := 0; i < v.Len(); i++ {
			lit, err := javaSeqElemLit(v.At(i))
			if err != nil {
				return "", err
			}
			elems[i] = lit
		}
		return "new " + typ + "{" + strings.Join(elems, ", ") + "}", nil
	}
	return "", fmt.Errorf("cannot pass a %s argument to java", v.Kind())
}

// javaSeqElemLit renders an element inside an array initializer, where
// nested arrays drop the `new T[]` prefix.
func javaSeqElemLit(v values.Value) (string, error) {
	if v.Kind() != values.Seq {
		return javaLit(v)
	}
	elems := make([]string, v.Len())
	for i := 0; i < v.Len(); i++ {
		lit, err := javaSeqElemLit(v.At(i))
		if err != nil {
			return "", err
		}
		elems[i] = lit
	}
	return "{" + strings.Join(elems, ", ") + "}", nil
}

func javaArrayType(v values.Value) (string, error) {
	proto := seqElemProto(v)
	switch proto.Kind() {
	case values.Int:
		if exceedsInt32(proto.ToAny().(int64)) {
			return "long[]", nil
		}
		return "int[]", nil
	case values.Float:
		return "double[]", nil
	case values.Bool:
		return "boolean[]", nil
	case values.Str:
		return "String[]", nil
	case values.Seq:
		inner, err := javaArrayType(proto)
		if err != nil {
			return "", err
		}
		return strings.Replace(inner, "[]", "[][]", 1), nil
	}
	return "", fmt.Errorf("cannot build a java array of %s", proto.Kind())
}

// stringLit quotes s for embedding in generated c++ or java source.
// Control characters use \u escapes, which both languages accept inside
// string literals.
func stringLit(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

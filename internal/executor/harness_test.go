package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praclab/grader/internal"
	"github.com/praclab/grader/internal/langs"
	"github.com/praclab/grader/internal/values"
)

func mustValue(t *testing.T, raw string) values.Value {
	t.Helper()
	v, err := values.FromJSON([]byte(raw))
	require.NoError(t, err)
	return v
}

func TestExtractResult(t *testing.T) {
	payload, ok := ExtractResult("debug noise\nRESULT:[0,1]\n")
	assert.True(t, ok)
	assert.Equal(t, "[0,1]", payload)

	_, ok = ExtractResult("no marker here\n")
	assert.False(t, ok)

	payload, ok = ExtractResult("RESULT:5")
	assert.True(t, ok)
	assert.Equal(t, "5", payload)
}

func TestRenderPythonHarness(t *testing.T) {
	args := []values.Value{mustValue(t, `[2,7,11,15]`), values.NewInt(9)}
	src, err := renderInterpHarness("python", "def two_sum(nums, target):\n    return [0, 1]", "two_sum", args)
	require.NoError(t, err)

	assert.Contains(t, src, "def two_sum")
	assert.Contains(t, src, "import json as _json")
	assert.Contains(t, src, "two_sum(*_args)")
	assert.Contains(t, src, `"RESULT:"`)
	assert.Contains(t, src, "[[2,7,11,15],9]")
}

func TestRenderJavascriptHarness(t *testing.T) {
	args := []values.Value{values.NewStr("abc")}
	src, err := renderInterpHarness("javascript", "function solve(s) { return s; }", "solve", args)
	require.NoError(t, err)

	assert.Contains(t, src, `const __args = ["abc"];`)
	assert.Contains(t, src, "solve(...__args)")
	assert.Contains(t, src, "JSON.stringify(__res)")
}

func TestRenderInterpHarnessUnknownLang(t *testing.T) {
	_, err := renderInterpHarness("ruby", "", "f", nil)
	assert.Error(t, err)
}

func TestRenderCppHarnessEmbedsAllCases(t *testing.T) {
	cases := []internal.TestCase{
		{ID: 1, Args: []values.Value{mustValue(t, `[2,7,11,15]`), values.NewInt(9)}},
		{ID: 2, Args: []values.Value{mustValue(t, `[3,2,4]`), values.NewInt(6)}},
	}
	src, err := renderCppHarness("vector<int> two_sum(vector<int>& nums, int target) { return {0, 1}; }", "two_sum", cases)
	require.NoError(t, err)

	assert.Contains(t, src, "case 0: {")
	assert.Contains(t, src, "case 1: {")
	assert.Contains(t, src, "vector<int> __a0 = {2, 7, 11, 15};")
	assert.Contains(t, src, "int __a1 = 9;")
	assert.Contains(t, src, "two_sum(__a0, __a1)")
	assert.Contains(t, src, `cout << "RESULT:"`)
}

func TestRenderJavaHarnessDemotesPublicClass(t *testing.T) {
	cases := []internal.TestCase{
		{ID: 1, Args: []values.Value{mustValue(t, `[2,7,11,15]`), values.NewInt(9)}},
	}
	src, err := renderJavaHarness("public class Solution {\n    int[] twoSum(int[] nums, int target) { return new int[]{0, 1}; }\n}", "twoSum", cases)
	require.NoError(t, err)

	assert.NotContains(t, src, "public class Solution")
	assert.Contains(t, src, "class Solution")
	assert.Contains(t, src, "public class TestRunner")
	assert.Contains(t, src, "sol.twoSum(new int[]{2, 7, 11, 15}, 9)")
	assert.Contains(t, src, `"RESULT:"`)
}

func TestCppTypes(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want string
	}{
		{`5`, "int"},
		{`5000000000`, "long long"},
		{`2.5`, "double"},
		{`true`, "bool"},
		{`"x"`, "string"},
		{`[1,2]`, "vector<int>"},
		{`[[1],[2]]`, "vector<vector<int>>"},
		{`["a"]`, "vector<string>"},
		{`[]`, "vector<int>"},
		{`[1, 2.5]`, "vector<double>"},
		{`[1, 5000000000]`, "vector<long long>"},
	} {
		typ, err := cppType(mustValue(t, tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, typ, tc.raw)
	}

	_, err := cppType(values.Nil())
	assert.Error(t, err)
}

func TestJavaLiterals(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want string
	}{
		{`5`, "5"},
		{`5000000000`, "5000000000L"},
		{`2.5`, "2.5"},
		{`5.0`, "5.0"},
		{`true`, "true"},
		{`"hi"`, `"hi"`},
		{`null`, "null"},
		{`[1,2]`, "new int[]{1, 2}"},
		{`[1, 5000000000]`, "new long[]{1, 5000000000L}"},
		{`["a","b"]`, `new String[]{"a", "b"}`},
		{`[[1,3],[2,6]]`, "new int[][]{{1, 3}, {2, 6}}"},
	} {
		lit, err := javaLit(mustValue(t, tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, lit, tc.raw)
	}
}

func TestStringLitEscapes(t *testing.T) {
	assert.Equal(t, `"plain"`, stringLit("plain"))
	assert.Equal(t, `"a\"b"`, stringLit(`a"b`))
	assert.Equal(t, `"a\\b"`, stringLit(`a\b`))
	assert.Equal(t, `"line\nbreak"`, stringLit("line\nbreak"))
	assert.Equal(t, `"tab\there"`, stringLit("tab\there"))
	assert.Equal(t, "\"bell\\u0007\"", stringLit("bell\x07"))
}

func mustLang(t *testing.T, id string) langs.Language {
	t.Helper()
	lang, err := langs.Get(id)
	require.NoError(t, err)
	return lang
}

func TestNewSelectsStrategy(t *testing.T) {
	subm := internal.Submission{Code: "x", FuncName: "f"}

	lua := mustLang(t, "lua")
	e, err := New(lua, subm, nil)
	require.NoError(t, err)
	assert.IsType(t, &luaExecutor{}, e)

	py := mustLang(t, "python")
	e, err = New(py, subm, nil)
	require.NoError(t, err)
	assert.IsType(t, &interpExecutor{}, e)

	cpp := mustLang(t, "cpp")
	e, err = New(cpp, subm, nil)
	require.NoError(t, err)
	assert.IsType(t, &compiledExecutor{}, e)
}

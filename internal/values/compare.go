package values

import (
	"fmt"
	"math"
)

// Options tunes the equality policy. Floating-point results are accepted
// within AbsTol or within RelTol of the expected magnitude, whichever is
// more permissive; integers, booleans and strings compare exactly. The
// defaults absorb representation differences between guest runtimes
// (e.g. 0.30000000000000004) while still rejecting wrong answers.
type Options struct {
	AbsTol float64
	RelTol float64
}

func DefaultOptions() Options {
	return Options{AbsTol: 1e-6, RelTol: 1e-6}
}

// Equal reports whether actual matches expected under the given options.
// The second return value is a human-readable reason when they differ.
func Equal(expected, actual Value, opts Options) (bool, string) {
	if expected.IsNumeric() && actual.IsNumeric() {
		return equalNumeric(expected, actual, opts)
	}
	if expected.kind != actual.kind {
		return false, fmt.Sprintf("expected %s, got %s", expected.kind, actual.kind)
	}
	switch expected.kind {
	case Null:
		return true, ""
	case Bool:
		if expected.b != actual.b {
			return false, fmt.Sprintf("expected %v, got %v", expected.b, actual.b)
		}
		return true, ""
	case Str:
		if expected.s != actual.s {
			return false, fmt.Sprintf("expected %q, got %q", expected.s, actual.s)
		}
		return true, ""
	case Seq:
		return equalSeq(expected, actual, opts)
	}
	return false, fmt.Sprintf("cannot compare %s values", expected.kind)
}

func equalNumeric(expected, actual Value, opts Options) (bool, string) {
	// exact for integer vs integer, tolerance once floats are involved
	if expected.kind == Int && actual.kind == Int {
		if expected.i != actual.i {
			return false, fmt.Sprintf("expected %d, got %d", expected.i, actual.i)
		}
		return true, ""
	}
	e, a := expected.AsFloat(), actual.AsFloat()
	diff := math.Abs(e - a)
	if diff <= opts.AbsTol || diff <= opts.RelTol*math.Max(math.Abs(e), math.Abs(a)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v, got %v (diff %g exceeds tolerance)", e, a, diff)
}

func equalSeq(expected, actual Value, opts Options) (bool, string) {
	if len(expected.seq) != len(actual.seq) {
		return false, fmt.Sprintf("expected %d elements, got %d",
			len(expected.seq), len(actual.seq))
	}
	for i := range expected.seq {
		ok, reason := Equal(expected.seq[i], actual.seq[i], opts)
		if !ok {
			return false, fmt.Sprintf("element %d: %s", i, reason)
		}
	}
	return true, ""
}

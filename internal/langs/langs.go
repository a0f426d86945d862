// Package langs holds the static descriptor table for the guest
// languages submissions may be written in. The table is the closed set
// the dispatcher validates against: an unknown id is rejected before any
// workspace or process is allocated.
package langs

import (
	"errors"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/shlex"
)

var ErrUnsupportedLanguage = errors.New("unsupported guest language")

// Language describes how one guest language is invoked.
type Language struct {
	ID   string
	Name string

	// SourceFname is the file the submission (plus generated harness)
	// is written to inside the workspace.
	SourceFname string

	// CompileCmd is nil for interpreted languages. Commands use fixed
	// filenames, so no templating beyond shell-style word splitting.
	CompileCmd    *string
	CompiledFname *string
	RunCmd        string

	// BuildTimeout bounds the compile step; RunTimeout bounds each
	// test-case run. Interpreted languages get the short limit,
	// compiled ones a longer one to absorb toolchain startup.
	BuildTimeout time.Duration
	RunTimeout   time.Duration

	// InProcess marks the language evaluated inside this process
	// instead of through the sandbox's child-process boundary.
	InProcess bool

	// SupportsTracing marks languages whose executor can record a
	// step-by-step execution trace.
	SupportsTracing bool
}

// RunArgv splits the run command into an argv slice.
func (l Language) RunArgv() ([]string, error) {
	argv, err := shlex.Split(l.RunCmd)
	if err != nil {
		return nil, fmt.Errorf("bad run command for %s: %w", l.ID, err)
	}
	return argv, nil
}

// CompileArgv splits the compile command into an argv slice.
func (l Language) CompileArgv() ([]string, error) {
	if l.CompileCmd == nil {
		return nil, fmt.Errorf("language %s has no compile step", l.ID)
	}
	argv, err := shlex.Split(*l.CompileCmd)
	if err != nil {
		return nil, fmt.Errorf("bad compile command for %s: %w", l.ID, err)
	}
	return argv, nil
}

func strPtr(s string) *string { return &s }

var registry = map[string]Language{
	"lua": {
		ID:              "lua",
		Name:            "Lua 5.1",
		SourceFname:     "solution.lua",
		RunTimeout:      3 * time.Second,
		InProcess:       true,
		SupportsTracing: true,
	},
	"python": {
		ID:          "python",
		Name:        "Python 3",
		SourceFname: "solution.py",
		RunCmd:      "python3 solution.py",
		RunTimeout:  3 * time.Second,
	},
	"javascript": {
		ID:          "javascript",
		Name:        "JavaScript (Node.js)",
		SourceFname: "solution.js",
		RunCmd:      "node solution.js",
		RunTimeout:  3 * time.Second,
	},
	"cpp": {
		ID:            "cpp",
		Name:          "C++17",
		SourceFname:   "solution.cpp",
		CompileCmd:    strPtr("g++ -std=c++17 -O2 -o solution solution.cpp"),
		CompiledFname: strPtr("solution"),
		RunCmd:        "./solution",
		BuildTimeout:  10 * time.Second,
		RunTimeout:    5 * time.Second,
	},
	"java": {
		ID:            "java",
		Name:          "Java",
		SourceFname:   "TestRunner.java",
		CompileCmd:    strPtr("javac TestRunner.java"),
		CompiledFname: strPtr("TestRunner.class"),
		RunCmd:        "java -cp . TestRunner",
		BuildTimeout:  10 * time.Second,
		RunTimeout:    5 * time.Second,
	},
}

var supportedIDs = func() mapset.Set[string] {
	s := mapset.NewSet[string]()
	for id := range registry {
		s.Add(id)
	}
	return s
}()

// Get returns the descriptor for the given language id, failing closed
// on anything outside the table.
func Get(id string) (Language, error) {
	lang, ok := registry[id]
	if !ok {
		return Language{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, id)
	}
	return lang, nil
}

// Supported reports whether the id names a known guest language.
func Supported(id string) bool {
	return supportedIDs.Contains(id)
}

// IDs returns the supported language ids in no particular order.
func IDs() []string {
	return supportedIDs.ToSlice()
}

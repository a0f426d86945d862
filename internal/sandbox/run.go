package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// MaxCaptureBytes caps how much of each output stream is retained.
const MaxCaptureBytes = 64 * 1024

// RunResult is the raw observation of one child process run.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int

	// TimedOut is set when the deadline expired and the process group
	// was killed; Crashed when the process died on a signal of its own.
	TimedOut bool
	Crashed  bool

	WallMillis int64
}

// Run launches argv as a child process rooted at the workspace, feeds it
// stdin, and waits. The child gets its own process group; if the
// deadline expires the whole group is SIGKILLed so toolchain helpers
// (e.g. a compiler driver's linker) die with it.
func (w *Workspace) Run(ctx context.Context, argv []string, stdin string, deadline time.Duration) (*RunResult, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = w.path
	cmd.Env = []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + w.path,
		"LANG=C.UTF-8",
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr cappedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to spawn %s: %w", argv[0], err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	res := &RunResult{}
	select {
	case err := <-done:
		res.ExitCode, res.Crashed = classifyExit(cmd, err)
	case <-timer.C:
		killGroup(cmd.Process.Pid)
		<-done
		res.TimedOut = true
		res.ExitCode = -1
	case <-ctx.Done():
		killGroup(cmd.Process.Pid)
		<-done
		return nil, ctx.Err()
	}

	res.WallMillis = time.Since(start).Milliseconds()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res, nil
}

// classifyExit distinguishes a clean non-zero exit from a signal death.
func classifyExit(cmd *exec.Cmd, err error) (exitCode int, crashed bool) {
	if err == nil {
		return 0, false
	}
	if _, ok := err.(*exec.ExitError); !ok {
		return -1, true
	}
	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if ok && ws.Signaled() {
		return -1, true
	}
	return cmd.ProcessState.ExitCode(), false
}

// killGroup terminates the entire process subtree rooted at pid.
func killGroup(pid int) {
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		// group may be gone already; fall back to the direct child
		_ = unix.Kill(pid, unix.SIGKILL)
	}
}

// cappedBuffer keeps the first MaxCaptureBytes of a stream and drops
// the rest, so a flooding submission cannot exhaust memory.
type cappedBuffer struct {
	buf       []byte
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if remaining := MaxCaptureBytes - len(b.buf); remaining > 0 {
		if len(p) > remaining {
			b.buf = append(b.buf, p[:remaining]...)
			b.truncated = true
		} else {
			b.buf = append(b.buf, p...)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return string(b.buf) + "\n[output truncated]"
	}
	return string(b.buf)
}

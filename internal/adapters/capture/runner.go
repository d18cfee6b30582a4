package capture

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/jarvis-lab/netguard/internal/telemetry"
)

const (
	livenessInterval = 2 * time.Second
	stopGrace        = 5 * time.Second
	backoffStart     = time.Second
	backoffCap       = 60 * time.Second
	// A process that survives this long gets its backoff reset.
	healthyUptime = 30 * time.Second
)

// CommandFunc builds the process for one start attempt. Building per
// attempt lets tools that embed timestamps in their output paths pick
// a fresh name after every restart.
type CommandFunc func(ctx context.Context) *exec.Cmd

// RunnerConfig describes one supervised capture tool.
type RunnerConfig struct {
	Tool  string
	Build CommandFunc
	// StdoutFile redirects the tool's stdout into a file, truncated on
	// each start. Tools that take an -o flag leave it empty.
	StdoutFile string
	Board      *StatusBoard
}

// Runner keeps one capture tool running: it spawns the process,
// watches it, and restarts it with exponential backoff when it dies.
type Runner struct {
	tool       string
	build      CommandFunc
	stdoutFile string
	board      *StatusBoard

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewRunner creates a supervisor for one tool.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		tool:       cfg.Tool,
		build:      cfg.Build,
		stdoutFile: cfg.StdoutFile,
		board:      cfg.Board,
	}
}

// Tool returns the supervised tool's name.
func (r *Runner) Tool() string { return r.tool }

// Run supervises the process until ctx ends.
func (r *Runner) Run(ctx context.Context) {
	backoff := backoffStart
	for {
		started := time.Now()
		err := r.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) >= healthyUptime {
			backoff = backoffStart
		}

		telemetry.ToolRestarts.WithLabelValues(r.tool).Inc()
		if r.board != nil {
			r.board.RecordRestart(r.tool, err)
		}
		slog.Warn("capture tool exited, restarting",
			"tool", r.tool, "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > backoffCap {
			backoff = backoffCap
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) error {
	cmd := r.build(ctx)
	// Prefer a clean SIGTERM, escalate to SIGKILL after the grace
	// period. WaitDelay also unblocks Wait when a child inherits the
	// output pipes.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = stopGrace

	var logFile *os.File
	if r.stdoutFile != "" {
		f, err := os.OpenFile(r.stdoutFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		logFile = f
		cmd.Stdout = f
		cmd.Stderr = io.Discard
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return err
	}

	r.mu.Lock()
	r.cmd = cmd
	r.mu.Unlock()
	if r.board != nil {
		r.board.SetRunning(r.tool, cmd.Process.Pid, true)
	}
	slog.Info("capture tool started", "tool", r.tool, "pid", cmd.Process.Pid)

	defer func() {
		if logFile != nil {
			logFile.Close()
		}
		r.mu.Lock()
		r.cmd = nil
		r.mu.Unlock()
		if r.board != nil {
			r.board.SetRunning(r.tool, 0, false)
		}
	}()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(livenessInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			// Liveness poll; the wait goroutine reports the exit, the
			// ticker just keeps the status board current.
			if r.board != nil {
				r.board.SetRunning(r.tool, cmd.Process.Pid, true)
			}
		}
	}
}

// Kick terminates the current process so the supervision loop starts a
// fresh one. The netsniff collector uses it after consuming the file
// the tool was writing to.
func (r *Runner) Kick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil && r.cmd.Process != nil {
		r.cmd.Process.Signal(syscall.SIGTERM)
	}
}

// ReapOrphans terminates capture tool processes left over from a
// previous daemon run. Only processes owned by the current user whose
// command line references marker (our log or capture directory) are
// touched, so unrelated instances keep running.
func ReapOrphans(names []string, marker string) {
	self := os.Getpid()
	uid := os.Getuid()

	procs, err := process.Processes()
	if err != nil {
		slog.Warn("orphan scan failed", "error", err)
		return
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	for _, p := range procs {
		if int(p.Pid) == self {
			continue
		}
		name, err := p.Name()
		if err != nil || !wanted[name] {
			continue
		}
		uids, err := p.Uids()
		if err != nil || len(uids) == 0 || int(uids[0]) != uid {
			continue
		}
		cmdline, err := p.Cmdline()
		if err != nil || marker == "" || !strings.Contains(cmdline, marker) {
			continue
		}

		slog.Info("terminating orphaned capture process", "tool", name, "pid", p.Pid)
		if err := p.Terminate(); err != nil {
			p.Kill()
			continue
		}
		deadline := time.Now().Add(stopGrace)
		for time.Now().Before(deadline) {
			if running, _ := p.IsRunning(); !running {
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		if running, _ := p.IsRunning(); running {
			p.Kill()
		}
	}
}

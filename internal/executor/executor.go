// Package executor builds pipelines of external processes sharing one
// process group and supervises their foreground or background run. Job
// state is driven by reaper events; the executor is the event queue's
// consumer while a foreground wait is in progress.
package executor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sys/unix"

	"minsh/internal/job"
	"minsh/internal/parser"
	"minsh/internal/reaper"
	"minsh/internal/term"
)

// ExitNotFound is the status reserved for a program that could not be
// located or executed. Any other non-zero status passes through from the
// program itself.
const ExitNotFound = 127

// Outcome classifies how a launch ended.
type Outcome int

const (
	// Completed means every stage exited; Result.Status holds the last
	// stage's status.
	Completed Outcome = iota
	// Stopped means the group stopped and was registered as a job.
	Stopped
	// Backgrounded means the pipeline was registered and left running.
	Backgrounded
)

// Result describes one launch.
type Result struct {
	Outcome Outcome
	Status  int
	Job     *job.Job // set for Stopped and Backgrounded
}

// Executor launches pipelines against an injected job table, terminal
// controller and reaper event queue.
type Executor struct {
	table  *job.Table
	term   *term.Controller
	events <-chan reaper.Event
	stdout io.Writer
	stderr io.Writer

	fgMu   sync.Mutex
	fgPGID int
}

// New wires an executor. events must be the reaper's queue; the executor
// and the REPL drain share it from the single control goroutine.
func New(table *job.Table, tc *term.Controller, events <-chan reaper.Event, stdout, stderr io.Writer) *Executor {
	return &Executor{
		table:  table,
		term:   tc,
		events: events,
		stdout: stdout,
		stderr: stderr,
		fgPGID: -1,
	}
}

// ForegroundPGID returns the process group currently run in the
// foreground, or -1. Safe to call from the signal-forwarding goroutine.
func (e *Executor) ForegroundPGID() int {
	e.fgMu.Lock()
	defer e.fgMu.Unlock()
	return e.fgPGID
}

// SignalForeground forwards sig to the whole foreground group, if any.
func (e *Executor) SignalForeground(sig unix.Signal) {
	if pgid := e.ForegroundPGID(); pgid > 0 {
		_ = unix.Kill(-pgid, sig)
	}
}

func (e *Executor) setForeground(pgid int) {
	e.fgMu.Lock()
	e.fgPGID = pgid
	e.fgMu.Unlock()
}

// Launch runs a parsed pipeline. Builtins never reach here; the REPL
// dispatches a sole-stage builtin in-process first.
//
// All stages join one process group, keyed by the first started child's
// pid. Stage-local failures (redirection target, command not found) skip
// that stage and let its siblings run; pipe or process creation failures
// abort the whole launch with no survivors.
func (e *Executor) Launch(p parser.Pipeline) (Result, error) {
	var stages []parser.Command
	for _, c := range p.Stages {
		if len(c.Args) > 0 {
			stages = append(stages, c)
		}
	}
	if len(stages) == 0 {
		return Result{Outcome: Completed}, nil
	}
	n := len(stages)

	type pipePair struct{ r, w *os.File }
	pipes := make([]pipePair, n-1)
	closePipes := func() {
		for _, pp := range pipes {
			if pp.r != nil {
				pp.r.Close()
				pp.w.Close()
			}
		}
	}
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			closePipes()
			return Result{}, fmt.Errorf("pipe: %w", err)
		}
		pipes[i] = pipePair{r, w}
	}

	pgid := 0
	pids := make([]int, 0, n)
	lastPid := -1
	status := 0

	for i, stage := range stages {
		cmd := exec.Command(stage.Args[0], stage.Args[1:]...)
		cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true, Pgid: pgid}
		cmd.Stderr = os.Stderr

		// Stage files opened here are the parent's copies; the child gets
		// dups, so they close right after Start.
		var parentFiles []*os.File
		closeParentFiles := func() {
			for _, f := range parentFiles {
				f.Close()
			}
		}

		// stdin: previous pipe, then redirection overrides
		if i > 0 {
			cmd.Stdin = pipes[i-1].r
		} else if p.Background {
			// background pipelines must not read the terminal
			devnull, err := os.Open(os.DevNull)
			if err == nil {
				cmd.Stdin = devnull
				parentFiles = append(parentFiles, devnull)
			}
		} else {
			cmd.Stdin = os.Stdin
		}
		// stdout: next pipe, then redirection overrides
		if i < n-1 {
			cmd.Stdout = pipes[i].w
		} else {
			cmd.Stdout = os.Stdout
		}

		skip := false
		if stage.Infile != "" {
			f, err := os.Open(stage.Infile)
			if err != nil {
				fmt.Fprintf(e.stderr, "minsh: %v\n", err)
				skip = true
			} else {
				cmd.Stdin = f
				parentFiles = append(parentFiles, f)
			}
		}
		if !skip && stage.Outfile != "" {
			flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			if stage.Append {
				flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
			}
			f, err := os.OpenFile(stage.Outfile, flags, 0644)
			if err != nil {
				fmt.Fprintf(e.stderr, "minsh: %v\n", err)
				skip = true
			} else {
				cmd.Stdout = f
				parentFiles = append(parentFiles, f)
			}
		}
		if skip {
			// redirection failure is fatal to this stage only
			closeParentFiles()
			if i == n-1 {
				status = 1
			}
			continue
		}

		if err := cmd.Start(); err != nil {
			closeParentFiles()
			var execErr *exec.Error
			if errors.As(err, &execErr) {
				fmt.Fprintf(e.stderr, "minsh: %s: command not found\n", stage.Args[0])
				if i == n-1 {
					status = ExitNotFound
				}
				continue
			}
			// process creation failed: tear the partial pipeline down
			closePipes()
			if pgid != 0 {
				_ = unix.Kill(-pgid, unix.SIGKILL)
			}
			return Result{}, fmt.Errorf("starting %s: %w", stage.Args[0], err)
		}

		pid := cmd.Process.Pid
		if pgid == 0 {
			// first child anchors the group; set it from the parent side
			// too since either side may run first
			pgid = pid
			_ = unix.Setpgid(pid, pgid)
		}
		pids = append(pids, pid)
		if i == n-1 {
			lastPid = pid
		}
		closeParentFiles()
	}

	// ownership of the pipe descriptors has passed to the children
	closePipes()

	if len(pids) == 0 {
		return Result{Outcome: Completed, Status: status}, nil
	}

	if p.Background {
		j, err := e.table.Add(pgid, pids, p.Line, job.Running)
		if err != nil {
			// an unregistered group cannot be managed; take it down
			_ = unix.Kill(-pgid, unix.SIGKILL)
			fmt.Fprintf(e.stderr, "minsh: %v (killed process group %d)\n", err, pgid)
			return Result{Outcome: Completed, Status: 1}, nil
		}
		fmt.Fprintf(e.stdout, "[%d] %d\n", j.ID, pgid)
		return Result{Outcome: Backgrounded, Job: j}, nil
	}

	e.setForeground(pgid)
	defer e.setForeground(-1)

	var res Result
	_ = e.term.WithOwner(pgid, func() error {
		res = e.waitForeground(pgid, pids, lastPid, status, p.Line)
		return nil
	})
	return res, nil
}

// waitForeground consumes reaper events until every member of the group
// has exited or any member stops. Events for other jobs are applied to the
// table along the way; events for untracked pids fall through harmlessly.
func (e *Executor) waitForeground(pgid int, pids []int, lastPid, status int, line string) Result {
	remaining := make(map[int]bool, len(pids))
	for _, pid := range pids {
		remaining[pid] = true
	}
	for len(remaining) > 0 {
		ev := <-e.events
		e.table.Update(ev.Pid, ev.Status)
		if !remaining[ev.Pid] {
			continue
		}
		ws := ev.Status
		switch {
		case ws.Stopped():
			// one stopped member stops the whole launch
			j, err := e.table.Add(pgid, pids, line, job.Stopped)
			if err != nil {
				fmt.Fprintf(e.stderr, "minsh: %v\n", err)
				return Result{Outcome: Stopped}
			}
			fmt.Fprintf(e.stdout, "\n[%d]  Stopped  %s\n", j.ID, j.Cmd)
			return Result{Outcome: Stopped, Job: j}
		case ws.Exited() || ws.Signaled():
			delete(remaining, ev.Pid)
			if ev.Pid == lastPid {
				if ws.Signaled() {
					status = 128 + int(ws.Signal())
				} else {
					status = ws.ExitStatus()
				}
			}
		}
	}
	return Result{Outcome: Completed, Status: status}
}

// ForegroundJob resumes a stopped or running job in the foreground: the
// terminal goes to the group, the group is continued, and the call blocks
// until the group exits or stops again. The terminal always returns to the
// shell.
func (e *Executor) ForegroundJob(j *job.Job) error {
	if err := unix.Kill(-j.PGID, 0); err != nil {
		// group already vanished
		j.State = job.Done
		fmt.Fprintf(e.stderr, "minsh: job [%d] has terminated\n", j.ID)
		return nil
	}

	e.setForeground(j.PGID)
	defer e.setForeground(-1)

	return e.term.WithOwner(j.PGID, func() error {
		if err := unix.Kill(-j.PGID, unix.SIGCONT); err != nil {
			fmt.Fprintf(e.stderr, "minsh: continue: %v\n", err)
		}
		j.State = job.Running
		for {
			ev := <-e.events
			e.table.Update(ev.Pid, ev.Status)
			if !j.Member(ev.Pid) {
				continue
			}
			ws := ev.Status
			switch {
			case ws.Stopped():
				j.State = job.Stopped
				fmt.Fprintf(e.stdout, "\n[%d]  Stopped  %s\n", j.ID, j.Cmd)
				return nil
			case ws.Exited() || ws.Signaled():
				if unix.Kill(-j.PGID, 0) != nil {
					j.State = job.Done
					return nil
				}
			}
		}
	})
}

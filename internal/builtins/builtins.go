// Package builtins implements the commands that run inside the shell
// process: cd, pwd, exit, history, and the job-control dispatchers jobs,
// fg, bg and kill. Dispatch is by the tag the parser resolved, not by
// string comparison.
package builtins

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"minsh/internal/executor"
	"minsh/internal/history"
	"minsh/internal/job"
	"minsh/internal/parser"
	"minsh/internal/style"
)

// ErrExit signals the REPL to terminate the session cleanly.
var ErrExit = errors.New("exit")

// Env carries the shell state a builtin may read or mutate.
type Env struct {
	Table   *job.Table
	Exec    *executor.Executor
	History *history.History
	Stdout  io.Writer
	Stderr  io.Writer
}

// Run dispatches one tagged builtin command. It must only be called for a
// sole-stage pipeline; builtins cannot appear mid-pipeline.
func (e *Env) Run(cmd parser.Command) error {
	switch cmd.Builtin {
	case parser.BuiltinCd:
		return e.cd(cmd.Args)
	case parser.BuiltinPwd:
		return e.pwd()
	case parser.BuiltinExit:
		return ErrExit
	case parser.BuiltinJobs:
		return e.jobs()
	case parser.BuiltinFg:
		return e.fg(cmd.Args)
	case parser.BuiltinBg:
		return e.bg(cmd.Args)
	case parser.BuiltinKill:
		return e.kill(cmd.Args)
	case parser.BuiltinHistory:
		return e.history()
	}
	return fmt.Errorf("not a builtin: %v", cmd.Args)
}

func (e *Env) cd(args []string) error {
	target := ""
	if len(args) > 1 {
		target = args[1]
	} else {
		target = os.Getenv("HOME")
	}
	if target == "" {
		target = "."
	}
	if err := os.Chdir(target); err != nil {
		return fmt.Errorf("cd: %w", err)
	}
	return nil
}

func (e *Env) pwd() error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("pwd: %w", err)
	}
	fmt.Fprintln(e.Stdout, dir)
	return nil
}

func (e *Env) jobs() error {
	e.Table.Compact()
	for j := range e.Table.Live() {
		fmt.Fprintf(e.Stdout, "%s %d  %s  %s\n",
			style.JobID.Render(fmt.Sprintf("[%d]", j.ID)),
			j.PGID,
			style.JobState(j.State.String()),
			j.Cmd)
	}
	return nil
}

func (e *Env) history() error {
	for i, line := range e.History.Entries() {
		fmt.Fprintf(e.Stdout, "%d  %s\n", i+1, line)
	}
	return nil
}

func (e *Env) fg(args []string) error {
	j, err := e.lookup("fg", args)
	if err != nil {
		return err
	}
	if j.State == job.Done {
		fmt.Fprintf(e.Stderr, "minsh: job [%d] has terminated\n", j.ID)
		return nil
	}
	return e.Exec.ForegroundJob(j)
}

func (e *Env) bg(args []string) error {
	j, err := e.lookup("bg", args)
	if err != nil {
		return err
	}
	if err := unix.Kill(-j.PGID, unix.SIGCONT); err != nil {
		// non-fatal: the group is most likely already gone
		fmt.Fprintf(e.Stderr, "minsh: bg: %v\n", err)
		return nil
	}
	j.State = job.Running
	return nil
}

func (e *Env) kill(args []string) error {
	j, err := e.lookup("kill", args)
	if err != nil {
		return err
	}
	if err := unix.Kill(-j.PGID, unix.SIGTERM); err != nil {
		fmt.Fprintf(e.Stderr, "minsh: kill: %v\n", err)
	}
	// optimistic; the reaper confirms once the group is gone
	j.State = job.Done
	return nil
}

// lookup resolves a "<builtin> <job-id>" argument pair against the table.
func (e *Env) lookup(name string, args []string) (*job.Job, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%s: usage: %s <job-id>", name, name)
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args[1], "%"))
	if err != nil {
		return nil, fmt.Errorf("%s: %q: %w", name, args[1], job.ErrNoSuchJob)
	}
	j := e.Table.ByID(id)
	if j == nil {
		return nil, fmt.Errorf("%s: %d: %w", name, id, job.ErrNoSuchJob)
	}
	return j, nil
}

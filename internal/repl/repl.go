// Package repl runs the interactive read-eval loop. It owns the job table
// and history, drains reaper events between iterations, and forwards
// keyboard signals to whichever process group runs in the foreground.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/sys/unix"

	"minsh/internal/builtins"
	"minsh/internal/config"
	"minsh/internal/executor"
	"minsh/internal/history"
	"minsh/internal/job"
	"minsh/internal/parser"
	"minsh/internal/reaper"
	"minsh/internal/style"
	"minsh/internal/term"
)

// REPL is one interactive session. All dependencies are injected; nothing
// here is package-global state.
type REPL struct {
	cfg   config.Config
	table *job.Table
	reap  *reaper.Reaper
	term  *term.Controller
	exec  *executor.Executor
	env   *builtins.Env
	hist  *history.History

	in     *bufio.Reader
	stdout io.Writer
	stderr io.Writer

	lastStatus int
}

// New assembles a session around the given configuration, reading commands
// from stdin.
func New(cfg config.Config) *REPL {
	table := job.NewTable(cfg.Jobs.Max)
	reap := reaper.New(0)
	tc := term.NewController(os.Stdin)
	ex := executor.New(table, tc, reap.Events(), os.Stdout, os.Stderr)
	hist := history.New(cfg.History.File, cfg.History.Size)
	env := &builtins.Env{
		Table:   table,
		Exec:    ex,
		History: hist,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	return &REPL{
		cfg:    cfg,
		table:  table,
		reap:   reap,
		term:   tc,
		exec:   ex,
		env:    env,
		hist:   hist,
		in:     bufio.NewReader(os.Stdin),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Run reads and evaluates commands until EOF or the exit builtin.
func (r *REPL) Run() error {
	r.term.Claim()
	r.reap.Start()
	defer r.reap.Stop()
	r.forwardSignals()

	if err := r.hist.Load(); err != nil {
		r.errorf("%v", err)
	}

	for {
		// the one synchronous point where buffered child events mutate jobs
		r.reap.Drain(r.table)

		fmt.Fprint(r.stdout, r.prompt())
		line, err := r.in.ReadString('\n')
		if err != nil {
			fmt.Fprintln(r.stdout)
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.hist.Add(line)

		if err := r.eval(line); err != nil {
			if errors.Is(err, builtins.ErrExit) {
				break
			}
			r.errorf("%v", err)
		}
	}

	if err := r.hist.Save(); err != nil {
		r.errorf("%v", err)
	}
	return nil
}

// RunCommand evaluates a single line non-interactively (the -c flag) and
// returns the pipeline's exit status.
func (r *REPL) RunCommand(line string) (int, error) {
	r.reap.Start()
	defer r.reap.Stop()
	r.forwardSignals()

	err := r.eval(line)
	r.reap.Drain(r.table)
	if err != nil && !errors.Is(err, builtins.ErrExit) {
		return 1, err
	}
	return r.lastStatus, nil
}

func (r *REPL) eval(line string) error {
	p := parser.Split(line)
	if len(p.Stages) == 0 {
		return nil
	}
	if len(p.Stages) == 1 && p.Stages[0].Builtin != parser.BuiltinNone {
		return r.env.Run(p.Stages[0])
	}
	res, err := r.exec.Launch(p)
	if err != nil {
		return err
	}
	r.lastStatus = res.Status
	return nil
}

// forwardSignals relays Ctrl+C and Ctrl+Z to the foreground process group.
// With a real terminal the keystrokes already reach the foreground group
// through terminal ownership; forwarding covers the shell itself being the
// signal target (e.g. when stdin is not a tty).
func (r *REPL) forwardSignals() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGINT, unix.SIGTSTP)
	go func() {
		for sig := range sigs {
			s, ok := sig.(unix.Signal)
			if !ok {
				continue
			}
			if r.exec.ForegroundPGID() > 0 {
				r.exec.SignalForeground(s)
			} else if s == unix.SIGINT {
				fmt.Fprint(r.stdout, "\n"+r.prompt())
			}
		}
	}()
}

// errorf prints a shell diagnostic, colored when the session has a tty.
func (r *REPL) errorf(format string, args ...any) {
	msg := fmt.Sprintf("minsh: "+format, args...)
	if r.term.Interactive() {
		msg = style.Error.Render(msg)
	}
	fmt.Fprintln(r.stderr, msg)
}

func (r *REPL) prompt() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "?"
	}
	text := r.cfg.Prompt
	if strings.Contains(text, "%s") {
		text = fmt.Sprintf(text, cwd)
	}
	if r.term.Interactive() {
		return style.Prompt.Render(text)
	}
	return text
}

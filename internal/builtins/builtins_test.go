package builtins

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"minsh/internal/executor"
	"minsh/internal/history"
	"minsh/internal/job"
	"minsh/internal/parser"
	"minsh/internal/reaper"
	"minsh/internal/term"
)

type fixture struct {
	env    *Env
	reap   *reaper.Reaper
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	table := job.NewTable(0)
	reap := reaper.New(0)
	reap.Start()
	t.Cleanup(reap.Stop)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	ex := executor.New(table, term.NewController(os.Stdin), reap.Events(), stdout, stderr)
	return &fixture{
		env: &Env{
			Table:   table,
			Exec:    ex,
			History: history.New("", 0),
			Stdout:  stdout,
			Stderr:  stderr,
		},
		reap:   reap,
		stdout: stdout,
		stderr: stderr,
	}
}

func run(t *testing.T, f *fixture, line string) error {
	t.Helper()
	p := parser.Split(line)
	require.Len(t, p.Stages, 1)
	require.NotEqual(t, parser.BuiltinNone, p.Stages[0].Builtin)
	return f.env.Run(p.Stages[0])
}

func TestCdAndPwd(t *testing.T) {
	orig, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(orig) })

	f := newFixture(t)
	dir := t.TempDir()
	require.NoError(t, run(t, f, "cd "+dir))

	require.NoError(t, run(t, f, "pwd"))
	got, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, got+"\n", f.stdout.String())
}

func TestCdMissingDirectory(t *testing.T) {
	f := newFixture(t)
	err := run(t, f, "cd /definitely/not/here")
	assert.Error(t, err)
}

func TestExit(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, run(t, f, "exit"), ErrExit)
}

func TestJobControlUnknownID(t *testing.T) {
	f := newFixture(t)
	for _, line := range []string{"fg 7", "bg 7", "kill 7", "fg %7"} {
		err := run(t, f, line)
		assert.ErrorIs(t, err, job.ErrNoSuchJob, line)
	}
}

func TestJobControlUsage(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, run(t, f, "fg"))
	assert.Error(t, run(t, f, "kill notanumber"))
}

func TestKillMarksDoneAndReaperConfirms(t *testing.T) {
	f := newFixture(t)
	res, err := f.env.Exec.Launch(parser.Split("sleep 30 &"))
	require.NoError(t, err)
	j := res.Job
	require.NotNil(t, j)

	require.NoError(t, run(t, f, "kill 1"))
	assert.Equal(t, job.Done, j.State)

	// the group really dies
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if unix.Kill(-j.PGID, 0) != nil {
			break
		}
		f.reap.Drain(f.env.Table)
		time.Sleep(10 * time.Millisecond)
	}
	assert.Error(t, unix.Kill(-j.PGID, 0), "no live processes remain")

	// after compaction jobs no longer lists it
	f.stdout.Reset()
	require.NoError(t, run(t, f, "jobs"))
	assert.Empty(t, f.stdout.String())
}

func TestBgMarksRunning(t *testing.T) {
	f := newFixture(t)
	res, err := f.env.Exec.Launch(parser.Split("sleep 20 &"))
	require.NoError(t, err)
	j := res.Job
	require.NotNil(t, j)
	t.Cleanup(func() { _ = unix.Kill(-j.PGID, unix.SIGKILL) })

	require.NoError(t, unix.Kill(-j.PGID, unix.SIGSTOP))
	deadline := time.Now().Add(5 * time.Second)
	for j.State != job.Stopped && time.Now().Before(deadline) {
		f.reap.Drain(f.env.Table)
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, job.Stopped, j.State)

	require.NoError(t, run(t, f, "bg 1"))
	assert.Equal(t, job.Running, j.State)
}

func TestJobsListsLiveInInsertionOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.env.Table.Add(111, []int{111}, "first &", job.Running)
	require.NoError(t, err)
	_, err = f.env.Table.Add(222, []int{222}, "second &", job.Stopped)
	require.NoError(t, err)

	require.NoError(t, run(t, f, "jobs"))
	out := f.stdout.String()
	assert.Contains(t, out, "first &")
	assert.Contains(t, out, "second &")
	assert.Less(t, bytes.Index([]byte(out), []byte("first")), bytes.Index([]byte(out), []byte("second")))
}

func TestHistoryBuiltinNumbersEntries(t *testing.T) {
	f := newFixture(t)
	f.env.History.Add("echo one")
	f.env.History.Add("echo two")

	require.NoError(t, run(t, f, "history"))
	assert.Equal(t, "1  echo one\n2  echo two\n", f.stdout.String())
}

// Package job tracks launched process groups. The Table is a bounded,
// ordered registry owned by the shell's control goroutine; it is passed
// explicitly to every component that needs it.
package job

import (
	"errors"
	"iter"

	"golang.org/x/sys/unix"
)

// DefaultCapacity is the job table size used when no limit is configured.
const DefaultCapacity = 64

// ErrNoSuchJob is reported when a user references an unknown job id.
var ErrNoSuchJob = errors.New("no such job")

// ErrTableFull is returned when the table cannot take another job.
var ErrTableFull = errors.New("job table full")

// State is the lifecycle state of a job.
type State int

const (
	Running State = iota
	Stopped
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	}
	return "Unknown"
}

// Job is one tracked pipeline: a process group plus display metadata.
type Job struct {
	ID    int
	PGID  int
	Cmd   string // original command line
	State State

	pids []int // pipeline members, for mapping reaped pids back to the job
}

// Pids returns the pipeline's member process ids.
func (j *Job) Pids() []int {
	out := make([]int, len(j.pids))
	copy(out, j.pids)
	return out
}

// Member reports whether pid belongs to this job's pipeline.
func (j *Job) Member(pid int) bool {
	for _, p := range j.pids {
		if p == pid {
			return true
		}
	}
	return false
}

// Table is an insertion-ordered, capacity-bounded collection of jobs.
// Job ids are assigned monotonically and never recycled within a session.
type Table struct {
	capacity int
	jobs     []*Job
	nextID   int
}

// NewTable returns an empty table. A capacity of zero or less selects
// DefaultCapacity.
func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Table{capacity: capacity, nextID: 1}
}

// Add registers a process group. If the group is already tracked the
// existing entry is refreshed instead, so a process group never maps to
// more than one job.
func (t *Table) Add(pgid int, pids []int, cmdline string, state State) (*Job, error) {
	if j := t.ByPGID(pgid); j != nil {
		j.State = state
		if len(pids) > 0 {
			j.pids = append([]int(nil), pids...)
		}
		return j, nil
	}
	if len(t.jobs) >= t.capacity {
		return nil, ErrTableFull
	}
	j := &Job{
		ID:    t.nextID,
		PGID:  pgid,
		Cmd:   cmdline,
		State: state,
		pids:  append([]int(nil), pids...),
	}
	t.nextID++
	t.jobs = append(t.jobs, j)
	return j, nil
}

// ByID returns the job with the given id, or nil.
func (t *Table) ByID(id int) *Job {
	for _, j := range t.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

// ByPGID returns the job tracking the given process group, or nil.
func (t *Table) ByPGID(pgid int) *Job {
	for _, j := range t.jobs {
		if j.PGID == pgid {
			return j
		}
	}
	return nil
}

// ByPID returns the job whose pipeline contains pid, or nil. Membership is
// recorded at launch so the lookup still works after the process is reaped.
func (t *Table) ByPID(pid int) *Job {
	for _, j := range t.jobs {
		if j.Member(pid) {
			return j
		}
	}
	return nil
}

// Len reports the number of tracked jobs, including Done ones awaiting
// compaction.
func (t *Table) Len() int { return len(t.jobs) }

// Live yields the non-Done jobs in insertion order.
func (t *Table) Live() iter.Seq[*Job] {
	return func(yield func(*Job) bool) {
		for _, j := range t.jobs {
			if j.State == Done {
				continue
			}
			if !yield(j) {
				return
			}
		}
	}
}

// Compact removes Done entries, preserving the order of the rest.
func (t *Table) Compact() {
	kept := t.jobs[:0]
	for _, j := range t.jobs {
		if j.State != Done {
			kept = append(kept, j)
		}
	}
	for i := len(kept); i < len(t.jobs); i++ {
		t.jobs[i] = nil
	}
	t.jobs = kept
}

// Update applies one reaped wait status to the owning job. Events for
// untracked pids are discarded; this covers processes of foreground
// pipelines that were never registered, and jobs already compacted away.
func (t *Table) Update(pid int, ws unix.WaitStatus) {
	j := t.ByPID(pid)
	if j == nil {
		return
	}
	switch {
	case ws.Stopped():
		j.State = Stopped
	case ws.Continued():
		j.State = Running
	case ws.Exited() || ws.Signaled():
		j.State = Done
	}
}

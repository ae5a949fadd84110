// Package reaper collects child state changes. SIGCHLD wakes a collector
// goroutine that drains the kernel with non-blocking waits and records raw
// (pid, status) events into a bounded queue. It never touches the job table:
// the shell's control goroutine is the only consumer, and applies events at
// well-defined synchronous points.
package reaper

import (
	"os"
	"os/signal"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"minsh/internal/job"
)

// DefaultQueueSize is the event queue capacity used when none is given.
// Generous relative to the job table bound so bursts of exits do not drop.
const DefaultQueueSize = 512

// Event is one observed child state change.
type Event struct {
	Pid    int
	Status unix.WaitStatus
}

// Reaper owns the SIGCHLD subscription and the event queue.
type Reaper struct {
	events  chan Event
	sigs    chan os.Signal
	dropped atomic.Uint64
}

// New returns a reaper with the given queue capacity (0 selects
// DefaultQueueSize). Call Start to begin collecting.
func New(queueSize int) *Reaper {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Reaper{
		events: make(chan Event, queueSize),
		sigs:   make(chan os.Signal, 1),
	}
}

// Start subscribes to SIGCHLD and launches the collector goroutine.
func (r *Reaper) Start() {
	signal.Notify(r.sigs, unix.SIGCHLD)
	go r.run()
}

// Stop unsubscribes and shuts the collector down.
func (r *Reaper) Stop() {
	signal.Stop(r.sigs)
	close(r.sigs)
}

// Events exposes the queue for the control goroutine's blocking foreground
// waits. There must be exactly one consumer.
func (r *Reaper) Events() <-chan Event { return r.events }

// Dropped reports how many events were discarded on queue overflow.
func (r *Reaper) Dropped() uint64 { return r.dropped.Load() }

// Drain applies all pending events to the table without blocking.
func (r *Reaper) Drain(t *job.Table) {
	for {
		select {
		case ev := <-r.events:
			t.Update(ev.Pid, ev.Status)
		default:
			return
		}
	}
}

func (r *Reaper) run() {
	for range r.sigs {
		r.collect()
	}
}

// collect reaps every pending state change. SIGCHLD coalesces, so one
// wakeup may cover several children.
func (r *Reaper) collect() {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err == unix.EINTR {
			continue
		}
		if pid <= 0 || err != nil {
			return
		}
		select {
		case r.events <- Event{Pid: pid, Status: ws}:
		default:
			r.dropped.Add(1)
		}
	}
}

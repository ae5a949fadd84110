// Package term models controlling-terminal ownership as a single value with
// scoped transfer. The shell gives the terminal to a foreground process
// group for the duration of a wait and always reclaims it, including on
// error paths. Everything degrades to a no-op when stdin is not a terminal.
package term

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	xterm "golang.org/x/term"
)

// Controller manages which process group owns the controlling terminal.
// It must only be used from the shell's control goroutine.
type Controller struct {
	fd          int
	shellPGID   int
	interactive bool
}

// NewController wraps the given tty (normally os.Stdin).
func NewController(tty *os.File) *Controller {
	fd := int(tty.Fd())
	return &Controller{
		fd:          fd,
		shellPGID:   unix.Getpgrp(),
		interactive: xterm.IsTerminal(fd),
	}
}

// Interactive reports whether the controller sits on a real terminal.
func (c *Controller) Interactive() bool { return c.interactive }

// ShellPGID returns the shell's own process group id.
func (c *Controller) ShellPGID() int { return c.shellPGID }

// Claim puts the shell in its own process group and takes the terminal.
// Called once at startup. Setpgid fails for an existing session leader,
// which is fine: the group already exists.
func (c *Controller) Claim() {
	// reclaiming the terminal from a process group we are not part of
	// raises SIGTTOU, which would stop the shell itself
	signal.Ignore(unix.SIGTTOU)
	_ = unix.Setpgid(0, 0)
	c.shellPGID = unix.Getpgrp()
	c.Reclaim()
}

// Give hands the terminal to pgid.
func (c *Controller) Give(pgid int) {
	if !c.interactive {
		return
	}
	_ = unix.IoctlSetPointerInt(c.fd, unix.TIOCSPGRP, pgid)
}

// Reclaim returns the terminal to the shell's own group.
func (c *Controller) Reclaim() {
	c.Give(c.shellPGID)
}

// WithOwner runs fn with the terminal owned by pgid and reclaims it no
// matter how fn returns.
func (c *Controller) WithOwner(pgid int, fn func() error) error {
	c.Give(pgid)
	defer c.Reclaim()
	return fn()
}

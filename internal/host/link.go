package host

import (
	"context"

	"github.com/nerrad567/carrier-core/internal/process"
)

// Daemon is the supervised link process.
type Daemon interface {
	Start() error
	Stop() error
	Running() bool
}

var _ Daemon = (*process.Supervisor)(nil)

// ProcessLink runs a daemon while the link is up.
type ProcessLink struct {
	daemon Daemon
}

// NewProcessLink creates a link controller around daemon.
func NewProcessLink(daemon Daemon) *ProcessLink {
	return &ProcessLink{daemon: daemon}
}

// LinkUp starts the daemon unless it is already running.
func (l *ProcessLink) LinkUp(context.Context) error {
	if l.daemon.Running() {
		return nil
	}
	return l.daemon.Start()
}

// LinkDown stops the daemon.
func (l *ProcessLink) LinkDown(context.Context) error {
	return l.daemon.Stop()
}

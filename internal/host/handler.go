package host

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/nerrad567/carrier-core/internal/event"
)

// Logger defines the logging interface used by the host handler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// LinkController follows the LTE link state.
type LinkController interface {
	LinkUp(ctx context.Context) error
	LinkDown(ctx context.Context) error
}

// Config controls how the handler answers REBOOT.
type Config struct {
	// TakeOverReboot makes the handler answer HostIntervenes and restart
	// the process itself after RebootDelay.
	TakeOverReboot bool
	RebootDelay    time.Duration
}

// Handler is the host's event handler.
//
// It logs every event, drives the link controller and owns the restart
// requested by REBOOT. Restart is a callback so the process entry point
// decides what restarting means.
type Handler struct {
	cfg     Config
	link    LinkController
	restart func()
	logger  Logger

	mu     sync.Mutex
	timer  *time.Timer
	counts map[event.Kind]uint64
}

// NewHandler creates a host handler.
//
// Parameters:
//   - cfg: Reboot behaviour
//   - link: Link controller (nil when no link daemon is configured)
//   - restart: Called once when a reboot is carried out (nil to only log)
func NewHandler(cfg Config, link LinkController, restart func()) *Handler {
	if cfg.RebootDelay < 0 {
		cfg.RebootDelay = 0
	}
	return &Handler{
		cfg:     cfg,
		link:    link,
		restart: restart,
		logger:  noopLogger{},
		counts:  make(map[event.Kind]uint64),
	}
}

// SetLogger sets the logger for the handler.
func (h *Handler) SetLogger(logger Logger) {
	h.logger = logger
}

// HandleEvent implements event.Handler.
func (h *Handler) HandleEvent(ctx context.Context, e event.Event) event.RebootDecision {
	h.mu.Lock()
	h.counts[e.Kind]++
	h.mu.Unlock()

	switch e.Kind {
	case event.KindInit:
		h.logger.Info("carrier initialized")

	case event.KindLinkUp:
		h.logger.Info("LTE link up requested")
		if h.link != nil {
			if err := h.link.LinkUp(ctx); err != nil {
				h.logger.Error("bringing link up", "error", err)
			}
		}

	case event.KindLinkDown, event.KindPowerOff:
		h.logger.Info("LTE link down requested", "event", e.Kind.String())
		if h.link != nil {
			if err := h.link.LinkDown(ctx); err != nil {
				h.logger.Error("taking link down", "error", err)
			}
		}

	case event.KindBootstrapped:
		h.logger.Info("bootstrap complete")

	case event.KindRegistered:
		h.logger.Info("registered with server")

	case event.KindDeferred:
		if p, ok := e.Payload.(event.Deferred); ok {
			h.logger.Warn("connection deferred", "reason", p.Reason.String(), "timeout_s", p.Timeout)
		}

	case event.KindFOTAStart:
		if p, ok := e.Payload.(event.FOTAStart); ok {
			h.logger.Info("firmware update started", "type", p.Type.String(), "uri", p.URI)
		}

	case event.KindReboot:
		return h.handleReboot()

	case event.KindModemDomain:
		if p, ok := e.Payload.(event.ModemDomain); ok {
			h.logger.Warn("modem domain event", "modem_event", p.Event.String())
		}

	case event.KindAppData:
		if p, ok := e.Payload.(event.AppData); ok {
			h.logger.Info("app data received", "bytes", len(p.Data))
		}

	case event.KindError:
		if p, ok := e.Payload.(event.ErrorInfo); ok {
			h.logger.Error("carrier error", "type", p.Type.String(), "value", p.Value, "fota", p.Type.IsFOTA())
		}
	}

	return event.ProceedAutonomously
}

func (h *Handler) handleReboot() event.RebootDecision {
	if !h.cfg.TakeOverReboot {
		h.logger.Info("reboot requested, letting runtime proceed")
		return event.ProceedAutonomously
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.timer != nil {
		h.logger.Debug("reboot already scheduled")
		return event.HostIntervenes
	}
	h.logger.Info("reboot requested, restarting later", "delay", h.cfg.RebootDelay)
	h.timer = time.AfterFunc(h.cfg.RebootDelay, h.doRestart)
	return event.HostIntervenes
}

func (h *Handler) doRestart() {
	h.logger.Warn("restarting")
	if h.restart != nil {
		h.restart()
	}
}

// Rebooter returns the Rebooter the dispatcher runs when the handler lets
// the runtime proceed with a reboot.
func (h *Handler) Rebooter() event.Rebooter {
	return event.RebootFunc(func(context.Context) error {
		h.doRestart()
		return nil
	})
}

// RestartPending reports whether a delayed restart is scheduled.
func (h *Handler) RestartPending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timer != nil
}

// CancelRestart stops a scheduled restart. It reports whether one was pending
// and had not fired yet.
func (h *Handler) CancelRestart() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer == nil {
		return false
	}
	stopped := h.timer.Stop()
	h.timer = nil
	return stopped
}

// Counts returns how many events of each kind the handler has seen.
func (h *Handler) Counts() map[event.Kind]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return maps.Clone(h.counts)
}

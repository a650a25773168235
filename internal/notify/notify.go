// Package notify delivers the engine's transient user-visible notices.
// Notices go out on the event bus for the embedding UI to render as toasts;
// optionally they are mirrored to desktop notifications via
// github.com/gen2brain/beeep. Every handled error path in the engine produces
// exactly one notice through this package.
package notify

import (
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/swdepot/depot-engine/internal/config"
	"github.com/swdepot/depot-engine/internal/events"
	"github.com/swdepot/depot-engine/internal/logging"
)

// Notifier publishes user-visible notices.
type Notifier struct {
	bus     *events.Bus
	logger  *logging.Logger
	mu      sync.RWMutex
	enabled bool
	desktop bool
}

// NewNotifier creates a notifier bound to the given bus.
func NewNotifier(cfg config.NotificationConfig, bus *events.Bus, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewLogger("notify")
	}
	return &Notifier{
		bus:     bus,
		logger:  logger,
		enabled: cfg.Enabled,
		desktop: cfg.Desktop,
	}
}

// SetEnabled enables or disables all notices.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notices are emitted.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// Success emits a success notice.
func (n *Notifier) Success(message string) {
	n.emit(events.NoticeSuccess, message)
}

// Warn emits a warning notice.
func (n *Notifier) Warn(message string) {
	n.emit(events.NoticeWarning, message)
}

// Error emits an error notice.
func (n *Notifier) Error(message string) {
	n.emit(events.NoticeError, message)
}

func (n *Notifier) emit(level events.NoticeLevel, message string) {
	if !n.IsEnabled() {
		return
	}

	n.logger.Debug().Str("level", level.String()).Str("message", message).Msg("Notice")

	if n.bus != nil {
		n.bus.PublishNotice(level, message)
	}

	n.mu.RLock()
	desktop := n.desktop
	n.mu.RUnlock()
	if desktop {
		if err := beeep.Notify("Depot", truncate(message, 200), ""); err != nil {
			n.logger.Warn().Err(err).Msg("Failed to send desktop notification")
		}
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

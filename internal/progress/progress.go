// Package progress defines how chunked upload progress reaches the user.
package progress

import (
	"github.com/swdepot/depot-engine/internal/events"
)

// Sink receives monotonic progress updates from an upload session.
type Sink interface {
	// Update reports overall progress as a percentage in [0, 100].
	Update(percent int)

	// Done marks the operation finished; err is nil on success.
	Done(err error)
}

// Func adapts a plain function to a Sink with a no-op Done.
type Func func(percent int)

func (f Func) Update(percent int) { f(percent) }
func (f Func) Done(error)         {}

// Nop is a sink that discards all updates.
var Nop Sink = nopSink{}

type nopSink struct{}

func (nopSink) Update(int) {}
func (nopSink) Done(error) {}

// BusSink forwards progress to the event bus so list views and transfer
// panels can render it.
type BusSink struct {
	Bus       *events.Bus
	SessionID string
	Name      string
	Total     int

	sent int
}

// Update publishes an upload progress event.
func (s *BusSink) Update(percent int) {
	if s.Bus == nil {
		return
	}
	s.sent++
	s.Bus.PublishUpload(events.EventUploadProgress, s.SessionID, s.Name, s.sent, s.Total, percent, nil)
}

// Done publishes the terminal upload event.
func (s *BusSink) Done(err error) {
	if s.Bus == nil {
		return
	}
	eventType := events.EventUploadCompleted
	percent := 100
	if err != nil {
		eventType = events.EventUploadFailed
		percent = 0
	}
	s.Bus.PublishUpload(eventType, s.SessionID, s.Name, s.sent, s.Total, percent, err)
}

// Multi fans updates out to several sinks.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Update(percent int) {
	for _, s := range m {
		s.Update(percent)
	}
}

func (m multiSink) Done(err error) {
	for _, s := range m {
		s.Done(err)
	}
}

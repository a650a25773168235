// Package upload implements the chunked, resumable-transfer orchestrator
// used for large file uploads. A session splits its source into ordered
// chunks, transmits them strictly sequentially with per-chunk metadata, and
// reports monotonic progress. A chunk failure fails the whole session; the
// caller starts a fresh session rather than resuming from a partial offset.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/swdepot/depot-engine/internal/api"
	"github.com/swdepot/depot-engine/internal/events"
	"github.com/swdepot/depot-engine/internal/logging"
	"github.com/swdepot/depot-engine/internal/models"
	"github.com/swdepot/depot-engine/internal/progress"
)

// Status is the session state machine:
// Idle → Sending → Completed | Failed.
type Status int

const (
	StatusIdle Status = iota
	StatusSending
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSending:
		return "sending"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptySource is returned when the session has nothing to send.
	ErrEmptySource = errors.New("upload source is empty")

	// ErrInvalidChunkSize is returned for a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrSessionConsumed is returned when Run is called on a session that
	// already ran. Sessions are single-use; a failed upload restarts with a
	// fresh session from chunk zero.
	ErrSessionConsumed = errors.New("upload session already consumed")

	// ErrMissingFinalItem is returned when the final chunk is acknowledged
	// without the materialized item.
	ErrMissingFinalItem = errors.New("server did not return the finished item after the final chunk")
)

// ChunkSender transmits one chunk. *api.Client satisfies it.
type ChunkSender interface {
	UploadChunk(ctx context.Context, req api.ChunkRequest) (*models.ContentItem, error)
}

// Params configures a Session.
type Params struct {
	Kind      models.ItemKind
	FileName  string
	Source    io.Reader
	TotalSize int64

	// ChunkSize is fixed for the lifetime of the session.
	ChunkSize int64

	// Payload is the item's resolved metadata, carried on every chunk.
	Payload api.ItemPayload

	Client ChunkSender

	// Guards are installed while the session is sending and released
	// unconditionally on completion or failure.
	Guards []Guard

	// Progress receives percentage updates after each acknowledged chunk.
	Progress progress.Sink

	// Bus, when set, additionally receives upload events.
	Bus *events.Bus

	Logger *logging.Logger
}

// Session is one chunked upload. Exactly one session is active per form
// instance; a session runs once and is then discarded.
type Session struct {
	id          string
	params      Params
	totalChunks int

	mu         sync.Mutex
	status     Status
	chunksSent int
	percent    int
	consumed   bool
}

// NewSession validates params and creates an idle session. Total chunk count
// is ceil(TotalSize / ChunkSize).
func NewSession(params Params) (*Session, error) {
	if params.TotalSize <= 0 {
		return nil, ErrEmptySource
	}
	if params.ChunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if params.Client == nil {
		return nil, errors.New("chunk sender is required")
	}
	if params.Logger == nil {
		params.Logger = logging.NewLogger("upload")
	}
	if params.Progress == nil {
		params.Progress = progress.Nop
	}

	totalChunks := int((params.TotalSize + params.ChunkSize - 1) / params.ChunkSize)

	return &Session{
		id:          uuid.NewString(),
		params:      params,
		totalChunks: totalChunks,
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// TotalChunks returns the fixed chunk count for this session.
func (s *Session) TotalChunks() int { return s.totalChunks }

// Status returns the current session status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ChunksSent returns how many chunks have been acknowledged.
func (s *Session) ChunksSent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunksSent
}

// ProgressPercent returns the last reported progress in [0, 100]. It is
// monotonically non-decreasing and reaches exactly 100 only on completion.
func (s *Session) ProgressPercent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.percent
}

// Active reports whether the session is mid-transfer. Host unload
// interceptors consult this to decide whether to prompt.
func (s *Session) Active() bool {
	return s.Status() == StatusSending
}

// Run transmits all chunks sequentially and returns the fully materialized
// item, identical in shape to a single-shot create. On any chunk error the
// session transitions to Failed, no further chunks are sent, and the session
// cannot be rerun; the caller starts over with a fresh session.
//
// The context is honored by the transport, so a host that wants hard
// cancellation can cancel it; the installed guards themselves stay advisory.
func (s *Session) Run(ctx context.Context) (*models.ContentItem, error) {
	s.mu.Lock()
	if s.consumed {
		s.mu.Unlock()
		return nil, ErrSessionConsumed
	}
	s.consumed = true
	s.status = StatusSending
	s.mu.Unlock()

	for _, g := range s.params.Guards {
		g.Install()
	}
	// Guards come down no matter how the session ends.
	defer func() {
		for _, g := range s.params.Guards {
			g.Release()
		}
	}()

	s.params.Logger.Info().
		Str("session", s.id).
		Str("file", s.params.FileName).
		Int("chunks", s.totalChunks).
		Int64("size", s.params.TotalSize).
		Msg("Chunked upload started")

	item, err := s.send(ctx)
	if err != nil {
		s.setStatus(StatusFailed)
		s.params.Progress.Done(err)
		s.publish(events.EventUploadFailed, err)
		s.params.Logger.Error().Str("session", s.id).Err(err).Msg("Chunked upload failed")
		return nil, err
	}

	s.setStatus(StatusCompleted)
	s.params.Progress.Done(nil)
	s.publish(events.EventUploadCompleted, nil)
	s.params.Logger.Info().Str("session", s.id).Str("file", s.params.FileName).Msg("Chunked upload completed")
	return item, nil
}

func (s *Session) send(ctx context.Context) (*models.ContentItem, error) {
	buf := make([]byte, s.params.ChunkSize)
	remaining := s.params.TotalSize

	var final *models.ContentItem
	for i := 0; i < s.totalChunks; i++ {
		size := s.params.ChunkSize
		if remaining < size {
			size = remaining
		}
		if _, err := io.ReadFull(s.params.Source, buf[:size]); err != nil {
			return nil, fmt.Errorf("failed to read chunk %d: %w", i, err)
		}
		remaining -= size

		item, err := s.params.Client.UploadChunk(ctx, api.ChunkRequest{
			Kind:        s.params.Kind,
			ChunkIndex:  i,
			TotalChunks: s.totalChunks,
			Payload:     s.params.Payload,
			FileName:    s.params.FileName,
			Data:        buf[:size],
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, s.totalChunks, err)
		}
		final = item

		s.advance(i + 1)
	}

	if final == nil {
		return nil, ErrMissingFinalItem
	}
	return final, nil
}

// advance records an acknowledged chunk and reports progress as
// floor(sent/total*100).
func (s *Session) advance(sent int) {
	percent := sent * 100 / s.totalChunks

	s.mu.Lock()
	s.chunksSent = sent
	if percent > s.percent {
		s.percent = percent
	}
	percent = s.percent
	s.mu.Unlock()

	s.params.Progress.Update(percent)
	if s.params.Bus != nil {
		s.params.Bus.PublishUpload(events.EventUploadProgress, s.id, s.params.FileName, sent, s.totalChunks, percent, nil)
	}
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Session) publish(eventType events.EventType, err error) {
	if s.params.Bus == nil {
		return
	}
	s.mu.Lock()
	sent, percent := s.chunksSent, s.percent
	s.mu.Unlock()
	s.params.Bus.PublishUpload(eventType, s.id, s.params.FileName, sent, s.totalChunks, percent, err)
}

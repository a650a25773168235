package upload

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/swdepot/depot-engine/internal/api"
	"github.com/swdepot/depot-engine/internal/logging"
	"github.com/swdepot/depot-engine/internal/models"
	"github.com/swdepot/depot-engine/internal/progress"
)

// fakeSender records chunk requests and can fail at a fixed index.
type fakeSender struct {
	calls  []api.ChunkRequest
	data   [][]byte
	failAt int // chunk index to fail at; -1 disables
	item   *models.ContentItem
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		failAt: -1,
		item:   &models.ContentItem{ID: 1, Kind: models.KindDocument, DisplayName: "big.iso"},
	}
}

func (f *fakeSender) UploadChunk(_ context.Context, req api.ChunkRequest) (*models.ContentItem, error) {
	if req.ChunkIndex == f.failAt {
		return nil, errors.New("storage backend unavailable")
	}
	f.calls = append(f.calls, req)
	f.data = append(f.data, append([]byte(nil), req.Data...))
	if req.ChunkIndex == req.TotalChunks-1 {
		return f.item, nil
	}
	return nil, nil
}

// recordingSink captures every progress update.
type recordingSink struct {
	updates []int
	doneErr []error
}

func (r *recordingSink) Update(percent int) { r.updates = append(r.updates, percent) }
func (r *recordingSink) Done(err error)     { r.doneErr = append(r.doneErr, err) }

func newSession(t *testing.T, sender ChunkSender, totalSize, chunkSize int64, sink progress.Sink, guards ...Guard) *Session {
	t.Helper()
	s, err := NewSession(Params{
		Kind:      models.KindDocument,
		FileName:  "big.iso",
		Source:    bytes.NewReader(bytes.Repeat([]byte("x"), int(totalSize))),
		TotalSize: totalSize,
		ChunkSize: chunkSize,
		Payload:   api.ItemPayload{SoftwareID: 1, Title: "big.iso", Version: models.ExistingVersion(2)},
		Client:    sender,
		Guards:    guards,
		Progress:  sink,
		Logger:    logging.Nop(),
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s
}

func TestTotalChunksIsCeiling(t *testing.T) {
	const chunkSize = 4
	s := newSession(t, newFakeSender(), 10*chunkSize+1, chunkSize, progress.Nop)
	if s.TotalChunks() != 11 {
		t.Errorf("TotalChunks() = %d, want 11", s.TotalChunks())
	}
}

func TestProgressIsFloorAndReaches100OnlyAtEnd(t *testing.T) {
	const chunkSize = 4
	sink := &recordingSink{}
	sender := newFakeSender()
	s := newSession(t, sender, 10*chunkSize+1, chunkSize, sink)

	item, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if item == nil || item.ID != 1 {
		t.Fatalf("item = %+v, want the materialized item", item)
	}

	want := make([]int, 11)
	for i := 1; i <= 11; i++ {
		want[i-1] = i * 100 / 11
	}
	if len(sink.updates) != len(want) {
		t.Fatalf("updates = %v, want %d entries", sink.updates, len(want))
	}
	prev := -1
	for i, got := range sink.updates {
		if got != want[i] {
			t.Errorf("update[%d] = %d, want %d", i, got, want[i])
		}
		if got < prev {
			t.Errorf("progress went backwards at %d: %d < %d", i, got, prev)
		}
		if got == 100 && i != len(sink.updates)-1 {
			t.Errorf("progress hit 100 at update %d before completion", i)
		}
		prev = got
	}
	if sink.updates[len(sink.updates)-1] != 100 {
		t.Errorf("final update = %d, want exactly 100", sink.updates[len(sink.updates)-1])
	}
	if s.Status() != StatusCompleted {
		t.Errorf("status = %v, want completed", s.Status())
	}
}

func TestLastChunkCarriesRemainder(t *testing.T) {
	const chunkSize = 4
	sender := newFakeSender()
	s := newSession(t, sender, 10*chunkSize+1, chunkSize, progress.Nop)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sender.data) != 11 {
		t.Fatalf("chunks sent = %d, want 11", len(sender.data))
	}
	for i := 0; i < 10; i++ {
		if len(sender.data[i]) != chunkSize {
			t.Errorf("chunk %d size = %d, want %d", i, len(sender.data[i]), chunkSize)
		}
	}
	if len(sender.data[10]) != 1 {
		t.Errorf("last chunk size = %d, want 1", len(sender.data[10]))
	}
}

func TestChunkMetadataCarriedOnEveryChunk(t *testing.T) {
	sender := newFakeSender()
	s := newSession(t, sender, 10, 4, progress.Nop)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i, call := range sender.calls {
		if call.ChunkIndex != i {
			t.Errorf("call %d index = %d", i, call.ChunkIndex)
		}
		if call.TotalChunks != 3 {
			t.Errorf("call %d totalChunks = %d, want 3", i, call.TotalChunks)
		}
		if call.FileName != "big.iso" || call.Payload.SoftwareID != 1 {
			t.Errorf("call %d lost metadata: %+v", i, call)
		}
	}
}

func TestChunkFailureStopsSession(t *testing.T) {
	const failIndex = 3
	sender := newFakeSender()
	sender.failAt = failIndex
	sink := &recordingSink{}
	s := newSession(t, sender, 44, 4, sink)

	_, err := s.Run(context.Background())
	if err == nil {
		t.Fatal("Run() should fail when a chunk fails")
	}
	if s.Status() != StatusFailed {
		t.Errorf("status = %v, want failed", s.Status())
	}
	if s.ChunksSent() != failIndex {
		t.Errorf("ChunksSent() = %d, want %d (no chunk after the failure)", s.ChunksSent(), failIndex)
	}
	if len(sender.calls) != failIndex {
		t.Errorf("sender saw %d chunks, want %d", len(sender.calls), failIndex)
	}
	if len(sink.doneErr) != 1 || sink.doneErr[0] == nil {
		t.Errorf("sink.Done should be called once with the error, got %v", sink.doneErr)
	}
}

func TestGuardsReleasedUnconditionally(t *testing.T) {
	runs := []struct {
		name   string
		failAt int
	}{
		{"success", -1},
		{"chunk failure", 1},
	}
	for _, tt := range runs {
		t.Run(tt.name, func(t *testing.T) {
			installed, released := 0, 0
			guard := GuardFuncs{
				OnInstall: func() { installed++ },
				OnRelease: func() { released++ },
			}
			sender := newFakeSender()
			sender.failAt = tt.failAt
			s := newSession(t, sender, 12, 4, progress.Nop, guard)

			_, _ = s.Run(context.Background())
			if installed != 1 || released != 1 {
				t.Errorf("guard installed=%d released=%d, want 1/1", installed, released)
			}
			if s.Active() {
				t.Error("session must not stay active after Run returns")
			}
		})
	}
}

func TestSessionIsSingleUse(t *testing.T) {
	s := newSession(t, newFakeSender(), 8, 4, progress.Nop)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrSessionConsumed) {
		t.Errorf("second Run() = %v, want ErrSessionConsumed", err)
	}
}

func TestMissingFinalItemFailsSession(t *testing.T) {
	sender := newFakeSender()
	sender.item = nil
	s := newSession(t, sender, 8, 4, progress.Nop)

	_, err := s.Run(context.Background())
	if !errors.Is(err, ErrMissingFinalItem) {
		t.Errorf("Run() = %v, want ErrMissingFinalItem", err)
	}
	if s.Status() != StatusFailed {
		t.Errorf("status = %v, want failed", s.Status())
	}
}

func TestNewSessionValidation(t *testing.T) {
	if _, err := NewSession(Params{TotalSize: 0, ChunkSize: 4, Client: newFakeSender()}); !errors.Is(err, ErrEmptySource) {
		t.Errorf("empty source: %v", err)
	}
	if _, err := NewSession(Params{TotalSize: 4, ChunkSize: 0, Client: newFakeSender()}); !errors.Is(err, ErrInvalidChunkSize) {
		t.Errorf("zero chunk size: %v", err)
	}
}

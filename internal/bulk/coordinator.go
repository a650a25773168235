package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/swdepot/depot-engine/internal/api"
	"github.com/swdepot/depot-engine/internal/events"
	"github.com/swdepot/depot-engine/internal/logging"
	"github.com/swdepot/depot-engine/internal/models"
)

var (
	// ErrEmptySelection is returned when a bulk operation is invoked with
	// nothing selected.
	ErrEmptySelection = errors.New("nothing selected")

	// ErrNothingDownloadable is returned when the local downloadability
	// filter leaves the selection empty; no request is issued.
	ErrNothingDownloadable = errors.New("no downloadable items in selection")
)

// API is the slice of the portal client the coordinator drives.
// *api.Client satisfies it.
type API interface {
	BulkDelete(ctx context.Context, kind models.ItemKind, ids []int) (int, error)
	BulkMove(ctx context.Context, kind models.ItemKind, ids []int, targetVersionID int) (*models.BulkOperationResult, error)
	BulkDownload(ctx context.Context, kind models.ItemKind, ids []int) (io.ReadCloser, error)
}

// Notices is the toast surface the coordinator reports through.
// notify.Notifier satisfies it.
type Notices interface {
	Success(message string)
	Warn(message string)
	Error(message string)
}

// Query captures the list view parameters whose change invalidates the
// selection: filter, sort, search text, and page.
type Query struct {
	Filter  string
	Search  string
	SortKey string
	SortDir string
	Page    int
}

// ArchiveSink receives the bulk-download archive stream under its suggested
// name. The host typically hands it straight to the user's save dialog or
// browser download; nothing is persisted by the engine.
type ArchiveSink func(name string, r io.Reader) error

// Coordinator manages one list view's selection set and drives bulk
// delete / move / download against it, interpreting partial-success
// responses through the conflict reporter.
type Coordinator struct {
	api     API
	notices Notices
	bus     *events.Bus
	logger  *logging.Logger

	selection *SelectionSet
	query     Query

	// items is the read-only snapshot of the currently visible items,
	// keyed by id. The engine never mutates them.
	items map[int]models.ContentItem
}

// NewCoordinator creates a coordinator for one list view.
func NewCoordinator(kind models.ItemKind, apiClient API, notices Notices, bus *events.Bus, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewLogger("bulk")
	}
	return &Coordinator{
		api:       apiClient,
		notices:   notices,
		bus:       bus,
		logger:    logger,
		selection: NewSelectionSet(kind),
		items:     make(map[int]models.ContentItem),
	}
}

// Selection exposes the coordinator's selection set for row-level toggles
// and select-all-visible.
func (c *Coordinator) Selection() *SelectionSet {
	return c.selection
}

// SetItems replaces the visible-item snapshot the coordinator filters
// against. Items of a foreign kind are ignored.
func (c *Coordinator) SetItems(visible []models.ContentItem) {
	c.items = make(map[int]models.ContentItem, len(visible))
	for _, item := range visible {
		if item.Kind == c.selection.Kind() {
			c.items[item.ID] = item
		}
	}
}

// SetQuery records the list view's query parameters. Any change clears the
// selection so a stale set can never be submitted against a different
// listing.
func (c *Coordinator) SetQuery(query Query) {
	if query == c.query {
		return
	}
	c.query = query
	c.clearSelection("query_changed")
}

// SetKind switches the list view to a different content kind, which empties
// the selection (the identity space changed).
func (c *Coordinator) SetKind(kind models.ItemKind) {
	if kind == c.selection.Kind() {
		return
	}
	c.selection.SetKind(kind)
	c.publishCleared("kind_changed")
}

// Delete removes every selected item in one request and returns the
// server-reported count. Delete is all-or-counted; no per-item conflict
// shape is expected.
func (c *Coordinator) Delete(ctx context.Context) (int, error) {
	ids := c.selection.IDs()
	if len(ids) == 0 {
		c.notices.Warn("Nothing selected.")
		return 0, ErrEmptySelection
	}

	deleted, err := c.api.BulkDelete(ctx, c.selection.Kind(), ids)
	if err != nil {
		c.notices.Error(fmt.Sprintf("Delete failed: %v", err))
		return 0, err
	}

	c.logger.Info().Int("requested", len(ids)).Int("deleted", deleted).Msg("Bulk delete completed")
	c.notices.Success(fmt.Sprintf("Deleted %d item(s).", deleted))
	c.clearSelection("bulk_completed")
	return deleted, nil
}

// Move relocates every selected item to the target version in one request.
// Items whose name collides with an existing item in the target version are
// rejected per-item; the result reports the rejected subset and the items
// that did succeed stay moved.
func (c *Coordinator) Move(ctx context.Context, targetVersionID int) (*models.BulkOperationResult, error) {
	ids := c.selection.IDs()
	if len(ids) == 0 {
		c.notices.Warn("Nothing selected.")
		return nil, ErrEmptySelection
	}

	result, err := c.api.BulkMove(ctx, c.selection.Kind(), ids, targetVersionID)
	if err != nil {
		// A raw uniqueness-constraint failure without structured detail gets
		// a friendlier message, distinct from the per-item conflict path.
		if api.IsNameConflictError(err) {
			c.notices.Error("Move failed: an item with the same name already exists in the target version.")
		} else {
			c.notices.Error(fmt.Sprintf("Move failed: %v", err))
		}
		return nil, err
	}

	c.logger.Info().
		Int("requested", len(ids)).
		Int("moved", result.SuccessCount).
		Int("conflicted", len(result.Conflicted)).
		Msg("Bulk move completed")

	summary := SummarizeMove(*result)
	switch {
	case result.FailedEntirely:
		// Nothing moved, so the listing is unchanged and the selection
		// stays valid for a retry against a different target.
		c.notices.Error(summary)
		return result, nil
	case result.Partial():
		c.notices.Warn(summary)
	default:
		c.notices.Success(summary)
	}
	c.clearSelection("bulk_completed")
	return result, nil
}

// Download streams an archive of the downloadable subset of the selection to
// sink. Items that are external links or flagged non-downloadable are
// filtered out locally; an empty filtered set is refused client-side with an
// explanatory notice and no request. Downloading does not invalidate the
// listing, so the selection survives.
func (c *Coordinator) Download(ctx context.Context, sink ArchiveSink) error {
	ids := c.selection.IDs()
	if len(ids) == 0 {
		c.notices.Warn("Nothing selected.")
		return ErrEmptySelection
	}

	downloadable := make([]int, 0, len(ids))
	for _, id := range ids {
		if item, ok := c.items[id]; ok && item.Downloadable() {
			downloadable = append(downloadable, id)
		}
	}
	if len(downloadable) == 0 {
		c.notices.Warn("None of the selected items can be downloaded: external links and non-downloadable items are excluded.")
		return ErrNothingDownloadable
	}

	stream, err := c.api.BulkDownload(ctx, c.selection.Kind(), downloadable)
	if err != nil {
		c.notices.Error(fmt.Sprintf("Download failed: %v", err))
		return err
	}
	defer stream.Close()

	name := archiveName(c.selection.Kind(), time.Now())
	if err := sink(name, stream); err != nil {
		c.notices.Error(fmt.Sprintf("Download failed: %v", err))
		return err
	}

	excluded := len(ids) - len(downloadable)
	c.logger.Info().Int("items", len(downloadable)).Int("excluded", excluded).Str("archive", name).Msg("Bulk download delivered")
	c.notices.Success(SummarizeDownload(name, len(downloadable), excluded))
	return nil
}

func (c *Coordinator) clearSelection(reason string) {
	c.selection.Clear()
	c.publishCleared(reason)
}

func (c *Coordinator) publishCleared(reason string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(&events.SelectionEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventSelectionCleared, Time: time.Now()},
		Reason:    reason,
	})
}

// archiveName builds the timestamped archive filename for a bulk download.
func archiveName(kind models.ItemKind, now time.Time) string {
	return fmt.Sprintf("depot-%s-%s.zip", kind.Path(), now.Format("20060102-150405"))
}

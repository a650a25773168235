package favorite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/swdepot/depot-engine/internal/events"
	"github.com/swdepot/depot-engine/internal/logging"
	"github.com/swdepot/depot-engine/internal/models"
)

// ErrTogglePending is returned when a toggle is initiated while a previous
// toggle on the same item is still in flight. The UI is expected to disable
// the control while pending; the tracker rejects the call instead of
// serializing it.
var ErrTogglePending = errors.New("favorite toggle already in flight for this item")

// API is the favorites slice of the portal client. *api.Client satisfies it.
type API interface {
	AddFavorite(ctx context.Context, itemID int, kind models.ItemKind) (int, error)
	RemoveFavorite(ctx context.Context, favoriteID int) error
}

// Notices is the error toast surface. notify.Notifier satisfies it.
type Notices interface {
	Error(message string)
}

// Key identifies an item across kinds.
type Key struct {
	ID   int
	Kind models.ItemKind
}

// Tracker tracks per-item favorite state with optimistic updates. Safe for
// concurrent use; independent items may toggle concurrently.
type Tracker struct {
	api     API
	notices Notices
	bus     *events.Bus
	logger  *logging.Logger

	mu     sync.Mutex
	states map[Key]models.FavoriteState
}

// NewTracker creates a tracker with no known state.
func NewTracker(apiClient API, notices Notices, bus *events.Bus, logger *logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewLogger("favorite")
	}
	return &Tracker{
		api:     apiClient,
		notices: notices,
		bus:     bus,
		logger:  logger,
		states:  make(map[Key]models.FavoriteState),
	}
}

// Seed installs server truth for an item, typically from the listing
// payload. favoriteID <= 0 means not favorited.
func (t *Tracker) Seed(item models.ContentItem, favoriteID int) {
	state := models.FavoriteAbsent()
	if favoriteID > 0 {
		state = models.Favorited(favoriteID)
	}
	t.mu.Lock()
	t.states[Key{item.ID, item.Kind}] = state
	t.mu.Unlock()
}

// State returns the current (possibly speculative) state for an item.
func (t *Tracker) State(item models.ContentItem) models.FavoriteState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[Key{item.ID, item.Kind}]
}

// Toggle flips the favorite state of one item. The speculative local state
// is visible through State before the network call resolves: a favorited
// item optimistically becomes absent, an absent one becomes pending. On
// success the server truth is committed; on failure the state rolls back to
// exactly the pre-toggle value and one error notice is emitted.
func (t *Tracker) Toggle(ctx context.Context, item models.ContentItem) (models.FavoriteState, error) {
	key := Key{item.ID, item.Kind}

	t.mu.Lock()
	prev := t.states[key]
	if prev.IsPending() {
		t.mu.Unlock()
		return prev, ErrTogglePending
	}
	t.mu.Unlock()

	var mutation Mutation
	if favoriteID, ok := prev.FavoriteID(); ok {
		mutation = t.removeMutation(key, item, prev, favoriteID)
	} else {
		mutation = t.addMutation(key, item, prev)
	}

	if err := mutation.Run(ctx); err != nil {
		t.notices.Error(fmt.Sprintf("Could not update favorite for %q: %v", item.DisplayName, err))
		return t.State(item), err
	}
	return t.State(item), nil
}

// removeMutation unfavorites: optimistically absent, rolled back to the
// previous concrete id on failure.
func (t *Tracker) removeMutation(key Key, item models.ContentItem, prev models.FavoriteState, favoriteID int) Mutation {
	return Mutation{
		Apply: func() {
			t.setState(key, models.FavoriteAbsent())
		},
		Call: func(ctx context.Context) error {
			return t.api.RemoveFavorite(ctx, favoriteID)
		},
		Commit: func() {
			t.publish(item, models.FavoriteAbsent())
			t.logger.Debug().Int("item", item.ID).Msg("Favorite removed")
		},
		Rollback: func() {
			t.setState(key, prev)
		},
	}
}

// addMutation favorites: pending while in flight, committed to the
// server-assigned id, rolled back to absent on failure.
func (t *Tracker) addMutation(key Key, item models.ContentItem, prev models.FavoriteState) Mutation {
	var assigned int
	return Mutation{
		Apply: func() {
			t.setState(key, models.FavoritePending())
		},
		Call: func(ctx context.Context) error {
			id, err := t.api.AddFavorite(ctx, item.ID, item.Kind)
			if err != nil {
				return err
			}
			assigned = id
			return nil
		},
		Commit: func() {
			state := models.Favorited(assigned)
			t.setState(key, state)
			t.publish(item, state)
			t.logger.Debug().Int("item", item.ID).Int("favorite", assigned).Msg("Favorite added")
		},
		Rollback: func() {
			t.setState(key, prev)
		},
	}
}

func (t *Tracker) setState(key Key, state models.FavoriteState) {
	t.mu.Lock()
	t.states[key] = state
	t.mu.Unlock()
}

func (t *Tracker) publish(item models.ContentItem, state models.FavoriteState) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(&events.FavoriteEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventFavoriteChanged, Time: time.Now()},
		ItemID:    item.ID,
		State:     state.String(),
	})
}

package models

import "fmt"

type favoriteKind int

const (
	favoriteAbsent favoriteKind = iota
	favoritePending
	favoriteSet
)

// FavoriteState is the per-item favorite marker: absent, a concrete
// server-assigned favorite id, or the transient pending sentinel used while
// a toggle request is in flight. Pending must always resolve to one of the
// other two states within a single round trip.
type FavoriteState struct {
	kind favoriteKind
	id   int
}

// FavoriteAbsent is the not-favorited state.
func FavoriteAbsent() FavoriteState { return FavoriteState{} }

// FavoritePending is the in-flight sentinel.
func FavoritePending() FavoriteState { return FavoriteState{kind: favoritePending} }

// Favorited wraps a concrete favorite id.
func Favorited(id int) FavoriteState { return FavoriteState{kind: favoriteSet, id: id} }

// IsAbsent reports whether the item is not favorited.
func (s FavoriteState) IsAbsent() bool { return s.kind == favoriteAbsent }

// IsPending reports whether a toggle round trip is outstanding.
func (s FavoriteState) IsPending() bool { return s.kind == favoritePending }

// FavoriteID returns the favorite id and whether one is set.
func (s FavoriteState) FavoriteID() (int, bool) {
	return s.id, s.kind == favoriteSet
}

func (s FavoriteState) String() string {
	switch s.kind {
	case favoritePending:
		return "pending"
	case favoriteSet:
		return fmt.Sprintf("favorite(%d)", s.id)
	}
	return "absent"
}

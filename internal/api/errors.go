// Package api provides the REST client the Depot engine uses to talk to the
// portal, along with its error taxonomy.
package api

import (
	"errors"
	"strings"
)

// ErrNameConflict indicates an item name already exists at the destination.
// Bulk moves report this per item in structured form; single-item creates
// and some storage backends surface it only as a raw uniqueness-constraint
// message, which IsNameConflictError detects best-effort.
var ErrNameConflict = errors.New("name already exists at destination")

// ErrNotFound indicates the referenced item, version, or favorite is gone.
var ErrNotFound = errors.New("not found")

// IsNameConflictError checks if an error indicates a naming collision.
//
// Detects the conflict from multiple sources:
//  1. Wrapped ErrNameConflict
//  2. Raw server messages containing known uniqueness-constraint substrings
func IsNameConflictError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNameConflict) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	conflictIndicators := []string{
		"already exists",
		"duplicate",
		"unique constraint",
		"uniqueness",
		"name already in use",
	}
	for _, indicator := range conflictIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

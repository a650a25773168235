package models

// ConflictedItem identifies one item the server rejected during a bulk move,
// typically because its name collides with an existing item already in the
// target version.
type ConflictedItem struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

// BulkOperationResult is the outcome of one bulk call. It is produced once,
// handed to the conflict reporter, and discarded.
type BulkOperationResult struct {
	SuccessCount   int
	Conflicted     []ConflictedItem
	FailedEntirely bool
}

// Partial reports whether the operation succeeded for some items and was
// rejected for others.
func (r BulkOperationResult) Partial() bool {
	return !r.FailedEntirely && len(r.Conflicted) > 0
}

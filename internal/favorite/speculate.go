// Package favorite implements the optimistic mutation tracker behind
// toggle-style state: the local state changes before the server confirms,
// and is committed or rolled back once the round trip resolves.
package favorite

import "context"

// Mutation is one speculative state change. Apply runs synchronously before
// Call so the optimistic state is visible to the UI before any network
// resolution; Commit installs server truth on success; Rollback restores
// exactly the pre-mutation state on failure.
type Mutation struct {
	Apply    func()
	Call     func(ctx context.Context) error
	Commit   func()
	Rollback func()
}

// Run executes the mutation. The returned error is the Call error, after
// Rollback has already run.
func (m Mutation) Run(ctx context.Context) error {
	if m.Apply != nil {
		m.Apply()
	}
	if err := m.Call(ctx); err != nil {
		if m.Rollback != nil {
			m.Rollback()
		}
		return err
	}
	if m.Commit != nil {
		m.Commit()
	}
	return nil
}

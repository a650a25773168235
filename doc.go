// Package depot is the embedded client engine of the Depot
// content-distribution portal. Host applications own rendering, routing and
// authentication; the engine owns the operations with real failure
// semantics: chunked resumable uploads, bulk delete/move/download over a
// selection set, version-reference resolution, and optimistic favorite
// toggling.
//
// The engine pushes user-visible notices and transfer progress to the host
// over an event bus; the host renders them as toasts and progress bars.
package depot

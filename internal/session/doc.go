// Package session implements the layer session orchestrator: the single
// owner of inspection state between the UI and the layer backend.
//
// # Overview
//
// A Session sequences the multi-step backend work behind each user intent:
//
//	SelectImage ─→ retag ─→ export image ─→ SelectLayer(first)
//	SelectLayer ─→ export layer ─→ layer files ─→ entries
//	ExtractDirectory ─→ extract ─→ merge under the directory
//	LoadFileContent ─→ read file ─→ content or placeholder
//	Compare ─→ diff the two selected layers
//
// Every operation blocks the calling goroutine until the backend answers.
// The UI runs them from tea.Cmd goroutines and watches Changes for
// redraws, reading state through Snapshot.
//
// # Phases
//
//	Idle → ImageLoading → LayersReady → LayerFilesLoading → LayerFilesReady
//
// Error is reachable from the layer phases and keeps the image and layer
// identity. A failed image selection goes back to Idle instead: there is
// no partial image.
//
// # Staleness
//
// Responses are matched against per-concern sequence numbers (image,
// layer, file, comparison) plus the layer that issued them. A response
// that lost to a newer selection is dropped, logged at debug level and
// counted in layerscope_stale_responses_total. Nothing is cancelled; the
// backend call simply finishes unobserved.
//
// # Errors
//
// Validation errors (ErrNoImage, ErrUnknownLayer, ErrNotLoadable,
// ErrExtractionPending, compare.ErrSelectionIncomplete,
// compare.ErrNotActive) return before any backend call and leave the task
// status alone. Backend failures are wrapped, stored in Snapshot.Err (or
// Snapshot.Comparison.Err) and reported as a completed task with an
// error. Unreadable file content is not an error.
//
// # Thread Safety
//
// State is guarded by one mutex that is never held across a backend call.
// Snapshot returns deep copies.
package session

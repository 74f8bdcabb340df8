// Package backend is the typed command boundary to the layer export and
// diff backend.
//
// # Overview
//
// The backend owns everything that touches the container engine: it tags
// the chosen image, exports its layers to a scratch directory, scans
// layer filesystems, reads file content and diffs two layers. This package
// describes that contract as the Gateway interface and ships an HTTP
// implementation, Client.
//
// # Architecture
//
//   - gateway.go: the Gateway interface, command names, CommandError and
//     the task status Subscription
//   - client.go: HTTP command transport
//   - events.go: Server-Sent Events stream for task status
//   - types.go: data structures mirroring the backend payloads
//
// The backendtest subpackage provides an in-memory Gateway with call
// recording and gates that hold a call open, used by session tests.
//
// # Commands
//
// Every command is a POST to /api/commands/<name> with a JSON argument
// object:
//
//   - get_docker_images: list available images
//   - retag_image_for_layers {imageId}: tag the image as the working image
//   - export_image_layers: export the working image's layer history
//   - export_single_layer {layerId}: export one layer, first scan of entries
//   - get_layer_files {layerId}: resolved top-level entries of the layer
//   - extract_directory {dirPath, layerId}: entries under one directory
//   - read_layer_file {filePath}: text content of a file
//   - compare_layers {layer1Id, layer2Id}: added/removed/modified/unchanged
//   - cleanup_layers_images: remove the working image tag
//
// Failures answer a 4xx/5xx status with {"error": "...", "kind": "..."}.
// The error message is surfaced verbatim through CommandError. The kind
// "unreadable" marks binary or oversized file content; IsUnreadable
// detects it.
//
// # Task Status
//
// Long-running commands broadcast progress on the task_status channel,
// exposed as GET /api/events. SubscribeTaskStatus returns a Subscription
// whose channel is closed once Close is called or the context ends. The
// stream reconnects with exponential backoff (250ms up to 5s). Events are
// dropped rather than queued when the subscriber falls behind; only the
// latest status matters.
//
// # Entries
//
// Directory entries the backend did not descend into are flagged with
// needs_loading, or carry the size marker "..." in older backends. Entry
// treats both as Unresolved. Sizes are human-readable strings; Bytes parses
// them with go-humanize.
//
// # Timeouts
//
// Command requests use Options.Timeout, which defaults to none: exports
// of large images can take minutes. The event stream never times out.
package backend

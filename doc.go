// Package goverlay merges prioritized, partially overlapping JSON-like
// documents into one document under per-path merge policies.
//
// - Documents are plain Go values (nil, bool, numbers, string, map[string]any, []any)
// - A Policy (priority, order, terminal, allow_none, allow_empty) governs each path and is
//   inherited by the paths below it unless overridden
// - Policies come from an explicit PolicyTree or from $-keys embedded in the documents
// - Sequence elements carrying an identity ($id) are reconciled across documents
// - A stable error model via Issues (JSON Pointer, code, message)
// - JSON/YAML Sources with duplicate-key/depth/size enforcement
//
// Design policy:
// - Keep only public APIs in the root package; put detailed implementations under internal/.
// - File and glob resolution lives in loader/, the CLI under cli/ and cmd/goverlay.
// - Merging is pure: no I/O, no shared state between calls.
//
// Typical usage:
//
//	v, ok := goverlay.Merge(
//	    goverlay.Document{Value: override, Priority: 1},
//	    goverlay.Document{Value: base, Order: 1},
//	)
//
//	v, ok, err := goverlay.MergeAnnotated(a, b) // honours $priority, $terminal, ...
package goverlay

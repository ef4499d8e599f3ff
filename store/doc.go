// Package store holds the canonical in-memory annotation document.
//
// A Store serializes every read and write behind a single mutex. Reads return
// deep copies, so callers never observe or mutate internal state. Tracked
// mutations bump a [ChangeTracker] counter and arm a debounced auto-save timer;
// bursts of edits coalesce into one write. [Store.Flush] and [Store.Shutdown]
// cancel the pending timer before writing, and a callback that already fired
// but lost the race for the lock becomes a no-op.
//
// Saves are crash-safe: the document is pretty-printed to a temporary file,
// fsynced and renamed over the target.
package store

// Package window keeps a bounded, index-addressed slice of the dataset in
// memory for serving.
//
// A [Cache] is replaced wholesale by [Cache.Update] whenever the caller loads
// a new range, and patched incrementally in between. It is not synchronized
// with the document store: callers apply each edit to both.
//
// Resident dataset positions are tracked in a roaring bitmap that always
// matches the keys of the index map.
package window

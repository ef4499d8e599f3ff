package labelstore

import (
	"github.com/hupe1980/labelstore/model"
	"github.com/hupe1980/labelstore/store"
)

// Error kinds returned by Session operations. Match them with errors.Is.
var (
	ErrNotFound    = model.ErrNotFound
	ErrInUse       = model.ErrInUse
	ErrNotLoaded   = model.ErrNotLoaded
	ErrTransient   = model.ErrTransient
	ErrPermanentIO = model.ErrPermanentIO
	ErrParse       = model.ErrParse
	ErrInvalid     = model.ErrInvalid

	// ErrClosed is returned by mutations after Close.
	ErrClosed = store.ErrClosed
)

// ErrNotRemote is returned by SaveToRemote for local datasets.
var ErrNotRemote = &model.Error{Kind: model.KindInvalid, Op: "save to remote", Msg: "dataset is not stored remotely"}

// ErrNoObjectStore is returned when a remote locator is used without an
// object store.
var ErrNoObjectStore = &model.Error{Kind: model.KindInvalid, Op: "resolve", Msg: "no object store configured for remote locator"}

package remote

import "sync"

// DirtyState records whether the local copy of a remote dataset has changes
// that were not uploaded yet.
//
// Every MarkDirty bumps a version. An upload captures the version before it
// reads the file and clears the flag only if no save happened meanwhile.
type DirtyState struct {
	mu      sync.Mutex
	dirty   bool
	version uint64
	path    string
}

// SetLocalPath records the local copy and clears the dirty flag.
func (s *DirtyState) SetLocalPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.dirty = false
}

// LocalPath returns the recorded local copy.
func (s *DirtyState) LocalPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// MarkDirty flags unsynchronized local changes.
func (s *DirtyState) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	s.version++
}

// Version returns the number of MarkDirty calls so far.
func (s *DirtyState) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// MarkClean clears the flag after a confirmed upload of the file as it was at
// version. It reports false and keeps the flag if the file was saved again
// since.
func (s *DirtyState) MarkClean(version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return false
	}
	s.dirty = false
	return true
}

// IsDirty reports the flag.
func (s *DirtyState) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/labelstore/codec"
	"github.com/hupe1980/labelstore/internal/fs"
	"github.com/hupe1980/labelstore/metrics"
	"github.com/hupe1980/labelstore/model"
)

// ErrClosed is returned by mutations after Shutdown.
var ErrClosed = &model.Error{Kind: model.KindPrecondition, Msg: "store is shut down"}

// Store is the in-memory document store.
type Store struct {
	mu      sync.Mutex
	doc     *model.Dataset
	path    string
	changes ChangeTracker
	closed  bool

	// timer is the pending auto-save; timerGen invalidates callbacks that
	// fired before a Flush or Shutdown cancelled them.
	timer    *time.Timer
	timerGen uint64

	fs       fs.FileSystem
	codec    codec.Codec
	logger   *slog.Logger
	metrics  metrics.Collector
	interval time.Duration
	marker   DirtyMarker
	backup   Compression
}

// New creates an empty store. Call Load before using it.
func New(opts ...Option) *Store {
	s := &Store{
		fs:       fs.Default,
		codec:    codec.Default,
		metrics:  metrics.Noop{},
		interval: DefaultAutoSaveInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Load parses the document at path, replacing any loaded state, and resets
// the change tracker. A pending auto-save for the previous document is dropped.
func (s *Store) Load(path string) error {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return &model.Error{Kind: model.KindPermanentIO, Op: "load", Msg: path, Err: err}
	}

	var doc model.Dataset
	if err := s.codec.Unmarshal(data, &doc); err != nil {
		return &model.Error{Kind: model.KindParse, Op: "load", Msg: path, Err: err}
	}
	doc.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.stopTimerLocked()
	s.doc = &doc
	s.path = path
	s.changes.Reset()

	s.logger.Info("dataset loaded",
		"path", path,
		"images", len(doc.Images),
		"annotations", len(doc.Annotations),
		"categories", len(doc.Categories),
	)
	return nil
}

// IsLoaded reports whether a document is resident.
func (s *Store) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc != nil
}

// Path returns the local file the document is persisted to.
func (s *Store) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Changes returns the mutations recorded since the last save.
func (s *Store) Changes() ChangeTracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changes
}

// Counts holds collection sizes.
type Counts struct {
	Images      int
	Annotations int
	Categories  int
	Licenses    int
}

// Counts returns the collection sizes without copying them.
func (s *Store) Counts() (Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return Counts{}, model.ErrNotLoaded
	}
	return Counts{
		Images:      len(s.doc.Images),
		Annotations: len(s.doc.Annotations),
		Categories:  len(s.doc.Categories),
		Licenses:    len(s.doc.Licenses),
	}, nil
}

// Snapshot returns a deep copy of the whole document.
func (s *Store) Snapshot() (*model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, model.ErrNotLoaded
	}
	return s.doc.Clone(), nil
}

// Images returns a copy of all images.
func (s *Store) Images() ([]model.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, model.ErrNotLoaded
	}
	return model.CloneImages(s.doc.Images), nil
}

// ImageByID returns a copy of the image, or nil if no image has that id.
func (s *Store) ImageByID(id int64) (*model.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, model.ErrNotLoaded
	}
	for _, img := range s.doc.Images {
		if img.ID == id {
			out := img.Clone()
			return &out, nil
		}
	}
	return nil, nil
}

// Annotations returns a deep copy of all annotations.
func (s *Store) Annotations() ([]model.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, model.ErrNotLoaded
	}
	return model.CloneAnnotations(s.doc.Annotations), nil
}

// AnnotationsByImage returns copies of the annotations on one image.
func (s *Store) AnnotationsByImage(imageID int64) ([]model.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, model.ErrNotLoaded
	}
	out := []model.Annotation{}
	for _, a := range s.doc.Annotations {
		if a.ImageID == imageID {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// Categories returns a copy of all categories.
func (s *Store) Categories() ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, model.ErrNotLoaded
	}
	return model.CloneCategories(s.doc.Categories), nil
}

// Info returns a copy of the info block.
func (s *Store) Info() (model.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, model.ErrNotLoaded
	}
	return s.doc.Info.Clone(), nil
}

// Licenses returns a copy of all licenses.
func (s *Store) Licenses() ([]model.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, model.ErrNotLoaded
	}
	return model.CloneLicenses(s.doc.Licenses), nil
}

// NextAnnotationID returns max(annotation ids)+1, or 1 if there are none.
//
// The value is only a hint once the lock is released; use CreateAnnotation to
// allocate and insert atomically.
func (s *Store) NextAnnotationID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0, model.ErrNotLoaded
	}
	return s.nextAnnotationIDLocked(), nil
}

// NextCategoryID returns max(category ids)+1, or 1 if there are none.
func (s *Store) NextCategoryID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0, model.ErrNotLoaded
	}
	return s.nextCategoryIDLocked(), nil
}

func (s *Store) nextAnnotationIDLocked() int64 {
	var maxID int64
	for _, a := range s.doc.Annotations {
		maxID = max(maxID, a.ID)
	}
	return maxID + 1
}

func (s *Store) nextCategoryIDLocked() int64 {
	var maxID int64
	for _, c := range s.doc.Categories {
		maxID = max(maxID, c.ID)
	}
	return maxID + 1
}

// AddAnnotation appends a copy of a as is.
func (s *Store) AddAnnotation(a model.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return err
	}
	s.doc.Annotations = append(s.doc.Annotations, a.Clone())
	s.changedLocked(ChangeAnnotationAdded)
	return nil
}

// CreateAnnotation assigns the next annotation id to a and appends it in the
// same critical section. It returns the stored annotation.
func (s *Store) CreateAnnotation(a model.Annotation) (model.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return model.Annotation{}, err
	}
	a = a.Clone()
	a.ID = s.nextAnnotationIDLocked()
	s.doc.Annotations = append(s.doc.Annotations, a)
	s.changedLocked(ChangeAnnotationAdded)
	return a.Clone(), nil
}

// UpdateAnnotation applies patch to the annotation with the given id and
// returns a copy of the result, or nil if no annotation has that id.
func (s *Store) UpdateAnnotation(id int64, patch model.AnnotationPatch) (*model.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return nil, err
	}
	for i := range s.doc.Annotations {
		if s.doc.Annotations[i].ID == id {
			patch.Apply(&s.doc.Annotations[i])
			s.changedLocked(ChangeAnnotationUpdated)
			out := s.doc.Annotations[i].Clone()
			return &out, nil
		}
	}
	return nil, nil
}

// DeleteAnnotation removes the annotation and reports whether it existed.
func (s *Store) DeleteAnnotation(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return false, err
	}
	n := len(s.doc.Annotations)
	s.doc.Annotations = slices.DeleteFunc(s.doc.Annotations, func(a model.Annotation) bool {
		return a.ID == id
	})
	if len(s.doc.Annotations) == n {
		return false, nil
	}
	s.changedLocked(ChangeAnnotationDeleted)
	return true, nil
}

// AddCategory appends c as is.
func (s *Store) AddCategory(c model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return err
	}
	s.doc.Categories = append(s.doc.Categories, c.Clone())
	s.changedLocked(ChangeCategoryAdded)
	return nil
}

// CreateCategory assigns the next category id to c and appends it.
func (s *Store) CreateCategory(c model.Category) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return model.Category{}, err
	}
	c.ID = s.nextCategoryIDLocked()
	s.doc.Categories = append(s.doc.Categories, c.Clone())
	s.changedLocked(ChangeCategoryAdded)
	return c, nil
}

// UpdateCategory applies patch to the category and returns a copy of the
// result, or nil if no category has that id.
func (s *Store) UpdateCategory(id int64, patch model.CategoryPatch) (*model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return nil, err
	}
	for i := range s.doc.Categories {
		if s.doc.Categories[i].ID == id {
			patch.Apply(&s.doc.Categories[i])
			s.changedLocked(ChangeCategoryUpdated)
			out := s.doc.Categories[i].Clone()
			return &out, nil
		}
	}
	return nil, nil
}

// DeleteCategory removes the category and reports whether it existed.
// It fails with a KindInUse error, leaving the document untouched, while any
// annotation still references the category.
func (s *Store) DeleteCategory(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return false, err
	}
	refs := 0
	for _, a := range s.doc.Annotations {
		if a.CategoryID == id {
			refs++
		}
	}
	if refs > 0 {
		return false, model.InUse("category", id, fmt.Sprintf("used by %d annotation(s)", refs))
	}
	n := len(s.doc.Categories)
	s.doc.Categories = slices.DeleteFunc(s.doc.Categories, func(c model.Category) bool {
		return c.ID == id
	})
	if len(s.doc.Categories) == n {
		return false, nil
	}
	s.changedLocked(ChangeCategoryDeleted)
	return true, nil
}

// DeleteImage removes the image together with every annotation on it and
// reports whether the image existed.
func (s *Store) DeleteImage(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return false, err
	}
	n := len(s.doc.Images)
	s.doc.Images = slices.DeleteFunc(s.doc.Images, func(img model.Image) bool {
		return img.ID == id
	})
	if len(s.doc.Images) == n {
		return false, nil
	}
	s.doc.Annotations = slices.DeleteFunc(s.doc.Annotations, func(a model.Annotation) bool {
		return a.ImageID == id
	})
	s.changedLocked(ChangeImageDeleted)
	return true, nil
}

// SetImages replaces all images. The change is not tracked.
func (s *Store) SetImages(images []model.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return err
	}
	s.doc.Images = model.CloneImages(images)
	return nil
}

// SetAnnotations replaces all annotations. The change is not tracked.
func (s *Store) SetAnnotations(anns []model.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return err
	}
	s.doc.Annotations = model.CloneAnnotations(anns)
	return nil
}

// MarkReplaced records a bulk replacement so the next Save writes even
// though SetImages and SetAnnotations are untracked.
func (s *Store) MarkReplaced() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return err
	}
	s.changedLocked(ChangeReplaced)
	return nil
}

// Save writes the document if anything changed since the last save and
// reports whether it wrote. On failure the changes stay pending.
func (s *Store) Save() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// Flush cancels any pending auto-save and saves immediately.
// Call it before uploading so the uploaded bytes reflect the latest state.
func (s *Store) Flush() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	return s.saveLocked()
}

// Shutdown cancels any pending auto-save and writes outstanding changes.
// Afterwards no timer fires and mutations fail with ErrClosed.
func (s *Store) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.closed = true
	saved, err := s.saveLocked()
	if err != nil {
		return err
	}
	if saved {
		s.logger.Info("dataset saved on shutdown", "path", s.path)
	}
	return nil
}

func (s *Store) writableLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.doc == nil {
		return model.ErrNotLoaded
	}
	return nil
}

func (s *Store) changedLocked(kind string) {
	s.changes.record(kind)
	s.metrics.RecordMutation(kind)
	s.scheduleLocked()
}

// scheduleLocked arms the auto-save timer unless one is already pending.
func (s *Store) scheduleLocked() {
	if s.timer != nil || s.closed || s.interval <= 0 {
		return
	}
	gen := s.timerGen
	s.timer = time.AfterFunc(s.interval, func() { s.autoSave(gen) })
	s.logger.Debug("auto-save scheduled", "in", s.interval)
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

func (s *Store) autoSave(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.timerGen {
		return
	}
	s.timer = nil
	if _, err := s.saveLocked(); err != nil {
		s.logger.Error("auto-save failed", "path", s.path, "error", err)
	}
}

func (s *Store) saveLocked() (bool, error) {
	if !s.changes.HasChanges() {
		return false, nil
	}
	if s.doc == nil {
		return false, model.ErrNotLoaded
	}

	start := time.Now()
	data, err := codec.MarshalPretty(s.codec, s.doc)
	if err != nil {
		s.metrics.RecordSave(time.Since(start), 0, err)
		return false, &model.Error{Kind: model.KindParse, Op: "save", Msg: "encode dataset", Err: err}
	}

	if s.backup != BackupNone {
		s.writeBackupLocked()
	}

	if err := fs.WriteFileAtomic(s.fs, s.path, data, 0o644); err != nil {
		s.metrics.RecordSave(time.Since(start), len(data), err)
		return false, &model.Error{Kind: model.KindPermanentIO, Op: "save", Msg: s.path, Err: err}
	}
	s.metrics.RecordSave(time.Since(start), len(data), nil)

	s.logger.Info("dataset saved", "path", s.path, "bytes", len(data), "changes", s.changes.Summary())
	s.changes.Reset()

	if s.marker != nil {
		s.marker.MarkDirty(s.path)
	}
	return true, nil
}

// writeBackupLocked stores the current on-disk document compressed next to it.
// Failures are logged and never block the save.
func (s *Store) writeBackupLocked() {
	prev, err := s.fs.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("backup skipped", "path", s.path, "error", err)
		}
		return
	}
	compressed, err := compressBackup(prev, s.backup)
	if err == nil {
		err = fs.WriteFileAtomic(s.fs, BackupPath(s.path, s.backup), compressed, 0o644)
	}
	if err != nil {
		s.logger.Warn("backup failed", "path", s.path, "compression", s.backup.String(), "error", err)
	}
}

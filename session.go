package labelstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/hupe1980/labelstore/internal/fs"
	"github.com/hupe1980/labelstore/model"
	"github.com/hupe1980/labelstore/remote"
	"github.com/hupe1980/labelstore/store"
	"github.com/hupe1980/labelstore/window"
)

// Session is an open dataset: the document store, its serving window and,
// for remote datasets, the syncer that moves the document to and from the
// object store.
//
// All methods are safe for concurrent use.
type Session struct {
	locator string
	// base is the location relative image names resolve against.
	base     string
	isRemote bool

	store   *store.Store
	window  *window.Cache
	syncer  *remote.Syncer
	objects remote.ObjectStore
	fs      fs.FileSystem

	windowCfg window.Config
	logger    *Logger

	closeOnce sync.Once
	closeErr  error
}

// Metadata summarizes a dataset without its images and annotations.
type Metadata struct {
	Info        model.Info
	Licenses    []model.License
	Categories  []model.Category
	TotalImages int
}

// Stats holds entity counts and the annotation type breakdown.
type Stats struct {
	store.Counts
	AnnotationTypes map[model.AnnotationType]int
}

// Open resolves locator to a local file, loads it and fills the window.
//
// locator is a local path (a leading "~" is expanded) or an s3:// / s3a://
// URI. Remote datasets require WithObjectStore; they are served from the
// local cache while its ETag matches and downloaded otherwise.
func Open(ctx context.Context, locator string, optFns ...Option) (*Session, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, &model.Error{Kind: model.KindInvalid, Op: "open", Msg: "empty dataset locator"}
	}

	o := applyOptions(optFns)
	isRemote := remote.IsRemote(locator)
	if isRemote && o.objects == nil {
		return nil, ErrNoObjectStore
	}

	logger := o.logger.WithDataset(locator)

	syncer := remote.NewSyncer(o.objects,
		remote.WithLogger(logger.Logger),
		remote.WithCacheDir(o.cacheDir),
		remote.WithRetryPolicy(o.retry),
		remote.WithLimits(o.limits),
		remote.WithMetrics(o.metricsCollector),
		remote.WithFileSystem(o.fs),
	)

	localPath, err := syncer.LocalPath(ctx, locator)
	if err != nil {
		logger.LogLoad(ctx, locator, "", 0, 0, err)
		return nil, err
	}

	storeOpts := []store.Option{
		store.WithLogger(logger.Logger),
		store.WithFileSystem(o.fs),
		store.WithCodec(o.codec),
		store.WithAutoSaveInterval(o.autoSaveInterval),
		store.WithMetrics(o.metricsCollector),
		store.WithBackup(o.backup),
	}
	if isRemote {
		storeOpts = append(storeOpts, store.WithDirtyMarker(syncer))
	}

	st := store.New(storeOpts...)
	if err := st.Load(localPath); err != nil {
		logger.LogLoad(ctx, locator, localPath, 0, 0, err)
		return nil, err
	}

	counts, _ := st.Counts()
	logger.LogLoad(ctx, locator, localPath, counts.Images, counts.Annotations, nil)

	base := locator
	if !isRemote {
		base = remote.ExpandHome(locator)
	}

	s := &Session{
		locator:   locator,
		base:      base,
		isRemote:  isRemote,
		store:     st,
		window:    window.New(),
		syncer:    syncer,
		objects:   o.objects,
		fs:        o.fs,
		windowCfg: o.window,
		logger:    logger,
	}
	if err := s.InitWindow(); err != nil {
		_ = st.Shutdown()
		return nil, err
	}
	return s, nil
}

// Locator returns the locator the session was opened with.
func (s *Session) Locator() string { return s.locator }

// IsRemote reports whether the dataset lives in an object store.
func (s *Session) IsRemote() bool { return s.isRemote }

// LocalPath returns the file the document is loaded from and saved to.
func (s *Session) LocalPath() string { return s.store.Path() }

// Store returns the underlying document store.
func (s *Session) Store() *store.Store { return s.store }

// Window returns the serving window.
func (s *Session) Window() *window.Cache { return s.window }

// Syncer returns the remote syncer.
func (s *Session) Syncer() *remote.Syncer { return s.syncer }

// Metadata returns info, licenses, categories and the image count.
func (s *Session) Metadata() (Metadata, error) {
	info, err := s.store.Info()
	if err != nil {
		return Metadata{}, err
	}
	licenses, err := s.store.Licenses()
	if err != nil {
		return Metadata{}, err
	}
	categories, err := s.store.Categories()
	if err != nil {
		return Metadata{}, err
	}
	counts, err := s.store.Counts()
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Info:        info,
		Licenses:    licenses,
		Categories:  categories,
		TotalImages: counts.Images,
	}, nil
}

// Stats returns entity counts and how many annotations of each type exist.
func (s *Session) Stats() (Stats, error) {
	counts, err := s.store.Counts()
	if err != nil {
		return Stats{}, err
	}
	anns, err := s.store.Annotations()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Counts: counts, AnnotationTypes: model.CountAnnotationTypes(anns)}, nil
}

// Categories returns all categories.
func (s *Session) Categories() ([]model.Category, error) {
	return s.store.Categories()
}

// LoadRange materializes dataset positions [start, end) with their
// annotations. The window is not modified.
func (s *Session) LoadRange(start, end int) (window.Slice, error) {
	images, err := s.store.Images()
	if err != nil {
		return window.Slice{}, err
	}
	anns, err := s.store.Annotations()
	if err != nil {
		return window.Slice{}, err
	}
	return window.Build(images, anns, start, end), nil
}

// InitWindow refills the window from the document: the whole dataset when it
// fits, otherwise its head and tail.
func (s *Session) InitWindow() error {
	images, err := s.store.Images()
	if err != nil {
		return err
	}
	anns, err := s.store.Annotations()
	if err != nil {
		return err
	}
	return s.window.Update(window.Load(s.windowCfg, images, anns))
}

// ExtendWindow adds positions [start, end) to the window.
func (s *Session) ExtendWindow(start, end int) error {
	part, err := s.LoadRange(start, end)
	if err != nil {
		return err
	}
	return s.window.Update(window.Merge(s.window.Snapshot(), part))
}

// AnnotationsByImage returns the annotations of one image.
func (s *Session) AnnotationsByImage(imageID int64) ([]model.Annotation, error) {
	return s.store.AnnotationsByImage(imageID)
}

// AddCategory creates a category with the next free id.
func (s *Session) AddCategory(name, supercategory string) (model.Category, error) {
	return s.store.CreateCategory(model.Category{Name: name, Supercategory: supercategory})
}

// UpdateCategory renames a category.
func (s *Session) UpdateCategory(id int64, name, supercategory string) (model.Category, error) {
	c, err := s.store.UpdateCategory(id, model.CategoryPatch{
		Name:          &name,
		Supercategory: &supercategory,
	})
	if err != nil {
		return model.Category{}, err
	}
	if c == nil {
		return model.Category{}, model.NotFound("category", id)
	}
	return *c, nil
}

// DeleteCategory removes a category. It fails with ErrInUse while any
// annotation references it.
func (s *Session) DeleteCategory(id int64) error {
	ok, err := s.store.DeleteCategory(id)
	if err != nil {
		return err
	}
	if !ok {
		return model.NotFound("category", id)
	}
	return nil
}

// AddAnnotation creates a polygon annotation with the next free id. The
// bounding box and area are computed from the polygons.
func (s *Session) AddAnnotation(imageID, categoryID int64, polygons [][]float64) (model.Annotation, error) {
	bbox, err := model.BBox(polygons)
	if err != nil {
		return model.Annotation{}, model.Wrap(model.KindInvalid, "add annotation", err)
	}

	ann, err := s.store.CreateAnnotation(model.Annotation{
		ImageID:      imageID,
		CategoryID:   categoryID,
		Segmentation: model.Polygons(polygons...),
		BBox:         bbox,
		Area:         model.Area(polygons),
	})
	if err != nil {
		return model.Annotation{}, err
	}

	if _, ok := s.window.ImageByID(imageID); ok {
		s.window.AddAnnotation(imageID, ann)
	}
	return ann, nil
}

// UpdateAnnotationCategory moves an annotation to another category.
func (s *Session) UpdateAnnotationCategory(id, categoryID int64) (model.Annotation, error) {
	patch := model.AnnotationPatch{CategoryID: &categoryID}
	ann, err := s.store.UpdateAnnotation(id, patch)
	if err != nil {
		return model.Annotation{}, err
	}
	if ann == nil {
		return model.Annotation{}, model.NotFound("annotation", id)
	}
	s.window.UpdateAnnotation(id, patch)
	return *ann, nil
}

// DeleteAnnotation removes an annotation.
func (s *Session) DeleteAnnotation(id int64) error {
	ok, err := s.store.DeleteAnnotation(id)
	if err != nil {
		return err
	}
	if !ok {
		return model.NotFound("annotation", id)
	}
	s.window.DeleteAnnotation(id)
	return nil
}

// DeleteImage removes an image and its annotations. For local datasets the
// image file is deleted from disk as well; remote objects are never deleted.
func (s *Session) DeleteImage(id int64) error {
	img, err := s.store.ImageByID(id)
	if err != nil {
		return err
	}
	if img == nil {
		return model.NotFound("image", id)
	}

	if !s.isRemote {
		if p := s.ResolveImagePath(img.FileName); !remote.IsRemote(p) {
			if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return model.Wrap(model.KindPermanentIO, "delete image file", err)
			}
		}
	}

	ok, err := s.store.DeleteImage(id)
	if err != nil {
		return err
	}
	if !ok {
		return model.NotFound("image", id)
	}
	s.window.DeleteImage(id)
	return nil
}

// SaveDataset replaces all images and annotations and writes the file
// immediately. The window is rebuilt from the new content.
func (s *Session) SaveDataset(ctx context.Context, images []model.Image, annotations []model.Annotation) error {
	if err := s.store.SetImages(images); err != nil {
		return err
	}
	if err := s.store.SetAnnotations(annotations); err != nil {
		return err
	}
	if err := s.store.MarkReplaced(); err != nil {
		return err
	}
	saved, err := s.store.Flush()
	s.logger.LogSave(ctx, s.store.Path(), saved, err)
	if err != nil {
		return err
	}
	return s.InitWindow()
}

// Flush writes pending changes now. It reports whether anything was written.
func (s *Session) Flush(ctx context.Context) (bool, error) {
	saved, err := s.store.Flush()
	s.logger.LogSave(ctx, s.store.Path(), saved, err)
	return saved, err
}

// SaveToRemote flushes pending changes, uploads the local copy, refreshes the
// cache sidecar and clears the dirty flag. The flag stays set on failure.
func (s *Session) SaveToRemote(ctx context.Context) (remote.UploadResult, error) {
	if !s.isRemote {
		return remote.UploadResult{}, ErrNotRemote
	}
	if _, err := s.Flush(ctx); err != nil {
		return remote.UploadResult{}, err
	}

	localPath := s.syncer.State().LocalPath()
	if localPath == "" {
		return remote.UploadResult{}, model.ErrNotLoaded
	}

	res, err := s.syncer.Upload(ctx, s.locator, localPath)
	s.logger.LogUpload(ctx, s.locator, res.ETag, res.Size, err)
	return res, err
}

// DirtyStatus reports whether the local copy of a remote dataset has changes
// that were not uploaded. It is always false for local datasets.
func (s *Session) DirtyStatus() bool {
	return s.syncer.DirtyStatus()
}

// ResolveImagePath resolves an image file name against the dataset location.
func (s *Session) ResolveImagePath(fileName string) string {
	return remote.ResolveImageURI(fileName, s.base)
}

// ImagePath returns a local file for the image, downloading remote images
// into the image cache on first use.
func (s *Session) ImagePath(ctx context.Context, fileName string) (string, error) {
	uri := s.ResolveImagePath(fileName)
	if !remote.IsRemote(uri) {
		return uri, nil
	}
	if s.objects == nil {
		return "", ErrNoObjectStore
	}
	p, err := s.syncer.DownloadImage(ctx, uri)
	s.logger.LogDownload(ctx, uri, p, err)
	return p, err
}

// PrefetchWindow downloads the remote images currently in the window.
func (s *Session) PrefetchWindow(ctx context.Context) error {
	snap := s.window.Snapshot()
	uris := make([]string, 0, len(snap.Images))
	for _, img := range snap.Images {
		if uri := s.ResolveImagePath(img.FileName); remote.IsRemote(uri) {
			uris = append(uris, uri)
		}
	}
	if len(uris) == 0 {
		return nil
	}
	if s.objects == nil {
		return ErrNoObjectStore
	}
	return s.syncer.PrefetchImages(ctx, uris)
}

// Close cancels the pending auto-save, writes outstanding changes and empties
// the window. Changes of a remote dataset that were not uploaded stay in the
// local cache and are reported as a warning. Close is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.store.Shutdown()
		s.window.Clear()
		if s.isRemote && s.syncer.DirtyStatus() {
			s.logger.Warn("closing with changes not uploaded",
				"path", s.store.Path(),
			)
		}
	})
	return s.closeErr
}

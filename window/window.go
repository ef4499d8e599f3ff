package window

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/labelstore/model"
)

// Slice is one materialized range (or union of ranges) of the dataset.
type Slice struct {
	Images             []model.WindowImage
	ByIndex            map[int]model.WindowImage
	AnnotationsByImage map[int64][]model.Annotation
	Resident           *roaring.Bitmap
}

// Validate checks that Resident holds exactly the keys of ByIndex.
func (s Slice) Validate() error {
	var card uint64
	if s.Resident != nil {
		card = s.Resident.GetCardinality()
	}
	if card != uint64(len(s.ByIndex)) {
		return fmt.Errorf("window: %d resident indices but %d indexed images", card, len(s.ByIndex))
	}
	for idx := range s.ByIndex {
		if idx < 0 || !s.Resident.Contains(uint32(idx)) {
			return fmt.Errorf("window: index %d is not resident", idx)
		}
	}
	return nil
}

func (s Slice) clone() Slice {
	out := Slice{
		Images:             make([]model.WindowImage, len(s.Images)),
		ByIndex:            make(map[int]model.WindowImage, len(s.ByIndex)),
		AnnotationsByImage: make(map[int64][]model.Annotation, len(s.AnnotationsByImage)),
		Resident:           roaring.New(),
	}
	for i, img := range s.Images {
		out.Images[i] = cloneImage(img)
	}
	for idx, img := range s.ByIndex {
		out.ByIndex[idx] = cloneImage(img)
	}
	for id, anns := range s.AnnotationsByImage {
		out.AnnotationsByImage[id] = model.CloneAnnotations(anns)
	}
	if s.Resident != nil {
		out.Resident = s.Resident.Clone()
	}
	return out
}

// Cache is the serving window. It is safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	cur Slice
}

// New returns an empty cache.
func New() *Cache {
	c := &Cache{}
	c.cur = Slice{}.clone()
	return c
}

// Update atomically replaces the cached content with a copy of s.
func (c *Cache) Update(s Slice) error {
	if err := s.Validate(); err != nil {
		return err
	}
	next := s.clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = next
	return nil
}

// AddAnnotation appends ann to the group of imageID.
func (c *Cache) AddAnnotation(imageID int64, ann model.Annotation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur.AnnotationsByImage[imageID] = append(c.cur.AnnotationsByImage[imageID], ann.Clone())
}

// UpdateAnnotation applies patch to the cached annotation and reports whether
// it was cached. When the patch moves the annotation to another image it
// joins that image's group, or leaves the window if the image is not cached.
func (c *Cache) UpdateAnnotation(id int64, patch model.AnnotationPatch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for imageID, anns := range c.cur.AnnotationsByImage {
		i := slices.IndexFunc(anns, func(a model.Annotation) bool { return a.ID == id })
		if i < 0 {
			continue
		}
		patch.Apply(&anns[i])
		if target := anns[i].ImageID; target != imageID {
			moved := anns[i]
			c.cur.AnnotationsByImage[imageID] = slices.Delete(anns, i, i+1)
			if c.hasImageLocked(target) {
				c.cur.AnnotationsByImage[target] = append(c.cur.AnnotationsByImage[target], moved)
			}
		}
		return true
	}
	return false
}

func (c *Cache) hasImageLocked(id int64) bool {
	return slices.ContainsFunc(c.cur.Images, func(img model.WindowImage) bool { return img.ID == id })
}

// DeleteAnnotation drops the annotation from every group and reports whether
// it was cached.
func (c *Cache) DeleteAnnotation(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := false
	for imageID, anns := range c.cur.AnnotationsByImage {
		kept := slices.DeleteFunc(anns, func(a model.Annotation) bool { return a.ID == id })
		if len(kept) != len(anns) {
			found = true
		}
		c.cur.AnnotationsByImage[imageID] = kept
	}
	return found
}

// DeleteImage removes the image and its annotation group and reports whether
// the image was cached. The remaining images keep their dataset positions.
func (c *Cache) DeleteImage(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.cur.Images)
	c.cur.Images = slices.DeleteFunc(c.cur.Images, func(img model.WindowImage) bool { return img.ID == id })
	delete(c.cur.AnnotationsByImage, id)
	for idx, img := range c.cur.ByIndex {
		if img.ID == id {
			delete(c.cur.ByIndex, idx)
			c.cur.Resident.Remove(uint32(idx))
		}
	}
	return len(c.cur.Images) != n
}

// ImageByID returns the cached image with that id.
func (c *Cache) ImageByID(id int64) (model.WindowImage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, img := range c.cur.Images {
		if img.ID == id {
			return cloneImage(img), true
		}
	}
	return model.WindowImage{}, false
}

// ImageAt returns the image cached at a dataset position.
func (c *Cache) ImageAt(index int) (model.WindowImage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.cur.ByIndex[index]
	return cloneImage(img), ok
}

// AnnotationsByImage returns copies of the cached annotations of one image.
func (c *Cache) AnnotationsByImage(imageID int64) []model.Annotation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.CloneAnnotations(c.cur.AnnotationsByImage[imageID])
}

// Contains reports whether a dataset position is resident.
func (c *Cache) Contains(index int) bool {
	if index < 0 {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur.Resident.Contains(uint32(index))
}

// Resident returns the resident dataset positions in ascending order.
func (c *Cache) Resident() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int, 0, c.cur.Resident.GetCardinality())
	it := c.cur.Resident.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cur.Images)
}

// Snapshot returns a deep copy of the cached content.
func (c *Cache) Snapshot() Slice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur.clone()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = Slice{}.clone()
}

func cloneImage(img model.WindowImage) model.WindowImage {
	img.Image = img.Image.Clone()
	return img
}

func sortedKeys(m map[int]model.WindowImage) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

package window

import (
	"maps"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/labelstore/model"
)

// Default window sizing.
const (
	DefaultSize = 64
	DefaultHead = 32
	DefaultTail = 32
)

// Config sizes the initial window.
type Config struct {
	// Size is the largest dataset that is cached whole.
	Size int
	// Head and Tail are the number of leading and trailing images cached
	// when the dataset is larger than Size.
	Head int
	Tail int
}

// DefaultConfig returns the default sizing.
func DefaultConfig() Config {
	return Config{Size: DefaultSize, Head: DefaultHead, Tail: DefaultTail}
}

// Range is a half-open interval of dataset positions.
type Range struct {
	Start, End int
}

// Plan returns the ranges to materialize for a dataset of total images.
// Small datasets are cached whole; larger ones as head plus tail.
func (cfg Config) Plan(total int) []Range {
	if total <= 0 {
		return nil
	}
	if total <= cfg.Size {
		return []Range{{0, total}}
	}
	head := min(max(cfg.Head, 0), total)
	tailStart := max(total-max(cfg.Tail, 0), head)
	var out []Range
	if head > 0 {
		out = append(out, Range{0, head})
	}
	if tailStart < total {
		out = append(out, Range{tailStart, total})
	}
	return out
}

// Build materializes positions [start, end) of images together with their
// annotations. Positions past the end of images are ignored.
func Build(images []model.Image, anns []model.Annotation, start, end int) Slice {
	start = max(start, 0)
	end = min(end, len(images))

	s := Slice{
		Images:             []model.WindowImage{},
		ByIndex:            map[int]model.WindowImage{},
		AnnotationsByImage: map[int64][]model.Annotation{},
		Resident:           roaring.New(),
	}
	ids := make(map[int64]struct{})
	for i := start; i < end; i++ {
		wi := model.WindowImage{Image: images[i], Index: i}
		s.Images = append(s.Images, wi)
		s.ByIndex[i] = wi
		s.Resident.Add(uint32(i))
		ids[images[i].ID] = struct{}{}
	}
	for _, a := range anns {
		if _, ok := ids[a.ImageID]; ok {
			s.AnnotationsByImage[a.ImageID] = append(s.AnnotationsByImage[a.ImageID], a.Clone())
		}
	}
	return s
}

// Merge unions slices. Later slices win on overlapping positions and image ids.
func Merge(parts ...Slice) Slice {
	out := Slice{
		ByIndex:            map[int]model.WindowImage{},
		AnnotationsByImage: map[int64][]model.Annotation{},
		Resident:           roaring.New(),
	}
	for _, p := range parts {
		maps.Copy(out.ByIndex, p.ByIndex)
		maps.Copy(out.AnnotationsByImage, p.AnnotationsByImage)
		if p.Resident != nil {
			out.Resident.Or(p.Resident)
		}
	}
	out.Images = make([]model.WindowImage, 0, len(out.ByIndex))
	for _, idx := range sortedKeys(out.ByIndex) {
		out.Images = append(out.Images, out.ByIndex[idx])
	}
	return out
}

// Load builds the slice for cfg's plan over the given collections.
func Load(cfg Config, images []model.Image, anns []model.Annotation) Slice {
	plan := cfg.Plan(len(images))
	parts := make([]Slice, 0, len(plan))
	for _, r := range plan {
		parts = append(parts, Build(images, anns, r.Start, r.End))
	}
	return Merge(parts...)
}

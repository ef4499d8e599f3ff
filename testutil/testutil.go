package testutil

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/labelstore/codec"
	"github.com/hupe1980/labelstore/model"
)

// SampleDataset returns a small dataset: images 1..3, annotations 1 and 2 on
// image 1, annotation 3 on image 3, and the non-contiguous categories 1 and 3.
func SampleDataset() *model.Dataset {
	return &model.Dataset{
		Info:     model.Info{"description": "sample", "version": "1.0"},
		Licenses: []model.License{{ID: 1, Name: "CC-BY"}},
		Categories: []model.Category{
			{ID: 1, Name: "cat", Supercategory: "animal"},
			{ID: 3, Name: "car", Supercategory: "vehicle"},
		},
		Images: []model.Image{
			{ID: 1, FileName: "a.jpg", Width: 640, Height: 480},
			{ID: 2, FileName: "b.jpg", Width: 640, Height: 480},
			{ID: 3, FileName: "c.jpg", Width: 320, Height: 240},
		},
		Annotations: []model.Annotation{
			Annotation(1, 1, 1),
			Annotation(2, 1, 3),
			Annotation(3, 3, 1),
		},
	}
}

// Annotation returns a unit-square annotation.
func Annotation(id, imageID, categoryID int64) model.Annotation {
	return model.Annotation{
		ID:           id,
		ImageID:      imageID,
		CategoryID:   categoryID,
		Segmentation: model.Polygons([]float64{0, 0, 1, 0, 1, 1, 0, 1}),
		BBox:         []float64{0, 0, 1, 1},
		Area:         1,
	}
}

// WriteDataset encodes ds into dir/dataset.json and returns the path.
func WriteDataset(t testing.TB, dir string, ds *model.Dataset) string {
	t.Helper()
	path := filepath.Join(dir, "dataset.json")
	data, err := codec.MarshalPretty(codec.Default, ds)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// ReadDataset decodes the dataset file at path.
func ReadDataset(t testing.TB, path string) *model.Dataset {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var ds model.Dataset
	require.NoError(t, codec.Default.Unmarshal(data, &ds))
	ds.Normalize()
	return &ds
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Polygon returns a random polygon with the given number of vertices inside
// a w×h image.
func (r *RNG) Polygon(vertices, w, h int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, 0, 2*vertices)
	for range vertices {
		out = append(out, r.rand.Float64()*float64(w), r.rand.Float64()*float64(h))
	}
	return out
}

// Dataset generates images with ids 1..images, categories 1..categories and
// perImage polygon annotations on every image. Annotation ids are contiguous.
func (r *RNG) Dataset(images, categories, perImage int) *model.Dataset {
	ds := &model.Dataset{Info: model.Info{"description": "random"}}
	for c := 1; c <= categories; c++ {
		ds.Categories = append(ds.Categories, model.Category{ID: int64(c), Name: "c" + strconv.Itoa(c), Supercategory: "s"})
	}
	var annID int64
	for i := 1; i <= images; i++ {
		ds.Images = append(ds.Images, model.Image{ID: int64(i), FileName: "img" + strconv.Itoa(i) + ".jpg", Width: 100, Height: 100})
		for range perImage {
			annID++
			poly := r.Polygon(4, 100, 100)
			bbox, _ := model.BBox([][]float64{poly})
			ds.Annotations = append(ds.Annotations, model.Annotation{
				ID:           annID,
				ImageID:      int64(i),
				CategoryID:   int64(1 + r.Intn(max(categories, 1))),
				Segmentation: model.Polygons(poly),
				BBox:         bbox,
				Area:         model.PolygonArea(poly),
			})
		}
	}
	ds.Normalize()
	return ds
}

package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadDataset(t *testing.T) {
	ds := SampleDataset()
	path := WriteDataset(t, t.TempDir(), ds)

	got := ReadDataset(t, path)
	assert.Equal(t, ds.Images, got.Images)
	assert.Equal(t, ds.Categories, got.Categories)
	require.Len(t, got.Annotations, 3)
	assert.Equal(t, int64(3), got.Annotations[2].ImageID)
}

func TestRNGDataset(t *testing.T) {
	rng := NewRNG(4711)

	ds := rng.Dataset(10, 3, 2)

	assert.Len(t, ds.Images, 10)
	assert.Len(t, ds.Categories, 3)
	require.Len(t, ds.Annotations, 20)
	assert.Equal(t, "img10.jpg", ds.Images[9].FileName)
	for i, a := range ds.Annotations {
		assert.Equal(t, int64(i+1), a.ID)
		assert.GreaterOrEqual(t, a.CategoryID, int64(1))
		assert.LessOrEqual(t, a.CategoryID, int64(3))
		assert.Len(t, a.BBox, 4)
	}
}

func TestRNGSeedIsDeterministic(t *testing.T) {
	a := NewRNG(7).Polygon(3, 10, 10)
	b := NewRNG(7).Polygon(3, 10, 10)
	assert.Equal(t, a, b)
	assert.Equal(t, int64(7), NewRNG(7).Seed())
}

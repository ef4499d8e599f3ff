package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentationJSON(t *testing.T) {
	t.Run("Polygons", func(t *testing.T) {
		var s Segmentation
		require.NoError(t, json.Unmarshal([]byte(`[[1,2,3,4,5,6]]`), &s))
		assert.Equal(t, [][]float64{{1, 2, 3, 4, 5, 6}}, s.Polygons)
		assert.Empty(t, s.RLE)

		out, err := json.Marshal(s)
		require.NoError(t, err)
		assert.JSONEq(t, `[[1,2,3,4,5,6]]`, string(out))
	})

	t.Run("RLEKeptVerbatim", func(t *testing.T) {
		raw := `{"counts":[1,2,3],"size":[10,10]}`
		var s Segmentation
		require.NoError(t, json.Unmarshal([]byte(raw), &s))
		assert.Nil(t, s.Polygons)

		out, err := json.Marshal(s)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out))
	})

	t.Run("EmptyWritesArray", func(t *testing.T) {
		out, err := json.Marshal(Segmentation{})
		require.NoError(t, err)
		assert.Equal(t, "[]", string(out))
	})
}

func TestAnnotationCloneIsDeep(t *testing.T) {
	a := Annotation{
		ID:           1,
		Segmentation: Polygons([]float64{0, 0, 1, 0, 1, 1}),
		BBox:         []float64{0, 0, 1, 1},
		Caption:      Ptr("a cat"),
	}
	c := a.Clone()
	c.Segmentation.Polygons[0][0] = 99
	c.BBox[0] = 99
	*c.Caption = "a dog"

	assert.Equal(t, 0.0, a.Segmentation.Polygons[0][0])
	assert.Equal(t, 0.0, a.BBox[0])
	assert.Equal(t, "a cat", *a.Caption)
}

func TestUnknownMembersRoundTrip(t *testing.T) {
	const doc = `{
		"info": {},
		"licenses": [{"id": 1, "name": "cc"}],
		"categories": [{"id": 1, "name": "person", "supercategory": "",
			"keypoints": ["nose", "eye"], "skeleton": [[1, 2]]}],
		"images": [{"id": 1, "file_name": "a.jpg", "width": 4, "height": 4, "depth": 3}],
		"annotations": [{"id": 1, "image_id": 1, "category_id": 1, "segmentation": [],
			"bbox": [0, 0, 1, 1], "area": 1, "iscrowd": 0, "attributes": {"occluded": true}}],
		"type": "instances"
	}`

	var d Dataset
	require.NoError(t, json.Unmarshal([]byte(doc), &d))
	assert.JSONEq(t, `[[1, 2]]`, string(d.Categories[0].Extra["skeleton"]))
	assert.JSONEq(t, `3`, string(d.Images[0].Extra["depth"]))
	assert.JSONEq(t, `{"occluded": true}`, string(d.Annotations[0].Extra["attributes"]))
	assert.Nil(t, d.Licenses[0].Extra)
	assert.NotContains(t, d.Images[0].Extra, "file_name")

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))

	c := d.Clone()
	c.Categories[0].Extra["skeleton"][1] = '9'
	assert.JSONEq(t, `[[1, 2]]`, string(d.Categories[0].Extra["skeleton"]))
}

func TestWindowImageJSON(t *testing.T) {
	w := WindowImage{Image: Image{ID: 2, FileName: "b.jpg", Extra: Extra{"depth": json.RawMessage("1")}}, Index: 5}

	out, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2,"file_name":"b.jpg","width":0,"height":0,"depth":1,"index":5}`, string(out))

	var back WindowImage
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, w, back)
}

func TestDatasetCloneAndNormalize(t *testing.T) {
	var d Dataset
	d.Normalize()
	assert.NotNil(t, d.Info)
	assert.NotNil(t, d.Images)
	assert.NotNil(t, d.Annotations)

	d.Images = append(d.Images, Image{ID: 1, FileName: "a.jpg"})
	c := d.Clone()
	c.Images[0].FileName = "b.jpg"
	assert.Equal(t, "a.jpg", d.Images[0].FileName)
}

func TestPatches(t *testing.T) {
	a := Annotation{ID: 1, CategoryID: 2, Area: 5}
	AnnotationPatch{CategoryID: Ptr[int64](9)}.Apply(&a)
	assert.Equal(t, int64(9), a.CategoryID)
	assert.Equal(t, 5.0, a.Area)

	c := Category{ID: 1, Name: "cat", Supercategory: "animal"}
	CategoryPatch{Name: Ptr("dog")}.Apply(&c)
	assert.Equal(t, "dog", c.Name)
	assert.Equal(t, "animal", c.Supercategory)
}

func TestErrorKinds(t *testing.T) {
	err := NotFound("annotation", 7)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInUse))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "annotation 7: not found", err.Error())

	wrapped := fmt.Errorf("route: %w", InUse("category", 3, "used by annotations"))
	assert.True(t, errors.Is(wrapped, ErrInUse))
	assert.Equal(t, KindInUse, KindOf(wrapped))

	cause := errors.New("disk full")
	io := Wrap(KindPermanentIO, "save", cause)
	assert.True(t, errors.Is(io, ErrPermanentIO))
	assert.ErrorIs(t, io, cause)
	assert.Nil(t, Wrap(KindParse, "load", nil))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.True(t, errors.Is(ErrNotLoaded, ErrNotLoaded))

	closed := &Error{Kind: KindPrecondition, Msg: "store is shut down"}
	assert.False(t, errors.Is(ErrNotLoaded, closed))
	assert.False(t, errors.Is(closed, ErrNotLoaded))
	assert.True(t, errors.Is(fmt.Errorf("save: %w", ErrNotLoaded), ErrNotLoaded))
	assert.True(t, errors.Is(ErrNotLoaded, &Error{Kind: KindPrecondition}))
}

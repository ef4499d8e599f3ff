package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBBox(t *testing.T) {
	box, err := BBox([][]float64{
		{10, 20, 30, 20, 30, 40},
		{5, 25, 8, 50},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 20, 25, 30}, box)

	_, err = BBox(nil)
	assert.ErrorIs(t, err, ErrEmptySegmentation)
}

func TestArea(t *testing.T) {
	square := []float64{0, 0, 10, 0, 10, 10, 0, 10}
	assert.InDelta(t, 100.0, PolygonArea(square), 1e-9)

	// Orientation does not change the sign.
	reversed := []float64{0, 10, 10, 10, 10, 0, 0, 0}
	assert.InDelta(t, 100.0, PolygonArea(reversed), 1e-9)

	triangle := []float64{0, 0, 4, 0, 0, 3}
	assert.InDelta(t, 106.0, Area([][]float64{square, triangle}), 1e-9)

	assert.Equal(t, 0.0, PolygonArea([]float64{0, 0, 1, 1}))
}

func TestDetectAnnotationType(t *testing.T) {
	tests := []struct {
		name string
		ann  Annotation
		want AnnotationType
	}{
		{"ObjectDetection", Annotation{ID: 1}, AnnotationTypeObjectDetection},
		{"Caption", Annotation{Caption: Ptr("x"), Keypoints: []float64{1}}, AnnotationTypeCaptioning},
		{"DensePose", Annotation{DPI: []byte("[1]"), Keypoints: []float64{1}}, AnnotationTypeDensePose},
		{"Keypoint", Annotation{Keypoints: []float64{1, 2, 2}}, AnnotationTypeKeypoint},
		{"Panoptic", Annotation{SegmentsInfo: []byte("[]")}, AnnotationTypePanoptic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectAnnotationType(tt.ann))
		})
	}
}

func TestCountAnnotationTypes(t *testing.T) {
	byImage := map[int64][]Annotation{
		100: {{ID: 1}, {ID: 2, Caption: Ptr("c")}},
		101: {{ID: 3}},
	}
	counts := CountAnnotationTypesBatch(byImage, []int64{100, 101, 102})

	assert.Equal(t, map[AnnotationType]int{
		AnnotationTypeObjectDetection: 1,
		AnnotationTypeCaptioning:      1,
	}, counts[100])
	assert.Equal(t, 1, counts[101][AnnotationTypeObjectDetection])
	assert.Empty(t, counts[102])
	assert.Equal(t, 2, TotalAnnotationCount(counts[100]))
}

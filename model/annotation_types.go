package model

// AnnotationType names the COCO task an annotation belongs to.
type AnnotationType string

const (
	AnnotationTypeObjectDetection AnnotationType = "object_detection"
	AnnotationTypeKeypoint        AnnotationType = "keypoint"
	AnnotationTypePanoptic        AnnotationType = "panoptic"
	AnnotationTypeCaptioning      AnnotationType = "captioning"
	AnnotationTypeDensePose       AnnotationType = "densepose"
)

// DetectAnnotationType classifies an annotation by the optional fields it carries.
// The first match wins: caption, DensePose, keypoints, panoptic segments,
// otherwise object detection.
func DetectAnnotationType(a Annotation) AnnotationType {
	switch {
	case a.Caption != nil:
		return AnnotationTypeCaptioning
	case len(a.DPI) > 0 || len(a.DPMasks) > 0:
		return AnnotationTypeDensePose
	case a.Keypoints != nil:
		return AnnotationTypeKeypoint
	case len(a.SegmentsInfo) > 0:
		return AnnotationTypePanoptic
	default:
		return AnnotationTypeObjectDetection
	}
}

// CountAnnotationTypes counts annotations per type. Types with a zero count are absent.
func CountAnnotationTypes(anns []Annotation) map[AnnotationType]int {
	counts := make(map[AnnotationType]int)
	for _, a := range anns {
		counts[DetectAnnotationType(a)]++
	}
	return counts
}

// CountAnnotationTypesBatch counts annotation types for each requested image.
// Images without annotations map to an empty count.
func CountAnnotationTypesBatch(byImage map[int64][]Annotation, imageIDs []int64) map[int64]map[AnnotationType]int {
	out := make(map[int64]map[AnnotationType]int, len(imageIDs))
	for _, id := range imageIDs {
		out[id] = CountAnnotationTypes(byImage[id])
	}
	return out
}

// TotalAnnotationCount sums a type count map.
func TotalAnnotationCount(counts map[AnnotationType]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

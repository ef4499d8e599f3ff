package model

import (
	"errors"
	"math"
)

// ErrEmptySegmentation is returned when a bounding box is requested for a
// segmentation without any points.
var ErrEmptySegmentation = errors.New("segmentation has no points")

// BBox computes the [x, y, width, height] box enclosing every polygon.
// Polygons are flat [x0, y0, x1, y1, ...] coordinate lists; a trailing odd
// coordinate is ignored.
func BBox(polygons [][]float64) ([]float64, error) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	points := 0
	for _, poly := range polygons {
		for i := 0; i+1 < len(poly); i += 2 {
			x, y := poly[i], poly[i+1]
			minX = math.Min(minX, x)
			maxX = math.Max(maxX, x)
			minY = math.Min(minY, y)
			maxY = math.Max(maxY, y)
			points++
		}
	}
	if points == 0 {
		return nil, ErrEmptySegmentation
	}
	return []float64{minX, minY, maxX - minX, maxY - minY}, nil
}

// PolygonArea returns the absolute area of one flat polygon (shoelace formula).
func PolygonArea(poly []float64) float64 {
	n := len(poly) / 2
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += poly[2*i]*poly[2*j+1] - poly[2*j]*poly[2*i+1]
	}
	return math.Abs(sum) / 2
}

// Area sums the areas of all polygons.
func Area(polygons [][]float64) float64 {
	var total float64
	for _, p := range polygons {
		total += PolygonArea(p)
	}
	return total
}

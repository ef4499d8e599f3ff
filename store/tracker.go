package store

import (
	"fmt"
	"strings"
)

// Change kinds reported to metrics collectors.
const (
	ChangeAnnotationAdded   = "annotations_added"
	ChangeAnnotationUpdated = "annotations_updated"
	ChangeAnnotationDeleted = "annotations_deleted"
	ChangeCategoryAdded     = "categories_added"
	ChangeCategoryUpdated   = "categories_updated"
	ChangeCategoryDeleted   = "categories_deleted"
	ChangeImageDeleted      = "images_deleted"
	ChangeReplaced          = "replaced"
)

// ChangeTracker counts mutations since the last successful save.
type ChangeTracker struct {
	AnnotationsAdded   int `json:"annotations_added"`
	AnnotationsUpdated int `json:"annotations_updated"`
	AnnotationsDeleted int `json:"annotations_deleted"`
	CategoriesAdded    int `json:"categories_added"`
	CategoriesUpdated  int `json:"categories_updated"`
	CategoriesDeleted  int `json:"categories_deleted"`
	ImagesDeleted      int `json:"images_deleted"`

	// Replaced is set when the collections were overwritten in bulk.
	Replaced bool `json:"replaced"`
}

func (t *ChangeTracker) record(kind string) {
	switch kind {
	case ChangeAnnotationAdded:
		t.AnnotationsAdded++
	case ChangeAnnotationUpdated:
		t.AnnotationsUpdated++
	case ChangeAnnotationDeleted:
		t.AnnotationsDeleted++
	case ChangeCategoryAdded:
		t.CategoriesAdded++
	case ChangeCategoryUpdated:
		t.CategoriesUpdated++
	case ChangeCategoryDeleted:
		t.CategoriesDeleted++
	case ChangeImageDeleted:
		t.ImagesDeleted++
	case ChangeReplaced:
		t.Replaced = true
	}
}

// Reset zeroes all counters.
func (t *ChangeTracker) Reset() {
	*t = ChangeTracker{}
}

// HasChanges reports whether anything was recorded.
func (t ChangeTracker) HasChanges() bool {
	return t != ChangeTracker{}
}

// Summary renders the counters for log lines, e.g.
// "2 annotation(s) added, 1 image(s) deleted".
func (t ChangeTracker) Summary() string {
	var parts []string
	add := func(n int, what string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, what))
		}
	}
	add(t.AnnotationsAdded, "annotation(s) added")
	add(t.AnnotationsUpdated, "annotation(s) updated")
	add(t.AnnotationsDeleted, "annotation(s) deleted")
	add(t.CategoriesAdded, "category(ies) added")
	add(t.CategoriesUpdated, "category(ies) updated")
	add(t.CategoriesDeleted, "category(ies) deleted")
	add(t.ImagesDeleted, "image(s) deleted")
	if t.Replaced {
		parts = append(parts, "collections replaced")
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

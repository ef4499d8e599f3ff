// Package model defines the dataset types shared by every labelstore package.
//
// # Entity Types
//
//   - Dataset: the whole COCO-style document (info, licenses, categories, images, annotations)
//   - Image: one image record; WindowImage adds the ephemeral window index
//   - Annotation: one labelled region on an image
//   - Category: one label class
//
// # Patches
//
// Partial updates are expressed as patch structs whose nil fields are left untouched:
//
//	patch := model.AnnotationPatch{CategoryID: model.Ptr[int64](7)}
//	patch.Apply(&ann)
//
// # Errors
//
// Failures carry a [Kind] so outer layers can map them to responses without
// string matching:
//
//	if errors.Is(err, model.ErrInUse) { ... }
//	switch model.KindOf(err) { ... }
package model

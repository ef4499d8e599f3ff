// Package labelstore keeps a COCO-format annotation dataset in memory and
// persists it back to disk or an S3-compatible object store.
//
// A Session ties three parts together: a document store that owns the
// dataset and writes it back after a debounce interval, a bounded window of
// images for serving, and a remote syncer that caches object-store datasets
// locally and tracks unsaved changes.
//
// # Quick Start
//
// Local mode:
//
//	ctx := context.Background()
//	sess, _ := labelstore.Open(ctx, "./data/annotations.json")
//	defer sess.Close()
//
// Cloud mode:
//
//	objects, _ := s3.New(ctx)
//	sess, _ := labelstore.Open(ctx, "s3://bucket/sets/train.json",
//	    labelstore.WithObjectStore(objects),
//	    labelstore.WithCacheDir("/fast/nvme"))
//
// # Editing
//
//	ann, _ := sess.AddAnnotation(imageID, categoryID, [][]float64{{0, 0, 10, 0, 10, 10}})
//	_, _ = sess.UpdateAnnotationCategory(ann.ID, otherCategory)
//	_ = sess.DeleteCategory(unused)
//
// Mutations are written to the local file after the auto-save interval
// (30s by default) or on Flush and Close.
//
// # Remote Datasets
//
// Remote datasets are downloaded into a content-addressed cache and
// revalidated by ETag on the next Open. Local saves mark the dataset dirty;
// SaveToRemote flushes, uploads and clears the flag:
//
//	if sess.DirtyStatus() {
//	    res, err := sess.SaveToRemote(ctx)
//	}
//
// Concurrent writers to the same object are not coordinated; the last upload
// wins.
package labelstore

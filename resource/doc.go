// Package resource governs remote traffic.
//
// A Controller combines two limits:
//
//   - Download slots: a weighted semaphore bounding parallel object downloads
//   - Request rate: a token bucket shared by every remote call
//
// Usage:
//
//	rc := resource.NewController(resource.Config{
//	    MaxConcurrentDownloads: 8,
//	    RequestsPerSecond:      50,
//	})
//
//	if err := rc.AcquireDownload(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseDownload()
//
//	if err := rc.WaitRequest(ctx); err != nil {
//	    return err
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional limiting without nil checks everywhere.
package resource

package resource

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds remote request limits.
type Config struct {
	// MaxConcurrentDownloads bounds parallel object downloads.
	// If 0, defaults to 4.
	MaxConcurrentDownloads int64

	// RequestsPerSecond caps remote calls of any kind.
	// If 0, unlimited.
	RequestsPerSecond float64

	// Burst is the limiter bucket size. If 0, defaults to
	// max(1, RequestsPerSecond).
	Burst int
}

// Controller governs remote traffic (download slots and request rate).
type Controller struct {
	cfg Config

	downloads *semaphore.Weighted
	active    atomic.Int64

	limiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentDownloads <= 0 {
		cfg.MaxConcurrentDownloads = 4
	}

	c := &Controller{
		cfg:       cfg,
		downloads: semaphore.NewWeighted(cfg.MaxConcurrentDownloads),
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RequestsPerSecond))
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return c
}

// AcquireDownload reserves a download slot, blocking while all are busy.
func (c *Controller) AcquireDownload(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.downloads.Acquire(ctx, 1); err != nil {
		return err
	}
	c.active.Add(1)
	return nil
}

// TryAcquireDownload reserves a download slot without blocking.
func (c *Controller) TryAcquireDownload() bool {
	if c == nil {
		return true
	}
	if !c.downloads.TryAcquire(1) {
		return false
	}
	c.active.Add(1)
	return true
}

// ReleaseDownload releases a download slot.
func (c *Controller) ReleaseDownload() {
	if c == nil {
		return
	}
	c.active.Add(-1)
	c.downloads.Release(1)
}

// ActiveDownloads returns the number of held download slots.
func (c *Controller) ActiveDownloads() int64 {
	if c == nil {
		return 0
	}
	return c.active.Load()
}

// MaxConcurrentDownloads returns the configured slot count.
func (c *Controller) MaxConcurrentDownloads() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MaxConcurrentDownloads
}

// WaitRequest blocks until the rate limiter admits one remote call.
func (c *Controller) WaitRequest(ctx context.Context) error {
	if c == nil || c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// AllowRequest reports whether a remote call may proceed now, consuming a
// token if so.
func (c *Controller) AllowRequest() bool {
	if c == nil || c.limiter == nil {
		return true
	}
	return c.limiter.AllowN(time.Now(), 1)
}

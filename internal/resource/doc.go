// Package resource bounds the memory held by block caches and the bytes per
// second pulled from remote blob stores.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   256 << 20,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//
// Memory acquisition is non-blocking and fail-fast; IO acquisition waits on
// a token bucket and honors context cancellation.
//
// All methods are safe for concurrent use, and all methods on a nil
// *Controller are no-ops so callers can pass nil to disable limiting.
package resource

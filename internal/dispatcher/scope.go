package dispatcher

import (
	"photocache/downloader/internal/domain"

	"github.com/sourcegraph/conc/pool"
)

// Scope runs the download tasks of one pass and collects their results.
// Wait blocks until every task started with Go has returned.
type Scope interface {
	Go(task func() domain.DownloadResult)
	Wait() []domain.DownloadResult
}

// ScopeFactory creates a fresh Scope for every pass.
type ScopeFactory func() Scope

// UnboundedScope starts one goroutine per admitted entry.
func UnboundedScope() Scope {
	return pool.NewWithResults[domain.DownloadResult]()
}

// BoundedScope caps the number of downloads in flight. A limit below 1 means unbounded.
func BoundedScope(limit int) ScopeFactory {
	if limit < 1 {
		return UnboundedScope
	}
	return func() Scope {
		return pool.NewWithResults[domain.DownloadResult]().WithMaxGoroutines(limit)
	}
}

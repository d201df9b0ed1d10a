package dispatcher

import (
	"context"
	"sync"
	"time"

	"photocache/downloader/internal/domain"
	"photocache/downloader/internal/domain/task"
	"photocache/downloader/internal/downloader"
	"photocache/downloader/internal/quota"
	"photocache/downloader/internal/storage"

	log "github.com/sirupsen/logrus"
)

// Dispatcher walks a catalog in order, admits entries against the album limits
// and hands every admitted entry to a concurrent download.
type Dispatcher struct {
	directories storage.DirectoryManager
	fetcher     downloader.Fetcher
	newScope    ScopeFactory
}

type Option func(*Dispatcher)

// WithScope replaces the default unbounded scope.
func WithScope(factory ScopeFactory) Option {
	return func(d *Dispatcher) {
		if factory != nil {
			d.newScope = factory
		}
	}
}

func New(directories storage.DirectoryManager, fetcher downloader.Fetcher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		directories: directories,
		fetcher:     fetcher,
		newScope:    UnboundedScope,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Pass is a dispatched catalog traversal whose downloads may still be running.
type Pass struct {
	ID string

	scope   Scope
	cancel  context.CancelFunc
	summary domain.PassSummary

	once   sync.Once
	result domain.PassSummary
}

// Dispatched returns the admission counters; download outcomes are not included.
func (p *Pass) Dispatched() domain.PassSummary {
	return p.summary
}

// Cancel stops every outstanding download of the pass.
func (p *Pass) Cancel() {
	p.cancel()
}

// Wait blocks until all downloads finished and returns the full summary.
// Individual failures are counted, never returned as an error.
func (p *Pass) Wait() domain.PassSummary {
	p.once.Do(func() {
		results := p.scope.Wait()
		p.cancel()

		summary := p.summary
		summary.Results = results
		for _, r := range results {
			if r.Succeeded() {
				summary.Succeeded++
				summary.Bytes += r.Bytes
			} else {
				summary.Failed++
			}
		}
		summary.FinishedAt = time.Now()
		p.result = summary
	})
	return p.result
}

// Dispatch admits entries in catalog order and starts a download for each admitted one.
// It returns once every entry was considered, without waiting for downloads.
//
// The first entry whose album is beyond domain.AlbumCapLimit ends the whole pass:
// the catalog is assumed sorted by album, so no later entry could be admitted.
// On an unsorted catalog this also drops valid entries that follow.
func (d *Dispatcher) Dispatch(ctx context.Context, passID string, entries []domain.CatalogEntry) *Pass {
	ctx, cancel := context.WithCancel(ctx)

	pass := &Pass{
		ID:     passID,
		scope:  d.newScope(),
		cancel: cancel,
		summary: domain.PassSummary{
			PassID:    passID,
			StartedAt: time.Now(),
		},
	}

	tracker := quota.NewTracker(domain.PhotosPerAlbumLimit)
	dirs := make(map[domain.AlbumID]string)

	for _, entry := range entries {
		pass.summary.Entries++

		if !entry.AlbumID.WithinCap() {
			pass.summary.Aborted = true
			pass.summary.AbortAlbumID = entry.AlbumID
			log.Infof("🛑 Album %d is beyond the cap of %d, ending pass", entry.AlbumID, domain.AlbumCapLimit)
			break
		}

		switch tracker.Admit(entry.AlbumID) {
		case quota.Rejected:
			pass.summary.Skipped++
			continue
		case quota.AdmittedFirst:
			dir, err := d.directories.EnsureDirectory(entry.AlbumID)
			if err != nil {
				log.Errorf("❌ Failed to create directory for album %d: %v", entry.AlbumID, err)
			}
			dirs[entry.AlbumID] = dir
			pass.summary.Albums++
		}

		t := task.NewDownloadTask(passID, entry, dirs[entry.AlbumID])
		pass.summary.Dispatched++

		pass.scope.Go(func() domain.DownloadResult {
			return d.fetcher.Fetch(ctx, t)
		})
	}

	log.Debugf("Pass %s dispatched %d downloads across %d albums (%d skipped)",
		passID, pass.summary.Dispatched, pass.summary.Albums, pass.summary.Skipped)

	return pass
}

// Process dispatches entries and waits for every download.
func (d *Dispatcher) Process(ctx context.Context, passID string, entries []domain.CatalogEntry) domain.PassSummary {
	return d.Dispatch(ctx, passID, entries).Wait()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photocache/downloader/internal/client"
	"photocache/downloader/internal/dispatcher"
	"photocache/downloader/internal/domain"
	"photocache/downloader/internal/domain/task"
	"photocache/downloader/internal/queue"
	"photocache/downloader/internal/repository"
	"photocache/downloader/internal/state"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Service runs catalog passes. The queue, repository and state manager are optional.
type Service struct {
	client       client.CatalogClient
	dispatcher   *dispatcher.Dispatcher
	queue        queue.Queue
	repository   repository.DownloadRepository
	stateManager state.StateManager
	lockTTL      time.Duration
	newPassID    func() string
}

func NewService(
	client client.CatalogClient,
	dispatcher *dispatcher.Dispatcher,
	queue queue.Queue,
	repository repository.DownloadRepository,
	stateManager state.StateManager,
	lockTTL time.Duration,
) *Service {
	return &Service{
		client:       client,
		dispatcher:   dispatcher,
		queue:        queue,
		repository:   repository,
		stateManager: stateManager,
		lockTTL:      lockTTL,
		newPassID:    func() string { return uuid.NewString() },
	}
}

// RunPass fetches the catalog, downloads the admitted entries and waits for them.
// Only a catalog failure or a held pass lock is returned as an error.
func (s *Service) RunPass(ctx context.Context) (*domain.PassSummary, error) {
	passID := s.newPassID()
	logger := log.WithField("pass", passID)

	if s.stateManager != nil {
		if err := s.stateManager.AcquirePassLock(ctx, passID, s.lockTTL); err != nil {
			return nil, err
		}
		defer func() {
			// The pass context may already be cancelled; the lock must still go.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := s.stateManager.ReleasePassLock(releaseCtx, passID); err != nil {
				logger.Warnf("⚠️ Failed to release pass lock: %v", err)
			}
		}()
	}

	logger.Info("🔄 Fetching catalog...")
	entries, err := s.client.GetCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	logger.Infof("📥 Catalog has %d entries", len(entries))

	pass := s.dispatcher.Dispatch(ctx, passID, entries)
	dispatched := pass.Dispatched()
	logger.Infof("🚀 Dispatched %d downloads for %d albums", dispatched.Dispatched, dispatched.Albums)
	if dispatched.Aborted {
		logger.Warnf("⚠️ Pass ended early at album %d; entries after it were not considered", dispatched.AbortAlbumID)
	}

	summary := pass.Wait()
	s.record(context.WithoutCancel(ctx), summary)

	logger.Infof("✅ Pass finished: %d succeeded, %d failed, %d skipped, %s written",
		summary.Succeeded, summary.Failed, summary.Skipped, humanize.Bytes(uint64(summary.Bytes)))

	return &summary, nil
}

// record persists outcomes to the optional backends. Errors are logged only.
func (s *Service) record(ctx context.Context, summary domain.PassSummary) {
	var journalErrs, saveErrs int

	for _, result := range summary.Results {
		if s.queue != nil {
			if _, err := s.queue.AddTask(ctx, task.NewDownloadOutcomeTask(summary.PassID, result)); err != nil {
				journalErrs++
				log.Debugf("Failed to journal outcome of %s: %v", result.URL, err)
			}
		}
		if s.repository != nil {
			if err := s.repository.SaveDownload(ctx, summary.PassID, result); err != nil {
				saveErrs++
				log.Debugf("Failed to save outcome of %s: %v", result.URL, err)
			}
		}
	}

	if journalErrs > 0 {
		log.Errorf("❌ Failed to journal %d of %d outcomes", journalErrs, len(summary.Results))
	}
	if saveErrs > 0 {
		log.Errorf("❌ Failed to save %d of %d outcomes", saveErrs, len(summary.Results))
	}

	if s.stateManager != nil {
		if err := s.stateManager.SetLastPass(ctx, summary); err != nil {
			log.Errorf("❌ Failed to store pass summary: %v", err)
		}
	}
}

// LastPass returns the summary stored by the previous pass, if any.
func (s *Service) LastPass(ctx context.Context) (*domain.PassSummary, error) {
	if s.stateManager == nil {
		return nil, errors.New("pass history requires redis")
	}
	return s.stateManager.GetLastPass(ctx)
}

package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrPassInProgress is returned when another process holds the pass lock.
var ErrPassInProgress = errors.New("another pass is already in progress")

// ErrorKind classifies why a single download did not complete.
type ErrorKind string

const (
	ErrorKindNetwork    ErrorKind = "network"     // Transport failure or timeout
	ErrorKindStatus     ErrorKind = "status"      // Non-2xx response
	ErrorKindFilesystem ErrorKind = "filesystem"  // Directory or file write failure
	ErrorKindInvalidURL ErrorKind = "invalid_url" // No usable file name in the URL
	ErrorKindCancelled  ErrorKind = "cancelled"   // Pass context cancelled
)

// DownloadError describes a failed item. It never fails the pass.
type DownloadError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	switch {
	case e.Kind == ErrorKindStatus:
		return fmt.Sprintf("%s %s: HTTP %d", e.Kind, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Kind, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s %s", e.Kind, e.URL)
	}
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// DownloadResult is the outcome of one fetch-and-persist task.
type DownloadResult struct {
	ItemID   int
	AlbumID  AlbumID
	URL      string
	Path     string // Final file path, empty on failure
	Bytes    int64
	Duration time.Duration
	Err      error
}

func (r DownloadResult) Succeeded() bool {
	return r.Err == nil
}

// PassSummary aggregates one catalog pass.
type PassSummary struct {
	PassID       string           `json:"pass_id"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Entries      int              `json:"entries"`    // Entries read before the loop ended
	Dispatched   int              `json:"dispatched"` // Admitted entries handed to workers
	Skipped      int              `json:"skipped"`    // Entries rejected by the per-album quota
	Succeeded    int              `json:"succeeded"`
	Failed       int              `json:"failed"`
	Bytes        int64            `json:"bytes"`
	Albums       int              `json:"albums"` // Albums admitted in this pass
	Aborted      bool             `json:"aborted"`
	AbortAlbumID AlbumID          `json:"abort_album_id,omitempty"`
	Results      []DownloadResult `json:"-"`
}

// KindOf returns the kind of a DownloadError anywhere in err's chain.
func KindOf(err error) ErrorKind {
	var dlErr *DownloadError
	if errors.As(err, &dlErr) {
		return dlErr.Kind
	}
	return ""
}

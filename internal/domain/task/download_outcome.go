package task

import (
	"photocache/downloader/internal/domain"
)

// DownloadOutcomeTask is the journal record published for each finished download.
type DownloadOutcomeTask struct {
	PassID     string         `json:"pass_id"`
	ItemID     int            `json:"item_id"`
	AlbumID    domain.AlbumID `json:"album_id"`
	URL        string         `json:"url"`
	Path       string         `json:"path,omitempty"`
	Bytes      int64          `json:"bytes"`
	DurationMs int64          `json:"duration_ms"`
	Status     string         `json:"status"`          // "succeeded" or "failed"
	Error      string         `json:"error,omitempty"` // Error message of a failed download
	ErrorKind  string         `json:"error_kind,omitempty"`
}

func NewDownloadOutcomeTask(passID string, result domain.DownloadResult) *DownloadOutcomeTask {
	t := &DownloadOutcomeTask{
		PassID:     passID,
		ItemID:     result.ItemID,
		AlbumID:    result.AlbumID,
		URL:        result.URL,
		Path:       result.Path,
		Bytes:      result.Bytes,
		DurationMs: result.Duration.Milliseconds(),
		Status:     "succeeded",
	}
	if result.Err != nil {
		t.Status = "failed"
		t.Error = result.Err.Error()
		t.ErrorKind = string(domain.KindOf(result.Err))
	}
	return t
}

func (t *DownloadOutcomeTask) TaskType() string {
	return "DownloadOutcomeTask"
}

func (t *DownloadOutcomeTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}

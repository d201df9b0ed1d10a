package task

import "photocache/downloader/internal/domain"

// DownloadTask is the unit of work handed to a fetch-and-persist worker.
// It is created on admission and consumed exactly once.
type DownloadTask struct {
	PassID         string         `json:"pass_id"`
	ItemID         int            `json:"item_id"`
	AlbumID        domain.AlbumID `json:"album_id"`
	URL            string         `json:"url"`
	DestinationDir string         `json:"destination_dir"`
}

func NewDownloadTask(passID string, entry domain.CatalogEntry, dir string) *DownloadTask {
	return &DownloadTask{
		PassID:         passID,
		ItemID:         entry.ItemID,
		AlbumID:        entry.AlbumID,
		URL:            entry.URL,
		DestinationDir: dir,
	}
}

package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"photocache/downloader/internal/config"
	"photocache/downloader/internal/domain"
	"photocache/downloader/internal/domain/task"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
)

func newTestFetcher(fs afero.Fs) Fetcher {
	return NewFetcher(config.DownloadConfig{Timeout: 5}, fs, nil)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://host/x/y/photo123.jpg", "photo123.jpg", false},
		{"https://via.placeholder.com/600/92c952", "92c952", false},
		{"photo.png", "photo.png", false},
		{"https://host/x/", "", true},
		{"https://host/x/..", "", true},
		{"https://host/.", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := FileName(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FileName(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FileName(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	fs.MkdirAll("/cache/1", 0755)

	result := newTestFetcher(fs).Fetch(context.Background(), &task.DownloadTask{
		ItemID:         1,
		AlbumID:        1,
		URL:            server.URL + "/600/photo1.jpg",
		DestinationDir: "/cache/1",
	})

	if result.Err != nil {
		t.Fatalf("Fetch() error = %v", result.Err)
	}
	if result.Path != filepath.Join("/cache/1", "photo1.jpg") {
		t.Errorf("Path = %q", result.Path)
	}
	if result.Bytes != int64(len("image-bytes")) {
		t.Errorf("Bytes = %d", result.Bytes)
	}

	data, err := afero.ReadFile(fs, result.Path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("file content = %q", data)
	}

	entries, _ := afero.ReadDir(fs, "/cache/1")
	if len(entries) != 1 {
		t.Errorf("album directory holds %d entries, want 1 (no temp files left)", len(entries))
	}
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	fs.MkdirAll("/cache/1", 0755)

	result := newTestFetcher(fs).Fetch(context.Background(), &task.DownloadTask{
		AlbumID:        1,
		URL:            server.URL + "/broken.jpg",
		DestinationDir: "/cache/1",
	})

	var dlErr *domain.DownloadError
	if !errors.As(result.Err, &dlErr) {
		t.Fatalf("Err = %v, want *domain.DownloadError", result.Err)
	}
	if dlErr.Kind != domain.ErrorKindStatus || dlErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("DownloadError = %+v", dlErr)
	}
	if result.Path != "" {
		t.Errorf("Path = %q, want empty", result.Path)
	}

	if exists, _ := afero.Exists(fs, "/cache/1/broken.jpg"); exists {
		t.Error("no file should be written for a failed response")
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.WarnLevel {
		t.Errorf("expected the failure to be logged at warn level, got %v", entry)
	}
}

func TestFetch_TruncatedBodyLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("partial"))
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	fs.MkdirAll("/cache/2", 0755)

	result := newTestFetcher(fs).Fetch(context.Background(), &task.DownloadTask{
		AlbumID:        2,
		URL:            server.URL + "/cut.jpg",
		DestinationDir: "/cache/2",
	})

	if domain.KindOf(result.Err) != domain.ErrorKindNetwork {
		t.Fatalf("Err = %v, want network error", result.Err)
	}

	entries, _ := afero.ReadDir(fs, "/cache/2")
	if len(entries) != 0 {
		t.Errorf("album directory holds %d entries, want none", len(entries))
	}
}

func TestFetch_MissingDirectory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	result := newTestFetcher(afero.NewOsFs()).Fetch(context.Background(), &task.DownloadTask{
		AlbumID:        3,
		URL:            server.URL + "/photo.jpg",
		DestinationDir: filepath.Join(t.TempDir(), "missing"),
	})

	if domain.KindOf(result.Err) != domain.ErrorKindFilesystem {
		t.Fatalf("Err = %v, want filesystem error", result.Err)
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	result := newTestFetcher(afero.NewMemMapFs()).Fetch(context.Background(), &task.DownloadTask{
		URL:            "https://host/dir/",
		DestinationDir: "/cache/1",
	})

	if domain.KindOf(result.Err) != domain.ErrorKindInvalidURL {
		t.Fatalf("Err = %v, want invalid_url", result.Err)
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := newTestFetcher(afero.NewMemMapFs()).Fetch(ctx, &task.DownloadTask{
		URL:            server.URL + "/photo.jpg",
		DestinationDir: "/cache/1",
	})

	if domain.KindOf(result.Err) != domain.ErrorKindCancelled {
		t.Fatalf("Err = %v, want cancelled", result.Err)
	}
	if !errors.Is(result.Err, context.Canceled) {
		t.Errorf("Err should wrap context.Canceled, got %v", result.Err)
	}
	if requests != 0 {
		t.Errorf("server saw %d requests, want 0", requests)
	}
}

package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"photocache/downloader/internal/config"
	"photocache/downloader/internal/domain"
	"photocache/downloader/internal/domain/task"
	"photocache/downloader/internal/proxy"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// Fetcher downloads a single item into its album directory.
type Fetcher interface {
	Fetch(ctx context.Context, t *task.DownloadTask) domain.DownloadResult
}

type fetcher struct {
	httpClient *resty.Client
	fs         afero.Fs
	rl         ratelimit.Limiter
}

func NewFetcher(cfg config.DownloadConfig, fs afero.Fs, proxySupplier proxy.ProxySupplier) Fetcher {
	client := resty.New().
		SetTransport(proxy.Transport(proxySupplier)).
		SetTimeout(cfg.TimeoutDuration()).
		SetRetryCount(0)

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	return &fetcher{
		httpClient: client,
		fs:         fs,
		rl:         rl,
	}
}

// FileName derives the output file name from the last path segment of rawURL.
func FileName(rawURL string) (string, error) {
	segments := strings.Split(rawURL, "/")
	name := segments[len(segments)-1]

	switch name {
	case "", ".", "..":
		return "", fmt.Errorf("no file name in URL %q", rawURL)
	}
	return name, nil
}

// Fetch performs one GET for t.URL and stores the body as a file in t.DestinationDir.
// Failures are reported in the result and logged, never retried.
func (f *fetcher) Fetch(ctx context.Context, t *task.DownloadTask) domain.DownloadResult {
	started := time.Now()
	result := domain.DownloadResult{
		ItemID:  t.ItemID,
		AlbumID: t.AlbumID,
		URL:     t.URL,
	}

	path, n, err := f.fetch(ctx, t)
	result.Duration = time.Since(started)
	result.Bytes = n

	logger := log.WithFields(log.Fields{
		"pass":  t.PassID,
		"album": t.AlbumID,
		"item":  t.ItemID,
		"url":   t.URL,
	})
	if err != nil {
		result.Err = err
		logger.Warnf("⚠️ Download failed: %v", err)
		return result
	}

	result.Path = path
	logger.Debugf("Saved %s (%d bytes)", path, n)
	return result
}

func (f *fetcher) fetch(ctx context.Context, t *task.DownloadTask) (string, int64, error) {
	if ctx.Err() != nil {
		return "", 0, &domain.DownloadError{Kind: domain.ErrorKindCancelled, URL: t.URL, Err: ctx.Err()}
	}

	name, err := FileName(t.URL)
	if err != nil {
		return "", 0, &domain.DownloadError{Kind: domain.ErrorKindInvalidURL, URL: t.URL, Err: err}
	}

	if err := f.waitTurn(ctx); err != nil {
		return "", 0, &domain.DownloadError{Kind: domain.ErrorKindCancelled, URL: t.URL, Err: err}
	}

	resp, err := f.httpClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(t.URL)
	if err != nil {
		if ctx.Err() != nil {
			return "", 0, &domain.DownloadError{Kind: domain.ErrorKindCancelled, URL: t.URL, Err: ctx.Err()}
		}
		return "", 0, &domain.DownloadError{Kind: domain.ErrorKindNetwork, URL: t.URL, Err: err}
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	if !resp.IsSuccess() {
		return "", 0, &domain.DownloadError{Kind: domain.ErrorKindStatus, URL: t.URL, StatusCode: resp.StatusCode()}
	}
	if resp.Body == nil {
		return "", 0, &domain.DownloadError{Kind: domain.ErrorKindNetwork, URL: t.URL, Err: errors.New("empty response body")}
	}

	target := filepath.Join(t.DestinationDir, name)
	body := &trackingReader{r: resp.Body}

	n, err := f.persist(target, body)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return "", n, &domain.DownloadError{Kind: domain.ErrorKindCancelled, URL: t.URL, Err: ctx.Err()}
		case body.err != nil:
			return "", n, &domain.DownloadError{Kind: domain.ErrorKindNetwork, URL: t.URL, Err: err}
		default:
			return "", n, &domain.DownloadError{Kind: domain.ErrorKindFilesystem, URL: t.URL, Err: err}
		}
	}

	return target, n, nil
}

// waitTurn blocks until the limiter grants a request slot or ctx is done.
func (f *fetcher) waitTurn(ctx context.Context) error {
	granted := make(chan struct{})
	go func() {
		f.rl.Take()
		close(granted)
	}()

	select {
	case <-granted:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// persist streams r into a temporary file next to target and renames it into place,
// so target either holds the full body or does not exist.
func (f *fetcher) persist(target string, r io.Reader) (int64, error) {
	dir, name := filepath.Split(target)

	tmp, err := afero.TempFile(f.fs, dir, "."+name+".part-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}

	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()

	if copyErr != nil || closeErr != nil {
		f.fs.Remove(tmp.Name())
		if copyErr != nil {
			return n, fmt.Errorf("failed to write %s: %w", target, copyErr)
		}
		return n, fmt.Errorf("failed to close %s: %w", target, closeErr)
	}

	if err := f.fs.Rename(tmp.Name(), target); err != nil {
		f.fs.Remove(tmp.Name())
		return n, fmt.Errorf("failed to move %s into place: %w", target, err)
	}

	return n, nil
}

// trackingReader remembers the first read error so body failures can be told apart from disk failures.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

package repository

import (
	"context"
	"fmt"

	"photocache/downloader/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type DownloadRepository interface {
	EnsureSchema(ctx context.Context) error
	SaveDownload(ctx context.Context, passID string, result domain.DownloadResult) error
}

type downloadRepository struct {
	db DB
}

func NewDownloadRepository(db DB) DownloadRepository {
	return &downloadRepository{
		db: db,
	}
}

func (r *downloadRepository) EnsureSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS downloads (
		album_id    INTEGER     NOT NULL,
		item_id     INTEGER     NOT NULL,
		url         TEXT        NOT NULL,
		path        TEXT,
		bytes       BIGINT      NOT NULL DEFAULT 0,
		status      TEXT        NOT NULL,
		error       TEXT,
		pass_id     TEXT        NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (album_id, item_id)
	)`
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create downloads table: %w", err)
	}
	return nil
}

func (r *downloadRepository) SaveDownload(ctx context.Context, passID string, result domain.DownloadResult) error {
	status := "succeeded"
	var errText *string
	if result.Err != nil {
		status = "failed"
		msg := result.Err.Error()
		errText = &msg
	}

	var path *string
	if result.Path != "" {
		path = &result.Path
	}

	query := `
	INSERT INTO downloads (album_id, item_id, url, path, bytes, status, error, pass_id, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	ON CONFLICT (album_id, item_id)
	DO UPDATE SET url = $3, path = $4, bytes = $5, status = $6, error = $7, pass_id = $8, updated_at = now()`
	_, err := r.db.Exec(ctx, query,
		int(result.AlbumID), result.ItemID, result.URL, path, result.Bytes, status, errText, passID)
	if err != nil {
		return fmt.Errorf("failed to save download %d/%d: %w", result.AlbumID, result.ItemID, err)
	}

	return nil
}

package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"photocache/downloader/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

// recordingDB captures statements instead of talking to Postgres.
type recordingDB struct {
	calls []execCall
	err   error
}

func (db *recordingDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	db.calls = append(db.calls, execCall{sql: sql, args: arguments})
	return pgconn.NewCommandTag("INSERT 0 1"), db.err
}

func TestEnsureSchema(t *testing.T) {
	db := &recordingDB{}
	if err := NewDownloadRepository(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if len(db.calls) != 1 || !strings.Contains(db.calls[0].sql, "CREATE TABLE IF NOT EXISTS downloads") {
		t.Errorf("unexpected statements: %+v", db.calls)
	}
}

func TestSaveDownload(t *testing.T) {
	tests := []struct {
		name       string
		result     domain.DownloadResult
		wantStatus string
		wantPath   any
		wantErr    any
	}{
		{
			name:       "succeeded",
			result:     domain.DownloadResult{ItemID: 7, AlbumID: 2, URL: "https://img/2/a.jpg", Path: "/cache/2/a.jpg", Bytes: 42},
			wantStatus: "succeeded",
			wantPath:   "/cache/2/a.jpg",
		},
		{
			name: "failed",
			result: domain.DownloadResult{ItemID: 8, AlbumID: 2, URL: "https://img/2/b.jpg",
				Err: &domain.DownloadError{Kind: domain.ErrorKindStatus, URL: "https://img/2/b.jpg", StatusCode: 404}},
			wantStatus: "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &recordingDB{}
			if err := NewDownloadRepository(db).SaveDownload(context.Background(), "pass-1", tt.result); err != nil {
				t.Fatalf("SaveDownload() error = %v", err)
			}
			if len(db.calls) != 1 {
				t.Fatalf("Exec calls = %d, want 1", len(db.calls))
			}

			args := db.calls[0].args
			if len(args) != 8 {
				t.Fatalf("args = %v, want 8 values", args)
			}
			if args[0] != int(tt.result.AlbumID) || args[1] != tt.result.ItemID || args[7] != "pass-1" {
				t.Errorf("key args = %v", args)
			}
			if args[5] != tt.wantStatus {
				t.Errorf("status = %v, want %s", args[5], tt.wantStatus)
			}

			path := args[3].(*string)
			if tt.wantPath == nil {
				if path != nil {
					t.Errorf("path = %q, want NULL", *path)
				}
			} else if path == nil || *path != tt.wantPath {
				t.Errorf("path = %v, want %v", path, tt.wantPath)
			}

			errText := args[6].(*string)
			if tt.result.Err == nil && errText != nil {
				t.Errorf("error = %q, want NULL", *errText)
			}
			if tt.result.Err != nil && (errText == nil || *errText != tt.result.Err.Error()) {
				t.Errorf("error = %v, want %q", errText, tt.result.Err.Error())
			}
		})
	}
}

func TestSaveDownload_WrapsExecError(t *testing.T) {
	db := &recordingDB{err: errors.New("connection reset")}

	err := NewDownloadRepository(db).SaveDownload(context.Background(), "pass-1", domain.DownloadResult{ItemID: 1, AlbumID: 1})
	if err == nil || !errors.Is(err, db.err) {
		t.Errorf("SaveDownload() error = %v, want wrapped %v", err, db.err)
	}
}

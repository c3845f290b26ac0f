package library

import (
	"context"
	"database/sql"
	"time"
)

// Repository is the persistence contract for media, watch folders, export
// jobs and agent configuration. Lookups that find nothing return (nil, nil).
type Repository interface {
	CreateMedia(ctx context.Context, m *Media) error
	GetMedia(ctx context.Context, id string) (*Media, error)
	GetMediaByPath(ctx context.Context, path string) (*Media, error)
	ListMedia(ctx context.Context) ([]*Media, error)
	DeleteMedia(ctx context.Context, id string) error
	CountMedia(ctx context.Context) (int, error)

	CreateWatchFolder(ctx context.Context, w *WatchFolder) error
	GetWatchFolderByPath(ctx context.Context, path string) (*WatchFolder, error)
	ListWatchFolders(ctx context.Context) ([]*WatchFolder, error)

	CreateExport(ctx context.Context, j *ExportJob) error
	GetExport(ctx context.Context, id string) (*ExportJob, error)
	ListExports(ctx context.Context, limit int) ([]*ExportJob, error)
	ListPendingExports(ctx context.Context) ([]*ExportJob, error)
	UpdateExportStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateExportProgress(ctx context.Context, id string, progress int) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateMedia(ctx context.Context, m *Media) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media (id, path, filename, size_bytes, duration_sec, width, height, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Path, m.Filename, m.SizeBytes, m.DurationSec, m.Width, m.Height, m.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetMedia(ctx context.Context, id string) (*Media, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, path, filename, size_bytes, duration_sec, width, height, created_at
		FROM media WHERE id = ?
	`, id)
	return scanMedia(row)
}

func (r *SQLiteRepository) GetMediaByPath(ctx context.Context, path string) (*Media, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, path, filename, size_bytes, duration_sec, width, height, created_at
		FROM media WHERE path = ?
	`, path)
	return scanMedia(row)
}

func scanMedia(row *sql.Row) (*Media, error) {
	var m Media
	var createdAt string
	err := row.Scan(&m.ID, &m.Path, &m.Filename, &m.SizeBytes, &m.DurationSec, &m.Width, &m.Height, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &m, nil
}

func (r *SQLiteRepository) ListMedia(ctx context.Context) ([]*Media, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, path, filename, size_bytes, duration_sec, width, height, created_at
		FROM media ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var media []*Media
	for rows.Next() {
		var m Media
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Path, &m.Filename, &m.SizeBytes, &m.DurationSec, &m.Width, &m.Height, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		media = append(media, &m)
	}
	return media, rows.Err()
}

func (r *SQLiteRepository) DeleteMedia(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountMedia(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) CreateWatchFolder(ctx context.Context, w *WatchFolder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watch_folders (id, path, created_at) VALUES (?, ?, ?)
	`, w.ID, w.Path, w.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetWatchFolderByPath(ctx context.Context, path string) (*WatchFolder, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id, path, created_at FROM watch_folders WHERE path = ?", path)

	var w WatchFolder
	var createdAt string
	err := row.Scan(&w.ID, &w.Path, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &w, nil
}

func (r *SQLiteRepository) ListWatchFolders(ctx context.Context) ([]*WatchFolder, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, path, created_at FROM watch_folders ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*WatchFolder
	for rows.Next() {
		var w WatchFolder
		var createdAt string
		if err := rows.Scan(&w.ID, &w.Path, &createdAt); err != nil {
			return nil, err
		}
		w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		folders = append(folders, &w)
	}
	return folders, rows.Err()
}

func (r *SQLiteRepository) CreateExport(ctx context.Context, j *ExportJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (id, status, progress, output_path, clip_count, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Status, j.Progress, j.OutputPath, j.ClipCount, nullString(j.Error),
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetExport(ctx context.Context, id string) (*ExportJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, status, progress, output_path, clip_count, error, created_at, updated_at
		FROM exports WHERE id = ?
	`, id)
	return scanExport(row)
}

func scanExport(row *sql.Row) (*ExportJob, error) {
	var j ExportJob
	var errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.Status, &j.Progress, &j.OutputPath, &j.ClipCount, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListExports(ctx context.Context, limit int) ([]*ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, progress, output_path, clip_count, error, created_at, updated_at
		FROM exports ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExports(rows)
}

func (r *SQLiteRepository) ListPendingExports(ctx context.Context) ([]*ExportJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, progress, output_path, clip_count, error, created_at, updated_at
		FROM exports WHERE status = 'pending' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExports(rows)
}

func scanExports(rows *sql.Rows) ([]*ExportJob, error) {
	var jobs []*ExportJob
	for rows.Next() {
		var j ExportJob
		var errMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&j.ID, &j.Status, &j.Progress, &j.OutputPath, &j.ClipCount, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.Error = errMsg.String
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateExportStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) UpdateExportProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET progress = ?, updated_at = datetime('now') WHERE id = ?
	`, progress, id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

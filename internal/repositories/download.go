package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/shared"
)

const downloadColumns = `id, sequence, track_id, resolved_id, title, artists, album, format, sink, path, bytes, created_at, deleted_at`

// DownloadRepository implements models.Repository[*models.Download] for the download history.
type DownloadRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Download] = (*DownloadRepository)(nil)

// NewDownloadRepository creates a new DownloadRepository with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Create inserts a new [models.Download] into the database with generated ID and sequence
func (r *DownloadRepository) Create(d *models.Download) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "downloads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO downloads (id, sequence, track_id, resolved_id, title, artists, album, format, sink, path, bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		d.TrackID,
		d.ResolvedID,
		d.Title,
		d.Artists,
		d.Album,
		d.Format,
		d.Sink,
		d.Path,
		d.Bytes,
		d.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}

	d.SetID(id)
	d.SetSequence(sequence)
	return nil
}

// Get retrieves a download by ID, excluding soft-deleted rows
func (r *DownloadRepository) Get(id string) (*models.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByTrackID retrieves the most recent download of a requested track id (base62)
func (r *DownloadRepository) GetByTrackID(trackID string) (*models.Download, error) {
	query := `
		SELECT ` + downloadColumns + `
		FROM downloads
		WHERE track_id = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`
	return r.scan(r.db.QueryRow(query, trackID))
}

// Update modifies an existing download in the database
func (r *DownloadRepository) Update(d *models.Download) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE downloads
		SET title = ?, artists = ?, album = ?, format = ?, sink = ?, path = ?, bytes = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, d.Title, d.Artists, d.Album, d.Format, d.Sink, d.Path, d.Bytes, d.ID())
	if err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}
	return expectRow(result, d.ID())
}

// Delete soft-deletes a download by ID
func (r *DownloadRepository) Delete(id string) error {
	query := `
		UPDATE downloads
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}
	return expectRow(result, id)
}

// List retrieves all downloads matching the given criteria, excluding soft-deleted rows.
//
// Supported criteria: "track_id" (string), "sink" (string), "format" (string) and "limit" (int).
func (r *DownloadRepository) List(criteria map[string]any) ([]*models.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE deleted_at IS NULL`
	args := []any{}

	for _, col := range []string{"track_id", "sink", "format"} {
		if v, ok := criteria[col].(string); ok && v != "" {
			query += " AND " + col + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*models.Download
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return downloads, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one row of downloadColumns from a [sql.Row] or [sql.Rows]
func (r *DownloadRepository) scan(row scanner) (*models.Download, error) {
	var (
		id        string
		sequence  int
		d         models.Download
		createdAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &d.TrackID, &d.ResolvedID, &d.Title, &d.Artists, &d.Album, &d.Format, &d.Sink, &d.Path, &d.Bytes, &createdAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: download", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}
	return models.RestoreDownload(id, sequence, createdAt, deleted, d), nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: download %s or already deleted", shared.ErrNotFound, id)
	}
	return nil
}

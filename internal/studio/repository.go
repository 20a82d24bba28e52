package studio

import (
	"context"
	"database/sql"
	"time"
)

// timeLayout keeps stored timestamps sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Repository interface {
	SaveScript(ctx context.Context, rec *ScriptRecord) error
	GetScript(ctx context.Context, id string) (*ScriptRecord, error)
	ListScripts(ctx context.Context) ([]*ScriptRecord, error)
	DeleteScript(ctx context.Context, id string) error

	CreateRenderJob(ctx context.Context, job *RenderJob) error
	GetRenderJob(ctx context.Context, id string) (*RenderJob, error)
	ListRenderJobs(ctx context.Context, scriptID string, limit int) ([]*RenderJob, error)
	UpdateRenderJobStatus(ctx context.Context, id, status, errorMsg string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveScript inserts or replaces a script document.
func (r *SQLiteRepository) SaveScript(ctx context.Context, s *ScriptRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scripts (id, title, document, version, segment_count, approved_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			document = excluded.document,
			version = excluded.version,
			segment_count = excluded.segment_count,
			approved_count = excluded.approved_count,
			updated_at = excluded.updated_at
	`, s.ID, s.Title, string(s.Document), s.Version, s.SegmentCount, s.ApprovedCount,
		s.CreatedAt.UTC().Format(timeLayout), s.UpdatedAt.UTC().Format(timeLayout))
	return err
}

func (r *SQLiteRepository) GetScript(ctx context.Context, id string) (*ScriptRecord, error) {
	var s ScriptRecord
	var doc, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, document, version, segment_count, approved_count, created_at, updated_at
		FROM scripts WHERE id = ?
	`, id).Scan(&s.ID, &s.Title, &doc, &s.Version, &s.SegmentCount, &s.ApprovedCount, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.Document = []byte(doc)
	s.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	s.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &s, nil
}

// ListScripts returns summaries, most recently updated first. Documents are
// not loaded.
func (r *SQLiteRepository) ListScripts(ctx context.Context) ([]*ScriptRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, version, segment_count, approved_count, created_at, updated_at
		FROM scripts ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scripts []*ScriptRecord
	for rows.Next() {
		var s ScriptRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&s.ID, &s.Title, &s.Version, &s.SegmentCount, &s.ApprovedCount, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		s.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		s.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		scripts = append(scripts, &s)
	}
	return scripts, rows.Err()
}

func (r *SQLiteRepository) DeleteScript(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM scripts WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CreateRenderJob(ctx context.Context, j *RenderJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO render_jobs (id, script_id, kind, status, fingerprint, version, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.ScriptID, j.Kind, j.Status, j.Fingerprint, j.Version, nullString(j.Error),
		j.CreatedAt.UTC().Format(timeLayout), j.UpdatedAt.UTC().Format(timeLayout))
	return err
}

func (r *SQLiteRepository) GetRenderJob(ctx context.Context, id string) (*RenderJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, script_id, kind, status, fingerprint, version, error, created_at, updated_at
		FROM render_jobs WHERE id = ?
	`, id)

	j, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

// ListRenderJobs returns the newest jobs first. An empty scriptID lists jobs
// for every script.
func (r *SQLiteRepository) ListRenderJobs(ctx context.Context, scriptID string, limit int) ([]*RenderJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, script_id, kind, status, fingerprint, version, error, created_at, updated_at
		FROM render_jobs WHERE (? = '' OR script_id = ?) ORDER BY created_at DESC LIMIT ?
	`, scriptID, scriptID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*RenderJob
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanJob(scan func(dest ...any) error) (*RenderJob, error) {
	var j RenderJob
	var errMsg sql.NullString
	var createdAt, updatedAt string

	if err := scan(&j.ID, &j.ScriptID, &j.Kind, &j.Status, &j.Fingerprint, &j.Version, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	j.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) UpdateRenderJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE render_jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errorMsg), time.Now().UTC().Format(timeLayout), id)
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

package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cartoonify/internal/model"
	"cartoonify/internal/repository"
)

const videoJobColumns = `id, source_name, output_path, width, height, fps,
	total_frames, processed_frames, status, error, created_at, completed_at`

// VideoJobRepository implements repository.VideoJobRepository for SQLite.
type VideoJobRepository struct {
	db *DB
}

// NewVideoJobRepository creates a new SQLite video job repository.
func NewVideoJobRepository(db *DB) *VideoJobRepository {
	return &VideoJobRepository{db: db}
}

// Insert adds a new video job record to the database.
func (r *VideoJobRepository) Insert(job *model.VideoJob) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO video_jobs (`+videoJobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.SourceName, job.OutputPath, job.Width, job.Height, job.FPS,
		job.TotalFrames, job.ProcessedFrames, job.Status, job.Error, job.CreatedAt, nullTime(job))
	if err != nil {
		return fmt.Errorf("failed to insert video job: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an existing job.
func (r *VideoJobRepository) Update(job *model.VideoJob) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE video_jobs
		SET output_path = ?, width = ?, height = ?, fps = ?, total_frames = ?,
			processed_frames = ?, status = ?, error = ?, completed_at = ?
		WHERE id = ?
	`, job.OutputPath, job.Width, job.Height, job.FPS, job.TotalFrames,
		job.ProcessedFrames, job.Status, job.Error, nullTime(job), job.ID)
	if err != nil {
		return fmt.Errorf("failed to update video job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update video job: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FailInterrupted marks every job still in processing as failed. Such rows are
// left behind when the server stops in the middle of a conversion.
func (r *VideoJobRepository) FailInterrupted(reason string, at time.Time) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE video_jobs
		SET status = ?, error = ?, completed_at = ?
		WHERE status = ?
	`, model.StatusFailed, reason, at, model.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted video jobs: %w", err)
	}
	return result.RowsAffected()
}

// GetByID retrieves a video job by its ID.
func (r *VideoJobRepository) GetByID(id string) (*model.VideoJob, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+videoJobColumns+` FROM video_jobs WHERE id = ?`, id)
	job, err := scanVideoJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video job: %w", err)
	}
	return job, nil
}

// GetAll retrieves video jobs based on filter criteria, newest first.
func (r *VideoJobRepository) GetAll(filter *model.VideoJobFilter) ([]model.VideoJob, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT ` + videoJobColumns + ` FROM video_jobs WHERE 1=1`
	args := []interface{}{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query video jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.VideoJob{}
	for rows.Next() {
		job, err := scanVideoJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	return jobs, rows.Err()
}

// GetTotalCount returns the total count of video jobs matching the filter.
func (r *VideoJobRepository) GetTotalCount(filter *model.VideoJobFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT COUNT(*) FROM video_jobs WHERE 1=1`
	args := []interface{}{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	var count int
	if err := r.db.Conn().QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count video jobs: %w", err)
	}
	return count, nil
}

// Delete removes a video job by ID.
func (r *VideoJobRepository) Delete(id string) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM video_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete video job: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVideoJob(row rowScanner) (*model.VideoJob, error) {
	var job model.VideoJob
	var completedAt sql.NullTime

	err := row.Scan(&job.ID, &job.SourceName, &job.OutputPath, &job.Width, &job.Height, &job.FPS,
		&job.TotalFrames, &job.ProcessedFrames, &job.Status, &job.Error, &job.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}

func nullTime(job *model.VideoJob) sql.NullTime {
	if job.CompletedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *job.CompletedAt, Valid: true}
}

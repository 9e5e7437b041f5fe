package localdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"go.uber.org/zap"
)

// PrintJob status values.
const (
	JobStatusQueued   = "queued"
	JobStatusPrinting = "printing"
	JobStatusDone     = "done"
	JobStatusFailed   = "failed"
)

// PrintJob is one row of the print history.
type PrintJob struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Model      string     `json:"model"`
	MediaType  string     `json:"media_type"`
	Target     string     `json:"target"`
	Copies     int        `json:"copies"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SetupPrintJobsTable creates the print_jobs table
func SetupPrintJobsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS print_jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		media_type TEXT NOT NULL DEFAULT '',
		target TEXT NOT NULL DEFAULT '',
		copies INTEGER NOT NULL DEFAULT 1,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create print_jobs table", zap.Error(err))
		return fmt.Errorf("failed to create print_jobs table: %w", err)
	}
	return nil
}

// RecordPrintJob inserts a job in the given status.
func RecordPrintJob(job PrintJob) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	if job.Status == "" {
		job.Status = JobStatusQueued
	}

	_, err := db.Exec(`INSERT INTO print_jobs (id, status, model, media_type, target, copies, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		job.ID, job.Status, job.Model, job.MediaType, job.Target, job.Copies)
	if err != nil {
		logger.Error("Failed to record print job", zap.Error(err), zap.String("job_id", job.ID))
		return fmt.Errorf("failed to record print job: %w", err)
	}
	return nil
}

// UpdatePrintJobStatus moves a job to printing and fills in the resolved parameters.
func UpdatePrintJobStatus(id, status, mediaType, target string) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	_, err := db.Exec(`UPDATE print_jobs SET status = ?,
		media_type = CASE WHEN ? = '' THEN media_type ELSE ? END,
		target = CASE WHEN ? = '' THEN target ELSE ? END
		WHERE id = ?`,
		status, mediaType, mediaType, target, target, id)
	if err != nil {
		return fmt.Errorf("failed to update print job: %w", err)
	}
	return nil
}

// FinishPrintJob marks a job done, or failed when jobErr is non-nil.
func FinishPrintJob(id string, jobErr error) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	status, message := JobStatusDone, ""
	if jobErr != nil {
		status, message = JobStatusFailed, jobErr.Error()
	}

	res, err := db.Exec(`UPDATE print_jobs SET status = ?, error = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, message, id)
	if err != nil {
		logger.Error("Failed to finish print job", zap.Error(err), zap.String("job_id", id))
		return fmt.Errorf("failed to finish print job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("print job not found: %s", id)
	}
	return nil
}

// GetPrintJob returns one job by id.
func GetPrintJob(id string) (*PrintJob, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	row := db.QueryRow(`SELECT id, status, model, media_type, target, copies, error, created_at, finished_at
		FROM print_jobs WHERE id = ?`, id)
	job, err := scanPrintJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// ListPrintJobs returns the newest jobs first.
func ListPrintJobs(limit int) ([]PrintJob, error) {
	db := GetDB()
	if db == nil {
		return []PrintJob{}, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`SELECT id, status, model, media_type, target, copies, error, created_at, finished_at
		FROM print_jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		logger.Error("Failed to list print jobs", zap.Error(err))
		return []PrintJob{}, fmt.Errorf("failed to list print jobs: %w", err)
	}
	defer rows.Close()

	jobs := []PrintJob{}
	for rows.Next() {
		job, err := scanPrintJob(rows)
		if err != nil {
			logger.Error("Failed to scan print job", zap.Error(err))
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrintJob(row rowScanner) (*PrintJob, error) {
	var job PrintJob
	var finished sql.NullTime
	if err := row.Scan(&job.ID, &job.Status, &job.Model, &job.MediaType, &job.Target,
		&job.Copies, &job.Error, &job.CreatedAt, &finished); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}
	return &job, nil
}

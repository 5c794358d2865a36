package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

const executionColumns = `id, name, description, user_id, status, start_time, end_time`

func (db *DB) CreateExecution(exec *domain.JobExecution) error {
	query := `INSERT INTO job_executions (id, name, description, user_id, status, start_time, end_time)
		VALUES (:id, :name, :description, :user_id, :status, :start_time, :end_time)`

	_, err := db.NamedExec(query, exec)
	return err
}

func (db *DB) GetExecution(id string) (*domain.JobExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM job_executions WHERE id = ?`

	exec := &domain.JobExecution{}
	err := db.Get(exec, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return exec, nil
}

func (db *DB) UpdateExecutionDescription(id, description string) error {
	_, err := db.Exec(`UPDATE job_executions SET description = ? WHERE id = ?`, description, id)
	return err
}

// FinishExecution moves a running execution to a terminal status. Rows that
// already left the running state are not touched again.
func (db *DB) FinishExecution(id string, status domain.JobStatus, endTime time.Time) error {
	query := `UPDATE job_executions SET status = ?, end_time = ? WHERE id = ? AND status = ?`
	_, err := db.Exec(query, status, endTime, id, domain.JobStatusRunning)
	return err
}

// RecoverInterrupted marks every execution still recorded as running as
// interrupted. It returns the number of rows changed, so a second call
// returns zero.
func (db *DB) RecoverInterrupted() (int64, error) {
	query := `UPDATE job_executions SET status = ?, end_time = COALESCE(end_time, ?) WHERE status = ?`
	res, err := db.Exec(query, domain.JobStatusInterrupted, time.Now(), domain.JobStatusRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListExecutions returns the most recent executions visible to a user:
// their own plus system-wide ones. A nil userID lists everything.
func (db *DB) ListExecutions(userID *int64, limit, offset int) ([]*domain.JobExecution, error) {
	var (
		execs []*domain.JobExecution
		err   error
	)
	if userID == nil {
		query := `SELECT ` + executionColumns + ` FROM job_executions ORDER BY start_time DESC LIMIT ? OFFSET ?`
		err = db.Select(&execs, query, limit, offset)
	} else {
		query := `SELECT ` + executionColumns + ` FROM job_executions
			WHERE user_id = ? OR user_id IS NULL
			ORDER BY start_time DESC LIMIT ? OFFSET ?`
		err = db.Select(&execs, query, *userID, limit, offset)
	}
	return execs, err
}

func (db *DB) ListRunningExecutions() ([]*domain.JobExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM job_executions WHERE status = ? ORDER BY start_time ASC`

	var execs []*domain.JobExecution
	err := db.Select(&execs, query, domain.JobStatusRunning)
	return execs, err
}

// PruneExecutions deletes terminal executions that ended before cutoff,
// together with their messages.
func (db *DB) PruneExecutions(cutoff time.Time) (int64, error) {
	query := `DELETE FROM job_executions WHERE status != ? AND end_time IS NOT NULL AND end_time < ?`
	res, err := db.Exec(query, domain.JobStatusRunning, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) AppendMessage(msg *domain.JobMessage) error {
	query := `INSERT INTO job_messages (job_id, timestamp, progress, text, level, suppress_notification)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := db.Exec(query, msg.JobID, msg.Timestamp, msg.Progress, msg.Text, msg.Level, msg.SuppressNotification)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id
	return nil
}

func (db *DB) ListMessages(jobID string) ([]*domain.JobMessage, error) {
	query := `SELECT id, job_id, timestamp, progress, text, level, suppress_notification
		FROM job_messages WHERE job_id = ? ORDER BY timestamp ASC, id ASC`

	var msgs []*domain.JobMessage
	err := db.Select(&msgs, query, jobID)
	return msgs, err
}

type ExecutionStats struct {
	Total       int `db:"total"`
	Running     int `db:"running"`
	Finished    int `db:"finished"`
	Failed      int `db:"failed"`
	Interrupted int `db:"interrupted"`
}

func (db *DB) GetExecutionStats() (*ExecutionStats, error) {
	query := `SELECT
		COUNT(*) as total,
		COALESCE(SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END), 0) as running,
		COALESCE(SUM(CASE WHEN status = 'finished' THEN 1 ELSE 0 END), 0) as finished,
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed,
		COALESCE(SUM(CASE WHEN status = 'interrupted' THEN 1 ELSE 0 END), 0) as interrupted
	FROM job_executions`

	stats := &ExecutionStats{}
	err := db.Get(stats, query)
	return stats, err
}

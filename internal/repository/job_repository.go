package repository

import (
	"context"
	"database/sql"
	"fmt"

	"climate-odds/internal/models"
	"climate-odds/pkg/database"
	"climate-odds/pkg/logging"
	"climate-odds/pkg/metrics"
)

// JobRepository is the result-store contract the job pipeline needs:
// create, load-by-id, one-shot terminal update, and owner-scoped listing.
// The storage engine behind it is not part of the contract.
type JobRepository interface {
	Create(ctx context.Context, job *models.AnalyzeJob) error
	GetByID(ctx context.Context, id string) (*models.AnalyzeJob, error)
	Update(ctx context.Context, id string, outcome models.JobOutcome) error
	ListByOwner(ctx context.Context, userID string, limit, offset int) ([]*models.AnalyzeJob, int, error)

	HealthCheck(ctx context.Context) error
}

// jobRepository implements JobRepository on PostgreSQL
type jobRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewJobRepository creates a Postgres-backed job repository
func NewJobRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) JobRepository {
	return &jobRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Create inserts a new job row in running state
func (r *jobRepository) Create(ctx context.Context, job *models.AnalyzeJob) error {
	query := `
		INSERT INTO analyze_jobs (
			id, user_id, status, created_at,
			params_json, model_version, dataset_version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, "insert_job", query,
		job.ID,
		job.UserID,
		job.Status,
		job.CreatedAt,
		[]byte(job.Params),
		job.ModelVersion,
		job.DatasetVersion,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CREATE_JOB] Job created", logging.Fields{
		"job_id":  job.ID,
		"user_id": job.UserID,
		"status":  job.Status,
	})

	return nil
}

// GetByID retrieves a job row by id
func (r *jobRepository) GetByID(ctx context.Context, id string) (*models.AnalyzeJob, error) {
	query := `
		SELECT id, user_id, status, created_at, duration_ms,
		       params_json, result_json, result_uri, result_hash,
		       model_version, dataset_version, response_status
		FROM analyze_jobs
		WHERE id = $1
	`

	var job models.AnalyzeJob
	err := r.db.GetContext(ctx, "get_job", &job, query, id)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "analyze_job",
			ID:       id,
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// Update writes a job's terminal outcome. The status transition is one-way:
// the WHERE clause refuses to touch rows that already reached a terminal
// state, so the outcome is applied at most once.
func (r *jobRepository) Update(ctx context.Context, id string, outcome models.JobOutcome) error {
	query := `
		UPDATE analyze_jobs
		SET status = $2,
		    result_json = $3,
		    result_hash = $4,
		    duration_ms = $5,
		    response_status = $6
		WHERE id = $1 AND status = $7
	`

	result, err := r.db.ExecContext(ctx, "update_job", query,
		id,
		outcome.Status,
		[]byte(outcome.Result),
		outcome.ResultHash,
		outcome.DurationMs,
		outcome.ResponseStatus,
		models.StatusRunning,
	)

	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check job update: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{
			Resource: "running analyze_job",
			ID:       id,
		}
	}

	r.logger.Debug(ctx, "[REPO_UPDATE_JOB] Job reached terminal state", logging.Fields{
		"job_id":      id,
		"status":      outcome.Status,
		"duration_ms": outcome.DurationMs,
	})

	return nil
}

// ListByOwner retrieves one owner's jobs, newest first, with the total count
func (r *jobRepository) ListByOwner(ctx context.Context, userID string, limit, offset int) ([]*models.AnalyzeJob, int, error) {
	countQuery := `SELECT COUNT(*) FROM analyze_jobs WHERE user_id = $1`

	var total int
	if err := r.db.GetContext(ctx, "count_jobs", &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	query := `
		SELECT id, user_id, status, created_at, duration_ms,
		       params_json, result_json, result_uri, result_hash,
		       model_version, dataset_version, response_status
		FROM analyze_jobs
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	var jobs []*models.AnalyzeJob
	if err := r.db.SelectContext(ctx, "list_jobs", &jobs, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, total, nil
}

// HealthCheck performs a repository health check
func (r *jobRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error. Foreign-owned jobs
// are reported with this same error so a lookup cannot reveal whether the
// id exists.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

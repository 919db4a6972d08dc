package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"climate-odds/internal/analysis"
	"climate-odds/internal/models"
	"climate-odds/internal/repository"
	"climate-odds/pkg/logging"
	"climate-odds/pkg/metrics"
)

// WindowFetcher is the multi-year data-fetch capability the service needs.
type WindowFetcher interface {
	FetchWindow(ctx context.Context, lat, lon float64, month, day, startYear, endYear, halfWindowDays int, vars []models.Variable) ([]models.DailyObservation, error)
}

// AnalyzeService owns the analysis-job state machine: it creates job rows in
// running state, schedules the detached fetch-and-aggregate work, and serves
// owner-scoped lookups. Workers communicate with the store only through the
// job id, never through a shared in-memory handle.
type AnalyzeService struct {
	repo    repository.JobRepository
	fetcher WindowFetcher
	runner  TaskRunner
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAnalyzeService creates a new analyze service
func NewAnalyzeService(repo repository.JobRepository, fetcher WindowFetcher, runner TaskRunner, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AnalyzeService {
	return &AnalyzeService{
		repo:    repo,
		fetcher: fetcher,
		runner:  runner,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Submit validates the request, creates the job row in running state, and
// schedules the detached worker. It returns the job id without waiting for
// the work to finish; polling the job is the only way to observe the result.
// A *models.ValidationError means no job row was produced.
func (s *AnalyzeService) Submit(ctx context.Context, userID string, req *models.AnalyzeRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	params, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request params: %w", err)
	}

	job := &models.AnalyzeJob{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         models.StatusRunning,
		CreatedAt:      time.Now().UTC(),
		Params:         params,
		ModelVersion:   models.ModelVersion,
		DatasetVersion: models.DatasetVersion,
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	s.metrics.JobsSubmittedTotal.Inc()
	s.logger.Info(ctx, "[JOB_SUBMIT] Analysis job created", logging.Fields{
		"job_id":  job.ID,
		"user_id": userID,
		"factors": req.Factors,
	})

	started := time.Now()
	request := *req
	jobID := job.ID
	s.runner.Submit("analyze:"+jobID, func(workerCtx context.Context) {
		s.execute(workerCtx, jobID, request, started)
	})

	return jobID, nil
}

// execute is the detached worker. Every failure inside it, panics included,
// becomes a terminal error outcome; nothing is re-raised and the job is
// never retried. Only process termination can leave a row stuck in running.
func (s *AnalyzeService) execute(ctx context.Context, jobID string, req models.AnalyzeRequest, started time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			s.finish(ctx, jobID, errorOutcome(fmt.Errorf("analysis panicked: %v", rec), started))
		}
	}()

	outcome := s.computeOutcome(ctx, req, started)
	s.finish(ctx, jobID, outcome)
}

func (s *AnalyzeService) computeOutcome(ctx context.Context, req models.AnalyzeRequest, started time.Time) models.JobOutcome {
	vars := models.VariablesForFactors(req.Factors)

	rows, err := s.fetcher.FetchWindow(ctx,
		req.Latitude, req.Longitude,
		req.Month, req.Day,
		req.StartYear, req.EndYear,
		req.HalfWindowDays, vars,
	)
	if err != nil {
		return errorOutcome(err, started)
	}

	var payload models.AnalyzeResult
	if len(rows) == 0 {
		payload = models.AnalyzeResult{
			OK:      false,
			Message: "no data from upstream",
		}
	} else {
		results := analysis.Analyze(rows, req.Factors, req.HalfWindowDays)
		payload = models.AnalyzeResult{
			OK:        true,
			Location:  &models.Location{Lat: req.Latitude, Lon: req.Longitude},
			TargetDay: &models.TargetDay{Month: req.Month, Day: req.Day, HalfWindowDays: req.HalfWindowDays},
			Years: &models.YearSpan{
				Start: req.StartYear,
				End:   req.EndYear,
				Count: countYears(rows),
			},
			PowerVariables: vars,
			Factors:        req.Factors,
			Results:        results,
		}
	}

	encoded, hash, err := analysis.EncodeResult(payload)
	if err != nil {
		return errorOutcome(fmt.Errorf("failed to encode result: %w", err), started)
	}

	return models.JobOutcome{
		Status:         models.StatusOK,
		Result:         encoded,
		ResultHash:     &hash,
		DurationMs:     time.Since(started).Milliseconds(),
		ResponseStatus: 200,
	}
}

// finish applies the terminal outcome through the store. An update failure
// is logged and dropped: the worker boundary never re-raises.
func (s *AnalyzeService) finish(ctx context.Context, jobID string, outcome models.JobOutcome) {
	s.metrics.JobsCompletedTotal.WithLabelValues(string(outcome.Status)).Inc()
	s.metrics.AnalysisDuration.Observe(float64(outcome.DurationMs) / 1000)

	if err := s.repo.Update(ctx, jobID, outcome); err != nil {
		s.logger.Error(ctx, "[JOB_FINISH_ERROR] Failed to persist terminal job state", logging.Fields{
			"job_id": jobID,
			"status": outcome.Status,
		}, err)
		return
	}

	s.logger.Info(ctx, "[JOB_FINISH] Analysis job finished", logging.Fields{
		"job_id":      jobID,
		"status":      outcome.Status,
		"duration_ms": outcome.DurationMs,
	})
}

func errorOutcome(err error, started time.Time) models.JobOutcome {
	detail, _ := json.Marshal(map[string]string{"error": err.Error()})
	return models.JobOutcome{
		Status:         models.StatusError,
		Result:         detail,
		DurationMs:     time.Since(started).Milliseconds(),
		ResponseStatus: 500,
	}
}

func countYears(rows []models.DailyObservation) int {
	years := make(map[int]bool)
	for _, row := range rows {
		years[row.Year] = true
	}
	return len(years)
}

// GetByID returns the job only when it belongs to the caller. Unknown ids
// and foreign-owned ids both come back as not-found.
func (s *AnalyzeService) GetByID(ctx context.Context, userID, id string) (*models.AnalyzeJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if job.UserID != userID {
		return nil, &repository.NotFoundError{Resource: "analyze_job", ID: id}
	}

	return job, nil
}

// ListByOwner returns one page of the caller's jobs, newest first, with the
// total count. Page is 1-based; pageSize is clamped to [1, 100].
func (s *AnalyzeService) ListByOwner(ctx context.Context, userID string, page, pageSize int) ([]*models.AnalyzeJob, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.repo.ListByOwner(ctx, userID, pageSize, offset)
}

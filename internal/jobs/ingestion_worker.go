package jobs

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/logging"
	"github.com/cloo-solutions/voicerag/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts for a failing job
	MaxRetries = 3
)

// IngestionJobRepository defines the job persistence the worker needs
type IngestionJobRepository interface {
	// GetPendingJobs claims pending jobs, moving them to processing
	GetPendingJobs(ctx context.Context) ([]*domain.IngestionJob, error)

	UpdateJobStatus(ctx context.Context, jobID string, status domain.IngestionJobStatus, errMsg string) error

	IncrementRetries(ctx context.Context, jobID string) error
}

// DocumentProcessor ingests one stored document
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, documentID string) error
}

// IngestionWorker drains the ingestion job queue
type IngestionWorker struct {
	repo      IngestionJobRepository
	processor DocumentProcessor
	logger    *zap.Logger
}

func NewIngestionWorker(repo IngestionJobRepository, processor DocumentProcessor, logger *zap.Logger) *IngestionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionWorker{
		repo:      repo,
		processor: processor,
		logger:    logger,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestionWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	w.logger.Info("processing ingestion jobs", zap.Int("count", len(jobs)))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("error processing job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	return nil
}

func (w *IngestionWorker) processJob(ctx context.Context, job *domain.IngestionJob) error {
	ctx, txn := telemetry.StartTransaction(ctx, "IngestionWorker.processJob", "ingestion.job")
	defer txn.End()

	logger := w.logger.With(zap.String("job_id", job.ID), zap.String("document_id", job.DocumentID))
	ctx = logging.With(ctx, logger)

	if err := w.processor.ProcessDocument(ctx, job.DocumentID); err != nil {
		txn.SetStatus(sentry.SpanStatusInternalError)
		return w.handleJobFailure(ctx, logger, job, err)
	}
	txn.SetStatus(sentry.SpanStatusOK)

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IngestionJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	logger.Info("job completed")
	return nil
}

// handleJobFailure retries transient failures up to MaxRetries. Validation
// and not-found failures cannot succeed on retry and fail the job at once.
func (w *IngestionWorker) handleJobFailure(ctx context.Context, logger *zap.Logger, job *domain.IngestionJob, jobErr error) error {
	logger.Warn("job failed", zap.Error(jobErr))

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	switch domain.CodeOf(jobErr) {
	case domain.ErrCodeValidation, domain.ErrCodeNotFound:
		errMsg := fmt.Sprintf("permanent failure: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IngestionJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	if job.Retries+1 >= MaxRetries {
		logger.Warn("job exceeded max retries", zap.Int("max_retries", MaxRetries))
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IngestionJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	logger.Info("job will be retried", zap.Int32("attempt", job.Retries+1), zap.Int("max_retries", MaxRetries))
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IngestionJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}

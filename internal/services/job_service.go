package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	jobrepo "github.com/xwerkax/BloomlyApp/internal/data/repos/jobs"
	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/platform/ctxutil"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type EnqueueRequest struct {
	JobType    string         `json:"job_type"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   *uuid.UUID     `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type JobService interface {
	// Enqueue rejects unknown job types and, with ErrConflict, a second runnable
	// job for the same type and entity.
	Enqueue(ctx context.Context, req EnqueueRequest) (*types.JobRun, error)
	Get(ctx context.Context, id uuid.UUID) (*types.JobRun, error)
	List(ctx context.Context, jobType string, limit int) ([]*types.JobRun, error)
	Cancel(ctx context.Context, id uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	log     *logger.Logger
	repo    jobrepo.JobRunRepo
	notify  JobNotifier
	allowed map[string]bool
}

func NewJobService(baseLog *logger.Logger, repo jobrepo.JobRunRepo, notify JobNotifier, jobTypes []string) JobService {
	allowed := make(map[string]bool, len(jobTypes))
	for _, t := range jobTypes {
		allowed[t] = true
	}
	return &jobService{
		log:     baseLog.With("service", "JobService"),
		repo:    repo,
		notify:  notify,
		allowed: allowed,
	}
}

func (s *jobService) Enqueue(ctx context.Context, req EnqueueRequest) (*types.JobRun, error) {
	jobType := strings.TrimSpace(req.JobType)
	if !s.allowed[jobType] {
		return nil, fmt.Errorf("unknown job_type %q: %w", req.JobType, errs.ErrInvalidArgument)
	}
	dbc := dbctx.Of(ctx)
	exists, err := s.repo.ExistsRunnable(dbc, jobType, req.EntityType, req.EntityID)
	if err != nil {
		return nil, fmt.Errorf("check runnable: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%s already queued or running: %w", jobType, errs.ErrConflict)
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	job := &types.JobRun{
		ID:         uuid.New(),
		JobType:    jobType,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Status:     types.JobStatusQueued,
		Stage:      "queued",
		Message:    "Queued",
		Payload:    datatypes.JSON(raw),
		Result:     datatypes.JSON([]byte(`{}`)),
	}
	if _, err := s.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if s.notify != nil {
		s.notify.JobCreated(job)
	}
	s.log.Info("Job enqueued", "job_id", job.ID, "job_type", job.JobType)
	return job, nil
}

func (s *jobService) Get(ctx context.Context, id uuid.UUID) (*types.JobRun, error) {
	job, err := s.repo.GetByID(dbctx.Of(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", id, errs.ErrNotFound)
	}
	return job, nil
}

func (s *jobService) List(ctx context.Context, jobType string, limit int) ([]*types.JobRun, error) {
	return s.repo.ListRecent(dbctx.Of(ctx), strings.TrimSpace(jobType), limit)
}

// Cancel is a no-op for jobs that already finished.
func (s *jobService) Cancel(ctx context.Context, id uuid.UUID) (*types.JobRun, error) {
	dbc := dbctx.Of(ctx)
	if _, err := s.repo.UpdateFieldsUnlessStatus(dbc, id,
		[]string{types.JobStatusSucceeded, types.JobStatusFailed, types.JobStatusCanceled},
		map[string]interface{}{
			"status":    types.JobStatusCanceled,
			"stage":     "canceled",
			"message":   "Canceled",
			"locked_at": nil,
		},
	); err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	return s.Get(ctx, id)
}

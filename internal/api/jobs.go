package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"videobridge/internal/api/models"
	"videobridge/internal/job"
	"videobridge/internal/supervisor"
)

// registerJobRoutes registers all job control endpoints.
func (s *Server) registerJobRoutes() {
	// List all job slots
	huma.Register(s.api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/jobs",
		Summary:     "List Jobs",
		Description: "Get the status of every job kind: the active job if one is running, otherwise the last result",
		Tags:        []string{"jobs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.JobListResponse, error) {
		statuses := s.service.StatusAll()
		return &models.JobListResponse{
			Body: models.JobListData{
				Jobs:  statuses,
				Count: len(statuses),
			},
		}, nil
	})

	// Get one job slot
	huma.Register(s.api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{kind}",
		Summary:     "Get Job",
		Description: "Get the status of one job kind",
		Tags:        []string{"jobs"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Kind string `path:"kind" example:"transcribe" doc:"Job kind"`
	}) (*models.JobResponse, error) {
		kind, err := job.ParseKind(input.Kind)
		if err != nil {
			return nil, huma.Error400BadRequest("unknown job kind", err)
		}
		return &models.JobResponse{Body: s.service.Status(kind)}, nil
	})

	// Start a job
	huma.Register(s.api, huma.Operation{
		OperationID: "start-job",
		Method:      http.MethodPost,
		Path:        "/api/jobs/{kind}",
		Summary:     "Start Job",
		Description: "Launch a media processing job on an input file. At most one job of each kind runs at a time.",
		Tags:        []string{"jobs"},
		Errors:      []int{400, 401, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StartJobRequest) (*models.JobResponse, error) {
		kind, err := job.ParseKind(input.Kind)
		if err != nil {
			return nil, huma.Error400BadRequest("unknown job kind", err)
		}
		if input.Body.InputPath == "" {
			return nil, huma.Error400BadRequest("input_path is required")
		}

		opts := job.Options{
			Model:           input.Body.Model,
			Language:        input.Body.Language,
			SilentThreshold: input.Body.SilentThreshold,
			SoundedSpeed:    input.Body.SoundedSpeed,
			SilentSpeed:     input.Body.SilentSpeed,
			MaxClips:        input.Body.MaxClips,
			OutputPath:      input.Body.OutputPath,
		}
		if input.Body.TimeoutSeconds > 0 {
			opts.Timeout = time.Duration(input.Body.TimeoutSeconds) * time.Second
		}

		status, err := s.service.Start(kind, input.Body.InputPath, opts)
		if err != nil {
			return nil, s.mapJobError(err)
		}

		return &models.JobResponse{Body: status}, nil
	})

	// Cancel a job
	huma.Register(s.api, huma.Operation{
		OperationID: "cancel-job",
		Method:      http.MethodDelete,
		Path:        "/api/jobs/{kind}",
		Summary:     "Cancel Job",
		Description: "Request cancellation of the active job of a kind. The first request wins; repeats report cancelled=false.",
		Tags:        []string{"jobs"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Kind string `path:"kind" example:"transcribe" doc:"Job kind"`
	}) (*models.CancelResponse, error) {
		kind, err := job.ParseKind(input.Kind)
		if err != nil {
			return nil, huma.Error400BadRequest("unknown job kind", err)
		}
		return &models.CancelResponse{
			Body: models.CancelData{
				Kind:      string(kind),
				Cancelled: s.service.Cancel(kind),
			},
		}, nil
	})

	// Dependency report for one kind
	huma.Register(s.api, huma.Operation{
		OperationID: "check-job-dependencies",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{kind}/dependencies",
		Summary:     "Check Job Dependencies",
		Description: "Verify the runtime for a job kind is usable, with remediation for anything missing",
		Tags:        []string{"jobs"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Kind string `path:"kind" example:"transcribe" doc:"Job kind"`
	}) (*models.DependencyResponse, error) {
		kind, err := job.ParseKind(input.Kind)
		if err != nil {
			return nil, huma.Error400BadRequest("unknown job kind", err)
		}
		return &models.DependencyResponse{Body: s.service.CheckDependencies(ctx, kind)}, nil
	})

	// Dependency reports for all kinds
	huma.Register(s.api, huma.Operation{
		OperationID: "check-all-dependencies",
		Method:      http.MethodGet,
		Path:        "/api/dependencies",
		Summary:     "Check All Dependencies",
		Description: "Run the dependency check for every job kind",
		Tags:        []string{"jobs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.DependencyListResponse, error) {
		return &models.DependencyListResponse{
			Body: models.DependencyListData{
				Reports: s.service.CheckAllDependencies(ctx),
			},
		}, nil
	})
}

// mapJobError maps service errors to HTTP errors.
func (s *Server) mapJobError(err error) error {
	switch {
	case errors.Is(err, supervisor.ErrAlreadyRunning):
		return huma.Error409Conflict("a job of this kind is already running", err)
	case errors.Is(err, supervisor.ErrSpawnFailure):
		return huma.Error500InternalServerError("failed to spawn job process", err)
	default:
		return huma.Error400BadRequest(err.Error(), err)
	}
}

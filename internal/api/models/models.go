// Package models defines request and response shapes for the HTTP API.
package models

import (
	"videobridge/internal/bridge"
	"videobridge/internal/precheck"
)

// HealthData represents the health check payload.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Status detail"`
}

// HealthResponse represents the HTTP response for the health check.
type HealthResponse struct {
	Body HealthData
}

// VersionData represents version and build metadata.
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" doc:"Git commit hash"`
	BuildDate string `json:"build_date" doc:"Build timestamp"`
	GoVersion string `json:"go_version" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Build platform"`
}

// VersionResponse represents the HTTP response for version information.
type VersionResponse struct {
	Body VersionData
}

// StartJobBody carries the parameters for launching a job.
type StartJobBody struct {
	InputPath       string  `json:"input_path" example:"/media/talk.mp4" doc:"Input media file path"`
	Model           string  `json:"model,omitempty" example:"base" doc:"Whisper model size"`
	Language        string  `json:"language,omitempty" example:"en" doc:"Transcription language hint"`
	SilentThreshold float64 `json:"silent_threshold,omitempty" example:"0.03" doc:"Silence detection threshold"`
	SoundedSpeed    float64 `json:"sounded_speed,omitempty" example:"1.0" doc:"Playback speed for sounded sections"`
	SilentSpeed     float64 `json:"silent_speed,omitempty" example:"5.0" doc:"Playback speed for silent sections"`
	MaxClips        int     `json:"max_clips,omitempty" example:"5" doc:"Maximum clips for content analysis"`
	OutputPath      string  `json:"output_path,omitempty" doc:"Override for the artifact path"`
	TimeoutSeconds  int     `json:"timeout_seconds,omitempty" doc:"Override for the job timeout"`
}

// StartJobRequest represents the HTTP request for launching a job.
type StartJobRequest struct {
	Kind string       `path:"kind" example:"transcribe" doc:"Job kind: transcribe, silencecut, or analyze"`
	Body StartJobBody `required:"true"`
}

// JobResponse represents the HTTP response for a single job slot.
type JobResponse struct {
	Body bridge.JobStatus
}

// JobListData represents the status of every job slot.
type JobListData struct {
	Jobs  []bridge.JobStatus `json:"jobs" doc:"Status per job kind"`
	Count int                `json:"count" example:"3" doc:"Number of job kinds"`
}

// JobListResponse represents the HTTP response for the job list.
type JobListResponse struct {
	Body JobListData
}

// CancelData reports the result of a cancellation request.
type CancelData struct {
	Kind      string `json:"kind" example:"transcribe" doc:"Job kind"`
	Cancelled bool   `json:"cancelled" doc:"True when this request initiated the cancellation"`
}

// CancelResponse represents the HTTP response for cancelling a job.
type CancelResponse struct {
	Body CancelData
}

// DependencyResponse represents the HTTP response for one kind's
// dependency report.
type DependencyResponse struct {
	Body precheck.Report
}

// DependencyListData represents dependency reports for all job kinds.
type DependencyListData struct {
	Reports []precheck.Report `json:"reports" doc:"Dependency report per job kind"`
}

// DependencyListResponse represents the HTTP response for all
// dependency reports.
type DependencyListResponse struct {
	Body DependencyListData
}

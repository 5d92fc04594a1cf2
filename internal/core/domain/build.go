package domain

import "time"

// BuildStatus is the outcome of an index build.
type BuildStatus string

// Build outcomes.
const (
	BuildSucceeded BuildStatus = "succeeded"
	BuildFailed    BuildStatus = "failed"
)

// BuildReport records one index build attempt.
type BuildReport struct {
	// ID is a unique identifier for the attempt.
	ID string `json:"id"`

	// StartedAt and FinishedAt bracket the attempt.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Documents is the number of loaded documents.
	Documents int `json:"documents"`

	// Chunks is the number of chunks embedded.
	Chunks int `json:"chunks"`

	// Dimensions is the embedding dimension of the written index.
	Dimensions int `json:"dimensions"`

	// Provider describes the embedding backend, e.g. "remote/openai".
	Provider string `json:"provider"`

	// Model is the embedding model name.
	Model string `json:"model"`

	// ArtifactPath is the index file written by the build.
	ArtifactPath string `json:"artifact_path"`

	// Status is the outcome.
	Status BuildStatus `json:"status"`

	// Error holds the failure message for failed builds.
	Error string `json:"error,omitempty"`
}

// Duration returns how long the build ran.
func (r BuildReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

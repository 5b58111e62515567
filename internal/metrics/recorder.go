package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Recorder defines observability hooks for builds and live reload. Implementations may
// forward to Prometheus; NoopRecorder is the default.
type Recorder interface {
	ObserveBuildDuration(scope string, d time.Duration)
	IncBuildOutcome(scope string, result ResultLabel)
	AddDocuments(action string, n int) // action: rendered|copied
	IncTranscriptGeneration(result ResultLabel)
	IncReloadBroadcast(clients int)
	SetLiveReloadClients(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string, ResultLabel)        {}
func (NoopRecorder) AddDocuments(string, int)                   {}
func (NoopRecorder) IncTranscriptGeneration(ResultLabel)        {}
func (NoopRecorder) IncReloadBroadcast(int)                     {}
func (NoopRecorder) SetLiveReloadClients(int)                   {}

// ResultOf maps an error to a result label.
func ResultOf(err error) ResultLabel {
	if err != nil {
		return ResultFailed
	}
	return ResultSuccess
}

package recorder

import "ValueSentinel/internal/model"

// Recorder persists run history for later analysis. It is best-effort:
// recording failures are logged, never fatal to the run.
type Recorder interface {
	RecordRun(res *model.RunResult) error
	Close() error
}

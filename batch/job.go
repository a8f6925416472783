package batch

import (
	"time"
)

// JobState is the lifecycle of one video in a batch.
type JobState int

// Jobs move forward through the working states and end in one of the
// terminal states Done, Skipped, Failed or Cancelled.
const (
	JobPending JobState = iota
	JobMatching
	JobLoading
	JobAssigning
	JobTracking
	JobExporting
	JobDone
	JobSkipped
	JobFailed
	JobCancelled
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobMatching:
		return "matching"
	case JobLoading:
		return "loading"
	case JobAssigning:
		return "assigning"
	case JobTracking:
		return "tracking"
	case JobExporting:
		return "exporting"
	case JobDone:
		return "done"
	case JobSkipped:
		return "skipped"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether the job has finished, one way or another.
func (s JobState) Terminal() bool {
	return s >= JobDone
}

// ArtifactError records an artifact that could not be written.
type ArtifactError struct {
	Path string
	Err  error
}

// Job is the processing record of one video.
type Job struct {
	Video     string
	Source    string
	State     JobState
	Err       error
	Artifacts []string
	Failures  []ArtifactError
	Elapsed   time.Duration
	// Detections and Assigned count the loaded and tank-assigned records.
	Detections int
	Assigned   int
}

// Result summarises a batch run.
type Result struct {
	RunID     string
	Jobs      []*Job
	Cancelled bool
}

// Count returns the number of jobs in a state.
func (r *Result) Count(state JobState) int {
	n := 0
	for _, j := range r.Jobs {
		if j.State == state {
			n++
		}
	}
	return n
}

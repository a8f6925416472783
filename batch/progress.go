package batch

import (
	"fmt"
	"time"
)

// Reporter receives progress from a running batch. Calls are made from the
// batch goroutine, one at a time.
type Reporter interface {
	// OverallProgress announces the video about to be processed; index is 1-based.
	OverallProgress(index, total int, name string)
	// FileProgress reports the current video's progress.
	FileProgress(percent, frame, total int)
	// Timing reports elapsed and estimated remaining time as HH:MM:SS.
	Timing(elapsed, remaining string)
	// Speed reports frames per second.
	Speed(fps float64)
	// LogLine carries a human readable log line.
	LogLine(line string)
	// Finished is called once, when the batch ends.
	Finished(cancelled bool)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) OverallProgress(int, int, string) {}
func (NopReporter) FileProgress(int, int, int)       {}
func (NopReporter) Timing(string, string)            {}
func (NopReporter) Speed(float64)                    {}
func (NopReporter) LogLine(string)                   {}
func (NopReporter) Finished(bool)                    {}

// UnknownClock is shown when a duration cannot be estimated yet.
const UnknownClock = "--:--:--"

// FormatClock formats a duration as HH:MM:SS.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// Stopwatch measures a job and estimates its remaining time.
type Stopwatch struct {
	now   func() time.Time
	start time.Time
}

// NewStopwatch starts a stopwatch.
func NewStopwatch() *Stopwatch {
	return newStopwatch(time.Now)
}

func newStopwatch(now func() time.Time) *Stopwatch {
	return &Stopwatch{now: now, start: now()}
}

// Elapsed is the time since the stopwatch started.
func (s *Stopwatch) Elapsed() time.Duration {
	return s.now().Sub(s.start)
}

// Remaining extrapolates the time left from the share done so far.
func (s *Stopwatch) Remaining(done, total int) string {
	if done <= 0 || total <= 0 || done > total {
		return UnknownClock
	}
	elapsed := s.Elapsed()
	perItem := elapsed / time.Duration(done)
	return FormatClock(perItem * time.Duration(total-done))
}

// speedMeter reports frames per second at most once per interval.
type speedMeter struct {
	interval   time.Duration
	lastTime   time.Duration
	lastFrames int
}

func newSpeedMeter() *speedMeter {
	return &speedMeter{interval: time.Second}
}

// sample returns the rate since the previous report when at least one
// interval has passed.
func (m *speedMeter) sample(elapsed time.Duration, frames int) (float64, bool) {
	dt := elapsed - m.lastTime
	if dt < m.interval {
		return 0, false
	}
	fps := float64(frames-m.lastFrames) / dt.Seconds()
	m.lastTime, m.lastFrames = elapsed, frames
	return fps, true
}

// percent is done/total as a whole percentage in [0, 100].
func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	p := done * 100 / total
	if p > 100 {
		p = 100
	}
	return p
}

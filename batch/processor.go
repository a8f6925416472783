package batch

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/tank-tracking/detections"
	"github.com/viam-modules/tank-tracking/export"
	"github.com/viam-modules/tank-tracking/grid"
	"github.com/viam-modules/tank-tracking/tracking"
)

// VideoInfo describes a source video.
type VideoInfo struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
}

// Media is the video backend used by the processor.
type Media interface {
	Probe(path string) (VideoInfo, error)
	FirstFrame(path string) (image.Image, error)
	// Annotate writes dst from src and returns the number of frames written.
	// It must close dst and return the context error when ctx is cancelled.
	Annotate(ctx context.Context, src, dst string, rc *export.RenderContext, progress func(done, total int)) (int, error)
}

// Processor runs batches. It processes one video at a time and must not be
// shared between concurrent runs.
type Processor struct {
	logger   logging.Logger
	reporter Reporter
	media    Media
}

// NewProcessor returns a processor. A nil reporter discards progress.
func NewProcessor(logger logging.Logger, reporter Reporter, media Media) *Processor {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Processor{logger: logger, reporter: reporter, media: media}
}

// Run processes every video of opts in order. Invalid options or grid
// settings fail the whole batch before any video is touched; a problem with
// one video only fails that video. Cancelling ctx stops the batch at the
// next frame or video boundary.
func (p *Processor) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{RunID: uuid.New().String()}
	defer func() {
		p.reporter.Finished(res.Cancelled)
	}()
	log := p.jobLog(p.logger)

	if err := opts.Validate(); err != nil {
		log.Errorf("Invalid batch options: %v", err)
		return res, errors.Wrap(err, "invalid batch options")
	}
	settings, err := grid.LoadSettings(opts.SettingsPath)
	if err != nil {
		log.Errorf("Could not load grid settings: %v", err)
		return res, err
	}

	for _, v := range opts.Videos {
		res.Jobs = append(res.Jobs, &Job{Video: v, State: JobPending})
	}
	log.Infof("Batch %s: %d video(s), %d tank(s), method %s",
		res.RunID, len(res.Jobs), settings.NumTanks(), opts.Method)

	for i, job := range res.Jobs {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		p.reporter.OverallProgress(i+1, len(res.Jobs), filepath.Base(job.Video))
		p.runJob(ctx, job, &opts, settings)
		if job.State == JobCancelled {
			res.Cancelled = true
			break
		}
	}

	if res.Cancelled {
		log.Infof("Batch processing cancelled.")
	} else {
		log.Infof("Batch processing complete!")
	}
	return res, nil
}

func (p *Processor) runJob(ctx context.Context, job *Job, opts *Options, settings grid.Settings) {
	log := p.jobLog(p.logger.Sublogger(BaseName(job.Video)))
	sw := NewStopwatch()
	p.reporter.FileProgress(0, 0, 0)
	p.reporter.Timing(FormatClock(0), UnknownClock)
	p.reporter.Speed(0)
	log.Infof("Processing %s", filepath.Base(job.Video))

	err := p.process(ctx, log, job, opts, settings, p.newFileProgress(sw))
	job.Elapsed = sw.Elapsed()
	switch {
	case err == nil:
		job.State = JobDone
		log.Infof("Finished %s in %s", filepath.Base(job.Video), FormatClock(job.Elapsed))
	case errors.Is(err, ErrNoSource):
		job.State = JobSkipped
		job.Err = err
		log.Warnf("Skipping %s: %v", filepath.Base(job.Video), err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		job.State = JobCancelled
		job.Err = err
		log.Warnf("Cancelled while processing %s", filepath.Base(job.Video))
	default:
		job.State = JobFailed
		job.Err = err
		log.Errorf("Error processing %s: %v", filepath.Base(job.Video), err)
	}
}

// process runs the pipeline of one video. Panics are turned into errors so
// that the batch can go on with the next video.
func (p *Processor) process(
	ctx context.Context,
	log jobLog,
	job *Job,
	opts *Options,
	settings grid.Settings,
	fp *fileProgress,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	job.State = JobMatching
	src, err := MatchSource(job.Video, opts.CSVDir)
	if err != nil {
		return err
	}
	job.Source = src
	log.Infof("Using detections %s", src)

	job.State = JobLoading
	store, err := detections.Load(src)
	if err != nil {
		return err
	}
	job.Detections = store.Len()
	if store.Skipped > 0 {
		log.Warnf("Skipped %d row(s) with an invalid %s", store.Skipped, detections.ColumnFrame)
	}
	info, err := p.media.Probe(job.Video)
	if err != nil {
		return errors.Wrap(err, "could not open video")
	}
	if info.FrameCount > 0 {
		if n := store.CountFrom(info.FrameCount); n > 0 {
			log.Warnf("Ignoring %d detection(s) at or past frame %d, the end of the video", n, info.FrameCount)
		}
	}
	mapper, err := grid.NewMapper(settings, info.Width, info.Height)
	if err != nil {
		return err
	}

	job.State = JobAssigning
	stats := detections.Assign(store, mapper)
	job.Assigned = stats.Assigned
	log.Infof("Assigned %d of %d detection(s) to %d tank(s)",
		stats.Assigned, stats.Assigned+stats.Unassigned, mapper.NumTanks())

	job.State = JobTracking
	strategy, err := tracking.New(opts.Method, mapper.NumTanks(), opts.Tracker)
	if err != nil {
		return err
	}
	strategy = tracking.WithFilter(strategy, opts.ClassFilter)
	trackFrames := info.FrameCount
	if trackFrames <= 0 {
		trackFrames = store.LastFrame() + 1
	}
	videoFrames := 0
	if opts.Outputs.Video {
		videoFrames = info.FrameCount
	}
	tracked, err := tracking.Run(ctx, strategy, store, info.FrameCount, fp.phase(0, videoFrames))
	if err != nil {
		return err
	}

	job.State = JobExporting
	columns := export.Columns(store.Columns, strategy.Name() == tracking.MethodTracker)
	p.artifact(log, job, opts.Outputs.CSV, opts.OutputPath(job.Video, ArtifactCSV), func(path string) error {
		return export.EnrichedCSV(path, columns, tracked)
	})
	p.artifact(log, job, opts.Outputs.Centroids, opts.OutputPath(job.Video, ArtifactCentroids), func(path string) error {
		return export.CentroidCSV(path, tracked, mapper.NumTanks())
	})
	p.artifact(log, job, opts.Outputs.Excel, opts.OutputPath(job.Video, ArtifactExcel), func(path string) error {
		return export.Workbook(path, columns, tracked)
	})
	p.artifact(log, job, opts.Outputs.Trajectory, opts.OutputPath(job.Video, ArtifactTrajectory), func(path string) error {
		return export.Trajectory(path, tracked, mapper, export.TrajectoryOptions{
			FPS:        info.FPS,
			SampleRate: opts.SampleRate,
			TimeGap:    opts.TimeGap,
		})
	})
	p.artifact(log, job, opts.Outputs.Heatmap, opts.OutputPath(job.Video, ArtifactHeatmap), func(path string) error {
		background, err := p.media.FirstFrame(job.Video)
		if err != nil {
			log.Warnf("Drawing heatmap without background: %v", err)
		}
		return export.Heatmap(path, tracked, export.HeatmapOptions{
			Width:      info.Width,
			Height:     info.Height,
			BinSize:    opts.HeatmapBin,
			SampleRate: opts.SampleRate,
			Background: background,
		})
	})

	if opts.Outputs.Video {
		dst := opts.OutputPath(job.Video, ArtifactVideo)
		rc := export.NewRenderContext(mapper, tracked, info.FPS, info.FrameCount,
			opts.Outputs.GridLines, opts.Outputs.Overlays)
		written, err := p.media.Annotate(ctx, job.Video, dst, rc, fp.phase(trackFrames, 0))
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			log.Warnf("Annotated video %s stopped after %d frame(s)", dst, written)
			return err
		case err != nil:
			job.Failures = append(job.Failures, ArtifactError{Path: dst, Err: err})
			log.Errorf("Could not write %s: %v", dst, err)
		default:
			job.Artifacts = append(job.Artifacts, dst)
			log.Infof("Saved %s (%d frames)", dst, written)
		}
	}
	fp.finish()
	return nil
}

// artifact writes one optional output. Failures are logged and recorded
// without stopping the sibling outputs.
func (p *Processor) artifact(log jobLog, job *Job, enabled bool, path string, write func(path string) error) {
	if !enabled {
		return
	}
	if err := write(path); err != nil {
		job.Failures = append(job.Failures, ArtifactError{Path: path, Err: err})
		if errors.Is(err, export.ErrNoData) {
			log.Warnf("Skipped %s: %v", filepath.Base(path), err)
		} else {
			log.Errorf("Could not write %s: %v", path, err)
		}
		return
	}
	job.Artifacts = append(job.Artifacts, path)
	log.Infof("Saved %s", path)
}

// fileProgress reports one job's progress as a single value across its
// passes: tracking first, then the annotated video.
type fileProgress struct {
	reporter Reporter
	sw       *Stopwatch
	meter    *speedMeter
	percent  int
	total    int
}

func (p *Processor) newFileProgress(sw *Stopwatch) *fileProgress {
	return &fileProgress{reporter: p.reporter, sw: sw, meter: newSpeedMeter()}
}

// phase returns the frame callback of one pass. offset is the work of the
// passes before it and later the work of the passes after it. The reported
// percentage never decreases.
func (fp *fileProgress) phase(offset, later int) func(done, total int) {
	return func(done, total int) {
		fp.report(offset+done, offset+total+later)
	}
}

func (fp *fileProgress) report(done, total int) {
	if pct := percent(done, total); pct > fp.percent {
		fp.percent = pct
	}
	fp.total = total
	elapsed := fp.sw.Elapsed()
	fp.reporter.FileProgress(fp.percent, done, total)
	fp.reporter.Timing(FormatClock(elapsed), fp.sw.Remaining(done, total))
	if fps, ok := fp.meter.sample(elapsed, done); ok {
		fp.reporter.Speed(fps)
	}
}

// finish reports the job as complete.
func (fp *fileProgress) finish() {
	fp.percent = 100
	fp.reporter.FileProgress(100, fp.total, fp.total)
}

// jobLog writes to the logger and mirrors every line to the reporter.
type jobLog struct {
	logger   logging.Logger
	reporter Reporter
}

func (p *Processor) jobLog(logger logging.Logger) jobLog {
	return jobLog{logger: logger, reporter: p.reporter}
}

func (l jobLog) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
	l.reporter.LogLine(fmt.Sprintf(format, args...))
}

func (l jobLog) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
	l.reporter.LogLine("WARNING: " + fmt.Sprintf(format, args...))
}

func (l jobLog) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
	l.reporter.LogLine("ERROR: " + fmt.Sprintf(format, args...))
}

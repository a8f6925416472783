// Package main is the batch command line: it assigns the detections of each
// video to the tanks of a grid, optionally tracks them, and writes the
// selected artifacts.
package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	viamutils "go.viam.com/utils"

	"github.com/viam-modules/tank-tracking/batch"
	"github.com/viam-modules/tank-tracking/detections"
	"github.com/viam-modules/tank-tracking/export"
	"github.com/viam-modules/tank-tracking/tracker"
	"github.com/viam-modules/tank-tracking/tracking"
	"github.com/viam-modules/tank-tracking/video"
)

// Exit codes.
const (
	exitOK        = 0
	exitFatal     = 1
	exitPartial   = 2
	exitCancelled = 130
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	parser := argparse.NewParser("tank-tracking", "Assign detections to tanks, track animals and export the results")
	videos := parser.StringList("v", "video", &argparse.Options{Help: "Video file to process, may be repeated"})
	videoDir := parser.String("d", "video-dir", &argparse.Options{Help: "Process every video found under this directory"})
	settingsPath := parser.String("s", "settings", &argparse.Options{Help: "Grid settings JSON file", Required: true})
	outputDir := parser.String("o", "output", &argparse.Options{Help: "Output directory", Required: true})
	csvDir := parser.String("", "csv-dir", &argparse.Options{Help: "Directory holding the detection CSV files, defaults to each video's directory"})
	method := parser.Selector("m", "method", []string{tracking.MethodConfidence, tracking.MethodTracker},
		&argparse.Options{Help: "Detection selection method", Default: tracking.MethodConfidence})

	defaults := tracker.DefaultConfig()
	trackerConfig := parser.String("", "tracker-config", &argparse.Options{Help: "Tracker configuration JSON file, overrides the tracker flags"})
	distanceFunction := parser.Selector("", "distance-function", []string{tracker.DistanceEuclidean, tracker.DistanceIOU},
		&argparse.Options{Help: "Tracker distance function", Default: defaults.DistanceFunction})
	distanceThreshold := parser.Float("", "distance-threshold", &argparse.Options{Help: "Largest distance at which a detection may join a track", Default: defaults.DistanceThreshold})
	hitCounterMax := parser.Int("", "hit-counter-max", &argparse.Options{Help: "Frames a confirmed track survives without detections", Default: defaults.HitCounterMax})
	initDelay := parser.Int("", "initialization-delay", &argparse.Options{Help: "Hits needed before a track is reported", Default: defaults.InitializationDelay})
	pastDetections := parser.Int("", "past-detections", &argparse.Options{Help: "Positions averaged into the reported centroid", Default: defaults.PastDetectionsLength})
	maxAnimals := parser.Int("", "max-animals", &argparse.Options{Help: "Most confident detections kept per tank and frame", Default: defaults.MaxAnimalsPerTank})
	suggest := parser.Flag("", "suggest-threshold", &argparse.Options{Help: "Print a suggested distance threshold for each video and exit"})

	sampleRate := parser.Int("", "sample-rate", &argparse.Options{Help: "Frame sample rate for the plots", Default: batch.DefaultSampleRate})
	timeGap := parser.Float("", "time-gap", &argparse.Options{Help: "Seconds without a detection that split a trajectory", Default: batch.DefaultTimeGap})
	heatmapBin := parser.Int("", "heatmap-bin", &argparse.Options{Help: "Heatmap bin size in pixels", Default: export.DefaultBinSize})
	minConf := parser.Float("", "min-conf", &argparse.Options{Help: "Drop detections below this confidence", Default: 0.0})
	classes := parser.String("", "classes", &argparse.Options{Help: "Comma-separated class names to keep, each optionally as name:min_confidence"})

	noVideo := parser.Flag("", "no-video", &argparse.Options{Help: "Do not write the annotated video"})
	noOverlays := parser.Flag("", "no-overlays", &argparse.Options{Help: "Do not draw the legend and timeline band"})
	drawGrid := parser.Flag("", "draw-grid", &argparse.Options{Help: "Draw the grid lines on the annotated video"})
	noCSV := parser.Flag("", "no-csv", &argparse.Options{Help: "Do not write the enriched CSV"})
	noCentroids := parser.Flag("", "no-centroids", &argparse.Options{Help: "Do not write the wide centroid CSV"})
	noExcel := parser.Flag("", "no-excel", &argparse.Options{Help: "Do not write the per-tank workbook"})
	noTrajectory := parser.Flag("", "no-trajectory", &argparse.Options{Help: "Do not plot trajectories"})
	noHeatmap := parser.Flag("", "no-heatmap", &argparse.Options{Help: "Do not plot the heatmap"})
	debug := parser.Flag("", "debug", &argparse.Options{Help: "Enable debug logging"})

	if err := parser.Parse(args); err != nil {
		fmt.Print(parser.Usage(err))
		return exitFatal
	}

	logger := logging.NewLogger("tank-tracking")
	if *debug {
		logger = logging.NewDebugLogger("tank-tracking")
	}

	opts := batch.DefaultOptions()
	opts.Videos = append(opts.Videos, *videos...)
	if *videoDir != "" {
		found, err := batch.DiscoverVideos(*videoDir)
		if err != nil {
			logger.Error(err)
			return exitFatal
		}
		opts.Videos = append(opts.Videos, found...)
	}
	opts.SettingsPath = *settingsPath
	opts.OutputDir = *outputDir
	opts.CSVDir = *csvDir
	opts.Method = *method
	opts.SampleRate = *sampleRate
	opts.TimeGap = *timeGap
	opts.HeatmapBin = *heatmapBin
	classFilter, err := parseClassFilter(*classes, *minConf)
	if err != nil {
		fmt.Print(parser.Usage(err))
		return exitFatal
	}
	opts.ClassFilter = classFilter
	opts.Outputs = batch.Outputs{
		Video:      !*noVideo,
		Overlays:   !*noOverlays,
		GridLines:  *drawGrid,
		CSV:        !*noCSV,
		Centroids:  !*noCentroids,
		Excel:      !*noExcel,
		Trajectory: !*noTrajectory,
		Heatmap:    !*noHeatmap,
	}

	if *trackerConfig != "" {
		cfg, err := tracker.LoadConfig(*trackerConfig)
		if err != nil {
			logger.Error(err)
			return exitFatal
		}
		opts.Tracker = cfg
	} else {
		opts.Tracker = tracker.Config{
			DistanceFunction:     *distanceFunction,
			DistanceThreshold:    *distanceThreshold,
			HitCounterMax:        *hitCounterMax,
			InitializationDelay:  *initDelay,
			PastDetectionsLength: *pastDetections,
			MaxAnimalsPerTank:    *maxAnimals,
		}
	}

	if *suggest {
		return suggestThresholds(logger, opts)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		res    *batch.Result
		runErr error
	)
	done := make(chan struct{})
	processor := batch.NewProcessor(logger, newLogReporter(logger), videoMedia{})
	viamutils.ManagedGo(func() {
		res, runErr = processor.Run(ctx, opts)
	}, func() {
		close(done)
	})
	<-done

	switch {
	case runErr != nil:
		return exitFatal
	case res.Cancelled:
		return exitCancelled
	case res.Count(batch.JobFailed) > 0:
		logger.Warnf("%d of %d video(s) failed", res.Count(batch.JobFailed), len(res.Jobs))
		return exitPartial
	}
	return exitOK
}

// parseClassFilter reads "swim,rest:0.5". A class without its own minimum
// gets minConf.
func parseClassFilter(classes string, minConf float64) (tracking.ClassFilter, error) {
	cf := tracking.ClassFilter{MinConfidence: minConf}
	for _, item := range strings.Split(classes, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, minimum := item, minConf
		if i := strings.LastIndex(item, ":"); i >= 0 {
			v, err := strconv.ParseFloat(strings.TrimSpace(item[i+1:]), 64)
			if err != nil {
				return tracking.ClassFilter{}, errors.Wrapf(err, "bad minimum confidence in %q", item)
			}
			name, minimum = strings.TrimSpace(item[:i]), v
		}
		if name == "" {
			return tracking.ClassFilter{}, errors.Errorf("missing class name in %q", item)
		}
		if cf.Chosen == nil {
			cf.Chosen = make(map[string]float64)
		}
		cf.Chosen[strings.ToLower(name)] = minimum
	}
	return cf, nil
}

// suggestThresholds prints a distance threshold proposal per video.
func suggestThresholds(logger logging.Logger, opts batch.Options) int {
	if len(opts.Videos) == 0 {
		logger.Error("no videos selected")
		return exitFatal
	}
	code := exitOK
	for _, v := range opts.Videos {
		src, err := batch.MatchSource(v, opts.CSVDir)
		if err != nil {
			logger.Warn(err)
			code = exitPartial
			continue
		}
		store, err := detections.Load(src)
		if err != nil {
			logger.Error(err)
			code = exitPartial
			continue
		}
		threshold, ok := tracker.SuggestThreshold(store, tracker.SuggestSampleRows)
		if !ok {
			logger.Warnf("%s: not enough detections with a centroid to suggest a threshold", batch.BaseName(v))
			continue
		}
		fmt.Printf("%s\t%.1f\n", batch.BaseName(v), threshold)
	}
	return code
}

// videoMedia adapts the gocv video package to the batch processor.
type videoMedia struct{}

func (videoMedia) Probe(path string) (batch.VideoInfo, error) {
	info, err := video.Probe(path)
	if err != nil {
		return batch.VideoInfo{}, err
	}
	return batch.VideoInfo{
		Width:      info.Width,
		Height:     info.Height,
		FPS:        info.FPS,
		FrameCount: info.FrameCount,
	}, nil
}

func (videoMedia) FirstFrame(path string) (image.Image, error) {
	return video.FirstFrame(path)
}

func (videoMedia) Annotate(
	ctx context.Context,
	src, dst string,
	rc *export.RenderContext,
	progress func(done, total int),
) (int, error) {
	return video.Annotate(ctx, src, dst, rc, progress)
}

// logReporter turns batch progress into log lines, at most one progress line
// per second. Log lines are already written by the processor.
type logReporter struct {
	logger   logging.Logger
	interval time.Duration
	last     time.Time
	name     string
	timing   string
	fps      float64
}

func newLogReporter(logger logging.Logger) *logReporter {
	return &logReporter{logger: logger, interval: time.Second}
}

func (r *logReporter) OverallProgress(index, total int, name string) {
	r.name = name
	r.logger.Infof("[%d/%d] %s", index, total, name)
}

func (r *logReporter) FileProgress(percent, frame, total int) {
	if total == 0 || (percent < 100 && time.Since(r.last) < r.interval) {
		return
	}
	r.last = time.Now()
	r.logger.Infof("%s: %3d%% (%d/%d frames, %s, %.1f fps)", r.name, percent, frame, total, r.timing, r.fps)
}

func (r *logReporter) Timing(elapsed, remaining string) {
	r.timing = fmt.Sprintf("elapsed %s, remaining %s", elapsed, remaining)
}

func (r *logReporter) Speed(fps float64) { r.fps = fps }

func (r *logReporter) LogLine(string) {}

func (r *logReporter) Finished(cancelled bool) {
	if cancelled {
		r.logger.Debug("reporter finished after cancellation")
	}
}

var _ batch.Media = videoMedia{}

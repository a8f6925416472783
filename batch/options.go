// Package batch runs the per-video pipeline over a list of videos: match
// each video with its detection source, assign detections to tanks, track
// them and write the selected artifacts.
package batch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/viam-modules/tank-tracking/export"
	"github.com/viam-modules/tank-tracking/tracker"
	"github.com/viam-modules/tank-tracking/tracking"
)

// Defaults for Options.
const (
	DefaultSampleRate = 30
	DefaultTimeGap    = 1.0
)

// Outputs selects the artifacts written per video.
type Outputs struct {
	Video      bool `json:"video"`
	Overlays   bool `json:"overlays"`
	GridLines  bool `json:"grid_lines"`
	CSV        bool `json:"csv"`
	Centroids  bool `json:"centroids"`
	Excel      bool `json:"excel"`
	Trajectory bool `json:"trajectory"`
	Heatmap    bool `json:"heatmap"`
}

// AllOutputs enables every artifact, overlays included and grid lines excluded.
func AllOutputs() Outputs {
	return Outputs{
		Video:      true,
		Overlays:   true,
		CSV:        true,
		Centroids:  true,
		Excel:      true,
		Trajectory: true,
		Heatmap:    true,
	}
}

func (o Outputs) any() bool {
	return o.Video || o.CSV || o.Centroids || o.Excel || o.Trajectory || o.Heatmap
}

// Options configures a batch run.
type Options struct {
	Videos       []string             `json:"videos"`
	SettingsPath string               `json:"settings"`
	OutputDir    string               `json:"output_dir"`
	CSVDir       string               `json:"csv_dir,omitempty"`
	Method       string               `json:"method"`
	Tracker      tracker.Config       `json:"tracker"`
	ClassFilter  tracking.ClassFilter `json:"class_filter"`
	SampleRate   int                  `json:"frame_sample_rate"`
	TimeGap      float64              `json:"time_gap_seconds"`
	HeatmapBin   int                  `json:"heatmap_bin_size"`
	Outputs      Outputs              `json:"outputs"`
}

// DefaultOptions returns options with every artifact enabled and the
// confidence filter selected.
func DefaultOptions() Options {
	return Options{
		Method:     tracking.MethodConfidence,
		Tracker:    tracker.DefaultConfig(),
		SampleRate: DefaultSampleRate,
		TimeGap:    DefaultTimeGap,
		HeatmapBin: export.DefaultBinSize,
		Outputs:    AllOutputs(),
	}
}

// Validate checks the options before any video is touched.
func (o *Options) Validate() error {
	if len(o.Videos) == 0 {
		return errors.New("no videos selected")
	}
	if o.SettingsPath == "" {
		return errors.New("no grid settings file selected")
	}
	if o.OutputDir == "" {
		return errors.New("no output directory selected")
	}
	if st, err := os.Stat(o.OutputDir); err != nil || !st.IsDir() {
		return errors.Errorf("output directory %q does not exist", o.OutputDir)
	}
	if !o.Outputs.any() {
		return errors.New("no outputs selected")
	}
	if o.SampleRate < 1 {
		return errors.New("frame sample rate must be at least 1")
	}
	if o.TimeGap <= 0 {
		return errors.New("time gap must be greater than 0 seconds")
	}
	if o.HeatmapBin < 0 {
		return errors.New("heatmap bin size cannot be negative")
	}
	switch o.Method {
	case tracking.MethodConfidence:
		if o.Tracker.MaxAnimalsPerTank < 1 {
			return errors.New("max animals per tank must be at least 1")
		}
	case tracking.MethodTracker:
		if err := o.Tracker.Validate(); err != nil {
			return err
		}
	default:
		return errors.Wrapf(tracking.ErrUnknownMethod, "%q", o.Method)
	}
	return nil
}

// Artifact names, used as file suffixes.
const (
	ArtifactCSV        = "_with_tanks.csv"
	ArtifactCentroids  = "_centroids_wide.csv"
	ArtifactExcel      = "_by_tank.xlsx"
	ArtifactTrajectory = "_trajectory.png"
	ArtifactHeatmap    = "_heatmap.png"
	ArtifactVideo      = "_annotated.mp4"
)

// BaseName is a video's file name without extension.
func BaseName(video string) string {
	name := filepath.Base(video)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// OutputPath returns where an artifact of a video is written.
func (o *Options) OutputPath(video, artifact string) string {
	return filepath.Join(o.OutputDir, BaseName(video)+artifact)
}

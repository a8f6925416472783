package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoSource is returned when no detection file matches a video.
var ErrNoSource = errors.New("no detection source found")

// sourceSuffixes are tried in order.
var sourceSuffixes = []string{".csv", "_detections.csv", "_segmentations.csv"}

// VideoExtensions are picked up by DiscoverVideos.
var VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

// MatchSource finds the detection file of a video. csvDir is searched when
// it is an existing directory, otherwise the video's own directory.
func MatchSource(video, csvDir string) (string, error) {
	dir := filepath.Dir(video)
	if csvDir != "" {
		if st, err := os.Stat(csvDir); err == nil && st.IsDir() {
			dir = csvDir
		}
	}
	base := BaseName(video)
	for _, suffix := range sourceSuffixes {
		candidate := filepath.Join(dir, base+suffix)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", errors.Wrapf(ErrNoSource, "for %q in %q", filepath.Base(video), dir)
}

// DiscoverVideos walks dir and returns every video file, sorted.
func DiscoverVideos(dir string) ([]string, error) {
	var videos []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, e := range VideoExtensions {
			if ext == e {
				videos = append(videos, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot scan %q", dir)
	}
	sort.Strings(videos)
	return videos, nil
}

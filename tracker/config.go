package tracker

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Distance functions understood by the tracker.
const (
	DistanceEuclidean = "euclidean"
	DistanceIOU       = "iou"
)

// Defaults applied by DefaultConfig.
var (
	DefaultDistanceFunction     = DistanceEuclidean
	DefaultDistanceThreshold    = 100.0
	DefaultHitCounterMax        = 15
	DefaultInitializationDelay  = 3
	DefaultPastDetectionsLength = 4
	DefaultMaxAnimalsPerTank    = 1
)

// Config holds the tracker parameters.
type Config struct {
	DistanceFunction     string  `json:"distance_function"`
	DistanceThreshold    float64 `json:"distance_threshold"`
	HitCounterMax        int     `json:"hit_counter_max"`
	InitializationDelay  int     `json:"initialization_delay"`
	PastDetectionsLength int     `json:"past_detections_length"`
	MaxAnimalsPerTank    int     `json:"max_animals_per_tank"`
}

// DefaultConfig returns the stock parameters.
func DefaultConfig() Config {
	return Config{
		DistanceFunction:     DefaultDistanceFunction,
		DistanceThreshold:    DefaultDistanceThreshold,
		HitCounterMax:        DefaultHitCounterMax,
		InitializationDelay:  DefaultInitializationDelay,
		PastDetectionsLength: DefaultPastDetectionsLength,
		MaxAnimalsPerTank:    DefaultMaxAnimalsPerTank,
	}
}

// Validate checks the parameters.
func (cfg *Config) Validate() error {
	switch cfg.DistanceFunction {
	case DistanceEuclidean, DistanceIOU:
	default:
		return errors.Errorf("unknown distance_function %q, expected %q or %q",
			cfg.DistanceFunction, DistanceEuclidean, DistanceIOU)
	}
	if cfg.DistanceThreshold <= 0 {
		return errors.New("attribute distance_threshold must be greater than 0")
	}
	if cfg.DistanceFunction == DistanceIOU && cfg.DistanceThreshold > 1 {
		return errors.New("distance_threshold for iou is a 1-IOU cost and must be at most 1")
	}
	if cfg.HitCounterMax < 1 {
		return errors.New("attribute hit_counter_max cannot be less than 1")
	}
	if cfg.InitializationDelay < 0 {
		return errors.New("attribute initialization_delay cannot be less than 0")
	}
	if cfg.PastDetectionsLength < 0 {
		return errors.New("attribute past_detections_length cannot be less than 0")
	}
	if cfg.MaxAnimalsPerTank < 1 {
		return errors.New("attribute max_animals_per_tank cannot be less than 1")
	}
	return nil
}

// LoadConfig reads a JSON tracker configuration. Missing keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "cannot read tracker config %q", path)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "malformed tracker config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid tracker config %q", path)
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const defaultPath = "."

// Config is the process configuration for the route-planning service.
type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	DataSource DataSourceConfig `json:"dataSource" yaml:"dataSource"`

	Planner PlannerConfig `json:"planner" yaml:"planner"`
}

// Log mirrors the house logging configuration: pretty (text) vs JSON
// handler, plus the slog level name.
type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// DataSourceConfig locates the serialized RoadGraph, StationIndex, and
// charging-station catalog documents the planner consumes at startup. Source
// is a URL understood by the dataset loader's blob.Bucket resolution
// (file://, gs://, s3://); Region is an informational label threaded into
// logs, not a storage parameter.
type DataSourceConfig struct {
	Source        string `json:"source" yaml:"source"`
	Region        string `json:"region" yaml:"region"`
	RoadGraphFile string `json:"roadGraphFile" yaml:"roadGraphFile"`
	StationsFile  string `json:"stationsFile" yaml:"stationsFile"`
	CatalogFile   string `json:"catalogFile" yaml:"catalogFile"`
}

// PlannerConfig exposes the tunables spec.md fixes as defaults but allows to
// be configured: safety margins, dominance tolerances, and the
// disconnected-component policy (§4.7, §9).
type PlannerConfig struct {
	SafetyFactor                float64 `json:"safetyFactor" yaml:"safetyFactor"`
	ChargingRatePctPerMin       float64 `json:"chargingRatePctPerMin" yaml:"chargingRatePctPerMin"`
	DominanceEpsilon            float64 `json:"dominanceEpsilon" yaml:"dominanceEpsilon"`
	SimilarityThreshold         float64 `json:"similarityThreshold" yaml:"similarityThreshold"`
	DominanceCap                int     `json:"dominanceCap" yaml:"dominanceCap"`
	DefaultMaxPaths             int     `json:"defaultMaxPaths" yaml:"defaultMaxPaths"`
	DisconnectedComponentPolicy string  `json:"disconnectedComponentPolicy" yaml:"disconnectedComponentPolicy"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, fmt.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read %s config failed: %w", currEnv, err)
	}

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to env.var.name
			key := strings.ReplaceAll(strings.ToLower(k), "_", ".")

			return key, v
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load env variables failed: %w", err)
	}

	// Unmarshal into the config struct
	if err := koanfInstance.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal %s config failed: %w", currEnv, err)
	}

	return cfg, nil
}

// New loads the planner configuration from config.yaml, searching the
// working directory, its "config" subdirectory, and the "config" directories
// one and two levels up, same lookup order the teacher module uses for its
// own config.New.
func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills in the spec-mandated constants (§4.4, §4.5, §9) for any
// field the loaded document left at its zero value.
func applyDefaults(cfg *Config) {
	if cfg.Planner.SafetyFactor == 0 {
		cfg.Planner.SafetyFactor = 0.85
	}
	if cfg.Planner.ChargingRatePctPerMin == 0 {
		cfg.Planner.ChargingRatePctPerMin = 3.0
	}
	if cfg.Planner.DominanceEpsilon == 0 {
		cfg.Planner.DominanceEpsilon = 0.05
	}
	if cfg.Planner.SimilarityThreshold == 0 {
		cfg.Planner.SimilarityThreshold = 0.02
	}
	if cfg.Planner.DominanceCap == 0 {
		cfg.Planner.DominanceCap = 64
	}
	if cfg.Planner.DefaultMaxPaths == 0 {
		cfg.Planner.DefaultMaxPaths = 5
	}
	if cfg.Planner.DisconnectedComponentPolicy == "" {
		cfg.Planner.DisconnectedComponentPolicy = "resnap"
	}
}

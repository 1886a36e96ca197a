package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aurahome/synergy-engine/internal/envutil"
	"github.com/aurahome/synergy-engine/internal/logger"
)

// Config carries every tunable of the engine. Defaults match the values the
// detectors and the chain builder were validated with; a YAML tuning file can
// override the detection section, env vars override everything.
type Config struct {
	Mode string `yaml:"mode"`

	DBDriver string `yaml:"db_driver"` // sqlite|postgres
	DBDSN    string `yaml:"db_dsn"`

	RedisAddr string `yaml:"redis_addr"` // empty = in-memory chain cache

	WorkerConcurrency int `yaml:"worker_concurrency"`

	Detection   DetectionConfig   `yaml:"detection"`
	Chains      ChainsConfig      `yaml:"chains"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Gates       GatesConfig       `yaml:"gates"`
}

type DetectionConfig struct {
	MinTemporalConfidence    float64 `yaml:"min_temporal_confidence"`
	MaxContextSynergies      int     `yaml:"max_context_synergies"`
	MaxDevicesPerContextType int     `yaml:"max_devices_per_context_type"`
}

type ChainsConfig struct {
	TopPairsForChains int  `yaml:"top_pairs_for_chains"`
	Max3DeviceChains  int  `yaml:"max_3_device_chains"`
	Max4DeviceChains  int  `yaml:"max_4_device_chains"`
	SameAreaOnly      bool `yaml:"same_area_only"`
}

type CalibrationConfig struct {
	MinTrainSamples int    `yaml:"min_train_samples"`
	RetrainEvery    int    `yaml:"retrain_every"`
	StatePath       string `yaml:"state_path"`
}

type GatesConfig struct {
	MinPrecision float64 `yaml:"min_precision"`
	MinRecall    float64 `yaml:"min_recall"`
	MinF1        float64 `yaml:"min_f1"`
}

func Default() Config {
	return Config{
		Mode:              "dev",
		DBDriver:          "sqlite",
		DBDSN:             "synergy.db",
		WorkerConcurrency: 4,
		Detection: DetectionConfig{
			MinTemporalConfidence:    0.6,
			MaxContextSynergies:      30,
			MaxDevicesPerContextType: 5,
		},
		Chains: ChainsConfig{
			TopPairsForChains: 1000,
			Max3DeviceChains:  200,
			Max4DeviceChains:  100,
		},
		Calibration: CalibrationConfig{
			MinTrainSamples: 10,
			RetrainEvery:    50,
			StatePath:       "calibrator.json",
		},
		Gates: GatesConfig{
			MinPrecision: 0.80,
			MinRecall:    0.60,
			MinF1:        0.65,
		},
	}
}

// Load builds the config: defaults, then the optional YAML tuning file named
// by SYNERGY_CONFIG, then env overrides.
func Load(log *logger.Logger) (Config, error) {
	cfg := Default()

	if path := envutil.Str("SYNERGY_CONFIG", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
		log.Info("Loaded tuning file", "path", path)
	}

	cfg.Mode = envutil.Str("APP_MODE", cfg.Mode)
	cfg.DBDriver = envutil.Str("DB_DRIVER", cfg.DBDriver)
	cfg.DBDSN = envutil.Str("DB_DSN", cfg.DBDSN)
	cfg.RedisAddr = envutil.Str("REDIS_ADDR", cfg.RedisAddr)
	cfg.WorkerConcurrency = envutil.Int("WORKER_CONCURRENCY", cfg.WorkerConcurrency)
	cfg.Chains.SameAreaOnly = envutil.Bool("CHAINS_SAME_AREA_ONLY", cfg.Chains.SameAreaOnly)
	cfg.Calibration.StatePath = envutil.Str("CALIBRATOR_STATE", cfg.Calibration.StatePath)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("worker_concurrency must be >= 1, got %d", c.WorkerConcurrency)
	}
	if c.Chains.Max4DeviceChains >= c.Chains.Max3DeviceChains {
		return fmt.Errorf("max_4_device_chains (%d) must be below max_3_device_chains (%d)",
			c.Chains.Max4DeviceChains, c.Chains.Max3DeviceChains)
	}
	if c.Detection.MinTemporalConfidence < 0 || c.Detection.MinTemporalConfidence > 1 {
		return fmt.Errorf("min_temporal_confidence out of range: %v", c.Detection.MinTemporalConfidence)
	}
	return nil
}

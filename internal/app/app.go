package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aurahome/synergy-engine/internal/calibration"
	"github.com/aurahome/synergy-engine/internal/chains"
	"github.com/aurahome/synergy-engine/internal/config"
	"github.com/aurahome/synergy-engine/internal/detect"
	"github.com/aurahome/synergy-engine/internal/engine"
	"github.com/aurahome/synergy-engine/internal/feedback"
	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/repos"
	"github.com/aurahome/synergy-engine/internal/scoring"
	"github.com/aurahome/synergy-engine/internal/types"
)

// Repos bundles the data-access layer.
type Repos struct {
	Synergies  repos.SynergyRepo
	Patterns   repos.PatternRepo
	Executions repos.ExecutionRecordRepo
	Samples    repos.CalibrationSampleRepo
}

// App wires configuration, storage, and every engine component.
type App struct {
	Cfg config.Config
	Log *logger.Logger
	DB  *gorm.DB

	Repos      Repos
	Engine     *engine.Engine
	Tracker    *feedback.Tracker
	Calibrator *calibration.Calibrator

	redisCache *chains.RedisCache
}

func New(inventoryDir string) (*App, error) {
	log, err := logger.New(os.Getenv("APP_MODE"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := config.Load(log)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(
		&types.Pattern{},
		&types.Synergy{},
		&types.ExecutionRecord{},
		&types.CalibrationSample{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	a := &App{Cfg: cfg, Log: log, DB: db}
	a.Repos = Repos{
		Synergies:  repos.NewSynergyRepo(db, log),
		Patterns:   repos.NewPatternRepo(db, log),
		Executions: repos.NewExecutionRecordRepo(db, log),
		Samples:    repos.NewCalibrationSampleRepo(db, log),
	}

	var cache chains.ChainCache
	if cfg.RedisAddr != "" {
		redisCache, err := chains.NewRedisCache(cfg.RedisAddr, log)
		if err != nil {
			return nil, fmt.Errorf("connect chain cache: %w", err)
		}
		a.redisCache = redisCache
		cache = redisCache
	} else {
		cache = chains.NewMemoryCache()
	}

	var areaValidator chains.AreaValidator
	if cfg.Chains.SameAreaOnly {
		areaValidator = chains.SameAreaValidator
	}
	builder := chains.NewBuilder(
		cfg.Chains.TopPairsForChains,
		cfg.Chains.Max3DeviceChains,
		cfg.Chains.Max4DeviceChains,
		cache,
		areaValidator,
		log,
	)

	registry := detect.NewRegistry(
		detect.NewTemporalDetector(cfg.Detection.MinTemporalConfidence, log),
		detect.NewContextDetector(cfg.Detection.MaxContextSynergies, cfg.Detection.MaxDevicesPerContextType, log),
	)

	source := engine.NewRepoPatternSource(a.Repos.Patterns, 30*24*time.Hour)
	inventory := engine.NewFileInventory(inventoryDir)

	a.Engine = engine.New(source, inventory, registry, builder, scoring.NewScorer(), a.Repos.Synergies, cfg.WorkerConcurrency, log)
	a.Tracker = feedback.NewTracker(db, a.Repos.Synergies, a.Repos.Executions, log)

	a.Calibrator = calibration.NewCalibrator(cfg.Calibration.MinTrainSamples, cfg.Calibration.RetrainEvery, log)
	if _, err := os.Stat(cfg.Calibration.StatePath); err == nil {
		if err := a.Calibrator.LoadState(cfg.Calibration.StatePath); err != nil {
			log.Warn("Could not load calibrator state, starting fresh", "error", err)
		}
	} else if rows, err := a.Repos.Samples.LoadAll(context.Background(), nil); err == nil && len(rows) > 0 {
		// No state blob; rebuild the history from the durable sample store.
		features := make([][]float64, len(rows))
		labels := make([]int, len(rows))
		for i, r := range rows {
			features[i] = r.Features
			labels[i] = r.Label
		}
		a.Calibrator.Seed(features, labels)
		log.Info("Rehydrated calibrator from durable samples", "samples", len(rows))
	}

	return a, nil
}

// RecordSuggestionFeedback stores one suggestion outcome durably and feeds it
// to the calibrator. The durable row survives restarts independently of the
// calibrator state blob.
func (a *App) RecordSuggestionFeedback(ctx context.Context, rawConfidence float64, ambiguityCount, criticalAmbiguityCount, rounds, answerCount int, proceeded bool, approved *bool) error {
	label := 0
	if proceeded && (approved == nil || *approved) {
		label = 1
	}
	if err := a.Repos.Samples.Append(ctx, nil, &types.CalibrationSample{
		Features: calibration.FeatureVector(rawConfidence, ambiguityCount, criticalAmbiguityCount, rounds, answerCount),
		Label:    label,
	}); err != nil {
		return fmt.Errorf("persist calibration sample: %w", err)
	}
	a.Calibrator.AddFeedback(rawConfidence, ambiguityCount, criticalAmbiguityCount, rounds, answerCount, proceeded, approved)
	return nil
}

func (a *App) Close() {
	if a.redisCache != nil {
		_ = a.redisCache.Close()
	}
	if a.Calibrator != nil && a.Cfg.Calibration.StatePath != "" {
		if err := a.Calibrator.SaveState(a.Cfg.Calibration.StatePath); err != nil {
			a.Log.Warn("Could not save calibrator state", "error", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	a.Log.Sync()
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	switch cfg.DBDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DBDSN), gormCfg)
	case "sqlite", "":
		return gorm.Open(sqlite.Open(cfg.DBDSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}

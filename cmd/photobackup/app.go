package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/photobackup/engine/internal/catalog"
	"github.com/photobackup/engine/internal/config"
	"github.com/photobackup/engine/internal/destination"
	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/encryption"
	"github.com/photobackup/engine/internal/logger"
	"github.com/photobackup/engine/internal/notification"
	"github.com/photobackup/engine/internal/photosource"
	"github.com/photobackup/engine/internal/ports"
	"github.com/photobackup/engine/internal/scheduler"
	"github.com/photobackup/engine/internal/securestore"
	"github.com/photobackup/engine/internal/syncengine"
	"github.com/photobackup/engine/internal/verification"
)

// app bundles every wired component a subcommand needs. Built once per
// invocation by newApp; Close releases the catalog handle.
type app struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	notify    *notification.Bus
	source    *photosource.Source
	encryptor *encryption.Encryptor
	engine    *syncengine.Engine
	verifier  *verification.Engine
	sched     *scheduler.Scheduler
	backendOf func(domain.Destination) (ports.DestinationBackend, error)
	log       *zap.Logger
}

func newApp(libraryDir string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger.InitLogger(logger.Environment(cfg.App.Environment), logger.LogLevel(cfg.Log.Level), cfg.Log.Levels)
	log := logger.Named("cmd")

	migrationMode := catalog.ParseMigrationMode(cfg.Catalog.MigrationMode)
	cat, err := catalog.Open(cfg.Catalog.Path, migrationMode)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	if n, err := cat.CleanupStaleJobs(context.Background()); err != nil {
		log.Error("failed recovering stale jobs", zap.Error(err))
	} else if n > 0 {
		log.Warn("recovered stale jobs from a previous crash", zap.Int("count", n))
	}

	store, err := securestore.NewFileStore(filepath.Join(cfg.App.DataDir, "securestore"))
	if err != nil {
		_ = cat.Close()
		return nil, fmt.Errorf("open secure store: %w", err)
	}
	encryptor := encryption.New(store)

	bus := notification.New()

	source, err := buildSource(libraryDir)
	if err != nil {
		_ = cat.Close()
		return nil, err
	}

	getDest := func(ctx context.Context, id string) (domain.Destination, error) { return cat.GetDestination(ctx, id) }
	backendOf := func(dest domain.Destination) (ports.DestinationBackend, error) {
		return destination.New(dest, destination.Multipart{
			ThresholdBytes: cfg.Multipart.ThresholdBytes,
			PartSizeBytes:  cfg.Multipart.PartSizeBytes,
			MaxRetries:     cfg.Multipart.MaxRetries,
		})
	}

	engineOpts := []syncengine.Option{
		syncengine.WithConcurrency(cfg.Sync.Concurrency),
		syncengine.WithNotification(bus),
	}
	if cfg.Encryption.Enabled {
		engineOpts = append(engineOpts, syncengine.WithEncryption(encryptor))
	}
	engine := syncengine.New(cat, source, getDest, backendOf, engineOpts...)

	verifier := verification.New(cat, getDest, backendOf,
		verification.WithConcurrency(cfg.Verification.Concurrency),
		verification.WithNotification(bus),
	)

	gates := buildGates(cfg)
	var periodic *scheduler.PeriodicConfig
	if cfg.Schedule.Preset != "" {
		periodic = &scheduler.PeriodicConfig{
			Preset:           scheduler.Preset(cfg.Schedule.Preset),
			Window:           parseWindow(cfg.Schedule.WindowStart, cfg.Schedule.WindowEnd),
			RequiresCharging: cfg.Schedule.RequiresCharging,
		}
	}
	sched := scheduler.New(cat, engine, gates, bus, periodic)

	return &app{
		cfg:       cfg,
		catalog:   cat,
		notify:    bus,
		source:    source,
		encryptor: encryptor,
		engine:    engine,
		verifier:  verifier,
		sched:     sched,
		backendOf: backendOf,
		log:       log,
	}, nil
}

func (a *app) Close() error {
	return a.catalog.Close()
}

// buildSource loads the fixture PhotoSource from libraryDir, the demo/
// CLI stand-in for a real device photo library adapter. An empty dir
// yields an empty, authorized library.
func buildSource(libraryDir string) (*photosource.Source, error) {
	if libraryDir == "" {
		return photosource.New(nil), nil
	}

	entries, err := os.ReadDir(libraryDir)
	if err != nil {
		return nil, fmt.Errorf("read library dir: %w", err)
	}

	var assets []photosource.Asset
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		asset, err := photosource.NewAssetFromFile(filepath.Join(libraryDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read library asset %s: %w", entry.Name(), err)
		}
		assets = append(assets, asset)
	}
	return photosource.New(assets), nil
}

func buildGates(cfg *config.Config) []ports.ResourceGate {
	dataDir := cfg.App.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	gates := []ports.ResourceGate{
		&scheduler.DiskSpaceGate{Path: dataDir, Probe: scheduler.UnixDiskSpaceProbe{}},
		&scheduler.ThermalGate{Probe: func() scheduler.ThermalState { return scheduler.ThermalNominal }},
	}
	if cfg.Schedule.RequiresCharging {
		gates = append(gates, &scheduler.ChargingGate{
			Probe:            func() bool { return true },
			RequiresCharging: true,
		})
	}
	return gates
}

func parseWindow(start, end string) scheduler.Window {
	startHour := parseHour(start)
	endHour := parseHour(end)
	return scheduler.Window{Start: startHour, End: endHour}
}

func parseHour(hhmm string) int {
	var hour, minute int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &hour, &minute); err != nil {
		return 0
	}
	return hour
}

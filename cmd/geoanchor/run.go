package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/OCAP2/geoanchor/internal/anchor"
	"github.com/OCAP2/geoanchor/internal/cache"
	"github.com/OCAP2/geoanchor/internal/config"
	"github.com/OCAP2/geoanchor/internal/dispatcher"
	"github.com/OCAP2/geoanchor/internal/host"
	"github.com/OCAP2/geoanchor/internal/influx"
	"github.com/OCAP2/geoanchor/internal/logging"
	"github.com/OCAP2/geoanchor/internal/monitor"
	intOtel "github.com/OCAP2/geoanchor/internal/otel"
	"github.com/OCAP2/geoanchor/internal/scene"
	"github.com/OCAP2/geoanchor/internal/scheduler"
	"github.com/OCAP2/geoanchor/internal/simsession"
	"github.com/OCAP2/geoanchor/internal/storage"
	"github.com/OCAP2/geoanchor/internal/worker"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// app holds everything a run wires together. Fields are filled in order by
// setup and released in reverse by close.
type app struct {
	out       io.Writer
	startTime time.Time
	registry  prometheus.Registerer

	logFile       *os.File
	slogManager   *logging.SlogManager
	logger        *slog.Logger
	dbLogger      zerolog.Logger
	otelProvider  *intOtel.Provider
	graylogWriter *gelf.Writer

	backend       storage.Backend
	influxManager *influx.Manager
	dispatcher    *dispatcher.Dispatcher
	journal       *worker.Journal
	scheduler     *scheduler.Scheduler
	session       *simsession.Session
	anchors       *cache.AnchorCache
	collector     *monitor.Collector
	monitor       *monitor.Service
	metricsServer *http.Server
	host          *host.Host
}

func runCommand(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Int("max-ticks", 0, "stop after this many ticks, 0 runs until interrupted")
	fs.String("mode", "", "live or authoring")
	if err := fs.Parse(args); err != nil {
		return err
	}

	configDir := "."
	if fs.NArg() > 0 {
		configDir = fs.Arg(0)
	}

	a := &app{out: out, startTime: time.Now(), registry: prometheus.DefaultRegisterer}
	if err := a.loadConfig(configDir, fs); err != nil {
		return err
	}
	defer a.close()

	if err := a.setup(ctx); err != nil {
		return err
	}
	return a.run(ctx)
}

func (a *app) loadConfig(configDir string, fs *pflag.FlagSet) error {
	err := config.Load(configDir)
	for flag, key := range map[string]string{"log-level": "logLevel", "max-ticks": "host.maxTicks", "mode": "mode"} {
		if f := fs.Lookup(flag); f != nil && f.Changed {
			if bindErr := viper.BindPFlag(key, f); bindErr != nil {
				return bindErr
			}
		}
	}
	if err != nil {
		fmt.Fprintf(a.out, "Failed to load config, using defaults: %v\n", err)
	}
	return nil
}

func (a *app) setup(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"logging", a.setupLogging},
		{"storage", a.setupStorage},
		{"influx", a.setupInflux},
		{"dispatcher", a.setupDispatcher},
		{"scheduler", a.setupScheduler},
		{"anchors", a.setupAnchors},
		{"monitor", a.setupMonitor},
		{"host", a.setupHost},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("setup %s: %w", s.name, err)
		}
	}
	return nil
}

func (a *app) setupLogging(context.Context) error {
	f, logPath, err := logging.OpenLogFile(viper.GetString("logsDir"), AppName, a.startTime)
	if err != nil {
		return err
	}
	a.logFile = f

	level := viper.GetString("logLevel")
	a.slogManager = logging.NewSlogManager()

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		a.otelProvider, err = intOtel.New(intOtel.FromConfig(otelCfg, f))
		if err != nil {
			fmt.Fprintf(a.out, "Failed to initialize OTel provider: %v\n", err)
		}
	}

	if viper.GetBool("graylog.enabled") {
		h, w, err := logging.NewGraylogHandler(viper.GetString("graylog.address"), level)
		if err != nil {
			fmt.Fprintf(a.out, "Failed to set up Graylog handler: %v\n", err)
		} else {
			a.graylogWriter = w
			a.slogManager.AddHandler(h)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if a.otelProvider != nil {
		otelLogProvider = a.otelProvider.LoggerProvider()
	}
	a.slogManager.SetContextProvider(func() []slog.Attr {
		if a.host == nil {
			return nil
		}
		return a.host.LogContext()
	})
	a.slogManager.Setup(f, level, otelLogProvider)
	a.logger = a.slogManager.Logger()
	a.dbLogger = logging.NewZerolog(f, level)

	a.logger.Info("Starting up", "version", CurrentVersion, "buildDate", BuildDate, "logFile", logPath)
	fmt.Fprintf(a.out, "Logging to %s\n", logPath)
	return nil
}

func (a *app) setupStorage(context.Context) error {
	cfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(cfg, a.slogManager, a.dbLogger)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return err
	}
	a.backend = backend
	a.logger.Info("Storage backend initialized", "type", cfg.Type)
	return nil
}

func (a *app) setupInflux(ctx context.Context) error {
	backupPath := filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("%s_influx_%s.log.gz", AppName, a.startTime.Format("20060102_150405")))
	m := influx.NewManager(a.dbLogger, backupPath)
	err := m.Connect(ctx)
	if errors.Is(err, influx.ErrDisabled) {
		a.logger.Debug("InfluxDB disabled")
		return nil
	}
	if err != nil {
		a.logger.Error("Failed to set up InfluxDB, continuing without it", "error", err)
		return nil
	}
	a.influxManager = m
	return nil
}

func (a *app) setupDispatcher(context.Context) error {
	d, err := dispatcher.New(logging.NewKVLogger(a.logger))
	if err != nil {
		return err
	}
	a.dispatcher = d

	collector, err := monitor.NewCollector(a.registry)
	if err != nil {
		return err
	}
	a.collector = collector

	worker.NewManager(worker.Dependencies{
		LogManager: a.slogManager,
		Influx:     a.influxManager,
		Collector:  a.collector,
	}, a.backend).RegisterHandlers(d)
	a.journal = worker.NewJournal(d, a.logger)
	a.logger.Debug("Worker handlers registered with dispatcher")
	return nil
}

func (a *app) setupScheduler(context.Context) error {
	s, err := scheduler.New(logging.NewKVLogger(a.logger.With("component", "scheduler")))
	if err != nil {
		return err
	}
	a.scheduler = s

	sc := config.GetSessionConfig()
	a.session = simsession.New(simsession.Config{
		BootTicks:           sc.BootTicks,
		TrackingWarmupTicks: sc.TrackingWarmupTicks,
		HasAnchorManager:    sc.HasAnchorManager,
		ManualFails:         sc.ManualFails,
		Terrain:             simOutcome(sc.Terrain),
		Rooftop:             simOutcome(sc.Rooftop),
		Reference:           config.GetReference(),
	}, a.logger)
	return nil
}

func simOutcome(c config.OutcomeConfig) simsession.Outcome {
	return simsession.Outcome{State: c.Outcome, LatencyTicks: c.LatencyTicks, SurfaceHeight: c.SurfaceHeight}
}

func (a *app) setupAnchors(context.Context) error {
	hostCfg, err := config.GetHostConfig()
	if err != nil {
		return err
	}
	anchorCfgs, err := config.GetAnchors()
	if err != nil {
		return err
	}

	a.anchors = cache.NewAnchorCache()
	ref := config.GetReference()
	for _, ac := range anchorCfgs {
		an, err := buildAnchor(ac, hostCfg.Mode, ref, anchor.Deps{
			Logger:    a.logger,
			Sessions:  a.session,
			Scheduler: a.scheduler,
			Journal:   a.journal,
		})
		if err != nil {
			return err
		}
		if err := a.anchors.Add(an); err != nil {
			return err
		}
	}
	a.logger.Info("Anchors loaded", "count", a.anchors.Len(), "mode", hostCfg.Mode.String())
	return nil
}

// buildAnchor creates the scene node and anchor for one config entry. An
// authoring anchor without a configured position is snapped to its
// geodetic fields.
func buildAnchor(ac config.AnchorConfig, mode core.Mode, ref core.ReferencePoint, deps anchor.Deps) (*anchor.Anchor, error) {
	altitudeType, err := ac.Type()
	if err != nil {
		return nil, err
	}

	node := scene.NewTransform(ac.Name)
	if len(ac.Position) == 3 {
		node.SetLocalPosition(mgl64.Vec3{ac.Position[0], ac.Position[1], ac.Position[2]})
	}

	an, err := anchor.New(anchor.Config{
		Name:           ac.Name,
		Node:           node,
		Mode:           mode,
		AltitudeType:   altitudeType,
		Latitude:       ac.Latitude,
		Longitude:      ac.Longitude,
		Altitude:       ac.Altitude,
		AltitudeOffset: ac.AltitudeOffset,
		Reference:      ref,
	}, deps)
	if err != nil {
		return nil, err
	}

	if mode == core.Authoring && len(ac.Position) == 0 {
		if err := an.SnapToGeodetic(); err != nil {
			return nil, err
		}
	}
	return an, nil
}

func (a *app) setupMonitor(context.Context) error {
	hostCfg, err := config.GetHostConfig()
	if err != nil {
		return err
	}

	a.monitor = monitor.NewService(monitor.Dependencies{
		Logger:    a.logger,
		Anchors:   a.anchors,
		Scheduler: a.scheduler,
		Collector: a.collector,
		StatusDir: viper.GetString("logsDir"),
		Interval:  hostCfg.StatusInterval,
	})
	if err := a.monitor.Start(); err != nil {
		return err
	}

	if hostCfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.collector.Handler())
		a.metricsServer = &http.Server{Addr: hostCfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Metrics server stopped", "error", err)
			}
		}()
		a.logger.Info("Serving metrics", "addr", hostCfg.MetricsAddr)
	}
	return nil
}

func (a *app) setupHost(context.Context) error {
	hostCfg, err := config.GetHostConfig()
	if err != nil {
		return err
	}
	maxTicks := uint64(0)
	if hostCfg.MaxTicks > 0 {
		maxTicks = uint64(hostCfg.MaxTicks)
	}

	a.host, err = host.New(host.Dependencies{
		Logger:    a.logger,
		Scheduler: a.scheduler,
		Anchors:   a.anchors,
		Session:   a.session,
		Monitor:   a.monitor,
		Collector: a.collector,
		Sampler:   a.journal,
		Interval:  hostCfg.TickInterval,
		MaxTicks:  maxTicks,
	})
	return err
}

func (a *app) run(ctx context.Context) error {
	if err := a.host.Run(ctx); err != nil {
		return err
	}

	// let queued journal writes land before reporting
	a.dispatcher.Close()
	a.dispatcher = nil

	lines, _ := a.monitor.GetProgramStatus()
	for _, l := range lines {
		fmt.Fprintln(a.out, l)
	}

	recs, err := a.backend.Resolutions()
	if err != nil {
		return fmt.Errorf("reading resolutions: %w", err)
	}
	for _, r := range recs {
		fmt.Fprintf(a.out, "%-20s %-12s %-8s %s\n", r.AnchorName, r.Outcome, r.AltitudeType, r.ResultState)
	}
	return nil
}

// close releases whatever setup managed to create.
func (a *app) close() {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metricsServer.Shutdown(shutdownCtx)
		cancel()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if a.influxManager != nil {
		if err := a.influxManager.Close(); err != nil {
			a.logger.Error("Failed to close InfluxDB", "error", err)
		}
	}
	if a.slogManager != nil {
		_ = a.slogManager.Flush(context.Background())
	}
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(context.Background())
	}
	if a.graylogWriter != nil {
		_ = a.graylogWriter.Close()
		a.graylogWriter = nil
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

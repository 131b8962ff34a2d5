// carrierd runs the LwM2M carrier runtime on a host.
//
// It owns the carrier registry (Device, Portfolio, Location and App Data
// stores plus the event dispatcher) and wires the host-side services
// around it: the event journal, the MQTT relay, InfluxDB telemetry, the
// Modbus power meter, the HTTP API and the bench console.
//
// When the host takes over a REBOOT it cancels every service and
// re-executes its own binary.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/carrier-core/internal/api"
	"github.com/nerrad567/carrier-core/internal/appdata"
	"github.com/nerrad567/carrier-core/internal/carrier"
	"github.com/nerrad567/carrier-core/internal/console"
	"github.com/nerrad567/carrier-core/internal/device"
	"github.com/nerrad567/carrier-core/internal/event"
	"github.com/nerrad567/carrier-core/internal/host"
	"github.com/nerrad567/carrier-core/internal/infrastructure/config"
	"github.com/nerrad567/carrier-core/internal/infrastructure/database"
	"github.com/nerrad567/carrier-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/carrier-core/internal/infrastructure/logging"
	"github.com/nerrad567/carrier-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/carrier-core/internal/powermeter"
	"github.com/nerrad567/carrier-core/internal/process"
	"github.com/nerrad567/carrier-core/internal/relay"
	"github.com/nerrad567/carrier-core/internal/telemetry"
	"github.com/nerrad567/carrier-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// journalPruneInterval is how often journal entries past retention are removed.
const journalPruneInterval = time.Hour

// errRestartRequested ends run when the host handler carries out a reboot.
var errRestartRequested = errors.New("restart requested")

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: loading .env: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	cancel()

	if errors.Is(err, errRestartRequested) {
		if execErr := reexec(); execErr != nil {
			fmt.Fprintf(os.Stderr, "Error: restarting: %v\n", execErr)
			os.Exit(1)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, errRestartRequested when the host
//     handler asked for a restart, or the error that stopped a service
func run(parent context.Context) error { //nolint:gocognit,gocyclo // Linear service wiring
	log := logging.Default()
	log.Info("starting carrierd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	carrierCfg, err := carrierConfig(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	// Link daemon (optional)
	var link host.LinkController
	if cfg.Host.Link.Command != "" {
		supervisor := process.NewSupervisor(process.Config{
			Name:            "link",
			Binary:          cfg.Host.Link.Command,
			Args:            cfg.Host.Link.Args,
			RestartDelay:    cfg.Host.Link.RestartDelay,
			MaxRestarts:     cfg.Host.Link.MaxRestarts,
			GracefulTimeout: cfg.Host.Link.GracefulTimeout,
		})
		supervisor.SetLogger(log)
		defer func() {
			if stopErr := supervisor.Stop(); stopErr != nil {
				log.Error("error stopping link daemon", "error", stopErr)
			}
		}()
		link = host.NewProcessLink(supervisor)
		log.Info("link daemon configured", "command", cfg.Host.Link.Command)
	}

	handler := host.NewHandler(host.Config{
		TakeOverReboot: cfg.Host.TakeOverReboot,
		RebootDelay:    cfg.Host.RebootDelay,
	}, link, func() { cancel(errRestartRequested) })
	handler.SetLogger(log)

	reg, err := carrier.New(carrierCfg, handler)
	if err != nil {
		return fmt.Errorf("initialising carrier: %w", err)
	}
	reg.SetLogger(log)
	dispatcher := reg.Dispatcher()
	dispatcher.SetRebooter(handler.Rebooter())
	log.Info("carrier initialised",
		"power_sources", len(carrierCfg.PowerSources),
		"heap_bytes", carrierCfg.Limits.HeapBytes,
		"app_data", carrierCfg.AppDataEnabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })

	// Event journal (optional)
	var db *database.DB
	var journal *event.SQLiteJournal
	if cfg.Journal.Enabled {
		db, err = database.Open(ctx, database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database ready", "path", cfg.Database.Path)

		journal = event.NewSQLiteJournal(db.DB)
		dispatcher.AddObserver(event.NewJournalObserver(journal, log))
		if cfg.Journal.Retention > 0 {
			g.Go(func() error {
				pruneJournal(gctx, journal, cfg.Journal.Retention, log)
				return nil
			})
		}
	}

	// MQTT relay (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		var outbox *appdata.Outbox
		if carrierCfg.AppDataEnabled {
			outbox = reg.Outbox()
		}
		r := relay.New(mqttClient, mqttClient.Topics(), mqttClient.QoS(), outbox, 0)
		r.SetLogger(log)
		if startErr := r.Start(); startErr != nil {
			return fmt.Errorf("starting relay: %w", startErr)
		}
		dispatcher.AddObserver(r)
		g.Go(func() error { return r.Run(gctx) })
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		if cfg.Telemetry.Enabled {
			sampler := telemetry.NewSampler(reg, influxClient, cfg.Telemetry.Interval,
				map[string]string{"carrier": cfg.MQTT.Broker.ClientID})
			sampler.SetLogger(log)
			g.Go(func() error { return sampler.Run(gctx) })
		}
	} else if cfg.Telemetry.Enabled {
		log.Warn("telemetry enabled without InfluxDB, sampler not started")
	}

	// Power meter (optional)
	if cfg.PowerMeter.Enabled {
		poller, closeMeter, meterErr := startPowerMeter(cfg.PowerMeter, reg.Device())
		if meterErr != nil {
			return meterErr
		}
		defer closeMeter()
		poller.SetLogger(log)
		log.Info("power meter connected", "address", cfg.PowerMeter.Address, "channels", len(cfg.PowerMeter.Channels))
		g.Go(func() error { return poller.Run(gctx) })
	}

	// HTTP API (optional)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log,
			Registry: reg,
			MQTT:     mqttClient,
			DB:       db,
			Version:  version,
		}
		if journal != nil {
			deps.Journal = journal
		}
		srv, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		dispatcher.AddObserver(srv.Hub())
		if startErr := srv.Start(gctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	// Bench console (optional). Leaving the console stops carrierd.
	if cfg.Console.Enabled {
		shell := console.New(reg, os.Stdout)
		if journal != nil {
			shell.SetJournal(journal)
		}
		g.Go(func() error {
			defer cancel(nil)
			return shell.Run(gctx, console.Config{
				Prompt:      cfg.Console.Prompt,
				HistoryFile: cfg.Console.HistoryFile,
			})
		})
	}

	log.Info("initialisation complete, waiting for events")

	<-gctx.Done()
	log.Info("shutdown requested, stopping services")
	cancel(nil)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("service stopped: %w", err)
	}

	if cause := context.Cause(ctx); errors.Is(cause, errRestartRequested) {
		log.Info("carrierd restarting")
		return errRestartRequested
	}

	log.Info("carrierd stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CARRIER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CARRIER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// newLogger builds the configured logger. With the console enabled the
// terminal belongs to the shell, so logs go to the console log file or
// stderr instead.
func newLogger(cfg *config.Config) (*logging.Logger, func(), error) {
	if !cfg.Console.Enabled {
		return logging.New(cfg.Logging, version), func() {}, nil
	}
	if cfg.Console.LogFile == "" {
		return logging.NewWithWriter(cfg.Logging, version, os.Stderr), func() {}, nil
	}

	f, err := os.OpenFile(cfg.Console.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening console log file: %w", err)
	}
	return logging.NewWithWriter(cfg.Logging, version, f), func() { _ = f.Close() }, nil
}

// carrierConfig converts the file configuration into carrier init
// parameters.
func carrierConfig(cfg *config.Config) (carrier.Config, error) {
	sources := make([]device.PowerSource, 0, len(cfg.Device.PowerSources))
	for _, name := range cfg.Device.PowerSources {
		p, err := device.ParsePowerSource(name)
		if err != nil {
			return carrier.Config{}, fmt.Errorf("device.power_sources: %w", err)
		}
		sources = append(sources, p)
	}

	return carrier.Config{
		CertificationMode:             cfg.Carrier.CertificationMode,
		DisableBootstrapFromSmartcard: cfg.Carrier.DisableBootstrapFromSmartcard,
		IsBootstrapServer:             cfg.Carrier.IsBootstrapServer,
		ServerURI:                     cfg.Carrier.ServerURI,
		ServerLifetime:                cfg.Carrier.ServerLifetime,
		SessionIdleTimeout:            cfg.Carrier.SessionIdleTimeout,
		PSK:                           cfg.Carrier.PSK,
		APN:                           cfg.Carrier.APN,
		ServiceCode:                   cfg.Carrier.ServiceCode,
		Device: device.Info{
			Manufacturer:    cfg.Device.Manufacturer,
			ModelNumber:     cfg.Device.ModelNumber,
			DeviceType:      cfg.Device.DeviceType,
			HardwareVersion: cfg.Device.HardwareVersion,
			SoftwareVersion: cfg.Device.SoftwareVersion,
		},
		PrimaryHostID:  cfg.Carrier.PrimaryHostID,
		PowerSources:   sources,
		MemoryTotalKB:  cfg.Device.MemoryTotalKB,
		Timezone:       cfg.Device.Timezone,
		UTCOffset:      cfg.Device.UTCOffset,
		AppDataEnabled: cfg.AppData.Enabled,
		Limits: carrier.Limits{
			MaxPowerSources:       cfg.Limits.MaxPowerSources,
			MaxPortfolioInstances: cfg.Limits.MaxPortfolioInstances,
			MaxIdentityLength:     cfg.Limits.MaxIdentityLength,
			HeapBytes:             cfg.Limits.HeapBytes,
			EventQueueSize:        cfg.Limits.EventQueueSize,
		},
	}, nil
}

// startPowerMeter connects to the meter and builds its poller.
//
// Returns:
//   - *powermeter.Poller: Poller writing into store
//   - func(): Closes the meter connection
//   - error: If a channel names an unknown source or the meter is unreachable
func startPowerMeter(cfg config.PowerMeterConfig, store *device.Store) (*powermeter.Poller, func(), error) {
	channels := make([]powermeter.Channel, 0, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		p, err := device.ParsePowerSource(ch.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("power_meter.channels[%d]: %w", i, err)
		}
		channels = append(channels, powermeter.Channel{
			Source:          p,
			VoltageRegister: ch.VoltageRegister,
			CurrentRegister: ch.CurrentRegister,
		})
	}

	conn, err := powermeter.Dial(cfg.Address, cfg.UnitID, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	poller, err := powermeter.New(conn, store, channels, cfg.Interval)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return poller, func() { _ = conn.Close() }, nil
}

// pruneJournal removes journal entries older than retention once at
// start and then every journalPruneInterval until ctx is done.
func pruneJournal(ctx context.Context, j *event.SQLiteJournal, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(journalPruneInterval)
	defer ticker.Stop()

	for {
		n, err := j.Prune(ctx, retention)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("journal prune failed", "error", err)
		case n > 0:
			log.Info("journal pruned", "removed", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// reexec replaces the process image with a fresh copy of carrierd.
func reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ()) //nolint:gosec // Re-executes our own binary
}

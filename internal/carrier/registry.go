package carrier

import (
	"fmt"

	"github.com/nerrad567/carrier-core/internal/appdata"
	"github.com/nerrad567/carrier-core/internal/device"
	"github.com/nerrad567/carrier-core/internal/event"
	"github.com/nerrad567/carrier-core/internal/location"
	"github.com/nerrad567/carrier-core/internal/lwm2m"
	"github.com/nerrad567/carrier-core/internal/portfolio"
)

// Logger is satisfied by the logging package and by every store's Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Registry owns every carrier resource store and the event dispatcher.
// One Registry exists per process; tests build their own.
type Registry struct {
	cfg        Config
	budget     *lwm2m.Budget
	device     *device.Store
	portfolio  *portfolio.Registry
	location   *location.Cache
	outbox     *appdata.Outbox
	dispatcher *event.Dispatcher
}

// New validates cfg and builds the stores.
//
// Parameters:
//   - cfg: Init parameters and initial device state
//   - handler: Host event handler (nil lets every reboot proceed)
//
// Returns:
//   - *Registry: Registry with the Primary Host portfolio instance created
//   - error: ErrInvalidConfig on bad parameters, or the failing store error
func New(cfg Config, handler event.Handler) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	budget := lwm2m.NewBudget(cfg.Limits.HeapBytes)

	store, err := device.NewStore(cfg.Device, cfg.Limits.MaxPowerSources)
	if err != nil {
		return nil, fmt.Errorf("creating device store: %w", err)
	}
	if err := store.SetAvailablePowerSources(cfg.PowerSources); err != nil {
		return nil, fmt.Errorf("%w: power_sources: %v", ErrInvalidConfig, err)
	}
	if err := store.SetMemoryTotal(cfg.MemoryTotalKB); err != nil {
		return nil, fmt.Errorf("%w: memory_total: %v", ErrInvalidConfig, err)
	}
	clock := store.Clock()
	clock.SetTimezone(cfg.Timezone)
	clock.SetUTCOffset(cfg.UTCOffset)

	reg := portfolio.NewRegistry(portfolio.Limits{
		MaxInstances:      cfg.Limits.MaxPortfolioInstances,
		MaxIdentityLength: cfg.Limits.MaxIdentityLength,
	}, budget)
	identities := map[portfolio.Identity]string{
		portfolio.IdentityID:           cfg.PrimaryHostID,
		portfolio.IdentityManufacturer: cfg.Device.Manufacturer,
		portfolio.IdentityModel:        cfg.Device.ModelNumber,
		portfolio.IdentitySWVersion:    cfg.Device.SoftwareVersion,
	}
	if err := reg.CreatePrimaryHost(identities); err != nil {
		return nil, fmt.Errorf("creating primary host instance: %w", err)
	}

	return &Registry{
		cfg:        cfg,
		budget:     budget,
		device:     store,
		portfolio:  reg,
		location:   location.NewCache(budget),
		outbox:     appdata.NewOutbox(budget, cfg.AppDataEnabled),
		dispatcher: event.NewDispatcher(handler, cfg.Limits.EventQueueSize),
	}, nil
}

// SetLogger sets the logger on every store and the dispatcher.
func (r *Registry) SetLogger(logger Logger) {
	r.device.SetLogger(logger)
	r.portfolio.SetLogger(logger)
	r.dispatcher.SetLogger(logger)
}

// Config returns the configuration the registry was built with.
func (r *Registry) Config() Config { return r.cfg }

// Device returns the Device Resource Store.
func (r *Registry) Device() *device.Store { return r.device }

// Portfolio returns the Portfolio Registry.
func (r *Registry) Portfolio() *portfolio.Registry { return r.portfolio }

// Location returns the Location/Velocity Cache.
func (r *Registry) Location() *location.Cache { return r.location }

// Outbox returns the App Data Outbox.
func (r *Registry) Outbox() *appdata.Outbox { return r.outbox }

// Dispatcher returns the Event Dispatcher.
func (r *Registry) Dispatcher() *event.Dispatcher { return r.dispatcher }

// Budget returns the shared storage budget.
func (r *Registry) Budget() *lwm2m.Budget { return r.budget }

// HeapUsage reports the storage budget state.
type HeapUsage struct {
	Used     int64 `json:"used"`
	Capacity int64 `json:"capacity"`
}

// Snapshot is a consistent-per-store view of every resource.
type Snapshot struct {
	Device    *device.Snapshot     `json:"device"`
	Time      device.TimeInfo      `json:"time"`
	Portfolio []portfolio.Instance `json:"portfolio"`
	Location  *location.Fix        `json:"location,omitempty"`
	Velocity  *location.Velocity   `json:"velocity,omitempty"`
	AppData   bool                 `json:"app_data_pending"`
	Session   event.Status         `json:"session"`
	Heap      HeapUsage            `json:"heap"`
}

// Snapshot reads every store. Each store is copied under its own lock.
func (r *Registry) Snapshot() Snapshot {
	snap := Snapshot{
		Device:    r.device.Snapshot(),
		Time:      device.ReadTime(r.device.Clock()),
		Portfolio: r.portfolio.Instances(),
		AppData:   r.outbox.Pending(),
		Session:   r.dispatcher.Status(),
		Heap:      HeapUsage{Used: r.budget.Used(), Capacity: r.budget.Capacity()},
	}
	if fix, ok := r.location.Location(); ok {
		snap.Location = &fix
	}
	if v, ok := r.location.Velocity(); ok {
		snap.Velocity = &v
	}
	return snap
}

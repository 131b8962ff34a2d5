package portfolio

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/nerrad567/carrier-core/internal/lwm2m"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// instance is the stored form of a Portfolio instance.
type instance struct {
	id     uint16
	fields [numIdentities]string
	set    [numIdentities]bool
}

// Registry holds the Portfolio object instances.
//
// Identity values are copied into storage reserved from the shared budget.
// Instance 0 is the Primary Host: its ID identity can only be set through
// CreatePrimaryHost and the instance cannot be deleted.
//
// All public methods are thread-safe.
type Registry struct {
	mu        sync.RWMutex
	limits    Limits
	budget    *lwm2m.Budget
	instances map[uint16]*instance
	logger    Logger
}

// NewRegistry creates an empty registry.
//
// Parameters:
//   - limits: Table and value bounds; zero fields take the defaults
//   - budget: Shared storage budget for identity values (nil for unbounded)
//
// Returns:
//   - *Registry: Registry ready for use
func NewRegistry(limits Limits, budget *lwm2m.Budget) *Registry {
	if limits.MaxInstances <= 0 {
		limits.MaxInstances = DefaultMaxInstances
	}
	if limits.MaxIdentityLength <= 0 {
		limits.MaxIdentityLength = DefaultMaxIdentityLength
	}
	return &Registry{
		limits:    limits,
		budget:    budget,
		instances: make(map[uint16]*instance, limits.MaxInstances),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Limits returns the effective limits.
func (r *Registry) Limits() Limits {
	return r.limits
}

// CreateInstance adds an empty instance.
// Returns ErrInstanceExists if id is taken, checked before ErrRegistryFull.
func (r *Registry) CreateInstance(id uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.createLocked(id); err != nil {
		return err
	}
	r.logger.Info("portfolio instance created", "id", id)
	return nil
}

func (r *Registry) createLocked(id uint16) error {
	if _, exists := r.instances[id]; exists {
		return fmt.Errorf("%w: %d", ErrInstanceExists, id)
	}
	if len(r.instances) >= r.limits.MaxInstances {
		return fmt.Errorf("%w: %d instances", ErrRegistryFull, r.limits.MaxInstances)
	}
	r.instances[id] = &instance{id: id}
	return nil
}

// CreatePrimaryHost creates instance 0 with the given identities.
// It is the only way to set the Primary Host ID identity. Empty values
// are skipped and the identity stays unset.
func (r *Registry) CreatePrimaryHost(identities map[Identity]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.createLocked(PrimaryHostID); err != nil {
		return err
	}
	inst := r.instances[PrimaryHostID]

	for _, field := range AllIdentities() {
		value, ok := identities[field]
		if !ok || value == "" {
			continue
		}
		if err := r.writeLocked(inst, field, value); err != nil {
			r.dropLocked(inst)
			return err
		}
	}

	r.logger.Info("portfolio primary host created", "id", identities[IdentityID])
	return nil
}

// DeleteInstance removes an instance and releases its storage.
// The Primary Host instance cannot be deleted.
func (r *Registry) DeleteInstance(id uint16) error {
	if id == PrimaryHostID {
		return fmt.Errorf("%w: delete", ErrPrimaryHostProtected)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInstanceNotFound, id)
	}
	r.dropLocked(inst)
	r.logger.Info("portfolio instance deleted", "id", id)
	return nil
}

func (r *Registry) dropLocked(inst *instance) {
	for i := range inst.fields {
		r.budget.Release(len(inst.fields[i]))
	}
	delete(r.instances, inst.id)
}

// ReadIdentity copies an identity value followed by a NUL terminator
// into buf and returns the bytes written.
//
// With a nil buf it writes nothing and returns the length the buffer must
// have. When buf is too short it returns that same length together with
// ErrBufferTooSmall. An identity that was never written reads as empty.
func (r *Registry) ReadIdentity(id uint16, field Identity, buf []byte) (int, error) {
	value, err := r.Identity(id, field)
	if err != nil {
		return 0, err
	}

	need := len(value) + 1
	if buf == nil {
		return need, nil
	}
	if len(buf) < need {
		return need, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, need, len(buf))
	}

	copy(buf, value)
	buf[len(value)] = 0
	return need, nil
}

// Identity returns an identity value.
func (r *Registry) Identity(id uint16, field Identity) (string, error) {
	if !field.Valid() {
		return "", fmt.Errorf("%w: %d", ErrInvalidField, uint8(field))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrInstanceNotFound, id)
	}
	return inst.fields[field], nil
}

// WriteIdentity sets an identity value.
//
// Checks run in this order: Primary Host ID protection, empty value or
// unknown field, unknown instance, value length, storage reservation.
// A failed write leaves the previous value in place.
func (r *Registry) WriteIdentity(id uint16, field Identity, value string) error {
	if id == PrimaryHostID && field == IdentityID {
		return fmt.Errorf("%w: id identity is read-only", ErrPrimaryHostProtected)
	}
	if !field.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidField, uint8(field))
	}
	if value == "" {
		return fmt.Errorf("%w: %s", ErrEmptyValue, field)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInstanceNotFound, id)
	}
	if err := r.writeLocked(inst, field, value); err != nil {
		return err
	}

	r.logger.Debug("portfolio identity written", "id", id, "field", field.String())
	return nil
}

func (r *Registry) writeLocked(inst *instance, field Identity, value string) error {
	if !lwm2m.MaxLen(value, r.limits.MaxIdentityLength) {
		return fmt.Errorf("%w: %d bytes, max %d", ErrValueTooLong, len(value), r.limits.MaxIdentityLength)
	}
	if err := r.budget.Swap(len(inst.fields[field]), len(value)); err != nil {
		return fmt.Errorf("portfolio: storing %s: %w", field, err)
	}

	inst.fields[field] = strings.Clone(value)
	inst.set[field] = true
	return nil
}

// Instances returns every instance ordered by ID.
func (r *Registry) Instances() []Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(r.instances))
	out := make([]Instance, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.instances[id].snapshot())
	}
	return out
}

// Instance returns one instance.
func (r *Registry) Instance(id uint16) (Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	if !ok {
		return Instance{}, fmt.Errorf("%w: %d", ErrInstanceNotFound, id)
	}
	return inst.snapshot(), nil
}

// Len returns the number of instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

func (inst *instance) snapshot() Instance {
	out := Instance{ID: inst.id, Identities: make(map[Identity]string, len(inst.fields))}
	for i, v := range inst.fields {
		if inst.set[i] {
			out.Identities[Identity(i)] = v
		}
	}
	return out
}

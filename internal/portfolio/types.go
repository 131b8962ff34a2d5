package portfolio

import "fmt"

// Identity selects one of the identity resources of a Portfolio instance.
type Identity uint8

// Identity constants. Numeric values match the carrier identity types.
const (
	IdentityID           Identity = 0
	IdentityManufacturer Identity = 1
	IdentityModel        Identity = 2
	IdentitySWVersion    Identity = 3
)

const numIdentities = 4

var identityNames = [numIdentities]string{"id", "manufacturer", "model", "sw_version"}

// AllIdentities returns every identity field.
func AllIdentities() []Identity {
	return []Identity{IdentityID, IdentityManufacturer, IdentityModel, IdentitySWVersion}
}

// Valid reports whether i is a recognised identity field.
func (i Identity) Valid() bool {
	return int(i) < len(identityNames)
}

func (i Identity) String() string {
	if i.Valid() {
		return identityNames[i]
	}
	return fmt.Sprintf("identity(%d)", uint8(i))
}

// MarshalText implements encoding.TextMarshaler.
func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// ParseIdentity converts a name such as "model" to an Identity.
func ParseIdentity(name string) (Identity, error) {
	for i, n := range identityNames {
		if n == name {
			return Identity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidField, name)
}

// PrimaryHostID is the instance reserved for the host application.
const PrimaryHostID uint16 = 0

// Instance is a snapshot of one Portfolio object instance.
// Unset identities are absent from the map.
type Instance struct {
	ID         uint16              `json:"id"`
	Identities map[Identity]string `json:"identities"`
}

// Limits bounds the registry.
type Limits struct {
	// MaxInstances includes the Primary Host instance.
	MaxInstances int

	// MaxIdentityLength bounds every identity value in bytes.
	MaxIdentityLength int
}

// Default limits.
const (
	DefaultMaxInstances      = 4
	DefaultMaxIdentityLength = 128
)

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxInstances:      DefaultMaxInstances,
		MaxIdentityLength: DefaultMaxIdentityLength,
	}
}

package avcore

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DeviceID is the 64-bit opaque device identifier (§3). It is
// ==-comparable and carries no structure the core may assume.
type DeviceID uint64

func (d DeviceID) String() string {
	return fmt.Sprintf("%016x", uint64(d))
}

// ProcessID is unique within a device (§3).
type ProcessID uint32

// InstanceID is the peer identity tuple (device-id, process-id) (§3,
// GLOSSARY "Instance-id").
type InstanceID struct {
	Device  DeviceID
	Process ProcessID
}

func (i InstanceID) String() string {
	return fmt.Sprintf("%s:%d", i.Device, i.Process)
}

// VendorID is issued externally to the vendor that owns a message
// class or payload type (§3).
type VendorID uint64

// MaxNameBytes is the wire limit for a Name: 31 bytes of UTF-8 plus a
// terminating NUL (§3).
const MaxNameBytes = 31

// Name is a case-insensitive, NUL-terminated, <=31-byte UTF-8 string
// identifying a device, channel, or label.
type Name string

// Valid reports whether n fits the wire's size budget. It does not
// reject empty names; callers that require a non-empty name (e.g. a
// subscription's device-name key, §8 boundary behaviour) check that
// separately.
func (n Name) Valid() bool {
	return len([]byte(n)) <= MaxNameBytes
}

// Equal compares names case-insensitively, per §3's identity rule.
func (n Name) Equal(other Name) bool {
	return strings.EqualFold(string(n), string(other))
}

func (n Name) String() string { return string(n) }

// DomainUUID is the 128-bit identifier of an authenticated managed
// group (§3, GLOSSARY "Domain"). Two values are reserved: NoneDomain
// (all-zero) means "no domain selected" and AdHocDomain (all-ones)
// means the uncontrolled ad-hoc grouping.
type DomainUUID uuid.UUID

// NoneDomain is the reserved all-zero sentinel.
var NoneDomain = DomainUUID(uuid.UUID{})

// AdHocDomain is the reserved all-ones sentinel.
var AdHocDomain = DomainUUID(uuid.UUID{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
})

func (d DomainUUID) String() string {
	return uuid.UUID(d).String()
}

// IsNone reports whether d is the reserved "no domain" sentinel.
func (d DomainUUID) IsNone() bool { return d == NoneDomain }

// IsAdHoc reports whether d is the reserved ad-hoc grouping sentinel.
func (d DomainUUID) IsAdHoc() bool { return d == AdHocDomain }

// NewDomainUUID generates a fresh random domain identifier, for
// tests and for a managed controller minting a new domain.
func NewDomainUUID() (DomainUUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return DomainUUID{}, err
	}
	return DomainUUID(id), nil
}

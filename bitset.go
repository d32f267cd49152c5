package avcore

// Fixed-width bit-set wrapper types. spec.md's design notes call these
// out explicitly: "Bitmask flags ... map cleanly to fixed-width bit-set
// types; the spec fixes the indices, so newtyped wrapper types with
// the same layout are recommended." Each type below is a uint32 with
// named bit constants and Has/Set/Clear helpers; none of them ever
// allocate.

// Capability is the device capability bitset negotiated after
// connection (§3, §4.4 "capability bitset is latched at the first
// successful capability query").
type Capability uint32

const (
	CapCanIdentify Capability = 1 << iota
	CapHasWebserver
	CapCanSetSampleRate
	CapCanSetEncoding
	CapCanUpgrade
	CapHasClockSync
	CapHasMetering
	CapHasGPIO
	CapHasAccessControl
	CapHasAES67
	CapHasDomainSupport
)

func (c Capability) Has(bit Capability) bool { return c&bit != 0 }
func (c Capability) Set(bit Capability) Capability { return c | bit }
func (c Capability) Clear(bit Capability) Capability { return c &^ bit }

// StatusFlag is the device session's status bitset (§3: name-conflict,
// unlicensed, lockdown).
type StatusFlag uint32

const (
	StatusNameConflict StatusFlag = 1 << iota
	StatusUnlicensed
	StatusLockdown
)

func (s StatusFlag) Has(bit StatusFlag) bool { return s&bit != 0 }
func (s StatusFlag) Set(bit StatusFlag) StatusFlag { return s | bit }
func (s StatusFlag) Clear(bit StatusFlag) StatusFlag { return s &^ bit }

// Component identifies one of the six independently refreshable
// subsets of a device session's cached state (§3, GLOSSARY
// "Component"). Used both as an enum (single component) and, via
// ComponentSet, as a bitset of several.
type Component uint8

const (
	ComponentTxChannels Component = iota
	ComponentRxChannels
	ComponentTxLabels
	ComponentTxFlows
	ComponentRxFlows
	ComponentProperties

	numComponents = int(ComponentProperties) + 1
)

func (c Component) String() string {
	names := [numComponents]string{
		ComponentTxChannels: "tx-channels",
		ComponentRxChannels: "rx-channels",
		ComponentTxLabels:   "tx-labels",
		ComponentTxFlows:    "tx-flows",
		ComponentRxFlows:    "rx-flows",
		ComponentProperties: "properties",
	}
	if int(c) < 0 || int(c) >= numComponents {
		return "component(?)"
	}
	return names[c]
}

// ComponentSet is a bitset over Component, used for the staleness
// bitmap (§3: "per-component staleness bit (6 components: ...)").
type ComponentSet uint8

func ComponentSetOf(components ...Component) ComponentSet {
	var s ComponentSet
	for _, c := range components {
		s = s.Add(c)
	}
	return s
}

func (s ComponentSet) Has(c Component) bool       { return s&(1<<c) != 0 }
func (s ComponentSet) Add(c Component) ComponentSet    { return s | (1 << c) }
func (s ComponentSet) Remove(c Component) ComponentSet { return s &^ (1 << c) }
func (s ComponentSet) Empty() bool                { return s == 0 }

// ChangeFlag is the per-process-step change notification bitmask
// (§4.4 "Change notification"), mirroring the source's
// DR_DEVICE_CHANGE_FLAG_* constants.
type ChangeFlag uint32

const (
	ChangeName ChangeFlag = 1 << iota
	ChangeState
	ChangeStale
	ChangeStatus
	ChangeAddresses
	ChangeRxFlowErrorCounters
	ChangeTxChannelsFresh
	ChangeRxChannelsFresh
	ChangeTxLabelsFresh
	ChangeTxFlowsFresh
	ChangeRxFlowsFresh
	ChangePropertiesFresh
)

func (c ChangeFlag) Has(bit ChangeFlag) bool { return c&bit != 0 }
func (c ChangeFlag) Set(bit ChangeFlag) ChangeFlag { return c | bit }

// InterfaceMask is a bitmask over network interface indices, used for
// rx-channel connections-available/active (§3) and browse per-service
// presence (§4.6). Bit N corresponds to OS interface index N; the
// highest reserved bit (31) corresponds to the synthetic "localhost"
// interface (§4.6: "Interfaces are identified by OS index (0..N-1)
// plus a synthetic localhost index").
type InterfaceMask uint32

const LocalhostInterfaceBit = 31

func (m InterfaceMask) Has(iface int) bool {
	if iface < 0 || iface > 31 {
		return false
	}
	return m&(1<<uint(iface)) != 0
}

func (m InterfaceMask) Set(iface int) InterfaceMask {
	if iface < 0 || iface > 31 {
		return m
	}
	return m | (1 << uint(iface))
}

func (m InterfaceMask) Clear(iface int) InterfaceMask {
	if iface < 0 || iface > 31 {
		return m
	}
	return m &^ (1 << uint(iface))
}

func (m InterfaceMask) Empty() bool { return m == 0 }

// Union returns the bitwise union of m and other, used by the browse
// tree's merge policy (§4.6: "its per-interface bitmask records the
// union of sightings").
func (m InterfaceMask) Union(other InterfaceMask) InterfaceMask { return m | other }

// Subset reports whether m's set bits are all present in other,
// used to check the §8 invariant connections_active ⊆
// connections_available.
func (m InterfaceMask) Subset(other InterfaceMask) bool { return m&other == m }

package browse

import "github.com/meridianav/avcore"

// ServiceType enumerates the five advertised service kinds the browser
// merges into one device-name tree (spec.md: "discovers peers
// advertising the routing, control-monitoring, safe-mode, upgrade, and
// session-description services").
type ServiceType uint8

const (
	ServiceTypeRouting ServiceType = iota
	ServiceTypeConMon
	ServiceTypeSafeMode
	ServiceTypeUpgrade
	ServiceTypeSessionDescription

	numServiceTypes = int(ServiceTypeSessionDescription) + 1
)

func (t ServiceType) String() string {
	names := [numServiceTypes]string{
		ServiceTypeRouting:           "routing",
		ServiceTypeConMon:            "control-monitoring",
		ServiceTypeSafeMode:          "safe-mode",
		ServiceTypeUpgrade:           "upgrade",
		ServiceTypeSessionDescription: "session-description",
	}
	if int(t) < 0 || int(t) >= numServiceTypes {
		return "service(?)"
	}
	return names[t]
}

// Attributes is the per-interface TXT-record-equivalent payload a
// sighting carries (§4.6: "per-interface attributes: version strings,
// friendly name, instance id, model id, manufacturer id, default
// name, safe/upgrade mode version").
type Attributes struct {
	Version             avcore.Version
	FriendlyName         avcore.Name
	Instance             avcore.InstanceID
	ModelID              uint32
	ManufacturerID       uint32
	DefaultName          avcore.Name
	SafeModeVersion      avcore.Version
	UpgradeModeVersion   avcore.Version
}

// SightingEvent is the kind of change an adapter reports for one
// (name, service-type, interface) tuple (§6: "event: add|modify|remove").
type SightingEvent uint8

const (
	SightingAdd SightingEvent = iota
	SightingModify
	SightingRemove
)

// Sighting is the tuple a discovery adapter hands to Tree.Observe: one
// service type seen (or withdrawn, or updated) for one device name on
// one interface (§6).
type Sighting struct {
	Name        avcore.Name
	Type        ServiceType
	Interface   int
	Attributes  Attributes
	Event       SightingEvent
}

// DeltaKind is the consumer-facing change a Tree reports for a device
// node, distinct from the raw per-service SightingEvent that produced
// it (§4.6: "emits Added/Modified/Removed per node, never more than
// one per Observe call, and never out of order for a given node").
type DeltaKind uint8

const (
	DeltaAdded DeltaKind = iota
	DeltaModified
	DeltaRemoved
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaAdded:
		return "added"
	case DeltaModified:
		return "modified"
	case DeltaRemoved:
		return "removed"
	default:
		return "delta(?)"
	}
}

// Delta is what Tree.Observe reports to its caller, at most one per
// call.
type Delta struct {
	Name avcore.Name
	Kind DeltaKind
}

// nodeState is the tree's per-device bookkeeping: for each service
// type, the union bitmask of interfaces currently advertising it, plus
// the most recently seen attributes per interface for that service
// type. A node exists in the tree only while at least one service
// type has a nonempty mask.
type nodeState struct {
	masks [numServiceTypes]avcore.InterfaceMask
	attrs [numServiceTypes]map[int]Attributes
}

func newNodeState() *nodeState {
	n := &nodeState{}
	for t := range n.attrs {
		n.attrs[t] = make(map[int]Attributes)
	}
	return n
}

func (n *nodeState) empty() bool {
	for _, m := range n.masks {
		if !m.Empty() {
			return false
		}
	}
	return true
}

// NodeView is an immutable snapshot of one device's merged presence,
// returned by Tree.Node. It is a copy, not a live pointer, so holding
// one across a Process call can never observe a half-applied mutation
// (§4.6: "indexes into the tree MUST NOT be held across process calls").
type NodeView struct {
	Name  avcore.Name
	Masks [numServiceTypes]avcore.InterfaceMask
	Attrs [numServiceTypes]map[int]Attributes
}

func (n *nodeState) snapshot(name avcore.Name) NodeView {
	v := NodeView{Name: name, Masks: n.masks}
	for t := range n.attrs {
		m := make(map[int]Attributes, len(n.attrs[t]))
		for iface, a := range n.attrs[t] {
			m[iface] = a
		}
		v.Attrs[t] = m
	}
	return v
}

// Has reports whether the node advertises service type t on interface
// iface.
func (v NodeView) Has(t ServiceType, iface int) bool {
	if int(t) < 0 || int(t) >= numServiceTypes {
		return false
	}
	return v.Masks[t].Has(iface)
}

// Attributes returns the last-seen attributes for service type t on
// interface iface, if present.
func (v NodeView) Attributes(t ServiceType, iface int) (Attributes, bool) {
	if int(t) < 0 || int(t) >= numServiceTypes {
		return Attributes{}, false
	}
	a, ok := v.Attrs[t][iface]
	return a, ok
}

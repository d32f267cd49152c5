package browse

import (
	"github.com/meridianav/avcore"
	"github.com/meridianav/avcore/internal/avlog"
)

var log = avlog.New("browse")

// DiscoveryAdapter is the host-provided mDNS (or other multicast
// discovery transport) binding a Tree asks to re-probe or re-announce
// on demand. Both operations are ad-hoc-domain-only (§4.6: "reconfirm
// and rediscover are only meaningful outside a managed domain, where
// there is no controller to push authoritative state") — Tree rejects
// them with NotSupported when adHoc is false.
type DiscoveryAdapter interface {
	// Reconfirm asks the adapter to re-probe one device by name,
	// typically because a consumer suspects its cached attributes are
	// stale.
	Reconfirm(name avcore.Name)
	// Rediscover asks the adapter to restart discovery for the given
	// service types from scratch, typically after a network change.
	Rediscover(types []ServiceType)
}

// Options configures a Tree. Grounded on the same Default*() option
// shape as domain.Options / routing.Options.
type Options struct {
	// AdHoc enables Reconfirm/Rediscover. Leave false for a tree
	// driven purely by domain-pushed state.
	AdHoc bool
}

func DefaultOptions() Options { return Options{} }

// Tree is the mixed-cast service browser of §4.6: an aggregation of
// per-interface sightings across the five service types into one
// node per device name, with Added/Modified/Removed deltas and a
// debounced coarse "network changed" event.
//
// Like every client in this module, Tree is single-threaded and not
// safe for concurrent use; it is driven from runtimeglue.Process.
type Tree struct {
	nodes          map[avcore.Name]*nodeState
	networkChanged bool
	adapter        DiscoveryAdapter
	adHoc          bool
}

// New creates an empty Tree. adapter may be nil if the host never
// calls Reconfirm/Rediscover.
func New(adapter DiscoveryAdapter, opts Options) *Tree {
	return &Tree{
		nodes:   make(map[avcore.Name]*nodeState),
		adapter: adapter,
		adHoc:   opts.AdHoc,
	}
}

// Observe applies one sighting tuple from the discovery adapter and
// returns the resulting node-level delta, if any (§4.6: "never more
// than one [delta] per Observe call"). It also marks the coarse
// network-changed flag, consumed separately via NetworkChanged.
func (tr *Tree) Observe(s Sighting) (Delta, bool) {
	tr.networkChanged = true

	n, existed := tr.nodes[s.Name]
	if !existed {
		if s.Event == SightingRemove {
			// Withdrawing something that was never added: ignore.
			log.Debugf("browse: remove of unknown node %s ignored", s.Name)
			return Delta{}, false
		}
		n = newNodeState()
		tr.nodes[s.Name] = n
	}

	wasEmpty := n.empty()

	switch s.Event {
	case SightingAdd, SightingModify:
		n.masks[s.Type] = n.masks[s.Type].Set(s.Interface)
		n.attrs[s.Type][s.Interface] = s.Attributes
	case SightingRemove:
		n.masks[s.Type] = n.masks[s.Type].Clear(s.Interface)
		delete(n.attrs[s.Type], s.Interface)
	}

	isEmpty := n.empty()

	switch {
	case wasEmpty && !isEmpty:
		return Delta{Name: s.Name, Kind: DeltaAdded}, true
	case !wasEmpty && isEmpty:
		delete(tr.nodes, s.Name)
		return Delta{Name: s.Name, Kind: DeltaRemoved}, true
	case !wasEmpty && !isEmpty:
		return Delta{Name: s.Name, Kind: DeltaModified}, true
	default:
		// wasEmpty && isEmpty: a Remove on an already-absent service
		// type for an otherwise-empty node. No observable change.
		delete(tr.nodes, s.Name)
		return Delta{}, false
	}
}

// NetworkChanged reports and clears the debounced coarse
// network-changed flag (§4.6: "consumers that don't need per-node
// detail MAY instead watch a single debounced 'network changed'
// event, raised at most once per process step"). Mirrors the
// consuming-getter shape of routing.Session.Changed.
func (tr *Tree) NetworkChanged() bool {
	c := tr.networkChanged
	tr.networkChanged = false
	return c
}

// Node returns an immutable snapshot of one device's merged presence.
// The returned NodeView must not be held across a later Process call
// (§4.6); it is a copy, so in practice holding it is merely stale, not
// unsafe, but callers should still re-fetch each step.
func (tr *Tree) Node(name avcore.Name) (NodeView, bool) {
	n, ok := tr.nodes[name]
	if !ok {
		return NodeView{}, false
	}
	return n.snapshot(name), true
}

// Len reports how many device names currently have at least one live
// service sighting.
func (tr *Tree) Len() int { return len(tr.nodes) }

// Reconfirm asks the discovery adapter to re-probe one device. Only
// valid in the ad-hoc domain (§4.6).
func (tr *Tree) Reconfirm(name avcore.Name) *avcore.Error {
	if !tr.adHoc {
		return avcore.New(avcore.NotSupported)
	}
	if tr.adapter == nil {
		return avcore.New(avcore.NotSupported)
	}
	tr.adapter.Reconfirm(name)
	return nil
}

// Rediscover asks the discovery adapter to restart discovery for the
// given service types. Only valid in the ad-hoc domain (§4.6).
func (tr *Tree) Rediscover(types []ServiceType) *avcore.Error {
	if !tr.adHoc {
		return avcore.New(avcore.NotSupported)
	}
	if tr.adapter == nil {
		return avcore.New(avcore.NotSupported)
	}
	tr.adapter.Rediscover(types)
	return nil
}

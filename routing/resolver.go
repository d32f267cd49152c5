package routing

import "github.com/meridianav/avcore"

// DomainRoutingID names a peer by its assigned id within the current
// domain overlay (§4.4 resolver strategies; see domain.Overlay for how
// a routing id is assigned once a domain is selected).
type DomainRoutingID uint64

// Strategy is how a Session locates the device it represents. The
// design note's four strategies map onto the teacher's two concrete
// construction paths (a fresh local daemon vs. one restored from
// persisted pairing state) generalized to four origins instead of two.
type Strategy interface {
	isStrategy()
}

// LocalStrategy addresses a device hosted by the same process/host as
// the client (§4.4: rename alters the name in place for local sessions).
type LocalStrategy struct{}

func (LocalStrategy) isStrategy() {}

// RemoteStrategy addresses a device by its advertised name, to be
// resolved over the interfaces in Interfaces (all interfaces if zero).
type RemoteStrategy struct {
	Name       avcore.Name
	Interfaces avcore.InterfaceMask
}

func (RemoteStrategy) isStrategy() {}

// FixedAddressStrategy bypasses discovery and connects directly to one
// of a known set of addresses, trying each in order.
type FixedAddressStrategy struct {
	Addresses []avcore.Address
}

func (FixedAddressStrategy) isStrategy() {}

// DomainRoutingIDStrategy addresses a device by the routing id the
// current domain overlay assigned it (§4.7: domain selection "gates
// every browse/routing operation").
type DomainRoutingIDStrategy struct {
	RoutingID DomainRoutingID
}

func (DomainRoutingIDStrategy) isStrategy() {}

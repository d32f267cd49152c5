package routing

import "github.com/meridianav/avcore"

// TxFlow is a device's transmit flow (§3): a fixed set of slots, each
// carrying at most one tx-channel id (0 meaning empty), fanned out to
// a destination address per interface.
type TxFlow struct {
	ID           uint16
	Name         avcore.Name // optional
	Latency      avcore.Latency
	Fpp          avcore.Fpp
	Slots        []uint16 // per-slot tx-channel id, 0 = empty
	Destinations map[int]avcore.Address // per-interface destination
	Manual       bool
	Advertised   bool
	Persistent   bool
	DestDevice   avcore.Name // set for dynamically paired flows
	DestFlowName avcore.Name
}

// RxFlow is a device's receive flow (§3): each slot fans out to zero
// or more rx-channel ids, unlike a tx-flow's single-channel slots.
type RxFlow struct {
	ID          uint16
	Name        avcore.Name
	Format      avcore.Format
	Multicast   bool
	Slots       [][]uint16 // per-slot set of rx-channel ids
	Sources     map[int]avcore.Address // per-interface source address
	Latency     avcore.Latency
	TxDevice    avcore.Name // set when configured from a template
	TxFlowName  avcore.Name
	Active      avcore.InterfaceMask
	Manual      bool
	Persistent  bool
}

// slotHasDuplicateRxChannelID reports whether any single slot in f
// lists the same rx-channel id more than once (Open Question decision
// #2: new implementations SHOULD reject a duplicate rx-channel id
// within one multicast rx-flow slot).
func (f *RxFlow) slotHasDuplicateRxChannelID() bool {
	for _, slot := range f.Slots {
		seen := make(map[uint16]bool, len(slot))
		for _, id := range slot {
			if seen[id] {
				return true
			}
			seen[id] = true
		}
	}
	return false
}

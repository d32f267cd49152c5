// Package browse implements the mixed-cast service browser of
// spec.md §4.6: a tree mapping device name to a per-interface,
// per-service-type presence record, fed by an opaque discovery
// provider and exposing `Added`/`Modified`/`Removed` deltas plus a
// debounced coarse "network changed" event.
//
// No teacher file covers service discovery directly (kryptco-kr's
// pairing is point-to-point, not a multicast browse). Grounded
// instead on the beacon repos' discovery idiom:
// onoffswitchrespiratorycenter178-beacon's internal/state/machine.go
// for the state-transition-as-explicit-struct style (this package has
// no goroutines or mutex, per spec.md §5's single-threaded model, so
// it borrows the shape of machine.Machine's state tracking without
// its concurrency), and its querier package plus burgrp-surp-go's
// discovery-tuple shape for the `{name, interface, attributes, event}`
// sighting record spec.md §6 asks an adapter to deliver. The tree
// itself (per-device, per-service-type, per-interface bitmask merge)
// is original to spec.md §4.6.
package browse

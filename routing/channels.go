package routing

import "github.com/meridianav/avcore"

// TxChannel is a device's transmit channel (§3). Its canonical Name is
// immutable once created; labels attach to it but never replace it.
type TxChannel struct {
	ID          uint16
	Name        avcore.Name // canonical, immutable
	Format      avcore.Format
	Enabled     bool
	Muted       bool
	RefLevel    int32 // signal reference level, device units
	Stale       bool
	LabelIDs    []uint16
}

// RxChannel is a device's receive channel (§3), carrying its own
// subscription and the receive-status last reported for it.
type RxChannel struct {
	ID             uint16
	Name           avcore.Name // mutable
	Format         avcore.Format
	SubChannel     avcore.Name // the "channel" half of "channel@device"
	SubDevice      avcore.Name // the "device" half
	Status         ReceiveStatus
	SubLatency     avcore.Latency
	Available      avcore.InterfaceMask
	Active         avcore.InterfaceMask
	Muted          bool
	Stale          bool
}

// ReceiveStatus mirrors conmon.ReceiveStatus without importing conmon
// (routing and conmon are siblings; a device session's rx-channels
// carry the same receive-status machine the control-monitoring
// subscription table does, but a Session doesn't depend on conmon to
// avoid a cross-subsystem import cycle; the numeric values are shared
// so code holding both can carry a subscribe ack's status over to the
// owning rx-channel, per §3's "Rx channel ... subscription ... receive
// status (see §4.2)").
type ReceiveStatus = uint8

// Label is a textual name attached to a tx-channel, device-global and
// not allowed to collide with any canonical tx-channel name (§3
// invariant).
type Label struct {
	ID          uint16
	TxChannelID uint16
	Name        avcore.Name
}

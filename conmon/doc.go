// Package conmon implements the control-monitoring client of spec.md
// §4.3: a per-client subscription table keyed by (channel-type,
// channel@device) tracking the receive-status state machine, plus the
// request dispatch that drives it.
//
// Grounded on the teacher's EnclaveClient (kryptco-kr/krd/enclave_client.go):
// subscribing is "accepted locally as pending, confirmed only once the
// far end acknowledges" in exactly the way EnclaveClient.Pair doesn't
// consider itself paired until the phone's ack unwraps the key, and
// concurrent callers waiting on the same in-flight exchange are served
// from the first caller's result (EnclaveClient.tryRequest fans a
// single exchange's callback out over a buffered channel; here multiple
// Subscribe callers on the same key are coalesced onto one reqtable
// request instead). Unlike the teacher, conmon has no goroutines or
// mutex: it is driven synchronously from runtimeglue.Process per §5.
package conmon

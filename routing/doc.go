// Package routing implements the device-session client of spec.md
// §3/§4.4/§4.5: per-device tx/rx channel, label, and flow caches behind
// a staleness bitmap, the session state machine, and the two-phase
// flow-configuration builder.
//
// Grounded on the teacher's EnclaveClient (kryptco-kr/krd/enclave_client.go):
// one long-lived object bundling a transport, a request table, and a
// cached remote profile, constructed two different ways depending on
// whether the caller already has a saved identity
// (UnpairedEnclaveClient vs. a persister-restored client) — generalized
// here into the resolver-strategy enum that picks how a Session finds
// its peer (Local, Remote, FixedAddress, DomainRoutingID).
package routing

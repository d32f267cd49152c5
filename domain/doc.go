// Package domain implements the domain overlay of spec.md §4.7: an
// 8-state authentication/domain-selection state machine that
// multiplexes routing and browse clients onto either an ad-hoc LAN or
// a credentialed managed controller.
//
// Grounded on kryptco-kr/krd/enclave_client.go's pairing lifecycle
// (EnclaveClient.Pair generating a pairing, waiting for an
// activatePairing ack, and Unpair tearing it down again) generalized
// from a two-state "paired/not paired" toggle into the full 8-state
// machine spec.md's transition table names. Credential-based connect
// carries opaque credentials; the core performs no cryptography of its
// own (see DESIGN.md's dropped-dependency note on libsodium/cryptobox).
package domain

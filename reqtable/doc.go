// Package reqtable implements the fixed-capacity pending-request pool
// of spec.md §4.2: a pool of request records keyed by opaque ids, each
// carrying a completion callback, user context, submission timestamp,
// optional deadline, and request kind.
//
// Grounded on the teacher's requestCallbacksByRequestID, an
// *lru.Cache mapping a request id string to its completion callback
// (kryptco-kr/krd/enclave_client.go). reqtable.Table generalizes that
// one map into the full pool described in §4.2: fixed capacity at
// creation, submit/complete/cancel/tick, and the ordering/idempotency
// guarantees of §4.2 and §5.
package reqtable

// Package wire implements the frame codec of spec.md §4.1/§6: a fixed
// header followed by a typed body, encoded little-endian (network
// byte order only for IPv4 address fields, which the codec isolates
// so callers always see host-order values).
//
// The codec is a set of pure functions over caller-owned byte buffers
// tracked by a Writer/Reader pair (the "{current_size, max_size}"
// abstraction spec.md's design notes call for). Writers never allocate;
// readers allocate the slices and maps that hold variable-length
// decoded fields (encodings, label ids, slots, addresses).
//
// Byte-layout note: spec.md §4.1 describes the header informally as
// "24-byte" and §8 scenario 1 computes a 32-byte ping frame from that,
// but §6's bit-exact field list (version:16, sequence:16,
// body-length:16, class:16, vendor-id:64, source-device-id:64,
// source-process-id:32) sums to 28 bytes. This package implements the
// bit-exact §6 layout (HeaderSize = 28) and treats the "24-byte"/
// "32-byte total" prose as an unreconciled approximation elsewhere in
// the source document; the worked ping example in this package's
// tests uses the corrected 36-byte total.
package wire

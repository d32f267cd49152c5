package wire

import (
	"encoding/binary"

	"github.com/meridianav/avcore"
)

// Writer is the caller-owned-buffer, explicit-position abstraction
// spec.md's design notes ask for in place of the source's in-place
// {current_size, max_size} struct: "the size-info {current, max} pair
// used for message building should become a BufWriter-like
// abstraction with an explicit position." Every Put* method advances
// position and fails closed (returns false, buffer unchanged) if the
// write would exceed the backing slice — grounded on the explicit
// length-prefixed encoding style in burgrp-surp-go's message builder
// (other_examples pack), adapted here to spec.md's little-endian
// fixed-width fields instead of that protocol's variable-length ones.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter wraps buf for writing. buf's full length is the max size;
// Len reports the current size (bytes written so far).
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Len is the number of bytes written so far ("current_size").
func (w *Writer) Len() int { return w.pos }

// Cap is the backing buffer's total capacity ("max_size").
func (w *Writer) Cap() int { return len(w.buf) }

// Bytes returns the written prefix of the backing buffer.
func (w *Writer) Bytes() []byte { return w.buf[:w.pos] }

func (w *Writer) fits(n int) bool { return w.pos+n <= len(w.buf) }

// PutUint16 appends a little-endian uint16. Returns false and leaves
// the writer unchanged if there is no room.
func (w *Writer) PutUint16(v uint16) bool {
	if !w.fits(2) {
		return false
	}
	binary.LittleEndian.PutUint16(w.buf[w.pos:], v)
	w.pos += 2
	return true
}

// PutUint32 appends a little-endian uint32.
func (w *Writer) PutUint32(v uint32) bool {
	if !w.fits(4) {
		return false
	}
	binary.LittleEndian.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
	return true
}

// PutUint64 appends a little-endian uint64.
func (w *Writer) PutUint64(v uint64) bool {
	if !w.fits(8) {
		return false
	}
	binary.LittleEndian.PutUint64(w.buf[w.pos:], v)
	w.pos += 8
	return true
}

// PutUint8 appends a single byte.
func (w *Writer) PutUint8(v uint8) bool {
	if !w.fits(1) {
		return false
	}
	w.buf[w.pos] = v
	w.pos++
	return true
}

// PutBytes appends raw bytes verbatim (used for opaque vendor payload
// tails and IPv4 addresses, which stay network-byte-order internally
// since they're copied as-is — see PutAddressBE below for the field
// form).
func (w *Writer) PutBytes(b []byte) bool {
	if !w.fits(len(b)) {
		return false
	}
	copy(w.buf[w.pos:], b)
	w.pos += len(b)
	return true
}

// PutName appends a Name as up to avcore.MaxNameBytes bytes followed
// by a NUL terminator (§3).
func (w *Writer) PutName(n avcore.Name) bool {
	b := []byte(n)
	if len(b) > avcore.MaxNameBytes {
		return false
	}
	if !w.fits(len(b) + 1) {
		return false
	}
	copy(w.buf[w.pos:], b)
	w.pos += len(b)
	w.buf[w.pos] = 0
	w.pos++
	return true
}

// PutFormat appends a Format (§3: "format (sample-rate, encoding
// set)") as a uint32 sample rate followed by a uint8 count and that
// many uint16 encodings.
func (w *Writer) PutFormat(f avcore.Format) bool {
	if !w.fits(4 + 1 + 2*len(f.Encodings)) {
		return false
	}
	ok := w.PutUint32(uint32(f.SampleRate))
	ok = ok && w.PutUint8(uint8(len(f.Encodings)))
	for _, e := range f.Encodings {
		ok = ok && w.PutUint16(uint16(e))
	}
	return ok
}

// PutAddressBE appends a 4-byte IPv4 address in network byte order
// followed by a little-endian uint16 port, matching §4.1's note that
// "IPv4 address fields" alone are network-byte-order while everything
// else on this subsystem's wire is little-endian.
func (w *Writer) PutAddressBE(ip4 [4]byte, port uint16) bool {
	if !w.fits(6) {
		return false
	}
	copy(w.buf[w.pos:w.pos+4], ip4[:])
	w.pos += 4
	return w.PutUint16(port)
}

// Reader is a borrowed, explicit-length view for decoding — spec.md's
// design notes: "Do not re-implement in-place mutation on caller-owned
// arrays for the reader side — use a borrowed view with explicit
// length." Every Get* bounds-checks against the view's length, never
// the backing array's capacity.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps the current_size-bounded slice of a decoded body.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len is the number of bytes remaining unread.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Pos is the current read offset, for payloads whose layout depends
// on an explicit offset table inside the body (§4.1).
func (r *Reader) Pos() int { return r.pos }

// Seek repositions the reader to an absolute offset, bounds-checked.
func (r *Reader) Seek(pos int) bool {
	if pos < 0 || pos > len(r.buf) {
		return false
	}
	r.pos = pos
	return true
}

func (r *Reader) fits(n int) bool { return r.pos+n <= len(r.buf) }

func (r *Reader) GetUint8() (uint8, bool) {
	if !r.fits(1) {
		return 0, false
	}
	v := r.buf[r.pos]
	r.pos++
	return v, true
}

func (r *Reader) GetUint16() (uint16, bool) {
	if !r.fits(2) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, true
}

func (r *Reader) GetUint32() (uint32, bool) {
	if !r.fits(4) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, true
}

func (r *Reader) GetUint64() (uint64, bool) {
	if !r.fits(8) {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, true
}

func (r *Reader) GetBytes(n int) ([]byte, bool) {
	if n < 0 || !r.fits(n) {
		return nil, false
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, true
}

// GetName reads up to avcore.MaxNameBytes bytes terminated by NUL.
func (r *Reader) GetName() (avcore.Name, bool) {
	start := r.pos
	for i := 0; i <= avcore.MaxNameBytes; i++ {
		if !r.fits(1) {
			return "", false
		}
		if r.buf[r.pos] == 0 {
			name := avcore.Name(r.buf[start:r.pos])
			r.pos++
			return name, true
		}
		r.pos++
	}
	return "", false
}

// GetFormat reads a Format written by PutFormat.
func (r *Reader) GetFormat() (avcore.Format, bool) {
	sr, ok := r.GetUint32()
	if !ok {
		return avcore.Format{}, false
	}
	n, ok := r.GetUint8()
	if !ok {
		return avcore.Format{}, false
	}
	encodings := make([]avcore.Encoding, 0, n)
	for i := 0; i < int(n); i++ {
		v, ok := r.GetUint16()
		if !ok {
			return avcore.Format{}, false
		}
		encodings = append(encodings, avcore.Encoding(v))
	}
	return avcore.Format{SampleRate: avcore.SampleRate(sr), Encodings: encodings}, true
}

// GetAddressBE reads a 4-byte network-byte-order IPv4 address followed
// by a little-endian uint16 port.
func (r *Reader) GetAddressBE() (ip4 [4]byte, port uint16, ok bool) {
	b, ok := r.GetBytes(4)
	if !ok {
		return
	}
	copy(ip4[:], b)
	port, ok = r.GetUint16()
	return
}

// Remaining returns the unread tail of the view, for opaque
// vendor-payload bodies the core never interprets (§1).
func (r *Reader) Remaining() []byte {
	return r.buf[r.pos:]
}

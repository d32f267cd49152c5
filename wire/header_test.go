package wire

import (
	"testing"

	"github.com/meridianav/avcore"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Version:         avcore.Version{Major: 1, Minor: 2},
		Sequence:        7,
		BodyLength:      VendorHeaderSize,
		Class:           ClassVendorSpecific,
		VendorID:        avcore.VendorID(0x4155444e41544531), // "AUDNATE1"-ish placeholder
		SourceDeviceID:  avcore.DeviceID(0x0102030405060708),
		SourceProcessID: avcore.ProcessID(42),
	}

	buf := make([]byte, HeaderSize)
	w := NewWriter(buf)
	require.True(t, PutHeader(w, h))
	require.Equal(t, HeaderSize, w.Len())

	r := NewReader(w.Bytes())
	got, ok := ParseHeader(r)
	require.True(t, ok)
	require.Equal(t, h, got)
}

// TestEncodePing exercises §8 scenario 1: encode a ping with
// class=0xFFFF, vendor=AUDINATE, body={version=0x0708, type=0x0131,
// delay=0}. This package implements HeaderSize=28 (see doc.go), so
// the total frame size is 28+8=36, not the spec prose's 32.
func TestEncodePing(t *testing.T) {
	const vendorAudinate = avcore.VendorID(0x0000000000000001)

	h := NewHeader(ClassVendorSpecific, vendorAudinate, avcore.Version{Major: 0, Minor: 0})
	h.Sequence = 1
	h.SourceDeviceID = avcore.DeviceID(0xdeadbeefcafebabe)
	h.SourceProcessID = avcore.ProcessID(1)

	ping := Ping{Header: VendorHeader{
		FormatVersion:   avcore.Version{Major: 0x07, Minor: 0x08},
		CongestionDelay: 0,
	}}

	bodyBuf := make([]byte, VendorHeaderSize)
	bw := NewWriter(bodyBuf)
	require.True(t, InitPing(bw, ping))
	require.Equal(t, VendorHeaderSize, bw.Len())

	h.BodyLength = uint16(bw.Len())

	frame := make([]byte, HeaderSize+bw.Len())
	fw := NewWriter(frame)
	require.True(t, PutHeader(fw, h))
	require.True(t, fw.PutBytes(bw.Bytes()))
	require.Equal(t, HeaderSize+VendorHeaderSize, fw.Len())
	require.Equal(t, 36, fw.Len())

	fr := NewReader(fw.Bytes())
	gotHeader, ok := ParseHeader(fr)
	require.True(t, ok)
	require.Equal(t, uint16(VendorHeaderSize), gotHeader.BodyLength)
	require.Equal(t, ClassVendorSpecific, gotHeader.Class)

	body, ok := fr.GetBytes(int(gotHeader.BodyLength))
	require.True(t, ok)
	br := NewReader(body)
	gotPing, ok := GetPing(br)
	require.True(t, ok)
	require.Equal(t, ping.Header.FormatVersion, gotPing.Header.FormatVersion)
	require.Equal(t, VendorTypePing, gotPing.Header.Type)
}

func TestTruncatedBodyIsDetected(t *testing.T) {
	buf := make([]byte, 3)
	r := NewReader(buf)
	_, ok := GetVendorHeader(r)
	require.False(t, ok, "an 8-byte vendor header cannot be read from a 3-byte body")
}

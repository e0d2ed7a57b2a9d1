package sbx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	var uid [FileUIDSize]byte
	copy(uid[:], []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF})
	payload := []byte("hello\n")
	dst := make([]byte, HeaderSize)
	encodeHeader(Header{Version: V1, FileUID: uid, SeqNum: 1}, padTo(payload, V1.DataSize()), dst)

	got, err := decodeHeader(dst, padTo(payload, V1.DataSize()))
	require.NoError(t, err)
	require.Equal(t, V1, got.Version)
	require.Equal(t, uid, got.FileUID)
	require.Equal(t, uint32(1), got.SeqNum)
}

func TestHeaderCRCSeedDiffersByVersionFamily(t *testing.T) {
	var uid [FileUIDSize]byte
	payload := make([]byte, V1.DataSize())
	plain := headerCRC(V1, uid, 1, payload)
	rs := headerCRC(V17, uid, 1, padTo(nil, V17.DataSize()))
	require.NotEqual(t, plain, rs)
}

func TestDecodeHeaderRejectsCorruptCRC(t *testing.T) {
	var uid [FileUIDSize]byte
	payload := padTo([]byte("x"), V1.DataSize())
	dst := make([]byte, HeaderSize)
	encodeHeader(Header{Version: V1, FileUID: uid, SeqNum: 1}, payload, dst)
	dst[5] ^= 0xFF

	_, err := decodeHeader(dst, payload)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindFormat, kind)
}

func TestDecodeHeaderRejectsBadSignature(t *testing.T) {
	var uid [FileUIDSize]byte
	payload := padTo(nil, V1.DataSize())
	dst := make([]byte, HeaderSize)
	encodeHeader(Header{Version: V1, FileUID: uid, SeqNum: 1}, payload, dst)
	dst[0] = 'X'

	_, err := decodeHeader(dst, payload)
	require.Error(t, err)
}

func padTo(b []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, b)
	for i := len(b); i < n; i++ {
		out[i] = PaddingByte
	}
	return out
}

package sbx

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackMetadataRoundTrip(t *testing.T) {
	entries := []MetadataEntry{
		NewStringEntry(IDFileName, "report.pdf"),
		NewFileSizeEntry(123456),
		NewTimeEntry(IDFileModTime, 1700000000),
		NewHashEntry(HashSHA256, make([]byte, 32)),
		NewByteEntry(IDRSData, 10),
		NewByteEntry(IDRSParity, 2),
	}
	dst := make([]byte, 512-HeaderSize)
	require.NoError(t, PackMetadata(entries, dst))

	got, err := UnpackMetadata(dst)
	require.NoError(t, err)
	if diff := deep.Equal(entries, got); diff != nil {
		t.Fatalf("unpacked entries differ: %v", diff)
	}
}

func TestPackMetadataOverflow(t *testing.T) {
	entries := []MetadataEntry{
		NewStringEntry(IDFileName, "a-name-long-enough-to-overflow-a-tiny-buffer"),
	}
	dst := make([]byte, 4)
	err := PackMetadata(entries, dst)
	require.Error(t, err)

	var tm *TooMuchMetadataError
	require.ErrorAs(t, err, &tm)
	require.Len(t, tm.Entries, 1)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindTooMuchMetadata, kind)
}

func TestUnpackMetadataStopsAtPadding(t *testing.T) {
	dst := make([]byte, 112)
	for i := range dst {
		dst[i] = PaddingByte
	}
	entries, err := UnpackMetadata(dst)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestHashTypeString(t *testing.T) {
	require.Equal(t, "sha1", HashSHA1.String())
	require.Equal(t, "sha256", HashSHA256.String())
	require.Equal(t, "sha512", HashSHA512.String())
	require.Equal(t, "blake2b-512", HashBLAKE2b512.String())
	require.Contains(t, HashType(0x99).String(), "unknown")
}

func TestNewHasherEveryType(t *testing.T) {
	for _, ht := range []HashType{HashSHA1, HashSHA256, HashSHA512, HashBLAKE2b512} {
		h, err := NewHasher(ht)
		require.NoError(t, err)
		require.NotNil(t, h)
	}
	_, err := NewHasher(HashType(0x00))
	require.Error(t, err)
}

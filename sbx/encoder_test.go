package sbx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEncodeS1 reproduces spec.md §8 scenario S1 exactly: version 1, input
// "hello\n", no metadata. One 512-byte data block: header, 6 payload
// bytes, 506 bytes of padding.
func TestEncodeS1(t *testing.T) {
	var uid [FileUIDSize]byte
	copy(uid[:], []byte{9, 9, 9, 9, 9, 9})
	opts := EncodeOptions{
		Version:     V1,
		FileUID:     uid,
		HasUID:      true,
		MetaEnabled: false,
		HashType:    HashSHA256,
	}
	enc, err := NewEncoder(opts)
	require.NoError(t, err)

	out := newMemFile(0)
	_, err = enc.Encode(bytes.NewReader([]byte("hello\n")), out)
	require.NoError(t, err)
	require.Equal(t, int64(512), out.Size())

	blk, err := DecodeBlock(V1, out.buf)
	require.NoError(t, err)
	require.Equal(t, uint32(1), blk.Header.SeqNum)
	require.Equal(t, []byte("hello\n"), blk.Payload[:6])
	for i := 6; i < len(blk.Payload); i++ {
		require.Equal(t, byte(PaddingByte), blk.Payload[i])
	}
}

func TestEncodeDecodeRoundTripPlain(t *testing.T) {
	input := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 40)
	opts := EncodeOptions{
		Version:     V1,
		MetaEnabled: true,
		HashType:    HashSHA256,
		FileName:    "fox.txt",
		FileSize:    int64(len(input)),
		HasFileSize: true,
	}
	enc, err := NewEncoder(opts)
	require.NoError(t, err)

	container := newMemFile(0)
	result, err := enc.Encode(bytes.NewReader(input), container)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hash)

	dec := NewDecoder(DecodeOptions{})
	var out bytes.Buffer
	decResult, err := dec.Decode(container, &out)
	require.NoError(t, err)
	require.Equal(t, input, out.Bytes())
	require.True(t, decResult.HashVerified)
	require.False(t, decResult.HashMismatch)
}

func TestEncodeDecodeRoundTripRS(t *testing.T) {
	input := bytes.Repeat([]byte{0xAB}, 3000)
	shardCfg := &ShardConfig{Data: 3, Parity: 2, Burst: 4}
	opts := EncodeOptions{
		Version:     V17,
		MetaEnabled: true,
		ShardCfg:    shardCfg,
		HashType:    HashSHA1,
		FileSize:    int64(len(input)),
		HasFileSize: true,
	}
	enc, err := NewEncoder(opts)
	require.NoError(t, err)

	container := newMemFile(0)
	_, err = enc.Encode(bytes.NewReader(input), container)
	require.NoError(t, err)

	dec := NewDecoder(DecodeOptions{})
	var out bytes.Buffer
	decResult, err := dec.Decode(container, &out)
	require.NoError(t, err)
	require.Equal(t, input, out.Bytes())
	require.True(t, decResult.HashVerified)
	require.False(t, decResult.HashMismatch)
}

func TestNewEncoderRejectsRSWithoutShardCfg(t *testing.T) {
	_, err := NewEncoder(EncodeOptions{Version: V17, MetaEnabled: true})
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindUsage, kind)
}

func TestNewEncoderGeneratesRandomUIDWhenUnset(t *testing.T) {
	enc, err := NewEncoder(EncodeOptions{Version: V1, MetaEnabled: false, HashType: HashSHA1})
	require.NoError(t, err)
	var zero [FileUIDSize]byte
	require.NotEqual(t, zero, enc.opts.FileUID)
}

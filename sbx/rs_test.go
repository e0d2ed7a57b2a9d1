package sbx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRSCodecEncodeReconstruct(t *testing.T) {
	codec, err := NewRSCodec(3, 2)
	require.NoError(t, err)

	shards := make([][]byte, 5)
	for i := 0; i < 3; i++ {
		shards[i] = bytes.Repeat([]byte{byte(i + 1)}, 16)
	}
	shards[3] = make([]byte, 16)
	shards[4] = make([]byte, 16)
	require.NoError(t, codec.Encode(shards))

	original := make([][]byte, 5)
	for i, s := range shards {
		original[i] = append([]byte(nil), s...)
	}

	present := []bool{true, false, true, false, true}
	require.NoError(t, codec.Reconstruct(shards, present))
	for i := range shards {
		require.Equal(t, original[i], shards[i], "shard %d", i)
	}
}

func TestRSCodecReconstructFailsUnderdetermined(t *testing.T) {
	codec, err := NewRSCodec(3, 2)
	require.NoError(t, err)
	shards := make([][]byte, 5)
	for i := range shards {
		shards[i] = make([]byte, 16)
	}
	present := []bool{true, true, false, false, false}
	err = codec.Reconstruct(shards, present)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindRS, kind)
}

func TestNewRSCodecRejectsTooManyShards(t *testing.T) {
	_, err := NewRSCodec(200, 100)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindInvariant, kind)
}

func TestNewRSCodecRejectsZeroShards(t *testing.T) {
	_, err := NewRSCodec(0, 2)
	require.Error(t, err)
	_, err = NewRSCodec(2, 0)
	require.Error(t, err)
}

package sbx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestInspectorFallsBackToDuplicateMetadata reproduces spec.md §8 scenario
// S6: the primary metadata block is corrupted, but `show` (without
// --show-all) still reports metadata, because the scan for a reference
// block simply lands on the first intact metadata copy it finds on disk.
func TestInspectorFallsBackToDuplicateMetadata(t *testing.T) {
	input := bytes.Repeat([]byte{0x05}, 12)
	shardCfg := &ShardConfig{Data: 3, Parity: 2, Burst: 4}
	opts := EncodeOptions{Version: V17, MetaEnabled: true, ShardCfg: shardCfg,
		HashType: HashSHA256, FileName: "dup.bin"}
	enc, err := NewEncoder(opts)
	require.NoError(t, err)

	container := newMemFile(0)
	_, err = enc.Encode(bytes.NewReader(input), container)
	require.NoError(t, err)

	indices := shardCfg.MetaBlockIndices()
	require.Greater(t, len(indices), 1, "burst>=1 must produce duplicate metadata copies")

	blockSize := V17.BlockSize()
	zeroed := make([]byte, blockSize)
	_, err = container.Seek(int64(indices[0])*int64(blockSize), 0)
	require.NoError(t, err)
	_, err = container.Write(zeroed)
	require.NoError(t, err)

	ins := NewInspector(false)
	reports, err := ins.Show(container, container.Size(), false)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.NotEqual(t, int64(0), reports[0].Offset)
}

// TestInspectorShowAllFindsEveryCopyWithCorruptedPrimary covers S6 combined
// with --show-all: the reference block the scan lands on is itself a
// duplicate at a nonzero offset, and Show must still report every other
// copy, not just the one it started from.
func TestInspectorShowAllFindsEveryCopyWithCorruptedPrimary(t *testing.T) {
	input := bytes.Repeat([]byte{0x08}, 12)
	shardCfg := &ShardConfig{Data: 3, Parity: 2, Burst: 4}
	opts := EncodeOptions{Version: V17, MetaEnabled: true, ShardCfg: shardCfg, HashType: HashSHA256}
	enc, err := NewEncoder(opts)
	require.NoError(t, err)

	container := newMemFile(0)
	_, err = enc.Encode(bytes.NewReader(input), container)
	require.NoError(t, err)

	indices := shardCfg.MetaBlockIndices()
	require.Greater(t, len(indices), 1, "burst>=1 must produce duplicate metadata copies")

	blockSize := V17.BlockSize()
	zeroed := make([]byte, blockSize)
	_, err = container.Seek(int64(indices[0])*int64(blockSize), 0)
	require.NoError(t, err)
	_, err = container.Write(zeroed)
	require.NoError(t, err)

	ins := NewInspector(false)
	reports, err := ins.Show(container, container.Size(), true)
	require.NoError(t, err)
	// The zeroed primary can't be reported; every intact copy is.
	require.Equal(t, shardCfg.MetaCopies()-1, len(reports))
}

func TestInspectorShowAllListsEveryDuplicate(t *testing.T) {
	input := bytes.Repeat([]byte{0x06}, 12)
	shardCfg := &ShardConfig{Data: 3, Parity: 2, Burst: 4}
	opts := EncodeOptions{Version: V17, MetaEnabled: true, ShardCfg: shardCfg, HashType: HashSHA256}
	enc, err := NewEncoder(opts)
	require.NoError(t, err)

	container := newMemFile(0)
	_, err = enc.Encode(bytes.NewReader(input), container)
	require.NoError(t, err)

	ins := NewInspector(false)
	reports, err := ins.Show(container, container.Size(), true)
	require.NoError(t, err)
	require.Equal(t, shardCfg.MetaCopies(), len(reports))
}

func TestInspectorRejectsContainerWithoutMetadata(t *testing.T) {
	input := bytes.Repeat([]byte{0x07}, 12)
	opts := EncodeOptions{Version: V1, MetaEnabled: false, HashType: HashSHA1}
	enc, err := NewEncoder(opts)
	require.NoError(t, err)

	container := newMemFile(0)
	_, err = enc.Encode(bytes.NewReader(input), container)
	require.NoError(t, err)

	ins := NewInspector(false)
	_, err = ins.Show(container, container.Size(), false)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindFormat, kind)
}

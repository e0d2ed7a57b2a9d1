package sbx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSorterMovesMisplacedBlocks(t *testing.T) {
	input := bytes.Repeat([]byte{0x03}, 2000)
	shardCfg := &ShardConfig{Data: 3, Parity: 2, Burst: 4}
	opts := EncodeOptions{Version: V17, MetaEnabled: true, ShardCfg: shardCfg, HashType: HashSHA256,
		FileSize: int64(len(input)), HasFileSize: true}
	enc, err := NewEncoder(opts)
	require.NoError(t, err)

	container := newMemFile(0)
	_, err = enc.Encode(bytes.NewReader(input), container)
	require.NoError(t, err)

	ref, err := FindReferenceBlock(container, 0, container.Size(), false)
	require.NoError(t, err)

	// Shuffle the container by swapping two data blocks' on-disk positions.
	blockSize := V17.BlockSize()
	a := make([]byte, blockSize)
	b := make([]byte, blockSize)
	_, err = container.Seek(int64(1)*int64(blockSize), 0)
	require.NoError(t, err)
	_, err = container.Read(a)
	require.NoError(t, err)
	_, err = container.Seek(int64(2)*int64(blockSize), 0)
	require.NoError(t, err)
	_, err = container.Read(b)
	require.NoError(t, err)
	_, err = container.Seek(int64(1)*int64(blockSize), 0)
	require.NoError(t, err)
	_, err = container.Write(b)
	require.NoError(t, err)
	_, err = container.Seek(int64(2)*int64(blockSize), 0)
	require.NoError(t, err)
	_, err = container.Write(a)
	require.NoError(t, err)

	sorter := NewSorter(ref.Block.Header.Version, ref.Block.Header.FileUID, true, shardCfg)
	dst := newMemFile(0)
	result, err := sorter.Sort(container, dst, container.Size(), false)
	require.NoError(t, err)
	require.Greater(t, result.BlocksMoved, 0)

	dec := NewDecoder(DecodeOptions{})
	var out bytes.Buffer
	_, err = dec.Decode(dst, &out)
	require.NoError(t, err)
	require.Equal(t, input, out.Bytes())
}

func TestSorterDryRunDoesNotWrite(t *testing.T) {
	input := bytes.Repeat([]byte{0x04}, 200)
	opts := EncodeOptions{Version: V1, MetaEnabled: true, HashType: HashSHA1,
		FileSize: int64(len(input)), HasFileSize: true}
	enc, err := NewEncoder(opts)
	require.NoError(t, err)

	container := newMemFile(0)
	_, err = enc.Encode(bytes.NewReader(input), container)
	require.NoError(t, err)
	before := append([]byte(nil), container.buf...)

	ref, err := FindReferenceBlock(container, 0, container.Size(), false)
	require.NoError(t, err)
	sorter := NewSorter(ref.Block.Header.Version, ref.Block.Header.FileUID, true, nil)
	_, err = sorter.Sort(container, container, container.Size(), true)
	require.NoError(t, err)
	require.Equal(t, before, container.buf)
}

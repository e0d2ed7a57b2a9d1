package sbx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSeqNumIndexRoundTripRS covers testable property 1: for every
// (data, parity, burst) and every legal seq_num,
// seq_num_at_index(index_at_seq_num(s)) == s.
func TestSeqNumIndexRoundTripRS(t *testing.T) {
	cases := []ShardConfig{
		{Data: 3, Parity: 2, Burst: 0},
		{Data: 3, Parity: 2, Burst: 1},
		{Data: 3, Parity: 2, Burst: 4},
		{Data: 1, Parity: 1, Burst: 2},
		{Data: 10, Parity: 2, Burst: 10},
	}
	for _, cfg := range cases {
		for setIdx := 0; setIdx < 20; setIdx++ {
			for pos := 0; pos < cfg.Total(); pos++ {
				seq := uint32(setIdx*cfg.Total() + pos + 1)
				idx := IndexAtSeqNumRS(seq, cfg)
				require.False(t, IsMetaIndexRS(idx, cfg), "data index %d collided with a metadata index, cfg=%+v seq=%d", idx, cfg, seq)
				got := SeqNumAtIndexRS(idx, cfg)
				require.Equal(t, seq, got, "cfg=%+v seq=%d idx=%d", cfg, seq, idx)
			}
		}
	}
}

// TestSeqNumIndexRoundTripPlain covers the non-RS analogue of property 1.
func TestSeqNumIndexRoundTripPlain(t *testing.T) {
	for _, metaEnabled := range []bool{true, false} {
		for seq := uint32(1); seq <= 50; seq++ {
			idx := IndexAtSeqNumPlain(seq, metaEnabled)
			if metaEnabled {
				require.NotEqual(t, 0, idx, "data index collided with the metadata index")
			}
			require.Equal(t, seq, SeqNumAtIndexPlain(idx, metaEnabled))
		}
	}
}

// TestLayoutS2 checks the literal worked table from spec.md §8 scenario S2:
// version 17, data=3, parity=2, burst=4.
//
//	[M,1,6,11,16 | M,2,7,12,17 | M,3,8,13,18 | 4,9,14,19 | 5,10,15,20]
func TestLayoutS2(t *testing.T) {
	cfg := ShardConfig{Data: 3, Parity: 2, Burst: 4}
	wantRows := [][]uint32{
		{1, 6, 11, 16},
		{2, 7, 12, 17},
		{3, 8, 13, 18},
		{4, 9, 14, 19},
		{5, 10, 15, 20},
	}
	metaIndices := cfg.MetaBlockIndices()
	require.Len(t, metaIndices, 3) // 1 + parity

	index := 0
	for row, seqs := range wantRows {
		if row < len(metaIndices) {
			require.Equal(t, metaIndices[row], index, "row %d metadata slot", row)
			index++
		}
		for _, seq := range seqs {
			require.Equal(t, index, IndexAtSeqNumRS(seq, cfg), "seq %d", seq)
			index++
		}
	}
}

// TestLayoutS3 checks spec.md §8 scenario S3: version 17, data=1, parity=1,
// burst=2: on-disk seq sequence [M,1,3 | M,2,4 | 5,7 | 6,8 | 9,11 | 10,12 |
// 13,15 | 14,16 | 17,19 | 18,20].
func TestLayoutS3(t *testing.T) {
	cfg := ShardConfig{Data: 1, Parity: 1, Burst: 2}
	wantRows := [][]uint32{
		{1, 3}, {2, 4}, {5, 7}, {6, 8}, {9, 11}, {10, 12}, {13, 15}, {14, 16}, {17, 19}, {18, 20},
	}
	metaIndices := cfg.MetaBlockIndices()
	require.Len(t, metaIndices, 2)

	index := 0
	for row, seqs := range wantRows {
		if row < len(metaIndices) {
			require.Equal(t, metaIndices[row], index, "row %d metadata slot", row)
			index++
		}
		for _, seq := range seqs {
			require.Equal(t, index, IndexAtSeqNumRS(seq, cfg), "seq %d", seq)
			index++
		}
	}
}

func TestGuessBurst(t *testing.T) {
	cfg := ShardConfig{Data: 3, Parity: 2, Burst: 4}
	version := V17
	var uid [FileUIDSize]byte
	copy(uid[:], []byte{1, 2, 3, 4, 5, 6})

	f := newMemFile(0)
	blockSize := version.BlockSize()
	for seq := uint32(1); seq <= 20; seq++ {
		idx := IndexAtSeqNumRS(seq, cfg)
		payload := make([]byte, version.DataSize())
		out := make([]byte, blockSize)
		require.NoError(t, EncodeBlock(version, uid, seq, payload, out))
		_, err := f.Seek(int64(idx)*int64(blockSize), 0)
		require.NoError(t, err)
		_, err = f.Write(out)
		require.NoError(t, err)
	}

	got, err := GuessBurst(f, version, uid, cfg.Data, cfg.Parity, 20)
	require.NoError(t, err)
	require.Equal(t, cfg.Burst, got)
}

package sbx

import (
	"io"

	"github.com/bits-and-blooms/bitset"
)

// SetRepairResult reports the outcome of repairing one RS set or one
// metadata-copy group. Present is a bit per shard index, set when that
// shard was found intact on disk before reconstruction was attempted.
type SetRepairResult struct {
	StartSeqNum  uint32
	Present      *bitset.BitSet
	MissingCount int
	PresentCount int
	Successful   bool
}

// Repairer walks a container in RS-set strides, reconstructing missing
// data/parity blocks in place wherever enough of the set survives
// (spec.md §4.8).
type Repairer struct {
	version  Version
	uid      [FileUIDSize]byte
	shardCfg ShardConfig
	rsCodec  *RSCodec
}

// NewRepairer returns a Repairer for the given container shape.
func NewRepairer(version Version, uid [FileUIDSize]byte, shardCfg ShardConfig) (*Repairer, error) {
	codec, err := NewRSCodec(shardCfg.Data, shardCfg.Parity)
	if err != nil {
		return nil, err
	}
	return &Repairer{version: version, uid: uid, shardCfg: shardCfg, rsCodec: codec}, nil
}

// RepairResult summarizes a full repair pass.
type RepairResult struct {
	Sets        []SetRepairResult
	BlocksFixed int
	BlocksLost  int
}

// Repair scans rw (a seekable read-writer) one RS set at a time, writing
// reconstructed blocks back to their original positions. It does not
// touch metadata copies; call RepairMetadata separately for those.
func (rp *Repairer) Repair(rw ReadWriteSeeker, dataSetCount int) (RepairResult, error) {
	var result RepairResult
	blockSize := rp.version.BlockSize()
	T := rp.shardCfg.Total()

	for set := 0; set < dataSetCount; set++ {
		startSeq := uint32(set*T + 1)
		shards := make([][]byte, T)
		present := bitset.New(uint(T))
		indices := make([]int, T)

		for i := 0; i < T; i++ {
			seq := startSeq + uint32(i)
			idx := IndexAtSeqNumRS(seq, rp.shardCfg)
			indices[i] = idx
			shards[i] = make([]byte, blockSize)

			if _, err := rw.Seek(int64(idx)*int64(blockSize), io.SeekStart); err != nil {
				continue
			}
			n, err := io.ReadFull(rw, shards[i])
			if err != nil || n != blockSize {
				continue
			}
			blk, err := DecodeBlock(rp.version, shards[i])
			if err != nil || blk.Header.FileUID != rp.uid || blk.Header.SeqNum != seq {
				continue
			}
			present.Set(uint(i))
			shards[i] = blk.Payload
		}

		presentCount := int(present.Count())
		sr := SetRepairResult{
			StartSeqNum:  startSeq,
			Present:      present,
			PresentCount: presentCount,
			MissingCount: T - presentCount,
		}

		if presentCount == T {
			sr.Successful = true
			result.Sets = append(result.Sets, sr)
			continue
		}
		if presentCount < rp.shardCfg.Data {
			sr.Successful = false
			result.BlocksLost += sr.MissingCount
			result.Sets = append(result.Sets, sr)
			continue
		}

		presentBools := make([]bool, T)
		for i := 0; i < T; i++ {
			presentBools[i] = present.Test(uint(i))
		}
		if err := rp.rsCodec.Reconstruct(shards, presentBools); err != nil {
			sr.Successful = false
			result.BlocksLost += sr.MissingCount
			result.Sets = append(result.Sets, sr)
			continue
		}

		for i := 0; i < T; i++ {
			if presentBools[i] {
				continue
			}
			seq := startSeq + uint32(i)
			out := make([]byte, blockSize)
			// A missing shard's buffer is block-sized (it was the read
			// buffer); the reconstructed payload is its leading data area.
			if err := EncodeBlock(rp.version, rp.uid, seq, shards[i][:rp.version.DataSize()], out); err != nil {
				return result, err
			}
			if _, err := rw.Seek(int64(indices[i])*int64(blockSize), io.SeekStart); err != nil {
				return result, wrapErr(KindIO, err, "seeking to repaired block")
			}
			if _, err := rw.Write(out); err != nil {
				return result, wrapErr(KindIO, err, "writing repaired block")
			}
			result.BlocksFixed++
		}
		sr.Successful = true
		result.Sets = append(result.Sets, sr)
	}
	return result, nil
}

// RepairMetadata treats the metadata copies (one primary plus Parity
// duplicates, per ShardConfig.MetaCopies) as plain duplicates — not a true
// RS set — and reconstructs any missing copy verbatim from any surviving
// one.
func (rp *Repairer) RepairMetadata(rw ReadWriteSeeker) (SetRepairResult, error) {
	indices := rp.shardCfg.MetaBlockIndices()
	blockSize := rp.version.BlockSize()
	present := bitset.New(uint(len(indices)))
	var anyPayload []byte

	for i, idx := range indices {
		if _, err := rw.Seek(int64(idx)*int64(blockSize), io.SeekStart); err != nil {
			continue
		}
		buf := make([]byte, blockSize)
		n, err := io.ReadFull(rw, buf)
		if err != nil || n != blockSize {
			continue
		}
		blk, err := DecodeBlock(rp.version, buf)
		if err != nil || blk.Header.FileUID != rp.uid || !blk.IsMeta() {
			continue
		}
		present.Set(uint(i))
		if anyPayload == nil {
			anyPayload = blk.Payload
		}
	}

	presentCount := int(present.Count())
	result := SetRepairResult{
		Present:      present,
		PresentCount: presentCount,
		MissingCount: len(indices) - presentCount,
	}
	if anyPayload == nil {
		result.Successful = false
		return result, nil
	}
	out := make([]byte, blockSize)
	if err := EncodeBlock(rp.version, rp.uid, 0, anyPayload, out); err != nil {
		return result, err
	}
	for i, idx := range indices {
		if present.Test(uint(i)) {
			continue
		}
		if _, err := rw.Seek(int64(idx)*int64(blockSize), io.SeekStart); err != nil {
			return result, wrapErr(KindIO, err, "seeking to repaired metadata copy")
		}
		if _, err := rw.Write(out); err != nil {
			return result, wrapErr(KindIO, err, "writing repaired metadata copy")
		}
	}
	result.Successful = true
	return result, nil
}

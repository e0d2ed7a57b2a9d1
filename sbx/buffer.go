package sbx

import (
	"hash"
	"io"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// LotsPerCPU is the default number of lots staged per logical CPU, per
// spec.md §3 ("sized to cpu_count x 10").
const LotsPerCPU = 10

// DataBlockBuffer aggregates an array of Lots and drives their parallel
// encode, in-order write, and hashing. Multiple buffers in a pipeline are
// assigned disjoint sequence ranges via bufferIndex/bufferCount.
type DataBlockBuffer struct {
	version     Version
	uid         [FileUIDSize]byte
	metaEnabled bool
	shardCfg    *ShardConfig
	rsCodec     *RSCodec
	plainSize   int

	lots        []*Lot
	currentLot  int
	startSeq    uint32
	increment   uint32
	exhausted   bool

	lastGetLot     int
	lastGetAdvanced bool
}

// NewDataBlockBuffer builds a buffer sized numCPU*LotsPerCPU (or 1 lot,
// whichever is larger). bufferIndex/bufferCount let a pipeline of several
// buffers each claim a disjoint range of sequence numbers: buffer i starts
// at startSeq + i*slotsPerBuffer and advances by slotsPerBuffer*bufferCount
// after every Encode().
func NewDataBlockBuffer(version Version, uid [FileUIDSize]byte, metaEnabled bool, shardCfg *ShardConfig, rsCodec *RSCodec, plainSize int, startSeq uint32, bufferIndex, bufferCount int) *DataBlockBuffer {
	numLots := runtime.NumCPU() * LotsPerCPU
	if numLots < 1 {
		numLots = 1
	}
	lots := make([]*Lot, numLots)
	var lotSize int
	if shardCfg != nil {
		lotSize = shardCfg.Total()
	} else {
		lotSize = plainSize
	}
	for i := range lots {
		lots[i] = NewLot(version, uid, metaEnabled, shardCfg, rsCodec, plainSize)
	}
	slotsPerBuffer := uint32(numLots * lotSize)
	b := &DataBlockBuffer{
		version:     version,
		uid:         uid,
		metaEnabled: metaEnabled,
		shardCfg:    shardCfg,
		rsCodec:     rsCodec,
		plainSize:   plainSize,
		lots:        lots,
		startSeq:    startSeq + uint32(bufferIndex)*slotsPerBuffer,
		increment:   slotsPerBuffer * uint32(bufferCount),
	}
	return b
}

// Exhausted reports whether the next Encode() would overflow a uint32
// sequence number.
func (b *DataBlockBuffer) Exhausted() bool { return b.exhausted }

// GetSlot delegates to the current lot, advancing to the next lot when the
// current one reports its last directly-writable slot. Returns ok=false
// once every lot is full.
func (b *DataBlockBuffer) GetSlot() (ref SlotRef, ok bool) {
	for b.currentLot < len(b.lots) {
		r, last, got := b.lots[b.currentLot].GetSlot()
		if !got {
			b.currentLot++
			continue
		}
		b.lastGetLot = b.currentLot
		b.lastGetAdvanced = last
		if last {
			b.currentLot++
		}
		return r, true
	}
	return SlotRef{}, false
}

// CancelSlot reverses the most recent GetSlot call across the whole
// buffer, undoing both the lot's own slot and, if that slot was the lot's
// last writable one, the buffer's advance to the next lot.
func (b *DataBlockBuffer) CancelSlot() {
	b.lots[b.lastGetLot].CancelSlot()
	if b.lastGetAdvanced {
		b.currentLot = b.lastGetLot
	}
}

// Encode runs fill-in-padding -> RS-encode -> sequence-numbering ->
// header-sync in parallel across every active lot (spec.md §4.5), then
// advances the buffer's next starting sequence number.
func (b *DataBlockBuffer) Encode() error {
	var g errgroup.Group
	lotSize := b.lotSize()
	for i, lot := range b.lots {
		if lot.SlotsUsed() == 0 {
			continue
		}
		i, lot := i, lot
		lotStart := b.startSeq + uint32(i*lotSize)
		g.Go(func() error {
			lot.FillInPadding()
			if b.shardCfg != nil {
				if err := lot.RSEncode(); err != nil {
					return err
				}
			}
			lot.SetSeqNums(lotStart)
			lot.CalcSlotWritePositions()
			return lot.SyncBlocksToSlots()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	newStart := uint64(b.startSeq) + uint64(b.increment)
	if newStart > math.MaxUint32 {
		b.exhausted = true
	} else {
		b.startSeq = uint32(newStart)
	}
	b.currentLot = 0
	return nil
}

func (b *DataBlockBuffer) lotSize() int {
	if b.shardCfg != nil {
		return b.shardCfg.Total()
	}
	return b.plainSize
}

// Write writes every lot sequentially (never in parallel: ordering and
// seeking require a single writer), seeking to each slot's computed
// position, then resets all lots.
func (b *DataBlockBuffer) Write(w io.Writer, policy SkipGoodPolicy, stats *Stats) error {
	return b.write(w, true, policy, stats)
}

// WriteNoSeek writes every lot sequentially without seeking, for a pure
// append-only destination (e.g. stdout) known to already be positioned
// correctly.
func (b *DataBlockBuffer) WriteNoSeek(w io.Writer, stats *Stats) error {
	return b.write(w, false, AlwaysWrite, stats)
}

func (b *DataBlockBuffer) write(w io.Writer, seek bool, policy SkipGoodPolicy, stats *Stats) error {
	for _, lot := range b.lots {
		if lot.SlotsUsed() == 0 {
			continue
		}
		if err := lot.Write(w, seek, policy, stats); err != nil {
			return err
		}
	}
	for _, lot := range b.lots {
		lot.Reset()
	}
	return nil
}

// Hash feeds all lots' non-padding, non-parity data, in order, into h.
func (b *DataBlockBuffer) Hash(h hash.Hash) {
	for _, lot := range b.lots {
		lot.Hash(h)
	}
}

// BlockStats sums (data, padding, parity) slot counts and padding bytes
// across every lot.
func (b *DataBlockBuffer) BlockStats() (data, padding, parity int, paddingBytes int64) {
	for _, lot := range b.lots {
		d, p, pa, pb := lot.BlockStats()
		data += d
		padding += p
		parity += pa
		paddingBytes += pb
	}
	return
}

// Lots exposes the underlying lots, for callers (the Encoder) that need to
// know which ones have pending slots before deciding to flush a batch.
func (b *DataBlockBuffer) Lots() []*Lot { return b.lots }

package sbx

import (
	"bytes"
	"hash"
	"io"
)

// Arrangement describes what a Lot's caller can assume about slot order and
// completeness. Most operations require OrderedAndNoMissing; Hash also
// accepts OrderedButSomeMayBeMissing. A Lot starts in, and Reset returns it
// to, OrderedAndNoMissing; nothing in this package switches a Lot to
// OrderedButSomeMayBeMissing.
type Arrangement int

const (
	OrderedAndNoMissing Arrangement = iota
	OrderedButSomeMayBeMissing
)

// lotSlot is one block-size staging buffer plus its side information.
type lotSlot struct {
	buf            []byte // full block_size buffer, header+payload
	payload        []byte // view into buf[HeaderSize:]
	contentLen     *int   // nil => payload fully used (version.DataSize())
	isPadding      bool
	isParity       bool
	writePos       int // -1 until CalcSlotWritePositions runs
	seqNum         uint32
}

// Lot is a staging unit of K contiguous slots: when RS is on, K =
// data+parity and only the first `data` slots are directly writable by
// GetSlot (the rest are reserved for parity, filled by RSEncode); when RS
// is off, every slot is directly writable.
type Lot struct {
	version     Version
	uid         [FileUIDSize]byte
	metaEnabled bool
	shardCfg    *ShardConfig // nil when RS is off
	rsCodec     *RSCodec     // nil when RS is off

	slots               []lotSlot
	directlyWritable    int // == len(slots) when RS is off, == shardCfg.Data when on
	slotsUsed           int
	arrangement         Arrangement
	lastCanceled        bool
}

// NewLot allocates a Lot. plainSize is the slot count to use when RS is
// off; it is ignored when shardCfg is non-nil (the RS shape dictates slot
// count in that case).
func NewLot(version Version, uid [FileUIDSize]byte, metaEnabled bool, shardCfg *ShardConfig, rsCodec *RSCodec, plainSize int) *Lot {
	var total, directly int
	if shardCfg != nil {
		total = shardCfg.Total()
		directly = shardCfg.Data
	} else {
		total = plainSize
		directly = plainSize
	}
	slots := make([]lotSlot, total)
	blockSize := version.BlockSize()
	for i := range slots {
		slots[i].buf = make([]byte, blockSize)
		slots[i].payload = slots[i].buf[HeaderSize:]
		slots[i].writePos = -1
	}
	return &Lot{
		version:          version,
		uid:              uid,
		metaEnabled:      metaEnabled,
		shardCfg:         shardCfg,
		rsCodec:          rsCodec,
		slots:            slots,
		directlyWritable: directly,
	}
}

// SlotRef is the handle GetSlot hands back: the caller writes into Payload
// (up to len(Payload) bytes) and, on a short read, records the actual length
// via SetContentLen before calling DataBlockBuffer.GetSlot again.
type SlotRef struct {
	Payload []byte
	set     func(length *int)
}

// SetContentLen records that only the first n bytes of Payload hold real
// data (FillInPadding fills the rest with PaddingByte). Call with nil to
// mean "the whole payload is real data."
func (s SlotRef) SetContentLen(n *int) { s.set(n) }

// GetSlot returns the next writable slot, or ok=false if the lot is full.
// last reports whether this was the final directly-writable slot, the
// signal for the caller to stop filling this lot and finalize it.
func (l *Lot) GetSlot() (ref SlotRef, last bool, ok bool) {
	if l.slotsUsed >= l.directlyWritable {
		return SlotRef{}, false, false
	}
	idx := l.slotsUsed
	l.slotsUsed++
	l.lastCanceled = false
	slot := &l.slots[idx]
	slot.contentLen = nil
	ref = SlotRef{
		Payload: slot.payload,
		set: func(length *int) {
			slot.contentLen = length
		},
	}
	return ref, l.slotsUsed == l.directlyWritable, true
}

// CancelSlot reverses the most recent GetSlot call, for when the caller
// decides not to use the slot it was handed (e.g. input ended exactly on a
// slot boundary). Panics if there is no prior slot to cancel, per spec.md
// §7's KindInvariant class of fatal programmer errors.
func (l *Lot) CancelSlot() {
	if l.slotsUsed == 0 || l.lastCanceled {
		panic("sbx: CancelSlot called with no prior GetSlot to cancel")
	}
	l.slotsUsed--
	l.lastCanceled = true
}

func (l *Lot) requireOrdered(op string) {
	if l.arrangement != OrderedAndNoMissing {
		panic("sbx: " + op + " requires arrangement OrderedAndNoMissing")
	}
}

// FillInPadding fills with PaddingByte (0x1A) the tail of every used slot whose recorded
// content length is shorter than the data area, and, when RS is on,
// appends blank padding slots until exactly shardCfg.Data slots are used.
func (l *Lot) FillInPadding() {
	l.requireOrdered("FillInPadding")
	dataSize := l.version.DataSize()
	for i := 0; i < l.slotsUsed; i++ {
		s := &l.slots[i]
		if s.contentLen != nil && *s.contentLen < dataSize {
			fillPadding(s.payload, *s.contentLen)
		}
	}
	if l.shardCfg != nil {
		for l.slotsUsed < l.shardCfg.Data {
			idx := l.slotsUsed
			l.slotsUsed++
			s := &l.slots[idx]
			fillPadding(s.payload, 0)
			s.isPadding = true
			zero := 0
			s.contentLen = &zero
		}
	}
}

// RSEncode fills the parity slots from the data slots. Requires exactly
// shardCfg.Data slots used and an RS codec to be configured.
func (l *Lot) RSEncode() error {
	l.requireOrdered("RSEncode")
	if l.shardCfg == nil || l.rsCodec == nil {
		panic("sbx: RSEncode called on a Lot with no RS codec")
	}
	if l.slotsUsed != l.shardCfg.Data {
		panic("sbx: RSEncode requires exactly data-shard-count used slots")
	}
	shards := make([][]byte, l.shardCfg.Total())
	for i := range l.slots {
		shards[i] = l.slots[i].payload
		l.slots[i].isParity = i >= l.shardCfg.Data
	}
	if err := l.rsCodec.Encode(shards); err != nil {
		return err
	}
	l.slotsUsed = l.shardCfg.Total()
	return nil
}

// SetSeqNums assigns consecutive sequence numbers, starting at
// lotStartSeq, to every used slot.
func (l *Lot) SetSeqNums(lotStartSeq uint32) {
	l.requireOrdered("SetSeqNums")
	for i := 0; i < l.slotsUsed; i++ {
		l.slots[i].seqNum = lotStartSeq + uint32(i)
	}
}

// SyncBlocksToSlots serializes each used slot's header into its buffer.
func (l *Lot) SyncBlocksToSlots() error {
	for i := 0; i < l.slotsUsed; i++ {
		s := &l.slots[i]
		if err := EncodeBlock(l.version, l.uid, s.seqNum, s.payload, s.buf); err != nil {
			return err
		}
	}
	return nil
}

// CalcSlotWritePositions populates each used slot's on-disk position.
func (l *Lot) CalcSlotWritePositions() {
	for i := 0; i < l.slotsUsed; i++ {
		s := &l.slots[i]
		if l.shardCfg != nil {
			s.writePos = IndexAtSeqNumRS(s.seqNum, *l.shardCfg)
		} else {
			s.writePos = IndexAtSeqNumPlain(s.seqNum, l.metaEnabled)
		}
	}
}

// SkipGoodPolicy controls whether Write re-reads the destination before
// overwriting it (spec.md §4.4's "skip-good semantics"), resolving
// spec.md §9's `--multi-pass` vs `--multi-pass-no-skip` distinction.
type SkipGoodPolicy int

const (
	// AlwaysWrite writes every slot unconditionally.
	AlwaysWrite SkipGoodPolicy = iota
	// CheckBeforeWrite reads the destination first and only writes when
	// the block there is absent, unparseable, or disagrees with the
	// slot's (version, uid, seq).
	CheckBeforeWrite
)

// Write writes every used slot to w, in slot order. When seek is true, it
// seeks to each slot's computed position first (w must implement
// io.Seeker in that case). policy controls skip-good behavior;
// AlwaysWrite never reads w back and ignores CheckBeforeWrite's
// read-before-write step.
func (l *Lot) Write(w io.Writer, seek bool, policy SkipGoodPolicy, stats *Stats) error {
	blockSize := l.version.BlockSize()
	var seeker io.Seeker
	if seek {
		s, ok := w.(io.Seeker)
		if !ok {
			return newErr(KindIO, "destination does not support seeking")
		}
		seeker = s
	}
	var reader io.Reader
	if policy == CheckBeforeWrite {
		r, ok := w.(io.Reader)
		if !ok {
			return newErr(KindIO, "destination does not support read-before-write")
		}
		reader = r
	}
	for i := 0; i < l.slotsUsed; i++ {
		s := &l.slots[i]
		if seek {
			if _, err := seeker.Seek(int64(s.writePos)*int64(blockSize), io.SeekStart); err != nil {
				return wrapErr(KindIO, err, "seeking to slot position %d", s.writePos)
			}
		}
		if policy == CheckBeforeWrite {
			skip, err := l.skipGood(reader, s, blockSize)
			if err != nil {
				return err
			}
			if skip {
				continue
			}
			if seek {
				if _, err := seeker.Seek(int64(s.writePos)*int64(blockSize), io.SeekStart); err != nil {
					return wrapErr(KindIO, err, "re-seeking to slot position %d", s.writePos)
				}
			}
		}
		if _, err := w.Write(s.buf); err != nil {
			return wrapErr(KindIO, err, "writing block at position %d", s.writePos)
		}
		l.tallyWrite(stats, s)
	}
	return nil
}

func (l *Lot) tallyWrite(stats *Stats, s *lotSlot) {
	if stats == nil {
		return
	}
	switch {
	case s.seqNum == 0:
		stats.addMeta(1)
	case s.isParity:
		stats.addParity(1)
	default:
		stats.addData(1)
	}
	if s.isPadding {
		stats.addPadding(int64(l.version.DataSize()))
	} else if s.contentLen != nil {
		stats.addPadding(int64(l.version.DataSize() - *s.contentLen))
	}
}

// skipGood implements spec.md §4.4: read the existing bytes at the slot's
// position; write iff the read hit EOF or came up short, or, for a slot
// holding a block, the existing bytes don't parse as a block or carry a
// different (version, uid, seq). For a payload-only slot, write iff the
// existing bytes are all zero.
func (l *Lot) skipGood(r io.Reader, s *lotSlot, blockSize int) (skip bool, err error) {
	existing := make([]byte, blockSize)
	n, readErr := io.ReadFull(r, existing)
	if readErr == io.ErrUnexpectedEOF || readErr == io.EOF {
		return false, nil
	}
	if readErr != nil {
		return false, wrapErr(KindIO, readErr, "reading existing block for skip-good check")
	}
	if n < blockSize {
		return false, nil
	}
	if s.seqNum != 0 || !s.isPadding {
		blk, err := DecodeBlock(l.version, existing)
		if err != nil {
			return false, nil
		}
		if blk.Header.Version != l.version || blk.Header.FileUID != l.uid || blk.Header.SeqNum != s.seqNum {
			return false, nil
		}
		return true, nil
	}
	return !bytes.Equal(existing, make([]byte, blockSize)), nil
}

// Hash feeds every non-padding, non-parity slot's real data bytes, in
// logical order, into h.
func (l *Lot) Hash(h hash.Hash) {
	if l.arrangement != OrderedAndNoMissing && l.arrangement != OrderedButSomeMayBeMissing {
		panic("sbx: Hash requires an Ordered arrangement")
	}
	dataSize := l.version.DataSize()
	for i := 0; i < l.slotsUsed; i++ {
		s := &l.slots[i]
		if s.isPadding || s.isParity {
			continue
		}
		n := dataSize
		if s.contentLen != nil {
			n = *s.contentLen
		}
		h.Write(s.payload[:n])
	}
}

// Reset clears every slot, ready for the next batch.
func (l *Lot) Reset() {
	for i := range l.slots {
		l.slots[i].contentLen = nil
		l.slots[i].isPadding = false
		l.slots[i].isParity = false
		l.slots[i].writePos = -1
		l.slots[i].seqNum = 0
	}
	l.slotsUsed = 0
	l.arrangement = OrderedAndNoMissing
	l.lastCanceled = false
}

// SlotsUsed returns how many of the lot's slots currently hold data.
func (l *Lot) SlotsUsed() int { return l.slotsUsed }

// BlockStats returns (data, padding, parity) slot counts for this lot, and the
// number of padding bytes contributed by otherwise-non-padding slots
// (short final reads), per spec.md §4.5.
func (l *Lot) BlockStats() (data, padding, parity int, paddingBytes int64) {
	dataSize := l.version.DataSize()
	for i := 0; i < l.slotsUsed; i++ {
		s := &l.slots[i]
		switch {
		case s.isPadding:
			padding++
		case s.isParity:
			parity++
		default:
			data++
			if s.contentLen != nil && *s.contentLen < dataSize {
				paddingBytes += int64(dataSize - *s.contentLen)
			}
		}
	}
	return
}

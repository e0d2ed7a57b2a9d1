package sbx

import (
	"io"

	"github.com/bits-and-blooms/bitset"
)

// Layout maps sequence numbers to on-disk block indices and back. All
// functions here are pure: no I/O, no allocation beyond what the caller
// passes in. Byte offsets are index * version.BlockSize().

// ShardConfig describes the Reed-Solomon shape of a container: how many of
// each T=Data+Parity consecutive logical blocks are data vs. parity, and
// the burst interleaving stride.
type ShardConfig struct {
	Data   int
	Parity int
	Burst  int
}

// Total returns Data+Parity, the size of one RS set.
func (c ShardConfig) Total() int { return c.Data + c.Parity }

// MetaCopies returns how many metadata blocks a container with this shard
// config carries: 1 primary plus Parity duplicates when burst >= 1, or just
// the primary when burst == 0 (see DESIGN.md Open Question 3 — the general
// duplicate-placement formula degenerates at burst=0, so no duplicates are
// written in that mode).
func (c ShardConfig) MetaCopies() int {
	if c.Burst == 0 {
		return 1
	}
	return 1 + c.Parity
}

// MetaBlockIndices returns the container indices of every metadata copy,
// primary first.
func (c ShardConfig) MetaBlockIndices() []int {
	n := c.MetaCopies()
	out := make([]int, n)
	if c.Burst == 0 {
		out[0] = 0
		return out
	}
	for i := 0; i < n; i++ {
		out[i] = i * (c.Burst + 1)
	}
	return out
}

// IndexAtSeqNumPlain computes the on-disk block index for a data sequence
// number in a non-RS container (spec.md §4.2, "Data block positions, no
// RS"): index = seq_num if metadata is enabled, else seq_num-1.
func IndexAtSeqNumPlain(seqNum uint32, metaEnabled bool) int {
	if metaEnabled {
		return int(seqNum)
	}
	return int(seqNum) - 1
}

// SeqNumAtIndexPlain is the inverse of IndexAtSeqNumPlain.
func SeqNumAtIndexPlain(index int, metaEnabled bool) uint32 {
	if metaEnabled {
		return uint32(index)
	}
	return uint32(index + 1)
}

// IndexAtSeqNumRS computes the on-disk block index for a data/parity
// sequence number (seqNum >= 1) in an RS-protected container.
//
// Derivation. Let T = cfg.Total(), D = cfg.Data, P = cfg.Parity,
// b = cfg.Burst, n = seqNum-1 (0-indexed across the whole data+parity
// sequence), set = n/T, pos = n%T (position within that RS set).
//
// burst == 0: interleaving disabled; spec.md gives this directly as
// index = meta_offset + n, meta_offset = 1 if a metadata block exists.
//
// burst >= 1: sets are grouped into windows of b consecutive sets.
// window = set/b, slot = set%b (which of the b sets in this window, at
// this set's own column). The container is laid out one "row" per
// (window, pos) pair, flattened in that order (window outer, pos inner):
// row = window*T + pos. Each row holds b consecutive entries (one per set
// in its window, ordered by slot) and the first cfg.MetaCopies() rows
// additionally carry one metadata copy each, prefixed before that row's b
// data/parity entries. This closed form was checked against both the S2
// (D=3,P=2,b=4) and S3 (D=1,P=1,b=2) worked tables in spec.md §8 and
// matches every entry.
func IndexAtSeqNumRS(seqNum uint32, cfg ShardConfig) int {
	T := cfg.Total()
	n := int(seqNum) - 1
	set := n / T
	pos := n % T

	if cfg.Burst == 0 {
		metaOffset := 0
		if cfg.MetaCopies() > 0 {
			metaOffset = 1
		}
		return metaOffset + n
	}

	b := cfg.Burst
	window := set / b
	slot := set % b
	row := window*T + pos
	copies := cfg.MetaCopies()

	var entriesBefore int
	if row < copies {
		entriesBefore = row * (b + 1)
	} else {
		entriesBefore = copies*(b+1) + (row-copies)*b
	}
	rowPrefix := 0
	if row < copies {
		rowPrefix = 1
	}
	return entriesBefore + rowPrefix + slot
}

// SeqNumAtIndexRS is the inverse of IndexAtSeqNumRS: given a container
// index known to hold a data/parity block (not a metadata copy), it
// returns the logical sequence number stored there.
func SeqNumAtIndexRS(index int, cfg ShardConfig) uint32 {
	T := cfg.Total()
	b := cfg.Burst
	copies := cfg.MetaCopies()

	if b == 0 {
		metaOffset := 0
		if copies > 0 {
			metaOffset = 1
		}
		n := index - metaOffset
		return uint32(n + 1)
	}

	rowWidthMeta := b + 1
	var row, within int
	metaSpan := copies * rowWidthMeta
	if index < metaSpan {
		row = index / rowWidthMeta
		within = index % rowWidthMeta
		// within==0 is the metadata slot itself; callers must not ask
		// for the seq num of a metadata index.
		slot := within - 1
		window := row / T
		pos := row % T
		set := window*b + slot
		n := set*T + pos
		return uint32(n + 1)
	}
	rest := index - metaSpan
	row = copies + rest/b
	within = rest % b
	window := row / T
	pos := row % T
	set := window*b + within
	n := set*T + pos
	return uint32(n + 1)
}

// IsMetaIndexRS reports whether index names a metadata copy (rather than a
// data/parity slot) in an RS container with this shard config.
func IsMetaIndexRS(index int, cfg ShardConfig) bool {
	for _, mi := range cfg.MetaBlockIndices() {
		if mi == index {
			return true
		}
	}
	return false
}

// maxGuessBurst is the upper bound of the burst-guess search range (spec.md
// §9 Open Question, resolved in DESIGN.md Open Question 2).
const maxGuessBurst = 1000

// GuessBurst probes candidate burst levels b in [0, maxGuessBurst] against
// the first probeCount data sequence numbers and returns the one whose
// predicted container positions actually hold the expected (uid, seqNum)
// pair most often. Each candidate's hits are tracked in a bitset over the
// probe indices so the score is a plain popcount; ties break toward the
// smaller b, since that's scanned first.
func GuessBurst(r io.ReadSeeker, version Version, uid [FileUIDSize]byte, data, parity, probeCount int) (int, error) {
	blockSize := version.BlockSize()
	best := -1
	bestScore := uint(0)
	buf := make([]byte, blockSize)

	for b := 0; b <= maxGuessBurst; b++ {
		cfg := ShardConfig{Data: data, Parity: parity, Burst: b}
		hits := bitset.New(uint(probeCount))
		for i := 0; i < probeCount; i++ {
			seq := uint32(i + 1)
			idx := IndexAtSeqNumRS(seq, cfg)
			offset := int64(idx) * int64(blockSize)
			if _, err := r.Seek(offset, io.SeekStart); err != nil {
				continue
			}
			n, err := io.ReadFull(r, buf)
			if err != nil || n != blockSize {
				continue
			}
			blk, err := DecodeBlock(version, buf)
			if err != nil {
				continue
			}
			if blk.Header.FileUID == uid && blk.Header.SeqNum == seq {
				hits.Set(uint(i))
			}
		}
		if score := hits.Count(); best < 0 || score > bestScore {
			bestScore = score
			best = b
		}
	}
	if best < 0 || bestScore == 0 {
		return 0, newErr(KindFormat, "could not determine burst level")
	}
	return best, nil
}

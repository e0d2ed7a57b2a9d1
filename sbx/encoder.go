package sbx

import (
	"hash"
	"io"
	"time"

	"github.com/google/uuid"
)

// ByteRange restricts an Encoder to a sub-window of its input, inclusive
// start, exclusive end. A zero End means "to the end of the input."
type ByteRange struct {
	Start int64
	End   int64
}

// EncodeOptions configures one Encoder run.
type EncodeOptions struct {
	Version     Version
	FileUID     [FileUIDSize]byte
	HasUID      bool // when false, the Encoder generates a random UID
	MetaEnabled bool
	ShardCfg    *ShardConfig // nil for non-RS versions
	HashType    HashType

	FileName      string
	ContainerName string
	FileSize      int64
	HasFileSize   bool
	FileModTime   time.Time
	HasModTime    bool

	ByteRange  *ByteRange
	PlainLotSize int // slot count per lot when ShardCfg is nil; defaults to 16

	// Cancel is polled before each input read, and so between lots. Once
	// it is set, the slots already filled are encoded and written and the
	// metadata is rewritten before Encode returns; writes already under
	// way are not interrupted. A nil Cancel means the run can't be
	// interrupted early.
	Cancel *int32
}

// Encoder drives the encode pipeline: reader -> DataBlockBuffer (parallel
// lots) -> writer, per spec.md §4.6.
type Encoder struct {
	opts  EncodeOptions
	stats *Stats
}

// NewEncoder validates opts and returns an Encoder ready to run.
func NewEncoder(opts EncodeOptions) (*Encoder, error) {
	if !opts.Version.IsValid() {
		return nil, newErr(KindUsage, "unrecognized version %v", opts.Version)
	}
	if opts.Version.UsesRS() {
		if opts.ShardCfg == nil {
			return nil, newErr(KindUsage, "version %v requires RS shard parameters", opts.Version)
		}
		if !opts.MetaEnabled {
			return nil, newErr(KindUsage, "version %v requires metadata to be enabled", opts.Version)
		}
	}
	if opts.PlainLotSize <= 0 {
		opts.PlainLotSize = 16
	}
	if !opts.HasUID {
		// A file UID is 6 bytes, shorter than a UUID: truncate a random
		// (version 4) UUID down to the leading bytes we need instead of
		// rolling our own random source.
		generated, err := uuid.NewRandom()
		if err != nil {
			return nil, wrapErr(KindIO, err, "generating random file UID")
		}
		var uid [FileUIDSize]byte
		copy(uid[:], generated[:])
		opts.FileUID = uid
	}
	return &Encoder{opts: opts}, nil
}

// EncodeResult summarizes one completed run.
type EncodeResult struct {
	Stats Snapshot
	Hash  []byte
}

// Encode reads from r (optionally windowed per opts.ByteRange) and writes a
// complete SBX container to w. w must support Seek: the Encoder writes a
// placeholder metadata block first, streams the payload, then rewrites the
// metadata block(s) once the final hash is known.
func (e *Encoder) Encode(r Reader, w WriteSeeker) (EncodeResult, error) {
	now := time.Now()
	e.stats = NewStats(now)

	if !e.opts.HasFileSize {
		if size, ok := newSeekableReader(r).Size(); ok {
			e.opts.FileSize = size
			e.opts.HasFileSize = true
		}
	}

	var rsCodec *RSCodec
	if e.opts.ShardCfg != nil {
		var err error
		rsCodec, err = NewRSCodec(e.opts.ShardCfg.Data, e.opts.ShardCfg.Parity)
		if err != nil {
			return EncodeResult{}, err
		}
	}

	blockSize := e.opts.Version.BlockSize()

	// Step 2: placeholder metadata block(s).
	placeholder := make([]byte, blockSize)
	if err := EncodeBlock(e.opts.Version, e.opts.FileUID, 0, make([]byte, e.opts.Version.DataSize()), placeholder); err != nil {
		return EncodeResult{}, err
	}
	var metaPositions []int
	if e.opts.MetaEnabled {
		metaPositions = e.metaPositions()
	}
	for _, pos := range metaPositions {
		if err := seekWrite(w, int64(pos)*int64(blockSize), placeholder); err != nil {
			return EncodeResult{}, err
		}
	}
	e.stats.addMeta(len(metaPositions))

	hasher, err := NewHasher(e.opts.HashType)
	if err != nil {
		return EncodeResult{}, err
	}

	if err := e.streamPayload(r, w, rsCodec, hasher); err != nil {
		return EncodeResult{}, err
	}

	digest := hasher.Sum(nil)

	// Step 4: rewrite metadata with real fields.
	if len(metaPositions) > 0 {
		final, err := e.buildFinalMetadata(digest, now)
		if err != nil {
			return EncodeResult{}, err
		}
		for _, pos := range metaPositions {
			if err := seekWrite(w, int64(pos)*int64(blockSize), final); err != nil {
				return EncodeResult{}, err
			}
		}
	}

	return EncodeResult{
		Stats: e.stats.Snapshot(time.Now()),
		Hash:  digest,
	}, nil
}

func (e *Encoder) metaPositions() []int {
	if e.opts.ShardCfg == nil {
		return []int{0}
	}
	return e.opts.ShardCfg.MetaBlockIndices()
}

func seekWrite(w WriteSeeker, offset int64, buf []byte) error {
	if _, err := w.Seek(offset, io.SeekStart); err != nil {
		return wrapErr(KindIO, err, "seeking to offset %d", offset)
	}
	if _, err := w.Write(buf); err != nil {
		return wrapErr(KindIO, err, "writing at offset %d", offset)
	}
	return nil
}

func (e *Encoder) streamPayload(r Reader, w WriteSeeker, rsCodec *RSCodec, hasher hash.Hash) error {
	startSeq := uint32(1)
	buf := NewDataBlockBuffer(e.opts.Version, e.opts.FileUID, e.opts.MetaEnabled, e.opts.ShardCfg, rsCodec, e.opts.PlainLotSize, startSeq, 0, 1)

	dataSize := e.opts.Version.DataSize()
	haveRange := e.opts.ByteRange != nil && e.opts.ByteRange.End != 0
	var remaining int64 = -1
	if haveRange {
		remaining = e.opts.ByteRange.End - e.opts.ByteRange.Start
		if remaining < 0 {
			remaining = 0
		}
	}

	finalBatch := false
	for !finalBatch {
		if isCanceled(e.opts.Cancel) {
			break
		}
		for {
			if isCanceled(e.opts.Cancel) {
				finalBatch = true
				break
			}
			ref, ok := buf.GetSlot()
			if !ok {
				break
			}
			n, err := readChunk(r, ref.Payload, &remaining, haveRange)
			if n == 0 {
				buf.CancelSlot()
				finalBatch = true
				break
			}
			if n < len(ref.Payload) {
				nn := n
				ref.SetContentLen(&nn)
			}
			e.stats.addBytesProcessed(int64(n))
			if err == io.EOF || (haveRange && remaining <= 0) {
				finalBatch = true
				break
			}
			if err != nil {
				return wrapErr(KindIO, err, "reading input")
			}
		}
		if allLotsEmpty(buf) {
			break
		}
		if err := buf.Encode(); err != nil {
			return err
		}
		buf.Hash(hasher)
		if err := buf.Write(w, AlwaysWrite, e.stats); err != nil {
			return err
		}
		if buf.Exhausted() {
			break
		}
	}
	return nil
}

func allLotsEmpty(buf *DataBlockBuffer) bool {
	for _, l := range buf.Lots() {
		if l.SlotsUsed() > 0 {
			return false
		}
	}
	return true
}

func readChunk(r Reader, dst []byte, remaining *int64, haveRange bool) (int, error) {
	want := len(dst)
	if haveRange && *remaining < int64(want) {
		want = int(*remaining)
	}
	if want <= 0 {
		return 0, io.EOF
	}
	n, err := io.ReadFull(r, dst[:want])
	if haveRange {
		*remaining -= int64(n)
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

func (e *Encoder) buildFinalMetadata(digest []byte, now time.Time) ([]byte, error) {
	var entries []MetadataEntry
	if e.opts.FileName != "" {
		entries = append(entries, NewStringEntry(IDFileName, e.opts.FileName))
	}
	if e.opts.ContainerName != "" {
		entries = append(entries, NewStringEntry(IDContainerName, e.opts.ContainerName))
	}
	if e.opts.HasFileSize {
		entries = append(entries, NewFileSizeEntry(uint64(e.opts.FileSize)))
	}
	if e.opts.HasModTime {
		entries = append(entries, NewTimeEntry(IDFileModTime, e.opts.FileModTime.Unix()))
	}
	entries = append(entries, NewTimeEntry(IDEncodeTime, now.Unix()))
	entries = append(entries, NewHashEntry(e.opts.HashType, digest))
	if e.opts.ShardCfg != nil {
		entries = append(entries, NewByteEntry(IDRSData, uint8(e.opts.ShardCfg.Data)))
		entries = append(entries, NewByteEntry(IDRSParity, uint8(e.opts.ShardCfg.Parity)))
	}

	blockSize := e.opts.Version.BlockSize()
	payload := make([]byte, e.opts.Version.DataSize())
	if err := PackMetadata(entries, payload); err != nil {
		return nil, err
	}
	out := make([]byte, blockSize)
	if err := EncodeBlock(e.opts.Version, e.opts.FileUID, 0, payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

func isCanceled(flag *int32) bool {
	if flag == nil {
		return false
	}
	return loadCancel(flag)
}

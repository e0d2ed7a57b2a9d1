package sbx

import "io"

// SortResult reports what a Sorter pass moved.
type SortResult struct {
	BlocksMoved int
	BlocksRead  int
}

// Sorter rewrites a container so every block sits at the canonical index
// its (version, burst) layout prescribes, moving blocks found at
// non-canonical offsets into place (spec.md §4.9). It operates on a
// scratch destination: sorting in place would require either holding the
// whole container in memory or a cycle-following in-place permutation,
// neither of which this implementation attempts.
type Sorter struct {
	version  Version
	uid      [FileUIDSize]byte
	shardCfg *ShardConfig // nil for non-RS containers
	metaEnabled bool
}

// NewSorter returns a Sorter for the given container shape. shardCfg is
// nil for non-RS versions.
func NewSorter(version Version, uid [FileUIDSize]byte, metaEnabled bool, shardCfg *ShardConfig) *Sorter {
	return &Sorter{version: version, uid: uid, metaEnabled: metaEnabled, shardCfg: shardCfg}
}

// Sort scans src for every block belonging to uid, and — unless dryRun —
// writes each one to its canonical offset in dst. src and dst may be the
// same handle only when dryRun is true; a real sort must target a
// separate file, since canonical offsets can be read from before they're
// written to.
func (s *Sorter) Sort(src ReadSeeker, dst WriteSeeker, containerSize int64, dryRun bool) (SortResult, error) {
	blockSize := s.version.BlockSize()
	var result SortResult

	for offset := int64(0); offset < containerSize; offset += int64(blockSize) {
		if _, err := src.Seek(offset, io.SeekStart); err != nil {
			break
		}
		buf := make([]byte, blockSize)
		n, err := io.ReadFull(src, buf)
		if err != nil || n != blockSize {
			break
		}
		blk, err := DecodeBlock(s.version, buf)
		if err != nil || blk.Header.FileUID != s.uid {
			continue
		}
		result.BlocksRead++

		canonical := s.canonicalIndex(blk)
		if blk.IsMeta() && s.shardCfg != nil {
			// A metadata copy already at one of the layout's metadata
			// positions is canonical where it is.
			if idx := int(offset / int64(blockSize)); IsMetaIndexRS(idx, *s.shardCfg) {
				canonical = idx
			}
		}
		canonicalOffset := int64(canonical) * int64(blockSize)
		if canonicalOffset != offset {
			result.BlocksMoved++
		}
		if dryRun {
			continue
		}
		// dst is a fresh destination in every non-dry run, so every valid
		// block — moved or already canonical — must land in it.
		if _, err := dst.Seek(canonicalOffset, io.SeekStart); err != nil {
			return result, wrapErr(KindIO, err, "seeking to canonical position")
		}
		if _, err := dst.Write(buf); err != nil {
			return result, wrapErr(KindIO, err, "writing sorted block")
		}
	}
	return result, nil
}

func (s *Sorter) canonicalIndex(blk Block) int {
	if s.shardCfg == nil {
		if blk.IsMeta() {
			return 0
		}
		return IndexAtSeqNumPlain(blk.Header.SeqNum, s.metaEnabled)
	}
	if blk.IsMeta() {
		indices := s.shardCfg.MetaBlockIndices()
		if len(indices) > 0 {
			return indices[0]
		}
		return 0
	}
	return IndexAtSeqNumRS(blk.Header.SeqNum, *s.shardCfg)
}

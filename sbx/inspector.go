package sbx

import (
	"fmt"
	"io"
	"time"
)

// MetaReport is a human-readable rendering of one metadata block's
// contents, for the `show` operation (spec.md §4.10).
type MetaReport struct {
	Offset  int64
	Version Version
	FileUID [FileUIDSize]byte
	Fields  []MetaField
}

// MetaField is one decoded metadata entry, paired with a display-ready
// string for entries whose raw bytes aren't directly printable.
type MetaField struct {
	ID      MetadataID
	Display string
}

// Inspector locates and decodes metadata blocks for display, without
// touching the data/parity payload.
type Inspector struct {
	forceMisalign bool
}

// NewInspector returns an Inspector.
func NewInspector(forceMisalign bool) *Inspector {
	return &Inspector{forceMisalign: forceMisalign}
}

// Show finds the primary metadata block (and, if showAll, every
// duplicate copy too) and renders each to a MetaReport. When the primary
// is corrupt, the first intact copy takes its place; corrupt copies are
// left out of the result.
func (ins *Inspector) Show(r ReadSeeker, containerSize int64, showAll bool) ([]MetaReport, error) {
	ref, err := FindReferenceBlock(r, 0, containerSize, ins.forceMisalign)
	if err != nil {
		return nil, err
	}
	if !ref.Block.IsMeta() {
		return nil, newErr(KindFormat, "no metadata block found (container may have been encoded with --no-meta)")
	}

	reports := []MetaReport{mustReport(ref)}
	if !showAll {
		return reports, nil
	}

	entries, _ := UnpackMetadata(ref.Block.Payload)
	if !ref.Block.Header.Version.UsesRS() {
		return reports, nil
	}
	data, parity, ok := rsShapeFromMetadata(entries)
	if !ok {
		return reports, nil
	}
	version := ref.Block.Header.Version
	blockSize := version.BlockSize()

	for burst := 0; burst <= 1000; burst++ {
		cfg := ShardConfig{Data: data, Parity: parity, Burst: burst}
		indices := cfg.MetaBlockIndices()
		if len(indices) <= 1 {
			continue
		}
		refPos := -1
		for i, idx := range indices {
			if int64(idx)*int64(blockSize) == ref.Offset {
				refPos = i
				break
			}
		}
		if refPos == -1 {
			continue
		}
		matched := true
		var dupReports []MetaReport
		for i, idx := range indices {
			if i == refPos {
				continue
			}
			off := int64(idx) * int64(blockSize)
			if off >= containerSize {
				matched = false
				break
			}
			if _, err := r.Seek(off, io.SeekStart); err != nil {
				matched = false
				break
			}
			buf := make([]byte, blockSize)
			n, err := io.ReadFull(r, buf)
			if err != nil || n != blockSize {
				matched = false
				break
			}
			blk, err := DecodeBlock(version, buf)
			if err != nil {
				// A corrupt copy doesn't rule this burst level out; it
				// just isn't reported.
				continue
			}
			if blk.Header.FileUID != ref.Block.Header.FileUID || !blk.IsMeta() {
				matched = false
				break
			}
			dupReports = append(dupReports, mustReport(ReferenceBlock{Block: blk, Offset: off}))
		}
		if matched && len(dupReports) > 0 {
			reports = append(reports, dupReports...)
			break
		}
	}
	return reports, nil
}

func mustReport(ref ReferenceBlock) MetaReport {
	entries, _ := UnpackMetadata(ref.Block.Payload)
	report := MetaReport{
		Offset:  ref.Offset,
		Version: ref.Block.Header.Version,
		FileUID: ref.Block.Header.FileUID,
	}
	for _, e := range entries {
		report.Fields = append(report.Fields, MetaField{ID: e.ID, Display: displayValue(e)})
	}
	return report
}

func displayValue(e MetadataEntry) string {
	switch e.ID {
	case IDFileName, IDContainerName:
		return string(e.Value)
	case IDFileSize:
		return fmt.Sprintf("%d", beUint64(e.Value))
	case IDFileModTime, IDEncodeTime:
		return time.Unix(int64(beUint64(e.Value)), 0).UTC().Format(time.RFC3339)
	case IDHash:
		if len(e.Value) < 2 {
			return fmt.Sprintf("% x", e.Value)
		}
		return fmt.Sprintf("%s:% x", HashType(e.Value[0]), e.Value[2:])
	case IDRSData, IDRSParity:
		if len(e.Value) == 1 {
			return fmt.Sprintf("%d", e.Value[0])
		}
		return fmt.Sprintf("% x", e.Value)
	default:
		return fmt.Sprintf("% x", e.Value)
	}
}

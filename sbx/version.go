package sbx

import "fmt"

// Version identifies an SBX container's block layout and whether its data
// blocks are protected by Reed-Solomon erasure coding.
type Version byte

// Recognized container versions.
const (
	V1  Version = 1
	V2  Version = 2
	V3  Version = 3
	V17 Version = 17
	V18 Version = 18
	V19 Version = 19
)

// HeaderSize is the fixed size, in bytes, of every block's header.
const HeaderSize = 16

// FileUIDSize is the fixed size, in bytes, of the file UID field.
const FileUIDSize = 6

// Signature is the 3-byte ASCII marker every block begins with.
var Signature = [3]byte{'S', 'B', 'x'}

// PaddingByte fills unused metadata/data payload space.
const PaddingByte = 0x1A

type versionInfo struct {
	blockSize int
	usesRS    bool
	crcSeed   uint16
}

var versionTable = map[Version]versionInfo{
	V1:  {blockSize: 512, usesRS: false, crcSeed: 0x0000},
	V2:  {blockSize: 128, usesRS: false, crcSeed: 0x0000},
	V3:  {blockSize: 4096, usesRS: false, crcSeed: 0x0000},
	V17: {blockSize: 512, usesRS: true, crcSeed: 0xFFFF},
	V18: {blockSize: 128, usesRS: true, crcSeed: 0xFFFF},
	V19: {blockSize: 4096, usesRS: true, crcSeed: 0xFFFF},
}

// IsValid reports whether v is a recognized container version.
func (v Version) IsValid() bool {
	_, ok := versionTable[v]
	return ok
}

// BlockSize returns the fixed on-disk size, in bytes, of every block for v.
func (v Version) BlockSize() int {
	info, ok := versionTable[v]
	if !ok {
		return 0
	}
	return info.blockSize
}

// DataSize returns the payload size, in bytes, available to a block of
// version v (block size minus the header).
func (v Version) DataSize() int {
	return v.BlockSize() - HeaderSize
}

// UsesRS reports whether v is one of the Reed-Solomon-protected versions
// (V17-V19), which also require a metadata block.
func (v Version) UsesRS() bool {
	return versionTable[v].usesRS
}

// RequiresMetadata reports whether v mandates a metadata block at index 0.
func (v Version) RequiresMetadata() bool {
	return v.UsesRS()
}

func (v Version) crcSeed() uint16 {
	return versionTable[v].crcSeed
}

// ParseVersion validates a raw version byte read from a header.
func ParseVersion(b byte) (Version, error) {
	v := Version(b)
	if !v.IsValid() {
		return 0, newErr(KindFormat, "unrecognized version byte %d", b)
	}
	return v, nil
}

func (v Version) String() string {
	switch v {
	case V1:
		return "V1"
	case V2:
		return "V2"
	case V3:
		return "V3"
	case V17:
		return "V17"
	case V18:
		return "V18"
	case V19:
		return "V19"
	default:
		return fmt.Sprintf("Version(%d)", byte(v))
	}
}

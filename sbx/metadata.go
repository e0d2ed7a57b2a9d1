package sbx

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// MetadataID is the 3-byte ASCII tag identifying a metadata TLV entry.
type MetadataID string

// Recognized metadata entry IDs.
const (
	IDFileName     MetadataID = "FNM"
	IDContainerName MetadataID = "SNM"
	IDFileSize     MetadataID = "FSZ"
	IDFileModTime  MetadataID = "FDT"
	IDEncodeTime   MetadataID = "SDT"
	IDHash         MetadataID = "HSH"
	IDRSData       MetadataID = "RSD"
	IDRSParity     MetadataID = "RSP"
)

// HashType is the 1-byte multihash type code stored in an HSH entry.
type HashType byte

// Hash type codes recognized by the CLI surface. SBX inlines this small
// subset rather than importing the full multiformats/go-multihash table,
// since the metadata TLV is a local format, not a multicodec wire format.
const (
	HashSHA1       HashType = 0x11
	HashSHA256     HashType = 0x12
	HashSHA512     HashType = 0x13
	HashBLAKE2b512 HashType = 0xb2 // truncated varint multicodec 0xb240
)

// String renders a HashType the way a human reads it rather than as a raw
// byte.
func (t HashType) String() string {
	switch t {
	case HashSHA1:
		return "sha1"
	case HashSHA256:
		return "sha256"
	case HashSHA512:
		return "sha512"
	case HashBLAKE2b512:
		return "blake2b-512"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// NewHasher returns a fresh hash.Hash for the given type code.
func NewHasher(t HashType) (hash.Hash, error) {
	switch t {
	case HashSHA1:
		return sha1.New(), nil
	case HashSHA256:
		return sha256.New(), nil
	case HashSHA512:
		return sha512.New(), nil
	case HashBLAKE2b512:
		h, err := blake2b.New512(nil)
		if err != nil {
			return nil, wrapErr(KindInvariant, err, "constructing blake2b-512")
		}
		return h, nil
	default:
		return nil, newErr(KindUsage, "unrecognized hash type %#02x", t)
	}
}

// MetadataEntry is one parsed (or to-be-packed) TLV entry.
type MetadataEntry struct {
	ID    MetadataID
	Value []byte
}

// String returns the entry's raw value as a string (the decoded value of an
// FNM or SNM entry).
func (e MetadataEntry) String() string { return string(e.Value) }

// NewFileSizeEntry builds an FSZ entry.
func NewFileSizeEntry(size uint64) MetadataEntry {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, size)
	return MetadataEntry{ID: IDFileSize, Value: v}
}

// NewTimeEntry builds an FDT or SDT entry from seconds-since-epoch.
func NewTimeEntry(id MetadataID, seconds int64) MetadataEntry {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, uint64(seconds))
	return MetadataEntry{ID: id, Value: v}
}

// NewHashEntry builds an HSH entry: 1-byte type, 1-byte length, digest.
func NewHashEntry(t HashType, digest []byte) MetadataEntry {
	v := make([]byte, 2+len(digest))
	v[0] = byte(t)
	v[1] = byte(len(digest))
	copy(v[2:], digest)
	return MetadataEntry{ID: IDHash, Value: v}
}

// NewByteEntry builds an RSD or RSP entry.
func NewByteEntry(id MetadataID, n uint8) MetadataEntry {
	return MetadataEntry{ID: id, Value: []byte{n}}
}

// NewStringEntry builds an FNM or SNM entry.
func NewStringEntry(id MetadataID, s string) MetadataEntry {
	return MetadataEntry{ID: id, Value: []byte(s)}
}

const metaPreambleLen = 3 + 1 // 3-byte ID + 1-byte length

// PackMetadata writes entries as TLVs into dst, filling the remainder with
// PaddingByte. Returns a *TooMuchMetadataError carrying every entry
// that didn't fit if the total exceeds len(dst).
func PackMetadata(entries []MetadataEntry, dst []byte) error {
	pos := 0
	var overflow []MetadataEntry
	for _, e := range entries {
		total := metaPreambleLen + len(e.Value)
		if pos+total > len(dst) {
			overflow = append(overflow, e)
			continue
		}
		copy(dst[pos:pos+3], []byte(e.ID))
		dst[pos+3] = byte(len(e.Value))
		copy(dst[pos+4:pos+total], e.Value)
		pos += total
	}
	fillPadding(dst, pos)
	if len(overflow) > 0 {
		return &TooMuchMetadataError{Entries: overflow}
	}
	return nil
}

// known metadata IDs; parsing halts at the first unrecognized one.
var knownMetaIDs = map[MetadataID]bool{
	IDFileName: true, IDContainerName: true, IDFileSize: true,
	IDFileModTime: true, IDEncodeTime: true, IDHash: true,
	IDRSData: true, IDRSParity: true,
}

// UnpackMetadata parses TLV entries from src in a single pass, halting at
// the first unknown ID or a length that would exceed the remaining buffer.
// A buffer of all PaddingByte (or any unrecognized leading ID) yields an
// empty, non-error entry list.
func UnpackMetadata(src []byte) ([]MetadataEntry, error) {
	var entries []MetadataEntry
	pos := 0
	for pos+metaPreambleLen <= len(src) {
		id := MetadataID(src[pos : pos+3])
		if !knownMetaIDs[id] {
			break
		}
		length := int(src[pos+3])
		if pos+metaPreambleLen+length > len(src) {
			break
		}
		value := make([]byte, length)
		copy(value, src[pos+metaPreambleLen:pos+metaPreambleLen+length])
		entries = append(entries, MetadataEntry{ID: id, Value: value})
		pos += metaPreambleLen + length
	}
	return entries, nil
}

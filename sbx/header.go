package sbx

import "encoding/binary"

// Header is the 16-byte record every SBX block begins with.
type Header struct {
	Version Version
	CRC     uint16
	FileUID [FileUIDSize]byte
	SeqNum  uint32
}

// IsMeta reports whether the header identifies a metadata block
// (sequence number 0).
func (h Header) IsMeta() bool { return h.SeqNum == 0 }

// IsData reports whether the header identifies a data block
// (sequence number >= 1).
func (h Header) IsData() bool { return h.SeqNum != 0 }

// crcCCITTTable is the standard CRC-CCITT (polynomial 0x1021) lookup table.
// No third-party CRC-CCITT implementation is available anywhere in the
// retrieved example pack (hash/crc32 only covers CRC-32 variants), so this
// is hand-rolled in the same spirit as the teacher's own crc32c_update.
var crcCCITTTable = func() [256]uint16 {
	const poly = 0x1021
	var tab [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		tab[i] = crc
	}
	return tab
}()

func crcCCITTUpdate(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = (crc << 8) ^ crcCCITTTable[byte(crc>>8)^b]
	}
	return crc
}

// headerCRC computes the CRC-CCITT over the version byte, file UID,
// sequence number, and payload, seeded per version.
func headerCRC(version Version, uid [FileUIDSize]byte, seqNum uint32, payload []byte) uint16 {
	crc := version.crcSeed()
	crc = crcCCITTUpdate(crc, []byte{byte(version)})
	crc = crcCCITTUpdate(crc, uid[:])
	var seqBuf [4]byte
	binary.BigEndian.PutUint32(seqBuf[:], seqNum)
	crc = crcCCITTUpdate(crc, seqBuf[:])
	crc = crcCCITTUpdate(crc, payload)
	return crc
}

// encodeHeader writes the 16-byte header into dst, computing CRC over
// payload. dst must be exactly HeaderSize bytes.
func encodeHeader(h Header, payload []byte, dst []byte) {
	_ = dst[:HeaderSize]
	dst[0], dst[1], dst[2] = Signature[0], Signature[1], Signature[2]
	dst[3] = byte(h.Version)
	crc := headerCRC(h.Version, h.FileUID, h.SeqNum, payload)
	binary.BigEndian.PutUint16(dst[4:6], crc)
	copy(dst[6:6+FileUIDSize], h.FileUID[:])
	binary.BigEndian.PutUint32(dst[12:16], h.SeqNum)
}

// decodeHeader parses and validates the 16-byte header in src against the
// payload that follows it. It returns KindFormat on signature, version, or
// CRC mismatch.
func decodeHeader(src []byte, payload []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, newErr(KindFormat, "header buffer too short: %d bytes", len(src))
	}
	if src[0] != Signature[0] || src[1] != Signature[1] || src[2] != Signature[2] {
		return Header{}, newErr(KindFormat, "signature mismatch")
	}
	version, err := ParseVersion(src[3])
	if err != nil {
		return Header{}, wrapErr(KindFormat, err, "unrecognized version")
	}
	var h Header
	h.Version = version
	h.CRC = binary.BigEndian.Uint16(src[4:6])
	copy(h.FileUID[:], src[6:6+FileUIDSize])
	h.SeqNum = binary.BigEndian.Uint32(src[12:16])

	want := headerCRC(h.Version, h.FileUID, h.SeqNum, payload)
	if want != h.CRC {
		return Header{}, newErr(KindFormat, "CRC mismatch: stored %#04x, computed %#04x", h.CRC, want)
	}
	return h, nil
}

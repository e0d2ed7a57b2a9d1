package sbx

// Block is a header paired with the payload view it was encoded from or
// decoded into. The codec never owns long-lived block trees: a Block is
// just a struct plus a reference to the byte slice backing it.
type Block struct {
	Header  Header
	Payload []byte
}

// IsMeta reports whether this block is a metadata block.
func (b Block) IsMeta() bool { return b.Header.IsMeta() }

// IsData reports whether this block is a data block.
func (b Block) IsData() bool { return b.Header.IsData() }

// EncodeBlock serializes header and payload into out, which must be exactly
// version.BlockSize() bytes. payload must be exactly version.DataSize()
// bytes; the caller is responsible for padding it beforehand.
func EncodeBlock(version Version, uid [FileUIDSize]byte, seqNum uint32, payload []byte, out []byte) error {
	blockSize := version.BlockSize()
	if blockSize == 0 {
		return newErr(KindUsage, "unrecognized version %v", version)
	}
	if len(out) != blockSize {
		return newErr(KindInvariant, "output buffer is %d bytes, want %d", len(out), blockSize)
	}
	if len(payload) != version.DataSize() {
		return newErr(KindInvariant, "payload is %d bytes, want %d", len(payload), version.DataSize())
	}
	h := Header{Version: version, FileUID: uid, SeqNum: seqNum}
	copy(out[HeaderSize:], payload)
	encodeHeader(h, payload, out[:HeaderSize])
	return nil
}

// DecodeBlock parses buf (exactly version.BlockSize() bytes, with version
// known from context) into a Block. It rejects signature mismatch, unknown
// version, and CRC mismatch as KindFormat errors.
func DecodeBlock(version Version, buf []byte) (Block, error) {
	blockSize := version.BlockSize()
	if len(buf) != blockSize {
		return Block{}, newErr(KindFormat, "buffer is %d bytes, want %d for %v", len(buf), blockSize, version)
	}
	payload := buf[HeaderSize:]
	h, err := decodeHeader(buf[:HeaderSize], payload)
	if err != nil {
		return Block{}, err
	}
	if h.Version != version {
		return Block{}, newErr(KindFormat, "block declares version %v, scanned as %v", h.Version, version)
	}
	return Block{Header: h, Payload: payload}, nil
}

// DecodeBlockAnyVersion tries every known version's block size against buf,
// used when scanning a misaligned stream without knowing the candidate
// version ahead of time. It returns the first version whose declared size
// matches len(buf) and whose header parses and CRC-verifies.
func DecodeBlockAnyVersion(buf []byte) (Block, error) {
	for _, v := range []Version{V1, V2, V3, V17, V18, V19} {
		if v.BlockSize() != len(buf) {
			continue
		}
		if blk, err := DecodeBlock(v, buf); err == nil {
			return blk, nil
		}
	}
	return Block{}, newErr(KindFormat, "no known version matches a %d-byte block", len(buf))
}

func fillPadding(payload []byte, from int) {
	for i := from; i < len(payload); i++ {
		payload[i] = PaddingByte
	}
}

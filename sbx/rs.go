package sbx

import "github.com/klauspost/reedsolomon"

// maxTotalShards mirrors spec.md §4.3: total shard count over 256 is
// rejected up front.
const maxTotalShards = 256

// RSCodec is a thin wrapper over klauspost/reedsolomon exposing exactly the
// contract spec.md §4.3 asks for: encode(data) -> parity, and
// reconstruct(shards, present).
type RSCodec struct {
	data   int
	parity int
	enc    reedsolomon.Encoder
}

// NewRSCodec constructs a codec for the given (data, parity) shape.
func NewRSCodec(data, parity int) (*RSCodec, error) {
	if data < 1 {
		return nil, newErr(KindUsage, "too few data shards: %d", data)
	}
	if parity < 1 {
		return nil, newErr(KindUsage, "too few parity shards: %d", parity)
	}
	if data+parity > maxTotalShards {
		return nil, newErr(KindInvariant, "total shards %d exceeds maximum %d", data+parity, maxTotalShards)
	}
	enc, err := reedsolomon.New(data, parity)
	if err != nil {
		return nil, wrapErr(KindRS, err, "constructing reed-solomon(%d,%d)", data, parity)
	}
	return &RSCodec{data: data, parity: parity, enc: enc}, nil
}

// Data returns the configured data shard count.
func (c *RSCodec) Data() int { return c.data }

// Parity returns the configured parity shard count.
func (c *RSCodec) Parity() int { return c.parity }

// Total returns data+parity.
func (c *RSCodec) Total() int { return c.data + c.parity }

// Encode fills the last c.Parity() shards of shards from the first
// c.Data() shards. len(shards) must equal c.Total() and every shard must be
// the same length.
func (c *RSCodec) Encode(shards [][]byte) error {
	if len(shards) != c.Total() {
		return newErr(KindInvariant, "encode: got %d shards, want %d", len(shards), c.Total())
	}
	if err := c.enc.Encode(shards); err != nil {
		return wrapErr(KindRS, err, "reed-solomon encode")
	}
	return nil
}

// Reconstruct fills in the missing (present[i]==false) shards of shards in
// place. Requires at least c.Data() shards present; fails (KindRS) when
// under-determined.
func (c *RSCodec) Reconstruct(shards [][]byte, present []bool) error {
	if len(shards) != c.Total() || len(present) != c.Total() {
		return newErr(KindInvariant, "reconstruct: got %d shards/%d present flags, want %d", len(shards), len(present), c.Total())
	}
	count := 0
	for _, p := range present {
		if p {
			count++
		}
	}
	if count < c.data {
		return newErr(KindRS, "only %d of %d required shards present", count, c.data)
	}
	// reedsolomon.Encoder.Reconstruct expects nil entries for missing
	// shards rather than a side-channel presence slice.
	saved := make([][]byte, len(shards))
	for i, p := range present {
		if !p {
			saved[i] = shards[i]
			shards[i] = nil
		}
	}
	if err := c.enc.Reconstruct(shards); err != nil {
		return wrapErr(KindRS, err, "reed-solomon reconstruct")
	}
	for i, p := range present {
		if !p {
			copy(saved[i], shards[i])
			shards[i] = saved[i]
		}
	}
	return nil
}

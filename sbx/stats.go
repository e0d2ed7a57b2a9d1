package sbx

import (
	"sync"
	"time"
)

// Stats accumulates counters across an encode/decode/repair run. Per
// spec.md §9, the writer owns Stats exclusively and the rest of the
// pipeline only ever reads a Snapshot, breaking the cyclic dependency
// between the writer (which updates counters) and the Encoder (which
// reports totals at the end).
type Stats struct {
	mu sync.Mutex

	MetaBlocksWritten int
	DataBlocksWritten int
	ParityBlocksWritten int
	PaddingBytes      int64
	BytesProcessed    int64
	StartedAt         time.Time
}

// NewStats returns a Stats with StartedAt set to the provided start time
// (Encoder.Encode and Decoder.Decode pass time.Now()).
func NewStats(start time.Time) *Stats {
	return &Stats{StartedAt: start}
}

// Snapshot is an immutable copy of the counters at one instant.
type Snapshot struct {
	MetaBlocksWritten   int
	DataBlocksWritten   int
	ParityBlocksWritten int
	PaddingBytes        int64
	BytesProcessed      int64
	Elapsed             time.Duration
}

func (s *Stats) addMeta(n int) {
	s.mu.Lock()
	s.MetaBlocksWritten += n
	s.mu.Unlock()
}

func (s *Stats) addData(n int) {
	s.mu.Lock()
	s.DataBlocksWritten += n
	s.mu.Unlock()
}

func (s *Stats) addParity(n int) {
	s.mu.Lock()
	s.ParityBlocksWritten += n
	s.mu.Unlock()
}

func (s *Stats) addPadding(n int64) {
	s.mu.Lock()
	s.PaddingBytes += n
	s.mu.Unlock()
}

func (s *Stats) addBytesProcessed(n int64) {
	s.mu.Lock()
	s.BytesProcessed += n
	s.mu.Unlock()
}

// Snapshot returns a consistent, point-in-time copy of the counters, with
// Elapsed computed against now.
func (s *Stats) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		MetaBlocksWritten:   s.MetaBlocksWritten,
		DataBlocksWritten:   s.DataBlocksWritten,
		ParityBlocksWritten: s.ParityBlocksWritten,
		PaddingBytes:        s.PaddingBytes,
		BytesProcessed:      s.BytesProcessed,
		Elapsed:             now.Sub(s.StartedAt),
	}
}

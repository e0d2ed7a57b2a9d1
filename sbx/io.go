package sbx

import "io"

// Reader is the read capability the core needs from an input source:
// stdin implementations satisfy this without also satisfying Seeker.
type Reader interface {
	io.Reader
}

// Writer is the write capability every output sink must offer.
type Writer interface {
	io.Writer
}

// ReadSeeker is satisfied by any regular file input; stdin degrades to
// just Reader.
type ReadSeeker interface {
	io.Reader
	io.Seeker
}

// WriteSeeker is satisfied by any regular file output; stdout degrades to
// just Writer, and the Encoder/Decoder fall back accordingly (losing the
// ability to rewrite the metadata block in place, or to emit output
// out-of-order).
type WriteSeeker interface {
	io.Writer
	io.Seeker
}

// ReadWriteSeeker is the capability the Repairer needs: a container it can
// both read from and patch in place.
type ReadWriteSeeker interface {
	io.Reader
	io.Writer
	io.Seeker
}

// seekableWriter adapts an io.Writer that may or may not implement
// io.Seeker into the subset of capabilities the writer-side pipeline needs,
// tracking whether seeking is actually available.
type seekableWriter struct {
	w       io.Writer
	seeker  io.Seeker
	seekOK  bool
}

func newSeekableWriter(w io.Writer) *seekableWriter {
	s, ok := w.(io.Seeker)
	return &seekableWriter{w: w, seeker: s, seekOK: ok}
}

func (s *seekableWriter) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *seekableWriter) CanSeek() bool { return s.seekOK }

func (s *seekableWriter) SeekTo(offset int64) error {
	if !s.seekOK {
		return newErr(KindIO, "output does not support seeking")
	}
	_, err := s.seeker.Seek(offset, io.SeekStart)
	if err != nil {
		return wrapErr(KindIO, err, "seeking to offset %d", offset)
	}
	return nil
}

// seekableReader is the read-side analogue of seekableWriter.
type seekableReader struct {
	r      io.Reader
	seeker io.Seeker
	seekOK bool
}

func newSeekableReader(r io.Reader) *seekableReader {
	s, ok := r.(io.Seeker)
	return &seekableReader{r: r, seeker: s, seekOK: ok}
}

func (s *seekableReader) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *seekableReader) CanSeek() bool { return s.seekOK }

func (s *seekableReader) SeekTo(offset int64) error {
	if !s.seekOK {
		return newErr(KindIO, "input does not support seeking")
	}
	_, err := s.seeker.Seek(offset, io.SeekStart)
	if err != nil {
		return wrapErr(KindIO, err, "seeking to offset %d", offset)
	}
	return nil
}

// Size returns the total size of the underlying stream, if it supports
// seeking (used to resolve input size for the Encoder).
func (s *seekableReader) Size() (int64, bool) {
	if !s.seekOK {
		return 0, false
	}
	cur, err := s.seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false
	}
	end, err := s.seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, false
	}
	_, _ = s.seeker.Seek(cur, io.SeekStart)
	return end, true
}

package protocol

import (
	"errors"
	"io"
)

// readChunkSize is how many bytes ReadFrame asks the reader for at a time.
const readChunkSize = 4096

// Decoder turns an arbitrarily chunked byte stream into frames. Bytes are
// appended with Feed and frames are taken with Next until it reports
// ErrNeedMoreData. A Decoder is not safe for concurrent use.
type Decoder struct {
	buf        []byte
	maxPayload int
	chunk      []byte
}

// NewDecoder returns a Decoder that rejects payloads longer than maxPayload.
// A maxPayload <= 0 selects DefaultMaxPayload.
func NewDecoder(maxPayload int) *Decoder {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}

	return &Decoder{maxPayload: maxPayload}
}

// Feed appends p to the accumulation buffer. p is copied.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes waiting to be decoded.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next decodes the next complete frame from the buffer.
//
// Returns:
//   - The next frame
//   - ErrNeedMoreData when the buffered bytes do not yet form a frame
//   - A *MalformedFrameError; the stream cannot be resynchronized after one
func (d *Decoder) Next() (Frame, error) {
	f, n, err := Decode(d.buf, d.maxPayload)
	if err != nil {
		return nil, err
	}

	d.buf = d.buf[n:]
	if len(d.buf) == 0 {
		// drop the backing array so a large frame is not retained
		d.buf = nil
	}

	return f, nil
}

// ReadFrame returns the next frame, reading from r as often as needed.
// It returns io.EOF only when r ends on a frame boundary; a stream that ends
// inside a frame yields io.ErrUnexpectedEOF.
func (d *Decoder) ReadFrame(r io.Reader) (Frame, error) {
	if d.chunk == nil {
		d.chunk = make([]byte, readChunkSize)
	}

	for {
		f, err := d.Next()
		if err == nil {
			return f, nil
		}

		if !errors.Is(err, ErrNeedMoreData) {
			return nil, err
		}

		n, err := r.Read(d.chunk)
		if n > 0 {
			d.Feed(d.chunk[:n])
		}

		if err != nil {
			if n > 0 {
				// decode what arrived before surfacing the error
				if f, derr := d.Next(); derr == nil {
					return f, nil
				} else if !errors.Is(derr, ErrNeedMoreData) {
					return nil, derr
				}
			}

			if errors.Is(err, io.EOF) && d.Buffered() > 0 {
				return nil, io.ErrUnexpectedEOF
			}

			return nil, err
		}
	}
}

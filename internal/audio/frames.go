package audio

import "io"

// FrameReader wraps PCM data and hands it out in fixed-size frames.
// The final frame is zero-padded so the tail of the audio is not dropped.
type FrameReader struct {
	data       []byte
	frameBytes int
	offset     int
}

// NewFrameReader creates a frame reader producing frames of frameBytes bytes.
func NewFrameReader(data []byte, frameBytes int) *FrameReader {
	return &FrameReader{data: data, frameBytes: frameBytes}
}

// ReadFrame reads the next frame. Returns io.EOF when the data is exhausted.
func (r *FrameReader) ReadFrame() ([]byte, error) {
	if r.frameBytes <= 0 || r.offset >= len(r.data) {
		return nil, io.EOF
	}

	end := r.offset + r.frameBytes
	if end <= len(r.data) {
		frame := r.data[r.offset:end]
		r.offset = end
		return frame, nil
	}

	frame := make([]byte, r.frameBytes)
	copy(frame, r.data[r.offset:])
	r.offset = len(r.data)
	return frame, nil
}

// Reset rewinds the reader to the beginning.
func (r *FrameReader) Reset() {
	r.offset = 0
}

// Offset returns the current read position in bytes.
func (r *FrameReader) Offset() int {
	return r.offset
}

// Remaining returns the number of bytes not yet read.
func (r *FrameReader) Remaining() int {
	return len(r.data) - r.offset
}

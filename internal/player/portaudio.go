package player

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/dgnsrekt/ttsconverter-go/internal/audio"
)

// DefaultFramesPerBuffer is the PortAudio buffer size in samples per channel.
const DefaultFramesPerBuffer = 1024

// PortAudioSink plays PCM on the default output device.
// The stream is opened lazily and reopened when the format changes.
type PortAudioSink struct {
	framesPerBuffer int

	mu          sync.Mutex
	initialized bool
	stream      *portaudio.Stream
	format      audio.Format
	buffer      []int16
}

// NewPortAudioSink creates a sink. framesPerBuffer <= 0 selects the default.
func NewPortAudioSink(framesPerBuffer int) *PortAudioSink {
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	return &PortAudioSink{framesPerBuffer: framesPerBuffer}
}

// Prepare opens an output stream in format f. The device plays any format,
// so f is returned unchanged.
func (s *PortAudioSink) Prepare(_ context.Context, f audio.Format) (audio.Format, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil && s.format == f {
		return f, s.framesPerBuffer, nil
	}
	if err := s.closeStream(); err != nil {
		return audio.Format{}, 0, err
	}

	if !s.initialized {
		if err := portaudio.Initialize(); err != nil {
			return audio.Format{}, 0, err
		}
		s.initialized = true
	}

	buffer := make([]int16, s.framesPerBuffer*f.Channels)
	stream, err := portaudio.OpenDefaultStream(0, f.Channels, float64(f.SampleRate), s.framesPerBuffer, buffer)
	if err != nil {
		return audio.Format{}, 0, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return audio.Format{}, 0, err
	}

	s.stream = stream
	s.format = f
	s.buffer = buffer
	return f, s.framesPerBuffer, nil
}

// WriteFrame copies little-endian samples into the stream buffer and writes it.
func (s *PortAudioSink) WriteFrame(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return errors.New("stream not opened")
	}

	n := len(frame) / 2
	if n > len(s.buffer) {
		n = len(s.buffer)
	}
	for i := 0; i < n; i++ {
		s.buffer[i] = int16(binary.LittleEndian.Uint16(frame[i*2:]))
	}
	clear(s.buffer[n:])

	return s.stream.Write()
}

func (s *PortAudioSink) closeStream() error {
	if s.stream == nil {
		return nil
	}
	stream := s.stream
	s.stream = nil
	return errors.Join(stream.Stop(), stream.Close())
}

// Close closes the stream and shuts PortAudio down.
func (s *PortAudioSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.closeStream()
	if s.initialized {
		err = errors.Join(err, portaudio.Terminate())
		s.initialized = false
	}
	return err
}

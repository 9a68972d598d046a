package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"

	"github.com/dgnsrekt/ttsconverter-go/internal/wav"
)

// ErrUnsupportedFormat is returned when a file cannot be decoded without ffmpeg.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// DefaultFormat is used when ffmpeg decodes a container with no preferred format.
var DefaultFormat = Format{SampleRate: 44100, Channels: 2}

// Decoder loads audio files into PCM.
// WAV and MP3 are decoded in-process; other containers need ffmpeg.
type Decoder struct {
	converter *Converter
	logger    *slog.Logger
}

// NewDecoder creates a decoder. converter may be nil when ffmpeg is unavailable.
func NewDecoder(converter *Converter, logger *slog.Logger) *Decoder {
	return &Decoder{converter: converter, logger: logger}
}

// Decode reads the file at path and returns its PCM samples.
func (d *Decoder) Decode(ctx context.Context, path string) (*PCM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		pcm, err := decodeWAV(data)
		if err == nil {
			return pcm, nil
		}
		if d.converter == nil {
			return nil, err
		}
		d.logger.Debug("in-process WAV decode failed, falling back to ffmpeg", "path", path, "error", err)
	case ".mp3":
		return decodeMP3(data)
	}

	if d.converter == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return d.converter.ConvertToPCM(ctx, data, DefaultFormat)
}

func decodeWAV(data []byte) (*PCM, error) {
	decoded, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &PCM{
		Format: Format{SampleRate: decoded.SampleRate, Channels: decoded.Channels},
		Data:   decoded.PCM,
	}, nil
}

// decodeMP3 decodes MP3 data; go-mp3 always yields 16-bit stereo.
func decodeMP3(data []byte) (*PCM, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	return &PCM{
		Format: Format{SampleRate: dec.SampleRate(), Channels: 2},
		Data:   pcm,
	}, nil
}

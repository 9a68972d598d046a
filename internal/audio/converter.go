package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/dgnsrekt/ttsconverter-go/internal/wav"
)

var (
	// ErrFFmpegNotFound is returned when ffmpeg is not installed.
	ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")
	// ErrConversionFailed is returned when ffmpeg conversion fails.
	ErrConversionFailed = errors.New("audio conversion failed")
)

// Converter transcodes audio with ffmpeg.
type Converter struct {
	ffmpegPath string
}

// NewConverter creates a converter for the named ffmpeg binary, resolved through PATH.
func NewConverter(name string) (*Converter, error) {
	if name == "" {
		name = "ffmpeg"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, ErrFFmpegNotFound
	}
	return &Converter{ffmpegPath: path}, nil
}

// NewConverterWithPath creates a converter with a specific ffmpeg path.
func NewConverterWithPath(path string) *Converter {
	return &Converter{ffmpegPath: path}
}

// ConvertToPCM converts any audio container ffmpeg understands (WAV, MP3, AIFF...)
// to raw 16-bit signed little-endian PCM in the target format.
func (c *Converter) ConvertToPCM(ctx context.Context, input []byte, target Format) (*PCM, error) {
	if len(input) == 0 {
		return nil, errors.New("empty input data")
	}

	// -i pipe:0: read from stdin, let ffmpeg detect the container
	// -ar/-ac: output sample rate and channel count
	// -f s16le: raw 16-bit signed little-endian to stdout
	args := []string{
		"-i", "pipe:0",
		"-ar", fmt.Sprintf("%d", target.SampleRate),
		"-ac", fmt.Sprintf("%d", target.Channels),
		"-f", "s16le",
		"-loglevel", "error",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrConversionFailed, stderr.String())
	}

	return &PCM{Format: target, Data: stdout.Bytes()}, nil
}

// Resample converts PCM to another sample rate and channel count.
func (c *Converter) Resample(ctx context.Context, pcm *PCM, target Format) (*PCM, error) {
	if pcm.Format == target {
		return pcm, nil
	}
	input := wav.WrapRawPCM(pcm.Data, pcm.Format.SampleRate, pcm.Format.Channels, wav.BitsPerSample)
	return c.ConvertToPCM(ctx, input, target)
}

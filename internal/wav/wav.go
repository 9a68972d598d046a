// Package wav builds and decodes WAV audio files.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	gowav "github.com/go-audio/wav"
)

// WAV format constants.
const (
	// HeaderSize is the size of a canonical WAV header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format code for uncompressed PCM.
	FormatPCM = 1

	// BitsPerSample is the bit depth produced by Decode and expected by WrapRawPCM callers.
	BitsPerSample = 16
)

var (
	// ErrInvalidFile is returned when the input is not a RIFF/WAVE PCM file.
	ErrInvalidFile = errors.New("invalid WAV file")
	// ErrUnsupportedDepth is returned for bit depths other than 8, 16, 24 or 32.
	ErrUnsupportedDepth = errors.New("unsupported WAV bit depth")
)

// Decoded is a WAV file reduced to interleaved 16-bit little-endian PCM.
type Decoded struct {
	SampleRate int
	Channels   int
	PCM        []byte
}

// Decode reads a complete WAV file and converts its samples to 16-bit PCM.
func Decode(r io.ReadSeeker) (*Decoded, error) {
	d := gowav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if buf == nil || buf.Format == nil {
		return nil, ErrInvalidFile
	}

	depth := int(d.BitDepth)
	pcm := make([]byte, len(buf.Data)*2)
	for i, v := range buf.Data {
		s, err := to16(v, depth)
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	return &Decoded{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		PCM:        pcm,
	}, nil
}

// to16 rescales a sample of the given bit depth to int16.
func to16(v, depth int) (int16, error) {
	switch depth {
	case 8:
		// 8-bit WAV is unsigned.
		return int16((v - 128) << 8), nil
	case 16:
		return int16(v), nil
	case 24:
		return int16(v >> 8), nil
	case 32:
		return int16(v >> 16), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedDepth, depth)
	}
}

// WrapRawPCM adds a WAV header to raw PCM data.
// Parameters:
//   - pcm: raw PCM audio data bytes
//   - sampleRate: samples per second (e.g., 22050, 44100, 48000)
//   - channels: number of audio channels (1=mono, 2=stereo)
//   - bitsPerSample: bit depth per sample (typically 16)
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, HeaderSize)
	le := binary.LittleEndian

	// RIFF header
	copy(header[0:4], "RIFF")
	le.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	le.PutUint32(header[16:20], 16)
	le.PutUint16(header[20:22], FormatPCM)
	le.PutUint16(header[22:24], uint16(channels))
	le.PutUint32(header[24:28], uint32(sampleRate))
	le.PutUint32(header[28:32], uint32(byteRate))
	le.PutUint16(header[32:34], uint16(blockAlign))
	le.PutUint16(header[34:36], uint16(bitsPerSample))

	// data subchunk
	copy(header[36:40], "data")
	le.PutUint32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// CreateMinimal creates a silent 16-bit WAV file with the given number of samples per channel.
// Tests use it as a stand-in for synthesized speech.
func CreateMinimal(numSamples, sampleRate, channels int) []byte {
	pcm := make([]byte, numSamples*channels*BitsPerSample/8)
	return WrapRawPCM(pcm, sampleRate, channels, BitsPerSample)
}

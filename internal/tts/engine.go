// Package tts turns text into audio files using pluggable synthesis engines.
package tts

import (
	"bytes"
	"context"
	"errors"
	"io"
)

var (
	// ErrSynthesisFailed is returned when an engine could not produce audio.
	ErrSynthesisFailed = errors.New("TTS synthesis failed")
	// ErrEmptyText is returned when there is nothing to speak.
	ErrEmptyText = errors.New("empty text")
)

// SynthesizeRequest contains parameters for TTS synthesis.
type SynthesizeRequest struct {
	Text  string
	Voice string
	// Speed is a rate multiplier; 1.0 is the engine's normal rate.
	Speed float64
	// Pitch is a pitch multiplier; 1.0 is the engine's normal pitch.
	Pitch float64
}

// AudioResult represents synthesized audio output.
type AudioResult struct {
	// Data contains the encoded audio file bytes.
	Data []byte
	// Format is the file extension of Data, e.g. "wav" or "mp3".
	Format string
	// SampleRate is the audio sample rate in Hz, 0 if unknown.
	SampleRate int
	// Channels is the number of audio channels, 0 if unknown.
	Channels int
}

// Reader returns an io.Reader for the audio data.
func (a *AudioResult) Reader() io.Reader {
	return bytes.NewReader(a.Data)
}

// Engine is the interface for text-to-speech synthesis.
type Engine interface {
	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, req SynthesizeRequest) (*AudioResult, error)
	// Name returns the engine identifier.
	Name() string
}

func speedOrDefault(s float64) float64 {
	if s <= 0 {
		return 1.0
	}
	return s
}

func pitchOrDefault(p float64) float64 {
	if p <= 0 {
		return 1.0
	}
	return p
}

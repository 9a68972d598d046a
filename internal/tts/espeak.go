package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
)

// ErrEspeakNotFound is returned when the espeak binary is not found.
var ErrEspeakNotFound = errors.New("espeak binary not found")

// espeak's own pitch scale runs 0..99 with 50 as the normal voice.
const (
	espeakDefaultPitch = 50
	espeakMaxPitch     = 99
)

// EspeakConfig holds configuration for the espeak engine.
type EspeakConfig struct {
	// BinaryPath is espeak-ng or espeak.
	BinaryPath string
	// BaseRateWPM is the speaking rate at speed 1.0, in words per minute.
	BaseRateWPM float64
	// DefaultVoice is passed with -v when the request has no voice.
	DefaultVoice string
}

// EspeakEngine implements Engine with the espeak-ng command line tool.
type EspeakEngine struct {
	config EspeakConfig
	logger *slog.Logger
}

// NewEspeakEngine creates a new espeak engine.
func NewEspeakEngine(cfg EspeakConfig, logger *slog.Logger) (*EspeakEngine, error) {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "espeak-ng"
	}
	if _, err := exec.LookPath(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEspeakNotFound, cfg.BinaryPath)
	}
	if cfg.BaseRateWPM <= 0 {
		cfg.BaseRateWPM = 200
	}
	return &EspeakEngine{config: cfg, logger: logger}, nil
}

// Name returns the engine identifier.
func (e *EspeakEngine) Name() string {
	return "espeak"
}

// espeakPitch maps a pitch multiplier onto espeak's 0..99 scale.
func espeakPitch(factor float64) int {
	p := int(math.Round(pitchOrDefault(factor) * espeakDefaultPitch))
	if p < 0 {
		return 0
	}
	if p > espeakMaxPitch {
		return espeakMaxPitch
	}
	return p
}

// espeakRate returns the words-per-minute rate for a speed multiplier.
func espeakRate(base, speed float64) int {
	return int(math.Round(base * speedOrDefault(speed)))
}

func (e *EspeakEngine) args(req SynthesizeRequest, output string) []string {
	args := []string{
		"-s", strconv.Itoa(espeakRate(e.config.BaseRateWPM, req.Speed)),
		"-p", strconv.Itoa(espeakPitch(req.Pitch)),
		"-w", output,
	}
	voice := req.Voice
	if voice == "" {
		voice = e.config.DefaultVoice
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	return append(args, "--stdin")
}

// Synthesize speaks the text into a temporary WAV file and returns its contents.
func (e *EspeakEngine) Synthesize(ctx context.Context, req SynthesizeRequest) (*AudioResult, error) {
	if req.Text == "" {
		return nil, ErrEmptyText
	}

	tmp, err := os.CreateTemp("", "espeak-*.wav")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	args := e.args(req, tmpPath)
	e.logger.Debug("running espeak",
		"binary", e.config.BinaryPath,
		"args", args,
		"text_length", len(req.Text),
	)

	cmd := exec.CommandContext(ctx, e.config.BinaryPath, args...)
	cmd.Stdin = bytes.NewReader([]byte(req.Text))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("espeak failed", "error", err, "stderr", stderr.String())
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no audio output", ErrSynthesisFailed)
	}

	return &AudioResult{Data: data, Format: "wav"}, nil
}

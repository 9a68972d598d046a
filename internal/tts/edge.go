package tts

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/wujunwei928/edge-tts-go/edge_tts"
)

// DefaultEdgeVoice is used when no voice is configured.
const DefaultEdgeVoice = "en-US-AriaNeural"

const (
	// edgePitchHzPerUnit is the pitch offset for each unit of pitch multiplier above 1.0.
	edgePitchHzPerUnit = 50
	edgeMinPitchHz     = -50
	edgeMaxPitchHz     = 100
)

// EdgeEngine implements Engine with Microsoft Edge online voices.
// The service returns MP3. Speed becomes a relative prosody rate and pitch a
// Hz offset from the voice's normal pitch.
type EdgeEngine struct {
	voice  string
	logger *slog.Logger
}

// NewEdgeEngine creates an Edge engine speaking with the given voice.
func NewEdgeEngine(voice string, logger *slog.Logger) *EdgeEngine {
	if voice == "" {
		voice = DefaultEdgeVoice
	}
	return &EdgeEngine{voice: voice, logger: logger}
}

// Name returns the engine identifier.
func (e *EdgeEngine) Name() string {
	return "edge"
}

// edgeRate maps a speed multiplier to a prosody rate such as "+50%" or "-25%".
func edgeRate(speed float64) string {
	pct := int(math.Round((speedOrDefault(speed) - 1) * 100))
	return fmt.Sprintf("%+d%%", pct)
}

// edgePitch maps a pitch multiplier to a prosody pitch such as "+50Hz".
func edgePitch(factor float64) string {
	hz := int(math.Round((pitchOrDefault(factor) - 1) * edgePitchHzPerUnit))
	hz = max(edgeMinPitchHz, min(edgeMaxPitchHz, hz))
	return fmt.Sprintf("%+dHz", hz)
}

// options builds the communicate options for a request.
func (e *EdgeEngine) options(req SynthesizeRequest) (voice string, opts []edge_tts.CommunicateOption) {
	voice = req.Voice
	if voice == "" {
		voice = e.voice
	}
	return voice, []edge_tts.CommunicateOption{
		edge_tts.SetVoice(voice),
		edge_tts.SetRate(edgeRate(req.Speed)),
		edge_tts.SetPitch(edgePitch(req.Pitch)),
	}
}

// Synthesize fetches MP3 audio for the text.
func (e *EdgeEngine) Synthesize(ctx context.Context, req SynthesizeRequest) (*AudioResult, error) {
	if req.Text == "" {
		return nil, ErrEmptyText
	}

	voice, opts := e.options(req)
	communicate, err := edge_tts.NewCommunicate(req.Text, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	// Stream has no context support; run it aside so cancellation returns promptly.
	go func() {
		data, err := communicate.Stream()
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			e.logger.Error("edge synthesis failed", "voice", voice, "error", r.err)
			return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, r.err)
		}
		if len(r.data) == 0 {
			return nil, fmt.Errorf("%w: no audio output", ErrSynthesisFailed)
		}
		e.logger.Debug("edge synthesis complete", "voice", voice, "output_bytes", len(r.data))
		return &AudioResult{Data: r.data, Format: "mp3"}, nil
	}
}

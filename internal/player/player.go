// Package player plays decoded audio files through a Sink and tracks the
// Idle, Playing and Paused states.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dgnsrekt/ttsconverter-go/internal/audio"
)

var (
	// ErrInvalidState is returned for a transition the current state does not allow.
	ErrInvalidState = errors.New("invalid player state")
	// ErrNothingLoaded is returned by Replay before any file was played.
	ErrNothingLoaded = errors.New("no audio loaded")
	// ErrFormatMismatch is returned when the sink needs another format and no resampler is set.
	ErrFormatMismatch = errors.New("sink format differs and no resampler is available")
)

// State is the playback state.
type State int

const (
	Idle State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sink receives PCM frames.
type Sink interface {
	// Prepare readies the output for audio in format f and returns the format
	// frames must be written in and the number of samples per channel in a frame.
	Prepare(ctx context.Context, f audio.Format) (audio.Format, int, error)
	// WriteFrame blocks until the frame has been accepted.
	WriteFrame(ctx context.Context, frame []byte) error
	// Close releases the output device. A later Prepare reopens it.
	Close() error
}

// Decoder loads an audio file into PCM.
type Decoder interface {
	Decode(ctx context.Context, path string) (*audio.PCM, error)
}

// Resampler converts PCM to another format.
type Resampler interface {
	Resample(ctx context.Context, pcm *audio.PCM, target audio.Format) (*audio.PCM, error)
}

// Player is safe for concurrent use.
type Player struct {
	sink      Sink
	decoder   Decoder
	resampler Resampler
	logger    *slog.Logger

	mu     sync.Mutex
	state  State
	path   string
	source *audio.PCM
	output *audio.PCM
	cancel context.CancelFunc
	done   chan struct{}
	// resume is non-nil while paused and is closed to continue.
	resume     chan struct{}
	gen        uint64
	onFinished func()
}

// New creates a player. resampler may be nil if the sink accepts any format.
func New(sink Sink, decoder Decoder, resampler Resampler, logger *slog.Logger) *Player {
	return &Player{
		sink:      sink,
		decoder:   decoder,
		resampler: resampler,
		logger:    logger,
	}
}

// SetOnFinished registers a callback run when audio plays to its end.
// It is not called after Stop.
func (p *Player) SetOnFinished(fn func()) {
	p.mu.Lock()
	p.onFinished = fn
	p.mu.Unlock()
}

// State returns the current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsPlaying reports whether audio is actively playing.
func (p *Player) IsPlaying() bool {
	return p.State() == Playing
}

// Loaded returns the path of the last loaded file, or "" if none.
func (p *Player) Loaded() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

// Play loads the file at path and plays it from the beginning.
// Anything already playing is stopped first. ctx bounds loading only.
func (p *Player) Play(ctx context.Context, path string) error {
	if err := p.Stop(); err != nil {
		return err
	}

	pcm, err := p.decoder.Decode(ctx, path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	p.mu.Lock()
	p.path = path
	p.source = pcm
	p.output = nil
	p.mu.Unlock()

	p.logger.Debug("audio loaded", "path", path, "format", pcm.Format.String(), "duration", pcm.Duration())
	return p.start(ctx)
}

// Replay restarts the last loaded audio from the beginning.
func (p *Player) Replay(ctx context.Context) error {
	p.mu.Lock()
	loaded := p.source != nil
	state := p.state
	p.mu.Unlock()

	if !loaded {
		return ErrNothingLoaded
	}
	if state != Idle {
		return fmt.Errorf("%w: replay while %s", ErrInvalidState, state)
	}
	return p.start(ctx)
}

// start prepares the sink and launches playback of the loaded audio.
func (p *Player) start(ctx context.Context) error {
	p.mu.Lock()
	source, output := p.source, p.output
	p.mu.Unlock()

	target, frameSamples, err := p.sink.Prepare(ctx, source.Format)
	if err != nil {
		return fmt.Errorf("prepare sink: %w", err)
	}

	if output == nil || output.Format != target {
		output = source
		if source.Format != target {
			if p.resampler == nil {
				return fmt.Errorf("%w: have %s, want %s", ErrFormatMismatch, source.Format, target)
			}
			output, err = p.resampler.Resample(ctx, source, target)
			if err != nil {
				return fmt.Errorf("resample: %w", err)
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Idle {
		return fmt.Errorf("%w: start while %s", ErrInvalidState, p.state)
	}

	playCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.output = output
	p.gen++
	p.state = Playing
	p.cancel = cancel
	p.done = done
	p.resume = nil

	reader := audio.NewFrameReader(output.Data, target.FrameBytes(frameSamples))
	go p.run(playCtx, reader, p.gen, done)
	return nil
}

func (p *Player) run(ctx context.Context, reader *audio.FrameReader, gen uint64, done chan struct{}) {
	defer close(done)

	for {
		p.mu.Lock()
		gate := p.resume
		p.mu.Unlock()

		if gate != nil {
			select {
			case <-ctx.Done():
				return
			case <-gate:
			}
		}

		frame, err := reader.ReadFrame()
		if err == io.EOF {
			p.finish(gen)
			return
		}

		if err := p.sink.WriteFrame(ctx, frame); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("audio output failed", "error", err)
			p.finish(gen)
			return
		}
	}
}

// finish returns to Idle after playback ran out, unless Stop or a newer
// playback got there first.
func (p *Player) finish(gen uint64) {
	p.mu.Lock()
	if p.gen != gen || p.state == Idle {
		p.mu.Unlock()
		return
	}
	p.state = Idle
	p.cancel()
	p.cancel = nil
	p.done = nil
	p.resume = nil
	cb := p.onFinished
	p.mu.Unlock()

	p.logger.Debug("playback finished")
	if cb != nil {
		cb()
	}
}

// Pause suspends playback, keeping the position.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Playing {
		return fmt.Errorf("%w: pause while %s", ErrInvalidState, p.state)
	}
	p.state = Paused
	p.resume = make(chan struct{})
	return nil
}

// Resume continues paused playback from where it stopped.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Paused {
		return fmt.Errorf("%w: resume while %s", ErrInvalidState, p.state)
	}
	close(p.resume)
	p.resume = nil
	p.state = Playing
	return nil
}

// TogglePause pauses when playing and resumes when paused. It does nothing when Idle.
func (p *Player) TogglePause() (State, error) {
	switch p.State() {
	case Playing:
		if err := p.Pause(); err != nil {
			return p.State(), err
		}
		return Paused, nil
	case Paused:
		if err := p.Resume(); err != nil {
			return p.State(), err
		}
		return Playing, nil
	default:
		return Idle, nil
	}
}

// Stop ends playback and discards the position. Stopping while Idle does nothing.
// It returns once the playback goroutine has exited.
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.state == Idle {
		p.mu.Unlock()
		return nil
	}
	cancel, done := p.cancel, p.done
	p.state = Idle
	p.gen++
	p.cancel = nil
	p.done = nil
	p.resume = nil
	p.mu.Unlock()

	cancel()
	<-done
	p.logger.Debug("playback stopped")
	return nil
}

// Release closes the sink while nothing is playing. The next playback reopens it.
func (p *Player) Release() error {
	if p.State() != Idle {
		return nil
	}
	return p.sink.Close()
}

// Close stops playback and closes the sink.
func (p *Player) Close() error {
	return errors.Join(p.Stop(), p.sink.Close())
}

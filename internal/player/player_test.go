package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgnsrekt/ttsconverter-go/internal/audio"
)

var testFormat = audio.Format{SampleRate: 8000, Channels: 1}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSink records frames and optionally slows each write down.
type fakeSink struct {
	format       audio.Format // zero means accept the input format
	frameSamples int
	delay        time.Duration
	prepareErr   error

	mu       sync.Mutex
	frames   [][]byte
	prepares int
	closes   int
}

func (s *fakeSink) Prepare(_ context.Context, f audio.Format) (audio.Format, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepares++
	if s.prepareErr != nil {
		return audio.Format{}, 0, s.prepareErr
	}
	if s.format != (audio.Format{}) {
		f = s.format
	}
	return f, s.frameSamples, nil
}

func (s *fakeSink) WriteFrame(ctx context.Context, frame []byte) error {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
	}
	s.mu.Lock()
	s.frames = append(s.frames, append([]byte(nil), frame...))
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *fakeSink) firstByteOf(i int) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[i][0]
}

// fakeDecoder returns frames numbered 0..n-1 so positions can be checked.
type fakeDecoder struct {
	frames       int
	frameSamples int
	err          error
	calls        atomic.Int32
}

func (d *fakeDecoder) Decode(_ context.Context, _ string) (*audio.PCM, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	frameBytes := testFormat.FrameBytes(d.frameSamples)
	data := make([]byte, d.frames*frameBytes)
	for i := 0; i < d.frames; i++ {
		data[i*frameBytes] = byte(i)
	}
	return &audio.PCM{Format: testFormat, Data: data}, nil
}

type fakeResampler struct {
	calls atomic.Int32
}

func (r *fakeResampler) Resample(_ context.Context, pcm *audio.PCM, target audio.Format) (*audio.PCM, error) {
	r.calls.Add(1)
	return &audio.PCM{Format: target, Data: pcm.Data}, nil
}

func newTestPlayer(sink *fakeSink, dec *fakeDecoder) (*Player, chan struct{}) {
	p := New(sink, dec, nil, discardLogger())
	finished := make(chan struct{}, 4)
	p.SetOnFinished(func() { finished <- struct{}{} })
	return p, finished
}

func waitFinished(t *testing.T, finished <-chan struct{}) {
	t.Helper()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not finish")
	}
}

func waitFrames(t *testing.T, sink *fakeSink, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for sink.frameCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d frames written, want %d", sink.frameCount(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPlayer_InitialState(t *testing.T) {
	p, _ := newTestPlayer(&fakeSink{frameSamples: 4}, &fakeDecoder{frames: 1, frameSamples: 4})

	if p.State() != Idle {
		t.Errorf("State() = %v, want idle", p.State())
	}
	if p.IsPlaying() {
		t.Error("IsPlaying() = true on a new player")
	}
	if p.Loaded() != "" {
		t.Errorf("Loaded() = %q, want empty", p.Loaded())
	}
}

func TestPlayer_InvalidTransitions(t *testing.T) {
	p, _ := newTestPlayer(&fakeSink{frameSamples: 4}, &fakeDecoder{frames: 1, frameSamples: 4})

	if err := p.Pause(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Pause() from idle error = %v, want ErrInvalidState", err)
	}
	if err := p.Resume(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Resume() from idle error = %v, want ErrInvalidState", err)
	}
	if err := p.Replay(context.Background()); !errors.Is(err, ErrNothingLoaded) {
		t.Errorf("Replay() before Play error = %v, want ErrNothingLoaded", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() from idle error = %v, want nil", err)
	}
}

func TestPlayer_TogglePauseIdleIsNoop(t *testing.T) {
	p, _ := newTestPlayer(&fakeSink{frameSamples: 4}, &fakeDecoder{frames: 1, frameSamples: 4})

	state, err := p.TogglePause()
	if err != nil {
		t.Fatalf("TogglePause() error = %v", err)
	}
	if state != Idle || p.State() != Idle {
		t.Errorf("TogglePause() from idle moved to %v", state)
	}
}

func TestPlayer_PlaysToEnd(t *testing.T) {
	sink := &fakeSink{frameSamples: 4}
	p, finished := newTestPlayer(sink, &fakeDecoder{frames: 5, frameSamples: 4})

	if err := p.Play(context.Background(), "speech.wav"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	waitFinished(t, finished)

	if p.State() != Idle {
		t.Errorf("State() after end = %v, want idle", p.State())
	}
	if got := sink.frameCount(); got != 5 {
		t.Errorf("frames written = %d, want 5", got)
	}
	if p.Loaded() != "speech.wav" {
		t.Errorf("Loaded() = %q, want speech.wav", p.Loaded())
	}
}

func TestPlayer_PauseKeepsPosition(t *testing.T) {
	sink := &fakeSink{frameSamples: 4, delay: 2 * time.Millisecond}
	p, finished := newTestPlayer(sink, &fakeDecoder{frames: 40, frameSamples: 4})

	if err := p.Play(context.Background(), "speech.wav"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	waitFrames(t, sink, 5)

	state, err := p.TogglePause()
	if err != nil || state != Paused {
		t.Fatalf("TogglePause() = %v, %v, want paused", state, err)
	}

	// At most the in-flight frame completes after pausing.
	time.Sleep(10 * time.Millisecond)
	atPause := sink.frameCount()
	time.Sleep(20 * time.Millisecond)
	if got := sink.frameCount(); got != atPause {
		t.Errorf("frames advanced while paused: %d -> %d", atPause, got)
	}

	if state, err := p.TogglePause(); err != nil || state != Playing {
		t.Fatalf("TogglePause() = %v, %v, want playing", state, err)
	}
	waitFinished(t, finished)

	if got := sink.frameCount(); got != 40 {
		t.Fatalf("frames written = %d, want 40", got)
	}
	for i := 0; i < 40; i++ {
		if b := sink.firstByteOf(i); b != byte(i) {
			t.Fatalf("frame %d starts with %d, want %d", i, b, i)
		}
	}
}

func TestPlayer_StopDiscardsPosition(t *testing.T) {
	sink := &fakeSink{frameSamples: 4, delay: time.Millisecond}
	dec := &fakeDecoder{frames: 200, frameSamples: 4}
	p, finished := newTestPlayer(sink, dec)

	if err := p.Play(context.Background(), "speech.wav"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	waitFrames(t, sink, 3)

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if p.State() != Idle {
		t.Errorf("State() after Stop = %v, want idle", p.State())
	}
	stoppedAt := sink.frameCount()

	select {
	case <-finished:
		t.Error("OnFinished should not fire after Stop")
	case <-time.After(10 * time.Millisecond):
	}

	if err := p.Replay(context.Background()); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	waitFrames(t, sink, stoppedAt+1)
	if b := sink.firstByteOf(stoppedAt); b != 0 {
		t.Errorf("replay started at frame %d, want 0", b)
	}
	if dec.calls.Load() != 1 {
		t.Errorf("decoder called %d times, want 1", dec.calls.Load())
	}
	p.Stop()
}

func TestPlayer_StopWhilePaused(t *testing.T) {
	sink := &fakeSink{frameSamples: 4, delay: time.Millisecond}
	p, _ := newTestPlayer(sink, &fakeDecoder{frames: 100, frameSamples: 4})

	if err := p.Play(context.Background(), "speech.wav"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if err := p.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() while paused did not return")
	}
	if p.State() != Idle {
		t.Errorf("State() = %v, want idle", p.State())
	}
}

func TestPlayer_ReplayWhilePlaying(t *testing.T) {
	sink := &fakeSink{frameSamples: 4, delay: time.Millisecond}
	p, _ := newTestPlayer(sink, &fakeDecoder{frames: 100, frameSamples: 4})
	defer p.Stop()

	if err := p.Play(context.Background(), "speech.wav"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if err := p.Replay(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Replay() while playing error = %v, want ErrInvalidState", err)
	}
}

func TestPlayer_PlayReplacesCurrent(t *testing.T) {
	sink := &fakeSink{frameSamples: 4, delay: time.Millisecond}
	dec := &fakeDecoder{frames: 100, frameSamples: 4}
	p, _ := newTestPlayer(sink, dec)
	defer p.Stop()

	if err := p.Play(context.Background(), "first.wav"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if err := p.Play(context.Background(), "second.wav"); err != nil {
		t.Fatalf("second Play() error = %v", err)
	}
	if p.State() != Playing {
		t.Errorf("State() = %v, want playing", p.State())
	}
	if p.Loaded() != "second.wav" {
		t.Errorf("Loaded() = %q, want second.wav", p.Loaded())
	}
}

func TestPlayer_DecodeError(t *testing.T) {
	p, _ := newTestPlayer(&fakeSink{frameSamples: 4}, &fakeDecoder{err: errors.New("corrupt")})

	if err := p.Play(context.Background(), "bad.wav"); err == nil {
		t.Fatal("Play() should fail on decode error")
	}
	if p.State() != Idle {
		t.Errorf("State() = %v, want idle", p.State())
	}
}

func TestPlayer_PrepareError(t *testing.T) {
	sink := &fakeSink{frameSamples: 4, prepareErr: errors.New("no device")}
	p, _ := newTestPlayer(sink, &fakeDecoder{frames: 1, frameSamples: 4})

	if err := p.Play(context.Background(), "speech.wav"); err == nil {
		t.Fatal("Play() should fail when the sink cannot be prepared")
	}
	if p.State() != Idle {
		t.Errorf("State() = %v, want idle", p.State())
	}
}

func TestPlayer_Resamples(t *testing.T) {
	sinkFormat := audio.Format{SampleRate: 48000, Channels: 2}
	sink := &fakeSink{format: sinkFormat, frameSamples: 2}
	resampler := &fakeResampler{}
	p := New(sink, &fakeDecoder{frames: 4, frameSamples: 4}, resampler, discardLogger())
	finished := make(chan struct{}, 2)
	p.SetOnFinished(func() { finished <- struct{}{} })

	if err := p.Play(context.Background(), "speech.wav"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	waitFinished(t, finished)

	if err := p.Replay(context.Background()); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	waitFinished(t, finished)

	if got := resampler.calls.Load(); got != 1 {
		t.Errorf("resampler called %d times, want 1 (cached for replay)", got)
	}
}

func TestPlayer_FormatMismatchWithoutResampler(t *testing.T) {
	sink := &fakeSink{format: audio.Format{SampleRate: 48000, Channels: 2}, frameSamples: 2}
	p, _ := newTestPlayer(sink, &fakeDecoder{frames: 1, frameSamples: 4})

	if err := p.Play(context.Background(), "speech.wav"); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Play() error = %v, want ErrFormatMismatch", err)
	}
}

func TestPlayer_ReleaseAndClose(t *testing.T) {
	sink := &fakeSink{frameSamples: 4}
	p, _ := newTestPlayer(sink, &fakeDecoder{frames: 1, frameSamples: 4})

	if err := p.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if sink.closes != 2 {
		t.Errorf("sink closed %d times, want 2", sink.closes)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Idle:      "idle",
		Playing:   "playing",
		Paused:    "paused",
		State(42): "State(42)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}

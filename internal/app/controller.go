// Package app coordinates the text buffer, speech rendering, playback and
// highlighting behind the operations the window and control API expose.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgnsrekt/ttsconverter-go/internal/config"
	"github.com/dgnsrekt/ttsconverter-go/internal/player"
	"github.com/dgnsrekt/ttsconverter-go/internal/queue"
	"github.com/dgnsrekt/ttsconverter-go/internal/tts"
)

var (
	// ErrEmptyInput is a warning: there is no text to convert.
	ErrEmptyInput = errors.New("please enter some text to convert")
	// ErrNoAudio is a warning: nothing has been rendered yet.
	ErrNoAudio = errors.New("no audio has been generated yet")
	// ErrSave is returned when the rendered audio could not be copied.
	ErrSave = errors.New("failed to save audio")
)

// IsWarning reports whether err should be shown as a warning rather than an error.
func IsWarning(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrNoAudio)
}

// TextSource holds the text buffer.
type TextSource interface {
	Load(path string) error
	Text() string
	SetText(text string) bool
}

// Renderer synthesizes text into an audio file.
type Renderer interface {
	Render(ctx context.Context, text string, speed, pitch float64) (string, error)
}

// Player is the part of player.Player the controller drives directly.
type Player interface {
	State() player.State
	Stop() error
	TogglePause() (player.State, error)
}

// Queue runs playback cycles.
type Queue interface {
	Replace(job *queue.PlaybackJob) error
	Interrupt()
}

// Listener is told about changes made through the controller, so a window can
// mirror changes that arrived from elsewhere.
type Listener interface {
	TextChanged(text string)
	SettingsChanged(speed, pitch float64)
}

// Status is a snapshot of the session.
type Status struct {
	State     string  `json:"state"`
	Speed     float64 `json:"speed"`
	Pitch     float64 `json:"pitch"`
	AudioPath string  `json:"audio_path,omitempty"`
}

// rendering remembers what produced the current audio file.
type rendering struct {
	text  string
	speed float64
	pitch float64
	path  string
}

// Controller owns the session state. It is safe for concurrent use.
type Controller struct {
	source   TextSource
	renderer Renderer
	player   Player
	queue    Queue
	logger   *slog.Logger

	// convertMu serializes whole convert and save operations.
	convertMu sync.Mutex

	mu       sync.Mutex
	speed    float64
	pitch    float64
	last     *rendering
	listener Listener
}

// NewController creates a controller with default speed and pitch.
func NewController(source TextSource, renderer Renderer, p Player, q Queue, logger *slog.Logger) *Controller {
	return &Controller{
		source:   source,
		renderer: renderer,
		player:   p,
		queue:    q,
		logger:   logger,
		speed:    config.DefaultSpeed,
		pitch:    config.DefaultPitch,
	}
}

// SetListener registers the listener for text and setting changes.
func (c *Controller) SetListener(l Listener) {
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()
}

// ConvertAndPlay stops any active playback and speaks the current text.
// Audio is synthesized again only when the text, speed or pitch differ from
// the last successful rendering; otherwise the existing audio is replayed
// from the beginning.
func (c *Controller) ConvertAndPlay(ctx context.Context) error {
	c.convertMu.Lock()
	defer c.convertMu.Unlock()

	if err := c.stopPlayback(); err != nil {
		return err
	}

	text := c.source.Text()
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	speed, pitch, last := c.speed, c.pitch, c.last
	c.mu.Unlock()

	var job *queue.PlaybackJob
	if last != nil && last.text == text && last.speed == speed && last.pitch == pitch {
		c.logger.Debug("replaying existing audio", "path", last.path)
		job = queue.NewReplayJob(text, last.path)
	} else {
		path, err := c.renderer.Render(ctx, text, speed, pitch)
		if err != nil {
			if errors.Is(err, tts.ErrEmptyText) {
				return ErrEmptyInput
			}
			c.logger.Error("synthesis failed", "error", err)
			return err
		}

		c.mu.Lock()
		c.last = &rendering{text: text, speed: speed, pitch: pitch, path: path}
		c.mu.Unlock()
		job = queue.NewPlaybackJob(text, path)
	}

	if err := c.queue.Replace(job); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	c.logger.Info("playback started", "job_id", job.ID, "replay", job.Replay)
	return nil
}

// Speak replaces the text and settings, then converts and plays.
func (c *Controller) Speak(ctx context.Context, text string, speed, pitch float64) error {
	c.SetText(text)
	if speed > 0 {
		c.SetSpeed(speed)
	}
	if pitch > 0 {
		c.SetPitch(pitch)
	}

	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()
	if l != nil {
		l.TextChanged(text)
		l.SettingsChanged(c.Speed(), c.Pitch())
	}
	return c.ConvertAndPlay(ctx)
}

// SaveAsAudio copies the most recently rendered audio file to dest.
// Playback is stopped first.
func (c *Controller) SaveAsAudio(dest string) error {
	c.convertMu.Lock()
	defer c.convertMu.Unlock()

	c.mu.Lock()
	last := c.last
	c.mu.Unlock()

	if last == nil {
		return ErrNoAudio
	}

	if err := c.stopPlayback(); err != nil {
		return err
	}

	if filepath.Clean(dest) == filepath.Clean(last.path) {
		return nil
	}
	if err := copyFile(last.path, dest); err != nil {
		c.logger.Error("save failed", "path", dest, "error", err)
		return fmt.Errorf("%w: %v", ErrSave, err)
	}

	c.logger.Info("audio saved", "path", dest)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// StopAudio stops playback and highlighting.
func (c *Controller) StopAudio() error {
	return c.stopPlayback()
}

// stopPlayback stops the player when active and waits for the playback
// cycle to end, so the preview is cleared before the next cycle.
func (c *Controller) stopPlayback() error {
	var err error
	if c.player.State() != player.Idle {
		err = c.player.Stop()
	}
	c.queue.Interrupt()
	return err
}

// PauseResumeAudio pauses when playing, resumes when paused and does nothing when idle.
func (c *Controller) PauseResumeAudio() (player.State, error) {
	state, err := c.player.TogglePause()
	if err != nil {
		return state, err
	}
	c.logger.Debug("pause toggled", "state", state.String())
	return state, nil
}

// LoadTextFromFile replaces the buffer with the file contents and returns them.
// The buffer is unchanged on error.
func (c *Controller) LoadTextFromFile(path string) (string, error) {
	if err := c.source.Load(path); err != nil {
		c.logger.Warn("load failed", "path", path, "error", err)
		return "", err
	}
	text := c.source.Text()
	c.logger.Info("text loaded", "path", path, "length", len(text))
	return text, nil
}

// SetText replaces the buffer.
func (c *Controller) SetText(text string) {
	c.source.SetText(text)
}

// Text returns the buffer.
func (c *Controller) Text() string {
	return c.source.Text()
}

// SetSpeed sets the speed multiplier, snapped to the slider step and range.
func (c *Controller) SetSpeed(v float64) float64 {
	v = snap(v, config.MinSpeed, config.MaxSpeed)
	c.mu.Lock()
	c.speed = v
	c.mu.Unlock()
	return v
}

// SetPitch sets the pitch multiplier, snapped to the slider step and range.
func (c *Controller) SetPitch(v float64) float64 {
	v = snap(v, config.MinPitch, config.MaxPitch)
	c.mu.Lock()
	c.pitch = v
	c.mu.Unlock()
	return v
}

// Speed returns the speed multiplier.
func (c *Controller) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Pitch returns the pitch multiplier.
func (c *Controller) Pitch() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pitch
}

// Status returns a snapshot of the session.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		State: c.player.State().String(),
		Speed: c.speed,
		Pitch: c.pitch,
	}
	if c.last != nil {
		s.AudioPath = c.last.path
	}
	return s
}

// snap clamps v to [lo, hi] and rounds it to config.SliderStep.
func snap(v, lo, hi float64) float64 {
	steps := math.Round(v / config.SliderStep)
	v = steps / (1 / config.SliderStep)
	return math.Max(lo, math.Min(hi, v))
}

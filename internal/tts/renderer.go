package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Renderer synthesizes text with the registry's default engine and stores the
// result as an audio file in a render directory.
type Renderer struct {
	registry *Registry
	dir      string
	voice    string
	logger   *slog.Logger

	mu       sync.Mutex
	produced []string
}

// NewRenderer creates a renderer writing into dir.
func NewRenderer(registry *Registry, dir, voice string, logger *slog.Logger) *Renderer {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Renderer{
		registry: registry,
		dir:      dir,
		voice:    voice,
		logger:   logger,
	}
}

// Render synthesizes text at the given speed and pitch multipliers and returns
// the path of a freshly written audio file. Earlier files are left in place.
func (r *Renderer) Render(ctx context.Context, text string, speed, pitch float64) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	engine, err := r.registry.Default()
	if err != nil {
		return "", err
	}

	result, err := engine.Synthesize(ctx, SynthesizeRequest{
		Text:  text,
		Voice: r.voice,
		Speed: speed,
		Pitch: pitch,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, ErrSynthesisFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	path, err := r.write(result)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	r.logger.Info("speech rendered",
		"engine", engine.Name(),
		"path", path,
		"speed", speed,
		"pitch", pitch,
	)
	return path, nil
}

func (r *Renderer) write(result *AudioResult) (string, error) {
	format := result.Format
	if format == "" {
		format = "wav"
	}
	path := filepath.Join(r.dir, fmt.Sprintf("tts-%s.%s", uuid.New().String(), format))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, result.Reader()); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	r.mu.Lock()
	r.produced = append(r.produced, path)
	r.mu.Unlock()
	return path, nil
}

// Produced returns the paths written so far.
func (r *Renderer) Produced() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.produced...)
}

// Cleanup removes every file the renderer wrote.
func (r *Renderer) Cleanup() error {
	r.mu.Lock()
	paths := r.produced
	r.produced = nil
	r.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		r.logger.Warn("failed to remove rendered files", "count", len(errs))
	}
	return errors.Join(errs...)
}

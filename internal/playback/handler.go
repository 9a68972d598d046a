// Package playback runs one playback cycle: start the audio, then walk the
// word highlighter along with it.
package playback

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgnsrekt/ttsconverter-go/internal/highlight"
	"github.com/dgnsrekt/ttsconverter-go/internal/queue"
)

// ErrPlaybackFailed is returned when the audio could not be started.
var ErrPlaybackFailed = errors.New("playback failed")

// Player is the part of player.Player a cycle needs.
type Player interface {
	Play(ctx context.Context, path string) error
	Replay(ctx context.Context) error
	Stop() error
	IsPlaying() bool
	Loaded() string
}

// Highlighter walks words while active reports true.
type Highlighter interface {
	Run(ctx context.Context, text string, active func() bool, render func(highlight.Preview))
}

// View receives preview updates and playback errors.
type View interface {
	ShowPreview(p highlight.Preview)
	ShowError(err error)
}

// Handler processes playback jobs.
type Handler struct {
	player      Player
	highlighter Highlighter
	view        View
	logger      *slog.Logger
}

// NewHandler creates a new playback handler.
func NewHandler(player Player, highlighter Highlighter, view View, logger *slog.Logger) *Handler {
	return &Handler{
		player:      player,
		highlighter: highlighter,
		view:        view,
		logger:      logger,
	}
}

// Handle plays a job and highlights its words until playback leaves Playing,
// the words run out, or ctx is cancelled.
// This is the function passed to queue.SetPlaybackHandler.
func (h *Handler) Handle(ctx context.Context, job *queue.PlaybackJob) error {
	h.logger.Debug("starting playback cycle",
		"job_id", job.ID,
		"path", job.AudioPath,
		"replay", job.Replay,
	)

	// A replay only reuses the decoded audio when the player still holds the
	// job's file. After a failed load it holds an older file, or nothing.
	var err error
	if job.Replay && h.player.Loaded() == job.AudioPath {
		if err = h.player.Stop(); err == nil {
			err = h.player.Replay(ctx)
		}
	} else {
		if job.Replay {
			h.logger.Debug("replay target not loaded, loading again", "job_id", job.ID, "loaded", h.player.Loaded())
		}
		err = h.player.Play(ctx, job.AudioPath)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h.logger.Error("playback failed", "job_id", job.ID, "path", job.AudioPath, "error", err)
		err = errors.Join(ErrPlaybackFailed, err)
		h.view.ShowError(err)
		return err
	}

	h.highlighter.Run(ctx, job.Text, h.player.IsPlaying, h.view.ShowPreview)

	if ctx.Err() != nil {
		h.logger.Debug("playback cycle interrupted", "job_id", job.ID)
		return ctx.Err()
	}
	h.logger.Debug("playback cycle complete", "job_id", job.ID)
	return nil
}

package queue

import (
	"time"

	"github.com/google/uuid"
)

// PlaybackJob is one playback cycle: play a rendered file (or replay the
// loaded one) and highlight its text.
type PlaybackJob struct {
	ID        string
	Text      string
	AudioPath string
	Replay    bool
	CreatedAt time.Time
}

// NewPlaybackJob creates a job that plays audioPath from the beginning.
func NewPlaybackJob(text, audioPath string) *PlaybackJob {
	return &PlaybackJob{
		ID:        uuid.New().String(),
		Text:      text,
		AudioPath: audioPath,
		CreatedAt: time.Now(),
	}
}

// NewReplayJob creates a job that replays the already loaded audio for text.
func NewReplayJob(text, audioPath string) *PlaybackJob {
	job := NewPlaybackJob(text, audioPath)
	job.Replay = true
	return job
}

// Age returns how long ago the job was created.
func (j *PlaybackJob) Age() time.Duration {
	return time.Since(j.CreatedAt)
}

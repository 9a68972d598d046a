// Package text holds the text buffer that gets converted to speech.
package text

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

var (
	// ErrFileNotFound is returned when the file to load does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrFileRead is returned when the file exists but cannot be read.
	ErrFileRead = errors.New("failed to read file")
)

// Source is the text buffer, either typed by the user or loaded from a file.
type Source struct {
	mu   sync.RWMutex
	text string
}

// NewSource creates an empty text source.
func NewSource() *Source {
	return &Source{}
}

// Load replaces the buffer with the full contents of the file at path.
// The buffer is left untouched when the file cannot be read.
func (s *Source) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("%w: %v", ErrFileRead, err)
	}

	s.SetText(string(data))
	return nil
}

// Text returns the current buffer content.
func (s *Source) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// SetText replaces the buffer content. It reports whether the content changed.
func (s *Source) SetText(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.text == text {
		return false
	}
	s.text = text
	return true
}

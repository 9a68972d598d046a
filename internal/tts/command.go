package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"
)

// ErrInvalidCommand is returned when the command template cannot be parsed.
var ErrInvalidCommand = errors.New("invalid TTS command template")

// Placeholders understood by CommandEngine templates.
const (
	placeholderText   = "{text}"
	placeholderOutput = "{output}"
	placeholderRate   = "{rate}"
	placeholderPitch  = "{pitch}"
	placeholderVoice  = "{voice}"
)

// CommandEngine runs an arbitrary synthesizer described by a shell-words template,
// for example `say -r {rate} -o {output} {text}`.
// Without {text} the text is written to stdin; without {output} audio is read from stdout.
type CommandEngine struct {
	argv   []string
	format string
	voice  string
	logger *slog.Logger
}

// NewCommandEngine parses the template. format is the extension of the produced audio.
func NewCommandEngine(template, format, voice string, logger *slog.Logger) (*CommandEngine, error) {
	argv, err := shellwords.NewParser().Parse(template)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidCommand)
	}
	if format == "" {
		format = "wav"
	}
	return &CommandEngine{argv: argv, format: format, voice: voice, logger: logger}, nil
}

// Name returns the engine identifier.
func (c *CommandEngine) Name() string {
	return "command"
}

func (c *CommandEngine) uses(placeholder string) bool {
	for _, a := range c.argv {
		if strings.Contains(a, placeholder) {
			return true
		}
	}
	return false
}

// expand substitutes placeholders in every argument.
func (c *CommandEngine) expand(req SynthesizeRequest, output string) []string {
	voice := req.Voice
	if voice == "" {
		voice = c.voice
	}
	r := strings.NewReplacer(
		placeholderText, req.Text,
		placeholderOutput, output,
		placeholderRate, strconv.FormatFloat(speedOrDefault(req.Speed), 'f', 2, 64),
		placeholderPitch, strconv.FormatFloat(pitchOrDefault(req.Pitch), 'f', 2, 64),
		placeholderVoice, voice,
	)
	out := make([]string, len(c.argv))
	for i, a := range c.argv {
		out[i] = r.Replace(a)
	}
	return out
}

// Synthesize runs the command and collects the audio it produced.
func (c *CommandEngine) Synthesize(ctx context.Context, req SynthesizeRequest) (*AudioResult, error) {
	if req.Text == "" {
		return nil, ErrEmptyText
	}

	var output string
	if c.uses(placeholderOutput) {
		tmp, err := os.CreateTemp("", "tts-command-*."+c.format)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
		}
		output = tmp.Name()
		tmp.Close()
		defer os.Remove(output)
	}

	args := c.expand(req, output)
	c.logger.Debug("running tts command", "binary", args[0], "text_length", len(req.Text))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if !c.uses(placeholderText) {
		cmd.Stdin = strings.NewReader(req.Text)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("tts command failed", "error", err, "stderr", stderr.String())
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	data := stdout.Bytes()
	if output != "" {
		var err error
		data, err = os.ReadFile(output)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no audio output", ErrSynthesisFailed)
	}

	return &AudioResult{Data: data, Format: c.format}, nil
}

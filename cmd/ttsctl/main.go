package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dgnsrekt/ttsconverter-go/internal/client"
	"github.com/dgnsrekt/ttsconverter-go/internal/logging"
)

const usage = `usage: ttsctl <command> [arguments]

commands:
  health                      check that the converter is reachable
  status                      print the player state and settings
  speak [-speed N] [-pitch N] TEXT...
                              speak TEXT (or stdin when TEXT is "-")
  pause                       toggle pause/resume
  stop                        stop playback
  save PATH                   save the last rendering to PATH on the converter host
`

var errUsage = errors.New("invalid usage")

func main() {
	cfg, err := client.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(cfg, logger)
	if err := run(ctx, c, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "ttsctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "health":
		if err := c.Health(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")

	case "status":
		status, err := c.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "state=%s speed=%.1f pitch=%.1f", status.State, status.Speed, status.Pitch)
		if status.AudioPath != "" {
			fmt.Fprintf(stdout, " audio=%s", status.AudioPath)
		}
		fmt.Fprintln(stdout)

	case "speak":
		fs := flag.NewFlagSet("speak", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		speed := fs.Float64("speed", 0, "speed multiplier (0 keeps the current value)")
		pitch := fs.Float64("pitch", 0, "pitch multiplier (0 keeps the current value)")
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}

		text := strings.Join(fs.Args(), " ")
		if text == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(data)
		}
		if strings.TrimSpace(text) == "" {
			return errUsage
		}

		status, err := c.Speak(ctx, text, *speed, *pitch)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, status.State)

	case "pause":
		state, err := c.Pause(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, state)

	case "stop":
		state, err := c.Stop(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, state)

	case "save":
		if len(rest) != 1 {
			return errUsage
		}
		if err := c.Save(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "saved", rest[0])

	default:
		return errUsage
	}

	return nil
}

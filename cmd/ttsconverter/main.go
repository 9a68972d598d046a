package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	fyneapp "fyne.io/fyne/v2/app"

	"github.com/dgnsrekt/ttsconverter-go/internal/api"
	"github.com/dgnsrekt/ttsconverter-go/internal/app"
	"github.com/dgnsrekt/ttsconverter-go/internal/audio"
	"github.com/dgnsrekt/ttsconverter-go/internal/config"
	"github.com/dgnsrekt/ttsconverter-go/internal/discord"
	"github.com/dgnsrekt/ttsconverter-go/internal/gui"
	"github.com/dgnsrekt/ttsconverter-go/internal/highlight"
	"github.com/dgnsrekt/ttsconverter-go/internal/logging"
	"github.com/dgnsrekt/ttsconverter-go/internal/playback"
	"github.com/dgnsrekt/ttsconverter-go/internal/player"
	"github.com/dgnsrekt/ttsconverter-go/internal/queue"
	"github.com/dgnsrekt/ttsconverter-go/internal/text"
	"github.com/dgnsrekt/ttsconverter-go/internal/tts"
)

// commandOutputFormat is the container TTS_COMMAND templates are expected to write.
const commandOutputFormat = "wav"

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		// Use stderr before logger is initialized
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting ttsconverter", "version", "0.1.0")

	logger.Info("configuration loaded",
		"engine", cfg.Engine,
		"output_sink", cfg.OutputSink,
		"render_dir", cfg.RenderDir,
		"highlight_unit", cfg.HighlightUnit,
		"auto_release_idle", cfg.AutoReleaseIdle,
		"control_port", cfg.ControlPort,
		"log_level", cfg.LogLevel,
	)

	registry := registerEngines(cfg, logger)
	if engine, err := registry.Default(); err != nil {
		logger.Warn("no TTS engine available, conversion will fail", "error", err)
	} else if engine.Name() != registry.Preferred() {
		logger.Warn("configured TTS engine unavailable, using fallback",
			"engine", registry.Preferred(), "fallback", engine.Name())
	}
	renderer := tts.NewRenderer(registry, cfg.RenderDir, cfg.Voice, logger)

	// ffmpeg is optional: WAV and MP3 decode natively, resampling needs it
	var resampler player.Resampler
	converter, err := audio.NewConverter(cfg.FFmpegPath)
	if err != nil {
		logger.Warn("ffmpeg not available, audio will only play at its native format", "error", err)
	} else {
		resampler = converter
	}
	decoder := audio.NewDecoder(converter, logger)

	var (
		sink         player.Sink
		voiceManager *discord.VoiceManager
	)
	switch cfg.OutputSink {
	case "discord":
		voiceManager, err = discord.NewVoiceManager(cfg.DiscordToken, cfg.GuildID, cfg.VoiceChannelID, logger)
		if err != nil {
			logger.Error("failed to create voice manager", "error", err)
			os.Exit(1)
		}
		if err := voiceManager.Open(); err != nil {
			logger.Error("failed to open Discord session", "error", err)
			os.Exit(1)
		}
		logger.Info("Discord session opened")
		sink = voiceManager
	default:
		sink = player.NewPortAudioSink(player.DefaultFramesPerBuffer)
	}

	audioPlayer := player.New(sink, decoder, resampler, logger)
	audioPlayer.SetOnFinished(func() {
		logger.Debug("playback finished")
	})

	playbackQueue := queue.NewQueue(1, cfg.AutoReleaseIdle, logger)
	playbackQueue.SetIdleCallback(func() {
		logger.Info("player idle, releasing audio output")
		if err := audioPlayer.Release(); err != nil {
			logger.Error("failed to release audio output", "error", err)
		}
	})
	playbackQueue.SetJobCompletedCallback(func(job *queue.PlaybackJob) {
		logger.Debug("playback cycle ended", "job_id", job.ID, "age", job.Age())
	})

	ctrl := app.NewController(text.NewSource(), renderer, audioPlayer, playbackQueue, logger)

	window := gui.New(fyneapp.NewWithID("io.github.dgnsrekt.ttsconverter"), ctrl, logger)
	ctrl.SetListener(window)

	highlighter := highlight.New(highlight.LengthProportional{Unit: cfg.HighlightUnit})
	handler := playback.NewHandler(audioPlayer, highlighter, window, logger)
	playbackQueue.SetPlaybackHandler(handler.Handle)
	playbackQueue.Start()

	var server *api.Server
	if cfg.ControlEnabled() {
		if cfg.AuthDisabled() {
			logger.Warn("control API bearer authentication is disabled (BEARER_TOKEN is empty)")
		}
		server = api.New(cfg, logger, ctrl)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("control API error", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		window.Quit()
	}()

	// Blocks until the window is closed or a signal quits the app
	window.Run()

	shutdown(logger, server, playbackQueue, audioPlayer, voiceManager, renderer)
	logger.Info("shutdown complete")
}

// registerEngines registers every engine the configuration makes usable.
// Engines whose binaries are missing are skipped with a warning. The
// configured engine renders whenever it registered.
func registerEngines(cfg *config.Config, logger *slog.Logger) *tts.Registry {
	registry := tts.NewRegistry(cfg.Engine, tts.FallbackOrder...)

	register := func(engine tts.Engine, err error) {
		if err != nil {
			logger.Warn("TTS engine unavailable", "error", err)
			return
		}
		if err := registry.Register(engine); err != nil {
			logger.Warn("failed to register TTS engine", "engine", engine.Name(), "error", err)
			return
		}
		logger.Info("TTS engine registered", "engine", engine.Name())
	}

	register(tts.NewEspeakEngine(tts.EspeakConfig{
		BinaryPath:   cfg.EspeakPath,
		BaseRateWPM:  cfg.BaseRateWPM,
		DefaultVoice: cfg.Voice,
	}, logger))
	if cfg.PiperModel != "" {
		register(tts.NewPiperEngine(tts.PiperConfig{
			BinaryPath:   cfg.PiperPath,
			ModelPath:    cfg.PiperModel,
			DefaultVoice: cfg.Voice,
		}, logger))
	}
	if cfg.TTSCommand != "" {
		register(tts.NewCommandEngine(cfg.TTSCommand, commandOutputFormat, cfg.Voice, logger))
	}
	register(tts.NewEdgeEngine(cfg.EdgeVoice, logger), nil)

	return registry
}

func shutdown(logger *slog.Logger, server *api.Server, q *queue.Queue, p *player.Player, vm *discord.VoiceManager, r *tts.Renderer) {
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown control API", "error", err)
		}
	}

	q.Stop()

	if err := p.Close(); err != nil {
		logger.Error("failed to close player", "error", err)
	}

	if vm != nil {
		if err := vm.Shutdown(); err != nil {
			logger.Error("failed to close Discord session", "error", err)
		}
	}

	if err := r.Cleanup(); err != nil {
		logger.Error("failed to remove rendered audio", "error", err)
	}
}

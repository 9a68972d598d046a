// Package discord sends spoken audio to a Discord voice channel.
package discord

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"

	"github.com/dgnsrekt/ttsconverter-go/internal/audio"
)

const (
	// SampleRate is the sample rate Discord voice expects.
	SampleRate = 48000
	// Channels is the channel count Discord voice expects.
	Channels = 2
	// FrameSize is the number of samples per channel in a 20ms frame.
	FrameSize = 960

	// voiceConnectTimeout is the maximum time to wait for voice connection readiness.
	voiceConnectTimeout = 10 * time.Second
	// voiceConnectPollInterval is the polling interval while waiting for connection.
	voiceConnectPollInterval = 100 * time.Millisecond
	// frameDuration is the duration of one Discord audio frame (20ms).
	frameDuration = 20 * time.Millisecond
	// maxOpusDataBytes is the maximum size of an encoded Opus frame.
	maxOpusDataBytes = 4000
)

// Format is the PCM format frames must be written in.
var Format = audio.Format{SampleRate: SampleRate, Channels: Channels}

var (
	// ErrNotConnected is returned when trying to send audio while not connected.
	ErrNotConnected = errors.New("not connected to voice channel")
	// ErrConnectionFailed is returned when voice connection fails.
	ErrConnectionFailed = errors.New("failed to connect to voice channel")
)

// VoiceManager manages a Discord voice connection and plays PCM frames into it.
// It implements player.Sink: Prepare joins the channel, Close leaves it.
type VoiceManager struct {
	mu              sync.Mutex
	session         *discordgo.Session
	voiceConnection *discordgo.VoiceConnection
	guildID         string
	channelID       string
	logger          *slog.Logger
	connected       bool
	opusEncoder     *gopus.Encoder
	nextFrame       time.Time
}

// NewVoiceManager creates a new voice manager.
func NewVoiceManager(token, guildID, channelID string, logger *slog.Logger) (*VoiceManager, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	encoder, err := gopus.NewEncoder(SampleRate, Channels, gopus.Voip)
	if err != nil {
		return nil, err
	}

	return &VoiceManager{
		session:     session,
		guildID:     guildID,
		channelID:   channelID,
		logger:      logger,
		opusEncoder: encoder,
	}, nil
}

// Open opens the Discord session.
func (vm *VoiceManager) Open() error {
	return vm.session.Open()
}

// Shutdown leaves the voice channel and closes the Discord session.
func (vm *VoiceManager) Shutdown() error {
	return errors.Join(vm.Disconnect(), vm.session.Close())
}

// Prepare joins the voice channel if needed. Discord only takes 48kHz stereo,
// so that format is returned whatever f is.
func (vm *VoiceManager) Prepare(ctx context.Context, _ audio.Format) (audio.Format, int, error) {
	if err := vm.Connect(ctx); err != nil {
		return audio.Format{}, 0, err
	}

	vm.mu.Lock()
	vm.nextFrame = time.Time{}
	vm.mu.Unlock()
	return Format, FrameSize, nil
}

// Connect joins the configured voice channel.
func (vm *VoiceManager) Connect(ctx context.Context) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.connected && vm.voiceConnection != nil {
		return nil
	}

	vm.logger.Info("connecting to voice channel", "guild_id", vm.guildID, "channel_id", vm.channelID)

	// mute=false, deaf=true: nothing is ever listened to.
	vc, err := vm.session.ChannelVoiceJoin(vm.guildID, vm.channelID, false, true)
	if err != nil {
		return errors.Join(ErrConnectionFailed, err)
	}

	// discordgo's Ready is a bool, so poll with a timeout.
	deadline := time.Now().Add(voiceConnectTimeout)
	for !vc.Ready {
		if ctx.Err() != nil {
			vc.Disconnect()
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			vc.Disconnect()
			return ErrConnectionFailed
		}
		time.Sleep(voiceConnectPollInterval)
	}

	if err := vc.Speaking(true); err != nil {
		vm.logger.Warn("failed to set speaking state", "error", err)
	}

	vm.voiceConnection = vc
	vm.connected = true
	vm.logger.Info("connected to voice channel")
	return nil
}

// Close leaves the voice channel. The session stays open for the next Prepare.
func (vm *VoiceManager) Close() error {
	return vm.Disconnect()
}

// Disconnect leaves the voice channel.
func (vm *VoiceManager) Disconnect() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.voiceConnection == nil {
		vm.connected = false
		return nil
	}

	vm.logger.Info("disconnecting from voice channel")
	if err := vm.voiceConnection.Speaking(false); err != nil {
		vm.logger.Debug("failed to clear speaking state", "error", err)
	}
	err := vm.voiceConnection.Disconnect()
	vm.voiceConnection = nil
	vm.connected = false
	return err
}

// IsConnected returns whether the bot is connected to voice.
func (vm *VoiceManager) IsConnected() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.connected && vm.voiceConnection != nil
}

// WriteFrame encodes one 20ms frame of 48kHz stereo PCM and sends it,
// pacing frames at real time.
func (vm *VoiceManager) WriteFrame(ctx context.Context, frame []byte) error {
	vm.mu.Lock()
	vc := vm.voiceConnection
	connected := vm.connected
	wait := vm.reserveSlot(time.Now())
	vm.mu.Unlock()

	if !connected || vc == nil {
		return ErrNotConnected
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	opusData, err := vm.encodeOpus(frame)
	if err != nil {
		vm.logger.Error("opus encoding failed", "error", err)
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case vc.OpusSend <- opusData:
		return nil
	}
}

// reserveSlot returns how long to wait before sending the next frame and
// advances the schedule. A stalled schedule restarts at now.
func (vm *VoiceManager) reserveSlot(now time.Time) time.Duration {
	if vm.nextFrame.Before(now) {
		vm.nextFrame = now
	}
	wait := vm.nextFrame.Sub(now)
	vm.nextFrame = vm.nextFrame.Add(frameDuration)
	return wait
}

// encodeOpus converts 960 samples * 2 channels of 16-bit PCM to Opus.
func (vm *VoiceManager) encodeOpus(pcm []byte) ([]byte, error) {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return vm.opusEncoder.Encode(samples, FrameSize, maxOpusDataBytes)
}

// Package audio holds the PCM representation shared by the decoder, the
// converter and the player, plus helpers to cut PCM into output frames.
package audio

import (
	"fmt"
	"time"
)

// BytesPerSample is the size of one 16-bit signed little-endian sample.
const BytesPerSample = 2

// Format describes interleaved 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// FrameBytes returns the size in bytes of a frame holding samplesPerChannel samples.
func (f Format) FrameBytes(samplesPerChannel int) int {
	return samplesPerChannel * f.Channels * BytesPerSample
}

// PCM is decoded audio ready to be written to a sink.
type PCM struct {
	Format Format
	Data   []byte
}

// Duration returns the playing time of the PCM data.
func (p *PCM) Duration() time.Duration {
	bytesPerSecond := p.Format.SampleRate * p.Format.Channels * BytesPerSample
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(len(p.Data)) * time.Second / time.Duration(bytesPerSecond)
}

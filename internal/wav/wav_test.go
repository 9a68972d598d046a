package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

func TestWrapRawPCM(t *testing.T) {
	pcmData := []byte{0x01, 0x02, 0x03, 0x04}
	wavData := WrapRawPCM(pcmData, 22050, 1, 16)

	if len(wavData) != HeaderSize+len(pcmData) {
		t.Fatalf("expected %d bytes, got %d", HeaderSize+len(pcmData), len(wavData))
	}

	chunks := []struct {
		offset int
		want   string
	}{
		{0, "RIFF"},
		{8, "WAVE"},
		{12, "fmt "},
		{36, "data"},
	}
	for _, c := range chunks {
		if got := string(wavData[c.offset : c.offset+4]); got != c.want {
			t.Errorf("chunk at %d = %q, want %q", c.offset, got, c.want)
		}
	}

	if got := le32(wavData[4:8]); got != uint32(36+len(pcmData)) {
		t.Errorf("file size = %d, want %d", got, 36+len(pcmData))
	}
	if got := le16(wavData[20:22]); got != FormatPCM {
		t.Errorf("format = %d, want %d", got, FormatPCM)
	}
	if got := le16(wavData[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := le32(wavData[24:28]); got != 22050 {
		t.Errorf("sample rate = %d, want 22050", got)
	}
	if got := le32(wavData[28:32]); got != 22050*2 {
		t.Errorf("byte rate = %d, want %d", got, 22050*2)
	}
	if got := le16(wavData[32:34]); got != 2 {
		t.Errorf("block align = %d, want 2", got)
	}
	if got := le16(wavData[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
	if got := le32(wavData[40:44]); got != uint32(len(pcmData)) {
		t.Errorf("data size = %d, want %d", got, len(pcmData))
	}
	if !bytes.Equal(wavData[HeaderSize:], pcmData) {
		t.Error("PCM data not preserved")
	}
}

func TestCreateMinimal(t *testing.T) {
	data := CreateMinimal(100, 44100, 2)

	if len(data) != HeaderSize+100*2*2 {
		t.Errorf("len = %d, want %d", len(data), HeaderSize+400)
	}
	for _, b := range data[HeaderSize:] {
		if b != 0 {
			t.Fatal("expected silent samples")
		}
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	pcm := make([]byte, 8)
	samples := []int16{0, 1000, -1000, 32767}
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	decoded, err := Decode(bytes.NewReader(WrapRawPCM(pcm, 16000, 2, 16)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if decoded.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", decoded.SampleRate)
	}
	if decoded.Channels != 2 {
		t.Errorf("Channels = %d, want 2", decoded.Channels)
	}
	if !bytes.Equal(decoded.PCM, pcm) {
		t.Errorf("PCM = %v, want %v", decoded.PCM, pcm)
	}
}

func TestDecode_24Bit(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "deep.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := gowav.NewEncoder(f, 48000, 24, 1, FormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 48000},
		Data:           []int{0, 0x100, -0x100, 0x7FFFFF},
		SourceBitDepth: 24,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	decoded, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.SampleRate != 48000 || decoded.Channels != 1 {
		t.Errorf("format = %dHz/%dch, want 48000Hz/1ch", decoded.SampleRate, decoded.Channels)
	}

	want := []int16{0, 1, -1, 0x7FFF}
	if len(decoded.PCM) != len(want)*2 {
		t.Fatalf("len(PCM) = %d, want %d", len(decoded.PCM), len(want)*2)
	}
	for i, w := range want {
		if got := int16(le16(decoded.PCM[i*2:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("definitely not a wav file, just some text")))
	if !errors.Is(err, ErrInvalidFile) {
		t.Errorf("Decode() error = %v, want ErrInvalidFile", err)
	}
}

func TestTo16(t *testing.T) {
	tests := []struct {
		name  string
		v     int
		depth int
		want  int16
	}{
		{"8-bit midpoint", 128, 8, 0},
		{"8-bit max", 255, 8, 127 << 8},
		{"16-bit passthrough", -1234, 16, -1234},
		{"24-bit", 0x7FFFFF, 24, 0x7FFF},
		{"32-bit", -0x80000000, 32, -0x8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := to16(tt.v, tt.depth)
			if err != nil {
				t.Fatalf("to16() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("to16(%d, %d) = %d, want %d", tt.v, tt.depth, got, tt.want)
			}
		})
	}

	if _, err := to16(0, 12); !errors.Is(err, ErrUnsupportedDepth) {
		t.Errorf("to16(depth 12) error = %v, want ErrUnsupportedDepth", err)
	}
}

package tts

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
)

// fakeEngine is a test implementation of Engine that records its requests.
type fakeEngine struct {
	name   string
	format string
	data   []byte
	err    error

	mu       sync.Mutex
	requests []SynthesizeRequest
}

func (f *fakeEngine) Name() string {
	return f.name
}

func (f *fakeEngine) Synthesize(ctx context.Context, req SynthesizeRequest) (*AudioResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	data := f.data
	if data == nil {
		data = []byte("fake audio")
	}
	format := f.format
	if format == "" {
		format = "wav"
	}
	return &AudioResult{Data: data, Format: format}, nil
}

func (f *fakeEngine) calls() []SynthesizeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SynthesizeRequest(nil), f.requests...)
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry("espeak")
	if err := reg.Register(&fakeEngine{name: "espeak"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := reg.Get("espeak")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name() != "espeak" {
		t.Errorf("Name() = %q, want espeak", got.Name())
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry("espeak")
	engine := &fakeEngine{name: "espeak"}

	if err := reg.Register(engine); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := reg.Register(engine); !errors.Is(err, ErrEngineExists) {
		t.Errorf("second Register() error = %v, want ErrEngineExists", err)
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	reg := NewRegistry("")
	if _, err := reg.Get("festival"); !errors.Is(err, ErrEngineNotFound) {
		t.Errorf("Get() error = %v, want ErrEngineNotFound", err)
	}
}

func TestRegistry_Default(t *testing.T) {
	tests := []struct {
		name      string
		preferred string
		fallbacks []string
		register  []string
		want      string
	}{
		{"preferred registered last", "edge", FallbackOrder, []string{"espeak", "piper", "edge"}, "edge"},
		{"preferred registered first", "piper", FallbackOrder, []string{"piper", "espeak"}, "piper"},
		{"preferred missing uses fallback order", "piper", FallbackOrder, []string{"edge", "command", "espeak"}, "espeak"},
		{"fallback order skips missing", "piper", FallbackOrder, []string{"edge", "command"}, "command"},
		{"no fallbacks uses first name", "piper", nil, []string{"zeta", "alpha"}, "alpha"},
		{"no preference", "", FallbackOrder, []string{"edge", "piper"}, "piper"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(tt.preferred, tt.fallbacks...)
			for _, name := range tt.register {
				if err := reg.Register(&fakeEngine{name: name}); err != nil {
					t.Fatalf("Register(%s) error = %v", name, err)
				}
			}

			def, err := reg.Default()
			if err != nil {
				t.Fatalf("Default() error = %v", err)
			}
			if def.Name() != tt.want {
				t.Errorf("Default() = %q, want %q", def.Name(), tt.want)
			}
		})
	}
}

func TestRegistry_DefaultEmpty(t *testing.T) {
	for _, preferred := range []string{"", "espeak"} {
		reg := NewRegistry(preferred, FallbackOrder...)
		if _, err := reg.Default(); !errors.Is(err, ErrEngineNotFound) {
			t.Errorf("Default() with preferred %q error = %v, want ErrEngineNotFound", preferred, err)
		}
	}
}

func TestRegistry_Preferred(t *testing.T) {
	reg := NewRegistry("piper", FallbackOrder...)
	reg.Register(&fakeEngine{name: "espeak"})

	if reg.Preferred() != "piper" {
		t.Errorf("Preferred() = %q, want piper", reg.Preferred())
	}
	if def, _ := reg.Default(); def.Name() == reg.Preferred() {
		t.Error("Default() should fall back while the preferred engine is missing")
	}
}

func TestRegistry_List(t *testing.T) {
	reg := NewRegistry("espeak")
	if names := reg.List(); len(names) != 0 {
		t.Errorf("List() = %v, want empty", names)
	}

	reg.Register(&fakeEngine{name: "piper"})
	reg.Register(&fakeEngine{name: "edge"})
	reg.Register(&fakeEngine{name: "espeak"})

	want := []string{"edge", "espeak", "piper"}
	if got := reg.List(); !slices.Equal(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/ttsconverter-go/internal/api"
	"github.com/dgnsrekt/ttsconverter-go/internal/app"
	"github.com/dgnsrekt/ttsconverter-go/internal/client"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	cfg := &client.Config{APIURL: ts.URL, Timeout: 5 * time.Second}
	return client.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRun_Usage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	tests := [][]string{
		nil,
		{"shout"},
		{"save"},
		{"speak"},
		{"speak", "-volume", "3", "hi"},
	}
	for _, args := range tests {
		err := run(context.Background(), c, args, strings.NewReader(""), io.Discard)
		if !errors.Is(err, errUsage) {
			t.Errorf("run(%v) error = %v, want errUsage", args, err)
		}
	}
}

func TestRun_SpeakFromStdin(t *testing.T) {
	var mu sync.Mutex
	var got api.SpeakRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speak" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		mu.Lock()
		json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(app.Status{State: "playing", Speed: 1.2, Pitch: 1})
	})

	var out bytes.Buffer
	args := []string{"speak", "-speed", "1.2", "-"}
	if err := run(context.Background(), c, args, strings.NewReader("read from stdin"), &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got.Text != "read from stdin" || got.Speed != 1.2 || got.Pitch != 0 {
		t.Errorf("request = %+v", got)
	}
	if out.String() != "playing\n" {
		t.Errorf("output = %q, want playing", out.String())
	}
}

func TestRun_Status(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(app.Status{State: "paused", Speed: 1.5, Pitch: 2, AudioPath: "/tmp/tts-1.wav"})
	})

	var out bytes.Buffer
	if err := run(context.Background(), c, []string{"status"}, nil, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	want := "state=paused speed=1.5 pitch=2.0 audio=/tmp/tts-1.wav\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

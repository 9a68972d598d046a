package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dgnsrekt/ttsconverter-go/internal/app"
	"github.com/dgnsrekt/ttsconverter-go/internal/player"
)

// maxBodyBytes bounds request bodies, text included.
const maxBodyBytes = 1 << 20

// SpeakRequest represents the request body for /v1/speak.
// Zero speed or pitch keeps the current setting.
type SpeakRequest struct {
	Text  string  `json:"text"`
	Speed float64 `json:"speed,omitempty"`
	Pitch float64 `json:"pitch,omitempty"`
}

// SaveRequest represents the request body for /v1/save.
type SaveRequest struct {
	Path string `json:"path"`
}

// StateResponse reports the player state after a control action.
type StateResponse struct {
	State string `json:"state"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the response body for /v1/healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}

// errorStatus maps controller errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNoAudio):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// handleHealthz handles GET /v1/healthz requests.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStatus handles GET /v1/status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

// handleSpeak handles POST /v1/speak requests.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req SpeakRequest
	if !decode(w, r, &req) {
		s.logger.Warn("failed to decode speak request")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	if req.Speed < 0 || req.Pitch < 0 {
		writeError(w, http.StatusBadRequest, "speed and pitch must be positive")
		return
	}

	if err := s.ctrl.Speak(r.Context(), req.Text, req.Speed, req.Pitch); err != nil {
		if !app.IsWarning(err) {
			s.logger.Error("speak request failed", "error", err)
		}
		writeError(w, errorStatus(err), err.Error())
		return
	}

	s.logger.Info("speak request accepted", "text_length", len(req.Text))
	writeJSON(w, http.StatusAccepted, s.ctrl.Status())
}

// handlePause handles POST /v1/pause requests.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	state, err := s.ctrl.PauseResumeAudio()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: state.String()})
}

// handleStop handles POST /v1/stop requests.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.StopAudio(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: player.Idle.String()})
}

// handleSave handles POST /v1/save requests.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	if err := s.ctrl.SaveAsAudio(req.Path); err != nil {
		if !app.IsWarning(err) {
			s.logger.Error("save request failed", "path", req.Path, "error", err)
		}
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SaveRequest{Path: req.Path})
}

// Package server exposes the HTTP surface of meetscribe: lifecycle control
// for the transcription pipeline, the meeting context API, a websocket event
// stream, health probes, and the Prometheus metrics endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/meetscribe/internal/coordinator"
	"github.com/MrWong99/meetscribe/internal/meeting"
	"github.com/MrWong99/meetscribe/internal/observe"
	"github.com/MrWong99/meetscribe/pkg/audio"
	"github.com/MrWong99/meetscribe/pkg/diarize"
)

// Pipeline is the coordinator surface the server drives.
// coordinator.Coordinator satisfies this; tests substitute fakes.
type Pipeline interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() coordinator.Status
	Speakers() []diarize.Speaker
}

// Server holds the HTTP handler dependencies.
type Server struct {
	pipeline Pipeline
	meetings *meeting.Manager
	hub      *Hub
	metrics  *observe.Metrics
}

// New creates a Server. hub may be nil when no event streaming is wanted.
func New(pipeline Pipeline, meetings *meeting.Manager, hub *Hub, metrics *observe.Metrics) *Server {
	return &Server{
		pipeline: pipeline,
		meetings: meetings,
		hub:      hub,
		metrics:  metrics,
	}
}

// Handler returns the fully routed handler, wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/stt/start", s.handleStart)
	mux.HandleFunc("POST /api/stt/stop", s.handleStop)
	mux.HandleFunc("GET /api/stt/status", s.handleStatus)
	mux.HandleFunc("GET /api/speakers", s.handleSpeakers)

	mux.HandleFunc("PUT /api/meeting", s.handleSetMeeting)
	mux.HandleFunc("GET /api/meeting", s.handleGetMeeting)
	mux.HandleFunc("DELETE /api/meeting", s.handleClearMeeting)
	mux.HandleFunc("GET /api/meeting/summary", s.handleMeetingSummary)
	mux.HandleFunc("GET /api/meeting/history", s.handleMeetingHistory)
	mux.HandleFunc("POST /api/meeting/participants", s.handleAddParticipant)
	mux.HandleFunc("POST /api/meeting/goals", s.handleAddGoal)
	mux.HandleFunc("POST /api/meeting/questions", s.handleAddQuestion)
	mux.HandleFunc("POST /api/meeting/background", s.handleAddBackground)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.hub != nil {
		mux.HandleFunc("GET /events", s.hub.HandleEvents)
	}

	return observe.Middleware(s.metrics)(mux)
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// --- Transcription lifecycle ---

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	err := s.pipeline.Start(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.pipeline.Status())
	case errors.Is(err, coordinator.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, coordinator.ErrModelNotFound):
		writeError(w, http.StatusPreconditionFailed, err)
	case errors.Is(err, audio.ErrNoInputDevice):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Stop(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.pipeline.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Status())
}

func (s *Server) handleSpeakers(w http.ResponseWriter, _ *http.Request) {
	speakers := s.pipeline.Speakers()
	if speakers == nil {
		speakers = []diarize.Speaker{}
	}
	writeJSON(w, http.StatusOK, speakers)
}

// --- Meeting context ---

// setMeetingRequest is the body for PUT /api/meeting.
type setMeetingRequest struct {
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Domain          meeting.Domain `json:"domain"`
	DurationMinutes int            `json:"duration_estimate_minutes"`
}

func (s *Server) handleSetMeeting(w http.ResponseWriter, r *http.Request) {
	var req setMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := meeting.NewContext(req.Title, req.Domain)
	ctx.Description = req.Description
	if req.DurationMinutes > 0 {
		ctx.DurationMinutes = req.DurationMinutes
	}
	s.meetings.Set(ctx)
	writeJSON(w, http.StatusOK, ctx)
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, _ *http.Request) {
	ctx, err := s.meetings.Current()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, ctx)
}

func (s *Server) handleClearMeeting(w http.ResponseWriter, _ *http.Request) {
	s.meetings.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// meetingSummary is the body for GET /api/meeting/summary.
type meetingSummary struct {
	Summary      string `json:"summary"`
	PromptPrefix string `json:"prompt_prefix"`
}

func (s *Server) handleMeetingSummary(w http.ResponseWriter, _ *http.Request) {
	ctx, err := s.meetings.Current()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, meetingSummary{
		Summary:      ctx.Summary(),
		PromptPrefix: ctx.Domain.PromptPrefix(),
	})
}

func (s *Server) handleMeetingHistory(w http.ResponseWriter, _ *http.Request) {
	history := s.meetings.History()
	if history == nil {
		history = []*meeting.Context{}
	}
	writeJSON(w, http.StatusOK, history)
}

type addParticipantRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var req addParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("participant name is required"))
		return
	}
	s.updateMeeting(w, func(c *meeting.Context) {
		c.AddParticipant(req.Name, req.Role, req.Email)
	})
}

type addGoalRequest struct {
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	var req addGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, errors.New("goal description is required"))
		return
	}
	s.updateMeeting(w, func(c *meeting.Context) {
		c.AddGoal(req.Description, req.Priority)
	})
}

type addQuestionRequest struct {
	Question string `json:"question"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
}

func (s *Server) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var req addQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, errors.New("question text is required"))
		return
	}
	s.updateMeeting(w, func(c *meeting.Context) {
		c.AddQuestion(req.Question, req.Category, req.Priority)
	})
}

type addBackgroundRequest struct {
	Topic          string  `json:"topic"`
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	RelevanceScore float64 `json:"relevance_score"`
}

func (s *Server) handleAddBackground(w http.ResponseWriter, r *http.Request) {
	var req addBackgroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, errors.New("background topic is required"))
		return
	}
	s.updateMeeting(w, func(c *meeting.Context) {
		c.AddBackground(req.Topic, req.Content, req.Source, req.RelevanceScore)
	})
}

// updateMeeting applies fn to the active meeting context and writes the
// updated context back, or 404 when none is set.
func (s *Server) updateMeeting(w http.ResponseWriter, fn func(*meeting.Context)) {
	if err := s.meetings.Update(fn); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	ctx, err := s.meetings.Current()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ctx)
}

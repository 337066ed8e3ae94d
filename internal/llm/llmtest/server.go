// Package llmtest provides an in-process fake of the Ollama HTTP API for tests.
package llmtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dj707chen/FunctionGemmaLab/internal/llm"
)

// Reply is one scripted answer. Status defaults to 200.
type Reply struct {
	Status int
	Body   string
}

// MessageReply returns a 200 reply wrapping msg in a chat response.
func MessageReply(msg llm.Message) Reply {
	data, err := json.Marshal(llm.ChatResponse{Model: "functiongemma", Message: &msg, Done: true})
	if err != nil {
		panic(err)
	}
	return Reply{Status: http.StatusOK, Body: string(data)}
}

// ErrorReply returns a non-success reply with a raw body.
func ErrorReply(status int, body string) Reply {
	return Reply{Status: status, Body: body}
}

// Server serves scripted replies in order and records every chat request.
// Once the script is exhausted it answers 500.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	replies  []Reply
	requests []llm.ChatRequest
	raw      [][]byte
	Models   []llm.ModelInfo
}

// NewServer starts a fake server that is closed when the test ends.
func NewServer(t testing.TB, replies ...Reply) *Server {
	t.Helper()
	s := &Server{replies: replies}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/api/chat", s.handleChat)
	r.Post("/v1/chat/completions", s.handleRaw)
	r.Get("/api/tags", s.handleTags)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Requests returns the decoded /api/chat requests received so far.
func (s *Server) Requests() []llm.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.ChatRequest(nil), s.requests...)
}

// RawRequests returns the undecoded bodies of every chat request received.
func (s *Server) RawRequests() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.raw...)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req llm.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.raw = append(s.raw, body)
	s.mu.Unlock()

	s.reply(w)
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.raw = append(s.raw, body)
	s.mu.Unlock()

	s.reply(w)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	models := s.Models
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"models": models})
}

func (s *Server) reply(w http.ResponseWriter) {
	s.mu.Lock()
	if len(s.replies) == 0 {
		s.mu.Unlock()
		http.Error(w, "no scripted reply left", http.StatusInternalServerError)
		return
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()

	status := next.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, next.Body)
}

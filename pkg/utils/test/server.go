package testutils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/papercomputeco/chatzilla/pkg/llm"
)

// RecordedRequest is one request captured by a StubServer.
type RecordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        map[string]any
	Messages    []llm.Turn
}

// StubServer is an httptest server standing in for the inference server.
// It records every request and answers with the reply set by SetReply, or
// with a 200 chat payload whose content is "ok".
type StubServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
	status   int
	reply    func(req RecordedRequest) string
}

// NewStubServer starts a StubServer. Callers must Close it.
func NewStubServer() *StubServer {
	s := &StubServer{status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetStatus overrides the response status. Defaults to 200.
func (s *StubServer) SetStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// SetReply sets the function whose result is written verbatim as the
// response body.
func (s *StubServer) SetReply(reply func(req RecordedRequest) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = reply
}

func (s *StubServer) handle(w http.ResponseWriter, r *http.Request) {
	rec := RecordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
	}

	raw, _ := io.ReadAll(r.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)

		var chat struct {
			Messages []llm.Turn `json:"messages"`
		}
		if err := json.Unmarshal(raw, &chat); err == nil {
			rec.Messages = chat.Messages
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	status, reply := s.status, s.reply
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if reply != nil {
		_, _ = io.WriteString(w, reply(rec))
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":   "stub",
		"message": map[string]any{"role": "assistant", "content": "ok"},
		"done":    true,
	})
}

// Requests returns a copy of the requests received so far.
func (s *StubServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// ChatReply returns a reply for SetReply that answers every chat request with content.
func ChatReply(content string) func(RecordedRequest) string {
	return func(RecordedRequest) string {
		payload, _ := json.Marshal(map[string]any{
			"model":       "llama3.1",
			"created_at":  "2025-05-17T19:56:23.4930816Z",
			"message":     map[string]any{"role": "assistant", "content": content},
			"done_reason": "stop",
			"done":        true,
		})
		return string(payload)
	}
}

// Package assistantapi is an in-process fake of the OpenAI Assistants endpoints used in tests.
package assistantapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
)

// Server records calls and replays a scripted run status sequence
type Server struct {
	*httptest.Server

	mu sync.Mutex

	// AssistantIDs that RetrieveAssistant accepts
	AssistantIDs map[string]bool
	// RunStatuses is returned by successive run retrievals; the last entry repeats
	RunStatuses []string
	// RunLastError is attached to the run once it reaches a terminal status
	RunLastError map[string]string
	// Replies are the assistant messages listed after the user message
	Replies []Reply
	// PageSize overrides the page size used when listing messages
	PageSize int

	Threads      int
	Runs         int
	RunFetches   int
	UserMessages []string
	ListCalls    int
}

type Reply struct {
	ID        string
	Fragments []string
}

func NewServer() *Server {
	s := &Server{
		AssistantIDs: map[string]bool{"asst_1": true},
		RunStatuses:  []string{"completed"},
	}

	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/assistants/{id}", s.handleAssistant).Methods(http.MethodGet)
	v1.HandleFunc("/threads", s.handleCreateThread).Methods(http.MethodPost)
	v1.HandleFunc("/threads/{thread}/messages", s.handleCreateMessage).Methods(http.MethodPost)
	v1.HandleFunc("/threads/{thread}/messages", s.handleListMessages).Methods(http.MethodGet)
	v1.HandleFunc("/threads/{thread}/runs", s.handleCreateRun).Methods(http.MethodPost)
	v1.HandleFunc("/threads/{thread}/runs/{run}", s.handleRetrieveRun).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the value to configure as the client base URL
func (s *Server) BaseURL() string {
	return s.URL + "/v1"
}

// Counts is a snapshot of the calls the server has seen
type Counts struct {
	Threads      int
	Runs         int
	RunFetches   int
	UserMessages []string
	ListCalls    int
}

func (s *Server) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Counts{
		Threads:      s.Threads,
		Runs:         s.Runs,
		RunFetches:   s.RunFetches,
		UserMessages: append([]string(nil), s.UserMessages...),
		ListCalls:    s.ListCalls,
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeAPIError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "invalid_request_error",
		},
	})
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := mux.Vars(r)["id"]
	if !s.AssistantIDs[id] {
		writeAPIError(w, http.StatusNotFound, fmt.Sprintf("No assistant found with id '%s'.", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "object": "assistant"})
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Threads++
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     fmt.Sprintf("thread_%d", s.Threads),
		"object": "thread",
	})
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.UserMessages = append(s.UserMessages, req.Content)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":        "msg_user",
		"object":    "thread.message",
		"thread_id": mux.Vars(r)["thread"],
		"role":      req.Role,
		"content":   []interface{}{textContent(req.Content)},
	})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req struct {
		AssistantID string `json:"assistant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.Runs++
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":           fmt.Sprintf("run_%d", s.Runs),
		"object":       "thread.run",
		"thread_id":    mux.Vars(r)["thread"],
		"assistant_id": req.AssistantID,
		"status":       "queued",
	})
}

func (s *Server) handleRetrieveRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.RunFetches
	if idx >= len(s.RunStatuses) {
		idx = len(s.RunStatuses) - 1
	}
	s.RunFetches++
	status := s.RunStatuses[idx]

	body := map[string]interface{}{
		"id":        mux.Vars(r)["run"],
		"object":    "thread.run",
		"thread_id": mux.Vars(r)["thread"],
		"status":    status,
	}
	if s.RunLastError != nil && status != "queued" && status != "in_progress" {
		body["last_error"] = map[string]string{
			"code":    s.RunLastError["code"],
			"message": s.RunLastError["message"],
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ListCalls++
	q := r.URL.Query()
	if q.Get("order") != "asc" {
		writeAPIError(w, http.StatusBadRequest, "expected ascending order")
		return
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if s.PageSize > 0 {
		limit = s.PageSize
	}
	if limit <= 0 {
		limit = 20
	}

	// Replies all follow the user message, so "after" is either the user message or a reply
	start := 0
	if after := q.Get("after"); after != "" && after != "msg_user" {
		for i, reply := range s.Replies {
			if reply.ID == after {
				start = i + 1
				break
			}
		}
	}

	end := start + limit
	if end > len(s.Replies) {
		end = len(s.Replies)
	}

	data := make([]interface{}, 0, end-start)
	for _, reply := range s.Replies[start:end] {
		content := make([]interface{}, 0, len(reply.Fragments))
		for _, f := range reply.Fragments {
			content = append(content, textContent(f))
		}
		data = append(data, map[string]interface{}{
			"id":        reply.ID,
			"object":    "thread.message",
			"thread_id": mux.Vars(r)["thread"],
			"role":      "assistant",
			"content":   content,
		})
	}

	body := map[string]interface{}{
		"object":   "list",
		"data":     data,
		"has_more": end < len(s.Replies),
	}
	if len(data) > 0 {
		body["first_id"] = s.Replies[start].ID
		body["last_id"] = s.Replies[end-1].ID
	}
	writeJSON(w, http.StatusOK, body)
}

func textContent(value string) map[string]interface{} {
	return map[string]interface{}{
		"type": "text",
		"text": map[string]interface{}{
			"value":       value,
			"annotations": []interface{}{},
		},
	}
}

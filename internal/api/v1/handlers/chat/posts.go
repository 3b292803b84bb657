package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	v1mware "github.com/deepgram/relay/internal/api/v1/middleware"
	"github.com/deepgram/relay/internal/services/assistant"
	"github.com/deepgram/relay/internal/services/chat"
	"github.com/deepgram/relay/internal/services/chat/models"
	"github.com/deepgram/relay/pkg/httpext"
)

// maxRequestBytes bounds a chat request body
const maxRequestBytes = 1 << 20

// HandlePosts relays one user message to an assistant and returns the assembled reply
func HandlePosts(chatService chat.Service, w http.ResponseWriter, r *http.Request) {
	if chatService == nil {
		log.Error().Msg("Chat request received without an assistant client")
		httpext.WriteError(w, chat.ErrClientInitialization)
		return
	}

	// Parse request
	var req models.ChatRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn().Int64("limit", tooLarge.Limit).Msg("Client sent oversized request body")
			httpext.JsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Warn().Err(err).Msg("Client sent malformed JSON request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	// Validate request against model constraints
	if err := req.Validate(); err != nil {
		log.Warn().Err(err).Msg("Request validation failed")
		httpext.JsonError(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	resp, err := chatService.ProcessChat(r.Context(), req, nil)
	if err != nil {
		event := log.Error()
		if errors.Is(err, assistant.ErrRunTimeout) {
			event = log.Warn()
		}
		event.
			Err(err).
			Str("assistant_id", req.AssistantID).
			Msg("Failed to process chat request")
		httpext.WriteError(w, err)
		return
	}

	log.Info().
		Str("assistant_id", req.AssistantID).
		Str("subject", requestSubject(r)).
		Float64("response_time", resp.ResponseTime).
		Str("sentiment", resp.Sentiment).
		Msg("Chat request completed")

	httpext.JsonResponse(w, http.StatusOK, resp)
}

// requestSubject names the authenticated caller, or "" when auth is disabled
func requestSubject(r *http.Request) string {
	claims := v1mware.GetClaims(r)
	if claims == nil {
		return ""
	}
	subject, _ := claims.GetSubject()
	return subject
}

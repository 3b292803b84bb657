package websocket

import (
	"github.com/deepgram/relay/internal/services/chat/models"
)

// Frame statuses besides the run states reported while polling
const (
	StatusComplete = "complete"
	StatusError    = "error"
)

// RequestFrame is a chat request sent by the client. RequestID is optional and
// generated by the server when absent.
type RequestFrame struct {
	RequestID string `json:"request_id,omitempty"`
	models.ChatRequest
}

// ResponseFrame reports progress or the outcome of one request
type ResponseFrame struct {
	RequestID string               `json:"request_id"`
	Status    string               `json:"status"`
	Content   string               `json:"content,omitempty"`
	Result    *models.ChatResponse `json:"result,omitempty"`
	Detail    string               `json:"detail,omitempty"`
}

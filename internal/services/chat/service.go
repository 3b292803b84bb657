package chat

import (
	"context"

	"github.com/deepgram/relay/internal/services/assistant"
	"github.com/deepgram/relay/internal/services/chat/models"
)

// Service defines the interface for chat operations
type Service interface {
	// ProcessChat runs one assistant exchange for req. observe, when non-nil, receives every
	// run state seen while waiting for the assistant.
	ProcessChat(ctx context.Context, req models.ChatRequest, observe assistant.Observer) (*models.ChatResponse, error)
}

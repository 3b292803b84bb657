package assistant

import (
	"context"

	"github.com/deepgram/relay/internal/services/assistant/models"
)

// Client is the subset of the assistant service used by a chat exchange
type Client interface {
	// RetrieveAssistant resolves an assistant and returns its canonical ID
	RetrieveAssistant(ctx context.Context, assistantID string) (string, error)

	// CreateThread creates an empty conversation thread and returns its ID
	CreateThread(ctx context.Context) (string, error)

	// CreateUserMessage appends a user message to a thread and returns the message ID
	CreateUserMessage(ctx context.Context, threadID, content string) (string, error)

	// CreateRun starts an assistant run on a thread
	CreateRun(ctx context.Context, threadID, assistantID string) (models.Run, error)

	// RetrieveRun fetches the current state of a run
	RetrieveRun(ctx context.Context, threadID, runID string) (models.Run, error)

	// ListMessagesAfter returns every message created after afterID, oldest first
	ListMessagesAfter(ctx context.Context, threadID, afterID string) ([]models.Message, error)
}

package openai

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/deepgram/relay/internal/services/assistant/models"
	"github.com/deepgram/relay/pkg/logger"
)

const (
	listPageSize = 100
	orderAsc     = "asc"
)

// Service talks to the OpenAI Assistants API (assistants, threads, messages, runs)
type Service struct {
	mu     sync.RWMutex
	client *openai.Client
}

// NewService returns nil when no key is configured
func NewService(key, baseURL string, httpClient *http.Client) *Service {
	logger.Info(logger.SERVICE, "Initialising OpenAI service")

	if key == "" {
		logger.Warn(logger.SERVICE, "OpenAI service not configured - OPENAI_API_KEY missing")
		return nil
	}

	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	return &Service{
		mu:     sync.RWMutex{},
		client: openai.NewClientWithConfig(cfg),
	}
}

func (s *Service) GetClient() *openai.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Service) RetrieveAssistant(ctx context.Context, assistantID string) (string, error) {
	assistant, err := s.GetClient().RetrieveAssistant(ctx, assistantID)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve assistant %s: %w", assistantID, err)
	}
	return assistant.ID, nil
}

func (s *Service) CreateThread(ctx context.Context) (string, error) {
	thread, err := s.GetClient().CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}

	log.Debug().Str("thread_id", thread.ID).Msg("Created assistant thread")
	return thread.ID, nil
}

func (s *Service) CreateUserMessage(ctx context.Context, threadID, content string) (string, error) {
	msg, err := s.GetClient().CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: content,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}
	return msg.ID, nil
}

func (s *Service) CreateRun(ctx context.Context, threadID, assistantID string) (models.Run, error) {
	run, err := s.GetClient().CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: assistantID,
	})
	if err != nil {
		return models.Run{}, fmt.Errorf("failed to create run: %w", err)
	}

	log.Debug().
		Str("thread_id", threadID).
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Msg("Created assistant run")

	return toRun(run), nil
}

func (s *Service) RetrieveRun(ctx context.Context, threadID, runID string) (models.Run, error) {
	run, err := s.GetClient().RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return models.Run{}, err
	}
	return toRun(run), nil
}

// ListMessagesAfter follows pagination until the service reports no more pages
func (s *Service) ListMessagesAfter(ctx context.Context, threadID, afterID string) ([]models.Message, error) {
	limit := listPageSize
	order := orderAsc
	after := afterID

	var messages []models.Message
	for {
		page, err := s.GetClient().ListMessage(ctx, threadID, &limit, &order, &after, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, msg := range page.Messages {
			messages = append(messages, toMessage(msg))
		}

		if !page.HasMore || len(page.Messages) == 0 {
			break
		}

		if page.LastID != nil && *page.LastID != "" {
			after = *page.LastID
		} else {
			after = page.Messages[len(page.Messages)-1].ID
		}
	}

	return messages, nil
}

func toRun(run openai.Run) models.Run {
	r := models.Run{
		ID:          run.ID,
		ThreadID:    run.ThreadID,
		AssistantID: run.AssistantID,
		Status:      models.RunState(run.Status),
	}
	if run.LastError != nil {
		r.LastError = fmt.Sprintf("%s: %s", run.LastError.Code, run.LastError.Message)
	}
	return r
}

func toMessage(msg openai.Message) models.Message {
	m := models.Message{
		ID:      msg.ID,
		Role:    msg.Role,
		Content: make([]models.Content, 0, len(msg.Content)),
	}
	for _, c := range msg.Content {
		content := models.Content{Type: c.Type}
		if c.Text != nil {
			content.Text = c.Text.Value
		}
		m.Content = append(m.Content, content)
	}
	return m
}

package chat

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/relay/internal/services/assistant"
	assistantModels "github.com/deepgram/relay/internal/services/assistant/models"
	"github.com/deepgram/relay/internal/services/chat/models"
	"github.com/deepgram/relay/internal/services/sentiment"
	"github.com/deepgram/relay/pkg/httpext"
	"github.com/deepgram/relay/pkg/logger"
)

// ErrClientInitialization is reported when the assistant client could not be constructed
var ErrClientInitialization = httpext.NewHTTPError(http.StatusInternalServerError, "assistant client initialization error")

// Sentiment targets
const (
	TargetUserMessage = "user"
	TargetResponse    = "response"
)

type Implementation struct {
	client    assistant.Client
	poller    *assistant.Poller
	annotator sentiment.Annotator
	target    string
	now       func() time.Time
}

type Option func(*Implementation)

// WithAnnotator enables sentiment annotation of the given target text
func WithAnnotator(annotator sentiment.Annotator, target string) Option {
	return func(s *Implementation) {
		s.annotator = annotator
		s.target = target
	}
}

func NewService(client assistant.Client, pollConfig assistant.PollerConfig, opts ...Option) (*Implementation, error) {
	if client == nil {
		return nil, ErrClientInitialization
	}

	s := &Implementation{
		client: client,
		poller: assistant.NewPoller(client, pollConfig),
		target: TargetUserMessage,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.target != TargetUserMessage && s.target != TargetResponse {
		return nil, fmt.Errorf("unknown sentiment target %q", s.target)
	}

	return s, nil
}

// ProcessChat creates exactly one thread and one run for req. Any failure aborts the exchange.
func (s *Implementation) ProcessChat(ctx context.Context, req models.ChatRequest, observe assistant.Observer) (*models.ChatResponse, error) {
	assistantID, err := s.client.RetrieveAssistant(ctx, req.AssistantID)
	if err != nil {
		return nil, err
	}

	threadID, err := s.client.CreateThread(ctx)
	if err != nil {
		return nil, err
	}

	messageID, err := s.client.CreateUserMessage(ctx, threadID, req.UserMessage)
	if err != nil {
		return nil, err
	}

	start := s.now()
	run, err := s.client.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		return nil, err
	}
	if observe != nil {
		observe(run)
	}

	run, err = s.poller.WaitForRun(ctx, threadID, run, observe)
	if err != nil {
		return nil, err
	}
	elapsed := s.now().Sub(start)

	if run.Status != assistantModels.RunStateCompleted {
		log.Warn().
			Str("thread_id", threadID).
			Str("run_id", run.ID).
			Str("status", string(run.Status)).
			Str("last_error", run.LastError).
			Msg("Assistant run ended without completing")
		if run.LastError != "" {
			return nil, fmt.Errorf("%w: run %s ended with status %s: %s", assistant.ErrRunNotCompleted, run.ID, run.Status, run.LastError)
		}
		return nil, fmt.Errorf("%w: run %s ended with status %s", assistant.ErrRunNotCompleted, run.ID, run.Status)
	}

	messages, err := s.client.ListMessagesAfter(ctx, threadID, messageID)
	if err != nil {
		return nil, err
	}

	resp := &models.ChatResponse{
		Response:     assistant.AssembleText(messages),
		ResponseTime: elapsed.Seconds(),
	}

	logger.Info(logger.CHAT, "Run %s completed in %.2fs with %d reply messages", run.ID, resp.ResponseTime, len(messages))

	if s.annotator != nil {
		text := req.UserMessage
		if s.target == TargetResponse {
			text = resp.Response
		}

		result, err := s.annotator.Annotate(ctx, text)
		if err != nil {
			return nil, err
		}

		resp.Sentiment = result.Label
		resp.SentimentScore = result.Score
		resp.SentimentMagnitude = result.Magnitude
	}

	return resp, nil
}

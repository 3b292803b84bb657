package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/relay/internal/services/assistant"
	assistantModels "github.com/deepgram/relay/internal/services/assistant/models"
	"github.com/deepgram/relay/internal/services/chat/models"
	"github.com/deepgram/relay/internal/services/sentiment"
)

type MockAssistantClient struct {
	mock.Mock
}

func (m *MockAssistantClient) RetrieveAssistant(ctx context.Context, assistantID string) (string, error) {
	args := m.Called(ctx, assistantID)
	return args.String(0), args.Error(1)
}

func (m *MockAssistantClient) CreateThread(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockAssistantClient) CreateUserMessage(ctx context.Context, threadID, content string) (string, error) {
	args := m.Called(ctx, threadID, content)
	return args.String(0), args.Error(1)
}

func (m *MockAssistantClient) CreateRun(ctx context.Context, threadID, assistantID string) (assistantModels.Run, error) {
	args := m.Called(ctx, threadID, assistantID)
	return args.Get(0).(assistantModels.Run), args.Error(1)
}

func (m *MockAssistantClient) RetrieveRun(ctx context.Context, threadID, runID string) (assistantModels.Run, error) {
	args := m.Called(ctx, threadID, runID)
	return args.Get(0).(assistantModels.Run), args.Error(1)
}

func (m *MockAssistantClient) ListMessagesAfter(ctx context.Context, threadID, afterID string) ([]assistantModels.Message, error) {
	args := m.Called(ctx, threadID, afterID)
	messages, _ := args.Get(0).([]assistantModels.Message)
	return messages, args.Error(1)
}

type MockAnnotator struct {
	mock.Mock
}

func (m *MockAnnotator) Annotate(ctx context.Context, text string) (*sentiment.Result, error) {
	args := m.Called(ctx, text)
	result, _ := args.Get(0).(*sentiment.Result)
	return result, args.Error(1)
}

func (m *MockAnnotator) Name() string { return "mock" }

var testPollConfig = assistant.PollerConfig{Interval: time.Millisecond, Timeout: time.Second}

func run(status assistantModels.RunState) assistantModels.Run {
	return assistantModels.Run{ID: "run_1", ThreadID: "thread_1", AssistantID: "asst_1", Status: status}
}

// expectExchange sets up a successful exchange up to and including run polling
func expectExchange(client *MockAssistantClient, userMessage string, statuses ...assistantModels.RunState) {
	client.On("RetrieveAssistant", mock.Anything, "asst_1").Return("asst_1", nil).Once()
	client.On("CreateThread", mock.Anything).Return("thread_1", nil).Once()
	client.On("CreateUserMessage", mock.Anything, "thread_1", userMessage).Return("msg_user", nil).Once()
	client.On("CreateRun", mock.Anything, "thread_1", "asst_1").Return(run(assistantModels.RunStateQueued), nil).Once()
	for _, status := range statuses {
		client.On("RetrieveRun", mock.Anything, "thread_1", "run_1").Return(run(status), nil).Once()
	}
}

func reply(text string) []assistantModels.Message {
	return []assistantModels.Message{{
		ID:      "msg_reply",
		Role:    "assistant",
		Content: []assistantModels.Content{{Type: assistantModels.ContentTypeText, Text: text}},
	}}
}

func TestNewServiceRequiresClient(t *testing.T) {
	svc, err := NewService(nil, testPollConfig)
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, ErrClientInitialization)
}

func TestNewServiceRejectsUnknownTarget(t *testing.T) {
	_, err := NewService(new(MockAssistantClient), testPollConfig, WithAnnotator(new(MockAnnotator), "both"))
	assert.ErrorContains(t, err, `unknown sentiment target "both"`)
}

func TestProcessChat(t *testing.T) {
	client := new(MockAssistantClient)
	expectExchange(client, "Hi", assistantModels.RunStateInProgress, assistantModels.RunStateCompleted)
	client.On("ListMessagesAfter", mock.Anything, "thread_1", "msg_user").
		Return(reply("Hello there【4:0†source】!"), nil).Once()

	svc, err := NewService(client, testPollConfig)
	require.NoError(t, err)

	var observed []assistantModels.RunState
	resp, err := svc.ProcessChat(context.Background(), models.ChatRequest{UserMessage: "Hi", AssistantID: "asst_1"}, func(r assistantModels.Run) {
		observed = append(observed, r.Status)
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there!", resp.Response)
	assert.GreaterOrEqual(t, resp.ResponseTime, 0.0)
	assert.Empty(t, resp.Sentiment)
	assert.Nil(t, resp.SentimentScore)
	assert.Equal(t, []assistantModels.RunState{
		assistantModels.RunStateQueued,
		assistantModels.RunStateInProgress,
		assistantModels.RunStateCompleted,
	}, observed)
	client.AssertExpectations(t)
}

func TestProcessChatSentimentTargets(t *testing.T) {
	score, magnitude := 0.7, 2.1

	tests := []struct {
		name      string
		target    string
		wantText  string
		result    *sentiment.Result
		wantScore *float64
		wantLabel string
	}{
		{
			name:      "user message annotated by default",
			target:    TargetUserMessage,
			wantText:  "I am so happy",
			result:    &sentiment.Result{Label: sentiment.LabelPositive, Score: &score, Magnitude: &magnitude},
			wantScore: &score,
			wantLabel: sentiment.LabelPositive,
		},
		{
			name:      "assistant response annotated",
			target:    TargetResponse,
			wantText:  "Glad to hear it",
			result:    &sentiment.Result{Label: "neutral"},
			wantLabel: "neutral",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockAssistantClient)
			expectExchange(client, "I am so happy", assistantModels.RunStateCompleted)
			client.On("ListMessagesAfter", mock.Anything, "thread_1", "msg_user").
				Return(reply("Glad to hear it"), nil).Once()

			annotator := new(MockAnnotator)
			annotator.On("Annotate", mock.Anything, tt.wantText).Return(tt.result, nil).Once()

			svc, err := NewService(client, testPollConfig, WithAnnotator(annotator, tt.target))
			require.NoError(t, err)

			resp, err := svc.ProcessChat(context.Background(), models.ChatRequest{UserMessage: "I am so happy", AssistantID: "asst_1"}, nil)
			require.NoError(t, err)

			assert.Equal(t, "Glad to hear it", resp.Response)
			assert.Equal(t, tt.wantLabel, resp.Sentiment)
			assert.Equal(t, tt.wantScore, resp.SentimentScore)
			annotator.AssertExpectations(t)
		})
	}
}

func TestProcessChatSentimentFailureFailsRequest(t *testing.T) {
	client := new(MockAssistantClient)
	expectExchange(client, "Hi", assistantModels.RunStateCompleted)
	client.On("ListMessagesAfter", mock.Anything, "thread_1", "msg_user").Return(reply("Hello"), nil).Once()

	annotator := new(MockAnnotator)
	annotator.On("Annotate", mock.Anything, "Hi").
		Return(nil, errors.New("sentiment analysis failed: clova sentiment API returned status 401")).Once()

	svc, err := NewService(client, testPollConfig, WithAnnotator(annotator, TargetUserMessage))
	require.NoError(t, err)

	resp, err := svc.ProcessChat(context.Background(), models.ChatRequest{UserMessage: "Hi", AssistantID: "asst_1"}, nil)
	assert.Nil(t, resp)
	assert.ErrorContains(t, err, "clova sentiment API returned status 401")
}

func TestProcessChatRunNotCompleted(t *testing.T) {
	client := new(MockAssistantClient)
	expectExchange(client, "Hi")
	failed := run(assistantModels.RunStateFailed)
	failed.LastError = "server_error: Sorry, something went wrong."
	client.On("RetrieveRun", mock.Anything, "thread_1", "run_1").Return(failed, nil).Once()

	svc, err := NewService(client, testPollConfig)
	require.NoError(t, err)

	_, err = svc.ProcessChat(context.Background(), models.ChatRequest{UserMessage: "Hi", AssistantID: "asst_1"}, nil)
	assert.ErrorIs(t, err, assistant.ErrRunNotCompleted)
	assert.ErrorContains(t, err, "Sorry, something went wrong.")
	client.AssertNotCalled(t, "ListMessagesAfter", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessChatStepFailures(t *testing.T) {
	upstream := errors.New("upstream exploded")

	tests := []struct {
		name  string
		setup func(client *MockAssistantClient)
	}{
		{
			name: "assistant lookup fails",
			setup: func(client *MockAssistantClient) {
				client.On("RetrieveAssistant", mock.Anything, "asst_1").Return("", upstream).Once()
			},
		},
		{
			name: "thread creation fails",
			setup: func(client *MockAssistantClient) {
				client.On("RetrieveAssistant", mock.Anything, "asst_1").Return("asst_1", nil).Once()
				client.On("CreateThread", mock.Anything).Return("", upstream).Once()
			},
		},
		{
			name: "message creation fails",
			setup: func(client *MockAssistantClient) {
				client.On("RetrieveAssistant", mock.Anything, "asst_1").Return("asst_1", nil).Once()
				client.On("CreateThread", mock.Anything).Return("thread_1", nil).Once()
				client.On("CreateUserMessage", mock.Anything, "thread_1", "Hi").Return("", upstream).Once()
			},
		},
		{
			name: "run creation fails",
			setup: func(client *MockAssistantClient) {
				client.On("RetrieveAssistant", mock.Anything, "asst_1").Return("asst_1", nil).Once()
				client.On("CreateThread", mock.Anything).Return("thread_1", nil).Once()
				client.On("CreateUserMessage", mock.Anything, "thread_1", "Hi").Return("msg_user", nil).Once()
				client.On("CreateRun", mock.Anything, "thread_1", "asst_1").Return(assistantModels.Run{}, upstream).Once()
			},
		},
		{
			name: "listing messages fails",
			setup: func(client *MockAssistantClient) {
				expectExchange(client, "Hi", assistantModels.RunStateCompleted)
				client.On("ListMessagesAfter", mock.Anything, "thread_1", "msg_user").Return(nil, upstream).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockAssistantClient)
			tt.setup(client)

			svc, err := NewService(client, testPollConfig)
			require.NoError(t, err)

			resp, err := svc.ProcessChat(context.Background(), models.ChatRequest{UserMessage: "Hi", AssistantID: "asst_1"}, nil)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, upstream)
			client.AssertExpectations(t)
		})
	}
}

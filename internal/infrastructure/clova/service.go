package clova

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://naveropenapi.apigw.ntruss.com"

// Service calls the CLOVA Sentiment API, which returns a label rather than a score
type Service struct {
	mu           sync.RWMutex
	client       *http.Client
	baseURL      string
	clientID     string
	clientSecret string
}

type AnalyzeRequest struct {
	Content string `json:"content"`
}

type Confidence struct {
	Negative float64 `json:"negative"`
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
}

type AnalyzeResponse struct {
	Document struct {
		Sentiment  string     `json:"sentiment"`
		Confidence Confidence `json:"confidence"`
	} `json:"document"`
}

type errorResponse struct {
	Error struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	} `json:"error"`
}

func NewService(clientID, clientSecret string, client *http.Client) *Service {
	if clientID == "" || clientSecret == "" {
		log.Warn().Msg("CLOVA credentials not configured - label sentiment will be unavailable")
		return nil
	}
	if client == nil {
		client = &http.Client{}
	}

	return &Service{
		mu:           sync.RWMutex{},
		client:       client,
		baseURL:      defaultBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// SetBaseURL points the service at a different host
func (s *Service) SetBaseURL(baseURL string) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = baseURL
	return s
}

// Analyze returns the sentiment label (positive, negative or neutral) for text
func (s *Service) Analyze(ctx context.Context, text string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jsonData, err := json.Marshal(AnalyzeRequest{Content: text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/sentiment-analysis/v1/analyze", s.baseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-NCP-APIGW-API-KEY-ID", s.clientID)
	httpReq.Header.Set("X-NCP-APIGW-API-KEY", s.clientSecret)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("CLOVA sentiment request failed")

		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("clova sentiment API returned status %d: %s (%s)",
				resp.StatusCode, apiErr.Error.Message, apiErr.Error.ErrorCode)
		}
		return "", fmt.Errorf("clova sentiment API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var analyzeResp AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&analyzeResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if analyzeResp.Document.Sentiment == "" {
		return "", fmt.Errorf("clova sentiment API returned no document sentiment")
	}

	return analyzeResp.Document.Sentiment, nil
}

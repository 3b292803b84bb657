package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://language.googleapis.com"

// Service calls the Cloud Natural Language analyzeSentiment endpoint
type Service struct {
	mu      sync.RWMutex
	client  *http.Client
	apiKey  string
	baseURL string
}

type Document struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type AnalyzeSentimentRequest struct {
	Document     Document `json:"document"`
	EncodingType string   `json:"encodingType"`
}

type Sentiment struct {
	Score     float64 `json:"score"`
	Magnitude float64 `json:"magnitude"`
}

type AnalyzeSentimentResponse struct {
	DocumentSentiment Sentiment `json:"documentSentiment"`
	Language          string    `json:"language"`
}

func NewService(apiKey string, client *http.Client) *Service {
	if apiKey == "" {
		log.Warn().Msg("Google API key not configured - score sentiment will be unavailable")
		return nil
	}
	if client == nil {
		client = &http.Client{}
	}

	return &Service{
		mu:      sync.RWMutex{},
		client:  client,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
}

// SetBaseURL points the service at a different host
func (s *Service) SetBaseURL(baseURL string) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = baseURL
	return s
}

// AnalyzeSentiment returns the document score in [-1, 1] and its magnitude.
// Fields missing from the response are reported as zero.
func (s *Service) AnalyzeSentiment(ctx context.Context, text string) (score, magnitude float64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req := AnalyzeSentimentRequest{
		Document: Document{
			Type:    "PLAIN_TEXT",
			Content: text,
		},
		EncodingType: "UTF8",
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/documents:analyzeSentiment?key=%s", s.baseURL, url.QueryEscape(s.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		// url.Error carries the request URL, which holds the key
		return 0, 0, fmt.Errorf("failed to make request: %w", redactKey(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Google language API request failed")
		return 0, 0, fmt.Errorf("google language API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var sentimentResp AnalyzeSentimentResponse
	if err := json.NewDecoder(resp.Body).Decode(&sentimentResp); err != nil {
		return 0, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return sentimentResp.DocumentSentiment.Score, sentimentResp.DocumentSentiment.Magnitude, nil
}

func redactKey(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s analyzeSentiment: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

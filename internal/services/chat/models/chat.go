package models

// ChatRequest is the body of a chat call
type ChatRequest struct {
	UserMessage string `json:"user_message" validate:"required,notblank"`
	AssistantID string `json:"assistant_id" validate:"required,notblank"`
}

// ChatResponse is the assembled assistant reply. Sentiment fields are omitted when
// no annotator is configured or the annotator does not produce them.
type ChatResponse struct {
	Response           string   `json:"response"`
	ResponseTime       float64  `json:"response_time"`
	Sentiment          string   `json:"sentiment,omitempty"`
	SentimentScore     *float64 `json:"sentiment_score,omitempty"`
	SentimentMagnitude *float64 `json:"sentiment_magnitude,omitempty"`
}

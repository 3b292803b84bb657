package models

const ContentTypeText = "text"

// Content is a single fragment of a thread message
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Message is a thread message with its content fragments in service order
type Message struct {
	ID      string    `json:"id"`
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

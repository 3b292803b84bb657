package assistant

import (
	"regexp"
	"strings"

	"github.com/deepgram/relay/internal/services/assistant/models"
)

// citationPattern matches file-search citation markers such as 【4:0†source】
var citationPattern = regexp.MustCompile(`(?s)【.*?】`)

// AssembleText concatenates the text fragments of messages in order and strips citation markers
func AssembleText(messages []models.Message) string {
	var sb strings.Builder
	for _, message := range messages {
		for _, content := range message.Content {
			if content.Type != models.ContentTypeText {
				continue
			}
			sb.WriteString(content.Text)
		}
	}
	return StripCitations(sb.String())
}

// StripCitations removes every 【...】 marker, matching non-greedily
func StripCitations(text string) string {
	return citationPattern.ReplaceAllString(text, "")
}

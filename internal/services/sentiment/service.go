package sentiment

import (
	"context"
	"fmt"

	"github.com/deepgram/relay/pkg/logger"
)

const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Thresholds are strict: a score of exactly 0.5 or -0.5 is neutral
const (
	positiveThreshold = 0.5
	negativeThreshold = -0.5
)

// Result is a normalised sentiment annotation. Score and Magnitude are nil for label-only backends.
type Result struct {
	Label     string
	Score     *float64
	Magnitude *float64
}

// Annotator produces a sentiment annotation for a piece of text
type Annotator interface {
	Annotate(ctx context.Context, text string) (*Result, error)
	Name() string
}

// ScoreAnalyzer returns a polarity score in [-1, 1] and a magnitude
type ScoreAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (score, magnitude float64, err error)
}

// LabelAnalyzer returns a pre-classified label
type LabelAnalyzer interface {
	Analyze(ctx context.Context, text string) (string, error)
}

// Classify maps a polarity score to a label
func Classify(score float64) string {
	switch {
	case score > positiveThreshold:
		return LabelPositive
	case score < negativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

type scoreAnnotator struct {
	analyzer ScoreAnalyzer
}

// NewScoreAnnotator thresholds the analyzer's score locally
func NewScoreAnnotator(analyzer ScoreAnalyzer) Annotator {
	return &scoreAnnotator{analyzer: analyzer}
}

func (a *scoreAnnotator) Name() string { return "score" }

func (a *scoreAnnotator) Annotate(ctx context.Context, text string) (*Result, error) {
	score, magnitude, err := a.analyzer.AnalyzeSentiment(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("sentiment analysis failed: %w", err)
	}

	label := Classify(score)
	logger.Debug(logger.SENTIMENT, "Score %.3f (magnitude %.3f) classified as %s", score, magnitude, label)

	return &Result{
		Label:     label,
		Score:     &score,
		Magnitude: &magnitude,
	}, nil
}

type labelAnnotator struct {
	analyzer LabelAnalyzer
}

// NewLabelAnnotator passes the analyzer's label through unchanged
func NewLabelAnnotator(analyzer LabelAnalyzer) Annotator {
	return &labelAnnotator{analyzer: analyzer}
}

func (a *labelAnnotator) Name() string { return "label" }

func (a *labelAnnotator) Annotate(ctx context.Context, text string) (*Result, error) {
	label, err := a.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("sentiment analysis failed: %w", err)
	}

	logger.Debug(logger.SENTIMENT, "Upstream label %s", label)

	return &Result{Label: label}, nil
}

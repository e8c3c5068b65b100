// Package sentiment defines the classification capability consumed by the
// dashboard. The harvester treats it as an opaque collaborator: a Classifier
// is constructed once per process and passed explicitly to whatever needs
// it, so tests can substitute a stub.
package sentiment

import (
	"context"
	"strings"
)

// Label is one of the two classes the downstream contract allows.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
)

// Prediction carries a label and a confidence in [0, 1].
type Prediction struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier scores free text. Implementations may call out to external
// engines; errors surface rather than being swallowed into a default label.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string) (Prediction, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (Prediction, error) {
	return f(ctx, text)
}

// LexiconClassifier is a small word-list scorer, the in-tree stand-in for a
// real model. It exists so the downstream contract has a working default and
// the interface has a reference implementation.
type LexiconClassifier struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewLexiconClassifier builds the classifier with its built-in word lists.
func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{
		positive: wordSet("good", "great", "excellent", "love", "loved", "amazing",
			"perfect", "best", "happy", "wonderful", "fantastic", "recommend"),
		negative: wordSet("bad", "poor", "terrible", "hate", "hated", "awful",
			"worst", "broken", "disappointed", "disappointing", "refund", "waste"),
	}
}

// Classify scores text by matched word counts. A text with no signal either
// way is positive at minimum confidence.
func (c *LexiconClassifier) Classify(_ context.Context, text string) (Prediction, error) {
	var pos, neg int
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if _, ok := c.positive[word]; ok {
			pos++
		}
		if _, ok := c.negative[word]; ok {
			neg++
		}
	}

	if pos == 0 && neg == 0 {
		return Prediction{Label: Positive, Confidence: 0.5}, nil
	}

	label := Positive
	dominant := pos
	if neg > pos {
		label = Negative
		dominant = neg
	}
	return Prediction{
		Label:      label,
		Confidence: float64(dominant) / float64(pos+neg),
	}, nil
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

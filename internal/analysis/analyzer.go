// Package analysis derives a one-sentence summary and a sentiment label from
// a source record using fixed templates and keyword lists.
package analysis

import (
	"fmt"
	"strings"

	"github.com/kalambet/userpipe/internal/source"
)

// Sentiment is the label assigned to a record.
type Sentiment string

const (
	Optimistic  Sentiment = "optimistic"
	Pessimistic Sentiment = "pessimistic"
	Balanced    Sentiment = "balanced"
)

const (
	// Unknown replaces any missing name, organization or location.
	Unknown = "Unknown"
	// FallbackSummary is reported for records that could not be analyzed.
	FallbackSummary = "Analysis unavailable"
	// FallbackSentiment is reported for records that could not be analyzed.
	FallbackSentiment = Balanced
)

var (
	positiveKeywords = []string{"innovative", "success", "growth", "vision", "optimal"}
	negativeKeywords = []string{"problem", "challenge", "failure", "risk"}
)

// Result is the analysis of one record.
type Result struct {
	Summary   string
	Sentiment Sentiment
}

// Analyzer is the keyword analyzer. It holds no state.
type Analyzer struct{}

// Analyze implements the pipeline's analyzer contract.
func (Analyzer) Analyze(rec source.Record) (Result, error) {
	return Analyze(rec)
}

// Analyze summarizes rec and classifies its organization catchphrase.
// Missing fields default to Unknown; fields of the wrong shape are errors.
func Analyze(rec source.Record) (Result, error) {
	name, err := stringField(rec, "name", Unknown)
	if err != nil {
		return Result{}, err
	}

	company, err := objectField(rec, "company")
	if err != nil {
		return Result{}, err
	}
	companyName, err := stringField(company, "name", Unknown)
	if err != nil {
		return Result{}, fmt.Errorf("company.%w", err)
	}
	catchPhrase, err := stringField(company, "catchPhrase", "")
	if err != nil {
		return Result{}, fmt.Errorf("company.%w", err)
	}

	address, err := objectField(rec, "address")
	if err != nil {
		return Result{}, err
	}
	city, err := stringField(address, "city", Unknown)
	if err != nil {
		return Result{}, fmt.Errorf("address.%w", err)
	}

	return Result{
		Summary:   fmt.Sprintf("%s works at %s and is based in %s. Professional environment detected.", name, companyName, city),
		Sentiment: Classify(catchPhrase),
	}, nil
}

// Classify labels text by case-insensitive keyword containment. Positive
// keywords are checked first, so text with both kinds is Optimistic.
func Classify(text string) Sentiment {
	lower := strings.ToLower(text)
	for _, kw := range positiveKeywords {
		if strings.Contains(lower, kw) {
			return Optimistic
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			return Pessimistic
		}
	}
	return Balanced
}

// DisplayName returns the record's name, or Unknown when it has none usable.
func DisplayName(rec source.Record) string {
	if name, ok := rec["name"].(string); ok {
		return name
	}
	return Unknown
}

func stringField(m map[string]any, key, def string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", key, v)
	}
	return s, nil
}

func objectField(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch obj := v.(type) {
	case map[string]any:
		return obj, nil
	case source.Record:
		return obj, nil
	default:
		return nil, fmt.Errorf("%s: expected object, got %T", key, v)
	}
}

package mlclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dtnitsch/news-digest/models"
)

// Summarizer produces one summary per input text, in input order.
type Summarizer struct {
	client
}

func NewSummarizer(cfg models.ServiceConfig, httpClient *http.Client) *Summarizer {
	return &Summarizer{client: newClient(cfg, httpClient)}
}

type summarizeRequest struct {
	Inputs     []string           `json:"inputs"`
	Parameters summarizeParameter `json:"parameters"`
}

type summarizeParameter struct {
	Truncation bool `json:"truncation"`
}

type summaryResult struct {
	SummaryText string `json:"summary_text"`
}

// SummarizeBatch sends every text in one request. The result is index-aligned with texts.
func (s *Summarizer) SummarizeBatch(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	var results []summaryResult
	req := summarizeRequest{Inputs: texts, Parameters: summarizeParameter{Truncation: true}}
	if err := s.post(ctx, req, &results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummarizeFailed, err)
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("%w: got %d summaries for %d texts", ErrSummarizeFailed, len(results), len(texts))
	}

	summaries := make([]string, len(results))
	for i, r := range results {
		summaries[i] = r.SummaryText
	}
	return summaries, nil
}

package mlclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dtnitsch/news-digest/models"
)

// Classifier assigns each text the best of a fixed set of candidate labels.
type Classifier struct {
	client
}

func NewClassifier(cfg models.ServiceConfig, httpClient *http.Client) *Classifier {
	return &Classifier{client: newClient(cfg, httpClient)}
}

type classifyRequest struct {
	Inputs     []string          `json:"inputs"`
	Parameters classifyParameter `json:"parameters"`
}

type classifyParameter struct {
	CandidateLabels []string `json:"candidate_labels"`
}

type classifyResult struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

// ClassifyBatch returns the top-ranked label for each text, index-aligned with texts.
func (c *Classifier) ClassifyBatch(ctx context.Context, texts, labels []string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no candidate labels", ErrClassifyFailed)
	}

	var results []classifyResult
	req := classifyRequest{Inputs: texts, Parameters: classifyParameter{CandidateLabels: labels}}
	if err := c.post(ctx, req, &results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifyFailed, err)
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("%w: got %d results for %d texts", ErrClassifyFailed, len(results), len(texts))
	}

	best := make([]string, len(results))
	for i, r := range results {
		if len(r.Labels) == 0 {
			return nil, fmt.Errorf("%w: result %d has no labels", ErrClassifyFailed, i)
		}
		best[i] = r.Labels[0]
	}
	return best, nil
}

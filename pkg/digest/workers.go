package digest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/logger"
)

type articleJob struct {
	pos      int
	headline string
	url      string
}

// fetchArticles downloads and extracts every article in the index on a bounded
// pool of workers. Bodies come back in index order. The first failure cancels
// the remaining jobs and is returned; no partial result is produced.
func (p *Pipeline) fetchArticles(ctx context.Context, log logger.Logger, index *models.HeadlineIndex) ([]string, error) {
	headlines := index.Keys()
	urls := index.Values()
	bodies := make([]string, len(headlines))
	if len(headlines) == 0 {
		return bodies, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := p.opts.Workers
	if workers > len(headlines) {
		workers = len(headlines)
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	jobs := make(chan articleJob)

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for job := range jobs {
				body, err := p.fetchArticle(ctx, job.url)
				if err != nil {
					once.Do(func() {
						firstErr = fmt.Errorf("article %q: %w", job.headline, err)
						cancel()
					})
					continue
				}
				log.Debug("article extracted",
					logger.Int("worker_id", id),
					logger.String("url", job.url),
					logger.Int("chars", len(body)))
				bodies[job.pos] = body
			}
		}(w)
	}

dispatch:
	for i := range headlines {
		select {
		case jobs <- articleJob{pos: i, headline: headlines[i], url: urls[i]}:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return bodies, nil
}

func (p *Pipeline) fetchArticle(ctx context.Context, url string) (string, error) {
	doc, err := p.deps.Fetcher.Fetch(ctx, url, true)
	if err != nil {
		return "", err
	}
	return p.deps.Source.ExtractArticle(doc)
}

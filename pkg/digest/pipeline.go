// Package digest joins the fetcher, page extraction and the hosted models into
// a summarized, optionally category-filtered news digest.
package digest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/analytics"
	"github.com/dtnitsch/news-digest/pkg/extractors"
	"github.com/dtnitsch/news-digest/pkg/logger"
	"github.com/dtnitsch/news-digest/pkg/mlclient"
	"github.com/dtnitsch/news-digest/pkg/query"
)

const DefaultWorkers = 4

type Interpreter interface {
	Interpret(query string) models.QueryTags
}

type Fetcher interface {
	Fetch(ctx context.Context, url string, isArticle bool) ([]byte, error)
}

type Summarizer interface {
	SummarizeBatch(ctx context.Context, texts []string) ([]string, error)
}

type Classifier interface {
	ClassifyBatch(ctx context.Context, texts, labels []string) ([]string, error)
}

// Deps are the collaborators a pipeline needs. Classifier may be nil when only
// unfiltered digests and headline listings are requested.
type Deps struct {
	Interpreter Interpreter
	Fetcher     Fetcher
	Source      extractors.PageSource
	Summarizer  Summarizer
	Classifier  Classifier
	Logger      logger.Logger
}

type Options struct {
	Workers   int
	WrapWidth int
	// Keywords is how many corpus keywords to attach to each digest; 0 disables.
	Keywords int
	// Labels are the classifier's candidate labels.
	Labels []string
}

type Pipeline struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) (*Pipeline, error) {
	if deps.Interpreter == nil || deps.Fetcher == nil || deps.Source == nil {
		return nil, errors.New("digest pipeline requires an interpreter, a fetcher and a page source")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.WrapWidth < 1 {
		opts.WrapWidth = DefaultWrapWidth
	}
	if len(opts.Labels) == 0 {
		opts.Labels = query.Categories
	}
	return &Pipeline{deps: deps, opts: opts}, nil
}

// Digest is the result of one query.
type Digest struct {
	RunID string
	Tags  models.QueryTags
	// Entries maps headline to summary, in listing order, after category filtering.
	Entries *models.OrderedMap[string]
	// Categories holds the label of every summarized headline; nil when unfiltered.
	Categories *models.OrderedMap[string]
	URLs       *models.HeadlineIndex
	Keywords   []analytics.Keyword
}

func (d *Digest) Filtered() bool { return d.Tags.HasCategory() }

func (d *Digest) Empty() bool { return d.Entries.Len() == 0 }

// Text formats the digest. An empty filtered digest says so explicitly.
func (d *Digest) Text(width int) string {
	if d.Empty() {
		if d.Filtered() {
			return fmt.Sprintf("No %s news found for %s.\n", d.Tags.Category, d.Tags.Location)
		}
		return fmt.Sprintf("No news found for %s.\n", d.Tags.Location)
	}
	return FormatOutput(d.Entries, width)
}

// RunText runs the query and returns the formatted digest.
func (p *Pipeline) RunText(ctx context.Context, q string) (string, error) {
	d, err := p.Run(ctx, q)
	if err != nil {
		return "", err
	}
	return d.Text(p.opts.WrapWidth), nil
}

// Run interprets the query, reads the region listing, summarizes the selected
// stories and, when the query names a category, keeps only stories the
// classifier assigns to it.
func (p *Pipeline) Run(ctx context.Context, q string) (*Digest, error) {
	runID := uuid.NewString()
	log := p.deps.Logger.With(logger.String("run_id", runID))
	start := time.Now()

	tags := p.deps.Interpreter.Interpret(q)
	log.Info("query interpreted",
		logger.String("query", q),
		logger.String("location", tags.Location),
		logger.String("category", tags.Category),
		logger.String("language", tags.Language))
	if tags.Language != "" && tags.Language != "en" {
		log.Warn("query is not in English; tags are matched against English vocabularies",
			logger.String("language", tags.Language))
	}
	if !tags.HasLocation() {
		return nil, ErrNoLocationDetected
	}

	top, all, err := p.listing(ctx, tags.Location)
	if err != nil {
		return nil, err
	}

	index := top
	if tags.HasCategory() {
		index = all
	}
	log.Info("listing extracted",
		logger.Int("top", top.Len()),
		logger.Int("all", all.Len()),
		logger.Int("selected", index.Len()))

	bodies, err := p.fetchArticles(ctx, log, index)
	if err != nil {
		return nil, err
	}
	headlines := index.Keys()

	summaries, err := p.summarize(ctx, bodies)
	if err != nil {
		return nil, err
	}

	d := &Digest{
		RunID:   runID,
		Tags:    tags,
		Entries: models.NewOrderedMap[string](),
		URLs:    index,
	}
	keep := make([]bool, len(headlines))

	if !tags.HasCategory() {
		for i := range keep {
			keep[i] = true
		}
	} else {
		labels, err := p.classify(ctx, summaries)
		if err != nil {
			return nil, err
		}
		d.Categories = models.NewOrderedMap[string]()
		for i, h := range headlines {
			d.Categories.Set(h, labels[i])
			keep[i] = labels[i] == tags.Category
		}
	}

	var kept []string
	for i, h := range headlines {
		if keep[i] {
			d.Entries.Set(h, summaries[i])
			kept = append(kept, bodies[i])
		}
	}
	if p.opts.Keywords > 0 {
		d.Keywords = analytics.CorpusKeywords(kept, p.opts.Keywords)
	}

	log.Info("digest complete",
		logger.Int("stories", d.Entries.Len()),
		logger.Bool("filtered", d.Filtered()),
		logger.Duration("elapsed", time.Since(start)))
	return d, nil
}

func (p *Pipeline) listing(ctx context.Context, location string) (*models.HeadlineIndex, *models.HeadlineIndex, error) {
	src := p.deps.Source
	doc, err := p.deps.Fetcher.Fetch(ctx, src.BaseURL()+src.ListingPath(location), false)
	if err != nil {
		return nil, nil, err
	}
	return src.ExtractListing(doc)
}

func (p *Pipeline) summarize(ctx context.Context, bodies []string) ([]string, error) {
	if p.deps.Summarizer == nil {
		return nil, fmt.Errorf("%w: no summarizer configured", mlclient.ErrSummarizeFailed)
	}
	summaries, err := p.deps.Summarizer.SummarizeBatch(ctx, bodies)
	if err != nil {
		if !errors.Is(err, mlclient.ErrSummarizeFailed) {
			err = fmt.Errorf("%w: %w", mlclient.ErrSummarizeFailed, err)
		}
		return nil, err
	}
	if len(summaries) != len(bodies) {
		return nil, fmt.Errorf("%w: got %d summaries for %d articles", mlclient.ErrSummarizeFailed, len(summaries), len(bodies))
	}
	return summaries, nil
}

func (p *Pipeline) classify(ctx context.Context, summaries []string) ([]string, error) {
	if p.deps.Classifier == nil {
		return nil, fmt.Errorf("%w: no classifier configured", mlclient.ErrClassifyFailed)
	}
	labels, err := p.deps.Classifier.ClassifyBatch(ctx, summaries, p.opts.Labels)
	if err != nil {
		if !errors.Is(err, mlclient.ErrClassifyFailed) {
			err = fmt.Errorf("%w: %w", mlclient.ErrClassifyFailed, err)
		}
		return nil, err
	}
	if len(labels) != len(summaries) {
		return nil, fmt.Errorf("%w: got %d labels for %d summaries", mlclient.ErrClassifyFailed, len(labels), len(summaries))
	}
	return labels, nil
}

// Headlines lists a region's stories without summarizing them. location may be a
// region identifier or free text naming one.
func (p *Pipeline) Headlines(ctx context.Context, location string, all bool) (*models.HeadlineIndex, error) {
	loc := location
	if !slices.Contains(query.Locations, loc) {
		loc = p.deps.Interpreter.Interpret(location).Location
	}
	if loc == "" {
		return nil, ErrNoLocationDetected
	}

	top, allIdx, err := p.listing(ctx, loc)
	if err != nil {
		return nil, err
	}
	if all {
		return allIdx, nil
	}
	return top, nil
}

// NationalHeadlines lists the stories on the national front page.
func (p *Pipeline) NationalHeadlines(ctx context.Context) (*models.HeadlineIndex, error) {
	src := p.deps.Source
	doc, err := p.deps.Fetcher.Fetch(ctx, src.BaseURL()+src.FrontPagePath(), false)
	if err != nil {
		return nil, err
	}
	return src.ExtractFrontPage(doc)
}

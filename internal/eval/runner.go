// Package eval measures answer quality against a labelled question set.
//
// A run optionally ingests fixture documents, asks every question through the
// answer service and reports retrieval hit rate, citation correctness and the
// "I don't know" rate on unanswerable questions.
package eval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driving"
	"github.com/mitiak/raggy/internal/logger"
)

// DefaultTopK is the top_k sent with every question.
const DefaultTopK = 5

// ChunkReader loads cited chunks for citation checks.
type ChunkReader interface {
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)
}

// Config selects the inputs of a run.
type Config struct {
	DatasetPath string
	FixturePath string

	// IngestFixtures ingests FixturePath before asking questions.
	IngestFixtures bool

	// Limit caps the number of questions; zero or less means all.
	Limit int
}

// Failure records a question that could not be answered.
type Failure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Report is the outcome of a run.
type Report struct {
	TotalQuestions          int       `json:"total_questions"`
	CompletedQuestions      int       `json:"completed_questions"`
	FailedQuestions         int       `json:"failed_questions"`
	AnswerableQuestions     int       `json:"answerable_questions"`
	UnanswerableQuestions   int       `json:"unanswerable_questions"`
	RetrievalHitRate        float64   `json:"retrieval_hit_rate"`
	CitationCorrectness     float64   `json:"citation_correctness"`
	IDKRateUnanswerable     float64   `json:"idk_rate_unanswerable"`
	CitationChecksTotal     int       `json:"citation_checks_total"`
	CitationChecksSupported int       `json:"citation_checks_supported"`
	CitationErrors          *string   `json:"citation_errors"`
	FixturesIngested        int       `json:"fixtures_ingested"`
	Failures                []Failure `json:"failures"`
}

// Runner executes evaluations in-process.
type Runner struct {
	ingest      driving.IngestService
	answer      driving.AnswerService
	chunks      ChunkReader
	topK        int
	concurrency int
}

// Option configures a Runner.
type Option func(*Runner)

// WithTopK overrides DefaultTopK.
func WithTopK(k int) Option {
	return func(r *Runner) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithConcurrency asks up to n questions at once. Report order is unaffected.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRunner creates a runner. ingest may be nil when fixtures are never ingested.
func NewRunner(ingest driving.IngestService, answer driving.AnswerService, chunks ChunkReader, opts ...Option) *Runner {
	r := &Runner{
		ingest:      ingest,
		answer:      answer,
		chunks:      chunks,
		topK:        DefaultTopK,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type outcome struct {
	question Question
	answer   *domain.Answer
	unknown  bool
	hit      bool
	err      error
}

// Run loads the dataset, optionally ingests fixtures and evaluates every question.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Report, error) {
	if r.answer == nil {
		return nil, fmt.Errorf("%w: answer service is required", domain.ErrInvalidInput)
	}

	report := &Report{Failures: []Failure{}}
	if cfg.IngestFixtures && cfg.FixturePath != "" {
		n, err := r.ingestFixtures(ctx, cfg.FixturePath)
		if err != nil {
			return nil, err
		}
		report.FixturesIngested = n
	}

	questions, err := LoadQuestions(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	if cfg.Limit > 0 && cfg.Limit < len(questions) {
		questions = questions[:cfg.Limit]
	}
	report.TotalQuestions = len(questions)

	outcomes, err := r.ask(ctx, questions)
	if err != nil {
		return nil, err
	}

	var completed []outcome
	for _, o := range outcomes {
		if o.err != nil {
			report.Failures = append(report.Failures, Failure{ID: o.question.ID, Error: o.err.Error()})
			continue
		}
		completed = append(completed, o)
	}
	report.CompletedQuestions = len(completed)
	report.FailedQuestions = len(report.Failures)

	var hits, idk int
	for _, o := range completed {
		if o.question.Answerable {
			report.AnswerableQuestions++
			if o.hit {
				hits++
			}
		} else {
			report.UnanswerableQuestions++
			if o.unknown {
				idk++
			}
		}
	}
	report.RetrievalHitRate = ratio(hits, report.AnswerableQuestions)
	report.IDKRateUnanswerable = ratio(idk, report.UnanswerableQuestions)

	if err := r.checkCitations(ctx, completed, report); err != nil {
		msg := err.Error()
		report.CitationErrors = &msg
	}
	report.CitationCorrectness = ratio(report.CitationChecksSupported, report.CitationChecksTotal)

	logger.Event("eval_completed",
		"total", report.TotalQuestions,
		"failed", report.FailedQuestions,
		"retrieval_hit_rate", report.RetrievalHitRate,
		"citation_correctness", report.CitationCorrectness,
		"idk_rate_unanswerable", report.IDKRateUnanswerable,
	)
	return report, nil
}

func (r *Runner) ingestFixtures(ctx context.Context, path string) (int, error) {
	if r.ingest == nil {
		return 0, fmt.Errorf("%w: ingest service is required for fixtures", domain.ErrInvalidInput)
	}
	fixtures, err := LoadFixtures(path)
	if err != nil {
		return 0, err
	}

	ingested := 0
	for i, fx := range fixtures {
		req, err := fx.Request()
		if err == nil {
			_, err = r.ingest.Ingest(ctx, req)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ingested, ctx.Err()
			}
			logger.Warn("Skipping fixture %d (%q): %v", i+1, fx.Title, err)
			continue
		}
		ingested++
	}
	return ingested, nil
}

// ask answers every question, keeping input order.
func (r *Runner) ask(ctx context.Context, questions []Question) ([]outcome, error) {
	outcomes := make([]outcome, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, q := range questions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.askOne(gctx, q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *Runner) askOne(ctx context.Context, q Question) outcome {
	o := outcome{question: q}

	filters, err := q.UsedFilters.ToFilters()
	if err != nil {
		o.err = err
		return o
	}
	answer, err := r.answer.Answer(ctx, q.Query, r.topK, filters)
	if err != nil {
		o.err = err
		return o
	}

	o.answer = answer
	o.unknown = domain.IsUnknownAnswer(answer.Text)
	o.hit = retrievalHit(q, answer)
	return o
}

// checkCitations counts substantive answers whose text appears in a cited
// chunk. Missing chunks are unsupported; other read errors abort the check.
func (r *Runner) checkCitations(ctx context.Context, outcomes []outcome, report *Report) error {
	if r.chunks == nil {
		return errors.New("no chunk reader configured")
	}

	texts := make(map[string]string)
	lookup := func(id string) (string, bool, error) {
		if text, ok := texts[id]; ok {
			return text, true, nil
		}
		chunk, err := r.chunks.GetChunk(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		texts[id] = chunk.Text
		return chunk.Text, true, nil
	}

	for _, o := range outcomes {
		if o.unknown || len(o.answer.Citations) == 0 {
			continue
		}
		report.CitationChecksTotal++

		supported, err := citationSupported(o.answer, lookup)
		if err != nil {
			return fmt.Errorf("load cited chunks: %w", err)
		}
		if supported {
			report.CitationChecksSupported++
		}
	}
	return nil
}

// ==================== Helper Functions ====================

func citationSupported(a *domain.Answer, lookup func(id string) (string, bool, error)) (bool, error) {
	answer := normalise(a.Text)
	if answer == "" {
		return false, nil
	}
	for _, c := range a.Citations {
		text, ok, err := lookup(c.ChunkID)
		if err != nil {
			return false, err
		}
		if ok && strings.Contains(normalise(text), answer) {
			return true, nil
		}
	}
	return false, nil
}

func retrievalHit(q Question, a *domain.Answer) bool {
	if q.ExpectedTitle != nil {
		for _, c := range a.Citations {
			if c.Title == *q.ExpectedTitle {
				return true
			}
		}
		return false
	}
	if q.ExpectedSubstring != nil {
		needle := strings.ToLower(*q.ExpectedSubstring)
		if strings.Contains(strings.ToLower(a.Text), needle) {
			return true
		}
		for _, c := range a.Citations {
			if strings.Contains(strings.ToLower(c.Title), needle) {
				return true
			}
		}
		return false
	}
	if q.Answerable {
		return len(a.Citations) > 0
	}
	return true
}

func normalise(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(d)*1e4) / 1e4
}

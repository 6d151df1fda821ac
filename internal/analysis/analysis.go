// Package analysis runs the full contract pipeline: classification,
// segmentation, per-clause analysis, reference lookup and aggregation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/contractpilot/internal/anonymize"
	"github.com/dshills/contractpilot/internal/clause"
	"github.com/dshills/contractpilot/internal/contracttype"
	"github.com/dshills/contractpilot/internal/lawref"
	"github.com/dshills/contractpilot/internal/llm"
	"github.com/dshills/contractpilot/internal/risk"
	"github.com/dshills/contractpilot/internal/schema"
)

// Sentinel errors.
var (
	ErrEmptyText      = errors.New("analysis: contract text is empty")
	ErrNoClauses      = errors.New("analysis: no clauses found")
	ErrTooManyClauses = errors.New("analysis: too many clauses")
)

// Defaults.
const (
	DefaultConcurrency          = 4
	DefaultSimilarCaseThreshold = int(risk.HighRiskScore)
	DefaultAlternativeThreshold = int(risk.SevereScore)
	DefaultSimilarCaseLimit     = 2
)

// ClauseAnalyzer is the external collaborator that scores a single clause.
// *llm.Client satisfies it.
type ClauseAnalyzer interface {
	AnalyzeClause(ctx context.Context, req llm.ClauseRequest) (schema.ClauseAnalysis, error)
	GenerateAlternative(ctx context.Context, original string, issues []string) (string, error)
}

// infoer is implemented by analyzers that can describe their backend.
type infoer interface {
	Info() llm.Info
}

// Result is a finished analysis run.
type Result struct {
	ID string `json:"id"`
	schema.ContractReport
	Provider     *llm.Info       `json:"provider,omitempty"`
	PersonalData anonymize.Stats `json:"personal_data,omitempty"`
	Thresholds   Thresholds      `json:"thresholds"`
	AnalyzedAt   time.Time       `json:"analyzed_at"`
}

// Thresholds records the clause scores a run used for attaching precedents
// and requesting alternatives.
type Thresholds struct {
	SimilarCase int `json:"similar_case"`
	Alternative int `json:"alternative"`
}

// Analyzer orchestrates one contract analysis. It holds no per-run state and
// is safe for concurrent use when its ClauseAnalyzer is.
type Analyzer struct {
	clauses   ClauseAnalyzer
	laws      *lawref.Store
	engine    *anonymize.Engine
	logger    *slog.Logger

	concurrency          int
	maxClauses           int
	similarCaseThreshold schema.Score
	alternativeThreshold schema.Score
	similarCaseLimit     int
	withPrecedents       bool
	now                  func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithConcurrency caps the number of clauses analyzed at once.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithMaxClauses rejects documents with more than n clauses. Zero means no
// limit.
func WithMaxClauses(n int) Option {
	return func(a *Analyzer) { a.maxClauses = n }
}

// WithSimilarCaseThreshold sets the score at which precedents are attached.
func WithSimilarCaseThreshold(s int) Option {
	return func(a *Analyzer) { a.similarCaseThreshold = schema.Score(s) }
}

// WithAlternativeThreshold sets the score at which a rewrite is requested.
func WithAlternativeThreshold(s int) Option {
	return func(a *Analyzer) { a.alternativeThreshold = schema.Score(s) }
}

// WithSimilarCaseLimit sets how many precedents are attached per clause.
func WithSimilarCaseLimit(n int) Option {
	return func(a *Analyzer) { a.similarCaseLimit = n }
}

// WithPrecedents quotes matching precedents in every analysis prompt.
func WithPrecedents(on bool) Option {
	return func(a *Analyzer) { a.withPrecedents = on }
}

// WithAnonymizer sets the engine used for the personal-data counts in Result.
func WithAnonymizer(e *anonymize.Engine) Option {
	return func(a *Analyzer) { a.engine = e }
}

// New creates an Analyzer.
func New(ca ClauseAnalyzer, laws *lawref.Store, opts ...Option) *Analyzer {
	a := &Analyzer{
		clauses:              ca,
		laws:                 laws,
		concurrency:          DefaultConcurrency,
		similarCaseThreshold: risk.HighRiskScore,
		alternativeThreshold: risk.SevereScore,
		similarCaseLimit:     DefaultSimilarCaseLimit,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Analyze runs the pipeline over text. An empty override classifies the
// contract from its text. The first clause analysis error cancels the
// remaining clauses and is returned.
func (a *Analyzer) Analyze(ctx context.Context, text string, override contracttype.Type) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	ct := override
	if ct == "" {
		ct = contracttype.Classify(text)
	}

	clauses := clause.Split(text)
	if len(clauses) == 0 {
		return nil, ErrNoClauses
	}
	if a.maxClauses > 0 && len(clauses) > a.maxClauses {
		return nil, fmt.Errorf("%w: %d (limit %d)", ErrTooManyClauses, len(clauses), a.maxClauses)
	}

	a.logger.Info("analyzing contract",
		"contract_type", ct,
		"clauses", len(clauses),
		"concurrency", a.concurrency,
	)
	start := time.Now()

	// Index-addressed: each goroutine owns one slot.
	analyzed := make([]schema.AnalyzedClause, len(clauses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, c := range clauses {
		g.Go(func() error {
			ac, err := a.analyzeOne(gctx, c, ct)
			if err != nil {
				return fmt.Errorf("analysis: clause %d: %w", c.Number, err)
			}
			analyzed[i] = ac
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var missing []schema.MissingClause
	if a.laws != nil {
		missing = a.laws.MissingClauses(ct, clauses)
	}

	res := &Result{
		ID:             uuid.NewString(),
		ContractReport: risk.Aggregate(ct.String(), analyzed, missing),
		Thresholds: Thresholds{
			SimilarCase: int(a.similarCaseThreshold),
			Alternative: int(a.alternativeThreshold),
		},
		AnalyzedAt: a.now().UTC(),
	}
	if inf, ok := a.clauses.(infoer); ok {
		info := inf.Info()
		res.Provider = &info
	}
	if a.engine != nil {
		res.PersonalData = a.engine.Stats(text)
	}

	a.logger.Info("analysis complete",
		"id", res.ID,
		"overall_risk_level", res.OverallRiskLevel,
		"high_risk_clauses", res.HighRiskClauses,
		"missing_clauses", len(missing),
		"elapsed", time.Since(start),
	)
	return res, nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, c schema.Clause, ct contracttype.Type) (schema.AnalyzedClause, error) {
	if err := ctx.Err(); err != nil {
		return schema.AnalyzedClause{}, err
	}

	req := llm.ClauseRequest{Text: c.Content, ContractType: ct.String()}
	if a.withPrecedents && a.laws != nil {
		req.Cases = a.laws.SimilarCases(c.Content, a.similarCaseLimit)
	}

	an, err := a.clauses.AnalyzeClause(ctx, req)
	if err != nil {
		return schema.AnalyzedClause{}, err
	}

	ac := schema.AnalyzedClause{
		Clause:       c,
		Analysis:     an,
		SimilarCases: []schema.SimilarCase{},
	}
	if a.laws != nil {
		ac.LawRefs = a.laws.RelevantLaws(c.Content)
		if an.RiskScore >= a.similarCaseThreshold {
			if cases := a.laws.SimilarCases(c.Content, a.similarCaseLimit); cases != nil {
				ac.SimilarCases = cases
			}
		}
	}

	if an.RiskScore >= a.alternativeThreshold {
		alt, err := a.clauses.GenerateAlternative(ctx, c.Content, an.Issues)
		if err != nil {
			// A missing rewrite does not invalidate the analysis.
			a.logger.Warn("alternative generation failed", "clause", c.Number, "error", err)
		} else {
			ac.Alternative = alt
		}
	}

	a.logger.Debug("clause analyzed", "clause", c.Number, "risk_score", an.RiskScore)
	return ac, nil
}

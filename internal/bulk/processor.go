package bulk

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/theadiisingh/finpol/internal/idgen"
	"github.com/theadiisingh/finpol/internal/logging"
	"github.com/theadiisingh/finpol/internal/metrics"
	"github.com/theadiisingh/finpol/internal/regulation"
	"github.com/theadiisingh/finpol/internal/risk"
	"github.com/theadiisingh/finpol/internal/traces"
	"github.com/theadiisingh/finpol/internal/transaction"
)

// Retrieval queries issued once per triggered batch signal.
const (
	queryHighRisk = "anti-money laundering suspicious transactions reporting"
	queryCrypto   = "cryptocurrency virtual assets FATF travel rule"
)

// LevelUnknown marks a transaction whose assessment itself failed.
const LevelUnknown = "Unknown"

// ItemResult is the per-transaction outcome within a batch.
type ItemResult struct {
	TransactionID  string   `json:"transactionId"`
	RiskScore      int      `json:"riskScore"`
	RiskLevel      string   `json:"riskLevel"`
	ShouldApprove  bool     `json:"shouldApprove"`
	RequiresReview bool     `json:"requiresReview"`
	Reasons        []string `json:"reasons"`
}

// Summary aggregates a processed batch.
type Summary struct {
	TotalTransactions int                `json:"totalTransactions"`
	TotalAmount       float64            `json:"totalAmount"`
	RiskDistribution  map[string]int     `json:"riskDistribution"`
	AmountByRisk      map[string]float64 `json:"amountByRisk"`
	ComplianceRate    float64            `json:"complianceRate"`
	HighRiskCount     int                `json:"highRiskCount"`
	CriticalCount     int                `json:"criticalCount"`
	MediumRiskCount   int                `json:"mediumRiskCount"`
	LowRiskCount      int                `json:"lowRiskCount"`
}

// Result is the full outcome of processing one uploaded batch.
type Result struct {
	Transactions []*transaction.Transaction `json:"transactions"`
	Results      map[string]*ItemResult     `json:"riskResults"`
	Regulations  []regulation.Document      `json:"regulations"`
	Summary      *Summary                   `json:"summary"`
	Filename     string                     `json:"filename"`
	ProcessedAt  time.Time                  `json:"processedAt"`
}

// ReportRenderer turns a processed batch into a downloadable report.
// Rendering backends (PDF etc.) plug in here; none ships by default.
type ReportRenderer interface {
	Render(ctx context.Context, result *Result) ([]byte, error)
}

// ErrNoRenderer is returned by RenderReport when no rendering backend is
// configured.
var ErrNoRenderer = errors.New("no report renderer configured")

// Processor orchestrates the bulk flow: parse, assess each transaction in
// isolation, retrieve batch-level regulations, and summarize.
type Processor struct {
	parser    *Parser
	engine    *risk.Engine
	retriever regulation.Searcher
	renderer  ReportRenderer
}

// Option configures a Processor.
type Option func(*Processor)

// WithRenderer installs a report rendering backend.
func WithRenderer(r ReportRenderer) Option {
	return func(p *Processor) { p.renderer = r }
}

// NewProcessor creates a bulk processor.
func NewProcessor(parser *Parser, engine *risk.Engine, retriever regulation.Searcher, opts ...Option) *Processor {
	p := &Processor{parser: parser, engine: engine, retriever: retriever}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RenderReport renders a processed batch into a downloadable document.
func (p *Processor) RenderReport(ctx context.Context, result *Result) ([]byte, error) {
	if p.renderer == nil {
		return nil, ErrNoRenderer
	}
	return p.renderer.Render(ctx, result)
}

// ProcessFile parses and processes an uploaded file.
func (p *Processor) ProcessFile(ctx context.Context, content []byte, filename, userID string) (*Result, error) {
	txs, err := p.parser.ParseFile(ctx, content, filename, userID)
	if err != nil {
		return nil, err
	}
	result, err := p.ProcessBatch(ctx, txs)
	if err != nil {
		return nil, err
	}
	result.Filename = filename
	return result, nil
}

// ProcessBatch assesses every transaction, gathers batch-level regulations,
// and compiles the summary. One failing transaction never fails the batch:
// it is marked Unknown and flagged for review.
func (p *Processor) ProcessBatch(ctx context.Context, txs []*transaction.Transaction) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "bulk.process_batch", traces.BatchSize(len(txs)))
	defer span.End()

	results := make(map[string]*ItemResult, len(txs))
	for _, tx := range txs {
		// Results are keyed by ID; assign one so ID-less transactions
		// don't collapse into a single entry.
		if tx.ID == "" {
			tx.ID = idgen.WithPrefix("txn_")
		}
		results[tx.ID] = p.assessOne(ctx, tx)
	}

	regulations := p.batchRegulations(ctx, results)
	summary := compileSummary(txs, results)

	metrics.BulkBatchesTotal.Inc()
	logging.L(ctx).Info("bulk batch processed",
		"transactions", len(txs),
		"high_risk", summary.HighRiskCount,
		"compliance_rate", summary.ComplianceRate,
	)

	return &Result{
		Transactions: txs,
		Results:      results,
		Regulations:  regulations,
		Summary:      summary,
		ProcessedAt:  time.Now().UTC(),
	}, nil
}

// assessOne evaluates a single transaction, isolating failures.
func (p *Processor) assessOne(ctx context.Context, tx *transaction.Transaction) *ItemResult {
	if err := tx.Validate(); err != nil {
		logging.L(ctx).Error("bulk transaction failed assessment", "transaction_id", tx.ID, "error", err)
		metrics.BulkTransactionsTotal.WithLabelValues("failed").Inc()
		return &ItemResult{
			TransactionID:  tx.ID,
			RiskScore:      0,
			RiskLevel:      LevelUnknown,
			ShouldApprove:  false,
			RequiresReview: true,
			Reasons:        []string{"Analysis error: " + err.Error()},
		}
	}

	assessment := p.engine.Assess(ctx, tx)
	metrics.BulkTransactionsTotal.WithLabelValues("ok").Inc()
	return &ItemResult{
		TransactionID:  tx.ID,
		RiskScore:      assessment.Score,
		RiskLevel:      string(assessment.Level),
		ShouldApprove:  assessment.Level == risk.LevelLow,
		RequiresReview: assessment.Level != risk.LevelLow,
		Reasons:        assessment.Factors,
	}
}

// batchRegulations derives signal categories from the batch and issues at
// most one retrieval query per triggered category. Retrieval failures only
// shrink the result set.
func (p *Processor) batchRegulations(ctx context.Context, results map[string]*ItemResult) []regulation.Document {
	if p.retriever == nil {
		return nil
	}

	var highRisk, crypto bool
	for _, r := range results {
		if r.RiskLevel == string(risk.LevelHigh) || r.RiskLevel == string(risk.LevelCritical) {
			highRisk = true
		}
		for _, reason := range r.Reasons {
			if strings.Contains(strings.ToLower(reason), "crypto") {
				crypto = true
			}
		}
	}

	var docs []regulation.Document
	if highRisk {
		docs = append(docs, p.search(ctx, queryHighRisk)...)
	}
	if crypto {
		docs = append(docs, p.search(ctx, queryCrypto)...)
	}
	return dedupeDocuments(docs)
}

func (p *Processor) search(ctx context.Context, query string) []regulation.Document {
	docs, err := p.retriever.SearchRegulations(ctx, query, 0)
	if err != nil {
		logging.L(ctx).Warn("batch regulation retrieval failed", "query", query, "error", err)
		metrics.RetrievalsTotal.WithLabelValues("error").Inc()
		return nil
	}
	return docs
}

// dedupeDocuments drops duplicates by content prefix, preserving order.
func dedupeDocuments(docs []regulation.Document) []regulation.Document {
	seen := make(map[string]struct{}, len(docs))
	var unique []regulation.Document
	for _, d := range docs {
		key := d.Content
		if len(key) > 30 {
			key = key[:30]
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, d)
	}
	return unique
}

func compileSummary(txs []*transaction.Transaction, results map[string]*ItemResult) *Summary {
	s := &Summary{
		TotalTransactions: len(txs),
		RiskDistribution:  make(map[string]int),
		AmountByRisk:      make(map[string]float64),
	}

	for _, tx := range txs {
		s.TotalAmount += tx.Amount
		level := string(risk.LevelLow)
		if r, ok := results[tx.ID]; ok {
			level = r.RiskLevel
		}
		s.RiskDistribution[level]++
		s.AmountByRisk[level] += tx.Amount
	}

	s.HighRiskCount = s.RiskDistribution[string(risk.LevelHigh)]
	s.CriticalCount = s.RiskDistribution[string(risk.LevelCritical)]
	s.MediumRiskCount = s.RiskDistribution[string(risk.LevelMedium)]
	s.LowRiskCount = s.RiskDistribution[string(risk.LevelLow)]

	if s.TotalTransactions > 0 {
		s.ComplianceRate = float64(s.LowRiskCount) / float64(s.TotalTransactions) * 100
	} else {
		s.ComplianceRate = 100
	}
	return s
}

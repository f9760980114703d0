package bulk

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/theadiisingh/finpol/internal/regulation"
	"github.com/theadiisingh/finpol/internal/risk"
	"github.com/theadiisingh/finpol/internal/transaction"
)

type recordingSearcher struct {
	queries []string
	docs    map[string][]regulation.Document
	err     error
}

func (s *recordingSearcher) SearchRegulations(ctx context.Context, query string, topK int) ([]regulation.Document, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.docs[query], nil
}

func newProcessor(searcher regulation.Searcher) *Processor {
	return NewProcessor(NewParser(), risk.NewEngine(nil), searcher)
}

func batchTx(id string, amount float64) *transaction.Transaction {
	tx := &transaction.Transaction{
		ID:              id,
		UserID:          "user_b",
		Amount:          amount,
		Country:         "India",
		MerchantType:    "retail",
		DeviceRiskScore: 0.1,
	}
	tx.Normalize()
	return tx
}

func TestProcessBatch_MixedLevels(t *testing.T) {
	p := newProcessor(nil)
	txs := []*transaction.Transaction{
		batchTx("t1", 1000),      // Low
		batchTx("t2", 2_000_000), // High
		batchTx("t3", 500),       // Low
	}

	result, err := p.ProcessBatch(context.Background(), txs)
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if result.Results["t1"].RiskLevel != "Low" || result.Results["t2"].RiskLevel != "High" {
		t.Errorf("Unexpected levels: %+v", result.Results)
	}
	if result.Results["t2"].ShouldApprove || !result.Results["t2"].RequiresReview {
		t.Error("High-risk item must require review")
	}

	s := result.Summary
	if s.TotalTransactions != 3 {
		t.Errorf("Expected 3 transactions, got %d", s.TotalTransactions)
	}
	if s.TotalAmount != 2_001_500 {
		t.Errorf("Expected total 2001500, got %v", s.TotalAmount)
	}
	if s.LowRiskCount != 2 || s.HighRiskCount != 1 {
		t.Errorf("Unexpected counts: low=%d high=%d", s.LowRiskCount, s.HighRiskCount)
	}
	wantRate := 2.0 / 3.0 * 100
	if s.ComplianceRate < wantRate-0.01 || s.ComplianceRate > wantRate+0.01 {
		t.Errorf("Expected compliance rate %.2f, got %.2f", wantRate, s.ComplianceRate)
	}
	if s.AmountByRisk["High"] != 2_000_000 {
		t.Errorf("Unexpected amount by risk: %v", s.AmountByRisk)
	}
}

func TestProcessBatch_FailedItemIsolated(t *testing.T) {
	p := newProcessor(nil)
	bad := batchTx("t_bad", 1000)
	bad.DeviceRiskScore = 5 // fails validation

	txs := []*transaction.Transaction{
		batchTx("t_ok", 1000),
		bad,
	}

	result, err := p.ProcessBatch(context.Background(), txs)
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	failed := result.Results["t_bad"]
	if failed.RiskLevel != LevelUnknown {
		t.Errorf("Expected Unknown level, got %s", failed.RiskLevel)
	}
	if failed.ShouldApprove || !failed.RequiresReview {
		t.Error("Failed item must require review and never approve")
	}
	if len(failed.Reasons) != 1 || !strings.HasPrefix(failed.Reasons[0], "Analysis error:") {
		t.Errorf("Expected analysis error reason, got %v", failed.Reasons)
	}

	if result.Results["t_ok"].RiskLevel != "Low" {
		t.Error("Healthy item must be unaffected by the failing one")
	}
	if result.Summary.RiskDistribution[LevelUnknown] != 1 {
		t.Errorf("Unknown not counted: %v", result.Summary.RiskDistribution)
	}
}

func TestProcessBatch_HighRiskSignalQueriesOnce(t *testing.T) {
	searcher := &recordingSearcher{docs: map[string][]regulation.Document{
		queryHighRisk: {{Content: "AML reporting duty.", Source: "aml.txt"}},
	}}
	p := newProcessor(searcher)

	txs := []*transaction.Transaction{
		batchTx("t1", 2_000_000),
		batchTx("t2", 3_000_000), // second High must not add a second query
	}

	result, err := p.ProcessBatch(context.Background(), txs)
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if len(searcher.queries) != 1 || searcher.queries[0] != queryHighRisk {
		t.Errorf("Expected single high-risk query, got %v", searcher.queries)
	}
	if len(result.Regulations) != 1 {
		t.Errorf("Expected 1 regulation, got %d", len(result.Regulations))
	}
}

func TestProcessBatch_CryptoSignal(t *testing.T) {
	searcher := &recordingSearcher{docs: map[string][]regulation.Document{
		queryCrypto: {{Content: "FATF travel rule for VASPs.", Source: "fatf.txt"}},
	}}
	p := newProcessor(searcher)

	crypto := batchTx("t1", 1000)
	crypto.MerchantType = "crypto_exchange" // Medium, crypto factor

	result, err := p.ProcessBatch(context.Background(), []*transaction.Transaction{crypto})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if len(searcher.queries) != 1 || searcher.queries[0] != queryCrypto {
		t.Errorf("Expected single crypto query, got %v", searcher.queries)
	}
	if len(result.Regulations) != 1 {
		t.Errorf("Expected 1 regulation, got %d", len(result.Regulations))
	}
}

func TestProcessBatch_BothSignalsAndDedupe(t *testing.T) {
	shared := regulation.Document{Content: "Shared AML and crypto guidance snippet here.", Source: "x"}
	searcher := &recordingSearcher{docs: map[string][]regulation.Document{
		queryHighRisk: {shared, {Content: "AML-only snippet.", Source: "a"}},
		queryCrypto:   {shared, {Content: "Crypto-only snippet.", Source: "c"}},
	}}
	p := newProcessor(searcher)

	txs := []*transaction.Transaction{
		batchTx("t1", 2_000_000), // high_risk signal
	}
	crypto := batchTx("t2", 1000)
	crypto.MerchantType = "crypto_exchange" // cryptocurrency signal
	txs = append(txs, crypto)

	result, err := p.ProcessBatch(context.Background(), txs)
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if len(searcher.queries) != 2 {
		t.Fatalf("Expected 2 queries, got %v", searcher.queries)
	}
	if len(result.Regulations) != 3 {
		t.Errorf("Expected 3 deduplicated regulations, got %d", len(result.Regulations))
	}
}

func TestProcessBatch_NoSignalsNoQueries(t *testing.T) {
	searcher := &recordingSearcher{}
	p := newProcessor(searcher)

	result, err := p.ProcessBatch(context.Background(), []*transaction.Transaction{batchTx("t1", 100)})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if len(searcher.queries) != 0 {
		t.Errorf("Expected no retrieval queries, got %v", searcher.queries)
	}
	if len(result.Regulations) != 0 {
		t.Errorf("Expected no regulations, got %d", len(result.Regulations))
	}
}

func TestProcessBatch_RetrievalFailureShrinksResults(t *testing.T) {
	searcher := &recordingSearcher{err: errors.New("index corrupted")}
	p := newProcessor(searcher)

	result, err := p.ProcessBatch(context.Background(), []*transaction.Transaction{batchTx("t1", 2_000_000)})
	if err != nil {
		t.Fatalf("Batch must not fail on retrieval errors: %v", err)
	}
	if len(result.Regulations) != 0 {
		t.Errorf("Expected empty regulations after failure, got %d", len(result.Regulations))
	}
	if result.Results["t1"].RiskLevel != "High" {
		t.Error("Risk results must survive retrieval failure")
	}
}

func TestProcessFile_EndToEnd(t *testing.T) {
	p := newProcessor(nil)
	csvData := strings.Join([]string{
		"amount,country,merchant_type",
		"2000000,India,retail",
		"500,India,retail",
	}, "\n")

	result, err := p.ProcessFile(context.Background(), []byte(csvData), "upload.csv", "analyst_1")
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.Filename != "upload.csv" {
		t.Errorf("Expected filename recorded, got %q", result.Filename)
	}
	if result.ProcessedAt.IsZero() {
		t.Error("Expected processed_at timestamp")
	}
	if result.Summary.TotalTransactions != 2 || result.Summary.HighRiskCount != 1 {
		t.Errorf("Unexpected summary: %+v", result.Summary)
	}
}

func TestCompileSummary_EmptyBatch(t *testing.T) {
	s := compileSummary(nil, nil)
	if s.ComplianceRate != 100 {
		t.Errorf("Expected 100%% compliance for empty batch, got %v", s.ComplianceRate)
	}
	if s.TotalTransactions != 0 || s.TotalAmount != 0 {
		t.Errorf("Unexpected totals: %+v", s)
	}
}

func TestProcessBatch_AssignsMissingIDs(t *testing.T) {
	p := newProcessor(nil)
	txs := []*transaction.Transaction{
		batchTx("", 1000),
		batchTx("", -5), // invalid, isolated as Unknown
		batchTx("", 2000),
	}

	result, err := p.ProcessBatch(context.Background(), txs)
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if len(result.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(result.Results))
	}
	unknown := 0
	for _, tx := range txs {
		if tx.ID == "" {
			t.Error("Expected every transaction to receive an ID")
		}
		r, ok := result.Results[tx.ID]
		if !ok {
			t.Fatalf("No result for transaction %q", tx.ID)
		}
		if r.RiskLevel == LevelUnknown {
			unknown++
		}
	}
	if unknown != 1 {
		t.Errorf("Expected exactly 1 Unknown result, got %d", unknown)
	}
	if got := result.Summary.ComplianceRate; got < 66.6 || got > 66.7 {
		t.Errorf("Expected compliance rate ~66.67, got %v", got)
	}
}

type fakeRenderer struct {
	lastResult *Result
	err        error
}

func (f *fakeRenderer) Render(ctx context.Context, result *Result) ([]byte, error) {
	f.lastResult = result
	if f.err != nil {
		return nil, f.err
	}
	return []byte("rendered report"), nil
}

func TestRenderReport_UsesConfiguredRenderer(t *testing.T) {
	fr := &fakeRenderer{}
	p := NewProcessor(NewParser(), risk.NewEngine(nil), nil, WithRenderer(fr))

	result, err := p.ProcessBatch(context.Background(), []*transaction.Transaction{batchTx("t1", 1000)})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	report, err := p.RenderReport(context.Background(), result)
	if err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}
	if string(report) != "rendered report" {
		t.Errorf("Unexpected report bytes: %q", report)
	}
	if fr.lastResult != result {
		t.Error("Renderer must receive the processed result")
	}
}

func TestRenderReport_NoRenderer(t *testing.T) {
	p := newProcessor(nil)

	_, err := p.RenderReport(context.Background(), &Result{})
	if !errors.Is(err, ErrNoRenderer) {
		t.Fatalf("Expected ErrNoRenderer, got %v", err)
	}
}

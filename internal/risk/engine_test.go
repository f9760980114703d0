package risk

import (
	"context"
	"strings"
	"testing"

	"github.com/theadiisingh/finpol/internal/transaction"
)

func cleanTransaction() *transaction.Transaction {
	return &transaction.Transaction{
		ID:              "txn_test",
		UserID:          "user_1",
		Amount:          5000,
		Currency:        "INR",
		Country:         "India",
		MerchantType:    "retail",
		DeviceRiskScore: 0.1,
		Type:            transaction.TypePayment,
	}
}

func TestAssess_CleanTransaction(t *testing.T) {
	engine := NewEngine(nil)
	tx := cleanTransaction()

	a := engine.Assess(context.Background(), tx)

	if a.Level != LevelLow {
		t.Errorf("Expected Low level, got %s", a.Level)
	}
	if a.Score != 25 {
		t.Errorf("Expected score 25, got %d", a.Score)
	}
	if len(a.Factors) != 0 {
		t.Errorf("Expected no factors, got %v", a.Factors)
	}
	if len(a.Recommendations) != 1 || a.Recommendations[0] != "Transaction can proceed with standard processing" {
		t.Errorf("Expected standard processing recommendation, got %v", a.Recommendations)
	}
}

func TestAssess_HighAmount(t *testing.T) {
	engine := NewEngine(nil)
	tx := cleanTransaction()
	tx.Amount = 1_500_000

	a := engine.Assess(context.Background(), tx)

	if a.Level != LevelHigh {
		t.Errorf("Expected High level, got %s", a.Level)
	}
	if a.Score != 85 {
		t.Errorf("Expected score 85, got %d", a.Score)
	}
	if len(a.Factors) != 1 || a.Factors[0] != "Transaction amount exceeds 1,000,000" {
		t.Errorf("Unexpected factors: %v", a.Factors)
	}
}

func TestAssess_AmountExactlyAtThreshold(t *testing.T) {
	engine := NewEngine(nil)
	tx := cleanTransaction()
	tx.Amount = 1_000_000 // threshold is strict

	a := engine.Assess(context.Background(), tx)

	if a.Level != LevelLow {
		t.Errorf("Expected Low level at exact threshold, got %s", a.Level)
	}
}

func TestAssess_CryptoExchange(t *testing.T) {
	engine := NewEngine(nil)
	tx := cleanTransaction()
	tx.MerchantType = "crypto_exchange"

	a := engine.Assess(context.Background(), tx)

	if a.Level != LevelMedium {
		t.Errorf("Expected Medium level, got %s", a.Level)
	}
	if a.Score != 60 {
		t.Errorf("Expected score 60, got %d", a.Score)
	}
	found := false
	for _, r := range a.Recommendations {
		if r == "Ensure compliance with crypto regulations" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected crypto recommendation, got %v", a.Recommendations)
	}
}

func TestAssess_ForeignHighValue(t *testing.T) {
	engine := NewEngine(nil)
	tx := cleanTransaction()
	tx.Country = "USA"
	tx.Amount = 600_000

	a := engine.Assess(context.Background(), tx)

	if a.Level != LevelHigh {
		t.Errorf("Expected High level, got %s", a.Level)
	}
	if len(a.Factors) != 1 {
		t.Fatalf("Expected one factor, got %v", a.Factors)
	}
	if !strings.Contains(a.Factors[0], "600000") || !strings.Contains(a.Factors[0], "non-India") {
		t.Errorf("Unexpected factor text: %q", a.Factors[0])
	}
	wantFirst := "Transaction requires manual review"
	if len(a.Recommendations) == 0 || a.Recommendations[0] != wantFirst {
		t.Errorf("Expected %q first, got %v", wantFirst, a.Recommendations)
	}
	foundCrossBorder := false
	for _, r := range a.Recommendations {
		if r == "Verify cross-border compliance requirements" {
			foundCrossBorder = true
		}
	}
	if !foundCrossBorder {
		t.Errorf("Expected cross-border recommendation, got %v", a.Recommendations)
	}
}

func TestAssess_ForeignButLowValue(t *testing.T) {
	engine := NewEngine(nil)
	tx := cleanTransaction()
	tx.Country = "Germany"
	tx.Amount = 400_000

	a := engine.Assess(context.Background(), tx)

	if a.Level != LevelLow {
		t.Errorf("Expected Low level for low-value foreign transaction, got %s", a.Level)
	}
}

func TestAssess_HighDeviceRisk(t *testing.T) {
	engine := NewEngine(nil)
	tx := cleanTransaction()
	tx.DeviceRiskScore = 0.9

	a := engine.Assess(context.Background(), tx)

	if a.Level != LevelMedium {
		t.Errorf("Expected Medium level, got %s", a.Level)
	}
	if len(a.Factors) != 1 || !strings.Contains(a.Factors[0], "0.9") {
		t.Errorf("Unexpected factors: %v", a.Factors)
	}
}

func TestAssess_DeviceRiskAtBoundary(t *testing.T) {
	engine := NewEngine(nil)
	tx := cleanTransaction()
	tx.DeviceRiskScore = 0.7 // threshold is strict

	a := engine.Assess(context.Background(), tx)

	if a.Level != LevelLow {
		t.Errorf("Expected Low level at exact boundary, got %s", a.Level)
	}
}

func TestAssess_SeverityIsMaxAcrossRules(t *testing.T) {
	engine := NewEngine(nil)
	tx := cleanTransaction()
	tx.Amount = 2_000_000 // High
	tx.MerchantType = "crypto_exchange"
	tx.DeviceRiskScore = 0.8 // Medium

	a := engine.Assess(context.Background(), tx)

	if a.Level != LevelHigh {
		t.Errorf("Expected High (max severity), got %s", a.Level)
	}
	if a.Score != 85 {
		t.Errorf("Expected score 85, got %d", a.Score)
	}
	// Factors must follow rule evaluation order.
	want := []string{
		"Transaction amount exceeds 1,000,000",
		"Crypto exchange merchant type",
	}
	if len(a.Factors) != 3 {
		t.Fatalf("Expected 3 factors, got %v", a.Factors)
	}
	for i, w := range want {
		if a.Factors[i] != w {
			t.Errorf("Factor %d: expected %q, got %q", i, w, a.Factors[i])
		}
	}
	if !strings.Contains(a.Factors[2], "device risk") {
		t.Errorf("Expected device risk factor last, got %q", a.Factors[2])
	}
}

type panickingRule struct{}

func (panickingRule) Name() string { return "panicking" }

func (panickingRule) Evaluate(tx *transaction.Transaction) (string, Level, bool) {
	panic("boom")
}

func TestAssess_PanickingRuleIsSkipped(t *testing.T) {
	engine := NewEngine(nil).WithRule(panickingRule{})
	tx := cleanTransaction()
	tx.Amount = 2_000_000

	a := engine.Assess(context.Background(), tx)

	if a.Level != LevelHigh {
		t.Errorf("Expected High despite panicking rule, got %s", a.Level)
	}
	if len(a.Factors) != 1 {
		t.Errorf("Expected panicking rule to contribute nothing, got %v", a.Factors)
	}
}

type criticalRule struct{}

func (criticalRule) Name() string { return "always_critical" }

func (criticalRule) Evaluate(tx *transaction.Transaction) (string, Level, bool) {
	return "Sanctions list match", LevelCritical, true
}

func TestAssess_RuntimeRegisteredRule(t *testing.T) {
	engine := NewEngine(nil).WithRule(criticalRule{})
	tx := cleanTransaction()

	a := engine.Assess(context.Background(), tx)

	if a.Level != LevelCritical {
		t.Errorf("Expected Critical from registered rule, got %s", a.Level)
	}
	if a.Score != 95 {
		t.Errorf("Expected score 95, got %d", a.Score)
	}
}

func TestRecommendations_Deduplicated(t *testing.T) {
	factors := []string{
		"Transaction amount exceeds 1,000,000",
		"High-value transaction (600000) from non-India country",
	}
	recs := Recommendations(LevelHigh, factors)

	seen := make(map[string]int)
	for _, r := range recs {
		seen[r]++
	}
	for r, n := range seen {
		if n > 1 {
			t.Errorf("Recommendation %q appears %d times", r, n)
		}
	}
	// "amount" appears in both factors but the source-of-funds line shows once.
	if seen["Confirm source of funds"] != 1 {
		t.Errorf("Expected single source-of-funds recommendation, got %v", recs)
	}
}

func TestMaxLevel(t *testing.T) {
	cases := []struct {
		a, b, want Level
	}{
		{LevelLow, LevelMedium, LevelMedium},
		{LevelHigh, LevelMedium, LevelHigh},
		{LevelCritical, LevelHigh, LevelCritical},
		{LevelLow, LevelLow, LevelLow},
	}
	for _, c := range cases {
		if got := MaxLevel(c.a, c.b); got != c.want {
			t.Errorf("MaxLevel(%s, %s) = %s, want %s", c.a, c.b, got, c.want)
		}
	}
}

func TestMemoryStore_RecordAndList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := store.Record(ctx, &Assessment{
			ID:            "risk_" + string(rune('a'+i)),
			TransactionID: "txn_1",
			Level:         LevelLow,
			Score:         25,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := store.ListByTransaction(ctx, "txn_1", 2)
	if err != nil {
		t.Fatalf("ListByTransaction failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 assessments, got %d", len(got))
	}
	// Most recent first
	if got[0].ID != "risk_c" {
		t.Errorf("Expected most recent assessment first, got %s", got[0].ID)
	}
}

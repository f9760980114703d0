package risk

import (
	"context"
	"testing"

	"github.com/theadiisingh/finpol/internal/transaction"
)

func TestHighAmountRuleCustomThreshold(t *testing.T) {
	rule := HighAmountRule{Threshold: 2_000_000}

	tx := &transaction.Transaction{Amount: 1_500_000}
	if _, _, triggered := rule.Evaluate(tx); triggered {
		t.Error("amount below custom threshold should not trigger")
	}

	tx.Amount = 2_500_000
	reason, level, triggered := rule.Evaluate(tx)
	if !triggered {
		t.Fatal("amount above custom threshold should trigger")
	}
	if level != LevelHigh {
		t.Errorf("expected High, got %s", level)
	}
	if reason != "Transaction amount exceeds 2,000,000" {
		t.Errorf("unexpected reason: %q", reason)
	}
}

func TestHighAmountRuleDefaultThreshold(t *testing.T) {
	rule := HighAmountRule{}

	reason, _, triggered := rule.Evaluate(&transaction.Transaction{Amount: 1_000_001})
	if !triggered {
		t.Fatal("amount above default threshold should trigger")
	}
	if reason != "Transaction amount exceeds 1,000,000" {
		t.Errorf("unexpected reason: %q", reason)
	}
}

func TestForeignHighValueRuleCustomThreshold(t *testing.T) {
	rule := ForeignHighValueRule{Threshold: 100_000}

	tx := &transaction.Transaction{Amount: 150_000, Country: "USA"}
	if _, _, triggered := rule.Evaluate(tx); !triggered {
		t.Error("foreign amount above custom threshold should trigger")
	}

	tx.Country = DomesticCountry
	if _, _, triggered := rule.Evaluate(tx); triggered {
		t.Error("domestic transaction should not trigger")
	}
}

func TestRulesWithThresholds(t *testing.T) {
	rules := RulesWithThresholds(3_000_000, 1_000_000)
	if len(rules) != len(DefaultRules()) {
		t.Fatalf("expected %d rules, got %d", len(DefaultRules()), len(rules))
	}

	engine := NewEngineWithRules(nil, rules)
	tx := &transaction.Transaction{
		ID:      "txn_custom",
		Amount:  2_000_000,
		Country: "India",
	}
	a := engine.Assess(context.Background(), tx)
	if a.Level != LevelLow {
		t.Errorf("2M under a 3M threshold should be Low, got %s", a.Level)
	}
}

func TestGroupThousands(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{100, "100"},
		{1_000, "1,000"},
		{500_000, "500,000"},
		{1_000_000, "1,000,000"},
		{1_234_567.5, "1,234,567.5"},
	}
	for _, tc := range tests {
		if got := groupThousands(tc.in); got != tc.want {
			t.Errorf("groupThousands(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

package risk

import (
	"strconv"
	"strings"

	"github.com/theadiisingh/finpol/internal/transaction"
)

// Rule inspects a transaction and optionally reports a risk factor.
// Implementations must be stateless or otherwise safe for concurrent use.
type Rule interface {
	// Name identifies the rule in logs.
	Name() string
	// Evaluate returns a human-readable reason and a severity when the rule
	// triggers, or triggered=false when the transaction is clean.
	Evaluate(tx *transaction.Transaction) (reason string, level Level, triggered bool)
}

// Thresholds used by the built-in rules.
const (
	HighAmountThreshold      = 1_000_000.0
	ForeignHighValueAmount   = 500_000.0
	DeviceRiskScoreThreshold = 0.7
	DomesticCountry          = "India"
)

// HighAmountRule flags transactions above the absolute amount threshold.
// A zero Threshold falls back to HighAmountThreshold.
type HighAmountRule struct {
	Threshold float64
}

func (r HighAmountRule) Name() string { return "high_amount" }

func (r HighAmountRule) Evaluate(tx *transaction.Transaction) (string, Level, bool) {
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = HighAmountThreshold
	}
	if tx.Amount > threshold {
		return "Transaction amount exceeds " + groupThousands(threshold), LevelHigh, true
	}
	return "", "", false
}

// CryptoExchangeRule flags transactions routed through crypto exchanges.
type CryptoExchangeRule struct{}

func (CryptoExchangeRule) Name() string { return "crypto_exchange" }

func (CryptoExchangeRule) Evaluate(tx *transaction.Transaction) (string, Level, bool) {
	if tx.MerchantType == "crypto_exchange" {
		return "Crypto exchange merchant type", LevelMedium, true
	}
	return "", "", false
}

// ForeignHighValueRule flags high-value cross-border transactions.
// A zero Threshold falls back to ForeignHighValueAmount.
type ForeignHighValueRule struct {
	Threshold float64
}

func (r ForeignHighValueRule) Name() string { return "foreign_high_value" }

func (r ForeignHighValueRule) Evaluate(tx *transaction.Transaction) (string, Level, bool) {
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = ForeignHighValueAmount
	}
	if tx.Country != DomesticCountry && tx.Amount > threshold {
		reason := "High-value transaction (" + formatAmount(tx.Amount) + ") from non-India country"
		return reason, LevelHigh, true
	}
	return "", "", false
}

// HighDeviceRiskRule flags transactions from devices with elevated risk scores.
type HighDeviceRiskRule struct{}

func (HighDeviceRiskRule) Name() string { return "high_device_risk" }

func (HighDeviceRiskRule) Evaluate(tx *transaction.Transaction) (string, Level, bool) {
	if tx.DeviceRiskScore > DeviceRiskScoreThreshold {
		reason := "High device risk score (" + formatScore(tx.DeviceRiskScore) + ")"
		return reason, LevelMedium, true
	}
	return "", "", false
}

// DefaultRules returns the built-in rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		HighAmountRule{},
		CryptoExchangeRule{},
		ForeignHighValueRule{},
		HighDeviceRiskRule{},
	}
}

// RulesWithThresholds returns the built-in rule set with custom amount
// thresholds. Zero values keep the defaults.
func RulesWithThresholds(highAmount, foreignAmount float64) []Rule {
	return []Rule{
		HighAmountRule{Threshold: highAmount},
		CryptoExchangeRule{},
		ForeignHighValueRule{Threshold: foreignAmount},
		HighDeviceRiskRule{},
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// groupThousands formats a positive amount with comma separators,
// e.g. 1000000 -> "1,000,000".
func groupThousands(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}
	return b.String() + frac
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

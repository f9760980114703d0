package risk

import (
	"context"
	"strings"
	"time"

	"github.com/theadiisingh/finpol/internal/idgen"
	"github.com/theadiisingh/finpol/internal/logging"
	"github.com/theadiisingh/finpol/internal/transaction"
)

// Engine evaluates transactions against an ordered rule set.
// The rule slice is fixed after construction, so Assess is safe for
// concurrent use as long as the rules themselves are.
type Engine struct {
	rules []Rule
	store Store
}

// NewEngine creates a risk engine with the built-in rules, backed by the
// given audit store (nil disables the audit trail).
func NewEngine(store Store) *Engine {
	return &Engine{
		rules: DefaultRules(),
		store: store,
	}
}

// NewEngineWithRules creates a risk engine with an explicit rule set.
func NewEngineWithRules(store Store, rules []Rule) *Engine {
	return &Engine{
		rules: rules,
		store: store,
	}
}

// WithRule appends a rule to the evaluation order.
func (e *Engine) WithRule(r Rule) *Engine {
	e.rules = append(e.rules, r)
	return e
}

// Assess evaluates a transaction and returns a risk assessment.
// Pure in-memory computation; rule panics are recovered and logged so one
// faulty rule never takes down the batch path.
func (e *Engine) Assess(ctx context.Context, tx *transaction.Transaction) *Assessment {
	level := LevelLow
	var factors []string

	for _, rule := range e.rules {
		reason, ruleLevel, triggered := e.evaluateRule(ctx, rule, tx)
		if !triggered {
			continue
		}
		factors = append(factors, reason)
		level = MaxLevel(level, ruleLevel)
	}

	assessment := &Assessment{
		ID:              idgen.WithPrefix("risk_"),
		TransactionID:   tx.ID,
		Score:           level.Score(),
		Level:           level,
		Factors:         factors,
		Recommendations: Recommendations(level, factors),
		EvaluatedAt:     time.Now(),
	}

	logging.L(ctx).Info("risk assessment",
		"transaction_id", tx.ID,
		"level", string(level),
		"score", assessment.Score,
		"factors", len(factors),
	)

	// Persist asynchronously (best-effort audit trail)
	if e.store != nil {
		go func() {
			_ = e.store.Record(context.Background(), assessment)
		}()
	}

	return assessment
}

// evaluateRule runs one rule with panic isolation.
func (e *Engine) evaluateRule(ctx context.Context, rule Rule, tx *transaction.Transaction) (reason string, level Level, triggered bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.L(ctx).Error("risk rule panicked",
				"rule", rule.Name(),
				"panic", r,
			)
			reason, level, triggered = "", "", false
		}
	}()
	return rule.Evaluate(tx)
}

// Recommendations derives action items from the assessment level and the
// triggered factor texts. Order is deterministic and duplicates are dropped.
func Recommendations(level Level, factors []string) []string {
	var recs []string
	seen := make(map[string]struct{})
	add := func(r string) {
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		recs = append(recs, r)
	}

	if level == LevelHigh || level == LevelCritical {
		add("Transaction requires manual review")
		add("Verify customer identity before processing")
	}
	if anyFactorContains(factors, "amount") {
		add("Confirm source of funds")
	}
	if anyFactorContains(factors, "crypto") {
		add("Ensure compliance with crypto regulations")
	}
	if anyFactorContains(factors, "foreign") || anyFactorContains(factors, "country") {
		add("Verify cross-border compliance requirements")
	}
	if anyFactorContains(factors, "device") {
		add("Request additional device verification")
	}
	if len(recs) == 0 {
		add("Transaction can proceed with standard processing")
	}
	return recs
}

func anyFactorContains(factors []string, substr string) bool {
	for _, f := range factors {
		if strings.Contains(strings.ToLower(f), substr) {
			return true
		}
	}
	return false
}

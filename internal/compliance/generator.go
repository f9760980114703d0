// Package compliance turns a risk assessment into an audit-ready textual
// explanation using a generative text service.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theadiisingh/finpol/internal/circuitbreaker"
	"github.com/theadiisingh/finpol/internal/logging"
	"github.com/theadiisingh/finpol/internal/retry"
	"github.com/theadiisingh/finpol/internal/transaction"
)

// ErrGenerationFailed wraps any failure of the underlying text service.
var ErrGenerationFailed = errors.New("compliance generation failed")

// FallbackExplanation is the text callers substitute when generation is
// unavailable or fails. The generator itself never returns it.
const FallbackExplanation = "Compliance review required but detailed analysis unavailable."

const systemPrompt = `You are a fintech compliance officer with expertise in:
- Anti-Money Laundering (AML) regulations
- Know Your Customer (KYC) requirements
- RBI (Reserve Bank of India) guidelines
- FATF recommendations
- PCI-DSS standards

Generate audit-ready explanations for transaction risk assessments.
Provide clear, professional compliance documentation.`

const analysisPrompt = `Transaction Details:
%s

Risk Factors Identified:
%s

Relevant Regulations:
%s

Generate an audit-ready compliance explanation that:
1. Summarizes the transaction risk assessment
2. Explains how each risk factor was evaluated
3. References applicable regulatory requirements
4. Provides a clear compliance determination

Provide clean, professional text suitable for audit documentation.`

// TextService generates text from a system instruction and a prompt.
// *llm.Client satisfies this.
type TextService interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// breakerKey identifies the single upstream text service in the circuit
// breaker. One generator talks to one service.
const breakerKey = "textservice"

// Generator assembles compliance prompts and delegates to a text service.
// Transient service failures are retried with backoff; sustained failures
// trip a circuit breaker so callers fall back fast instead of waiting out
// timeouts on every request.
type Generator struct {
	service     TextService
	breaker     *circuitbreaker.Breaker
	maxAttempts int
	retryDelay  time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithRetry overrides the retry policy for service calls.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(g *Generator) {
		g.maxAttempts = maxAttempts
		g.retryDelay = baseDelay
	}
}

// WithBreaker overrides the circuit breaker thresholds.
func WithBreaker(threshold int, openDuration time.Duration) Option {
	return func(g *Generator) {
		g.breaker = circuitbreaker.New(threshold, openDuration)
	}
}

// NewGenerator creates a compliance generator over the given text service.
func NewGenerator(service TextService, opts ...Option) *Generator {
	g := &Generator{
		service:     service,
		breaker:     circuitbreaker.New(5, 30*time.Second),
		maxAttempts: 3,
		retryDelay:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Configured reports whether a text service is wired in.
func (g *Generator) Configured() bool {
	return g.service != nil
}

// Generate produces a compliance explanation for the transaction, its risk
// factors, and the retrieved regulation texts. The result is trimmed of
// surrounding whitespace. Failures wrap ErrGenerationFailed.
func (g *Generator) Generate(ctx context.Context, tx *transaction.Transaction, factors, regulations []string) (string, error) {
	if !g.Configured() {
		return "", fmt.Errorf("%w: no text service configured", ErrGenerationFailed)
	}
	if !g.breaker.Allow(breakerKey) {
		return "", fmt.Errorf("%w: text service circuit open", ErrGenerationFailed)
	}

	prompt := fmt.Sprintf(analysisPrompt,
		formatTransaction(tx),
		formatFactors(factors),
		formatRegulations(regulations),
	)

	var text string
	err := retry.Do(ctx, g.maxAttempts, g.retryDelay, func() error {
		var genErr error
		text, genErr = g.service.Generate(ctx, systemPrompt, prompt)
		return genErr
	})
	if err != nil {
		g.breaker.RecordFailure(breakerKey)
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	g.breaker.RecordSuccess(breakerKey)

	logging.L(ctx).Info("compliance explanation generated", "transaction_id", tx.ID)
	return strings.TrimSpace(text), nil
}

func formatTransaction(tx *transaction.Transaction) string {
	return "Transaction ID: " + orNA(tx.ID) + "\n" +
		"User ID: " + orNA(tx.UserID) + "\n" +
		"Amount: " + strconv.FormatFloat(tx.Amount, 'f', -1, 64) + "\n" +
		"Country: " + tx.Country + "\n" +
		"Merchant Type: " + tx.MerchantType + "\n" +
		"Device Risk Score: " + strconv.FormatFloat(tx.DeviceRiskScore, 'f', -1, 64)
}

func formatFactors(factors []string) string {
	lines := make([]string, len(factors))
	for i, f := range factors {
		lines[i] = "- " + f
	}
	return strings.Join(lines, "\n")
}

func formatRegulations(regulations []string) string {
	if len(regulations) == 0 {
		return "No specific regulations found."
	}
	return strings.Join(regulations, "\n\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Package risk implements rule-based transaction risk scoring.
//
// Every transaction is evaluated against an ordered set of rules. Each rule
// either stays silent or contributes a human-readable factor and a severity
// level. The assessment's level is the maximum severity across triggered
// rules; a transaction that triggers nothing is Low risk.
package risk

import (
	"context"
	"time"
)

// Level is the severity of a risk assessment.
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// levelRank orders severities for max-resolution.
var levelRank = map[Level]int{
	LevelLow:      0,
	LevelMedium:   1,
	LevelHigh:     2,
	LevelCritical: 3,
}

// levelScore maps each severity to its canonical numeric score.
var levelScore = map[Level]int{
	LevelLow:      25,
	LevelMedium:   60,
	LevelHigh:     85,
	LevelCritical: 95,
}

// Rank returns the ordering index of the level (Low < Medium < High < Critical).
func (l Level) Rank() int {
	return levelRank[l]
}

// Score returns the canonical numeric score for the level.
func (l Level) Score() int {
	return levelScore[l]
}

// MaxLevel returns the more severe of two levels.
func MaxLevel(a, b Level) Level {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Assessment is the result of evaluating a single transaction.
type Assessment struct {
	ID              string    `json:"id"`
	TransactionID   string    `json:"transactionId"`
	Score           int       `json:"riskScore"`
	Level           Level     `json:"riskLevel"`
	Factors         []string  `json:"riskFactors"`
	Recommendations []string  `json:"recommendations"`
	EvaluatedAt     time.Time `json:"evaluatedAt"`
}

// Store persists risk assessments for audit trail.
type Store interface {
	Record(ctx context.Context, assessment *Assessment) error
	ListByTransaction(ctx context.Context, txID string, limit int) ([]*Assessment, error)
}

package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestScoreRisk(t *testing.T) {
	tests := []struct {
		name        string
		method      EvaluationMethod
		severity    int
		probability int
		wantScore   int
		wantBand    RiskPriority
	}{
		{name: "simple low", method: MethodSimple, severity: 1, probability: 2, wantScore: 2, wantBand: PriorityLow},
		{name: "simple moderate", method: MethodSimple, severity: 2, probability: 3, wantScore: 6, wantBand: PriorityModerate},
		{name: "simple high", method: MethodSimple, severity: 3, probability: 3, wantScore: 9, wantBand: PriorityHigh},
		{name: "simple critical", method: MethodSimple, severity: 4, probability: 4, wantScore: 16, wantBand: PriorityCritical},
		{name: "kinney scales to 10x10", method: MethodKinney, severity: 8, probability: 8, wantScore: 64, wantBand: PriorityHigh},
		{name: "kinney critical", method: MethodKinney, severity: 9, probability: 9, wantScore: 81, wantBand: PriorityCritical},
		{name: "unknown method uses simple scale", method: EvaluationMethod("custom"), severity: 4, probability: 4, wantScore: 16, wantBand: PriorityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, band := ScoreRisk(tt.method, tt.severity, tt.probability)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantBand, band)
		})
	}
}

func TestCalculateActionCounts(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -7)
	future := now.AddDate(0, 0, 7)

	actions := []ActionPlan{
		{ID: uuid.New(), Status: ActionStatusTodo, DueDate: &past},
		{ID: uuid.New(), Status: ActionStatusTodo, DueDate: &future},
		{ID: uuid.New(), Status: ActionStatusInProgress},
		{ID: uuid.New(), Status: ActionStatusDone, DueDate: &past},
	}

	got := CalculateActionCounts(actions, now)
	assert.Equal(t, ActionCounts{Total: 4, Todo: 2, InProgress: 1, Done: 1, Overdue: 1}, got)
}

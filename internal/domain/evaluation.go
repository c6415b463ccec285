// Package domain contains core business types and interfaces.
//
// This file defines risk evaluations, the central records of the DUERP.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// RiskEvaluation is a single evaluated risk attached to a work unit.
type RiskEvaluation struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	WorkUnitID  uuid.UUID
	Method      EvaluationMethod
	Hazard      string // danger identified (e.g. "chute de hauteur")
	Description string
	Severity    int // scale depends on the method
	Probability int
	Score       int // computed, Severity x Probability
	Priority    RiskPriority
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RiskPriority is the triage band derived from the risk score.
type RiskPriority string

const (
	PriorityLow      RiskPriority = "low"
	PriorityModerate RiskPriority = "moderate"
	PriorityHigh     RiskPriority = "high"
	PriorityCritical RiskPriority = "critical"
)

// methodScale gives the maximum value of the severity and probability axes
// per evaluation method.
var methodScale = map[EvaluationMethod]int{
	MethodSimple: 4,
	MethodINRS:   4,
	MethodKinney: 10,
	MethodAMDEC:  10,
}

// MethodScale returns the axis maximum for a method, defaulting to the
// simple 4x4 matrix for unknown methods.
func MethodScale(m EvaluationMethod) int {
	if scale, ok := methodScale[m]; ok {
		return scale
	}
	return methodScale[MethodSimple]
}

// ScoreRisk computes the score and priority band for a severity/probability
// pair on the given method's scale.
func ScoreRisk(m EvaluationMethod, severity, probability int) (int, RiskPriority) {
	score := severity * probability
	max := MethodScale(m) * MethodScale(m)

	// Band boundaries are proportional to the method's scale so a 4x4 grid
	// and a 10x10 grid classify comparably.
	switch {
	case score*4 > max*3:
		return score, PriorityCritical
	case score*2 > max:
		return score, PriorityHigh
	case score*4 > max:
		return score, PriorityModerate
	default:
		return score, PriorityLow
	}
}

// CreateEvaluationParams contains the validated parameters for creating a
// risk evaluation.
type CreateEvaluationParams struct {
	TenantID    uuid.UUID
	WorkUnitID  uuid.UUID
	Method      EvaluationMethod
	Hazard      string
	Description string
	Severity    int
	Probability int
	CreatedBy   uuid.UUID
}

// UpdateEvaluationParams contains the parameters for updating a risk
// evaluation.
type UpdateEvaluationParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Hazard      string
	Description string
	Severity    int
	Probability int
}

// ListEvaluationsParams filters and paginates an evaluation listing.
type ListEvaluationsParams struct {
	TenantID   uuid.UUID
	WorkUnitID *uuid.UUID
	Search     string // accent-insensitive match on hazard/description
	Limit      int32
	Offset     int32
}

// ListEvaluationsResult is a page of evaluations with the total count.
type ListEvaluationsResult struct {
	Evaluations []RiskEvaluation
	Total       int64
	Limit       int32
	Offset      int32
}

// Package domain contains core business types and interfaces.
//
// This file defines prevention action plans linked to risk evaluations.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionStatus is the lifecycle state of a prevention action.
type ActionStatus string

const (
	ActionStatusTodo       ActionStatus = "todo"
	ActionStatusInProgress ActionStatus = "in_progress"
	ActionStatusDone       ActionStatus = "done"
)

// ValidActionStatus reports whether s is a known action status.
func ValidActionStatus(s ActionStatus) bool {
	switch s {
	case ActionStatusTodo, ActionStatusInProgress, ActionStatusDone:
		return true
	}
	return false
}

// ActionPlan is a prevention measure addressing an evaluated risk.
type ActionPlan struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	EvaluationID uuid.UUID
	Title        string
	Description  string
	Status       ActionStatus
	AssigneeID   *uuid.UUID
	DueDate      *time.Time
	CompletedAt  *time.Time
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsOverdue reports whether the action has a due date in the past and is not
// done.
func (a *ActionPlan) IsOverdue(now time.Time) bool {
	return a.Status != ActionStatusDone && a.DueDate != nil && a.DueDate.Before(now)
}

// CreateActionParams contains the validated parameters for creating an
// action plan.
type CreateActionParams struct {
	TenantID     uuid.UUID
	EvaluationID uuid.UUID
	Title        string
	Description  string
	AssigneeID   *uuid.UUID
	DueDate      *time.Time
	CreatedBy    uuid.UUID
}

// UpdateActionParams contains the parameters for updating an action plan.
type UpdateActionParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Title       string
	Description string
	Status      ActionStatus
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
}

// ActionCounts summarizes action plan statuses for the dashboard and the
// PAPRIPACT rollup.
type ActionCounts struct {
	Total      int
	Todo       int
	InProgress int
	Done       int
	Overdue    int
}

// CalculateActionCounts tallies the status distribution of a list of actions.
func CalculateActionCounts(actions []ActionPlan, now time.Time) ActionCounts {
	counts := ActionCounts{Total: len(actions)}
	for i := range actions {
		switch actions[i].Status {
		case ActionStatusTodo:
			counts.Todo++
		case ActionStatusInProgress:
			counts.InProgress++
		case ActionStatusDone:
			counts.Done++
		}
		if actions[i].IsOverdue(now) {
			counts.Overdue++
		}
	}
	return counts
}

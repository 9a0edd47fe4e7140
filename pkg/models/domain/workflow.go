package domain

import "time"

type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusFinished  WorkflowStatus = "finished"
	WorkflowStatusFailed    WorkflowStatus = "failed"
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// WorkflowRun describes one scheduled portfolio recomputation.
type WorkflowRun struct {
	Name       string
	Status     WorkflowStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Entities   int
	Warnings   int
	Error      *string
}

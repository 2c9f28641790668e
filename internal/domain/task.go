package domain

import (
	"context"
	"time"
)

// Task filter columns on PQ_tasks.
const (
	TaskJobColumn       = "tjid"
	TaskWorkOrderColumn = "twoid"
	TaskAssigneeColumn  = "tuid"
	TaskAssignerColumn  = "tassuid"
	TaskDueColumn       = "tdts"
)

type TaskRepository interface {
	EntityRepository
	// ListDueOn returns the assignee's tasks whose due timestamp falls on day,
	// interpreted in the store's configured location.
	ListDueOn(ctx context.Context, schema string, assigneeID int64, day time.Time) ([]Record, error)
	// ListByAssignee returns the assignee's tasks with the linked job,
	// insurance claim and work order nested under "job", "claim" and
	// "workorder" (null when unlinked).
	ListByAssignee(ctx context.Context, schema string, assigneeID int64, page Page) ([]Record, error)
}

// Event filter columns on PQ_events.
const (
	EventUserColumn  = "euid"
	EventStartColumn = "estartdts"
)

type EventRepository interface {
	EntityRepository
	ListByUserOn(ctx context.Context, schema string, userID int64, day time.Time) ([]Record, error)
	// ListByUser returns the user's events with the linked job, client and
	// lead nested under "job", "client" and "lead".
	ListByUser(ctx context.Context, schema string, userID int64, page Page) ([]Record, error)
}

package model

import "time"

// TimeLayout is the canonical timestamp encoding for all persisted records.
//
// It is RFC 3339 with a fixed nine-digit fraction so that lexicographic
// ordering of stored strings matches chronological ordering. All timestamps
// are stored in UTC.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime encodes a timestamp for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime decodes a stored timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// Plan is the top-level unit of agent-directed work. Plans own tasks and
// documents; they are archived rather than deleted so that history entries
// always resolve.
type Plan struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      PlanStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Task is an atomic unit of work inside exactly one plan. Tasks never move
// between plans.
type Task struct {
	ID          string     `json:"id"`
	PlanID      string     `json:"plan_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    int        `json:"priority"`
	SortOrder   int        `json:"sort_order"`
	Agent       string     `json:"agent,omitempty"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Edge is a directed dependency between two tasks in the same plan:
// To must not start before From is done.
type Edge struct {
	FromID string `json:"from"`
	ToID   string `json:"to"`
}

// OwnerKind identifies what a document is attached to.
type OwnerKind string

const (
	OwnerPlan OwnerKind = "plan"
	OwnerTask OwnerKind = "task"
)

// Document is one immutable revision of free text attached to a plan or
// task. Revisions are 1-based and dense per owner; content is opaque to
// the core.
type Document struct {
	Owner     OwnerKind `json:"owner"`
	OwnerID   string    `json:"owner_id"`
	Revision  int64     `json:"revision"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry records one accepted mutation. Seq is assigned by the store
// and is strictly increasing across all mutations; entries are never
// rewritten.
type HistoryEntry struct {
	Seq        int64     `json:"seq"`
	Timestamp  time.Time `json:"ts"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	PlanID     string    `json:"plan_id"`
	Op         string    `json:"op"`
	Before     string    `json:"before,omitempty"`
	After      string    `json:"after,omitempty"`
}

// Entity kinds recorded in history entries.
const (
	EntityPlan     = "plan"
	EntityTask     = "task"
	EntityEdge     = "edge"
	EntityDocument = "document"
)

package model

// PlanStatus is the lifecycle state of a plan.
type PlanStatus string

const (
	PlanOpen      PlanStatus = "open"
	PlanCompleted PlanStatus = "completed"
	PlanArchived  PlanStatus = "archived"
)

// ParsePlanStatus maps a stored string to a PlanStatus.
func ParsePlanStatus(s string) (PlanStatus, bool) {
	switch PlanStatus(s) {
	case PlanOpen, PlanCompleted, PlanArchived:
		return PlanStatus(s), true
	}
	return "", false
}

// Terminal reports whether no further plan transitions are allowed.
func (s PlanStatus) Terminal() bool {
	return s == PlanArchived
}

// planTransitions enumerates the allowed plan status edges.
var planTransitions = map[PlanStatus][]PlanStatus{
	PlanOpen:      {PlanCompleted, PlanArchived},
	PlanCompleted: {PlanArchived},
}

// CanTransitionTo reports whether s -> to is an allowed plan transition.
func (s PlanStatus) CanTransitionTo(to PlanStatus) bool {
	for _, next := range planTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// TaskStatus is the lifecycle state of a task.
//
// The initial state is pending; done and cancelled are terminal. blocked is
// a caller-driven hold, distinct from "waiting on dependencies" which the
// resolver computes from edges and never stores.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskBlocked    TaskStatus = "blocked"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

// ParseTaskStatus maps a stored string to a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case TaskPending, TaskBlocked, TaskInProgress, TaskDone, TaskCancelled:
		return TaskStatus(s), true
	}
	return "", false
}

// Terminal reports whether no further task transitions are allowed.
func (s TaskStatus) Terminal() bool {
	return s == TaskDone || s == TaskCancelled
}

// taskTransitions enumerates the allowed task status edges.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskInProgress, TaskBlocked, TaskCancelled},
	TaskBlocked:    {TaskPending, TaskCancelled},
	TaskInProgress: {TaskBlocked, TaskDone, TaskCancelled},
}

// CanTransitionTo reports whether s -> to is an allowed task transition.
// Transitions out of terminal states are never allowed; callers distinguish
// that case via Terminal() to report TerminalState instead of
// InvalidTransition.
func (s TaskStatus) CanTransitionTo(to TaskStatus) bool {
	for _, next := range taskTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

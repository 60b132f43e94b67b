package graph

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/worktoolai/taskai/internal/history"
	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/store"
)

// TaskOption configures CreateTask.
type TaskOption func(*taskParams)

type taskParams struct {
	priority int
	agent    string
	after    []string
}

// WithPriority sets the task's scheduling priority (higher wins on claim).
func WithPriority(p int) TaskOption {
	return func(tp *taskParams) { tp.priority = p }
}

// WithAgent pre-assigns the agent expected to execute the task.
func WithAgent(agent string) TaskOption {
	return func(tp *taskParams) { tp.agent = agent }
}

// WithAfter declares dependencies at creation time: the new task must not
// start before each listed task is done. Each edge goes through the same
// validation as AddDependency.
func WithAfter(taskIDs ...string) TaskOption {
	return func(tp *taskParams) { tp.after = append(tp.after, taskIDs...) }
}

// CreateTask creates a pending task in the given plan. Fails with
// PlanNotFound if the plan does not exist or is archived.
func (s *Store) CreateTask(ctx context.Context, planID, title, description string, opts ...TaskOption) (*model.Task, error) {
	if title == "" {
		return nil, model.Errf(model.CodeValidation, "task title is required")
	}
	var params taskParams
	for _, opt := range opts {
		opt(&params)
	}

	task := &model.Task{
		ID:          s.newID(),
		PlanID:      planID,
		Title:       title,
		Description: description,
		Status:      model.TaskPending,
		Priority:    params.priority,
		Agent:       params.agent,
	}

	err := s.withTxn(ctx, func(txn *store.Txn) error {
		plan, err := getPlan(ctx, txn, planID)
		if err != nil {
			return err
		}
		if plan.Status == model.PlanArchived {
			return model.ErrPlanNotFound(planID)
		}

		var sortOrder int
		err = txn.QueryRow(ctx, "SELECT COUNT(*) FROM tasks WHERE plan_id = ?", planID).Scan(&sortOrder)
		if err != nil {
			return fmt.Errorf("count plan tasks: %w", err)
		}
		task.SortOrder = sortOrder

		now := s.now()
		task.CreatedAt = now
		task.UpdatedAt = now
		_, err = txn.Exec(ctx, `
			INSERT INTO tasks (id, plan_id, title, description, status, priority, sort_order, agent, assigned_to, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)
		`, task.ID, task.PlanID, task.Title, task.Description, string(task.Status),
			task.Priority, task.SortOrder, task.Agent,
			model.FormatTime(now), model.FormatTime(now))
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		after, err := history.Summary(map[string]any{
			"title":  task.Title,
			"status": string(task.Status),
		})
		if err != nil {
			return err
		}
		if err := s.record(ctx, txn, &model.HistoryEntry{
			EntityKind: model.EntityTask,
			EntityID:   task.ID,
			PlanID:     task.PlanID,
			Op:         "create_task",
			After:      after,
		}); err != nil {
			return err
		}

		for _, fromID := range params.after {
			if err := s.addEdge(ctx, txn, fromID, task.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// SetTaskStatus applies a task status transition, validated against the
// state machine. Transitioning to done requires every predecessor to be
// done already.
func (s *Store) SetTaskStatus(ctx context.Context, taskID string, newStatus model.TaskStatus) (*model.Task, error) {
	var task *model.Task
	err := s.withTxn(ctx, func(txn *store.Txn) error {
		var err error
		task, err = s.mutableTask(ctx, txn, taskID)
		if err != nil {
			return err
		}
		if err := s.transition(ctx, txn, task, newStatus, "set_task_status", ""); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// mutableTask loads a task for mutation, rejecting tasks whose plan is
// archived.
func (s *Store) mutableTask(ctx context.Context, txn *store.Txn, taskID string) (*model.Task, error) {
	task, err := getTask(ctx, txn, taskID)
	if err != nil {
		return nil, err
	}
	plan, err := getPlan(ctx, txn, task.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.Status == model.PlanArchived {
		return nil, model.ErrTerminalState(plan.ID, "archived plan")
	}
	return task, nil
}

// transition validates and applies one status change inside txn, recording
// the history entry. op names the operation for history; assignTo, when
// non-empty, also sets assigned_to (used by claims).
func (s *Store) transition(ctx context.Context, txn *store.Txn, task *model.Task, newStatus model.TaskStatus, op, assignTo string) error {
	if task.Status.Terminal() {
		return model.ErrTerminalState(task.ID, string(task.Status))
	}
	if !task.Status.CanTransitionTo(newStatus) {
		return model.ErrInvalidTransition(task.ID, task.Status, newStatus)
	}

	if newStatus == model.TaskDone {
		unfinished, err := unfinishedPredecessors(ctx, txn, task.ID)
		if err != nil {
			return err
		}
		if len(unfinished) > 0 {
			return model.ErrDependencyNotSatisfied(task.ID, unfinished)
		}
	}

	beforeFields := map[string]any{"status": string(task.Status)}
	afterFields := map[string]any{"status": string(newStatus)}
	if assignTo != "" {
		afterFields["assigned_to"] = assignTo
	}
	before, err := history.Summary(beforeFields)
	if err != nil {
		return err
	}
	after, err := history.Summary(afterFields)
	if err != nil {
		return err
	}

	now := s.now()
	if assignTo != "" {
		_, err = txn.Exec(ctx,
			"UPDATE tasks SET status = ?, assigned_to = ?, updated_at = ? WHERE id = ?",
			string(newStatus), assignTo, model.FormatTime(now), task.ID)
	} else {
		_, err = txn.Exec(ctx,
			"UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?",
			string(newStatus), model.FormatTime(now), task.ID)
	}
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	task.Status = newStatus
	task.UpdatedAt = now
	if assignTo != "" {
		task.AssignedTo = assignTo
	}

	return s.record(ctx, txn, &model.HistoryEntry{
		EntityKind: model.EntityTask,
		EntityID:   task.ID,
		PlanID:     task.PlanID,
		Op:         op,
		Before:     before,
		After:      after,
	})
}

// unfinishedPredecessors returns the task's direct dependencies that are
// not yet done.
func unfinishedPredecessors(ctx context.Context, q querier, taskID string) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT e.from_id
		FROM task_edges e
		JOIN tasks p ON p.id = e.from_id
		WHERE e.to_id = ? AND p.status != 'done'
		ORDER BY e.from_id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query predecessors: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan predecessor: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetTask returns the task with the given id.
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return getTask(ctx, s.st, id)
}

// ResolveTask resolves a reference to a task within a plan: exact id, then
// unique id prefix.
func (s *Store) ResolveTask(ctx context.Context, planID, ref string) (*model.Task, error) {
	if task, err := getTask(ctx, s.st, ref); err == nil {
		if task.PlanID != planID {
			return nil, model.ErrTaskNotFound(ref)
		}
		return task, nil
	} else if model.CodeOf(err) != model.CodeTaskNotFound {
		return nil, err
	}

	rows, err := s.st.Query(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE plan_id = ? AND id LIKE ? ORDER BY id ASC",
		planID, ref+"%")
	if err != nil {
		return nil, fmt.Errorf("resolve task by prefix: %w", err)
	}
	matches, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, model.ErrTaskNotFound(ref)
	case 1:
		return &matches[0], nil
	default:
		candidates := make([]string, len(matches))
		for i, t := range matches {
			candidates[i] = fmt.Sprintf("%s (%s)", t.Title, t.ID)
		}
		return nil, model.ErrAmbiguousRef(ref, candidates)
	}
}

// ListTasks returns the plan's tasks in insertion order.
func (s *Store) ListTasks(ctx context.Context, planID string) ([]model.Task, error) {
	if _, err := getPlan(ctx, s.st, planID); err != nil {
		return nil, err
	}
	rows, err := s.st.Query(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE plan_id = ? ORDER BY sort_order ASC, id ASC", planID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return collectTasks(rows)
}

// ClaimNext atomically takes the highest-priority ready task of the plan
// to in_progress, recording the claiming agent. Returns nil when no task
// is ready.
func (s *Store) ClaimNext(ctx context.Context, planID, agent string) (*model.Task, error) {
	var task *model.Task
	err := s.withTxn(ctx, func(txn *store.Txn) error {
		plan, err := getPlan(ctx, txn, planID)
		if err != nil {
			return err
		}
		if plan.Status == model.PlanArchived {
			return model.ErrPlanNotFound(planID)
		}

		row := txn.QueryRow(ctx, `
			SELECT `+taskColumns+`
			FROM tasks t
			WHERE t.plan_id = ? AND t.status = 'pending'
			  AND NOT EXISTS (
				SELECT 1 FROM task_edges e
				JOIN tasks p ON p.id = e.from_id
				WHERE e.to_id = t.id AND p.status != 'done'
			  )
			ORDER BY t.priority DESC, t.created_at ASC, t.id ASC
			LIMIT 1
		`, planID)
		task, err = scanTask(row)
		if err == sql.ErrNoRows {
			task = nil
			return nil
		}
		if err != nil {
			return fmt.Errorf("select ready task: %w", err)
		}

		return s.transition(ctx, txn, task, model.TaskInProgress, "claim_task", agent)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

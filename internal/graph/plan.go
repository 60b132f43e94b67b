package graph

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/worktoolai/taskai/internal/history"
	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/store"
)

// ValidatePlanName checks the plan name slug: lowercase alphanumeric with
// interior hyphens.
func ValidatePlanName(name string) error {
	ok := len(name) > 0
	for i, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-' && i > 0 && i < len(name)-1:
		default:
			ok = false
		}
	}
	if !ok {
		return model.Errf(model.CodeValidation,
			"plan name must be lowercase alphanumeric with interior hyphens, got %q", name)
	}
	return nil
}

// CreatePlan creates a new open plan. The name must be a valid slug and
// unique across the store.
func (s *Store) CreatePlan(ctx context.Context, name, title, description string) (*model.Plan, error) {
	if err := ValidatePlanName(name); err != nil {
		return nil, err
	}
	if title == "" {
		title = name
	}

	plan := &model.Plan{
		ID:          s.newID(),
		Name:        name,
		Title:       title,
		Description: description,
		Status:      model.PlanOpen,
	}

	err := s.withTxn(ctx, func(txn *store.Txn) error {
		var existing string
		err := txn.QueryRow(ctx, "SELECT id FROM plans WHERE name = ?", name).Scan(&existing)
		if err == nil {
			return model.ErrPlanNameConflict(name)
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check plan name: %w", err)
		}

		now := s.now()
		plan.CreatedAt = now
		plan.UpdatedAt = now
		_, err = txn.Exec(ctx, `
			INSERT INTO plans (id, name, title, description, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, plan.ID, plan.Name, plan.Title, plan.Description, string(plan.Status),
			model.FormatTime(now), model.FormatTime(now))
		if err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}

		after, err := history.Summary(map[string]any{
			"name":   plan.Name,
			"title":  plan.Title,
			"status": string(plan.Status),
		})
		if err != nil {
			return err
		}
		return s.record(ctx, txn, &model.HistoryEntry{
			EntityKind: model.EntityPlan,
			EntityID:   plan.ID,
			PlanID:     plan.ID,
			Op:         "create_plan",
			After:      after,
		})
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// SetPlanStatus applies a plan status transition. Completing a plan
// requires every task to be done or cancelled.
func (s *Store) SetPlanStatus(ctx context.Context, planID string, newStatus model.PlanStatus) (*model.Plan, error) {
	var plan *model.Plan
	err := s.withTxn(ctx, func(txn *store.Txn) error {
		var err error
		plan, err = getPlan(ctx, txn, planID)
		if err != nil {
			return err
		}
		if plan.Status.Terminal() {
			return model.ErrTerminalState(plan.ID, string(plan.Status))
		}
		if !plan.Status.CanTransitionTo(newStatus) {
			return model.Errf(model.CodeInvalidTransition,
				"invalid plan status transition: %s -> %s", plan.Status, newStatus)
		}

		if newStatus == model.PlanCompleted {
			unfinished, err := unfinishedTaskIDs(ctx, txn, plan.ID)
			if err != nil {
				return err
			}
			if len(unfinished) > 0 {
				return model.ErrDependencyNotSatisfied(plan.ID, unfinished)
			}
		}

		before, err := history.Summary(map[string]any{"status": string(plan.Status)})
		if err != nil {
			return err
		}
		after, err := history.Summary(map[string]any{"status": string(newStatus)})
		if err != nil {
			return err
		}

		now := s.now()
		_, err = txn.Exec(ctx, "UPDATE plans SET status = ?, updated_at = ? WHERE id = ?",
			string(newStatus), model.FormatTime(now), plan.ID)
		if err != nil {
			return fmt.Errorf("update plan status: %w", err)
		}
		plan.Status = newStatus
		plan.UpdatedAt = now

		return s.record(ctx, txn, &model.HistoryEntry{
			EntityKind: model.EntityPlan,
			EntityID:   plan.ID,
			PlanID:     plan.ID,
			Op:         "set_plan_status",
			Before:     before,
			After:      after,
		})
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// unfinishedTaskIDs returns tasks of the plan that are neither done nor
// cancelled.
func unfinishedTaskIDs(ctx context.Context, q querier, planID string) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT id FROM tasks
		WHERE plan_id = ? AND status NOT IN ('done', 'cancelled')
		ORDER BY created_at ASC, id ASC
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("query unfinished tasks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetPlan returns the plan with the given id.
func (s *Store) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	return getPlan(ctx, s.st, id)
}

// ResolvePlan resolves a reference to a plan: exact id, then exact name,
// then unique id prefix.
func (s *Store) ResolvePlan(ctx context.Context, ref string) (*model.Plan, error) {
	if plan, err := getPlan(ctx, s.st, ref); err == nil {
		return plan, nil
	} else if model.CodeOf(err) != model.CodePlanNotFound {
		return nil, err
	}

	row := s.st.QueryRow(ctx, "SELECT "+planColumns+" FROM plans WHERE name = ?", ref)
	plan, err := scanPlan(row)
	if err == nil {
		return plan, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("resolve plan by name: %w", err)
	}

	rows, err := s.st.Query(ctx,
		"SELECT "+planColumns+" FROM plans WHERE id LIKE ? ORDER BY id ASC", ref+"%")
	if err != nil {
		return nil, fmt.Errorf("resolve plan by prefix: %w", err)
	}
	defer rows.Close()

	var matches []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		matches = append(matches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, model.ErrPlanNotFound(ref)
	case 1:
		return matches[0], nil
	default:
		candidates := make([]string, len(matches))
		for i, p := range matches {
			candidates[i] = fmt.Sprintf("%s (%s)", p.Name, p.ID)
		}
		return nil, model.ErrAmbiguousRef(ref, candidates)
	}
}

// ListPlans returns all plans ordered by creation time.
func (s *Store) ListPlans(ctx context.Context) ([]model.Plan, error) {
	rows, err := s.st.Query(ctx,
		"SELECT "+planColumns+" FROM plans ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := []model.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// Progress summarizes task status counts for a plan.
type Progress struct {
	Total      int64   `json:"total"`
	Pending    int64   `json:"pending"`
	Blocked    int64   `json:"blocked"`
	InProgress int64   `json:"in_progress"`
	Done       int64   `json:"done"`
	Cancelled  int64   `json:"cancelled"`
	Percentage float64 `json:"percentage"`
}

// Progress returns status counts for the plan's tasks.
func (s *Store) Progress(ctx context.Context, planID string) (*Progress, error) {
	if _, err := getPlan(ctx, s.st, planID); err != nil {
		return nil, err
	}

	rows, err := s.st.Query(ctx,
		"SELECT status, COUNT(*) FROM tasks WHERE plan_id = ? GROUP BY status", planID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var p Progress
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		switch model.TaskStatus(status) {
		case model.TaskPending:
			p.Pending = count
		case model.TaskBlocked:
			p.Blocked = count
		case model.TaskInProgress:
			p.InProgress = count
		case model.TaskDone:
			p.Done = count
		case model.TaskCancelled:
			p.Cancelled = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	p.Total = p.Pending + p.Blocked + p.InProgress + p.Done + p.Cancelled
	if p.Total > 0 {
		p.Percentage = float64(p.Done) / float64(p.Total) * 100
	}
	return &p, nil
}

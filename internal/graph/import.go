package graph

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/worktoolai/taskai/internal/history"
	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/store"
)

// ImportDocument is a document attached during bulk import.
type ImportDocument struct {
	Title   string
	Content string
}

// ImportTask is one task of a bulk plan definition. TempID is the
// caller-chosen id used for After references; the store assigns the real
// identifier.
type ImportTask struct {
	TempID      string
	Title       string
	Description string
	Priority    int
	Agent       string
	After       []string
	Documents   []ImportDocument
}

// ImportDef is a complete plan definition created atomically.
type ImportDef struct {
	Name        string
	Title       string
	Description string
	Documents   []ImportDocument
	Tasks       []ImportTask
}

// ImportResult reports what an import created.
type ImportResult struct {
	Plan      *model.Plan
	Tasks     []model.Task
	IDMapping map[string]string // temp id -> assigned id
}

// ImportPlan creates a plan with all its tasks, edges and documents in one
// transaction. The definition must already be structurally valid (unique
// temp ids, known references, acyclic; the planfile package checks this
// before any write); name uniqueness and edge validation still run inside
// the transaction. Every created entity gets its own history entry.
func (s *Store) ImportPlan(ctx context.Context, def ImportDef) (*ImportResult, error) {
	if err := ValidatePlanName(def.Name); err != nil {
		return nil, err
	}

	result := &ImportResult{
		IDMapping: make(map[string]string, len(def.Tasks)),
	}

	err := s.withTxn(ctx, func(txn *store.Txn) error {
		var existing string
		err := txn.QueryRow(ctx, "SELECT id FROM plans WHERE name = ?", def.Name).Scan(&existing)
		if err == nil {
			return model.ErrPlanNameConflict(def.Name)
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check plan name: %w", err)
		}

		now := s.now()
		plan := &model.Plan{
			ID:          s.newID(),
			Name:        def.Name,
			Title:       def.Title,
			Description: def.Description,
			Status:      model.PlanOpen,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		_, err = txn.Exec(ctx, `
			INSERT INTO plans (id, name, title, description, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, plan.ID, plan.Name, plan.Title, plan.Description, string(plan.Status),
			model.FormatTime(now), model.FormatTime(now))
		if err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}
		result.Plan = plan

		after, err := history.Summary(map[string]any{
			"name":   plan.Name,
			"title":  plan.Title,
			"status": string(plan.Status),
		})
		if err != nil {
			return err
		}
		if err := s.record(ctx, txn, &model.HistoryEntry{
			EntityKind: model.EntityPlan,
			EntityID:   plan.ID,
			PlanID:     plan.ID,
			Op:         "create_plan",
			After:      after,
		}); err != nil {
			return err
		}

		for _, doc := range def.Documents {
			if err := s.importDocument(ctx, txn, model.OwnerPlan, plan.ID, plan.ID, doc); err != nil {
				return err
			}
		}

		for i, in := range def.Tasks {
			taskID := s.newID()
			result.IDMapping[in.TempID] = taskID
			created := s.now()
			_, err := txn.Exec(ctx, `
				INSERT INTO tasks (id, plan_id, title, description, status, priority, sort_order, agent, assigned_to, created_at, updated_at)
				VALUES (?, ?, ?, ?, 'pending', ?, ?, ?, '', ?, ?)
			`, taskID, plan.ID, in.Title, in.Description, in.Priority, i, in.Agent,
				model.FormatTime(created), model.FormatTime(created))
			if err != nil {
				return fmt.Errorf("insert task %q: %w", in.TempID, err)
			}

			taskAfter, err := history.Summary(map[string]any{
				"title":  in.Title,
				"status": string(model.TaskPending),
			})
			if err != nil {
				return err
			}
			if err := s.record(ctx, txn, &model.HistoryEntry{
				EntityKind: model.EntityTask,
				EntityID:   taskID,
				PlanID:     plan.ID,
				Op:         "create_task",
				After:      taskAfter,
			}); err != nil {
				return err
			}

			result.Tasks = append(result.Tasks, model.Task{
				ID:          taskID,
				PlanID:      plan.ID,
				Title:       in.Title,
				Description: in.Description,
				Status:      model.TaskPending,
				Priority:    in.Priority,
				SortOrder:   i,
				Agent:       in.Agent,
				CreatedAt:   created,
				UpdatedAt:   created,
			})

			for _, doc := range in.Documents {
				if err := s.importDocument(ctx, txn, model.OwnerTask, taskID, plan.ID, doc); err != nil {
					return err
				}
			}
		}

		// Edges last, once every referenced task row exists.
		for _, in := range def.Tasks {
			toID := result.IDMapping[in.TempID]
			for _, dep := range in.After {
				fromID, ok := result.IDMapping[dep]
				if !ok {
					return model.Errf(model.CodeValidation,
						"task %q references unknown dependency %q", in.TempID, dep)
				}
				if err := s.addEdge(ctx, txn, fromID, toID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// importDocument writes revision N+1 for the owner inside the import
// transaction. Owners are freshly created here, so revisions simply count
// up from one in input order.
func (s *Store) importDocument(ctx context.Context, txn *store.Txn, owner model.OwnerKind, ownerID, planID string, doc ImportDocument) error {
	var rev int64
	err := txn.QueryRow(ctx,
		"SELECT COALESCE(MAX(revision), 0) FROM documents WHERE owner_kind = ? AND owner_id = ?",
		string(owner), ownerID).Scan(&rev)
	if err != nil {
		return fmt.Errorf("next document revision: %w", err)
	}
	rev++

	now := s.now()
	_, err = txn.Exec(ctx, `
		INSERT INTO documents (owner_kind, owner_id, revision, title, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(owner), ownerID, rev, doc.Title, doc.Content, model.FormatTime(now))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	after, err := history.Summary(map[string]any{
		"owner":    string(owner),
		"revision": rev,
		"title":    doc.Title,
	})
	if err != nil {
		return err
	}
	return s.record(ctx, txn, &model.HistoryEntry{
		EntityKind: model.EntityDocument,
		EntityID:   ownerID,
		PlanID:     planID,
		Op:         "put_document",
		After:      after,
	})
}

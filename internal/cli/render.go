package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/worktoolai/taskai/internal/graph"
	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/resolver"
)

// Text rendering for every command. Renderers take a writer and plain
// data, which keeps them directly testable against golden files.

func renderTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderPlan(w io.Writer, p *model.Plan) {
	fmt.Fprintf(w, "Plan: %s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(w, "  Title:   %s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(w, "  Desc:    %s\n", p.Description)
	}
	fmt.Fprintf(w, "  Status:  %s\n", p.Status)
	fmt.Fprintf(w, "  Created: %s\n", renderTimestamp(p.CreatedAt))
}

func renderPlanList(w io.Writer, plans []model.Plan, activeID string) {
	if len(plans) == 0 {
		fmt.Fprintln(w, "No plans found.")
		return
	}
	for _, p := range plans {
		marker := ""
		if p.ID == activeID {
			marker = " *"
		}
		fmt.Fprintf(w, "  %s (%s) [%s] - %s%s\n", p.Name, shortID(p.ID), p.Status, p.Title, marker)
	}
}

func renderTask(w io.Writer, t *model.Task, deps, dependents []string) {
	fmt.Fprintf(w, "Task: %s\n", t.ID)
	fmt.Fprintf(w, "  Title:    %s\n", t.Title)
	if t.Description != "" {
		fmt.Fprintf(w, "  Desc:     %s\n", t.Description)
	}
	fmt.Fprintf(w, "  Status:   %s\n", t.Status)
	fmt.Fprintf(w, "  Priority: %d\n", t.Priority)
	if t.Agent != "" {
		fmt.Fprintf(w, "  Agent:    %s\n", t.Agent)
	}
	if t.AssignedTo != "" {
		fmt.Fprintf(w, "  Assigned: %s\n", t.AssignedTo)
	}
	fmt.Fprintf(w, "  Created:  %s\n", renderTimestamp(t.CreatedAt))
	if len(deps) > 0 {
		fmt.Fprintln(w, "  Depends on:")
		for _, id := range deps {
			fmt.Fprintf(w, "    %s\n", id)
		}
	}
	if len(dependents) > 0 {
		fmt.Fprintln(w, "  Blocks:")
		for _, id := range dependents {
			fmt.Fprintf(w, "    %s\n", id)
		}
	}
}

func renderTaskList(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	for _, t := range tasks {
		fmt.Fprintf(w, "  [%-11s] %s - %s\n", t.Status, shortID(t.ID), t.Title)
	}
}

func renderBatches(w io.Writer, batches []resolver.Batch) {
	if len(batches) == 0 {
		fmt.Fprintln(w, "No tasks ready.")
		return
	}
	for i, batch := range batches {
		fmt.Fprintf(w, "Batch %d (%d tasks, independently runnable):\n", i, len(batch))
		for _, t := range batch {
			fmt.Fprintf(w, "  %s - %s\n", t.ID, t.Title)
		}
	}
}

func renderTopologicalOrder(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	for i, t := range tasks {
		fmt.Fprintf(w, "  %2d. [%-11s] %s - %s\n", i+1, t.Status, shortID(t.ID), t.Title)
	}
}

func renderProgress(w io.Writer, p *graph.Progress) {
	fmt.Fprintf(w, "Progress: %d/%d done (%.0f%%)\n", p.Done, p.Total, p.Percentage)
	fmt.Fprintf(w, "  pending=%d blocked=%d in_progress=%d done=%d cancelled=%d\n",
		p.Pending, p.Blocked, p.InProgress, p.Done, p.Cancelled)
}

func renderHistory(w io.Writer, entries []model.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "  #%-4d %s %-18s %s %s\n",
			e.Seq, renderTimestamp(e.Timestamp), e.Op, e.EntityKind, shortID(e.EntityID))
		if e.Before != "" {
			fmt.Fprintf(w, "        before: %s\n", e.Before)
		}
		if e.After != "" {
			fmt.Fprintf(w, "        after:  %s\n", e.After)
		}
	}
}

func renderDocument(w io.Writer, d *model.Document) {
	fmt.Fprintf(w, "Document: %s %s (revision %d)\n", d.Owner, shortID(d.OwnerID), d.Revision)
	if d.Title != "" {
		fmt.Fprintf(w, "  Title: %s\n", d.Title)
	}
	fmt.Fprintln(w, "---")
	fmt.Fprintln(w, d.Content)
}

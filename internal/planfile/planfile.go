// Package planfile loads complete plan definitions produced by a planner:
// a plan, its tasks, their dependency edges and attached documents, as one
// JSON document.
//
// Definitions are validated twice before any write: against an embedded
// CUE schema for shape and types, then structurally (unique temp ids,
// known references, acyclic dependency graph). A valid definition is
// created atomically through the graph store; an invalid one writes
// nothing.
package planfile

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/worktoolai/taskai/internal/graph"
	"github.com/worktoolai/taskai/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// Document is a free-text attachment in a plan definition.
type Document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Task is one task of a plan definition. ID is temporary, scoped to the
// file, and only used by After references.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    int        `json:"priority,omitempty"`
	Agent       string     `json:"agent,omitempty"`
	After       []string   `json:"after,omitempty"`
	Documents   []Document `json:"documents,omitempty"`
}

// Definition is a complete plan definition.
type Definition struct {
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Documents   []Document `json:"documents,omitempty"`
	Tasks       []Task     `json:"tasks"`
}

// Parse decodes and schema-checks a plan definition.
func Parse(data []byte) (*Definition, error) {
	if err := checkSchema(data); err != nil {
		return nil, err
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, model.Errf(model.CodeValidation, "invalid plan definition JSON: %v", err)
	}
	if err := validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// checkSchema unifies the input with the embedded #Plan schema. JSON is a
// subset of CUE, so the document compiles directly.
func checkSchema(data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile plan schema: %w", err)
	}
	planDef := schema.LookupPath(cue.ParsePath("#Plan"))
	if err := planDef.Err(); err != nil {
		return fmt.Errorf("lookup #Plan: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename("plan.json"))
	if err := value.Err(); err != nil {
		return model.Errf(model.CodeValidation, "invalid plan definition: %s", cueerrors.Details(err, nil))
	}

	unified := planDef.Unify(value)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return model.Errf(model.CodeValidation, "plan definition does not match schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// validate runs the structural checks the schema cannot express.
func validate(def *Definition) error {
	seen := make(map[string]bool, len(def.Tasks))
	for _, t := range def.Tasks {
		if seen[t.ID] {
			return model.Errf(model.CodeValidation, "duplicate task id %q", t.ID)
		}
		seen[t.ID] = true
	}

	var nodes []string
	var edges []model.Edge
	for _, t := range def.Tasks {
		nodes = append(nodes, t.ID)
		for _, dep := range t.After {
			if dep == t.ID {
				return model.ErrSelfDependency(t.ID)
			}
			if !seen[dep] {
				return model.Errf(model.CodeValidation,
					"task %q references unknown dependency %q", t.ID, dep)
			}
			edges = append(edges, model.Edge{FromID: dep, ToID: t.ID})
		}
	}

	if graph.HasCycle(nodes, edges) {
		return model.Errf(model.CodeCycleDetected, "plan definition contains a dependency cycle")
	}
	return nil
}

// Load parses a definition from r and creates it atomically through g.
func Load(ctx context.Context, g *graph.Store, r io.Reader) (*graph.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.Errf(model.CodeValidation, "read plan definition: %v", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return g.ImportPlan(ctx, toImportDef(def))
}

func toImportDef(def *Definition) graph.ImportDef {
	out := graph.ImportDef{
		Name:        def.Name,
		Title:       def.Title,
		Description: def.Description,
	}
	for _, d := range def.Documents {
		out.Documents = append(out.Documents, graph.ImportDocument{Title: d.Title, Content: d.Content})
	}
	for _, t := range def.Tasks {
		task := graph.ImportTask{
			TempID:      t.ID,
			Title:       t.Title,
			Description: t.Description,
			Priority:    t.Priority,
			Agent:       t.Agent,
			After:       t.After,
		}
		for _, d := range t.Documents {
			task.Documents = append(task.Documents, graph.ImportDocument{Title: d.Title, Content: d.Content})
		}
		out.Tasks = append(out.Tasks, task)
	}
	return out
}

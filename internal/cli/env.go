package cli

import (
	"context"
	"time"

	"github.com/worktoolai/taskai/internal/document"
	"github.com/worktoolai/taskai/internal/graph"
	"github.com/worktoolai/taskai/internal/history"
	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/resolver"
	"github.com/worktoolai/taskai/internal/store"
	"github.com/worktoolai/taskai/internal/workspace"
)

// env wires the core components for one command invocation.
type env struct {
	ws   *workspace.Workspace
	cfg  *workspace.Config
	st   *store.Store
	grf  *graph.Store
	log  *history.Log
	docs *document.Store
	res  *resolver.Resolver
}

// openEnv resolves the workspace and opens the store. Commands other than
// init require a previously initialized store.
func openEnv() (*env, error) {
	ws, err := workspace.Resolve(".")
	if err != nil {
		return nil, err
	}
	if !ws.Initialized() {
		return nil, model.ErrNotInitialized()
	}
	cfg, err := ws.LoadConfig()
	if err != nil {
		return nil, err
	}

	var opts []store.Option
	if cfg.LockTimeoutMS > 0 {
		opts = append(opts, store.WithLockTimeout(time.Duration(cfg.LockTimeoutMS)*time.Millisecond))
	}
	st, err := store.Open(ws.DBPath(), opts...)
	if err != nil {
		return nil, err
	}

	log := history.New(st)
	grf := graph.New(st, log)
	return &env{
		ws:   ws,
		cfg:  cfg,
		st:   st,
		grf:  grf,
		log:  log,
		docs: document.New(st, log),
		res:  resolver.New(grf),
	}, nil
}

func (e *env) Close() {
	if e.st != nil {
		e.st.Close()
	}
}

// activePlan resolves the plan a command operates on: the --plan flag if
// given, otherwise the active plan recorded in config.
func (e *env) activePlan(ctx context.Context, opts *RootOptions) (*model.Plan, error) {
	if opts.Plan != "" {
		return e.grf.ResolvePlan(ctx, opts.Plan)
	}
	if e.cfg.ActivePlanID == "" {
		return nil, model.ErrNoActivePlan()
	}
	plan, err := e.grf.GetPlan(ctx, e.cfg.ActivePlanID)
	if err != nil {
		if model.CodeOf(err) == model.CodePlanNotFound {
			// Stale config pointing at a plan that no longer resolves.
			return nil, model.ErrNoActivePlan()
		}
		return nil, err
	}
	return plan, nil
}

// setActivePlan records planID as the active plan in config.
func (e *env) setActivePlan(planID string) error {
	e.cfg.ActivePlanID = planID
	return e.ws.SaveConfig(e.cfg)
}

package cli

import (
	"context"
	"fmt"

	"github.com/kestrelworks/maestro/internal/config"
	"github.com/kestrelworks/maestro/internal/engine"
	"github.com/kestrelworks/maestro/internal/orchestrator"
	"github.com/kestrelworks/maestro/internal/oversight"
	"github.com/kestrelworks/maestro/internal/planner"
	"github.com/kestrelworks/maestro/internal/state"
)

// runtime bundles the wired components a command needs: configuration, the
// restored state store, the oversight gate, and the orchestrator with
// persistence attached.
type runtime struct {
	cfg       *config.Config
	workspace string
	store     *state.Store
	snapshots *state.SnapshotStore
	gate      *oversight.Gate
	orch      *orchestrator.Orchestrator
}

// buildRuntime loads configuration, restores the workspace snapshot, and
// wires the orchestrator stack. A missing snapshot starts a fresh session;
// a corrupted one is an error so state is never silently discarded.
func buildRuntime(ctx context.Context, flags *GlobalFlags) (*runtime, error) {
	logger := Logger()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load config, using defaults")
		cfg = config.DefaultConfig()
	}

	workspace := flags.Workspace
	if workspace == "" {
		workspace = cfg.State.Workspace
	}
	if workspace == "" {
		workspace = "default"
	}

	snapshots, err := state.NewSnapshotStore(cfg.State.HomeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	restored, err := snapshots.Load(ctx, workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace %q: %w", workspace, err)
	}

	store := state.NewStoreFromState(restored, logger)
	gate := oversight.NewGate(oversight.Config{
		AutoApprovalLevel: cfg.Oversight.AutoApprovalLevelValue(),
		ApprovalTimeout:   cfg.Oversight.ApprovalTimeout,
	}, store, logger)

	eng := engine.New(engine.DefaultRegistry(), engine.ConfigFrom(cfg), logger)
	pln := planner.New(cfg.Planner.RiskToleranceValue(), logger)

	orch := orchestrator.New(pln, eng, store, gate, logger,
		orchestrator.WithSnapshotter(snapshots, workspace))

	return &runtime{
		cfg:       cfg,
		workspace: workspace,
		store:     store,
		snapshots: snapshots,
		gate:      gate,
		orch:      orch,
	}, nil
}

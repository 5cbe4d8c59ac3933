package ops

import (
	"context"
	"log/slog"

	"github.com/hpungsan/bookmark-lens/internal/errors"
)

// step is one write in a dual-store operation. undo reverts a completed do;
// nil means there is nothing to revert.
type step struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// runSteps executes steps in order. If the first step fails its error is
// returned unchanged: nothing has been written. A later failure undoes every
// completed step in reverse order and returns STORE_CONSISTENCY, with
// rolled_back=false when an undo also failed. Undo runs even if ctx was
// cancelled.
func runSteps(ctx context.Context, logger *slog.Logger, id string, steps []step) error {
	for i, s := range steps {
		err := s.do(ctx)
		if err == nil {
			continue
		}
		if i == 0 {
			return err
		}

		logger.Warn("store write failed, compensating",
			"id", id, "failed_step", s.name, "error", err)

		undoCtx := context.WithoutCancel(ctx)
		rolledBack := true
		for j := i - 1; j >= 0; j-- {
			prev := steps[j]
			if prev.undo == nil {
				continue
			}
			if uerr := prev.undo(undoCtx); uerr != nil {
				rolledBack = false
				logger.Error("compensation failed, stores may disagree",
					"id", id, "step", prev.name, "error", uerr)
			}
		}
		return errors.NewStoreConsistency(id, s.name, rolledBack, err)
	}
	return nil
}

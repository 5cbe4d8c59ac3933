package ops

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/bookmark-lens/internal/errors"
	"github.com/hpungsan/bookmark-lens/internal/logging"
)

func recordingStep(name string, log *[]string, doErr, undoErr error) step {
	return step{
		name: name,
		do: func(context.Context) error {
			*log = append(*log, "do "+name)
			return doErr
		},
		undo: func(context.Context) error {
			*log = append(*log, "undo "+name)
			return undoErr
		},
	}
}

func TestRunSteps_AllSucceed(t *testing.T) {
	var log []string
	err := runSteps(context.Background(), logging.Discard(), "id1", []step{
		recordingStep("a", &log, nil, nil),
		recordingStep("b", &log, nil, nil),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"do a", "do b"}, log)
}

func TestRunSteps_FirstStepFailsUnchanged(t *testing.T) {
	var log []string
	boom := errors.NewInternal(stderrors.New("boom"))

	err := runSteps(context.Background(), logging.Discard(), "id1", []step{
		recordingStep("a", &log, boom, nil),
		recordingStep("b", &log, nil, nil),
	})
	require.Same(t, boom, err)
	require.Equal(t, []string{"do a"}, log)
}

func TestRunSteps_CompensatesInReverse(t *testing.T) {
	var log []string
	err := runSteps(context.Background(), logging.Discard(), "id1", []step{
		recordingStep("a", &log, nil, nil),
		recordingStep("b", &log, nil, nil),
		recordingStep("c", &log, stderrors.New("boom"), nil),
	})

	lerr := requireCode(t, err, errors.ErrStoreConsistency)
	require.Equal(t, "c", lerr.Details["failed_step"])
	require.Equal(t, true, lerr.Details["rolled_back"])
	require.Equal(t, "id1", lerr.Details["id"])
	require.Equal(t, []string{"do a", "do b", "do c", "undo b", "undo a"}, log)
}

func TestRunSteps_FailedCompensation(t *testing.T) {
	var log []string
	err := runSteps(context.Background(), logging.Discard(), "id1", []step{
		recordingStep("a", &log, nil, nil),
		recordingStep("b", &log, nil, stderrors.New("undo failed")),
		recordingStep("c", &log, stderrors.New("boom"), nil),
	})

	lerr := requireCode(t, err, errors.ErrStoreConsistency)
	require.Equal(t, false, lerr.Details["rolled_back"])
	// Later undos still run after an earlier one fails
	require.Equal(t, []string{"do a", "do b", "do c", "undo b", "undo a"}, log)
}

func TestRunSteps_UndoIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var undoErr error

	err := runSteps(ctx, logging.Discard(), "id1", []step{
		{
			name: "a",
			do:   func(context.Context) error { return nil },
			undo: func(ctx context.Context) error {
				undoErr = ctx.Err()
				return nil
			},
		},
		{
			name: "b",
			do: func(context.Context) error {
				cancel()
				return context.Canceled
			},
		},
	})

	requireCode(t, err, errors.ErrStoreConsistency)
	require.NoError(t, undoErr)
}

package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/bookmark-lens/internal/errors"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete removes a bookmark's vector, then its metadata row. Deleting an
// unknown id reports Deleted=false; it is not an error. If the row cannot be
// removed the vector is put back and STORE_CONSISTENCY is returned.
func (in *Ingestor) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	prevVec, err := in.index.Get(ctx, id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var deleted bool
	err = runSteps(ctx, in.logger, id, []step{
		{
			name: "vector_delete",
			do: func(ctx context.Context) error {
				if err := in.index.Delete(ctx, id); err != nil {
					return errors.NewInternal(err)
				}
				return nil
			},
			undo: func(ctx context.Context) error {
				if prevVec == nil {
					return nil
				}
				return in.index.Upsert(ctx, id, prevVec)
			},
		},
		{
			name: "metadata_delete",
			do: func(ctx context.Context) error {
				var err error
				deleted, err = in.store.Delete(ctx, id)
				return err
			},
		},
	})
	if err != nil {
		return nil, err
	}

	if deleted {
		in.logger.Info("bookmark deleted", "id", id)
	}
	return &DeleteOutput{Deleted: deleted, ID: id}, nil
}

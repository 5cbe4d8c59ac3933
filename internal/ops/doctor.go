package ops

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/bookmark-lens/internal/bookmark"
	"github.com/hpungsan/bookmark-lens/internal/errors"
)

// DoctorInput contains parameters for the Doctor operation.
type DoctorInput struct {
	// Repair deletes orphan vectors and embeds bookmarks that have none.
	Repair bool
}

// DoctorOutput reports how the two stores compare.
type DoctorOutput struct {
	Bookmarks     int      `json:"bookmarks"`
	Vectors       int      `json:"vectors"`
	OrphanVectors []string `json:"orphan_vectors"` // vector without a row
	Unembedded    []string `json:"unembedded"`     // row without a vector
	Healthy       bool     `json:"healthy"`

	Repaired *RepairReport `json:"repaired,omitempty"`
}

// RepairReport lists what a repairing Doctor run changed.
type RepairReport struct {
	DeletedVectors []string          `json:"deleted_vectors"`
	Reembedded     []string          `json:"reembedded"`
	Failed         map[string]string `json:"failed,omitempty"` // id -> error
}

// Doctor compares the metadata store with the vector index.
func (in *Ingestor) Doctor(ctx context.Context, input DoctorInput) (*DoctorOutput, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	var rowIDs, vecIDs []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rowIDs, err = in.store.ListIDs(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		if vecIDs, err = in.index.IDs(gctx); err != nil {
			return errors.NewInternal(err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make(map[string]bool, len(rowIDs))
	for _, id := range rowIDs {
		rows[id] = true
	}
	vecs := make(map[string]bool, len(vecIDs))
	for _, id := range vecIDs {
		vecs[id] = true
	}

	out := &DoctorOutput{
		Bookmarks:     len(rowIDs),
		Vectors:       len(vecIDs),
		OrphanVectors: []string{},
		Unembedded:    []string{},
	}
	for _, id := range vecIDs {
		if !rows[id] {
			out.OrphanVectors = append(out.OrphanVectors, id)
		}
	}
	for _, id := range rowIDs {
		if !vecs[id] {
			out.Unembedded = append(out.Unembedded, id)
		}
	}
	out.Healthy = len(out.OrphanVectors) == 0 && len(out.Unembedded) == 0

	if input.Repair && !out.Healthy {
		out.Repaired = in.repair(ctx, out)
	}
	return out, nil
}

func (in *Ingestor) repair(ctx context.Context, report *DoctorOutput) *RepairReport {
	r := &RepairReport{
		DeletedVectors: []string{},
		Reembedded:     []string{},
		Failed:         map[string]string{},
	}

	for _, id := range report.OrphanVectors {
		if err := in.index.Delete(ctx, id); err != nil {
			r.Failed[id] = err.Error()
			continue
		}
		r.DeletedVectors = append(r.DeletedVectors, id)
	}

	for _, id := range report.Unembedded {
		b, err := in.store.GetByID(ctx, id)
		if err != nil {
			r.Failed[id] = err.Error()
			continue
		}
		vec, err := in.embed(ctx, bookmark.EmbeddingText(b, in.cfg.MaxEmbedChars))
		if err != nil {
			r.Failed[id] = err.Error()
			continue
		}
		if err := in.index.Upsert(ctx, id, vec); err != nil {
			r.Failed[id] = err.Error()
			continue
		}
		r.Reembedded = append(r.Reembedded, id)
	}

	in.logger.Info("repair finished",
		"deleted_vectors", len(r.DeletedVectors), "reembedded", len(r.Reembedded), "failed", len(r.Failed))
	return r
}

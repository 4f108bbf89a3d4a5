package store

import (
	"context"
	"fmt"
)

// WriteRender inserts r and its taps in one transaction. r.ID is filled in
// when empty and r.Seq is always assigned.
func (s *Store) WriteRender(ctx context.Context, r *Render) error {
	if r.ID == "" {
		r.ID = NewID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write render: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM renders`).Scan(&seq); err != nil {
		return fmt.Errorf("write render: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO renders
		(id, seq, patch_name, patch_hash, sample_rate, samples, status, failed_tick, failed_component)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		seq,
		r.PatchName,
		r.PatchHash,
		r.SampleRate,
		r.Samples,
		r.Status,
		r.FailedTick,
		r.FailedComponent,
	)
	if err != nil {
		return fmt.Errorf("write render: %w", err)
	}

	for i, tap := range r.Taps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO render_taps (render_id, position, component_id, name, samples)
			VALUES (?, ?, ?, ?, ?)
		`, r.ID, i, tap.ComponentID, tap.Name, marshalSamples(tap.Samples))
		if err != nil {
			return fmt.Errorf("write render tap %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write render: commit: %w", err)
	}
	r.Seq = seq
	return nil
}

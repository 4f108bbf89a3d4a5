package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned by ReadRender for an unknown id.
var ErrNotFound = errors.New("render not found")

const renderColumns = `id, seq, patch_name, patch_hash, sample_rate, samples, status, failed_tick, failed_component`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRender(row rowScanner) (Render, error) {
	var r Render
	err := row.Scan(
		&r.ID,
		&r.Seq,
		&r.PatchName,
		&r.PatchHash,
		&r.SampleRate,
		&r.Samples,
		&r.Status,
		&r.FailedTick,
		&r.FailedComponent,
	)
	return r, err
}

// ReadRender returns the render with the given id, including tap samples.
func (s *Store) ReadRender(ctx context.Context, id string) (Render, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+renderColumns+` FROM renders WHERE id = ?`, id)
	r, err := scanRender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Render{}, fmt.Errorf("read render %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Render{}, fmt.Errorf("read render %s: %w", id, err)
	}

	taps, err := s.readTaps(ctx, id, true)
	if err != nil {
		return Render{}, err
	}
	r.Taps = taps
	return r, nil
}

// ListRenders returns every render in log order. Tap names and component
// ids are included, tap samples are not.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ListRenders(ctx context.Context) ([]Render, error) {
	return s.listRenders(ctx, `
		SELECT `+renderColumns+`
		FROM renders
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// RendersOfPatch returns the renders of the patch with the given content
// hash, in log order, without tap samples.
func (s *Store) RendersOfPatch(ctx context.Context, patchHash string) ([]Render, error) {
	return s.listRenders(ctx, `
		SELECT `+renderColumns+`
		FROM renders
		WHERE patch_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, patchHash)
}

func (s *Store) listRenders(ctx context.Context, query string, args ...any) ([]Render, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query renders: %w", err)
	}
	defer rows.Close()

	renders := []Render{}
	for rows.Next() {
		r, err := scanRender(rows)
		if err != nil {
			return nil, fmt.Errorf("scan render: %w", err)
		}
		renders = append(renders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renders: %w", err)
	}
	// Release the single connection before the tap queries.
	rows.Close()

	for i := range renders {
		taps, err := s.readTaps(ctx, renders[i].ID, false)
		if err != nil {
			return nil, err
		}
		renders[i].Taps = taps
	}
	return renders, nil
}

func (s *Store) readTaps(ctx context.Context, renderID string, withSamples bool) ([]Tap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT component_id, name, samples
		FROM render_taps
		WHERE render_id = ?
		ORDER BY position ASC
	`, renderID)
	if err != nil {
		return nil, fmt.Errorf("query render taps: %w", err)
	}
	defer rows.Close()

	var taps []Tap
	for rows.Next() {
		var (
			tap  Tap
			blob []byte
		)
		if err := rows.Scan(&tap.ComponentID, &tap.Name, &blob); err != nil {
			return nil, fmt.Errorf("scan render tap: %w", err)
		}
		if withSamples {
			if tap.Samples, err = unmarshalSamples(blob); err != nil {
				return nil, err
			}
		}
		taps = append(taps, tap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate render taps: %w", err)
	}
	return taps, nil
}

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sbomgraph/ingestor/graph"
)

// GetVulnerability implements graph.Store.
func (s *Store) GetVulnerability(ctx context.Context, tx graph.Querier, id string) (v graph.Vulnerability, ok bool, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	row := tx.QueryRow(ctx, `SELECT id, title FROM vulnerability WHERE id = $1;`, id)
	if err = row.Scan(&v.ID, &v.Title); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return graph.Vulnerability{}, false, nil
		}
		return graph.Vulnerability{}, false, err
	}
	return v, true, nil
}

// IngestVulnerability implements graph.Store: upsert by id, returning the
// existing row if present.
func (s *Store) IngestVulnerability(ctx context.Context, tx graph.Querier, id string) (v graph.Vulnerability, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	const q = `
	INSERT INTO vulnerability (id) VALUES ($1)
	ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
	RETURNING id, title;`
	row := tx.QueryRow(ctx, q, id)
	if err = row.Scan(&v.ID, &v.Title); err != nil {
		return graph.Vulnerability{}, err
	}
	return v, nil
}

// SetVulnerabilityTitle implements graph.Store.
func (s *Store) SetVulnerabilityTitle(ctx context.Context, tx graph.Querier, id, title string) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	_, err = tx.Exec(ctx, `UPDATE vulnerability SET title = $2 WHERE id = $1;`, id, title)
	return err
}

// UpsertDescription implements graph.Store: last-write-wins within a
// single statement, conflict-suppressed is not appropriate here because a
// repeated (vulnerability_id, lang) within one document legitimately
// should overwrite, per Open Question (b)'s resolution.
func (s *Store) UpsertDescription(ctx context.Context, tx graph.Querier, d graph.Description) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	const q = `
	INSERT INTO description (vulnerability_id, lang, value) VALUES ($1, $2, $3)
	ON CONFLICT (vulnerability_id, lang) DO UPDATE SET value = EXCLUDED.value;`
	_, err = tx.Exec(ctx, q, d.VulnerabilityID, d.Lang, d.Value)
	return err
}

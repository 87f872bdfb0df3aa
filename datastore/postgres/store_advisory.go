package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sbomgraph/ingestor/graph"
)

// GetAdvisory implements graph.Store.
func (s *Store) GetAdvisory(ctx context.Context, tx graph.Querier, sha256 string) (a graph.Advisory, ok bool, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	var id string
	row := tx.QueryRow(ctx, `SELECT id, identifier, location, sha256 FROM advisory WHERE sha256 = $1;`, sha256)
	if err = row.Scan(&id, &a.Identifier, &a.Location, &a.Sha256); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return graph.Advisory{}, false, nil
		}
		return graph.Advisory{}, false, err
	}
	if a.ID, err = uuid.Parse(id); err != nil {
		return graph.Advisory{}, false, err
	}
	return a, true, nil
}

// IngestAdvisory implements graph.Store: upsert by sha256, the identity
// column; location on an existing row is never overwritten, since the
// hash — not the location — is the identity.
func (s *Store) IngestAdvisory(ctx context.Context, tx graph.Querier, identifier, location, sha256 string) (a graph.Advisory, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	const q = `
	INSERT INTO advisory (id, identifier, location, sha256) VALUES ($1, $2, $3, $4)
	ON CONFLICT (sha256) DO UPDATE SET sha256 = EXCLUDED.sha256
	RETURNING id, identifier, location, sha256;`
	var id string
	row := tx.QueryRow(ctx, q, uuid.New().String(), identifier, location, sha256)
	if err = row.Scan(&id, &a.Identifier, &a.Location, &a.Sha256); err != nil {
		return graph.Advisory{}, err
	}
	if a.ID, err = uuid.Parse(id); err != nil {
		return graph.Advisory{}, err
	}
	return a, nil
}

// LinkAdvisoryVulnerability implements graph.Store.
func (s *Store) LinkAdvisoryVulnerability(ctx context.Context, tx graph.Querier, link graph.AdvisoryVulnerability) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	const q = `
	INSERT INTO advisory_vulnerability (advisory_id, vulnerability_id) VALUES ($1, $2)
	ON CONFLICT DO NOTHING;`
	_, err = tx.Exec(ctx, q, link.AdvisoryID.String(), link.VulnerabilityID)
	return err
}

// IngestCvss3 implements graph.Store.
func (s *Store) IngestCvss3(ctx context.Context, tx graph.Querier, row graph.Cvss3) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	const q = `
	INSERT INTO cvss3 (advisory_id, vulnerability_id, minor_version, av, ac, pr, ui, s, c, i, a, score)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (advisory_id, vulnerability_id) DO UPDATE SET
		minor_version = EXCLUDED.minor_version,
		av = EXCLUDED.av, ac = EXCLUDED.ac, pr = EXCLUDED.pr, ui = EXCLUDED.ui,
		s = EXCLUDED.s, c = EXCLUDED.c, i = EXCLUDED.i, a = EXCLUDED.a,
		score = EXCLUDED.score;`
	_, err = tx.Exec(ctx, q,
		row.AdvisoryID.String(), row.VulnerabilityID, row.MinorVersion,
		row.AV, row.AC, row.PR, row.UI, row.S, row.C, row.I, row.A, row.Score,
	)
	return err
}

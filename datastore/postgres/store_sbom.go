package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sbomgraph/ingestor/graph"
)

func scanSbom(row pgx.Row) (graph.Sbom, error) {
	var (
		s      graph.Sbom
		id     string
		authors []string
	)
	if err := row.Scan(&id, &s.NodeID, &s.DocumentID, &s.Location, &s.Sha256, &s.Published, &authors); err != nil {
		return graph.Sbom{}, err
	}
	sid, err := uuid.Parse(id)
	if err != nil {
		return graph.Sbom{}, err
	}
	s.ID = sid
	s.Authors = authors
	return s, nil
}

const sbomColumns = `sbom_id, node_id, document_id, location, sha256, published, authors`

// GetSbomByLocation implements graph.Store.
func (s *Store) GetSbomByLocation(ctx context.Context, tx graph.Querier, location, sha256 string) (sb graph.Sbom, ok bool, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	row := tx.QueryRow(ctx, `SELECT `+sbomColumns+` FROM sbom WHERE location = $1 AND sha256 = $2;`, location, sha256)
	sb, err = scanSbom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return graph.Sbom{}, false, nil
		}
		return graph.Sbom{}, false, err
	}
	return sb, true, nil
}

// GetSbomByLocationOnly implements graph.Store.
func (s *Store) GetSbomByLocationOnly(ctx context.Context, tx graph.Querier, location string) (sb graph.Sbom, ok bool, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	row := tx.QueryRow(ctx, `SELECT `+sbomColumns+` FROM sbom WHERE location = $1 LIMIT 1;`, location)
	sb, err = scanSbom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return graph.Sbom{}, false, nil
		}
		return graph.Sbom{}, false, err
	}
	return sb, true, nil
}

// GetSbomByID implements graph.Store.
func (s *Store) GetSbomByID(ctx context.Context, tx graph.Querier, id uuid.UUID) (sb graph.Sbom, ok bool, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	row := tx.QueryRow(ctx, `SELECT `+sbomColumns+` FROM sbom WHERE sbom_id = $1;`, id.String())
	sb, err = scanSbom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return graph.Sbom{}, false, nil
		}
		return graph.Sbom{}, false, err
	}
	return sb, true, nil
}

// GetSbomBySha256 implements graph.Store.
func (s *Store) GetSbomBySha256(ctx context.Context, tx graph.Querier, sha256 string) (sb graph.Sbom, ok bool, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	row := tx.QueryRow(ctx, `SELECT `+sbomColumns+` FROM sbom WHERE sha256 = $1 LIMIT 1;`, sha256)
	sb, err = scanSbom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return graph.Sbom{}, false, nil
		}
		return graph.Sbom{}, false, err
	}
	return sb, true, nil
}

// IngestSbom implements graph.Store: insert the root sbom_node, then the
// sbom row itself, so the node a "DescribedBy" edge targets always exists
// by the time a caller observes the returned Sbom.
func (s *Store) IngestSbom(ctx context.Context, tx graph.Querier, sb graph.Sbom) (out graph.Sbom, err error) {
	ctx, done := method(ctx, &err)
	defer done()

	const nodeQ = `
	INSERT INTO sbom_node (sbom_id, node_id, name) VALUES ($1, $2, $3)
	ON CONFLICT (sbom_id, node_id) DO NOTHING;`
	if _, err = tx.Exec(ctx, nodeQ, sb.ID.String(), sb.NodeID, sb.NodeID); err != nil {
		return graph.Sbom{}, err
	}

	const sbomQ = `
	INSERT INTO sbom (` + sbomColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (location, sha256) DO UPDATE SET sbom_id = sbom.sbom_id
	RETURNING ` + sbomColumns + `;`
	authors := sb.Authors
	if authors == nil {
		authors = []string{}
	}
	row := tx.QueryRow(ctx, sbomQ, sb.ID.String(), sb.NodeID, sb.DocumentID, sb.Location, sb.Sha256, sb.Published, authors)
	if out, err = scanSbom(row); err != nil {
		return graph.Sbom{}, err
	}
	return out, nil
}

// LocateSbomsByPurl implements graph.Store.
func (s *Store) LocateSbomsByPurl(ctx context.Context, tx graph.Querier, qualifiedPackageID uuid.UUID) (out []graph.Sbom, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	const q = `
	SELECT DISTINCT sb.` + sbomColumnsPrefixed("sb") + `
	FROM sbom sb
	JOIN sbom_package pkg ON pkg.sbom_id = sb.sbom_id
	JOIN sbom_package_purl_ref ref ON ref.sbom_id = pkg.sbom_id AND ref.node_id = pkg.node_id
	WHERE ref.qualified_package_id = $1;`
	rows, err := tx.Query(ctx, q, qualifiedPackageID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		sb, err := scanSbom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sb)
	}
	return out, rows.Err()
}

// LocateSbomsByCpe implements graph.Store.
func (s *Store) LocateSbomsByCpe(ctx context.Context, tx graph.Querier, cpeID int32) (out []graph.Sbom, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	const q = `
	SELECT DISTINCT sb.` + sbomColumnsPrefixed("sb") + `
	FROM sbom sb
	JOIN sbom_package pkg ON pkg.sbom_id = sb.sbom_id
	JOIN sbom_package_cpe_ref ref ON ref.sbom_id = pkg.sbom_id AND ref.node_id = pkg.node_id
	WHERE ref.cpe_id = $1;`
	rows, err := tx.Query(ctx, q, cpeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		sb, err := scanSbom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sb)
	}
	return out, rows.Err()
}

func sbomColumnsPrefixed(alias string) string {
	cols := []string{"sbom_id", "node_id", "document_id", "location", "sha256", "published", "authors"}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + c
	}
	return out
}

// InsertSbomNodes implements graph.Store.
func (s *Store) InsertSbomNodes(ctx context.Context, tx graph.Querier, rows []graph.SbomNode) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `INSERT INTO sbom_node (sbom_id, node_id, name) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING;`
	for _, r := range rows {
		batch.Queue(q, r.SbomID.String(), r.NodeID, r.Name)
	}
	chunkedInsertRows.WithLabelValues("sbom_node").Add(float64(len(rows)))
	return sendBatch(ctx, tx, batch)
}

// InsertSbomPackages implements graph.Store.
func (s *Store) InsertSbomPackages(ctx context.Context, tx graph.Querier, rows []graph.SbomPackage) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `INSERT INTO sbom_package (sbom_id, node_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`
	for _, r := range rows {
		batch.Queue(q, r.SbomID.String(), r.NodeID)
	}
	chunkedInsertRows.WithLabelValues("sbom_package").Add(float64(len(rows)))
	return sendBatch(ctx, tx, batch)
}

// InsertSbomPackagePurlRefs implements graph.Store.
func (s *Store) InsertSbomPackagePurlRefs(ctx context.Context, tx graph.Querier, rows []graph.SbomPackagePurlRef) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `
	INSERT INTO sbom_package_purl_ref (sbom_id, node_id, qualified_package_id) VALUES ($1, $2, $3)
	ON CONFLICT DO NOTHING;`
	for _, r := range rows {
		batch.Queue(q, r.SbomID.String(), r.NodeID, r.QualifiedPackageID.String())
	}
	chunkedInsertRows.WithLabelValues("sbom_package_purl_ref").Add(float64(len(rows)))
	return sendBatch(ctx, tx, batch)
}

// InsertSbomPackageCpeRefs implements graph.Store.
func (s *Store) InsertSbomPackageCpeRefs(ctx context.Context, tx graph.Querier, rows []graph.SbomPackageCpeRef) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `
	INSERT INTO sbom_package_cpe_ref (sbom_id, node_id, cpe_id) VALUES ($1, $2, $3)
	ON CONFLICT DO NOTHING;`
	for _, r := range rows {
		batch.Queue(q, r.SbomID.String(), r.NodeID, r.CpeID)
	}
	chunkedInsertRows.WithLabelValues("sbom_package_cpe_ref").Add(float64(len(rows)))
	return sendBatch(ctx, tx, batch)
}

// InsertPackageRelatesToPackage implements graph.Store.
func (s *Store) InsertPackageRelatesToPackage(ctx context.Context, tx graph.Querier, rows []graph.PackageRelatesToPackage) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `
	INSERT INTO package_relates_to_package (sbom_id, left_node_id, relationship, right_node_id)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT DO NOTHING;`
	for _, r := range rows {
		batch.Queue(q, r.SbomID.String(), r.LeftNodeID, int32(r.Relationship), r.RightNodeID)
	}
	chunkedInsertRows.WithLabelValues("package_relates_to_package").Add(float64(len(rows)))
	return sendBatch(ctx, tx, batch)
}

// RelatedPackagesTransitively implements graph.Store by calling the
// qualified_package_transitive set-returning function (see schema.go).
func (s *Store) RelatedPackagesTransitively(ctx context.Context, tx graph.Querier, sbomID uuid.UUID, root uuid.UUID, rels []graph.Relationship) (out []uuid.UUID, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	codes := make([]int32, len(rels))
	for i, r := range rels {
		codes[i] = int32(r)
	}
	rows, err := tx.Query(ctx, `SELECT left_package_id FROM qualified_package_transitive($1, $2, $3);`,
		sbomID.String(), root.String(), codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		pid, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		out = append(out, pid)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/graph"
	"github.com/sbomgraph/ingestor/purl"
)

// IngestCpe implements graph.Store: upsert by the seven-tuple, returning
// the store-assigned surrogate id.
func (s *Store) IngestCpe(ctx context.Context, tx graph.Querier, c cpe.Cpe) (id int32, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	const q = `
	INSERT INTO cpe (part, vendor, product, version, update_, edition, language)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (part, vendor, product, version, update_, edition, language)
		DO UPDATE SET part = EXCLUDED.part
	RETURNING id;`
	row := tx.QueryRow(ctx, q, c.Part, c.Vendor, c.Product, c.Version, c.Update, c.Edition, c.Language)
	if err = row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetCpeID implements graph.Store.
func (s *Store) GetCpeID(ctx context.Context, tx graph.Querier, c cpe.Cpe) (id int32, ok bool, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	const q = `
	SELECT id FROM cpe
	WHERE part = $1 AND vendor = $2 AND product = $3 AND version = $4
	  AND update_ = $5 AND edition = $6 AND language = $7;`
	row := tx.QueryRow(ctx, q, c.Part, c.Vendor, c.Product, c.Version, c.Update, c.Edition, c.Language)
	if err = row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

// GetCpeIDs implements graph.Store: one batched SELECT per row, since the
// surrogate id is a store-assigned serial a CpeCreator's in-memory
// accumulator never sees.
func (s *Store) GetCpeIDs(ctx context.Context, tx graph.Querier, rows []cpe.Cpe) (ids map[cpe.Cpe]int32, err error) {
	ctx, done := method(ctx, &err)
	defer done()
	ids = make(map[cpe.Cpe]int32, len(rows))
	if len(rows) == 0 {
		return ids, nil
	}
	const q = `
	SELECT id FROM cpe
	WHERE part = $1 AND vendor = $2 AND product = $3 AND version = $4
	  AND update_ = $5 AND edition = $6 AND language = $7;`
	batch := &pgx.Batch{}
	for _, c := range rows {
		batch.Queue(q, c.Part, c.Vendor, c.Product, c.Version, c.Update, c.Edition, c.Language)
	}
	br := tx.(batcher).SendBatch(ctx, batch)
	defer br.Close()
	for _, c := range rows {
		var id int32
		if serr := br.QueryRow().Scan(&id); serr != nil {
			if errors.Is(serr, pgx.ErrNoRows) {
				continue
			}
			return nil, serr
		}
		ids[c] = id
	}
	return ids, nil
}

// IngestPurl implements graph.Store: upsert base_purl, versioned_purl, and
// qualified_package in dependency order, returning the content-addressed
// qualified_package id.
func (s *Store) IngestPurl(ctx context.Context, tx graph.Querier, p purl.Purl) (id uuid.UUID, err error) {
	ctx, done := method(ctx, &err)
	defer done()

	const baseQ = `
	INSERT INTO base_purl (id, type, namespace, name) VALUES ($1, $2, $3, $4)
	ON CONFLICT (type, namespace, name) DO UPDATE SET type = EXCLUDED.type
	RETURNING id;`
	var baseID string
	if err = tx.QueryRow(ctx, baseQ, uuid.New().String(), p.Type, p.Namespace, p.Name).Scan(&baseID); err != nil {
		return uuid.Nil, err
	}

	const verQ = `
	INSERT INTO versioned_purl (id, base_purl_id, version) VALUES ($1, $2, $3)
	ON CONFLICT (base_purl_id, version) DO UPDATE SET base_purl_id = EXCLUDED.base_purl_id
	RETURNING id;`
	var verID string
	if err = tx.QueryRow(ctx, verQ, uuid.New().String(), baseID, p.Version).Scan(&verID); err != nil {
		return uuid.Nil, err
	}

	qualifiers, err := json.Marshal(p.Qualifiers)
	if err != nil {
		return uuid.Nil, err
	}
	qpID := p.QualifierUUID()
	const qpQ = `
	INSERT INTO qualified_package (id, versioned_purl_id, qualifiers) VALUES ($1, $2, $3)
	ON CONFLICT (id) DO NOTHING;`
	if _, err = tx.Exec(ctx, qpQ, qpID.String(), verID, qualifiers); err != nil {
		return uuid.Nil, err
	}
	return qpID, nil
}

// InsertBasePurls implements graph.Store: a single chunked batch, keyed by
// the (type, namespace, name) uniqueness.
func (s *Store) InsertBasePurls(ctx context.Context, tx graph.Querier, rows []graph.BasePurl) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `
	INSERT INTO base_purl (id, type, namespace, name) VALUES ($1, $2, $3, $4)
	ON CONFLICT (type, namespace, name) DO NOTHING;`
	for _, r := range rows {
		batch.Queue(q, r.ID.String(), r.Type, r.Ns, r.Name)
	}
	chunkedInsertRows.WithLabelValues("base_purl").Add(float64(len(rows)))
	return sendBatch(ctx, tx, batch)
}

// InsertVersionedPurls implements graph.Store.
func (s *Store) InsertVersionedPurls(ctx context.Context, tx graph.Querier, rows []graph.VersionedPurl) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `
	INSERT INTO versioned_purl (id, base_purl_id, version) VALUES ($1, $2, $3)
	ON CONFLICT (base_purl_id, version) DO NOTHING;`
	for _, r := range rows {
		batch.Queue(q, r.ID.String(), r.BasePurlID.String(), r.Version)
	}
	chunkedInsertRows.WithLabelValues("versioned_purl").Add(float64(len(rows)))
	return sendBatch(ctx, tx, batch)
}

// InsertQualifiedPackages implements graph.Store.
func (s *Store) InsertQualifiedPackages(ctx context.Context, tx graph.Querier, rows []graph.QualifiedPackage) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `
	INSERT INTO qualified_package (id, versioned_purl_id, qualifiers) VALUES ($1, $2, $3)
	ON CONFLICT (id) DO NOTHING;`
	for _, r := range rows {
		qualifiers, jerr := json.Marshal(r.Qualifiers)
		if jerr != nil {
			return jerr
		}
		batch.Queue(q, r.ID.String(), r.VersionedPurlID.String(), qualifiers)
	}
	chunkedInsertRows.WithLabelValues("qualified_package").Add(float64(len(rows)))
	return sendBatch(ctx, tx, batch)
}

// InsertCpes implements graph.Store.
func (s *Store) InsertCpes(ctx context.Context, tx graph.Querier, rows []graph.Cpe) (err error) {
	ctx, done := method(ctx, &err)
	defer done()
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `
	INSERT INTO cpe (part, vendor, product, version, update_, edition, language)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (part, vendor, product, version, update_, edition, language) DO NOTHING;`
	for _, r := range rows {
		batch.Queue(q, r.Part, r.Vendor, r.Product, r.Version, r.Update, r.Edition, r.Language)
	}
	chunkedInsertRows.WithLabelValues("cpe").Add(float64(len(rows)))
	return sendBatch(ctx, tx, batch)
}

package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/purl"
)

// PurlCreator is a scoped, single-use accumulator for bulk PURL ingestion.
// Per-row IngestPurl is O(rows) round-trips; SBOMs routinely carry 10^4
// packages, so loaders should Add every PURL they encounter and call
// Create once, which collapses the work to O(rows/chunkSize) round-trips
// while preserving idempotency via chunked "ON CONFLICT DO NOTHING"
// inserts.
type PurlCreator struct {
	chunkSize int
	seen      map[string]purl.Purl // QualifierUUID string -> Purl
	created   bool
}

// NewPurlCreator returns an empty PurlCreator that will chunk its inserts
// to chunkSize rows (0 selects the default).
func NewPurlCreator(chunkSize int) *PurlCreator {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &PurlCreator{chunkSize: chunkSize, seen: make(map[string]purl.Purl)}
}

// Add dedupes p in memory by its qualifier UUID (versioned identity plus
// sorted qualifiers).
func (c *PurlCreator) Add(p purl.Purl) {
	if c.created {
		panic("graph: PurlCreator.Add called after Create")
	}
	c.seen[p.QualifierUUID().String()] = p
}

// Extend is a convenience wrapper that Adds every element of ps.
func (c *PurlCreator) Extend(ps []purl.Purl) {
	for _, p := range ps {
		c.Add(p)
	}
}

// Len reports the number of distinct PURLs accumulated so far.
func (c *PurlCreator) Len() int { return len(c.seen) }

// Create flushes the accumulator: three chunked "INSERT ... ON CONFLICT DO
// NOTHING" batches, in dependency order (base_purl, then versioned_purl,
// then qualified_package), each chunked to the configured size. The
// creator must not be reused afterward.
func (c *PurlCreator) Create(ctx context.Context, store Store, tx Querier) error {
	if c.created {
		panic("graph: PurlCreator.Create called twice")
	}
	c.created = true
	if len(c.seen) == 0 {
		return nil
	}

	bases := make(map[string]BasePurl, len(c.seen))
	versions := make(map[string]VersionedPurl, len(c.seen))
	quals := make([]QualifiedPackage, 0, len(c.seen))

	for _, p := range c.seen {
		baseKey := p.BaseString()
		baseID, ok := basePurlID(bases, baseKey)
		if !ok {
			baseID = uuid.New()
			bases[baseKey] = BasePurl{ID: baseID, Type: p.Type, Ns: p.Namespace, Name: p.Name}
		}
		verKey := p.VersionedString()
		verID, ok := versionedPurlID(versions, verKey)
		if !ok {
			verID = uuid.New()
			versions[verKey] = VersionedPurl{ID: verID, BasePurlID: baseID, Version: p.Version}
		}
		quals = append(quals, QualifiedPackage{
			ID:              p.QualifierUUID(),
			VersionedPurlID: verID,
			Qualifiers:      p.Qualifiers,
		})
	}

	baseRows := make([]BasePurl, 0, len(bases))
	for _, b := range bases {
		baseRows = append(baseRows, b)
	}
	verRows := make([]VersionedPurl, 0, len(versions))
	for _, v := range versions {
		verRows = append(verRows, v)
	}

	for _, part := range chunk(baseRows, c.chunkSize) {
		if err := store.InsertBasePurls(ctx, tx, part); err != nil {
			return err
		}
	}
	for _, part := range chunk(verRows, c.chunkSize) {
		if err := store.InsertVersionedPurls(ctx, tx, part); err != nil {
			return err
		}
	}
	for _, part := range chunk(quals, c.chunkSize) {
		if err := store.InsertQualifiedPackages(ctx, tx, part); err != nil {
			return err
		}
	}
	return nil
}

func basePurlID(m map[string]BasePurl, key string) (uuid.UUID, bool) {
	b, ok := m[key]
	return b.ID, ok
}

func versionedPurlID(m map[string]VersionedPurl, key string) (uuid.UUID, bool) {
	v, ok := m[key]
	return v.ID, ok
}

// CpeCreator is the CPE analogue of PurlCreator: an in-memory deduplicating
// accumulator that flushes as chunked "ON CONFLICT DO NOTHING" batches.
// Unlike PURLs, a cpe row's identity is the store-assigned surrogate:
// InsertCpes leaves the ID to the store and returns none, so callers that
// need the ids look them up afterwards (Graph.GetCpeIDs).
type CpeCreator struct {
	chunkSize int
	seen      map[cpe.Cpe]struct{}
	created   bool
}

// NewCpeCreator returns an empty CpeCreator.
func NewCpeCreator(chunkSize int) *CpeCreator {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &CpeCreator{chunkSize: chunkSize, seen: make(map[cpe.Cpe]struct{})}
}

// Add dedupes c in memory by its 7-tuple.
func (c *CpeCreator) Add(v cpe.Cpe) {
	if c.created {
		panic("graph: CpeCreator.Add called after Create")
	}
	c.seen[v] = struct{}{}
}

// Extend Adds every element of vs.
func (c *CpeCreator) Extend(vs []cpe.Cpe) {
	for _, v := range vs {
		c.Add(v)
	}
}

// Len reports the number of distinct CPEs accumulated so far.
func (c *CpeCreator) Len() int { return len(c.seen) }

// Create flushes the accumulator as chunked "INSERT ... ON CONFLICT DO
// NOTHING" batches. The creator must not be reused afterward.
func (c *CpeCreator) Create(ctx context.Context, store Store, tx Querier) error {
	if c.created {
		panic("graph: CpeCreator.Create called twice")
	}
	c.created = true
	if len(c.seen) == 0 {
		return nil
	}
	rows := make([]Cpe, 0, len(c.seen))
	for v := range c.seen {
		rows = append(rows, Cpe{Cpe: v})
	}
	for _, part := range chunk(rows, c.chunkSize) {
		if err := store.InsertCpes(ctx, tx, part); err != nil {
			return err
		}
	}
	return nil
}

package graph

import (
	"context"

	"github.com/sbomgraph/ingestor/cpe"
)

// ChunkSize reports the configured batch size, so callers assembling their
// own bulk insert slices (sbom.Ingest) can size their PurlCreator/CpeCreator
// identically to the Graph they'll flush through.
func (g *Graph) ChunkSize() int { return g.chunkSize }

// CreatePurls flushes c against this Graph's Store, chunked to c's own
// configured size. See PurlCreator.Create.
func (g *Graph) CreatePurls(ctx context.Context, tx Querier, c *PurlCreator) error {
	if err := c.Create(ctx, g.store, tx); err != nil {
		return wrapTransport("graph.CreatePurls", err)
	}
	return nil
}

// CreateCpes flushes c against this Graph's Store. See CpeCreator.Create.
func (g *Graph) CreateCpes(ctx context.Context, tx Querier, c *CpeCreator) error {
	if err := c.Create(ctx, g.store, tx); err != nil {
		return wrapTransport("graph.CreateCpes", err)
	}
	return nil
}

// GetCpeIDs resolves the store-assigned surrogate id of every row in rows.
// A CpeCreator's flush doesn't return ids (they're serials assigned by the
// store, invisible to the in-memory accumulator), so a bulk SBOM loader
// that needs sbom_package_cpe_ref rows re-resolves them with this call
// after CreateCpes.
func (g *Graph) GetCpeIDs(ctx context.Context, tx Querier, rows []cpe.Cpe) (map[cpe.Cpe]int32, error) {
	ids, err := g.store.GetCpeIDs(ctx, tx, rows)
	if err != nil {
		return nil, wrapTransport("graph.GetCpeIDs", err)
	}
	return ids, nil
}

// InsertSbomNodes chunk-inserts sbom_node rows. Bulk SBOM loaders use this;
// small/test ingests should prefer SbomContext.IngestPackageRelatesToPackage
// instead.
func (g *Graph) InsertSbomNodes(ctx context.Context, tx Querier, rows []SbomNode) error {
	for _, part := range chunk(rows, g.chunkSize) {
		if err := g.store.InsertSbomNodes(ctx, tx, part); err != nil {
			return wrapTransport("graph.InsertSbomNodes", err)
		}
	}
	return nil
}

// InsertSbomPackages chunk-inserts sbom_package rows.
func (g *Graph) InsertSbomPackages(ctx context.Context, tx Querier, rows []SbomPackage) error {
	for _, part := range chunk(rows, g.chunkSize) {
		if err := g.store.InsertSbomPackages(ctx, tx, part); err != nil {
			return wrapTransport("graph.InsertSbomPackages", err)
		}
	}
	return nil
}

// InsertSbomPackagePurlRefs chunk-inserts sbom_package_purl_ref rows.
func (g *Graph) InsertSbomPackagePurlRefs(ctx context.Context, tx Querier, rows []SbomPackagePurlRef) error {
	for _, part := range chunk(rows, g.chunkSize) {
		if err := g.store.InsertSbomPackagePurlRefs(ctx, tx, part); err != nil {
			return wrapTransport("graph.InsertSbomPackagePurlRefs", err)
		}
	}
	return nil
}

// InsertSbomPackageCpeRefs chunk-inserts sbom_package_cpe_ref rows.
func (g *Graph) InsertSbomPackageCpeRefs(ctx context.Context, tx Querier, rows []SbomPackageCpeRef) error {
	for _, part := range chunk(rows, g.chunkSize) {
		if err := g.store.InsertSbomPackageCpeRefs(ctx, tx, part); err != nil {
			return wrapTransport("graph.InsertSbomPackageCpeRefs", err)
		}
	}
	return nil
}

// InsertPackageRelatesToPackage chunk-inserts package_relates_to_package
// edge rows.
func (g *Graph) InsertPackageRelatesToPackage(ctx context.Context, tx Querier, rows []PackageRelatesToPackage) error {
	for _, part := range chunk(rows, g.chunkSize) {
		if err := g.store.InsertPackageRelatesToPackage(ctx, tx, part); err != nil {
			return wrapTransport("graph.InsertPackageRelatesToPackage", err)
		}
	}
	return nil
}

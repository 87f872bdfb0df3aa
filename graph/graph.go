package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sbomgraph/ingestor"
	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/cvss"
	"github.com/sbomgraph/ingestor/purl"
)

// Graph is the transactional façade over the vulnerability knowledge
// graph. It holds no mutable state of its own beyond the Store it wraps
// and the configured chunk size, so a single Graph is safe to share across
// goroutines; every call's atomicity comes from the Querier the caller
// passes in.
type Graph struct {
	store     Store
	chunkSize int
}

// New wraps store in a Graph façade.
func New(store Store, opts ...Option) *Graph {
	cfg := newConfig(opts)
	return &Graph{store: store, chunkSize: cfg.chunkSize}
}

// Pool returns the default autocommit Querier (the "None" transactional
// variant).
func (g *Graph) Pool() Querier { return g.store.Pool() }

// Begin opens a transaction (the "Some(tx)" transactional variant) so a
// caller can batch several Graph calls atomically. The returned pgx.Tx
// satisfies Querier and can be passed straight back into any Graph method.
func (g *Graph) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := g.store.Begin(ctx)
	if err != nil {
		return nil, ingestor.Wrap("graph.Begin", ingestor.ErrTransport, err)
	}
	return tx, nil
}

// GetVulnerability looks up a vulnerability by id. ok is false if no row
// exists.
func (g *Graph) GetVulnerability(ctx context.Context, tx Querier, id string) (Vulnerability, bool, error) {
	v, ok, err := g.store.GetVulnerability(ctx, tx, id)
	if err != nil {
		return Vulnerability{}, false, ingestor.Wrap("graph.GetVulnerability", ingestor.ErrTransport, err)
	}
	return v, ok, nil
}

// IngestVulnerability upserts by id. If already present, the existing row
// is returned unchanged.
func (g *Graph) IngestVulnerability(ctx context.Context, tx Querier, id string) (Vulnerability, error) {
	v, err := g.store.IngestVulnerability(ctx, tx, id)
	if err != nil {
		return Vulnerability{}, ingestor.Wrap("graph.IngestVulnerability", ingestor.ErrTransport, err)
	}
	return v, nil
}

// SetVulnerabilityTitle updates the title of an already-ingested
// vulnerability.
func (g *Graph) SetVulnerabilityTitle(ctx context.Context, tx Querier, id, title string) error {
	if err := g.store.SetVulnerabilityTitle(ctx, tx, id, title); err != nil {
		return ingestor.Wrap("graph.SetVulnerabilityTitle", ingestor.ErrTransport, err)
	}
	return nil
}

// UpsertDescription records a localized description. Per (vulnerability_id,
// lang) uniqueness, each call overwrites any earlier value for that pair,
// within one ingest and across ingests alike: the last write wins and the
// conflict is never surfaced as an error (see Open Question (b) in
// DESIGN.md).
func (g *Graph) UpsertDescription(ctx context.Context, tx Querier, d Description) error {
	if err := g.store.UpsertDescription(ctx, tx, d); err != nil {
		return ingestor.Wrap("graph.UpsertDescription", ingestor.ErrTransport, err)
	}
	return nil
}

// GetAdvisory looks up an advisory by its content hash.
func (g *Graph) GetAdvisory(ctx context.Context, tx Querier, sha256 string) (Advisory, bool, error) {
	a, ok, err := g.store.GetAdvisory(ctx, tx, sha256)
	if err != nil {
		return Advisory{}, false, ingestor.Wrap("graph.GetAdvisory", ingestor.ErrTransport, err)
	}
	return a, ok, nil
}

// IngestAdvisory upserts by sha256: the hash is the identity, so if it
// already exists the existing row is returned even if location differs.
func (g *Graph) IngestAdvisory(ctx context.Context, tx Querier, identifier, location, sha256 string) (Advisory, error) {
	a, err := g.store.IngestAdvisory(ctx, tx, identifier, location, sha256)
	if err != nil {
		return Advisory{}, ingestor.Wrap("graph.IngestAdvisory", ingestor.ErrTransport, err)
	}
	return a, nil
}

// LinkAdvisoryVulnerability records that advisory describes vulnerability.
func (g *Graph) LinkAdvisoryVulnerability(ctx context.Context, tx Querier, link AdvisoryVulnerability) error {
	if err := g.store.LinkAdvisoryVulnerability(ctx, tx, link); err != nil {
		return ingestor.Wrap("graph.LinkAdvisoryVulnerability", ingestor.ErrTransport, err)
	}
	return nil
}

// IngestCvss3 records a CVSSv3 score for a vulnerability as reported by an
// advisory. Score is computed from the vector, never trusted from the
// caller.
func (g *Graph) IngestCvss3(ctx context.Context, tx Querier, advisoryID uuid.UUID, vulnID string, v cvss.V3) error {
	row := NewCvss3(advisoryID, vulnID, v)
	if err := g.store.IngestCvss3(ctx, tx, row); err != nil {
		return ingestor.Wrap("graph.IngestCvss3", ingestor.ErrTransport, err)
	}
	return nil
}

// IngestCpe22 upserts by the 7-tuple, returning the surrogate ID.
func (g *Graph) IngestCpe22(ctx context.Context, tx Querier, c cpe.Cpe) (int32, error) {
	id, err := g.store.IngestCpe(ctx, tx, c)
	if err != nil {
		return 0, ingestor.Wrap("graph.IngestCpe22", ingestor.ErrTransport, err)
	}
	return id, nil
}

// IngestPurl upserts base_purl, versioned_purl, and qualified_package in
// dependency order, returning the qualified_package id. For bulk loads
// prefer a PurlCreator instead: this issues up to three round-trips per
// call.
func (g *Graph) IngestPurl(ctx context.Context, tx Querier, p purl.Purl) (uuid.UUID, error) {
	id, err := g.store.IngestPurl(ctx, tx, p)
	if err != nil {
		return uuid.Nil, ingestor.Wrap("graph.IngestPurl", ingestor.ErrTransport, err)
	}
	return id, nil
}

// SbomInfo carries the metadata IngestSbom needs beyond the content
// identity (location, sha256): the document's own root node identifier,
// a human name for that root node, and the optional publication metadata.
type SbomInfo struct {
	NodeID     string
	Name       string
	DocumentID string
	Published  *time.Time
	Authors    []string
}

// IngestSbom looks up by (location, sha256); if present, returns the
// existing row. Otherwise it allocates sbomID = UUIDv7(now), inserts the
// root sbom_node, then the sbom row itself.
func (g *Graph) IngestSbom(ctx context.Context, tx Querier, location, sha256 string, info SbomInfo) (SbomContext, error) {
	if existing, ok, err := g.store.GetSbomByLocation(ctx, tx, location, sha256); err != nil {
		return SbomContext{}, ingestor.Wrap("graph.IngestSbom", ingestor.ErrTransport, err)
	} else if ok {
		return SbomContext{g: g, Sbom: existing}, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return SbomContext{}, ingestor.Wrap("graph.IngestSbom", ingestor.ErrInternal, err)
	}
	s := Sbom{
		ID:         id,
		NodeID:     info.NodeID,
		DocumentID: info.DocumentID,
		Location:   location,
		Sha256:     sha256,
		Published:  info.Published,
		Authors:    info.Authors,
	}
	created, err := g.store.IngestSbom(ctx, tx, s)
	if err != nil {
		return SbomContext{}, ingestor.Wrap("graph.IngestSbom", ingestor.ErrTransport, err)
	}
	return SbomContext{g: g, Sbom: created}, nil
}

// LocateSbom resolves locator to at most one SbomContext. An unresolvable
// PURL/CPE or unknown ID/location/sha256 is not an error: ok is simply
// false.
func (g *Graph) LocateSbom(ctx context.Context, tx Querier, locator Locator) (SbomContext, bool, error) {
	sboms, err := g.locate(ctx, tx, locator)
	if err != nil {
		return SbomContext{}, false, err
	}
	if len(sboms) == 0 {
		return SbomContext{}, false, nil
	}
	return SbomContext{g: g, Sbom: sboms[0]}, true, nil
}

// LocateSboms resolves locator to every matching SbomContext (only PURL
// and CPE locators can return more than one).
func (g *Graph) LocateSboms(ctx context.Context, tx Querier, locator Locator) ([]SbomContext, error) {
	sboms, err := g.locate(ctx, tx, locator)
	if err != nil {
		return nil, err
	}
	out := make([]SbomContext, len(sboms))
	for i, s := range sboms {
		out[i] = SbomContext{g: g, Sbom: s}
	}
	return out, nil
}

func (g *Graph) locate(ctx context.Context, tx Querier, locator Locator) ([]Sbom, error) {
	var (
		s   Sbom
		ss  []Sbom
		ok  bool
		err error
	)
	switch locator.kind {
	case locatorID:
		s, ok, err = g.store.GetSbomByID(ctx, tx, locator.id)
	case locatorLocation:
		s, ok, err = g.store.GetSbomByLocationOnly(ctx, tx, locator.location)
	case locatorSha256:
		s, ok, err = g.store.GetSbomBySha256(ctx, tx, locator.sha256)
	case locatorPurl:
		ss, err = g.store.LocateSbomsByPurl(ctx, tx, locator.purl.QualifierUUID())
		return ss, wrapTransport("graph.LocateSboms", err)
	case locatorCpe:
		cpeID, found, cerr := g.store.GetCpeID(ctx, tx, locator.cpe)
		if cerr != nil {
			return nil, wrapTransport("graph.LocateSboms", cerr)
		}
		if !found {
			return nil, nil
		}
		ss, err = g.store.LocateSbomsByCpe(ctx, tx, cpeID)
		return ss, wrapTransport("graph.LocateSboms", err)
	default:
		return nil, fmt.Errorf("graph: unknown locator kind %d", locator.kind)
	}
	if err != nil {
		return nil, wrapTransport("graph.LocateSboms", err)
	}
	if !ok {
		return nil, nil
	}
	return []Sbom{s}, nil
}

func wrapTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	return ingestor.Wrap(op, ingestor.ErrTransport, err)
}

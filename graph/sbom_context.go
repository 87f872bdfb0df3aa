package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/sbomgraph/ingestor"
)

// SbomContext is the handle returned by IngestSbom/LocateSbom: a
// registered SBOM plus the Graph it belongs to, so subsequent calls don't
// need to repeat the sbom_id.
type SbomContext struct {
	g    *Graph
	Sbom Sbom
}

// RelatedPackagesTransitively walks package_relates_to_package edges
// within this SBOM, restricted to rels, breadth-first from root,
// terminating on cycles via a visited set, and returns every reachable
// qualified_package id (root included once reached, never duplicated).
func (c SbomContext) RelatedPackagesTransitively(ctx context.Context, tx Querier, root uuid.UUID, rels []Relationship) ([]uuid.UUID, error) {
	ids, err := c.g.store.RelatedPackagesTransitively(ctx, tx, c.Sbom.ID, root, rels)
	if err != nil {
		return nil, ingestor.Wrap("graph.SbomContext.RelatedPackagesTransitively", ingestor.ErrTransport, err)
	}
	return ids, nil
}

// Assertion is a single vulnerability claim reached through a package's
// transitive dependency closure. The core never populates this: matching
// vulnerabilities against SBOM contents at query time is explicitly out of
// scope. The shape exists so a future matching engine can populate it
// without an API change.
type Assertion struct {
	VulnerabilityID string
	AdvisoryID      uuid.UUID
}

// VulnerabilityAssertions computes, for every package DescribedBy this
// SBOM's root, the transitive closure over {DependencyOf, ContainedBy},
// then attaches each reached package's known vulnerability assertions,
// omitting packages with no assertions from the result. The core has no
// assertion data model (see DESIGN.md's resolution of the §4.7 Open
// Question: building one requires the vulnerability-matching engine the
// Non-goals explicitly exclude), so this always returns an empty map. The
// described-package lookup walks from uuid.Nil, which matches no
// qualified package, so it reaches no packages and no per-package closure
// is computed.
func (c SbomContext) VulnerabilityAssertions(ctx context.Context, tx Querier) (map[uuid.UUID][]Assertion, error) {
	described, err := c.g.store.RelatedPackagesTransitively(ctx, tx, c.Sbom.ID, uuid.Nil, []Relationship{DescribedBy})
	if err != nil {
		return nil, ingestor.Wrap("graph.SbomContext.VulnerabilityAssertions", ingestor.ErrTransport, err)
	}
	for _, pkg := range described {
		if _, err := c.g.store.RelatedPackagesTransitively(ctx, tx, c.Sbom.ID, pkg, []Relationship{DependencyOf, ContainedBy}); err != nil {
			return nil, ingestor.Wrap("graph.SbomContext.VulnerabilityAssertions", ingestor.ErrTransport, err)
		}
	}
	return map[uuid.UUID][]Assertion{}, nil
}

// IngestPackageRelatesToPackage ensures both endpoints exist (creating
// their identifier and sbom_node rows as needed) and then upserts the
// edge. This is explicitly the slow path: it is intended for tests and
// small ingests. Bulk SBOM loaders must instead go through
// sbom.Ingest's chunked insert of the whole edge set.
func (c SbomContext) IngestPackageRelatesToPackage(ctx context.Context, tx Querier, left RelationshipReference, rel Relationship, right RelationshipReference) error {
	leftNode, err := c.resolveNode(ctx, tx, left)
	if err != nil {
		return err
	}
	rightNode, err := c.resolveNode(ctx, tx, right)
	if err != nil {
		return err
	}
	row := PackageRelatesToPackage{
		SbomID:       c.Sbom.ID,
		LeftNodeID:   leftNode,
		Relationship: rel,
		RightNodeID:  rightNode,
	}
	if err := c.g.store.InsertPackageRelatesToPackage(ctx, tx, []PackageRelatesToPackage{row}); err != nil {
		return ingestor.Wrap("graph.SbomContext.IngestPackageRelatesToPackage", ingestor.ErrTransport, err)
	}
	return nil
}

// resolveNode returns the node_id string backing ref, creating the
// identifier and its sbom_node/sbom_package rows if this is the first time
// this SBOM has seen it.
func (c SbomContext) resolveNode(ctx context.Context, tx Querier, ref RelationshipReference) (string, error) {
	switch ref.kind {
	case refRoot:
		return c.Sbom.NodeID, nil
	case refPurl:
		qpID, err := c.g.store.IngestPurl(ctx, tx, ref.purl)
		if err != nil {
			return "", ingestor.Wrap("graph.SbomContext.resolveNode", ingestor.ErrTransport, err)
		}
		nodeID := "purl:" + qpID.String()
		if err := c.ensureNode(ctx, tx, nodeID, ref.purl.String()); err != nil {
			return "", err
		}
		if err := c.g.store.InsertSbomPackagePurlRefs(ctx, tx, []SbomPackagePurlRef{
			{SbomID: c.Sbom.ID, NodeID: nodeID, QualifiedPackageID: qpID},
		}); err != nil {
			return "", ingestor.Wrap("graph.SbomContext.resolveNode", ingestor.ErrTransport, err)
		}
		return nodeID, nil
	case refCpe:
		cpeID, err := c.g.store.IngestCpe(ctx, tx, ref.cpe)
		if err != nil {
			return "", ingestor.Wrap("graph.SbomContext.resolveNode", ingestor.ErrTransport, err)
		}
		nodeID := "cpe:" + ref.cpe.String()
		if err := c.ensureNode(ctx, tx, nodeID, ref.cpe.String()); err != nil {
			return "", err
		}
		if err := c.g.store.InsertSbomPackageCpeRefs(ctx, tx, []SbomPackageCpeRef{
			{SbomID: c.Sbom.ID, NodeID: nodeID, CpeID: cpeID},
		}); err != nil {
			return "", ingestor.Wrap("graph.SbomContext.resolveNode", ingestor.ErrTransport, err)
		}
		return nodeID, nil
	default:
		panic("graph: unknown RelationshipReference kind")
	}
}

func (c SbomContext) ensureNode(ctx context.Context, tx Querier, nodeID, name string) error {
	if err := c.g.store.InsertSbomNodes(ctx, tx, []SbomNode{{SbomID: c.Sbom.ID, NodeID: nodeID, Name: name}}); err != nil {
		return ingestor.Wrap("graph.SbomContext.ensureNode", ingestor.ErrTransport, err)
	}
	if err := c.g.store.InsertSbomPackages(ctx, tx, []SbomPackage{{SbomID: c.Sbom.ID, NodeID: nodeID}}); err != nil {
		return ingestor.Wrap("graph.SbomContext.ensureNode", ingestor.ErrTransport, err)
	}
	return nil
}

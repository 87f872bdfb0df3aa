// Package sbom drives the format-neutral SBOM ingestion protocol: given a
// parsed Document, register the SBOM, bulk-create every PURL/CPE its
// packages carry, then chunk-insert the node, package, reference, and
// relationship rows. Format-specific decoders (sbom/spdx, sbom/cyclonedx)
// only need to produce a Document; they never touch the graph directly.
package sbom

import (
	"context"
	"time"

	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/graph"
	"github.com/sbomgraph/ingestor/purl"
)

// Package is one package node a decoder discovered in the document, keyed
// by the document's own identifier for that node (an SPDX SPDXID, a
// CycloneDX bom-ref, ...). A package with no identifiers at all still
// appears here: it becomes an sbom_node/sbom_package row so any
// relationship edge naming it stays referentially sound.
type Package struct {
	NodeID string
	Name   string
	Purls  []purl.Purl
	Cpes   []cpe.Cpe
}

// Edge is one relationship the document asserts between two node ids.
// The document's own root is just another node id (Document.RootNodeID),
// never a special case: that's what lets step 5 of the ingestion protocol
// insert every edge with a single chunked batch.
type Edge struct {
	Left         string
	Relationship graph.Relationship
	Right        string
}

// Document is the shape every format-specific decoder must produce.
type Document struct {
	// RootNodeID is the document's own identifier for its describing
	// element (the SPDX document's SPDXIdentifier, e.g. "DOCUMENT", a
	// CycloneDX metadata component's bom-ref, ...).
	RootNodeID string
	RootName   string
	DocumentID string
	Published  *time.Time
	Authors    []string
	Packages   []Package
	Edges      []Edge
}

// Ingest registers the SBOM (or returns the existing one for this
// (location, sha256)), flushes every distinct PURL/CPE through the bulk
// creators, then chunk-inserts sbom_node, sbom_package, the two *_ref
// tables, and finally the package_relates_to_package edges.
//
// Re-ingesting with the same (location, sha256) returns the existing sbom
// row, which IngestSbom finds by that pair; the bulk steps below still run
// again for it, since Ingest does not skip them for an existing SBOM.
func Ingest(ctx context.Context, g *graph.Graph, tx graph.Querier, location, sha256 string, doc Document) (graph.SbomContext, error) {
	doc.Packages = dedupeNodeIDs(doc.Packages)

	sc, err := g.IngestSbom(ctx, tx, location, sha256, graph.SbomInfo{
		NodeID:     doc.RootNodeID,
		Name:       doc.RootName,
		DocumentID: doc.DocumentID,
		Published:  doc.Published,
		Authors:    doc.Authors,
	})
	if err != nil {
		return graph.SbomContext{}, err
	}

	purls := graph.NewPurlCreator(g.ChunkSize())
	cpes := graph.NewCpeCreator(g.ChunkSize())
	for _, pkg := range doc.Packages {
		purls.Extend(pkg.Purls)
		cpes.Extend(pkg.Cpes)
	}
	if err := g.CreatePurls(ctx, tx, purls); err != nil {
		return graph.SbomContext{}, err
	}
	if err := g.CreateCpes(ctx, tx, cpes); err != nil {
		return graph.SbomContext{}, err
	}

	var distinctCpes []cpe.Cpe
	seenCpe := make(map[cpe.Cpe]bool)
	for _, pkg := range doc.Packages {
		for _, c := range pkg.Cpes {
			if !seenCpe[c] {
				seenCpe[c] = true
				distinctCpes = append(distinctCpes, c)
			}
		}
	}
	cpeIDs, err := g.GetCpeIDs(ctx, tx, distinctCpes)
	if err != nil {
		return graph.SbomContext{}, err
	}

	nodes := make([]graph.SbomNode, 0, len(doc.Packages))
	pkgRows := make([]graph.SbomPackage, 0, len(doc.Packages))
	var purlRefs []graph.SbomPackagePurlRef
	var cpeRefs []graph.SbomPackageCpeRef
	for _, pkg := range doc.Packages {
		nodes = append(nodes, graph.SbomNode{SbomID: sc.Sbom.ID, NodeID: pkg.NodeID, Name: pkg.Name})
		pkgRows = append(pkgRows, graph.SbomPackage{SbomID: sc.Sbom.ID, NodeID: pkg.NodeID})
		for _, p := range pkg.Purls {
			purlRefs = append(purlRefs, graph.SbomPackagePurlRef{
				SbomID: sc.Sbom.ID, NodeID: pkg.NodeID, QualifiedPackageID: p.QualifierUUID(),
			})
		}
		for _, c := range pkg.Cpes {
			id, ok := cpeIDs[c]
			if !ok {
				continue
			}
			cpeRefs = append(cpeRefs, graph.SbomPackageCpeRef{SbomID: sc.Sbom.ID, NodeID: pkg.NodeID, CpeID: id})
		}
	}

	if err := g.InsertSbomNodes(ctx, tx, nodes); err != nil {
		return graph.SbomContext{}, err
	}
	if err := g.InsertSbomPackages(ctx, tx, pkgRows); err != nil {
		return graph.SbomContext{}, err
	}
	if err := g.InsertSbomPackagePurlRefs(ctx, tx, purlRefs); err != nil {
		return graph.SbomContext{}, err
	}
	if err := g.InsertSbomPackageCpeRefs(ctx, tx, cpeRefs); err != nil {
		return graph.SbomContext{}, err
	}

	edges := make([]graph.PackageRelatesToPackage, 0, len(doc.Edges))
	for _, e := range doc.Edges {
		if !e.Relationship.Valid() {
			continue
		}
		edges = append(edges, graph.PackageRelatesToPackage{
			SbomID:       sc.Sbom.ID,
			LeftNodeID:   e.Left,
			Relationship: e.Relationship,
			RightNodeID:  e.Right,
		})
	}
	if err := g.InsertPackageRelatesToPackage(ctx, tx, edges); err != nil {
		return graph.SbomContext{}, err
	}

	return sc, nil
}

// dedupeNodeIDs guards Ingest against a document asserting the same node
// id twice (e.g. a malformed SPDX file
// repeating an SPDXID): the later occurrence wins, the same last-write-wins
// rule applied to duplicate vulnerability descriptions within one ingest.
func dedupeNodeIDs(pkgs []Package) []Package {
	idx := make(map[string]int, len(pkgs))
	out := make([]Package, 0, len(pkgs))
	for _, p := range pkgs {
		if i, ok := idx[p.NodeID]; ok {
			out[i] = p
			continue
		}
		idx[p.NodeID] = len(out)
		out = append(out, p)
	}
	return out
}

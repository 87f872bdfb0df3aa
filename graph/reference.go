package graph

import (
	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/purl"
)

type refKind int

const (
	refRoot refKind = iota
	refPurl
	refCpe
)

// RelationshipReference identifies one endpoint of an edge passed to
// IngestPackageRelatesToPackage: either the SBOM's own root node, or a
// package identified by PURL or CPE (which is resolved/created with the
// per-row Store.IngestPurl or Store.IngestCpe before the edge is
// persisted; the bulk creators are not used on this path).
type RelationshipReference struct {
	kind refKind
	purl purl.Purl
	cpe  cpe.Cpe
}

// RefRoot refers to the SBOM's own root node.
func RefRoot() RelationshipReference { return RelationshipReference{kind: refRoot} }

// RefPurl refers to the package node carrying this PURL.
func RefPurl(p purl.Purl) RelationshipReference { return RelationshipReference{kind: refPurl, purl: p} }

// RefCpe refers to the package node carrying this CPE.
func RefCpe(c cpe.Cpe) RelationshipReference { return RelationshipReference{kind: refCpe, cpe: c} }

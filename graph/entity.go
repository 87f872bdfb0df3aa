// Package graph implements the ingestion and query façade over the
// vulnerability knowledge graph: advisories, vulnerabilities, identifiers,
// and SBOM-derived package relationships.
package graph

import (
	"time"

	"github.com/google/uuid"

	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/cvss"
)

// Advisory is a single ingested document describing one or more
// vulnerabilities: a CVE Record, a CSAF document, or an OSV entry. Identity
// is the sha256 of the exact bytes consumed by the loader; Location is
// informational only.
type Advisory struct {
	ID       uuid.UUID
	Identifier string
	Location string
	Sha256   string
}

// Vulnerability is a named security issue, identified by its public
// identifier (a CVE ID, a GHSA ID, ...). Unlike most rows in this graph the
// id is the natural key, not a surrogate.
type Vulnerability struct {
	ID    string
	Title string
}

// Description is a single localized description of a Vulnerability.
// (VulnerabilityID, Lang) is unique.
type Description struct {
	VulnerabilityID string
	Lang            string
	Value           string
}

// Weakness is a CWE identifier, looked up but never created by the core.
type Weakness struct {
	ID string
}

// AdvisoryVulnerability links an Advisory to a Vulnerability it describes.
type AdvisoryVulnerability struct {
	AdvisoryID      uuid.UUID
	VulnerabilityID string
}

// Cvss3 is a CVSSv3 score recorded against one vulnerability, as reported
// by one advisory. Score is always the computed base/temporal score the
// vector implies, never a caller-supplied value.
type Cvss3 struct {
	AdvisoryID      uuid.UUID
	VulnerabilityID string
	MinorVersion    int
	AV, AC, PR, UI  string
	S, C, I, A      string
	Score           float64
}

// NewCvss3 builds a Cvss3 row from a parsed vector, computing Score.
func NewCvss3(advisoryID uuid.UUID, vulnID string, v cvss.V3) Cvss3 {
	return Cvss3{
		AdvisoryID:      advisoryID,
		VulnerabilityID: vulnID,
		MinorVersion:    v.MinorVersion(),
		AV:              v.AttackVector(),
		AC:              v.AttackComplexity(),
		PR:              v.PrivilegesRequired(),
		UI:              v.UserInteraction(),
		S:               v.Scope(),
		C:               v.Confidentiality(),
		I:               v.Integrity(),
		A:               v.Availability(),
		Score:           v.Score(),
	}
}

// Cpe is a row in the cpe table: the 7-tuple plus its surrogate, assigned
// on first insert.
type Cpe struct {
	ID int32
	cpe.Cpe
}

// BasePurl is a row in the base_purl table: a package-url identity with no
// version or qualifiers. Unique on (Type, Ns, Name).
type BasePurl struct {
	ID   uuid.UUID
	Type string
	Ns   string
	Name string
}

// VersionedPurl is a row in the versioned_purl table: a BasePurl plus a
// version. Unique on (BasePurlID, Version).
type VersionedPurl struct {
	ID         uuid.UUID
	BasePurlID uuid.UUID
	Version    string
}

// QualifiedPackage is a row in the qualified_package table: a
// VersionedPurl plus a qualifier set, identified by the content-addressed
// qualifier UUID (see purl.Purl.QualifierUUID).
type QualifiedPackage struct {
	ID              uuid.UUID
	VersionedPurlID uuid.UUID
	Qualifiers      map[string]string
}

// Sbom is a row in the sbom table: one ingested document. Unique on
// (Location, Sha256); NodeID is the document's own root identifier, reused
// as the right side of every "DescribedBy" edge.
type Sbom struct {
	ID          uuid.UUID
	NodeID      string
	DocumentID  string
	Location    string
	Sha256      string
	Published   *time.Time
	Authors     []string
}

// SbomNode is a row in the sbom_node table: one graph vertex belonging to
// one SBOM, either the document's own root or one described package.
type SbomNode struct {
	SbomID uuid.UUID
	NodeID string
	Name   string
}

// SbomPackage marks an SbomNode as describing a package (as opposed to a
// file or other non-package node type the document may carry).
type SbomPackage struct {
	SbomID uuid.UUID
	NodeID string
}

// SbomPackagePurlRef records one of the (possibly several) PURLs a
// described package carries.
type SbomPackagePurlRef struct {
	SbomID             uuid.UUID
	NodeID             string
	QualifiedPackageID uuid.UUID
}

// SbomPackageCpeRef records one of the (possibly several) CPEs a described
// package carries.
type SbomPackageCpeRef struct {
	SbomID uuid.UUID
	NodeID string
	CpeID  int32
}

// PackageRelatesToPackage is one edge in the graph: left NodeID
// Relationship right NodeID, scoped to one SBOM. PK is the full quadruple.
type PackageRelatesToPackage struct {
	SbomID       uuid.UUID
	LeftNodeID   string
	Relationship Relationship
	RightNodeID  string
}

package graph

import (
	"github.com/google/uuid"

	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/purl"
)

type locatorKind int

const (
	locatorID locatorKind = iota
	locatorLocation
	locatorSha256
	locatorPurl
	locatorCpe
)

// Locator is the tagged variant LocateSbom/LocateSboms accept: exactly one
// of an ID, a Location, a Sha256, a Purl, or a Cpe identifies the SBOM(s)
// of interest. An unknown PURL/CPE is not an error: it simply locates
// nothing.
type Locator struct {
	kind     locatorKind
	id       uuid.UUID
	location string
	sha256   string
	purl     purl.Purl
	cpe      cpe.Cpe
}

// ByID locates the SBOM with the given surrogate ID.
func ByID(id uuid.UUID) Locator { return Locator{kind: locatorID, id: id} }

// ByLocation locates the SBOM ingested from the given location.
func ByLocation(location string) Locator { return Locator{kind: locatorLocation, location: location} }

// BySha256 locates the SBOM with the given content hash.
func BySha256(sha256 string) Locator { return Locator{kind: locatorSha256, sha256: sha256} }

// ByPurl locates every SBOM that describes a package with this PURL.
func ByPurl(p purl.Purl) Locator { return Locator{kind: locatorPurl, purl: p} }

// ByCpe locates every SBOM that describes a package with this CPE.
func ByCpe(c cpe.Cpe) Locator { return Locator{kind: locatorCpe, cpe: c} }

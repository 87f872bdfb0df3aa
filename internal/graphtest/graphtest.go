// Package graphtest provides an in-memory graph.Store for exercising the
// sbom and advisory packages without a running Postgres. It mirrors the
// fakeStore used by graph's own test suite; it lives in a non-test file
// so every package under this module can share one implementation
// instead of redefining it per test file.
package graphtest

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/graph"
	"github.com/sbomgraph/ingestor/purl"
)

// Store is an in-memory graph.Store.
type Store struct {
	vulns           map[string]graph.Vulnerability
	descriptions    map[string]graph.Description
	advisoriesBySha map[string]graph.Advisory
	advisoryLinks   map[[2]string]graph.AdvisoryVulnerability
	Cvss3Rows       []graph.Cvss3
	cpes            map[cpe.Cpe]int32
	nextCpeID       int32
	basePurls       map[string]graph.BasePurl
	versionedPurls  map[string]graph.VersionedPurl
	qualifiedPkgs   map[uuid.UUID]graph.QualifiedPackage
	sboms           map[uuid.UUID]graph.Sbom
	sbomsByLoc      map[[2]string]uuid.UUID
	Nodes           []graph.SbomNode
	Packages        []graph.SbomPackage
	PurlRefs        []graph.SbomPackagePurlRef
	CpeRefs         []graph.SbomPackageCpeRef
	Edges           []graph.PackageRelatesToPackage
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		vulns:           make(map[string]graph.Vulnerability),
		descriptions:    make(map[string]graph.Description),
		advisoriesBySha: make(map[string]graph.Advisory),
		advisoryLinks:   make(map[[2]string]graph.AdvisoryVulnerability),
		cpes:            make(map[cpe.Cpe]int32),
		basePurls:       make(map[string]graph.BasePurl),
		versionedPurls:  make(map[string]graph.VersionedPurl),
		qualifiedPkgs:   make(map[uuid.UUID]graph.QualifiedPackage),
		sboms:           make(map[uuid.UUID]graph.Sbom),
		sbomsByLoc:      make(map[[2]string]uuid.UUID),
	}
}

func (f *Store) Pool() graph.Querier                      { return nil }
func (f *Store) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }

func (f *Store) GetVulnerability(ctx context.Context, tx graph.Querier, id string) (graph.Vulnerability, bool, error) {
	v, ok := f.vulns[id]
	return v, ok, nil
}

func (f *Store) IngestVulnerability(ctx context.Context, tx graph.Querier, id string) (graph.Vulnerability, error) {
	if v, ok := f.vulns[id]; ok {
		return v, nil
	}
	v := graph.Vulnerability{ID: id}
	f.vulns[id] = v
	return v, nil
}

func (f *Store) SetVulnerabilityTitle(ctx context.Context, tx graph.Querier, id, title string) error {
	v := f.vulns[id]
	v.ID = id
	v.Title = title
	f.vulns[id] = v
	return nil
}

func (f *Store) UpsertDescription(ctx context.Context, tx graph.Querier, d graph.Description) error {
	f.descriptions[d.VulnerabilityID+"\x00"+d.Lang] = d
	return nil
}

func (f *Store) GetAdvisory(ctx context.Context, tx graph.Querier, sha256 string) (graph.Advisory, bool, error) {
	a, ok := f.advisoriesBySha[sha256]
	return a, ok, nil
}

func (f *Store) IngestAdvisory(ctx context.Context, tx graph.Querier, identifier, location, sha256 string) (graph.Advisory, error) {
	if a, ok := f.advisoriesBySha[sha256]; ok {
		return a, nil
	}
	a := graph.Advisory{ID: uuid.New(), Identifier: identifier, Location: location, Sha256: sha256}
	f.advisoriesBySha[sha256] = a
	return a, nil
}

func (f *Store) LinkAdvisoryVulnerability(ctx context.Context, tx graph.Querier, link graph.AdvisoryVulnerability) error {
	f.advisoryLinks[[2]string{link.AdvisoryID.String(), link.VulnerabilityID}] = link
	return nil
}

func (f *Store) IngestCvss3(ctx context.Context, tx graph.Querier, row graph.Cvss3) error {
	f.Cvss3Rows = append(f.Cvss3Rows, row)
	return nil
}

func (f *Store) IngestCpe(ctx context.Context, tx graph.Querier, c cpe.Cpe) (int32, error) {
	if id, ok := f.cpes[c]; ok {
		return id, nil
	}
	f.nextCpeID++
	f.cpes[c] = f.nextCpeID
	return f.nextCpeID, nil
}

func (f *Store) GetCpeID(ctx context.Context, tx graph.Querier, c cpe.Cpe) (int32, bool, error) {
	id, ok := f.cpes[c]
	return id, ok, nil
}

func (f *Store) GetCpeIDs(ctx context.Context, tx graph.Querier, rows []cpe.Cpe) (map[cpe.Cpe]int32, error) {
	out := make(map[cpe.Cpe]int32, len(rows))
	for _, c := range rows {
		if id, ok := f.cpes[c]; ok {
			out[c] = id
		}
	}
	return out, nil
}

func (f *Store) IngestPurl(ctx context.Context, tx graph.Querier, p purl.Purl) (uuid.UUID, error) {
	id := p.QualifierUUID()
	if _, ok := f.qualifiedPkgs[id]; ok {
		return id, nil
	}
	baseKey := p.BaseString()
	base, ok := f.basePurls[baseKey]
	if !ok {
		base = graph.BasePurl{ID: uuid.New(), Type: p.Type, Ns: p.Namespace, Name: p.Name}
		f.basePurls[baseKey] = base
	}
	verKey := p.VersionedString()
	ver, ok := f.versionedPurls[verKey]
	if !ok {
		ver = graph.VersionedPurl{ID: uuid.New(), BasePurlID: base.ID, Version: p.Version}
		f.versionedPurls[verKey] = ver
	}
	f.qualifiedPkgs[id] = graph.QualifiedPackage{ID: id, VersionedPurlID: ver.ID, Qualifiers: p.Qualifiers}
	return id, nil
}

func (f *Store) InsertBasePurls(ctx context.Context, tx graph.Querier, rows []graph.BasePurl) error {
	for _, r := range rows {
		key := r.Type + "/" + r.Ns + "/" + r.Name
		if _, ok := f.basePurls[key]; !ok {
			f.basePurls[key] = r
		}
	}
	return nil
}

func (f *Store) InsertVersionedPurls(ctx context.Context, tx graph.Querier, rows []graph.VersionedPurl) error {
	for _, r := range rows {
		key := r.BasePurlID.String() + "@" + r.Version
		if _, ok := f.versionedPurls[key]; !ok {
			f.versionedPurls[key] = r
		}
	}
	return nil
}

func (f *Store) InsertQualifiedPackages(ctx context.Context, tx graph.Querier, rows []graph.QualifiedPackage) error {
	for _, r := range rows {
		if _, ok := f.qualifiedPkgs[r.ID]; !ok {
			f.qualifiedPkgs[r.ID] = r
		}
	}
	return nil
}

func (f *Store) InsertCpes(ctx context.Context, tx graph.Querier, rows []graph.Cpe) error {
	for _, r := range rows {
		if _, ok := f.cpes[r.Cpe]; !ok {
			f.nextCpeID++
			f.cpes[r.Cpe] = f.nextCpeID
		}
	}
	return nil
}

func (f *Store) GetSbomByLocation(ctx context.Context, tx graph.Querier, location, sha256 string) (graph.Sbom, bool, error) {
	id, ok := f.sbomsByLoc[[2]string{location, sha256}]
	if !ok {
		return graph.Sbom{}, false, nil
	}
	return f.sboms[id], true, nil
}

func (f *Store) GetSbomByLocationOnly(ctx context.Context, tx graph.Querier, location string) (graph.Sbom, bool, error) {
	for _, s := range f.sboms {
		if s.Location == location {
			return s, true, nil
		}
	}
	return graph.Sbom{}, false, nil
}

func (f *Store) GetSbomByID(ctx context.Context, tx graph.Querier, id uuid.UUID) (graph.Sbom, bool, error) {
	s, ok := f.sboms[id]
	return s, ok, nil
}

func (f *Store) GetSbomBySha256(ctx context.Context, tx graph.Querier, sha256 string) (graph.Sbom, bool, error) {
	for _, s := range f.sboms {
		if s.Sha256 == sha256 {
			return s, true, nil
		}
	}
	return graph.Sbom{}, false, nil
}

func (f *Store) IngestSbom(ctx context.Context, tx graph.Querier, s graph.Sbom) (graph.Sbom, error) {
	f.sboms[s.ID] = s
	f.sbomsByLoc[[2]string{s.Location, s.Sha256}] = s.ID
	return s, nil
}

func (f *Store) LocateSbomsByPurl(ctx context.Context, tx graph.Querier, qualifiedPackageID uuid.UUID) ([]graph.Sbom, error) {
	var out []graph.Sbom
	seen := make(map[uuid.UUID]bool)
	for _, ref := range f.PurlRefs {
		if ref.QualifiedPackageID != qualifiedPackageID || seen[ref.SbomID] {
			continue
		}
		seen[ref.SbomID] = true
		out = append(out, f.sboms[ref.SbomID])
	}
	return out, nil
}

func (f *Store) LocateSbomsByCpe(ctx context.Context, tx graph.Querier, cpeID int32) ([]graph.Sbom, error) {
	var out []graph.Sbom
	seen := make(map[uuid.UUID]bool)
	for _, ref := range f.CpeRefs {
		if ref.CpeID != cpeID || seen[ref.SbomID] {
			continue
		}
		seen[ref.SbomID] = true
		out = append(out, f.sboms[ref.SbomID])
	}
	return out, nil
}

func (f *Store) InsertSbomNodes(ctx context.Context, tx graph.Querier, rows []graph.SbomNode) error {
	f.Nodes = append(f.Nodes, rows...)
	return nil
}

func (f *Store) InsertSbomPackages(ctx context.Context, tx graph.Querier, rows []graph.SbomPackage) error {
	f.Packages = append(f.Packages, rows...)
	return nil
}

func (f *Store) InsertSbomPackagePurlRefs(ctx context.Context, tx graph.Querier, rows []graph.SbomPackagePurlRef) error {
	f.PurlRefs = append(f.PurlRefs, rows...)
	return nil
}

func (f *Store) InsertSbomPackageCpeRefs(ctx context.Context, tx graph.Querier, rows []graph.SbomPackageCpeRef) error {
	f.CpeRefs = append(f.CpeRefs, rows...)
	return nil
}

func (f *Store) InsertPackageRelatesToPackage(ctx context.Context, tx graph.Querier, rows []graph.PackageRelatesToPackage) error {
	f.Edges = append(f.Edges, rows...)
	return nil
}

// RelatedPackagesTransitively performs the same breadth-first walk the
// real plpgsql function does, restricted to this in-memory edge list.
func (f *Store) RelatedPackagesTransitively(ctx context.Context, tx graph.Querier, sbomID, root uuid.UUID, rels []graph.Relationship) ([]uuid.UUID, error) {
	allowed := make(map[graph.Relationship]bool, len(rels))
	for _, r := range rels {
		allowed[r] = true
	}
	rootNode := f.nodeForQualifiedPackage(sbomID, root)
	visited := map[string]bool{rootNode: true}
	queue := []string{rootNode}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range f.Edges {
			if e.SbomID != sbomID || e.RightNodeID != n || !allowed[e.Relationship] || visited[e.LeftNodeID] {
				continue
			}
			visited[e.LeftNodeID] = true
			queue = append(queue, e.LeftNodeID)
		}
	}
	var out []uuid.UUID
	for _, ref := range f.PurlRefs {
		if ref.SbomID == sbomID && visited[ref.NodeID] {
			out = append(out, ref.QualifiedPackageID)
		}
	}
	return out, nil
}

func (f *Store) nodeForQualifiedPackage(sbomID, qpID uuid.UUID) string {
	for _, ref := range f.PurlRefs {
		if ref.SbomID == sbomID && ref.QualifiedPackageID == qpID {
			return ref.NodeID
		}
	}
	return ""
}

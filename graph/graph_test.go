package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/cvss"
	"github.com/sbomgraph/ingestor/purl"
)

// fakeStore is an in-memory Store used to exercise Graph's idempotency and
// locator contracts without a running Postgres. It is not a fake pgx
// connection: tx is accepted and ignored throughout, since the fake has no
// notion of transaction isolation.
type fakeStore struct {
	vulns        map[string]Vulnerability
	descriptions map[string]Description
	advisoriesBySha map[string]Advisory
	advisoryLinks map[[2]string]AdvisoryVulnerability
	cvss3         []Cvss3
	cpes          map[cpe.Cpe]int32
	nextCpeID     int32
	basePurls     map[string]BasePurl
	versionedPurls map[string]VersionedPurl
	qualifiedPkgs  map[uuid.UUID]QualifiedPackage
	sboms          map[uuid.UUID]Sbom
	sbomsByLoc     map[[2]string]uuid.UUID
	purlRefs       []SbomPackagePurlRef
	cpeRefs        []SbomPackageCpeRef
	edges          []PackageRelatesToPackage
	nodes          map[[2]string]SbomNode
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		vulns:           make(map[string]Vulnerability),
		descriptions:    make(map[string]Description),
		advisoriesBySha: make(map[string]Advisory),
		advisoryLinks:   make(map[[2]string]AdvisoryVulnerability),
		cpes:            make(map[cpe.Cpe]int32),
		basePurls:       make(map[string]BasePurl),
		versionedPurls:  make(map[string]VersionedPurl),
		qualifiedPkgs:   make(map[uuid.UUID]QualifiedPackage),
		sboms:           make(map[uuid.UUID]Sbom),
		sbomsByLoc:      make(map[[2]string]uuid.UUID),
		nodes:           make(map[[2]string]SbomNode),
	}
}

func (f *fakeStore) Pool() Querier                           { return nil }
func (f *fakeStore) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }

func (f *fakeStore) GetVulnerability(ctx context.Context, tx Querier, id string) (Vulnerability, bool, error) {
	v, ok := f.vulns[id]
	return v, ok, nil
}

func (f *fakeStore) IngestVulnerability(ctx context.Context, tx Querier, id string) (Vulnerability, error) {
	if v, ok := f.vulns[id]; ok {
		return v, nil
	}
	v := Vulnerability{ID: id}
	f.vulns[id] = v
	return v, nil
}

func (f *fakeStore) SetVulnerabilityTitle(ctx context.Context, tx Querier, id, title string) error {
	v := f.vulns[id]
	v.Title = title
	f.vulns[id] = v
	return nil
}

func (f *fakeStore) UpsertDescription(ctx context.Context, tx Querier, d Description) error {
	f.descriptions[d.VulnerabilityID+"\x00"+d.Lang] = d
	return nil
}

func (f *fakeStore) GetAdvisory(ctx context.Context, tx Querier, sha256 string) (Advisory, bool, error) {
	a, ok := f.advisoriesBySha[sha256]
	return a, ok, nil
}

func (f *fakeStore) IngestAdvisory(ctx context.Context, tx Querier, identifier, location, sha256 string) (Advisory, error) {
	if a, ok := f.advisoriesBySha[sha256]; ok {
		return a, nil
	}
	a := Advisory{ID: uuid.New(), Identifier: identifier, Location: location, Sha256: sha256}
	f.advisoriesBySha[sha256] = a
	return a, nil
}

func (f *fakeStore) LinkAdvisoryVulnerability(ctx context.Context, tx Querier, link AdvisoryVulnerability) error {
	f.advisoryLinks[[2]string{link.AdvisoryID.String(), link.VulnerabilityID}] = link
	return nil
}

func (f *fakeStore) IngestCvss3(ctx context.Context, tx Querier, row Cvss3) error {
	f.cvss3 = append(f.cvss3, row)
	return nil
}

func (f *fakeStore) IngestCpe(ctx context.Context, tx Querier, c cpe.Cpe) (int32, error) {
	if id, ok := f.cpes[c]; ok {
		return id, nil
	}
	f.nextCpeID++
	f.cpes[c] = f.nextCpeID
	return f.nextCpeID, nil
}

func (f *fakeStore) GetCpeID(ctx context.Context, tx Querier, c cpe.Cpe) (int32, bool, error) {
	id, ok := f.cpes[c]
	return id, ok, nil
}

func (f *fakeStore) GetCpeIDs(ctx context.Context, tx Querier, rows []cpe.Cpe) (map[cpe.Cpe]int32, error) {
	out := make(map[cpe.Cpe]int32, len(rows))
	for _, c := range rows {
		if id, ok := f.cpes[c]; ok {
			out[c] = id
		}
	}
	return out, nil
}

func (f *fakeStore) IngestPurl(ctx context.Context, tx Querier, p purl.Purl) (uuid.UUID, error) {
	id := p.QualifierUUID()
	if _, ok := f.qualifiedPkgs[id]; ok {
		return id, nil
	}
	base := f.upsertBase(p)
	ver := f.upsertVersion(base, p)
	f.qualifiedPkgs[id] = QualifiedPackage{ID: id, VersionedPurlID: ver, Qualifiers: p.Qualifiers}
	return id, nil
}

func (f *fakeStore) upsertBase(p purl.Purl) uuid.UUID {
	key := p.BaseString()
	if b, ok := f.basePurls[key]; ok {
		return b.ID
	}
	id := uuid.New()
	f.basePurls[key] = BasePurl{ID: id, Type: p.Type, Ns: p.Namespace, Name: p.Name}
	return id
}

func (f *fakeStore) upsertVersion(base uuid.UUID, p purl.Purl) uuid.UUID {
	key := p.VersionedString()
	if v, ok := f.versionedPurls[key]; ok {
		return v.ID
	}
	id := uuid.New()
	f.versionedPurls[key] = VersionedPurl{ID: id, BasePurlID: base, Version: p.Version}
	return id
}

func (f *fakeStore) InsertBasePurls(ctx context.Context, tx Querier, rows []BasePurl) error {
	for _, r := range rows {
		key := r.Type + "/" + r.Ns + "/" + r.Name
		if _, ok := f.basePurls[key]; !ok {
			f.basePurls[key] = r
		}
	}
	return nil
}

func (f *fakeStore) InsertVersionedPurls(ctx context.Context, tx Querier, rows []VersionedPurl) error {
	for _, r := range rows {
		key := r.BasePurlID.String() + "@" + r.Version
		if _, ok := f.versionedPurls[key]; !ok {
			f.versionedPurls[key] = r
		}
	}
	return nil
}

func (f *fakeStore) InsertQualifiedPackages(ctx context.Context, tx Querier, rows []QualifiedPackage) error {
	for _, r := range rows {
		if _, ok := f.qualifiedPkgs[r.ID]; !ok {
			f.qualifiedPkgs[r.ID] = r
		}
	}
	return nil
}

func (f *fakeStore) InsertCpes(ctx context.Context, tx Querier, rows []Cpe) error {
	for _, r := range rows {
		if _, ok := f.cpes[r.Cpe]; !ok {
			f.nextCpeID++
			f.cpes[r.Cpe] = f.nextCpeID
		}
	}
	return nil
}

func (f *fakeStore) GetSbomByLocation(ctx context.Context, tx Querier, location, sha256 string) (Sbom, bool, error) {
	id, ok := f.sbomsByLoc[[2]string{location, sha256}]
	if !ok {
		return Sbom{}, false, nil
	}
	return f.sboms[id], true, nil
}

func (f *fakeStore) GetSbomByLocationOnly(ctx context.Context, tx Querier, location string) (Sbom, bool, error) {
	for _, s := range f.sboms {
		if s.Location == location {
			return s, true, nil
		}
	}
	return Sbom{}, false, nil
}

func (f *fakeStore) GetSbomByID(ctx context.Context, tx Querier, id uuid.UUID) (Sbom, bool, error) {
	s, ok := f.sboms[id]
	return s, ok, nil
}

func (f *fakeStore) GetSbomBySha256(ctx context.Context, tx Querier, sha256 string) (Sbom, bool, error) {
	for _, s := range f.sboms {
		if s.Sha256 == sha256 {
			return s, true, nil
		}
	}
	return Sbom{}, false, nil
}

func (f *fakeStore) IngestSbom(ctx context.Context, tx Querier, s Sbom) (Sbom, error) {
	f.sboms[s.ID] = s
	f.sbomsByLoc[[2]string{s.Location, s.Sha256}] = s.ID
	return s, nil
}

func (f *fakeStore) LocateSbomsByPurl(ctx context.Context, tx Querier, qualifiedPackageID uuid.UUID) ([]Sbom, error) {
	var out []Sbom
	seen := make(map[uuid.UUID]bool)
	for _, ref := range f.purlRefs {
		if ref.QualifiedPackageID != qualifiedPackageID {
			continue
		}
		if seen[ref.SbomID] {
			continue
		}
		seen[ref.SbomID] = true
		out = append(out, f.sboms[ref.SbomID])
	}
	return out, nil
}

func (f *fakeStore) LocateSbomsByCpe(ctx context.Context, tx Querier, cpeID int32) ([]Sbom, error) {
	var out []Sbom
	seen := make(map[uuid.UUID]bool)
	for _, ref := range f.cpeRefs {
		if ref.CpeID != cpeID {
			continue
		}
		if seen[ref.SbomID] {
			continue
		}
		seen[ref.SbomID] = true
		out = append(out, f.sboms[ref.SbomID])
	}
	return out, nil
}

func (f *fakeStore) InsertSbomNodes(ctx context.Context, tx Querier, rows []SbomNode) error {
	for _, r := range rows {
		f.nodes[[2]string{r.SbomID.String(), r.NodeID}] = r
	}
	return nil
}

func (f *fakeStore) InsertSbomPackages(ctx context.Context, tx Querier, rows []SbomPackage) error {
	return nil
}

func (f *fakeStore) InsertSbomPackagePurlRefs(ctx context.Context, tx Querier, rows []SbomPackagePurlRef) error {
	f.purlRefs = append(f.purlRefs, rows...)
	return nil
}

func (f *fakeStore) InsertSbomPackageCpeRefs(ctx context.Context, tx Querier, rows []SbomPackageCpeRef) error {
	f.cpeRefs = append(f.cpeRefs, rows...)
	return nil
}

func (f *fakeStore) InsertPackageRelatesToPackage(ctx context.Context, tx Querier, rows []PackageRelatesToPackage) error {
	f.edges = append(f.edges, rows...)
	return nil
}

// RelatedPackagesTransitively performs the same breadth-first, visited-set
// walk the real function does in plpgsql, restricted to this in-memory
// edge list, so the algorithm's correctness (including cycle termination)
// is tested without a database.
func (f *fakeStore) RelatedPackagesTransitively(ctx context.Context, tx Querier, sbomID uuid.UUID, root uuid.UUID, rels []Relationship) ([]uuid.UUID, error) {
	allowed := make(map[Relationship]bool, len(rels))
	for _, r := range rels {
		allowed[r] = true
	}
	rootNode := f.nodeForQualifiedPackage(sbomID, root)
	visited := map[string]bool{rootNode: true}
	queue := []string{rootNode}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range f.edges {
			if e.SbomID != sbomID || e.RightNodeID != n || !allowed[e.Relationship] {
				continue
			}
			if visited[e.LeftNodeID] {
				continue
			}
			visited[e.LeftNodeID] = true
			queue = append(queue, e.LeftNodeID)
		}
	}
	var out []uuid.UUID
	for _, ref := range f.purlRefs {
		if ref.SbomID == sbomID && visited[ref.NodeID] {
			out = append(out, ref.QualifiedPackageID)
		}
	}
	return out, nil
}

func (f *fakeStore) nodeForQualifiedPackage(sbomID, qpID uuid.UUID) string {
	for _, ref := range f.purlRefs {
		if ref.SbomID == sbomID && ref.QualifiedPackageID == qpID {
			return ref.NodeID
		}
	}
	return ""
}

func TestIngestVulnerabilityIdempotent(t *testing.T) {
	g := New(newFakeStore())
	ctx := context.Background()
	a, err := g.IngestVulnerability(ctx, g.Pool(), "CVE-2024-28111")
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.IngestVulnerability(ctx, g.Pool(), "CVE-2024-28111")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("ingest not idempotent: %+v != %+v", a, b)
	}
}

func TestIngestAdvisoryKeysOnSha256(t *testing.T) {
	g := New(newFakeStore())
	ctx := context.Background()
	a, err := g.IngestAdvisory(ctx, g.Pool(), "CVE-2024-28111", "/a/loc.json", "deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.IngestAdvisory(ctx, g.Pool(), "CVE-2024-28111", "/different/loc.json", "deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Fatal("same sha256 from a different location must alias to the same advisory")
	}
}

func TestLocatorConsistency(t *testing.T) {
	g := New(newFakeStore())
	ctx := context.Background()
	sc, err := g.IngestSbom(ctx, g.Pool(), "/sboms/x.json", "abc123", SbomInfo{NodeID: "SPDXRef-DOCUMENT"})
	if err != nil {
		t.Fatal(err)
	}

	byID, ok, err := g.LocateSbom(ctx, g.Pool(), ByID(sc.Sbom.ID))
	if err != nil || !ok {
		t.Fatalf("LocateSbom(ByID): ok=%v err=%v", ok, err)
	}
	byLoc, ok, err := g.LocateSbom(ctx, g.Pool(), ByLocation("/sboms/x.json"))
	if err != nil || !ok {
		t.Fatalf("LocateSbom(ByLocation): ok=%v err=%v", ok, err)
	}
	bySha, ok, err := g.LocateSbom(ctx, g.Pool(), BySha256("abc123"))
	if err != nil || !ok {
		t.Fatalf("LocateSbom(BySha256): ok=%v err=%v", ok, err)
	}
	if byID.Sbom.ID != byLoc.Sbom.ID || byLoc.Sbom.ID != bySha.Sbom.ID {
		t.Fatal("locators disagree on identity")
	}
}

func TestRelatedPackagesTransitivelyTerminatesOnCycle(t *testing.T) {
	store := newFakeStore()
	g := New(store)
	ctx := context.Background()

	sc, err := g.IngestSbom(ctx, g.Pool(), "/sboms/cycle.json", "shaX", SbomInfo{NodeID: "root"})
	if err != nil {
		t.Fatal(err)
	}

	pa, _ := purl.Parse("pkg:generic/a@1")
	pb, _ := purl.Parse("pkg:generic/b@1")
	idA, err := g.IngestPurl(ctx, g.Pool(), pa)
	if err != nil {
		t.Fatal(err)
	}
	idB, err := g.IngestPurl(ctx, g.Pool(), pb)
	if err != nil {
		t.Fatal(err)
	}
	store.purlRefs = append(store.purlRefs,
		SbomPackagePurlRef{SbomID: sc.Sbom.ID, NodeID: "a", QualifiedPackageID: idA},
		SbomPackagePurlRef{SbomID: sc.Sbom.ID, NodeID: "b", QualifiedPackageID: idB},
	)
	// A DependencyOf B and B DependencyOf A: a two-node cycle.
	if err := store.InsertPackageRelatesToPackage(ctx, g.Pool(), []PackageRelatesToPackage{
		{SbomID: sc.Sbom.ID, LeftNodeID: "a", Relationship: DependencyOf, RightNodeID: "b"},
		{SbomID: sc.Sbom.ID, LeftNodeID: "b", Relationship: DependencyOf, RightNodeID: "a"},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := sc.RelatedPackagesTransitively(ctx, g.Pool(), idA, []Relationship{DependencyOf})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("want both packages in the cycle reached exactly once, got %v", got)
	}
}

func TestCvssScoreStoredOnIngest(t *testing.T) {
	store := newFakeStore()
	g := New(store)
	ctx := context.Background()
	v, err := cvss.ParseV3("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H")
	if err != nil {
		t.Fatal(err)
	}
	adv, err := g.IngestAdvisory(ctx, g.Pool(), "CVE-0000-0000", "/loc", "sha")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.IngestVulnerability(ctx, g.Pool(), "CVE-0000-0000"); err != nil {
		t.Fatal(err)
	}
	if err := g.IngestCvss3(ctx, g.Pool(), adv.ID, "CVE-0000-0000", v); err != nil {
		t.Fatal(err)
	}
	if len(store.cvss3) != 1 {
		t.Fatalf("want 1 stored cvss3 row, got %d", len(store.cvss3))
	}
	row := store.cvss3[0]
	if got, want := row.Score, 9.8; got != want {
		t.Fatalf("Score = %v, want %v", got, want)
	}
}

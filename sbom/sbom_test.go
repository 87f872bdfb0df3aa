package sbom

import (
	"context"
	"testing"

	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/graph"
	"github.com/sbomgraph/ingestor/internal/graphtest"
	"github.com/sbomgraph/ingestor/purl"
)

func mustPurl(t *testing.T, s string) purl.Purl {
	t.Helper()
	p, err := purl.Parse(s)
	if err != nil {
		t.Fatalf("purl.Parse(%q): %v", s, err)
	}
	return p
}

func mustCpe(t *testing.T, s string) cpe.Cpe {
	t.Helper()
	c, err := cpe.Parse(s)
	if err != nil {
		t.Fatalf("cpe.Parse(%q): %v", s, err)
	}
	return c
}

func TestIngestBuildsNodesRefsAndEdges(t *testing.T) {
	store := graphtest.New()
	g := graph.New(store)
	ctx := context.Background()

	doc := Document{
		RootNodeID: "SPDXRef-DOCUMENT",
		RootName:   "example-image",
		DocumentID: "https://example.com/sboms/example-image",
		Packages: []Package{
			{NodeID: "SPDXRef-DOCUMENT", Name: "example-image"},
			{
				NodeID: "SPDXRef-openssl",
				Name:   "openssl",
				Purls:  []purl.Purl{mustPurl(t, "pkg:rpm/fedora/openssl@3.1.1-1.fc38")},
				Cpes:   []cpe.Cpe{mustCpe(t, "cpe:2.3:a:openssl:openssl:3.1.1:*:*:*:*:*:*:*")},
			},
		},
		Edges: []Edge{
			{Left: "SPDXRef-openssl", Relationship: graph.DependencyOf, Right: "SPDXRef-DOCUMENT"},
		},
	}

	sc, err := Ingest(ctx, g, g.Pool(), "/sboms/example-image.spdx.json", "deadbeef", doc)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if sc.Sbom.Location != "/sboms/example-image.spdx.json" {
		t.Fatalf("unexpected sbom row: %+v", sc.Sbom)
	}
	if len(store.Nodes) != 2 || len(store.Packages) != 2 {
		t.Fatalf("want 2 nodes and 2 packages, got %d and %d", len(store.Nodes), len(store.Packages))
	}
	if len(store.PurlRefs) != 1 || len(store.CpeRefs) != 1 {
		t.Fatalf("want 1 purl ref and 1 cpe ref, got %d and %d", len(store.PurlRefs), len(store.CpeRefs))
	}
	if len(store.Edges) != 1 || store.Edges[0].LeftNodeID != "SPDXRef-openssl" || store.Edges[0].RightNodeID != "SPDXRef-DOCUMENT" {
		t.Fatalf("unexpected edges: %+v", store.Edges)
	}

	again, err := Ingest(ctx, g, g.Pool(), "/sboms/example-image.spdx.json", "deadbeef", doc)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if again.Sbom.ID != sc.Sbom.ID {
		t.Fatal("re-ingesting the same (location, sha256) must alias to the same sbom row")
	}
}

func TestIngestSkipsInvalidRelationship(t *testing.T) {
	store := graphtest.New()
	g := graph.New(store)
	ctx := context.Background()
	doc := Document{
		RootNodeID: "root",
		RootName:   "root",
		Packages: []Package{
			{NodeID: "root", Name: "root"},
			{NodeID: "a", Name: "a"},
		},
		Edges: []Edge{
			{Left: "a", Relationship: graph.Relationship(99), Right: "root"},
		},
	}
	if _, err := Ingest(ctx, g, g.Pool(), "/sboms/bad.json", "sha", doc); err != nil {
		t.Fatalf("Ingest should tolerate and drop an invalid relationship, got: %v", err)
	}
	if len(store.Edges) != 0 {
		t.Fatalf("want the invalid relationship dropped, got %+v", store.Edges)
	}
}

func TestDedupeNodeIDsKeepsLastOccurrence(t *testing.T) {
	in := []Package{
		{NodeID: "a", Name: "first"},
		{NodeID: "b", Name: "b"},
		{NodeID: "a", Name: "second"},
	}
	got := dedupeNodeIDs(in)
	if len(got) != 2 {
		t.Fatalf("want 2 deduplicated packages, got %d", len(got))
	}
	for _, p := range got {
		if p.NodeID == "a" && p.Name != "second" {
			t.Fatalf("want last occurrence to win, got %+v", p)
		}
	}
}

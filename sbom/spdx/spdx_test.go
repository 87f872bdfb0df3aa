package spdx

import (
	"context"
	"testing"

	"github.com/spdx/tools-golang/spdx/common"
	"github.com/spdx/tools-golang/spdx/v2/v2_3"

	"github.com/sbomgraph/ingestor/graph"
)

func TestToDocumentMapsPackagesAndRelationships(t *testing.T) {
	doc := &v2_3.Document{
		SPDXIdentifier:    "DOCUMENT",
		DocumentName:      "example-image",
		DocumentNamespace: "https://example.com/spdx/example-image",
		Packages: []*v2_3.Package{
			{
				PackageSPDXIdentifier: "openssl",
				PackageName:           "openssl",
				PackageExternalReferences: []*v2_3.PackageExternalReference{
					{RefType: "purl", Locator: "pkg:rpm/fedora/openssl@3.1.1-1.fc38"},
				},
			},
		},
		Relationships: []*v2_3.Relationship{
			{
				RefA:         common.DocElementID{ElementRefID: "openssl"},
				RefB:         common.DocElementID{ElementRefID: "DOCUMENT"},
				Relationship: "DEPENDS_ON",
			},
		},
	}

	got := toDocument(context.Background(), doc)
	if got.RootNodeID != "DOCUMENT" || got.RootName != "example-image" {
		t.Fatalf("unexpected root: %+v", got)
	}
	if len(got.Packages) != 2 {
		t.Fatalf("want root + 1 package, got %d", len(got.Packages))
	}
	found := false
	for _, p := range got.Packages {
		if p.NodeID == "openssl" {
			found = true
			if len(p.Purls) != 1 {
				t.Fatalf("want 1 purl on openssl package, got %d", len(p.Purls))
			}
		}
	}
	if !found {
		t.Fatal("openssl package missing from decoded document")
	}
	if len(got.Edges) != 1 || got.Edges[0].Relationship != graph.DependencyOf {
		t.Fatalf("unexpected edges: %+v", got.Edges)
	}
}

func TestToDocumentDropsCrossDocumentRelationships(t *testing.T) {
	doc := &v2_3.Document{
		SPDXIdentifier: "DOCUMENT",
		Relationships: []*v2_3.Relationship{
			{
				RefA:         common.DocElementID{DocumentRefID: "DocumentRef-other", ElementRefID: "x"},
				RefB:         common.DocElementID{ElementRefID: "DOCUMENT"},
				Relationship: "DEPENDS_ON",
			},
		},
	}
	got := toDocument(context.Background(), doc)
	if len(got.Edges) != 0 {
		t.Fatalf("cross-document relationship should be dropped, got %+v", got.Edges)
	}
}

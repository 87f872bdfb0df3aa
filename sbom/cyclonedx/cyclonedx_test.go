package cyclonedx

import (
	"context"
	"testing"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/sbomgraph/ingestor/graph"
)

func TestToDocumentFlattensComponentsAndDependencies(t *testing.T) {
	root := cdx.Component{BOMRef: "app", Name: "example-app"}
	leaf := cdx.Component{BOMRef: "pkg:pypi/requests@2.31.0", Name: "requests", Version: "2.31.0", PackageURL: "pkg:pypi/requests@2.31.0"}
	components := []cdx.Component{leaf}
	deps := []cdx.Dependency{
		{Ref: "app", Dependencies: &[]string{leaf.BOMRef}},
	}
	bom := &cdx.BOM{
		SerialNumber: "urn:uuid:11111111-1111-1111-1111-111111111111",
		Metadata:     &cdx.Metadata{Component: &root},
		Components:   &components,
		Dependencies: &deps,
	}

	got := toDocument(context.Background(), bom)
	if got.RootNodeID != "app" || got.RootName != "example-app" {
		t.Fatalf("unexpected root: %+v", got)
	}
	if len(got.Packages) != 2 {
		t.Fatalf("want root + 1 component, got %d", len(got.Packages))
	}
	var pkgFound bool
	for _, p := range got.Packages {
		if p.NodeID == leaf.BOMRef {
			pkgFound = true
			if len(p.Purls) != 1 {
				t.Fatalf("want 1 purl on requests component, got %d", len(p.Purls))
			}
		}
	}
	if !pkgFound {
		t.Fatal("requests component missing from decoded document")
	}

	var sawDependency, sawContainment bool
	for _, e := range got.Edges {
		switch e.Relationship {
		case graph.DependencyOf:
			sawDependency = true
		case graph.ContainedBy:
			sawContainment = true
		}
	}
	if !sawDependency || !sawContainment {
		t.Fatalf("want both a DependencyOf and a ContainedBy edge, got %+v", got.Edges)
	}
}

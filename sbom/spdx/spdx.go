// Package spdx decodes SPDX 2.2/2.3 JSON documents into sbom.Document,
// producing a graph-shaped document rather than a flat index report.
package spdx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	packageurl "github.com/package-url/packageurl-go"
	spdxjson "github.com/spdx/tools-golang/json"
	"github.com/spdx/tools-golang/spdx/v2/v2_3"

	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/graph"
	"github.com/sbomgraph/ingestor/purl"
	"github.com/sbomgraph/ingestor/sbom"
)

// Format identifies the wire format a Decoder reads. JSON is the only one
// implemented: tools-golang also offers tag-value and RDF readers, but no
// corpus example exercises them.
type Format string

// FormatJSON is the only supported format.
const FormatJSON Format = "json"

// relationshipTypes maps the SPDX relationship-type string onto the
// graph's own relationship enum. Only the subset a package graph cares
// about is mapped; anything else (e.g. "COPY_OF", "AMENDS") is dropped by
// Decode with a log line, since it has no home in package_relates_to_package.
var relationshipTypes = map[string]graph.Relationship{
	"DESCRIBES":               graph.DescribedBy,
	"DESCRIBED_BY":            graph.DescribedBy,
	"CONTAINS":                graph.ContainedBy,
	"CONTAINED_BY":            graph.ContainedBy,
	"DEPENDS_ON":              graph.DependencyOf,
	"DEPENDENCY_OF":           graph.DependencyOf,
	"DEV_DEPENDENCY_OF":       graph.DevDependencyOf,
	"OPTIONAL_DEPENDENCY_OF":  graph.OptionalDependencyOf,
	"BUILD_DEPENDENCY_OF":     graph.BuildDependencyOf,
	"PACKAGE_OF":              graph.PackageOf,
	"GENERATED_FROM":          graph.GeneratedFrom,
	"GENERATES":               graph.GeneratedFrom,
	"ANCESTOR_OF":             graph.AncestorOf,
	"VARIANT_OF":              graph.VariantOf,
}

// inverseRelationshipTypes lists the SPDX types whose direction is the
// reverse of the graph relationship they map to ("A DEPENDS_ON B" is
// "B DependencyOf A"), so their two ends are swapped.
var inverseRelationshipTypes = map[string]bool{
	"DESCRIBES":  true,
	"CONTAINS":   true,
	"DEPENDS_ON": true,
	"GENERATES":  true,
}

// Decoder reads SPDX documents into sbom.Document values.
type Decoder struct {
	Format Format
}

// NewDecoder returns a Decoder for FormatJSON.
func NewDecoder() *Decoder { return &Decoder{Format: FormatJSON} }

// Decode reads one SPDX document from r.
//
// Known limitation: only "purl" and the two CPE external-reference types
// are read off a package's PackageExternalReferences; any other
// reference category is ignored.
func (d *Decoder) Decode(ctx context.Context, r io.Reader) (sbom.Document, error) {
	var (
		doc *v2_3.Document
		err error
	)
	switch d.Format {
	case FormatJSON, "":
		doc, err = spdxjson.Read(r)
		if err != nil {
			return sbom.Document{}, fmt.Errorf("spdx: read JSON: %w", err)
		}
	default:
		return sbom.Document{}, fmt.Errorf("spdx: unsupported format %q", d.Format)
	}
	return toDocument(ctx, doc), nil
}

func toDocument(ctx context.Context, doc *v2_3.Document) sbom.Document {
	rootID := string(doc.SPDXIdentifier)
	out := sbom.Document{
		RootNodeID: rootID,
		RootName:   doc.DocumentName,
		DocumentID: doc.DocumentNamespace,
	}
	if ci := doc.CreationInfo; ci != nil {
		if t, err := time.Parse(time.RFC3339, ci.Created); err == nil {
			out.Published = &t
		}
		for _, c := range ci.Creators {
			if c.CreatorType == "Tool" || c.CreatorType == "Organization" || c.CreatorType == "Person" {
				out.Authors = append(out.Authors, c.Creator)
			}
		}
	}

	out.Packages = append(out.Packages, sbom.Package{NodeID: rootID, Name: doc.DocumentName})

	for _, pkg := range doc.Packages {
		if ctx.Err() != nil {
			break
		}
		p := sbom.Package{
			NodeID: string(pkg.PackageSPDXIdentifier),
			Name:   pkg.PackageName,
		}
		for _, ref := range pkg.PackageExternalReferences {
			switch ref.RefType {
			case "purl":
				pu, err := packageurl.FromString(ref.Locator)
				if err != nil {
					slog.WarnContext(ctx, "spdx: invalid purl external reference", "purl", ref.Locator, "err", err)
					continue
				}
				q := make(map[string]string, len(pu.Qualifiers))
				for _, kv := range pu.Qualifiers {
					q[kv.Key] = kv.Value
				}
				p.Purls = append(p.Purls, purl.Purl{
					Type: pu.Type, Namespace: pu.Namespace, Name: pu.Name,
					Version: pu.Version, Qualifiers: q, Subpath: pu.Subpath,
				})
			case "cpe22Type", "cpe23Type":
				c, err := cpe.Parse(ref.Locator)
				if err != nil {
					slog.WarnContext(ctx, "spdx: invalid cpe external reference", "cpe", ref.Locator, "err", err)
					continue
				}
				p.Cpes = append(p.Cpes, c)
			}
		}
		out.Packages = append(out.Packages, p)
	}

	for _, rel := range doc.Relationships {
		if rel == nil {
			continue
		}
		kind, ok := relationshipTypes[rel.Relationship]
		if !ok {
			slog.WarnContext(ctx, "spdx: unmapped relationship type, dropping", "type", rel.Relationship)
			continue
		}
		if rel.RefA.DocumentRefID != "" || rel.RefB.DocumentRefID != "" {
			// Cross-document relationships aren't representable: a
			// package_relates_to_package edge is scoped to one sbom_id.
			continue
		}
		left, right := string(rel.RefA.ElementRefID), string(rel.RefB.ElementRefID)
		if inverseRelationshipTypes[rel.Relationship] {
			left, right = right, left
		}
		out.Edges = append(out.Edges, sbom.Edge{
			Left:         left,
			Relationship: kind,
			Right:        right,
		})
	}

	return out
}

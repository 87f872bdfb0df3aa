// Package cyclonedx decodes CycloneDX 1.3-1.5 JSON documents into
// sbom.Document, using the CycloneDX/cyclonedx-go library the way the
// trivy sibling example wires it for the encode side.
package cyclonedx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/graph"
	"github.com/sbomgraph/ingestor/purl"
	"github.com/sbomgraph/ingestor/sbom"
)

// Decoder reads CycloneDX BOMs into sbom.Document values.
type Decoder struct {
	// Format selects the wire encoding. Only JSON is exercised by this
	// ingestor; XML BOMs are out of scope.
	Format cdx.BOMFileFormat
}

// NewDecoder returns a Decoder for the JSON wire format.
func NewDecoder() *Decoder { return &Decoder{Format: cdx.BOMFileFormatJSON} }

// Decode reads one CycloneDX BOM from r.
func (d *Decoder) Decode(ctx context.Context, r io.Reader) (sbom.Document, error) {
	format := d.Format
	if format == "" {
		format = cdx.BOMFileFormatJSON
	}
	bom := new(cdx.BOM)
	if err := cdx.NewBOMDecoder(r, format).Decode(bom); err != nil {
		return sbom.Document{}, fmt.Errorf("cyclonedx: decode BOM: %w", err)
	}
	return toDocument(ctx, bom), nil
}

func toDocument(ctx context.Context, bom *cdx.BOM) sbom.Document {
	out := sbom.Document{DocumentID: bom.SerialNumber}

	rootRef := bom.SerialNumber
	if bom.Metadata != nil {
		if c := bom.Metadata.Component; c != nil {
			if c.BOMRef != "" {
				rootRef = c.BOMRef
			}
			out.RootName = c.Name
		}
		if bom.Metadata.Timestamp != "" {
			if t, err := time.Parse(time.RFC3339, bom.Metadata.Timestamp); err == nil {
				out.Published = &t
			}
		}
		if bom.Metadata.Authors != nil {
			for _, a := range *bom.Metadata.Authors {
				if a.Name != "" {
					out.Authors = append(out.Authors, a.Name)
				}
			}
		}
	}
	out.RootNodeID = rootRef
	out.Packages = append(out.Packages, sbom.Package{NodeID: rootRef, Name: out.RootName})

	if bom.Components != nil {
		walkComponents(ctx, *bom.Components, rootRef, &out)
	}

	if bom.Dependencies != nil {
		for _, dep := range *bom.Dependencies {
			if dep.Dependencies == nil {
				continue
			}
			for _, target := range *dep.Dependencies {
				out.Edges = append(out.Edges, sbom.Edge{
					Left:         target,
					Relationship: graph.DependencyOf,
					Right:        dep.Ref,
				})
			}
		}
	}

	return out
}

// walkComponents flattens CycloneDX's nested Components tree into the
// flat package list a Document expects, recording a ContainedBy edge from
// each nested component to its parent.
func walkComponents(ctx context.Context, components []cdx.Component, parent string, out *sbom.Document) {
	for _, c := range components {
		if ctx.Err() != nil {
			return
		}
		nodeID := c.BOMRef
		if nodeID == "" {
			nodeID = c.Name + "@" + c.Version
		}
		pkg := sbom.Package{NodeID: nodeID, Name: c.Name}
		if c.PackageURL != "" {
			p, err := purl.Parse(c.PackageURL)
			if err != nil {
				slog.WarnContext(ctx, "cyclonedx: invalid purl on component", "purl", c.PackageURL, "err", err)
			} else {
				pkg.Purls = append(pkg.Purls, p)
			}
		}
		if c.CPE != "" {
			cp, err := cpe.Parse(c.CPE)
			if err != nil {
				slog.WarnContext(ctx, "cyclonedx: invalid cpe on component", "cpe", c.CPE, "err", err)
			} else {
				pkg.Cpes = append(pkg.Cpes, cp)
			}
		}
		out.Packages = append(out.Packages, pkg)
		out.Edges = append(out.Edges, sbom.Edge{Left: nodeID, Relationship: graph.ContainedBy, Right: parent})

		if c.Components != nil {
			walkComponents(ctx, *c.Components, nodeID, out)
		}
	}
}

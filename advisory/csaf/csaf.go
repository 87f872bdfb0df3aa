// Package csaf loads a CSAF 2.0 advisory document into the graph, using
// the claircore toolkit's CSAF model rather than a standalone CSAF
// library: it is already a real dependency of this module (through cpe
// and cvss) and its typed fields are exactly what this loader needs.
package csaf

import (
	"context"
	"fmt"
	"io"

	tcsaf "github.com/quay/claircore/toolkit/types/csaf"

	"github.com/sbomgraph/ingestor/cvss"
	"github.com/sbomgraph/ingestor/graph"
	"github.com/sbomgraph/ingestor/internal/hashing"
)

// Load parses a CSAF document read from r, hashes the exact bytes consumed
// (the advisory's content identity), and ingests every vulnerability,
// title, description, and CVSSv3 score it carries, linking each to the
// advisory row keyed on that hash.
//
// location is recorded on the advisory row for operator convenience; it is
// never part of the advisory's identity (see graph.Advisory).
func Load(ctx context.Context, g *graph.Graph, tx graph.Querier, location string, r io.Reader) (graph.Advisory, error) {
	hr := hashing.NewReader(r)
	doc, err := tcsaf.Parse(hr)
	if err != nil {
		return graph.Advisory{}, fmt.Errorf("csaf: parse: %w", err)
	}
	// json.Decoder stops at the closing brace of the top-level object; drain
	// whatever trailing bytes (typically a final newline) remain so the hash
	// covers the document exactly as stored.
	_, _ = io.Copy(io.Discard, hr)
	sha256 := hr.Sum()

	adv, err := g.IngestAdvisory(ctx, tx, doc.Document.Tracking.ID, location, sha256)
	if err != nil {
		return graph.Advisory{}, err
	}

	for _, vuln := range doc.Vulnerabilities {
		vulnID := vuln.CVE
		if vulnID == "" {
			vulnID = firstTrackingID(vuln.IDs)
		}
		if vulnID == "" {
			continue
		}
		if _, err := g.IngestVulnerability(ctx, tx, vulnID); err != nil {
			return graph.Advisory{}, err
		}
		if title := vulnerabilityTitle(doc, vuln); title != "" {
			if err := g.SetVulnerabilityTitle(ctx, tx, vulnID, title); err != nil {
				return graph.Advisory{}, err
			}
		}
		for _, note := range vuln.Notes {
			if note.Category != "summary" && note.Category != "description" {
				continue
			}
			if err := g.UpsertDescription(ctx, tx, graph.Description{
				VulnerabilityID: vulnID,
				Lang:            "en",
				Value:           note.Text,
			}); err != nil {
				return graph.Advisory{}, err
			}
		}
		if err := g.LinkAdvisoryVulnerability(ctx, tx, graph.AdvisoryVulnerability{
			AdvisoryID:      adv.ID,
			VulnerabilityID: vulnID,
		}); err != nil {
			return graph.Advisory{}, err
		}
		for _, score := range vuln.Scores {
			if score.CVSSV3 == nil || score.CVSSV3.VectorString == "" {
				continue
			}
			v, err := cvss.ParseV3(score.CVSSV3.VectorString)
			if err != nil {
				continue
			}
			if err := g.IngestCvss3(ctx, tx, adv.ID, vulnID, v); err != nil {
				return graph.Advisory{}, err
			}
		}
	}

	return adv, nil
}

func firstTrackingID(ids []tcsaf.TrackingID) string {
	for _, id := range ids {
		if id.Text != "" {
			return id.Text
		}
	}
	return ""
}

func vulnerabilityTitle(doc *tcsaf.CSAF, vuln tcsaf.Vulnerability) string {
	for _, note := range vuln.Notes {
		if note.Title != "" {
			return note.Title
		}
	}
	return doc.Document.Title
}

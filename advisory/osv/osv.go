// Package osv loads an OSV JSON vulnerability document into the graph.
// The wire shape is narrowed to the single-document decode this ingestor
// needs, including the "details" field the OSV schema carries alongside
// "summary".
package osv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sbomgraph/ingestor/cvss"
	"github.com/sbomgraph/ingestor/graph"
	"github.com/sbomgraph/ingestor/internal/hashing"
)

type severity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

type pkg struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type affected struct {
	Package pkg `json:"package"`
}

// Document is a single OSV vulnerability record.
type Document struct {
	ID       string     `json:"id"`
	Aliases  []string    `json:"aliases"`
	Summary  string      `json:"summary"`
	Details  string      `json:"details"`
	Severity []severity  `json:"severity"`
	Affected []affected  `json:"affected"`
}

// Load parses an OSV document read from r, hashes the bytes consumed, and
// ingests the vulnerability (keyed on its OSV id), its summary as title,
// its details as the English description, and any CVSS_V3 severity
// entries, linking all of it to an advisory row keyed on the document
// hash.
//
// Every alias (e.g. a CVE id the OSV record cross-references) also gets
// its own vulnerability row, advisory-linked alongside the OSV id itself,
// mirroring how an OSV record is published as one authoritative account
// of potentially several public identifiers for the same issue.
func Load(ctx context.Context, g *graph.Graph, tx graph.Querier, location string, r io.Reader) (graph.Advisory, error) {
	hr := hashing.NewReader(r)
	var doc Document
	if err := json.NewDecoder(hr).Decode(&doc); err != nil {
		return graph.Advisory{}, fmt.Errorf("osv: decode document: %w", err)
	}
	_, _ = io.Copy(io.Discard, hr)
	sha256 := hr.Sum()

	if doc.ID == "" {
		return graph.Advisory{}, fmt.Errorf("osv: document carries no id")
	}

	adv, err := g.IngestAdvisory(ctx, tx, doc.ID, location, sha256)
	if err != nil {
		return graph.Advisory{}, err
	}

	ids := append([]string{doc.ID}, doc.Aliases...)
	for _, vulnID := range ids {
		if vulnID == "" {
			continue
		}
		if _, err := g.IngestVulnerability(ctx, tx, vulnID); err != nil {
			return graph.Advisory{}, err
		}
		if doc.Summary != "" {
			if err := g.SetVulnerabilityTitle(ctx, tx, vulnID, doc.Summary); err != nil {
				return graph.Advisory{}, err
			}
		}
		if doc.Details != "" {
			if err := g.UpsertDescription(ctx, tx, graph.Description{
				VulnerabilityID: vulnID,
				Lang:            "en",
				Value:           doc.Details,
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
		for _, s := range severityVectors(doc.Severity) {
			v, err := cvss.ParseV3(s)
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

// severityVectors returns every CVSS_V3 vector string a record's severity
// array carries. OSV also allows CVSS_V2 and UNSPECIFIED entries; neither
// has a home in this graph's cvss3 table, so they're skipped.
func severityVectors(entries []severity) []string {
	var out []string
	for _, s := range entries {
		if strings.EqualFold(s.Type, "CVSS_V3") && s.Score != "" {
			out = append(out, s.Score)
		}
	}
	return out
}

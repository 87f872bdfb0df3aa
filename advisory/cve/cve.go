// Package cve loads a CVE Record v5 JSON document into the graph. The
// record shape is narrowed to the fields an ingest actually needs, with
// type names adapted to this graph's own vocabulary.
package cve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sbomgraph/ingestor/cvss"
	"github.com/sbomgraph/ingestor/graph"
	"github.com/sbomgraph/ingestor/internal/hashing"
)

// timestamp accepts the handful of near-RFC3339 forms CVE Record v5
// documents use in practice, truncating any fractional-second or
// timezone suffix to the common "2006-01-02T15:04:05" prefix.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if len(s) >= 19 {
		s = s[:19]
	}
	parsed, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

type description struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type problemTypeDescription struct {
	Type        string `json:"type"`
	Lang        string `json:"lang"`
	Description string `json:"description"`
	CweID       string `json:"cweId"`
}

type problemType struct {
	Descriptions []problemTypeDescription `json:"descriptions"`
}

type metric struct {
	CvssV30 *cvssMetric `json:"cvssV3_0"`
	CvssV31 *cvssMetric `json:"cvssV3_1"`
}

type cvssMetric struct {
	VectorString string  `json:"vectorString"`
	BaseScore    float64 `json:"baseScore"`
}

type cnaContainer struct {
	Title        string        `json:"title"`
	Descriptions []description `json:"descriptions"`
	Metrics      []metric      `json:"metrics"`
	ProblemTypes []problemType `json:"problemTypes"`
}

// Record is a CVE Record v5 document, narrowed to the CNA container
// fields this ingestor turns into graph rows.
type Record struct {
	DataType    string `json:"dataType"`
	DataVersion string `json:"dataVersion"`
	CveMetadata struct {
		CveID         string    `json:"cveId"`
		State         string    `json:"state"`
		DatePublished timestamp `json:"datePublished"`
		DateUpdated   timestamp `json:"dateUpdated"`
	} `json:"cveMetadata"`
	Containers struct {
		Cna cnaContainer `json:"cna"`
	} `json:"containers"`
}

// Load parses a CVE Record v5 document read from r, hashes the bytes
// consumed, and ingests the vulnerability, its title, one description per
// language tag (an empty tag is recorded as "en"), and every CVSSv3 metric
// it carries, linking all of it to an advisory row keyed on the document
// hash.
func Load(ctx context.Context, g *graph.Graph, tx graph.Querier, location string, r io.Reader) (graph.Advisory, error) {
	hr := hashing.NewReader(r)
	var rec Record
	if err := json.NewDecoder(hr).Decode(&rec); err != nil {
		return graph.Advisory{}, fmt.Errorf("cve: decode record: %w", err)
	}
	_, _ = io.Copy(io.Discard, hr)
	sha256 := hr.Sum()

	vulnID := rec.CveMetadata.CveID
	if vulnID == "" {
		return graph.Advisory{}, fmt.Errorf("cve: record carries no cveId")
	}

	adv, err := g.IngestAdvisory(ctx, tx, vulnID, location, sha256)
	if err != nil {
		return graph.Advisory{}, err
	}
	if _, err := g.IngestVulnerability(ctx, tx, vulnID); err != nil {
		return graph.Advisory{}, err
	}
	if rec.Containers.Cna.Title != "" {
		if err := g.SetVulnerabilityTitle(ctx, tx, vulnID, rec.Containers.Cna.Title); err != nil {
			return graph.Advisory{}, err
		}
	}
	for _, d := range rec.Containers.Cna.Descriptions {
		lang := d.Lang
		if lang == "" {
			lang = "en"
		}
		if err := g.UpsertDescription(ctx, tx, graph.Description{
			VulnerabilityID: vulnID,
			Lang:            lang,
			Value:           d.Value,
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
	for _, m := range rec.Containers.Cna.Metrics {
		cm := m.CvssV31
		if cm == nil {
			cm = m.CvssV30
		}
		if cm == nil || cm.VectorString == "" {
			continue
		}
		v, err := cvss.ParseV3(cm.VectorString)
		if err != nil {
			continue
		}
		if err := g.IngestCvss3(ctx, tx, adv.ID, vulnID, v); err != nil {
			return graph.Advisory{}, err
		}
	}

	return adv, nil
}

package cve

import (
	"context"
	"strings"
	"testing"

	"github.com/sbomgraph/ingestor/graph"
	"github.com/sbomgraph/ingestor/internal/graphtest"
)

const sampleRecord = `{
  "dataType": "CVE_RECORD",
  "dataVersion": "5.0",
  "cveMetadata": {
    "cveId": "CVE-2026-20001",
    "state": "PUBLISHED",
    "datePublished": "2026-01-05T00:00:00Z"
  },
  "containers": {
    "cna": {
      "title": "Use-after-free in example-daemon",
      "descriptions": [{"lang": "en", "value": "A use-after-free was found in example-daemon's request handler."}],
      "metrics": [{"cvssV3_1": {"version": "3.1", "vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", "baseScore": 9.8}}]
    }
  }
}`

func TestLoadIngestsRecord(t *testing.T) {
	store := graphtest.New()
	g := graph.New(store)
	ctx := context.Background()

	adv, err := Load(ctx, g, g.Pool(), "/advisories/cve-2026-20001.json", strings.NewReader(sampleRecord))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if adv.Identifier != "CVE-2026-20001" {
		t.Fatalf("unexpected identifier: %q", adv.Identifier)
	}
	v, ok, err := g.GetVulnerability(ctx, g.Pool(), "CVE-2026-20001")
	if err != nil || !ok {
		t.Fatalf("GetVulnerability: ok=%v err=%v", ok, err)
	}
	if v.Title != "Use-after-free in example-daemon" {
		t.Fatalf("unexpected title: %q", v.Title)
	}
	if len(store.Cvss3Rows) != 1 {
		t.Fatalf("want 1 cvss3 row, got %d", len(store.Cvss3Rows))
	}
}

func TestLoadRejectsRecordWithoutCveID(t *testing.T) {
	g := graph.New(graphtest.New())
	ctx := context.Background()
	_, err := Load(ctx, g, g.Pool(), "/x.json", strings.NewReader(`{"containers":{"cna":{}}}`))
	if err == nil {
		t.Fatal("want error for a record with no cveId")
	}
}

package graph

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sbomgraph/ingestor/cpe"
	"github.com/sbomgraph/ingestor/purl"
)

// Querier is the transactional handle every Store method is parameterized
// over. *pgxpool.Pool satisfies it for the autocommit case; a pgx.Tx
// satisfies it to participate in an already-open transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the persistence boundary Graph drives. Every ingest-shaped
// method is idempotent: calling it twice with equivalent input must return
// the same row and must not surface the underlying unique-constraint
// conflict as an error.
type Store interface {
	// Pool returns the default Querier for autocommit calls.
	Pool() Querier
	// Begin opens a transaction a caller can pass as the Querier to batch
	// multiple Graph calls atomically.
	Begin(ctx context.Context) (pgx.Tx, error)

	GetVulnerability(ctx context.Context, tx Querier, id string) (Vulnerability, bool, error)
	IngestVulnerability(ctx context.Context, tx Querier, id string) (Vulnerability, error)
	SetVulnerabilityTitle(ctx context.Context, tx Querier, id, title string) error
	UpsertDescription(ctx context.Context, tx Querier, d Description) error

	GetAdvisory(ctx context.Context, tx Querier, sha256 string) (Advisory, bool, error)
	IngestAdvisory(ctx context.Context, tx Querier, identifier, location, sha256 string) (Advisory, error)
	LinkAdvisoryVulnerability(ctx context.Context, tx Querier, link AdvisoryVulnerability) error
	IngestCvss3(ctx context.Context, tx Querier, row Cvss3) error

	IngestCpe(ctx context.Context, tx Querier, c cpe.Cpe) (int32, error)
	GetCpeID(ctx context.Context, tx Querier, c cpe.Cpe) (int32, bool, error)
	// GetCpeIDs resolves the surrogate id of every row, keyed by value. A
	// row with no matching cpe table entry is simply absent from the
	// result map.
	GetCpeIDs(ctx context.Context, tx Querier, rows []cpe.Cpe) (map[cpe.Cpe]int32, error)
	IngestPurl(ctx context.Context, tx Querier, p purl.Purl) (uuid.UUID, error)

	InsertBasePurls(ctx context.Context, tx Querier, rows []BasePurl) error
	InsertVersionedPurls(ctx context.Context, tx Querier, rows []VersionedPurl) error
	InsertQualifiedPackages(ctx context.Context, tx Querier, rows []QualifiedPackage) error
	InsertCpes(ctx context.Context, tx Querier, rows []Cpe) error

	GetSbomByLocation(ctx context.Context, tx Querier, location, sha256 string) (Sbom, bool, error)
	// GetSbomByLocationOnly is used by the Location locator, which
	// identifies an SBOM by location alone (unlike the ingest lookup,
	// which keys on the full (location, sha256) pair).
	GetSbomByLocationOnly(ctx context.Context, tx Querier, location string) (Sbom, bool, error)
	GetSbomByID(ctx context.Context, tx Querier, id uuid.UUID) (Sbom, bool, error)
	GetSbomBySha256(ctx context.Context, tx Querier, sha256 string) (Sbom, bool, error)
	IngestSbom(ctx context.Context, tx Querier, s Sbom) (Sbom, error)
	LocateSbomsByPurl(ctx context.Context, tx Querier, qualifiedPackageID uuid.UUID) ([]Sbom, error)
	LocateSbomsByCpe(ctx context.Context, tx Querier, cpeID int32) ([]Sbom, error)

	InsertSbomNodes(ctx context.Context, tx Querier, rows []SbomNode) error
	InsertSbomPackages(ctx context.Context, tx Querier, rows []SbomPackage) error
	InsertSbomPackagePurlRefs(ctx context.Context, tx Querier, rows []SbomPackagePurlRef) error
	InsertSbomPackageCpeRefs(ctx context.Context, tx Querier, rows []SbomPackageCpeRef) error
	InsertPackageRelatesToPackage(ctx context.Context, tx Querier, rows []PackageRelatesToPackage) error

	// RelatedPackagesTransitively calls the qualified_package_transitive
	// set-returning function, restricted to sbomID and rels, starting from
	// the node described by root.
	RelatedPackagesTransitively(ctx context.Context, tx Querier, sbomID uuid.UUID, root uuid.UUID, rels []Relationship) ([]uuid.UUID, error)
}

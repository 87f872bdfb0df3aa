package graph

// defaultChunkSize is the default row count per chunked INSERT batch,
// chosen to stay well under Postgres's parameter-count limit even for
// multi-column rows.
const defaultChunkSize = 256

// Option configures a Graph at construction time.
type Option func(*config)

type config struct {
	chunkSize int
}

func newConfig(opts []Option) config {
	cfg := config{chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithChunkSize overrides the default batch size used by bulk creators and
// SBOM ingestion's chunked inserts.
func WithChunkSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// Package postgres implements graph.Store against a PostgreSQL backend
// using pgx: a package-level method() observability helper, and one file
// per concern built on chunked "ON CONFLICT DO NOTHING" batches.
package postgres

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quay/zlog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sbomgraph/ingestor/graph"
)

// Store implements graph.Store against a pgxpool-backed PostgreSQL
// connection.
type Store struct {
	pool *pgxpool.Pool
}

var _ graph.Store = (*Store)(nil)

// Option configures a Store at construction time.
type Option func(*openConfig)

type openConfig struct {
	migrations bool
}

// WithMigrations applies the bundled schema (see schema.go) before Open
// returns, using github.com/remind101/migrate.
func WithMigrations() Option {
	return func(c *openConfig) { c.migrations = true }
}

// Open connects to the database described by dsn and returns a ready
// Store, optionally applying migrations first.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg := openConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	s := &Store{pool: pool}
	if cfg.migrations {
		if err := applyMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

// Pool implements graph.Store.
func (s *Store) Pool() graph.Querier { return s.pool }

// Begin implements graph.Store.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

type ctxKey struct{}

var spanNameKey = ctxKey{}

// method is the observability helper every exported Store method calls on
// entry: it opens a debug log scope and a trace span and returns a closer
// that records the outcome.
func method(ctx context.Context, err *error) (context.Context, func()) {
	pc, _, _, _ := runtime.Caller(1)
	full := runtime.FuncForPC(pc).Name()
	i := strings.LastIndexByte(full, '.')
	name := full
	if i != -1 {
		name = full[i+1:]
	}
	ctx = zlog.ContextWithValues(ctx, "component", "datastore/postgres."+name)
	ctx = context.WithValue(ctx, spanNameKey, name)
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attribute.String("method", name)), trace.WithSpanKind(trace.SpanKindClient))
	zlog.Debug(ctx).Msg("start")
	begin := time.Now()
	return ctx, func() {
		outcome := "ok"
		if *err != nil {
			outcome = "error"
			span.RecordError(*err)
			span.SetStatus(codes.Error, "store method error")
		} else {
			span.SetStatus(codes.Ok, "")
		}
		methodCounter.WithLabelValues(name, outcome).Inc()
		methodDuration.WithLabelValues(name).Observe(time.Since(begin).Seconds())
		ev := zlog.Debug(ctx)
		if *err != nil {
			ev = ev.Err(*err)
		}
		ev.Msg("done")
		span.End()
	}
}

// spanPath builds a slash-separated child-span name under the current
// method's span.
func spanPath(ctx context.Context, name string) string {
	if parent, ok := ctx.Value(spanNameKey).(string); ok {
		return path.Join(parent, name)
	}
	return name
}

// batcher is satisfied by both *pgxpool.Pool and pgx.Tx. graph.Querier
// deliberately doesn't expose SendBatch (callers outside this package
// never need it), so chunked inserts recover it with a type assertion.
type batcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// sendBatch submits batch against tx and closes the results, discarding
// per-statement results since every statement here is an
// "ON CONFLICT DO NOTHING" insert with nothing useful to read back.
func sendBatch(ctx context.Context, tx graph.Querier, batch *pgx.Batch) error {
	return tx.(batcher).SendBatch(ctx, batch).Close()
}

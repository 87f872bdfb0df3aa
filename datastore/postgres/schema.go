package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remind101/migrate"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// schema is the target DDL the knowledge graph maps to. Concrete migration
// tooling is out of scope; only this target shape matters, so it's
// expressed as a single migration rather than a history.
const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS vulnerability (
	id    text PRIMARY KEY,
	title text NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS description (
	vulnerability_id text NOT NULL REFERENCES vulnerability(id),
	lang             text NOT NULL,
	value            text NOT NULL,
	PRIMARY KEY (vulnerability_id, lang)
);

CREATE TABLE IF NOT EXISTS weakness (
	id text PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS advisory (
	id         uuid PRIMARY KEY,
	identifier text NOT NULL,
	location   text NOT NULL,
	sha256     text NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS advisory_vulnerability (
	advisory_id      uuid NOT NULL REFERENCES advisory(id),
	vulnerability_id text NOT NULL REFERENCES vulnerability(id),
	PRIMARY KEY (advisory_id, vulnerability_id)
);

CREATE TABLE IF NOT EXISTS cvss3 (
	advisory_id      uuid NOT NULL REFERENCES advisory(id),
	vulnerability_id text NOT NULL REFERENCES vulnerability(id),
	minor_version    smallint NOT NULL,
	av text NOT NULL, ac text NOT NULL, pr text NOT NULL, ui text NOT NULL,
	s  text NOT NULL, c  text NOT NULL, i  text NOT NULL, a  text NOT NULL,
	score numeric(3,1) NOT NULL,
	PRIMARY KEY (advisory_id, vulnerability_id)
);

CREATE TABLE IF NOT EXISTS cpe (
	id       serial PRIMARY KEY,
	part     text NOT NULL DEFAULT '',
	vendor   text NOT NULL DEFAULT '',
	product  text NOT NULL DEFAULT '',
	version  text NOT NULL DEFAULT '',
	update_  text NOT NULL DEFAULT '',
	edition  text NOT NULL DEFAULT '',
	language text NOT NULL DEFAULT '',
	UNIQUE (part, vendor, product, version, update_, edition, language)
);

CREATE TABLE IF NOT EXISTS base_purl (
	id        uuid PRIMARY KEY,
	type      text NOT NULL,
	namespace text NOT NULL DEFAULT '',
	name      text NOT NULL,
	UNIQUE (type, namespace, name)
);

CREATE TABLE IF NOT EXISTS versioned_purl (
	id           uuid PRIMARY KEY,
	base_purl_id uuid NOT NULL REFERENCES base_purl(id),
	version      text NOT NULL DEFAULT '',
	UNIQUE (base_purl_id, version)
);

CREATE TABLE IF NOT EXISTS qualified_package (
	id                 uuid PRIMARY KEY,
	versioned_purl_id  uuid NOT NULL REFERENCES versioned_purl(id),
	qualifiers         jsonb NOT NULL DEFAULT '{}'::jsonb
);

CREATE TABLE IF NOT EXISTS sbom (
	sbom_id     uuid PRIMARY KEY,
	node_id     text NOT NULL,
	document_id text NOT NULL DEFAULT '',
	location    text NOT NULL,
	sha256      text NOT NULL,
	published   timestamptz,
	authors     text[] NOT NULL DEFAULT '{}',
	UNIQUE (location, sha256)
);

CREATE TABLE IF NOT EXISTS sbom_node (
	sbom_id uuid NOT NULL REFERENCES sbom(sbom_id),
	node_id text NOT NULL,
	name    text NOT NULL DEFAULT '',
	PRIMARY KEY (sbom_id, node_id)
);

CREATE TABLE IF NOT EXISTS sbom_package (
	sbom_id uuid NOT NULL,
	node_id text NOT NULL,
	PRIMARY KEY (sbom_id, node_id),
	FOREIGN KEY (sbom_id, node_id) REFERENCES sbom_node(sbom_id, node_id)
);

CREATE TABLE IF NOT EXISTS sbom_package_purl_ref (
	sbom_id             uuid NOT NULL,
	node_id             text NOT NULL,
	qualified_package_id uuid NOT NULL REFERENCES qualified_package(id),
	PRIMARY KEY (sbom_id, node_id, qualified_package_id),
	FOREIGN KEY (sbom_id, node_id) REFERENCES sbom_node(sbom_id, node_id)
);

CREATE TABLE IF NOT EXISTS sbom_package_cpe_ref (
	sbom_id uuid NOT NULL,
	node_id text NOT NULL,
	cpe_id  integer NOT NULL REFERENCES cpe(id),
	PRIMARY KEY (sbom_id, node_id, cpe_id),
	FOREIGN KEY (sbom_id, node_id) REFERENCES sbom_node(sbom_id, node_id)
);

CREATE TABLE IF NOT EXISTS package_relates_to_package (
	sbom_id       uuid NOT NULL,
	left_node_id  text NOT NULL,
	relationship  integer NOT NULL,
	right_node_id text NOT NULL,
	PRIMARY KEY (sbom_id, left_node_id, relationship, right_node_id),
	FOREIGN KEY (sbom_id, left_node_id) REFERENCES sbom_node(sbom_id, node_id),
	FOREIGN KEY (sbom_id, right_node_id) REFERENCES sbom_node(sbom_id, node_id)
);

-- qualified_package_transitive walks package_relates_to_package within one
-- SBOM, breadth-first, restricted to the given relationship codes,
-- starting from the node that describes root, terminating on cycles via a
-- visited table, and returns the qualified_package ids of every reached
-- node that has one.
CREATE OR REPLACE FUNCTION qualified_package_transitive(
	p_sbom_id uuid,
	p_root    uuid,
	p_rels    integer[]
) RETURNS TABLE(left_package_id uuid) AS $$
DECLARE
	root_node text;
BEGIN
	SELECT node_id INTO root_node
	FROM sbom_package_purl_ref
	WHERE sbom_id = p_sbom_id AND qualified_package_id = p_root
	LIMIT 1;

	IF root_node IS NULL THEN
		RETURN;
	END IF;

	CREATE TEMPORARY TABLE IF NOT EXISTS _qpt_visited (node_id text PRIMARY KEY) ON COMMIT DROP;
	DELETE FROM _qpt_visited;
	INSERT INTO _qpt_visited VALUES (root_node);

	LOOP
		INSERT INTO _qpt_visited (node_id)
		SELECT DISTINCT prp.left_node_id
		FROM package_relates_to_package prp
		JOIN _qpt_visited v ON v.node_id = prp.right_node_id
		WHERE prp.sbom_id = p_sbom_id
		  AND prp.relationship = ANY(p_rels)
		  AND prp.left_node_id NOT IN (SELECT node_id FROM _qpt_visited)
		ON CONFLICT DO NOTHING;

		IF NOT FOUND THEN
			EXIT;
		END IF;
	END LOOP;

	RETURN QUERY
	SELECT DISTINCT ref.qualified_package_id
	FROM sbom_package_purl_ref ref
	JOIN _qpt_visited v ON v.node_id = ref.node_id
	WHERE ref.sbom_id = p_sbom_id;
END;
$$ LANGUAGE plpgsql;
`

var migrations = []migrate.Migration{
	{
		ID: 1,
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(schema)
			return err
		},
	},
}

// applyMigrations runs the bundled schema against pool using
// remind101/migrate, driven over a database/sql handle borrowed from the
// pgx stdlib adapter.
func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	cfg := pool.Config().ConnConfig
	db, err := sql.Open("pgx", cfg.ConnString())
	if err != nil {
		return fmt.Errorf("postgres: open migration handle: %w", err)
	}
	defer db.Close()
	migrator := migrate.NewPostgresMigrator(db)
	if err := migrator.Exec(migrate.Up, migrations...); err != nil {
		return fmt.Errorf("postgres: apply migrations: %w", err)
	}
	return nil
}

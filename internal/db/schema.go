package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently at startup. It is intentionally plain SQL
// rather than a migration tool: the teacher's own codebase has no migration
// step either (its tables are created ahead of time and the service only
// issues DML), and this gateway's schema is small and stable enough that a
// single idempotent bootstrap is simpler than wiring a migration runner for
// a handful of tables. See DESIGN.md for why golang-migrate (seen elsewhere
// in the retrieval pack) was not adopted here.
const schema = `
CREATE TABLE IF NOT EXISTS tenant (
	tenant_id                 uuid PRIMARY KEY,
	api_key                   text NOT NULL,
	site_url                  text NOT NULL,
	admin_email               text NOT NULL,
	domain                    text NOT NULL,
	site_hash                 text NOT NULL,
	hmac_secret_sealed        text,
	hmac_secret_updated_at    timestamptz,
	anthropic_key_sealed      text,
	openai_key_sealed         text,
	provider_keys_updated_at  timestamptz,
	created_at                timestamptz NOT NULL DEFAULT now(),
	last_seen_at              timestamptz,
	is_active                 boolean NOT NULL DEFAULT true,
	metadata                  jsonb NOT NULL DEFAULT '{}'::jsonb
);

CREATE UNIQUE INDEX IF NOT EXISTS tenant_api_key_active_idx
	ON tenant (api_key) WHERE is_active;
CREATE UNIQUE INDEX IF NOT EXISTS tenant_site_url_active_idx
	ON tenant (site_url) WHERE is_active;
CREATE UNIQUE INDEX IF NOT EXISTS tenant_admin_email_active_idx
	ON tenant (admin_email) WHERE is_active;

CREATE TABLE IF NOT EXISTS conversation (
	id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id   uuid NOT NULL REFERENCES tenant(tenant_id),
	session_id  text NOT NULL,
	user_ip     text,
	user_agent  text,
	created_at  timestamptz NOT NULL DEFAULT now(),
	updated_at  timestamptz NOT NULL DEFAULT now(),
	metadata    jsonb NOT NULL DEFAULT '{}'::jsonb,
	UNIQUE (tenant_id, session_id)
);

CREATE TABLE IF NOT EXISTS conversation_message (
	id              uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	conversation_id uuid NOT NULL REFERENCES conversation(id),
	tenant_id       uuid NOT NULL,
	role            text NOT NULL,
	content         text NOT NULL,
	ts              timestamptz NOT NULL DEFAULT now(),
	metadata        jsonb NOT NULL DEFAULT '{}'::jsonb
);

CREATE INDEX IF NOT EXISTS conversation_message_conv_idx
	ON conversation_message (conversation_id, ts);
`

// Bootstrap creates the gateway's tables and indexes if they do not already
// exist. Safe to call on every process start.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

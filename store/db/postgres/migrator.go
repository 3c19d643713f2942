package postgres

import (
	"context"

	"github.com/pkg/errors"
)

// Schema for the memory engine. Idempotent: safe to run at every startup.
const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	username VARCHAR(50) NOT NULL UNIQUE,
	email VARCHAR(100) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	last_login_at TIMESTAMPTZ,
	last_login_ip VARCHAR(50),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS system_instructions (
	id SERIAL PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	description VARCHAR(500),
	content TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_custom_prompts (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users (id),
	system_instruction_id INTEGER NOT NULL REFERENCES system_instructions (id),
	name VARCHAR(100) NOT NULL,
	description VARCHAR(500),
	content TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_user_system_prompt UNIQUE (user_id, system_instruction_id)
);

CREATE TABLE IF NOT EXISTS conversation_memories (
	id BIGSERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users (id),
	system_instruction_id INTEGER NOT NULL REFERENCES system_instructions (id),
	memory_type VARCHAR(20) NOT NULL DEFAULT 'active',
	memory_category VARCHAR(20) NOT NULL DEFAULT 'fact',
	original_content TEXT,
	summary TEXT NOT NULL,
	key_points TEXT,
	entities TEXT,
	embedding vector,
	conversation_round INTEGER NOT NULL,
	importance_score INTEGER NOT NULL DEFAULT 5,
	emotional_weight REAL NOT NULL DEFAULT 0.5,
	created_at_timestamp BIGINT NOT NULL,
	last_accessed BIGINT NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 1,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS ix_memories_user_system_created
	ON conversation_memories (user_id, system_instruction_id, created_at);
CREATE INDEX IF NOT EXISTS ix_memories_user_system_deleted
	ON conversation_memories (user_id, system_instruction_id, is_deleted);
CREATE INDEX IF NOT EXISTS ix_memories_category
	ON conversation_memories (memory_category);
CREATE INDEX IF NOT EXISTS ix_memories_last_accessed
	ON conversation_memories (last_accessed);

CREATE TABLE IF NOT EXISTS character_emotion_states (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL,
	char_id INTEGER NOT NULL,
	valence REAL NOT NULL DEFAULT 0,
	arousal REAL NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_user_char_emotion UNIQUE (user_id, char_id)
);
`

// Migrate applies the schema.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

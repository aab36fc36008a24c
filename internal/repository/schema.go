package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The unique indexes below are part of the service contract: one ban per
// user and per ip hash, one favourite/report per (photo, user), one gallery
// row and one map row per photo.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		uuid          TEXT NOT NULL UNIQUE,
		push_token    TEXT,
		last_login_at TIMESTAMPTZ NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	// exchanged_photo_id carries no foreign key: the link is mutual, so a
	// non-deferrable constraint would reject deleting either member of a
	// pair one row at a time. The CHECK below and the guarded pairing
	// transaction keep the column consistent instead.
	`CREATE TABLE IF NOT EXISTS photos (
		id                 BIGSERIAL PRIMARY KEY,
		user_id            BIGINT NOT NULL REFERENCES users(id),
		name               TEXT NOT NULL UNIQUE,
		exchange_state     TEXT NOT NULL,
		exchanged_photo_id BIGINT,
		is_public          BOOLEAN NOT NULL DEFAULT FALSE,
		lon                DOUBLE PRECISION,
		lat                DOUBLE PRECISION,
		ip_hash            TEXT NOT NULL,
		uploaded_on        TIMESTAMPTZ NOT NULL,
		deleted_on         TIMESTAMPTZ,
		CONSTRAINT photos_state_link CHECK (
			(exchange_state = 'exchanged') = (exchanged_photo_id IS NOT NULL)
		)
	)`,
	// Serves both the candidate scan and the retention sweep.
	`CREATE INDEX IF NOT EXISTS photos_state_uploaded_idx
		ON photos (exchange_state, uploaded_on, id)`,
	`CREATE INDEX IF NOT EXISTS photos_user_idx ON photos (user_id)`,
	`CREATE TABLE IF NOT EXISTS gallery_photos (
		id          BIGSERIAL PRIMARY KEY,
		photo_id    BIGINT NOT NULL UNIQUE REFERENCES photos(id) ON DELETE CASCADE,
		uploaded_on TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS gallery_photos_uploaded_idx
		ON gallery_photos (uploaded_on DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS favourite_photos (
		id       BIGSERIAL PRIMARY KEY,
		photo_id BIGINT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
		user_id  BIGINT NOT NULL REFERENCES users(id),
		UNIQUE (photo_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reported_photos (
		id       BIGSERIAL PRIMARY KEY,
		photo_id BIGINT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
		user_id  BIGINT NOT NULL REFERENCES users(id),
		UNIQUE (photo_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS location_maps (
		id              BIGSERIAL PRIMARY KEY,
		photo_id        BIGINT NOT NULL UNIQUE REFERENCES photos(id) ON DELETE CASCADE,
		attempts        INT NOT NULL DEFAULT 0,
		status          TEXT NOT NULL,
		next_attempt_at TIMESTAMPTZ NOT NULL,
		tile_key        TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS bans (
		id        BIGSERIAL PRIMARY KEY,
		user_id   BIGINT UNIQUE,
		ip_hash   TEXT UNIQUE,
		banned_on TIMESTAMPTZ NOT NULL,
		CONSTRAINT bans_target CHECK (user_id IS NOT NULL OR ip_hash IS NOT NULL)
	)`,
}

// Migrate applies the schema. All statements are idempotent, so running it on
// every start is safe.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

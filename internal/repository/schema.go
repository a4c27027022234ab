package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the teams table and the three submission tables. Column
// names match the dashboard's existing Supabase tables.
const Schema = `
CREATE TABLE IF NOT EXISTS teams (
	"teamName"               TEXT PRIMARY KEY,
	"teacherName"            TEXT NOT NULL DEFAULT '',
	"teacherEmail"           TEXT NOT NULL DEFAULT '',
	"teamMember1Name"        TEXT NOT NULL DEFAULT '',
	"teamMember1ParentEmail" TEXT NOT NULL DEFAULT '',
	"teamMember2Name"        TEXT NOT NULL DEFAULT '',
	"teamMember2ParentEmail" TEXT NOT NULL DEFAULT '',
	"teamMember3Name"        TEXT NOT NULL DEFAULT '',
	"teamMember3ParentEmail" TEXT NOT NULL DEFAULT '',
	"schoolName"             TEXT,
	category                 TEXT,
	"educationLevel"         TEXT,
	state                    TEXT,
	city                     TEXT,
	created_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_teams_teacher_email ON teams ("teacherEmail");
CREATE INDEX IF NOT EXISTS idx_teams_member1_email ON teams ("teamMember1ParentEmail");
CREATE INDEX IF NOT EXISTS idx_teams_member2_email ON teams ("teamMember2ParentEmail");
CREATE INDEX IF NOT EXISTS idx_teams_member3_email ON teams ("teamMember3ParentEmail");

CREATE TABLE IF NOT EXISTS bugs (
	id             UUID PRIMARY KEY,
	"teamName"     TEXT NOT NULL,
	author         TEXT NOT NULL,
	bug_number     INTEGER NOT NULL CHECK (bug_number > 0),
	description    TEXT NOT NULL,
	screenshot_url TEXT NOT NULL,
	timestamp      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS enhancements (
	id               UUID PRIMARY KEY,
	"teamName"       TEXT NOT NULL,
	author           TEXT NOT NULL,
	enhancement_type TEXT NOT NULL CHECK (enhancement_type IN ('basic', 'advanced')),
	justification    TEXT,
	description      TEXT NOT NULL,
	screenshot_url   TEXT NOT NULL,
	timestamp        TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (enhancement_type <> 'advanced' OR length(trim(coalesce(justification, ''))) > 0)
);

CREATE TABLE IF NOT EXISTS submissions (
	id              UUID PRIMARY KEY,
	"teamName"      TEXT NOT NULL,
	author          TEXT NOT NULL,
	submission_type TEXT NOT NULL CHECK (submission_type IN ('brainstorm map', 'presentation video')),
	description     TEXT,
	file_url        TEXT NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bugs_team_ts ON bugs ("teamName", timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_enhancements_team_ts ON enhancements ("teamName", timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_submissions_team_ts ON submissions ("teamName", timestamp DESC);

CREATE OR REPLACE VIEW team_member_emails AS
	SELECT "teamName", 'teacher' AS role, "teacherEmail" AS email FROM teams WHERE "teacherEmail" <> ''
	UNION ALL
	SELECT "teamName", 'member1', "teamMember1ParentEmail" FROM teams WHERE "teamMember1ParentEmail" <> ''
	UNION ALL
	SELECT "teamName", 'member2', "teamMember2ParentEmail" FROM teams WHERE "teamMember2ParentEmail" <> ''
	UNION ALL
	SELECT "teamName", 'member3', "teamMember3ParentEmail" FROM teams WHERE "teamMember3ParentEmail" <> '';
`

// DropSchema removes every table created by Schema
const DropSchema = `
DROP VIEW IF EXISTS team_member_emails;
DROP TABLE IF EXISTS submissions;
DROP TABLE IF EXISTS enhancements;
DROP TABLE IF EXISTS bugs;
DROP TABLE IF EXISTS teams;
`

// Migrate applies Schema
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Drop applies DropSchema
func Drop(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, DropSchema); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return nil
}

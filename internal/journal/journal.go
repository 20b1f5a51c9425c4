// Package journal persists access grants that were still open when a
// session ended, so they can be found and revoked later.
package journal

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/edvin/fleetctl/internal/model"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Reason records why a grant was journaled.
type Reason string

const (
	// ReasonLeftOpen marks grants the operator chose to keep open on exit.
	ReasonLeftOpen Reason = "left_open"
	// ReasonRevokeFailed marks grants whose revoke failed on exit.
	ReasonRevokeFailed Reason = "revoke_failed"
)

// Entry is a journaled grant.
type Entry struct {
	Grant       model.FleetAccessGrant `json:"grant"`
	Reason      Reason                 `json:"reason"`
	JournaledAt time.Time              `json:"journaled_at"`
}

// Journal is a SQLite-backed store of open grants.
type Journal struct {
	db  *sqlx.DB
	now func() time.Time
}

type grantRow struct {
	ID          string    `db:"id"`
	FleetID     string    `db:"fleet_id"`
	Purpose     string    `db:"purpose"`
	OpenedAt    time.Time `db:"opened_at"`
	JournaledAt time.Time `db:"journaled_at"`
	Reason      string    `db:"reason"`
}

type ruleRow struct {
	GrantID string `db:"grant_id"`
	model.AccessRule
}

// Open opens (creating if needed) the journal at path and applies migrations.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running journal migrations: %w", err)
	}

	return &Journal{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores a grant, replacing an earlier entry with the same ID.
func (j *Journal) Record(ctx context.Context, g model.FleetAccessGrant, reason Reason) error {
	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO grants (id, fleet_id, purpose, opened_at, journaled_at, reason)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET journaled_at = excluded.journaled_at, reason = excluded.reason`,
		g.ID, g.FleetID, string(g.Purpose), g.OpenedAt.UTC(), j.now(), string(reason))
	if err != nil {
		return fmt.Errorf("journal grant %s: %w", g.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM grant_rules WHERE grant_id = ?`, g.ID); err != nil {
		return fmt.Errorf("journal grant %s: %w", g.ID, err)
	}
	for i, r := range g.Rules {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO grant_rules (grant_id, position, fleet_id, from_port, to_port, source_range, transport)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			g.ID, i, r.FleetID, r.FromPort, r.ToPort, r.SourceRange, string(r.Transport))
		if err != nil {
			return fmt.Errorf("journal rule %s of grant %s: %w", r, g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal tx: %w", err)
	}
	return nil
}

// List returns all journaled grants, oldest first.
func (j *Journal) List(ctx context.Context) ([]Entry, error) {
	var grants []grantRow
	if err := j.db.SelectContext(ctx, &grants,
		`SELECT id, fleet_id, purpose, opened_at, journaled_at, reason
		 FROM grants ORDER BY journaled_at, id`); err != nil {
		return nil, fmt.Errorf("listing journaled grants: %w", err)
	}

	var rules []ruleRow
	if err := j.db.SelectContext(ctx, &rules,
		`SELECT grant_id, fleet_id, from_port, to_port, source_range, transport
		 FROM grant_rules ORDER BY grant_id, position`); err != nil {
		return nil, fmt.Errorf("listing journaled rules: %w", err)
	}
	byGrant := make(map[string][]model.AccessRule, len(grants))
	for _, r := range rules {
		byGrant[r.GrantID] = append(byGrant[r.GrantID], r.AccessRule)
	}

	entries := make([]Entry, 0, len(grants))
	for _, g := range grants {
		entries = append(entries, Entry{
			Grant: model.FleetAccessGrant{
				ID:       g.ID,
				FleetID:  g.FleetID,
				Purpose:  model.Purpose(g.Purpose),
				Rules:    byGrant[g.ID],
				OpenedAt: g.OpenedAt.UTC(),
			},
			Reason:      Reason(g.Reason),
			JournaledAt: g.JournaledAt.UTC(),
		})
	}
	return entries, nil
}

// Remove deletes the given grants and their rules. Unknown IDs are ignored.
func (j *Journal) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM grants WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("building journal delete: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, j.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("removing journaled grants: %w", err)
	}
	return nil
}

// Package database applies the plain-SQL schema migrations shipped
// under migrations/ at startup. Files ending in .up.sql run once each,
// in lexical order, inside their own transaction.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Migrator executes .up.sql files against the intake ledger database.
type Migrator struct {
	db  *sql.DB
	log *slog.Logger
}

// NewMigrator builds a Migrator logging through log.
func NewMigrator(db *sql.DB, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}

	return &Migrator{db: db, log: log}
}

// ApplyDir finds every *.up.sql file in dir and executes them in
// lexical order. Statements in one file share a transaction.
func (m *Migrator) ApplyDir(ctx context.Context, dir string) error {
	files, err := upMigrations(dir)
	if err != nil {
		return err
	}

	log := m.log.With(slog.String("dir", dir))
	if len(files) == 0 {
		log.Info("no migrations found")
		return nil
	}

	for _, path := range files {
		if err := m.apply(ctx, log, path); err != nil {
			return err
		}
	}

	return nil
}

func (m *Migrator) apply(ctx context.Context, log *slog.Logger, path string) error {
	log = log.With(slog.String("file", filepath.Base(path)))
	log.Info("applying migration")

	// #nosec G304: migration paths come from the deployment tree
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %q: %w", path, err)
	}

	statement := strings.TrimSpace(string(data))
	if statement == "" {
		log.Warn("empty migration, skipping")
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %q: %w", path, err)
	}

	if _, err := tx.ExecContext(ctx, statement); err != nil {
		m.rollback(log, tx)
		return fmt.Errorf("execute migration %q: %w", path, err)
	}

	if err := tx.Commit(); err != nil {
		m.rollback(log, tx)
		return fmt.Errorf("commit migration %q: %w", path, err)
	}

	return nil
}

func (m *Migrator) rollback(log *slog.Logger, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		log.Error("migration rollback failed", slog.Any("error", err))
	}
}

func upMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %q: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(files)

	return files, nil
}

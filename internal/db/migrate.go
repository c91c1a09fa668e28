package db

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// ApplyMigrationFile runs every statement in path. Statements are executed
// one at a time because the mysql driver rejects multi-statement Exec unless
// the DSN opts in.
func ApplyMigrationFile(db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	for _, stmt := range splitStatements(string(b)) {
		if _, err := db.Exec(stmt); err != nil && !isAlreadyExistsErr(err) {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		lines := strings.Split(part, "\n")
		kept := lines[:0]
		for _, ln := range lines {
			if strings.HasPrefix(strings.TrimSpace(ln), "--") {
				continue
			}
			kept = append(kept, ln)
		}
		stmt := strings.TrimSpace(strings.Join(kept, "\n"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func isAlreadyExistsErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "already exists")
}

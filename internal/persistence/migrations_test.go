package persistence

import (
	"strings"
	"testing"
)

func TestMigrationFilesAreOrderedAndEmbedded(t *testing.T) {
	files, err := MigrationFiles()
	if err != nil {
		t.Fatalf("MigrationFiles: %v", err)
	}
	if len(files) == 0 || files[0] != "0001_init.sql" {
		t.Fatalf("files = %v", files)
	}
	content, err := migrationsFS.ReadFile("sql/" + files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, table := range []string{"tickets", "ticket_comments", "notifications", "users", "teams", "projects", "ticket_history"} {
		if !strings.Contains(string(content), "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Fatalf("migration missing table %s", table)
		}
	}
}

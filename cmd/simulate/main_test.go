package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marketsim-server/internal/journal"
)

func TestRunPrintsRanking(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		turns:      3,
		computers:  2,
		seed:       11,
		journalDir: filepath.Join(dir, "journal"),
		archiveDB:  filepath.Join(dir, "archive.sqlite"),
		logLevel:   "error",
	}

	var out bytes.Buffer
	if err := run(context.Background(), opts, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	text := out.String()
	for _, want := range []string{"3 turns", "2 computer players", "seed 11", "Player *", "AI_Alpha", "AI_Beta"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}

	files, err := os.ReadDir(opts.journalDir)
	if err != nil || len(files) != 1 {
		t.Fatalf("journal files: %v %v", files, err)
	}
	entries, err := journal.ReadFile(filepath.Join(opts.journalDir, files[0].Name()))
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("journal entries: %d", len(entries))
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	err := run(context.Background(), options{turns: 0, computers: 1, seed: 1, logLevel: "error"}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for zero turns")
	}
}

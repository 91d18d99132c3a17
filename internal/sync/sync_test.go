package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aceit-study/aceit/internal/review"
	"github.com/aceit-study/aceit/internal/storage"
)

var now = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func writeDeck(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write deck file: %v", err)
	}
}

func TestRun(t *testing.T) {
	decksDir := t.TempDir()
	writeDeck(t, decksDir, "bio.deck", `
F: What is the powerhouse of the cell?
B: The mitochondria
S: Biology
---
F: What does DNA stand for?
B: Deoxyribonucleic acid
S: Biology
`)

	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	defer db.Close()

	if _, err := db.InsertSource(decksDir, "local"); err != nil {
		t.Fatalf("InsertSource() returned an unexpected error: %v", err)
	}

	store := review.NewStore(db)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	if err := Run(db, store, t.TempDir(), now); err != nil {
		t.Fatalf("Run() returned an unexpected error: %v", err)
	}

	cards, err := db.GetAllCards()
	if err != nil {
		t.Fatalf("GetAllCards() returned an unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards after sync, got %d", len(cards))
	}
	if store.Len() != 2 {
		t.Errorf("Expected 2 review records after backfill, got %d", store.Len())
	}

	t.Run("backfilled records are persisted", func(t *testing.T) {
		reloaded := review.NewStore(db)
		if err := reloaded.Load(); err != nil {
			t.Fatalf("Load() returned an unexpected error: %v", err)
		}
		if reloaded.Len() != 2 {
			t.Errorf("Expected 2 persisted records, got %d", reloaded.Len())
		}
	})

	t.Run("removed cards cascade to their review records", func(t *testing.T) {
		writeDeck(t, decksDir, "bio.deck", `
F: What is the powerhouse of the cell?
B: The mitochondria
S: Biology
`)
		if err := Run(db, store, t.TempDir(), now); err != nil {
			t.Fatalf("Run() returned an unexpected error: %v", err)
		}

		cards, _ := db.GetAllCards()
		if len(cards) != 1 {
			t.Fatalf("Expected 1 card after deck shrank, got %d", len(cards))
		}
		if store.Len() != 1 {
			t.Errorf("Expected 1 review record after cascade delete, got %d", store.Len())
		}
		if _, ok := store.Get(cards[0].ID); !ok {
			t.Error("Expected the surviving card to keep its review record")
		}
	})

	t.Run("re-running is idempotent", func(t *testing.T) {
		if err := Run(db, store, t.TempDir(), now); err != nil {
			t.Fatalf("Run() returned an unexpected error: %v", err)
		}
		cards, _ := db.GetAllCards()
		if len(cards) != 1 || store.Len() != 1 {
			t.Errorf("Expected stable state, got %d cards / %d records", len(cards), store.Len())
		}
	})
}

func TestRunWithNoSources(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	defer db.Close()

	store := review.NewStore(db)
	if err := Run(db, store, t.TempDir(), now); err != nil {
		t.Fatalf("Run() with no sources should be a no-op, got: %v", err)
	}
}

func TestGitURLToLocalPath(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		expected string
		wantErr  bool
	}{
		{
			name:     "https URL",
			url:      "https://github.com/someone/decks.git",
			expected: filepath.Join("repos", "github.com", "someone", "decks"),
		},
		{
			name:     "scp-style URL",
			url:      "git@github.com:someone/decks.git",
			expected: filepath.Join("repos", "github.com", "someone", "decks"),
		},
		{
			name:    "garbage",
			url:     "not a url at all",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := gitURLToLocalPath("repos", tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

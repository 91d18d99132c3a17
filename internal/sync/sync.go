// Package sync reconciles the flashcard collection against its configured
// deck sources, then backfills review records for any card that lacks one.
package sync

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aceit-study/aceit/internal/cardid"
	"github.com/aceit-study/aceit/internal/deck"
	"github.com/aceit-study/aceit/internal/gitsource"
	"github.com/aceit-study/aceit/internal/review"
	"github.com/aceit-study/aceit/internal/storage"
)

// deckExtensions are the file suffixes scanned for flashcards.
var deckExtensions = []string{".deck", ".md"}

// Run reconciles every configured source and backfills the review store.
// Deck-level problems are logged and counted, not fatal: one bad deck file
// must not stop the rest of the sync. Only a failing source listing or a
// failing review-map save is returned to the caller.
func Run(db *storage.DB, store *review.Store, reposDir string, now time.Time) error {
	slog.Info("Starting sync for all sources")
	sources, err := db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		scanPath := source.Path
		if source.Type == "git" {
			localRepoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("Cannot determine local path for deck repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(source.Path, localRepoPath); err != nil {
				slog.Error("Failed to sync deck repo", "url", source.Path, "error", err)
				continue
			}
			scanPath = localRepoPath
		}

		reconcileSource(db, store, source, scanPath)
	}

	// Lazy backfill: every card now in the collection gets a review record
	// the first time it is seen without one.
	cards, err := db.GetAllCards()
	if err != nil {
		return fmt.Errorf("failed to load cards for backfill: %w", err)
	}
	created := store.Reconcile(cards, now)
	if created > 0 {
		slog.Info("Initialized review records", "count", created)
	}
	if err := store.Save(); err != nil {
		return fmt.Errorf("failed to persist review records: %w", err)
	}

	slog.Info("Sync complete")
	return nil
}

// reconcileSource walks one source directory, inserting cards that are new
// and cascade-deleting cards (with their review records) that no longer
// exist in the source's deck files.
func reconcileSource(db *storage.DB, store *review.Store, source storage.Source, scanPath string) {
	foundIDs := make(map[string]bool)
	var parsed, inserted int
	var errs []error

	walkErr := filepath.WalkDir(scanPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDeckFile(d.Name()) {
			return nil
		}

		cards, parseErr := deck.ParseFile(path)
		if parseErr != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}

		for _, card := range cards {
			card.ID = cardid.For(card)
			card.SourceID = source.ID
			parsed++
			foundIDs[card.ID] = true

			existing, findErr := db.FindCardByID(card.ID)
			if findErr != nil {
				errs = append(errs, fmt.Errorf("db check for %s: %w", card.ID, findErr))
				continue
			}
			if existing == nil {
				if insertErr := db.InsertCard(card); insertErr != nil {
					errs = append(errs, fmt.Errorf("db insert for %s: %w", card.ID, insertErr))
					continue
				}
				inserted++
			}
		}
		return nil
	})
	if walkErr != nil {
		slog.Error("Error walking source directory", "path", scanPath, "error", walkErr)
		return
	}

	dbCards, err := db.GetCardsBySourceID(source.ID)
	if err != nil {
		slog.Error("Error getting cards for source", "source_id", source.ID, "error", err)
		return
	}

	var orphaned int
	for _, dbCard := range dbCards {
		if foundIDs[dbCard.ID] {
			continue
		}
		orphaned++
		if err := db.DeleteCard(dbCard.ID); err != nil {
			slog.Warn("Failed to delete removed card", "id", dbCard.ID, "error", err)
			continue
		}
		// Cascade: a review record must not outlive its flashcard.
		store.Delete(dbCard.ID)
	}

	if err := db.UpdateSourceLastScanned(source.ID); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("Reconciliation complete",
		"path", source.Path,
		"parsed_cards", parsed,
		"inserted", inserted,
		"orphaned_deleted", orphaned,
		"errors", len(errs),
	)
	for _, e := range errs {
		slog.Warn("Sync problem", "error", e)
	}
}

func isDeckFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range deckExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-style syntax: git@host:user/repo.git
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/aceit-study/aceit/internal/config"
	"github.com/aceit-study/aceit/internal/domain"
	"github.com/aceit-study/aceit/internal/review"
	"github.com/aceit-study/aceit/internal/session"
	"github.com/aceit-study/aceit/internal/srs"
	"github.com/aceit-study/aceit/internal/storage"
	"github.com/aceit-study/aceit/internal/sync"
)

func main() {
	defaults := config.Default()
	flags := flag.NewFlagSet("aceit", flag.ExitOnError)

	configPath := flags.String("config", "aceit.yaml", "Path to the YAML config file")
	flags.String("db_path", defaults.DBPath, "Path to the sqlite database file")
	flags.String("repos_dir", defaults.ReposDir, "Directory for git deck checkouts")
	flags.Int("daily_limit", defaults.DailyLimit, "Max cards per review session (0 = unlimited)")
	flags.Bool("smart_review", defaults.SmartReview, "Order sessions by due-ness and repetition count")

	addSource := flags.String("add-source", "", "Register a deck source (directory or git URL)")
	doSync := flags.Bool("sync", false, "Sync all deck sources and backfill review records")
	doReview := flags.Bool("review", false, "Start a review session")
	doStats := flags.Bool("stats", false, "Print review analytics")
	listDue := flags.Bool("list-due", false, "List the cards due for review")

	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := review.NewStore(db)
	if err := store.Load(); err != nil {
		// Recoverable: keep going on an empty in-memory map.
		slog.Warn("Could not load review records, starting empty", "error", err)
	}

	now := time.Now()

	switch {
	case *addSource != "":
		err = runAddSource(db, *addSource)
	case *doSync:
		err = sync.Run(db, store, cfg.ReposDir, now)
	case *doReview:
		err = runReview(db, store, cfg, now)
	case *doStats:
		runStats(store, now)
	case *listDue:
		err = runListDue(db, store, now)
	default:
		flags.Usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func runAddSource(db *storage.DB, path string) error {
	sourceType := "local"
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		sourceType = "git"
	}

	existing, err := db.FindSourceByPath(path)
	if err != nil {
		return err
	}
	if existing != nil {
		fmt.Printf("Source already registered: %s\n", path)
		return nil
	}

	id, err := db.InsertSource(path, sourceType)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s source %d: %s\n", sourceType, id, path)
	return nil
}

func runReview(db *storage.DB, store *review.Store, cfg config.Config, now time.Time) error {
	cards, err := db.GetAllCards()
	if err != nil {
		return err
	}
	store.Reconcile(cards, now)

	ctrl := session.NewController(store, db)
	var queue []domain.Flashcard
	if cfg.SmartReview {
		queue = ctrl.SmartQueue(cards, now)
	} else {
		queue = srsFilterDue(ctrl, cards, now)
	}
	if cfg.DailyLimit > 0 && len(queue) > cfg.DailyLimit {
		queue = queue[:cfg.DailyLimit]
	}
	if len(queue) == 0 {
		fmt.Println("Nothing due. Come back later.")
		return nil
	}

	sess, err := ctrl.Start(queue)
	if err != nil {
		return err
	}

	fmt.Printf("Reviewing %d cards. Grades: 1=incorrect, 3=hard, 4=hesitant, 5=perfect, q=quit.\n\n", len(queue))
	stdin := bufio.NewScanner(os.Stdin)

	for {
		card, ok := sess.Current()
		if !ok {
			break
		}

		fmt.Printf("[%d/%d] %s\n", sess.Index+1, len(sess.Queue), card.Front)
		fmt.Print("(press enter to reveal) ")
		if !stdin.Scan() {
			return nil
		}
		fmt.Printf("-> %s\n", card.Back)

		quality, quit := promptGrade(stdin)
		if quit {
			// Abandoning mid-session is fine: every answered card has
			// already been committed.
			fmt.Println("Session abandoned.")
			return nil
		}

		if err := ctrl.RecordAnswer(sess, card.ID, quality, time.Now()); err != nil {
			if errors.Is(err, session.ErrNoReviewRecord) {
				return err
			}
			slog.Warn("Answer recorded in memory but not fully persisted", "card", card.ID, "error", err)
		}
		fmt.Printf("Progress: %.0f%%\n\n", sess.Progress())
	}

	fmt.Println("Session complete.")
	runStats(store, now)
	return nil
}

func promptGrade(stdin *bufio.Scanner) (domain.Quality, bool) {
	for {
		fmt.Print("Grade [1/3/4/5/q]: ")
		if !stdin.Scan() {
			return 0, true
		}
		switch strings.TrimSpace(stdin.Text()) {
		case "1":
			return domain.QualityIncorrect, false
		case "3":
			return domain.QualityCorrectDifficult, false
		case "4":
			return domain.QualityCorrectHesitation, false
		case "5":
			return domain.QualityPerfect, false
		case "q":
			return 0, true
		}
		fmt.Println("Please enter 1, 3, 4, 5 or q.")
	}
}

func srsFilterDue(ctrl *session.Controller, cards []domain.Flashcard, now time.Time) []domain.Flashcard {
	// Collection order, due cards only.
	due := make(map[string]bool)
	for _, card := range ctrl.SmartQueue(cards, now) {
		due[card.ID] = true
	}
	var queue []domain.Flashcard
	for _, card := range cards {
		if due[card.ID] {
			queue = append(queue, card)
		}
	}
	return queue
}

func runStats(store *review.Store, now time.Time) {
	summary := srs.PerformanceAnalytics(store.All(), now)
	fmt.Printf("Due today:     %d\n", summary.DueToday)
	fmt.Printf("Overdue:       %d\n", summary.OverdueCards)
	fmt.Printf("Mastered:      %d\n", summary.MasteredCards)
	fmt.Printf("Average ease:  %.2f\n", summary.AverageEaseFactor)
}

func runListDue(db *storage.DB, store *review.Store, now time.Time) error {
	cards, err := db.GetAllCards()
	if err != nil {
		return err
	}
	store.Reconcile(cards, now)

	ctrl := session.NewController(store, db)
	queue := ctrl.SmartQueue(cards, now)
	if len(queue) == 0 {
		fmt.Println("Nothing due.")
		return nil
	}
	for _, card := range queue {
		rec, _ := store.Get(card.ID)
		fmt.Printf("%-10s %-40s due %s\n", card.Subject, truncate(card.Front, 40), rec.NextReviewDate.Format("2006-01-02"))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aceit-study/aceit/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// ErrCardNotFound is returned when an operation targets a card that is not
// in the collection.
var ErrCardNotFound = errors.New("card not found")

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// InsertCard inserts a new flashcard into the collection.
func (db *DB) InsertCard(card domain.Flashcard) error {
	_, err := db.conn.Exec(`
		INSERT INTO cards (id, front, back, subject, topic, difficulty, correct_count, total_attempts, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		card.Front,
		card.Back,
		card.Subject,
		card.Topic,
		string(card.Difficulty),
		card.CorrectCount,
		card.TotalAttempts,
		card.SourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// FindCardByID retrieves a flashcard by its ID, or nil when absent.
func (db *DB) FindCardByID(id string) (*domain.Flashcard, error) {
	row := db.conn.QueryRow(`
		SELECT id, front, back, subject, topic, difficulty, correct_count, total_attempts, source_id
		FROM cards WHERE id = ?
	`, id)

	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find card %s: %w", id, err)
	}
	return card, nil
}

// GetAllCards retrieves the whole flashcard collection.
func (db *DB) GetAllCards() ([]domain.Flashcard, error) {
	rows, err := db.conn.Query(`
		SELECT id, front, back, subject, topic, difficulty, correct_count, total_attempts, source_id
		FROM cards
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all cards: %w", err)
	}
	defer rows.Close()

	return collectCards(rows)
}

// GetCardsBySourceID retrieves every flashcard belonging to a source.
func (db *DB) GetCardsBySourceID(sourceID int64) ([]domain.Flashcard, error) {
	rows, err := db.conn.Query(`
		SELECT id, front, back, subject, topic, difficulty, correct_count, total_attempts, source_id
		FROM cards WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	return collectCards(rows)
}

// DeleteCard removes a flashcard from the collection.
func (db *DB) DeleteCard(id string) error {
	_, err := db.conn.Exec(`DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	return nil
}

// RecordAttempt bumps a card's attempt counters: total always, correct
// only on a pass. Counters never decrease.
func (db *DB) RecordAttempt(cardID string, correct bool) error {
	correctDelta := 0
	if correct {
		correctDelta = 1
	}
	result, err := db.conn.Exec(`
		UPDATE cards
		SET total_attempts = total_attempts + 1,
		    correct_count = correct_count + ?
		WHERE id = ?
	`, correctDelta, cardID)
	if err != nil {
		return fmt.Errorf("failed to record attempt for card %s: %w", cardID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}
	return nil
}

// Get implements the review store's key-value collaborator.
func (db *DB) Get(key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements the review store's key-value collaborator.
func (db *DB) Set(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Source represents a deck source, either a local path or a git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// InsertSource inserts a new deck source and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type, last_scanned)
		VALUES (?, ?, NULL)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path, or nil when absent.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all configured deck sources.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, type, last_scanned
		FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteSource removes a deck source. Its cards are left for the next
// reconciliation pass to clean up.
func (db *DB) DeleteSource(id int64) error {
	_, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	return nil
}

// UpdateSourceLastScanned stamps a source with its latest sync time.
func (db *DB) UpdateSourceLastScanned(sourceID int64) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Flashcard, error) {
	var card domain.Flashcard
	var difficulty string
	var sourceID sql.NullInt64
	err := row.Scan(
		&card.ID,
		&card.Front,
		&card.Back,
		&card.Subject,
		&card.Topic,
		&difficulty,
		&card.CorrectCount,
		&card.TotalAttempts,
		&sourceID,
	)
	if err != nil {
		return nil, err
	}
	card.Difficulty = domain.Difficulty(difficulty)
	card.SourceID = sourceID.Int64
	return &card, nil
}

func collectCards(rows *sql.Rows) ([]domain.Flashcard, error) {
	var cards []domain.Flashcard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

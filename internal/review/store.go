// Package review holds the authoritative in-memory mapping from card ID to
// review record and reconciles it against the flashcard collection.
package review

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aceit-study/aceit/internal/domain"
	"github.com/aceit-study/aceit/internal/srs"
)

// DefaultKey is the key the serialized review map is persisted under.
const DefaultKey = "review_records"

// KV is the external key-value collaborator the store persists through.
// Get reports whether the key was present; Set overwrites unconditionally.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Store maps card IDs to their review records for the active user.
// It is process-local mutable state; concurrent stores over the same
// persisted key are last-write-wins.
type Store struct {
	kv      KV
	key     string
	records map[string]domain.ReviewRecord
}

// NewStore creates an empty store persisting through kv under DefaultKey.
func NewStore(kv KV) *Store {
	return &Store{
		kv:      kv,
		key:     DefaultKey,
		records: make(map[string]domain.ReviewRecord),
	}
}

// Load replaces the in-memory map with the persisted one. It fails open:
// a missing key or unparsable payload leaves an empty map and returns nil,
// so the scheduler simply treats every card as new. Only a failing KV read
// is reported, and even then the store stays usable with an empty map.
func (s *Store) Load() error {
	s.records = make(map[string]domain.ReviewRecord)

	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		return fmt.Errorf("failed to load review records: %w", err)
	}
	if !ok {
		return nil
	}

	var records map[string]domain.ReviewRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		slog.Warn("Discarding malformed review records", "key", s.key, "error", err)
		return nil
	}
	s.records = records
	if s.records == nil {
		s.records = make(map[string]domain.ReviewRecord)
	}
	return nil
}

// Save writes the current map through the KV collaborator. A write failure
// is surfaced to the caller but does not disturb the in-memory state.
func (s *Store) Save() error {
	raw, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("failed to encode review records: %w", err)
	}
	if err := s.kv.Set(s.key, string(raw)); err != nil {
		return fmt.Errorf("failed to save review records: %w", err)
	}
	return nil
}

// Reconcile backfills a fresh review record for every flashcard that lacks
// one and returns how many were created. Existing records are never
// removed here, even when their card is absent from this particular load;
// cascade deletion on card removal is the caller's responsibility.
func (s *Store) Reconcile(cards []domain.Flashcard, now time.Time) int {
	created := 0
	for _, card := range cards {
		if _, ok := s.records[card.ID]; !ok {
			s.records[card.ID] = srs.Initialize(card.ID, now)
			created++
		}
	}
	return created
}

// Get returns the record for a card, if present.
func (s *Store) Get(cardID string) (domain.ReviewRecord, bool) {
	rec, ok := s.records[cardID]
	return rec, ok
}

// Put inserts or replaces the record for its card.
func (s *Store) Put(rec domain.ReviewRecord) {
	s.records[rec.CardID] = rec
}

// Delete removes a card's record. Used when the card itself is deleted.
func (s *Store) Delete(cardID string) {
	delete(s.records, cardID)
}

// All returns every record in the store. Order is unspecified.
func (s *Store) All() []domain.ReviewRecord {
	records := make([]domain.ReviewRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	return records
}

// Len reports how many records the store holds.
func (s *Store) Len() int {
	return len(s.records)
}

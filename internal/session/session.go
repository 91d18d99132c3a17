// Package session drives one study run: a walk through an ordered queue of
// flashcards, grading each answer and applying the scheduling result.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aceit-study/aceit/internal/domain"
	"github.com/aceit-study/aceit/internal/review"
	"github.com/aceit-study/aceit/internal/srs"
)

var (
	// ErrEmptyQueue is returned when a session is started with no cards.
	ErrEmptyQueue = errors.New("session queue is empty")
	// ErrNoReviewRecord indicates a card reached the session without a
	// review record. Reconciliation is supposed to guarantee presence, so
	// this is a bug upstream, not a recoverable condition.
	ErrNoReviewRecord = errors.New("no review record for card")
	// ErrSessionComplete is returned when answers are recorded against a
	// finished session.
	ErrSessionComplete = errors.New("session already complete")
)

// State is the lifecycle state of a session.
type State int

const (
	Idle State = iota
	Active
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// CardWriter writes attempt counters back to the flashcard collection.
type CardWriter interface {
	RecordAttempt(cardID string, correct bool) error
}

// Session is the state of one study run. A completed session is terminal;
// studying again means starting a new one.
type Session struct {
	ID    string
	Queue []domain.Flashcard
	Index int
	State State
}

// Progress reports completion as a percentage of the queue.
func (s *Session) Progress() float64 {
	if len(s.Queue) == 0 {
		return 0
	}
	return float64(s.Index) / float64(len(s.Queue)) * 100
}

// Current returns the card awaiting an answer, if the session is active.
func (s *Session) Current() (domain.Flashcard, bool) {
	if s.State != Active || s.Index >= len(s.Queue) {
		return domain.Flashcard{}, false
	}
	return s.Queue[s.Index], true
}

// Controller orchestrates sessions over a review store and the flashcard
// collection's counter writeback.
type Controller struct {
	store *review.Store
	cards CardWriter
}

// NewController wires a controller to its collaborators.
func NewController(store *review.Store, cards CardWriter) *Controller {
	return &Controller{store: store, cards: cards}
}

// Start begins a session over an already-ordered queue. Callers order the
// queue themselves, either by an explicit subject/topic selection or via
// SmartQueue. An empty queue is rejected.
func (c *Controller) Start(cards []domain.Flashcard) (*Session, error) {
	if len(cards) == 0 {
		return nil, ErrEmptyQueue
	}
	queue := make([]domain.Flashcard, len(cards))
	copy(queue, cards)
	return &Session{
		ID:    uuid.NewString(),
		Queue: queue,
		State: Active,
	}, nil
}

// SmartQueue builds the "smart review" queue: the due subset of the given
// cards, ordered by study priority. Review records without a matching
// flashcard are orphans and never enter a queue.
func (c *Controller) SmartQueue(cards []domain.Flashcard, now time.Time) []domain.Flashcard {
	byID := make(map[string]domain.Flashcard, len(cards))
	records := make([]domain.ReviewRecord, 0, len(cards))
	for _, card := range cards {
		if rec, ok := c.store.Get(card.ID); ok {
			byID[card.ID] = card
			records = append(records, rec)
		}
	}

	ordered := srs.StudyOrder(srs.DueCards(records, now))
	queue := make([]domain.Flashcard, 0, len(ordered))
	for _, rec := range ordered {
		queue = append(queue, byID[rec.CardID])
	}
	return queue
}

// RecordAnswer applies one graded answer: schedules the card's next
// review, persists the record, bumps the card's attempt counters, and
// advances the queue. The scheduling update always lands in memory first;
// persistence failures are returned to the caller but never roll it back.
// A missing review record aborts the session with ErrNoReviewRecord.
func (c *Controller) RecordAnswer(sess *Session, cardID string, quality domain.Quality, now time.Time) error {
	if sess.State == Complete {
		return ErrSessionComplete
	}

	rec, ok := c.store.Get(cardID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoReviewRecord, cardID)
	}

	c.store.Put(srs.ScheduleNextReview(rec, quality, now))

	sess.Index++
	if sess.Index >= len(sess.Queue) {
		sess.State = Complete
	}

	var persistErr error
	if err := c.store.Save(); err != nil {
		persistErr = err
	}
	if err := c.cards.RecordAttempt(cardID, quality.Correct()); err != nil {
		persistErr = errors.Join(persistErr, fmt.Errorf("failed to record attempt for %s: %w", cardID, err))
	}
	return persistErr
}

package session

import (
	"errors"
	"testing"
	"time"

	"github.com/aceit-study/aceit/internal/domain"
	"github.com/aceit-study/aceit/internal/review"
)

var now = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type memKV struct {
	data   map[string]string
	setErr error
}

func (m *memKV) Get(key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

type fakeCardWriter struct {
	attempts map[string]int
	correct  map[string]int
	err      error
}

func newFakeCardWriter() *fakeCardWriter {
	return &fakeCardWriter{attempts: make(map[string]int), correct: make(map[string]int)}
}

func (f *fakeCardWriter) RecordAttempt(cardID string, correct bool) error {
	if f.err != nil {
		return f.err
	}
	f.attempts[cardID]++
	if correct {
		f.correct[cardID]++
	}
	return nil
}

func newFixture(t *testing.T, cards ...domain.Flashcard) (*Controller, *review.Store, *fakeCardWriter, *memKV) {
	t.Helper()
	kv := &memKV{data: make(map[string]string)}
	store := review.NewStore(kv)
	store.Reconcile(cards, now)
	writer := newFakeCardWriter()
	return NewController(store, writer), store, writer, kv
}

func TestStart(t *testing.T) {
	t.Run("empty queue is rejected", func(t *testing.T) {
		ctrl, _, _, _ := newFixture(t)
		if _, err := ctrl.Start(nil); !errors.Is(err, ErrEmptyQueue) {
			t.Fatalf("Expected ErrEmptyQueue, got %v", err)
		}
	})

	t.Run("fresh session is active at the first card", func(t *testing.T) {
		cards := []domain.Flashcard{{ID: "a"}, {ID: "b"}}
		ctrl, _, _, _ := newFixture(t, cards...)

		sess, err := ctrl.Start(cards)
		if err != nil {
			t.Fatalf("Start() returned an unexpected error: %v", err)
		}
		if sess.State != Active {
			t.Errorf("Expected state active, got %v", sess.State)
		}
		if sess.ID == "" {
			t.Error("Expected a session ID")
		}
		if sess.Progress() != 0 {
			t.Errorf("Expected 0%% progress, got %v", sess.Progress())
		}
		current, ok := sess.Current()
		if !ok || current.ID != "a" {
			t.Errorf("Expected current card 'a', got %v (ok=%v)", current.ID, ok)
		}
	})
}

func TestRecordAnswer(t *testing.T) {
	cards := []domain.Flashcard{{ID: "a"}, {ID: "b"}}

	t.Run("walks the queue to completion", func(t *testing.T) {
		ctrl, store, writer, _ := newFixture(t, cards...)
		sess, _ := ctrl.Start(cards)

		if err := ctrl.RecordAnswer(sess, "a", domain.QualityPerfect, now); err != nil {
			t.Fatalf("RecordAnswer() returned an unexpected error: %v", err)
		}
		if sess.Progress() != 50 {
			t.Errorf("Expected 50%% progress, got %v", sess.Progress())
		}
		if sess.State != Active {
			t.Errorf("Expected state active mid-session, got %v", sess.State)
		}

		if err := ctrl.RecordAnswer(sess, "b", domain.QualityIncorrect, now); err != nil {
			t.Fatalf("RecordAnswer() returned an unexpected error: %v", err)
		}
		if sess.Progress() != 100 {
			t.Errorf("Expected 100%% progress, got %v", sess.Progress())
		}
		if sess.State != Complete {
			t.Errorf("Expected state complete, got %v", sess.State)
		}
		if _, ok := sess.Current(); ok {
			t.Error("Expected no current card after completion")
		}

		recA, _ := store.Get("a")
		if recA.Repetitions != 1 {
			t.Errorf("Expected card a scheduled with 1 repetition, got %d", recA.Repetitions)
		}
		recB, _ := store.Get("b")
		if recB.Repetitions != 0 || recB.Interval != 1 {
			t.Errorf("Expected card b lapsed, got %+v", recB)
		}

		if writer.attempts["a"] != 1 || writer.correct["a"] != 1 {
			t.Errorf("Expected one correct attempt on a, got %d/%d", writer.correct["a"], writer.attempts["a"])
		}
		if writer.attempts["b"] != 1 || writer.correct["b"] != 0 {
			t.Errorf("Expected one incorrect attempt on b, got %d/%d", writer.correct["b"], writer.attempts["b"])
		}
	})

	t.Run("completed session is terminal", func(t *testing.T) {
		ctrl, _, _, _ := newFixture(t, cards...)
		sess, _ := ctrl.Start(cards)
		ctrl.RecordAnswer(sess, "a", domain.QualityPerfect, now)
		ctrl.RecordAnswer(sess, "b", domain.QualityPerfect, now)

		err := ctrl.RecordAnswer(sess, "a", domain.QualityPerfect, now)
		if !errors.Is(err, ErrSessionComplete) {
			t.Fatalf("Expected ErrSessionComplete, got %v", err)
		}
	})

	t.Run("missing review record is fatal", func(t *testing.T) {
		ctrl, _, _, _ := newFixture(t, cards...)
		sess, _ := ctrl.Start([]domain.Flashcard{{ID: "unreconciled"}})

		err := ctrl.RecordAnswer(sess, "unreconciled", domain.QualityPerfect, now)
		if !errors.Is(err, ErrNoReviewRecord) {
			t.Fatalf("Expected ErrNoReviewRecord, got %v", err)
		}
		if sess.Index != 0 {
			t.Errorf("Session advanced past a fatal error: index %d", sess.Index)
		}
	})

	t.Run("persistence failure surfaces without losing scheduling", func(t *testing.T) {
		ctrl, store, _, kv := newFixture(t, cards...)
		kv.setErr = errors.New("storage offline")
		sess, _ := ctrl.Start(cards)

		err := ctrl.RecordAnswer(sess, "a", domain.QualityPerfect, now)
		if err == nil {
			t.Fatal("Expected a persistence error to surface")
		}
		if sess.Index != 1 {
			t.Errorf("Expected session to advance despite persistence failure, index %d", sess.Index)
		}
		rec, _ := store.Get("a")
		if rec.Repetitions != 1 {
			t.Errorf("Expected in-memory scheduling to stick, got %+v", rec)
		}
	})
}

func TestSmartQueue(t *testing.T) {
	cards := []domain.Flashcard{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	ctrl, store, _, _ := newFixture(t, cards...)

	// a: seasoned and overdue, b: new and due, c: not due yet.
	store.Put(domain.ReviewRecord{CardID: "a", Repetitions: 3, NextReviewDate: now.AddDate(0, 0, -2)})
	store.Put(domain.ReviewRecord{CardID: "b", Repetitions: 0, NextReviewDate: now})
	store.Put(domain.ReviewRecord{CardID: "c", Repetitions: 1, NextReviewDate: now.AddDate(0, 0, 3)})
	// Orphaned record: no matching flashcard, must never enter a queue.
	store.Put(domain.ReviewRecord{CardID: "ghost", NextReviewDate: now.AddDate(0, 0, -10)})

	queue := ctrl.SmartQueue(cards, now)

	if len(queue) != 2 {
		t.Fatalf("Expected 2 cards in the queue, got %d", len(queue))
	}
	if queue[0].ID != "b" || queue[1].ID != "a" {
		t.Errorf("Expected queue [b a], got [%s %s]", queue[0].ID, queue[1].ID)
	}
}

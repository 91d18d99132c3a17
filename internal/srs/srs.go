// Package srs implements the SM-2 spaced-repetition scheduling algorithm.
//
// Every function here is pure: records go in by value and come out by
// value, and the current time is always an explicit parameter so that
// date-dependent behavior stays deterministic under test.
package srs

import (
	"math"
	"sort"
	"time"

	"github.com/aceit-study/aceit/internal/domain"
)

const (
	// DefaultEaseFactor is the starting ease for a card that has never
	// been reviewed.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the hard floor the ease factor can never drop below.
	MinEaseFactor = 1.3
	// MasteryThreshold is the repetition streak at which a card counts
	// as mastered in analytics.
	MasteryThreshold = 5

	firstInterval  = 1
	secondInterval = 6
)

// Initialize creates a fresh review record for a card that has none yet.
// The card is immediately due.
func Initialize(cardID string, now time.Time) domain.ReviewRecord {
	return domain.ReviewRecord{
		CardID:         cardID,
		Repetitions:    0,
		EaseFactor:     DefaultEaseFactor,
		Interval:       firstInterval,
		NextReviewDate: now,
		LastReviewed:   now,
	}
}

// ScheduleNextReview applies one graded review to a record and returns the
// updated record. The input is never mutated.
//
// A grade below QualityCorrectDifficult is a lapse: the repetition streak
// and interval reset, the card comes back tomorrow. Successful reviews
// climb the 1, 6, round(interval*ease) day ladder, where the interval
// growth uses the ease factor as it stood before this review. The ease
// factor itself is adjusted on every review, lapse or not: it tracks how
// hard the learner finds the card, not whether the streak survived.
func ScheduleNextReview(rec domain.ReviewRecord, quality domain.Quality, now time.Time) domain.ReviewRecord {
	next := rec
	next.Repetitions++

	if !quality.Correct() {
		next.Repetitions = 0
		next.Interval = firstInterval
	} else {
		switch {
		case next.Repetitions == 1:
			next.Interval = firstInterval
		case next.Repetitions == 2:
			next.Interval = secondInterval
		default:
			next.Interval = int(math.Round(float64(rec.Interval) * rec.EaseFactor))
		}
	}

	q := float64(quality)
	ease := rec.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if ease < MinEaseFactor {
		ease = MinEaseFactor
	}
	next.EaseFactor = ease

	next.NextReviewDate = now.AddDate(0, 0, next.Interval)
	next.LastReviewed = now
	return next
}

// DueCards returns the records whose next review date has arrived.
// Comparison is at calendar-day granularity: a card due today is due all
// day, regardless of the time of day it was scheduled. The returned slice
// is freshly allocated; order is whatever the input order was.
func DueCards(records []domain.ReviewRecord, now time.Time) []domain.ReviewRecord {
	today := dateOf(now)
	var due []domain.ReviewRecord
	for _, r := range records {
		if !dateOf(r.NextReviewDate).After(today) {
			due = append(due, r)
		}
	}
	return due
}

// StudyOrder sorts due records into presentation order: fewest successful
// repetitions first (new and troublesome cards lead), ties broken by the
// earlier next review date (more overdue first). The sort is stable, so
// records equal on both keys keep their input order.
func StudyOrder(records []domain.ReviewRecord) []domain.ReviewRecord {
	ordered := make([]domain.ReviewRecord, len(records))
	copy(ordered, records)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Repetitions != ordered[j].Repetitions {
			return ordered[i].Repetitions < ordered[j].Repetitions
		}
		return ordered[i].NextReviewDate.Before(ordered[j].NextReviewDate)
	})
	return ordered
}

// PerformanceAnalytics summarizes the full record set. DueToday counts
// records due exactly today; OverdueCards counts records whose due date
// has already passed. An empty set yields a zero summary.
func PerformanceAnalytics(records []domain.ReviewRecord, now time.Time) domain.AnalyticsSummary {
	var summary domain.AnalyticsSummary
	today := dateOf(now)

	var easeSum float64
	for _, r := range records {
		due := dateOf(r.NextReviewDate)
		switch {
		case due.Equal(today):
			summary.DueToday++
		case due.Before(today):
			summary.OverdueCards++
		}
		if r.Repetitions >= MasteryThreshold {
			summary.MasteredCards++
		}
		easeSum += r.EaseFactor
	}

	if len(records) > 0 {
		summary.AverageEaseFactor = easeSum / float64(len(records))
	}
	return summary
}

// dateOf truncates a timestamp to its calendar day.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

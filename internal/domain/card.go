package domain

import "time"

// Difficulty is the author-assigned difficulty of a flashcard.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Flashcard represents a single front-back study card.
// CorrectCount and TotalAttempts only ever grow; they are the coarse
// correct/incorrect tally, independent of the scheduler's finer state.
type Flashcard struct {
	ID            string
	Front         string
	Back          string
	Subject       string
	Topic         string
	Difficulty    Difficulty
	CorrectCount  int
	TotalAttempts int
	SourceID      int64
}

// Quality is the learner's self-assessed recall grade on the 0-5 SM-2
// scale. The review UI only ever emits Incorrect, CorrectDifficult,
// CorrectHesitation and Perfect, but the scheduler accepts the full range.
type Quality int

const (
	// Complete blackout, no recall at all.
	QualityBlackout Quality = 0
	// Incorrect, but the answer was recognized once shown.
	QualityIncorrect Quality = 1
	// Incorrect, though the answer felt familiar.
	QualityIncorrectFamiliar Quality = 2
	// Correct, with significant effort.
	QualityCorrectDifficult Quality = 3
	// Correct, after some hesitation.
	QualityCorrectHesitation Quality = 4
	// Perfect recall.
	QualityPerfect Quality = 5
)

// Correct reports whether the grade counts as a pass. Grades below
// CorrectDifficult are lapses.
func (q Quality) Correct() bool {
	return q >= QualityCorrectDifficult
}

// ReviewRecord is the per-card spaced-repetition state.
type ReviewRecord struct {
	CardID         string    `json:"id"`
	Repetitions    int       `json:"repetitions"`
	EaseFactor     float64   `json:"easeFactor"`
	Interval       int       `json:"interval"`
	NextReviewDate time.Time `json:"nextReviewDate"`
	LastReviewed   time.Time `json:"lastReviewed"`
}

// AnalyticsSummary aggregates review state across the whole collection,
// not just the due subset.
type AnalyticsSummary struct {
	DueToday          int
	OverdueCards      int
	MasteredCards     int
	AverageEaseFactor float64
}

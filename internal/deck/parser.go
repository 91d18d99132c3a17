// Package deck parses flashcard deck files. A deck is a plain text file of
// prefixed lines:
//
//	F: What does CPU stand for?
//	B: Central Processing Unit
//	S: Computer Science
//	T: Hardware
//	D: easy
//
// Front and back fields may span multiple lines; cards are separated by a
// new F: line or an explicit "---" separator.
package deck

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/aceit-study/aceit/internal/domain"
)

const (
	frontPrefix      = "F:"
	backPrefix       = "B:"
	subjectPrefix    = "S:"
	topicPrefix      = "T:"
	difficultyPrefix = "D:"
	separator        = "---"
)

type field int

const (
	seeking field = iota
	readingFront
	readingBack
	readingSubject
	readingTopic
	readingDifficulty
)

// ParseFile reads a deck file and extracts its flashcards.
func ParseFile(path string) ([]domain.Flashcard, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a deck from r and extracts its flashcards. Cards without a
// front are dropped; a missing difficulty defaults to medium.
func Parse(r io.Reader) ([]domain.Flashcard, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Flashcard
	var card domain.Flashcard
	var block []string
	current := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch current {
		case readingFront:
			card.Front = content
		case readingBack:
			card.Back = content
		case readingSubject:
			card.Subject = content
		case readingTopic:
			card.Topic = content
		case readingDifficulty:
			card.Difficulty = parseDifficulty(content)
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if card.Front != "" {
			if card.Difficulty == "" {
				card.Difficulty = domain.Medium
			}
			cards = append(cards, card)
		}
		card = domain.Flashcard{}
		current = seeking
	}

	prefixes := []struct {
		prefix string
		field  field
	}{
		{frontPrefix, readingFront},
		{backPrefix, readingBack},
		{subjectPrefix, readingSubject},
		{topicPrefix, readingTopic},
		{difficultyPrefix, readingDifficulty},
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == separator {
			finishCard()
			continue
		}

		matched := false
		for _, p := range prefixes {
			if !strings.HasPrefix(line, p.prefix) {
				continue
			}
			flushBlock()
			if p.field == readingFront && current != seeking {
				// A new front always starts a new card.
				finishCard()
			}
			current = p.field
			content := strings.TrimPrefix(line, p.prefix)
			content = strings.TrimPrefix(content, " ")
			block = append(block, content)
			matched = true
			break
		}

		if !matched && current != seeking {
			block = append(block, line)
		}
	}

	finishCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

func parseDifficulty(s string) domain.Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return domain.Easy
	case "hard":
		return domain.Hard
	default:
		return domain.Medium
	}
}

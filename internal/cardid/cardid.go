// Package cardid derives stable flashcard identifiers from card content.
// Cards imported from deck files carry no IDs of their own, so the ID is a
// hash of the normalized content: the same card parsed from the same deck
// always resolves to the same review record.
package cardid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/aceit-study/aceit/internal/domain"
)

// Normalize joins the identity-bearing fields of a card after cleaning
// each one: lowercased, trimmed, line endings unified. Fields are joined
// with newlines so adjacent fields can never run together.
func Normalize(card domain.Flashcard) string {
	clean := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		return strings.ReplaceAll(p, "\r\n", "\n")
	}
	return strings.Join([]string{
		clean(card.Front),
		clean(card.Back),
		clean(card.Subject),
		clean(card.Topic),
	}, "\n")
}

// For returns the card's identifier: the SHA-256 of its normalized
// content, hex encoded.
func For(card domain.Flashcard) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}

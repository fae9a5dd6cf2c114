package deck

import "errors"

var ErrNotFound = errors.New("deck not found")

// Flashcard is a single term/definition pair.
type Flashcard struct {
	Term       string
	Definition string
}

// Deck is a named, owned collection of flashcards.
type Deck struct {
	ID      string
	OwnerID string
	Name    string
	Cards   []Flashcard
}

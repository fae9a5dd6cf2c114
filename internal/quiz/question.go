package quiz

import (
	"math/rand/v2"

	"github.com/quizspire/quizspire-server/internal/deck"
)

// GenerateQuestions builds one multiple-choice question per flashcard:
// the term is the prompt, the card's own definition plus three
// distractor definitions from other cards are the options. Question
// order and option positions are shuffled. Decks with fewer than four
// cards repeat distractors to fill the option slots.
func GenerateQuestions(d *deck.Deck) []Question {
	defs := make([]string, len(d.Cards))
	for i, c := range d.Cards {
		defs[i] = c.Definition
	}

	qs := make([]Question, 0, len(d.Cards))
	for i, card := range d.Cards {
		pool := make([]string, 0, optionCount)
		pool = append(pool, card.Definition)
		pool = append(pool, pickDistractors(defs, i, optionCount-1)...)

		q := Question{Prompt: card.Term, Options: make([]string, optionCount)}
		for slot, src := range rand.Perm(optionCount) {
			q.Options[slot] = pool[src]
			if src == 0 {
				q.CorrectIndex = slot
			}
		}
		qs = append(qs, q)
	}
	rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	return qs
}

// pickDistractors draws n definitions from defs excluding index skip,
// without replacement while possible. A single-card deck falls back to
// repeating the card's own definition.
func pickDistractors(defs []string, skip, n int) []string {
	others := make([]string, 0, len(defs)-1)
	for i, d := range defs {
		if i != skip {
			others = append(others, d)
		}
	}
	if len(others) == 0 {
		out := make([]string, n)
		for i := range out {
			out[i] = defs[skip]
		}
		return out
	}
	rand.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
	out := make([]string, 0, n)
	for len(out) < n {
		for _, d := range others {
			out = append(out, d)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

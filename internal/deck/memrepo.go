package deck

import (
	"context"
	"sync"
)

// MemRepository is an in-memory Repository for tests and local runs.
type MemRepository struct {
	mu    sync.RWMutex
	decks map[string]*Deck
}

func NewMemRepository() *MemRepository {
	return &MemRepository{decks: make(map[string]*Deck)}
}

func (r *MemRepository) Put(d *Deck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decks[d.ID] = d
}

func (r *MemRepository) GetDeck(_ context.Context, deckID, ownerID string) (*Deck, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decks[deckID]
	if !ok || d.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	cp := *d
	cp.Cards = append([]Flashcard(nil), d.Cards...)
	return &cp, nil
}

package deck

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository looks decks up for the quiz engine. The Postgres
// implementation is the production one; tests use MemRepository.
type Repository interface {
	// GetDeck returns the deck only when it exists and belongs to
	// ownerID; otherwise ErrNotFound.
	GetDeck(ctx context.Context, deckID, ownerID string) (*Deck, error)
}

type PGRepository struct {
	db *sql.DB
}

func NewPGRepository(databaseURL string) (*PGRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &PGRepository{db: db}, nil
}

func (r *PGRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PGRepository) GetDeck(ctx context.Context, deckID, ownerID string) (*Deck, error) {
	d := &Deck{}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name FROM decks WHERE id = $1 AND owner_id = $2`,
		deckID, ownerID)
	if err := row.Scan(&d.ID, &d.OwnerID, &d.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT term, definition FROM flashcards WHERE deck_id = $1 ORDER BY position`,
		deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Flashcard
		if err := rows.Scan(&c.Term, &c.Definition); err != nil {
			return nil, err
		}
		d.Cards = append(d.Cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

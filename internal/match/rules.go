package match

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Position wraps the rule engine for one game. Moves are accepted in
// UCI or SAN; UCI is tried first because engine clients emit it.
type Position struct {
	game *nchess.Game
}

func NewPosition() *Position {
	return &Position{game: nchess.NewGame()}
}

func (p *Position) FEN() string { return p.game.FEN() }

func (p *Position) SideToMove() Color {
	if p.game.Position().Turn() == nchess.White {
		return White
	}
	return Black
}

// Apply validates and plays one move. ErrInvalidMove covers both
// unparsable notation and legal-parse-illegal-position moves.
func (p *Position) Apply(raw string) error {
	mv := strings.TrimSpace(raw)
	if mv == "" {
		return ErrInvalidMove
	}
	pos := p.game.Position()
	notationUCI := nchess.UCINotation{}
	if decoded, derr := notationUCI.Decode(pos, strings.ToLower(mv)); derr == nil {
		if err := p.game.Move(decoded, nil); err != nil {
			return ErrInvalidMove
		}
		return nil
	}
	if err := p.game.PushNotationMove(mv, nchess.AlgebraicNotation{}, nil); err != nil {
		return ErrInvalidMove
	}
	return nil
}

// Outcome reports the terminal state of the position, if any.
type Outcome struct {
	Over      bool
	Winner    Color // meaningful only when Over && Checkmate
	Checkmate bool
}

func (p *Position) Outcome() Outcome {
	switch p.game.Outcome() {
	case nchess.WhiteWon:
		return Outcome{Over: true, Winner: White, Checkmate: p.game.Method() == nchess.Checkmate}
	case nchess.BlackWon:
		return Outcome{Over: true, Winner: Black, Checkmate: p.game.Method() == nchess.Checkmate}
	case nchess.Draw:
		return Outcome{Over: true}
	}
	return Outcome{}
}

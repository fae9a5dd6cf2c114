package rtproto

import "encoding/json"

// Event is the wire envelope for every message in both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an envelope. A nil payload yields an
// envelope with no data field.
func NewEvent(event string, payload any) (Event, error) {
	if payload == nil {
		return Event{Event: event}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Event: event, Data: raw}, nil
}

// Inbound event names (chess).
const (
	EvBid         = "bid"
	EvMove        = "move"
	EvResign      = "resign"
	EvOfferDraw   = "offer_draw"
	EvAcceptDraw  = "accept_draw"
	EvDeclineDraw = "decline_draw"
)

// Inbound event names (quizspire).
const (
	EvCreateLobby  = "create_lobby"
	EvJoinLobby    = "join_lobby"
	EvStartGame    = "start_game"
	EvSubmitAnswer = "submit_answer"
	EvLeaveLobby   = "leave_lobby"
	EvRestartGame  = "restart_game"
	EvKickPlayer   = "kick_player"
)

// Outbound event names (chess).
const (
	EvWaiting              = "waiting"
	EvPaired               = "paired"
	EvBiddingTimeUpdate    = "bidding_time_update"
	EvStart                = "start"
	EvTimeUpdate           = "time_update"
	EvUpdate               = "update"
	EvWin                  = "win"
	EvDraw                 = "draw"
	EvDrawOffered          = "draw_offered"
	EvDrawOfferSent        = "draw_offer_sent"
	EvDrawDeclined         = "draw_declined"
	EvDrawOfferCancelled   = "draw_offer_cancelled"
	EvOpponentDisconnected = "opponent_disconnected"
	EvError                = "error"
)

// Outbound event names (quizspire).
const (
	EvLobbyCreated      = "lobby_created"
	EvLobbyJoined       = "lobby_joined"
	EvLobbyUpdate       = "lobby_update"
	EvQuestion          = "question"
	EvAnswerFeedback    = "answer_feedback"
	EvQuestionResults   = "question_results"
	EvLeaderboardUpdate = "leaderboard_update"
	EvGameEnded         = "game_ended"
	EvKicked            = "kicked"
)

// --- chess payloads ---

type Bid struct {
	Time float64 `json:"time"`
}

type Move struct {
	Move string `json:"move"`
}

type Waiting struct {
	Message string `json:"message"`
}

type Paired struct {
	Opponent string `json:"opponent"`
}

type BiddingTimeUpdate struct {
	TimeLeft int `json:"timeLeft"`
}

type Start struct {
	FEN       string `json:"fen"`
	YourColor string `json:"your_color"`
	Opponent  string `json:"opponent"`
	Time      int    `json:"time"`
	WhiteTime int    `json:"whiteTime"`
	BlackTime int    `json:"blackTime"`
}

type TimeUpdate struct {
	WhiteTime int `json:"whiteTime"`
	BlackTime int `json:"blackTime"`
}

type Update struct {
	FEN string `json:"fen"`
}

type Win struct {
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

type Draw struct {
	Reason string `json:"reason"`
}

type DrawOffered struct {
	From string `json:"from"`
}

type OpponentDisconnected struct {
	Message string `json:"message"`
}

type Error struct {
	Message string `json:"message"`
}

// --- quizspire payloads ---

// Settings mirrors the client-facing Quizspire settings object.
type Settings struct {
	WinCondition      string `json:"winCondition"`
	Threshold         int    `json:"threshold,omitempty"`
	ResetOnIncorrect  bool   `json:"resetOnIncorrect"`
	QuestionTimeLimit int    `json:"questionTimeLimit"`
	AllowLateJoin     bool   `json:"allowLateJoin"`
	HostParticipates  bool   `json:"hostParticipates"`
}

type CreateLobby struct {
	DeckID   string   `json:"deckId"`
	Settings Settings `json:"settings"`
}

type JoinLobby struct {
	Code     string `json:"code"`
	Username string `json:"username,omitempty"`
}

type StartGame struct {
	Settings *Settings `json:"settings,omitempty"`
}

type SubmitAnswer struct {
	SelectedIndex int `json:"selectedIndex"`
}

type KickPlayer struct {
	UserID string `json:"userId"`
}

type LobbyCreated struct {
	Code string `json:"code"`
}

type LobbyJoined struct {
	Code string `json:"code"`
}

type LobbyPlayer struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	IsHost         bool   `json:"isHost"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
}

type LobbyUpdate struct {
	Code     string        `json:"code"`
	Players  []LobbyPlayer `json:"players"`
	Status   string        `json:"status"`
	DeckID   string        `json:"deckId"`
	Settings Settings      `json:"settings"`
}

type Question struct {
	QuestionIndex int      `json:"questionIndex"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	TimeLimit     int      `json:"timeLimit"`
}

type AnswerFeedback struct {
	IsCorrect     bool `json:"isCorrect"`
	PointsGained  int  `json:"pointsGained"`
	CorrectIndex  int  `json:"correctIndex"`
	SelectedIndex int  `json:"selectedIndex"`
}

// PlayerResult reports one player's outcome for a single question.
// TimeElapsed is nil when the player never answered.
type PlayerResult struct {
	UserID        string   `json:"userId"`
	Username      string   `json:"username"`
	SelectedIndex int      `json:"selectedIndex"`
	IsCorrect     bool     `json:"isCorrect"`
	TimeElapsed   *float64 `json:"timeElapsed,omitempty"`
	Score         int      `json:"score"`
}

type QuestionResults struct {
	QuestionIndex int            `json:"questionIndex"`
	CorrectIndex  int            `json:"correctIndex"`
	Results       []PlayerResult `json:"results"`
}

type LeaderboardEntry struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
}

type LeaderboardUpdate struct {
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
	WinCondition string             `json:"winCondition"`
	Threshold    int                `json:"threshold"`
}

type GameEnded struct {
	Reason      string             `json:"reason"`
	FinalScores []LeaderboardEntry `json:"finalScores"`
	Winner      *LeaderboardEntry  `json:"winner,omitempty"`
}

type Kicked struct {
	Reason string `json:"reason"`
}

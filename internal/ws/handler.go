package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/quizspire/quizspire-server/internal/auth"
	"github.com/quizspire/quizspire-server/internal/match"
	"github.com/quizspire/quizspire-server/internal/msgcat"
	"github.com/quizspire/quizspire-server/internal/obslog"
	"github.com/quizspire/quizspire-server/internal/quiz"
	"github.com/quizspire/quizspire-server/pkg/rtproto"
)

// ChessHandler serves /ws/chess. Connections must present a valid
// token; unauthenticated channels are closed immediately.
func ChessHandler(coord *match.Coordinator, verifier *auth.Verifier, cat *msgcat.Catalog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			obslog.L().Warn("ws_accept_error", zap.String("path", r.URL.Path), zap.Error(err))
			return
		}
		ident, err := verifier.Resolve(r.URL.Query().Get("token"))
		if err != nil {
			_ = conn.Close(websocket.StatusPolicyViolation, "authentication required")
			return
		}
		ch := newChannel(r.Context(), conn)
		defer ch.close()
		obslog.L().Info("ws_connect",
			zap.String("path", r.URL.Path),
			zap.String("channel", ch.ID()),
			zap.String("user_id", ident.UserID))

		coord.Enqueue(ident.UserID, ident.Username, ch)
		defer coord.Disconnect(ch.ID())

		readChess(r.Context(), conn, ch, coord, cat)
		obslog.L().Info("ws_disconnect", zap.String("channel", ch.ID()))
	})
}

func readChess(ctx context.Context, conn *websocket.Conn, ch *Channel, coord *match.Coordinator, cat *msgcat.Catalog) {
	for {
		var ev rtproto.Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return
		}
		switch ev.Event {
		case rtproto.EvBid:
			var p rtproto.Bid
			if !decode(ch, cat, ev.Data, &p) {
				continue
			}
			coord.SubmitBid(ch, p.Time)
		case rtproto.EvMove:
			var p rtproto.Move
			if !decode(ch, cat, ev.Data, &p) {
				continue
			}
			coord.SubmitMove(ch, p.Move)
		case rtproto.EvResign:
			coord.Resign(ch)
		case rtproto.EvOfferDraw:
			coord.OfferDraw(ch)
		case rtproto.EvAcceptDraw:
			coord.AcceptDraw(ch)
		case rtproto.EvDeclineDraw:
			coord.DeclineDraw(ch)
		default:
			ch.Send(rtproto.EvError, rtproto.Error{Message: cat.Text("common.unknown_event")})
		}
	}
}

// QuizHandler serves /ws/quizspire. A missing or invalid token degrades
// to a guest identity instead of closing the connection.
func QuizHandler(coord *quiz.Coordinator, verifier *auth.Verifier, cat *msgcat.Catalog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			obslog.L().Warn("ws_accept_error", zap.String("path", r.URL.Path), zap.Error(err))
			return
		}
		ch := newChannel(r.Context(), conn)
		defer ch.close()
		ident, err := verifier.Resolve(r.URL.Query().Get("token"))
		if err != nil {
			ident = auth.GuestIdentity(ch.ID(), "")
		}
		obslog.L().Info("ws_connect",
			zap.String("path", r.URL.Path),
			zap.String("channel", ch.ID()),
			zap.String("user_id", ident.UserID),
			zap.Bool("guest", ident.Guest))

		defer coord.Disconnect(ch.ID())
		readQuiz(r.Context(), conn, ch, ident, coord, cat)
		obslog.L().Info("ws_disconnect", zap.String("channel", ch.ID()))
	})
}

func readQuiz(ctx context.Context, conn *websocket.Conn, ch *Channel, ident *auth.Identity, coord *quiz.Coordinator, cat *msgcat.Catalog) {
	for {
		var ev rtproto.Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return
		}
		switch ev.Event {
		case rtproto.EvCreateLobby:
			var p rtproto.CreateLobby
			if !decode(ch, cat, ev.Data, &p) {
				continue
			}
			coord.CreateLobby(ctx, ident, ch, p.DeckID, p.Settings)
		case rtproto.EvJoinLobby:
			var p rtproto.JoinLobby
			if !decode(ch, cat, ev.Data, &p) {
				continue
			}
			coord.JoinLobby(ident, ch, p.Code, p.Username)
		case rtproto.EvStartGame:
			var p rtproto.StartGame
			if !decode(ch, cat, ev.Data, &p) {
				continue
			}
			coord.StartGame(ctx, ch, p.Settings)
		case rtproto.EvSubmitAnswer:
			var p rtproto.SubmitAnswer
			if !decode(ch, cat, ev.Data, &p) {
				continue
			}
			coord.SubmitAnswer(ch, p.SelectedIndex)
		case rtproto.EvLeaveLobby:
			coord.LeaveLobby(ch)
		case rtproto.EvRestartGame:
			coord.RestartGame(ctx, ch)
		case rtproto.EvKickPlayer:
			var p rtproto.KickPlayer
			if !decode(ch, cat, ev.Data, &p) {
				continue
			}
			coord.KickPlayer(ch, p.UserID)
		default:
			ch.Send(rtproto.EvError, rtproto.Error{Message: cat.Text("common.unknown_event")})
		}
	}
}

// decode unmarshals an event payload, reporting a protocol error to the
// client on failure. Events with no payload decode from empty data.
func decode(ch *Channel, cat *msgcat.Catalog, data json.RawMessage, dst any) bool {
	if len(data) == 0 {
		return true
	}
	if err := json.Unmarshal(data, dst); err != nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: cat.Text("common.bad_payload")})
		return false
	}
	return true
}

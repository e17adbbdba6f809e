package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const playbackReadLimit = 4096

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PlaybackMessage is exchanged on the playback websocket.
// Clients send "tick" and "complete"; the server answers with "connected",
// "progress" and "error".
type PlaybackMessage struct {
	Type           string      `json:"type"`
	SessionID      string      `json:"sessionId,omitempty"`
	CurrentTime    float64     `json:"currentTime,omitempty"`
	Duration       float64     `json:"duration,omitempty"`
	ResumePosition float64     `json:"resumePosition,omitempty"`
	Progress       interface{} `json:"progress,omitempty"`
	Message        string      `json:"message,omitempty"`
}

// handlePlaybackWS streams playback ticks for one kata. Ticks are applied in
// arrival order by this goroutine; closing the socket stops tracking.
func (s *Server) handlePlaybackWS(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	kata, ok := s.accessibleKata(w, r, sess)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(playbackReadLimit)

	playbackID := uuid.NewString()
	logger := s.logger.With("playback_id", playbackID, "kata_id", kata.ID, "state_key", sess.Key())
	logger.Info("playback websocket connected")

	// Saves must outlive the upgraded request
	ctx := context.WithoutCancel(r.Context())

	if err := s.sendPlaybackMessage(conn, PlaybackMessage{
		Type:           "connected",
		SessionID:      playbackID,
		ResumePosition: sess.ResumePosition(kata.ID),
		Progress:       sess.Progress(kata.ID),
	}); err != nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", "error", err)
			}
			break
		}

		var msg PlaybackMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Debug("invalid message format", "error", err)
			s.sendPlaybackError(conn, "invalid message format")
			continue
		}

		switch msg.Type {
		case "tick":
			p, err := sess.UpdateProgress(ctx, kata.ID, msg.CurrentTime, msg.Duration)
			if err != nil {
				s.sendPlaybackError(conn, err.Error())
				continue
			}
			err = s.sendPlaybackMessage(conn, PlaybackMessage{Type: "progress", Progress: p})
			if err != nil {
				return
			}
		case "complete":
			p, ok := sess.MarkCompleted(ctx, kata.ID)
			if !ok {
				s.sendPlaybackError(conn, "kata has no progress to complete")
				continue
			}
			if err := s.sendPlaybackMessage(conn, PlaybackMessage{Type: "progress", Progress: p}); err != nil {
				return
			}
		default:
			s.sendPlaybackError(conn, "unknown message type: "+msg.Type)
		}
	}

	logger.Info("playback websocket disconnected")
}

func (s *Server) sendPlaybackMessage(conn *websocket.Conn, msg PlaybackMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) sendPlaybackError(conn *websocket.Conn, message string) {
	s.sendPlaybackMessage(conn, PlaybackMessage{
		Type:    "error",
		Message: message,
	})
}

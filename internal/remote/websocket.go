package remote

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/verte-zerg/punchcall/internal/session"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one websocket frame: the event that triggered it and the
// snapshot taken right after.
type Message struct {
	Event    session.EventType `json:"event"`
	Snapshot session.Snapshot  `json:"snapshot"`
}

// WebsocketHandler streams a snapshot on connect and after every engine event.
func (s *Server) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			// Best-effort close of a finished stream.
			_ = cerr
		}
	}()

	sub := s.engine.Subscribe(32)
	defer s.engine.Unsubscribe(sub)

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.writeMessage(conn, Message{Event: "snapshot", Snapshot: s.engine.Snapshot()}); err != nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := s.writeMessage(conn, Message{Event: ev.Type, Snapshot: s.engine.Snapshot()}); err != nil {
				s.logger.Debug("websocket closed", slog.Any("error", err))
				return
			}
		}
	}
}

func (s *Server) writeMessage(conn *websocket.Conn, msg Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

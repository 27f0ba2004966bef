package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"lyrics-viewer/internal/ipc"
	"lyrics-viewer/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4096
)

// viewer 一个会话及其所有连接
type viewer struct {
	sess *session.Session
	hub  *ipc.Hub
}

// hello 连接建立后第一条消息，告知会话 id
type hello struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// handleSessionWS 带 ?session=<id> 时加入已有会话（多屏同步），否则新建
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	v, client := s.attach(r.URL.Query().Get("session"))
	l := s.logger.With().Str("session_id", v.sess.ID).Logger()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(hello{Type: "session", SessionID: v.sess.ID}); err != nil {
		l.Warn().Err(err).Msg("Failed to greet client")
		s.detach(v, client)
		conn.Close()
		return
	}

	go s.writePump(conn, client)
	s.readPump(conn, v)
	s.detach(v, client)
}

func (s *Server) attach(id string) (*viewer, *ipc.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.viewers[id]
	if !ok {
		hub := ipc.NewHub("session", session.TypeLyrics, session.TypeFrame)
		v = &viewer{hub: hub, sess: s.deps.Sessions.Create(hub)}
		s.viewers[v.sess.ID] = v
	}
	return v, v.hub.Join()
}

// detach 最后一个连接断开时关闭会话
func (s *Server) detach(v *viewer, c *ipc.Client) {
	s.mu.Lock()
	remaining := v.hub.Leave(c)
	last := remaining == 0 && s.viewers[v.sess.ID] == v
	if last {
		delete(s.viewers, v.sess.ID)
	}
	s.mu.Unlock()

	if last {
		s.deps.Sessions.Remove(v.sess.ID)
		v.hub.Close()
	}
}

func (s *Server) closeViewers() {
	s.mu.Lock()
	all := s.viewers
	s.viewers = make(map[string]*viewer)
	s.mu.Unlock()

	for id, v := range all {
		s.deps.Sessions.Remove(id)
		v.hub.Close()
	}
}

func (s *Server) readPump(conn *websocket.Conn, v *viewer) {
	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Str("session_id", v.sess.ID).Msg("WebSocket read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg session.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			v.hub.Publish(session.Error{Type: session.TypeError, Message: "invalid message: " + err.Error()})
			continue
		}
		if err := v.sess.Handle(msg); err != nil {
			v.hub.Publish(session.Error{Type: session.TypeError, Message: err.Error()})
		}
	}
}

// writePump 唯一写连接的 goroutine；Hub 关闭通道后发送关闭帧
func (s *Server) writePump(conn *websocket.Conn, c *ipc.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Messages():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

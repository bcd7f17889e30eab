package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/raid-campaign/internal/raid"
)

const (
	maxStreams   = 16
	streamBuffer = 64
	pingInterval = 15 * time.Second
	writeWait    = 5 * time.Second
)

// newUpgrader accepts the same browser origins as the CORS allowlist, plus
// same-host pages and clients that send no Origin at all.
func newUpgrader(allowed map[string]bool) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			if err == nil && strings.EqualFold(u.Host, r.Host) {
				return true
			}
			slog.Warn("stream origin refused", "origin", origin, "remote", clientAddr(r))
			return false
		},
	}
}

// streamMessage is one frame on the notification socket.
type streamMessage struct {
	Type         string             `json:"type"` // "snapshot" or "phase"
	Day          int                `json:"day"`
	Active       []*raid.Raid       `json:"active,omitempty"`
	Notification *raid.Notification `json:"notification,omitempty"`
}

// handleStream upgrades to a websocket and pushes every raid phase change.
// The first frame carries the active raids so a client can render at once.
// Slow clients miss notifications rather than stall the simulation.
func (s *Server) handleStream(upgrader *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.streams.Add(1) > maxStreams {
			s.streams.Add(-1)
			writeError(w, http.StatusServiceUnavailable, "TOO_MANY_STREAMS", "too many stream connections")
			return
		}
		defer s.streams.Add(-1)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Debug("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		ch := make(chan raid.Notification, streamBuffer)
		unsubscribe := s.Sim.Raids.Subscribe(func(n raid.Notification) {
			select {
			case ch <- n:
			default:
				slog.Warn("stream client lagging, notification dropped", "raid_id", n.RaidID, "to", n.To)
			}
		})
		defer unsubscribe()

		hello := streamMessage{Type: "snapshot", Day: s.Sim.Raids.Day(), Active: s.Sim.Raids.ActiveRaids()}
		if err := s.send(conn, hello); err != nil {
			return
		}
		slog.Info("stream client connected", "remote", clientAddr(r), "streams", s.streams.Load())

		// Reader: the client only sends control frames, but reading is what
		// notices a close.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		heartbeat := time.NewTicker(pingInterval)
		defer heartbeat.Stop()

		for {
			select {
			case n := <-ch:
				msg := streamMessage{Type: "phase", Day: n.Day, Notification: &n}
				if err := s.send(conn, msg); err != nil {
					return
				}
			case <-heartbeat.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-closed:
				slog.Info("stream client disconnected", "remote", clientAddr(r))
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, msg streamMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		slog.Debug("stream write failed", "error", err)
		return err
	}
	return nil
}

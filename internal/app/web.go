// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/wearable_recorder/internal/catalog"
	"github.com/relabs-tech/wearable_recorder/internal/config"
	"github.com/relabs-tech/wearable_recorder/internal/live"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/mqttclient"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 500
	wsSendBuffer        = 64
	wsWriteTimeout      = 5 * time.Second
	shutdownTimeout     = 5 * time.Second
)

//go:embed static
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// SessionStore is the read side of the session catalog.
type SessionStore interface {
	Sessions(ctx context.Context, limit int) ([]catalog.Session, error)
	Session(ctx context.Context, id string) (catalog.Session, error)
}

// wsMessage is pushed to live view clients: a snapshot on connect, then one
// message per device update.
type wsMessage struct {
	Type    string            `json:"type"`
	Devices []live.DeviceView `json:"devices,omitempty"`
	Device  *live.DeviceView  `json:"device,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WebServer serves the live device board, the session catalog and a
// websocket feed of board updates.
type WebServer struct {
	board    *live.Board
	sessions SessionStore
	log      *logging.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewWebServer creates a server over board. sessions may be nil when no
// catalog is configured.
func NewWebServer(board *live.Board, sessions SessionStore, log *logging.Logger) *WebServer {
	return &WebServer{
		board:    board,
		sessions: sessions,
		log:      log,
		clients:  make(map[*wsClient]struct{}),
	}
}

// RunWeb subscribes to the live topics and serves the web UI until ctx is
// cancelled.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()
	log := NewLogger(cfg).With("component", "web")

	var sessions SessionStore
	if cfg.CatalogPath != "" {
		store, err := catalog.Open(cfg.CatalogPath)
		if err != nil {
			return err
		}
		defer store.Close()
		sessions = store
	}

	s := NewWebServer(live.NewBoard(cfg.TopicLivePrefix), sessions, log)

	client, err := mqttclient.Dial(cfg.MQTTBroker, cfg.MQTTClientIDWeb, log)
	if err != nil {
		return err
	}
	defer mqttclient.Disconnect(client)

	topic := live.Subscription(cfg.TopicLivePrefix)
	err = mqttclient.Subscribe(client, topic, func(_ mqtt.Client, msg mqtt.Message) {
		s.Update(msg.Topic(), msg.Payload())
	})
	if err != nil {
		return err
	}
	log.Info("subscribed to live topics", "topic", topic)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("web server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.closeClients()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	return nil
}

// Router builds the HTTP routes.
func (s *WebServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/devices", s.handleDevices)
		r.Get("/sessions", s.handleSessions)
		r.Get("/sessions/{id}", s.handleSession)
	})
	r.Get("/ws", s.handleWebSocket)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/*", http.FileServer(http.FS(static)))
	return r
}

// Update applies a live message to the board and pushes the changed device
// to every websocket client.
func (s *WebServer) Update(topic string, payload []byte) {
	view, err := s.board.Update(topic, payload)
	if err != nil {
		s.log.Debug("ignoring live message", "topic", topic, "error", err)
		return
	}
	s.broadcast(wsMessage{Type: "device", Device: &view})
}

func (s *WebServer) handleDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Snapshot())
}

func (s *WebServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusNotFound, "session catalog disabled")
		return
	}

	limit := defaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxSessionLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be 1-%d", maxSessionLimit))
			return
		}
		limit = n
	}

	list, err := s.sessions.Sessions(r.Context(), limit)
	if err != nil {
		s.log.Error("listing sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing sessions failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *WebServer) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusNotFound, "session catalog disabled")
		return
	}

	sess, err := s.sessions.Session(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.log.Error("loading session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "loading session failed")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	snapshot, err := json.Marshal(wsMessage{Type: "snapshot", Devices: s.board.Snapshot()})
	if err != nil {
		s.log.Error("encoding snapshot failed", "error", err)
		conn.Close()
		return
	}

	// Queue the snapshot under the lock so no update can overtake it.
	s.mu.Lock()
	s.clients[c] = struct{}{}
	c.send <- snapshot
	s.mu.Unlock()
	s.log.Debug("websocket client connected", "remote", r.RemoteAddr)

	go s.writePump(c)
	s.readPump(c)
}

// readPump discards client messages and unregisters the client once the
// connection fails.
func (s *WebServer) readPump(c *wsClient) {
	defer s.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}

func (s *WebServer) writePump(c *wsClient) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, nil)
}

// unregister removes c. Only the caller that removes it closes its channel.
func (s *WebServer) unregister(c *wsClient) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		close(c.send)
	}
}

func (s *WebServer) broadcast(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("encoding websocket message failed", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Slow client; it catches up on the next update.
		}
	}
}

func (s *WebServer) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

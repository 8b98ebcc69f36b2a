package server

import (
	"log"
	"net/http"
	"time"

	"github.com/ayusman/lingolens/internal/app"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// scanEvent is one message on the scan event stream.
type scanEvent struct {
	Type       string   `json:"type"`
	Added      []string `json:"added,omitempty"`
	Objects    []string `json:"objects"`
	CanProceed bool     `json:"can_proceed"`
	Timestamp  int64    `json:"timestamp"`
}

// ScanEventsHandler pushes detected object updates to WebSocket clients.
type ScanEventsHandler struct {
	app *app.App
}

// NewScanEventsHandler creates a new ScanEventsHandler.
func NewScanEventsHandler(a *app.App) *ScanEventsHandler {
	return &ScanEventsHandler{app: a}
}

// ServeHTTP handles WebSocket upgrade requests. The current scan status is
// sent first, then every update until the client goes away.
func (h *ScanEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.app.SubscribeScan()
	defer cancel()

	// Reading is only needed to notice the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	status := h.app.ScanStatus()
	if err := writeEvent(conn, scanEvent{
		Type:       "status",
		Objects:    status.Objects,
		CanProceed: status.CanProceed,
		Timestamp:  time.Now().UnixMilli(),
	}); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(conn, scanEvent{
				Type:       "update",
				Added:      u.Added,
				Objects:    u.Objects,
				CanProceed: u.CanProceed,
				Timestamp:  time.Now().UnixMilli(),
			}); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, e scanEvent) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(e)
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"controlling_camera/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

// Envelope used for WebSocket messages in both directions' outbound leg:
// updates, the initial state, and command errors.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// wsCommand is the inbound envelope: a command name plus its payload.
type wsCommand struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Upgrader for HTTP -> WebSocket. Consider tightening CheckOrigin in production.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins for production
}

func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	sub := h.services.Updates.Subscribe()
	defer sub.Close()

	// Reader goroutine: dispatches inbound commands and detects closure.
	// Command errors come back over errs so only this goroutine writes.
	done := make(chan struct{})
	errs := make(chan string, 8)
	go h.readCommands(conn, done, errs)

	// Send the last-known state immediately so the client renders without
	// waiting for the first update.
	if err := h.sendState(c.Request.Context(), conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case msg := <-errs:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wsEnvelope{Type: "error", Error: msg}); err != nil {
				return
			}
		case u, ok := <-sub.Updates():
			if !ok {
				// Hub shut down; tell the client and close.
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "service shutting down"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wsEnvelope{Type: u.Type(), Data: u}); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		}
	}
}

// readCommands drains inbound messages, dispatching each as a command.
// Dispatch failures are reported back over errs without closing the
// connection; a read error ends the session.
func (h *Handler) readCommands(conn *websocket.Conn, done chan<- struct{}, errs chan<- string) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
		if msg := h.dispatchCommand(data); msg != "" {
			select {
			case errs <- msg:
			default:
			}
		}
	}
}

// dispatchCommand parses one inbound envelope and submits it to the
// control loop. Returns a client-facing error string, empty on success.
func (h *Handler) dispatchCommand(data []byte) string {
	var cmd wsCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return "invalid command envelope: " + err.Error()
	}

	ctl := h.services.Controller
	var err error
	switch cmd.Command {
	case "connect", "fetch_ssh_fingerprint":
		var p connectRequest
		if e := json.Unmarshal(cmd.Payload, &p); e != nil {
			return fmt.Sprintf("invalid %s payload: %v", cmd.Command, e)
		}
		if cmd.Command == "connect" {
			err = ctl.Connect(p.toTarget())
		} else {
			err = ctl.FetchFingerprint(p.toTarget())
		}
	case "set_property":
		var p struct {
			Code string `json:"code"`
			setPropertyRequest
		}
		if e := json.Unmarshal(cmd.Payload, &p); e != nil {
			return "invalid set_property payload: " + e.Error()
		}
		switch {
		case p.Code == "":
			return "set_property requires a code"
		case p.ValueIndex != nil:
			err = ctl.SetProperty(models.PropertyCode(p.Code), *p.ValueIndex)
		case p.Raw != nil:
			err = ctl.SetPropertyRaw(models.PropertyCode(p.Code), *p.Raw)
		default:
			return "set_property requires value_index or raw"
		}
	case "disconnect":
		err = ctl.Disconnect()
	case "capture":
		err = ctl.Capture()
	case "start_recording":
		err = ctl.StartRecording()
	case "stop_recording":
		err = ctl.StopRecording()
	case "half_press_shutter":
		err = ctl.HalfPressShutter()
	case "release_shutter":
		err = ctl.ReleaseShutter()
	case "sync_properties":
		err = ctl.SyncProperties()
	case "discover":
		err = ctl.Discover()
	default:
		return fmt.Sprintf("unknown command %q", cmd.Command)
	}
	if err != nil {
		return fmt.Sprintf("%s: %v", cmd.Command, err)
	}
	return ""
}

// sendState fetches and writes the current snapshot with a write deadline.
func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn) error {
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_get_state_failed", "err", err)
		}
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "state", Data: st})
}

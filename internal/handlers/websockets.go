package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"auber_controller/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms

	// Consecutive failed state loads before the stream gives up.
	maxStateFailures = 3
)

// Envelope types sent over the stream.
const (
	wsTypeState = "state"
	wsTypeError = "error"
)

type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins once the panel host is configurable
}

// @Summary      Controller state stream
// @Description  WebSocket upgrade. Sends {"type":"state","data":ControllerState} every interval; a failed state load sends {"type":"error"} and the stream closes after repeated failures.
// @Tags         controller
// @Param        interval      query  string  false  "Push interval as a duration, e.g. 500ms (max 10s)"
// @Param        interval_ms   query  int     false  "Push interval in milliseconds (max 10000)"
// @Param        access_token  query  string  false  "Bearer token for clients that cannot set the Authorization header"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Router       /ws [get]
// @Security     BearerAuth
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()

	// The first snapshot must load, otherwise the client has nothing to draw.
	st, err := h.loadState(ctx)
	if err != nil {
		return
	}
	if err := h.writeEnvelope(conn, wsEnvelope{Type: wsTypeState, Data: st}); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	failures := 0
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			env := wsEnvelope{Type: wsTypeState}
			st, err := h.loadState(ctx)
			if err != nil {
				failures++
				if failures >= maxStateFailures {
					return
				}
				env = wsEnvelope{Type: wsTypeError, Error: errGetState}
			} else {
				failures = 0
				env.Data = st
			}
			if err := h.writeEnvelope(conn, env); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return defaultInterval
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

func (h *Handler) loadState(ctx context.Context) (models.ControllerState, error) {
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil && h.log != nil {
		h.log.Errorw("ws_get_state_failed", "err", err)
	}
	return st, err
}

func (h *Handler) writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}

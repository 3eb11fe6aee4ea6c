package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"maintenance_center/internal/centerapi"
	"maintenance_center/internal/lifecycle"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 30 * time.Second
	minInterval      = 1 * time.Second
	maxInterval      = 5 * time.Minute
	maxIntervalMilli = 300_000
)

// Envelope types pushed to console clients.
const (
	wsTypeMachines = "machines"
	wsTypeChanges  = "changes"
	wsTypeError    = "error"
)

type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Machine feed
// @Description  WebSocket. Sends a "machines" envelope on connect and every interval, and a "changes" envelope whenever a refresh detects status changes. Pass the token as a Bearer header or ?token=.
// @Tags         machines
// @Param        token        query  string  false  "Access token when headers cannot be set"
// @Param        interval     query  string  false  "Snapshot interval, e.g. 30s (1s..5m)"
// @Param        interval_ms  query  int     false  "Snapshot interval in milliseconds"
// @Param        status       query  string  false  "Status filter"
// @Param        branchId     query  string  false  "Origin branch id"
// @Success      101  {string}  string  "Switching Protocols"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			header = "Bearer " + token
		}
	}
	if _, err := h.authenticate(header); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	interval := h.parseInterval(c)
	filter := centerapi.ListFilter{
		Status:   lifecycle.Status(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		BranchID: strings.TrimSpace(c.Query("branchId")),
	}
	if err := filter.Validate(); err != nil {
		h.respondError(c, "ws_bad_filter", err)
		return
	}

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

	changes, unsubscribe := h.services.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	if err := h.sendMachines(ctx, conn, filter); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

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
		case batch, ok := <-changes:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wsEnvelope{Type: wsTypeChanges, Data: batch}); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendMachines(ctx, conn, filter); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=30s or ?interval_ms=30000 within bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d >= minInterval && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v >= int(minInterval/time.Millisecond) && v <= maxIntervalMilli {
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

// sendMachines writes the current machine list. A failed read is reported to
// the client as an error envelope and keeps the connection open.
func (h *Handler) sendMachines(ctx context.Context, conn *websocket.Conn, filter centerapi.ListFilter) error {
	env := wsEnvelope{Type: wsTypeMachines}
	items, err := h.services.ListMachines(ctx, filter)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_list_machines_failed", "err", err)
		}
		env = wsEnvelope{Type: wsTypeError, Error: errBackendUnavailable}
		if apiErr, ok := centerapi.AsAPIError(err); ok {
			env.Error = apiErr.Message
		}
	} else {
		env.Data = items
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}

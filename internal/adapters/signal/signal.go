package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/QuizRush/internal/app"
	"github.com/dkeye/QuizRush/internal/app/orch"
	"github.com/dkeye/QuizRush/internal/core"
)

const writeWait = 5 * time.Second

// Options bound a single connection.
type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

func DefaultOptions() Options {
	return Options{ReadLimit: 32768, PingPeriod: 54 * time.Second, SendBuffer: 64}
}

// pongWait is how long a connection may stay silent before it is dropped.
func (o Options) pongWait() time.Duration { return o.PingPeriod * 10 / 9 }

type SignalWSController struct {
	Orch *orch.Orchestrator
	opts Options
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	def := DefaultOptions()
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = def.ReadLimit
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = def.PingPeriod
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	return &SignalWSController{Orch: o, opts: opts}
}

// WsSignalConn is the websocket side of core.SignalConnection.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and serves the connection until it drops.
// Every connection gets its own session id, so two tabs of one browser are two
// players.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := app.SessionID(uuid.NewString())
	logger := log.With().Str("module", "signal").Str("sid", string(sid)).Str("client", c.GetString("client_token")).Logger()
	logger.Info().Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(sid, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}

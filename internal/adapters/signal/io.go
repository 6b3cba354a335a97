package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/QuizRush/internal/app"
	"github.com/dkeye/QuizRush/internal/core"
	"github.com/dkeye/QuizRush/internal/protocol"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid app.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
		ctl.Orch.Registry.Cancel(sid)
		ctl.Orch.OnDisconnect(sid)
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	pongWait := ctl.opts.pongWait()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
			ctl.handleSignal(ctx, sid, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, sid app.SessionID, c *WsSignalConn, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "signal").Str("sid", string(sid)).Interface("panic", rec).Msg("handler panic")
			ctl.sendError(c, errInternal)
		}
	}()

	msg, err := protocol.Decode(data)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad message")
		ctl.sendError(c, err)
		return
	}

	switch m := msg.(type) {
	case protocol.JoinRoom:
		err = ctl.handleJoin(sid, m)
	case protocol.LeaveRoom:
		ctl.handleLeave(sid)
	case protocol.PlayerReady:
		err = ctl.handleReady(sid, m)
	case protocol.UpdateSettings:
		err = ctl.handleUpdateSettings(sid, m)
	case protocol.StartGame:
		err = ctl.handleStart(ctx, sid, m)
	case protocol.Answer:
		err = ctl.handleAnswer(sid, m)
	case protocol.ChatMessage:
		err = ctl.handleChat(sid, m)
	case protocol.ResetGame:
		err = ctl.handleReset(sid)
	case protocol.Ping:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", string(msg.Kind())).Msg("unhandled signal")
	}
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("type", string(msg.Kind())).Msg("rejected")
		ctl.sendError(c, err)
	}
}

func (ctl *SignalWSController) send(c core.SignalConnection, msg protocol.ServerMessage) {
	if err := core.Send(c, msg); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("type", string(msg.Kind())).Msg("send dropped")
	}
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, err error) {
	ctl.send(c, protocol.Error{Message: err.Error()})
}

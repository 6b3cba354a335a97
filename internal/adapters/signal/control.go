package signal

import (
	"errors"

	"github.com/dkeye/QuizRush/internal/protocol"
)

var errInternal = errors.New("internal error")

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.send(conn, protocol.Pong{})
}

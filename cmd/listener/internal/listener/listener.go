package listener

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"
)

// Datagram is one received payload and who sent it
type Datagram struct {
	From    net.Addr
	Payload []byte
}

// Listener logs every datagram arriving on a bound UDP socket.
type Listener struct {
	conn    *net.UDPConn
	logger  *zap.Logger
	bufSize int
}

func NewListener(conn *net.UDPConn, logger *zap.Logger, bufSize int) *Listener {
	return &Listener{conn: conn, logger: logger, bufSize: bufSize}
}

// Listen binds addr ("host:port") for datagrams.
func Listen(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", udpAddr)
}

// Run reads until ctx is cancelled (returning ctx.Err()) or the socket is
// closed (returning nil).
// handle may be nil.
func (l *Listener) Run(ctx context.Context, handle func(Datagram)) error {
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	l.logger.Info("Listening for datagrams", zap.String("addr", l.conn.LocalAddr().String()))

	buf := make([]byte, l.bufSize)
	for {
		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			l.logger.Error("Read error", zap.Error(err))
			continue
		}

		payload := append([]byte(nil), buf[:n]...)
		l.logger.Info("Received", zap.Stringer("from", from), zap.ByteString("message", payload))
		if handle != nil {
			handle(Datagram{From: from, Payload: payload})
		}
	}
}

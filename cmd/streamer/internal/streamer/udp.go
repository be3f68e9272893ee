package streamer

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// UDPSender writes datagrams from an unconnected socket to a fixed destination.
// Nothing is acknowledged; a send that the kernel accepts counts as delivered.
type UDPSender struct {
	conn *net.UDPConn
	dest *net.UDPAddr
}

func NewUDPSender(host string, port int) (*UDPSender, error) {
	dest, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve %s:%d: %w", host, port, err)
	}

	// Bind to the wildcard of the destination's family so WriteToUDP works for
	// both IPv4 and IPv6 destinations.
	network := "udp4"
	if dest.IP != nil && dest.IP.To4() == nil {
		network = "udp6"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, fmt.Errorf("open datagram socket: %w", err)
	}

	return &UDPSender{conn: conn, dest: dest}, nil
}

func (s *UDPSender) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.conn.WriteToUDP(payload, s.dest); err != nil {
		return fmt.Errorf("send to %s: %w", s.dest, err)
	}
	return nil
}

func (s *UDPSender) Addr() *net.UDPAddr { return s.dest }

func (s *UDPSender) Close() error { return s.conn.Close() }

package router

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

// deadlineConn arms a fresh deadline before every read and write, so the
// timeouts bound the gap between two successive operations rather than the
// whole exchange.
type deadlineConn struct {
	net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// newDialer returns a dial function with a connect timeout whose connections
// enforce per-operation send and read timeouts.
func newDialer(connectTimeout, sendTimeout, readTimeout time.Duration) dialFunc {
	d := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if sendTimeout <= 0 && readTimeout <= 0 {
			return conn, nil
		}
		return &deadlineConn{Conn: conn, readTimeout: readTimeout, writeTimeout: sendTimeout}, nil
	}
}

// isTimeout reports whether err comes from an expired deadline.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isDialError reports whether err happened before the request could reach
// the upstream.
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package empstats

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// ErrTooManyConnections is returned by Accept on a bound listener when every
// connection slot is in use. It is temporary, so http.Server keeps serving.
var ErrTooManyConnections = errTooManyConnections{}

// NewBoundListener returns a listener which holds at most maxActive
// connections open at once. Connections past that get a 503 and are closed.
func NewBoundListener(l net.Listener, maxActive int) net.Listener {
	b := &boundListener{l, make(chan struct{}, maxActive)}
	for i := 0; i < maxActive; i++ {
		b.active <- struct{}{}
	}
	return b
}

type boundListener struct {
	net.Listener
	active chan struct{}
}

type boundConn struct {
	net.Conn
	active chan struct{}
	once   sync.Once
}

type errTooManyConnections struct{}

func (e errTooManyConnections) Error() string   { return "too many connections" }
func (e errTooManyConnections) Timeout() bool   { return false }
func (e errTooManyConnections) Temporary() bool { return true }

func (l *boundListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	select {
	case <-l.active:
		return &boundConn{Conn: c, active: l.active}, nil
	default: // out of connections
		_ = c.SetWriteDeadline(time.Now().Add(time.Second))
		l.writeError(c, ErrTooManyConnections.Error())
		c.Close()
		return nil, ErrTooManyConnections
	}
}

// Close releases the connection's slot once.
func (c *boundConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { c.active <- struct{}{} })
	return err
}

func (l *boundListener) writeError(w io.Writer, msg string) {
	body := fmt.Sprintf(`{"error":%q}`, msg)
	date := time.Now().UTC().Format(time.RFC1123)
	date = date[:len(date)-3] + "GMT"

	fmt.Fprintf(w, "HTTP/1.1 503 Service Unavailable\r\n"+
		"Connection: close\r\n"+
		"Server: empstats\r\n"+
		"Date: %s\r\n"+
		"Content-Type: application/json\r\n"+
		"Content-Length: %d\r\n"+
		"\r\n"+
		"%s",
		date, len(body), body)
}

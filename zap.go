// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

func init() {
	RegisterTransport(SchemeZAP, dialZAP, listenZAP)
	RegisterTransport(SchemeTCP, dialZAP, listenZAP)
}

// MessageType identifies ZAP frame types
type MessageType uint8

const (
	MsgEvent MessageType = 0x01
)

// maxFrameSize bounds a single frame body.
const maxFrameSize = 64 * 1024 * 1024

// writeFrame encodes: [4 len][1 type][2 eventLen][event][payload]
func writeFrame(w io.Writer, event string, payload []byte) error {
	if len(event) > 0xFFFF {
		return fmt.Errorf("%w: event name too long", ErrInvalidFrame)
	}
	msgLen := 1 + 2 + len(event) + len(payload)
	if msgLen > maxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidFrame, msgLen)
	}

	buf := make([]byte, 4+msgLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(msgLen))
	buf[4] = byte(MsgEvent)
	binary.BigEndian.PutUint16(buf[5:7], uint16(len(event)))
	copy(buf[7:], event)
	copy(buf[7+len(event):], payload)
	_, err := w.Write(buf)
	return err
}

// readFrame decodes one frame written by writeFrame.
func readFrame(r io.Reader) (event string, payload []byte, err error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return "", nil, err
	}

	msgLen := binary.BigEndian.Uint32(header)
	if msgLen < 3 || msgLen > maxFrameSize {
		return "", nil, fmt.Errorf("%w: length %d", ErrInvalidFrame, msgLen)
	}

	msg := make([]byte, msgLen)
	if _, err := io.ReadFull(r, msg); err != nil {
		return "", nil, err
	}
	if MessageType(msg[0]) != MsgEvent {
		return "", nil, fmt.Errorf("%w: type %#x", ErrInvalidFrame, msg[0])
	}
	eventLen := int(binary.BigEndian.Uint16(msg[1:3]))
	if len(msg) < 3+eventLen {
		return "", nil, fmt.Errorf("%w: event name truncated", ErrInvalidFrame)
	}
	return string(msg[3 : 3+eventLen]), msg[3+eventLen:], nil
}

// ZAPConn carries events as length-prefixed frames over a net.Conn.
type ZAPConn struct {
	eventMux
	conn     net.Conn
	endpoint string
	writeMu  sync.Mutex
	closed   atomic.Bool
	start    sync.Once
	readDone chan struct{}
	readErr  error
}

// NewZAPConn wraps conn. Reading starts with the first registered handler.
func NewZAPConn(conn net.Conn) *ZAPConn {
	return &ZAPConn{
		conn:     conn,
		endpoint: SchemeZAP + "://" + conn.RemoteAddr().String(),
		readDone: make(chan struct{}),
	}
}

// ZAPDial connects to a ZAP executor
func ZAPDial(ctx context.Context, addr string) (*ZAPConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("zap dial: %w", err)
	}
	return NewZAPConn(conn), nil
}

func dialZAP(ctx context.Context, addr string, _ *Options) (Transport, error) {
	return ZAPDial(ctx, addr)
}

func (z *ZAPConn) On(event string, handler EventHandler) {
	z.eventMux.On(event, handler)
	z.start.Do(func() { go z.readLoop() })
}

func (z *ZAPConn) Emit(ctx context.Context, event string, payload []byte) error {
	if z.closed.Load() {
		return ErrClosed
	}

	z.writeMu.Lock()
	defer z.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		if err := z.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("zap write deadline: %w", err)
		}
		defer z.conn.SetWriteDeadline(time.Time{})
	}
	if err := writeFrame(z.conn, event, payload); err != nil {
		return fmt.Errorf("zap write: %w", err)
	}
	return nil
}

func (z *ZAPConn) readLoop() {
	defer close(z.readDone)
	for {
		event, payload, err := readFrame(z.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !z.closed.Load() {
				z.readErr = err
			}
			return
		}
		z.dispatch(event, payload)
	}
}

// Done is closed when the read loop stops.
func (z *ZAPConn) Done() <-chan struct{} {
	return z.readDone
}

// Err returns the error that stopped the read loop, if any.
func (z *ZAPConn) Err() error {
	select {
	case <-z.readDone:
		return z.readErr
	default:
		return nil
	}
}

func (z *ZAPConn) Endpoint() string {
	return z.endpoint
}

// Close closes the connection
func (z *ZAPConn) Close() error {
	if z.closed.Swap(true) {
		return nil
	}
	return z.conn.Close()
}

func listenZAP(_ context.Context, addr string, _ *Options) (Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return newNetListener(l, SchemeZAP, func(c net.Conn) Transport { return NewZAPConn(c) }), nil
}

// netListener turns a net.Listener into a Listener. A single goroutine
// accepts connections and hands them to Accept.
type netListener struct {
	listener net.Listener
	scheme   string
	conns    chan Transport
	stop     chan struct{}
	done     chan struct{}
	closed   atomic.Bool
	err      error
}

func newNetListener(l net.Listener, scheme string, wrap func(net.Conn) Transport) *netListener {
	nl := &netListener{
		listener: l,
		scheme:   scheme,
		conns:    make(chan Transport),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(nl.done)
		for {
			conn, err := l.Accept()
			if err != nil {
				if !nl.closed.Load() {
					nl.err = err
				}
				return
			}
			t := wrap(conn)
			select {
			case nl.conns <- t:
			case <-nl.stop:
				t.Close()
				return
			}
		}
	}()
	return nl
}

func (l *netListener) Accept(ctx context.Context) (Transport, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case t := <-l.conns:
		return t, nil
	case <-l.done:
		if l.err != nil {
			return nil, l.err
		}
		return nil, ErrClosed
	}
}

func (l *netListener) Addr() string {
	return l.scheme + "://" + l.listener.Addr().String()
}

func (l *netListener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	close(l.stop)
	return l.listener.Close()
}

// Package proxy 是参考宿主：一个 MITM 代理，为每个连接构建处理链并发布连接事件
package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/Versifine/hamster/internal/event"
	"github.com/google/uuid"
)

type Server struct {
	listenerAddr string
	backendAddr  string
	bus          *event.Bus
}

func NewServer(listenerAddr, backendAddr string, bus *event.Bus) *Server {
	return &Server{listenerAddr: listenerAddr, backendAddr: backendAddr, bus: bus}
}

func (s *Server) Start(ctx context.Context) error {
	slog.Info("Starting proxy server", "listenerAddr", s.listenerAddr, "backendAddr", s.backendAddr)
	netListener, err := net.Listen("tcp", s.listenerAddr)
	if err != nil {
		return err
	}
	defer netListener.Close()
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down proxy server")
		_ = netListener.Close()
	}()
	for {
		conn, err := netListener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				slog.Info("Proxy server stopped")
				return nil
			}
			slog.Error("Error accepting connection", "error", err)
			return err
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(clientConn net.Conn) {
	// Disable Nagle's algorithm for lower latency
	if tcpConn, ok := clientConn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	backendConn, err := net.Dial("tcp", s.backendAddr)
	if err != nil {
		slog.Error("Error connecting to backend", "error", err)
		clientConn.Close()
		return
	}
	if tcpConn, ok := backendConn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	c, err := newConn(uuid.New(), clientConn, backendConn, s.bus)
	if err != nil {
		slog.Error("Error building connection pipeline", "error", err)
		clientConn.Close()
		backendConn.Close()
		return
	}
	slog.Info("Proxying connection", "client", clientConn.RemoteAddr(), "backend", s.backendAddr, "session", c.id)
	c.serve()
}

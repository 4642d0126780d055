package pairing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/sensornode/internal/logging"
)

const (
	// PairPath carries pairing writes (websocket or POST)
	PairPath = "/pair"

	// StatusPath serves the DeviceStatus snapshot
	StatusPath = "/status"

	// Time allowed to read the next frame from an idle socket
	readWait = 5 * time.Minute

	// Maximum size of a single pairing write
	maxMessageSize = 4096
)

// StatusFunc returns the current device status.
type StatusFunc func() DeviceStatus

// Server exposes the pairing channel over HTTP and websocket.
type Server struct {
	listen string
	inbox  *Inbox
	status StatusFunc

	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener

	wg          sync.WaitGroup
	mu          sync.Mutex
	closing     bool
	activeConns map[string]*websocket.Conn
}

// NewServer creates a pairing server that delivers into inbox.
func NewServer(listen string, inbox *Inbox, status StatusFunc) *Server {
	s := &Server{
		listen:      listen,
		inbox:       inbox,
		status:      status,
		activeConns: make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Pairing clients are CLIs and phone apps, not browsers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes of the pairing channel.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PairPath, s.handleWebSocket)
	mux.HandleFunc("POST "+PairPath, s.handlePost)
	mux.HandleFunc("GET "+StatusPath, s.handleStatus)
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listen, err)
	}
	s.listener = listener

	logging.Info("Pairing server listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("pair_path", PairPath),
		zap.String("status_path", StatusPath),
	)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Pairing server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or 0 before Start.
func (s *Server) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Shutdown sets closing under mu before it waits, so no Add can follow Wait.
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		s.wg.Done()
		return
	}

	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		s.wg.Done()
		return
	}
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		s.wg.Done()
		logging.LogConnection(remoteAddr, "websocket_closed")
	}()

	logging.LogConnection(remoteAddr, "websocket_upgraded")
	conn.SetReadLimit(maxMessageSize)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			return
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Pairing socket closed unexpectedly",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}

		logging.LogWebSocketMessage(remoteAddr, "received", msgType, data)

		// Each frame is one write; the channel never replies.
		_ = s.inbox.DeliverRawFrom(remoteAddr, data)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(data) > maxMessageSize {
		http.Error(w, "message too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := s.inbox.DeliverRawFrom(r.RemoteAddr, data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status()); err != nil {
		logging.Warn("Failed to write status", zap.Error(err))
	}
}

// Shutdown stops accepting requests and closes open pairing sockets.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down pairing server...")

	err := s.httpServer.Shutdown(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		logging.Error("Error stopping HTTP server", zap.Error(err))
	}

	// Hijacked websocket connections are not closed by http.Server.Shutdown
	s.mu.Lock()
	s.closing = true
	for addr, conn := range s.activeConns {
		logging.Debug("Closing pairing socket", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All pairing sockets closed")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	return err
}

// GetActiveConnections returns the number of open pairing sockets
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Package server implements the TCP accept loop and per-connection RESP
// read/dispatch/write cycle that sits on top of internal/command's
// Dispatcher.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"rkvd/internal/command"
	"rkvd/internal/logx"
	"rkvd/internal/respio"
)

// Server owns the listener, the shared command dispatcher, and the set of
// live connections so that Shutdown can close them all.
type Server struct {
	config     *Config
	dispatcher *command.Dispatcher

	listener net.Listener

	connections     sync.Map
	activeConnCount atomic.Int64
	wg              sync.WaitGroup

	mu         sync.Mutex
	isShutdown bool
	shutdownCh chan struct{}
}

// New returns a Server ready to Start, wired to dispatcher for every
// command it accepts.
func New(cfg *Config, dispatcher *command.Dispatcher) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Server{
		config:     cfg,
		dispatcher: dispatcher,
		shutdownCh: make(chan struct{}),
	}
}

// Start binds the listener and runs the accept loop until ctx is canceled
// or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	logx.Infof("listening on %s", addr)

	go s.acceptLoop(ctx)

	<-ctx.Done()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdownCh:
			return
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.isShutdown
			s.mu.Unlock()
			if shutdown {
				return
			}
			logx.WithField("error", err).Warn("accept failed")
			continue
		}

		if s.activeConnCount.Load() >= int64(s.config.MaxConnections) {
			logx.WithField("remote", conn.RemoteAddr()).Warn("max connections reached, rejecting")
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()

	connID := uuid.New().String()
	s.activeConnCount.Add(1)
	defer s.activeConnCount.Add(-1)

	s.connections.Store(connID, conn)
	defer s.connections.Delete(connID)
	defer conn.Close()
	defer s.dispatcher.ForgetConnection(conn)

	log := logx.WithField("conn", connID)
	log.Debugf("accepted connection from %s", conn.RemoteAddr())

	if err := s.serve(ctx, conn); err != nil {
		log.Debugf("connection closed: %v", err)
	}
}

// serve runs the read/decode/dispatch/write cycle for one connection,
// supporting both partial frames (retrying once more bytes arrive) and
// pipelining (multiple complete commands already sitting in buf).
func (s *Server) serve(ctx context.Context, conn net.Conn) error {
	buf := make([]byte, 0, s.config.ReadBufferSize)
	chunk := make([]byte, s.config.ReadBufferSize)

	for {
		for {
			cmd, consumed, err := respio.Decode(buf)
			if err == respio.ErrNeedMore {
				break
			}
			if err != nil {
				if respio.IsMalformed(err) {
					conn.Write(respio.EncodeError("ERR Protocol error: " + err.Error()))
				}
				return err
			}
			buf = buf[consumed:]

			if !cmd.Null && len(cmd.Args) > 0 {
				reply := s.dispatcher.Execute(conn, cmd.Args)
				if reply != nil {
					if _, werr := conn.Write(reply); werr != nil {
						return werr
					}
				}
			}
		}

		n, err := conn.Read(chunk)
		if err != nil {
			return err
		}
		buf = append(buf, chunk[:n]...)
	}
}

// Shutdown closes the listener and every live connection, waiting up to 5
// seconds for in-flight handlers to return before giving up.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if s.isShutdown {
		s.mu.Unlock()
		return
	}
	s.isShutdown = true
	s.mu.Unlock()

	close(s.shutdownCh)
	if s.listener != nil {
		s.listener.Close()
	}

	s.connections.Range(func(_, value interface{}) bool {
		if conn, ok := value.(net.Conn); ok {
			conn.Close()
		}
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logx.Info("all connections closed gracefully")
	case <-time.After(5 * time.Second):
		logx.Warn("shutdown timeout reached, forcing exit")
	}
}

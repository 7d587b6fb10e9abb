package chat

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

type Server struct {
	cfg    Config
	logger *slog.Logger
	reg    *Registry

	listener net.Listener
	opsLn    net.Listener
	wsLn     net.Listener
	opsSrv   *http.Server
	wsSrv    *http.Server
	nextID   atomic.Uint64
}

func NewServer(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.sanitized()
	return &Server{
		cfg:    cfg,
		logger: logger,
		reg:    NewRegistry(cfg.EventBuffer, logger),
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = ln

	if s.cfg.OpsAddr != "" {
		if s.opsLn, err = net.Listen("tcp", s.cfg.OpsAddr); err != nil {
			ln.Close()
			return err
		}
		s.opsSrv = &http.Server{Handler: s.opsRouter()}
		go s.serveHTTP(s.opsSrv, s.opsLn, "ops")
	}
	if s.cfg.WebSocketAddr != "" {
		if s.wsLn, err = net.Listen("tcp", s.cfg.WebSocketAddr); err != nil {
			s.closeListeners()
			return err
		}
		s.wsSrv = &http.Server{Handler: s.wsHandler()}
		go s.serveHTTP(s.wsSrv, s.wsLn, "websocket")
	}

	go s.reg.Run()
	go s.acceptLoop(ln)

	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound chat listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// OpsAddr returns the bound ops listener address, or nil if disabled.
func (s *Server) OpsAddr() net.Addr {
	if s.opsLn == nil {
		return nil
	}
	return s.opsLn.Addr()
}

// WebSocketAddr returns the bound WebSocket listener address, or nil if
// disabled.
func (s *Server) WebSocketAddr() net.Addr {
	if s.wsLn == nil {
		return nil
	}
	return s.wsLn.Addr()
}

func (s *Server) Stop() {
	s.logger.Info("shutting down")

	if s.listener != nil {
		s.listener.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.opsSrv != nil {
		_ = s.opsSrv.Shutdown(ctx)
	}
	if s.wsSrv != nil {
		_ = s.wsSrv.Shutdown(ctx)
	}

	s.reg.Stop()
	s.reg.Wait()

	s.logger.Info("shutdown complete")
}

func (s *Server) closeListeners() {
	for _, ln := range []net.Listener{s.listener, s.opsLn, s.wsLn} {
		if ln != nil {
			ln.Close()
		}
	}
}

func (s *Server) serveHTTP(srv *http.Server, ln net.Listener, name string) {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("http listener failed", "listener", name, "error", err)
	}
}

func (s *Server) newClient(addr string) *Client {
	return NewClient(SessionID(s.nextID.Add(1)), addr, s.cfg.OutBuffer)
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed: normal shutdown.
			return
		}

		c := s.newClient(conn.RemoteAddr().String())
		s.logger.Info("client connected", "addr", c.Addr, "session", c.ID)
		ConnectedClients.Inc()
		go func() {
			defer ConnectedClients.Dec()
			HandleSession(c, conn, s.reg.Events())
		}()
	}
}

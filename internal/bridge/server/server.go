// server mounts every bridge transport on one HTTP listener
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/silbinarywolf/simple-game/internal/bridge"
	"github.com/silbinarywolf/simple-game/internal/bridge/gqlbridge"
	"github.com/silbinarywolf/simple-game/internal/bridge/mcpbridge"
	"github.com/silbinarywolf/simple-game/internal/bridge/rtcbridge"
	"github.com/silbinarywolf/simple-game/internal/bridge/rtcbridge/stunserver"
	"github.com/silbinarywolf/simple-game/internal/bridge/wsbridge"
	"github.com/silbinarywolf/simple-game/internal/logging"
)

const (
	defaultHost = "127.0.0.1"
	defaultPort = 9222

	HealthPath = "/health"
)

type Options struct {
	// Host defaults to 127.0.0.1
	Host string
	// Port defaults to 9222, -1 picks a free port
	Port int
	// Name and Version are reported to MCP clients
	Name    string
	Version string
	WebRTC  WebRTCOptions
}

type WebRTCOptions struct {
	Enabled  bool
	PublicIP string
	// STUNPort starts a STUN server when greater than 0
	STUNPort int
}

type Server struct {
	dispatcher *bridge.Dispatcher
	log        *logging.Logger
	options    Options

	httpServer *http.Server
	mcpServer  *mcpbridge.Server
	rtcServer  *rtcbridge.Server
	stunServer *stunserver.Server
	addr       net.Addr

	isListening atomic.Value
	lastError   atomic.Value
}

func New(dispatcher *bridge.Dispatcher, logger *logging.Logger, options Options) *Server {
	if options.Host == "" {
		options.Host = defaultHost
	}
	if options.Port == 0 {
		options.Port = defaultPort
	}
	if options.Port < 0 {
		options.Port = 0
	}
	if options.Name == "" {
		options.Name = "simple-game"
	}
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		dispatcher: dispatcher,
		log:        logger,
		options:    options,
	}
	s.isListening.Store(false)
	return s
}

// Start listens and serves in the background. Listen errors are returned,
// errors after that are available from Err.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.options.Host, strconv.Itoa(s.options.Port)))
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s:%d", s.options.Host, s.options.Port)
	}
	s.addr = ln.Addr()

	handler, err := s.newHandler()
	if err != nil {
		ln.Close()
		return err
	}
	s.httpServer = &http.Server{
		Handler: handler,
	}
	s.isListening.Store(true)
	s.log.Info("test server listening", "addr", s.addr.String())

	go func() {
		defer s.isListening.Store(false)
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.lastError.Store(errors.Wrap(err, "server closed"))
			s.log.Error("test server stopped", "err", err)
		}
	}()
	return nil
}

func (s *Server) newHandler() (http.Handler, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle(wsbridge.Path, wsbridge.New(s.dispatcher, s.log.With("transport", "ws")))

	gqlHandler, err := gqlbridge.New(s.dispatcher)
	if err != nil {
		return nil, err
	}
	mux.Handle(gqlbridge.Path, gqlHandler)

	s.mcpServer = mcpbridge.New(s.dispatcher, s.options.Name, s.options.Version, "http://"+s.addr.String())
	mux.Handle(mcpbridge.SSEPath, s.mcpServer.Handler())
	mux.Handle(mcpbridge.MessagePath, s.mcpServer.Handler())

	if s.options.WebRTC.Enabled {
		rtcOptions := rtcbridge.Options{}
		if s.options.WebRTC.STUNPort > 0 {
			publicIP := s.options.WebRTC.PublicIP
			if publicIP == "" {
				publicIP = s.options.Host
			}
			stunServer, err := stunserver.ListenAndStart(stunserver.Options{
				PublicIP: publicIP,
				Port:     s.options.WebRTC.STUNPort,
				Log:      s.log.With("transport", "stun"),
			})
			if err != nil {
				return nil, errors.Wrap(err, "failed to start stun server")
			}
			s.stunServer = stunServer
			rtcOptions.ICEServerURLs = []string{stunServer.URL(publicIP)}
		}
		rtcServer, err := rtcbridge.New(s.dispatcher, s.log.With("transport", "webrtc"), rtcOptions)
		if err != nil {
			return nil, err
		}
		s.rtcServer = rtcServer
		mux.Handle(rtcbridge.Path, rtcServer)
	}
	return mux, nil
}

func (s *Server) IsListening() bool {
	v, ok := s.isListening.Load().(bool)
	if !ok {
		return false
	}
	return v
}

// Addr is the address being listened on, nil before Start
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Err is the error the server stopped with, if any
func (s *Server) Err() error {
	v, _ := s.lastError.Load().(error)
	return v
}

// Shutdown stops every transport. Hijacked websocket connections are left
// for their clients to close.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	var firstErr error
	if s.mcpServer != nil {
		if err := s.mcpServer.Shutdown(ctx); err != nil {
			firstErr = errors.Wrap(err, "mcp shutdown")
		}
	}
	if s.rtcServer != nil {
		s.rtcServer.Close()
	}
	if s.stunServer != nil {
		if err := s.stunServer.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "stun shutdown")
		}
	}
	if err := s.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "http shutdown")
	}
	s.isListening.Store(false)
	return firstErr
}

// stunserver runs a STUN server so rtc bridge peers can find their
// reflexive address when the game runs in a container or VM.
package stunserver

import (
	"net"
	"strconv"

	"github.com/pion/stun"
	"github.com/pion/turn/v2"
	"github.com/pkg/errors"

	"github.com/silbinarywolf/simple-game/internal/logging"
)

// DefaultPort is the standard STUN port
const DefaultPort = 3478

type Options struct {
	// PublicIP is the address given out as the relay address
	PublicIP string
	// Port to listen on, 0 picks a free port
	Port int
	// Host to listen on, defaults to 0.0.0.0
	Host string
	// Log gets every STUN packet at debug level, may be nil
	Log *logging.Logger
}

type Server struct {
	turnServer *turn.Server
	addr       net.Addr
}

// stunLogger wraps a PacketConn and logs incoming/outgoing STUN packets
type stunLogger struct {
	net.PacketConn
	log *logging.Logger
}

func (s *stunLogger) WriteTo(p []byte, addr net.Addr) (n int, err error) {
	if n, err = s.PacketConn.WriteTo(p, addr); err == nil && stun.IsMessage(p) {
		msg := &stun.Message{Raw: p}
		if err = msg.Decode(); err != nil {
			return
		}
		s.log.Debug("outbound STUN", "msg", msg.String(), "addr", addr.String())
	}
	return
}

func (s *stunLogger) ReadFrom(p []byte) (n int, addr net.Addr, err error) {
	if n, addr, err = s.PacketConn.ReadFrom(p); err == nil && stun.IsMessage(p[:n]) {
		msg := &stun.Message{Raw: p[:n]}
		if err = msg.Decode(); err != nil {
			return
		}
		s.log.Debug("inbound STUN", "msg", msg.String(), "addr", addr.String())
	}
	return
}

func ListenAndStart(options Options) (*Server, error) {
	if options.PublicIP == "" {
		return nil, errors.New("cannot give empty string for public ip")
	}
	publicIP := net.ParseIP(options.PublicIP)
	if publicIP == nil {
		return nil, errors.Errorf("invalid public ip: %s", options.PublicIP)
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}

	udpListener, err := net.ListenPacket("udp4", net.JoinHostPort(options.Host, strconv.Itoa(options.Port)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create STUN server listener")
	}
	addr := udpListener.LocalAddr()
	if options.Log != nil {
		udpListener = &stunLogger{PacketConn: udpListener, log: options.Log}
	}
	s, err := turn.NewServer(turn.ServerConfig{
		Realm: "simple-game",
		// TURN relaying is not offered, only STUN binding requests are answered
		AuthHandler: func(username string, realm string, srcAddr net.Addr) ([]byte, bool) {
			return nil, false
		},
		PacketConnConfigs: []turn.PacketConnConfig{
			{
				PacketConn: udpListener,
				RelayAddressGenerator: &turn.RelayAddressGeneratorStatic{
					RelayAddress: publicIP,
					Address:      options.Host,
				},
			},
		},
	})
	if err != nil {
		udpListener.Close()
		return nil, errors.Wrap(err, "unable to start STUN server")
	}
	return &Server{
		turnServer: s,
		addr:       addr,
	}, nil
}

// Addr is the UDP address the server listens on
func (s *Server) Addr() net.Addr {
	return s.addr
}

// URL is the ICE server URL for this server, ie. "stun:127.0.0.1:3478"
func (s *Server) URL(host string) string {
	_, port, _ := net.SplitHostPort(s.addr.String())
	return "stun:" + net.JoinHostPort(host, port)
}

func (s *Server) Close() error {
	return s.turnServer.Close()
}

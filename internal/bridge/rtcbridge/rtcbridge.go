// rtcbridge serves bridge commands over a WebRTC data channel.
//
// A client POSTs its SDP offer to /sdp, gets back an answer plus the server
// ICE candidates and then opens an ordered, reliable data channel. Each text
// message on that channel is a JSON command and gets one JSON response.
package rtcbridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/pkg/errors"

	"github.com/silbinarywolf/simple-game/internal/bridge"
	"github.com/silbinarywolf/simple-game/internal/logging"
)

// Path is where the SDP handler is mounted by the bridge server
const Path = "/sdp"

const defaultMaxConnections = 16

// ConnectResponse is returned from the SDP handler
type ConnectResponse struct {
	Candidates []webrtc.ICECandidateInit `json:"candidates"`
	Answer     webrtc.SessionDescription `json:"answer"`
}

type Options struct {
	// MaxConnections is the maximum amount of peers at once
	//
	// If not set, this will default to 16
	MaxConnections int
	// ICEServerURLs, ie. []string{"stun:127.0.0.1:3478"}
	ICEServerURLs []string
	// UDPPortMin and UDPPortMax limit the ports used for ICE, both must be set
	UDPPortMin uint16
	UDPPortMax uint16
}

type Server struct {
	api        *webrtc.API
	dispatcher *bridge.Dispatcher
	log        *logging.Logger
	options    Options

	mu          sync.Mutex
	connections []*Connection
}

type Connection struct {
	mu             sync.Mutex
	peerConnection *webrtc.PeerConnection
	dataChannel    *webrtc.DataChannel
	isConnected    bool
	isUsed         bool
}

var _ http.Handler = new(Server)

func New(dispatcher *bridge.Dispatcher, logger *logging.Logger, options Options) (*Server, error) {
	if options.MaxConnections == 0 {
		options.MaxConnections = defaultMaxConnections
	}
	if logger == nil {
		logger = logging.Discard()
	}

	settings := webrtc.SettingEngine{}
	if options.UDPPortMin != 0 || options.UDPPortMax != 0 {
		if err := settings.SetEphemeralUDPPortRange(options.UDPPortMin, options.UDPPortMax); err != nil {
			return nil, errors.Wrap(err, "failed to set UDP port range")
		}
	}

	s := &Server{
		api:         webrtc.NewAPI(webrtc.WithSettingEngine(settings)),
		dispatcher:  dispatcher,
		log:         logger,
		options:     options,
		connections: make([]*Connection, options.MaxConnections),
	}
	for i := range s.connections {
		s.connections[i] = &Connection{}
	}
	return s, nil
}

// ConnectedCount is the number of peers with an open data channel
func (s *Server) ConnectedCount() int {
	count := 0
	for _, conn := range s.connections {
		if conn.IsConnected() {
			count++
		}
	}
	return count
}

func (conn *Connection) IsConnected() bool {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return conn.isConnected
}

func (conn *Connection) sendText(text string) error {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.dataChannel == nil {
		// same error the data channel gives once closed
		return io.ErrClosedPipe
	}
	return conn.dataChannel.SendText(text)
}

// free closes the connection and makes the slot available again
func (conn *Connection) free() {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	conn.needsMutexLock_disconnect()
	conn.isUsed = false
}

// freeIfCurrent frees the slot only while it still belongs to peerConnection.
// Callbacks of a closed peer can fire after its slot went to a new offer.
func (conn *Connection) freeIfCurrent(peerConnection *webrtc.PeerConnection) bool {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.peerConnection != peerConnection {
		return false
	}
	conn.needsMutexLock_disconnect()
	conn.isUsed = false
	return true
}

// needsMutexLock_disconnect closes the peer connection, the caller must hold conn.mu
func (conn *Connection) needsMutexLock_disconnect() {
	if conn.dataChannel != nil {
		conn.dataChannel.Close()
		conn.dataChannel = nil
	}
	if conn.peerConnection != nil {
		conn.peerConnection.Close()
		conn.peerConnection = nil
	}
	conn.isConnected = false
}

// Close disconnects every peer
func (s *Server) Close() {
	for _, conn := range s.connections {
		conn.free()
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", http.MethodPost)
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding")
	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Please send a "+http.MethodPost+" request", http.StatusMethodNotAllowed)
		return
	}
	if r.Body == nil {
		http.Error(w, "Please send a request body", http.StatusBadRequest)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		s.log.Warn("error decoding offer", "err", err)
		http.Error(w, "error decoding offer", http.StatusBadRequest)
		return
	}
	if offer.Type != webrtc.SDPTypeOffer || offer.SDP == "" {
		http.Error(w, "expected an SDP offer", http.StatusBadRequest)
		return
	}

	conn := s.reserveConnection()
	if conn == nil {
		s.log.Warn("rtc bridge is full", "max", s.options.MaxConnections)
		http.Error(w, "server is full", http.StatusServiceUnavailable)
		return
	}

	resp, err := s.negotiate(r.Context(), conn, offer)
	if err != nil {
		conn.free()
		s.log.Warn("sdp negotiation failed", "err", err)
		http.Error(w, "sdp negotiation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		conn.free()
		s.log.Warn("unable to encode connection response", "err", err)
		return
	}
	s.log.Info("rtc peer negotiated", "remote", r.RemoteAddr)
}

func (s *Server) reserveConnection() *Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.connections {
		conn.mu.Lock()
		if !conn.isUsed {
			conn.isUsed = true
			conn.mu.Unlock()
			return conn
		}
		conn.mu.Unlock()
	}
	return nil
}

func (s *Server) negotiate(ctx context.Context, conn *Connection, offer webrtc.SessionDescription) (ConnectResponse, error) {
	config := webrtc.Configuration{
		SDPSemantics: webrtc.SDPSemanticsUnifiedPlan,
	}
	if len(s.options.ICEServerURLs) > 0 {
		config.ICEServers = []webrtc.ICEServer{
			{URLs: s.options.ICEServerURLs},
		}
	}
	peerConnection, err := s.api.NewPeerConnection(config)
	if err != nil {
		return ConnectResponse{}, errors.Wrap(err, "error creating peer connection")
	}
	conn.mu.Lock()
	conn.peerConnection = peerConnection
	conn.mu.Unlock()

	peerConnection.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		switch state {
		case webrtc.ICEConnectionStateClosed,
			webrtc.ICEConnectionStateFailed:
			// "disconnected" can recover on flaky networks so it's left alone
			conn.freeIfCurrent(peerConnection)
		}
	})
	peerConnection.OnDataChannel(func(dataChannel *webrtc.DataChannel) {
		s.onDataChannel(conn, peerConnection, dataChannel)
	})

	var (
		candidatesMu sync.Mutex
		candidates   = make([]webrtc.ICECandidateInit, 0)
	)
	gatherComplete := make(chan struct{})
	peerConnection.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			close(gatherComplete)
			return
		}
		candidatesMu.Lock()
		candidates = append(candidates, candidate.ToJSON())
		candidatesMu.Unlock()
	})

	if err := peerConnection.SetRemoteDescription(offer); err != nil {
		return ConnectResponse{}, errors.Wrap(err, "error setting remote description")
	}
	answer, err := peerConnection.CreateAnswer(nil)
	if err != nil {
		return ConnectResponse{}, errors.Wrap(err, "error creating answer")
	}
	// starts gathering candidates
	if err := peerConnection.SetLocalDescription(answer); err != nil {
		return ConnectResponse{}, errors.Wrap(err, "error setting local description")
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return ConnectResponse{}, errors.Wrap(ctx.Err(), "gathering candidates")
	}

	candidatesMu.Lock()
	defer candidatesMu.Unlock()
	if len(candidates) == 0 {
		return ConnectResponse{}, errors.New("received 0 candidates")
	}
	return ConnectResponse{
		Candidates: candidates,
		Answer:     answer,
	}, nil
}

func (s *Server) onDataChannel(conn *Connection, peerConnection *webrtc.PeerConnection, dataChannel *webrtc.DataChannel) {
	if err := isValidDataChannel(dataChannel); err != nil {
		s.log.Warn("invalid data channel", "label", dataChannel.Label(), "err", err)
		dataChannel.Close()
		conn.freeIfCurrent(peerConnection)
		return
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.peerConnection != peerConnection {
		// the slot was freed and reused before this channel arrived
		dataChannel.Close()
		return
	}
	if conn.dataChannel != nil {
		// only the first data channel is served
		dataChannel.Close()
		return
	}
	conn.dataChannel = dataChannel
	dataChannel.OnOpen(func() {
		conn.mu.Lock()
		conn.isConnected = true
		conn.mu.Unlock()
		s.log.Info("rtc data channel opened", "label", dataChannel.Label())
	})
	dataChannel.OnMessage(func(msg webrtc.DataChannelMessage) {
		if !msg.IsString {
			return
		}
		s.log.Info("message received", "text", string(msg.Data))
		data, err := s.handleMessage(msg.Data)
		if err != nil {
			s.log.Warn("unable to encode response", "err", err)
			return
		}
		if err := conn.sendText(string(data)); err != nil {
			s.log.Warn("rtc send failed", "err", err)
		}
	})
	dataChannel.OnClose(func() {
		s.log.Info("rtc data channel closed", "label", dataChannel.Label())
		conn.freeIfCurrent(peerConnection)
	})
}

// handleMessage runs one command, messages on a data channel arrive one at a
// time so responses keep the order of the commands.
func (s *Server) handleMessage(data []byte) ([]byte, error) {
	resp := s.dispatcher.HandleJSON(context.Background(), data)
	return json.Marshal(&resp)
}

// isValidDataChannel only allows TCP-like channels, commands must not be
// dropped or reordered
func isValidDataChannel(dataChannel *webrtc.DataChannel) error {
	if !dataChannel.Ordered() {
		return errors.New("DataChannel tried to connect with \"ordered: false\". Bridge accepts \"ordered: true\" only")
	}
	if maxRetransmits := dataChannel.MaxRetransmits(); maxRetransmits != nil {
		return errors.Errorf("DataChannel tried to connect with \"maxRetransmits\" set to %d. Must be unset", *maxRetransmits)
	}
	if maxPacketLifeTime := dataChannel.MaxPacketLifeTime(); maxPacketLifeTime != nil {
		return errors.Errorf("DataChannel tried to connect with \"maxPacketLifeTime\" set to %d. Must be unset", *maxPacketLifeTime)
	}
	return nil
}

package rtcbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/pkg/errors"

	"github.com/silbinarywolf/simple-game/internal/bridge"
)

// Client sends commands to a Server over a data channel
type Client struct {
	mu             sync.Mutex
	peerConnection *webrtc.PeerConnection
	dataChannel    *webrtc.DataChannel
	responses      chan []byte
	closed         chan struct{}
	closeOnce      sync.Once
}

type ClientOptions struct {
	ICEServerURLs []string
	HTTPClient    *http.Client
}

// Dial negotiates with the SDP handler at baseURL, ie. "http://127.0.0.1:9222",
// and returns once the data channel is open.
func Dial(ctx context.Context, baseURL string, options ClientOptions) (*Client, error) {
	config := webrtc.Configuration{}
	if len(options.ICEServerURLs) > 0 {
		config.ICEServers = []webrtc.ICEServer{
			{URLs: options.ICEServerURLs},
		}
	}
	peerConnection, err := webrtc.NewPeerConnection(config)
	if err != nil {
		return nil, errors.Wrap(err, "unable to start peer connection")
	}

	// nil Ordered and MaxRetransmits gives an ordered, reliable channel
	dataChannel, err := peerConnection.CreateDataChannel("bridge", &webrtc.DataChannelInit{})
	if err != nil {
		peerConnection.Close()
		return nil, errors.Wrap(err, "unable to create data channel")
	}

	client := &Client{
		peerConnection: peerConnection,
		dataChannel:    dataChannel,
		responses:      make(chan []byte, 16),
		closed:         make(chan struct{}),
	}
	opened := make(chan struct{})
	dataChannel.OnOpen(func() {
		close(opened)
	})
	dataChannel.OnMessage(func(msg webrtc.DataChannelMessage) {
		select {
		case client.responses <- msg.Data:
		case <-client.closed:
		}
	})
	dataChannel.OnClose(func() {
		client.markClosed()
	})
	peerConnection.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		switch state {
		case webrtc.ICEConnectionStateClosed,
			webrtc.ICEConnectionStateFailed:
			client.markClosed()
		}
	})

	offer, err := peerConnection.CreateOffer(nil)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "unable to create offer")
	}
	if err := peerConnection.SetLocalDescription(offer); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "unable to set local description")
	}

	connectResp, err := postOffer(ctx, options.HTTPClient, baseURL, offer)
	if err != nil {
		client.Close()
		return nil, err
	}
	if err := peerConnection.SetRemoteDescription(connectResp.Answer); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "unable to set remote description")
	}
	for _, candidate := range connectResp.Candidates {
		if err := peerConnection.AddICECandidate(candidate); err != nil {
			client.Close()
			return nil, errors.Wrap(err, "unable to add ice candidate")
		}
	}

	select {
	case <-opened:
		return client, nil
	case <-client.closed:
		client.Close()
		return nil, errors.New("connection closed before data channel opened")
	case <-ctx.Done():
		client.Close()
		return nil, errors.Wrap(ctx.Err(), "waiting for data channel")
	}
}

func postOffer(ctx context.Context, httpClient *http.Client, baseURL string, offer webrtc.SessionDescription) (ConnectResponse, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	b := new(bytes.Buffer)
	if err := json.NewEncoder(b).Encode(offer); err != nil {
		return ConnectResponse{}, errors.Wrap(err, "unable to encode JSON offer")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(baseURL, "/")+Path, b)
	if err != nil {
		return ConnectResponse{}, errors.Wrap(err, "unable to create SDP request")
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	resp, err := httpClient.Do(req)
	if err != nil {
		return ConnectResponse{}, errors.Wrap(err, "unable to post JSON offer to SDP")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ConnectResponse{}, errors.Errorf("SDP post returned %s", resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.DisallowUnknownFields()
	var connectResp ConnectResponse
	if err := dec.Decode(&connectResp); err != nil {
		return ConnectResponse{}, errors.Wrap(err, "decode response from SDP post")
	}
	if len(connectResp.Candidates) == 0 {
		return ConnectResponse{}, errors.New("missing candidates from connection, expected more than 0 candidates")
	}
	return connectResp, nil
}

// Do sends a command and waits for its response
func (client *Client) Do(ctx context.Context, cmd bridge.Command) (bridge.Response, error) {
	client.mu.Lock()
	defer client.mu.Unlock()

	// a response to a command that timed out earlier would be read as ours
	for drained := false; !drained; {
		select {
		case <-client.responses:
		default:
			drained = true
		}
	}

	data, err := json.Marshal(&cmd)
	if err != nil {
		return bridge.Response{}, errors.Wrap(err, "unable to encode command")
	}
	if err := client.dataChannel.SendText(string(data)); err != nil {
		return bridge.Response{}, errors.Wrap(err, "unable to send command")
	}
	select {
	case data := <-client.responses:
		var resp bridge.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return bridge.Response{}, errors.Wrap(err, "unable to decode response")
		}
		return resp, nil
	case <-client.closed:
		return bridge.Response{}, errors.New("connection closed")
	case <-ctx.Done():
		return bridge.Response{}, ctx.Err()
	}
}

func (client *Client) markClosed() {
	client.closeOnce.Do(func() {
		close(client.closed)
	})
}

func (client *Client) Close() error {
	client.markClosed()
	client.dataChannel.Close()
	return client.peerConnection.Close()
}

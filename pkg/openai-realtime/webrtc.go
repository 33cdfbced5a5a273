package openairealtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// WebRTCTransport is a WebRTC-based Transport. Events travel over the
// "oai-events" data channel; model audio arrives on a remote RTP track.
type WebRTCTransport struct {
	client *Client
	config *ConnectConfig
	pump   *eventPump

	mu          sync.Mutex
	pc          *webrtc.PeerConnection
	dc          *webrtc.DataChannel
	remoteTrack *webrtc.TrackRemote
	localTrack  *webrtc.TrackLocalStaticSample
	onAudio     func(*rtp.Packet)
}

// ephemeralTokenResponse is the response from the token API. The GA
// client_secrets endpoint returns the secret in Value; the beta sessions
// endpoint nests it under client_secret.
type ephemeralTokenResponse struct {
	Value        string `json:"value"`
	ExpiresAt    int64  `json:"expires_at"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

func (r *ephemeralTokenResponse) secret() string {
	if r.Value != "" {
		return r.Value
	}
	return r.ClientSecret.Value
}

// NewWebRTCTransport returns an unconnected WebRTC transport.
func (c *Client) NewWebRTCTransport(config *ConnectConfig) *WebRTCTransport {
	return &WebRTCTransport{
		client: c,
		config: config.withDefaults(),
		pump:   newEventPump(),
	}
}

// OnAudioPacket registers fn to receive the RTP packets of the model's
// audio track. It must be called before Connect.
func (t *WebRTCTransport) OnAudioPacket(fn func(*rtp.Packet)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAudio = fn
}

// Connect obtains an ephemeral token, negotiates the peer connection and
// opens the event data channel. The status becomes connected when the data
// channel opens.
func (t *WebRTCTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.pc != nil {
		t.mu.Unlock()
		return errors.New("openai-realtime: already connected")
	}
	t.mu.Unlock()

	t.pump.setStatus(ConnectionConnecting)
	if err := t.connect(ctx); err != nil {
		t.pump.setStatus(ConnectionDisconnected)
		return err
	}
	return nil
}

func (t *WebRTCTransport) connect(ctx context.Context) error {
	token, err := t.client.getEphemeralToken(ctx, t.config)
	if err != nil {
		return fmt.Errorf("openai-realtime: ephemeral token: %w", err)
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	})
	if err != nil {
		return fmt.Errorf("openai-realtime: create peer connection: %w", err)
	}

	_, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	if err != nil {
		pc.Close()
		return fmt.Errorf("openai-realtime: add audio transceiver: %w", err)
	}

	dc, err := pc.CreateDataChannel("oai-events", nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("openai-realtime: create data channel: %w", err)
	}

	dc.OnOpen(func() {
		slog.Debug("data channel opened")
		t.pump.setStatus(ConnectionConnected)
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.pump.frame(msg.Data)
	})
	dc.OnClose(func() {
		slog.Debug("data channel closed")
		t.pump.setStatus(ConnectionDisconnected)
		t.pump.end()
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		slog.Debug("received remote track", "kind", track.Kind(), "codec", track.Codec().MimeType)
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		t.mu.Lock()
		t.remoteTrack = track
		onAudio := t.onAudio
		t.mu.Unlock()
		if onAudio != nil {
			go t.readTrack(track, onAudio)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("openai-realtime: create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return fmt.Errorf("openai-realtime: set local description: %w", err)
	}

	select {
	case <-webrtc.GatheringCompletePromise(pc):
	case <-ctx.Done():
		pc.Close()
		return ctx.Err()
	}

	answer, err := t.client.sendOffer(ctx, token, t.config.Model, pc.LocalDescription().SDP)
	if err != nil {
		pc.Close()
		return fmt.Errorf("openai-realtime: send offer: %w", err)
	}
	err = pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	})
	if err != nil {
		pc.Close()
		return fmt.Errorf("openai-realtime: set remote description: %w", err)
	}

	t.mu.Lock()
	t.pc = pc
	t.dc = dc
	t.mu.Unlock()
	return nil
}

func (t *WebRTCTransport) readTrack(track *webrtc.TrackRemote, fn func(*rtp.Packet)) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("read remote track", "error", err)
			}
			return
		}
		fn(pkt)
	}
}

// getEphemeralToken creates a session and returns its client secret.
func (c *Client) getEphemeralToken(ctx context.Context, config *ConnectConfig) (string, error) {
	endpoint := c.config.httpURL + "/client_secrets"
	var payload any = map[string]any{
		"session": map[string]any{
			"type":  SessionTypeRealtime,
			"model": config.Model,
			"audio": map[string]any{
				"output": map[string]any{"voice": config.Voice},
			},
		},
	}
	if c.dialect() == DialectBeta {
		endpoint = c.config.httpURL + "/sessions"
		payload = map[string]any{
			"model": config.Model,
			"voice": config.Voice,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header = c.headers()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", &Error{
			Code:       "session_creation_failed",
			Message:    fmt.Sprintf("failed to create session: %s", msg),
			HTTPStatus: resp.StatusCode,
		}
	}

	var tokenResp ephemeralTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	secret := tokenResp.secret()
	if secret == "" {
		return "", errors.New("openai-realtime: empty client secret")
	}
	return secret, nil
}

// sendOffer posts the SDP offer and returns the answer.
func (c *Client) sendOffer(ctx context.Context, token, model, sdp string) (string, error) {
	endpoint := c.config.httpURL + "/calls"
	if c.dialect() == DialectBeta {
		endpoint = c.config.httpURL
	}
	u := fmt.Sprintf("%s?model=%s", endpoint, url.QueryEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader([]byte(sdp)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", &Error{
			Code:       "sdp_exchange_failed",
			Message:    fmt.Sprintf("failed to exchange SDP: %s", answer),
			HTTPStatus: resp.StatusCode,
		}
	}
	return string(answer), nil
}

// Disconnect closes the data channel and the peer connection.
func (t *WebRTCTransport) Disconnect() error {
	t.pump.close()
	t.pump.setStatus(ConnectionDisconnected)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dc != nil {
		t.dc.Close()
	}
	if t.pc != nil {
		return t.pc.Close()
	}
	return nil
}

// Send writes one event on the data channel.
func (t *WebRTCTransport) Send(ev ClientEvent) error {
	data, err := t.client.dialect().Encode(ev)
	if err != nil {
		return err
	}

	t.mu.Lock()
	dc := t.dc
	t.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotConnected
	}
	logOutbound(data)
	return dc.Send(data)
}

// Events returns an iterator over server events.
func (t *WebRTCTransport) Events() iter.Seq2[*ServerEvent, error] {
	return t.pump.seq()
}

// Status returns the connection status.
func (t *WebRTCTransport) Status() ConnectionStatus {
	return t.pump.getStatus()
}

// SessionID returns the session ID assigned by the server.
func (t *WebRTCTransport) SessionID() string {
	return t.pump.getSessionID()
}

// AudioTrack returns the remote audio track, or nil before it arrives.
func (t *WebRTCTransport) AudioTrack() *webrtc.TrackRemote {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remoteTrack
}

// AddAudioTrack adds a local audio track for sending microphone audio.
func (t *WebRTCTransport) AddAudioTrack(track *webrtc.TrackLocalStaticSample) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pc == nil {
		return ErrNotConnected
	}
	if t.localTrack != nil {
		return errors.New("openai-realtime: local audio track already added")
	}
	if _, err := t.pc.AddTrack(track); err != nil {
		return err
	}
	t.localTrack = track
	return nil
}

// Ensure WebRTCTransport implements Transport.
var _ Transport = (*WebRTCTransport)(nil)
